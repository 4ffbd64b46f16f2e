package cpu

import (
	"github.com/ucv-so/minikernel/internal/codec"
	"github.com/ucv-so/minikernel/internal/intrcode"
)

// ccForResult maps a decoded native result to a condition code.
func ccForResult(v int) int {
	switch {
	case v == 0:
		return CCZero
	case v < 0:
		return CCNegative
	default:
		return CCPositive
	}
}

// arith implements SUM, RES, MULT and DIVI: decode AC and the resolved
// operand from signed-magnitude, compute natively, update CC, then re-encode
// into AC. Division by zero raises OVERFLOW and leaves AC and CC untouched.
func (c *CPU) arith(opcode, operand int) {
	ac := codec.Decode(c.Ctx.AC)
	val := codec.Decode(operand)

	var result int

	switch opcode {
	case OpSUM:
		result = ac + val
	case OpRES:
		result = ac - val
	case OpMULT:
		result = ac * val
	case OpDIVI:
		if val == 0 {
			c.raise(intrcode.Overflow)
			return
		}

		result = ac / val
	}

	encoded, overflow := codec.Encode(result)
	c.Ctx.AC = encoded

	if overflow {
		c.Ctx.PSW.CC = CCOverflow
	} else {
		c.Ctx.PSW.CC = ccForResult(result)
	}
}

// compare implements COMP: it sets CC from the decoded difference without
// modifying AC.
func (c *CPU) compare(operand int) {
	ac := codec.Decode(c.Ctx.AC)
	val := codec.Decode(operand)

	c.Ctx.PSW.CC = ccForResult(ac - val)
}
