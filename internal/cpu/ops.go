// ops.go implements the per-instruction semantics dispatched by execute.
package cpu

import (
	"github.com/ucv-so/minikernel/internal/bus"
	"github.com/ucv-so/minikernel/internal/intrcode"
)

// resolveOperand returns the operand value for load-form instructions,
// resolving immediate, direct and indexed addressing. It raises the
// appropriate interrupt itself on any failure.
func (c *CPU) resolveOperand(d Decoded) (int, bool) {
	switch d.Mode {
	case AddrImmediate:
		return d.Operand, true
	case AddrDirect, AddrIndexed:
		logical := d.Operand
		if d.Mode == AddrIndexed {
			logical += c.Ctx.RX
		}

		phys, ok := c.translate(logical)
		if !ok {
			c.raise(intrcode.InvAddr)
			return 0, false
		}

		v, err := c.bus.Read(phys, bus.ClientCPU)
		if err != nil {
			c.raise(intrcode.InvAddr)
			return 0, false
		}

		return v, true
	default:
		c.raise(intrcode.InvInstr)
		return 0, false
	}
}

// storeAddress resolves the effective physical address for store-form
// instructions and POP. Immediate mode is a protection fault, not an illegal
// instruction: it is recoverable and vectored through INVALID_OP rather than
// INV_INSTR.
func (c *CPU) storeAddress(d Decoded) (int, bool) {
	if d.Mode == AddrImmediate {
		c.raise(intrcode.InvalidOp)
		return 0, false
	}

	if d.Mode != AddrDirect && d.Mode != AddrIndexed {
		c.raise(intrcode.InvInstr)
		return 0, false
	}

	logical := d.Operand
	if d.Mode == AddrIndexed {
		logical += c.Ctx.RX
	}

	phys, ok := c.translate(logical)
	if !ok {
		c.raise(intrcode.InvAddr)
		return 0, false
	}

	return phys, true
}

// requirePrivileged enforces a kernel-only instruction: in User mode it
// raises SYSCALL_INVALID and reports the instruction should not take effect.
func (c *CPU) requirePrivileged() bool {
	if c.Ctx.PSW.Mode == ModeUser {
		c.raise(intrcode.SyscallInvalid)
		return false
	}

	return true
}

func (c *CPU) store(addr, value int) {
	if err := c.bus.Write(addr, value, bus.ClientCPU); err != nil {
		c.raise(intrcode.InvAddr)
	}
}

// execute dispatches one decoded instruction. It never returns an error: all
// failures are reported through the pending-interrupt latch and observed on
// a later Step.
func (c *CPU) execute(d Decoded) {
	switch d.Opcode {
	case OpSUM, OpRES, OpMULT, OpDIVI:
		if val, ok := c.resolveOperand(d); ok {
			c.arith(d.Opcode, val)
		}

	case OpLOAD:
		if val, ok := c.resolveOperand(d); ok {
			c.Ctx.AC = val
		}

	case OpSTR:
		if addr, ok := c.storeAddress(d); ok {
			c.store(addr, c.Ctx.AC)
		}

	case OpLOADRX:
		if val, ok := c.resolveOperand(d); ok {
			c.Ctx.RX = val
		}

	case OpSTRRX:
		if addr, ok := c.storeAddress(d); ok {
			c.store(addr, c.Ctx.RX)
		}

	case OpCOMP:
		if val, ok := c.resolveOperand(d); ok {
			c.compare(val)
		}

	case OpJMPE:
		if c.Ctx.PSW.CC == CCZero {
			c.Ctx.PSW.PC = d.Operand
		}

	case OpJMPNE:
		if c.Ctx.PSW.CC != CCZero {
			c.Ctx.PSW.PC = d.Operand
		}

	case OpJMPLT:
		if c.Ctx.PSW.CC == CCNegative {
			c.Ctx.PSW.PC = d.Operand
		}

	case OpJMPLGT:
		if c.Ctx.PSW.CC == CCPositive {
			c.Ctx.PSW.PC = d.Operand
		}

	case OpSVC:
		c.raise(intrcode.Syscall)

	case OpRETRN:
		_ = c.retrn() // failures already raised as interrupts

	case OpHAB:
		c.Ctx.PSW.Interrupts = 1

	case OpDHAB:
		c.Ctx.PSW.Interrupts = 0

	case OpTTI:
		// Timer checkpoint; no state change. See RaiseClock for the
		// (currently unwired) clock source.

	case OpCHMOD:
		if !c.requirePrivileged() {
			return
		}

		if val, ok := c.resolveOperand(d); ok {
			if val != ModeUser && val != ModeKernel {
				c.raise(intrcode.InvInstr)
				return
			}

			c.Ctx.PSW.Mode = val
		}

	case OpLOADRB:
		if !c.requirePrivileged() {
			return
		}

		if val, ok := c.resolveOperand(d); ok {
			c.Ctx.RB = val
		}

	case OpSTRRB:
		if !c.requirePrivileged() {
			return
		}

		if addr, ok := c.storeAddress(d); ok {
			c.store(addr, c.Ctx.RB)
		}

	case OpLOADRL:
		if !c.requirePrivileged() {
			return
		}

		if val, ok := c.resolveOperand(d); ok {
			c.Ctx.RL = val
		}

	case OpSTRRL:
		if !c.requirePrivileged() {
			return
		}

		if addr, ok := c.storeAddress(d); ok {
			c.store(addr, c.Ctx.RL)
		}

	case OpLOADSP:
		if !c.requirePrivileged() {
			return
		}

		if val, ok := c.resolveOperand(d); ok {
			c.Ctx.SP = val
		}

	case OpSTRSP:
		if !c.requirePrivileged() {
			return
		}

		if addr, ok := c.storeAddress(d); ok {
			c.store(addr, c.Ctx.SP)
		}

	case OpPSH:
		if val, ok := c.resolveOperand(d); ok {
			_ = c.push(val) // overflow already raised
		}

	case OpPOP:
		if addr, ok := c.storeAddress(d); ok {
			if v, err := c.pop(); err == nil {
				c.store(addr, v)
			}
		}

	case OpJ:
		c.Ctx.PSW.PC = d.Operand

	case OpSDMAP, OpSDMAC, OpSDMAS, OpSDMAIO, OpSDMAM, OpSDMAON:
		c.executeDMA(d)

	default:
		c.raise(intrcode.InvInstr)
	}
}
