package cpu

import (
	"errors"
	"fmt"

	"github.com/ucv-so/minikernel/internal/bus"
	"github.com/ucv-so/minikernel/internal/intrcode"
	"github.com/ucv-so/minikernel/internal/mem"
)

// ErrStackOverflow and ErrStackUnderflow are the stack-discipline failures;
// they are always surfaced as the corresponding interrupt, never as a raw
// Go error escaping Step.
var (
	ErrStackOverflow  = errors.New("cpu: stack overflow")
	ErrStackUnderflow = errors.New("cpu: stack underflow")
)

// FatalError is returned by Step when a fault is not recoverable: the outer
// driver is expected to report it and terminate the running program.
type FatalError struct {
	Code int
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("cpu: fatal interrupt %s", intrcode.Name(e.Code))
}

// raise asserts an interrupt into the pending latch. It never returns an
// error: the current instruction's tick always completes; delivery happens
// at the next Step.
func (c *CPU) raise(code int) {
	c.intr.Raise(code)
}

// deliverable reports the interrupt to service this tick, if any: a fault
// class code is always delivered, even with interrupts masked, since those
// model unmaskable hardware faults; anything else is gated by PSW.Interrupts.
func (c *CPU) deliverable() (int, bool) {
	code, ok := c.intr.Peek()
	if !ok {
		return 0, false
	}

	if !intrcode.Fatal(code) && c.Ctx.PSW.Interrupts == 0 {
		return 0, false
	}

	return c.intr.Pop()
}

// handleInterrupt services one interrupt code: fatal codes (and DMA-reported
// I/O failure under IO_END) terminate the run; everything else pushes
// context, masks interrupts, enters Kernel mode and jumps through the
// vector.
func (c *CPU) handleInterrupt(code int) error {
	fatal := intrcode.Fatal(code)

	if code == intrcode.IOEnd && c.dma != nil && c.dma.State() != 0 {
		fatal = true
	}

	if fatal {
		c.log.Error("cpu: fatal interrupt", "code", code, "name", intrcode.Name(code))
		return &FatalError{Code: code}
	}

	c.log.Debug("cpu: servicing interrupt", "code", code, "name", intrcode.Name(code))

	if err := c.pushContext(); err != nil {
		c.log.Error("cpu: stack overflow entering interrupt", "err", err)
		return &FatalError{Code: intrcode.Overflow}
	}

	c.Ctx.PSW.Mode = ModeKernel
	c.Ctx.PSW.Interrupts = 0

	target, err := c.bus.Read(code, bus.ClientCPU)
	if err != nil {
		return &FatalError{Code: intrcode.InvAddr}
	}

	c.Ctx.PSW.PC = target

	return nil
}

// pushContext saves PC, AC, RX, RB, RL, CC, Mode in that order — the order
// retrn unwinds in reverse.
func (c *CPU) pushContext() error {
	values := []int{
		c.Ctx.PSW.PC, c.Ctx.AC, c.Ctx.RX, c.Ctx.RB, c.Ctx.RL, c.Ctx.PSW.CC, c.Ctx.PSW.Mode,
	}

	for _, v := range values {
		if err := c.push(v); err != nil {
			return err
		}
	}

	return nil
}

// retrn implements RETRN: pop Mode, CC, RL, RB, RX, AC, PC, then re-enable
// interrupts. It is kernel-only; in User mode it raises SYSCALL_INVALID and
// does nothing else.
func (c *CPU) retrn() error {
	if c.Ctx.PSW.Mode == ModeUser {
		c.raise(intrcode.SyscallInvalid)
		return nil
	}

	var err error

	if c.Ctx.PSW.Mode, err = c.pop(); err != nil {
		return err
	}

	if c.Ctx.PSW.CC, err = c.pop(); err != nil {
		return err
	}

	if c.Ctx.RL, err = c.pop(); err != nil {
		return err
	}

	if c.Ctx.RB, err = c.pop(); err != nil {
		return err
	}

	if c.Ctx.RX, err = c.pop(); err != nil {
		return err
	}

	if c.Ctx.AC, err = c.pop(); err != nil {
		return err
	}

	if c.Ctx.PSW.PC, err = c.pop(); err != nil {
		return err
	}

	c.Ctx.PSW.Interrupts = 1

	return nil
}

// push predecrements SP then writes — the stack grows downward and may never
// reach below the kernel floor.
func (c *CPU) push(v int) error {
	if c.Ctx.SP-1 < mem.KernelBase {
		c.raise(intrcode.Overflow)
		return ErrStackOverflow
	}

	c.Ctx.SP--

	return c.bus.Write(c.Ctx.SP, v, bus.ClientCPU)
}

// pop reads then postincrements SP. An empty stack (SP already at the
// ceiling) underflows.
func (c *CPU) pop() (int, error) {
	if c.Ctx.SP >= mem.KernelEnd {
		c.raise(intrcode.Underflow)
		return 0, ErrStackUnderflow
	}

	v, err := c.bus.Read(c.Ctx.SP, bus.ClientCPU)
	if err != nil {
		c.raise(intrcode.InvAddr)
		return 0, err
	}

	c.Ctx.SP++

	return v, nil
}
