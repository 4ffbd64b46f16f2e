// Package cpu implements the machine core: registers, the fetch-decode-
// execute cycle, the MMU, the signed-magnitude ALU, the stack discipline and
// interrupt entry/exit, and the instructions that drive the DMA controller.
package cpu

import (
	"fmt"

	"github.com/ucv-so/minikernel/internal/bus"
	"github.com/ucv-so/minikernel/internal/dma"
	"github.com/ucv-so/minikernel/internal/intrcode"
	"github.com/ucv-so/minikernel/internal/latch"
	"github.com/ucv-so/minikernel/internal/log"
	"github.com/ucv-so/minikernel/internal/mem"
)

// Condition codes.
const (
	CCZero     = 0
	CCNegative = 1
	CCPositive = 2
	CCOverflow = 3
)

// Privilege modes.
const (
	ModeUser   = 0
	ModeKernel = 1
)

// PSW is the processor status word.
type PSW struct {
	CC         int
	Mode       int
	Interrupts int
	PC         int
}

// Context is the complete CPU register file named by the data model: the
// working registers, the segment registers, and the PSW.
type Context struct {
	AC, MAR, MDR, IR int
	RB, RL, RX, SP   int
	PSW              PSW
}

// CPU is the core. It holds no physical memory directly — all access goes
// through the bus — and it owns the pending-interrupt latch that the DMA
// controller (and, in principle, other sources) raises into.
type CPU struct {
	Ctx Context

	bus  *bus.Bus
	dma  *dma.Controller
	intr *latch.Latch
	log  *log.Logger
}

// New creates a CPU wired to the given bus and DMA controller, booted in
// Kernel mode with interrupts enabled and the stack pointer at the top of
// the kernel region. The caller (the loader/shell) is responsible for
// setting PC, RB and RL before starting execution of a user program.
func New(b *bus.Bus, d *dma.Controller, intr *latch.Latch, logger *log.Logger) *CPU {
	c := &CPU{
		bus:  b,
		dma:  d,
		intr: intr,
		log:  logger,
	}

	c.Ctx.SP = mem.KernelEnd
	c.Ctx.RB = mem.UserBase
	c.Ctx.RL = mem.Size - 1
	c.Ctx.PSW.Mode = ModeKernel
	c.Ctx.PSW.Interrupts = 1
	c.Ctx.PSW.PC = mem.KernelBase

	return c
}

// Latch exposes the CPU's pending-interrupt latch so that external
// drivers (CLOCK, in particular — see the design notes) may raise into it.
func (c *CPU) Latch() *latch.Latch {
	return c.intr
}

// RaiseClock asserts CLOCK. No driver calls this yet — there is no timer
// source wired into the machine — but TTI and the interrupt vector both
// expect a CLOCK code to exist, so the seam is here for whoever adds one.
func (c *CPU) RaiseClock() {
	c.raise(intrcode.Clock)
}

// String renders the register file compactly, in the teacher's register-dump
// style, for debug-shell output.
func (c *CPU) String() string {
	return fmt.Sprintf(
		"AC=%08d MAR=%08d MDR=%08d IR=%08d RB=%05d RL=%05d RX=%05d SP=%05d | CC=%d MODE=%d INT=%d PC=%05d",
		c.Ctx.AC, c.Ctx.MAR, c.Ctx.MDR, c.Ctx.IR, c.Ctx.RB, c.Ctx.RL, c.Ctx.RX, c.Ctx.SP,
		c.Ctx.PSW.CC, c.Ctx.PSW.Mode, c.Ctx.PSW.Interrupts, c.Ctx.PSW.PC,
	)
}

// LogValue renders the CPU context as a structured logging group.
func (c *CPU) LogValue() log.Value {
	return log.GroupValue(
		log.Any("AC", c.Ctx.AC),
		log.Any("RB", c.Ctx.RB),
		log.Any("RL", c.Ctx.RL),
		log.Any("RX", c.Ctx.RX),
		log.Any("SP", c.Ctx.SP),
		log.Any("CC", c.Ctx.PSW.CC),
		log.Any("MODE", c.Ctx.PSW.Mode),
		log.Any("PC", c.Ctx.PSW.PC),
	)
}
