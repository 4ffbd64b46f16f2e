// dma_ops.go wires opcodes 28-33 (SDMAP..SDMAON) to the DMA controller. The
// CPU depends on package dma; the dependency never runs the other way (see
// InterruptSink in package dma).
package cpu

import (
	"errors"

	"github.com/ucv-so/minikernel/internal/dma"
	"github.com/ucv-so/minikernel/internal/intrcode"
)

func isBusy(err error) bool {
	return errors.Is(err, dma.ErrBusy)
}

// executeDMA dispatches one of the six DMA-configuration opcodes.
func (c *CPU) executeDMA(d Decoded) {
	switch d.Opcode {
	case OpSDMAP:
		if val, ok := c.resolveOperand(d); ok {
			c.dma.SetTrack(val)
		}

	case OpSDMAC:
		if val, ok := c.resolveOperand(d); ok {
			c.dma.SetCylinder(val)
		}

	case OpSDMAS:
		if val, ok := c.resolveOperand(d); ok {
			c.dma.SetSector(val)
		}

	case OpSDMAIO:
		if val, ok := c.resolveOperand(d); ok {
			c.dma.SetIO(val)
		}

	case OpSDMAM:
		c.sdmam(d)

	case OpSDMAON:
		c.sdmaon()
	}
}

// sdmam resolves the operand as a logical address and, when the caller is in
// User mode, relocates and limit-checks it through the MMU before handing a
// physical address to the controller — the DMA only ever sees physical
// addresses.
func (c *CPU) sdmam(d Decoded) {
	val, ok := c.resolveOperand(d)
	if !ok {
		return
	}

	phys := val

	if c.Ctx.PSW.Mode == ModeUser {
		var translated bool

		phys, translated = c.translate(val)
		if !translated {
			c.raise(intrcode.InvAddr)
			return
		}
	}

	c.dma.SetAddress(phys)
}

// sdmaon starts the configured transfer. A busy controller is cooperative
// back-pressure: the instruction is retried by re-executing it on the next
// tick, which is achieved by rewinding PC by one. Any other rejection (an
// out-of-range address or disk geometry) is a parameter fault the controller
// has already recorded as a failed STATE; it is surfaced to the program by
// raising IO_END, which handleInterrupt treats as fatal whenever STATE
// reports failure, same as an asynchronous transfer failure would.
func (c *CPU) sdmaon() {
	userOrigin := c.Ctx.PSW.Mode == ModeUser

	err := c.dma.Start(userOrigin)
	if err == nil {
		return
	}

	if isBusy(err) {
		c.Ctx.PSW.PC--
		return
	}

	c.log.Warn("cpu: SDMAON rejected", "err", err)
	c.raise(intrcode.IOEnd)
}
