// exec.go implements the fetch-decode-execute cycle.
package cpu

import (
	"context"
	"errors"
	"time"

	"github.com/ucv-so/minikernel/internal/bus"
	"github.com/ucv-so/minikernel/internal/intrcode"
	"github.com/ucv-so/minikernel/internal/log"
)

// quantum paces Run between instructions, emulating a clock tick.
const quantum = 2 * time.Millisecond

// errFetchFault signals the fetch stage already raised INV_ADDR into the
// latch; the caller ends the tick without executing.
var errFetchFault = errors.New("cpu: fetch fault")

// Run drives Step in a loop until it returns an error: a FatalError reports
// a fault the outer driver should surface; ctx cancellation stops the run
// cleanly.
func (c *CPU) Run(ctx context.Context) error {
	c.log.Info("cpu: start", log.Any("state", c))

	for {
		select {
		case <-ctx.Done():
			c.log.Warn("cpu: cancelled")
			return ctx.Err()
		default:
		}

		if err := c.Step(); err != nil {
			return err
		}

		time.Sleep(quantum)
	}
}

// Step runs a single tick: it services a deliverable interrupt, or else
// fetches, decodes and executes one instruction.
func (c *CPU) Step() error {
	if code, ok := c.deliverable(); ok {
		return c.handleInterrupt(code)
	}

	if err := c.fetch(); err != nil {
		return nil //nolint:nilerr // fault already raised into the latch; delivered next tick
	}

	d := decode(c.Ctx.IR)

	c.execute(d)

	c.log.Debug("cpu: executed", "op", Mnemonic(d.Opcode), "mode", d.Mode, "operand", d.Operand, log.Any("state", c))

	return nil
}

func (c *CPU) fetch() error {
	c.Ctx.MAR = c.Ctx.PSW.PC

	phys, ok := c.translate(c.Ctx.MAR)
	if !ok {
		c.raise(intrcode.InvAddr)
		return errFetchFault
	}

	v, err := c.bus.Read(phys, bus.ClientCPU)
	if err != nil {
		c.raise(intrcode.InvAddr)
		return errFetchFault
	}

	c.Ctx.MDR = v
	c.Ctx.IR = c.Ctx.MDR
	c.Ctx.PSW.PC++

	return nil
}
