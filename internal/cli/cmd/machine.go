package cmd

import (
	"github.com/ucv-so/minikernel/internal/bus"
	"github.com/ucv-so/minikernel/internal/cpu"
	"github.com/ucv-so/minikernel/internal/disk"
	"github.com/ucv-so/minikernel/internal/dma"
	"github.com/ucv-so/minikernel/internal/latch"
	"github.com/ucv-so/minikernel/internal/loader"
	"github.com/ucv-so/minikernel/internal/log"
	"github.com/ucv-so/minikernel/internal/mem"
)

// machine bundles the wired components every command needs: bus, disk, DMA
// controller, CPU and loader, all sharing one physical memory and one
// pending-interrupt latch.
type machine struct {
	bus    *bus.Bus
	disk   *disk.Disk
	dma    *dma.Controller
	cpu    *cpu.CPU
	loader *loader.Loader
}

// newMachine assembles a fresh machine and bootstraps the interrupt vector.
func newMachine(logger *log.Logger) (*machine, error) {
	b := bus.New(mem.New(), logger)
	d := disk.New(logger)

	var intr latch.Latch

	dc := dma.New(b, d, &intr, logger)
	c := cpu.New(b, dc, &intr, logger)
	ld := loader.New(b, logger)

	if err := cpu.BootstrapVector(b, cpu.DefaultStub); err != nil {
		return nil, err
	}

	return &machine{bus: b, disk: d, dma: dc, cpu: c, loader: ld}, nil
}
