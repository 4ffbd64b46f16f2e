// Package dma implements the DMA controller: a six-field register set and a
// worker goroutine that moves one word between physical memory and disk per
// transfer, running concurrently with the CPU.
//
// Grounded on the original dma.c/dma.h register set (TRACK, CYLINDER,
// SECTOR, IO, ADDRESS, STATE), extended with a BUSY flag so SDMAON can
// cooperatively back-pressure the CPU instead of blocking it.
package dma

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"

	"github.com/ucv-so/minikernel/internal/bus"
	"github.com/ucv-so/minikernel/internal/disk"
	"github.com/ucv-so/minikernel/internal/intrcode"
	"github.com/ucv-so/minikernel/internal/log"
	"github.com/ucv-so/minikernel/internal/mem"
)

// ErrBusy is returned by Start when a transfer is already in flight.
var ErrBusy = errors.New("dma: controller busy")

// ErrInvalidParams is returned by Start when the configured registers would
// address memory or disk out of range.
var ErrInvalidParams = errors.New("dma: invalid transfer parameters")

// InterruptSink is the one-method port the controller uses to report
// completion. *latch.Latch satisfies this without dma ever importing cpu or
// latch — inverting the dependency the original single-file design had.
type InterruptSink interface {
	Raise(code int)
}

// Direction of a transfer.
const (
	IODirMemToDisk = 0
	IODirDiskToMem = 1
)

// Controller is the DMA register set plus its worker lifecycle.
type Controller struct {
	mu sync.Mutex

	track, cylinder, sector int
	io                      int
	address                 int
	state                   int
	busy                    bool

	wg   sync.WaitGroup
	bus  *bus.Bus
	disk *disk.Disk
	sink InterruptSink
	log  *log.Logger
}

// New creates a DMA controller wired to the given bus, disk and interrupt
// sink. state is initialized to 1 ("no success yet, nothing attempted"),
// matching the original's init.
func New(b *bus.Bus, d *disk.Disk, sink InterruptSink, logger *log.Logger) *Controller {
	return &Controller{
		state: 1,
		bus:   b,
		disk:  d,
		sink:  sink,
		log:   logger,
	}
}

// SetTrack implements SDMAP.
func (c *Controller) SetTrack(v int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.track = v
	c.log.Debug("dma: set track", "track", v)
}

// SetCylinder implements SDMAC.
func (c *Controller) SetCylinder(v int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cylinder = v
	c.log.Debug("dma: set cylinder", "cylinder", v)
}

// SetSector implements SDMAS.
func (c *Controller) SetSector(v int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sector = v
	c.log.Debug("dma: set sector", "sector", v)
}

// SetIO implements SDMAIO. Any value is stored as given; a transfer started
// with a value other than IODirMemToDisk or IODirDiskToMem fails in the
// worker with STATE set to 1.
func (c *Controller) SetIO(v int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.io = v
	c.log.Debug("dma: set io", "io", v)
}

// SetAddress implements SDMAM. The caller has already relocated and
// limit-checked the address through the MMU when the origin is User mode, so
// ADDRESS always holds a physical address here.
func (c *Controller) SetAddress(v int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.address = v
	c.log.Debug("dma: set address", "address", v)
}

// IsBusy reports whether a transfer is in flight.
func (c *Controller) IsBusy() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.busy
}

// State returns the last/current transfer state: 0 success, 1 failure or
// in-progress.
func (c *Controller) State() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Start implements SDMAON: validates the configured registers and, if free,
// spawns a worker to perform the transfer. userOrigin is true when the
// instruction that triggered SDMAON was itself running in User mode, which
// additionally requires ADDRESS to fall in the User segment.
func (c *Controller) Start(userOrigin bool) error {
	c.mu.Lock()

	if c.busy {
		c.mu.Unlock()
		return ErrBusy
	}

	track, cylinder, sector, address := c.track, c.cylinder, c.sector, c.address

	if err := c.validate(track, cylinder, sector, address, userOrigin); err != nil {
		c.state = 1
		c.busy = false
		c.mu.Unlock()

		return err
	}

	c.busy = true
	c.state = 1 // in progress

	c.mu.Unlock()

	c.wg.Add(1)

	go c.transfer()

	return nil
}

func (c *Controller) validate(track, cylinder, sector, address int, userOrigin bool) error {
	if address < 0 || address >= mem.Size {
		return fmt.Errorf("%w: address %d out of physical range", ErrInvalidParams, address)
	}

	if userOrigin && address < mem.UserBase {
		return fmt.Errorf("%w: address %d below user segment", ErrInvalidParams, address)
	}

	if track < 0 || track >= disk.Tracks || cylinder < 0 || cylinder >= disk.Cylinders ||
		sector < 0 || sector >= disk.Sectors {
		return fmt.Errorf("%w: track=%d cylinder=%d sector=%d out of disk geometry", ErrInvalidParams, track, cylinder, sector)
	}

	return nil
}

// transfer runs in its own goroutine and always clears BUSY and raises
// IO_END on the way out, regardless of outcome.
func (c *Controller) transfer() {
	defer c.wg.Done()

	c.mu.Lock()
	track, cylinder, sector, address, direction := c.track, c.cylinder, c.sector, c.address, c.io
	c.mu.Unlock()

	var err error

	switch direction {
	case IODirMemToDisk:
		err = c.memToDisk(track, cylinder, sector, address)
	case IODirDiskToMem:
		err = c.diskToMem(track, cylinder, sector, address)
	default:
		err = fmt.Errorf("dma: invalid io direction %d", direction)
	}

	c.mu.Lock()

	if err != nil {
		c.log.Error("dma: transfer failed", "err", err)
		c.state = 1
	} else {
		c.state = 0
	}

	c.busy = false

	c.mu.Unlock()

	c.sink.Raise(intrcode.IOEnd)
}

func (c *Controller) memToDisk(track, cylinder, sector, address int) error {
	word, err := c.bus.Read(address, bus.ClientDMA)
	if err != nil {
		return err
	}

	var buf disk.Sector

	digits := fmt.Sprintf("%08d", word)
	copy(buf[:8], digits)
	buf[8] = 0

	return c.disk.WriteSector(track, cylinder, sector, buf)
}

func (c *Controller) diskToMem(track, cylinder, sector, address int) error {
	buf, err := c.disk.ReadSector(track, cylinder, sector)
	if err != nil {
		return err
	}

	word, err := strconv.Atoi(string(buf[:8]))
	if err != nil {
		return fmt.Errorf("dma: corrupt sector at (%d,%d,%d): %w", track, cylinder, sector, err)
	}

	return c.bus.Write(address, word, bus.ClientDMA)
}

// Shutdown blocks until any outstanding worker finishes, or ctx is done.
func (c *Controller) Shutdown(ctx context.Context) error {
	done := make(chan struct{})

	go func() {
		c.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
