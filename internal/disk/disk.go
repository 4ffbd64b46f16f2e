// Package disk implements the block device backing DMA transfers: a
// three-dimensional grid of fixed-size sectors, addressed by (track,
// cylinder, sector), each holding a 9-byte buffer.
package disk

import (
	"errors"
	"fmt"
	"sync"

	"github.com/ucv-so/minikernel/internal/log"
)

// Geometry of the disk.
const (
	Tracks     = 10
	Cylinders  = 10
	Sectors    = 100
	SectorSize = 9 // 8 ASCII digits plus a terminating null.
)

// ErrOutOfRange is returned when a (track, cylinder, sector) address is
// invalid.
var ErrOutOfRange = errors.New("disk: address out of range")

// Sector is the fixed-size buffer stored at a disk address.
type Sector [SectorSize]byte

// Disk is the block device. All mutation happens under its own mutex,
// independent of the bus lock — a worker never holds the bus while doing
// disk I/O.
type Disk struct {
	mu      sync.Mutex
	sectors [Tracks][Cylinders][Sectors]Sector
	log     *log.Logger
}

// New creates an empty disk.
func New(logger *log.Logger) *Disk {
	return &Disk{log: logger}
}

func valid(track, cylinder, sector int) error {
	if track < 0 || track >= Tracks ||
		cylinder < 0 || cylinder >= Cylinders ||
		sector < 0 || sector >= Sectors {
		return fmt.Errorf("%w: track=%d cylinder=%d sector=%d", ErrOutOfRange, track, cylinder, sector)
	}

	return nil
}

// ReadSector returns a copy of the contents of a sector.
func (d *Disk) ReadSector(track, cylinder, sector int) (Sector, error) {
	if err := valid(track, cylinder, sector); err != nil {
		return Sector{}, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	buf := d.sectors[track][cylinder][sector]

	d.log.Debug("disk: read", "track", track, "cylinder", cylinder, "sector", sector, "data", string(buf[:]))

	return buf, nil
}

// WriteSector overwrites the contents of a sector.
func (d *Disk) WriteSector(track, cylinder, sector int, buf Sector) error {
	if err := valid(track, cylinder, sector); err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	d.sectors[track][cylinder][sector] = buf

	d.log.Debug("disk: write", "track", track, "cylinder", cylinder, "sector", sector, "data", string(buf[:]))

	return nil
}
