package disk_test

import (
	"testing"

	"github.com/ucv-so/minikernel/internal/disk"
	"github.com/ucv-so/minikernel/internal/log"
)

func TestWriteThenReadRoundTrips(t *testing.T) {
	d := disk.New(log.DefaultLogger())

	var buf disk.Sector
	copy(buf[:], "12345678\x00")

	if err := d.WriteSector(2, 3, 4, buf); err != nil {
		t.Fatalf("WriteSector: %v", err)
	}

	got, err := d.ReadSector(2, 3, 4)
	if err != nil {
		t.Fatalf("ReadSector: %v", err)
	}

	if got != buf {
		t.Errorf("ReadSector = %q, want %q", got, buf)
	}
}

func TestOutOfRangeAddressesError(t *testing.T) {
	d := disk.New(log.DefaultLogger())

	cases := []struct{ track, cyl, sec int }{
		{-1, 0, 0},
		{disk.Tracks, 0, 0},
		{0, -1, 0},
		{0, disk.Cylinders, 0},
		{0, 0, -1},
		{0, 0, disk.Sectors},
	}

	for _, c := range cases {
		if _, err := d.ReadSector(c.track, c.cyl, c.sec); err == nil {
			t.Errorf("ReadSector(%d,%d,%d): expected error", c.track, c.cyl, c.sec)
		}

		if err := d.WriteSector(c.track, c.cyl, c.sec, disk.Sector{}); err == nil {
			t.Errorf("WriteSector(%d,%d,%d): expected error", c.track, c.cyl, c.sec)
		}
	}
}
