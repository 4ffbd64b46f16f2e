package dma_test

import (
	"context"
	"testing"
	"time"

	"github.com/ucv-so/minikernel/internal/bus"
	"github.com/ucv-so/minikernel/internal/disk"
	"github.com/ucv-so/minikernel/internal/dma"
	"github.com/ucv-so/minikernel/internal/intrcode"
	"github.com/ucv-so/minikernel/internal/log"
	"github.com/ucv-so/minikernel/internal/mem"
)

type fakeSink struct {
	codes chan int
}

func newFakeSink() *fakeSink {
	return &fakeSink{codes: make(chan int, 8)}
}

func (s *fakeSink) Raise(code int) {
	s.codes <- code
}

func newTestController(t *testing.T) (*dma.Controller, *fakeSink) {
	t.Helper()

	logger := log.DefaultLogger()
	b := bus.New(mem.New(), logger)
	d := disk.New(logger)
	sink := newFakeSink()

	return dma.New(b, d, sink, logger), sink
}

func waitForInterrupt(t *testing.T, sink *fakeSink) int {
	t.Helper()

	select {
	case code := <-sink.codes:
		return code
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for interrupt")
		return -1
	}
}

func TestMemToDiskRoundTripsThroughDiskToMem(t *testing.T) {
	logger := log.DefaultLogger()
	b := bus.New(mem.New(), logger)
	d := disk.New(logger)
	sink := newFakeSink()
	c := dma.New(b, d, sink, logger)

	if err := b.Write(500, 1234, bus.ClientCPU); err != nil {
		t.Fatalf("seed write: %v", err)
	}

	c.SetTrack(1)
	c.SetCylinder(2)
	c.SetSector(3)
	c.SetIO(dma.IODirMemToDisk)
	c.SetAddress(500)

	if err := c.Start(false); err != nil {
		t.Fatalf("Start: %v", err)
	}

	if code := waitForInterrupt(t, sink); code != intrcode.IOEnd {
		t.Fatalf("interrupt code = %d, want IO_END", code)
	}

	if c.State() != 0 {
		t.Fatalf("State = %d, want 0 (success)", c.State())
	}

	c.SetAddress(600)
	c.SetIO(dma.IODirDiskToMem)

	if err := c.Start(false); err != nil {
		t.Fatalf("Start: %v", err)
	}

	waitForInterrupt(t, sink)

	got, err := b.Read(600, bus.ClientCPU)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}

	if got != 1234 {
		t.Errorf("round-tripped word = %d, want 1234", got)
	}
}

func TestStartReturnsBusyWhileTransferInFlight(t *testing.T) {
	c, sink := newTestController(t)

	c.SetAddress(10)

	if err := c.Start(false); err != nil {
		t.Fatalf("Start: %v", err)
	}

	if err := c.Start(false); err != dma.ErrBusy {
		t.Fatalf("second Start = %v, want ErrBusy", err)
	}

	waitForInterrupt(t, sink)
}

func TestStartValidatesUserOriginAddress(t *testing.T) {
	c, _ := newTestController(t)

	c.SetAddress(50) // below mem.UserBase

	if err := c.Start(true); err == nil {
		t.Fatal("Start: expected error for user-origin address below user segment")
	}

	if c.IsBusy() {
		t.Error("IsBusy: expected false after validation failure")
	}

	if c.State() != 1 {
		t.Errorf("State = %d, want 1 after validation failure", c.State())
	}
}

func TestStartValidatesDiskGeometry(t *testing.T) {
	c, _ := newTestController(t)

	c.SetAddress(500)
	c.SetTrack(disk.Tracks)

	if err := c.Start(false); err == nil {
		t.Fatal("Start: expected error for out-of-range track")
	}
}

func TestShutdownWaitsForOutstandingWorker(t *testing.T) {
	c, sink := newTestController(t)

	c.SetAddress(10)

	if err := c.Start(false); err != nil {
		t.Fatalf("Start: %v", err)
	}

	waitForInterrupt(t, sink)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if err := c.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
}
