// Package bus implements the shared memory arbiter: a single mutual
// exclusion lock serializing all physical memory traffic from the CPU and
// the DMA controller.
package bus

import (
	"sync"

	"github.com/ucv-so/minikernel/internal/log"
	"github.com/ucv-so/minikernel/internal/mem"
)

// Client identifies who issued a bus transaction, for observability only —
// it has no bearing on arbitration order.
type Client int

const (
	ClientCPU Client = iota
	ClientDMA
	ClientLoader
)

func (c Client) String() string {
	switch c {
	case ClientCPU:
		return "CPU"
	case ClientDMA:
		return "DMA"
	case ClientLoader:
		return "LOADER"
	default:
		return "UNKNOWN"
	}
}

// Bus arbitrates access to physical memory. Exactly one client holds the
// lock at a time; no client holds it across disk I/O.
type Bus struct {
	mu  sync.Mutex
	mem *mem.Memory
	log *log.Logger

	lastClient Client
}

// New creates a bus wrapping the given physical memory.
func New(m *mem.Memory, logger *log.Logger) *Bus {
	return &Bus{mem: m, log: logger}
}

// Read performs an arbitrated physical read.
func (b *Bus) Read(addr int, client Client) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.lastClient = client

	v, err := b.mem.Read(addr)
	if err != nil {
		b.log.Error("bus: read failed", "client", client, "addr", addr, "err", err)
		return 0, err
	}

	b.log.Debug("bus: read", "client", client, "addr", addr, "value", v)

	return v, nil
}

// Write performs an arbitrated physical write.
func (b *Bus) Write(addr, value int, client Client) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.lastClient = client

	if err := b.mem.Write(addr, value); err != nil {
		b.log.Error("bus: write failed", "client", client, "addr", addr, "err", err)
		return err
	}

	b.log.Debug("bus: write", "client", client, "addr", addr, "value", value)

	return nil
}

// LastClient returns the client that performed the most recent transaction.
// It exists for debugging and tests only.
func (b *Bus) LastClient() Client {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.lastClient
}
