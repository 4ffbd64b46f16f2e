package cpu

import (
	"github.com/ucv-so/minikernel/internal/bus"
	"github.com/ucv-so/minikernel/internal/mem"
)

// DefaultStub is the physical address of the minimal RETRN stub that
// BootstrapVector points every vector slot at.
const DefaultStub = 20

// BootstrapVector fills the interrupt vector region [0, 30) with stubAddr
// and then writes a bare RETRN instruction at stubAddr, so any unvectored
// interrupt returns immediately instead of jumping into garbage. When
// stubAddr lies inside the vector region (as DefaultStub does), that one
// slot holds the RETRN instruction itself. Callers that install real
// handlers should overwrite the relevant vector slots afterwards.
func BootstrapVector(b *bus.Bus, stubAddr int) error {
	retrn := OpRETRN * 1_000_000

	for slot := mem.VectorBase; slot < mem.VectorEnd; slot++ {
		if err := b.Write(slot, stubAddr, bus.ClientLoader); err != nil {
			return err
		}
	}

	return b.Write(stubAddr, retrn, bus.ClientLoader)
}
