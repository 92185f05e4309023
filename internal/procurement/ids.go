package procurement

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
)

// Kind is the identifier prefix of an entity collection.
type Kind string

const (
	KindMRF           Kind = "MRF"
	KindQuotation     Kind = "QUO"
	KindPurchaseOrder Kind = "PO"
	KindDelivery      Kind = "DEL"
	KindInventory     Kind = "INV"
)

// IsValid checks if the kind is one of the known prefixes.
func (k Kind) IsValid() bool {
	switch k {
	case KindMRF, KindQuotation, KindPurchaseOrder, KindDelivery, KindInventory:
		return true
	default:
		return false
	}
}

// IDGenerator hands out identifiers from one monotonic counter per kind.
type IDGenerator struct {
	mu       sync.Mutex
	counters map[Kind]uint64
}

// NewIDGenerator constructs a generator with all counters at zero.
func NewIDGenerator() *IDGenerator {
	return &IDGenerator{counters: make(map[Kind]uint64)}
}

// Next returns the next identifier for kind, e.g. MRF-000042.
func (g *IDGenerator) Next(kind Kind) string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.counters[kind]++
	return fmt.Sprintf("%s-%06d", kind, g.counters[kind])
}

// Observe moves the counter of the id's kind past the id's sequence so restored
// or seeded identifiers are never issued again. Identifiers without a numeric
// suffix are ignored.
func (g *IDGenerator) Observe(id string) {
	prefix, suffix, ok := strings.Cut(id, "-")
	if !ok {
		return
	}
	kind := Kind(prefix)
	if !kind.IsValid() {
		return
	}
	seq, err := strconv.ParseUint(suffix, 10, 64)
	if err != nil {
		return
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if seq > g.counters[kind] {
		g.counters[kind] = seq
	}
}
