package procurement

import (
	"sync"
	"time"
)

type record[T any] interface {
	clone() T
}

// collection keeps one entity kind in insertion order. Every method takes the
// collection lock, so a single operation is applied entirely or not at all.
type collection[T record[T]] struct {
	mu     sync.RWMutex
	entity string
	order  []string
	items  map[string]T
}

func newCollection[T record[T]](entity string) *collection[T] {
	return &collection[T]{entity: entity, items: make(map[string]T)}
}

func (c *collection[T]) notFound(id string) error {
	return &NotFoundError{Entity: c.entity, ID: id}
}

func (c *collection[T]) get(id string) (T, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	item, ok := c.items[id]
	if !ok {
		var zero T
		return zero, c.notFound(id)
	}
	return item.clone(), nil
}

// list returns clones in insertion order, keeping those accepted by keep.
func (c *collection[T]) list(keep func(T) bool) []T {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]T, 0, len(c.order))
	for _, id := range c.order {
		item := c.items[id]
		if keep == nil || keep(item) {
			out = append(out, item.clone())
		}
	}
	return out
}

// insert builds the record with a fresh id while holding the write lock.
func (c *collection[T]) insert(newID func() string, build func(id string) T) T {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := newID()
	item := build(id)
	c.order = append(c.order, id)
	c.items[id] = item
	return item.clone()
}

// update replaces the record with the result of fn; on error nothing is written.
func (c *collection[T]) update(id string, fn func(T) (T, error)) (T, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	current, ok := c.items[id]
	if !ok {
		var zero T
		return zero, c.notFound(id)
	}
	next, err := fn(current.clone())
	if err != nil {
		var zero T
		return zero, err
	}
	c.items[id] = next
	return next.clone(), nil
}

// replace swaps the whole contents; used by Restore.
func (c *collection[T]) replace(ids []string, items map[string]T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.order = ids
	c.items = items
}

func (c *collection[T]) len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.order)
}

// Store owns the MRF, quotation, purchase order, delivery and inventory
// collections. All mutation goes through its methods.
type Store struct {
	ids *IDGenerator
	now func() time.Time

	mrfs       *collection[MaterialRequest]
	quotations *collection[Quotation]
	orders     *collection[PurchaseOrder]
	deliveries *collection[Delivery]
	inventory  *collection[InventoryItem]
}

// StoreOption customises a Store.
type StoreOption func(*Store)

// WithClock overrides the clock used for request, approval and delivery dates.
func WithClock(now func() time.Time) StoreOption {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// WithIDGenerator shares an identifier generator with the store.
func WithIDGenerator(ids *IDGenerator) StoreOption {
	return func(s *Store) {
		if ids != nil {
			s.ids = ids
		}
	}
}

// NewStore constructs an empty Store.
func NewStore(opts ...StoreOption) *Store {
	s := &Store{
		ids:        NewIDGenerator(),
		now:        time.Now,
		mrfs:       newCollection[MaterialRequest](EntityMRF),
		quotations: newCollection[Quotation](EntityQuotation),
		orders:     newCollection[PurchaseOrder](EntityPurchaseOrder),
		deliveries: newCollection[Delivery](EntityDelivery),
		inventory:  newCollection[InventoryItem](EntityInventory),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) today() Date {
	return NewDate(s.now())
}

func (s *Store) nextID(kind Kind) func() string {
	return func() string { return s.ids.Next(kind) }
}

// Counts summarises collection sizes.
type Counts struct {
	MRFs           int `json:"mrfs"`
	Quotations     int `json:"quotations"`
	PurchaseOrders int `json:"purchaseOrders"`
	Deliveries     int `json:"deliveries"`
	Inventory      int `json:"inventory"`
}

// Counts returns the number of records per collection.
func (s *Store) Counts() Counts {
	return Counts{
		MRFs:           s.mrfs.len(),
		Quotations:     s.quotations.len(),
		PurchaseOrders: s.orders.len(),
		Deliveries:     s.deliveries.len(),
		Inventory:      s.inventory.len(),
	}
}
