package procurement

import (
	"fmt"
	"time"
)

// Snapshot is a serialisable copy of every collection in insertion order.
type Snapshot struct {
	TakenAt        time.Time         `json:"takenAt"`
	MRFs           []MaterialRequest `json:"mrfs"`
	Quotations     []Quotation       `json:"quotations"`
	PurchaseOrders []PurchaseOrder   `json:"purchaseOrders"`
	Deliveries     []Delivery        `json:"deliveries"`
	Inventory      []InventoryItem   `json:"inventory"`
}

// Snapshot copies all collections. Each collection is read under its own lock.
func (s *Store) Snapshot() Snapshot {
	return Snapshot{
		TakenAt:        s.now().UTC(),
		MRFs:           s.mrfs.list(nil),
		Quotations:     s.quotations.list(nil),
		PurchaseOrders: s.orders.list(nil),
		Deliveries:     s.deliveries.list(nil),
		Inventory:      s.inventory.list(nil),
	}
}

// Restore replaces the store contents with snap. Statuses are checked and
// inventory status is derived again; identifier counters skip past restored ids.
func (s *Store) Restore(snap Snapshot) error {
	verr := &ValidationError{Entity: "snapshot"}
	mrfIDs, mrfs := index(verr, "mrfs", snap.MRFs, func(m MaterialRequest) (string, bool) {
		return m.ID, m.Status.IsValid()
	})
	quoIDs, quotations := index(verr, "quotations", snap.Quotations, func(q Quotation) (string, bool) {
		return q.ID, q.Status.IsValid()
	})
	poIDs, orders := index(verr, "purchaseOrders", snap.PurchaseOrders, func(po PurchaseOrder) (string, bool) {
		return po.ID, po.Status.IsValid() && po.PaymentTerms.IsValid()
	})
	delIDs, deliveries := index(verr, "deliveries", snap.Deliveries, func(d Delivery) (string, bool) {
		return d.ID, d.Status.IsValid()
	})
	invIDs, inventory := index(verr, "inventory", snap.Inventory, func(item InventoryItem) (string, bool) {
		return item.ID, item.CurrentStock >= 0 && item.MinimumStock >= 0
	})
	if err := verr.orNil(); err != nil {
		return err
	}
	for id, item := range inventory {
		inventory[id] = item.withDerivedStatus()
	}

	s.mrfs.replace(mrfIDs, mrfs)
	s.quotations.replace(quoIDs, quotations)
	s.orders.replace(poIDs, orders)
	s.deliveries.replace(delIDs, deliveries)
	s.inventory.replace(invIDs, inventory)

	for _, ids := range [][]string{mrfIDs, quoIDs, poIDs, delIDs, invIDs} {
		for _, id := range ids {
			s.ids.Observe(id)
		}
	}
	return nil
}

func index[T record[T]](verr *ValidationError, field string, items []T, check func(T) (string, bool)) ([]string, map[string]T) {
	ids := make([]string, 0, len(items))
	byID := make(map[string]T, len(items))
	for i, item := range items {
		id, ok := check(item)
		switch {
		case id == "":
			verr.add(fmt.Sprintf("%s[%d].id", field, i), "is required")
		case !ok:
			verr.add(fmt.Sprintf("%s[%d]", field, i), "has an invalid status or value")
		default:
			if _, dup := byID[id]; dup {
				verr.add(fmt.Sprintf("%s[%d].id", field, i), fmt.Sprintf("duplicates %q", id))
				continue
			}
			ids = append(ids, id)
			byID[id] = item.clone()
		}
	}
	return ids, byID
}
