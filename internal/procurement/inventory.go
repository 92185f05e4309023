package procurement

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// AddInventoryItemInput describes a new stocked material.
type AddInventoryItemInput struct {
	Name         string          `json:"name" validate:"required"`
	Category     string          `json:"category" validate:"required"`
	CurrentStock int             `json:"currentStock" validate:"gte=0"`
	MinimumStock int             `json:"minimumStock" validate:"gte=0"`
	Unit         string          `json:"unit"`
	UnitCost     decimal.Decimal `json:"unitCost"`
	Location     string          `json:"location"`
}

// InventoryPatch edits fields directly; nil fields are left unchanged.
type InventoryPatch struct {
	Name         *string          `json:"name"`
	Category     *string          `json:"category"`
	CurrentStock *int             `json:"currentStock"`
	MinimumStock *int             `json:"minimumStock"`
	Unit         *string          `json:"unit"`
	UnitCost     *decimal.Decimal `json:"unitCost"`
	Location     *string          `json:"location"`
}

// AddInventoryItem records a stocked material with its derived status.
func (s *Store) AddInventoryItem(input AddInventoryItemInput) (InventoryItem, error) {
	input.Name = strings.TrimSpace(input.Name)
	input.Category = strings.TrimSpace(input.Category)
	input.Unit = strings.TrimSpace(input.Unit)
	input.Location = strings.TrimSpace(input.Location)
	verr := validateStruct(EntityInventory, input)
	requireNonNegative(verr, "unitCost", input.UnitCost)
	if err := verr.orNil(); err != nil {
		return InventoryItem{}, err
	}
	today := s.today()
	return s.inventory.insert(s.nextID(KindInventory), func(id string) InventoryItem {
		return InventoryItem{
			ID:           id,
			Name:         input.Name,
			Category:     input.Category,
			CurrentStock: input.CurrentStock,
			MinimumStock: input.MinimumStock,
			Unit:         input.Unit,
			UnitCost:     input.UnitCost,
			Location:     input.Location,
			LastUpdated:  today,
		}.withDerivedStatus()
	}), nil
}

// AdjustStock adds delta to the current stock. A result below zero is refused.
func (s *Store) AdjustStock(id string, delta int) (InventoryItem, error) {
	today := s.today()
	return s.inventory.update(id, func(item InventoryItem) (InventoryItem, error) {
		next := item.CurrentStock + delta
		if next < 0 {
			return item, &ConstraintViolationError{
				Entity:     EntityInventory,
				ID:         item.ID,
				Constraint: "non_negative_stock",
				Detail:     fmt.Sprintf("adjusting %d by %d would leave %d %s", item.CurrentStock, delta, next, item.Unit),
			}
		}
		item.CurrentStock = next
		item.LastUpdated = today
		return item.withDerivedStatus(), nil
	})
}

// UpdateInventoryItem applies direct field edits. Status goes through the same
// derivation as AdjustStock.
func (s *Store) UpdateInventoryItem(id string, patch InventoryPatch) (InventoryItem, error) {
	if _, err := s.inventory.get(id); err != nil {
		return InventoryItem{}, err
	}
	verr := &ValidationError{Entity: EntityInventory}
	if patch.Name != nil && strings.TrimSpace(*patch.Name) == "" {
		verr.add("name", "is required")
	}
	if patch.Category != nil && strings.TrimSpace(*patch.Category) == "" {
		verr.add("category", "is required")
	}
	if patch.CurrentStock != nil && *patch.CurrentStock < 0 {
		verr.add("currentStock", "must be at least 0")
	}
	if patch.MinimumStock != nil && *patch.MinimumStock < 0 {
		verr.add("minimumStock", "must be at least 0")
	}
	if patch.UnitCost != nil {
		requireNonNegative(verr, "unitCost", *patch.UnitCost)
	}
	if err := verr.orNil(); err != nil {
		return InventoryItem{}, err
	}
	today := s.today()
	return s.inventory.update(id, func(item InventoryItem) (InventoryItem, error) {
		if patch.Name != nil {
			item.Name = strings.TrimSpace(*patch.Name)
		}
		if patch.Category != nil {
			item.Category = strings.TrimSpace(*patch.Category)
		}
		if patch.CurrentStock != nil {
			item.CurrentStock = *patch.CurrentStock
		}
		if patch.MinimumStock != nil {
			item.MinimumStock = *patch.MinimumStock
		}
		if patch.Unit != nil {
			item.Unit = strings.TrimSpace(*patch.Unit)
		}
		if patch.UnitCost != nil {
			item.UnitCost = *patch.UnitCost
		}
		if patch.Location != nil {
			item.Location = strings.TrimSpace(*patch.Location)
		}
		item.LastUpdated = today
		return item.withDerivedStatus(), nil
	})
}

// GetInventoryItem returns an inventory item by id.
func (s *Store) GetInventoryItem(id string) (InventoryItem, error) {
	return s.inventory.get(id)
}

// ListInventory returns items in creation order, optionally filtered by status.
func (s *Store) ListInventory(status StockStatus) []InventoryItem {
	return s.inventory.list(func(item InventoryItem) bool {
		return status == "" || item.Status == status
	})
}

// SearchInventory matches term against name or category, ignoring case.
func (s *Store) SearchInventory(term string) []InventoryItem {
	term = strings.ToLower(strings.TrimSpace(term))
	return s.inventory.list(func(item InventoryItem) bool {
		return term == "" ||
			strings.Contains(strings.ToLower(item.Name), term) ||
			strings.Contains(strings.ToLower(item.Category), term)
	})
}

// LowStockItems returns items at or below their minimum, including those out of stock.
func (s *Store) LowStockItems() []InventoryItem {
	return s.inventory.list(func(item InventoryItem) bool {
		return item.Status != StockStatusInStock
	})
}

// InventoryValue sums currentStock times unitCost over all items.
func (s *Store) InventoryValue() decimal.Decimal {
	total := decimal.Zero
	for _, item := range s.inventory.list(nil) {
		total = total.Add(item.UnitCost.Mul(decimal.NewFromInt(int64(item.CurrentStock))))
	}
	return total
}
