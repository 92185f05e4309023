package procurement

import (
	"fmt"
	"strings"
)

// Stock check reasons and recommended actions.
const (
	ReasonNotInInventory = "Item not in inventory"
	ReasonSufficient     = "Sufficient stock available"
	ReasonOutOfStock     = "Out of stock"

	ActionAddToInventory   = "Add to inventory"
	ActionUseInventory     = "Use from inventory"
	ActionPurchaseShortage = "Purchase additional quantity"
	ActionPurchaseFull     = "Purchase full quantity"
)

// StockRequest is a requested material and quantity.
type StockRequest struct {
	Name     string `json:"name" validate:"required"`
	Quantity int    `json:"quantity" validate:"gte=1"`
	Unit     string `json:"unit"`
}

// Availability is the verdict of a stock check.
type Availability struct {
	Available         bool           `json:"available"`
	Reason            string         `json:"reason"`
	RecommendedAction string         `json:"recommendedAction"`
	Item              *InventoryItem `json:"item,omitempty"`
}

// CheckStock matches the request by name, ignoring case, and compares raw
// quantities. Units are not reconciled. The inventory slice is only read.
func CheckStock(req StockRequest, inventory []InventoryItem) Availability {
	name := strings.TrimSpace(req.Name)
	var match *InventoryItem
	for i := range inventory {
		if strings.EqualFold(strings.TrimSpace(inventory[i].Name), name) {
			item := inventory[i]
			match = &item
			break
		}
	}
	switch {
	case match == nil:
		return Availability{Reason: ReasonNotInInventory, RecommendedAction: ActionAddToInventory}
	case match.CurrentStock >= req.Quantity:
		return Availability{Available: true, Reason: ReasonSufficient, RecommendedAction: ActionUseInventory, Item: match}
	case match.CurrentStock > 0:
		return Availability{
			Reason:            fmt.Sprintf("Only %d %s available, need %d", match.CurrentStock, match.Unit, req.Quantity),
			RecommendedAction: ActionPurchaseShortage,
			Item:              match,
		}
	default:
		return Availability{Reason: ReasonOutOfStock, RecommendedAction: ActionPurchaseFull, Item: match}
	}
}

// LineAvailability pairs an MRF line with its stock verdict.
type LineAvailability struct {
	Line         int          `json:"line"`
	Item         LineItem     `json:"item"`
	Availability Availability `json:"availability"`
}
