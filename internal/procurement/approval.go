package procurement

import "github.com/shopspring/decimal"

// Signatories and approval windows returned by Route.
const (
	SignatoryProjectSupport = "Project Support Officer"
	SignatoryFinanceAndMD   = "Finance Manager & Managing Director"

	WindowSameDay  = "same day"
	WindowOneToTwo = "1-2 days"
)

// DualApprovalThreshold is the smallest amount that needs finance and managing director sign-off.
var DualApprovalThreshold = decimal.NewFromInt(20000)

// Routing describes who approves a purchase order and how long it usually takes.
type Routing struct {
	Signatory              string `json:"signatory"`
	ExpectedApprovalWindow string `json:"expectedApprovalWindow"`
	DualApproval           bool   `json:"dualApproval"`
}

// Route selects the signatory for a purchase order amount.
func Route(amount decimal.Decimal) (Routing, error) {
	if amount.IsNegative() {
		verr := &ValidationError{Entity: EntityPurchaseOrder}
		verr.add("totalAmount", "must not be negative")
		return Routing{}, verr
	}
	if amount.LessThan(DualApprovalThreshold) {
		return Routing{Signatory: SignatoryProjectSupport, ExpectedApprovalWindow: WindowSameDay}, nil
	}
	return Routing{Signatory: SignatoryFinanceAndMD, ExpectedApprovalWindow: WindowOneToTwo, DualApproval: true}, nil
}
