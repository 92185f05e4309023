package procurement

import (
	"strings"

	"github.com/shopspring/decimal"
)

// CreatePurchaseOrderInput describes a purchase order.
type CreatePurchaseOrderInput struct {
	QuotationID      string          `json:"quotationId"`
	SupplierName     string          `json:"supplierName" validate:"required"`
	TotalAmount      decimal.Decimal `json:"totalAmount"`
	PaymentTerms     PaymentTerms    `json:"paymentTerms" validate:"omitempty,enum"`
	ExpectedDelivery *Date           `json:"expectedDelivery" validate:"required"`
	Draft            bool            `json:"draft"`
}

// FromQuotationInput holds the fields a quotation does not supply.
type FromQuotationInput struct {
	PaymentTerms     PaymentTerms `json:"paymentTerms" validate:"omitempty,enum"`
	ExpectedDelivery *Date        `json:"expectedDelivery" validate:"required"`
	Draft            bool         `json:"draft"`
}

// CreatePurchaseOrder records an order and fixes its signatory from the amount.
// The amount and signatory cannot change afterwards.
func (s *Store) CreatePurchaseOrder(input CreatePurchaseOrderInput) (PurchaseOrder, error) {
	input.QuotationID = strings.TrimSpace(input.QuotationID)
	input.SupplierName = strings.TrimSpace(input.SupplierName)
	if input.PaymentTerms == "" {
		input.PaymentTerms = PaymentTermsPDC
	}
	verr := validateStruct(EntityPurchaseOrder, input)
	requirePositive(verr, "totalAmount", input.TotalAmount)
	if err := verr.orNil(); err != nil {
		return PurchaseOrder{}, err
	}
	if input.QuotationID != "" {
		if _, err := s.quotations.get(input.QuotationID); err != nil {
			return PurchaseOrder{}, err
		}
	}
	return s.insertPurchaseOrder(input)
}

// CreatePurchaseOrderFromQuotation converts an approved quotation into an order.
func (s *Store) CreatePurchaseOrderFromQuotation(quotationID string, input FromQuotationInput) (PurchaseOrder, error) {
	q, err := s.quotations.get(quotationID)
	if err != nil {
		return PurchaseOrder{}, err
	}
	if err := validateStruct(EntityPurchaseOrder, input).orNil(); err != nil {
		return PurchaseOrder{}, err
	}
	if q.Status != QuotationStatusApproved {
		return PurchaseOrder{}, &ConstraintViolationError{
			Entity:     EntityQuotation,
			ID:         q.ID,
			Constraint: "approved_quotation",
			Detail:     "only approved quotations can be converted, current status is " + string(q.Status),
		}
	}
	terms := input.PaymentTerms
	if terms == "" {
		terms = PaymentTermsPDC
	}
	return s.insertPurchaseOrder(CreatePurchaseOrderInput{
		QuotationID:      q.ID,
		SupplierName:     q.SupplierName,
		TotalAmount:      q.TotalAmount,
		PaymentTerms:     terms,
		ExpectedDelivery: input.ExpectedDelivery,
		Draft:            input.Draft,
	})
}

func (s *Store) insertPurchaseOrder(input CreatePurchaseOrderInput) (PurchaseOrder, error) {
	routing, err := Route(input.TotalAmount)
	if err != nil {
		return PurchaseOrder{}, err
	}
	status := POStatusPendingApproval
	if input.Draft {
		status = POStatusDraft
	}
	today := s.today()
	return s.orders.insert(s.nextID(KindPurchaseOrder), func(id string) PurchaseOrder {
		return PurchaseOrder{
			ID:               id,
			QuotationID:      input.QuotationID,
			SupplierName:     input.SupplierName,
			TotalAmount:      input.TotalAmount,
			PaymentTerms:     input.PaymentTerms,
			Signatory:        routing.Signatory,
			ApprovalWindow:   routing.ExpectedApprovalWindow,
			CreatedDate:      today,
			ExpectedDelivery: *input.ExpectedDelivery,
			Status:           status,
		}
	}), nil
}

// SubmitPurchaseOrder sends a draft for approval.
func (s *Store) SubmitPurchaseOrder(id string) (PurchaseOrder, error) {
	return s.transitionPurchaseOrder(id, POStatusPendingApproval, nil)
}

// ApprovePurchaseOrder approves an order pending approval and stamps the approval date.
func (s *Store) ApprovePurchaseOrder(id string) (PurchaseOrder, error) {
	today := s.today()
	return s.transitionPurchaseOrder(id, POStatusApproved, func(po *PurchaseOrder) {
		po.ApprovalDate = datePtr(today)
	})
}

// SendPurchaseOrder marks an approved order as sent to the supplier.
func (s *Store) SendPurchaseOrder(id string) (PurchaseOrder, error) {
	today := s.today()
	return s.transitionPurchaseOrder(id, POStatusSent, func(po *PurchaseOrder) {
		po.SentDate = datePtr(today)
	})
}

// AcknowledgePurchaseOrder records the supplier's acknowledgement.
func (s *Store) AcknowledgePurchaseOrder(id string) (PurchaseOrder, error) {
	return s.transitionPurchaseOrder(id, POStatusAcknowledged, nil)
}

func (s *Store) transitionPurchaseOrder(id string, to POStatus, apply func(*PurchaseOrder)) (PurchaseOrder, error) {
	return s.orders.update(id, func(po PurchaseOrder) (PurchaseOrder, error) {
		if !po.Status.CanTransitionTo(to) {
			return po, transitionError(EntityPurchaseOrder, po.ID, po.Status, to)
		}
		if apply != nil {
			apply(&po)
		}
		po.Status = to
		return po, nil
	})
}

// GetPurchaseOrder returns a purchase order by id.
func (s *Store) GetPurchaseOrder(id string) (PurchaseOrder, error) {
	return s.orders.get(id)
}

// ListPurchaseOrders returns orders in creation order, optionally filtered by status.
func (s *Store) ListPurchaseOrders(status POStatus) []PurchaseOrder {
	return s.orders.list(func(po PurchaseOrder) bool {
		return status == "" || po.Status == status
	})
}
