package procurement

import (
	"slices"
	"strings"

	"github.com/shopspring/decimal"
)

// CreateQuotationRequestInput describes a request for quotation sent to a supplier.
type CreateQuotationRequestInput struct {
	MRFID         string   `json:"mrfId"`
	SupplierName  string   `json:"supplierName" validate:"required"`
	SupplierEmail string   `json:"supplierEmail" validate:"required,email"`
	Subject       string   `json:"subject"`
	Message       string   `json:"message" validate:"required"`
	Items         []string `json:"items"`
}

func (in *CreateQuotationRequestInput) normalize() {
	in.MRFID = strings.TrimSpace(in.MRFID)
	in.SupplierName = strings.TrimSpace(in.SupplierName)
	in.SupplierEmail = strings.TrimSpace(in.SupplierEmail)
	in.Subject = strings.TrimSpace(in.Subject)
	in.Message = strings.TrimSpace(in.Message)
	in.Items = trimAll(in.Items)
}

// ReceiveQuotationInput carries the supplier's response.
type ReceiveQuotationInput struct {
	TotalAmount decimal.Decimal `json:"totalAmount"`
	ValidUntil  *Date           `json:"validUntil" validate:"required"`
	Items       []string        `json:"items"`
}

// CreateQuotationRequest records a pending quotation. The amount stays zero
// and validUntil empty until the supplier responds.
func (s *Store) CreateQuotationRequest(input CreateQuotationRequestInput) (Quotation, error) {
	input.normalize()
	if err := validateStruct(EntityQuotation, input).orNil(); err != nil {
		return Quotation{}, err
	}
	if input.MRFID != "" {
		if _, err := s.mrfs.get(input.MRFID); err != nil {
			return Quotation{}, err
		}
	}
	today := s.today()
	return s.quotations.insert(s.nextID(KindQuotation), func(id string) Quotation {
		return Quotation{
			ID:            id,
			MRFID:         input.MRFID,
			SupplierName:  input.SupplierName,
			SupplierEmail: input.SupplierEmail,
			Items:         slices.Clone(input.Items),
			TotalAmount:   decimal.Zero,
			RequestDate:   today,
			Status:        QuotationStatusPending,
		}
	}), nil
}

// ReceiveQuotation records the supplier's amount and validity.
func (s *Store) ReceiveQuotation(id string, input ReceiveQuotationInput) (Quotation, error) {
	if _, err := s.quotations.get(id); err != nil {
		return Quotation{}, err
	}
	input.Items = trimAll(input.Items)
	verr := validateStruct(EntityQuotation, input)
	requirePositive(verr, "totalAmount", input.TotalAmount)
	if err := verr.orNil(); err != nil {
		return Quotation{}, err
	}
	today := s.today()
	return s.quotations.update(id, func(q Quotation) (Quotation, error) {
		if !q.Status.CanTransitionTo(QuotationStatusReceived) {
			return q, transitionError(EntityQuotation, q.ID, q.Status, QuotationStatusReceived)
		}
		q.TotalAmount = input.TotalAmount
		q.ValidUntil = datePtr(*input.ValidUntil)
		q.ResponseDate = datePtr(today)
		if len(input.Items) > 0 {
			q.Items = slices.Clone(input.Items)
		}
		q.Status = QuotationStatusReceived
		return q, nil
	})
}

// ApproveQuotation accepts a received quotation.
func (s *Store) ApproveQuotation(id string) (Quotation, error) {
	return s.transitionQuotation(id, QuotationStatusApproved)
}

// RejectQuotation declines a received quotation.
func (s *Store) RejectQuotation(id string) (Quotation, error) {
	return s.transitionQuotation(id, QuotationStatusRejected)
}

func (s *Store) transitionQuotation(id string, to QuotationStatus) (Quotation, error) {
	return s.quotations.update(id, func(q Quotation) (Quotation, error) {
		if !q.Status.CanTransitionTo(to) {
			return q, transitionError(EntityQuotation, q.ID, q.Status, to)
		}
		q.Status = to
		return q, nil
	})
}

// GetQuotation returns a quotation by id.
func (s *Store) GetQuotation(id string) (Quotation, error) {
	return s.quotations.get(id)
}

// ListQuotations returns quotations in creation order, optionally filtered by status.
func (s *Store) ListQuotations(status QuotationStatus) []Quotation {
	return s.quotations.list(func(q Quotation) bool {
		return status == "" || q.Status == status
	})
}
