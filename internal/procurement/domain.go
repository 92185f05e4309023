package procurement

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
	"time"

	"github.com/shopspring/decimal"
)

const dateLayout = "2006-01-02"

// Date is a calendar day. The zero value means unset and encodes as null.
type Date struct {
	time.Time
}

// NewDate truncates t to midnight in its own location.
func NewDate(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Time: time.Date(y, m, d, 0, 0, 0, 0, t.Location())}
}

// ParseDate accepts YYYY-MM-DD or RFC3339.
func ParseDate(value string) (Date, error) {
	if t, err := time.Parse(dateLayout, value); err == nil {
		return Date{Time: t}, nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return Date{}, fmt.Errorf("procurement: parse date %q: %w", value, err)
	}
	return NewDate(t), nil
}

// MustDate parses a YYYY-MM-DD literal and panics on failure.
func MustDate(value string) Date {
	d, err := ParseDate(value)
	if err != nil {
		panic(err)
	}
	return d
}

// String formats the date as YYYY-MM-DD.
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(dateLayout)
}

// MarshalJSON implements json.Marshaler.
func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.String())
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *Date) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		*d = Date{}
		return nil
	}
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw == "" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(raw)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func datePtr(d Date) *Date {
	return &d
}

func cloneDate(d *Date) *Date {
	if d == nil {
		return nil
	}
	return datePtr(*d)
}

// canTransition consults a transition table, the single place legal status moves are decided.
func canTransition[S ~string](table map[S][]S, from, to S) bool {
	return slices.Contains(table[from], to)
}

// Department of the requester.
type Department string

const (
	DepartmentConstruction   Department = "construction"
	DepartmentEngineering    Department = "engineering"
	DepartmentOperations     Department = "operations"
	DepartmentAdministration Department = "administration"
	DepartmentIT             Department = "it"
)

// IsValid checks if the department is known.
func (d Department) IsValid() bool {
	switch d {
	case DepartmentConstruction, DepartmentEngineering, DepartmentOperations, DepartmentAdministration, DepartmentIT:
		return true
	default:
		return false
	}
}

// Urgency of a requested line.
type Urgency string

const (
	UrgencyLow    Urgency = "low"
	UrgencyMedium Urgency = "medium"
	UrgencyHigh   Urgency = "high"
	UrgencyUrgent Urgency = "urgent"
)

// IsValid checks if the urgency is known.
func (u Urgency) IsValid() bool {
	switch u {
	case UrgencyLow, UrgencyMedium, UrgencyHigh, UrgencyUrgent:
		return true
	default:
		return false
	}
}

// MRFStatus tracks a material request through approval.
type MRFStatus string

const (
	MRFStatusDraft      MRFStatus = "draft"
	MRFStatusSubmitted  MRFStatus = "submitted"
	MRFStatusTMApproved MRFStatus = "tm-approved"
	MRFStatusPMApproved MRFStatus = "pm-approved"
	MRFStatusClosed     MRFStatus = "closed"
	MRFStatusCancelled  MRFStatus = "cancelled"
)

var mrfTransitions = map[MRFStatus][]MRFStatus{
	MRFStatusDraft:      {MRFStatusSubmitted, MRFStatusCancelled},
	MRFStatusSubmitted:  {MRFStatusTMApproved, MRFStatusCancelled},
	MRFStatusTMApproved: {MRFStatusPMApproved, MRFStatusCancelled},
	MRFStatusPMApproved: {MRFStatusClosed, MRFStatusCancelled},
}

// IsValid checks if the status is valid.
func (s MRFStatus) IsValid() bool {
	switch s {
	case MRFStatusDraft, MRFStatusSubmitted, MRFStatusTMApproved, MRFStatusPMApproved, MRFStatusClosed, MRFStatusCancelled:
		return true
	default:
		return false
	}
}

// CanTransitionTo reports whether next is reachable in one step.
func (s MRFStatus) CanTransitionTo(next MRFStatus) bool {
	return canTransition(mrfTransitions, s, next)
}

// LineItem is one requested material on an MRF.
type LineItem struct {
	Description string  `json:"description" validate:"required"`
	Quantity    int     `json:"quantity" validate:"gte=1"`
	Unit        string  `json:"unit"`
	Urgency     Urgency `json:"urgency" validate:"omitempty,enum"`
	Purpose     string  `json:"purpose" validate:"required"`
}

// MaterialRequest is the originating demand document.
type MaterialRequest struct {
	ID             string     `json:"id"`
	PersonInCharge string     `json:"personInCharge"`
	Department     Department `json:"department"`
	Project        string     `json:"project,omitempty"`
	RequestDate    Date       `json:"requestDate"`
	RequiredDate   Date       `json:"requiredDate"`
	Justification  string     `json:"justification,omitempty"`
	LineItems      []LineItem `json:"lineItems"`
	Status         MRFStatus  `json:"status"`
}

func (m MaterialRequest) clone() MaterialRequest {
	m.LineItems = slices.Clone(m.LineItems)
	return m
}

// QuotationStatus tracks a supplier quotation.
type QuotationStatus string

const (
	QuotationStatusPending  QuotationStatus = "pending"
	QuotationStatusReceived QuotationStatus = "received"
	QuotationStatusApproved QuotationStatus = "approved"
	QuotationStatusRejected QuotationStatus = "rejected"
)

var quotationTransitions = map[QuotationStatus][]QuotationStatus{
	QuotationStatusPending:  {QuotationStatusReceived},
	QuotationStatusReceived: {QuotationStatusApproved, QuotationStatusRejected},
}

// IsValid checks if the status is valid.
func (s QuotationStatus) IsValid() bool {
	switch s {
	case QuotationStatusPending, QuotationStatusReceived, QuotationStatusApproved, QuotationStatusRejected:
		return true
	default:
		return false
	}
}

// CanTransitionTo reports whether next is reachable in one step.
func (s QuotationStatus) CanTransitionTo(next QuotationStatus) bool {
	return canTransition(quotationTransitions, s, next)
}

// Quotation is a supplier's price response for an MRF.
type Quotation struct {
	ID            string          `json:"id"`
	MRFID         string          `json:"mrfId,omitempty"`
	SupplierName  string          `json:"supplierName"`
	SupplierEmail string          `json:"supplierEmail"`
	Items         []string        `json:"items"`
	TotalAmount   decimal.Decimal `json:"totalAmount"`
	ValidUntil    *Date           `json:"validUntil"`
	RequestDate   Date            `json:"requestDate"`
	ResponseDate  *Date           `json:"responseDate,omitempty"`
	Status        QuotationStatus `json:"status"`
}

func (q Quotation) clone() Quotation {
	q.Items = slices.Clone(q.Items)
	q.ValidUntil = cloneDate(q.ValidUntil)
	q.ResponseDate = cloneDate(q.ResponseDate)
	return q
}

// PaymentTerms offered on a purchase order.
type PaymentTerms string

const (
	PaymentTermsPDC          PaymentTerms = "PDC"
	PaymentTermsFundTransfer PaymentTerms = "Fund Transfer"
	PaymentTermsTerms        PaymentTerms = "Terms"
)

// IsValid checks if the terms are supported.
func (p PaymentTerms) IsValid() bool {
	switch p {
	case PaymentTermsPDC, PaymentTermsFundTransfer, PaymentTermsTerms:
		return true
	default:
		return false
	}
}

// UnmarshalJSON accepts the compact FundTransfer spelling as well.
func (p *PaymentTerms) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw == "FundTransfer" {
		raw = string(PaymentTermsFundTransfer)
	}
	*p = PaymentTerms(raw)
	return nil
}

// POStatus tracks a purchase order; it only ever moves forward.
type POStatus string

const (
	POStatusDraft           POStatus = "draft"
	POStatusPendingApproval POStatus = "pending-approval"
	POStatusApproved        POStatus = "approved"
	POStatusSent            POStatus = "sent"
	POStatusAcknowledged    POStatus = "acknowledged"
)

var poTransitions = map[POStatus][]POStatus{
	POStatusDraft:           {POStatusPendingApproval},
	POStatusPendingApproval: {POStatusApproved},
	POStatusApproved:        {POStatusSent},
	POStatusSent:            {POStatusAcknowledged},
}

// IsValid checks if the status is valid.
func (s POStatus) IsValid() bool {
	switch s {
	case POStatusDraft, POStatusPendingApproval, POStatusApproved, POStatusSent, POStatusAcknowledged:
		return true
	default:
		return false
	}
}

// CanTransitionTo reports whether next is reachable in one step.
func (s POStatus) CanTransitionTo(next POStatus) bool {
	return canTransition(poTransitions, s, next)
}

// CanDeliver reports whether deliveries may be scheduled against the order.
func (s POStatus) CanDeliver() bool {
	return s == POStatusApproved || s == POStatusSent || s == POStatusAcknowledged
}

// PurchaseOrder is issued to a supplier once a quotation is accepted.
type PurchaseOrder struct {
	ID               string          `json:"id"`
	QuotationID      string          `json:"quotationId,omitempty"`
	SupplierName     string          `json:"supplierName"`
	TotalAmount      decimal.Decimal `json:"totalAmount"`
	PaymentTerms     PaymentTerms    `json:"paymentTerms"`
	Signatory        string          `json:"signatory"`
	ApprovalWindow   string          `json:"approvalWindow"`
	CreatedDate      Date            `json:"createdDate"`
	ApprovalDate     *Date           `json:"approvalDate,omitempty"`
	SentDate         *Date           `json:"sentDate,omitempty"`
	ExpectedDelivery Date            `json:"expectedDelivery"`
	Status           POStatus        `json:"status"`
}

func (p PurchaseOrder) clone() PurchaseOrder {
	p.ApprovalDate = cloneDate(p.ApprovalDate)
	p.SentDate = cloneDate(p.SentDate)
	return p
}

// DeliveryType is where goods are dropped off.
type DeliveryType string

const (
	DeliveryTypeOffice       DeliveryType = "office"
	DeliveryTypeSite         DeliveryType = "site"
	DeliveryTypeDirectToSite DeliveryType = "direct-to-site"
)

// IsValid checks if the type is known.
func (t DeliveryType) IsValid() bool {
	switch t {
	case DeliveryTypeOffice, DeliveryTypeSite, DeliveryTypeDirectToSite:
		return true
	default:
		return false
	}
}

// DeliveryMethod is who moves the goods.
type DeliveryMethod string

const (
	DeliveryMethodSupplier       DeliveryMethod = "supplier"
	DeliveryMethodLalamove       DeliveryMethod = "lalamove"
	DeliveryMethodCompanyVehicle DeliveryMethod = "company-vehicle"
)

// IsValid checks if the method is known.
func (m DeliveryMethod) IsValid() bool {
	switch m {
	case DeliveryMethodSupplier, DeliveryMethodLalamove, DeliveryMethodCompanyVehicle:
		return true
	default:
		return false
	}
}

// DeliveryStatus tracks a delivery; it only ever moves forward.
type DeliveryStatus string

const (
	DeliveryStatusPendingCoordination DeliveryStatus = "pending-coordination"
	DeliveryStatusScheduled           DeliveryStatus = "scheduled"
	DeliveryStatusInTransit           DeliveryStatus = "in-transit"
	DeliveryStatusDelivered           DeliveryStatus = "delivered"
)

var deliveryTransitions = map[DeliveryStatus][]DeliveryStatus{
	DeliveryStatusPendingCoordination: {DeliveryStatusScheduled},
	DeliveryStatusScheduled:           {DeliveryStatusInTransit},
	DeliveryStatusInTransit:           {DeliveryStatusDelivered},
}

// IsValid checks if the status is valid.
func (s DeliveryStatus) IsValid() bool {
	switch s {
	case DeliveryStatusPendingCoordination, DeliveryStatusScheduled, DeliveryStatusInTransit, DeliveryStatusDelivered:
		return true
	default:
		return false
	}
}

// CanTransitionTo reports whether next is reachable in one step.
func (s DeliveryStatus) CanTransitionTo(next DeliveryStatus) bool {
	return canTransition(deliveryTransitions, s, next)
}

// Delivery coordinates goods arriving for a purchase order.
type Delivery struct {
	ID             string         `json:"id"`
	POID           string         `json:"poId"`
	SupplierName   string         `json:"supplierName"`
	Items          []string       `json:"items"`
	DeliveryType   DeliveryType   `json:"deliveryType"`
	DeliveryMethod DeliveryMethod `json:"deliveryMethod,omitempty"`
	ScheduledDate  Date           `json:"scheduledDate"`
	DeliveredDate  *Date          `json:"deliveredDate,omitempty"`
	Address        string         `json:"address"`
	ContactPerson  string         `json:"contactPerson,omitempty"`
	ContactNumber  string         `json:"contactNumber,omitempty"`
	TrackingNumber string         `json:"trackingNumber,omitempty"`
	Notes          string         `json:"notes,omitempty"`
	Status         DeliveryStatus `json:"status"`
}

func (d Delivery) clone() Delivery {
	d.Items = slices.Clone(d.Items)
	d.DeliveredDate = cloneDate(d.DeliveredDate)
	return d
}

// coordinationGaps lists the contact fields still missing before a delivery can be scheduled.
func (d Delivery) coordinationGaps() []string {
	var missing []string
	if d.DeliveryMethod == "" {
		missing = append(missing, "deliveryMethod")
	}
	if d.ContactPerson == "" {
		missing = append(missing, "contactPerson")
	}
	if d.ContactNumber == "" {
		missing = append(missing, "contactNumber")
	}
	return missing
}

// StockStatus is derived from stock levels and never set directly.
type StockStatus string

const (
	StockStatusInStock    StockStatus = "in-stock"
	StockStatusLowStock   StockStatus = "low-stock"
	StockStatusOutOfStock StockStatus = "out-of-stock"
)

// IsValid checks if the status is valid.
func (s StockStatus) IsValid() bool {
	switch s {
	case StockStatusInStock, StockStatusLowStock, StockStatusOutOfStock:
		return true
	default:
		return false
	}
}

// DeriveStockStatus is the only place inventory status is computed.
func DeriveStockStatus(currentStock, minimumStock int) StockStatus {
	switch {
	case currentStock <= 0:
		return StockStatusOutOfStock
	case currentStock <= minimumStock:
		return StockStatusLowStock
	default:
		return StockStatusInStock
	}
}

// InventoryItem is a stocked material.
type InventoryItem struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	Category     string          `json:"category"`
	CurrentStock int             `json:"currentStock"`
	MinimumStock int             `json:"minimumStock"`
	Unit         string          `json:"unit"`
	UnitCost     decimal.Decimal `json:"unitCost"`
	Location     string          `json:"location,omitempty"`
	LastUpdated  Date            `json:"lastUpdated"`
	Status       StockStatus     `json:"status"`
}

func (i InventoryItem) clone() InventoryItem {
	return i
}

// withDerivedStatus recomputes Status from the stock levels.
func (i InventoryItem) withDerivedStatus() InventoryItem {
	i.Status = DeriveStockStatus(i.CurrentStock, i.MinimumStock)
	return i
}
