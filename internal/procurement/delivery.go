package procurement

import (
	"fmt"
	"slices"
	"strings"
)

// ScheduleDeliveryInput describes a delivery for a purchase order.
type ScheduleDeliveryInput struct {
	POID           string         `json:"poId" validate:"required"`
	SupplierName   string         `json:"supplierName"`
	Items          []string       `json:"items"`
	DeliveryType   DeliveryType   `json:"deliveryType" validate:"omitempty,enum"`
	DeliveryMethod DeliveryMethod `json:"deliveryMethod" validate:"omitempty,enum"`
	ScheduledDate  *Date          `json:"scheduledDate" validate:"required"`
	Address        string         `json:"address" validate:"required"`
	ContactPerson  string         `json:"contactPerson"`
	ContactNumber  string         `json:"contactNumber"`
	TrackingNumber string         `json:"trackingNumber"`
	Notes          string         `json:"notes"`
}

func (in *ScheduleDeliveryInput) normalize() {
	in.POID = strings.TrimSpace(in.POID)
	in.SupplierName = strings.TrimSpace(in.SupplierName)
	in.Items = trimAll(in.Items)
	in.Address = strings.TrimSpace(in.Address)
	in.ContactPerson = strings.TrimSpace(in.ContactPerson)
	in.ContactNumber = strings.TrimSpace(in.ContactNumber)
	in.TrackingNumber = strings.TrimSpace(in.TrackingNumber)
	in.Notes = strings.TrimSpace(in.Notes)
	if in.DeliveryType == "" {
		in.DeliveryType = DeliveryTypeOffice
	}
}

// CoordinateDeliveryInput resolves the contact details of a pending delivery.
type CoordinateDeliveryInput struct {
	DeliveryMethod DeliveryMethod `json:"deliveryMethod" validate:"required,enum"`
	ContactPerson  string         `json:"contactPerson" validate:"required"`
	ContactNumber  string         `json:"contactNumber" validate:"required"`
}

// ScheduleDelivery records a delivery for an existing purchase order. It starts
// as scheduled when method and contact are known, otherwise as pending-coordination.
func (s *Store) ScheduleDelivery(input ScheduleDeliveryInput) (Delivery, error) {
	input.normalize()
	if err := validateStruct(EntityDelivery, input).orNil(); err != nil {
		return Delivery{}, err
	}
	po, err := s.orders.get(input.POID)
	if err != nil {
		return Delivery{}, err
	}
	if input.SupplierName == "" {
		input.SupplierName = po.SupplierName
	}
	if len(input.Items) == 0 && po.QuotationID != "" {
		if q, err := s.quotations.get(po.QuotationID); err == nil {
			input.Items = q.Items
		}
	}
	return s.insertDelivery(input), nil
}

// ScheduleDeliveryFromPO schedules a delivery for an order that has been approved.
func (s *Store) ScheduleDeliveryFromPO(poID string, input ScheduleDeliveryInput) (Delivery, error) {
	input.POID = strings.TrimSpace(poID)
	po, err := s.orders.get(input.POID)
	if err != nil {
		return Delivery{}, err
	}
	input.normalize()
	if err := validateStruct(EntityDelivery, input).orNil(); err != nil {
		return Delivery{}, err
	}
	if !po.Status.CanDeliver() {
		return Delivery{}, &ConstraintViolationError{
			Entity:     EntityPurchaseOrder,
			ID:         po.ID,
			Constraint: "approved_order",
			Detail:     "deliveries need an approved order, current status is " + string(po.Status),
		}
	}
	return s.ScheduleDelivery(input)
}

func (s *Store) insertDelivery(input ScheduleDeliveryInput) Delivery {
	return s.deliveries.insert(s.nextID(KindDelivery), func(id string) Delivery {
		d := Delivery{
			ID:             id,
			POID:           input.POID,
			SupplierName:   input.SupplierName,
			Items:          slices.Clone(input.Items),
			DeliveryType:   input.DeliveryType,
			DeliveryMethod: input.DeliveryMethod,
			ScheduledDate:  *input.ScheduledDate,
			Address:        input.Address,
			ContactPerson:  input.ContactPerson,
			ContactNumber:  input.ContactNumber,
			TrackingNumber: input.TrackingNumber,
			Notes:          input.Notes,
			Status:         DeliveryStatusScheduled,
		}
		if len(d.coordinationGaps()) > 0 {
			d.Status = DeliveryStatusPendingCoordination
		}
		return d
	})
}

// UpdateDeliveryStatus advances a delivery by exactly one step. Reaching
// delivered stamps deliveredDate unless one is already recorded.
func (s *Store) UpdateDeliveryStatus(id string, to DeliveryStatus) (Delivery, error) {
	if _, err := s.deliveries.get(id); err != nil {
		return Delivery{}, err
	}
	if !to.IsValid() {
		verr := &ValidationError{Entity: EntityDelivery}
		verr.add("status", fmt.Sprintf("has unsupported value %q", to))
		return Delivery{}, verr
	}
	today := s.today()
	return s.deliveries.update(id, func(d Delivery) (Delivery, error) {
		if !d.Status.CanTransitionTo(to) {
			return d, transitionError(EntityDelivery, d.ID, d.Status, to)
		}
		if to == DeliveryStatusScheduled {
			if gaps := d.coordinationGaps(); len(gaps) > 0 {
				verr := &ValidationError{Entity: EntityDelivery}
				for _, field := range gaps {
					verr.add(field, "is required before scheduling")
				}
				return d, verr
			}
		}
		if to == DeliveryStatusDelivered && d.DeliveredDate == nil {
			d.DeliveredDate = datePtr(today)
		}
		d.Status = to
		return d, nil
	})
}

// CoordinateDelivery fills in method and contact of a pending delivery and schedules it.
func (s *Store) CoordinateDelivery(id string, input CoordinateDeliveryInput) (Delivery, error) {
	if _, err := s.deliveries.get(id); err != nil {
		return Delivery{}, err
	}
	input.ContactPerson = strings.TrimSpace(input.ContactPerson)
	input.ContactNumber = strings.TrimSpace(input.ContactNumber)
	if err := validateStruct(EntityDelivery, input).orNil(); err != nil {
		return Delivery{}, err
	}
	return s.deliveries.update(id, func(d Delivery) (Delivery, error) {
		if !d.Status.CanTransitionTo(DeliveryStatusScheduled) {
			return d, transitionError(EntityDelivery, d.ID, d.Status, DeliveryStatusScheduled)
		}
		d.DeliveryMethod = input.DeliveryMethod
		d.ContactPerson = input.ContactPerson
		d.ContactNumber = input.ContactNumber
		d.Status = DeliveryStatusScheduled
		return d, nil
	})
}

// SetTrackingNumber records the carrier tracking number.
func (s *Store) SetTrackingNumber(id, trackingNumber string) (Delivery, error) {
	if _, err := s.deliveries.get(id); err != nil {
		return Delivery{}, err
	}
	trackingNumber = strings.TrimSpace(trackingNumber)
	if trackingNumber == "" {
		verr := &ValidationError{Entity: EntityDelivery}
		verr.add("trackingNumber", "is required")
		return Delivery{}, verr
	}
	return s.deliveries.update(id, func(d Delivery) (Delivery, error) {
		d.TrackingNumber = trackingNumber
		return d, nil
	})
}

// GetDelivery returns a delivery by id.
func (s *Store) GetDelivery(id string) (Delivery, error) {
	return s.deliveries.get(id)
}

// ListDeliveries returns deliveries in creation order, optionally filtered by status.
func (s *Store) ListDeliveries(status DeliveryStatus) []Delivery {
	return s.deliveries.list(func(d Delivery) bool {
		return status == "" || d.Status == status
	})
}
