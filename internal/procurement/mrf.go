package procurement

import (
	"fmt"
	"slices"
	"strings"
)

// CreateMRFInput describes a material request.
type CreateMRFInput struct {
	PersonInCharge string     `json:"personInCharge" validate:"required"`
	Department     Department `json:"department" validate:"required,enum"`
	Project        string     `json:"project"`
	RequestDate    *Date      `json:"requestDate"`
	RequiredDate   *Date      `json:"requiredDate" validate:"required"`
	Justification  string     `json:"justification"`
	LineItems      []LineItem `json:"lineItems" validate:"required,min=1,dive"`
}

func (in *CreateMRFInput) normalize() {
	in.PersonInCharge = strings.TrimSpace(in.PersonInCharge)
	in.Department = Department(strings.ToLower(strings.TrimSpace(string(in.Department))))
	in.Project = strings.TrimSpace(in.Project)
	in.Justification = strings.TrimSpace(in.Justification)
	items := make([]LineItem, len(in.LineItems))
	for i, item := range in.LineItems {
		item.Description = strings.TrimSpace(item.Description)
		item.Purpose = strings.TrimSpace(item.Purpose)
		item.Unit = strings.TrimSpace(item.Unit)
		if item.Urgency == "" {
			item.Urgency = UrgencyMedium
		}
		items[i] = item
	}
	if in.LineItems != nil {
		in.LineItems = items
	}
}

func mrfInputFrom(m MaterialRequest) CreateMRFInput {
	in := CreateMRFInput{
		PersonInCharge: m.PersonInCharge,
		Department:     m.Department,
		Project:        m.Project,
		RequestDate:    datePtr(m.RequestDate),
		Justification:  m.Justification,
		LineItems:      slices.Clone(m.LineItems),
	}
	if !m.RequiredDate.IsZero() {
		in.RequiredDate = datePtr(m.RequiredDate)
	}
	return in
}

// CreateMRF records a complete material request in the submitted state.
func (s *Store) CreateMRF(input CreateMRFInput) (MaterialRequest, error) {
	input.normalize()
	if err := validateStruct(EntityMRF, input).orNil(); err != nil {
		return MaterialRequest{}, err
	}
	return s.insertMRF(input, MRFStatusSubmitted), nil
}

// CreateMRFDraft records an incomplete request; completeness is checked on SubmitMRF.
func (s *Store) CreateMRFDraft(input CreateMRFInput) (MaterialRequest, error) {
	input.normalize()
	verr := &ValidationError{Entity: EntityMRF}
	if input.Department != "" && !input.Department.IsValid() {
		verr.add("department", fmt.Sprintf("has unsupported value %q", input.Department))
	}
	for i, item := range input.LineItems {
		if !item.Urgency.IsValid() {
			verr.add(fmt.Sprintf("lineItems[%d].urgency", i), fmt.Sprintf("has unsupported value %q", item.Urgency))
		}
	}
	if err := verr.orNil(); err != nil {
		return MaterialRequest{}, err
	}
	return s.insertMRF(input, MRFStatusDraft), nil
}

func (s *Store) insertMRF(input CreateMRFInput, status MRFStatus) MaterialRequest {
	today := s.today()
	requestDate := today
	if input.RequestDate != nil && !input.RequestDate.IsZero() {
		requestDate = *input.RequestDate
	}
	var requiredDate Date
	if input.RequiredDate != nil {
		requiredDate = *input.RequiredDate
	}
	return s.mrfs.insert(s.nextID(KindMRF), func(id string) MaterialRequest {
		return MaterialRequest{
			ID:             id,
			PersonInCharge: input.PersonInCharge,
			Department:     input.Department,
			Project:        input.Project,
			RequestDate:    requestDate,
			RequiredDate:   requiredDate,
			Justification:  input.Justification,
			LineItems:      slices.Clone(input.LineItems),
			Status:         status,
		}
	})
}

// SubmitMRF moves a draft to submitted once every required field and line is complete.
func (s *Store) SubmitMRF(id string) (MaterialRequest, error) {
	return s.transitionMRF(id, MRFStatusSubmitted, func(m MaterialRequest) error {
		return validateStruct(EntityMRF, mrfInputFrom(m)).orNil()
	})
}

// ApproveMRFByTM records the technical manager approval.
func (s *Store) ApproveMRFByTM(id string) (MaterialRequest, error) {
	return s.transitionMRF(id, MRFStatusTMApproved, nil)
}

// ApproveMRFByPM records the project manager approval.
func (s *Store) ApproveMRFByPM(id string) (MaterialRequest, error) {
	return s.transitionMRF(id, MRFStatusPMApproved, nil)
}

// CloseMRF marks the request as converted into quotation requests.
func (s *Store) CloseMRF(id string) (MaterialRequest, error) {
	return s.transitionMRF(id, MRFStatusClosed, nil)
}

// CancelMRF ends the request without removing it.
func (s *Store) CancelMRF(id string) (MaterialRequest, error) {
	return s.transitionMRF(id, MRFStatusCancelled, nil)
}

func (s *Store) transitionMRF(id string, to MRFStatus, check func(MaterialRequest) error) (MaterialRequest, error) {
	return s.mrfs.update(id, func(m MaterialRequest) (MaterialRequest, error) {
		if !m.Status.CanTransitionTo(to) {
			return m, transitionError(EntityMRF, m.ID, m.Status, to)
		}
		if check != nil {
			if err := check(m); err != nil {
				return m, err
			}
		}
		m.Status = to
		return m, nil
	})
}

// GetMRF returns a material request by id.
func (s *Store) GetMRF(id string) (MaterialRequest, error) {
	return s.mrfs.get(id)
}

// ListMRFs returns requests in creation order, optionally filtered by status.
func (s *Store) ListMRFs(status MRFStatus) []MaterialRequest {
	return s.mrfs.list(func(m MaterialRequest) bool {
		return status == "" || m.Status == status
	})
}

// CheckStock runs the availability check against the current inventory.
func (s *Store) CheckStock(req StockRequest) Availability {
	return CheckStock(req, s.inventory.list(nil))
}

// CheckMRFAvailability checks every line of a material request against inventory.
func (s *Store) CheckMRFAvailability(id string) ([]LineAvailability, error) {
	mrf, err := s.mrfs.get(id)
	if err != nil {
		return nil, err
	}
	inventory := s.inventory.list(nil)
	out := make([]LineAvailability, 0, len(mrf.LineItems))
	for i, item := range mrf.LineItems {
		out = append(out, LineAvailability{
			Line:         i,
			Item:         item,
			Availability: CheckStock(StockRequest{Name: item.Description, Quantity: item.Quantity, Unit: item.Unit}, inventory),
		})
	}
	return out, nil
}
