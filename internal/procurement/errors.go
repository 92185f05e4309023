package procurement

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidState occurs when action violates status workflow.
	ErrInvalidState = errors.New("procurement: invalid state transition")
	// ErrNotFound indicates record missing.
	ErrNotFound = errors.New("procurement: not found")
	// ErrValidation indicates invalid input.
	ErrValidation = errors.New("procurement: invalid input")
	// ErrConstraint indicates an operation would break a stored invariant.
	ErrConstraint = errors.New("procurement: constraint violated")
)

// Entity names used in error values and audit records.
const (
	EntityMRF           = "material_request"
	EntityQuotation     = "quotation"
	EntityPurchaseOrder = "purchase_order"
	EntityDelivery      = "delivery"
	EntityInventory     = "inventory_item"
)

// FieldError names one offending input field.
type FieldError struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// ValidationError lists every missing or invalid field of a request.
type ValidationError struct {
	Entity string
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		if f.Field == "" {
			parts = append(parts, f.Reason)
			continue
		}
		parts = append(parts, f.Field+" "+f.Reason)
	}
	return fmt.Sprintf("procurement: invalid %s: %s", e.Entity, strings.Join(parts, "; "))
}

// Is reports whether target is ErrValidation.
func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

func (e *ValidationError) add(field, reason string) {
	e.Fields = append(e.Fields, FieldError{Field: field, Reason: reason})
}

// orNil keeps callers from returning a typed nil inside an error interface.
func (e *ValidationError) orNil() error {
	if e == nil || len(e.Fields) == 0 {
		return nil
	}
	return e
}

// InvalidTransitionError names the current and requested status of a refused transition.
type InvalidTransitionError struct {
	Entity string
	ID     string
	From   string
	To     string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("procurement: %s %s cannot move from %q to %q", e.Entity, e.ID, e.From, e.To)
}

// Is reports whether target is ErrInvalidState.
func (e *InvalidTransitionError) Is(target error) bool { return target == ErrInvalidState }

// NotFoundError reports an ID absent from its collection.
type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("procurement: %s %q not found", e.Entity, e.ID)
}

// Is reports whether target is ErrNotFound.
func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// ConstraintViolationError reports a mutation refused because the result would break an invariant.
type ConstraintViolationError struct {
	Entity     string
	ID         string
	Constraint string
	Detail     string
}

func (e *ConstraintViolationError) Error() string {
	return fmt.Sprintf("procurement: %s %s violates %s: %s", e.Entity, e.ID, e.Constraint, e.Detail)
}

// Is reports whether target is ErrConstraint.
func (e *ConstraintViolationError) Is(target error) bool { return target == ErrConstraint }

func transitionError[S ~string](entity, id string, from, to S) error {
	return &InvalidTransitionError{Entity: entity, ID: id, From: string(from), To: string(to)}
}
