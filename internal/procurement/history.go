package procurement

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/procureflow/procureflow/internal/shared"
)

// AuditReader lists the audit trail of one document. shared.AuditLogger implements it.
type AuditReader interface {
	List(ctx context.Context, entity, entityID string) ([]shared.AuditLog, error)
}

// ApprovalReader lists the approval log of one document. shared.ApprovalRecorder implements it.
type ApprovalReader interface {
	List(ctx context.Context, module string, ref uuid.UUID) ([]shared.ApprovalLog, error)
}

// History is the recorded trail of a single document.
type History struct {
	Entity    string               `json:"entity"`
	ID        string               `json:"id"`
	Audit     []shared.AuditLog    `json:"audit"`
	Approvals []shared.ApprovalLog `json:"approvals,omitempty"`
}

var approvalModules = map[string]string{
	EntityMRF:           ApprovalModuleMRF,
	EntityQuotation:     ApprovalModuleQuotation,
	EntityPurchaseOrder: ApprovalModulePO,
}

// History returns the audit and approval trail of an existing document.
// Ports that cannot be read back contribute nothing.
func (s *Service) History(ctx context.Context, entity, id string) (History, error) {
	if err := s.exists(entity, id); err != nil {
		return History{}, err
	}
	h := History{Entity: entity, ID: id, Audit: []shared.AuditLog{}}
	if reader, ok := s.audit.(AuditReader); ok {
		logs, err := reader.List(ctx, entity, id)
		if err != nil {
			return History{}, fmt.Errorf("procurement: audit history: %w", err)
		}
		h.Audit = append(h.Audit, logs...)
	}
	if module, ok := approvalModules[entity]; ok {
		if reader, ok := s.approvals.(ApprovalReader); ok {
			logs, err := reader.List(ctx, module, shared.ApprovalRef(module, id))
			if err != nil {
				return History{}, fmt.Errorf("procurement: approval history: %w", err)
			}
			h.Approvals = logs
		}
	}
	return h, nil
}

func (s *Service) exists(entity, id string) error {
	var err error
	switch entity {
	case EntityMRF:
		_, err = s.store.GetMRF(id)
	case EntityQuotation:
		_, err = s.store.GetQuotation(id)
	case EntityPurchaseOrder:
		_, err = s.store.GetPurchaseOrder(id)
	case EntityDelivery:
		_, err = s.store.GetDelivery(id)
	case EntityInventory:
		_, err = s.store.GetInventoryItem(id)
	default:
		verr := &ValidationError{Entity: "history"}
		verr.add("entity", "must be one of material_request, quotation, purchase_order, delivery, inventory_item")
		return verr
	}
	return err
}
