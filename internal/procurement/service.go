package procurement

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/procureflow/procureflow/internal/notify"
	"github.com/procureflow/procureflow/internal/shared"
)

// AuditPort reused from shared.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// ApprovalPort records approval history for documents that need sign-off.
type ApprovalPort interface {
	Record(ctx context.Context, log shared.ApprovalLog) error
	EnsureSubmit(ctx context.Context, module string, ref uuid.UUID, actor string, note string) error
}

// MetricsPort counts workflow outcomes.
type MetricsPort interface {
	Transition(entity, status string)
	Rejection(entity, kind string)
}

// SnapshotRepository stores whole-workflow snapshots.
type SnapshotRepository interface {
	Save(ctx context.Context, snap Snapshot) error
	Latest(ctx context.Context) (Snapshot, error)
}

// Approval modules used in the approvals table.
const (
	ApprovalModuleMRF       = "MRF"
	ApprovalModuleQuotation = "QUO"
	ApprovalModulePO        = "PO"
)

// Service orchestrates procurement flows on top of the Store and reports
// side effects (audit, approvals, notifications, metrics) to its ports.
type Service struct {
	store     *Store
	suppliers *SupplierDirectory
	logger    *slog.Logger
	audit     AuditPort
	approvals ApprovalPort
	notifier  notify.Sink
	metrics   MetricsPort
	snapshots SnapshotRepository
	company   string
	mailbox   string
	persistMu sync.Mutex
}

// ServiceOption configures Service.
type ServiceOption func(*Service)

// WithAudit records audit entries for every state change.
func WithAudit(audit AuditPort) ServiceOption {
	return func(s *Service) { s.audit = audit }
}

// WithApprovals records submit/approve/reject history.
func WithApprovals(approvals ApprovalPort) ServiceOption {
	return func(s *Service) { s.approvals = approvals }
}

// WithNotifier sends supplier messages to sink.
func WithNotifier(sink notify.Sink) ServiceOption {
	return func(s *Service) { s.notifier = sink }
}

// WithMetrics counts transitions and rejections.
func WithMetrics(metrics MetricsPort) ServiceOption {
	return func(s *Service) { s.metrics = metrics }
}

// WithSnapshots enables Persist and Load.
func WithSnapshots(repo SnapshotRepository) ServiceOption {
	return func(s *Service) { s.snapshots = repo }
}

// WithSuppliers sets the supplier directory.
func WithSuppliers(directory *SupplierDirectory) ServiceOption {
	return func(s *Service) { s.suppliers = directory }
}

// WithCompany sets the company name used in supplier messages.
func WithCompany(name string) ServiceOption {
	return func(s *Service) { s.company = name }
}

// WithMailbox sets the reply address signed on messages sent without a user.
func WithMailbox(addr string) ServiceOption {
	return func(s *Service) { s.mailbox = addr }
}

// NewService constructs procurement service.
func NewService(store *Store, logger *slog.Logger, opts ...ServiceOption) *Service {
	if store == nil {
		store = NewStore()
	}
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{store: store, logger: logger}
	for _, opt := range opts {
		opt(s)
	}
	if s.suppliers == nil {
		s.suppliers = NewSupplierDirectory(nil, nil)
	}
	return s
}

// Store exposes the underlying workflow store.
func (s *Service) Store() *Store { return s.store }

// Route returns the signatory routing for amount.
func (s *Service) Route(amount decimal.Decimal) (Routing, error) {
	return Route(amount)
}

// CreateMRF records a submitted material request.
func (s *Service) CreateMRF(ctx context.Context, input CreateMRFInput) (MaterialRequest, error) {
	mrf, err := s.store.CreateMRF(input)
	if err != nil {
		return MaterialRequest{}, s.rejected(ctx, EntityMRF, "create", "", err)
	}
	s.changed(ctx, EntityMRF, "MRF_CREATE", mrf.ID, string(mrf.Status), map[string]any{"department": mrf.Department, "lines": len(mrf.LineItems)})
	s.ensureSubmit(ctx, ApprovalModuleMRF, mrf.ID)
	return mrf, nil
}

// CreateMRFDraft records a draft material request.
func (s *Service) CreateMRFDraft(ctx context.Context, input CreateMRFInput) (MaterialRequest, error) {
	mrf, err := s.store.CreateMRFDraft(input)
	if err != nil {
		return MaterialRequest{}, s.rejected(ctx, EntityMRF, "draft", "", err)
	}
	s.changed(ctx, EntityMRF, "MRF_DRAFT", mrf.ID, string(mrf.Status), nil)
	return mrf, nil
}

// SubmitMRF submits a draft material request.
func (s *Service) SubmitMRF(ctx context.Context, id string) (MaterialRequest, error) {
	mrf, err := s.store.SubmitMRF(id)
	if err != nil {
		return MaterialRequest{}, s.rejected(ctx, EntityMRF, "submit", id, err)
	}
	s.changed(ctx, EntityMRF, "MRF_SUBMIT", mrf.ID, string(mrf.Status), nil)
	s.ensureSubmit(ctx, ApprovalModuleMRF, mrf.ID)
	return mrf, nil
}

// ApproveMRFByTM records the technical manager approval.
func (s *Service) ApproveMRFByTM(ctx context.Context, id string) (MaterialRequest, error) {
	mrf, err := s.store.ApproveMRFByTM(id)
	if err != nil {
		return MaterialRequest{}, s.rejected(ctx, EntityMRF, "approve_tm", id, err)
	}
	s.changed(ctx, EntityMRF, "MRF_APPROVE_TM", mrf.ID, string(mrf.Status), nil)
	s.recordApproval(ctx, ApprovalModuleMRF, mrf.ID, shared.ApprovalApprove, "technical manager")
	return mrf, nil
}

// ApproveMRFByPM records the project manager approval.
func (s *Service) ApproveMRFByPM(ctx context.Context, id string) (MaterialRequest, error) {
	mrf, err := s.store.ApproveMRFByPM(id)
	if err != nil {
		return MaterialRequest{}, s.rejected(ctx, EntityMRF, "approve_pm", id, err)
	}
	s.changed(ctx, EntityMRF, "MRF_APPROVE_PM", mrf.ID, string(mrf.Status), nil)
	s.recordApproval(ctx, ApprovalModuleMRF, mrf.ID, shared.ApprovalApprove, "project manager")
	return mrf, nil
}

// CloseMRF closes a fully approved material request.
func (s *Service) CloseMRF(ctx context.Context, id string) (MaterialRequest, error) {
	mrf, err := s.store.CloseMRF(id)
	if err != nil {
		return MaterialRequest{}, s.rejected(ctx, EntityMRF, "close", id, err)
	}
	s.changed(ctx, EntityMRF, "MRF_CLOSE", mrf.ID, string(mrf.Status), nil)
	return mrf, nil
}

// CancelMRF cancels an open material request.
func (s *Service) CancelMRF(ctx context.Context, id string) (MaterialRequest, error) {
	mrf, err := s.store.CancelMRF(id)
	if err != nil {
		return MaterialRequest{}, s.rejected(ctx, EntityMRF, "cancel", id, err)
	}
	s.changed(ctx, EntityMRF, "MRF_CANCEL", mrf.ID, string(mrf.Status), nil)
	s.recordApproval(ctx, ApprovalModuleMRF, mrf.ID, shared.ApprovalReject, "cancelled")
	return mrf, nil
}

// GetMRF returns a material request.
func (s *Service) GetMRF(_ context.Context, id string) (MaterialRequest, error) {
	return s.store.GetMRF(id)
}

// ListMRFs lists material requests, optionally by status.
func (s *Service) ListMRFs(_ context.Context, status MRFStatus) []MaterialRequest {
	return s.store.ListMRFs(status)
}

// CheckStock checks a single requested quantity against inventory.
func (s *Service) CheckStock(_ context.Context, req StockRequest) Availability {
	return s.store.CheckStock(req)
}

// CheckMRFAvailability checks every line of a material request.
func (s *Service) CheckMRFAvailability(_ context.Context, id string) ([]LineAvailability, error) {
	return s.store.CheckMRFAvailability(id)
}

// RequestQuotation records a pending quotation and sends the request to the supplier.
func (s *Service) RequestQuotation(ctx context.Context, input CreateQuotationRequestInput) (Quotation, error) {
	q, err := s.store.CreateQuotationRequest(input)
	if err != nil {
		return Quotation{}, s.rejected(ctx, EntityQuotation, "request", "", err)
	}
	s.changed(ctx, EntityQuotation, "QUOTATION_REQUEST", q.ID, string(q.Status), map[string]any{"supplier": q.SupplierName})

	subject := strings.TrimSpace(input.Subject)
	if subject == "" {
		tmpl, _ := notify.TemplateFor(notify.CategoryQuotation)
		subject = tmpl.Render(q.SupplierEmail, map[string]string{notify.KeyProjectName: s.projectOf(q.MRFID)}, notify.Sender{}).Subject
	}
	s.notify(ctx, notify.Message{Recipient: q.SupplierEmail, Subject: subject, Body: strings.TrimSpace(input.Message)})
	return q, nil
}

// ReceiveQuotation records the supplier's response.
func (s *Service) ReceiveQuotation(ctx context.Context, id string, input ReceiveQuotationInput) (Quotation, error) {
	q, err := s.store.ReceiveQuotation(id, input)
	if err != nil {
		return Quotation{}, s.rejected(ctx, EntityQuotation, "receive", id, err)
	}
	s.changed(ctx, EntityQuotation, "QUOTATION_RECEIVE", q.ID, string(q.Status), map[string]any{"total": q.TotalAmount.StringFixed(2)})
	return q, nil
}

// ApproveQuotation accepts a received quotation.
func (s *Service) ApproveQuotation(ctx context.Context, id string) (Quotation, error) {
	q, err := s.store.ApproveQuotation(id)
	if err != nil {
		return Quotation{}, s.rejected(ctx, EntityQuotation, "approve", id, err)
	}
	s.changed(ctx, EntityQuotation, "QUOTATION_APPROVE", q.ID, string(q.Status), nil)
	s.recordApproval(ctx, ApprovalModuleQuotation, q.ID, shared.ApprovalApprove, "")
	return q, nil
}

// RejectQuotation declines a received quotation.
func (s *Service) RejectQuotation(ctx context.Context, id string) (Quotation, error) {
	q, err := s.store.RejectQuotation(id)
	if err != nil {
		return Quotation{}, s.rejected(ctx, EntityQuotation, "reject", id, err)
	}
	s.changed(ctx, EntityQuotation, "QUOTATION_REJECT", q.ID, string(q.Status), nil)
	s.recordApproval(ctx, ApprovalModuleQuotation, q.ID, shared.ApprovalReject, "")
	return q, nil
}

// GetQuotation returns a quotation.
func (s *Service) GetQuotation(_ context.Context, id string) (Quotation, error) {
	return s.store.GetQuotation(id)
}

// ListQuotations lists quotations, optionally by status.
func (s *Service) ListQuotations(_ context.Context, status QuotationStatus) []Quotation {
	return s.store.ListQuotations(status)
}

// CreatePurchaseOrder records a purchase order routed by its amount.
func (s *Service) CreatePurchaseOrder(ctx context.Context, input CreatePurchaseOrderInput) (PurchaseOrder, error) {
	po, err := s.store.CreatePurchaseOrder(input)
	if err != nil {
		return PurchaseOrder{}, s.rejected(ctx, EntityPurchaseOrder, "create", "", err)
	}
	s.poCreated(ctx, po)
	return po, nil
}

// CreatePurchaseOrderFromQuotation converts an approved quotation into an order.
func (s *Service) CreatePurchaseOrderFromQuotation(ctx context.Context, quotationID string, input FromQuotationInput) (PurchaseOrder, error) {
	po, err := s.store.CreatePurchaseOrderFromQuotation(quotationID, input)
	if err != nil {
		return PurchaseOrder{}, s.rejected(ctx, EntityPurchaseOrder, "create", quotationID, err)
	}
	s.poCreated(ctx, po)
	return po, nil
}

func (s *Service) poCreated(ctx context.Context, po PurchaseOrder) {
	s.changed(ctx, EntityPurchaseOrder, "PO_CREATE", po.ID, string(po.Status), map[string]any{
		"total":     po.TotalAmount.StringFixed(2),
		"signatory": po.Signatory,
	})
	if po.Status == POStatusPendingApproval {
		s.ensureSubmit(ctx, ApprovalModulePO, po.ID)
	}
}

// SubmitPurchaseOrder moves a draft order to pending approval.
func (s *Service) SubmitPurchaseOrder(ctx context.Context, id string) (PurchaseOrder, error) {
	po, err := s.store.SubmitPurchaseOrder(id)
	if err != nil {
		return PurchaseOrder{}, s.rejected(ctx, EntityPurchaseOrder, "submit", id, err)
	}
	s.changed(ctx, EntityPurchaseOrder, "PO_SUBMIT", po.ID, string(po.Status), nil)
	s.ensureSubmit(ctx, ApprovalModulePO, po.ID)
	return po, nil
}

// ApprovePurchaseOrder approves an order pending approval.
func (s *Service) ApprovePurchaseOrder(ctx context.Context, id string) (PurchaseOrder, error) {
	po, err := s.store.ApprovePurchaseOrder(id)
	if err != nil {
		return PurchaseOrder{}, s.rejected(ctx, EntityPurchaseOrder, "approve", id, err)
	}
	s.changed(ctx, EntityPurchaseOrder, "PO_APPROVE", po.ID, string(po.Status), map[string]any{"signatory": po.Signatory})
	s.recordApproval(ctx, ApprovalModulePO, po.ID, shared.ApprovalApprove, po.Signatory)
	return po, nil
}

// SendPurchaseOrder marks an approved order as sent and emails the supplier.
func (s *Service) SendPurchaseOrder(ctx context.Context, id string) (PurchaseOrder, error) {
	po, err := s.store.SendPurchaseOrder(id)
	if err != nil {
		return PurchaseOrder{}, s.rejected(ctx, EntityPurchaseOrder, "send", id, err)
	}
	s.changed(ctx, EntityPurchaseOrder, "PO_SEND", po.ID, string(po.Status), nil)
	s.notifyPurchaseOrder(ctx, po)
	return po, nil
}

// AcknowledgePurchaseOrder records the supplier's acknowledgement.
func (s *Service) AcknowledgePurchaseOrder(ctx context.Context, id string) (PurchaseOrder, error) {
	po, err := s.store.AcknowledgePurchaseOrder(id)
	if err != nil {
		return PurchaseOrder{}, s.rejected(ctx, EntityPurchaseOrder, "acknowledge", id, err)
	}
	s.changed(ctx, EntityPurchaseOrder, "PO_ACKNOWLEDGE", po.ID, string(po.Status), nil)
	return po, nil
}

// GetPurchaseOrder returns a purchase order.
func (s *Service) GetPurchaseOrder(_ context.Context, id string) (PurchaseOrder, error) {
	return s.store.GetPurchaseOrder(id)
}

// ListPurchaseOrders lists purchase orders, optionally by status.
func (s *Service) ListPurchaseOrders(_ context.Context, status POStatus) []PurchaseOrder {
	return s.store.ListPurchaseOrders(status)
}

// ScheduleDelivery records a delivery for an existing purchase order.
func (s *Service) ScheduleDelivery(ctx context.Context, input ScheduleDeliveryInput) (Delivery, error) {
	d, err := s.store.ScheduleDelivery(input)
	if err != nil {
		return Delivery{}, s.rejected(ctx, EntityDelivery, "schedule", input.POID, err)
	}
	s.changed(ctx, EntityDelivery, "DELIVERY_SCHEDULE", d.ID, string(d.Status), map[string]any{"po": d.POID})
	return d, nil
}

// ScheduleDeliveryFromPO records a delivery for an order cleared for delivery.
func (s *Service) ScheduleDeliveryFromPO(ctx context.Context, poID string, input ScheduleDeliveryInput) (Delivery, error) {
	d, err := s.store.ScheduleDeliveryFromPO(poID, input)
	if err != nil {
		return Delivery{}, s.rejected(ctx, EntityDelivery, "schedule", poID, err)
	}
	s.changed(ctx, EntityDelivery, "DELIVERY_SCHEDULE", d.ID, string(d.Status), map[string]any{"po": d.POID})
	return d, nil
}

// UpdateDeliveryStatus advances a delivery one step.
func (s *Service) UpdateDeliveryStatus(ctx context.Context, id string, status DeliveryStatus) (Delivery, error) {
	d, err := s.store.UpdateDeliveryStatus(id, status)
	if err != nil {
		return Delivery{}, s.rejected(ctx, EntityDelivery, "status", id, err)
	}
	s.changed(ctx, EntityDelivery, "DELIVERY_STATUS", d.ID, string(d.Status), nil)
	return d, nil
}

// CoordinateDelivery fills the contact details of a pending delivery.
func (s *Service) CoordinateDelivery(ctx context.Context, id string, input CoordinateDeliveryInput) (Delivery, error) {
	d, err := s.store.CoordinateDelivery(id, input)
	if err != nil {
		return Delivery{}, s.rejected(ctx, EntityDelivery, "coordinate", id, err)
	}
	s.changed(ctx, EntityDelivery, "DELIVERY_COORDINATE", d.ID, string(d.Status), nil)
	return d, nil
}

// SetTrackingNumber stores the carrier tracking number.
func (s *Service) SetTrackingNumber(ctx context.Context, id, trackingNumber string) (Delivery, error) {
	d, err := s.store.SetTrackingNumber(id, trackingNumber)
	if err != nil {
		return Delivery{}, s.rejected(ctx, EntityDelivery, "tracking", id, err)
	}
	s.recordAudit(ctx, "DELIVERY_TRACKING", EntityDelivery, d.ID, map[string]any{"tracking": d.TrackingNumber})
	return d, nil
}

// GetDelivery returns a delivery.
func (s *Service) GetDelivery(_ context.Context, id string) (Delivery, error) {
	return s.store.GetDelivery(id)
}

// ListDeliveries lists deliveries, optionally by status.
func (s *Service) ListDeliveries(_ context.Context, status DeliveryStatus) []Delivery {
	return s.store.ListDeliveries(status)
}

// AddInventoryItem records a stocked material.
func (s *Service) AddInventoryItem(ctx context.Context, input AddInventoryItemInput) (InventoryItem, error) {
	item, err := s.store.AddInventoryItem(input)
	if err != nil {
		return InventoryItem{}, s.rejected(ctx, EntityInventory, "add", "", err)
	}
	s.changed(ctx, EntityInventory, "INVENTORY_ADD", item.ID, string(item.Status), nil)
	return item, nil
}

// AdjustStock changes the stock level by delta.
func (s *Service) AdjustStock(ctx context.Context, id string, delta int) (InventoryItem, error) {
	item, err := s.store.AdjustStock(id, delta)
	if err != nil {
		return InventoryItem{}, s.rejected(ctx, EntityInventory, "adjust", id, err)
	}
	s.changed(ctx, EntityInventory, "INVENTORY_ADJUST", item.ID, string(item.Status), map[string]any{"delta": delta, "stock": item.CurrentStock})
	return item, nil
}

// UpdateInventoryItem applies a patch to an inventory item.
func (s *Service) UpdateInventoryItem(ctx context.Context, id string, patch InventoryPatch) (InventoryItem, error) {
	item, err := s.store.UpdateInventoryItem(id, patch)
	if err != nil {
		return InventoryItem{}, s.rejected(ctx, EntityInventory, "update", id, err)
	}
	s.changed(ctx, EntityInventory, "INVENTORY_UPDATE", item.ID, string(item.Status), nil)
	return item, nil
}

// GetInventoryItem returns an inventory item.
func (s *Service) GetInventoryItem(_ context.Context, id string) (InventoryItem, error) {
	return s.store.GetInventoryItem(id)
}

// ListInventory lists inventory, optionally by status, or searches by term.
func (s *Service) ListInventory(_ context.Context, status StockStatus, term string) []InventoryItem {
	if strings.TrimSpace(term) != "" {
		items := s.store.SearchInventory(term)
		if status == "" {
			return items
		}
		filtered := items[:0]
		for _, item := range items {
			if item.Status == status {
				filtered = append(filtered, item)
			}
		}
		return filtered
	}
	return s.store.ListInventory(status)
}

// InventorySummary aggregates inventory figures.
type InventorySummary struct {
	Items      int             `json:"items"`
	LowStock   []InventoryItem `json:"lowStock"`
	TotalValue decimal.Decimal `json:"totalValue"`
}

// InventorySummary reports low stock items and the total stock value.
func (s *Service) InventorySummary(_ context.Context) InventorySummary {
	return InventorySummary{
		Items:      s.store.Counts().Inventory,
		LowStock:   s.store.LowStockItems(),
		TotalValue: s.store.InventoryValue(),
	}
}

// Suppliers searches the supplier directory.
func (s *Service) Suppliers(_ context.Context, term string) []Supplier {
	return s.suppliers.Search(term)
}

// Supplier returns one supplier.
func (s *Service) Supplier(_ context.Context, id string) (Supplier, error) {
	return s.suppliers.Get(id)
}

// CompareOffers lists supplier offers for an item, cheapest first.
func (s *Service) CompareOffers(_ context.Context, itemName string) []SupplierOffer {
	return s.suppliers.CompareOffers(itemName)
}

// ComposeInput renders a template for a supplier.
type ComposeInput struct {
	Category  notify.Category   `json:"category" validate:"required"`
	Recipient string            `json:"recipient" validate:"required,email"`
	Values    map[string]string `json:"values"`
	Send      bool              `json:"send"`
}

// ComposeMessage renders the template of a category with the caller's signature
// and optionally hands it to the notifier.
func (s *Service) ComposeMessage(ctx context.Context, input ComposeInput) (notify.Message, error) {
	input.Recipient = strings.TrimSpace(input.Recipient)
	verr := validateStruct("message", input)
	tmpl, ok := notify.TemplateFor(input.Category)
	if !ok && input.Category != "" {
		verr.add("category", "has unsupported value")
	}
	if err := verr.orNil(); err != nil {
		return notify.Message{}, err
	}
	values := make(map[string]string, len(input.Values)+1)
	for k, v := range input.Values {
		values[strings.ToUpper(strings.TrimSpace(k))] = v
	}
	if _, ok := values[notify.KeyCompanyName]; !ok && s.company != "" {
		values[notify.KeyCompanyName] = s.company
	}
	msg := tmpl.Render(input.Recipient, values, s.sender(ctx))
	if input.Send {
		if s.notifier == nil {
			return msg, errors.New("procurement: no notifier configured")
		}
		if err := s.notifier.Send(ctx, msg); err != nil {
			return msg, err
		}
	}
	return msg, nil
}

// Messages returns recently sent supplier messages when the notifier keeps them.
func (s *Service) Messages(_ context.Context) []notify.Message {
	if outbox, ok := s.notifier.(interface{ Messages() []notify.Message }); ok {
		return outbox.Messages()
	}
	return nil
}

// Snapshot returns a copy of the whole workflow state.
func (s *Service) Snapshot(_ context.Context) Snapshot {
	return s.store.Snapshot()
}

// Persist saves a fresh snapshot of the store. Saves are serialized.
func (s *Service) Persist(ctx context.Context) error {
	if s.snapshots == nil {
		return nil
	}
	s.persistMu.Lock()
	defer s.persistMu.Unlock()
	snap := s.store.Snapshot()
	if err := s.snapshots.Save(ctx, snap); err != nil {
		return err
	}
	s.logger.DebugContext(ctx, "workflow snapshot saved",
		slog.Int("mrfs", len(snap.MRFs)),
		slog.Int("purchase_orders", len(snap.PurchaseOrders)),
	)
	return nil
}

// Load restores the latest saved snapshot. It reports false when none exists.
func (s *Service) Load(ctx context.Context) (bool, error) {
	if s.snapshots == nil {
		return false, nil
	}
	snap, err := s.snapshots.Latest(ctx)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := s.store.Restore(snap); err != nil {
		return false, err
	}
	return true, nil
}

func (s *Service) notifyPurchaseOrder(ctx context.Context, po PurchaseOrder) {
	recipient, project := "", ""
	if po.QuotationID != "" {
		if q, err := s.store.GetQuotation(po.QuotationID); err == nil {
			recipient = q.SupplierEmail
			project = s.projectOf(q.MRFID)
		}
	}
	if recipient == "" {
		s.logger.InfoContext(ctx, "purchase order sent without supplier email", slog.String("po", po.ID))
		return
	}
	tmpl, _ := notify.TemplateFor(notify.CategoryApproval)
	values := map[string]string{
		notify.KeySupplierName: po.SupplierName,
		notify.KeyPONumber:     po.ID,
		notify.KeyProjectName:  project,
		notify.KeyTotalAmount:  notify.FormatAmount("PHP", po.TotalAmount),
		notify.KeyDeliveryDate: po.ExpectedDelivery.String(),
		notify.KeyCompanyName:  s.company,
	}
	s.notify(ctx, tmpl.Render(recipient, values, s.sender(ctx)))
}

func (s *Service) projectOf(mrfID string) string {
	if mrfID == "" {
		return ""
	}
	mrf, err := s.store.GetMRF(mrfID)
	if err != nil {
		return ""
	}
	return mrf.Project
}

func (s *Service) sender(ctx context.Context) notify.Sender {
	id := shared.IdentityFromContext(ctx)
	company := id.Company
	if company == "" {
		company = s.company
	}
	if id.Anonymous() {
		return notify.Sender{FullName: "Procurement Team", Role: "Purchasing Department", Company: company, Contact: s.mailbox}
	}
	contact := id.Email
	if contact == "" {
		contact = s.mailbox
	}
	return notify.Sender{FullName: id.FullName, Role: id.Role, Company: company, Contact: contact}
}

func (s *Service) notify(ctx context.Context, msg notify.Message) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Send(ctx, msg); err != nil {
		s.logger.WarnContext(ctx, "send supplier message", slog.Any("error", err), slog.String("recipient", msg.Recipient))
	}
}

func (s *Service) changed(ctx context.Context, entity, action, id, status string, meta map[string]any) {
	if s.metrics != nil {
		s.metrics.Transition(entity, status)
	}
	if meta == nil {
		meta = map[string]any{}
	}
	meta["status"] = status
	s.recordAudit(ctx, action, entity, id, meta)
}

func (s *Service) rejected(ctx context.Context, entity, op, id string, err error) error {
	kind := errorKind(err)
	if s.metrics != nil {
		s.metrics.Rejection(entity, kind)
	}
	level := slog.LevelInfo
	if kind == "internal" {
		level = slog.LevelError
	}
	s.logger.Log(ctx, level, "procurement operation rejected",
		slog.String("entity", entity),
		slog.String("op", op),
		slog.String("id", id),
		slog.String("kind", kind),
		slog.Any("error", err),
	)
	return err
}

func errorKind(err error) string {
	switch {
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrInvalidState):
		return "invalid_transition"
	case errors.Is(err, ErrConstraint):
		return "constraint"
	default:
		return "internal"
	}
}

func (s *Service) recordAudit(ctx context.Context, action, entity, id string, meta map[string]any) {
	if s.audit == nil {
		return
	}
	actor := shared.IdentityFromContext(ctx).Actor()
	if err := s.audit.Record(ctx, shared.AuditLog{Actor: actor, Action: action, Entity: entity, EntityID: id, Meta: meta}); err != nil {
		s.logger.WarnContext(ctx, "record audit", slog.Any("error", err), slog.String("action", action))
	}
}

func (s *Service) recordApproval(ctx context.Context, module, id string, action shared.ApprovalAction, note string) {
	if s.approvals == nil {
		return
	}
	identity := shared.IdentityFromContext(ctx)
	err := s.approvals.Record(ctx, shared.ApprovalLog{
		Module: module,
		RefID:  shared.ApprovalRef(module, id),
		Actor:  identity.Actor(),
		Role:   identity.Role,
		Action: action,
		Note:   note,
	})
	if err != nil {
		s.logger.WarnContext(ctx, "record approval", slog.Any("error", err), slog.String("module", module), slog.String("id", id))
	}
}

func (s *Service) ensureSubmit(ctx context.Context, module, id string) {
	if s.approvals == nil {
		return
	}
	actor := shared.IdentityFromContext(ctx).Actor()
	if err := s.approvals.EnsureSubmit(ctx, module, shared.ApprovalRef(module, id), actor, id); err != nil {
		s.logger.WarnContext(ctx, "record submit", slog.Any("error", err), slog.String("module", module), slog.String("id", id))
	}
}
