package procurement

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/procureflow/procureflow/internal/notify"
	"github.com/procureflow/procureflow/internal/shared"
)

type memoryAudit struct {
	mu   sync.Mutex
	logs []shared.AuditLog
}

func (m *memoryAudit) Record(_ context.Context, log shared.AuditLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.logs = append(m.logs, log)
	return nil
}

func (m *memoryAudit) List(_ context.Context, entity, entityID string) ([]shared.AuditLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []shared.AuditLog
	for _, l := range m.logs {
		if l.Entity == entity && l.EntityID == entityID {
			out = append(out, l)
		}
	}
	return out, nil
}

func (m *memoryAudit) actions() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.logs))
	for _, l := range m.logs {
		out = append(out, l.Action)
	}
	return out
}

type memoryApprovals struct {
	logs    []shared.ApprovalLog
	submits map[uuid.UUID]bool
}

func (m *memoryApprovals) Record(_ context.Context, log shared.ApprovalLog) error {
	m.logs = append(m.logs, log)
	return nil
}

func (m *memoryApprovals) List(_ context.Context, module string, ref uuid.UUID) ([]shared.ApprovalLog, error) {
	var out []shared.ApprovalLog
	for _, l := range m.logs {
		if l.Module == module && l.RefID == ref {
			out = append(out, l)
		}
	}
	return out, nil
}

func (m *memoryApprovals) EnsureSubmit(_ context.Context, module string, ref uuid.UUID, actor string, note string) error {
	if m.submits == nil {
		m.submits = map[uuid.UUID]bool{}
	}
	if m.submits[ref] {
		return nil
	}
	m.submits[ref] = true
	m.logs = append(m.logs, shared.ApprovalLog{Module: module, RefID: ref, Actor: actor, Action: shared.ApprovalSubmit, Note: note})
	return nil
}

type countingMetrics struct {
	transitions map[string]int
	rejections  map[string]int
}

func newCountingMetrics() *countingMetrics {
	return &countingMetrics{transitions: map[string]int{}, rejections: map[string]int{}}
}

func (m *countingMetrics) Transition(entity, status string) { m.transitions[entity+":"+status]++ }
func (m *countingMetrics) Rejection(entity, kind string)    { m.rejections[entity+":"+kind]++ }

type memorySnapshots struct {
	mu    sync.Mutex
	saved []Snapshot
	err   error
}

func (m *memorySnapshots) Save(_ context.Context, snap Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.saved = append(m.saved, snap)
	return nil
}

func (m *memorySnapshots) Latest(_ context.Context) (Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.saved) == 0 {
		return Snapshot{}, ErrNotFound
	}
	return m.saved[len(m.saved)-1], nil
}

// stallingSnapshots holds its first save until the caller's context ends.
type stallingSnapshots struct {
	memorySnapshots
	started chan struct{}
	calls   int
}

func (m *stallingSnapshots) Save(ctx context.Context, snap Snapshot) error {
	m.mu.Lock()
	m.calls++
	first := m.calls == 1
	m.mu.Unlock()
	if first {
		close(m.started)
		<-ctx.Done()
		return ctx.Err()
	}
	return m.memorySnapshots.Save(ctx, snap)
}

type serviceFixture struct {
	service   *Service
	audit     *memoryAudit
	approvals *memoryApprovals
	metrics   *countingMetrics
	snapshots *memorySnapshots
	outbox    *notify.Outbox
}

func newServiceFixture(t *testing.T) serviceFixture {
	t.Helper()
	f := serviceFixture{
		audit:     &memoryAudit{},
		approvals: &memoryApprovals{},
		metrics:   newCountingMetrics(),
		snapshots: &memorySnapshots{},
		outbox:    &notify.Outbox{},
	}
	f.service = NewService(newTestStore(t, true), slog.New(slog.NewTextHandler(io.Discard, nil)),
		WithAudit(f.audit),
		WithApprovals(f.approvals),
		WithMetrics(f.metrics),
		WithSnapshots(f.snapshots),
		WithNotifier(f.outbox),
		WithSuppliers(SampleSupplierDirectory()),
		WithCompany("Procureflow Trading"),
	)
	return f
}

func withBuyer(ctx context.Context) context.Context {
	return shared.ContextWithIdentity(ctx, shared.Identity{
		ID:       "u-17",
		Email:    "ana.reyes@example.com",
		FullName: "Ana Reyes",
		Role:     "Procurement Officer",
	})
}

func TestServiceRecordsAuditAndApprovals(t *testing.T) {
	f := newServiceFixture(t)
	ctx := withBuyer(context.Background())

	mrf, err := f.service.CreateMRF(ctx, validMRFInput())
	require.NoError(t, err)
	_, err = f.service.ApproveMRFByTM(ctx, mrf.ID)
	require.NoError(t, err)

	require.Equal(t, []string{"MRF_CREATE", "MRF_APPROVE_TM"}, f.audit.actions())
	assert.Equal(t, "u-17", f.audit.logs[0].Actor)
	assert.Equal(t, EntityMRF, f.audit.logs[0].Entity)
	assert.Equal(t, string(MRFStatusSubmitted), f.audit.logs[0].Meta["status"])

	require.Len(t, f.approvals.logs, 2)
	assert.Equal(t, shared.ApprovalSubmit, f.approvals.logs[0].Action)
	assert.Equal(t, shared.ApprovalApprove, f.approvals.logs[1].Action)
	assert.Equal(t, shared.ApprovalRef(ApprovalModuleMRF, mrf.ID), f.approvals.logs[1].RefID)
	assert.Equal(t, "Procurement Officer", f.approvals.logs[1].Role)

	assert.Equal(t, 1, f.metrics.transitions[EntityMRF+":"+string(MRFStatusTMApproved)])
}

func TestServiceCountsRejections(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	_, err := f.service.ApprovePurchaseOrder(ctx, "PO-001")
	require.NoError(t, err)
	_, err = f.service.ApprovePurchaseOrder(ctx, "PO-001")
	require.ErrorIs(t, err, ErrInvalidState)

	_, err = f.service.GetPurchaseOrder(ctx, "PO-001")
	require.NoError(t, err)
	_, err = f.service.SendPurchaseOrder(ctx, "PO-404")
	require.ErrorIs(t, err, ErrNotFound)

	assert.Equal(t, 1, f.metrics.rejections[EntityPurchaseOrder+":invalid_transition"])
	assert.Equal(t, 1, f.metrics.rejections[EntityPurchaseOrder+":not_found"])
	assert.Equal(t, "system", f.audit.logs[0].Actor)
}

func TestRequestQuotationSendsSupplierMessage(t *testing.T) {
	f := newServiceFixture(t)

	q, err := f.service.RequestQuotation(withBuyer(context.Background()), CreateQuotationRequestInput{
		MRFID:         "MRF-002",
		SupplierName:  "Premium Steel Works Inc.",
		SupplierEmail: "orders@steelworks.com",
		Message:       "Please quote 15 pieces of 2 inch steel pipe.",
	})
	require.NoError(t, err)
	require.Equal(t, QuotationStatusPending, q.Status)

	msgs := f.outbox.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "orders@steelworks.com", msgs[0].Recipient)
	assert.Equal(t, "Request for Quotation - Construction Site A", msgs[0].Subject)
	assert.Equal(t, "Please quote 15 pieces of 2 inch steel pipe.", msgs[0].Body)
}

func TestSendPurchaseOrderUsesApprovalTemplate(t *testing.T) {
	f := newServiceFixture(t)
	ctx := withBuyer(context.Background())

	_, err := f.service.ApprovePurchaseOrder(ctx, "PO-001")
	require.NoError(t, err)
	po, err := f.service.SendPurchaseOrder(ctx, "PO-001")
	require.NoError(t, err)
	require.Equal(t, POStatusSent, po.Status)

	msgs := f.service.Messages(ctx)
	require.Len(t, msgs, 1)
	msg := msgs[0]
	assert.Equal(t, "quotes@abcsupplies.com", msg.Recipient)
	assert.Equal(t, "Purchase Order Approved - PO# PO-001", msg.Subject)
	assert.Contains(t, msg.Body, "Dear ABC Supplies Co.,")
	assert.Contains(t, msg.Body, "Project: Head Office Q1 Supplies")
	assert.Contains(t, msg.Body, "Total Amount: PHP 15,750.00")
	assert.Contains(t, msg.Body, "Delivery Date: 2024-01-25")
	assert.Contains(t, msg.Body, "Ana Reyes\nProcurement Officer\nProcureflow Trading")
	assert.Contains(t, msg.Body, "ana.reyes@example.com")
}

func TestAnonymousMessagesAreSignedWithMailbox(t *testing.T) {
	outbox := &notify.Outbox{}
	service := NewService(newTestStore(t, true), nil,
		WithNotifier(outbox),
		WithCompany("Procureflow Trading"),
		WithMailbox("purchasing@procureflow.test"),
	)
	ctx := context.Background()

	_, err := service.ApprovePurchaseOrder(ctx, "PO-001")
	require.NoError(t, err)
	_, err = service.SendPurchaseOrder(ctx, "PO-001")
	require.NoError(t, err)

	msgs := outbox.Messages()
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0].Body, "Best regards,\nProcurement Team\nPurchasing Department\nProcureflow Trading")
	assert.Contains(t, msgs[0].Body, "contact us at purchasing@procureflow.test")
	assert.NotContains(t, msgs[0].Body, "[YOUR_NAME]")
}

func TestNotifierFailureDoesNotUndoTransition(t *testing.T) {
	store := newTestStore(t, true)
	failing := notify.SinkFunc(func(context.Context, notify.Message) error { return errors.New("queue down") })
	service := NewService(store, slog.New(slog.NewTextHandler(io.Discard, nil)), WithNotifier(failing))
	ctx := context.Background()

	_, err := service.ApprovePurchaseOrder(ctx, "PO-001")
	require.NoError(t, err)
	po, err := service.SendPurchaseOrder(ctx, "PO-001")
	require.NoError(t, err)
	require.Equal(t, POStatusSent, po.Status)
}

func TestComposeMessage(t *testing.T) {
	f := newServiceFixture(t)
	ctx := withBuyer(context.Background())

	msg, err := f.service.ComposeMessage(ctx, ComposeInput{
		Category:  notify.CategoryFollowUp,
		Recipient: "sales@steelworks.com",
		Values: map[string]string{
			"supplier_name": "Steel Works Inc.",
			"PROJECT_NAME":  "Construction Site A",
			"DATE":          "2024-01-15",
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "Follow-up on Quotation Request - Construction Site A", msg.Subject)
	assert.Contains(t, msg.Body, "Dear Steel Works Inc.,")
	assert.Contains(t, msg.Body, "sent on 2024-01-15")
	assert.Empty(t, f.outbox.Messages())

	_, err = f.service.ComposeMessage(ctx, ComposeInput{Category: "newsletter", Recipient: "x@example.com"})
	require.ErrorIs(t, err, ErrValidation)

	_, err = f.service.ComposeMessage(ctx, ComposeInput{Category: notify.CategoryInquiry, Recipient: "x@example.com", Send: true})
	require.NoError(t, err)
	require.Len(t, f.outbox.Messages(), 1)
}

func TestPersistAndLoad(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	_, err := f.service.AdjustStock(ctx, "INV-002", 30)
	require.NoError(t, err)
	require.NoError(t, f.service.Persist(ctx))
	require.Len(t, f.snapshots.saved, 1)

	restored := NewService(newTestStore(t, false), nil, WithSnapshots(f.snapshots))
	ok, err := restored.Load(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	item, err := restored.GetInventoryItem(ctx, "INV-002")
	require.NoError(t, err)
	require.Equal(t, 35, item.CurrentStock)
	require.Equal(t, StockStatusInStock, item.Status)

	empty := NewService(newTestStore(t, false), nil, WithSnapshots(&memorySnapshots{}))
	ok, err = empty.Load(ctx)
	require.NoError(t, err)
	require.False(t, ok)

	f.snapshots.err = errors.New("disk full")
	require.Error(t, f.service.Persist(ctx))
}

func TestPersistAfterCancelledSaveWritesLatestState(t *testing.T) {
	snapshots := &stallingSnapshots{started: make(chan struct{})}
	service := NewService(newTestStore(t, true), nil, WithSnapshots(snapshots))

	periodicCtx, cancel := context.WithCancel(context.Background())
	periodicErr := make(chan error, 1)
	go func() { periodicErr <- service.Persist(periodicCtx) }()
	<-snapshots.started

	_, err := service.AddInventoryItem(context.Background(), AddInventoryItemInput{
		Name: "Safety Helmet", Category: "PPE", CurrentStock: 12, MinimumStock: 4, Unit: "pcs",
	})
	require.NoError(t, err)
	cancel()

	require.NoError(t, service.Persist(context.Background()))
	require.ErrorIs(t, <-periodicErr, context.Canceled)

	latest, err := snapshots.Latest(context.Background())
	require.NoError(t, err)
	names := make([]string, 0, len(latest.Inventory))
	for _, item := range latest.Inventory {
		names = append(names, item.Name)
	}
	assert.Contains(t, names, "Safety Helmet")
}

func TestInventorySummaryAndFilters(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	summary := f.service.InventorySummary(ctx)
	assert.Equal(t, 3, summary.Items)
	assert.Len(t, summary.LowStock, 2)
	assert.True(t, summary.TotalValue.Equal(decimal.NewFromInt(335)))

	assert.Len(t, f.service.ListInventory(ctx, StockStatusLowStock, "office"), 1)
	assert.Len(t, f.service.ListInventory(ctx, "", "steel"), 1)
}

func TestServiceHistory(t *testing.T) {
	f := newServiceFixture(t)
	ctx := withBuyer(context.Background())

	_, err := f.service.ApprovePurchaseOrder(ctx, "PO-002")
	require.NoError(t, err)
	_, err = f.service.SendPurchaseOrder(ctx, "PO-002")
	require.NoError(t, err)

	trail, err := f.service.History(ctx, EntityPurchaseOrder, "PO-002")
	require.NoError(t, err)
	require.Len(t, trail.Audit, 2)
	assert.Equal(t, string(POStatusSent), trail.Audit[1].Meta["status"])
	require.Len(t, trail.Approvals, 1)
	assert.Equal(t, shared.ApprovalApprove, trail.Approvals[0].Action)

	inv, err := f.service.History(ctx, EntityInventory, "INV-001")
	require.NoError(t, err)
	assert.Empty(t, inv.Audit)
	assert.Nil(t, inv.Approvals)

	_, err = f.service.History(ctx, EntityDelivery, "DEL-404")
	require.ErrorIs(t, err, ErrNotFound)
	_, err = f.service.History(ctx, "invoice", "INV-001")
	require.ErrorIs(t, err, ErrValidation)

	bare := NewService(newTestStore(t, true), nil)
	trail, err = bare.History(ctx, EntityMRF, "MRF-001")
	require.NoError(t, err)
	assert.Empty(t, trail.Audit)
}
