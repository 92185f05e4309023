package procurement

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeedSampleData(t *testing.T) {
	store := newTestStore(t, true)
	require.Equal(t, Counts{MRFs: 2, Quotations: 2, PurchaseOrders: 2, Deliveries: 2, Inventory: 3}, store.Counts())

	item, err := store.GetInventoryItem("INV-002")
	require.NoError(t, err)
	require.Equal(t, StockStatusLowStock, item.Status)

	item, err = store.GetInventoryItem("INV-003")
	require.NoError(t, err)
	require.Equal(t, StockStatusOutOfStock, item.Status)

	mrf, err := store.CreateMRF(validMRFInput())
	require.NoError(t, err)
	require.Equal(t, "MRF-000003", mrf.ID)
}

func TestSnapshotSurvivesJSONAndRestore(t *testing.T) {
	source := newTestStore(t, true)
	_, err := source.ApprovePurchaseOrder("PO-002")
	require.NoError(t, err)

	raw, err := json.Marshal(source.Snapshot())
	require.NoError(t, err)

	var snap Snapshot
	require.NoError(t, json.Unmarshal(raw, &snap))

	target := newTestStore(t, false)
	require.NoError(t, target.Restore(snap))
	require.Equal(t, source.Counts(), target.Counts())

	po, err := target.GetPurchaseOrder("PO-002")
	require.NoError(t, err)
	assert.Equal(t, POStatusApproved, po.Status)
	assert.Equal(t, PaymentTermsFundTransfer, po.PaymentTerms)
	assert.True(t, po.TotalAmount.Equal(decimal.NewFromInt(89500)))
	require.NotNil(t, po.ApprovalDate)
	assert.Equal(t, "2024-03-15", po.ApprovalDate.String())

	q, err := target.GetQuotation("QUO-002")
	require.NoError(t, err)
	assert.Nil(t, q.ResponseDate)
}

func TestRestoreRejectsBadSnapshotAndKeepsState(t *testing.T) {
	store := newTestStore(t, true)

	snap := SampleSnapshot()
	snap.MRFs[1].ID = snap.MRFs[0].ID
	snap.PurchaseOrders[0].Status = "archived"
	snap.Inventory[0].ID = ""

	err := store.Restore(snap)
	require.ErrorIs(t, err, ErrValidation)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Len(t, verr.Fields, 3)

	require.Equal(t, 2, store.Counts().MRFs)
	po, err := store.GetPurchaseOrder("PO-001")
	require.NoError(t, err)
	require.Equal(t, POStatusPendingApproval, po.Status)
}

func TestRestoreDerivesInventoryStatus(t *testing.T) {
	store := newTestStore(t, false)
	snap := SampleSnapshot()
	snap.Inventory[0].Status = StockStatusOutOfStock
	require.NoError(t, store.Restore(snap))

	item, err := store.GetInventoryItem("INV-001")
	require.NoError(t, err)
	require.Equal(t, StockStatusInStock, item.Status)
}

func TestSupplierDirectory(t *testing.T) {
	directory := SampleSupplierDirectory()

	require.Len(t, directory.Search(""), 3)
	steel := directory.Search("steel")
	require.Len(t, steel, 1)
	assert.Equal(t, "SUP-002", steel[0].ID)

	_, err := directory.Get("SUP-404")
	require.ErrorIs(t, err, ErrNotFound)

	offers := directory.CompareOffers("steel pipe")
	require.Len(t, offers, 2)
	assert.Equal(t, "ITEM-002", offers[0].ID)
	assert.Equal(t, "ITEM-001", offers[1].ID)
}
