package procurement

import (
	"fmt"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIDGeneratorSequencesPerKind(t *testing.T) {
	ids := NewIDGenerator()
	require.Equal(t, "MRF-000001", ids.Next(KindMRF))
	require.Equal(t, "MRF-000002", ids.Next(KindMRF))
	require.Equal(t, "PO-000001", ids.Next(KindPurchaseOrder))
}

func TestIDGeneratorObserveSkipsPastExisting(t *testing.T) {
	ids := NewIDGenerator()
	ids.Observe("QUO-002")
	ids.Observe("QUO-001")
	ids.Observe("bogus")
	ids.Observe("XYZ-900")
	ids.Observe("DEL-abc")
	require.Equal(t, "QUO-000003", ids.Next(KindQuotation))
	require.Equal(t, "DEL-000001", ids.Next(KindDelivery))
}

func TestIDGeneratorConcurrentNextIsUnique(t *testing.T) {
	ids := NewIDGenerator()
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		seen = map[string]bool{}
	)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id := ids.Next(KindInventory)
			mu.Lock()
			seen[id] = true
			mu.Unlock()
		}()
	}
	wg.Wait()
	require.Len(t, seen, 50)
}

func TestRouteThreshold(t *testing.T) {
	cases := []struct {
		amount    string
		signatory string
		window    string
		dual      bool
	}{
		{"0", SignatoryProjectSupport, WindowSameDay, false},
		{"15750", SignatoryProjectSupport, WindowSameDay, false},
		{"19999.99", SignatoryProjectSupport, WindowSameDay, false},
		{"20000", SignatoryFinanceAndMD, WindowOneToTwo, true},
		{"89500", SignatoryFinanceAndMD, WindowOneToTwo, true},
	}
	for _, tc := range cases {
		t.Run(tc.amount, func(t *testing.T) {
			routing, err := Route(decimal.RequireFromString(tc.amount))
			require.NoError(t, err)
			assert.Equal(t, tc.signatory, routing.Signatory)
			assert.Equal(t, tc.window, routing.ExpectedApprovalWindow)
			assert.Equal(t, tc.dual, routing.DualApproval)
		})
	}
}

func TestRouteRejectsNegativeAmount(t *testing.T) {
	_, err := Route(decimal.NewFromInt(-1))
	require.ErrorIs(t, err, ErrValidation)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	require.Equal(t, "totalAmount", verr.Fields[0].Field)
}

func sampleInventory() []InventoryItem {
	return []InventoryItem{
		{ID: "INV-001", Name: "A4 Copy Paper", CurrentStock: 50, MinimumStock: 20, Unit: "reams"},
		{ID: "INV-002", Name: "Blue Ballpoint Pens", CurrentStock: 5, MinimumStock: 25, Unit: "boxes"},
		{ID: "INV-003", Name: "Steel Pipes (2 inch)", CurrentStock: 0, MinimumStock: 10, Unit: "pieces"},
	}
}

func TestCheckStockVerdicts(t *testing.T) {
	inventory := sampleInventory()

	got := CheckStock(StockRequest{Name: "a4 copy paper", Quantity: 10}, inventory)
	assert.True(t, got.Available)
	assert.Equal(t, ReasonSufficient, got.Reason)
	assert.Equal(t, ActionUseInventory, got.RecommendedAction)
	require.NotNil(t, got.Item)
	assert.Equal(t, "INV-001", got.Item.ID)

	got = CheckStock(StockRequest{Name: "Blue Ballpoint Pens", Quantity: 10}, inventory)
	assert.False(t, got.Available)
	assert.Equal(t, "Only 5 boxes available, need 10", got.Reason)
	assert.Equal(t, ActionPurchaseShortage, got.RecommendedAction)

	got = CheckStock(StockRequest{Name: "Steel Pipes (2 inch)", Quantity: 1}, inventory)
	assert.False(t, got.Available)
	assert.Equal(t, ReasonOutOfStock, got.Reason)
	assert.Equal(t, ActionPurchaseFull, got.RecommendedAction)

	got = CheckStock(StockRequest{Name: "Cement", Quantity: 1}, inventory)
	assert.False(t, got.Available)
	assert.Nil(t, got.Item)
	assert.Equal(t, ReasonNotInInventory, got.Reason)
	assert.Equal(t, ActionAddToInventory, got.RecommendedAction)
}

func TestCheckStockExactQuantityIsSufficient(t *testing.T) {
	got := CheckStock(StockRequest{Name: " A4 Copy Paper ", Quantity: 50}, sampleInventory())
	require.True(t, got.Available)
}

func TestCheckStockDoesNotModifyInventory(t *testing.T) {
	inventory := sampleInventory()
	got := CheckStock(StockRequest{Name: "A4 Copy Paper", Quantity: 10}, inventory)
	got.Item.CurrentStock = 0
	require.Equal(t, 50, inventory[0].CurrentStock)
}

func TestDeriveStockStatus(t *testing.T) {
	cases := []struct {
		current, minimum int
		want             StockStatus
	}{
		{0, 10, StockStatusOutOfStock},
		{-3, 0, StockStatusOutOfStock},
		{5, 25, StockStatusLowStock},
		{10, 10, StockStatusLowStock},
		{11, 10, StockStatusInStock},
	}
	for _, tc := range cases {
		t.Run(fmt.Sprintf("%d/%d", tc.current, tc.minimum), func(t *testing.T) {
			require.Equal(t, tc.want, DeriveStockStatus(tc.current, tc.minimum))
		})
	}
}

func TestStatusTransitionTables(t *testing.T) {
	require.True(t, MRFStatusSubmitted.CanTransitionTo(MRFStatusTMApproved))
	require.False(t, MRFStatusSubmitted.CanTransitionTo(MRFStatusPMApproved))
	require.False(t, MRFStatusClosed.CanTransitionTo(MRFStatusCancelled))

	require.True(t, QuotationStatusReceived.CanTransitionTo(QuotationStatusRejected))
	require.False(t, QuotationStatusPending.CanTransitionTo(QuotationStatusApproved))

	require.True(t, POStatusApproved.CanTransitionTo(POStatusSent))
	require.False(t, POStatusSent.CanTransitionTo(POStatusApproved))
	require.False(t, POStatusPendingApproval.CanTransitionTo(POStatusPendingApproval))

	require.False(t, DeliveryStatusScheduled.CanTransitionTo(DeliveryStatusDelivered))
	require.True(t, DeliveryStatusInTransit.CanTransitionTo(DeliveryStatusDelivered))
}

func TestDateJSON(t *testing.T) {
	d, err := ParseDate("2024-03-15")
	require.NoError(t, err)
	raw, err := d.MarshalJSON()
	require.NoError(t, err)
	require.JSONEq(t, `"2024-03-15"`, string(raw))

	var back Date
	require.NoError(t, back.UnmarshalJSON([]byte(`"2024-03-15T10:30:00Z"`)))
	require.Equal(t, "2024-03-15", back.String())

	_, err = ParseDate("15/03/2024")
	require.Error(t, err)
}
