package procurement

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/procureflow/procureflow/internal/notify"
	"github.com/procureflow/procureflow/internal/platform/httpx"
	"github.com/procureflow/procureflow/internal/shared"
)

func newTestRouter(t *testing.T) (http.Handler, *notify.Outbox) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	outbox := &notify.Outbox{}
	service := NewService(newTestStore(t, true), logger,
		WithNotifier(outbox),
		WithSuppliers(SampleSupplierDirectory()),
	)
	handler := NewHandler(logger, service, shared.NewIdempotencyStore(client, time.Hour))

	r := chi.NewRouter()
	r.Use(shared.IdentityMiddleware)
	r.Route("/procurement", handler.MountRoutes)
	return r, outbox
}

func doRequest(t *testing.T, h http.Handler, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decodeBody[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out), rr.Body.String())
	return out
}

func TestHandlerRouting(t *testing.T) {
	h, _ := newTestRouter(t)

	rr := doRequest(t, h, http.MethodGet, "/procurement/routing?amount=20000", "", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	routing := decodeBody[Routing](t, rr)
	assert.Equal(t, SignatoryFinanceAndMD, routing.Signatory)
	assert.True(t, routing.DualApproval)

	rr = doRequest(t, h, http.MethodGet, "/procurement/routing?amount=-3", "", nil)
	require.Equal(t, http.StatusBadRequest, rr.Code)

	rr = doRequest(t, h, http.MethodGet, "/procurement/routing?amount=lots", "", nil)
	require.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestHandlerCreateMRFValidationProblem(t *testing.T) {
	h, _ := newTestRouter(t)

	rr := doRequest(t, h, http.MethodPost, "/procurement/mrfs", `{"department":"construction","lineItems":[{"description":"Cement","quantity":3}]}`, nil)
	require.Equal(t, http.StatusBadRequest, rr.Code)
	require.Equal(t, "application/problem+json", rr.Header().Get("Content-Type"))

	problem := decodeBody[httpx.ProblemDetail](t, rr)
	fields := map[string]bool{}
	for _, f := range problem.Errors {
		fields[f.Field] = true
	}
	assert.True(t, fields["personInCharge"])
	assert.True(t, fields["requiredDate"])
	assert.True(t, fields["lineItems[0].purpose"])
}

func TestHandlerMRFFlow(t *testing.T) {
	h, _ := newTestRouter(t)
	body := `{
		"personInCharge": "Site Foreman",
		"department": "construction",
		"project": "Construction Site B",
		"requiredDate": "2024-04-10",
		"lineItems": [{"description": "Steel Pipes (2 inch)", "quantity": 4, "unit": "pieces", "urgency": "urgent", "purpose": "Scaffolding"}]
	}`
	rr := doRequest(t, h, http.MethodPost, "/procurement/mrfs", body, nil)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	mrf := decodeBody[MaterialRequest](t, rr)
	assert.Equal(t, "MRF-000003", mrf.ID)
	assert.Equal(t, MRFStatusSubmitted, mrf.Status)

	rr = doRequest(t, h, http.MethodGet, "/procurement/mrfs/"+mrf.ID+"/availability", "", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), ReasonOutOfStock)

	rr = doRequest(t, h, http.MethodPost, "/procurement/mrfs/"+mrf.ID+"/approve-pm", "", nil)
	require.Equal(t, http.StatusConflict, rr.Code)

	rr = doRequest(t, h, http.MethodPost, "/procurement/mrfs/"+mrf.ID+"/approve-tm", "", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	rr = doRequest(t, h, http.MethodGet, "/procurement/mrfs?status=tm-approved", "", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	list := decodeBody[listResponse[MaterialRequest]](t, rr)
	require.Equal(t, 1, list.Total)
	assert.Equal(t, mrf.ID, list.Items[0].ID)

	rr = doRequest(t, h, http.MethodGet, "/procurement/mrfs?status=bogus", "", nil)
	require.Equal(t, http.StatusBadRequest, rr.Code)

	rr = doRequest(t, h, http.MethodGet, "/procurement/mrfs/MRF-404", "", nil)
	require.Equal(t, http.StatusNotFound, rr.Code)
}

func TestHandlerIdempotencyKey(t *testing.T) {
	h, _ := newTestRouter(t)
	body := `{"name":"Cement","category":"Construction","currentStock":30,"minimumStock":10,"unit":"bags","unitCost":"255.00"}`
	headers := map[string]string{IdempotencyHeader: "inv-cement-1"}

	rr := doRequest(t, h, http.MethodPost, "/procurement/inventory", body, headers)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	rr = doRequest(t, h, http.MethodPost, "/procurement/inventory", body, headers)
	require.Equal(t, http.StatusConflict, rr.Code)

	bad := map[string]string{IdempotencyHeader: "inv-bad"}
	rr = doRequest(t, h, http.MethodPost, "/procurement/inventory", `{"name":""}`, bad)
	require.Equal(t, http.StatusBadRequest, rr.Code)
	rr = doRequest(t, h, http.MethodPost, "/procurement/inventory", body, bad)
	require.Equal(t, http.StatusCreated, rr.Code)
}

func TestHandlerPurchaseOrderAndDelivery(t *testing.T) {
	h, outbox := newTestRouter(t)
	identity := map[string]string{shared.HeaderUserName: "Ana Reyes", shared.HeaderUserRole: "Procurement Officer"}

	rr := doRequest(t, h, http.MethodPost, "/procurement/quotations/QUO-001/purchase-order", `{"expectedDelivery":"2024-03-30"}`, nil)
	require.Equal(t, http.StatusUnprocessableEntity, rr.Code)

	rr = doRequest(t, h, http.MethodPost, "/procurement/purchase-orders/PO-001/approve", "", identity)
	require.Equal(t, http.StatusOK, rr.Code)
	rr = doRequest(t, h, http.MethodPost, "/procurement/purchase-orders/PO-001/approve", "", identity)
	require.Equal(t, http.StatusConflict, rr.Code)

	rr = doRequest(t, h, http.MethodPost, "/procurement/purchase-orders/PO-001/send", "", identity)
	require.Equal(t, http.StatusOK, rr.Code)
	require.Len(t, outbox.Messages(), 1)

	rr = doRequest(t, h, http.MethodPost, "/procurement/purchase-orders/PO-001/deliveries",
		`{"scheduledDate":"2024-03-22","address":"Main Office","deliveryMethod":"supplier","contactPerson":"John Doe","contactNumber":"+63-917-123-4567"}`, nil)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	d := decodeBody[Delivery](t, rr)
	require.Equal(t, DeliveryStatusScheduled, d.Status)

	rr = doRequest(t, h, http.MethodPost, "/procurement/deliveries/"+d.ID+"/status", `{"status":"delivered"}`, nil)
	require.Equal(t, http.StatusConflict, rr.Code)

	rr = doRequest(t, h, http.MethodPut, "/procurement/deliveries/"+d.ID+"/tracking", `{"trackingNumber":"LLM-0042"}`, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "LLM-0042", decodeBody[Delivery](t, rr).TrackingNumber)

	rr = doRequest(t, h, http.MethodGet, "/procurement/messages", "", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "mailto:quotes@abcsupplies.com?subject=Purchase%20Order%20Approved")
}

func TestHandlerInventoryAdjustConstraint(t *testing.T) {
	h, _ := newTestRouter(t)

	rr := doRequest(t, h, http.MethodPost, "/procurement/inventory/INV-002/adjust", `{"delta":-6}`, nil)
	require.Equal(t, http.StatusUnprocessableEntity, rr.Code)

	rr = doRequest(t, h, http.MethodGet, "/procurement/inventory?status=low-stock", "", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	list := decodeBody[listResponse[InventoryItem]](t, rr)
	require.Equal(t, 1, list.Total)

	rr = doRequest(t, h, http.MethodPost, "/procurement/stock-check", `{"name":"blue ballpoint pens","quantity":10}`, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	availability := decodeBody[Availability](t, rr)
	assert.False(t, availability.Available)
	assert.Equal(t, ActionPurchaseShortage, availability.RecommendedAction)
}

func TestHandlerRejectsUnknownFields(t *testing.T) {
	h, _ := newTestRouter(t)
	rr := doRequest(t, h, http.MethodPost, "/procurement/stock-check", `{"name":"Cement","quantity":1,"colour":"grey"}`, nil)
	require.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestHandlerSuppliersAndTemplates(t *testing.T) {
	h, _ := newTestRouter(t)

	rr := doRequest(t, h, http.MethodGet, "/procurement/suppliers?q=office", "", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	suppliers := decodeBody[listResponse[Supplier]](t, rr)
	require.Equal(t, 1, suppliers.Total)

	rr = doRequest(t, h, http.MethodGet, "/procurement/suppliers/offers?item=steel%20pipe", "", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	rr = doRequest(t, h, http.MethodGet, "/procurement/suppliers/SUP-404", "", nil)
	require.Equal(t, http.StatusNotFound, rr.Code)

	rr = doRequest(t, h, http.MethodGet, "/procurement/templates", "", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "Purchase Order Approval")
}

func TestHandlerHistory(t *testing.T) {
	h, _ := newTestRouter(t)

	rr := doRequest(t, h, http.MethodGet, "/procurement/history/purchase_order/PO-001", "", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	trail := decodeBody[History](t, rr)
	assert.Equal(t, "PO-001", trail.ID)
	assert.Empty(t, trail.Audit)

	rr = doRequest(t, h, http.MethodGet, "/procurement/history/purchase_order/PO-999", "", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = doRequest(t, h, http.MethodGet, "/procurement/history/invoice/PO-001", "", nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}
