package procurement

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/procureflow/procureflow/internal/notify"
	"github.com/procureflow/procureflow/internal/platform/httpx"
	"github.com/procureflow/procureflow/internal/shared"
)

// IdempotencyHeader carries the client-chosen key for create requests.
const IdempotencyHeader = "Idempotency-Key"

// IdempotencyPort guards create requests against replays.
type IdempotencyPort interface {
	CheckAndInsert(ctx context.Context, key, module string) error
	Delete(ctx context.Context, key, module string) error
}

// Handler manages procurement endpoints.
type Handler struct {
	logger      *slog.Logger
	service     *Service
	idempotency IdempotencyPort
}

// NewHandler builds Handler instance. idempotency may be nil.
func NewHandler(logger *slog.Logger, service *Service, idempotency IdempotencyPort) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, idempotency: idempotency}
}

// MountRoutes registers procurement routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/routing", h.route)
	r.Post("/stock-check", h.stockCheck)

	r.Route("/mrfs", func(r chi.Router) {
		r.Get("/", h.listMRFs)
		r.With(h.idempotent("mrf")).Post("/", h.createMRF)
		r.Get("/{id}", h.getMRF)
		r.Get("/{id}/availability", h.mrfAvailability)
		r.Post("/{id}/submit", h.mrfAction(h.service.SubmitMRF))
		r.Post("/{id}/approve-tm", h.mrfAction(h.service.ApproveMRFByTM))
		r.Post("/{id}/approve-pm", h.mrfAction(h.service.ApproveMRFByPM))
		r.Post("/{id}/close", h.mrfAction(h.service.CloseMRF))
		r.Post("/{id}/cancel", h.mrfAction(h.service.CancelMRF))
	})

	r.Route("/quotations", func(r chi.Router) {
		r.Get("/", h.listQuotations)
		r.With(h.idempotent("quotation")).Post("/", h.requestQuotation)
		r.Get("/{id}", h.getQuotation)
		r.Post("/{id}/receive", h.receiveQuotation)
		r.Post("/{id}/approve", h.quotationAction(h.service.ApproveQuotation))
		r.Post("/{id}/reject", h.quotationAction(h.service.RejectQuotation))
		r.With(h.idempotent("purchase_order")).Post("/{id}/purchase-order", h.createPOFromQuotation)
	})

	r.Route("/purchase-orders", func(r chi.Router) {
		r.Get("/", h.listPurchaseOrders)
		r.With(h.idempotent("purchase_order")).Post("/", h.createPurchaseOrder)
		r.Get("/{id}", h.getPurchaseOrder)
		r.Post("/{id}/submit", h.poAction(h.service.SubmitPurchaseOrder))
		r.Post("/{id}/approve", h.poAction(h.service.ApprovePurchaseOrder))
		r.Post("/{id}/send", h.poAction(h.service.SendPurchaseOrder))
		r.Post("/{id}/acknowledge", h.poAction(h.service.AcknowledgePurchaseOrder))
		r.With(h.idempotent("delivery")).Post("/{id}/deliveries", h.scheduleDeliveryFromPO)
	})

	r.Route("/deliveries", func(r chi.Router) {
		r.Get("/", h.listDeliveries)
		r.With(h.idempotent("delivery")).Post("/", h.scheduleDelivery)
		r.Get("/{id}", h.getDelivery)
		r.Post("/{id}/status", h.updateDeliveryStatus)
		r.Post("/{id}/coordinate", h.coordinateDelivery)
		r.Put("/{id}/tracking", h.setTracking)
	})

	r.Route("/inventory", func(r chi.Router) {
		r.Get("/", h.listInventory)
		r.With(h.idempotent("inventory")).Post("/", h.addInventoryItem)
		r.Get("/summary", h.inventorySummary)
		r.Get("/{id}", h.getInventoryItem)
		r.Patch("/{id}", h.updateInventoryItem)
		r.Post("/{id}/adjust", h.adjustStock)
	})

	r.Get("/suppliers", h.listSuppliers)
	r.Get("/suppliers/offers", h.compareOffers)
	r.Get("/suppliers/{id}", h.getSupplier)
	r.Get("/templates", h.listTemplates)
	r.Get("/messages", h.listMessages)
	r.Post("/messages", h.composeMessage)
	r.Get("/snapshot", h.getSnapshot)
	r.Post("/snapshot", h.persistSnapshot)
	r.Get("/history/{entity}/{id}", h.history)
}

func (h *Handler) history(w http.ResponseWriter, r *http.Request) {
	trail, err := h.service.History(r.Context(), chi.URLParam(r, "entity"), chi.URLParam(r, "id"))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, trail)
}

type listResponse[T any] struct {
	Items      []T `json:"items"`
	Page       int `json:"page"`
	PerPage    int `json:"perPage"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

func paginate[T any](r *http.Request, items []T) listResponse[T] {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	perPage, _ := strconv.Atoi(r.URL.Query().Get("per_page"))
	p := shared.NewPagination(page, perPage, len(items))
	start, end := p.Bounds()
	out := items[start:end]
	if out == nil {
		out = []T{}
	}
	return listResponse[T]{Items: out, Page: p.Page, PerPage: p.PerPage, Total: p.Total, TotalPages: p.TotalPages}
}

func (h *Handler) route(w http.ResponseWriter, r *http.Request) {
	amount, err := decimal.NewFromString(strings.TrimSpace(r.URL.Query().Get("amount")))
	if err != nil {
		httpx.ValidationProblem(w, "amount must be a number", []httpx.FieldProblem{{Field: "amount", Reason: "must be a number"}})
		return
	}
	routing, err := h.service.Route(amount)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, routing)
}

func (h *Handler) stockCheck(w http.ResponseWriter, r *http.Request) {
	var req StockRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := validateStruct("stock_request", req).orNil(); err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, h.service.CheckStock(r.Context(), req))
}

func (h *Handler) listMRFs(w http.ResponseWriter, r *http.Request) {
	status := MRFStatus(r.URL.Query().Get("status"))
	if status != "" && !status.IsValid() {
		h.badStatus(w)
		return
	}
	httpx.JSON(w, http.StatusOK, paginate(r, h.service.ListMRFs(r.Context(), status)))
}

func (h *Handler) createMRF(w http.ResponseWriter, r *http.Request) {
	var input CreateMRFInput
	if !h.decode(w, r, &input) {
		return
	}
	create := h.service.CreateMRF
	if draft, _ := strconv.ParseBool(r.URL.Query().Get("draft")); draft {
		create = h.service.CreateMRFDraft
	}
	mrf, err := create(r.Context(), input)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, mrf)
}

func (h *Handler) getMRF(w http.ResponseWriter, r *http.Request) {
	mrf, err := h.service.GetMRF(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, mrf)
}

func (h *Handler) mrfAvailability(w http.ResponseWriter, r *http.Request) {
	lines, err := h.service.CheckMRFAvailability(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"lines": lines})
}

func (h *Handler) mrfAction(fn func(context.Context, string) (MaterialRequest, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mrf, err := fn(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			h.respondError(w, r, err)
			return
		}
		httpx.JSON(w, http.StatusOK, mrf)
	}
}

func (h *Handler) listQuotations(w http.ResponseWriter, r *http.Request) {
	status := QuotationStatus(r.URL.Query().Get("status"))
	if status != "" && !status.IsValid() {
		h.badStatus(w)
		return
	}
	httpx.JSON(w, http.StatusOK, paginate(r, h.service.ListQuotations(r.Context(), status)))
}

func (h *Handler) requestQuotation(w http.ResponseWriter, r *http.Request) {
	var input CreateQuotationRequestInput
	if !h.decode(w, r, &input) {
		return
	}
	q, err := h.service.RequestQuotation(r.Context(), input)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, q)
}

func (h *Handler) getQuotation(w http.ResponseWriter, r *http.Request) {
	q, err := h.service.GetQuotation(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, q)
}

func (h *Handler) receiveQuotation(w http.ResponseWriter, r *http.Request) {
	var input ReceiveQuotationInput
	if !h.decode(w, r, &input) {
		return
	}
	q, err := h.service.ReceiveQuotation(r.Context(), chi.URLParam(r, "id"), input)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, q)
}

func (h *Handler) quotationAction(fn func(context.Context, string) (Quotation, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q, err := fn(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			h.respondError(w, r, err)
			return
		}
		httpx.JSON(w, http.StatusOK, q)
	}
}

func (h *Handler) createPOFromQuotation(w http.ResponseWriter, r *http.Request) {
	var input FromQuotationInput
	if !h.decode(w, r, &input) {
		return
	}
	po, err := h.service.CreatePurchaseOrderFromQuotation(r.Context(), chi.URLParam(r, "id"), input)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, po)
}

func (h *Handler) listPurchaseOrders(w http.ResponseWriter, r *http.Request) {
	status := POStatus(r.URL.Query().Get("status"))
	if status != "" && !status.IsValid() {
		h.badStatus(w)
		return
	}
	httpx.JSON(w, http.StatusOK, paginate(r, h.service.ListPurchaseOrders(r.Context(), status)))
}

func (h *Handler) createPurchaseOrder(w http.ResponseWriter, r *http.Request) {
	var input CreatePurchaseOrderInput
	if !h.decode(w, r, &input) {
		return
	}
	po, err := h.service.CreatePurchaseOrder(r.Context(), input)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, po)
}

func (h *Handler) getPurchaseOrder(w http.ResponseWriter, r *http.Request) {
	po, err := h.service.GetPurchaseOrder(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, po)
}

func (h *Handler) poAction(fn func(context.Context, string) (PurchaseOrder, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		po, err := fn(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			h.respondError(w, r, err)
			return
		}
		httpx.JSON(w, http.StatusOK, po)
	}
}

func (h *Handler) scheduleDeliveryFromPO(w http.ResponseWriter, r *http.Request) {
	var input ScheduleDeliveryInput
	if !h.decode(w, r, &input) {
		return
	}
	d, err := h.service.ScheduleDeliveryFromPO(r.Context(), chi.URLParam(r, "id"), input)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, d)
}

func (h *Handler) listDeliveries(w http.ResponseWriter, r *http.Request) {
	status := DeliveryStatus(r.URL.Query().Get("status"))
	if status != "" && !status.IsValid() {
		h.badStatus(w)
		return
	}
	httpx.JSON(w, http.StatusOK, paginate(r, h.service.ListDeliveries(r.Context(), status)))
}

func (h *Handler) scheduleDelivery(w http.ResponseWriter, r *http.Request) {
	var input ScheduleDeliveryInput
	if !h.decode(w, r, &input) {
		return
	}
	d, err := h.service.ScheduleDelivery(r.Context(), input)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, d)
}

func (h *Handler) getDelivery(w http.ResponseWriter, r *http.Request) {
	d, err := h.service.GetDelivery(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, d)
}

func (h *Handler) updateDeliveryStatus(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Status DeliveryStatus `json:"status"`
	}
	if !h.decode(w, r, &body) {
		return
	}
	d, err := h.service.UpdateDeliveryStatus(r.Context(), chi.URLParam(r, "id"), body.Status)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, d)
}

func (h *Handler) coordinateDelivery(w http.ResponseWriter, r *http.Request) {
	var input CoordinateDeliveryInput
	if !h.decode(w, r, &input) {
		return
	}
	d, err := h.service.CoordinateDelivery(r.Context(), chi.URLParam(r, "id"), input)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, d)
}

func (h *Handler) setTracking(w http.ResponseWriter, r *http.Request) {
	var body struct {
		TrackingNumber string `json:"trackingNumber"`
	}
	if !h.decode(w, r, &body) {
		return
	}
	d, err := h.service.SetTrackingNumber(r.Context(), chi.URLParam(r, "id"), body.TrackingNumber)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, d)
}

func (h *Handler) listInventory(w http.ResponseWriter, r *http.Request) {
	status := StockStatus(r.URL.Query().Get("status"))
	if status != "" && !status.IsValid() {
		h.badStatus(w)
		return
	}
	items := h.service.ListInventory(r.Context(), status, r.URL.Query().Get("q"))
	httpx.JSON(w, http.StatusOK, paginate(r, items))
}

func (h *Handler) addInventoryItem(w http.ResponseWriter, r *http.Request) {
	var input AddInventoryItemInput
	if !h.decode(w, r, &input) {
		return
	}
	item, err := h.service.AddInventoryItem(r.Context(), input)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, item)
}

func (h *Handler) inventorySummary(w http.ResponseWriter, r *http.Request) {
	httpx.JSON(w, http.StatusOK, h.service.InventorySummary(r.Context()))
}

func (h *Handler) getInventoryItem(w http.ResponseWriter, r *http.Request) {
	item, err := h.service.GetInventoryItem(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, item)
}

func (h *Handler) updateInventoryItem(w http.ResponseWriter, r *http.Request) {
	var patch InventoryPatch
	if !h.decode(w, r, &patch) {
		return
	}
	item, err := h.service.UpdateInventoryItem(r.Context(), chi.URLParam(r, "id"), patch)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, item)
}

func (h *Handler) adjustStock(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Delta int `json:"delta"`
	}
	if !h.decode(w, r, &body) {
		return
	}
	item, err := h.service.AdjustStock(r.Context(), chi.URLParam(r, "id"), body.Delta)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, item)
}

func (h *Handler) listSuppliers(w http.ResponseWriter, r *http.Request) {
	httpx.JSON(w, http.StatusOK, paginate(r, h.service.Suppliers(r.Context(), r.URL.Query().Get("q"))))
}

func (h *Handler) getSupplier(w http.ResponseWriter, r *http.Request) {
	supplier, err := h.service.Supplier(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, supplier)
}

func (h *Handler) compareOffers(w http.ResponseWriter, r *http.Request) {
	item := strings.TrimSpace(r.URL.Query().Get("item"))
	if item == "" {
		httpx.ValidationProblem(w, "item is required", []httpx.FieldProblem{{Field: "item", Reason: "is required"}})
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"offers": h.service.CompareOffers(r.Context(), item)})
}

func (h *Handler) listTemplates(w http.ResponseWriter, r *http.Request) {
	httpx.JSON(w, http.StatusOK, map[string]any{"templates": notify.Templates()})
}

type composedMessage struct {
	notify.Message
	Mailto string `json:"mailto"`
}

func (h *Handler) listMessages(w http.ResponseWriter, r *http.Request) {
	msgs := h.service.Messages(r.Context())
	out := make([]composedMessage, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, composedMessage{Message: m, Mailto: notify.MailtoLink(m)})
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"messages": out})
}

func (h *Handler) composeMessage(w http.ResponseWriter, r *http.Request) {
	var input ComposeInput
	if !h.decode(w, r, &input) {
		return
	}
	msg, err := h.service.ComposeMessage(r.Context(), input)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	status := http.StatusOK
	if input.Send {
		status = http.StatusAccepted
	}
	httpx.JSON(w, status, composedMessage{Message: msg, Mailto: notify.MailtoLink(msg)})
}

func (h *Handler) getSnapshot(w http.ResponseWriter, r *http.Request) {
	httpx.JSON(w, http.StatusOK, h.service.Snapshot(r.Context()))
}

func (h *Handler) persistSnapshot(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Persist(r.Context()); err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusAccepted, map[string]any{"counts": h.service.Store().Counts()})
}

// idempotent rejects replays of the Idempotency-Key header and releases the key
// when the request fails so the client can retry.
func (h *Handler) idempotent(module string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := strings.TrimSpace(r.Header.Get(IdempotencyHeader))
			if key == "" || h.idempotency == nil {
				next.ServeHTTP(w, r)
				return
			}
			if err := h.idempotency.CheckAndInsert(r.Context(), key, module); err != nil {
				if errors.Is(err, shared.ErrIdempotencyConflict) {
					httpx.Problem(w, http.StatusConflict, "Duplicate Request", "request with this idempotency key was already processed")
					return
				}
				h.logger.Error("idempotency check", slog.Any("error", err), slog.String("module", module))
				httpx.RespondError(w, err)
				return
			}
			rec := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)
			if rec.status >= http.StatusBadRequest {
				if err := h.idempotency.Delete(r.Context(), key, module); err != nil {
					h.logger.Warn("release idempotency key", slog.Any("error", err), slog.String("module", module))
				}
			}
		})
	}
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, target any) bool {
	if err := httpx.DecodeJSON(r, target); err != nil {
		httpx.ValidationProblem(w, "request body is not valid JSON: "+err.Error(), nil)
		return false
	}
	return true
}

func (h *Handler) badStatus(w http.ResponseWriter) {
	httpx.ValidationProblem(w, "unknown status filter", []httpx.FieldProblem{{Field: "status", Reason: "has unsupported value"}})
}

func (h *Handler) respondError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *ValidationError
	switch {
	case errors.As(err, &verr):
		fields := make([]httpx.FieldProblem, 0, len(verr.Fields))
		for _, f := range verr.Fields {
			fields = append(fields, httpx.FieldProblem{Field: f.Field, Reason: f.Reason})
		}
		httpx.ValidationProblem(w, err.Error(), fields)
	case errors.Is(err, ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrInvalidState):
		httpx.Problem(w, http.StatusConflict, "Invalid Transition", err.Error())
	case errors.Is(err, ErrConstraint):
		httpx.Problem(w, http.StatusUnprocessableEntity, "Constraint Violated", err.Error())
	default:
		h.logger.Error("procurement request failed", slog.Any("error", err), slog.String("path", r.URL.Path))
		httpx.RespondError(w, err)
	}
}
