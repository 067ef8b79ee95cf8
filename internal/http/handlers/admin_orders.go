package handlers

import (
	"net/http"
	"strings"

	"storefront-order-service/internal/auth"
	"storefront-order-service/internal/order"
	"storefront-order-service/internal/receipt"
	"storefront-order-service/pkg/response"
)

type statusRequest struct {
	Status string `json:"status"`
	Note   string `json:"note"`
}

type eventRequest struct {
	Event string `json:"event"`
	Note  string `json:"note"`
}

type paymentRequest struct {
	PaymentMethod string `json:"paymentMethod"`
}

type notesRequest struct {
	Notes string `json:"notes"`
}

// AdminOrderList filters orders by comercio, status, free-text search and
// date bucket. Business owners only ever see their own comercio.
func (h *Handler) AdminOrderList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	status := order.Status("")
	if raw := strings.TrimSpace(q.Get("status")); raw != "" {
		parsed, err := order.ParseStatus(raw)
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		status = parsed
	}
	bucket, err := order.ParseBucket(q.Get("bucket"))
	if err != nil {
		response.Error(w, http.StatusBadRequest, "INVALID_BUCKET", "bucket must be today, week or month")
		return
	}

	f := order.Filter{
		BusinessID: strings.TrimSpace(q.Get("businessId")),
		Status:     status,
		Search:     q.Get("search"),
		Bucket:     bucket,
	}
	scope := claimsOf(r).Scope()
	if scope.Role == auth.RoleBusiness {
		f.BusinessID = scope.BusinessID
	}
	if f.BusinessID != "" && !h.guard(w, r, f.BusinessID) {
		return
	}

	orders, err := h.Orders.List(r.Context(), f)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if f.BusinessID == "" && !scope.All() {
		orders, err = h.visibleOrders(r, scope, orders)
		if err != nil {
			h.writeError(w, r, err)
			return
		}
	}
	if orders == nil {
		orders = []*order.Order{}
	}
	response.Success(w, orders)
}

func (h *Handler) visibleOrders(r *http.Request, scope auth.Scope, orders []*order.Order) ([]*order.Order, error) {
	allowed := make(map[string]bool)
	out := make([]*order.Order, 0, len(orders))
	for _, o := range orders {
		id := o.Business.ID
		ok, seen := allowed[id]
		if !seen {
			var err error
			ok, err = h.canManage(r.Context(), scope, id)
			if err != nil {
				return nil, err
			}
			allowed[id] = ok
		}
		if ok {
			out = append(out, o)
		}
	}
	return out, nil
}

// loadOrder fetches the order in the path and checks scope.
func (h *Handler) loadOrder(w http.ResponseWriter, r *http.Request) (*order.Order, bool) {
	o, err := h.Orders.Get(r.Context(), readPathString(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return nil, false
	}
	if !h.guard(w, r, o.Business.ID) {
		return nil, false
	}
	return o, true
}

func (h *Handler) AdminOrderDetail(w http.ResponseWriter, r *http.Request) {
	o, ok := h.loadOrder(w, r)
	if !ok {
		return
	}
	response.Success(w, map[string]any{
		"order":        o,
		"nextStatuses": order.Next(o.Status),
	})
}

func (h *Handler) AdminOrderStatus(w http.ResponseWriter, r *http.Request) {
	var body statusRequest
	if err := decodeJSON(r, &body); err != nil {
		invalidBody(w)
		return
	}
	status, err := order.ParseStatus(body.Status)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	o, ok := h.loadOrder(w, r)
	if !ok {
		return
	}
	updated, err := h.Orders.ChangeStatus(r.Context(), o.ID, status, actorOf(r), strings.TrimSpace(body.Note))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if updated == nil {
		h.writeError(w, r, order.ErrNotFound)
		return
	}
	response.Success(w, updated)
}

// AdminOrderEvent drives the order by a named event such as "confirm" or
// "report_problem" instead of a target status.
func (h *Handler) AdminOrderEvent(w http.ResponseWriter, r *http.Request) {
	var body eventRequest
	if err := decodeJSON(r, &body); err != nil {
		invalidBody(w)
		return
	}
	event, err := order.ParseEvent(body.Event)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	o, ok := h.loadOrder(w, r)
	if !ok {
		return
	}
	updated, err := h.Orders.Fire(r.Context(), o.ID, event, actorOf(r), strings.TrimSpace(body.Note))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if updated == nil {
		h.writeError(w, r, order.ErrNotFound)
		return
	}
	response.Success(w, updated)
}

func (h *Handler) AdminOrderPayment(w http.ResponseWriter, r *http.Request) {
	var body paymentRequest
	if err := decodeJSON(r, &body); err != nil {
		invalidBody(w)
		return
	}
	o, ok := h.loadOrder(w, r)
	if !ok {
		return
	}
	updated, err := h.Orders.SetPaymentMethod(r.Context(), o.ID, body.PaymentMethod, actorOf(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	response.Success(w, updated)
}

func (h *Handler) AdminOrderNotes(w http.ResponseWriter, r *http.Request) {
	var body notesRequest
	if err := decodeJSON(r, &body); err != nil {
		invalidBody(w)
		return
	}
	o, ok := h.loadOrder(w, r)
	if !ok {
		return
	}
	updated, err := h.Orders.SetNotes(r.Context(), o.ID, body.Notes, actorOf(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	response.Success(w, updated)
}

func (h *Handler) AdminOrderDuplicate(w http.ResponseWriter, r *http.Request) {
	o, ok := h.loadOrder(w, r)
	if !ok {
		return
	}
	dup, err := h.Orders.Duplicate(r.Context(), o.ID, actorOf(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	response.Created(w, dup)
}

// AdminOrderReceipt renders the order as a PDF, converted to the currency of
// the optional location query parameter.
func (h *Handler) AdminOrderReceipt(w http.ResponseWriter, r *http.Request) {
	o, ok := h.loadOrder(w, r)
	if !ok {
		return
	}
	rate, currency, err := h.Carts.Pricing().Rate(r.URL.Query().Get("location"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	pdf, err := receipt.Render(o, receipt.Options{Currency: currency, Rate: rate, Location: h.Config.Location()})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	response.Bytes(w, "application/pdf", receipt.Filename(o), pdf)
}
