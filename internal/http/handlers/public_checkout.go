package handlers

import (
	"net/http"
	"time"

	"storefront-order-service/internal/cart"
	"storefront-order-service/internal/checkout"
	"storefront-order-service/internal/order"
	"storefront-order-service/internal/pricing"
	"storefront-order-service/internal/tracking"
	"storefront-order-service/pkg/response"

	"go.uber.org/zap"
)

type checkoutRequest struct {
	SessionID string `json:"sessionId"`
	checkout.Request
}

func (h *Handler) PublicCheckout(w http.ResponseWriter, r *http.Request) {
	var body checkoutRequest
	if err := decodeJSON(r, &body); err != nil {
		invalidBody(w)
		return
	}
	result, err := h.Checkout.Checkout(r.Context(), body.SessionID, body.Request)
	if err != nil {
		if len(result.Orders) > 0 {
			// Some groups were placed before the failure; report them.
			h.attachTracking(result.Orders)
			h.Logger.Warn("checkout partially placed", zap.Int("placed", len(result.Orders)), zap.Error(err))
			response.JSON(w, http.StatusMultiStatus, map[string]any{
				"success": false,
				"error":   "CHECKOUT_PARTIAL",
				"message": err.Error(),
				"data":    result,
			})
			return
		}
		h.writeError(w, r, err)
		return
	}
	h.attachTracking(result.Orders)
	response.Created(w, result)
}

func (h *Handler) attachTracking(placed []checkout.Placed) {
	for i := range placed {
		o := placed[i].Order
		placed[i].TrackingToken = tracking.NewToken(h.Config.JWTSecret, o.Business.ID, o.ID)
	}
}

type trackedOrder struct {
	ID        string               `json:"id"`
	Number    int64                `json:"orderNumber"`
	Business  order.BusinessRef    `json:"business"`
	Status    order.Status         `json:"status"`
	Items     []cart.LineItem      `json:"items"`
	Pricing   pricing.Breakdown    `json:"pricing"`
	CreatedAt time.Time            `json:"createdAt"`
	UpdatedAt time.Time            `json:"updatedAt"`
	History   []order.HistoryEntry `json:"history"`
}

// PublicOrderTrack shows an order to whoever holds its tracking token.
func (h *Handler) PublicOrderTrack(w http.ResponseWriter, r *http.Request) {
	o, err := h.Orders.Get(r.Context(), readPathString(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if !tracking.Verify(h.Config.JWTSecret, r.URL.Query().Get("token"), o.Business.ID, o.ID) {
		h.writeError(w, r, order.ErrNotFound)
		return
	}
	history := make([]order.HistoryEntry, 0, len(o.History))
	for _, e := range o.History {
		if e.Action == order.ActionCreated || e.Action == order.ActionStatusChanged {
			e.Actor = ""
			history = append(history, e)
		}
	}
	response.Success(w, trackedOrder{
		ID:        o.ID,
		Number:    o.Number,
		Business:  o.Business,
		Status:    o.Status,
		Items:     o.Items,
		Pricing:   o.Pricing,
		CreatedAt: o.CreatedAt,
		UpdatedAt: o.UpdatedAt,
		History:   history,
	})
}
