package handlers

import (
	"net/http"
	"strings"

	"storefront-order-service/internal/voucher"
	"storefront-order-service/pkg/response"
)

type voucherValidateRequest struct {
	SessionID  string `json:"sessionId"`
	Code       string `json:"code"`
	BusinessID string `json:"businessId"`
}

type voucherQuote struct {
	BusinessID string                  `json:"businessId"`
	Discount   *voucher.DiscountResult `json:"discount,omitempty"`
	Error      string                  `json:"error,omitempty"`
}

// PublicVoucherValidate previews a code against each business group of the
// cart without redeeming it.
func (h *Handler) PublicVoucherValidate(w http.ResponseWriter, r *http.Request) {
	var body voucherValidateRequest
	if err := decodeJSON(r, &body); err != nil {
		invalidBody(w)
		return
	}
	if h.Vouchers == nil {
		response.Error(w, http.StatusNotFound, string(voucher.ErrVoucherNotFound), "Vouchers are not enabled")
		return
	}
	if strings.TrimSpace(body.Code) == "" {
		response.FieldErrors(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid input", map[string]string{"code": "is required"})
		return
	}
	c, err := h.Carts.Get(r.Context(), body.SessionID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	quotes := make([]voucherQuote, 0)
	applied := 0
	for _, g := range c.Groups() {
		if body.BusinessID != "" && g.BusinessID != body.BusinessID {
			continue
		}
		items := make([]voucher.Item, 0, len(g.Items))
		for _, it := range g.Items {
			items = append(items, voucher.Item{ProductID: it.ProductID, Subtotal: it.Total()})
		}
		q := voucherQuote{BusinessID: g.BusinessID}
		res, err := h.Vouchers.Quote(r.Context(), body.Code, g.BusinessID, items)
		if err != nil {
			if verr, ok := err.(*voucher.Error); ok && verr.Code == voucher.ErrVoucherNotFound {
				h.writeError(w, r, err)
				return
			}
			q.Error = err.Error()
		} else {
			q.Discount = res
			applied++
		}
		quotes = append(quotes, q)
	}
	response.Success(w, map[string]any{
		"code":    voucher.NormalizeCode(body.Code),
		"valid":   applied > 0,
		"results": quotes,
	})
}
