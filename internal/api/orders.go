package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/dvalchev/storefront/internal/orders/app"
	"github.com/dvalchev/storefront/internal/orders/app/commands"
	"github.com/dvalchev/storefront/internal/orders/domain"
	"github.com/dvalchev/storefront/internal/orders/ports"
)

// OrderHandler exposes checkout and order lifecycle endpoints.
type OrderHandler struct {
	service *app.Service
}

func NewOrderHandler(service *app.Service) *OrderHandler {
	return &OrderHandler{service: service}
}

func (h *OrderHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/api/orders", h.handleOrders)
	mux.HandleFunc("/api/orders/", h.handleOrderByID)
}

func (h *OrderHandler) handleOrders(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.checkout(w, r)
	case http.MethodGet:
		h.listOrders(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, kindValidation, "method not allowed")
	}
}

func (h *OrderHandler) handleOrderByID(w http.ResponseWriter, r *http.Request) {
	trimmed := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/orders/"), "/")
	if trimmed == "" {
		writeError(w, http.StatusNotFound, kindNotFound, "order not found")
		return
	}

	if id, ok := strings.CutSuffix(trimmed, "/cancel"); ok {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, kindValidation, "method not allowed")
			return
		}
		h.cancelOrder(w, r, strings.Trim(id, "/"))
		return
	}

	if id, ok := strings.CutSuffix(trimmed, "/status"); ok {
		if r.Method != http.MethodPut {
			writeError(w, http.StatusMethodNotAllowed, kindValidation, "method not allowed")
			return
		}
		h.updateStatus(w, r, strings.Trim(id, "/"))
		return
	}

	if strings.Contains(trimmed, "/") {
		writeError(w, http.StatusNotFound, kindNotFound, "order not found")
		return
	}

	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, kindValidation, "method not allowed")
		return
	}
	h.getOrder(w, r, trimmed)
}

type checkoutPayload struct {
	ShippingAddress domain.Address `json:"shipping_address"`
	CouponCode      string         `json:"coupon_code"`
}

// checkout converts the caller's cart into an order. An Idempotency-Key
// header makes the request safely retryable: a reused key replays the
// first response instead of charging stock twice.
func (h *OrderHandler) checkout(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityOrFail(w, r)
	if !ok {
		return
	}

	ctx := r.Context()
	idemKey := strings.TrimSpace(r.Header.Get("Idempotency-Key"))

	if stored, err := h.service.ReplayIdempotent(ctx, idemKey); err != nil {
		writeDomainError(w, err)
		return
	} else if stored != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(stored.StatusCode)
		_, _ = w.Write(stored.Body)
		return
	}

	var payload checkoutPayload
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, kindValidation, "invalid JSON payload")
		return
	}

	order, err := h.service.Checkout(ctx, commands.CheckoutCommand{
		UserID:     identity.UserID,
		Address:    payload.ShippingAddress,
		CouponCode: payload.CouponCode,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	body, err := json.Marshal(map[string]any{"order": order})
	if err != nil {
		writeError(w, http.StatusInternalServerError, kindInternal, "internal server error")
		return
	}

	h.service.RememberIdempotent(ctx, idemKey, ports.StoredResponse{
		StatusCode: http.StatusCreated,
		Body:       body,
		OrderID:    order.ID,
	})

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_, _ = w.Write(body)
}

func (h *OrderHandler) listOrders(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityOrFail(w, r)
	if !ok {
		return
	}

	filter := ports.ListFilter{}
	filter.Page, filter.PageSize = pagination(r)

	result, err := h.service.ListOrders(r.Context(), identity, filter)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"orders": result.Orders,
		"total":  result.Total,
	})
}

func (h *OrderHandler) getOrder(w http.ResponseWriter, r *http.Request, id string) {
	identity, ok := identityOrFail(w, r)
	if !ok {
		return
	}

	order, err := h.service.GetOrder(r.Context(), id, identity)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"order": order})
}

func (h *OrderHandler) cancelOrder(w http.ResponseWriter, r *http.Request, id string) {
	identity, ok := identityOrFail(w, r)
	if !ok {
		return
	}

	order, err := h.service.Cancel(r.Context(), id, identity)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"order": order})
}

func (h *OrderHandler) updateStatus(w http.ResponseWriter, r *http.Request, id string) {
	identity, ok := identityOrFail(w, r)
	if !ok {
		return
	}
	if !identity.IsAdmin() {
		writeError(w, http.StatusForbidden, kindForbidden, "admin role required")
		return
	}

	var payload struct {
		Status string `json:"status"`
	}
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, kindValidation, "invalid JSON payload")
		return
	}

	next, err := domain.ParseStatus(payload.Status)
	if err != nil {
		writeError(w, http.StatusBadRequest, kindValidation, err.Error())
		return
	}

	order, err := h.service.Transition(r.Context(), id, next, identity)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"order": order})
}
