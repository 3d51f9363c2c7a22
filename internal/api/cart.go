package api

import (
	"net/http"
	"strings"

	"github.com/dvalchev/storefront/internal/cart"
	"github.com/dvalchev/storefront/internal/coupon"
)

// CartHandler exposes the authenticated user's cart.
type CartHandler struct {
	carts   *cart.Service
	coupons *coupon.Service
}

func NewCartHandler(carts *cart.Service, coupons *coupon.Service) *CartHandler {
	return &CartHandler{carts: carts, coupons: coupons}
}

func (h *CartHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/api/cart", h.handleCart)
	mux.HandleFunc("/api/cart/items", h.handleItems)
	mux.HandleFunc("/api/cart/items/", h.handleItemByID)
	mux.HandleFunc("/api/cart/coupon", h.handleCoupon)
}

func (h *CartHandler) handleCart(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, kindValidation, "method not allowed")
		return
	}

	identity, ok := identityOrFail(w, r)
	if !ok {
		return
	}

	userCart, err := h.carts.GetOrCreate(r.Context(), identity.UserID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	h.respondWithCart(w, r, userCart)
}

func (h *CartHandler) handleItems(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityOrFail(w, r)
	if !ok {
		return
	}

	switch r.Method {
	case http.MethodPost:
		h.addItem(w, r, identity.UserID)
	case http.MethodDelete:
		h.clearCart(w, r, identity.UserID)
	default:
		writeError(w, http.StatusMethodNotAllowed, kindValidation, "method not allowed")
	}
}

func (h *CartHandler) handleItemByID(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityOrFail(w, r)
	if !ok {
		return
	}

	productID := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/cart/items/"), "/")
	if productID == "" || strings.Contains(productID, "/") {
		writeError(w, http.StatusNotFound, kindNotFound, "cart item not found")
		return
	}

	switch r.Method {
	case http.MethodPut:
		h.updateItem(w, r, identity.UserID, productID)
	case http.MethodDelete:
		h.removeItem(w, r, identity.UserID, productID)
	default:
		writeError(w, http.StatusMethodNotAllowed, kindValidation, "method not allowed")
	}
}

type cartItemPayload struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

func (h *CartHandler) addItem(w http.ResponseWriter, r *http.Request, userID string) {
	var payload cartItemPayload
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, kindValidation, "invalid JSON payload")
		return
	}
	if payload.ProductID == "" {
		writeError(w, http.StatusBadRequest, kindValidation, "product_id is required")
		return
	}

	userCart, err := h.carts.AddItem(r.Context(), userID, payload.ProductID, payload.Quantity)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	h.respondWithCart(w, r, userCart)
}

func (h *CartHandler) updateItem(w http.ResponseWriter, r *http.Request, userID, productID string) {
	var payload struct {
		Quantity int `json:"quantity"`
	}
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, kindValidation, "invalid JSON payload")
		return
	}

	userCart, err := h.carts.UpdateQuantity(r.Context(), userID, productID, payload.Quantity)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	h.respondWithCart(w, r, userCart)
}

func (h *CartHandler) removeItem(w http.ResponseWriter, r *http.Request, userID, productID string) {
	userCart, err := h.carts.RemoveItem(r.Context(), userID, productID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	h.respondWithCart(w, r, userCart)
}

func (h *CartHandler) clearCart(w http.ResponseWriter, r *http.Request, userID string) {
	userCart, err := h.carts.Clear(r.Context(), userID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	h.respondWithCart(w, r, userCart)
}

// handleCoupon quotes a coupon against the current cart total without
// consuming a redemption. The coupon is only redeemed at checkout.
func (h *CartHandler) handleCoupon(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, kindValidation, "method not allowed")
		return
	}

	identity, ok := identityOrFail(w, r)
	if !ok {
		return
	}

	var payload struct {
		Code string `json:"code"`
	}
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, kindValidation, "invalid JSON payload")
		return
	}
	if payload.Code == "" {
		writeError(w, http.StatusBadRequest, kindValidation, "code is required")
		return
	}

	userCart, err := h.carts.GetOrCreate(r.Context(), identity.UserID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	total, err := h.carts.Total(r.Context(), userCart)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	discount, err := h.coupons.Quote(r.Context(), payload.Code, total)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"code":     coupon.NormalizeCode(payload.Code),
		"total":    total,
		"discount": discount,
		"payable":  total.Sub(discount),
	})
}

func (h *CartHandler) respondWithCart(w http.ResponseWriter, r *http.Request, userCart *cart.Cart) {
	view, err := h.carts.BuildView(r.Context(), userCart)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"cart": view})
}
