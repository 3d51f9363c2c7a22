package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dvalchev/storefront/internal/cart"
	"github.com/dvalchev/storefront/internal/catalog"
	"github.com/dvalchev/storefront/internal/coupon"
	"github.com/dvalchev/storefront/internal/inventory"
	"github.com/dvalchev/storefront/internal/orders/domain"
	"github.com/dvalchev/storefront/internal/orders/ports"
)

// Error kinds form the machine-readable half of every error response.
const (
	kindValidation   = "validation_error"
	kindNotFound     = "not_found"
	kindUnauthorized = "unauthorized"
	kindForbidden    = "forbidden"
	kindConflict     = "conflict"
	kindInternal     = "internal_error"
)

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, kind, message string) {
	writeJSON(w, status, map[string]any{"error": kind, "message": message})
}

// writeDomainError maps known failures onto the stable error taxonomy.
// Conflict-shaped failures (insufficient stock, coupon limit, illegal
// transitions) surface as 400 so clients treat them as retryable input
// problems, not server faults. Unknown errors become an opaque 500.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, catalog.ErrNotFound),
		errors.Is(err, coupon.ErrNotFound),
		errors.Is(err, cart.ErrNotFound),
		errors.Is(err, ports.ErrNotFound),
		errors.Is(err, inventory.ErrProductNotFound):
		writeError(w, http.StatusNotFound, kindNotFound, err.Error())

	case errors.Is(err, inventory.ErrInsufficientStock),
		errors.Is(err, coupon.ErrLimitReached),
		errors.Is(err, domain.ErrInvalidTransition),
		errors.Is(err, ports.ErrStatusConflict),
		errors.Is(err, cart.ErrVersionConflict):
		writeError(w, http.StatusBadRequest, kindConflict, err.Error())

	case errors.Is(err, cart.ErrEmpty),
		errors.Is(err, cart.ErrItemNotFound),
		errors.Is(err, cart.ErrInvalidQuantity),
		errors.Is(err, coupon.ErrInactive),
		errors.Is(err, coupon.ErrExpired),
		errors.Is(err, coupon.ErrBelowMinimum):
		writeError(w, http.StatusBadRequest, kindValidation, err.Error())

	default:
		writeError(w, http.StatusInternalServerError, kindInternal, "internal server error")
	}
}

func decodeJSON(r *http.Request, dst any) error {
	return json.NewDecoder(r.Body).Decode(dst)
}
