package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/dvalchev/storefront/internal/auth"
	"github.com/dvalchev/storefront/internal/coupon"
	"github.com/shopspring/decimal"
)

// CouponHandler exposes coupon management (admin) and validation (any
// authenticated user).
type CouponHandler struct {
	service *coupon.Service
}

func NewCouponHandler(service *coupon.Service) *CouponHandler {
	return &CouponHandler{service: service}
}

func (h *CouponHandler) Register(mux *http.ServeMux) {
	// The collection endpoints are management-only; per-code routes mix
	// admin CRUD with customer validation, so they gate per method.
	mux.Handle("/api/coupons", auth.RequireRole(auth.RoleAdmin, http.HandlerFunc(h.handleCoupons)))
	mux.HandleFunc("/api/coupons/", h.handleCouponByCode)
}

func (h *CouponHandler) handleCoupons(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.listCoupons(w, r)
	case http.MethodPost:
		h.createCoupon(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, kindValidation, "method not allowed")
	}
}

func (h *CouponHandler) handleCouponByCode(w http.ResponseWriter, r *http.Request) {
	trimmed := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/coupons/"), "/")
	if trimmed == "" {
		writeError(w, http.StatusNotFound, kindNotFound, "coupon not found")
		return
	}

	if code, ok := strings.CutSuffix(trimmed, "/validate"); ok {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, kindValidation, "method not allowed")
			return
		}
		h.validateCoupon(w, r, strings.Trim(code, "/"))
		return
	}

	if strings.Contains(trimmed, "/") {
		writeError(w, http.StatusNotFound, kindNotFound, "coupon not found")
		return
	}

	switch r.Method {
	case http.MethodGet:
		h.getCoupon(w, r, trimmed)
	case http.MethodPut:
		h.updateCoupon(w, r, trimmed)
	case http.MethodDelete:
		h.deleteCoupon(w, r, trimmed)
	default:
		writeError(w, http.StatusMethodNotAllowed, kindValidation, "method not allowed")
	}
}

func (h *CouponHandler) listCoupons(w http.ResponseWriter, r *http.Request) {
	page, pageSize := pagination(r)

	result, err := h.service.List(r.Context(), page, pageSize)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"coupons":  result.Coupons,
		"total":    result.Total,
		"page":     result.Page,
		"per_page": result.PerPage,
	})
}

type couponPayload struct {
	Code          string           `json:"code"`
	DiscountType  string           `json:"discount_type"`
	DiscountValue decimal.Decimal  `json:"discount_value"`
	MinPurchase   decimal.Decimal  `json:"min_purchase"`
	MaxDiscount   *decimal.Decimal `json:"max_discount"`
	StartDate     *time.Time       `json:"start_date"`
	EndDate       *time.Time       `json:"end_date"`
	UsageLimit    *int             `json:"usage_limit"`
	IsActive      *bool            `json:"is_active"`
}

func (p couponPayload) toCoupon() coupon.Coupon {
	c := coupon.Coupon{
		Code:          p.Code,
		DiscountType:  coupon.DiscountType(p.DiscountType),
		DiscountValue: p.DiscountValue,
		MinPurchase:   p.MinPurchase,
		MaxDiscount:   p.MaxDiscount,
		EndDate:       p.EndDate,
		UsageLimit:    p.UsageLimit,
	}
	if p.StartDate != nil {
		c.StartDate = *p.StartDate
	}
	if p.IsActive != nil {
		c.IsActive = *p.IsActive
	} else {
		c.IsActive = true
	}
	return c
}

func (h *CouponHandler) createCoupon(w http.ResponseWriter, r *http.Request) {
	var payload couponPayload
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, kindValidation, "invalid JSON payload")
		return
	}

	created, err := h.service.Create(r.Context(), payload.toCoupon())
	if err != nil {
		writeError(w, http.StatusBadRequest, kindValidation, err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{"coupon": created})
}

func (h *CouponHandler) getCoupon(w http.ResponseWriter, r *http.Request, code string) {
	if !requireAdmin(w, r) {
		return
	}

	found, err := h.service.GetByCode(r.Context(), code)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"coupon": found})
}

func (h *CouponHandler) updateCoupon(w http.ResponseWriter, r *http.Request, code string) {
	if !requireAdmin(w, r) {
		return
	}

	var payload couponPayload
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, kindValidation, "invalid JSON payload")
		return
	}

	updated := payload.toCoupon()
	updated.Code = code

	result, err := h.service.Update(r.Context(), updated)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"coupon": result})
}

func (h *CouponHandler) deleteCoupon(w http.ResponseWriter, r *http.Request, code string) {
	if !requireAdmin(w, r) {
		return
	}

	if err := h.service.Delete(r.Context(), code); err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"deleted": coupon.NormalizeCode(code)})
}

// validateCoupon quotes a coupon against a proposed total without
// consuming a redemption slot.
func (h *CouponHandler) validateCoupon(w http.ResponseWriter, r *http.Request, code string) {
	if _, ok := identityOrFail(w, r); !ok {
		return
	}

	var payload struct {
		Total decimal.Decimal `json:"total"`
	}
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, kindValidation, "invalid JSON payload")
		return
	}

	discount, err := h.service.Quote(r.Context(), code, payload.Total)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"code":     coupon.NormalizeCode(code),
		"valid":    true,
		"discount": discount,
	})
}
