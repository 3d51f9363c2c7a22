package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/dvalchev/storefront/internal/auth"
	"github.com/dvalchev/storefront/internal/catalog"
	"github.com/shopspring/decimal"
)

// ProductHandler exposes catalog endpoints. Reads are public; writes
// require the admin role.
type ProductHandler struct {
	service *catalog.Service
}

func NewProductHandler(service *catalog.Service) *ProductHandler {
	return &ProductHandler{service: service}
}

func (h *ProductHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/api/products", h.handleProducts)
	mux.HandleFunc("/api/products/", h.handleProductByID)
}

func (h *ProductHandler) handleProducts(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.listProducts(w, r)
	case http.MethodPost:
		h.createProduct(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, kindValidation, "method not allowed")
	}
}

func (h *ProductHandler) handleProductByID(w http.ResponseWriter, r *http.Request) {
	id := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/products/"), "/")
	if id == "" || strings.Contains(id, "/") {
		writeError(w, http.StatusNotFound, kindNotFound, "product not found")
		return
	}

	switch r.Method {
	case http.MethodGet:
		h.getProduct(w, r, id)
	case http.MethodPut:
		h.updateProduct(w, r, id)
	case http.MethodDelete:
		h.deleteProduct(w, r, id)
	default:
		writeError(w, http.StatusMethodNotAllowed, kindValidation, "method not allowed")
	}
}

func (h *ProductHandler) listProducts(w http.ResponseWriter, r *http.Request) {
	filter := catalog.ListFilter{Category: r.URL.Query().Get("category")}
	filter.Page, filter.PageSize = pagination(r)

	result, err := h.service.List(r.Context(), filter)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"products": result.Products,
		"total":    result.Total,
		"page":     result.Page,
		"per_page": result.PerPage,
	})
}

func (h *ProductHandler) getProduct(w http.ResponseWriter, r *http.Request, id string) {
	product, err := h.service.GetByID(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"product": product})
}

type productPayload struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Category    string          `json:"category"`
	Stock       int             `json:"stock"`
	ImageURL    string          `json:"image_url"`
}

func (p productPayload) toProduct() catalog.Product {
	return catalog.Product{
		Name:        p.Name,
		Description: p.Description,
		Price:       p.Price,
		Category:    p.Category,
		Stock:       p.Stock,
		ImageURL:    p.ImageURL,
	}
}

func (h *ProductHandler) createProduct(w http.ResponseWriter, r *http.Request) {
	if !requireAdmin(w, r) {
		return
	}

	var payload productPayload
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, kindValidation, "invalid JSON payload")
		return
	}

	product, err := h.service.Create(r.Context(), payload.toProduct())
	if err != nil {
		writeError(w, http.StatusBadRequest, kindValidation, err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{"product": product})
}

func (h *ProductHandler) updateProduct(w http.ResponseWriter, r *http.Request, id string) {
	if !requireAdmin(w, r) {
		return
	}

	var payload productPayload
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, kindValidation, "invalid JSON payload")
		return
	}

	product := payload.toProduct()
	product.ID = id

	updated, err := h.service.Update(r.Context(), product)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"product": updated})
}

func (h *ProductHandler) deleteProduct(w http.ResponseWriter, r *http.Request, id string) {
	if !requireAdmin(w, r) {
		return
	}

	if err := h.service.Delete(r.Context(), id); err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"deleted": id})
}

// requireAdmin enforces the admin role on write endpoints. It writes the
// response itself and reports whether the caller may proceed.
func requireAdmin(w http.ResponseWriter, r *http.Request) bool {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, kindUnauthorized, "authentication required")
		return false
	}
	if !identity.IsAdmin() {
		writeError(w, http.StatusForbidden, kindForbidden, "admin role required")
		return false
	}
	return true
}

// identityOrFail extracts the authenticated identity, writing a 401 when
// the auth middleware did not run or the request is anonymous.
func identityOrFail(w http.ResponseWriter, r *http.Request) (auth.Identity, bool) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, kindUnauthorized, "authentication required")
		return auth.Identity{}, false
	}
	return identity, true
}

func pagination(r *http.Request) (page, pageSize int) {
	if raw := r.URL.Query().Get("page"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil {
			page = parsed
		}
	}
	if raw := r.URL.Query().Get("page_size"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil {
			pageSize = parsed
		}
	}
	return page, pageSize
}
