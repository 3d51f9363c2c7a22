package api_test

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dvalchev/storefront/internal/api"
	"github.com/dvalchev/storefront/internal/auth"
	"github.com/dvalchev/storefront/internal/cart"
	cartmemory "github.com/dvalchev/storefront/internal/cart/memory"
	"github.com/dvalchev/storefront/internal/catalog"
	catalogmemory "github.com/dvalchev/storefront/internal/catalog/memory"
	couponmemory "github.com/dvalchev/storefront/internal/coupon/memory"
	idemmemory "github.com/dvalchev/storefront/internal/idempotency/memory"
	inventorymemory "github.com/dvalchev/storefront/internal/inventory/memory"
	"github.com/dvalchev/storefront/internal/notify"
	ordersmemory "github.com/dvalchev/storefront/internal/orders/adapters/memory"
	"github.com/dvalchev/storefront/internal/orders/app"
	"github.com/dvalchev/storefront/internal/orders/app/commands"
	"github.com/shopspring/decimal"
)

type env struct {
	handler http.Handler
	codec   *auth.TokenCodec
	ledger  *inventorymemory.Ledger
	carts   *cartmemory.Repository
}

func newEnv(t *testing.T) *env {
	t.Helper()

	logger := slog.New(slog.DiscardHandler)

	carts := cartmemory.NewRepository()
	products := catalogmemory.NewRepository()
	ledger := inventorymemory.NewLedger()
	coupons := couponmemory.NewRepository()
	orders := ordersmemory.NewRepository()
	dispatcher := notify.NewDispatcher(notify.NewMemoryQueue(), notify.NewMemoryBroadcaster(), logger)

	seed := []catalog.Product{
		{ID: "p1", Name: "Widget", Price: decimal.NewFromFloat(10.0), Stock: 5, CreatedAt: time.Now()},
	}
	for _, p := range seed {
		if err := products.Create(context.Background(), p); err != nil {
			t.Fatalf("seed product: %v", err)
		}
		ledger.Seed(p.ID, p.Stock)
	}

	checkout := commands.NewCheckoutHandler(carts, products, ledger, coupons, orders, dispatcher)
	service := app.NewService(checkout, orders, ledger, idemmemory.NewStore(), dispatcher, logger)

	codec := auth.NewTokenCodec("test-secret", time.Hour)

	mux := http.NewServeMux()
	api.NewOrderHandler(service).Register(mux)

	return &env{
		handler: auth.Authenticate(codec, mux),
		codec:   codec,
		ledger:  ledger,
		carts:   carts,
	}
}

func (e *env) seedCart(t *testing.T, userID string, items ...cart.Item) {
	t.Helper()
	now := time.Now().UTC()
	err := e.carts.Create(context.Background(), &cart.Cart{
		ID:        "cart-" + userID,
		UserID:    userID,
		Items:     items,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("seed cart: %v", err)
	}
}

func (e *env) request(t *testing.T, method, path, body string, identity *auth.Identity, header map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if identity != nil {
		req.Header.Set("Authorization", "Bearer "+e.codec.Issue(*identity))
	}
	for key, value := range header {
		req.Header.Set(key, value)
	}

	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

const checkoutBody = `{
	"shipping_address": {
		"street": "1 Main St",
		"city": "Springfield",
		"state": "IL",
		"country": "US",
		"zip_code": "62701"
	}
}`

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var payload map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return payload
}

func TestCheckoutRequiresAuth(t *testing.T) {
	e := newEnv(t)

	rec := e.request(t, http.MethodPost, "/api/orders", checkoutBody, nil, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestCheckoutCreatesOrder(t *testing.T) {
	e := newEnv(t)
	e.seedCart(t, "u1", cart.Item{ProductID: "p1", Quantity: 2})

	identity := auth.Identity{UserID: "u1", Role: auth.RoleCustomer}
	rec := e.request(t, http.MethodPost, "/api/orders", checkoutBody, &identity, nil)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", rec.Code, rec.Body)
	}

	payload := decodeEnvelope(t, rec)
	order, ok := payload["order"].(map[string]any)
	if !ok {
		t.Fatalf("missing order in response: %v", payload)
	}
	if order["status"] != "pending" {
		t.Errorf("status = %v, want pending", order["status"])
	}
	if e.ledger.Stock("p1") != 3 {
		t.Errorf("stock = %d, want 3", e.ledger.Stock("p1"))
	}
}

func TestCheckoutIdempotencyReplay(t *testing.T) {
	e := newEnv(t)
	e.seedCart(t, "u1", cart.Item{ProductID: "p1", Quantity: 2})

	identity := auth.Identity{UserID: "u1", Role: auth.RoleCustomer}
	header := map[string]string{"Idempotency-Key": "key-1"}

	first := e.request(t, http.MethodPost, "/api/orders", checkoutBody, &identity, header)
	if first.Code != http.StatusCreated {
		t.Fatalf("first status = %d, want 201: %s", first.Code, first.Body)
	}

	// The retry replays the stored response; no new order, no new
	// stock movement.
	second := e.request(t, http.MethodPost, "/api/orders", checkoutBody, &identity, header)
	if second.Code != http.StatusCreated {
		t.Fatalf("second status = %d, want replayed 201", second.Code)
	}
	if first.Body.String() != second.Body.String() {
		t.Error("replayed body differs from original")
	}
	if e.ledger.Stock("p1") != 3 {
		t.Errorf("stock = %d, want 3 (reserved once)", e.ledger.Stock("p1"))
	}
}

func TestCheckoutInsufficientStockEnvelope(t *testing.T) {
	e := newEnv(t)
	e.seedCart(t, "u1", cart.Item{ProductID: "p1", Quantity: 10})

	identity := auth.Identity{UserID: "u1", Role: auth.RoleCustomer}
	rec := e.request(t, http.MethodPost, "/api/orders", checkoutBody, &identity, nil)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}

	payload := decodeEnvelope(t, rec)
	if payload["error"] != "conflict" {
		t.Errorf("error kind = %v, want conflict", payload["error"])
	}
	if msg, _ := payload["message"].(string); !strings.Contains(msg, "insufficient stock") {
		t.Errorf("message = %q, want insufficient stock mention", msg)
	}
}

func TestGetForeignOrderReadsAsNotFound(t *testing.T) {
	e := newEnv(t)
	e.seedCart(t, "u1", cart.Item{ProductID: "p1", Quantity: 1})

	owner := auth.Identity{UserID: "u1", Role: auth.RoleCustomer}
	rec := e.request(t, http.MethodPost, "/api/orders", checkoutBody, &owner, nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("checkout status = %d, want 201", rec.Code)
	}
	payload := decodeEnvelope(t, rec)
	orderID := payload["order"].(map[string]any)["id"].(string)

	stranger := auth.Identity{UserID: "u2", Role: auth.RoleCustomer}
	rec = e.request(t, http.MethodGet, "/api/orders/"+orderID, "", &stranger, nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}

	admin := auth.Identity{UserID: "a1", Role: auth.RoleAdmin}
	rec = e.request(t, http.MethodGet, "/api/orders/"+orderID, "", &admin, nil)
	if rec.Code != http.StatusOK {
		t.Errorf("admin status = %d, want 200", rec.Code)
	}
}

func TestStatusUpdateRequiresAdmin(t *testing.T) {
	e := newEnv(t)
	e.seedCart(t, "u1", cart.Item{ProductID: "p1", Quantity: 1})

	owner := auth.Identity{UserID: "u1", Role: auth.RoleCustomer}
	rec := e.request(t, http.MethodPost, "/api/orders", checkoutBody, &owner, nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("checkout status = %d, want 201", rec.Code)
	}
	payload := decodeEnvelope(t, rec)
	orderID := payload["order"].(map[string]any)["id"].(string)

	body := `{"status": "processing"}`

	rec = e.request(t, http.MethodPut, "/api/orders/"+orderID+"/status", body, &owner, nil)
	if rec.Code != http.StatusForbidden {
		t.Errorf("customer status update = %d, want 403", rec.Code)
	}

	admin := auth.Identity{UserID: "a1", Role: auth.RoleAdmin}
	rec = e.request(t, http.MethodPut, "/api/orders/"+orderID+"/status", body, &admin, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("admin status update = %d, want 200: %s", rec.Code, rec.Body)
	}
	payload = decodeEnvelope(t, rec)
	if payload["order"].(map[string]any)["status"] != "processing" {
		t.Errorf("status = %v, want processing", payload["order"].(map[string]any)["status"])
	}
}

func TestCancelRestoresStockOverHTTP(t *testing.T) {
	e := newEnv(t)
	e.seedCart(t, "u1", cart.Item{ProductID: "p1", Quantity: 2})

	owner := auth.Identity{UserID: "u1", Role: auth.RoleCustomer}
	rec := e.request(t, http.MethodPost, "/api/orders", checkoutBody, &owner, nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("checkout status = %d, want 201", rec.Code)
	}
	payload := decodeEnvelope(t, rec)
	orderID := payload["order"].(map[string]any)["id"].(string)

	rec = e.request(t, http.MethodPost, "/api/orders/"+orderID+"/cancel", "", &owner, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("cancel status = %d, want 200: %s", rec.Code, rec.Body)
	}
	if e.ledger.Stock("p1") != 5 {
		t.Errorf("stock = %d, want restored 5", e.ledger.Stock("p1"))
	}

	// Cancelling again is an invalid transition, surfaced as a conflict.
	rec = e.request(t, http.MethodPost, "/api/orders/"+orderID+"/cancel", "", &owner, nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("second cancel status = %d, want 400", rec.Code)
	}
	payload = decodeEnvelope(t, rec)
	if payload["error"] != "conflict" {
		t.Errorf("error kind = %v, want conflict", payload["error"])
	}
}
