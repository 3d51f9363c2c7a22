//go:build integration

package postgres_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dvalchev/storefront/internal/database"
	"github.com/dvalchev/storefront/internal/orders/adapters/postgres"
	"github.com/dvalchev/storefront/internal/orders/domain"
	"github.com/dvalchev/storefront/internal/orders/ports"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	testcontainers "github.com/testcontainers/testcontainers-go"
	testpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

func setupTestDB(t *testing.T) *pgxpool.Pool {
	t.Helper()
	ctx := context.Background()

	pgContainer, err := testpostgres.Run(ctx,
		"postgres:16-alpine",
		testpostgres.WithDatabase("test"),
		testpostgres.WithUsername("test"),
		testpostgres.WithPassword("test"),
		testpostgres.BasicWaitStrategies(),
		testcontainers.WithWaitStrategy(wait.ForLog("database system is ready to accept connections").WithOccurrence(2)),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}

	t.Cleanup(func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("failed to get connection string: %v", err)
	}

	projectRoot := findProjectRoot(t)
	migrationsPath := filepath.Join(projectRoot, "migrations")

	if _, err := database.RunMigrations(connStr, migrationsPath); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	pool, err := database.NewPool(ctx, connStr)
	if err != nil {
		t.Fatalf("failed to create pool: %v", err)
	}

	t.Cleanup(func() {
		pool.Close()
	})

	return pool
}

func findProjectRoot(t *testing.T) string {
	t.Helper()
	dir, err := os.Getwd()
	if err != nil {
		t.Fatalf("failed to get working directory: %v", err)
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			t.Fatal("could not find project root (go.mod)")
		}
		dir = parent
	}
}

func sampleOrder(id, userID string, status domain.Status) domain.Order {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return domain.Order{
		ID:     id,
		UserID: userID,
		Items: []domain.Item{
			{ProductID: "p1", Quantity: 2, UnitPrice: decimal.RequireFromString("10.00")},
			{ProductID: "p2", Quantity: 1, UnitPrice: decimal.RequireFromString("5.00")},
		},
		Address: domain.Address{
			Street: "1 Main St", City: "Springfield", State: "IL", Country: "US", ZipCode: "62701",
		},
		TotalAmount: decimal.RequireFromString("25.00"),
		Status:      status,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func TestCreateAndGetOrder(t *testing.T) {
	pool := setupTestDB(t)
	repo := postgres.NewRepository(pool)
	ctx := context.Background()

	order := sampleOrder("o1", "u1", domain.StatusPending)
	if err := repo.Create(ctx, order); err != nil {
		t.Fatalf("create: %v", err)
	}

	stored, err := repo.GetByID(ctx, "o1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}

	if stored.UserID != "u1" {
		t.Errorf("user id = %q, want u1", stored.UserID)
	}
	if !stored.TotalAmount.Equal(order.TotalAmount) {
		t.Errorf("total = %s, want %s", stored.TotalAmount, order.TotalAmount)
	}
	if len(stored.Items) != 2 {
		t.Fatalf("items = %d, want 2", len(stored.Items))
	}
	if !stored.Items[0].UnitPrice.Equal(decimal.RequireFromString("10.00")) {
		t.Errorf("unit price = %s, want 10.00", stored.Items[0].UnitPrice)
	}
}

func TestItemsKeepInsertionOrder(t *testing.T) {
	pool := setupTestDB(t)
	repo := postgres.NewRepository(pool)
	ctx := context.Background()

	order := sampleOrder("o1", "u1", domain.StatusPending)
	order.Items = []domain.Item{
		{ProductID: "zz-last-alphabetically", Quantity: 1, UnitPrice: decimal.RequireFromString("5.00")},
		{ProductID: "aa-first-alphabetically", Quantity: 2, UnitPrice: decimal.RequireFromString("10.00")},
	}
	if err := repo.Create(ctx, order); err != nil {
		t.Fatalf("create: %v", err)
	}

	stored, err := repo.GetByID(ctx, "o1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}

	if len(stored.Items) != 2 {
		t.Fatalf("items = %d, want 2", len(stored.Items))
	}
	for i, want := range order.Items {
		if stored.Items[i].ProductID != want.ProductID {
			t.Errorf("item[%d] = %s, want %s", i, stored.Items[i].ProductID, want.ProductID)
		}
	}
}

func TestGetMissingOrder(t *testing.T) {
	pool := setupTestDB(t)
	repo := postgres.NewRepository(pool)

	_, err := repo.GetByID(context.Background(), "missing")
	if !errors.Is(err, ports.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got: %v", err)
	}
}

func TestListByUserPaginates(t *testing.T) {
	pool := setupTestDB(t)
	repo := postgres.NewRepository(pool)
	ctx := context.Background()

	for _, id := range []string{"o1", "o2", "o3"} {
		order := sampleOrder(id, "u1", domain.StatusPending)
		if err := repo.Create(ctx, order); err != nil {
			t.Fatalf("create %s: %v", id, err)
		}
	}
	if err := repo.Create(ctx, sampleOrder("o4", "u2", domain.StatusPending)); err != nil {
		t.Fatalf("create o4: %v", err)
	}

	orders, err := repo.ListByUser(ctx, "u1", ports.ListFilter{Page: 1, PageSize: 2})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(orders) != 2 {
		t.Errorf("page size = %d, want 2", len(orders))
	}

	count, err := repo.CountByUser(ctx, "u1")
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 3 {
		t.Errorf("count = %d, want 3", count)
	}

	all, err := repo.ListAll(ctx, ports.ListFilter{Page: 1, PageSize: 10})
	if err != nil {
		t.Fatalf("list all: %v", err)
	}
	if len(all) != 4 {
		t.Errorf("all orders = %d, want 4", len(all))
	}

	total, err := repo.CountAll(ctx)
	if err != nil {
		t.Fatalf("count all: %v", err)
	}
	if total != 4 {
		t.Errorf("count all = %d, want 4", total)
	}
}

func TestUpdateStatusConditional(t *testing.T) {
	pool := setupTestDB(t)
	repo := postgres.NewRepository(pool)
	ctx := context.Background()

	if err := repo.Create(ctx, sampleOrder("o1", "u1", domain.StatusPending)); err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := repo.UpdateStatus(ctx, "o1", domain.StatusPending, domain.StatusProcessing); err != nil {
		t.Fatalf("first transition: %v", err)
	}

	// The expected status no longer matches; the update must refuse.
	err := repo.UpdateStatus(ctx, "o1", domain.StatusPending, domain.StatusCancelled)
	if !errors.Is(err, ports.ErrStatusConflict) {
		t.Fatalf("expected ErrStatusConflict, got: %v", err)
	}

	err = repo.UpdateStatus(ctx, "missing", domain.StatusPending, domain.StatusProcessing)
	if !errors.Is(err, ports.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got: %v", err)
	}
}
