package memory

import (
	"context"
	"sync"

	"github.com/dvalchev/storefront/internal/inventory"
)

// Ledger keeps stock counts in memory. The mutex makes reserve a single
// check-and-decrement step, mirroring the conditional update the Postgres
// ledger issues.
type Ledger struct {
	mu    sync.Mutex
	stock map[string]int
}

func NewLedger() *Ledger {
	return &Ledger{stock: make(map[string]int)}
}

// Seed sets the available stock for a product.
func (l *Ledger) Seed(productID string, quantity int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.stock[productID] = quantity
}

// Stock reports the current stock level for a product.
func (l *Ledger) Stock(productID string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.stock[productID]
}

func (l *Ledger) Reserve(_ context.Context, productID string, quantity int) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	current, ok := l.stock[productID]
	if !ok {
		return inventory.ErrProductNotFound
	}
	if current < quantity {
		return inventory.ErrInsufficientStock
	}

	l.stock[productID] = current - quantity
	return nil
}

func (l *Ledger) Release(_ context.Context, productID string, quantity int) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	current, ok := l.stock[productID]
	if !ok {
		return inventory.ErrProductNotFound
	}

	l.stock[productID] = current + quantity
	return nil
}
