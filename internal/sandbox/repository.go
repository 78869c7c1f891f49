// Package sandbox plays the remote collaborators of the storefront (cart,
// orders and payments services) over HTTP for local development and
// end-to-end tests.
package sandbox

import (
	"context"
	"errors"
	"sync"
	"time"
)

var ErrCartNotFound = errors.New("cart not found")

// Cart is the persisted, unpriced form of a cart. Prices and totals are
// computed on every read from the catalog.
type Cart struct {
	ID         string    `json:"id"`
	Owner      string    `json:"owner"`
	Lines      []Line    `json:"lines"`
	CouponCode string    `json:"couponCode,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

type Line struct {
	ID        string `json:"id"`
	ProductID string `json:"productId"`
	Size      string `json:"size,omitempty"`
	Quantity  int    `json:"quantity"`
}

func (c *Cart) clone() *Cart {
	out := *c
	out.Lines = append([]Line(nil), c.Lines...)
	return &out
}

// Repository stores one cart per owner.
type Repository interface {
	Get(ctx context.Context, owner string) (*Cart, error)
	Save(ctx context.Context, cart *Cart) error
	Delete(ctx context.Context, owner string) error
}

// MemoryRepository keeps carts in process memory.
type MemoryRepository struct {
	mu    sync.RWMutex
	carts map[string]*Cart
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{carts: make(map[string]*Cart)}
}

func (m *MemoryRepository) Get(_ context.Context, owner string) (*Cart, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.carts[owner]
	if !ok {
		return nil, ErrCartNotFound
	}
	return c.clone(), nil
}

func (m *MemoryRepository) Save(_ context.Context, cart *Cart) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.carts[cart.Owner] = cart.clone()
	return nil
}

func (m *MemoryRepository) Delete(_ context.Context, owner string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.carts, owner)
	return nil
}
