// Package cart is the integration point UI surfaces use to read and mutate
// the shared cart. Every mutation goes through the remote cart service; the
// store only ever holds what the service confirmed.
package cart

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/fjod/go_cart/storefront/internal/dedup"
	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/store"
)

const DefaultNoticeTTL = 4 * time.Second

// ErrSessionReset is returned to callers whose request was still in flight
// when Reset started a new session. Its response is discarded.
var ErrSessionReset = errors.New("cart session was reset")

// API is the remote cart collaborator.
type API interface {
	Get(ctx context.Context) (*domain.CartSnapshot, error)
	Add(ctx context.Context, productID string, quantity int, size string) (*domain.CartSnapshot, error)
	UpdateQuantity(ctx context.Context, lineID string, quantity int) (*domain.CartSnapshot, error)
	Remove(ctx context.Context, lineID string) (*domain.CartSnapshot, error)
	ApplyCoupon(ctx context.Context, cartID, code string) (*domain.CartSnapshot, error)
	RemoveCoupon(ctx context.Context, cartID string) (*domain.CartSnapshot, error)
	Clear(ctx context.Context, cartID string) (*domain.CartSnapshot, error)
}

// Service is shared by every mounted Hook of one running application.
type Service struct {
	api     API
	store   *store.CartStore
	pending *dedup.Registry
	logger  *slog.Logger
	ttl     time.Duration
	now     func() time.Time

	// loaded holds the store epoch plus one of the session whose cart has
	// been fetched; zero means none.
	loaded atomic.Uint64
}

type Option func(*Service)

func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

func WithNoticeTTL(d time.Duration) Option {
	return func(s *Service) { s.ttl = d }
}

func NewService(api API, st *store.CartStore, pending *dedup.Registry, opts ...Option) *Service {
	s := &Service{
		api:     api,
		store:   st,
		pending: pending,
		logger:  slog.Default(),
		ttl:     DefaultNoticeTTL,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AddOption refines an AddToCart call.
type AddOption func(*addParams)

type addParams struct {
	size     string
	category string
}

// WithSize selects the variant size, e.g. a ring size.
func WithSize(size string) AddOption {
	return func(p *addParams) { p.size = strings.TrimSpace(size) }
}

// WithCategory lets the facade enforce that size-bearing products carry a size.
func WithCategory(category string) AddOption {
	return func(p *addParams) { p.category = category }
}

func (s *Service) AddToCart(ctx context.Context, productID string, quantity int, opts ...AddOption) (*domain.CartSnapshot, error) {
	var p addParams
	for _, opt := range opts {
		opt(&p)
	}
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return nil, domain.NewValidationError(nil, "productId", "product is required")
	}
	if !domain.ValidQuantity(quantity) {
		return nil, quantityError()
	}
	if p.size == "" && domain.RequiresSize(p.category) {
		return nil, domain.NewValidationError(nil, "size", "choose a size")
	}
	key := fmt.Sprintf("add:%s:%s:%d", productID, p.size, quantity)
	return s.mutate(ctx, key, func(ctx context.Context) (*domain.CartSnapshot, error) {
		return s.api.Add(ctx, productID, quantity, p.size)
	})
}

// ChangeQuantity rejects out-of-range values without touching the network or
// the store.
func (s *Service) ChangeQuantity(ctx context.Context, lineID string, next int) (*domain.CartSnapshot, error) {
	if !domain.ValidQuantity(next) {
		return nil, quantityError()
	}
	key := fmt.Sprintf("updateQuantity:%s:%d", lineID, next)
	return s.mutate(ctx, key, func(ctx context.Context) (*domain.CartSnapshot, error) {
		return s.api.UpdateQuantity(ctx, lineID, next)
	})
}

func (s *Service) RemoveFromCart(ctx context.Context, lineID string) (*domain.CartSnapshot, error) {
	return s.mutate(ctx, "remove:"+lineID, func(ctx context.Context) (*domain.CartSnapshot, error) {
		return s.api.Remove(ctx, lineID)
	})
}

func (s *Service) ApplyCoupon(ctx context.Context, code string) (*domain.CartSnapshot, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, domain.NewValidationError(domain.ErrEmptyCoupon, "couponCode", "enter a coupon code")
	}
	cur := s.store.Current()
	if cur.IsEmpty() {
		return nil, domain.NewValidationError(domain.ErrEmptyCart, "couponCode", "add something to your cart first")
	}
	return s.mutate(ctx, "applyCoupon:"+cur.ID+":"+code, func(ctx context.Context) (*domain.CartSnapshot, error) {
		return s.api.ApplyCoupon(ctx, cur.ID, code)
	})
}

func (s *Service) RemoveCoupon(ctx context.Context) (*domain.CartSnapshot, error) {
	cur := s.store.Current()
	if cur == nil || cur.CouponCode == "" {
		return cur, nil
	}
	return s.mutate(ctx, "removeCoupon:"+cur.ID, func(ctx context.Context) (*domain.CartSnapshot, error) {
		return s.api.RemoveCoupon(ctx, cur.ID)
	})
}

// ClearCart is a no-op when there is no cart yet.
func (s *Service) ClearCart(ctx context.Context) (*domain.CartSnapshot, error) {
	cur := s.store.Current()
	if cur == nil || cur.ID == "" {
		return cur, nil
	}
	return s.mutate(ctx, "clear:"+cur.ID, func(ctx context.Context) (*domain.CartSnapshot, error) {
		return s.api.Clear(ctx, cur.ID)
	})
}

func (s *Service) RefreshCart(ctx context.Context) (*domain.CartSnapshot, error) {
	return s.run(ctx, "get", true, s.api.Get)
}

// EnsureLoaded fetches the cart on first use in a session. A failed first
// fetch is retried by the next caller.
func (s *Service) EnsureLoaded(ctx context.Context) error {
	if s.loaded.Load() == s.store.Epoch()+1 {
		return nil
	}
	_, err := s.RefreshCart(ctx)
	return err
}

// Reset starts a new session: the held cart is dropped and the next use
// loads again. Responses to requests issued before Reset are never published.
func (s *Service) Reset() {
	s.store.Reset()
}

func (s *Service) Current() *domain.CartSnapshot {
	return s.store.Current()
}

func (s *Service) TotalItems() int {
	return s.store.Current().TotalItems()
}

func (s *Service) IsEmpty() bool {
	return s.store.Current().IsEmpty()
}

// Quantity is the last confirmed quantity of a line, or 0 if it is gone.
// UIs revert a displayed quantity to it after a failed change.
func (s *Service) Quantity(lineID string) int {
	line, ok := s.store.Current().Line(lineID)
	if !ok {
		return 0
	}
	return line.Quantity
}

// Notice converts a failed intent into a self-dismissing banner.
func (s *Service) Notice(err error) Notice {
	return Notice{Message: domain.Message(err), ExpiresAt: s.now().Add(s.ttl)}
}

// mutate runs call once per key and publishes inside the shared call, so
// callers collapsed onto one request cause a single publish. The store is
// left alone on failure.
func (s *Service) mutate(ctx context.Context, key string, call func(context.Context) (*domain.CartSnapshot, error)) (*domain.CartSnapshot, error) {
	return s.run(ctx, key, false, call)
}

func (s *Service) run(ctx context.Context, key string, load bool, call func(context.Context) (*domain.CartSnapshot, error)) (*domain.CartSnapshot, error) {
	epoch := s.store.Epoch()
	for {
		snap, err := dedup.Do(ctx, s.pending, key, func(ctx context.Context) (*domain.CartSnapshot, error) {
			started := s.store.Epoch()
			snap, err := call(ctx)
			if err != nil {
				s.logger.WarnContext(ctx, "cart intent failed", "key", key, "error", err)
				return nil, err
			}
			changed, ok := s.store.PublishIn(started, snap)
			if !ok {
				s.logger.InfoContext(ctx, "dropping cart response from a previous session", "key", key)
				return nil, ErrSessionReset
			}
			if load {
				s.markLoaded(started)
			}
			if changed {
				s.logger.DebugContext(ctx, "cart updated", "key", key, "items", snap.TotalItems(), "total", snap.Total)
			}
			return snap, nil
		})
		// A caller of the new session that joined a request of the old one
		// issues its own.
		if errors.Is(err, ErrSessionReset) && s.store.Epoch() == epoch {
			continue
		}
		if err != nil {
			return nil, err
		}
		return snap.Clone(), nil
	}
}

func (s *Service) markLoaded(epoch uint64) {
	for {
		cur := s.loaded.Load()
		if cur >= epoch+1 || s.loaded.CompareAndSwap(cur, epoch+1) {
			return
		}
	}
}

func quantityError() error {
	return domain.NewValidationError(domain.ErrQuantityOutOfRange, "quantity",
		fmt.Sprintf("quantity must be between %d and %d", domain.MinQuantity, domain.MaxQuantity))
}

// Notice is a transient user-facing message.
type Notice struct {
	Message   string
	ExpiresAt time.Time
}

// Expired reports whether the notice should no longer be shown at t.
func (n Notice) Expired(t time.Time) bool {
	return !t.Before(n.ExpiresAt)
}
