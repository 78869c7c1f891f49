package sandbox

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
)

// CartService applies cart mutations for an owner and answers with the priced
// snapshot. Adding an existing (product, size) pair sums the quantities.
type CartService struct {
	repo    Repository
	catalog *Catalog
	pricing Pricing
	logger  *slog.Logger
	sfg     singleflight.Group // collapses concurrent reads of one cart

	mu sync.Mutex // serializes read-modify-write
}

func NewCartService(repo Repository, catalog *Catalog, pricing Pricing, logger *slog.Logger) *CartService {
	if logger == nil {
		logger = slog.Default()
	}
	return &CartService{repo: repo, catalog: catalog, pricing: pricing, logger: logger}
}

// load collapses concurrent reads of one owner's cart. Mutations use fetch
// so they never build on a read that started before the previous save.
func (s *CartService) load(ctx context.Context, owner string) (*Cart, error) {
	v, err, _ := s.sfg.Do(owner, func() (any, error) {
		return s.fetch(ctx, owner)
	})
	if err != nil {
		return nil, err
	}
	return v.(*Cart).clone(), nil
}

// fetch returns an empty, id-less cart for an owner that has none yet.
func (s *CartService) fetch(ctx context.Context, owner string) (*Cart, error) {
	cart, err := s.repo.Get(ctx, owner)
	if errors.Is(err, ErrCartNotFound) {
		return &Cart{Owner: owner}, nil
	}
	if err != nil {
		return nil, err
	}
	return cart, nil
}

func (s *CartService) GetCart(ctx context.Context, owner string) (*domain.CartSnapshot, error) {
	cart, err := s.load(ctx, owner)
	if err != nil {
		return nil, err
	}
	return s.catalog.price(cart, s.pricing), nil
}

func (s *CartService) AddItem(ctx context.Context, owner, productID string, quantity int, size string) (*domain.CartSnapshot, error) {
	item, err := s.catalog.product(productID)
	if err != nil {
		return nil, err
	}
	size = strings.TrimSpace(size)
	if size == "" && domain.RequiresSize(item.Category) {
		return nil, ruleError("size_required", fmt.Sprintf("%s needs a size", item.Name))
	}

	return s.mutate(ctx, owner, "", func(cart *Cart) error {
		for i, line := range cart.Lines {
			if line.ProductID == productID && line.Size == size {
				next := line.Quantity + quantity
				if err := checkQuantity(item, next); err != nil {
					return err
				}
				cart.Lines[i].Quantity = next
				return nil
			}
		}
		if err := checkQuantity(item, quantity); err != nil {
			return err
		}
		cart.Lines = append(cart.Lines, Line{ID: uuid.NewString(), ProductID: productID, Size: size, Quantity: quantity})
		return nil
	})
}

func (s *CartService) UpdateQuantity(ctx context.Context, owner, lineID string, quantity int) (*domain.CartSnapshot, error) {
	return s.mutate(ctx, owner, "", func(cart *Cart) error {
		i := lineIndex(cart, lineID)
		if i < 0 {
			return ErrLineNotFound
		}
		item, err := s.catalog.product(cart.Lines[i].ProductID)
		if err != nil {
			return err
		}
		if err := checkQuantity(item, quantity); err != nil {
			return err
		}
		cart.Lines[i].Quantity = quantity
		return nil
	})
}

func (s *CartService) RemoveItem(ctx context.Context, owner, lineID string) (*domain.CartSnapshot, error) {
	return s.mutate(ctx, owner, "", func(cart *Cart) error {
		i := lineIndex(cart, lineID)
		if i < 0 {
			return ErrLineNotFound
		}
		cart.Lines = append(cart.Lines[:i], cart.Lines[i+1:]...)
		return nil
	})
}

func (s *CartService) ApplyCoupon(ctx context.Context, owner, cartID, code string) (*domain.CartSnapshot, error) {
	return s.mutate(ctx, owner, cartID, func(cart *Cart) error {
		if len(cart.Lines) == 0 {
			return ruleError("cart_empty", "Add something to your cart before using a coupon")
		}
		coupon, err := s.catalog.coupon(code)
		if err != nil {
			return err
		}
		cart.CouponCode = coupon.Code
		return nil
	})
}

func (s *CartService) RemoveCoupon(ctx context.Context, owner, cartID string) (*domain.CartSnapshot, error) {
	return s.mutate(ctx, owner, cartID, func(cart *Cart) error {
		cart.CouponCode = ""
		return nil
	})
}

// ClearCart deletes the owner's stored cart. The next add starts a new one.
func (s *CartService) ClearCart(ctx context.Context, owner, cartID string) (*domain.CartSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cart, err := s.fetch(ctx, owner)
	if err != nil {
		return nil, err
	}
	if cartID != "" && cart.ID != "" && cartID != cart.ID {
		return nil, ErrCartMismatch
	}
	if cart.ID != "" {
		if err := s.repo.Delete(ctx, owner); err != nil {
			s.logger.ErrorContext(ctx, "delete cart failed", "owner", owner, "error", err)
			return nil, err
		}
	}
	return s.catalog.price(&Cart{Owner: owner}, s.pricing), nil
}

var (
	ErrLineNotFound = errors.New("cart line not found")
	ErrCartMismatch = &RuleError{Status: 409, Code: "cart_mismatch", Message: "This cart no longer belongs to your session"}
)

// mutate loads the owner's cart, applies fn and saves it. A cart gets its id
// on first save. cartID, when given, must name the owner's cart.
func (s *CartService) mutate(ctx context.Context, owner, cartID string, fn func(*Cart) error) (*domain.CartSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cart, err := s.fetch(ctx, owner)
	if err != nil {
		return nil, err
	}
	if cartID != "" && cart.ID != "" && cartID != cart.ID {
		return nil, ErrCartMismatch
	}
	if err := fn(cart); err != nil {
		return nil, err
	}

	now := time.Now()
	if cart.ID == "" {
		cart.ID = uuid.NewString()
		cart.CreatedAt = now
	}
	cart.UpdatedAt = now
	if err := s.repo.Save(ctx, cart); err != nil {
		s.logger.ErrorContext(ctx, "save cart failed", "owner", owner, "error", err)
		return nil, err
	}
	return s.catalog.price(cart, s.pricing), nil
}

func lineIndex(cart *Cart, lineID string) int {
	for i, line := range cart.Lines {
		if line.ID == lineID {
			return i
		}
	}
	return -1
}

func checkQuantity(item catalogItem, quantity int) error {
	if quantity < domain.MinQuantity || quantity > domain.MaxQuantity {
		return ruleError("quantity_out_of_range", fmt.Sprintf("Quantity must be between %d and %d", domain.MinQuantity, domain.MaxQuantity))
	}
	if quantity > item.Stock {
		return ruleError("insufficient_stock", fmt.Sprintf("Only %d units of %s are available", item.Stock, item.Name))
	}
	return nil
}
