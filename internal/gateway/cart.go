package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/fjod/go_cart/storefront/internal/domain"
)

// CartGateway turns cart intents into exactly one HTTP call each.
type CartGateway struct {
	t *Transport
}

func NewCartGateway(t *Transport) *CartGateway {
	return &CartGateway{t: t}
}

type addItemRequest struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
	Size      string `json:"size,omitempty"`
}

type updateQuantityRequest struct {
	Quantity int `json:"quantity"`
}

type couponRequest struct {
	CartID string `json:"cartId"`
	Code   string `json:"code"`
}

type clearRequest struct {
	CartID string `json:"cartId"`
}

func (g *CartGateway) Get(ctx context.Context) (*domain.CartSnapshot, error) {
	return g.call(ctx, "cart.get", http.MethodGet, g.t.endpoints.Cart, nil)
}

func (g *CartGateway) Add(ctx context.Context, productID string, quantity int, size string) (*domain.CartSnapshot, error) {
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return nil, domain.NewValidationError(nil, "productId", "product is required")
	}
	if quantity < domain.MinQuantity {
		return nil, domain.NewValidationError(domain.ErrQuantityOutOfRange, "quantity", "quantity must be at least 1")
	}
	body := addItemRequest{ProductID: productID, Quantity: quantity, Size: strings.TrimSpace(size)}
	return g.call(ctx, "cart.add", http.MethodPost, g.t.endpoints.Items, body)
}

// UpdateQuantity sets a line's quantity. Zero is rejected: removal is Remove.
func (g *CartGateway) UpdateQuantity(ctx context.Context, lineID string, quantity int) (*domain.CartSnapshot, error) {
	if !domain.ValidQuantity(quantity) {
		return nil, domain.NewValidationError(domain.ErrQuantityOutOfRange, "quantity",
			fmt.Sprintf("quantity must be between %d and %d", domain.MinQuantity, domain.MaxQuantity))
	}
	return g.call(ctx, "cart.updateQuantity", http.MethodPatch, g.itemPath(lineID), updateQuantityRequest{Quantity: quantity})
}

func (g *CartGateway) Remove(ctx context.Context, lineID string) (*domain.CartSnapshot, error) {
	return g.call(ctx, "cart.remove", http.MethodDelete, g.itemPath(lineID), nil)
}

// ApplyCoupon surfaces the service's rejection reason as a BusinessRuleError
// or ServiceError message.
func (g *CartGateway) ApplyCoupon(ctx context.Context, cartID, code string) (*domain.CartSnapshot, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, domain.NewValidationError(domain.ErrEmptyCoupon, "couponCode", "enter a coupon code")
	}
	return g.call(ctx, "cart.applyCoupon", http.MethodPost, g.t.endpoints.Coupon, couponRequest{CartID: cartID, Code: code})
}

func (g *CartGateway) RemoveCoupon(ctx context.Context, cartID string) (*domain.CartSnapshot, error) {
	path := g.t.endpoints.Coupon + "?cartId=" + url.QueryEscape(cartID)
	return g.call(ctx, "cart.removeCoupon", http.MethodDelete, path, nil)
}

func (g *CartGateway) Clear(ctx context.Context, cartID string) (*domain.CartSnapshot, error) {
	return g.call(ctx, "cart.clear", http.MethodPost, g.t.endpoints.Clear, clearRequest{CartID: cartID})
}

func (g *CartGateway) itemPath(lineID string) string {
	return fmt.Sprintf(g.t.endpoints.Item, url.PathEscape(lineID))
}

func (g *CartGateway) call(ctx context.Context, op, method, path string, in any) (*domain.CartSnapshot, error) {
	body, err := g.t.do(ctx, op, method, path, in)
	if err != nil {
		return nil, err
	}
	cart, err := decodeCart(body)
	if err != nil {
		return nil, &domain.ServiceError{Op: op, Status: http.StatusOK, Message: err.Error()}
	}
	return cart, nil
}

// decodeCart accepts a bare snapshot or one wrapped as {"cart": {...}}.
func decodeCart(body []byte) (*domain.CartSnapshot, error) {
	var envelope struct {
		Cart *domain.CartSnapshot `json:"cart"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("malformed cart response: %w", err)
	}
	cart := envelope.Cart
	if cart == nil {
		cart = &domain.CartSnapshot{}
		if err := json.Unmarshal(body, cart); err != nil {
			return nil, fmt.Errorf("malformed cart response: %w", err)
		}
	}
	if cart.Items == nil {
		cart.Items = []domain.CartLine{}
	}
	cart.ItemCount = cart.TotalItems()
	return cart, nil
}
