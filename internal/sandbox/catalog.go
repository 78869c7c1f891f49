package sandbox

import (
	"errors"
	"net/http"
	"strings"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/shopspring/decimal"
)

var ErrProductNotFound = errors.New("product not found")

// RuleError is a business rule rejection, answered with {error, code}.
type RuleError struct {
	Status  int
	Code    string
	Message string
}

func (e *RuleError) Error() string { return e.Message }

func ruleError(code, message string) *RuleError {
	return &RuleError{Status: http.StatusUnprocessableEntity, Code: code, Message: message}
}

type catalogItem struct {
	domain.Product
	Stock int
}

// Catalog is the read-only product and coupon data the sandbox prices against.
type Catalog struct {
	products map[string]catalogItem
	coupons  map[string]Coupon
}

// Coupon is a percentage discount on the subtotal.
type Coupon struct {
	Code    string
	Percent decimal.Decimal
	Expired bool
}

func DefaultCatalog() *Catalog {
	c := &Catalog{products: map[string]catalogItem{}, coupons: map[string]Coupon{}}
	for _, item := range []catalogItem{
		{Product: domain.Product{ID: "P1", Name: "Anillo Sol", Price: 2000000, Category: "anillos"}, Stock: 25},
		{Product: domain.Product{ID: "P2", Name: "Collar Luna", Price: 6000000, Category: "collares"}, Stock: 10},
		{Product: domain.Product{ID: "P3", Name: "Pulsera Trenza", Price: 3500000, Category: "pulseras"}, Stock: 12},
		{Product: domain.Product{ID: "P4", Name: "Aretes Gota", Price: 1800000, Category: "aretes"}, Stock: 3},
	} {
		c.AddProduct(item.Product, item.Stock)
	}
	c.AddCoupon(Coupon{Code: "WELCOME15", Percent: decimal.NewFromInt(15)})
	c.AddCoupon(Coupon{Code: "SUMMER10", Percent: decimal.NewFromInt(10), Expired: true})
	return c
}

func (c *Catalog) AddProduct(p domain.Product, stock int) {
	c.products[p.ID] = catalogItem{Product: p, Stock: stock}
}

func (c *Catalog) AddCoupon(coupon Coupon) {
	c.coupons[strings.ToUpper(coupon.Code)] = coupon
}

func (c *Catalog) product(id string) (catalogItem, error) {
	p, ok := c.products[id]
	if !ok {
		return catalogItem{}, ErrProductNotFound
	}
	return p, nil
}

func (c *Catalog) coupon(code string) (Coupon, error) {
	coupon, ok := c.coupons[strings.ToUpper(strings.TrimSpace(code))]
	switch {
	case !ok:
		return Coupon{}, ruleError("coupon_not_found", "Coupon not found")
	case coupon.Expired:
		return Coupon{}, ruleError("coupon_expired", "This coupon has expired")
	}
	return coupon, nil
}

// Pricing holds the shipping policy.
type Pricing struct {
	ShippingFee      int64
	FreeShippingFrom int64
}

// price builds the snapshot the client sees. total = subtotal - discount + shipping + tax.
func (c *Catalog) price(cart *Cart, p Pricing) *domain.CartSnapshot {
	snap := &domain.CartSnapshot{ID: cart.ID, Items: make([]domain.CartLine, 0, len(cart.Lines))}
	for _, line := range cart.Lines {
		item, err := c.product(line.ProductID)
		if err != nil {
			continue
		}
		subtotal := item.Price * int64(line.Quantity)
		snap.Items = append(snap.Items, domain.CartLine{
			ID:        line.ID,
			ProductID: line.ProductID,
			Product:   item.Product,
			Quantity:  line.Quantity,
			Size:      line.Size,
			Subtotal:  subtotal,
		})
		snap.Subtotal += subtotal
	}

	if coupon, err := c.coupon(cart.CouponCode); cart.CouponCode != "" && err == nil {
		snap.CouponCode = coupon.Code
		snap.DiscountAmount = decimal.NewFromInt(snap.Subtotal).
			Mul(coupon.Percent).
			Div(decimal.NewFromInt(100)).
			Round(0).
			IntPart()
	}
	if len(snap.Items) > 0 && snap.Subtotal-snap.DiscountAmount < p.FreeShippingFrom {
		snap.ShippingAmount = p.ShippingFee
	}
	snap.Total = snap.Subtotal - snap.DiscountAmount + snap.ShippingAmount + snap.TaxAmount
	snap.ItemCount = snap.TotalItems()
	return snap
}
