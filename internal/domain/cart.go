package domain

import "strings"

// Per-line quantity bounds enforced before any request leaves the client.
// The cart service stays the final authority.
const (
	MinQuantity = 1
	MaxQuantity = 10
)

// Product is the denormalized product view carried by a cart line.
type Product struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Price    int64    `json:"price"`
	Images   []string `json:"images,omitempty"`
	Category string   `json:"category,omitempty"`
}

// CartLine is one product entry. A product appears once per distinct size.
type CartLine struct {
	ID        string  `json:"id"`
	ProductID string  `json:"productId"`
	Product   Product `json:"product"`
	Quantity  int     `json:"quantity"`
	Size      string  `json:"size,omitempty"`
	Subtotal  int64   `json:"subtotal"`
}

// CartSnapshot is the cart as last confirmed by the cart service.
// Monetary fields are in the smallest currency unit and are copied verbatim
// from the service, never recomputed here.
type CartSnapshot struct {
	ID             string     `json:"id"`
	Items          []CartLine `json:"items"`
	Subtotal       int64      `json:"subtotal"`
	DiscountAmount int64      `json:"discountAmount"`
	ShippingAmount int64      `json:"shippingAmount"`
	TaxAmount      int64      `json:"taxAmount"`
	Total          int64      `json:"total"`
	CouponCode     string     `json:"couponCode,omitempty"`
	ItemCount      int        `json:"itemCount"`
}

// TotalItems is the sum of line quantities. Safe on a nil snapshot.
func (c *CartSnapshot) TotalItems() int {
	if c == nil {
		return 0
	}
	total := 0
	for _, line := range c.Items {
		total += line.Quantity
	}
	return total
}

// IsEmpty reports whether there is nothing to check out.
func (c *CartSnapshot) IsEmpty() bool {
	return c == nil || len(c.Items) == 0
}

// Line finds a line by id.
func (c *CartSnapshot) Line(lineID string) (CartLine, bool) {
	if c == nil {
		return CartLine{}, false
	}
	for _, line := range c.Items {
		if line.ID == lineID {
			return line, true
		}
	}
	return CartLine{}, false
}

// Priced reports whether every line carries a positive unit price and the
// cart has a positive total.
func (c *CartSnapshot) Priced() bool {
	if c.IsEmpty() || c.Total <= 0 {
		return false
	}
	for _, line := range c.Items {
		if line.Product.Price <= 0 {
			return false
		}
	}
	return true
}

// Clone returns a deep copy so holders can never observe in-place edits.
func (c *CartSnapshot) Clone() *CartSnapshot {
	if c == nil {
		return nil
	}
	out := *c
	if c.Items != nil {
		out.Items = make([]CartLine, len(c.Items))
		for i, line := range c.Items {
			out.Items[i] = line
			if line.Product.Images != nil {
				out.Items[i].Product.Images = append([]string(nil), line.Product.Images...)
			}
		}
	}
	return &out
}

// ValidQuantity checks a requested line quantity against the UI ceiling.
func ValidQuantity(q int) bool {
	return q >= MinQuantity && q <= MaxQuantity
}

var sizedCategories = map[string]struct{}{
	"rings":     {},
	"ring":      {},
	"bracelets": {},
	"bracelet":  {},
	"anillos":   {},
	"pulseras":  {},
}

// RequiresSize reports whether products of the category must be added with a size.
func RequiresSize(category string) bool {
	_, ok := sizedCategories[strings.ToLower(strings.TrimSpace(category))]
	return ok
}
