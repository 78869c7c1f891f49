package domain

import "strings"

type PaymentMethod string

const (
	PaymentMethodWhatsApp       PaymentMethod = "whatsapp"
	PaymentMethodHosted         PaymentMethod = "wompi"
	PaymentMethodBankTransfer   PaymentMethod = "bank_transfer"
	PaymentMethodCashOnDelivery PaymentMethod = "cash_on_delivery"
)

// Customer holds the contact fields collected at checkout.
type Customer struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Phone    string `json:"phone" validate:"required,phone"`
	Document string `json:"document,omitempty"`
}

type ShippingAddress struct {
	Address    string `json:"address" validate:"required"`
	City       string `json:"city" validate:"required"`
	Department string `json:"department" validate:"required"`
	PostalCode string `json:"postalCode,omitempty"`
}

// Line renders the address as the single line sent with an order.
func (a ShippingAddress) Line() string {
	parts := make([]string, 0, 4)
	for _, p := range []string{a.Address, a.City, a.Department, a.PostalCode} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}

// OrderDraft lives only for the duration of a checkout flow.
type OrderDraft struct {
	Customer      Customer        `json:"customer"`
	Shipping      ShippingAddress `json:"shipping"`
	PaymentMethod PaymentMethod   `json:"paymentMethod" validate:"required,oneof=whatsapp wompi bank_transfer cash_on_delivery"`
	Notes         string          `json:"notes,omitempty"`
	CouponCode    string          `json:"couponCode,omitempty"`
}

type OrderItem struct {
	ProductID string `json:"productId"`
	Name      string `json:"name"`
	Quantity  int    `json:"quantity"`
	Size      string `json:"size,omitempty"`
	Price     int64  `json:"price"`
}

// OrderPayload is what the order-creation service receives.
type OrderPayload struct {
	CartID          string          `json:"cartId"`
	Customer        Customer        `json:"customer"`
	Items           []OrderItem     `json:"items"`
	Shipping        ShippingAddress `json:"shipping"`
	ShippingAddress string          `json:"shippingAddress"`
	PaymentMethod   PaymentMethod   `json:"paymentMethod"`
	Notes           string          `json:"notes,omitempty"`
	CouponCode      string          `json:"couponCode,omitempty"`
	Subtotal        int64           `json:"subtotal"`
	DiscountAmount  int64           `json:"discountAmount"`
	ShippingAmount  int64           `json:"shippingAmount"`
	Total           int64           `json:"total"`
}

// Order is the order-creation service's acknowledgement.
type Order struct {
	ID          string `json:"id"`
	OrderNumber string `json:"orderNumber"`
	Total       int64  `json:"total"`
	Status      string `json:"status,omitempty"`
}

// NewOrderPayload copies the server-computed amounts from the snapshot.
func NewOrderPayload(draft OrderDraft, cart *CartSnapshot) OrderPayload {
	items := make([]OrderItem, 0, len(cart.Items))
	for _, line := range cart.Items {
		items = append(items, OrderItem{
			ProductID: line.ProductID,
			Name:      line.Product.Name,
			Quantity:  line.Quantity,
			Size:      line.Size,
			Price:     line.Product.Price,
		})
	}
	coupon := strings.TrimSpace(draft.CouponCode)
	if coupon == "" {
		coupon = cart.CouponCode
	}
	return OrderPayload{
		CartID:          cart.ID,
		Customer:        draft.Customer,
		Items:           items,
		Shipping:        draft.Shipping,
		ShippingAddress: draft.Shipping.Line(),
		PaymentMethod:   draft.PaymentMethod,
		Notes:           strings.TrimSpace(draft.Notes),
		CouponCode:      coupon,
		Subtotal:        cart.Subtotal,
		DiscountAmount:  cart.DiscountAmount,
		ShippingAmount:  cart.ShippingAmount,
		Total:           cart.Total,
	}
}
