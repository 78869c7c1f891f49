package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
)

func sampleCart() *CartSnapshot {
	return &CartSnapshot{
		ID: "cart-1",
		Items: []CartLine{
			{ID: "l1", ProductID: "P1", Product: Product{ID: "P1", Name: "Gold ring", Price: 20000, Images: []string{"a.jpg"}}, Quantity: 2, Size: "7", Subtotal: 40000},
			{ID: "l2", ProductID: "P2", Product: Product{ID: "P2", Name: "Pearl necklace", Price: 55000}, Quantity: 1, Subtotal: 55000},
		},
		Subtotal: 95000,
		Total:    95000,
	}
}

func TestTotalItems_NilAndEmpty(t *testing.T) {
	var nilCart *CartSnapshot
	assert.Equal(t, 0, nilCart.TotalItems())
	assert.True(t, nilCart.IsEmpty())

	empty := &CartSnapshot{ID: "c"}
	assert.Equal(t, 0, empty.TotalItems())
	assert.True(t, empty.IsEmpty())
}

func TestTotalItems_SumsQuantities(t *testing.T) {
	cart := sampleCart()
	assert.Equal(t, 3, cart.TotalItems())
	assert.False(t, cart.IsEmpty())
}

func TestClone_IsIndependent(t *testing.T) {
	cart := sampleCart()
	clone := cart.Clone()
	require.Equal(t, cart, clone)

	clone.Items[0].Quantity = 9
	clone.Items[0].Product.Images[0] = "changed.jpg"

	assert.Equal(t, 2, cart.Items[0].Quantity)
	assert.Equal(t, "a.jpg", cart.Items[0].Product.Images[0])
}

func TestLine(t *testing.T) {
	cart := sampleCart()
	line, ok := cart.Line("l2")
	require.True(t, ok)
	assert.Equal(t, "P2", line.ProductID)

	_, ok = cart.Line("missing")
	assert.False(t, ok)
}

func TestPriced(t *testing.T) {
	assert.True(t, sampleCart().Priced())

	unpriced := sampleCart()
	unpriced.Items[1].Product.Price = 0
	assert.False(t, unpriced.Priced())

	var nilCart *CartSnapshot
	assert.False(t, nilCart.Priced())
}

func TestValidQuantity(t *testing.T) {
	for q := -1; q <= 12; q++ {
		assert.Equal(t, q >= 1 && q <= 10, ValidQuantity(q), "quantity %d", q)
	}
}

func TestRequiresSize(t *testing.T) {
	assert.True(t, RequiresSize("Rings"))
	assert.True(t, RequiresSize(" bracelets "))
	assert.False(t, RequiresSize("necklaces"))
	assert.False(t, RequiresSize(""))
}

func TestNewOrderPayload_CopiesServerAmounts(t *testing.T) {
	cart := sampleCart()
	cart.DiscountAmount = 5000
	cart.ShippingAmount = 8000
	cart.Total = 98000
	cart.CouponCode = "WELCOME15"

	draft := OrderDraft{
		Customer:      Customer{Name: "Ana", Email: "ana@example.com", Phone: "3001234567"},
		Shipping:      ShippingAddress{Address: "Calle 1 # 2-3", City: "Medellin", Department: "Antioquia"},
		PaymentMethod: PaymentMethodWhatsApp,
	}

	payload := NewOrderPayload(draft, cart)
	assert.Equal(t, "cart-1", payload.CartID)
	assert.Equal(t, int64(98000), payload.Total)
	assert.Equal(t, int64(5000), payload.DiscountAmount)
	assert.Equal(t, "WELCOME15", payload.CouponCode)
	assert.Equal(t, "Calle 1 # 2-3, Medellin, Antioquia", payload.ShippingAddress)
	require.Len(t, payload.Items, 2)
	assert.Equal(t, OrderItem{ProductID: "P1", Name: "Gold ring", Quantity: 2, Size: "7", Price: 20000}, payload.Items[0])
}

func TestMessage(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"service", &ServiceError{Op: "cart.get", Status: 500, Message: "boom"}, "boom"},
		{"wrapped rule", fmt.Errorf("apply: %w", &BusinessRuleError{Message: "coupon expired"}), "coupon expired"},
		{"validation", &ValidationError{Fields: []FieldError{{"a", "first"}, {"b", "second"}}}, "first\nsecond"},
		{"plain", errors.New("plain"), "plain"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Message(tt.err))
		})
	}
	assert.Contains(t, Message(&TimeoutError{Op: "x"}), "too long")
	assert.Contains(t, Message(&NetworkError{Op: "x", Err: errors.New("refused")}), "connection")
}

func TestValidationError_Unwrap(t *testing.T) {
	err := NewValidationError(ErrQuantityOutOfRange, "quantity", "too many")
	assert.ErrorIs(t, err, ErrQuantityOutOfRange)
	assert.Equal(t, []string{"too many"}, err.Messages())
}

func TestPaymentDescriptor_Missing(t *testing.T) {
	full := PaymentDescriptor{PublicKey: "pub", Currency: "COP", AmountInCents: 100, Reference: "r", RedirectURL: "https://x", Signature: "s"}
	assert.Empty(t, full.Missing())
	assert.Equal(t, []string{"publicKey", "signature"}, PaymentDescriptor{Currency: "COP", AmountInCents: 1, Reference: "r", RedirectURL: "u"}.Missing())
}

func TestFormatMoney(t *testing.T) {
	clp := currency.MustParseISO("CLP")
	tests := []struct {
		name   string
		amount int64
		unit   currency.Unit
		tag    language.Tag
		want   string
	}{
		{"pesos with cents", 4000000, COP, language.English, "COP 40,000.00"},
		{"odd cents", 85001, COP, language.English, "COP 850.01"},
		{"latin american grouping", 1500000, COP, language.LatinAmericanSpanish, "COP 15,000.00"},
		{"dollars", 1999, currency.USD, language.English, "USD 19.99"},
		{"no minor unit", 500000, clp, language.English, "CLP 500,000"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatMoney(tt.amount, tt.unit, tt.tag))
		})
	}
}

func TestMinorUnitScale(t *testing.T) {
	assert.Equal(t, 2, MinorUnitScale(COP))
	assert.Equal(t, 2, MinorUnitScale(currency.USD))
	assert.Equal(t, 0, MinorUnitScale(currency.MustParseISO("CLP")))
	assert.Equal(t, 2, MinorUnitScale(currency.MustParseISO("CHF")), "unlisted currencies default to two digits")
}

func TestAmountInCents(t *testing.T) {
	assert.Equal(t, int64(8500000), AmountInCents(8500000, COP))
	assert.Equal(t, int64(500000), AmountInCents(5000, currency.MustParseISO("CLP")))
}
