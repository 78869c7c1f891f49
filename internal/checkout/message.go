package checkout

import (
	"net/url"
	"strings"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"golang.org/x/text/message"
)

const whatsAppBaseURL = "https://wa.me/"

// summary is the pre-filled hand-off message. Every amount is copied from the
// service-confirmed order and cart, never recomputed.
func (o *Orchestrator) summary(order *domain.Order, draft domain.OrderDraft, cart *domain.CartSnapshot) string {
	money := func(v int64) string { return domain.FormatMoney(v, o.cfg.Currency, o.cfg.Language) }
	p := message.NewPrinter(o.cfg.Language)

	var b strings.Builder
	p.Fprintf(&b, "Hello %s! I just placed order %s.\n\n", o.cfg.StoreName, order.OrderNumber)

	b.WriteString("Items:\n")
	for _, line := range cart.Items {
		p.Fprintf(&b, "- %s x%d", line.Product.Name, line.Quantity)
		if line.Size != "" {
			p.Fprintf(&b, " (size %s)", line.Size)
		}
		p.Fprintf(&b, ": %s\n", money(line.Subtotal))
	}

	p.Fprintf(&b, "\nSubtotal: %s\n", money(cart.Subtotal))
	if cart.DiscountAmount > 0 {
		if cart.CouponCode != "" {
			p.Fprintf(&b, "Discount (%s): -%s\n", cart.CouponCode, money(cart.DiscountAmount))
		} else {
			p.Fprintf(&b, "Discount: -%s\n", money(cart.DiscountAmount))
		}
	}
	if cart.ShippingAmount > 0 {
		p.Fprintf(&b, "Shipping: %s\n", money(cart.ShippingAmount))
	} else {
		b.WriteString("Shipping: Free\n")
	}
	if cart.TaxAmount > 0 {
		p.Fprintf(&b, "Tax: %s\n", money(cart.TaxAmount))
	}
	total := order.Total
	if total == 0 {
		total = cart.Total
	}
	p.Fprintf(&b, "Total: %s\n\n", money(total))

	c := draft.Customer
	p.Fprintf(&b, "Name: %s\nEmail: %s\nPhone: %s\n", c.Name, c.Email, c.Phone)
	if c.Document != "" {
		p.Fprintf(&b, "Document: %s\n", c.Document)
	}
	p.Fprintf(&b, "Ship to: %s\n", draft.Shipping.Line())
	if draft.Notes != "" {
		p.Fprintf(&b, "Notes: %s\n", draft.Notes)
	}
	return strings.TrimRight(b.String(), "\n")
}

// whatsAppURL builds the click-to-chat link carrying text as the pre-filled message.
func whatsAppURL(number, text string) string {
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, number)
	return whatsAppBaseURL + digits + "?text=" + strings.ReplaceAll(url.QueryEscape(text), "+", "%20")
}
