package checkout

import (
	"errors"
	"reflect"
	"strings"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/go-playground/validator/v10"
)

const (
	minPhoneDigits = 10
	maxPhoneDigits = 15
)

var fieldLabels = map[string]string{
	"customer.name":       "Name",
	"customer.email":      "Email",
	"customer.phone":      "Phone",
	"shipping.address":    "Address",
	"shipping.city":       "City",
	"shipping.department": "Department",
	"paymentMethod":       "Payment method",
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
		return validPhone(fl.Field().String())
	})
	return v
}

// validPhone accepts 10 to 15 digits once common separators are stripped.
func validPhone(phone string) bool {
	digits := 0
	for _, r := range phone {
		switch {
		case r >= '0' && r <= '9':
			digits++
		case r == ' ' || r == '-' || r == '(' || r == ')' || r == '.' || r == '+':
		default:
			return false
		}
	}
	return digits >= minPhoneDigits && digits <= maxPhoneDigits
}

func normalizeDraft(d domain.OrderDraft) domain.OrderDraft {
	trim := strings.TrimSpace
	d.Customer.Name = trim(d.Customer.Name)
	d.Customer.Email = trim(d.Customer.Email)
	d.Customer.Phone = trim(d.Customer.Phone)
	d.Customer.Document = trim(d.Customer.Document)
	d.Shipping.Address = trim(d.Shipping.Address)
	d.Shipping.City = trim(d.Shipping.City)
	d.Shipping.Department = trim(d.Shipping.Department)
	d.Shipping.PostalCode = trim(d.Shipping.PostalCode)
	d.Notes = trim(d.Notes)
	d.CouponCode = trim(d.CouponCode)
	return d
}

// validateDraft returns a *domain.ValidationError listing every invalid field
// of the draft, followed by any problem with the cart itself.
func validateDraft(v *validator.Validate, draft domain.OrderDraft, cart *domain.CartSnapshot) error {
	verr := &domain.ValidationError{}

	if err := v.Struct(draft); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return err
		}
		for _, fe := range fieldErrs {
			field := fieldPath(fe.Namespace())
			verr.Fields = append(verr.Fields, domain.FieldError{Field: field, Message: fieldMessage(field, fe.Tag())})
		}
	}

	switch {
	case cart.IsEmpty():
		verr.Err = domain.ErrEmptyCart
		verr.Fields = append(verr.Fields, domain.FieldError{Field: "cart", Message: "Your cart is empty"})
	case !cart.Priced():
		verr.Err = domain.ErrCartNotPriced
		verr.Fields = append(verr.Fields, domain.FieldError{Field: "cart", Message: "Some items in your cart have no price"})
	}

	if len(verr.Fields) == 0 {
		return nil
	}
	return verr
}

// fieldPath drops the root struct name: "OrderDraft.customer.email" -> "customer.email".
func fieldPath(namespace string) string {
	if _, rest, ok := strings.Cut(namespace, "."); ok {
		return rest
	}
	return namespace
}

func fieldMessage(field, tag string) string {
	label, ok := fieldLabels[field]
	if !ok {
		label = field
	}
	switch tag {
	case "required":
		return label + " is required"
	case "email":
		return "Enter a valid email address"
	case "phone":
		return "Phone must have between 10 and 15 digits"
	case "oneof":
		return "Choose a payment method"
	default:
		return label + " is invalid"
	}
}
