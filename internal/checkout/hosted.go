package checkout

import (
	"bytes"
	"html/template"
	"net/http"
	"net/url"
	"strconv"

	"github.com/fjod/go_cart/storefront/internal/domain"
)

// FormField is one hidden input of the hosted payment form.
type FormField struct {
	Name  string
	Value string
}

// HostedForm is submitted as a full-page navigation to the payment page.
type HostedForm struct {
	Action string
	Method string
	Fields []FormField
}

// BuildHostedForm maps a signed descriptor onto the payment page's input names.
func BuildHostedForm(action string, d domain.PaymentDescriptor) HostedForm {
	return HostedForm{
		Action: action,
		Method: http.MethodGet,
		Fields: []FormField{
			{Name: "public-key", Value: d.PublicKey},
			{Name: "currency", Value: d.Currency},
			{Name: "amount-in-cents", Value: strconv.FormatInt(d.AmountInCents, 10)},
			{Name: "reference", Value: d.Reference},
			{Name: "signature:integrity", Value: d.Signature},
			{Name: "redirect-url", Value: d.RedirectURL},
		},
	}
}

// URL is the equivalent GET location of the form.
func (f HostedForm) URL() string {
	q := url.Values{}
	for _, field := range f.Fields {
		q.Add(field.Name, field.Value)
	}
	u, err := url.Parse(f.Action)
	if err != nil {
		return f.Action + "?" + q.Encode()
	}
	u.RawQuery = q.Encode()
	return u.String()
}

var hostedPage = template.Must(template.New("hosted").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>Redirecting to payment</title></head>
<body onload="document.forms[0].submit()">
<form action="{{.Action}}" method="{{.Method}}">
{{- range .Fields}}
<input type="hidden" name="{{.Name}}" value="{{.Value}}">
{{- end}}
<noscript><button type="submit">Continue to payment</button></noscript>
</form>
</body>
</html>
`))

// HTML renders a page that submits the form as soon as it loads.
func (f HostedForm) HTML() ([]byte, error) {
	var buf bytes.Buffer
	if err := hostedPage.Execute(&buf, f); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
