package domain

// PaymentDescriptor is the signed data a hosted payment page needs.
type PaymentDescriptor struct {
	PublicKey     string `json:"publicKey"`
	Currency      string `json:"currency"`
	AmountInCents int64  `json:"amountInCents"`
	Reference     string `json:"reference"`
	RedirectURL   string `json:"redirectUrl"`
	Signature     string `json:"signature"`
}

// Missing lists the descriptor fields the payments service left empty.
func (d PaymentDescriptor) Missing() []string {
	var missing []string
	if d.PublicKey == "" {
		missing = append(missing, "publicKey")
	}
	if d.Currency == "" {
		missing = append(missing, "currency")
	}
	if d.AmountInCents <= 0 {
		missing = append(missing, "amountInCents")
	}
	if d.Reference == "" {
		missing = append(missing, "reference")
	}
	if d.RedirectURL == "" {
		missing = append(missing, "redirectUrl")
	}
	if d.Signature == "" {
		missing = append(missing, "signature")
	}
	return missing
}
