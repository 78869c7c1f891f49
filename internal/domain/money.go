package domain

import (
	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// COP is the storefront's default currency.
var COP = currency.MustParseISO("COP")

// minorUnits is the ISO 4217 exponent of the currencies the storefront
// prices in. CLDR rounding rules differ for cash amounts (COP has 0 there),
// but every amount in this module is in ISO minor units.
var minorUnits = map[string]int{
	"COP": 2,
	"USD": 2,
	"EUR": 2,
	"MXN": 2,
	"BRL": 2,
	"PEN": 2,
	"CLP": 0,
	"PYG": 0,
	"JPY": 0,
}

// MinorUnitScale is the number of decimal digits in the currency's minor
// unit. Unknown currencies get 2.
func MinorUnitScale(unit currency.Unit) int {
	if scale, ok := minorUnits[unit.String()]; ok {
		return scale
	}
	return 2
}

// FormatMoney renders an amount in minor units, e.g. 4000000 COP in
// language.English is "COP 40,000.00".
func FormatMoney(amount int64, unit currency.Unit, tag language.Tag) string {
	scale := MinorUnitScale(unit)
	major := decimal.New(amount, -int32(scale))
	p := message.NewPrinter(tag)
	return p.Sprintf("%s %v", unit.String(), number.Decimal(major.InexactFloat64(), number.Scale(scale)))
}

// AmountInCents converts minor units to the hundredths a hosted payment page
// expects, e.g. 5000 CLP becomes 500000.
func AmountInCents(amount int64, unit currency.Unit) int64 {
	return decimal.New(amount, int32(2-MinorUnitScale(unit))).IntPart()
}
