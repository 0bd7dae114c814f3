// Package pricing resolves the regional Pro price shown to a device.
package pricing

import (
	"fmt"
	"math"
	"strings"

	"golang.org/x/text/language"

	"github.com/quickbill/quickbill/internal/invoice"
)

// Price is the Pro offer in one currency.
type Price struct {
	Currency string  `json:"currency"`
	Symbol   string  `json:"symbol"`
	Amount   float64 `json:"price"`
	// Minor is the amount in the currency's smallest unit.
	Minor   int64  `json:"amount"`
	Display string `json:"display"`
}

type offer struct {
	symbol   string
	amount   float64
	decimals bool
}

var offers = map[string]offer{
	"INR": {symbol: "₹", amount: 1599},
	"USD": {symbol: "$", amount: 19},
	"EUR": {symbol: "€", amount: 17.99, decimals: true},
	"GBP": {symbol: "£", amount: 14.99, decimals: true},
}

// DefaultCurrency is used whenever detection is inconclusive.
const DefaultCurrency = "USD"

// ForCurrency returns the offer for code, falling back to USD.
func ForCurrency(code string) Price {
	code = strings.ToUpper(strings.TrimSpace(code))
	o, ok := offers[code]
	if !ok {
		code, o = DefaultCurrency, offers[DefaultCurrency]
	}
	display := fmt.Sprintf("%s%g", o.symbol, o.amount)
	if o.decimals {
		display = fmt.Sprintf("%s%.2f", o.symbol, o.amount)
	}
	return Price{
		Currency: code,
		Symbol:   o.symbol,
		Amount:   o.amount,
		Minor:    ToSmallestUnit(o.amount, code),
		Display:  display,
	}
}

// ToSmallestUnit converts an amount to paise, cents or the equivalent
// minor unit of currency.
func ToSmallestUnit(amount float64, currency string) int64 {
	scale := math.Pow10(invoice.LookupCurrency(currency).Decimals())
	return int64(math.Round(amount * scale))
}

var euZones = []string{
	"Europe/Berlin", "Europe/Paris", "Europe/Rome", "Europe/Madrid", "Europe/Amsterdam",
	"Europe/Brussels", "Europe/Vienna", "Europe/Dublin", "Europe/Lisbon", "Europe/Helsinki",
	"Europe/Athens", "Europe/Warsaw", "Europe/Prague", "Europe/Budapest", "Europe/Bucharest",
	"Europe/Stockholm", "Europe/Oslo", "Europe/Copenhagen",
}

// FromTimezone maps an IANA zone to a currency.
func FromTimezone(tz string) (string, bool) {
	tz = strings.TrimSpace(tz)
	switch {
	case tz == "":
		return "", false
	case strings.HasPrefix(tz, "Asia/Kolkata"), strings.HasPrefix(tz, "Asia/Calcutta"):
		return "INR", true
	case strings.HasPrefix(tz, "Europe/London"):
		return "GBP", true
	case strings.HasPrefix(tz, "America/"):
		return "USD", true
	}
	for _, zone := range euZones {
		if strings.HasPrefix(tz, zone) {
			return "EUR", true
		}
	}
	return "", false
}

var (
	hindi   = language.MustParseBase("hi")
	english = language.MustParseBase("en")
	india   = language.MustParseRegion("IN")
	britain = language.MustParseRegion("GB")
	states  = language.MustParseRegion("US")
	euBases = map[string]bool{"de": true, "fr": true, "it": true, "es": true, "nl": true, "pt": true}
)

// FromLanguage inspects the preferred tag of an Accept-Language header.
func FromLanguage(header string) (string, bool) {
	tags, _, err := language.ParseAcceptLanguage(header)
	if err != nil || len(tags) == 0 {
		return "", false
	}
	base, _, region := tags[0].Raw()
	switch {
	case base == hindi, base == english && region == india:
		return "INR", true
	case base == english && region == britain:
		return "GBP", true
	case base == english && region == states:
		return "USD", true
	case euBases[base.String()]:
		return "EUR", true
	}
	return "", false
}

var euCountries = map[string]bool{
	"AT": true, "BE": true, "CY": true, "DE": true, "EE": true, "ES": true, "FI": true,
	"FR": true, "GR": true, "HR": true, "IE": true, "IT": true, "LT": true, "LU": true,
	"LV": true, "MT": true, "NL": true, "PT": true, "SI": true, "SK": true,
}

// FromCountry maps an ISO 3166 country code to a currency.
func FromCountry(code string) string {
	code = strings.ToUpper(strings.TrimSpace(code))
	switch {
	case code == "IN":
		return "INR"
	case code == "GB":
		return "GBP"
	case euCountries[code]:
		return "EUR"
	}
	return DefaultCurrency
}
