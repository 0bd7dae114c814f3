package invoice

import (
	"math"
	"strconv"
	"strings"
)

// Currency is one catalog entry.
type Currency struct {
	Code    string `json:"code"`
	Numeric string `json:"numeric"`
	Symbol  string `json:"symbol"`
	Name    string `json:"name"`
	// NoDecimals marks currencies displayed without a minor unit.
	NoDecimals bool `json:"noDecimals,omitempty"`
}

var catalog = []Currency{
	{Code: "USD", Numeric: "840", Symbol: "$", Name: "US Dollar"},
	{Code: "EUR", Numeric: "978", Symbol: "€", Name: "Euro"},
	{Code: "GBP", Numeric: "826", Symbol: "£", Name: "British Pound"},
	{Code: "INR", Numeric: "356", Symbol: "₹", Name: "Indian Rupee"},
	{Code: "JPY", Numeric: "392", Symbol: "¥", Name: "Japanese Yen", NoDecimals: true},
	{Code: "CNY", Numeric: "156", Symbol: "¥", Name: "Chinese Yuan"},
	{Code: "AUD", Numeric: "036", Symbol: "A$", Name: "Australian Dollar"},
	{Code: "CAD", Numeric: "124", Symbol: "C$", Name: "Canadian Dollar"},
	{Code: "CHF", Numeric: "756", Symbol: "CHF", Name: "Swiss Franc"},
	{Code: "HKD", Numeric: "344", Symbol: "HK$", Name: "Hong Kong Dollar"},
	{Code: "SGD", Numeric: "702", Symbol: "S$", Name: "Singapore Dollar"},
	{Code: "SEK", Numeric: "752", Symbol: "kr", Name: "Swedish Krona"},
	{Code: "KRW", Numeric: "410", Symbol: "₩", Name: "South Korean Won", NoDecimals: true},
	{Code: "NOK", Numeric: "578", Symbol: "kr", Name: "Norwegian Krone"},
	{Code: "NZD", Numeric: "554", Symbol: "NZ$", Name: "New Zealand Dollar"},
	{Code: "MXN", Numeric: "484", Symbol: "MX$", Name: "Mexican Peso"},
	{Code: "ZAR", Numeric: "710", Symbol: "R", Name: "South African Rand"},
	{Code: "BRL", Numeric: "986", Symbol: "R$", Name: "Brazilian Real"},
	{Code: "TWD", Numeric: "901", Symbol: "NT$", Name: "Taiwan Dollar"},
	{Code: "DKK", Numeric: "208", Symbol: "kr", Name: "Danish Krone"},
	{Code: "PLN", Numeric: "985", Symbol: "zł", Name: "Polish Zloty"},
	{Code: "THB", Numeric: "764", Symbol: "฿", Name: "Thai Baht"},
	{Code: "IDR", Numeric: "360", Symbol: "Rp", Name: "Indonesian Rupiah"},
	{Code: "HUF", Numeric: "348", Symbol: "Ft", Name: "Hungarian Forint"},
	{Code: "CZK", Numeric: "203", Symbol: "Kč", Name: "Czech Koruna"},
	{Code: "ILS", Numeric: "376", Symbol: "₪", Name: "Israeli Shekel"},
	{Code: "CLP", Numeric: "152", Symbol: "CL$", Name: "Chilean Peso", NoDecimals: true},
	{Code: "PHP", Numeric: "608", Symbol: "₱", Name: "Philippine Peso"},
	{Code: "AED", Numeric: "784", Symbol: "د.إ", Name: "UAE Dirham"},
	{Code: "COP", Numeric: "170", Symbol: "CO$", Name: "Colombian Peso"},
	{Code: "SAR", Numeric: "682", Symbol: "﷼", Name: "Saudi Riyal"},
	{Code: "MYR", Numeric: "458", Symbol: "RM", Name: "Malaysian Ringgit"},
	{Code: "RON", Numeric: "946", Symbol: "lei", Name: "Romanian Leu"},
	{Code: "BGN", Numeric: "975", Symbol: "лв", Name: "Bulgarian Lev"},
	{Code: "ARS", Numeric: "032", Symbol: "AR$", Name: "Argentine Peso"},
	{Code: "NGN", Numeric: "566", Symbol: "₦", Name: "Nigerian Naira"},
	{Code: "EGP", Numeric: "818", Symbol: "E£", Name: "Egyptian Pound"},
	{Code: "PKR", Numeric: "586", Symbol: "₨", Name: "Pakistani Rupee"},
	{Code: "BDT", Numeric: "050", Symbol: "৳", Name: "Bangladeshi Taka"},
	{Code: "VND", Numeric: "704", Symbol: "₫", Name: "Vietnamese Dong", NoDecimals: true},
	{Code: "TRY", Numeric: "949", Symbol: "₺", Name: "Turkish Lira"},
	{Code: "UAH", Numeric: "980", Symbol: "₴", Name: "Ukrainian Hryvnia"},
	{Code: "PEN", Numeric: "604", Symbol: "S/.", Name: "Peruvian Sol"},
	{Code: "KES", Numeric: "404", Symbol: "KSh", Name: "Kenyan Shilling"},
	{Code: "GHS", Numeric: "936", Symbol: "GH₵", Name: "Ghanaian Cedi"},
	{Code: "QAR", Numeric: "634", Symbol: "QR", Name: "Qatari Riyal"},
	{Code: "KWD", Numeric: "414", Symbol: "KD", Name: "Kuwaiti Dinar"},
	{Code: "BHD", Numeric: "048", Symbol: "BD", Name: "Bahraini Dinar"},
	{Code: "OMR", Numeric: "512", Symbol: "OMR", Name: "Omani Rial"},
	{Code: "LKR", Numeric: "144", Symbol: "Rs", Name: "Sri Lankan Rupee"},
	{Code: "MMK", Numeric: "104", Symbol: "K", Name: "Myanmar Kyat"},
	{Code: "RUB", Numeric: "643", Symbol: "₽", Name: "Russian Ruble"},
}

var catalogIndex = func() map[string]int {
	idx := make(map[string]int, len(catalog))
	for i, c := range catalog {
		idx[c.Code] = i
	}
	return idx
}()

// Currencies returns a copy of the catalog in display order.
func Currencies() []Currency {
	return append([]Currency(nil), catalog...)
}

// DefaultCurrency is the first catalog entry.
func DefaultCurrency() Currency {
	return catalog[0]
}

// LookupCurrency resolves a code, falling back to the default entry.
func LookupCurrency(code string) Currency {
	if i, ok := catalogIndex[strings.ToUpper(strings.TrimSpace(code))]; ok {
		return catalog[i]
	}
	return DefaultCurrency()
}

// IsKnownCurrency reports whether the code exists in the catalog.
func IsKnownCurrency(code string) bool {
	_, ok := catalogIndex[strings.ToUpper(strings.TrimSpace(code))]
	return ok
}

// Decimals returns the number of fraction digits used for display.
func (c Currency) Decimals() int {
	if c.NoDecimals {
		return 0
	}
	return 2
}

// Format renders an amount with the currency symbol and no digit grouping,
// e.g. "$1000.00". Negative values become "-$12.00".
func (c Currency) Format(v float64) string {
	return formatSigned(c.Symbol, v, c.Decimals())
}

// FormatNegated renders a deduction, e.g. a discount, as "-$5.00".
func (c Currency) FormatNegated(v float64) string {
	return formatSigned(c.Symbol, -v, c.Decimals())
}

func formatSigned(symbol string, v float64, decimals int) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		v = 0
	}
	digits := strconv.FormatFloat(math.Abs(v), 'f', decimals, 64)
	if v < 0 && strings.Trim(digits, "0.") != "" {
		return "-" + symbol + digits
	}
	return symbol + digits
}

// FormatNumber renders a plain number using the shortest representation,
// e.g. quantities and tax rates.
func FormatNumber(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "0"
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
