package invoice

import (
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Totals bundles every monetary figure derived from a document.
type Totals struct {
	Subtotal     float64 `json:"subtotal"`
	Tax          float64 `json:"tax"`
	Discount     float64 `json:"discount"`
	Total        float64 `json:"total"`
	DaysUntilDue int     `json:"daysUntilDue"`
}

// LineAmount returns quantity × rate without rounding.
func LineAmount(item LineItem) float64 {
	return item.Quantity * item.Rate
}

// Subtotal sums line amounts in document order.
func Subtotal(items []LineItem) float64 {
	var sum float64
	for _, item := range items {
		sum += LineAmount(item)
	}
	return sum
}

// TaxAmount applies a percentage rate to the subtotal.
func TaxAmount(items []LineItem, taxRate float64) float64 {
	return Subtotal(items) * taxRate / 100
}

// Total is subtotal plus tax minus the absolute discount. The result is not
// clamped and may be negative.
func Total(items []LineItem, taxRate, discount float64) float64 {
	return Subtotal(items) + TaxAmount(items, taxRate) - discount
}

// DaysUntilDue returns the ceiling of the day difference between two
// YYYY-MM-DD dates. Unparseable input yields 0.
func DaysUntilDue(issueDate, dueDate string) int {
	issue, err := ParseDate(issueDate)
	if err != nil {
		return 0
	}
	due, err := ParseDate(dueDate)
	if err != nil {
		return 0
	}
	return int(math.Ceil(due.Sub(issue).Hours() / 24))
}

// Compute derives the totals for a document.
func Compute(doc Document) Totals {
	subtotal := Subtotal(doc.Items)
	tax := subtotal * doc.TaxRate / 100
	return Totals{
		Subtotal:     subtotal,
		Tax:          tax,
		Discount:     doc.Discount,
		Total:        subtotal + tax - doc.Discount,
		DaysUntilDue: DaysUntilDue(doc.IssueDate, doc.DueDate),
	}
}

// ParseDate parses a document date. Full RFC3339 timestamps are accepted and
// truncated to their calendar day.
func ParseDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if len(value) > len(DateLayout) {
		if ts, err := time.Parse(time.RFC3339, value); err == nil {
			return time.Date(ts.Year(), ts.Month(), ts.Day(), 0, 0, 0, 0, time.UTC), nil
		}
		value = value[:len(DateLayout)]
	}
	return time.Parse(DateLayout, value)
}

// NewItemID generates a line item identifier.
func NewItemID() string {
	return uuid.NewString()
}
