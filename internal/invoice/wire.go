package invoice

import (
	"encoding/json"
	"io"
	"math"
	"strings"

	"github.com/spf13/cast"
)

// wireItem mirrors LineItem with loosely typed numbers so form values such
// as "", "abc" or "3" decode instead of failing.
type wireItem struct {
	ID          string `json:"id"`
	Description string `json:"description"`
	Quantity    any    `json:"quantity"`
	Rate        any    `json:"rate"`
}

type wireDocument struct {
	Business
	Client

	Number    string `json:"invoiceNumber"`
	IssueDate string `json:"invoiceDate"`
	DueDate   string `json:"dueDate"`
	Currency  string `json:"currency"`

	Items []wireItem `json:"items"`

	TaxRate  any `json:"taxRate"`
	Discount any `json:"discount"`

	Notes string `json:"notes"`

	Template    string `json:"template"`
	AccentColor string `json:"accentColor"`
}

// Decode reads a JSON document. Malformed JSON is an error; malformed
// numbers are coerced to zero.
func Decode(r io.Reader) (Document, error) {
	var wire wireDocument
	dec := json.NewDecoder(r)
	dec.UseNumber()
	if err := dec.Decode(&wire); err != nil {
		return Document{}, err
	}
	doc := Document{
		Business:    wire.Business,
		Client:      wire.Client,
		Number:      wire.Number,
		IssueDate:   wire.IssueDate,
		DueDate:     wire.DueDate,
		Currency:    wire.Currency,
		TaxRate:     Number(wire.TaxRate),
		Discount:    Number(wire.Discount),
		Notes:       wire.Notes,
		Template:    wire.Template,
		AccentColor: wire.AccentColor,
	}
	doc.Items = make([]LineItem, 0, len(wire.Items))
	for _, item := range wire.Items {
		doc.Items = append(doc.Items, LineItem{
			ID:          item.ID,
			Description: item.Description,
			Quantity:    Number(item.Quantity),
			Rate:        Number(item.Rate),
		})
	}
	doc.Normalize()
	return doc, nil
}

// Number coerces arbitrary input to a finite float64, defaulting to zero.
func Number(v any) float64 {
	switch t := v.(type) {
	case json.Number:
		v = t.String()
	case string:
		v = strings.TrimSpace(t)
	}
	f, err := cast.ToFloat64E(v)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

// Normalize trims identity fields and assigns ids to items missing one.
// Totals are not affected.
func (d *Document) Normalize() {
	d.Number = strings.TrimSpace(d.Number)
	d.Currency = strings.ToUpper(strings.TrimSpace(d.Currency))
	d.Template = strings.ToLower(strings.TrimSpace(d.Template))
	d.AccentColor = strings.TrimSpace(d.AccentColor)
	seen := make(map[string]struct{}, len(d.Items))
	for i := range d.Items {
		id := strings.TrimSpace(d.Items[i].ID)
		if _, dup := seen[id]; id == "" || dup {
			id = NewItemID()
		}
		seen[id] = struct{}{}
		d.Items[i].ID = id
	}
}
