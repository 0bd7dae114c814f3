package invoice

import (
	"errors"
	"time"
)

// DateLayout is the calendar date format used by document date fields.
const DateLayout = "2006-01-02"

// DefaultTemplate is the template id assigned to new documents.
const DefaultTemplate = "clean"

// DefaultNumber is used until a device counter is available.
const DefaultNumber = "INV-001"

// DefaultTermDays is the gap between issue and due date on new documents.
const DefaultTermDays = 30

var (
	// ErrLastItem is returned when removing the only remaining line item.
	ErrLastItem = errors.New("invoice: document must keep at least one line item")
	// ErrItemNotFound is returned when a line item id is unknown.
	ErrItemNotFound = errors.New("invoice: line item not found")
)

// LineItem is one billable row.
type LineItem struct {
	ID          string  `json:"id"`
	Description string  `json:"description"`
	Quantity    float64 `json:"quantity"`
	Rate        float64 `json:"rate"`
}

// Business is the issuer identity. It is the only part of a document that
// survives across sessions.
type Business struct {
	Name    string `json:"businessName" validate:"max=200"`
	Address string `json:"businessAddress" validate:"max=1000"`
	Email   string `json:"businessEmail" validate:"omitempty,email,max=254"`
	Phone   string `json:"businessPhone" validate:"max=64"`
	Logo    string `json:"businessLogo" validate:"omitempty,startswith=data:image/,max=2800000"`
}

// Client is the bill-to identity.
type Client struct {
	Name    string `json:"clientName"`
	Address string `json:"clientAddress"`
	Email   string `json:"clientEmail"`
}

// Document is the in-memory invoice edited by the user and consumed by the
// arithmetic and rendering packages. Renderers treat it as a snapshot.
type Document struct {
	Business
	Client

	Number    string `json:"invoiceNumber"`
	IssueDate string `json:"invoiceDate"`
	DueDate   string `json:"dueDate"`
	Currency  string `json:"currency"`

	Items []LineItem `json:"items"`

	TaxRate  float64 `json:"taxRate"`
	Discount float64 `json:"discount"`

	Notes string `json:"notes"`

	Template    string `json:"template"`
	AccentColor string `json:"accentColor,omitempty"`
}

// Options customise NewDocument.
type Options struct {
	Number   string
	Template string
	Business *Business
	NewID    func() string
}

// NewDocument builds a document with the creation-screen defaults.
func NewDocument(now time.Time, opts Options) Document {
	newID := opts.NewID
	if newID == nil {
		newID = NewItemID
	}
	number := opts.Number
	if number == "" {
		number = DefaultNumber
	}
	template := opts.Template
	if template == "" {
		template = DefaultTemplate
	}
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	doc := Document{
		Number:    number,
		IssueDate: day.Format(DateLayout),
		DueDate:   day.AddDate(0, 0, DefaultTermDays).Format(DateLayout),
		Currency:  DefaultCurrency().Code,
		Items:     []LineItem{{ID: newID(), Quantity: 1}},
		Template:  template,
	}
	if opts.Business != nil {
		doc.ApplyBusiness(*opts.Business)
	}
	return doc
}

// ApplyBusiness copies persisted business details onto the document.
func (d *Document) ApplyBusiness(b Business) {
	d.Business = b
}

// Clone returns a deep copy so callers can hand out snapshots.
func (d Document) Clone() Document {
	out := d
	out.Items = append([]LineItem(nil), d.Items...)
	return out
}

// AddItem appends a blank line item and returns its id.
func (d *Document) AddItem(newID func() string) string {
	if newID == nil {
		newID = NewItemID
	}
	id := newID()
	d.Items = append(d.Items, LineItem{ID: id, Quantity: 1})
	return id
}

// UpdateItem replaces the line item with the same id.
func (d *Document) UpdateItem(item LineItem) error {
	for i := range d.Items {
		if d.Items[i].ID == item.ID {
			d.Items[i] = item
			return nil
		}
	}
	return ErrItemNotFound
}

// RemoveItem deletes a line item. The last remaining item cannot be removed.
func (d *Document) RemoveItem(id string) error {
	idx := -1
	for i := range d.Items {
		if d.Items[i].ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return ErrItemNotFound
	}
	if len(d.Items) <= 1 {
		return ErrLastItem
	}
	d.Items = append(d.Items[:idx], d.Items[idx+1:]...)
	return nil
}
