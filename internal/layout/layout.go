package layout

import (
	"fmt"
	"strings"

	"github.com/quickbill/quickbill/internal/invoice"
)

// Placeholder texts shown for empty identity fields.
const (
	PlaceholderBusiness = "Your Business"
	PlaceholderClient   = "Client Name"
	PlaceholderItem     = "—"
)

// WatermarkText is the attribution printed on unentitled renders.
const WatermarkText = "Created with QuickBill · Upgrade to Pro to remove this footer"

// Columns are the line-item table headings in order.
var Columns = [4]string{"Description", "Qty", "Rate", "Amount"}

// Options carry the capability flag, resolved once by the caller.
type Options struct {
	Pro bool
}

// Field is a label/value pair in the metadata block.
type Field struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// Header holds the business identity and document metadata.
type Header struct {
	BusinessName string   `json:"businessName"`
	AddressLines []string `json:"addressLines,omitempty"`
	Email        string   `json:"email,omitempty"`
	Phone        string   `json:"phone,omitempty"`
	Logo         string   `json:"logo,omitempty"`
	Number       string   `json:"number"`
	FromLabel    string   `json:"fromLabel,omitempty"`
	DetailsLabel string   `json:"detailsLabel,omitempty"`
	Meta         []Field  `json:"meta"`
}

// Party is the bill-to block.
type Party struct {
	Label        string   `json:"label"`
	Name         string   `json:"name"`
	AddressLines []string `json:"addressLines,omitempty"`
	Email        string   `json:"email,omitempty"`
}

// Row is one formatted line-item row.
type Row struct {
	Description string `json:"description"`
	Quantity    string `json:"quantity"`
	Rate        string `json:"rate"`
	Amount      string `json:"amount"`
	Striped     bool   `json:"striped,omitempty"`
}

// SummaryLine is a row of the totals block.
type SummaryLine struct {
	Label    string `json:"label"`
	Value    string `json:"value"`
	Negative bool   `json:"negative,omitempty"`
}

// Summary is the adjustments and total block.
type Summary struct {
	Lines      []SummaryLine `json:"lines"`
	TotalLabel string        `json:"totalLabel"`
	Total      string        `json:"total"`
}

// Banner is the optional "payment due" reminder.
type Banner struct {
	Days int    `json:"days"`
	Text string `json:"text"`
}

// Layout is a fully resolved, immutable page description.
type Layout struct {
	Variant  Descriptor       `json:"variant"`
	Palette  Palette          `json:"palette"`
	Features Features         `json:"features"`
	Currency invoice.Currency `json:"currency"`
	Totals   invoice.Totals   `json:"totals"`

	Title     string   `json:"title"`
	Header    Header   `json:"header"`
	BillTo    Party    `json:"billTo"`
	Rows      []Row    `json:"rows"`
	Summary   Summary  `json:"summary"`
	Banner    *Banner  `json:"banner,omitempty"`
	Notes     []string `json:"notes,omitempty"`
	Watermark string   `json:"watermark,omitempty"`

	// IssueDate is kept raw so exporters can pin document timestamps.
	IssueDate string `json:"issueDate"`
}

// Build maps a document snapshot to a Layout. It reads no clock and no
// global state, so identical inputs yield identical layouts.
func Build(doc invoice.Document, opts Options) Layout {
	desc := Lookup(doc.Template)
	features := Gate(desc, doc.AccentColor, opts.Pro)
	cur := invoice.LookupCurrency(doc.Currency)
	totals := invoice.Compute(doc)

	l := Layout{
		Variant:   desc,
		Palette:   desc.Palette.resolve(features.Accent),
		Features:  features,
		Currency:  cur,
		Totals:    totals,
		Title:     desc.Title,
		Header:    buildHeader(doc, desc, cur),
		BillTo:    buildParty(doc),
		Rows:      buildRows(doc.Items, cur, desc.Striped),
		Summary:   buildSummary(doc, totals, cur, desc),
		Notes:     splitLines(doc.Notes),
		IssueDate: doc.IssueDate,
	}
	if features.DueBanner && totals.DaysUntilDue > 0 {
		l.Banner = &Banner{Days: totals.DaysUntilDue, Text: dueText(totals.DaysUntilDue)}
	}
	if features.Watermark {
		l.Watermark = WatermarkText
	}
	return l
}

func buildHeader(doc invoice.Document, desc Descriptor, cur invoice.Currency) Header {
	h := Header{
		BusinessName: orDefault(doc.Business.Name, PlaceholderBusiness),
		AddressLines: splitLines(doc.Business.Address),
		Email:        strings.TrimSpace(doc.Business.Email),
		Phone:        strings.TrimSpace(doc.Business.Phone),
		Logo:         strings.TrimSpace(doc.Business.Logo),
		Number:       doc.Number,
		FromLabel:    desc.FromLabel,
		DetailsLabel: desc.DetailsLabel,
		Meta: []Field{
			{Label: "Date", Value: doc.IssueDate},
			{Label: "Due", Value: doc.DueDate},
		},
	}
	if desc.ShowCurrency {
		h.Meta = append(h.Meta, Field{Label: "Currency", Value: cur.Code})
	}
	return h
}

func buildParty(doc invoice.Document) Party {
	return Party{
		Label:        "Bill To",
		Name:         orDefault(doc.Client.Name, PlaceholderClient),
		AddressLines: splitLines(doc.Client.Address),
		Email:        strings.TrimSpace(doc.Client.Email),
	}
}

func buildRows(items []invoice.LineItem, cur invoice.Currency, striped bool) []Row {
	rows := make([]Row, 0, len(items))
	for i, item := range items {
		rows = append(rows, Row{
			Description: orDefault(item.Description, PlaceholderItem),
			Quantity:    invoice.FormatNumber(item.Quantity),
			Rate:        cur.Format(item.Rate),
			Amount:      cur.Format(invoice.LineAmount(item)),
			Striped:     striped && i%2 == 0,
		})
	}
	return rows
}

func buildSummary(doc invoice.Document, totals invoice.Totals, cur invoice.Currency, desc Descriptor) Summary {
	s := Summary{
		Lines:      []SummaryLine{{Label: "Subtotal", Value: cur.Format(totals.Subtotal)}},
		TotalLabel: desc.TotalLabel,
		Total:      cur.Format(totals.Total),
	}
	if doc.TaxRate > 0 {
		s.Lines = append(s.Lines, SummaryLine{
			Label: fmt.Sprintf("Tax (%s%%)", invoice.FormatNumber(doc.TaxRate)),
			Value: cur.Format(totals.Tax),
		})
	}
	if doc.Discount > 0 {
		s.Lines = append(s.Lines, SummaryLine{
			Label:    "Discount",
			Value:    cur.FormatNegated(doc.Discount),
			Negative: true,
		})
	}
	return s
}

func dueText(days int) string {
	if days == 1 {
		return "Payment due in 1 day"
	}
	return fmt.Sprintf("Payment due in %d days", days)
}

func splitLines(value string) []string {
	value = strings.TrimSpace(strings.ReplaceAll(value, "\r\n", "\n"))
	if value == "" {
		return nil
	}
	return strings.Split(value, "\n")
}

func orDefault(value, fallback string) string {
	if v := strings.TrimSpace(value); v != "" {
		return v
	}
	return fallback
}
