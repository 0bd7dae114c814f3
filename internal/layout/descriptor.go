// Package layout turns an invoice document into a renderer-agnostic page
// layout. Every template variant is described by data in this file; the
// screen (html/template) and export (PDF) renderers consume the same Layout
// so they cannot drift apart.
package layout

import "strings"

// Variant identifies one of the fixed visual designs.
type Variant string

const (
	Clean        Variant = "clean"
	Professional Variant = "professional"
	Bold         Variant = "bold"
	Executive    Variant = "executive"
	Creative     Variant = "creative"
	Stripe       Variant = "stripe"
	Contrast     Variant = "contrast"
)

// HeaderStyle tags the header skeleton a variant uses.
type HeaderStyle string

const (
	// HeaderPlain: business left, title and metadata right, no background.
	HeaderPlain HeaderStyle = "plain"
	// HeaderBand: full-width colored band with business and title.
	HeaderBand HeaderStyle = "band"
	// HeaderStacked: oversized short title with a three column details panel.
	HeaderStacked HeaderStyle = "stacked"
	// HeaderSplit: dark band with title, two column from/details block.
	HeaderSplit HeaderStyle = "split"
	// HeaderSidebar: full-height colored left column carrying the business
	// identity and invoice metadata; the body sits to its right.
	HeaderSidebar HeaderStyle = "sidebar"
	// HeaderRule: minimal header closed by a thin rule.
	HeaderRule HeaderStyle = "rule"
	// HeaderInverse: black band with white title.
	HeaderInverse HeaderStyle = "inverse"
)

// AccentToken in a palette slot is replaced by the resolved accent color.
const AccentToken = "accent"

// Palette lists the colors a variant paints with. Values are #rrggbb or
// AccentToken; an empty value means "not painted".
type Palette struct {
	HeaderBackground string `json:"headerBackground,omitempty"`
	HeaderText       string `json:"headerText"`
	HeaderMuted      string `json:"headerMuted"`
	Title            string `json:"title"`
	Label            string `json:"label"`
	Text             string `json:"text"`
	Muted            string `json:"muted"`
	TableHeadBG      string `json:"tableHeadBackground"`
	TableHeadText    string `json:"tableHeadText"`
	RowRule          string `json:"rowRule"`
	StripeBG         string `json:"stripeBackground,omitempty"`
	PanelBG          string `json:"panelBackground,omitempty"`
	TotalValue       string `json:"totalValue"`
	TotalRule        string `json:"totalRule"`
	Negative         string `json:"negative"`
}

// Descriptor is the fixed identity of a variant.
type Descriptor struct {
	ID           Variant     `json:"id"`
	Name         string      `json:"name"`
	Summary      string      `json:"summary"`
	Pro          bool        `json:"pro"`
	Header       HeaderStyle `json:"header"`
	Accent       string      `json:"accent"`
	Title        string      `json:"title"`
	TotalLabel   string      `json:"totalLabel"`
	ShowCurrency bool        `json:"showCurrency"`
	Striped      bool        `json:"striped"`
	// FromLabel and DetailsLabel caption the business and metadata blocks
	// of header styles that set them apart from the title.
	FromLabel    string      `json:"fromLabel,omitempty"`
	DetailsLabel string      `json:"detailsLabel,omitempty"`
	Palette      Palette     `json:"palette"`
}

var base = Palette{
	HeaderText:    "#111111",
	HeaderMuted:   "#888888",
	Title:         "#111111",
	Label:         "#999999",
	Text:          "#111111",
	Muted:         "#666666",
	TableHeadBG:   "#f5f5f5",
	TableHeadText: "#666666",
	RowRule:       "#eeeeee",
	TotalValue:    AccentToken,
	TotalRule:     "#dddddd",
	Negative:      "#ef4444",
}

func palette(mutate func(p *Palette)) Palette {
	p := base
	mutate(&p)
	return p
}

var descriptors = []Descriptor{
	{
		ID: Clean, Name: "Clean", Summary: "Minimal black on white",
		Header: HeaderPlain, Accent: "#059669", Title: "INVOICE", TotalLabel: "Total",
		Palette: base,
	},
	{
		ID: Professional, Name: "Professional", Summary: "Colored header band",
		Pro: true, Header: HeaderBand, Accent: "#059669", Title: "INVOICE", TotalLabel: "Total",
		ShowCurrency: true,
		Palette: palette(func(p *Palette) {
			p.HeaderBackground = AccentToken
			p.HeaderText = "#ffffff"
			p.HeaderMuted = "#d1fae5"
			p.Title = "#ffffff"
			p.TableHeadText = AccentToken
		}),
	},
	{
		ID: Bold, Name: "Bold", Summary: "Oversized heading with details panel",
		Pro: true, Header: HeaderStacked, Accent: "#059669", Title: "INV", TotalLabel: "Total",
		ShowCurrency: true,
		Palette: palette(func(p *Palette) {
			p.Title = AccentToken
			p.PanelBG = "#f9f9f9"
		}),
	},
	{
		ID: Executive, Name: "Executive", Summary: "Navy and gold",
		Pro: true, Header: HeaderSplit, Accent: "#d4af37", Title: "INVOICE", TotalLabel: "Total",
		ShowCurrency: true, FromLabel: "From", DetailsLabel: "Details",
		Palette: palette(func(p *Palette) {
			p.HeaderBackground = "#1e3a5f"
			p.HeaderText = "#ffffff"
			p.HeaderMuted = AccentToken
			p.Title = "#ffffff"
			p.Label = AccentToken
			p.TotalRule = AccentToken
		}),
	},
	{
		ID: Creative, Name: "Creative", Summary: "Sidebar with teal highlights",
		Pro: true, Header: HeaderSidebar, Accent: "#047857", Title: "INVOICE", TotalLabel: "Total",
		Palette: palette(func(p *Palette) {
			p.HeaderBackground = AccentToken
			p.HeaderText = "#ffffff"
			p.HeaderMuted = "#d1fae5"
			p.Title = "#ffffff"
			p.Label = "#14b8a6"
		}),
	},
	{
		ID: Stripe, Name: "Stripe", Summary: "Zebra rows, violet accent",
		Pro: true, Header: HeaderRule, Accent: "#635bff", Title: "INVOICE", TotalLabel: "Total",
		ShowCurrency: true, Striped: true,
		Palette: palette(func(p *Palette) {
			p.Title = AccentToken
			p.TableHeadBG = "#f3f4f6"
			p.TableHeadText = AccentToken
			p.RowRule = "#e5e7eb"
			p.StripeBG = "#f9fafb"
			p.TotalRule = "#e5e7eb"
		}),
	},
	{
		ID: Contrast, Name: "Contrast", Summary: "Black header, red total",
		Pro: true, Header: HeaderInverse, Accent: "#ef4444", Title: "INVOICE", TotalLabel: "Total Due",
		ShowCurrency: true,
		Palette: palette(func(p *Palette) {
			p.HeaderBackground = "#000000"
			p.HeaderText = "#ffffff"
			p.HeaderMuted = "#aaaaaa"
			p.Title = "#ffffff"
			p.TotalRule = "#000000"
		}),
	},
}

var byID = func() map[Variant]int {
	idx := make(map[Variant]int, len(descriptors))
	for i, d := range descriptors {
		idx[d.ID] = i
	}
	return idx
}()

// Descriptors returns all variants in display order.
func Descriptors() []Descriptor {
	return append([]Descriptor(nil), descriptors...)
}

// ParseVariant resolves an id, falling back to Clean for unknown values.
func ParseVariant(id string) Variant {
	v := Variant(strings.ToLower(strings.TrimSpace(id)))
	if _, ok := byID[v]; ok {
		return v
	}
	return Clean
}

// IsKnown reports whether id names one of the variants.
func IsKnown(id string) bool {
	_, ok := byID[Variant(strings.ToLower(strings.TrimSpace(id)))]
	return ok
}

// Lookup returns the descriptor for id, falling back to Clean.
func Lookup(id string) Descriptor {
	return descriptors[byID[ParseVariant(id)]]
}
