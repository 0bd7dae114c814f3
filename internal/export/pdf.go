package export

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"
	"golang.org/x/text/encoding/charmap"

	"github.com/quickbill/quickbill/internal/invoice"
	"github.com/quickbill/quickbill/internal/layout"
)

const (
	pageW     = 210.0
	pageH     = 297.0
	margin    = 15.0
	contentW  = pageW - 2*margin
	breakAt   = 20.0
	rowH      = 7.0
	logoH     = 14.0
	logoName  = "logo"
	bodyFont  = "Helvetica"
	utf8Alias = "body"

	sidebarW   = 54.0
	sidebarPad = 8.0
)

var (
	colWidths = [4]float64{90, 20, 35, 35}
	colAlign  = [4]string{"L", "R", "R", "R"}
)

// LocalOptions configure the in-process renderer.
type LocalOptions struct {
	// FontPath is a TTF used for all text; empty selects the built-in
	// Helvetica with cp1252 translation.
	FontPath     string
	BoldFontPath string
}

// Local draws layouts with gofpdf, without any external service.
type Local struct {
	opts LocalOptions
}

// NewLocal constructs a Local exporter.
func NewLocal(opts LocalOptions) *Local {
	return &Local{opts: opts}
}

// Export implements Exporter.
func (e *Local) Export(ctx context.Context, l layout.Layout) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetCatalogSort(true)
	pdf.SetCreationDate(issueTime(l.IssueDate))
	pdf.SetModificationDate(issueTime(l.IssueDate))
	pdf.SetMargins(margin, margin, margin)
	pdf.SetAutoPageBreak(true, breakAt)
	pdf.AliasNbPages("")
	pdf.SetTitle(l.Header.Number, true)
	pdf.SetCreator("QuickBill", false)

	w := &pdfWriter{pdf: pdf, l: l, p: l.Palette, family: bodyFont, x0: margin, cw: contentW}
	if e.opts.FontPath != "" {
		bold := e.opts.BoldFontPath
		if bold == "" {
			bold = e.opts.FontPath
		}
		pdf.AddUTF8Font(utf8Alias, "", e.opts.FontPath)
		pdf.AddUTF8Font(utf8Alias, "B", bold)
		w.family = utf8Alias
		w.tr = func(s string) string { return s }
	} else {
		cp1252 := pdf.UnicodeTranslatorFromDescriptor("")
		swap := symbolFallback(l.Currency)
		w.tr = func(s string) string { return cp1252(swap(s)) }
	}
	if err := w.registerLogo(); err != nil {
		return nil, err
	}
	pdf.SetHeaderFunc(w.continuationHeader)
	pdf.SetFooterFunc(w.footer)
	pdf.AddPage()

	draw, ok := headerStyles[l.Variant.Header]
	if !ok {
		draw = (*pdfWriter).headerPlain
	}
	draw(w)
	w.billTo()
	w.items()
	w.summary()
	w.banner()
	w.notes()
	w.watermark()

	if pdf.Err() {
		return nil, pdf.Error()
	}
	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// headerStyles maps each header skeleton to its drawing routine.
var headerStyles = map[layout.HeaderStyle]func(*pdfWriter){
	layout.HeaderPlain:   (*pdfWriter).headerPlain,
	layout.HeaderBand:    (*pdfWriter).headerBand,
	layout.HeaderInverse: (*pdfWriter).headerBand,
	layout.HeaderStacked: (*pdfWriter).headerStacked,
	layout.HeaderSplit:   (*pdfWriter).headerSplit,
	layout.HeaderSidebar: (*pdfWriter).headerSidebar,
	layout.HeaderRule:    (*pdfWriter).headerRule,
}

type pdfWriter struct {
	pdf     *gofpdf.Fpdf
	l       layout.Layout
	p       layout.Palette
	family  string
	tr      func(string) string
	hasLogo bool
	inTable bool
	sidebar bool

	// x0 and cw frame the body column below or beside the header.
	x0, cw float64
}

// symbolFallback spells out the ISO code in place of a currency symbol the
// built-in cp1252 fonts cannot draw, so "₹10.00" prints as "INR 10.00".
func symbolFallback(cur invoice.Currency) func(string) string {
	keep := func(s string) string { return s }
	if cur.Symbol == "" || cur.Code == "" {
		return keep
	}
	if _, err := charmap.Windows1252.NewEncoder().String(cur.Symbol); err == nil {
		return keep
	}
	return func(s string) string {
		return strings.ReplaceAll(s, cur.Symbol, cur.Code+" ")
	}
}

func (w *pdfWriter) right() float64 {
	return w.x0 + w.cw
}

// col scales the item table columns to the body width.
func (w *pdfWriter) col(i int) float64 {
	return colWidths[i] * w.cw / contentW
}

func issueTime(value string) time.Time {
	t, err := invoice.ParseDate(value)
	if err != nil {
		return time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)
	}
	return t
}

var logoTypes = map[string]string{
	"image/png":  "PNG",
	"image/jpeg": "JPG",
	"image/jpg":  "JPG",
	"image/gif":  "GIF",
}

// registerLogo decodes the business logo data URI. Formats gofpdf cannot
// embed are skipped; broken data is an error.
func (w *pdfWriter) registerLogo() error {
	uri := w.l.Header.Logo
	if uri == "" {
		return nil
	}
	meta, payload, ok := strings.Cut(uri, ",")
	if !ok || !strings.HasPrefix(meta, "data:") {
		return errors.New("logo: malformed data uri")
	}
	mime, enc, _ := strings.Cut(strings.TrimPrefix(meta, "data:"), ";")
	if enc != "base64" {
		return errors.New("logo: data uri is not base64")
	}
	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return fmt.Errorf("logo: %w", err)
	}
	imageType, ok := logoTypes[strings.ToLower(mime)]
	if !ok {
		return nil
	}
	w.pdf.RegisterImageOptionsReader(logoName, gofpdf.ImageOptions{ImageType: imageType}, bytes.NewReader(raw))
	if w.pdf.Err() {
		return fmt.Errorf("logo: %w", w.pdf.Error())
	}
	w.hasLogo = true
	return nil
}

func (w *pdfWriter) font(style string, size float64) {
	w.pdf.SetFont(w.family, style, size)
}

func (w *pdfWriter) textColor(hex string) {
	r, g, b := layout.RGB(hex)
	w.pdf.SetTextColor(r, g, b)
}

func (w *pdfWriter) drawColor(hex string) {
	r, g, b := layout.RGB(hex)
	w.pdf.SetDrawColor(r, g, b)
}

// fillColor reports whether hex is paintable.
func (w *pdfWriter) fillColor(hex string) bool {
	if layout.NormalizeColor(hex) == "" {
		return false
	}
	r, g, b := layout.RGB(hex)
	w.pdf.SetFillColor(r, g, b)
	return true
}

func (w *pdfWriter) text(x, y, width, h float64, s, align string) {
	w.rawText(x, y, width, h, w.tr(s), align)
}

// rawText draws an already translated string.
func (w *pdfWriter) rawText(x, y, width, h float64, s, align string) {
	w.pdf.SetXY(x, y)
	w.pdf.CellFormat(width, h, s, "", 0, align, false, 0, "")
}

// wrap translates s and breaks it to width in the current font.
func (w *pdfWriter) wrap(s string, width float64) []string {
	parts := w.pdf.SplitLines([]byte(w.tr(s)), width)
	if len(parts) == 0 {
		return []string{""}
	}
	out := make([]string, len(parts))
	for i, p := range parts {
		out[i] = string(p)
	}
	return out
}

func (w *pdfWriter) businessLines() []string {
	h := w.l.Header
	lines := append([]string(nil), h.AddressLines...)
	if h.Email != "" {
		lines = append(lines, h.Email)
	}
	if h.Phone != "" {
		lines = append(lines, h.Phone)
	}
	return lines
}

func (w *pdfWriter) businessHeight(width float64) float64 {
	w.font("B", 14)
	h := 7 * float64(len(w.wrap(w.l.Header.BusinessName, width)))
	w.font("", 9)
	for _, line := range w.businessLines() {
		h += 4.5 * float64(len(w.wrap(line, width)))
	}
	if w.hasLogo {
		h += logoH + 2
	}
	return h
}

// business draws the identity block, wrapping to width, and returns the y
// below it.
func (w *pdfWriter) business(x, y, width float64, nameColor, muted string) float64 {
	if w.hasLogo {
		w.pdf.ImageOptions(logoName, x, y, 0, logoH, false, gofpdf.ImageOptions{}, 0, "")
		y += logoH + 2
	}
	w.font("B", 14)
	w.textColor(nameColor)
	for _, part := range w.wrap(w.l.Header.BusinessName, width) {
		w.rawText(x, y, width, 7, part, "L")
		y += 7
	}
	w.font("", 9)
	w.textColor(muted)
	for _, line := range w.businessLines() {
		for _, part := range w.wrap(line, width) {
			w.rawText(x, y, width, 4.5, part, "L")
			y += 4.5
		}
	}
	return y
}

func (w *pdfWriter) identHeight(titleSize float64) float64 {
	return titleSize*0.45 + 7 + 5*float64(len(w.l.Header.Meta))
}

// ident draws title, number and metadata and returns the y below it.
func (w *pdfWriter) ident(x, y, width float64, align string, titleSize float64, textColor string) float64 {
	th := titleSize * 0.45
	w.font("B", titleSize)
	w.textColor(w.p.Title)
	w.text(x, y, width, th, w.l.Title, align)
	y += th
	w.font("B", 10)
	w.textColor(textColor)
	w.text(x, y, width, 7, w.l.Header.Number, align)
	y += 7
	for _, f := range w.l.Header.Meta {
		w.metaLine(x, y, width, align, f, textColor)
		y += 5
	}
	return y
}

func (w *pdfWriter) metaLine(x, y, width float64, align string, f layout.Field, textColor string) {
	labelW := min(22, width*0.4)
	w.font("", 8)
	w.textColor(w.p.Label)
	if align == "R" {
		w.text(x, y, width-labelW-2, 5, strings.ToUpper(f.Label), "R")
		w.font("", 9)
		w.textColor(textColor)
		w.text(x+width-labelW, y, labelW, 5, f.Value, "R")
		return
	}
	w.text(x, y, labelW, 5, strings.ToUpper(f.Label), "L")
	w.font("", 9)
	w.textColor(textColor)
	w.text(x+labelW, y, width-labelW, 5, f.Value, "L")
}

func (w *pdfWriter) headerPlain() {
	left := w.business(margin, margin, 100, w.p.HeaderText, w.p.HeaderMuted)
	right := w.ident(margin+100, margin, contentW-100, "R", 24, w.p.Text)
	w.pdf.SetY(max(left, right) + 8)
}

func (w *pdfWriter) headerRule() {
	w.headerPlain()
	y := w.pdf.GetY() - 4
	w.drawColor(w.p.RowRule)
	w.pdf.SetLineWidth(0.3)
	w.pdf.Line(margin, y, pageW-margin, y)
	w.pdf.SetY(y + 6)
}

func (w *pdfWriter) headerBand() {
	const pad = 10.0
	height := max(w.businessHeight(100), w.identHeight(26)) + 2*pad
	if w.fillColor(w.p.HeaderBackground) {
		w.pdf.Rect(0, 0, pageW, height, "F")
	}
	w.business(margin, pad, 100, w.p.HeaderText, w.p.HeaderMuted)
	w.ident(margin+100, pad, contentW-100, "R", 26, w.p.HeaderText)
	w.pdf.SetY(height + 8)
}

func (w *pdfWriter) headerStacked() {
	y := margin
	w.font("B", 48)
	w.textColor(w.p.Title)
	w.text(margin, y, contentW/2, 20, w.l.Title, "L")
	w.font("B", 11)
	w.textColor(w.p.Text)
	w.text(margin+contentW/2, y+6, contentW/2, 8, w.l.Header.Number, "R")
	y = w.business(margin, y+24, contentW, w.p.HeaderText, w.p.HeaderMuted) + 6

	const panelH = 14.0
	if w.fillColor(w.p.PanelBG) {
		w.pdf.Rect(margin, y, contentW, panelH, "F")
	}
	n := len(w.l.Header.Meta)
	if n > 0 {
		colW := contentW / float64(n)
		for i, f := range w.l.Header.Meta {
			x := margin + float64(i)*colW + 4
			w.font("", 8)
			w.textColor(w.p.Label)
			w.text(x, y+2, colW-8, 5, strings.ToUpper(f.Label), "L")
			w.font("B", 10)
			w.textColor(w.p.Text)
			w.text(x, y+7, colW-8, 5, f.Value, "L")
		}
	}
	w.pdf.SetY(y + panelH + 8)
}

func (w *pdfWriter) headerSplit() {
	const bandH = 26.0
	if w.fillColor(w.p.HeaderBackground) {
		w.pdf.Rect(0, 0, pageW, bandH, "F")
	}
	w.font("B", 24)
	w.textColor(w.p.Title)
	w.text(margin, 8, contentW/2, 11, w.l.Title, "L")
	w.font("B", 11)
	w.textColor(w.p.HeaderMuted)
	w.text(margin+contentW/2, 9, contentW/2, 9, w.l.Header.Number, "R")

	h := w.l.Header
	y := bandH + 8
	if h.FromLabel != "" || h.DetailsLabel != "" {
		w.font("", 8)
		w.textColor(w.p.Label)
		w.text(margin, y, contentW/2, 5, strings.ToUpper(h.FromLabel), "L")
		w.text(margin+contentW/2, y, contentW/2, 5, strings.ToUpper(h.DetailsLabel), "L")
		y += 6
	}
	left := w.business(margin, y, contentW/2-5, w.p.Text, w.p.Muted)
	right := y
	for _, f := range h.Meta {
		w.metaLine(margin+contentW/2, right, contentW/2, "L", f, w.p.Text)
		right += 5
	}
	w.pdf.SetY(max(left, right) + 8)
}

func (w *pdfWriter) paintSidebar() {
	if w.fillColor(w.p.HeaderBackground) {
		w.pdf.Rect(0, 0, sidebarW, pageH, "F")
	}
}

// headerSidebar stacks the business identity and invoice metadata in a
// full-height left column and narrows the body frame to its right. The
// column is repainted on every page.
func (w *pdfWriter) headerSidebar() {
	w.sidebar = true
	w.paintSidebar()
	x, width := sidebarPad, sidebarW-2*sidebarPad
	y := w.business(x, margin, width, w.p.HeaderText, w.p.HeaderMuted)
	w.ident(x, y+8, width, "L", 20, w.p.HeaderText)

	w.x0 = sidebarW + 8
	w.cw = pageW - margin - w.x0
	w.pdf.SetLeftMargin(w.x0)
	w.pdf.SetXY(w.x0, margin)
}

func (w *pdfWriter) billTo() {
	b := w.l.BillTo
	x, y := w.x0, w.pdf.GetY()
	w.font("B", 8)
	w.textColor(w.p.Label)
	w.text(x, y, w.cw, 5, strings.ToUpper(b.Label), "L")
	y += 5
	w.font("B", 11)
	w.textColor(w.p.Text)
	w.text(x, y, w.cw, 6, b.Name, "L")
	y += 6
	w.font("", 9)
	w.textColor(w.p.Muted)
	lines := append([]string(nil), b.AddressLines...)
	if b.Email != "" {
		lines = append(lines, b.Email)
	}
	for _, line := range lines {
		w.text(x, y, w.cw, 4.5, line, "L")
		y += 4.5
	}
	w.pdf.SetY(y + 8)
}

func (w *pdfWriter) tableHead() {
	fill := w.fillColor(w.p.TableHeadBG)
	w.font("B", 8)
	w.textColor(w.p.TableHeadText)
	w.pdf.SetX(w.x0)
	for i, c := range layout.Columns {
		w.pdf.CellFormat(w.col(i), 8, w.tr(strings.ToUpper(c)), "", 0, colAlign[i], fill, 0, "")
	}
	w.pdf.Ln(8)
}

// continuationHeader repaints the sidebar and repeats the table heading
// when rows spill over.
func (w *pdfWriter) continuationHeader() {
	if w.sidebar {
		w.paintSidebar()
	}
	if !w.inTable {
		return
	}
	w.pdf.SetY(margin)
	w.tableHead()
}

func (w *pdfWriter) items() {
	w.tableHead()
	w.inTable = true
	defer func() { w.inTable = false }()

	for _, row := range w.l.Rows {
		w.font("", 9.5)
		lines := w.wrap(row.Description, w.col(0)-2)
		h := rowH * float64(len(lines))
		if w.pdf.GetY()+h > pageH-breakAt {
			w.pdf.AddPage()
		}
		y := w.pdf.GetY()
		if row.Striped && w.fillColor(w.p.StripeBG) {
			w.pdf.Rect(w.x0, y, w.cw, h, "F")
		}
		w.font("", 9.5)
		w.textColor(w.p.Text)
		for i, line := range lines {
			w.rawText(w.x0, y+float64(i)*rowH, w.col(0), rowH, line, "L")
		}
		x := w.x0 + w.col(0)
		for i, v := range []string{row.Quantity, row.Rate, row.Amount} {
			w.text(x, y, w.col(i+1), rowH, v, colAlign[i+1])
			x += w.col(i + 1)
		}
		w.drawColor(w.p.RowRule)
		w.pdf.SetLineWidth(0.2)
		w.pdf.Line(w.x0, y+h, w.right(), y+h)
		w.pdf.SetY(y + h)
	}
}

func (w *pdfWriter) summary() {
	const width = 80.0
	s := w.l.Summary
	need := 6 + 6*float64(len(s.Lines)) + 12
	if w.pdf.GetY()+need > pageH-breakAt {
		w.pdf.AddPage()
	}
	x := w.right() - width
	y := w.pdf.GetY() + 6
	for _, line := range s.Lines {
		w.font("", 9.5)
		w.textColor(w.p.Muted)
		w.text(x, y, width/2, 6, line.Label, "L")
		w.textColor(w.p.Text)
		if line.Negative {
			w.textColor(w.p.Negative)
		}
		w.text(x+width/2, y, width/2, 6, line.Value, "R")
		y += 6
	}
	y += 2
	w.drawColor(w.p.TotalRule)
	w.pdf.SetLineWidth(0.5)
	w.pdf.Line(x, y, w.right(), y)
	y += 2
	w.font("B", 12)
	w.textColor(w.p.Text)
	w.text(x, y, width/2, 8, s.TotalLabel, "L")
	w.textColor(w.p.TotalValue)
	w.text(x+width/2, y, width/2, 8, s.Total, "R")
	w.pdf.SetY(y + 14)
}

func (w *pdfWriter) banner() {
	if w.l.Banner == nil {
		return
	}
	w.font("B", 10)
	w.textColor(w.l.Features.Accent)
	w.drawColor(w.l.Features.Accent)
	w.pdf.SetLineWidth(0.3)
	w.pdf.SetX(w.x0)
	w.pdf.CellFormat(w.cw, 9, w.tr(w.l.Banner.Text), "1", 1, "L", false, 0, "")
	w.pdf.Ln(6)
}

func (w *pdfWriter) notes() {
	if len(w.l.Notes) == 0 {
		return
	}
	w.font("B", 8)
	w.textColor(w.p.Label)
	w.pdf.SetX(w.x0)
	w.pdf.CellFormat(w.cw, 5, w.tr("NOTES"), "", 1, "L", false, 0, "")
	w.font("", 9)
	w.textColor(w.p.Muted)
	for _, line := range w.l.Notes {
		w.pdf.SetX(w.x0)
		w.pdf.MultiCell(w.cw, 4.5, w.tr(line), "", "L", false)
	}
	w.pdf.Ln(4)
}

func (w *pdfWriter) watermark() {
	if w.l.Watermark == "" {
		return
	}
	w.font("", 8)
	w.textColor("#9ca3af")
	w.pdf.SetX(w.x0)
	w.pdf.CellFormat(w.cw, 6, w.tr(w.l.Watermark), "", 1, "C", false, 0, "")
}

func (w *pdfWriter) footer() {
	w.pdf.SetY(-12)
	w.font("", 8)
	w.textColor("#9ca3af")
	w.pdf.CellFormat(0, 5, fmt.Sprintf("Page %d of {nb}", w.pdf.PageNo()), "", 0, "C", false, 0, "")
}
