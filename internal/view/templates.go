package view

import (
	"bytes"
	"fmt"
	"html/template"
	"io"
	"net/http"
	"strings"

	"github.com/quickbill/quickbill/internal/layout"
	"github.com/quickbill/quickbill/web"
)

// Engine renders HTML templates.
type Engine struct {
	templates *template.Template
}

// TemplateData contains values shared across templates.
type TemplateData struct {
	Title string
	Data  any
}

// PreviewData is the payload of the live preview page.
type PreviewData struct {
	Layout layout.Layout
	// Upsell is shown next to, never inside, the rendered document.
	Upsell string
}

// UpsellText is shown when a Pro-only variant is previewed without entitlement.
const UpsellText = "This template is part of QuickBill Pro. Upgrade to export it without the footer and with your own colors."

// NewPreviewData attaches the upsell note to locked layouts.
func NewPreviewData(l layout.Layout) PreviewData {
	data := PreviewData{Layout: l}
	if l.Features.Locked {
		data.Upsell = UpsellText
	}
	return data
}

// NewEngine parses templates at build-time.
func NewEngine() (*Engine, error) {
	funcMap := template.FuncMap{
		"css":     cssDecl,
		"logoSrc": logoSrc,
		"lower":   strings.ToLower,
	}
	tpl, err := template.New("root").Funcs(funcMap).ParseFS(web.Templates, "templates/invoice/*.html", "templates/pages/*.html", "templates/reports/*.html")
	if err != nil {
		return nil, err
	}
	return &Engine{templates: tpl}, nil
}

// Render executes a named template with TemplateData.
func (e *Engine) Render(w http.ResponseWriter, name string, data TemplateData) error {
	if e == nil {
		return fmt.Errorf("template engine not initialised")
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	return e.templates.ExecuteTemplate(w, name, data)
}

// RenderPreview writes the on-screen preview page.
func (e *Engine) RenderPreview(w io.Writer, data PreviewData) error {
	if e == nil {
		return fmt.Errorf("template engine not initialised")
	}
	return e.templates.ExecuteTemplate(w, "pages/preview.html", TemplateData{
		Title: data.Layout.Header.Number,
		Data:  data,
	})
}

// RenderPrint returns the standalone print document used for PDF
// conversion. It embeds the same document partial as the preview.
func (e *Engine) RenderPrint(l layout.Layout) (string, error) {
	if e == nil {
		return "", fmt.Errorf("template engine not initialised")
	}
	buf := &bytes.Buffer{}
	data := TemplateData{Title: l.Header.Number, Data: l}
	if err := e.templates.ExecuteTemplate(buf, "reports/invoice_pdf.html", data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// cssDecl emits a single declaration when value is a valid color.
func cssDecl(property, value string) template.CSS {
	c := layout.NormalizeColor(value)
	if c == "" {
		return ""
	}
	return template.CSS(property + ":" + c + ";")
}

// logoSrc only lets inline image data through.
func logoSrc(value string) template.URL {
	if strings.HasPrefix(value, "data:image/") && !strings.ContainsAny(value, "\"'<> ") {
		return template.URL(value)
	}
	return ""
}
