package export

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/quickbill/quickbill/internal/layout"
)

// PrintRenderer produces the standalone print HTML for a layout.
type PrintRenderer interface {
	RenderPrint(l layout.Layout) (string, error)
}

// HTMLConverter converts an HTML document to PDF.
type HTMLConverter interface {
	RenderHTML(ctx context.Context, html string) ([]byte, error)
}

// Remote renders print HTML and hands it to a converter such as Gotenberg.
type Remote struct {
	printer   PrintRenderer
	converter HTMLConverter
}

// NewRemote constructs a Remote exporter.
func NewRemote(printer PrintRenderer, converter HTMLConverter) *Remote {
	return &Remote{printer: printer, converter: converter}
}

// Export implements Exporter.
func (r *Remote) Export(ctx context.Context, l layout.Layout) ([]byte, error) {
	if r.printer == nil || r.converter == nil {
		return nil, errors.New("remote exporter not configured")
	}
	html, err := r.printer.RenderPrint(l)
	if err != nil {
		return nil, fmt.Errorf("render print html: %w", err)
	}
	pdf, err := r.converter.RenderHTML(ctx, html)
	if err != nil {
		return nil, fmt.Errorf("convert html: %w", err)
	}
	if !bytes.HasPrefix(pdf, []byte("%PDF-")) {
		return nil, errors.New("converter returned a non-pdf body")
	}
	return pdf, nil
}
