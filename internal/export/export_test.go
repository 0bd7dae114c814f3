package export

import (
	"bytes"
	"compress/zlib"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"regexp"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quickbill/quickbill/internal/invoice"
	"github.com/quickbill/quickbill/internal/layout"
)

func sampleLayout(template string, pro bool) layout.Layout {
	return layout.Build(invoice.Sample(template), layout.Options{Pro: pro})
}

func pngDataURI(t *testing.T) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for x := 0; x < 4; x++ {
		for y := 0; y < 4; y++ {
			img.Set(x, y, color.RGBA{R: 5, G: 150, B: 105, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes())
}

// pageContent inflates every compressed stream of a PDF and joins them, which
// exposes the drawing operators of each page.
func pageContent(t *testing.T, pdf []byte) string {
	t.Helper()
	var out strings.Builder
	rest := pdf
	for {
		i := bytes.Index(rest, []byte("stream\n"))
		if i < 0 {
			break
		}
		rest = rest[i+len("stream\n"):]
		j := bytes.Index(rest, []byte("\nendstream"))
		if j < 0 {
			break
		}
		if r, err := zlib.NewReader(bytes.NewReader(rest[:j])); err == nil {
			b, _ := io.ReadAll(r)
			out.Write(b)
			out.WriteByte('\n')
		}
		rest = rest[j+len("\nendstream"):]
	}
	return out.String()
}

func TestLocalExportsEveryVariant(t *testing.T) {
	exporter := NewLocal(LocalOptions{})
	for _, d := range layout.Descriptors() {
		for _, pro := range []bool{false, true} {
			pdf, err := exporter.Export(context.Background(), sampleLayout(string(d.ID), pro))
			require.NoError(t, err, "variant %s pro=%v", d.ID, pro)
			assert.True(t, bytes.HasPrefix(pdf, []byte("%PDF-")), "variant %s", d.ID)
		}
	}
}

func TestLocalPinsCreationDateToIssueDate(t *testing.T) {
	pdf, err := NewLocal(LocalOptions{}).Export(context.Background(), sampleLayout("clean", true))
	require.NoError(t, err)
	assert.Contains(t, string(pdf), "D:20250211")
}

func TestLocalExportIsByteStable(t *testing.T) {
	exporter := NewLocal(LocalOptions{})
	logo := pngDataURI(t)
	for _, d := range layout.Descriptors() {
		l := sampleLayout(string(d.ID), true)
		l.Header.Logo = logo
		first, err := exporter.Export(context.Background(), l)
		require.NoError(t, err, "variant %s", d.ID)
		second, err := exporter.Export(context.Background(), l)
		require.NoError(t, err, "variant %s", d.ID)
		assert.True(t, bytes.Equal(first, second), "variant %s differs between runs", d.ID)
		assert.Contains(t, string(first), "/ModDate (D:20250211")
	}
}

func TestLocalSpellsOutSymbolsOutsideCP1252(t *testing.T) {
	doc := invoice.Sample("clean")
	doc.Currency = "INR"
	pdf, err := NewLocal(LocalOptions{}).Export(context.Background(), layout.Build(doc, layout.Options{Pro: true}))
	require.NoError(t, err)
	content := pageContent(t, pdf)
	assert.Contains(t, content, "(INR 10675.50)")
	assert.Contains(t, content, "(-INR 500.00)")
	assert.NotContains(t, content, "(.10675.50)")

	doc.Currency = "EUR"
	pdf, err = NewLocal(LocalOptions{}).Export(context.Background(), layout.Build(doc, layout.Options{Pro: true}))
	require.NoError(t, err)
	assert.Contains(t, pageContent(t, pdf), "(\x8010675.50)", "euro stays a symbol")
}

func TestSymbolFallback(t *testing.T) {
	assert.Equal(t, "PLN 12.00", symbolFallback(invoice.LookupCurrency("PLN"))("zł12.00"))
	assert.Equal(t, "€12.00", symbolFallback(invoice.LookupCurrency("EUR"))("€12.00"))
	assert.Equal(t, "$12.00", symbolFallback(invoice.LookupCurrency("USD"))("$12.00"))
}

func TestLocalSplitHeaderLabels(t *testing.T) {
	exporter := NewLocal(LocalOptions{})
	l := sampleLayout("executive", true)
	pdf, err := exporter.Export(context.Background(), l)
	require.NoError(t, err)
	content := pageContent(t, pdf)
	assert.Contains(t, content, "(FROM)")
	assert.Contains(t, content, "(DETAILS)")

	l.Header.FromLabel, l.Header.DetailsLabel = "", ""
	pdf, err = exporter.Export(context.Background(), l)
	require.NoError(t, err)
	assert.NotContains(t, pageContent(t, pdf), "(FROM)")
}

// sidebarFill is the full-height sidebar rectangle in points.
const sidebarFill = "0.00 841.89 153.07 -841.89 re f"

func TestLocalSidebarSpansPageAndHoldsIdentity(t *testing.T) {
	doc := invoice.Sample("creative")
	for i := 0; i < 60; i++ {
		doc.Items = append(doc.Items, invoice.LineItem{
			ID:          fmt.Sprintf("extra-%d", i),
			Description: fmt.Sprintf("Illustration round %d", i),
			Quantity:    1,
			Rate:        120,
		})
	}
	pdf, err := NewLocal(LocalOptions{}).Export(context.Background(), layout.Build(doc, layout.Options{Pro: true}))
	require.NoError(t, err)
	content := pageContent(t, pdf)

	pages, err := strconv.Atoi(regexp.MustCompile(`/Count (\d+)`).FindStringSubmatch(string(pdf))[1])
	require.NoError(t, err)
	require.Greater(t, pages, 1)
	assert.Equal(t, pages, strings.Count(content, sidebarFill), "sidebar repainted on every page")

	sidebarRight := 153.07
	for _, text := range []string{"Acme Design", "INVOICE", "INV-2025-042"} {
		m := regexp.MustCompile(`BT ([0-9.]+) [0-9.]+ Td \(` + regexp.QuoteMeta(text)).FindStringSubmatch(content)
		require.NotNil(t, m, text)
		x, err := strconv.ParseFloat(m[1], 64)
		require.NoError(t, err)
		assert.Less(t, x, sidebarRight, "%s drawn inside the sidebar", text)
	}
	m := regexp.MustCompile(`BT ([0-9.]+) [0-9.]+ Td \(BILL TO`).FindStringSubmatch(content)
	require.NotNil(t, m)
	x, err := strconv.ParseFloat(m[1], 64)
	require.NoError(t, err)
	assert.Greater(t, x, sidebarRight, "body sits right of the sidebar")
}

func TestLocalPaginatesLongTables(t *testing.T) {
	doc := invoice.Sample("stripe")
	for i := 0; i < 80; i++ {
		doc.Items = append(doc.Items, invoice.LineItem{
			ID:          fmt.Sprintf("extra-%d", i),
			Description: fmt.Sprintf("Support hours block %d", i),
			Quantity:    2,
			Rate:        75,
		})
	}
	pdf, err := NewLocal(LocalOptions{}).Export(context.Background(), layout.Build(doc, layout.Options{Pro: true}))
	require.NoError(t, err)
	assert.Regexp(t, `/Count [2-9]`, string(pdf))
}

func TestLocalLogoHandling(t *testing.T) {
	exporter := NewLocal(LocalOptions{})

	l := sampleLayout("professional", true)
	l.Header.Logo = pngDataURI(t)
	pdf, err := exporter.Export(context.Background(), l)
	require.NoError(t, err)
	assert.NotEmpty(t, pdf)

	l.Header.Logo = "data:image/svg+xml;base64," + base64.StdEncoding.EncodeToString([]byte("<svg/>"))
	_, err = exporter.Export(context.Background(), l)
	assert.NoError(t, err, "unsupported formats are skipped")

	for _, bad := range []string{
		"data:image/png;base64,%%%not-base64%%%",
		"data:image/png,plain",
		"data:image/png;base64," + base64.StdEncoding.EncodeToString([]byte("not a png")),
	} {
		l.Header.Logo = bad
		_, err = exporter.Export(context.Background(), l)
		assert.Error(t, err, bad)
	}
}

func TestLocalHonoursCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewLocal(LocalOptions{}).Export(ctx, sampleLayout("clean", false))
	assert.ErrorIs(t, err, context.Canceled)
}

type stubPrinter struct {
	html string
	err  error
}

func (s stubPrinter) RenderPrint(layout.Layout) (string, error) { return s.html, s.err }

type stubConverter struct {
	got  string
	body []byte
	err  error
}

func (s *stubConverter) RenderHTML(_ context.Context, html string) ([]byte, error) {
	s.got = html
	return s.body, s.err
}

func TestRemoteExport(t *testing.T) {
	conv := &stubConverter{body: []byte("%PDF-1.7 fake")}
	pdf, err := NewRemote(stubPrinter{html: "<html>ok</html>"}, conv).Export(context.Background(), sampleLayout("bold", true))
	require.NoError(t, err)
	assert.Equal(t, "<html>ok</html>", conv.got)
	assert.Equal(t, []byte("%PDF-1.7 fake"), pdf)

	_, err = NewRemote(stubPrinter{html: "x"}, &stubConverter{body: []byte("<html>error page</html>")}).Export(context.Background(), sampleLayout("bold", true))
	assert.Error(t, err)

	_, err = NewRemote(stubPrinter{err: errors.New("template")}, conv).Export(context.Background(), sampleLayout("bold", true))
	assert.Error(t, err)
}

type failingExporter struct{ err error }

func (f failingExporter) Export(context.Context, layout.Layout) ([]byte, error) { return nil, f.err }

type recorded struct{ backend, variant, outcome string }

type fakeRecorder struct{ calls []recorded }

func (f *fakeRecorder) ObserveExport(backend, variant, outcome string, _ time.Duration) {
	f.calls = append(f.calls, recorded{backend, variant, outcome})
}

func TestServiceFoldsErrors(t *testing.T) {
	rec := &fakeRecorder{}
	cause := errors.New("gotenberg down")
	svc := NewService(BackendGotenberg, failingExporter{err: cause}, rec, nil)

	pdf, err := svc.Export(context.Background(), sampleLayout("executive", true))
	assert.Nil(t, pdf)
	assert.ErrorIs(t, err, ErrExportFailed)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, []recorded{{"gotenberg", "executive", "failure"}}, rec.calls)

	_, err = NewService(BackendLocal, failingExporter{}, nil, nil).Export(context.Background(), sampleLayout("clean", false))
	assert.ErrorIs(t, err, ErrExportFailed, "empty output is a failure")
}

func TestServiceRecordsSuccess(t *testing.T) {
	rec := &fakeRecorder{}
	svc := NewService(BackendLocal, NewLocal(LocalOptions{}), rec, nil)
	pdf, err := svc.Export(context.Background(), sampleLayout("creative", false))
	require.NoError(t, err)
	assert.NotEmpty(t, pdf)
	assert.Equal(t, []recorded{{"local", "creative", "success"}}, rec.calls)
}

func TestParseBackend(t *testing.T) {
	b, err := ParseBackend(" Gotenberg ")
	require.NoError(t, err)
	assert.Equal(t, BackendGotenberg, b)

	b, err = ParseBackend("")
	require.NoError(t, err)
	assert.Equal(t, BackendLocal, b)

	_, err = ParseBackend("wkhtmltopdf")
	assert.Error(t, err)
}

func TestFilename(t *testing.T) {
	assert.Equal(t, "INV-2025-042.pdf", Filename("INV-2025-042"))
	assert.Equal(t, "INV-1-2.pdf", Filename("INV-1/2"))
	assert.Equal(t, "invoice.pdf", Filename("  "))
}
