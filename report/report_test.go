package report

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quickbill/quickbill/internal/layout"
)

func TestClientRenderHTML(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/forms/chromium/convert/html", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "8.27", r.FormValue("paperWidth"))
		assert.Equal(t, "true", r.FormValue("printBackground"))
		file, header, err := r.FormFile("files")
		require.NoError(t, err)
		assert.Equal(t, "index.html", header.Filename)
		body, _ := io.ReadAll(file)
		assert.Equal(t, "<html>invoice</html>", string(body))
		_, _ = w.Write([]byte("%PDF-1.7"))
	}))
	defer srv.Close()

	pdf, err := NewClient(srv.URL+"/").RenderHTML(context.Background(), "<html>invoice</html>")
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.7", string(pdf))
}

func TestClientRenderHTMLFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	client := NewClient(srv.URL)
	_, err := client.RenderHTML(context.Background(), "<html></html>")
	assert.Error(t, err)
	assert.Error(t, client.Ping(context.Background()))
}

func TestClientRenderHTMLRejectsOversizedOutput(t *testing.T) {
	const limit = 1024
	var size atomic.Int64
	size.Store(limit)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(append([]byte("%PDF-1.7"), bytes.Repeat([]byte{'0'}, int(size.Load())-len("%PDF-1.7"))...))
	}))
	defer srv.Close()

	client := NewClient(srv.URL)
	client.maxBytes = limit
	pdf, err := client.RenderHTML(context.Background(), "<html></html>")
	require.NoError(t, err, "exactly at the limit")
	assert.Len(t, pdf, limit)

	size.Store(limit + 1)
	pdf, err = client.RenderHTML(context.Background(), "<html></html>")
	assert.ErrorIs(t, err, ErrPDFTooLarge)
	assert.Nil(t, pdf)
}

type countingExporter struct {
	mu    sync.Mutex
	calls map[layout.Variant]int
	total atomic.Int32
	delay time.Duration
	err   error
}

func (c *countingExporter) Export(_ context.Context, l layout.Layout) ([]byte, error) {
	time.Sleep(c.delay)
	c.mu.Lock()
	if c.calls == nil {
		c.calls = map[layout.Variant]int{}
	}
	c.calls[l.Variant.ID]++
	c.mu.Unlock()
	c.total.Add(1)
	if c.err != nil {
		return nil, c.err
	}
	return []byte("%PDF-" + string(l.Variant.ID)), nil
}

func newRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestSamplesCachesRenderedPDF(t *testing.T) {
	exp := &countingExporter{}
	samples := NewSamples(exp, newRedis(t), time.Hour, "local", slog.New(slog.NewTextHandler(io.Discard, nil)))

	first, err := samples.PDF(context.Background(), layout.Stripe)
	require.NoError(t, err)
	second, err := samples.PDF(context.Background(), layout.Stripe)
	require.NoError(t, err)

	assert.Equal(t, "%PDF-stripe", string(first))
	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), exp.total.Load())
}

func TestSamplesDeduplicatesConcurrentRenders(t *testing.T) {
	exp := &countingExporter{delay: 50 * time.Millisecond}
	samples := NewSamples(exp, nil, time.Hour, "local", nil)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := samples.PDF(context.Background(), layout.Bold)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.LessOrEqual(t, exp.total.Load(), int32(2))
}

func TestSamplesWarmRendersEveryVariant(t *testing.T) {
	exp := &countingExporter{}
	client := newRedis(t)
	samples := NewSamples(exp, client, time.Hour, "gotenberg", nil)

	require.NoError(t, samples.Warm(context.Background()))
	assert.Len(t, exp.calls, len(layout.Descriptors()))

	cached, err := client.Get(context.Background(), "qb:samples:gotenberg:contrast:v1").Bytes()
	require.NoError(t, err)
	assert.Equal(t, "%PDF-contrast", string(cached))
}

func TestSamplesWarmPropagatesFailure(t *testing.T) {
	samples := NewSamples(&countingExporter{err: errors.New("boom")}, nil, time.Hour, "local", nil)
	assert.Error(t, samples.Warm(context.Background()))
}

func TestSampleHandler(t *testing.T) {
	samples := NewSamples(&countingExporter{}, nil, time.Hour, "local", nil)
	r := chi.NewRouter()
	NewHandler(nil, samples, slog.New(slog.NewTextHandler(io.Discard, nil))).MountRoutes(r)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/samples/executive.pdf", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.Equal(t, "%PDF-executive", rec.Body.String())

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/samples/neon.pdf", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/reports/ping", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestSampleHandlerFailure(t *testing.T) {
	samples := NewSamples(&countingExporter{err: errors.New("down")}, nil, time.Hour, "local", nil)
	r := chi.NewRouter()
	NewHandler(nil, samples, slog.New(slog.NewTextHandler(io.Discard, nil))).MountRoutes(r)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/samples/clean.pdf", nil))
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}
