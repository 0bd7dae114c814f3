package app

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quickbill/quickbill/internal/export"
	"github.com/quickbill/quickbill/internal/invoicing"
	"github.com/quickbill/quickbill/internal/observability"
	"github.com/quickbill/quickbill/internal/pricing"
	"github.com/quickbill/quickbill/internal/shared"
	"github.com/quickbill/quickbill/internal/view"
	"github.com/quickbill/quickbill/jobs"
	_ "github.com/quickbill/quickbill/testing"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("PDF_BACKEND", "")
	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, StoreRedis, cfg.StoreDriver)
	assert.Equal(t, export.BackendLocal, cfg.Backend())
	assert.Equal(t, 8760*time.Hour, cfg.DeviceTTL)
	assert.Equal(t, time.Hour, cfg.SampleCacheTTL)
	assert.Equal(t, 3*time.Second, cfg.GeoIPTimeout)
	assert.Equal(t, 120, cfg.RateLimitPerMinute)
	assert.False(t, cfg.IsProduction())
}

func TestLoadConfigRejectsUnknownValues(t *testing.T) {
	t.Setenv("STORE_DRIVER", "sqlite")
	_, err := LoadConfig()
	assert.ErrorContains(t, err, "STORE_DRIVER")

	t.Setenv("STORE_DRIVER", "postgres")
	t.Setenv("PDF_BACKEND", "wkhtml")
	_, err = LoadConfig()
	assert.ErrorContains(t, err, "unknown backend")

	t.Setenv("PDF_BACKEND", "gotenberg")
	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, export.BackendGotenberg, cfg.Backend())
}

func TestInTestMode(t *testing.T) {
	RefreshTestMode()
	assert.True(t, InTestMode())
}

func newTestRouter(t *testing.T, limit int) http.Handler {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	templates, err := view.NewEngine()
	require.NoError(t, err)
	store := shared.NewRedisRecordStore(client, 0)
	exports := export.NewService(export.BackendLocal, export.NewLocal(export.LocalOptions{}), nil, logger)
	cfg := &Config{AppEnv: "test", AppRequestTimeout: 5 * time.Second, RateLimitPerMinute: limit}

	return NewRouter(RouterParams{
		Logger:           logger,
		Config:           cfg,
		Templates:        templates,
		Devices:          shared.NewDeviceManager("qb_device", time.Hour, false),
		InvoicingHandler: invoicing.NewHandler(logger, invoicing.NewProfile(store), templates, exports, ""),
		PricingHandler:   pricing.NewHandler(pricing.NewDetector(store, nil, time.Second, logger)),
		JobHandler:       jobs.NewHandler(nil, logger),
		Metrics:          observability.NewMetrics(),
	})
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestRouterServesCoreRoutes(t *testing.T) {
	r := newTestRouter(t, 100)

	rec := get(t, r, "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	rec = get(t, r, "/")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "/samples/stripe.pdf")
	assert.Contains(t, rec.Body.String(), "Executive")
	assert.Contains(t, rec.Header().Get("Content-Security-Policy"), "img-src 'self' data:")
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))

	rec = get(t, r, "/static/css/app.css")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "public, max-age=3600", rec.Header().Get("Cache-Control"))

	rec = get(t, r, "/api/templates")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Result().Cookies(), "device cookie is minted on first visit")

	rec = get(t, r, "/jobs/health")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = get(t, r, "/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `quickbill_http_requests_total{code="200",route="/healthz"} 1`)
}

func TestRouterRateLimits(t *testing.T) {
	r := newTestRouter(t, 2)
	for i := 0; i < 2; i++ {
		assert.Equal(t, http.StatusOK, get(t, r, "/healthz").Code)
	}
	assert.Equal(t, http.StatusTooManyRequests, get(t, r, "/healthz").Code)
}

func TestNewExporterSelectsBackend(t *testing.T) {
	templates, err := view.NewEngine()
	require.NoError(t, err)

	exporter, client := NewExporter(&Config{PDFBackend: "local"}, templates)
	assert.IsType(t, &export.Local{}, exporter)
	assert.Nil(t, client)

	exporter, client = NewExporter(&Config{PDFBackend: "gotenberg", GotenbergURL: "http://gotenberg:3000"}, templates)
	assert.IsType(t, &export.Remote{}, exporter)
	assert.NotNil(t, client)
}

func TestNewStoreDefaultsToRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	store, closeStore, err := NewStore(context.Background(), &Config{StoreDriver: StoreRedis}, client, slog.Default())
	require.NoError(t, err)
	defer closeStore()
	assert.IsType(t, &shared.RedisRecordStore{}, store)
}
