package report

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/quickbill/quickbill/internal/invoice"
	"github.com/quickbill/quickbill/internal/layout"
	"github.com/quickbill/quickbill/internal/platform/httpx"
)

const sampleCacheVersion = 1

// Exporter renders a layout to PDF bytes.
type Exporter interface {
	Export(ctx context.Context, l layout.Layout) ([]byte, error)
}

// Samples renders and caches the showcase invoice for every variant.
type Samples struct {
	exporter Exporter
	client   *redis.Client
	ttl      time.Duration
	scope    string
	group    singleflight.Group
	logger   *slog.Logger
}

// NewSamples constructs the sample renderer. client may be nil, which
// disables caching. scope separates cache entries of different backends.
func NewSamples(exporter Exporter, client *redis.Client, ttl time.Duration, scope string, logger *slog.Logger) *Samples {
	if logger == nil {
		logger = slog.Default()
	}
	return &Samples{exporter: exporter, client: client, ttl: ttl, scope: scope, logger: logger}
}

func (s *Samples) key(v layout.Variant) string {
	return fmt.Sprintf("qb:samples:%s:%s:v%d", s.scope, v, sampleCacheVersion)
}

// PDF returns the sample document for v, rendering at most once per
// variant at a time.
func (s *Samples) PDF(ctx context.Context, v layout.Variant) ([]byte, error) {
	if s.client != nil {
		cached, err := s.client.Get(ctx, s.key(v)).Bytes()
		if err == nil {
			return cached, nil
		}
		if !errors.Is(err, redis.Nil) {
			s.logger.Warn("sample cache read", slog.String("variant", string(v)), slog.Any("error", err))
		}
	}
	ch := s.group.DoChan(string(v), func() (interface{}, error) {
		return s.refresh(context.WithoutCancel(ctx), v)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]byte), nil
	}
}

// Warm re-renders every variant concurrently and refreshes the cache.
func (s *Samples) Warm(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, d := range layout.Descriptors() {
		v := d.ID
		g.Go(func() error {
			_, err := s.refresh(gctx, v)
			return err
		})
	}
	return g.Wait()
}

func (s *Samples) refresh(ctx context.Context, v layout.Variant) ([]byte, error) {
	l := layout.Build(invoice.Sample(string(v)), layout.Options{Pro: true})
	pdf, err := s.exporter.Export(ctx, l)
	if err != nil {
		return nil, fmt.Errorf("render sample %s: %w", v, err)
	}
	if s.client != nil {
		if err := s.client.Set(ctx, s.key(v), pdf, s.ttl).Err(); err != nil {
			s.logger.Warn("sample cache write", slog.String("variant", string(v)), slog.Any("error", err))
		}
	}
	return pdf, nil
}

// Handler manages report endpoints.
type Handler struct {
	client  *Client
	samples *Samples
	logger  *slog.Logger
}

// NewHandler creates a report handler. client may be nil when the local
// PDF backend is configured.
func NewHandler(client *Client, samples *Samples, logger *slog.Logger) *Handler {
	return &Handler{client: client, samples: samples, logger: logger}
}

// MountRoutes registers report routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/samples/{template}.pdf", h.sample)
	r.Get("/reports/ping", h.ping)
}

func (h *Handler) ping(w http.ResponseWriter, r *http.Request) {
	if h.client == nil {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "local"})
		return
	}
	if err := h.client.Ping(r.Context()); err != nil {
		h.logger.Warn("gotenberg ping failed", slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) sample(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "template")
	if !layout.IsKnown(id) {
		httpx.Problem(w, http.StatusNotFound, "Not Found", "unknown template")
		return
	}
	v := layout.ParseVariant(id)
	pdf, err := h.samples.PDF(r.Context(), v)
	if err != nil {
		h.logger.Error("render sample pdf", slog.String("variant", string(v)), slog.Any("error", err))
		httpx.Problem(w, http.StatusBadGateway, "Bad Gateway", "Sample could not be generated.")
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=sample-%s.pdf", v))
	w.Header().Set("Cache-Control", "public, max-age=3600")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(pdf)
}
