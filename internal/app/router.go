package app

import (
	"io/fs"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/quickbill/quickbill/internal/invoicing"
	"github.com/quickbill/quickbill/internal/layout"
	"github.com/quickbill/quickbill/internal/observability"
	"github.com/quickbill/quickbill/internal/pricing"
	"github.com/quickbill/quickbill/internal/shared"
	"github.com/quickbill/quickbill/internal/view"
	"github.com/quickbill/quickbill/jobs"
	"github.com/quickbill/quickbill/report"
	"github.com/quickbill/quickbill/web"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger           *slog.Logger
	Config           *Config
	Templates        *view.Engine
	Devices          *shared.DeviceManager
	InvoicingHandler *invoicing.Handler
	PricingHandler   *pricing.Handler
	ReportHandler    *report.Handler
	JobHandler       *jobs.Handler
	Metrics          *observability.Metrics
}

// NewRouter constructs the chi.Router with QuickBill defaults.
func NewRouter(params RouterParams) http.Handler {
	logger := params.Logger
	if logger == nil {
		logger = slog.Default()
	}
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  logger,
		Config:  params.Config,
		Devices: params.Devices,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	if !InTestMode() {
		r.Use(chimw.Logger)
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		data := view.TemplateData{Title: "QuickBill templates", Data: layout.Descriptors()}
		if err := params.Templates.Render(w, "pages/gallery.html", data); err != nil {
			logger.Error("render gallery", slog.Any("error", err))
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		}
	})

	if params.InvoicingHandler != nil {
		params.InvoicingHandler.MountRoutes(r)
	}
	if params.PricingHandler != nil {
		params.PricingHandler.MountRoutes(r)
	}
	if params.ReportHandler != nil {
		params.ReportHandler.MountRoutes(r)
	}
	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	staticFS, err := fs.Sub(web.Static, "static")
	if err != nil {
		logger.Error("create static sub filesystem", slog.Any("error", err))
	} else {
		fileServer := http.StripPrefix("/static/", http.FileServer(http.FS(staticFS)))
		r.Handle("/static/*", staticCacheHandler(fileServer))
	}

	return r
}

// staticCacheHandler lets browsers cache embedded assets for an hour.
func staticCacheHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "public, max-age=3600")
		next.ServeHTTP(w, r)
	})
}
