package app

import (
	"context"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/quickbill/quickbill/internal/export"
	"github.com/quickbill/quickbill/internal/platform/db"
	"github.com/quickbill/quickbill/internal/shared"
	"github.com/quickbill/quickbill/internal/view"
	"github.com/quickbill/quickbill/report"
)

// NewStore opens the per-device record store selected by STORE_DRIVER. The
// returned close func releases any pool it opened.
func NewStore(ctx context.Context, cfg *Config, client *redis.Client, logger *slog.Logger) (shared.RecordStore, func(), error) {
	if cfg.StoreDriver != StorePostgres {
		return shared.NewRedisRecordStore(client, cfg.DeviceTTL), func() {}, nil
	}
	pool, err := db.New(ctx, cfg.PGDSN, db.Options{MaxConns: 10})
	if err != nil {
		return nil, nil, err
	}
	store := shared.NewPostgresRecordStore(pool)
	if err := store.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, nil, err
	}
	logger.Info("using postgres record store")
	return store, pool.Close, nil
}

// NewExporter builds the PDF backend selected by PDF_BACKEND. The Gotenberg
// client is returned for health checks and is nil for the local backend.
func NewExporter(cfg *Config, templates *view.Engine) (export.Exporter, *report.Client) {
	if cfg.Backend() == export.BackendGotenberg {
		client := report.NewClient(cfg.GotenbergURL)
		return export.NewRemote(templates, client), client
	}
	return export.NewLocal(export.LocalOptions{
		FontPath:     cfg.PDFFontPath,
		BoldFontPath: cfg.PDFFontBoldPath,
	}), nil
}
