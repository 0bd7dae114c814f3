// Package export turns a resolved layout into PDF bytes.
package export

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/quickbill/quickbill/internal/layout"
)

// ErrExportFailed is the only error export callers need to branch on.
var ErrExportFailed = errors.New("export: pdf generation failed")

// Backend names a PDF producer.
type Backend string

const (
	BackendLocal     Backend = "local"
	BackendGotenberg Backend = "gotenberg"
)

// ParseBackend validates a configured backend name.
func ParseBackend(value string) (Backend, error) {
	switch b := Backend(strings.ToLower(strings.TrimSpace(value))); b {
	case BackendLocal, BackendGotenberg:
		return b, nil
	case "":
		return BackendLocal, nil
	default:
		return "", fmt.Errorf("export: unknown backend %q", value)
	}
}

// Exporter renders one layout to a complete PDF document.
type Exporter interface {
	Export(ctx context.Context, l layout.Layout) ([]byte, error)
}

// Recorder receives export outcomes.
type Recorder interface {
	ObserveExport(backend, variant, outcome string, elapsed time.Duration)
}

// Service wraps a backend with logging, metrics and error folding.
type Service struct {
	backend  Backend
	exporter Exporter
	recorder Recorder
	logger   *slog.Logger
}

// NewService constructs an export service. recorder may be nil.
func NewService(backend Backend, exporter Exporter, recorder Recorder, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{backend: backend, exporter: exporter, recorder: recorder, logger: logger}
}

// Backend reports the configured backend name.
func (s *Service) Backend() Backend {
	return s.backend
}

// Export renders l. Any failure is logged with its cause and returned
// wrapped in ErrExportFailed; no partial output is ever returned.
func (s *Service) Export(ctx context.Context, l layout.Layout) ([]byte, error) {
	start := time.Now()
	pdf, err := s.exporter.Export(ctx, l)
	if err == nil && len(pdf) == 0 {
		err = errors.New("empty document")
	}
	if err != nil {
		s.observe(l, "failure", start)
		s.logger.Error("export invoice pdf",
			slog.String("backend", string(s.backend)),
			slog.String("variant", string(l.Variant.ID)),
			slog.String("number", l.Header.Number),
			slog.Any("error", err))
		return nil, fmt.Errorf("%w: %w", ErrExportFailed, err)
	}
	s.observe(l, "success", start)
	return pdf, nil
}

func (s *Service) observe(l layout.Layout, outcome string, start time.Time) {
	if s.recorder == nil {
		return
	}
	s.recorder.ObserveExport(string(s.backend), string(l.Variant.ID), outcome, time.Since(start))
}

// Filename is the attachment name for an invoice number.
func Filename(number string) string {
	var b strings.Builder
	for _, r := range strings.TrimSpace(number) {
		switch {
		case r < 0x20, r == 0x7f, strings.ContainsRune(`/\:*?"<>|;`, r):
			b.WriteRune('-')
		default:
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return "invoice.pdf"
	}
	return b.String() + ".pdf"
}
