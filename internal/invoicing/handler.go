package invoicing

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"

	"github.com/quickbill/quickbill/internal/export"
	"github.com/quickbill/quickbill/internal/invoice"
	"github.com/quickbill/quickbill/internal/layout"
	"github.com/quickbill/quickbill/internal/platform/httpx"
	"github.com/quickbill/quickbill/internal/shared"
	"github.com/quickbill/quickbill/internal/view"
)

// maxBodyBytes covers a document carrying the largest accepted logo.
const maxBodyBytes = 4 << 20

// ExportFailedDetail is the only failure message export callers see.
const ExportFailedDetail = "PDF generation failed. Please try again."

// Handler wires HTTP endpoints for the invoice editor.
type Handler struct {
	logger    *slog.Logger
	profile   *Profile
	templates *view.Engine
	exports   *export.Service
	validator *validator.Validate
	tokenHash []byte
}

// NewHandler constructs a Handler instance. An empty tokenHash disables
// the entitlement callback.
func NewHandler(logger *slog.Logger, profile *Profile, templates *view.Engine, exports *export.Service, tokenHash string) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:    logger,
		profile:   profile,
		templates: templates,
		exports:   exports,
		validator: validator.New(),
		tokenHash: []byte(tokenHash),
	}
}

// MountRoutes registers invoice routes on provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/api/invoices/new", h.newInvoice)
	r.Post("/api/invoices/totals", h.totals)
	r.Post("/api/invoices/preview", h.preview)
	r.Post("/api/invoices/export", h.export)
	r.Get("/api/business", h.getBusiness)
	r.Put("/api/business", h.putBusiness)
	r.Get("/api/templates", h.listTemplates)
	r.Get("/api/currencies", h.listCurrencies)
	r.Get("/api/entitlement", h.entitlement)
	r.Post("/internal/entitlements", h.grantEntitlement)
}

func (h *Handler) device(w http.ResponseWriter, r *http.Request) (string, bool) {
	device, ok := shared.DeviceFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, fmt.Errorf("%w: %w", httpx.ErrValidation, shared.ErrNoDevice))
		return "", false
	}
	return device.ID, true
}

func (h *Handler) decodeDocument(w http.ResponseWriter, r *http.Request) (invoice.Document, bool) {
	doc, err := invoice.Decode(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			httpx.Problem(w, http.StatusRequestEntityTooLarge, "Payload Too Large", "document exceeds the size limit")
			return invoice.Document{}, false
		}
		httpx.Problem(w, http.StatusBadRequest, "Malformed Document", "request body is not a valid invoice document")
		return invoice.Document{}, false
	}
	return doc, true
}

// renderOptions resolves the entitlement flag once per request.
func (h *Handler) renderOptions(r *http.Request, device string) (layout.Options, error) {
	pro, err := h.profile.IsPro(r.Context(), device)
	if err != nil {
		return layout.Options{}, err
	}
	return layout.Options{Pro: pro}, nil
}

func (h *Handler) newInvoice(w http.ResponseWriter, r *http.Request) {
	device, ok := h.device(w, r)
	if !ok {
		return
	}
	template := ""
	if q := r.URL.Query().Get("template"); q != "" {
		template = string(layout.ParseVariant(q))
	}
	doc, err := h.profile.NewDocument(r.Context(), device, template)
	if err != nil {
		h.logger.Error("new invoice", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, doc)
}

type totalsResponse struct {
	invoice.Totals
	Currency  invoice.Currency `json:"currency"`
	Formatted formattedTotals  `json:"formatted"`
}

type formattedTotals struct {
	Subtotal string `json:"subtotal"`
	Tax      string `json:"tax"`
	Discount string `json:"discount"`
	Total    string `json:"total"`
}

func (h *Handler) totals(w http.ResponseWriter, r *http.Request) {
	doc, ok := h.decodeDocument(w, r)
	if !ok {
		return
	}
	totals := invoice.Compute(doc)
	cur := invoice.LookupCurrency(doc.Currency)
	httpx.JSON(w, http.StatusOK, totalsResponse{
		Totals:   totals,
		Currency: cur,
		Formatted: formattedTotals{
			Subtotal: cur.Format(totals.Subtotal),
			Tax:      cur.Format(totals.Tax),
			Discount: cur.FormatNegated(totals.Discount),
			Total:    cur.Format(totals.Total),
		},
	})
}

func (h *Handler) preview(w http.ResponseWriter, r *http.Request) {
	device, ok := h.device(w, r)
	if !ok {
		return
	}
	doc, ok := h.decodeDocument(w, r)
	if !ok {
		return
	}
	opts, err := h.renderOptions(r, device)
	if err != nil {
		h.logger.Error("load entitlement", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := h.templates.RenderPreview(w, view.NewPreviewData(layout.Build(doc, opts))); err != nil {
		h.logger.Error("render preview", slog.Any("error", err))
	}
}

func (h *Handler) export(w http.ResponseWriter, r *http.Request) {
	device, ok := h.device(w, r)
	if !ok {
		return
	}
	doc, ok := h.decodeDocument(w, r)
	if !ok {
		return
	}
	opts, err := h.renderOptions(r, device)
	if err != nil {
		h.logger.Error("load entitlement", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Export Failed", ExportFailedDetail)
		return
	}
	pdf, err := h.exports.Export(r.Context(), layout.Build(doc, opts))
	if err != nil {
		httpx.Problem(w, http.StatusInternalServerError, "Export Failed", ExportFailedDetail)
		return
	}
	if _, err := h.profile.AdvanceCounter(r.Context(), device); err != nil {
		h.logger.Warn("advance invoice counter", slog.String("device", device), slog.Any("error", err))
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.Filename(doc.Number)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(pdf)
}

type businessResponse struct {
	invoice.Business
	Saved bool `json:"saved"`
}

func (h *Handler) getBusiness(w http.ResponseWriter, r *http.Request) {
	device, ok := h.device(w, r)
	if !ok {
		return
	}
	b, saved, err := h.profile.Business(r.Context(), device)
	if err != nil {
		h.logger.Error("load business", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, businessResponse{Business: b, Saved: saved})
}

type validationProblem struct {
	httpx.ProblemDetail
	Errors map[string]string `json:"errors"`
}

func (h *Handler) putBusiness(w http.ResponseWriter, r *http.Request) {
	device, ok := h.device(w, r)
	if !ok {
		return
	}
	var b invoice.Business
	if err := httpx.DecodeJSON(r, &b, maxBodyBytes); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Malformed Body", "request body is not valid JSON")
		return
	}
	b.Name = strings.TrimSpace(b.Name)
	b.Email = strings.TrimSpace(b.Email)
	b.Phone = strings.TrimSpace(b.Phone)
	b.Logo = strings.TrimSpace(b.Logo)
	if errs := h.validate(b); len(errs) > 0 {
		httpx.JSON(w, http.StatusBadRequest, validationProblem{
			ProblemDetail: httpx.ProblemDetail{Title: "Validation Failed", Status: http.StatusBadRequest},
			Errors:        errs,
		})
		return
	}
	if err := h.profile.SaveBusiness(r.Context(), device, b); err != nil {
		h.logger.Error("save business", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, businessResponse{Business: b, Saved: true})
}

func (h *Handler) validate(v any) map[string]string {
	errs := make(map[string]string)
	if err := h.validator.Struct(v); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			errs["general"] = err.Error()
			return errs
		}
		for _, fieldErr := range fieldErrs {
			errs[fieldErr.Field()] = fieldErr.Tag()
		}
	}
	return errs
}

type templateInfo struct {
	layout.Descriptor
	Locked bool `json:"locked"`
}

func (h *Handler) listTemplates(w http.ResponseWriter, r *http.Request) {
	device, ok := h.device(w, r)
	if !ok {
		return
	}
	opts, err := h.renderOptions(r, device)
	if err != nil {
		h.logger.Error("load entitlement", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	descriptors := layout.Descriptors()
	out := make([]templateInfo, 0, len(descriptors))
	for _, d := range descriptors {
		out = append(out, templateInfo{Descriptor: d, Locked: d.Pro && !opts.Pro})
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) listCurrencies(w http.ResponseWriter, r *http.Request) {
	httpx.JSON(w, http.StatusOK, invoice.Currencies())
}

func (h *Handler) entitlement(w http.ResponseWriter, r *http.Request) {
	device, ok := h.device(w, r)
	if !ok {
		return
	}
	opts, err := h.renderOptions(r, device)
	if err != nil {
		h.logger.Error("load entitlement", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]bool{"pro": opts.Pro})
}

func (h *Handler) grantEntitlement(w http.ResponseWriter, r *http.Request) {
	if !h.authorized(r) {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	var g Grant
	if err := httpx.DecodeJSON(r, &g, 64<<10); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Malformed Body", "request body is not valid JSON")
		return
	}
	if errs := h.validate(g); len(errs) > 0 {
		httpx.JSON(w, http.StatusBadRequest, validationProblem{
			ProblemDetail: httpx.ProblemDetail{Title: "Validation Failed", Status: http.StatusBadRequest},
			Errors:        errs,
		})
		return
	}
	if id, ok := shared.ParseDeviceID(g.DeviceID); ok {
		g.DeviceID = id
	}
	if err := h.profile.GrantPro(r.Context(), g); err != nil {
		h.logger.Error("grant entitlement", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	h.logger.Info("entitlement granted", slog.String("device", g.DeviceID), slog.String("source", g.Source))
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) authorized(r *http.Request) bool {
	if len(h.tokenHash) == 0 {
		return false
	}
	token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok || token == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword(h.tokenHash, []byte(token)) == nil
}
