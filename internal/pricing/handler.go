package pricing

import (
	"net"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/quickbill/quickbill/internal/platform/httpx"
	"github.com/quickbill/quickbill/internal/shared"
)

// TimezoneHeader carries the browser's IANA zone.
const TimezoneHeader = "X-Timezone"

// Handler exposes the pricing endpoint.
type Handler struct {
	detector *Detector
}

// NewHandler creates a pricing handler.
func NewHandler(detector *Detector) *Handler {
	return &Handler{detector: detector}
}

// MountRoutes registers pricing routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/api/pricing", h.get)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	device, _ := shared.DeviceFromContext(r.Context())
	price := h.detector.Detect(r.Context(), device.ID, Hints{
		Timezone:       r.Header.Get(TimezoneHeader),
		AcceptLanguage: r.Header.Get("Accept-Language"),
		ClientIP:       clientIP(r),
	})
	httpx.JSON(w, http.StatusOK, price)
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
