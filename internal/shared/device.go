package shared

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DeviceHeader lets API clients present their device id without cookies.
const DeviceHeader = "X-Device-ID"

// Device identifies one browser or client install. All persisted records
// are scoped to it.
type Device struct {
	ID    string
	IsNew bool
}

// DeviceManager issues and recognises long-lived device cookies.
type DeviceManager struct {
	cookieName string
	ttl        time.Duration
	secure     bool
	newID      func() string
}

// NewDeviceManager constructs a DeviceManager.
func NewDeviceManager(cookieName string, ttl time.Duration, secure bool) *DeviceManager {
	return &DeviceManager{
		cookieName: cookieName,
		ttl:        ttl,
		secure:     secure,
		newID:      uuid.NewString,
	}
}

// Resolve returns the request's device, minting one when the request
// carries no valid id. The cookie is refreshed on every call.
func (dm *DeviceManager) Resolve(w http.ResponseWriter, r *http.Request) Device {
	if id, ok := ParseDeviceID(r.Header.Get(DeviceHeader)); ok {
		return Device{ID: id}
	}
	device := Device{}
	if cookie, err := r.Cookie(dm.cookieName); err == nil {
		if id, ok := ParseDeviceID(cookie.Value); ok {
			device.ID = id
		}
	}
	if device.ID == "" {
		device = Device{ID: dm.newID(), IsNew: true}
	}
	http.SetCookie(w, &http.Cookie{
		Name:     dm.cookieName,
		Value:    device.ID,
		Path:     "/",
		HttpOnly: true,
		Secure:   dm.secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(dm.ttl.Seconds()),
		Expires:  time.Now().Add(dm.ttl),
	})
	return device
}

// Middleware resolves the device and stores it in the request context.
func (dm *DeviceManager) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		device := dm.Resolve(w, r)
		next.ServeHTTP(w, r.WithContext(ContextWithDevice(r.Context(), device)))
	})
}

// TTL exposes the configured cookie lifetime.
func (dm *DeviceManager) TTL() time.Duration {
	return dm.ttl
}

// CookieName returns the cookie identifier used for devices.
func (dm *DeviceManager) CookieName() string {
	return dm.cookieName
}

// ParseDeviceID accepts canonical UUIDs only.
func ParseDeviceID(value string) (string, bool) {
	id, err := uuid.Parse(strings.TrimSpace(value))
	if err != nil {
		return "", false
	}
	return id.String(), true
}
