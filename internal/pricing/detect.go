package pricing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/quickbill/quickbill/internal/shared"
)

// Hints are the request signals available for detection.
type Hints struct {
	Timezone       string
	AcceptLanguage string
	ClientIP       string
}

// Locator resolves an IP address to a country code.
type Locator interface {
	Country(ctx context.Context, ip string) (string, error)
}

// GeoIPClient queries a JSON geolocation endpoint such as ipapi.co. The URL
// may contain an {ip} placeholder; the response must carry country_code.
type GeoIPClient struct {
	url        string
	httpClient *http.Client
}

// NewGeoIPClient constructs a client with the given request timeout.
func NewGeoIPClient(url string, timeout time.Duration) *GeoIPClient {
	return &GeoIPClient{url: url, httpClient: &http.Client{Timeout: timeout}}
}

// Country implements Locator.
func (c *GeoIPClient) Country(ctx context.Context, ip string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.ReplaceAll(c.url, "{ip}", ip), nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Accept", "application/json")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("geoip returned status %d", resp.StatusCode)
	}
	var payload struct {
		CountryCode string `json:"country_code"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&payload); err != nil {
		return "", err
	}
	if payload.CountryCode == "" {
		return "", errors.New("geoip response without country_code")
	}
	return payload.CountryCode, nil
}

type regionRecord struct {
	Currency string    `json:"currency"`
	Source   string    `json:"source"`
	At       time.Time `json:"detectedAt"`
}

// Detector picks the regional price for a device. The first conclusive
// signal wins: cached record, timezone, language, then IP lookup.
type Detector struct {
	store   shared.RecordStore
	locator Locator
	timeout time.Duration
	logger  *slog.Logger
	now     func() time.Time
}

// NewDetector constructs a Detector. store and locator may be nil.
func NewDetector(store shared.RecordStore, locator Locator, timeout time.Duration, logger *slog.Logger) *Detector {
	if logger == nil {
		logger = slog.Default()
	}
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &Detector{store: store, locator: locator, timeout: timeout, logger: logger, now: time.Now}
}

// Detect never fails; inconclusive detection yields the USD offer.
func (d *Detector) Detect(ctx context.Context, device string, hints Hints) Price {
	if d.store != nil && device != "" {
		var cached regionRecord
		err := d.store.Load(ctx, device, shared.RecordRegion, &cached)
		if err == nil && cached.Currency != "" {
			return ForCurrency(cached.Currency)
		}
		if err != nil && !errors.Is(err, shared.ErrRecordNotFound) {
			d.logger.Warn("load region record", slog.Any("error", err))
		}
	}

	currency, source := d.detect(ctx, hints)
	if source != "" {
		d.remember(ctx, device, currency, source)
	}
	return ForCurrency(currency)
}

// localeOrder ranks the currencies local hints can select. Each is matched
// against the timezone or the language before the next is tried, so
// Europe/Berlin with en-US resolves to USD.
var localeOrder = []string{"INR", "GBP", "USD", "EUR"}

// fromLocale applies localeOrder to the timezone and language hints.
func fromLocale(hints Hints) (string, string, bool) {
	tz, tzOK := FromTimezone(hints.Timezone)
	lang, langOK := FromLanguage(hints.AcceptLanguage)
	for _, c := range localeOrder {
		switch {
		case tzOK && tz == c:
			return c, "timezone", true
		case langOK && lang == c:
			return c, "language", true
		}
	}
	return "", "", false
}

// detect returns an empty source when nothing conclusive was found.
func (d *Detector) detect(ctx context.Context, hints Hints) (string, string) {
	if c, source, ok := fromLocale(hints); ok {
		return c, source
	}
	if d.locator == nil || hints.ClientIP == "" {
		return DefaultCurrency, ""
	}
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()
	country, err := d.locator.Country(ctx, hints.ClientIP)
	if err != nil {
		d.logger.Info("geoip lookup failed", slog.Any("error", err))
		return DefaultCurrency, ""
	}
	return FromCountry(country), "ip"
}

func (d *Detector) remember(ctx context.Context, device, currency, source string) {
	if d.store == nil || device == "" {
		return
	}
	rec := regionRecord{Currency: currency, Source: source, At: d.now().UTC()}
	if err := d.store.Save(ctx, device, shared.RecordRegion, rec); err != nil {
		d.logger.Warn("save region record", slog.Any("error", err))
	}
}
