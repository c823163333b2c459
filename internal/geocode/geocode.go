// Package geocode resolves free-text venues into normalized locations using
// one of two HTTP providers: Google's keyed Geocoding API or the keyless
// OpenStreetMap Nominatim service.
package geocode

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"slices"
	"strings"
	"time"

	"fot/internal/model"
)

// ErrNotFound is returned when a provider has no match for the query.
var ErrNotFound = errors.New("geocode: no match")

// Provider turns a query into a normalized location. Implementations return
// ErrNotFound or a *ProviderError on failure and must be safe for
// concurrent use.
type Provider interface {
	Name() string
	Geocode(ctx context.Context, query, country string) (model.Location, error)
}

// ProviderError covers transport failures, timeouts, non-2xx responses and
// unexpected payloads.
type ProviderError struct {
	Provider   string
	StatusCode int // 0 when no HTTP response was received
	Err        error
}

func (e *ProviderError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: http %d: %v", e.Provider, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Provider, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// components is the provider-independent intermediate form every response
// is mapped into before normalization.
type components struct {
	name string
	road string
	town string

	lat, lng *float64

	postalCode string
	country    string
	region1    string
	region2    string
}

// normalize applies the shared label/address rules.
func (c components) normalize(query string) model.Location {
	label := strings.TrimSpace(c.name)
	if label == "" {
		label = query
	}
	address := ShortAddress(c.name, c.road, c.town)
	if address == "" {
		address = label
	}

	loc := model.Location{
		Label:      label,
		Address:    address,
		PostalCode: optional(c.postalCode),
		Country:    optional(strings.ToUpper(c.country)),
		Region1:    optional(c.region1),
		Region2:    optional(c.region2),
	}
	if c.lat != nil && c.lng != nil {
		loc.Latitude = c.lat
		loc.Longitude = c.lng
	}
	return loc
}

// ShortAddress joins name, road and town with ", ", skipping blanks and
// any component already included.
func ShortAddress(name, road, town string) string {
	parts := make([]string, 0, 3)
	for _, p := range []string{name, road, town} {
		p = strings.TrimSpace(p)
		if p == "" || slices.Contains(parts, p) {
			continue
		}
		parts = append(parts, p)
	}
	return strings.Join(parts, ", ")
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

// newHTTPClient returns a client with dial/TLS timeouts in addition to the
// overall request timeout.
func newHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	tr := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		DialContext:         (&net.Dialer{Timeout: 5 * time.Second, KeepAlive: 60 * time.Second}).DialContext,
		MaxIdleConns:        10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 5 * time.Second,
	}
	return &http.Client{Timeout: timeout, Transport: tr}
}
