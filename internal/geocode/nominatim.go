package geocode

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"fot/internal/model"
)

// Nominatim docs: https://nominatim.org/release-docs/latest/api/Search/
// Usage policy requires an identifying User-Agent and at most 1 req/s.

type Nominatim struct {
	baseURL   string
	userAgent string
	client    *http.Client
	limiter   *rate.Limiter
}

type nominatimPlace struct {
	Lat     string            `json:"lat"`
	Lon     string            `json:"lon"`
	Name    string            `json:"name"`
	Address map[string]string `json:"address"`
}

func NewNominatim(baseURL, userAgent string, timeout time.Duration, ratePerSecond float64) *Nominatim {
	return &Nominatim{
		baseURL:   strings.TrimRight(baseURL, "/"),
		userAgent: userAgent,
		client:    newHTTPClient(timeout),
		limiter:   newLimiter(ratePerSecond),
	}
}

func (n *Nominatim) Name() string { return "nominatim" }

func (n *Nominatim) Geocode(ctx context.Context, query, country string) (model.Location, error) {
	q := url.Values{}
	q.Set("q", query)
	q.Set("format", "jsonv2")
	q.Set("addressdetails", "1")
	q.Set("limit", "1")
	if country != "" {
		q.Set("countrycodes", strings.ToLower(country))
	}

	var places []nominatimPlace
	if err := getJSON(ctx, n.client, n.limiter, n.Name(), n.baseURL+"?"+q.Encode(), n.userAgent, &places); err != nil {
		return model.Location{}, err
	}
	if len(places) == 0 {
		return model.Location{}, ErrNotFound
	}

	p := places[0]
	c := components{
		name:       p.Name,
		road:       pickStr(p.Address, "road", "pedestrian", "footway"),
		town:       pickStr(p.Address, "town", "city", "village", "hamlet"),
		postalCode: pickStr(p.Address, "postcode"),
		country:    pickStr(p.Address, "country_code"),
		region1:    pickStr(p.Address, "state"),
		region2:    pickStr(p.Address, "county", "state_district"),
	}

	lat, errLat := strconv.ParseFloat(strings.TrimSpace(p.Lat), 64)
	lng, errLng := strconv.ParseFloat(strings.TrimSpace(p.Lon), 64)
	if errLat != nil || errLng != nil {
		return model.Location{}, &ProviderError{Provider: n.Name(), Err: fmt.Errorf("bad coordinates %q,%q", p.Lat, p.Lon)}
	}
	c.lat, c.lng = &lat, &lng

	return c.normalize(query), nil
}

// pickStr returns the first non-empty value among keys.
func pickStr(m map[string]string, keys ...string) string {
	for _, k := range keys {
		if v := strings.TrimSpace(m[k]); v != "" {
			return v
		}
	}
	return ""
}
