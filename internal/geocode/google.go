package geocode

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"fot/internal/model"
)

// Google Geocoding API: https://developers.google.com/maps/documentation/geocoding
// Endpoint used: /maps/api/geocode/json?address=<q>&key=<KEY>&region=<cc>

type Google struct {
	baseURL   string
	apiKey    string
	userAgent string
	client    *http.Client
	limiter   *rate.Limiter
}

type googleComponent struct {
	LongName  string   `json:"long_name"`
	ShortName string   `json:"short_name"`
	Types     []string `json:"types"`
}

type googleResponse struct {
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message"`
	Results      []struct {
		AddressComponents []googleComponent `json:"address_components"`
		Geometry          struct {
			Location struct {
				Lat float64 `json:"lat"`
				Lng float64 `json:"lng"`
			} `json:"location"`
		} `json:"geometry"`
	} `json:"results"`
}

// Component types that name a place rather than part of its address.
var featureTypes = []string{"establishment", "point_of_interest", "park", "premise", "natural_feature", "airport", "stadium"}

func NewGoogle(baseURL, apiKey, userAgent string, timeout time.Duration, ratePerSecond float64) *Google {
	return &Google{
		baseURL:   strings.TrimRight(baseURL, "/"),
		apiKey:    strings.TrimSpace(apiKey),
		userAgent: userAgent,
		client:    newHTTPClient(timeout),
		limiter:   newLimiter(ratePerSecond),
	}
}

func (g *Google) Name() string { return "google" }

func (g *Google) Geocode(ctx context.Context, query, country string) (model.Location, error) {
	q := url.Values{}
	q.Set("address", query)
	q.Set("key", g.apiKey)
	if country != "" {
		q.Set("region", strings.ToLower(country))
	}

	var data googleResponse
	if err := getJSON(ctx, g.client, g.limiter, g.Name(), g.baseURL+"?"+q.Encode(), g.userAgent, &data); err != nil {
		return model.Location{}, err
	}

	switch data.Status {
	case "OK":
	case "ZERO_RESULTS":
		return model.Location{}, ErrNotFound
	default:
		msg := data.Status
		if data.ErrorMessage != "" {
			msg += ": " + data.ErrorMessage
		}
		return model.Location{}, &ProviderError{Provider: g.Name(), StatusCode: http.StatusOK, Err: errors.New(msg)}
	}
	if len(data.Results) == 0 {
		return model.Location{}, ErrNotFound
	}

	r := data.Results[0]
	cs := r.AddressComponents
	lat, lng := r.Geometry.Location.Lat, r.Geometry.Location.Lng

	c := components{
		road:       longName(cs, "route"),
		town:       longName(cs, "postal_town", "locality", "sublocality"),
		postalCode: longName(cs, "postal_code"),
		country:    shortName(cs, "country"),
		region1:    longName(cs, "administrative_area_level_1"),
		region2:    longName(cs, "administrative_area_level_2"),
		lat:        &lat,
		lng:        &lng,
	}
	c.name = longName(cs, featureTypes...)
	if c.name == "" {
		// No named feature: the road, then the town, is the most specific name.
		c.name = c.road
		if c.name == "" {
			c.name = c.town
		}
	}

	if !validCoordinate(lat, lng) {
		return model.Location{}, &ProviderError{Provider: g.Name(), StatusCode: http.StatusOK, Err: fmt.Errorf("bad coordinates %v,%v", lat, lng)}
	}
	return c.normalize(query), nil
}

// longName returns the long name of the first component having any of types,
// trying types in order.
func longName(cs []googleComponent, types ...string) string {
	if c, ok := findComponent(cs, types); ok {
		return c.LongName
	}
	return ""
}

func shortName(cs []googleComponent, types ...string) string {
	if c, ok := findComponent(cs, types); ok {
		return c.ShortName
	}
	return ""
}

func findComponent(cs []googleComponent, types []string) (googleComponent, bool) {
	for _, t := range types {
		for _, c := range cs {
			if slices.Contains(c.Types, t) {
				return c, true
			}
		}
	}
	return googleComponent{}, false
}

func validCoordinate(lat, lng float64) bool {
	return lat >= -90 && lat <= 90 && lng >= -180 && lng <= 180
}
