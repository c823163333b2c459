package location

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"fot/internal/geocode"
	appLog "fot/internal/log"
	"fot/internal/model"
)

// "lat,lng" typed directly, e.g. "51.8119,-0.3605".
var coordPattern = regexp.MustCompile(`^\s*(-?\d{1,2}(?:\.\d+)?)\s*,\s*(-?\d{1,3}(?:\.\d+)?)\s*$`)

// Resolver decides where an event's location comes from. It never fails:
// geocoding problems degrade to an address-only location.
type Resolver struct {
	provider geocode.Provider
	country  string
}

// NewResolver builds a resolver. provider may be nil, in which case every
// free-text query degrades to an address-only location.
func NewResolver(provider geocode.Provider, country string) *Resolver {
	return &Resolver{provider: provider, country: country}
}

// Resolve applies, in order:
//   - an already-resolved location wins outright;
//   - with no query, the template's fixed location (or nil);
//   - a "lat,lng" query becomes explicit coordinates without a lookup;
//   - otherwise the query is geocoded, degrading on failure.
func (r *Resolver) Resolve(ctx context.Context, query string, resolved, fixed *model.Location) *model.Location {
	if resolved != nil {
		loc := *resolved
		return &loc
	}

	query = strings.TrimSpace(query)
	if query == "" {
		if fixed == nil {
			return nil
		}
		loc := *fixed
		return &loc
	}

	if loc, ok := parseCoordinates(query); ok {
		return &loc
	}

	if r.provider == nil {
		appLog.Warn("no geocoding provider, using location string as-is", "query", query)
		loc := model.AddressOnly(query)
		return &loc
	}

	appLog.Debug("geocoding", "provider", r.provider.Name(), "query", query)
	loc, err := r.provider.Geocode(ctx, query, r.country)
	if err != nil {
		appLog.Warn("geocoding failed, using location string as-is", "provider", r.provider.Name(), "query", query, "err", err)
		loc = model.AddressOnly(query)
		return &loc
	}

	appLog.Info("geocoded", "query", query, "address", loc.Address)
	return &loc
}

func parseCoordinates(query string) (model.Location, bool) {
	m := coordPattern.FindStringSubmatch(query)
	// Bare integer pairs like "12, 34" read as addresses, not coordinates.
	if m == nil || !strings.ContainsRune(m[1]+m[2], '.') {
		return model.Location{}, false
	}
	lat, err1 := strconv.ParseFloat(m[1], 64)
	lng, err2 := strconv.ParseFloat(m[2], 64)
	if err1 != nil || err2 != nil || lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		return model.Location{}, false
	}
	loc := model.AddressOnly(query)
	loc.Latitude = &lat
	loc.Longitude = &lng
	return loc, true
}
