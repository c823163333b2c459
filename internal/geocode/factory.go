package geocode

import (
	"fot/internal/config"
)

// NewProviderFromConfig picks the provider once for the whole process: the
// keyed Google provider when an API key is configured, else Nominatim.
// There is no per-call fallback between them. When a cache path is set the
// provider is wrapped in a Cache; the caller owns closing it.
func NewProviderFromConfig(gc config.GeocodingConfig) (Provider, error) {
	var p Provider
	if gc.GoogleAPIKey != "" {
		// Google allows far more than Nominatim; only Nominatim is throttled.
		p = NewGoogle(gc.GoogleURL, gc.GoogleAPIKey, gc.UserAgent, gc.Timeout, 0)
	} else {
		p = NewNominatim(gc.NominatimURL, gc.UserAgent, gc.Timeout, gc.RatePerSecond)
	}

	if gc.CachePath == "" {
		return p, nil
	}
	c, err := OpenCache(gc.CachePath, p)
	if err != nil {
		return nil, err
	}
	return c, nil
}
