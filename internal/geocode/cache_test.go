package geocode

import (
	"context"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fot/internal/config"
	"fot/internal/model"
)

type countingProvider struct {
	calls atomic.Int32
	loc   model.Location
	err   error
}

func (p *countingProvider) Name() string { return "fake" }

func (p *countingProvider) Geocode(_ context.Context, _, _ string) (model.Location, error) {
	p.calls.Add(1)
	return p.loc, p.err
}

func TestCacheReplaysSuccessfulLookups(t *testing.T) {
	lat, lng, pc := 51.0, -0.5, "AL5 2HU"
	next := &countingProvider{loc: model.Location{Label: "Rothamsted Park", Address: "Rothamsted Park, Harpenden", Latitude: &lat, Longitude: &lng, PostalCode: &pc}}

	c, err := OpenCache(":memory:", next)
	require.NoError(t, err)
	defer c.Close()

	first, err := c.Geocode(context.Background(), "Rothamsted  Park", "GB")
	require.NoError(t, err)
	second, err := c.Geocode(context.Background(), "rothamsted park", "gb")
	require.NoError(t, err)

	assert.Equal(t, int32(1), next.calls.Load())
	assert.Equal(t, first, second)
	assert.Nil(t, second.Country)
	assert.Equal(t, "fake", c.Name())
}

func TestCacheReplaysQueryLabelsInCurrentSpelling(t *testing.T) {
	lat, lng := 51.56, -0.03
	next := &countingProvider{loc: model.Location{Label: "hackney marshes", Address: "hackney marshes", Latitude: &lat, Longitude: &lng}}

	c, err := OpenCache(":memory:", next)
	require.NoError(t, err)
	defer c.Close()

	_, err = c.Geocode(context.Background(), "hackney marshes", "GB")
	require.NoError(t, err)
	got, err := c.Geocode(context.Background(), " Hackney Marshes ", "GB")
	require.NoError(t, err)

	assert.Equal(t, int32(1), next.calls.Load())
	assert.Equal(t, "Hackney Marshes", got.Label)
	assert.Equal(t, "Hackney Marshes", got.Address)
	assert.Equal(t, &lat, got.Latitude)
}

func TestCacheDoesNotStoreFailures(t *testing.T) {
	next := &countingProvider{err: ErrNotFound}

	c, err := OpenCache(":memory:", next)
	require.NoError(t, err)
	defer c.Close()

	_, err = c.Geocode(context.Background(), "nowhere", "gb")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = c.Geocode(context.Background(), "nowhere", "gb")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, int32(2), next.calls.Load())
}

func TestNewProviderFromConfig(t *testing.T) {
	gc := config.GeocodingConfig{Timeout: time.Second, RatePerSecond: 1}

	p, err := NewProviderFromConfig(gc)
	require.NoError(t, err)
	assert.Equal(t, "nominatim", p.Name())

	gc.GoogleAPIKey = "key"
	p, err = NewProviderFromConfig(gc)
	require.NoError(t, err)
	assert.Equal(t, "google", p.Name())

	gc.CachePath = filepath.Join(t.TempDir(), "geocode.db")
	p, err = NewProviderFromConfig(gc)
	require.NoError(t, err)
	cache, ok := p.(*Cache)
	require.True(t, ok)
	assert.Equal(t, "google", cache.Name())
	require.NoError(t, cache.Close())
}
