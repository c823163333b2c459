package location

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fot/internal/geocode"
	"fot/internal/model"
)

type fakeProvider struct {
	calls   int
	country string
	loc     model.Location
	err     error
}

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) Geocode(_ context.Context, _, country string) (model.Location, error) {
	f.calls++
	f.country = country
	return f.loc, f.err
}

func fixed() *model.Location {
	lat, lng := 51.811954, -0.3605304
	return &model.Location{Label: "Rothamsted Park", Address: "Rothamsted Park, Harpenden", Latitude: &lat, Longitude: &lng}
}

func TestFixedLocationWithoutQuery(t *testing.T) {
	p := &fakeProvider{}
	r := NewResolver(p, "gb")

	got := r.Resolve(context.Background(), "", nil, fixed())
	require.NotNil(t, got)
	assert.Equal(t, *fixed(), *got)
	assert.Zero(t, p.calls)
}

func TestNothingGivenIsNil(t *testing.T) {
	p := &fakeProvider{}
	assert.Nil(t, NewResolver(p, "gb").Resolve(context.Background(), "  ", nil, nil))
	assert.Zero(t, p.calls)
}

func TestQueryOverridesFixed(t *testing.T) {
	p := &fakeProvider{loc: model.Location{Label: "Victoria Park", Address: "Victoria Park, London"}}
	got := NewResolver(p, "gb").Resolve(context.Background(), "Victoria Park", nil, fixed())
	require.NotNil(t, got)
	assert.Equal(t, "Victoria Park, London", got.Address)
	assert.Equal(t, 1, p.calls)
	assert.Equal(t, "gb", p.country)
}

func TestPreResolvedWins(t *testing.T) {
	p := &fakeProvider{}
	pre := &model.Location{Label: "Pitch 3", Address: "Pitch 3"}
	got := NewResolver(p, "gb").Resolve(context.Background(), "ignored", pre, fixed())
	assert.Equal(t, "Pitch 3", got.Label)
	assert.Zero(t, p.calls)
}

func TestCoordinatesSkipLookup(t *testing.T) {
	p := &fakeProvider{}
	got := NewResolver(p, "gb").Resolve(context.Background(), "51.8119, -0.3605", nil, nil)
	require.NotNil(t, got)
	require.True(t, got.HasCoordinates())
	assert.InDelta(t, 51.8119, *got.Latitude, 1e-9)
	assert.InDelta(t, -0.3605, *got.Longitude, 1e-9)
	assert.Zero(t, p.calls)
}

func TestIntegerPairIsGeocoded(t *testing.T) {
	p := &fakeProvider{loc: model.Location{Label: "12, 34 High Street", Address: "12, 34 High Street"}}
	got := NewResolver(p, "gb").Resolve(context.Background(), "12, 34", nil, nil)
	require.NotNil(t, got)
	assert.Equal(t, 1, p.calls)
	assert.Equal(t, "12, 34 High Street", got.Address)
	assert.False(t, got.HasCoordinates())
}

func TestGeocodeFailureDegrades(t *testing.T) {
	for _, err := range []error{
		geocode.ErrNotFound,
		&geocode.ProviderError{Provider: "fake", StatusCode: 503, Err: errors.New("unavailable")},
	} {
		p := &fakeProvider{err: err}
		got := NewResolver(p, "gb").Resolve(context.Background(), "Hackney Marshes", nil, fixed())
		require.NotNil(t, got)
		assert.Equal(t, "Hackney Marshes", got.Label)
		assert.Equal(t, "Hackney Marshes", got.Address)
		assert.Nil(t, got.Latitude)
		assert.Nil(t, got.Longitude)
		assert.Nil(t, got.Country)
	}
}

func TestNilProviderDegrades(t *testing.T) {
	got := NewResolver(nil, "gb").Resolve(context.Background(), "Hackney Marshes", nil, nil)
	require.NotNil(t, got)
	assert.Equal(t, model.AddressOnly("Hackney Marshes"), *got)
}
