package geocode

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const prioryJSON = `[{
	"lat": "51.9451", "lon": "-0.2693",
	"name": "The Priory School",
	"address": {
		"amenity": "The Priory School",
		"road": "Bedford Road",
		"town": "Hitchin",
		"county": "Hertfordshire",
		"state": "England",
		"postcode": "SG5 2UR",
		"country_code": "gb"
	}
}]`

func TestNominatimNormalizesFirstResult(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "The Priory School, Hitchin", q.Get("q"))
		assert.Equal(t, "jsonv2", q.Get("format"))
		assert.Equal(t, "1", q.Get("addressdetails"))
		assert.Equal(t, "1", q.Get("limit"))
		assert.Equal(t, "gb", q.Get("countrycodes"))
		assert.Equal(t, "fot-test", r.Header.Get("User-Agent"))
		w.Write([]byte(prioryJSON))
	}))
	defer srv.Close()

	n := NewNominatim(srv.URL, "fot-test", time.Second, 0)
	loc, err := n.Geocode(context.Background(), "The Priory School, Hitchin", "GB")
	require.NoError(t, err)

	assert.Equal(t, "The Priory School", loc.Label)
	assert.Equal(t, "The Priory School, Bedford Road, Hitchin", loc.Address)
	require.True(t, loc.HasCoordinates())
	assert.InDelta(t, 51.9451, *loc.Latitude, 1e-9)
	assert.InDelta(t, -0.2693, *loc.Longitude, 1e-9)
	assert.Equal(t, "SG5 2UR", *loc.PostalCode)
	assert.Equal(t, "GB", *loc.Country)
	assert.Equal(t, "England", *loc.Region1)
	assert.Equal(t, "Hertfordshire", *loc.Region2)
}

func TestNominatimMissingFieldsStayNil(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`[{"lat":"51.5","lon":"-0.1","name":"","address":{"city":"London","postcode":""}}]`))
	}))
	defer srv.Close()

	n := NewNominatim(srv.URL, "", time.Second, 0)
	loc, err := n.Geocode(context.Background(), "somewhere in london", "")
	require.NoError(t, err)

	assert.Equal(t, "somewhere in london", loc.Label)
	assert.Equal(t, "London", loc.Address)
	assert.Nil(t, loc.PostalCode)
	assert.Nil(t, loc.Country)
	assert.Nil(t, loc.Region1)
	assert.Nil(t, loc.Region2)
}

func TestNominatimEmptyIsNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	_, err := NewNominatim(srv.URL, "", time.Second, 0).Geocode(context.Background(), "nowhere", "gb")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestNominatimHTTPErrorIsProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "slow down", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := NewNominatim(srv.URL, "", time.Second, 0).Geocode(context.Background(), "x", "gb")
	var pe *ProviderError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, "nominatim", pe.Provider)
	assert.Equal(t, http.StatusTooManyRequests, pe.StatusCode)
}

func TestNominatimTimeoutIsProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(300 * time.Millisecond)
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	_, err := NewNominatim(srv.URL, "", 50*time.Millisecond, 0).Geocode(context.Background(), "x", "gb")
	var pe *ProviderError
	require.True(t, errors.As(err, &pe))
	assert.Zero(t, pe.StatusCode)
}

func TestNominatimBadCoordinates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`[{"lat":"north","lon":"-0.1","name":"X"}]`))
	}))
	defer srv.Close()

	_, err := NewNominatim(srv.URL, "", time.Second, 0).Geocode(context.Background(), "x", "")
	var pe *ProviderError
	assert.True(t, errors.As(err, &pe))
}

func TestShortAddressDedup(t *testing.T) {
	assert.Equal(t, "Central Park", ShortAddress("Central Park", "Central Park", "Central Park"))
	assert.Equal(t, "Central Park, London", ShortAddress("Central Park", "Central Park", "London"))
	assert.Equal(t, "Bedford Road, Hitchin", ShortAddress("", "Bedford Road", "Hitchin"))
	assert.Equal(t, "", ShortAddress(" ", "", ""))
}
