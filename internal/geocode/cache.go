package geocode

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	appLog "fot/internal/log"
	"fot/internal/model"
)

// Cache wraps a Provider with a sqlite-backed store of successful lookups,
// keyed by provider, country filter and normalized query. Replaying a
// cached answer keeps dry runs and the real submission identical.
type Cache struct {
	db   *sql.DB
	next Provider
}

type cachedLocation struct {
	Label      string   `json:"label"`
	Address    string   `json:"address"`
	Latitude   *float64 `json:"latitude,omitempty"`
	Longitude  *float64 `json:"longitude,omitempty"`
	PostalCode *string  `json:"postal_code,omitempty"`
	Country    *string  `json:"country,omitempty"`
	Region1    *string  `json:"region1,omitempty"`
	Region2    *string  `json:"region2,omitempty"`

	// Set when the provider had no name and the query text itself was used.
	// Replays substitute the spelling of the current query.
	LabelIsQuery   bool `json:"label_is_query,omitempty"`
	AddressIsQuery bool `json:"address_is_query,omitempty"`
}

func newCachedLocation(loc model.Location, query string) cachedLocation {
	query = strings.TrimSpace(query)
	return cachedLocation{
		Label:          loc.Label,
		Address:        loc.Address,
		Latitude:       loc.Latitude,
		Longitude:      loc.Longitude,
		PostalCode:     loc.PostalCode,
		Country:        loc.Country,
		Region1:        loc.Region1,
		Region2:        loc.Region2,
		LabelIsQuery:   loc.Label == query,
		AddressIsQuery: loc.Address == query,
	}
}

func (cl cachedLocation) location(query string) model.Location {
	query = strings.TrimSpace(query)
	loc := model.Location{
		Label:      cl.Label,
		Address:    cl.Address,
		Latitude:   cl.Latitude,
		Longitude:  cl.Longitude,
		PostalCode: cl.PostalCode,
		Country:    cl.Country,
		Region1:    cl.Region1,
		Region2:    cl.Region2,
	}
	if cl.LabelIsQuery {
		loc.Label = query
	}
	if cl.AddressIsQuery {
		loc.Address = query
	}
	return loc
}

// OpenCache opens (or creates) the cache database at path in front of next.
func OpenCache(path string, next Provider) (*Cache, error) {
	if path == "" {
		return nil, errors.New("geocode cache path is empty")
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open geocode cache: %w", err)
	}
	// sqlite serializes writers anyway; one connection also keeps
	// ":memory:" databases shared across calls.
	db.SetMaxOpenConns(1)

	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS geocode_cache (
		provider TEXT NOT NULL,
		country TEXT NOT NULL,
		query TEXT NOT NULL,
		payload TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL,
		PRIMARY KEY (provider, country, query)
	)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create geocode_cache table: %w", err)
	}
	return &Cache{db: db, next: next}, nil
}

func (c *Cache) Name() string { return c.next.Name() }

func (c *Cache) Close() error { return c.db.Close() }

// Geocode returns a cached location when present, otherwise asks the wrapped
// provider and stores successful answers. Cache failures are logged and never
// turn into lookup failures.
func (c *Cache) Geocode(ctx context.Context, query, country string) (model.Location, error) {
	key := cacheKey(query)
	country = strings.ToLower(country)

	if loc, ok := c.lookup(ctx, key, country, query); ok {
		appLog.Debug("geocode cache hit", "provider", c.Name(), "query", query)
		return loc, nil
	}

	loc, err := c.next.Geocode(ctx, query, country)
	if err != nil {
		return loc, err
	}

	if err := c.store(ctx, key, country, query, loc); err != nil {
		appLog.Error("geocode cache store failed", err, "provider", c.Name(), "query", query)
	}
	return loc, nil
}

func (c *Cache) lookup(ctx context.Context, key, country, query string) (model.Location, bool) {
	var payload string
	err := c.db.QueryRowContext(ctx,
		"SELECT payload FROM geocode_cache WHERE provider = ? AND country = ? AND query = ?",
		c.Name(), country, key).Scan(&payload)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			appLog.Error("geocode cache lookup failed", err, "provider", c.Name())
		}
		return model.Location{}, false
	}

	var cl cachedLocation
	if err := json.Unmarshal([]byte(payload), &cl); err != nil {
		appLog.Error("geocode cache entry corrupt", err, "provider", c.Name(), "query", key)
		return model.Location{}, false
	}
	return cl.location(query), true
}

func (c *Cache) store(ctx context.Context, key, country, query string, loc model.Location) error {
	payload, err := json.Marshal(newCachedLocation(loc, query))
	if err != nil {
		return err
	}
	_, err = c.db.ExecContext(ctx,
		"INSERT OR REPLACE INTO geocode_cache (provider, country, query, payload, created_at) VALUES (?, ?, ?, ?, ?)",
		c.Name(), country, key, string(payload), time.Now().UTC())
	return err
}

// cacheKey folds case and whitespace so trivially different spellings share an entry.
func cacheKey(query string) string {
	return strings.ToLower(strings.Join(strings.Fields(query), " "))
}
