package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// ErrMissingCredentials is returned by Credentials when the Spond login is not configured.
var ErrMissingCredentials = errors.New("spond credentials not configured; run: fot config --username <email> --password <password>")

// ErrMissingGroup is returned by RequireGroup when no default group is configured.
var ErrMissingGroup = errors.New("no group configured; run: fot groups (to list groups), then: fot config-set group_id <id>")

const (
	DefaultSpondAPIURL  = "https://api.spond.com/core/v1/"
	DefaultNominatimURL = "https://nominatim.openstreetmap.org/search"
	DefaultGoogleURL    = "https://maps.googleapis.com/maps/api/geocode/json"
	DefaultUserAgent    = "footballorganisertoolkit/1.0"
)

// GeocodingConfig controls location lookups.
type GeocodingConfig struct {
	// GoogleAPIKey selects the keyed provider when non-empty; otherwise the
	// keyless Nominatim provider is used.
	GoogleAPIKey string `yaml:"google_api_key,omitempty"`

	// Country restricts results, ISO alpha-2 (e.g. "gb").
	Country string `yaml:"country"`

	Timeout       time.Duration `yaml:"timeout"`
	Concurrency   int           `yaml:"concurrency"`
	RatePerSecond float64       `yaml:"rate_per_second"`

	// CachePath is a sqlite database used to replay lookups. Empty disables caching.
	CachePath string `yaml:"cache_path,omitempty"`

	NominatimURL string `yaml:"nominatim_url,omitempty"`
	GoogleURL    string `yaml:"google_url,omitempty"`
	UserAgent    string `yaml:"user_agent,omitempty"`
}

// Config is the top-level application configuration.
type Config struct {
	SpondUsername string `yaml:"spond_username,omitempty"`
	SpondPassword string `yaml:"spond_password,omitempty"`
	SpondAPIURL   string `yaml:"spond_api_url,omitempty"`

	GroupID    string `yaml:"group_id,omitempty"`
	GroupName  string `yaml:"group_name,omitempty"`
	SubgroupID string `yaml:"subgroup_id,omitempty"`

	// HostIDs are Spond member ids added as co-hosts on every created event.
	HostIDs []string `yaml:"host_ids"`

	// Timezone is the IANA zone event dates and times are entered in.
	Timezone string `yaml:"timezone"`

	LogLevel string `yaml:"log_level"`

	Geocoding GeocodingConfig `yaml:"geocoding"`
}

// DefaultPath returns ~/.config/footballorganisertoolkit/config.yaml.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, ".config", "footballorganisertoolkit", "config.yaml")
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.Normalize()
	return cfg
}

// Normalize fills in missing/zero values with sensible defaults so that
// partially-filled configs still behave correctly.
func (c *Config) Normalize() {
	if c.SpondAPIURL == "" {
		c.SpondAPIURL = DefaultSpondAPIURL
	}
	if !strings.HasSuffix(c.SpondAPIURL, "/") {
		c.SpondAPIURL += "/"
	}
	if c.HostIDs == nil {
		c.HostIDs = []string{}
	}
	// UTC keeps the wall clock the user typed identical to what is sent.
	if c.Timezone == "" {
		c.Timezone = "UTC"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}

	g := &c.Geocoding
	if g.Country == "" {
		g.Country = "gb"
	}
	g.Country = strings.ToLower(g.Country)
	if g.Timeout <= 0 {
		g.Timeout = 10 * time.Second
	}
	if g.Concurrency <= 0 {
		g.Concurrency = 4
	}
	if g.RatePerSecond <= 0 {
		// Nominatim usage policy: at most one request per second.
		g.RatePerSecond = 1
	}
	if g.NominatimURL == "" {
		g.NominatimURL = DefaultNominatimURL
	}
	if g.GoogleURL == "" {
		g.GoogleURL = DefaultGoogleURL
	}
	if g.UserAgent == "" {
		g.UserAgent = DefaultUserAgent
	}
}

// Location resolves the configured timezone.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("config: invalid timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// Credentials returns the Spond login, failing when either half is missing.
func (c *Config) Credentials() (string, string, error) {
	if c.SpondUsername == "" || c.SpondPassword == "" {
		return "", "", ErrMissingCredentials
	}
	return c.SpondUsername, c.SpondPassword, nil
}

// RequireGroup returns override when set, else the configured group.
func (c *Config) RequireGroup(override string) (string, error) {
	if override != "" {
		return override, nil
	}
	if c.GroupID == "" {
		return "", ErrMissingGroup
	}
	return c.GroupID, nil
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - If the file does not exist, a default config is written with 0600
//     perms and returned.
//   - If the file exists it is unmarshalled and normalized.
//   - Afterwards a ".env" file in the working directory (if any) is loaded
//     and FOT_* environment variables override file values.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	cfg, err := LoadFile(path)
	if err != nil {
		return cfg, err
	}

	// A missing .env is the common case.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("config: load .env: %w", err)
	}
	applyEnv(cfg, os.LookupEnv)
	cfg.Normalize()

	return cfg, nil
}

// LoadFile reads path without .env or environment overrides. A missing file
// is created with defaults.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			// First run: create default config file.
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	cfg.Normalize()
	return &cfg, nil
}

func applyEnv(c *Config, lookup func(string) (string, bool)) {
	set := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	set("FOT_SPOND_USERNAME", &c.SpondUsername)
	set("FOT_SPOND_PASSWORD", &c.SpondPassword)
	set("FOT_SPOND_API_URL", &c.SpondAPIURL)
	set("FOT_GROUP_ID", &c.GroupID)
	set("FOT_SUBGROUP_ID", &c.SubgroupID)
	set("FOT_TIMEZONE", &c.Timezone)
	set("FOT_LOG_LEVEL", &c.LogLevel)
	set("FOT_GOOGLE_MAPS_API_KEY", &c.Geocoding.GoogleAPIKey)
	set("FOT_GEOCODE_COUNTRY", &c.Geocoding.Country)
	set("FOT_GEOCODE_CACHE", &c.Geocoding.CachePath)

	if v, ok := lookup("FOT_HOST_IDS"); ok && v != "" {
		c.HostIDs = splitList(v)
	}
}

// Set assigns one of the user-settable keys from its string form.
func (c *Config) Set(key, value string) error {
	switch strings.ToLower(key) {
	case "google_maps_api_key":
		c.Geocoding.GoogleAPIKey = value
	case "group_id":
		c.GroupID = value
	case "group_name":
		c.GroupName = value
	case "subgroup_id":
		c.SubgroupID = value
	case "host_ids":
		c.HostIDs = splitList(value)
	case "timezone":
		if _, err := time.LoadLocation(value); err != nil {
			return fmt.Errorf("config: invalid timezone %q: %w", value, err)
		}
		c.Timezone = value
	case "geocode_country":
		c.Geocoding.Country = value
	default:
		return fmt.Errorf("config: unknown key %q", key)
	}
	return nil
}

// SettableKeys lists the keys accepted by Set.
func SettableKeys() []string {
	return []string{"google_maps_api_key", "group_id", "group_name", "subgroup_id", "host_ids", "timezone", "geocode_country"}
}

func splitList(v string) []string {
	out := []string{}
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Save writes the given configuration to the specified path.
//
// Implementation details:
//   - Ensures parent directory exists (0700).
//   - Writes atomically via a temp file + rename.
//   - Ensures final file permissions are 0600, since the file holds a password.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".fot-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

// Save is a convenience method delegating to the package-level Save.
func (c *Config) Save(path string) error {
	return Save(path, c)
}
