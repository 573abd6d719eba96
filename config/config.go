package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Config is the process-wide configuration, loaded once at startup and
// immutable thereafter. It is passed into each component explicitly;
// there is no ambient global state.
type Config struct {
	Auth      AuthConfig      `json:"auth"`
	Feed      FeedConfig      `json:"feed"`
	Charge    ChargeConfig    `json:"charge"`
	Wake      WakeConfig      `json:"wake"`
	Locations LocationsConfig `json:"locations"`
	RunLog    RunLogConfig    `json:"runlog"`
	Metrics   MetricsConfig   `json:"metrics"`
}

// AuthConfig holds vehicle API credentials. Token and email/password
// are mutually exclusive modes.
type AuthConfig struct {
	Token    string `json:"token"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Mode names the auth mode in use, for diagnostics. Never log the
// values themselves.
func (c AuthConfig) Mode() string {
	if c.Token != "" {
		return "token"
	}
	return "password"
}

// FeedConfig selects the price feed endpoint, market area and currency.
type FeedConfig struct {
	BaseURL  string `json:"base_url"`
	Area     string `json:"area"`
	Currency string `json:"currency"`
}

// ChargeConfig holds the decision thresholds and tiers.
type ChargeConfig struct {
	// CheapThreshold is the price under which tonight counts as cheap.
	CheapThreshold float64 `json:"cheap_threshold"`
	MinPercent     int     `json:"min_percent"`
	MaxPercent     int     `json:"max_percent"`
	// TripThreshold is the limit above which an operator override is
	// assumed and the automation keeps its hands off. 90 preserves the
	// observed behaviour.
	TripThreshold int `json:"trip_threshold"`
}

// WakeConfig bounds the wake/poll protocol.
type WakeConfig struct {
	VehicleBaseURL      string `json:"vehicle_base_url"`
	TimeoutSeconds      int    `json:"timeout_seconds"`
	PollIntervalSeconds int    `json:"poll_interval_seconds"`
	RetryDelaySeconds   int    `json:"retry_delay_seconds"`
}

// Coordinate is a lat/long pair. Zero values mean "not configured".
type Coordinate struct {
	Lat  float64 `json:"lat"`
	Long float64 `json:"long"`
}

// Set reports whether the coordinate was configured.
func (c Coordinate) Set() bool { return c.Lat != 0 || c.Long != 0 }

// LocationsConfig holds the known places for the informational
// location report.
type LocationsConfig struct {
	Home         Coordinate `json:"home"`
	Work1        Coordinate `json:"work1"`
	Work2        Coordinate `json:"work2"`
	ToleranceDeg float64    `json:"tolerance_deg"`
}

// Any reports whether at least one place is configured.
func (c LocationsConfig) Any() bool {
	return c.Home.Set() || c.Work1.Set() || c.Work2.Set()
}

// RunLogConfig defines the append-only, size-rotated run log.
type RunLogConfig struct {
	Path       string `json:"path"`
	MaxSizeMB  int    `json:"max_size_mb"`
	MaxBackups int    `json:"max_backups"`
	MaxAgeDays int    `json:"max_age_days"`
}

// MetricsConfig enables the optional outcome sinks.
type MetricsConfig struct {
	InfluxEnabled bool   `json:"influx_enabled"`
	InfluxURL     string `json:"influx_url"`
	InfluxToken   string `json:"influx_token"`
	InfluxOrg     string `json:"influx_org"`
	InfluxBucket  string `json:"influx_bucket"`
	PushEnabled   bool   `json:"push_enabled"`
	PushURL       string `json:"push_url"`
	PushJob       string `json:"push_job"`
}

// envKeys maps the legacy environment surface onto config paths, so
// deployments configured purely through env keep working.
var envKeys = map[string]string{
	"TESLA_TOKEN":     "auth.token",
	"TESLA_USER":      "auth.email",
	"TESLA_PASS":      "auth.password",
	"HOME_LAT":        "locations.home.lat",
	"HOME_LONG":       "locations.home.long",
	"WORK1_LAT":       "locations.work1.lat",
	"WORK1_LONG":      "locations.work1.long",
	"WORK2_LAT":       "locations.work2.lat",
	"WORK2_LONG":      "locations.work2.long",
	"BASE_CURRENCY":   "feed.currency",
	"PRICE_AREA":      "feed.area",
	"CHEAP_THRESHOLD": "charge.cheap_threshold",
	"MIN_PERCENT":     "charge.min_percent",
	"MAX_PERCENT":     "charge.max_percent",
	"TRIP_THRESHOLD":  "charge.trip_threshold",
}

// Load reads the optional config file, overlays the environment and
// validates the result. An empty path configures from environment and
// defaults alone.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	if path != "" {
		ext := strings.ToLower(filepath.Ext(path))
		var parser koanf.Parser
		switch ext {
		case ".yaml", ".yml":
			parser = yaml.Parser()
		case ".json":
			parser = json.Parser()
		default:
			return nil, fmt.Errorf("unsupported config format: %s", ext)
		}
		if err := k.Load(file.Provider(path), parser); err != nil {
			return nil, err
		}
	}
	if err := k.Load(env.Provider("", ".", func(s string) string {
		return envKeys[s]
	}), nil); err != nil {
		return nil, err
	}
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// SetDefaults applies the documented defaults for anything unset.
func (c *Config) SetDefaults() {
	if c.Feed.BaseURL == "" {
		c.Feed.BaseURL = "https://www.nordpoolgroup.com/api/marketdata"
	}
	if c.Feed.Area == "" {
		c.Feed.Area = "DK2"
	}
	if c.Feed.Currency == "" {
		c.Feed.Currency = "DKK"
	}
	if c.Charge.MinPercent == 0 {
		c.Charge.MinPercent = 60
	}
	if c.Charge.MaxPercent == 0 {
		c.Charge.MaxPercent = 90
	}
	if c.Charge.TripThreshold == 0 {
		c.Charge.TripThreshold = 90
	}
	if c.Wake.VehicleBaseURL == "" {
		c.Wake.VehicleBaseURL = "https://owner-api.teslamotors.com"
	}
	if c.Wake.TimeoutSeconds == 0 {
		c.Wake.TimeoutSeconds = 600
	}
	if c.Wake.PollIntervalSeconds == 0 {
		c.Wake.PollIntervalSeconds = 30
	}
	if c.Wake.RetryDelaySeconds == 0 {
		c.Wake.RetryDelaySeconds = 10
	}
	if c.RunLog.Path == "" {
		c.RunLog.Path = "nightcharge.log"
	}
	if c.RunLog.MaxSizeMB == 0 {
		c.RunLog.MaxSizeMB = 10
	}
	if c.RunLog.MaxBackups == 0 {
		c.RunLog.MaxBackups = 3
	}
}

// Validate checks mandatory invariants.
func (c Config) Validate() error {
	hasToken := c.Auth.Token != ""
	hasPassword := c.Auth.Email != "" || c.Auth.Password != ""
	if hasToken && hasPassword {
		return fmt.Errorf("auth: token and email/password are mutually exclusive")
	}
	if !hasToken && (c.Auth.Email == "" || c.Auth.Password == "") {
		return fmt.Errorf("auth: either a token or both email and password are required")
	}
	if c.Charge.MinPercent <= 0 || c.Charge.MinPercent > c.Charge.MaxPercent || c.Charge.MaxPercent > 100 {
		return fmt.Errorf("charge: need 0 < min_percent <= max_percent <= 100, got %d/%d",
			c.Charge.MinPercent, c.Charge.MaxPercent)
	}
	if c.Charge.TripThreshold < c.Charge.MinPercent || c.Charge.TripThreshold > 100 {
		return fmt.Errorf("charge: trip_threshold %d out of range", c.Charge.TripThreshold)
	}
	if c.Wake.TimeoutSeconds < 0 || c.Wake.PollIntervalSeconds < 0 || c.Wake.RetryDelaySeconds < 0 {
		return fmt.Errorf("wake: negative durations are not allowed")
	}
	return nil
}
