package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Google     GoogleConfig     `mapstructure:"google"`
	Directions DirectionsConfig `mapstructure:"directions"`
	Map        MapConfig        `mapstructure:"map"`
	Session    SessionConfig    `mapstructure:"session"`
	Cache      CacheConfig      `mapstructure:"cache"`
	NATS       NATSConfig       `mapstructure:"nats"`
	Valkey     ValkeyConfig     `mapstructure:"valkey"`
	GeoIP      GeoIPConfig      `mapstructure:"geoip"`
	Telemetry  TelemetryConfig  `mapstructure:"telemetry"`
	Log        LogConfig        `mapstructure:"log"`
}

type ServerConfig struct {
	Port           int      `mapstructure:"port"`
	ReadTimeout    int      `mapstructure:"read_timeout"`
	WriteTimeout   int      `mapstructure:"write_timeout"`
	RequestTimeout int      `mapstructure:"request_timeout"`
	RateLimit      int      `mapstructure:"rate_limit"` // requests per minute per IP
	AllowOrigins   []string `mapstructure:"allow_origins"`
}

type GoogleConfig struct {
	APIKey    string `mapstructure:"api_key"`
	BaseURL   string `mapstructure:"base_url"`
	Language  string `mapstructure:"language"`
	RateLimit int    `mapstructure:"rate_limit"`
}

type DirectionsConfig struct {
	Timeout time.Duration `mapstructure:"timeout"`
}

type PaddingConfig struct {
	Top    float64 `mapstructure:"top"`
	Right  float64 `mapstructure:"right"`
	Bottom float64 `mapstructure:"bottom"`
	Left   float64 `mapstructure:"left"`
}

type MapConfig struct {
	StyleURL      string        `mapstructure:"style_url"`
	InitialLat    float64       `mapstructure:"initial_lat"`
	InitialLng    float64       `mapstructure:"initial_lng"`
	InitialZoom   float64       `mapstructure:"initial_zoom"`
	Width         float64       `mapstructure:"width"`
	Height        float64       `mapstructure:"height"`
	FitPadding    PaddingConfig `mapstructure:"fit_padding"`
	FitDurationMs int           `mapstructure:"fit_duration_ms"`
	MaxZoom       float64       `mapstructure:"max_zoom"`
	LocateZoom    float64       `mapstructure:"locate_zoom"`
	RowHeight     float64       `mapstructure:"row_height"`
	Overscan      int           `mapstructure:"overscan"`
	ListChrome    float64       `mapstructure:"list_chrome"`
}

type SessionConfig struct {
	TTL             time.Duration `mapstructure:"ttl"`
	JanitorInterval time.Duration `mapstructure:"janitor_interval"`
}

type CacheConfig struct {
	RouteTTL int `mapstructure:"route_ttl"` // seconds, 0 disables route caching
}

type NATSConfig struct {
	URL            string        `mapstructure:"url"`
	Enabled        bool          `mapstructure:"enabled"`
	StreamMaxAge   time.Duration `mapstructure:"stream_max_age"`
	PublishTimeout time.Duration `mapstructure:"publish_timeout"`
}

type ValkeyConfig struct {
	Addr    string `mapstructure:"addr"`
	Enabled bool   `mapstructure:"enabled"`
	Prefix  string `mapstructure:"prefix"`
}

type GeoIPConfig struct {
	DBPath string `mapstructure:"db_path"`
	Locale string `mapstructure:"locale"`
}

type TelemetryConfig struct {
	ServiceName string `mapstructure:"service_name"`
	Endpoint    string `mapstructure:"endpoint"`
	Enabled     bool   `mapstructure:"enabled"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from .env files, an optional config file and
// environment variables, then validates it.
func Load(service string) (*Config, error) {
	// .env.local wins over .env; neither overrides the real environment
	_ = godotenv.Load(".env.local")
	_ = godotenv.Load(".env")

	v := viper.New()
	setDefaults(v, service)

	// Config file (optional)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")
	_ = v.ReadInConfig() // OK if missing

	// Environment variables: MAPROUTE_DIRECTIONS_TIMEOUT → directions.timeout
	v.SetEnvPrefix("MAPROUTE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("google.api_key", "MAPROUTE_GOOGLE_API_KEY", "GOOGLE_MAPS_API_KEY", "VITE_GOOGLE_MAPS_API_KEY")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper, service string) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 10)
	v.SetDefault("server.write_timeout", 10)
	v.SetDefault("server.request_timeout", 15)
	v.SetDefault("server.rate_limit", 120)
	v.SetDefault("server.allow_origins", []string{"http://localhost:5173", "http://localhost:3000"})

	v.SetDefault("google.api_key", "")
	v.SetDefault("google.base_url", "")
	v.SetDefault("google.language", "")
	v.SetDefault("google.rate_limit", 0)
	v.SetDefault("directions.timeout", 10*time.Second)

	v.SetDefault("map.style_url", "https://demotiles.maplibre.org/style.json")
	v.SetDefault("map.initial_lat", 0.0)
	v.SetDefault("map.initial_lng", 0.0)
	v.SetDefault("map.initial_zoom", 1.0)
	v.SetDefault("map.width", 1280.0)
	v.SetDefault("map.height", 800.0)
	v.SetDefault("map.fit_padding.top", 100.0)
	v.SetDefault("map.fit_padding.right", 100.0)
	v.SetDefault("map.fit_padding.bottom", 0.0)
	v.SetDefault("map.fit_padding.left", 300.0)
	v.SetDefault("map.fit_duration_ms", 1000)
	v.SetDefault("map.max_zoom", 22.0)
	v.SetDefault("map.locate_zoom", 12.0)
	v.SetDefault("map.row_height", 35.0)
	v.SetDefault("map.overscan", 1)
	v.SetDefault("map.list_chrome", 76.0)

	v.SetDefault("session.ttl", 30*time.Minute)
	v.SetDefault("session.janitor_interval", time.Minute)
	v.SetDefault("cache.route_ttl", 300)

	v.SetDefault("nats.url", "nats://localhost:4222")
	v.SetDefault("nats.enabled", true)
	v.SetDefault("nats.stream_max_age", 10*time.Minute)
	v.SetDefault("nats.publish_timeout", 2*time.Second)
	v.SetDefault("valkey.addr", "localhost:6379")
	v.SetDefault("valkey.enabled", true)
	v.SetDefault("valkey.prefix", "maproute:")
	v.SetDefault("geoip.db_path", "")
	v.SetDefault("geoip.locale", "en")

	v.SetDefault("telemetry.service_name", service)
	v.SetDefault("telemetry.endpoint", "localhost:4317")
	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}

// Validate checks that required configuration fields are present and sane.
func (c *Config) Validate() error {
	var errs []string

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server.port must be 1-65535, got %d", c.Server.Port))
	}
	if c.Server.ReadTimeout <= 0 {
		errs = append(errs, "server.read_timeout must be positive")
	}
	if c.Server.WriteTimeout <= 0 {
		errs = append(errs, "server.write_timeout must be positive")
	}
	if c.Server.RequestTimeout <= 0 {
		errs = append(errs, "server.request_timeout must be positive")
	}
	if strings.TrimSpace(c.Google.APIKey) == "" {
		errs = append(errs, "google.api_key is required (set MAPROUTE_GOOGLE_API_KEY or GOOGLE_MAPS_API_KEY)")
	}
	if c.Directions.Timeout <= 0 {
		errs = append(errs, "directions.timeout must be positive")
	}
	if c.Map.StyleURL == "" {
		errs = append(errs, "map.style_url is required")
	}
	if c.Map.Width <= 0 || c.Map.Height <= 0 {
		errs = append(errs, fmt.Sprintf("map.width and map.height must be positive, got %gx%g", c.Map.Width, c.Map.Height))
	}
	if c.Map.MaxZoom <= 0 || c.Map.MaxZoom > 24 {
		errs = append(errs, fmt.Sprintf("map.max_zoom must be in (0, 24], got %g", c.Map.MaxZoom))
	}
	if c.Map.RowHeight <= 0 {
		errs = append(errs, "map.row_height must be positive")
	}
	if c.Map.Overscan < 0 {
		errs = append(errs, "map.overscan must not be negative")
	}
	if c.Cache.RouteTTL < 0 {
		errs = append(errs, "cache.route_ttl must not be negative")
	}
	if c.NATS.Enabled && c.NATS.URL == "" {
		errs = append(errs, "nats.url is required when nats is enabled")
	}
	if c.Valkey.Enabled && c.Valkey.Addr == "" {
		errs = append(errs, "valkey.addr is required when valkey is enabled")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// Addr is the listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Server.Port)
}
