// Package config loads service settings from an optional JSON file, then from the
// environment (and a .env file when present). Environment values win.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/joho/godotenv"
)

type Config struct {
	HTTPAddr  string `json:"httpAddr"`
	LogLevel  string `json:"logLevel"`
	LogFormat string `json:"logFormat"`

	FetchTimeout    Duration `json:"fetchTimeout"`
	FetchRetries    int      `json:"fetchRetries"`
	FetchRetryWait  Duration `json:"fetchRetryWait"`
	RegistryTTL     Duration `json:"registryTTL"`
	DiscoveryStrict bool     `json:"discoveryStrict"`

	RateLimit  int      `json:"rateLimit"`
	RateWindow Duration `json:"rateWindow"`

	Redis RedisConfig `json:"redis"`
	Venue VenueConfig `json:"venue"`
}

// RedisConfig enables the shared registry store when Addr is set.
type RedisConfig struct {
	Addr     string `json:"addr"`
	Password string `json:"password"`
	DB       int    `json:"db"`
}

// VenueConfig holds upstream base URLs. Empty means the venue's public default.
type VenueConfig struct {
	CoinbaseURL string `json:"coinbaseURL"`
	GeminiURL   string `json:"geminiURL"`
	KrakenURL   string `json:"krakenURL"`
}

// Duration reads "10s"-style strings from JSON.
type Duration time.Duration

func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("duration must be a string like \"10s\": %w", err)
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

func (d Duration) Std() time.Duration { return time.Duration(d) }

func Default() *Config {
	return &Config{
		HTTPAddr:        ":8000",
		LogLevel:        "info",
		LogFormat:       "json",
		FetchTimeout:    Duration(10 * time.Second),
		FetchRetries:    2,
		FetchRetryWait:  Duration(200 * time.Millisecond),
		DiscoveryStrict: true,
		RateLimit:       5,
		RateWindow:      Duration(time.Minute),
	}
}

// Load builds the config. path may be empty.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: unable to read %s: %w", path, err)
		}
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: invalid JSON in %s: %w", path, err)
		}
	}

	_ = godotenv.Load() // .env is optional
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.HTTPAddr = getEnvString("AGG_HTTP_ADDR", c.HTTPAddr)
	c.LogLevel = getEnvString("AGG_LOG_LEVEL", c.LogLevel)
	c.LogFormat = getEnvString("AGG_LOG_FORMAT", c.LogFormat)

	c.FetchTimeout = Duration(getEnvDuration("AGG_FETCH_TIMEOUT", c.FetchTimeout.Std()))
	c.FetchRetries = getEnvInt("AGG_FETCH_RETRIES", c.FetchRetries)
	c.FetchRetryWait = Duration(getEnvDuration("AGG_FETCH_RETRY_WAIT", c.FetchRetryWait.Std()))
	c.RegistryTTL = Duration(getEnvDuration("AGG_REGISTRY_TTL", c.RegistryTTL.Std()))
	c.DiscoveryStrict = getEnvBool("AGG_DISCOVERY_STRICT", c.DiscoveryStrict)

	c.RateLimit = getEnvInt("AGG_RATE_LIMIT", c.RateLimit)
	c.RateWindow = Duration(getEnvDuration("AGG_RATE_WINDOW", c.RateWindow.Std()))

	c.Redis.Addr = getEnvString("AGG_REDIS_ADDR", c.Redis.Addr)
	c.Redis.Password = getEnvString("AGG_REDIS_PASSWORD", c.Redis.Password)
	c.Redis.DB = getEnvInt("AGG_REDIS_DB", c.Redis.DB)

	c.Venue.CoinbaseURL = getEnvString("COINBASE_BASE_URL", c.Venue.CoinbaseURL)
	c.Venue.GeminiURL = getEnvString("GEMINI_BASE_URL", c.Venue.GeminiURL)
	c.Venue.KrakenURL = getEnvString("KRAKEN_BASE_URL", c.Venue.KrakenURL)
}

func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
		switch strings.ToLower(value) {
		case "yes", "on":
			return true
		case "no", "off":
			return false
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func (c *Config) Validate() error {
	if c.HTTPAddr == "" {
		return fmt.Errorf("http address is empty")
	}
	if c.FetchTimeout <= 0 {
		return fmt.Errorf("invalid fetch timeout: %s", c.FetchTimeout.Std())
	}
	if c.FetchRetries < 0 {
		return fmt.Errorf("invalid fetch retries: %d", c.FetchRetries)
	}
	if c.RegistryTTL < 0 {
		return fmt.Errorf("invalid registry ttl: %s", c.RegistryTTL.Std())
	}
	if c.RateLimit < 0 {
		return fmt.Errorf("invalid rate limit: %d", c.RateLimit)
	}
	if c.RateLimit > 0 && c.RateWindow <= 0 {
		return fmt.Errorf("invalid rate window: %s", c.RateWindow.Std())
	}
	switch strings.ToLower(c.LogFormat) {
	case "json", "text":
	default:
		return fmt.Errorf("invalid log format: %q", c.LogFormat)
	}
	if c.Redis.DB < 0 {
		return fmt.Errorf("invalid redis db: %d", c.Redis.DB)
	}
	return nil
}

// String omits secrets.
func (c *Config) String() string {
	return fmt.Sprintf(
		"HTTP{%s}, Fetch{timeout:%s, retries:%d}, Registry{ttl:%s, strict:%v, redis:%q}, Rate{%d/%s}",
		c.HTTPAddr, c.FetchTimeout.Std(), c.FetchRetries, c.RegistryTTL.Std(), c.DiscoveryStrict,
		c.Redis.Addr, c.RateLimit, c.RateWindow.Std(),
	)
}
