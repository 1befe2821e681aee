package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	persistence "github.com/goliatone/go-persistence-bun"
	"gopkg.in/yaml.v3"
)

const envPrefix = "PORTFOLIO_"

// Config holds all configuration for the portfolio server.
type Config struct {
	Server        ServerConfig       `yaml:"server"`
	Logging       LoggingConfig      `yaml:"logging"`
	Persistence   PersistenceConfig  `yaml:"persistence"`
	Subscriptions SubscriptionConfig `yaml:"subscriptions"`
	Assets        AssetsConfig       `yaml:"assets"`
	Export        ExportConfig       `yaml:"export"`
	Features      map[string]bool    `yaml:"features"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string        `yaml:"host"`
	Port            string        `yaml:"port"`
	Mode            string        `yaml:"mode"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	AllowedOrigins  []string      `yaml:"allowed_origins"`
	Tracing         bool          `yaml:"tracing"`
	// ActorHeader, when set, trusts a gateway-supplied owner id for requests
	// that carry no go-auth actor.
	ActorHeader string `yaml:"actor_header"`
	RoleHeader  string `yaml:"role_header"`
}

// Addr returns host:port.
func (c ServerConfig) Addr() string {
	return c.Host + ":" + c.Port
}

// LoggingConfig selects the zap preset.
type LoggingConfig struct {
	Mode string `yaml:"mode"`
}

// PersistenceConfig implements persistence.Config.
type PersistenceConfig struct {
	Debug          bool          `yaml:"debug"`
	Driver         string        `yaml:"driver"`
	Server         string        `yaml:"server"`
	PingTimeout    time.Duration `yaml:"ping_timeout"`
	OtelIdentifier string        `yaml:"otel_identifier"`
}

func (c PersistenceConfig) GetDebug() bool                { return c.Debug }
func (c PersistenceConfig) GetDriver() string             { return c.Driver }
func (c PersistenceConfig) GetServer() string             { return c.Server }
func (c PersistenceConfig) GetPingTimeout() time.Duration { return c.PingTimeout }
func (c PersistenceConfig) GetOtelIdentifier() string     { return c.OtelIdentifier }

var _ persistence.Config = PersistenceConfig{}

// SubscriptionConfig selects where tiers are read from: "database" reads the
// subscriptions table, "auth" reads go-auth user metadata.
type SubscriptionConfig struct {
	Source      string `yaml:"source"`
	MetadataKey string `yaml:"metadata_key"`
	Cache       bool   `yaml:"cache"`
}

// AssetsConfig configures asset resolution by reference scheme.
type AssetsConfig struct {
	Root        string        `yaml:"root"`
	BaseURL     string        `yaml:"base_url"`
	HTTPTimeout time.Duration `yaml:"http_timeout"`
	MaxBytes    int64         `yaml:"max_bytes"`

	// AllowedHosts limits http(s) references. Empty allows any public host.
	AllowedHosts         []string    `yaml:"allowed_hosts"`
	AllowPrivateNetworks bool        `yaml:"allow_private_networks"`
	GCS                  GCSConfig   `yaml:"gcs"`
	Redis                RedisConfig `yaml:"redis"`
}

// GCSConfig enables gs:// references from the listed buckets.
type GCSConfig struct {
	Enabled      bool     `yaml:"enabled"`
	EmulatorHost string   `yaml:"emulator_host"`
	Buckets      []string `yaml:"buckets"`
}

// RedisConfig enables the asset byte cache when Addr is set.
type RedisConfig struct {
	Addr   string        `yaml:"addr"`
	Prefix string        `yaml:"prefix"`
	TTL    time.Duration `yaml:"ttl"`
}

// ExportConfig tunes the zip packager.
type ExportConfig struct {
	Concurrency int `yaml:"concurrency"`
}

// DefaultConfig returns the settings used when no file is supplied.
func DefaultConfig() Config {
	return Config{
		Server: ServerConfig{
			Host:            "localhost",
			Port:            "8980",
			Mode:            "release",
			ShutdownTimeout: 10 * time.Second,
		},
		Logging: LoggingConfig{Mode: "production"},
		Persistence: PersistenceConfig{
			Driver:         "sqlite",
			Server:         "file:portfolio.db?_journal_mode=WAL&cache=shared&_fk=1",
			PingTimeout:    5 * time.Second,
			OtelIdentifier: "go-portfolio",
		},
		Subscriptions: SubscriptionConfig{Source: "database"},
		Assets: AssetsConfig{
			Root:        "./uploads",
			HTTPTimeout: 15 * time.Second,
		},
		Features: map[string]bool{
			"portfolios.publish": true,
			"portfolios.export":  true,
		},
	}
}

// LoadConfig reads path over the defaults and applies environment overrides.
// An empty path skips the file.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := applyEnv(&cfg, os.LookupEnv); err != nil {
		return Config{}, err
	}
	return cfg, cfg.Validate()
}

type lookupFunc func(string) (string, bool)

func applyEnv(cfg *Config, lookup lookupFunc) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(envPrefix + key); ok {
			*dst = v
		}
	}
	str("SERVER_HOST", &cfg.Server.Host)
	str("SERVER_PORT", &cfg.Server.Port)
	str("SERVER_MODE", &cfg.Server.Mode)
	str("SERVER_ACTOR_HEADER", &cfg.Server.ActorHeader)
	str("LOG_MODE", &cfg.Logging.Mode)
	str("DB_DRIVER", &cfg.Persistence.Driver)
	str("DB_SERVER", &cfg.Persistence.Server)
	str("SUBSCRIPTIONS_SOURCE", &cfg.Subscriptions.Source)
	str("ASSETS_ROOT", &cfg.Assets.Root)
	str("ASSETS_BASE_URL", &cfg.Assets.BaseURL)
	str("GCS_EMULATOR_HOST", &cfg.Assets.GCS.EmulatorHost)
	str("REDIS_ADDR", &cfg.Assets.Redis.Addr)

	if v, ok := lookup(envPrefix + "DB_DEBUG"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%sDB_DEBUG: %w", envPrefix, err)
		}
		cfg.Persistence.Debug = b
	}
	if v, ok := lookup(envPrefix + "SERVER_ALLOWED_ORIGINS"); ok {
		cfg.Server.AllowedOrigins = splitList(v)
	}
	if v, ok := lookup(envPrefix + "ASSETS_ALLOWED_HOSTS"); ok {
		cfg.Assets.AllowedHosts = splitList(v)
	}
	if v, ok := lookup(envPrefix + "GCS_BUCKETS"); ok {
		cfg.Assets.GCS.Buckets = splitList(v)
	}
	if v, ok := lookup(envPrefix + "GCS_ENABLED"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%sGCS_ENABLED: %w", envPrefix, err)
		}
		cfg.Assets.GCS.Enabled = b
	}
	if v, ok := lookup(envPrefix + "EXPORT_CONCURRENCY"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%sEXPORT_CONCURRENCY: %w", envPrefix, err)
		}
		cfg.Export.Concurrency = n
	}
	// PORTFOLIO_FEATURE_PORTFOLIOS_EXPORT=false toggles "portfolios.export".
	for key := range cfg.Features {
		name := envPrefix + "FEATURE_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if v, ok := lookup(name); ok {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("%s: %w", name, err)
			}
			cfg.Features[key] = b
		}
	}
	return nil
}

// Validate rejects settings the server cannot start with.
func (c Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server.port is required")
	}
	if c.Persistence.Driver != "sqlite" {
		return fmt.Errorf("persistence.driver %q is not supported", c.Persistence.Driver)
	}
	switch c.Subscriptions.Source {
	case "database", "auth":
	default:
		return fmt.Errorf("subscriptions.source %q must be database or auth", c.Subscriptions.Source)
	}
	switch c.Logging.Mode {
	case "development", "production":
	default:
		return fmt.Errorf("logging.mode %q must be development or production", c.Logging.Mode)
	}
	if c.Assets.GCS.Enabled && len(c.Assets.GCS.Buckets) == 0 {
		return fmt.Errorf("assets.gcs.buckets is required when gcs is enabled")
	}
	return nil
}

func splitList(raw string) []string {
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
