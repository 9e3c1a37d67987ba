// Package config loads application configuration from a YAML file and
// ADREAL_-prefixed environment variables.
package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	AdReal    AdRealConfig            `yaml:"adreal" mapstructure:"adreal"`
	Secrets   SecretsConfig           `yaml:"secrets" mapstructure:"secrets"`
	Warehouse WarehouseConfig         `yaml:"warehouse" mapstructure:"warehouse"`
	Clients   map[string]ClientConfig `yaml:"clients" mapstructure:"clients"`
	Log       LogConfig               `yaml:"log" mapstructure:"log"`
}

// AdRealConfig configures the AdReal API client and fetch behavior.
type AdRealConfig struct {
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
	Market  string `yaml:"market" mapstructure:"market"`

	// UsernameSecret/PasswordSecret name entries in the secret store.
	// Username/Password, when set, bypass the store (local runs only).
	UsernameSecret string `yaml:"username_secret" mapstructure:"username_secret"`
	PasswordSecret string `yaml:"password_secret" mapstructure:"password_secret"`
	Username       string `yaml:"username" mapstructure:"username"`
	Password       string `yaml:"password" mapstructure:"password"`

	CatalogPageSize    int     `yaml:"catalog_page_size" mapstructure:"catalog_page_size"`
	Concurrency        int     `yaml:"concurrency" mapstructure:"concurrency"`
	StatsLimit         int     `yaml:"stats_limit" mapstructure:"stats_limit"`
	CatalogTimeoutSecs int     `yaml:"catalog_timeout_secs" mapstructure:"catalog_timeout_secs"`
	StatsTimeoutSecs   int     `yaml:"stats_timeout_secs" mapstructure:"stats_timeout_secs"`
	MaxAttempts        int     `yaml:"max_attempts" mapstructure:"max_attempts"`
	BackoffBaseSecs    int     `yaml:"backoff_base_secs" mapstructure:"backoff_base_secs"`
	RateLimitPerSec    float64 `yaml:"rate_limit_per_sec" mapstructure:"rate_limit_per_sec"`

	Platforms []string `yaml:"platforms" mapstructure:"platforms"`
	PageTypes []string `yaml:"page_types" mapstructure:"page_types"`
	Segments  []string `yaml:"segments" mapstructure:"segments"`
	Metrics   []string `yaml:"metrics" mapstructure:"metrics"`
}

// ClientConfig is one client account profile: its competitor brand-id
// set, target table, and schema variant.
type ClientConfig struct {
	Table          string   `yaml:"table" mapstructure:"table"`
	BrandIDs       []string `yaml:"brand_ids" mapstructure:"brand_ids"`
	KeepProduct    bool     `yaml:"keep_product" mapstructure:"keep_product"`
	DropMediaOwner bool     `yaml:"drop_media_owner" mapstructure:"drop_media_owner"`
	// ProbeOnForbidden enables the permission-probe degradation for
	// accounts operating against a restricted dataset.
	ProbeOnForbidden bool `yaml:"probe_on_forbidden" mapstructure:"probe_on_forbidden"`
}

// SecretsConfig selects the secret store backend.
type SecretsConfig struct {
	Provider string `yaml:"provider" mapstructure:"provider"` // "aws" or "env"
	Region   string `yaml:"region" mapstructure:"region"`
}

// WarehouseConfig configures the Postgres warehouse connection.
type WarehouseConfig struct {
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("ADREAL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("adreal.base_url", "https://adreal.gemius.com/api")
	v.SetDefault("adreal.market", "ro")
	v.SetDefault("adreal.username_secret", "adreal-username")
	v.SetDefault("adreal.password_secret", "adreal-password")
	v.SetDefault("adreal.catalog_page_size", 100000)
	v.SetDefault("adreal.concurrency", 5)
	v.SetDefault("adreal.stats_limit", 1000000)
	v.SetDefault("adreal.catalog_timeout_secs", 30)
	v.SetDefault("adreal.stats_timeout_secs", 120)
	v.SetDefault("adreal.max_attempts", 3)
	v.SetDefault("adreal.backoff_base_secs", 3)
	v.SetDefault("adreal.rate_limit_per_sec", 5)
	v.SetDefault("adreal.platforms", []string{"pc"})
	v.SetDefault("adreal.page_types", []string{"search", "social", "standard"})
	v.SetDefault("adreal.segments", []string{"brand", "product", "content_type", "website"})
	v.SetDefault("adreal.metrics", []string{"ru", "ad_cont", "reach"})
	v.SetDefault("secrets.provider", "aws")
	v.SetDefault("warehouse.max_conns", 4)
	v.SetDefault("warehouse.min_conns", 1)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Client returns the named client profile, validated.
func (c *Config) Client(name string) (ClientConfig, error) {
	cc, ok := c.Clients[name]
	if !ok {
		return ClientConfig{}, eris.Errorf("config: unknown client %q", name)
	}
	if cc.Table == "" {
		return ClientConfig{}, eris.Errorf("config: client %q has no table", name)
	}
	if len(cc.BrandIDs) == 0 {
		return ClientConfig{}, eris.Errorf("config: client %q has no brand ids", name)
	}
	return cc, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
