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
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Google    GoogleConfig    `yaml:"google" mapstructure:"google"`
	Anthropic AnthropicConfig `yaml:"anthropic" mapstructure:"anthropic"`
	CMS       CMSConfig       `yaml:"cms" mapstructure:"cms"`
	Enrich    EnrichConfig    `yaml:"enrich" mapstructure:"enrich"`
	Discovery DiscoveryConfig `yaml:"discovery" mapstructure:"discovery"`
	Sync      SyncConfig      `yaml:"sync" mapstructure:"sync"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// GoogleConfig holds Google Places API settings.
type GoogleConfig struct {
	APIKey   string `yaml:"api_key" mapstructure:"api_key"`
	PageSize int    `yaml:"page_size" mapstructure:"page_size"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	Key          string `yaml:"key" mapstructure:"key"`
	ExtractModel string `yaml:"extract_model" mapstructure:"extract_model"`
	GeoModel     string `yaml:"geo_model" mapstructure:"geo_model"`
}

// CMSConfig holds the ListingPro REST API endpoint and key.
type CMSConfig struct {
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
	APIKey  string `yaml:"api_key" mapstructure:"api_key"`
}

// EnrichConfig configures website enrichment.
type EnrichConfig struct {
	FetchTimeoutSecs int `yaml:"fetch_timeout_secs" mapstructure:"fetch_timeout_secs"`
	MaxPageText      int `yaml:"max_page_text" mapstructure:"max_page_text"`
}

// DiscoveryConfig configures the maps search pass.
type DiscoveryConfig struct {
	QueriesPerSecond float64 `yaml:"queries_per_second" mapstructure:"queries_per_second"`
	MaxResults       int     `yaml:"max_results" mapstructure:"max_results"`
}

// SyncConfig configures CMS synchronization.
type SyncConfig struct {
	Mode            string  `yaml:"mode" mapstructure:"mode"`
	CallsPerSecond  float64 `yaml:"calls_per_second" mapstructure:"calls_per_second"`
	UseBulkEndpoint bool    `yaml:"use_bulk_endpoint" mapstructure:"use_bulk_endpoint"`
}

// ServerConfig configures the HTTP front-end.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
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
	v.SetEnvPrefix("LISTING")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// AutomaticEnv only surfaces keys viper already knows about, so every
	// key is bound explicitly; credential keys have no default and would
	// otherwise never see their LISTING_* variables.
	for _, key := range []string{
		"store.driver", "store.database_url",
		"google.api_key", "google.page_size",
		"anthropic.key", "anthropic.extract_model", "anthropic.geo_model",
		"cms.base_url", "cms.api_key",
		"enrich.fetch_timeout_secs", "enrich.max_page_text",
		"discovery.queries_per_second", "discovery.max_results",
		"sync.mode", "sync.calls_per_second", "sync.use_bulk_endpoint",
		"server.port",
		"log.level", "log.format",
	} {
		if err := v.BindEnv(key); err != nil {
			return nil, eris.Wrapf(err, "config: bind env %s", key)
		}
	}

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "listing_agent.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("google.page_size", 20)
	v.SetDefault("anthropic.extract_model", "claude-sonnet-4-5-20250929")
	v.SetDefault("anthropic.geo_model", "claude-haiku-4-5-20251001")
	v.SetDefault("enrich.fetch_timeout_secs", 30)
	v.SetDefault("enrich.max_page_text", 4000)
	v.SetDefault("discovery.queries_per_second", 1)
	v.SetDefault("discovery.max_results", 100)
	v.SetDefault("sync.mode", "skip")
	v.SetDefault("sync.calls_per_second", 2)

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

// Validate checks that required credentials are present. A missing key is a
// startup failure; the process refuses to run without it.
func (c *Config) Validate() error {
	if c.Google.APIKey == "" {
		return eris.New("config: google.api_key is required")
	}
	if c.Anthropic.Key == "" {
		return eris.New("config: anthropic.key is required")
	}
	return nil
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
