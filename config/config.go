package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/lukman83/gunpla-scrap/internal/site"
)

// Config holds all application configuration.
type Config struct {
	Scrape    ScrapeConfig `yaml:"scrape" mapstructure:"scrape"`
	Store     StoreConfig  `yaml:"store" mapstructure:"store"`
	Server    ServerConfig `yaml:"server" mapstructure:"server"`
	Log       LogConfig    `yaml:"log" mapstructure:"log"`
	DataDir   string       `yaml:"data_dir" mapstructure:"data_dir"`
	SitesFile string       `yaml:"sites_file" mapstructure:"sites_file"`
	Sites     []site.Entry `yaml:"sites" mapstructure:"sites"`
}

// ScrapeConfig configures fetching and pacing.
type ScrapeConfig struct {
	DelayMs        int    `yaml:"delay_ms" mapstructure:"delay_ms"`
	FastDelayMs    int    `yaml:"fast_delay_ms" mapstructure:"fast_delay_ms"`
	TimeoutMs      int    `yaml:"timeout_ms" mapstructure:"timeout_ms"`
	LongTimeoutMs  int    `yaml:"long_timeout_ms" mapstructure:"long_timeout_ms"`
	MaxRedirects   int    `yaml:"max_redirects" mapstructure:"max_redirects"`
	RespectRobots  bool   `yaml:"respect_robots" mapstructure:"respect_robots"`
	StrictSites    bool   `yaml:"strict_sites" mapstructure:"strict_sites"`
	RunTimeoutSecs int    `yaml:"run_timeout_secs" mapstructure:"run_timeout_secs"`
	ProxyURL       string `yaml:"proxy_url" mapstructure:"proxy_url"`
}

// StoreConfig configures the run store.
type StoreConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// ServerConfig configures the REST and MCP HTTP server.
type ServerConfig struct {
	Port          int     `yaml:"port" mapstructure:"port"`
	RatePerSecond float64 `yaml:"rate_per_second" mapstructure:"rate_per_second"`
	RateBurst     int     `yaml:"rate_burst" mapstructure:"rate_burst"`
	APIKey        string  `yaml:"api_key" mapstructure:"api_key"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Delay returns the courtesy delay between sites.
func (c ScrapeConfig) Delay(fast bool) time.Duration {
	if fast {
		return time.Duration(c.FastDelayMs) * time.Millisecond
	}
	return time.Duration(c.DelayMs) * time.Millisecond
}

// Timeout returns the per-request timeout.
func (c ScrapeConfig) Timeout(long bool) time.Duration {
	if long {
		return time.Duration(c.LongTimeoutMs) * time.Millisecond
	}
	return time.Duration(c.TimeoutMs) * time.Millisecond
}

// RunTimeout returns the cap on a whole run, zero for none.
func (c ScrapeConfig) RunTimeout() time.Duration {
	return time.Duration(c.RunTimeoutSecs) * time.Second
}

// Load reads .env (if present), then config.yaml from the working
// directory, then GUNPLA_* environment variables.
func Load() (*Config, error) {
	// Auto-load .env file; silently ignored if missing
	_ = godotenv.Load()

	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetEnvPrefix("GUNPLA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("scrape.delay_ms", 2000)
	v.SetDefault("scrape.fast_delay_ms", 500)
	v.SetDefault("scrape.timeout_ms", 10000)
	v.SetDefault("scrape.long_timeout_ms", 30000)
	v.SetDefault("scrape.max_redirects", 5)
	v.SetDefault("scrape.respect_robots", false)
	v.SetDefault("scrape.strict_sites", false)
	v.SetDefault("scrape.run_timeout_secs", 0)
	v.SetDefault("scrape.proxy_url", "")
	v.SetDefault("store.path", "data/gunpla.db")
	v.SetDefault("data_dir", "data")
	v.SetDefault("sites_file", "")
	v.SetDefault("server.port", 3000)
	v.SetDefault("server.rate_per_second", 1.0)
	v.SetDefault("server.rate_burst", 3)
	v.SetDefault("server.api_key", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects values no component can work with.
func (c *Config) Validate() error {
	switch {
	case c.Scrape.DelayMs < 0 || c.Scrape.FastDelayMs < 0:
		return eris.New("config: scrape delays must not be negative")
	case c.Scrape.TimeoutMs <= 0 || c.Scrape.LongTimeoutMs <= 0:
		return eris.New("config: scrape timeouts must be positive")
	case c.Scrape.MaxRedirects < 0:
		return eris.New("config: scrape.max_redirects must not be negative")
	case c.Scrape.RunTimeoutSecs < 0:
		return eris.New("config: scrape.run_timeout_secs must not be negative")
	case c.Store.Path == "":
		return eris.New("config: store.path is required")
	case c.Server.Port <= 0 || c.Server.Port > 65535:
		return eris.Errorf("config: invalid server.port %d", c.Server.Port)
	}
	return nil
}

// SiteEntries returns the configured site list: the sites file when set,
// else the inline sites list, else the built-in defaults.
func (c *Config) SiteEntries() ([]site.Entry, error) {
	if c.SitesFile != "" {
		entries, err := site.LoadFile(c.SitesFile)
		if err != nil {
			return nil, eris.Wrap(err, "config: sites file")
		}
		return entries, nil
	}
	if len(c.Sites) > 0 {
		return c.Sites, nil
	}
	return site.DefaultEntries(), nil
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
	// stdout carries command output and MCP stdio traffic.
	zapCfg.OutputPaths = []string{"stderr"}

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
