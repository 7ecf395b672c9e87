package config

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
	Tiles     TilesConfig     `yaml:"tiles" mapstructure:"tiles"`
	Density   DensityConfig   `yaml:"density" mapstructure:"density"`
	WordCloud WordCloudConfig `yaml:"wordcloud" mapstructure:"wordcloud"`
	Terms     TermsConfig     `yaml:"terms" mapstructure:"terms"`
	Layers    LayersConfig    `yaml:"layers" mapstructure:"layers"`
}

// ServerConfig configures the tile server.
type ServerConfig struct {
	Port            int           `yaml:"port" mapstructure:"port"`
	CORSOrigins     []string      `yaml:"cors_origins" mapstructure:"cors_origins"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" mapstructure:"shutdown_timeout"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// TilesConfig configures the rendered tile cache.
type TilesConfig struct {
	CacheSize int           `yaml:"cache_size" mapstructure:"cache_size"`
	CacheTTL  time.Duration `yaml:"cache_ttl" mapstructure:"cache_ttl"`
}

// DensityConfig configures density layers that do not set their own sources.
type DensityConfig struct {
	BaseURL   string        `yaml:"base_url" mapstructure:"base_url"`
	MetaURL   string        `yaml:"meta_url" mapstructure:"meta_url"`
	RateLimit float64       `yaml:"rate_limit" mapstructure:"rate_limit"`
	Timeout   time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

// WordCloudConfig configures word-cloud layers.
type WordCloudConfig struct {
	SizeFunction string `yaml:"size_function" mapstructure:"size_function"`
	// FontFile is an optional TTF/OTF used for label measurement.
	FontFile string `yaml:"font_file" mapstructure:"font_file"`
}

// TermsConfig selects the word-count backend.
type TermsConfig struct {
	Driver      string   `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string   `yaml:"database_url" mapstructure:"database_url"`
	Dir         string   `yaml:"dir" mapstructure:"dir"`
	SQLitePath  string   `yaml:"sqlite_path" mapstructure:"sqlite_path"`
	Table       string   `yaml:"table" mapstructure:"table"`
	TermsColumn string   `yaml:"terms_column" mapstructure:"terms_column"`
	GeomColumn  string   `yaml:"geom_column" mapstructure:"geom_column"`
	Limit       int      `yaml:"limit" mapstructure:"limit"`
	Targets     []string `yaml:"targets" mapstructure:"targets"`
}

// LayersConfig locates the layer catalogue.
type LayersConfig struct {
	File string `yaml:"file" mapstructure:"file"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("MAPVIZ")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("server.shutdown_timeout", "10s")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("tiles.cache_size", 10000)
	v.SetDefault("tiles.cache_ttl", "1h")
	v.SetDefault("density.base_url", "./tiles/pickups")
	v.SetDefault("density.meta_url", "./meta/pickups")
	v.SetDefault("density.rate_limit", 50)
	v.SetDefault("density.timeout", "30s")
	v.SetDefault("wordcloud.size_function", "log")
	v.SetDefault("terms.driver", "json")
	v.SetDefault("terms.dir", "./tiles/topics")
	v.SetDefault("terms.sqlite_path", "terms.db")
	v.SetDefault("terms.table", "documents")
	v.SetDefault("terms.terms_column", "terms")
	v.SetDefault("terms.geom_column", "geom")
	v.SetDefault("terms.limit", 50)
	v.SetDefault("layers.file", "layers.yaml")

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

// Validate checks the settings a command mode depends on.
func (c *Config) Validate(mode string) error {
	var errs []string

	switch mode {
	case "serve":
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, "server.port must be > 0 and <= 65535")
		}
		errs = append(errs, c.validateTiles()...)
		errs = append(errs, c.validateTerms()...)
	case "warm":
		errs = append(errs, c.validateTiles()...)
		errs = append(errs, c.validateTerms()...)
	case "render", "meta":
	case "terms":
		if c.Terms.SQLitePath == "" {
			errs = append(errs, "terms.sqlite_path is required")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	switch c.WordCloud.SizeFunction {
	case "", "log", "linear":
	default:
		errs = append(errs, "wordcloud.size_function must be log or linear")
	}

	if len(errs) > 0 {
		return eris.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}

func (c *Config) validateTiles() []string {
	var errs []string
	if c.Tiles.CacheSize <= 0 {
		errs = append(errs, "tiles.cache_size must be > 0")
	}
	if c.Tiles.CacheTTL <= 0 {
		errs = append(errs, "tiles.cache_ttl must be > 0")
	}
	if c.Density.RateLimit < 0 {
		errs = append(errs, "density.rate_limit must be >= 0")
	}
	return errs
}

func (c *Config) validateTerms() []string {
	switch c.Terms.Driver {
	case "json":
		if c.Terms.Dir == "" {
			return []string{"terms.dir is required for the json driver"}
		}
	case "sqlite":
		if c.Terms.SQLitePath == "" {
			return []string{"terms.sqlite_path is required for the sqlite driver"}
		}
	case "postgres":
		if c.Terms.DatabaseURL == "" {
			return []string{"terms.database_url is required for the postgres driver"}
		}
	default:
		return []string{"terms.driver must be json, sqlite or postgres"}
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
