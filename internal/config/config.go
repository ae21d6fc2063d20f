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
	Geocode GeocodeConfig `yaml:"geocode" mapstructure:"geocode"`
	Score   ScoreConfig   `yaml:"score" mapstructure:"score"`
	Job     JobConfig     `yaml:"job" mapstructure:"job"`
	Cache   CacheConfig   `yaml:"cache" mapstructure:"cache"`
	Server  ServerConfig  `yaml:"server" mapstructure:"server"`
	Log     LogConfig     `yaml:"log" mapstructure:"log"`
}

// GeocodeConfig configures the reverse-geocoding endpoints.
type GeocodeConfig struct {
	PrimaryURL         string `yaml:"primary_url" mapstructure:"primary_url"`
	FallbackURL        string `yaml:"fallback_url" mapstructure:"fallback_url"`
	PrimaryIntervalMs  int    `yaml:"primary_interval_ms" mapstructure:"primary_interval_ms"`
	FallbackIntervalMs int    `yaml:"fallback_interval_ms" mapstructure:"fallback_interval_ms"`
	TimeoutSecs        int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxAttempts        int    `yaml:"max_attempts" mapstructure:"max_attempts"`
	Language           string `yaml:"language" mapstructure:"language"`
	UserAgent          string `yaml:"user_agent" mapstructure:"user_agent"`
}

// ScoreConfig holds the confidence-score breakpoints.
type ScoreConfig struct {
	Baseline  float64 `yaml:"baseline" mapstructure:"baseline"`
	BothMatch float64 `yaml:"both_match" mapstructure:"both_match"`
	OneMatch  float64 `yaml:"one_match" mapstructure:"one_match"`
	NoMatch   float64 `yaml:"no_match" mapstructure:"no_match"`
}

// JobConfig configures batch processing.
type JobConfig struct {
	Workers       int  `yaml:"workers" mapstructure:"workers"`
	ValidateAreas bool `yaml:"validate_areas" mapstructure:"validate_areas"`
}

// CacheConfig configures the optional local result cache.
type CacheConfig struct {
	Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
	Path    string `yaml:"path" mapstructure:"path"`
	TTLDays int    `yaml:"ttl_days" mapstructure:"ttl_days"`
}

// ServerConfig configures the upload/download server.
type ServerConfig struct {
	Port        int `yaml:"port" mapstructure:"port"`
	MaxUploadMB int `yaml:"max_upload_mb" mapstructure:"max_upload_mb"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// MinWorkers and MaxWorkers bound the worker pool size. Nominatim's fair-use
// policy is the real ceiling; past five workers everyone just queues on the
// shared limiter anyway.
const (
	MinWorkers = 1
	MaxWorkers = 5
)

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("GEOSHEET")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("geocode.primary_url", "https://nominatim.openstreetmap.org/reverse")
	v.SetDefault("geocode.fallback_url", "https://photon.komoot.io/reverse")
	v.SetDefault("geocode.primary_interval_ms", 1000)
	v.SetDefault("geocode.fallback_interval_ms", 500)
	v.SetDefault("geocode.timeout_secs", 15)
	v.SetDefault("geocode.max_attempts", 3)
	v.SetDefault("geocode.language", "id")
	v.SetDefault("geocode.user_agent", "geosheet/1.0 (batch reverse geocoder)")
	v.SetDefault("score.baseline", 0.8)
	v.SetDefault("score.both_match", 1.0)
	v.SetDefault("score.one_match", 0.6)
	v.SetDefault("score.no_match", 0.3)
	v.SetDefault("job.workers", 3)
	v.SetDefault("job.validate_areas", true)
	v.SetDefault("cache.enabled", false)
	v.SetDefault("cache.path", "geosheet-cache.db")
	v.SetDefault("cache.ttl_days", 30)
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.max_upload_mb", 10)
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

	if cfg.Job.Workers < MinWorkers || cfg.Job.Workers > MaxWorkers {
		return nil, eris.Errorf("config: job.workers must be in [%d,%d], got %d", MinWorkers, MaxWorkers, cfg.Job.Workers)
	}

	return &cfg, nil
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
