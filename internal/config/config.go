package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/hed1ad/goaoa/pkg/detectors/aoa"
	"github.com/hed1ad/goaoa/pkg/distance"
	"github.com/hed1ad/goaoa/pkg/threshold"
)

// Config holds the full application configuration.
type Config struct {
	AOA   AOAConfig   `yaml:"aoa" mapstructure:"aoa"`
	Input InputConfig `yaml:"input" mapstructure:"input"`
	Log   LogConfig   `yaml:"log" mapstructure:"log"`
}

// AOAConfig configures the estimator.
type AOAConfig struct {
	FenceMultiplier float64 `yaml:"fence_multiplier" mapstructure:"fence_multiplier"`
	Central         string  `yaml:"central" mapstructure:"central"`
	Workers         int     `yaml:"workers" mapstructure:"workers"`
	ChunkSize       int     `yaml:"chunk_size" mapstructure:"chunk_size"`
	Index           string  `yaml:"index" mapstructure:"index"`
}

// InputConfig describes the layout of feature tables.
type InputConfig struct {
	GroupColumn string `yaml:"group_column" mapstructure:"group_column"`
	LabelColumn string `yaml:"label_column" mapstructure:"label_column"`
	NoData      string `yaml:"nodata" mapstructure:"nodata"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment. An empty path looks
// for aoa.yaml in the working directory; a missing default file is not an error.
func Load(path string) (*Config, error) {
	v := viper.New()

	// Config file
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("aoa")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	// Environment
	v.SetEnvPrefix("AOA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("aoa.fence_multiplier", threshold.DefaultMultiplier)
	v.SetDefault("aoa.central", string(threshold.Median))
	v.SetDefault("aoa.workers", 0)
	v.SetDefault("aoa.chunk_size", 4096)
	v.SetDefault("aoa.index", string(distance.IndexBrute))
	v.SetDefault("input.group_column", "group")
	v.SetDefault("input.label_column", "")
	v.SetDefault("input.nodata", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || path != "" {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate rejects settings the estimator cannot run with.
func (c *Config) Validate() error {
	if c.AOA.FenceMultiplier <= 0 {
		return eris.Errorf("config: aoa.fence_multiplier must be positive, got %v", c.AOA.FenceMultiplier)
	}
	if !threshold.Central(c.AOA.Central).Valid() {
		return eris.Errorf("config: unknown aoa.central %q", c.AOA.Central)
	}
	if !distance.IndexKind(c.AOA.Index).Valid() {
		return eris.Errorf("config: unknown aoa.index %q", c.AOA.Index)
	}
	if c.AOA.Workers < 0 {
		return eris.Errorf("config: aoa.workers must not be negative, got %d", c.AOA.Workers)
	}
	if c.AOA.ChunkSize < 0 {
		return eris.Errorf("config: aoa.chunk_size must not be negative, got %d", c.AOA.ChunkSize)
	}
	return nil
}

// Options converts the estimator settings to aoa options.
func (c *Config) Options() []aoa.Option {
	opts := []aoa.Option{
		aoa.WithFenceMultiplier(c.AOA.FenceMultiplier),
		aoa.WithCentral(threshold.Central(c.AOA.Central)),
		aoa.WithWorkers(c.AOA.Workers),
		aoa.WithIndex(distance.IndexKind(c.AOA.Index)),
	}
	if c.AOA.ChunkSize > 0 {
		opts = append(opts, aoa.WithChunkSize(c.AOA.ChunkSize))
	}
	return opts
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
