// Package simconfig loads the ambient configuration for a simulation
// run the way the rest of the stack loads service configuration: a
// viper-backed loader onto a validator-tagged struct.
package simconfig

import (
	berrors "github.com/Aidin1998/bourse_engine/pkg/errors"
	"github.com/Aidin1998/bourse_engine/pkg/logger"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// SimConfig is the configuration needed to construct a StepEnv and
// drive it with the runner. There is no network, CLI flag, or
// persistence configuration at core level, just the parameters the
// StepEnv constructor and the runner entry point take.
type SimConfig struct {
	Seed       uint64 `mapstructure:"seed"`
	StartTime  uint64 `mapstructure:"start_time"`
	TickSize   uint64 `mapstructure:"tick_size" validate:"required,gt=0"`
	StepSize   uint64 `mapstructure:"step_size" validate:"required,gt=0"`
	NSteps     uint64 `mapstructure:"n_steps" validate:"required,gt=0"`
	MaxWorkers int    `mapstructure:"max_workers" validate:"gte=0"`
	LogLevel   string `mapstructure:"log_level"`
}

// Logger builds the run's logger from the configured level.
func (c *SimConfig) Logger() *zap.Logger {
	return logger.New(c.LogLevel)
}

var validate = validator.New()

// Load reads configuration named name (without extension) from the
// given search paths and validates the result. Environment variables
// prefixed BOURSE_ override file values, following the same
// viper.AutomaticEnv convention the rest of the stack uses.
func Load(name string, paths ...string) (*SimConfig, error) {
	v := viper.New()
	v.SetConfigName(name)
	v.SetConfigType("yaml")
	for _, p := range paths {
		v.AddConfigPath(p)
	}
	v.SetEnvPrefix("BOURSE")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, berrors.Wrap(berrors.KindConfigError, err).Explain("loading simulation config %q: %s", name, err)
	}

	var cfg SimConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, berrors.Wrap(berrors.KindConfigError, err).Explain("unmarshalling simulation config: %s", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate re-checks a SimConfig built programmatically rather than
// loaded via Load, e.g. one assembled directly by tests or by a
// parameter-sweep caller.
func Validate(cfg SimConfig) error {
	if err := validate.Struct(cfg); err != nil {
		return berrors.Wrap(berrors.KindConfigError, err).Explain("invalid simulation config: %s", err)
	}
	return nil
}
