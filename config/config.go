// Package config loads the resilience core's settings from yaml files,
// .env files, and environment variables, and converts them into the
// breaker, retry, and logging configs the other packages consume.
package config

import (
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/southerncoder/faultkit/errors"
	"github.com/southerncoder/faultkit/logger"
	"github.com/southerncoder/faultkit/manager"
	"github.com/southerncoder/faultkit/resilience"
)

// BreakerSettings is the configuration surface for circuit breakers.
type BreakerSettings struct {
	FailureThreshold int           `mapstructure:"failure_threshold" validate:"gte=1"`
	RecoveryTimeout  time.Duration `mapstructure:"recovery_timeout" validate:"gt=0"`
	MonitoringWindow time.Duration `mapstructure:"monitoring_window" validate:"gt=0"`
	MinimumRequests  int           `mapstructure:"minimum_requests" validate:"gte=0"`
}

// RetrySettings is the configuration surface for the retry engine.
type RetrySettings struct {
	MaxAttempts       int           `mapstructure:"max_attempts" validate:"gte=1"`
	BaseDelay         time.Duration `mapstructure:"base_delay" validate:"gt=0"`
	MaxDelay          time.Duration `mapstructure:"max_delay" validate:"gtefield=BaseDelay"`
	BackoffMultiplier float64       `mapstructure:"backoff_multiplier" validate:"gte=1"`
	Jitter            bool          `mapstructure:"jitter"`
	// RetryableKinds overrides the taxonomy's default retryable set.
	// Values must parse as taxonomy kinds (e.g. NETWORK, RATE_LIMIT).
	RetryableKinds []string `mapstructure:"retryable_kinds"`
}

// Settings is the full configuration tree.
type Settings struct {
	Logging logger.Config   `mapstructure:"logging"`
	Breaker BreakerSettings `mapstructure:"breaker"`
	Retry   RetrySettings   `mapstructure:"retry"`
}

type loaderOptions struct {
	configFile string
	envFile    string
	envPrefix  string
}

// Option configures Load.
type Option func(*loaderOptions)

// WithConfigFile sets an explicit yaml config file path.
func WithConfigFile(path string) Option {
	return func(lo *loaderOptions) { lo.configFile = path }
}

// WithEnvFile sets an explicit .env file path.
func WithEnvFile(path string) Option {
	return func(lo *loaderOptions) { lo.envFile = path }
}

// WithEnvPrefix overrides the environment variable prefix (default FAULTKIT,
// as in FAULTKIT_BREAKER_FAILURE_THRESHOLD).
func WithEnvPrefix(prefix string) Option {
	return func(lo *loaderOptions) { lo.envPrefix = prefix }
}

// Load reads settings in precedence order: defaults, then the yaml config
// file, then the .env file, then process environment variables. Missing
// files are not errors; an invalid resulting config is.
func Load(opts ...Option) (*Settings, error) {
	lo := loaderOptions{envPrefix: "FAULTKIT"}
	for _, opt := range opts {
		opt(&lo)
	}

	if lo.envFile != "" {
		if err := godotenv.Load(lo.envFile); err != nil {
			return nil, fmt.Errorf("loading env file %s: %w", lo.envFile, err)
		}
	} else {
		// Best effort: pick up a local .env when present.
		_ = godotenv.Load()
	}

	v := viper.New()
	applyDefaults(v)

	v.SetEnvPrefix(lo.envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if lo.configFile != "" {
		v.SetConfigFile(lo.configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", lo.configFile, err)
		}
	} else {
		v.SetConfigName("faultkit")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !stderrors.As(err, &notFound) {
				return nil, fmt.Errorf("reading config: %w", err)
			}
		}
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("unmarshaling settings: %w", err)
	}

	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Default returns the settings used when nothing is configured.
func Default() *Settings {
	return &Settings{
		Logging: logger.Config{Level: "info", Format: "console", Output: "stderr", Timestamp: true},
		Breaker: BreakerSettings{
			FailureThreshold: 5,
			RecoveryTimeout:  60 * time.Second,
			MonitoringWindow: 5 * time.Minute,
			MinimumRequests:  3,
		},
		Retry: RetrySettings{
			MaxAttempts:       3,
			BaseDelay:         time.Second,
			MaxDelay:          30 * time.Second,
			BackoffMultiplier: 2.0,
			Jitter:            true,
		},
	}
}

// Validate checks field constraints and that every configured retryable kind
// exists in the taxonomy.
func (s *Settings) Validate() error {
	if err := validator.New().Struct(s); err != nil {
		return fmt.Errorf("invalid settings: %w", err)
	}
	for _, raw := range s.Retry.RetryableKinds {
		if _, ok := errors.ParseKind(raw); !ok {
			return fmt.Errorf("invalid settings: unknown retryable kind %q", raw)
		}
	}
	return s.Logging.Validate()
}

// BreakerConfig converts breaker settings into a circuit breaker config
// template (name and callbacks are assigned by the manager per breaker).
func (s *Settings) BreakerConfig() resilience.CircuitBreakerConfig {
	return resilience.CircuitBreakerConfig{
		FailureThreshold: s.Breaker.FailureThreshold,
		RecoveryTimeout:  s.Breaker.RecoveryTimeout,
		MonitoringWindow: s.Breaker.MonitoringWindow,
		MinimumRequests:  s.Breaker.MinimumRequests,
	}
}

// RetryConfig converts retry settings into a retry engine config.
func (s *Settings) RetryConfig() resilience.RetryConfig {
	cfg := resilience.RetryConfig{
		MaxAttempts:       s.Retry.MaxAttempts,
		BaseDelay:         s.Retry.BaseDelay,
		MaxDelay:          s.Retry.MaxDelay,
		BackoffMultiplier: s.Retry.BackoffMultiplier,
		Jitter:            s.Retry.Jitter,
	}
	for _, raw := range s.Retry.RetryableKinds {
		if kind, ok := errors.ParseKind(raw); ok {
			cfg.RetryableKinds = append(cfg.RetryableKinds, kind)
		}
	}
	return cfg
}

// ManagerConfig bundles the breaker and retry configs for manager.New.
func (s *Settings) ManagerConfig() manager.Config {
	return manager.Config{
		Breaker: s.BreakerConfig(),
		Retry:   s.RetryConfig(),
	}
}

func applyDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)
	v.SetDefault("logging.output", d.Logging.Output)
	v.SetDefault("logging.timestamp", d.Logging.Timestamp)
	v.SetDefault("breaker.failure_threshold", d.Breaker.FailureThreshold)
	v.SetDefault("breaker.recovery_timeout", d.Breaker.RecoveryTimeout.String())
	v.SetDefault("breaker.monitoring_window", d.Breaker.MonitoringWindow.String())
	v.SetDefault("breaker.minimum_requests", d.Breaker.MinimumRequests)
	v.SetDefault("retry.max_attempts", d.Retry.MaxAttempts)
	v.SetDefault("retry.base_delay", d.Retry.BaseDelay.String())
	v.SetDefault("retry.max_delay", d.Retry.MaxDelay.String())
	v.SetDefault("retry.backoff_multiplier", d.Retry.BackoffMultiplier)
	v.SetDefault("retry.jitter", d.Retry.Jitter)
}
