package application

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/ahrav/go-tender/infrastructure/scoring"
	"github.com/ahrav/go-tender/internal/ports"
)

// Config is the complete runtime configuration of the tender service.
// Use DefaultConfig for a runnable baseline and LoadConfig to overlay a
// YAML file on top of it.
type Config struct {
	// Server configures the HTTP listener.
	Server ServerConfig `yaml:"server" validate:"required"`
	// Log configures the structured logger.
	Log LogConfig `yaml:"log" validate:"required"`
	// Store selects and tunes the persistence backend.
	Store StoreConfig `yaml:"store" validate:"required"`
	// Scoring configures the aggregator.
	Scoring ScoringConfig `yaml:"scoring"`
	// Reconcile schedules the periodic total_score reconciliation.
	Reconcile ReconcileConfig `yaml:"reconcile"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	// Addr is the listen address, e.g. ":8080".
	Addr string `yaml:"addr" validate:"required,hostname_port"`
	// CORSOrigins lists the allowed browser origins.
	CORSOrigins []string `yaml:"cors_origins" validate:"dive,required"`
	// ShutdownSeconds bounds graceful shutdown.
	ShutdownSeconds int `yaml:"shutdown_seconds" validate:"min=0,max=300"`
}

// LogConfig configures the structured logger.
type LogConfig struct {
	Level  string `yaml:"level" validate:"loglevel"`
	Format string `yaml:"format" validate:"oneof=json text"`
}

// StoreConfig selects the persistence backend and the decorators wrapped
// around it.
type StoreConfig struct {
	// Driver is one of memory, sqlite, postgres or mongo.
	Driver string `yaml:"driver" validate:"required,oneof=memory sqlite postgres mongo"`
	// DSN is the connection string. Required for every driver but memory.
	DSN string `yaml:"dsn" validate:"required_unless=Driver memory"`
	// Database names the MongoDB database.
	Database string `yaml:"database" validate:"required_if=Driver mongo"`
	// TimeoutSeconds bounds every store call.
	TimeoutSeconds int `yaml:"timeout_seconds" validate:"min=1,max=300"`
	// Retry configures retries of transient store failures.
	Retry RetryConfig `yaml:"retry"`
	// CircuitBreaker configures the store circuit breaker.
	CircuitBreaker CircuitBreakerConfig `yaml:"circuit_breaker"`
	// RateLimit paces store calls. Zero disables rate limiting.
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

// Timeout returns TimeoutSeconds as a duration.
func (c StoreConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// RetryConfig specifies the retry strategy for transient store failures.
type RetryConfig struct {
	// MaxAttempts is the total number of attempts including the first;
	// 0 and 1 both disable retries.
	MaxAttempts int `yaml:"max_attempts" validate:"min=0,max=10"`
	// InitialWait is the base backoff delay in milliseconds.
	InitialWait int `yaml:"initial_wait_ms" validate:"min=0,max=60000"`
	// MaxWait caps the backoff delay in milliseconds.
	MaxWait int `yaml:"max_wait_ms" validate:"min=0,max=300000,gtefield=InitialWait"`
}

// CircuitBreakerConfig configures the store circuit breaker.
type CircuitBreakerConfig struct {
	// MaxFailures is the number of consecutive failures that opens the
	// circuit. Zero disables the breaker.
	MaxFailures int `yaml:"max_failures" validate:"min=0,max=1000"`
	// CooldownSeconds is how long the circuit stays open.
	CooldownSeconds int `yaml:"cooldown_seconds" validate:"min=0,max=3600"`
}

// RateLimitConfig paces store calls with a token bucket.
type RateLimitConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second" validate:"min=0"`
	Burst             int     `yaml:"burst" validate:"min=0"`
}

// ScoringConfig configures the aggregator and the default shortlist policy
// applied to new tenders.
type ScoringConfig struct {
	// ClampScores bounds input scores to [0,100] before weighting.
	ClampScores bool `yaml:"clamp_scores"`
	// DefaultThreshold is used for tenders created without a threshold.
	DefaultThreshold float64 `yaml:"default_threshold" validate:"min=0,max=100"`
}

// Aggregator returns the aggregator configuration.
func (c ScoringConfig) Aggregator() scoring.AggregatorConfig {
	return scoring.AggregatorConfig{ClampScores: c.ClampScores}
}

// ReconcileConfig schedules the ScoreReconciler.
type ReconcileConfig struct {
	Enabled bool `yaml:"enabled"`
	// Schedule is a standard five-field cron expression.
	Schedule string `yaml:"schedule" validate:"required_if=Enabled true,omitempty,cronspec"`
	// Concurrency bounds how many tenders are reconciled at once.
	Concurrency int `yaml:"concurrency" validate:"min=0,max=64"`
}

// DefaultConfig returns a configuration that runs against the in-memory
// store with conservative resilience settings.
func DefaultConfig() Config {
	return Config{
		Server: ServerConfig{
			Addr:            ":8080",
			CORSOrigins:     []string{"http://localhost:3000"},
			ShutdownSeconds: 10,
		},
		Log: LogConfig{Level: "info", Format: "json"},
		Store: StoreConfig{
			Driver:         "memory",
			TimeoutSeconds: 5,
			Retry:          RetryConfig{MaxAttempts: 3, InitialWait: 50, MaxWait: 1000},
			CircuitBreaker: CircuitBreakerConfig{MaxFailures: 5, CooldownSeconds: 30},
			RateLimit:      RateLimitConfig{RequestsPerSecond: 0, Burst: 0},
		},
		Scoring: ScoringConfig{
			ClampScores:      false,
			DefaultThreshold: 70,
		},
		Reconcile: ReconcileConfig{
			Enabled:     false,
			Schedule:    "*/15 * * * *",
			Concurrency: 4,
		},
	}
}

// Validate checks struct tags and the custom validators.
func (c Config) Validate() error {
	v := validator.New()
	if err := RegisterConfigValidators(v); err != nil {
		return fmt.Errorf("failed to register validators: %w", err)
	}
	if err := v.Struct(c); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	return nil
}

// LoadConfig reads the YAML file at path over DefaultConfig, expands
// ${VAR} references from the environment and validates the result.
// An empty path returns the validated defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, cfg.Validate()
	}

	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Config{}, ports.NewConfigError(path, ports.ErrConfigNotFound)
		}
		return Config{}, fmt.Errorf("failed to read config: %w", err)
	}
	if err := decodeConfig(bytes.NewReader(data), &cfg); err != nil {
		return Config{}, ports.NewConfigError(path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, ports.NewConfigError(path, err)
	}
	return cfg, nil
}

// decodeConfig expands environment references and strictly decodes YAML
// into out. Unknown keys are rejected so typos surface at startup.
func decodeConfig(r io.Reader, out any) error {
	raw, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("failed to read data: %w", err)
	}
	expanded := os.Expand(string(raw), os.Getenv)

	decoder := yaml.NewDecoder(bytes.NewReader([]byte(expanded)))
	decoder.KnownFields(true)
	if err := decoder.Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("YAML decode failed: %w", err)
	}
	return nil
}

var _ ports.ConfigLoader = (*YAMLConfigLoader)(nil)

// YAMLConfigLoader loads a YAML file into any struct, expanding ${VAR}
// references from the environment.
type YAMLConfigLoader struct {
	path string
}

// NewYAMLConfigLoader returns a loader for the file at path.
func NewYAMLConfigLoader(path string) *YAMLConfigLoader {
	return &YAMLConfigLoader{path: filepath.Clean(path)}
}

// Load implements ports.ConfigLoader. Fields absent from the file keep the
// values already present in config.
func (l *YAMLConfigLoader) Load(ctx context.Context, config any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f, err := os.Open(l.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return ports.NewConfigError(l.path, ports.ErrConfigNotFound)
		}
		return ports.NewConfigError(l.path, err)
	}
	defer f.Close()

	if err := decodeConfig(f, config); err != nil {
		return ports.NewConfigError(l.path, err)
	}
	return nil
}
