// Package config provides configuration loading and validation from environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"

	"github.com/sipico/supabase-keepalive/internal/schedule"
	"github.com/sipico/supabase-keepalive/internal/supabase"
)

// DefaultEnvFile is read by Load when it exists in the working directory.
const DefaultEnvFile = ".env"

// Defaults for optional settings.
const (
	DefaultTable     = "health_check"
	DefaultColumn    = "id"
	DefaultTimeout   = 30 * time.Second
	DefaultLogLevel  = "info"
	DefaultLogFormat = "text"
	DefaultProbeMode = "rest"
)

// Config holds all settings for a keepalive run.
//
// SupabaseURL and SupabaseKey are deliberately not validated here: a missing
// or malformed endpoint or credential is a probe failure with its own kind.
type Config struct {
	SupabaseURL     string        `env:"SUPABASE_URL"`
	SupabaseKey     string        `env:"SUPABASE_KEY"` // falls back to SUPABASE_ANON_KEY
	RESTPath        string        `env:"SUPABASE_REST_PATH" validate:"omitempty,startswith=/"`
	Table           string        `env:"KEEPALIVE_TABLE"`
	Column          string        `env:"KEEPALIVE_COLUMN"`
	Timeout         time.Duration `env:"REQUEST_TIMEOUT" validate:"gt=0"`
	LogLevel        string        `env:"LOG_LEVEL" validate:"oneof=debug info warn warning error"`
	LogFormat       string        `env:"LOG_FORMAT" validate:"oneof=text json"`
	ProbeMode       string        `env:"PROBE_MODE" validate:"oneof=rest sql"`
	DatabaseURL     string        `env:"DATABASE_URL" validate:"required_if=ProbeMode sql"`
	PushgatewayURL  string        `env:"PUSHGATEWAY_URL" validate:"omitempty,url"`
	MetricsTextfile string        `env:"METRICS_TEXTFILE"`
	Schedule        string        `env:"KEEPALIVE_SCHEDULE"`
}

// Load reads DefaultEnvFile if present and then parses configuration from
// environment variables.
func Load() (*Config, error) {
	return LoadFrom(DefaultEnvFile)
}

// LoadFrom is like Load but reads the given env file. Variables already set
// in the process environment take precedence over the file. A missing file
// is not an error.
func LoadFrom(envFile string) (*Config, error) {
	if envFile != "" {
		if _, err := os.Stat(envFile); err == nil {
			if err := godotenv.Load(envFile); err != nil {
				return nil, fmt.Errorf("failed to load %s: %w", envFile, err)
			}
		}
	}

	key := os.Getenv("SUPABASE_KEY")
	if key == "" {
		key = os.Getenv("SUPABASE_ANON_KEY")
	}

	timeout := DefaultTimeout
	if raw := os.Getenv("REQUEST_TIMEOUT"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid REQUEST_TIMEOUT %q: %w", raw, err)
		}
		timeout = d
	}

	cfg := &Config{
		SupabaseURL:     os.Getenv("SUPABASE_URL"),
		SupabaseKey:     key,
		RESTPath:        getenv("SUPABASE_REST_PATH", supabase.DefaultRESTPath),
		Table:           getenv("KEEPALIVE_TABLE", DefaultTable),
		Column:          getenv("KEEPALIVE_COLUMN", DefaultColumn),
		Timeout:         timeout,
		LogLevel:        strings.ToLower(getenv("LOG_LEVEL", DefaultLogLevel)),
		LogFormat:       strings.ToLower(getenv("LOG_FORMAT", DefaultLogFormat)),
		ProbeMode:       strings.ToLower(getenv("PROBE_MODE", DefaultProbeMode)),
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		PushgatewayURL:  os.Getenv("PUSHGATEWAY_URL"),
		MetricsTextfile: os.Getenv("METRICS_TEXTFILE"),
		Schedule:        getenv("KEEPALIVE_SCHEDULE", schedule.DefaultExpr),
	}

	return cfg, nil
}

// Validate checks all configuration constraints.
func (c *Config) Validate() error {
	if err := newValidator().Struct(c); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return err
		}
		msgs := make([]string, 0, len(fieldErrs))
		for _, fe := range fieldErrs {
			msgs = append(msgs, describe(fe))
		}
		return fmt.Errorf("invalid configuration: %s", strings.Join(msgs, "; "))
	}
	return nil
}

// CronSchedule parses KEEPALIVE_SCHEDULE. Only commands that run on a
// schedule call it, so a bad value never fails a one-off ping.
func (c *Config) CronSchedule() (*schedule.CronSchedule, error) {
	cs, err := schedule.ParseCron(c.Schedule)
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: KEEPALIVE_SCHEDULE: %w", err)
	}
	return cs, nil
}

// newValidator reports fields by their environment variable name.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := fld.Tag.Get("env")
		if name == "" {
			return fld.Name
		}
		return name
	})
	return v
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s], got %q", fe.Field(), fe.Param(), fe.Value())
	case "required_if":
		return fmt.Sprintf("%s is required when PROBE_MODE is sql", fe.Field())
	case "url":
		return fmt.Sprintf("%s must be a URL, got %q", fe.Field(), fe.Value())
	case "gt":
		return fmt.Sprintf("%s must be positive", fe.Field())
	case "startswith":
		return fmt.Sprintf("%s must start with %q, got %q", fe.Field(), fe.Param(), fe.Value())
	default:
		return fmt.Sprintf("%s failed %s validation", fe.Field(), fe.Tag())
	}
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
