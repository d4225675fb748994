package config

import (
	"fmt"
	"os"
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/JonMunkholm/curvematch/internal/core"
)

// Database drivers accepted by DB_DRIVER.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverNone     = "none"
)

var identifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]{0,62}$`)

// Load reads configuration from environment variables.
// It applies defaults for unset values and validates the result.
// Returns an error if required values are missing or validation fails.
func Load() (*Config, error) {
	return LoadFrom(os.Getenv)
}

// LoadFrom is Load with a custom variable lookup.
func LoadFrom(getenv func(string) string) (*Config, error) {
	cfg := &Config{}

	if err := loadStruct(reflect.ValueOf(cfg).Elem(), getenv); err != nil {
		return nil, fmt.Errorf("config load: %w: %w", core.ErrConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

// loadStruct recursively populates struct fields from environment variables.
func loadStruct(v reflect.Value, getenv func(string) string) error {
	t := v.Type()

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		fieldVal := v.Field(i)

		// Skip unexported fields
		if !fieldVal.CanSet() {
			continue
		}

		// Recurse into nested structs
		if field.Type.Kind() == reflect.Struct && field.Type != reflect.TypeOf(time.Time{}) {
			if err := loadStruct(fieldVal, getenv); err != nil {
				return err
			}
			continue
		}

		// Get tags
		envName := field.Tag.Get("env")
		envAlt := field.Tag.Get("envAlt")
		defaultVal := field.Tag.Get("default")
		required := field.Tag.Get("required") == "true"

		if envName == "" {
			continue
		}

		// Try primary env var, then alternate
		value := strings.TrimSpace(getenv(envName))
		if value == "" && envAlt != "" {
			value = strings.TrimSpace(getenv(envAlt))
		}

		// Apply default if not set
		if value == "" {
			if required {
				return fmt.Errorf("required environment variable %s is not set", envName)
			}
			value = defaultVal
		}

		if value == "" {
			continue
		}

		// Set the field value
		if err := setField(fieldVal, value); err != nil {
			return fmt.Errorf("invalid value for %s=%q: %w", envName, value, err)
		}
	}

	return nil
}

// setField sets a reflect.Value from a string based on its type.
func setField(field reflect.Value, value string) error {
	switch field.Kind() {
	case reflect.String:
		field.SetString(value)

	case reflect.Int, reflect.Int64:
		// Handle time.Duration specially
		if field.Type() == reflect.TypeOf(time.Duration(0)) {
			d, err := time.ParseDuration(value)
			if err != nil {
				return fmt.Errorf("invalid duration: %w", err)
			}
			field.Set(reflect.ValueOf(d))
		} else {
			i, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid integer: %w", err)
			}
			field.SetInt(i)
		}

	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid boolean: %w", err)
		}
		field.SetBool(b)

	case reflect.Slice:
		if field.Type().Elem().Kind() == reflect.String {
			// Split comma-separated values, trim whitespace
			parts := strings.Split(value, ",")
			result := make([]string, 0, len(parts))
			for _, p := range parts {
				p = strings.TrimSpace(p)
				if p != "" {
					result = append(result, p)
				}
			}
			field.Set(reflect.ValueOf(result))
		} else {
			return fmt.Errorf("unsupported slice type: %s", field.Type().Elem().Kind())
		}

	default:
		return fmt.Errorf("unsupported field type: %s", field.Kind())
	}

	return nil
}

// Validate checks that the configuration is valid.
// Returns an error describing all validation failures.
func (c *Config) Validate() error {
	var errs []string

	// Data validation
	if c.Data.TrainingCSV == "" || c.Data.IdealCSV == "" || c.Data.TestCSV == "" {
		errs = append(errs, "TRAINING_CSV, IDEAL_CSV and TEST_CSV must all be set")
	}

	// Match validation
	if len(c.Match.TrainingSeries) == 0 {
		errs = append(errs, "MATCH_TRAINING_SERIES must name at least one series")
	}
	seen := make(map[string]bool, len(c.Match.TrainingSeries))
	for _, name := range c.Match.TrainingSeries {
		key := strings.ToLower(name)
		if seen[key] {
			errs = append(errs, fmt.Sprintf("MATCH_TRAINING_SERIES lists %q twice", name))
		}
		seen[key] = true
	}
	switch core.ThresholdPolicy(c.Match.ThresholdPolicy) {
	case core.PerCandidate, core.Global:
	default:
		errs = append(errs, fmt.Sprintf("MATCH_THRESHOLD_POLICY (%q) must be one of: %s, %s",
			c.Match.ThresholdPolicy, core.PerCandidate, core.Global))
	}
	switch core.CollisionPolicy(c.Match.CollisionPolicy) {
	case core.LastWriteWins, core.CollisionReject:
	default:
		errs = append(errs, fmt.Sprintf("MATCH_COLLISION_POLICY (%q) must be one of: %s, %s",
			c.Match.CollisionPolicy, core.LastWriteWins, core.CollisionReject))
	}

	// Database validation
	switch strings.ToLower(c.Database.Driver) {
	case DriverSQLite:
		if c.Database.URL == "" {
			errs = append(errs, "DATABASE_URL must name a database file when DB_DRIVER=sqlite")
		}
	case DriverPostgres:
		if !strings.HasPrefix(c.Database.URL, "postgres://") && !strings.HasPrefix(c.Database.URL, "postgresql://") {
			errs = append(errs, "DATABASE_URL must be a postgres:// URL when DB_DRIVER=postgres")
		}
	case DriverNone:
	default:
		errs = append(errs, fmt.Sprintf("DB_DRIVER (%q) must be one of: sqlite, postgres, none", c.Database.Driver))
	}
	if c.Database.MaxConns < c.Database.MinConns {
		errs = append(errs, fmt.Sprintf("DB_MAX_CONNS (%d) must be >= DB_MIN_CONNS (%d)",
			c.Database.MaxConns, c.Database.MinConns))
	}
	if c.Database.MaxConns <= 0 {
		errs = append(errs, "DB_MAX_CONNS must be positive")
	}
	if c.Database.MinConns < 0 {
		errs = append(errs, "DB_MIN_CONNS must be non-negative")
	}
	if !identifier.MatchString(c.Database.ResultTable) {
		errs = append(errs, fmt.Sprintf("DB_RESULT_TABLE (%q) must be a plain SQL identifier", c.Database.ResultTable))
	}
	if c.Database.WriteTimeout <= 0 {
		errs = append(errs, "DB_WRITE_TIMEOUT must be positive")
	}

	// Chart validation
	if c.Chart.Enabled {
		if c.Chart.OutputDir == "" {
			errs = append(errs, "CHART_OUTPUT_DIR is required when CHART_ENABLED is true")
		}
		if c.Chart.Width < 100 || c.Chart.Height < 100 {
			errs = append(errs, fmt.Sprintf("CHART_WIDTH and CHART_HEIGHT (%dx%d) must be at least 100",
				c.Chart.Width, c.Chart.Height))
		}
	}

	// Server validation
	if c.Server.Enabled {
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, fmt.Sprintf("SERVER_PORT (%d) must be 1-65535", c.Server.Port))
		}
		if c.Server.ReadTimeout < 0 {
			errs = append(errs, "SERVER_READ_TIMEOUT must be non-negative")
		}
		if c.Server.ShutdownTimeout <= 0 {
			errs = append(errs, "SERVER_SHUTDOWN_TIMEOUT must be positive")
		}
		if c.Server.RateLimit < 0 {
			errs = append(errs, fmt.Sprintf("SERVER_RATE_LIMIT (%d) must be non-negative", c.Server.RateLimit))
		}
	}

	// Logging validation
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, fmt.Sprintf("LOG_LEVEL (%q) must be one of: debug, info, warn, error", c.Logging.Level))
	}

	validFormats := map[string]bool{"text": true, "json": true}
	if !validFormats[strings.ToLower(c.Logging.Format)] {
		errs = append(errs, fmt.Sprintf("LOG_FORMAT (%q) must be one of: text, json", c.Logging.Format))
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w:\n  - %s", core.ErrConfig, strings.Join(errs, "\n  - "))
	}

	return nil
}

// Options converts the match settings into pipeline options. Series names
// are lower-cased to match the loader's header normalization.
func (c *Config) Options() core.Options {
	series := make([]string, len(c.Match.TrainingSeries))
	for i, name := range c.Match.TrainingSeries {
		series[i] = strings.ToLower(name)
	}
	return core.Options{
		TrainingSeries: series,
		Thresholds: core.ThresholdOptions{
			Policy:    core.ThresholdPolicy(c.Match.ThresholdPolicy),
			Collision: core.CollisionPolicy(c.Match.CollisionPolicy),
		},
		AllowEmptyResult: c.Match.AllowEmptyResult,
	}
}

// String returns a safe string representation of the config for logging.
// Sensitive values like database URLs are masked.
func (c *Config) String() string {
	var b strings.Builder
	b.WriteString("Config{")
	b.WriteString(fmt.Sprintf("Data: {Training: %q, Ideal: %q, Test: %q}, ",
		c.Data.TrainingCSV, c.Data.IdealCSV, c.Data.TestCSV))
	b.WriteString(fmt.Sprintf("Match: {Series: %v, Policy: %q, Collision: %q, AllowEmpty: %v}, ",
		c.Match.TrainingSeries, c.Match.ThresholdPolicy, c.Match.CollisionPolicy, c.Match.AllowEmptyResult))
	url := "[MASKED]"
	if strings.EqualFold(c.Database.Driver, DriverSQLite) {
		url = c.Database.URL
	}
	b.WriteString(fmt.Sprintf("Database: {Driver: %q, URL: %s, ResultTable: %q}, ",
		c.Database.Driver, url, c.Database.ResultTable))
	b.WriteString(fmt.Sprintf("Chart: {Enabled: %v, Dir: %q}, ", c.Chart.Enabled, c.Chart.OutputDir))
	b.WriteString(fmt.Sprintf("Server: {Enabled: %v, Addr: %q}, ", c.Server.Enabled, c.Server.Addr()))
	b.WriteString(fmt.Sprintf("Logging: {Level: %q, Format: %q}",
		c.Logging.Level, c.Logging.Format))
	b.WriteString("}")
	return b.String()
}
