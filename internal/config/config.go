// Package config provides centralized configuration management for the application.
// It loads configuration from environment variables with sensible defaults and
// validates all settings on startup to fail fast on misconfiguration.
package config

import (
	"net"
	"strconv"
	"time"
)

// Config holds all application configuration.
// All settings can be configured via environment variables.
type Config struct {
	Data     DataConfig
	Match    MatchConfig
	Database DatabaseConfig
	Chart    ChartConfig
	Server   ServerConfig
	Logging  LoggingConfig
}

// DataConfig locates the three input files.
type DataConfig struct {
	TrainingCSV string `env:"TRAINING_CSV" default:"data/train.csv"`
	IdealCSV    string `env:"IDEAL_CSV" default:"data/ideal.csv"`
	TestCSV     string `env:"TEST_CSV" default:"data/test.csv"`
}

// MatchConfig holds pipeline settings.
type MatchConfig struct {
	// TrainingSeries lists the training columns to match (default: y1,y2,y3,y4)
	TrainingSeries []string `env:"MATCH_TRAINING_SERIES" default:"y1,y2,y3,y4"`

	// ThresholdPolicy is per-candidate or global (default: per-candidate)
	ThresholdPolicy string `env:"MATCH_THRESHOLD_POLICY" default:"per-candidate"`

	// CollisionPolicy decides what happens when two training series select
	// the same candidate: last-write-wins or reject (default: last-write-wins)
	CollisionPolicy string `env:"MATCH_COLLISION_POLICY" default:"last-write-wins"`

	// AllowEmptyResult persists an empty mapping instead of failing the run
	AllowEmptyResult bool `env:"MATCH_ALLOW_EMPTY_RESULT" default:"false"`
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	// Driver selects the backend: sqlite, postgres or none (default: sqlite)
	Driver string `env:"DB_DRIVER" default:"sqlite"`

	// URL is a file path for sqlite or a connection string for postgres.
	// Supports both DATABASE_URL and DB_URL env vars for compatibility
	URL string `env:"DATABASE_URL" envAlt:"DB_URL" default:"curvematch.db"`

	// MaxConns is the maximum number of connections in the pool (default: 4)
	MaxConns int `env:"DB_MAX_CONNS" default:"4"`

	// MinConns is the minimum number of connections to keep open (default: 0)
	MinConns int `env:"DB_MIN_CONNS" default:"0"`

	// MaxConnLifetime is the maximum lifetime of a connection (default: 1h)
	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" default:"1h"`

	// MaxConnIdleTime is the maximum idle time before a connection is closed (default: 30m)
	MaxConnIdleTime time.Duration `env:"DB_MAX_CONN_IDLE_TIME" default:"30m"`

	// ResultTable names the table holding the test point mapping (default: mapping)
	ResultTable string `env:"DB_RESULT_TABLE" default:"mapping"`

	// WriteTimeout bounds all writes of one run (default: 2m)
	WriteTimeout time.Duration `env:"DB_WRITE_TIMEOUT" default:"2m"`
}

// ChartConfig holds PNG chart settings.
type ChartConfig struct {
	Enabled   bool   `env:"CHART_ENABLED" default:"true"`
	OutputDir string `env:"CHART_OUTPUT_DIR" default:"charts"`
	Width     int    `env:"CHART_WIDTH" default:"1024"`
	Height    int    `env:"CHART_HEIGHT" default:"512"`
}

// ServerConfig holds HTTP report server settings.
type ServerConfig struct {
	// Enabled keeps the process running to serve the report (default: false)
	Enabled bool `env:"SERVER_ENABLED" default:"false"`

	// Host is the interface to bind to (default: 127.0.0.1)
	Host string `env:"SERVER_HOST" default:"127.0.0.1"`

	// Port is the port to listen on (default: 8080)
	Port int `env:"SERVER_PORT" default:"8080"`

	// ReadTimeout is the maximum duration for reading a request (default: 15s)
	ReadTimeout time.Duration `env:"SERVER_READ_TIMEOUT" default:"15s"`

	// WriteTimeout is the maximum duration for writing a response (default: 30s)
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"30s"`

	// IdleTimeout is the keep-alive timeout (default: 60s)
	IdleTimeout time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown (default: 30s)
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// RequestTimeout is the middleware timeout for requests (default: 30s)
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"30s"`

	// RateLimit is the number of requests allowed per client IP per minute.
	// Zero disables limiting (default: 120)
	RateLimit int `env:"SERVER_RATE_LIMIT" default:"120"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}
