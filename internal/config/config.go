package config

import "time"

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Log      LogConfig      `mapstructure:"log" validate:"required"`
	Database DatabaseConfig `mapstructure:"database" validate:"required"`
	Worker   WorkerConfig   `mapstructure:"worker" validate:"required"`
	Spotify  SpotifyConfig  `mapstructure:"spotify" validate:"required"`
	Render   RenderConfig   `mapstructure:"render" validate:"required"`
	Refresh  RefreshConfig  `mapstructure:"refresh"`
}

// LogConfig controls the structured logger.
type LogConfig struct {
	Level  string `mapstructure:"level" validate:"required,oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"required,oneof=json text"`
}

// DatabaseConfig selects the storage engine and its connection.
// For sqlite the URL is a file path or a file: URI.
type DatabaseConfig struct {
	Driver       string `mapstructure:"driver" validate:"required,oneof=postgres sqlite"`
	URL          string `mapstructure:"url" validate:"required"`
	MaxOpenConns int    `mapstructure:"max_open_conns" validate:"gte=1,lte=100"`
}

// WorkerConfig tunes the job worker pool.
type WorkerConfig struct {
	Count        int           `mapstructure:"count" validate:"gte=1,lte=32"`
	PollInterval time.Duration `mapstructure:"poll_interval" validate:"gt=0"`
	// FetchTimeout and RenderTimeout bound each port call made by a handler.
	FetchTimeout  time.Duration `mapstructure:"fetch_timeout" validate:"gt=0"`
	RenderTimeout time.Duration `mapstructure:"render_timeout" validate:"gt=0"`
	// DrainTimeout bounds how long shutdown waits for in-flight jobs.
	DrainTimeout time.Duration `mapstructure:"drain_timeout" validate:"gt=0"`
	// Processing jobs claimed longer ago than StuckJobAge are failed by the sweep.
	StuckJobAge        time.Duration `mapstructure:"stuck_job_age" validate:"gt=0"`
	StuckCheckInterval time.Duration `mapstructure:"stuck_check_interval" validate:"gt=0"`
}

// SpotifyConfig holds the catalog client credentials and pacing.
type SpotifyConfig struct {
	ClientID          string  `mapstructure:"client_id" validate:"required"`
	ClientSecret      string  `mapstructure:"client_secret" validate:"required"`
	TokenURL          string  `mapstructure:"token_url" validate:"required,url"`
	APIBaseURL        string  `mapstructure:"api_base_url" validate:"required,url"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second" validate:"gt=0"`
	Burst             int     `mapstructure:"burst" validate:"gte=1"`
}

// RenderConfig controls where card sheets are written.
type RenderConfig struct {
	OutputDir string `mapstructure:"output_dir" validate:"required"`
}

// RefreshConfig schedules periodic refetching of every linked playlist.
// An empty Schedule disables it.
type RefreshConfig struct {
	Schedule string `mapstructure:"schedule" validate:"omitempty,cron"`
}
