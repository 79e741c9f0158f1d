package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable read by Load,
// e.g. HITSTER_DATABASE_URL for database.url.
const EnvPrefix = "HITSTER"

// ConfigFileEnv names an explicit config file; when unset Load looks for an
// optional config.yaml in the working directory.
const ConfigFileEnv = EnvPrefix + "_CONFIG_FILE"

// keys without defaults still need binding so AutomaticEnv sees them on Unmarshal.
var envOnlyKeys = []string{
	"database.url",
	"spotify.client_id",
	"spotify.client_secret",
	"refresh.schedule",
}

// Load configuration from a .env file, environment variables and optionally a
// config file. Environment variables take precedence over values from config
// files. Returns a populated Config struct or an error if loading/validation fails.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, key := range envOnlyKeys {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("failed to bind env for %s: %w", key, err)
		}
	}

	explicit := os.Getenv(ConfigFileEnv)
	if explicit != "" {
		v.SetConfigFile(explicit)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if explicit != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks struct tags and the cross-field rules the tags cannot express.
func Validate(cfg *Config) error {
	validate := validator.New()
	if err := validate.RegisterValidation("cron", validateCron); err != nil {
		return fmt.Errorf("failed to register cron validation: %w", err)
	}

	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	w := cfg.Worker
	if w.StuckJobAge <= w.FetchTimeout+w.RenderTimeout {
		return fmt.Errorf(
			"config validation failed: worker.stuck_job_age (%s) must exceed fetch_timeout + render_timeout (%s)",
			w.StuckJobAge,
			w.FetchTimeout+w.RenderTimeout,
		)
	}

	return nil
}

func validateCron(fl validator.FieldLevel) bool {
	_, err := cron.ParseStandard(fl.Field().String())
	return err == nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.max_open_conns", 10)

	v.SetDefault("worker.count", 2)
	v.SetDefault("worker.poll_interval", 2*time.Second)
	v.SetDefault("worker.fetch_timeout", 30*time.Second)
	v.SetDefault("worker.render_timeout", 2*time.Minute)
	v.SetDefault("worker.drain_timeout", 5*time.Minute)
	v.SetDefault("worker.stuck_job_age", 30*time.Minute)
	v.SetDefault("worker.stuck_check_interval", 5*time.Minute)

	v.SetDefault("spotify.token_url", "https://accounts.spotify.com/api/token")
	v.SetDefault("spotify.api_base_url", "https://api.spotify.com/v1")
	v.SetDefault("spotify.requests_per_second", 5.0)
	v.SetDefault("spotify.burst", 5)

	v.SetDefault("render.output_dir", "generated_pdfs")
}
