// Package config resolves runtime configuration from defaults, an optional
// .env file, environment variables, and CLI flags, in ascending priority.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// Config holds every externally tunable parameter of a planning run.
type Config struct {
	// InputDir is the root directory holding daily_input/<date>_input_data.json.
	InputDir string
	// OutputDir is the root directory under which daily_solution/<date>_solution_details.json is written.
	OutputDir string
	// VariantATimeBudget is the wall-clock budget used for the element-lookup shunting encoding.
	VariantATimeBudget time.Duration
	// VariantBTimeBudget is the wall-clock budget used for the next-day-starts mismatch encoding.
	VariantBTimeBudget time.Duration
	// LogLevel is parsed by logrus.ParseLevel.
	LogLevel string
	// LogFormat is either "text" or "json".
	LogFormat string
	// RandomSeed drives the solver's value-ordering heuristic for reproducibility.
	RandomSeed int64
}

// Default returns the built-in baseline configuration, before .env, env vars,
// or flags are applied.
func Default() *Config {
	return &Config{
		InputDir:           "daily_input",
		OutputDir:          "daily_solution",
		VariantATimeBudget: 180 * time.Second,
		VariantBTimeBudget: 60 * time.Second,
		LogLevel:           "info",
		LogFormat:          "text",
		RandomSeed:         42,
	}
}

// Load returns a Config seeded with defaults, overridden by an optional .env
// file in the working directory and then by RAILYARD_* environment
// variables. CLI flags are applied afterward by the caller (see cmd/railyard)
// since cobra owns flag parsing and precedence over both of these sources.
func Load() *Config {
	cfg := Default()

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		logrus.WithError(err).Debug("config: .env present but unreadable, ignoring")
	}

	if v := os.Getenv("RAILYARD_INPUT_DIR"); v != "" {
		cfg.InputDir = v
	}
	if v := os.Getenv("RAILYARD_OUTPUT_DIR"); v != "" {
		cfg.OutputDir = v
	}
	if v := os.Getenv("RAILYARD_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("RAILYARD_LOG_FORMAT"); v != "" {
		cfg.LogFormat = v
	}
	if v := os.Getenv("RAILYARD_TIME_BUDGET_SECONDS"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil {
			cfg.VariantATimeBudget = time.Duration(secs) * time.Second
			cfg.VariantBTimeBudget = time.Duration(secs) * time.Second
		}
	}
	if v := os.Getenv("RAILYARD_RANDOM_SEED"); v != "" {
		if seed, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.RandomSeed = seed
		}
	}

	return cfg
}

// NewLogger builds the shared *logrus.Logger for a run, configured per cfg.
// Callers thread the returned logger explicitly through constructors rather
// than relying on logrus's package-level default logger.
func NewLogger(cfg *Config) *logrus.Logger {
	log := logrus.New()
	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		log.SetLevel(level)
	} else {
		log.SetLevel(logrus.InfoLevel)
	}
	if cfg.LogFormat == "json" {
		log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return log
}
