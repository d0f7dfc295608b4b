// Package config loads runtime configuration from the environment, with
// .env file support for local development.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Environment variables.
const (
	EnvAPIKey          = "OPENAI_API_KEY"
	EnvModel           = "CASTSCRIBE_MODEL"
	EnvCorrectionModel = "CASTSCRIBE_CORRECTION_MODEL"
	EnvFFmpegPath      = "CASTSCRIBE_FFMPEG_PATH"
	EnvTempDir         = "CASTSCRIBE_TEMP_DIR"
	EnvConcurrency     = "CASTSCRIBE_CONCURRENCY"
	EnvJobTimeout      = "CASTSCRIBE_JOB_TIMEOUT"
)

// ErrAPIKeyMissing indicates OPENAI_API_KEY is not set.
var ErrAPIKeyMissing = errors.New("OPENAI_API_KEY environment variable not set")

// Config is the process configuration.
type Config struct {
	// APIKey authenticates against the OpenAI API. Required.
	APIKey string

	// Model overrides the speech-to-text model. Empty uses the default.
	Model string

	// CorrectionModel overrides the chat model for the correction pass.
	CorrectionModel string

	// FFmpegPath pins the transcoder binary. Empty resolves from PATH.
	FFmpegPath string

	// TempDir is the base for per-job temp directories. Empty uses the
	// OS default.
	TempDir string

	// Concurrency overrides the segment worker pool size. Zero keeps the
	// default.
	Concurrency int

	// JobTimeout overrides the default job deadline. Zero keeps the
	// default; the per-job maximum still applies.
	JobTimeout time.Duration
}

// Load reads configuration from the environment. A .env file in the working
// directory is loaded first when present; real environment variables win.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		APIKey:          os.Getenv(EnvAPIKey),
		Model:           os.Getenv(EnvModel),
		CorrectionModel: os.Getenv(EnvCorrectionModel),
		FFmpegPath:      os.Getenv(EnvFFmpegPath),
		TempDir:         os.Getenv(EnvTempDir),
	}

	if cfg.APIKey == "" {
		return Config{}, fmt.Errorf("%w (set it with: export %s=sk-...)", ErrAPIKeyMissing, EnvAPIKey)
	}

	if v := os.Getenv(EnvConcurrency); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return Config{}, fmt.Errorf("invalid %s: %q (want a positive integer)", EnvConcurrency, v)
		}
		cfg.Concurrency = n
	}

	if v := os.Getenv(EnvJobTimeout); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return Config{}, fmt.Errorf("invalid %s: %q (want a duration like 20m)", EnvJobTimeout, v)
		}
		cfg.JobTimeout = d
	}

	return cfg, nil
}
