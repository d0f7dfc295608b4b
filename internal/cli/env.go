package cli

import (
	"io"
	"os"

	openai "github.com/sashabaranov/go-openai"

	"github.com/castscribe/castscribe/internal/audio"
	"github.com/castscribe/castscribe/internal/config"
	"github.com/castscribe/castscribe/internal/fetch"
	"github.com/castscribe/castscribe/internal/job"
	"github.com/castscribe/castscribe/internal/joblog"
	"github.com/castscribe/castscribe/internal/postprocess"
	"github.com/castscribe/castscribe/internal/transcribe"
)

// Env holds injectable dependencies for CLI commands.
// This is the central injection point for testing CLI commands in isolation.
//
// All fields have sensible defaults via DefaultEnv(). Tests can override
// specific fields using the With* options or by creating a custom Env.
type Env struct {
	Stderr io.Writer

	ConfigLoader  ConfigLoader
	RunnerFactory RunnerFactory
}

// ConfigLoader loads the process configuration.
type ConfigLoader interface {
	Load() (config.Config, error)
}

// RunnerFactory assembles the job pipeline from configuration.
type RunnerFactory interface {
	NewRunner(cfg config.Config, enableCorrection bool) *job.Runner
}

// EnvOption configures an Env.
type EnvOption func(*Env)

// WithStderr sets the stderr writer.
func WithStderr(w io.Writer) EnvOption {
	return func(e *Env) { e.Stderr = w }
}

// WithConfigLoader sets the config loader.
func WithConfigLoader(l ConfigLoader) EnvOption {
	return func(e *Env) { e.ConfigLoader = l }
}

// WithRunnerFactory sets the runner factory.
func WithRunnerFactory(f RunnerFactory) EnvOption {
	return func(e *Env) { e.RunnerFactory = f }
}

// DefaultEnv returns an Env with production defaults.
func DefaultEnv() *Env {
	return &Env{
		Stderr:        os.Stderr,
		ConfigLoader:  &defaultConfigLoader{},
		RunnerFactory: &defaultRunnerFactory{},
	}
}

// NewEnv creates an Env with the given options applied to defaults.
func NewEnv(opts ...EnvOption) *Env {
	env := DefaultEnv()
	for _, opt := range opts {
		opt(env)
	}
	return env
}

// defaultConfigLoader implements ConfigLoader using the config package.
type defaultConfigLoader struct{}

func (defaultConfigLoader) Load() (config.Config, error) {
	return config.Load()
}

// defaultRunnerFactory wires the production pipeline: OpenAI provider,
// retrying fetcher, ffmpeg preparer, and the in-memory job log store.
type defaultRunnerFactory struct{}

func (defaultRunnerFactory) NewRunner(cfg config.Config, enableCorrection bool) *job.Runner {
	client := openai.NewClient(cfg.APIKey)

	var providerOpts []transcribe.OpenAIOption
	if cfg.Model != "" {
		providerOpts = append(providerOpts, transcribe.WithModel(cfg.Model))
	}
	provider := transcribe.NewOpenAIProvider(client, providerOpts...)

	var transcriberOpts []transcribe.TranscriberOption
	if cfg.Concurrency > 0 {
		transcriberOpts = append(transcriberOpts, transcribe.WithConcurrency(cfg.Concurrency))
	}
	transcriber := transcribe.NewTranscriber(provider, transcriberOpts...)

	model := cfg.Model
	if model == "" {
		model = transcribe.DefaultModel
	}

	opts := []job.RunnerOption{
		job.WithTempDir(cfg.TempDir),
		job.WithModelName(model),
	}
	if enableCorrection {
		var correctorOpts []postprocess.CorrectorOption
		if cfg.CorrectionModel != "" {
			correctorOpts = append(correctorOpts, postprocess.WithCorrectionModel(cfg.CorrectionModel))
		}
		opts = append(opts, job.WithCorrector(postprocess.NewOpenAICorrector(client, correctorOpts...)))
	}

	return job.NewRunner(
		fetch.New(),
		audio.NewPreparer(cfg.FFmpegPath),
		transcriber,
		joblog.NewStore(),
		opts...,
	)
}

// Compile-time interface verification.
var (
	_ ConfigLoader  = (*defaultConfigLoader)(nil)
	_ RunnerFactory = (*defaultRunnerFactory)(nil)
)
