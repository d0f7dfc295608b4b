// Package cli implements the castscribe command surface on top of the job
// runner, with dependencies injected through Env for testability.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/castscribe/castscribe/internal/job"
	"github.com/castscribe/castscribe/internal/joblog"
	"github.com/castscribe/castscribe/internal/render"
	"github.com/castscribe/castscribe/internal/transcribe"
)

// logPollInterval is how often the progress printer drains the job log.
const logPollInterval = 2 * time.Second

// TranscribeCmd creates the transcribe command.
// The env parameter provides injectable dependencies for testing.
func TranscribeCmd(env *Env) *cobra.Command {
	var (
		formats     []string
		contentType string
		language    string
		keywords    string
		diarize     bool
		correct     bool
		timeout     time.Duration
		outputDir   string
		title       string
		showLogs    bool
	)

	cmd := &cobra.Command{
		Use:   "transcribe <audio-file-or-url>",
		Short: "Transcribe a podcast episode from a file or URL",
		Long: `Transcribe a podcast episode using OpenAI's transcription API.

Oversize audio is transcoded and sliced into fixed five-minute segments that
are transcribed concurrently and merged back on a drift-free timeline.

Sources can be a local audio file or an http(s) URL.
Supported formats: flac, m4a, mp3, mp4, mpeg, mpga, oga, ogg, wav, webm`,
		Example: `  castscribe transcribe episode.mp3
  castscribe transcribe episode.mp3 -f txt -f srt
  castscribe transcribe https://cdn.example.com/ep42.mp3 -f json --correct
  castscribe transcribe interview.m4a --content-type interview --diarize
  castscribe transcribe lecture.ogg -l zh -k "机器学习, 神经网络"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTranscribe(cmd, env, args[0], transcribeFlags{
				formats:     formats,
				contentType: contentType,
				language:    language,
				keywords:    keywords,
				diarize:     diarize,
				correct:     correct,
				timeout:     timeout,
				outputDir:   outputDir,
				title:       title,
				showLogs:    showLogs,
			})
		},
	}

	cmd.Flags().StringSliceVarP(&formats, "format", "f", []string{"txt"}, "Output formats: txt, srt, vtt, json (repeatable)")
	cmd.Flags().StringVar(&contentType, "content-type", "podcast", "Prompt template: podcast, interview, lecture")
	cmd.Flags().StringVarP(&language, "language", "l", "auto", "Audio language (ISO 639-1 code, or auto)")
	cmd.Flags().StringVarP(&keywords, "keywords", "k", "", "Keywords hinted to the transcription model")
	cmd.Flags().BoolVar(&diarize, "diarize", false, "Attach heuristic speaker labels")
	cmd.Flags().BoolVar(&correct, "correct", false, "Run the LLM spelling/grammar pass")
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "Job deadline (default 30m, max 60m)")
	cmd.Flags().StringVarP(&outputDir, "output-dir", "o", "", "Directory for output files (default: current directory)")
	cmd.Flags().StringVar(&title, "title", "", "Job title (default: derived from the source)")
	cmd.Flags().BoolVar(&showLogs, "logs", true, "Stream job progress logs to stderr")

	return cmd
}

type transcribeFlags struct {
	formats     []string
	contentType string
	language    string
	keywords    string
	diarize     bool
	correct     bool
	timeout     time.Duration
	outputDir   string
	title       string
	showLogs    bool
}

// runTranscribe submits one job and streams its progress to stderr.
func runTranscribe(cmd *cobra.Command, env *Env, src string, flags transcribeFlags) error {
	ctx := cmd.Context()

	outputFormats, err := render.ParseFormats(flags.formats)
	if err != nil {
		return err
	}

	params := job.Params{
		OutputFormats:            outputFormats,
		ContentType:              transcribe.ContentType(flags.contentType),
		SourceLanguage:           flags.language,
		Keywords:                 flags.keywords,
		EnableSpeakerDiarization: flags.diarize,
		Timeout:                  flags.timeout,
	}

	cfg, err := env.ConfigLoader.Load()
	if err != nil {
		return err
	}
	if params.Timeout == 0 {
		params.Timeout = cfg.JobTimeout
	}

	runner := env.RunnerFactory.NewRunner(cfg, flags.correct)

	title := flags.title
	if title == "" {
		title = sourceTitle(src)
	}

	handle, err := submit(runner, src, title, params)
	if err != nil {
		return err
	}

	// Ctrl-C cancels the job; the custodian sweeps temp files before exit.
	go func() {
		<-ctx.Done()
		handle.Cancel()
	}()

	stopProgress := func() {}
	if flags.showLogs {
		stopProgress = streamLogs(env, runner, handle.ID)
	}
	result, err := handle.Await(context.Background())
	stopProgress()
	if err != nil {
		return describeFailure(env, err)
	}

	written, err := writeOutputs(flags.outputDir, sourceBase(src), result.Formats)
	if err != nil {
		return err
	}

	fmt.Fprintf(env.Stderr, "Done: %s (%s, %.0fs)\n",
		strings.Join(written, ", "), result.Language, result.DurationSec)
	return nil
}

// submit routes the source to the right admission path.
func submit(runner *job.Runner, src, title string, params job.Params) (*job.Handle, error) {
	if src == "" {
		return nil, ErrNoSource
	}
	if isURL(src) {
		return runner.SubmitFromURL("", title, src, params)
	}

	data, err := os.ReadFile(src) // #nosec G304 -- user-specified input file
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrFileNotFound, src)
		}
		return nil, fmt.Errorf("cannot read input file: %w", err)
	}
	return runner.SubmitFromBytes("", filepath.Base(src), data, params)
}

// streamLogs prints new job log entries to stderr until the returned stop
// function is called, which drains whatever is left.
func streamLogs(env *Env, runner *job.Runner, jobID string) (stop func()) {
	done := make(chan struct{})
	finished := make(chan struct{})

	go func() {
		defer close(finished)
		printed := 0
		ticker := time.NewTicker(logPollInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
			case <-done:
				printed = printNewEntries(env, runner.Logs(jobID), printed)
				return
			}
			printed = printNewEntries(env, runner.Logs(jobID), printed)
		}
	}()

	return func() {
		close(done)
		<-finished
	}
}

func printNewEntries(env *Env, entries []joblog.Entry, printed int) int {
	for _, e := range entries[min(printed, len(entries)):] {
		fmt.Fprintf(env.Stderr, "[%s] %s: %s\n", e.Level, e.Stage, e.Message)
	}
	return len(entries)
}

// describeFailure prints the user-facing error with its suggestions.
func describeFailure(env *Env, err error) error {
	var ue *job.UserError
	if !errors.As(err, &ue) {
		return err
	}
	for _, s := range ue.Suggestions {
		fmt.Fprintf(env.Stderr, "  hint: %s\n", s)
	}
	return ue
}

// isURL reports whether src looks like a fetchable URL.
func isURL(src string) bool {
	return strings.HasPrefix(src, "http://") || strings.HasPrefix(src, "https://")
}

// sourceTitle derives a display title from a path or URL.
func sourceTitle(src string) string {
	base := sourceBase(src)
	if ext := filepath.Ext(base); ext != "" {
		base = strings.TrimSuffix(base, ext)
	}
	if base == "" {
		return "untitled"
	}
	return base
}

// sourceBase extracts the last path element of a file path or URL, stripped
// of query parameters.
func sourceBase(src string) string {
	if i := strings.IndexAny(src, "?#"); i != -1 {
		src = src[:i]
	}
	base := filepath.Base(strings.TrimSuffix(src, "/"))
	if base == "." || base == "/" || base == "" {
		return "transcript"
	}
	return base
}
