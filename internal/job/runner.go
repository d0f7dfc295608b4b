// Package job orchestrates the transcription pipeline: admission, staging
// through fetch/prepare/transcribe/post-process/render, per-job logging,
// cancellation, and temp-file custody.
package job

import (
	"context"
	"fmt"
	"hash/fnv"
	"log/slog"
	"math/rand/v2"

	"github.com/google/uuid"

	"github.com/castscribe/castscribe/internal/audio"
	"github.com/castscribe/castscribe/internal/joblog"
	"github.com/castscribe/castscribe/internal/postprocess"
	"github.com/castscribe/castscribe/internal/render"
	"github.com/castscribe/castscribe/internal/transcribe"
	"github.com/castscribe/castscribe/internal/transcript"
)

// Narrow views of the pipeline stages, for injection in tests.
type (
	fetcher interface {
		Fetch(ctx context.Context, url string) ([]byte, error)
	}
	preparer interface {
		Prepare(ctx context.Context, cust *audio.Custodian, original audio.Artifact) (audio.Plan, error)
	}
	transcriber interface {
		Transcribe(ctx context.Context, plan audio.Plan, opts transcribe.Options) (transcript.Merged, error)
	}
)

// Runner executes jobs. Safe for concurrent submissions; jobs share nothing
// but the log store and the provider client.
type Runner struct {
	fetch      fetcher
	prepare    preparer
	transcribe transcriber
	correct    postprocess.Corrector
	logs       *joblog.Store

	tempDir string
	model   string
	log     *slog.Logger
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithCorrector enables the optional LLM correction pass.
func WithCorrector(c postprocess.Corrector) RunnerOption {
	return func(r *Runner) { r.correct = c }
}

// WithTempDir sets the base directory for per-job temp directories.
func WithTempDir(dir string) RunnerOption {
	return func(r *Runner) { r.tempDir = dir }
}

// WithModelName records the transcription model name for result metadata.
func WithModelName(model string) RunnerOption {
	return func(r *Runner) {
		if model != "" {
			r.model = model
		}
	}
}

// WithRunnerLogger sets the structured logger.
func WithRunnerLogger(l *slog.Logger) RunnerOption {
	return func(r *Runner) { r.log = l }
}

// NewRunner creates a Runner over the pipeline stages.
func NewRunner(f fetcher, p preparer, t transcriber, logs *joblog.Store, opts ...RunnerOption) *Runner {
	r := &Runner{
		fetch:      f,
		prepare:    p,
		transcribe: t,
		logs:       logs,
		model:      transcribe.DefaultModel,
		log:        slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// source is what a job starts from: uploaded bytes or a URL to fetch.
type source struct {
	name string
	data []byte
	url  string
}

// SubmitFromBytes admits an uploaded payload. The size cap is enforced
// before any pipeline work; jobID may be empty to get a generated one.
func (r *Runner) SubmitFromBytes(jobID, title string, data []byte, params Params) (*Handle, error) {
	if len(data) == 0 {
		return nil, invalidInput("no audio data provided")
	}
	if len(data) > MaxUploadSize {
		return nil, invalidInput(
			fmt.Sprintf("audio is %d bytes; the upload cap is %d bytes", len(data), MaxUploadSize),
			audio.ManualCompressionSuggestions...)
	}
	return r.submit(jobID, title, source{name: title, data: data}, params)
}

// SubmitFromURL admits a job whose audio is fetched from url.
func (r *Runner) SubmitFromURL(jobID, title, url string, params Params) (*Handle, error) {
	if url == "" {
		return nil, invalidInput("no audio URL provided")
	}
	return r.submit(jobID, title, source{name: title, url: url}, params)
}

func (r *Runner) submit(jobID, title string, src source, params Params) (*Handle, error) {
	params, err := params.normalize()
	if err != nil {
		return nil, err
	}
	if jobID == "" {
		jobID = uuid.NewString()
	}

	ctx, cancel := context.WithTimeout(context.Background(), params.Timeout)
	h := newHandle(jobID, title, cancel)

	r.logs.Append(jobID, joblog.LevelInfo, "queued", "job admitted: "+title)

	go r.run(ctx, cancel, h, src, params)
	return h, nil
}

// Logs returns a snapshot of the job's log buffer.
func (r *Runner) Logs(jobID string) []joblog.Entry {
	return r.logs.Snapshot(jobID)
}

// run drives one job through the pipeline. The custodian cleanup and the
// log retention timer are armed before any stage runs, so temp files are
// swept and logs expire on every exit path, panics included.
func (r *Runner) run(ctx context.Context, cancel context.CancelFunc, h *Handle, src source, params Params) {
	defer cancel()
	defer r.logs.Finish(h.ID)

	defer func() {
		if rec := recover(); rec != nil {
			r.log.Error("job panicked", "job", h.ID, "panic", rec)
			r.fail(h, &UserError{
				Class:   ClassInternal,
				Message: "internal error",
				Err:     fmt.Errorf("panic: %v", rec),
			})
		}
	}()

	result, err := r.execute(ctx, h, src, params)
	if err != nil {
		r.fail(h, classify(err))
		return
	}

	r.logs.Append(h.ID, joblog.LevelSuccess, "done", "job completed")
	h.settle(StateDone, result, nil)
	r.log.Info("job completed", "job", h.ID, "formats", len(result.Formats))
}

func (r *Runner) fail(h *Handle, ue *UserError) {
	state := StateFailed
	if ue.Class == ClassCancelled {
		state = StateCancelled
	}
	r.logs.Append(h.ID, joblog.LevelError, "failed", ue.Message)
	h.settle(state, nil, ue)
	r.log.Warn("job failed", "job", h.ID, "class", ue.Class, "error", ue.Err)
}

func (r *Runner) execute(ctx context.Context, h *Handle, src source, params Params) (*Result, error) {
	h.advance(StatePreparing)

	cust, err := audio.NewCustodian(r.tempDir, h.ID, r.log)
	if err != nil {
		return nil, err
	}
	defer cust.Cleanup()

	original, err := r.stageOriginal(ctx, h, cust, src)
	if err != nil {
		return nil, err
	}

	r.logs.Append(h.ID, joblog.LevelInfo, "prepare", "planning transcription")
	plan, err := r.prepare.Prepare(ctx, cust, original)
	if err != nil {
		return nil, err
	}

	h.advance(StateTranscribing)
	r.logs.Append(h.ID, joblog.LevelInfo, "transcribe",
		fmt.Sprintf("transcribing %d artifact(s)", len(plan.Artifacts())))
	merged, err := r.transcribe.Transcribe(ctx, plan, transcribe.Options{
		ContentType:    params.ContentType,
		SourceLanguage: params.SourceLanguage,
		Keywords:       params.Keywords,
	})
	if err != nil {
		return nil, err
	}
	r.logs.Append(h.ID, joblog.LevelSuccess, "transcribe",
		fmt.Sprintf("transcript merged: %d segments, language %s", len(merged.Segments), merged.Language))

	h.advance(StatePostProcessing)
	merged, processed := r.postProcess(ctx, h, merged, params)

	h.advance(StateRendering)
	formats, err := r.renderAll(h, merged, params.OutputFormats, processed)
	if err != nil {
		return nil, err
	}

	return &Result{
		Formats:       formats,
		Language:      merged.Language,
		DurationSec:   merged.DurationSec,
		Segments:      merged.Segments,
		TotalSegments: merged.TotalSegments,
		Model:         r.model,
		Processed:     processed,
	}, nil
}

// stageOriginal gets the audio bytes on disk under the custodian and
// validates them.
func (r *Runner) stageOriginal(ctx context.Context, h *Handle, cust *audio.Custodian, src source) (audio.Artifact, error) {
	data := src.data
	if src.url != "" {
		r.logs.Append(h.ID, joblog.LevelInfo, "fetch", "downloading "+src.url)
		var err error
		data, err = r.fetch.Fetch(ctx, src.url)
		if err != nil {
			return audio.Artifact{}, err
		}
		r.logs.Append(h.ID, joblog.LevelSuccess, "fetch",
			fmt.Sprintf("downloaded %d bytes", len(data)))
	}

	original, err := audio.WriteOriginal(cust, src.name, data)
	if err != nil {
		return audio.Artifact{}, err
	}

	warning, err := audio.Validate(original.Path)
	if err != nil {
		return audio.Artifact{}, err
	}
	if warning != nil {
		r.logs.Append(h.ID, joblog.LevelWarn, "validate", warning.Message)
	}
	return original, nil
}

// postProcess runs the optional correction and speaker passes. Both are
// best-effort: a correction failure keeps the uncorrected transcript.
func (r *Runner) postProcess(ctx context.Context, h *Handle, merged transcript.Merged, params Params) (transcript.Merged, bool) {
	processed := false

	if r.correct != nil {
		r.logs.Append(h.ID, joblog.LevelInfo, "postprocess", "running correction pass")
		corrected, corrections, err := r.correct.Correct(ctx, merged)
		if err != nil {
			r.logs.Append(h.ID, joblog.LevelWarn, "postprocess",
				"correction failed, using uncorrected transcript: "+err.Error())
			r.log.Warn("correction pass failed", "job", h.ID, "error", err)
		} else {
			merged = corrected
			processed = true
			r.logs.Append(h.ID, joblog.LevelSuccess, "postprocess",
				fmt.Sprintf("correction applied: %d corrections", len(corrections)))
		}
	}

	if params.EnableSpeakerDiarization {
		postprocess.LabelSpeakers(merged.Segments, seededRNG(h.ID))
		r.logs.Append(h.ID, joblog.LevelInfo, "postprocess", "speaker labels attached")
	}

	return merged, processed
}

// renderAll runs the requested renderers. One format failing does not stop
// the others, but a job with zero rendered formats is a failure.
func (r *Runner) renderAll(h *Handle, merged transcript.Merged, formats []render.Format, processed bool) (map[render.Format]string, error) {
	meta := render.Metadata{Model: r.model, Processed: processed}

	out := make(map[render.Format]string, len(formats))
	var lastErr error
	for _, f := range formats {
		content, err := render.Render(merged, f, meta)
		if err != nil {
			lastErr = err
			r.logs.Append(h.ID, joblog.LevelWarn, "render",
				fmt.Sprintf("rendering %s failed: %v", f, err))
			continue
		}
		out[f] = content
		r.logs.Append(h.ID, joblog.LevelSuccess, "render",
			fmt.Sprintf("rendered %s (%d bytes)", f, len(content)))
	}

	if len(out) == 0 {
		return nil, fmt.Errorf("no output format rendered: %w", lastErr)
	}
	return out, nil
}

// seededRNG derives a deterministic RNG from the job ID so speaker labels
// are reproducible per job.
func seededRNG(jobID string) *rand.Rand {
	hash := fnv.New64a()
	_, _ = hash.Write([]byte(jobID))
	seed := hash.Sum64()
	return rand.New(rand.NewPCG(seed, seed))
}
