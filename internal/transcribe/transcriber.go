package transcribe

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/castscribe/castscribe/internal/apierr"
	"github.com/castscribe/castscribe/internal/audio"
	"github.com/castscribe/castscribe/internal/transcript"
)

// Concurrency and retry configuration.
const (
	// ConcurrentLimit is the segment worker pool size. Higher values tend
	// to trip provider rate limits on long podcasts.
	ConcurrentLimit = 3

	// singleFileAttempts is the total attempt budget for single-file plans.
	singleFileAttempts = 5

	// segmentAttempts is the total attempt budget per segment.
	segmentAttempts = 3
)

// ErrAllSegmentsFailed indicates no slice produced a transcript.
var ErrAllSegmentsFailed = errors.New("all segments failed to transcribe")

// Options configures a transcription run.
type Options struct {
	// ContentType selects the prompt template.
	ContentType ContentType

	// SourceLanguage is a BCP-ish tag or "auto" (provider detects).
	SourceLanguage string

	// Keywords are prepended to the prompt with truncation priority.
	Keywords string
}

// Transcriber turns a prepared plan into a merged transcript.
type Transcriber struct {
	provider   Provider
	concurrent int
	maxDelay   int // seconds; kept as int for option symmetry with config
	log        *slog.Logger
}

// TranscriberOption configures a Transcriber.
type TranscriberOption func(*Transcriber)

// WithConcurrency overrides the worker pool size.
func WithConcurrency(n int) TranscriberOption {
	return func(t *Transcriber) {
		if n >= 1 {
			t.concurrent = n
		}
	}
}

// WithTranscriberLogger sets the structured logger.
func WithTranscriberLogger(l *slog.Logger) TranscriberOption {
	return func(t *Transcriber) { t.log = l }
}

// NewTranscriber creates a Transcriber over the given provider.
func NewTranscriber(provider Provider, opts ...TranscriberOption) *Transcriber {
	t := &Transcriber{
		provider:   provider,
		concurrent: ConcurrentLimit,
		log:        slog.Default(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Transcribe executes the plan: one provider call for single-file plans, a
// bounded worker pool for segmented ones. The merged transcript's timestamps
// follow the fixed-offset discipline regardless of per-segment failures.
func (t *Transcriber) Transcribe(ctx context.Context, plan audio.Plan, opts Options) (transcript.Merged, error) {
	base := Request{
		Prompt:   BuildPrompt(opts.ContentType, opts.SourceLanguage, opts.Keywords),
		Language: RequestLanguage(opts.SourceLanguage),
	}

	if !plan.IsSegmented() {
		raw, err := t.transcribeOne(ctx, plan.Single.Path, base, singleFileAttempts)
		if err != nil {
			return transcript.Merged{}, err
		}
		return transcript.MergeSingle(raw), nil
	}

	results, err := t.transcribeSegments(ctx, plan.Segments, base)
	if err != nil {
		return transcript.Merged{}, err
	}

	succeeded := 0
	for _, r := range results {
		if r.Raw != nil {
			succeeded++
		}
	}
	if succeeded == 0 {
		return transcript.Merged{}, ErrAllSegmentsFailed
	}

	return transcript.Merge(results, len(plan.Segments), plan.SegmentDurationSec), nil
}

// transcribeOne runs a single provider call with classified retry. Each
// attempt builds a fresh request; the provider reopens the file, so no
// reader is ever reused across attempts.
func (t *Transcriber) transcribeOne(ctx context.Context, path string, base Request, attempts int) (transcript.Raw, error) {
	cfg := apierr.RetryConfig{
		MaxRetries: attempts - 1,
		MaxDelay:   apierr.DefaultMaxDelay,
		BaseFor:    apierr.BaseDelayFor,
	}
	req := base
	req.FilePath = path

	return apierr.RetryWithBackoff(ctx, cfg, func() (transcript.Raw, error) {
		return t.provider.Transcribe(ctx, req)
	}, isRetryableError)
}

// transcribeSegments fans segment indices out to a bounded worker pool.
// Dispatch order is index order; completion order is whatever the provider
// gives; merge order is restored by index. A segment that exhausts its
// retries becomes a failure marker rather than failing the job, except for
// quota/auth errors, which would doom every remaining segment anyway.
func (t *Transcriber) transcribeSegments(ctx context.Context, segments []audio.Artifact, base Request) ([]transcript.SliceResult, error) {
	results := make([]transcript.SliceResult, len(segments))
	var mu sync.Mutex

	indices := make(chan int)
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer close(indices)
		for i := range segments {
			select {
			case indices <- i:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		return nil
	})

	for w := 0; w < t.concurrent; w++ {
		g.Go(func() error {
			for i := range indices {
				raw, err := t.transcribeOne(ctx, segments[i].Path, base, segmentAttempts)

				mu.Lock()
				if err != nil {
					results[i] = transcript.SliceResult{Index: i}
				} else {
					r := raw
					results[i] = transcript.SliceResult{Index: i, Raw: &r}
				}
				mu.Unlock()

				if err != nil {
					if isFatalToJob(err) {
						return fmt.Errorf("segment %d (%s): %w", i, filepath.Base(segments[i].Path), err)
					}
					t.log.Warn("segment failed, skipping its content",
						"segment", i, "error", err)
					continue
				}
				t.log.Info("segment transcribed", "segment", i)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// isFatalToJob reports whether an error makes further provider calls
// pointless for this job.
func isFatalToJob(err error) bool {
	return errors.Is(err, apierr.ErrQuotaExceeded) ||
		errors.Is(err, apierr.ErrAuthFailed) ||
		errors.Is(err, apierr.ErrForbidden) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}
