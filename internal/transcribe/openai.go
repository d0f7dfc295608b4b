package transcribe

import (
	"context"
	"errors"
	"fmt"

	openai "github.com/sashabaranov/go-openai"

	"github.com/castscribe/castscribe/internal/apierr"
	"github.com/castscribe/castscribe/internal/transcript"
)

// DefaultModel is the speech-to-text model used unless overridden.
const DefaultModel = openai.Whisper1

// audioTranscriber is an internal interface for OpenAI audio transcription.
// *openai.Client implements this implicitly.
// This allows injecting mocks in tests.
type audioTranscriber interface {
	CreateTranscription(ctx context.Context, req openai.AudioRequest) (openai.AudioResponse, error)
}

// Compile-time interface compliance checks.
var (
	_ Provider         = (*OpenAIProvider)(nil)
	_ audioTranscriber = (*openai.Client)(nil)
)

// OpenAIProvider transcribes audio through OpenAI's transcription API,
// requesting verbose JSON with word-level timestamps.
type OpenAIProvider struct {
	client audioTranscriber
	model  string
}

// OpenAIOption configures an OpenAIProvider.
type OpenAIOption func(*OpenAIProvider)

// WithModel overrides the transcription model.
func WithModel(model string) OpenAIOption {
	return func(p *OpenAIProvider) {
		if model != "" {
			p.model = model
		}
	}
}

// WithClient sets a custom transcription client (for testing).
func WithClient(c audioTranscriber) OpenAIOption {
	return func(p *OpenAIProvider) { p.client = c }
}

// NewOpenAIProvider creates a provider backed by the given OpenAI client.
func NewOpenAIProvider(client *openai.Client, opts ...OpenAIOption) *OpenAIProvider {
	p := &OpenAIProvider{client: client, model: DefaultModel}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Transcribe submits one file and converts the verbose JSON response into
// the internal transcript model. A response without segments degrades to a
// text-only transcript; the reported duration is carried but treated as
// advisory by callers.
func (p *OpenAIProvider) Transcribe(ctx context.Context, req Request) (transcript.Raw, error) {
	apiReq := openai.AudioRequest{
		Model:    p.model,
		FilePath: req.FilePath,
		Format:   openai.AudioResponseFormatVerboseJSON,
		Prompt:   req.Prompt,
		Language: req.Language,
		TimestampGranularities: []openai.TranscriptionTimestampGranularity{
			openai.TranscriptionTimestampGranularityWord,
		},
	}

	resp, err := p.client.CreateTranscription(ctx, apiReq)
	if err != nil {
		return transcript.Raw{}, classifyError(err)
	}
	return fromAudioResponse(resp), nil
}

// fromAudioResponse maps the provider response onto the transcript model,
// attaching global word timestamps to their containing segments.
func fromAudioResponse(resp openai.AudioResponse) transcript.Raw {
	raw := transcript.Raw{
		Text:        resp.Text,
		DurationSec: resp.Duration,
		Language:    resp.Language,
	}

	words := make([]transcript.Word, 0, len(resp.Words))
	for _, w := range resp.Words {
		words = append(words, transcript.Word{Word: w.Word, Start: w.Start, End: w.End})
	}

	for _, seg := range resp.Segments {
		raw.Segments = append(raw.Segments, transcript.Segment{
			Start: seg.Start,
			End:   seg.End,
			Text:  seg.Text,
			Words: wordsWithin(words, seg.Start, seg.End),
		})
	}
	return raw
}

// wordsWithin selects words whose start timestamp falls inside [start, end).
func wordsWithin(words []transcript.Word, start, end float64) []transcript.Word {
	var out []transcript.Word
	for _, w := range words {
		if w.Start >= start && w.Start < end {
			out = append(out, w)
		}
	}
	return out
}

// classifyError maps OpenAI API and transport errors to apierr sentinels.
func classifyError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apierr.ClassifyStatus(apiErr.HTTPStatusCode, apiErr.Message)
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("request timed out: %w", apierr.ErrTimeout)
	}
	if apierr.IsConnReset(err) {
		return fmt.Errorf("%v: %w", err, apierr.ErrConnReset)
	}
	return err
}

// isRetryableError determines if an error is transient and should be retried.
func isRetryableError(err error) bool {
	switch {
	case errors.Is(err, apierr.ErrRateLimit),
		errors.Is(err, apierr.ErrTimeout),
		errors.Is(err, apierr.ErrConnReset):
		return true
	case errors.Is(err, apierr.ErrQuotaExceeded),
		errors.Is(err, apierr.ErrAuthFailed),
		errors.Is(err, apierr.ErrForbidden),
		errors.Is(err, apierr.ErrBadRequest),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return false
	}

	// Unclassified transport errors are worth one more try.
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return false
	}
	return true
}
