// Package transcribe drives the external speech-to-text provider: prompt
// construction, single-file and fan-out transcription, retry with
// classified backoff, and provider error taxonomy.
package transcribe

import (
	"context"

	"github.com/castscribe/castscribe/internal/transcript"
)

// Request is one provider transcription call.
type Request struct {
	// FilePath is the audio artifact to submit. The provider implementation
	// opens a fresh stream per attempt, so retries never reuse a reader.
	FilePath string

	// Prompt is the optional context hint (see BuildPrompt).
	Prompt string

	// Language is the ISO 639-1 base code, or empty for provider detection.
	Language string
}

// Provider converts one audio file into a raw transcript with per-segment
// and per-word timestamps. Implementations must be safe for concurrent use.
type Provider interface {
	Transcribe(ctx context.Context, req Request) (transcript.Raw, error)
}
