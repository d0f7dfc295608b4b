package job

import (
	"context"
	"errors"
	"fmt"

	"github.com/castscribe/castscribe/internal/apierr"
	"github.com/castscribe/castscribe/internal/audio"
	"github.com/castscribe/castscribe/internal/fetch"
	"github.com/castscribe/castscribe/internal/transcribe"
)

// Class is a stable user-facing error code.
type Class string

const (
	ClassInvalidInput            Class = "InvalidInput"
	ClassFetchFailed             Class = "FetchFailed"
	ClassPrepareFailed           Class = "PrepareFailed"
	ClassProviderRateLimited     Class = "ProviderRateLimited"
	ClassProviderQuotaExhausted  Class = "ProviderQuotaExhausted"
	ClassProviderAuthFailed      Class = "ProviderAuthFailed"
	ClassProviderRequestInvalid  Class = "ProviderRequestInvalid"
	ClassProviderTransientFailed Class = "ProviderTransientFailed"
	ClassCancelled               Class = "Cancelled"
	ClassTimeout                 Class = "Timeout"
	ClassInternal                Class = "Internal"
)

// UserError is what a job surfaces when it fails: a stable class, a readable
// message, and concrete suggestions where the user can actually act.
type UserError struct {
	Class       Class
	Message     string
	Suggestions []string
	Err         error
}

func (e *UserError) Error() string {
	return fmt.Sprintf("%s: %s", e.Class, e.Message)
}

func (e *UserError) Unwrap() error {
	return e.Err
}

// invalidInput builds an InvalidInput error before any pipeline work begins.
func invalidInput(msg string, suggestions ...string) *UserError {
	return &UserError{Class: ClassInvalidInput, Message: msg, Suggestions: suggestions}
}

// classify maps a pipeline error to its user-facing class. An already
// classified error passes through unchanged.
func classify(err error) *UserError {
	var ue *UserError
	if errors.As(err, &ue) {
		return ue
	}

	switch {
	case errors.Is(err, context.Canceled):
		return &UserError{Class: ClassCancelled, Message: "job was cancelled", Err: err}
	case errors.Is(err, context.DeadlineExceeded):
		return &UserError{
			Class:   ClassTimeout,
			Message: "job exceeded its deadline",
			Suggestions: []string{
				"raise the job timeout (maximum 60 minutes)",
				"submit shorter audio",
			},
			Err: err,
		}
	}

	if ue := classifyFetch(err); ue != nil {
		return ue
	}
	if ue := classifyAudio(err); ue != nil {
		return ue
	}
	if ue := classifyProvider(err); ue != nil {
		return ue
	}

	return &UserError{Class: ClassInternal, Message: "internal error", Err: err}
}

func classifyFetch(err error) *UserError {
	var httpErr *fetch.HTTPError
	switch {
	case errors.As(err, &httpErr):
		return &UserError{
			Class:   ClassFetchFailed,
			Message: fmt.Sprintf("download failed with HTTP %d", httpErr.Status),
			Suggestions: []string{
				"check the URL is publicly reachable",
				"try downloading the file and uploading it directly",
			},
			Err: err,
		}
	case errors.Is(err, fetch.ErrTooManyRedirects):
		return &UserError{
			Class:       ClassFetchFailed,
			Message:     "download followed too many redirects",
			Suggestions: []string{"use the final audio URL instead of a share link"},
			Err:         err,
		}
	case errors.Is(err, fetch.ErrInvalidPayload):
		return &UserError{
			Class:       ClassFetchFailed,
			Message:     "the URL did not return a plausible audio file",
			Suggestions: []string{"verify the URL points at the audio itself, not a web page"},
			Err:         err,
		}
	case errors.Is(err, fetch.ErrNetwork):
		return &UserError{
			Class:       ClassFetchFailed,
			Message:     "network error while downloading the audio",
			Suggestions: []string{"check connectivity and retry"},
			Err:         err,
		}
	}
	return nil
}

func classifyAudio(err error) *UserError {
	switch {
	case errors.Is(err, audio.ErrEmptyFile),
		errors.Is(err, audio.ErrTruncatedFile),
		errors.Is(err, audio.ErrUnsupportedFormat),
		errors.Is(err, audio.ErrValidationFailed):
		return &UserError{
			Class:       ClassInvalidInput,
			Message:     "the audio file failed validation",
			Suggestions: []string{"re-export the audio and try again"},
			Err:         err,
		}
	case errors.Is(err, audio.ErrTranscoderUnavailable):
		return &UserError{
			Class:   ClassPrepareFailed,
			Message: "audio transcoder is unavailable",
			Suggestions: append([]string{
				"install ffmpeg and make sure it is on PATH",
			}, audio.ManualCompressionSuggestions...),
			Err: err,
		}
	case errors.Is(err, audio.ErrSegmentationFailed):
		return &UserError{
			Class:       ClassPrepareFailed,
			Message:     "failed to slice the audio into segments",
			Suggestions: audio.ManualCompressionSuggestions,
			Err:         err,
		}
	}
	return nil
}

func classifyProvider(err error) *UserError {
	switch {
	case errors.Is(err, apierr.ErrQuotaExceeded):
		return &UserError{
			Class:   ClassProviderQuotaExhausted,
			Message: "the transcription provider reported an exhausted quota",
			Suggestions: []string{
				"check your provider account usage and billing status",
			},
			Err: err,
		}
	case errors.Is(err, apierr.ErrAuthFailed), errors.Is(err, apierr.ErrForbidden):
		return &UserError{
			Class:       ClassProviderAuthFailed,
			Message:     "the transcription provider rejected the API key",
			Suggestions: []string{"verify OPENAI_API_KEY is set and valid"},
			Err:         err,
		}
	case errors.Is(err, apierr.ErrBadRequest):
		return &UserError{
			Class:   ClassProviderRequestInvalid,
			Message: "the transcription provider rejected the request",
			Err:     err,
		}
	case errors.Is(err, apierr.ErrRateLimit):
		return &UserError{
			Class:       ClassProviderRateLimited,
			Message:     "the transcription provider rate-limited the job",
			Suggestions: []string{"wait a few minutes and retry"},
			Err:         err,
		}
	case errors.Is(err, apierr.ErrTimeout),
		errors.Is(err, apierr.ErrConnReset),
		errors.Is(err, transcribe.ErrAllSegmentsFailed):
		return &UserError{
			Class:       ClassProviderTransientFailed,
			Message:     "the transcription provider failed after retries",
			Suggestions: []string{"retry the job; provider outages are usually short"},
			Err:         err,
		}
	}
	return nil
}
