package job

import (
	"fmt"
	"strings"
	"time"

	"github.com/castscribe/castscribe/internal/render"
	"github.com/castscribe/castscribe/internal/transcribe"
	"github.com/castscribe/castscribe/internal/transcript"
)

// Input limits.
const (
	// MaxUploadSize caps a submitted audio payload. Larger-than-provider
	// uploads under this cap are bridged by transcoding and slicing.
	MaxUploadSize = 32 * 1024 * 1024

	// MaxKeywordsLen caps the keywords parameter, matching the prompt budget.
	MaxKeywordsLen = 400

	// DefaultTimeout bounds a job unless the caller asks for more.
	DefaultTimeout = 30 * time.Minute

	// MaxTimeout is the hard ceiling on a job deadline.
	MaxTimeout = 60 * time.Minute
)

// Params are the per-job options supplied at submission.
type Params struct {
	// OutputFormats selects which renderers run. Empty means txt.
	OutputFormats []render.Format

	// ContentType selects the transcription prompt template.
	ContentType transcribe.ContentType

	// SourceLanguage is a language tag or "auto".
	SourceLanguage string

	// Keywords are prepended to the transcription prompt.
	Keywords string

	// EnableSpeakerDiarization turns on the heuristic speaker labelling.
	EnableSpeakerDiarization bool

	// Timeout overrides the job deadline. Zero means DefaultTimeout;
	// values above MaxTimeout are clamped.
	Timeout time.Duration
}

// normalize fills defaults and validates, returning the effective params.
func (p Params) normalize() (Params, error) {
	out := p

	if len(out.OutputFormats) == 0 {
		out.OutputFormats = []render.Format{render.FormatTXT}
	}
	for _, f := range out.OutputFormats {
		if _, err := render.ParseFormat(string(f)); err != nil {
			return Params{}, invalidInput(err.Error())
		}
	}

	if out.ContentType == "" {
		out.ContentType = transcribe.ContentPodcast
	}
	if !transcribe.ValidContentType(out.ContentType) {
		return Params{}, invalidInput(
			fmt.Sprintf("unknown content type %q (supported: podcast, interview, lecture)", out.ContentType))
	}

	if out.SourceLanguage == "" {
		out.SourceLanguage = transcript.LanguageAuto
	}
	if err := transcript.ValidateLanguage(out.SourceLanguage); err != nil {
		return Params{}, invalidInput(err.Error())
	}

	out.Keywords = strings.TrimSpace(out.Keywords)
	if n := len([]rune(out.Keywords)); n > MaxKeywordsLen {
		return Params{}, invalidInput(
			fmt.Sprintf("keywords too long: %d characters (maximum %d)", n, MaxKeywordsLen))
	}

	if out.Timeout <= 0 {
		out.Timeout = DefaultTimeout
	}
	if out.Timeout > MaxTimeout {
		out.Timeout = MaxTimeout
	}

	return out, nil
}
