// Package postprocess holds the optional best-effort passes that run after
// merging: an LLM spelling/grammar correction and a heuristic speaker
// labeller. Both leave timestamps untouched.
package postprocess

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/castscribe/castscribe/internal/apierr"
	"github.com/castscribe/castscribe/internal/transcript"
)

// Correction configuration.
const (
	// DefaultCorrectionModel is the chat model used for the correction pass.
	DefaultCorrectionModel = "gpt-4o-mini"

	// maxPromptSegments caps how many segments are sent for per-segment
	// correction. Long episodes still get full-text correction.
	maxPromptSegments = 50

	// correctionRetries is the attempt budget; the pass is best-effort, so
	// it gets fewer attempts than transcription.
	correctionRetries = 2

	correctionBaseDelay = 1 * time.Second
)

// ErrEmptyCorrection indicates the model returned no usable content.
var ErrEmptyCorrection = errors.New("empty correction response")

// Correction is one audit-trail entry from the correction pass.
type Correction struct {
	Original  string `json:"original"`
	Corrected string `json:"corrected"`
	Reason    string `json:"reason,omitempty"`
}

// chatCompleter is an internal interface for OpenAI chat completion.
// *openai.Client implements this implicitly.
// This allows injecting mocks in tests.
type chatCompleter interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Compile-time interface compliance check.
var _ chatCompleter = (*openai.Client)(nil)

// Corrector runs the optional spelling/grammar pass. Implementations must
// preserve segment timing; only text changes.
type Corrector interface {
	Correct(ctx context.Context, m transcript.Merged) (transcript.Merged, []Correction, error)
}

// OpenAICorrector corrects transcripts through OpenAI chat completions,
// asking for a structured JSON verdict.
type OpenAICorrector struct {
	client chatCompleter
	model  string
}

var _ Corrector = (*OpenAICorrector)(nil)

// CorrectorOption configures an OpenAICorrector.
type CorrectorOption func(*OpenAICorrector)

// WithCorrectionModel overrides the chat model.
func WithCorrectionModel(model string) CorrectorOption {
	return func(c *OpenAICorrector) {
		if model != "" {
			c.model = model
		}
	}
}

// WithChatClient sets a custom chat client (for testing).
func WithChatClient(cc chatCompleter) CorrectorOption {
	return func(c *OpenAICorrector) { c.client = cc }
}

// NewOpenAICorrector creates a corrector backed by the given OpenAI client.
func NewOpenAICorrector(client *openai.Client, opts ...CorrectorOption) *OpenAICorrector {
	c := &OpenAICorrector{client: client, model: DefaultCorrectionModel}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// correctionResult is the JSON verdict the model is asked to return.
type correctionResult struct {
	CorrectedText     string `json:"correctedText"`
	CorrectedSegments []struct {
		Start float64 `json:"start"`
		End   float64 `json:"end"`
		Text  string  `json:"text"`
	} `json:"correctedSegments"`
	Corrections []Correction `json:"corrections"`
	HasErrors   bool         `json:"hasErrors"`
}

// Correct sends the merged text plus the first segments for correction and
// merges corrected segment texts back by positional index. Timestamps,
// words, and speakers are carried over unchanged. Callers treat any error
// as non-fatal and keep the uncorrected transcript.
func (c *OpenAICorrector) Correct(ctx context.Context, m transcript.Merged) (transcript.Merged, []Correction, error) {
	lang := m.Language
	if lang == "" {
		lang = transcript.DetectLanguage(m.Text)
	}

	req := openai.ChatCompletionRequest{
		Model:       c.model,
		Temperature: 0,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: correctionSystemPrompt(lang)},
			{Role: openai.ChatMessageRoleUser, Content: correctionUserPrompt(m)},
		},
	}

	cfg := apierr.RetryConfig{
		MaxRetries: correctionRetries,
		BaseDelay:  correctionBaseDelay,
		MaxDelay:   apierr.DefaultMaxDelay,
	}

	result, err := apierr.RetryWithBackoff(ctx, cfg, func() (correctionResult, error) {
		return c.callOnce(ctx, req)
	}, isRetryableCorrectionError)
	if err != nil {
		return transcript.Merged{}, nil, err
	}

	return applyCorrections(m, result), result.Corrections, nil
}

func (c *OpenAICorrector) callOnce(ctx context.Context, req openai.ChatCompletionRequest) (correctionResult, error) {
	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return correctionResult{}, classifyCorrectionError(err)
	}
	if len(resp.Choices) == 0 {
		return correctionResult{}, ErrEmptyCorrection
	}

	content := stripJSONFences(resp.Choices[0].Message.Content)
	var result correctionResult
	if err := json.Unmarshal([]byte(content), &result); err != nil {
		return correctionResult{}, fmt.Errorf("parse correction response: %w", err)
	}
	if result.CorrectedText == "" {
		return correctionResult{}, ErrEmptyCorrection
	}
	return result, nil
}

// applyCorrections merges corrected segment texts back by positional index.
// The model's start/end values are ignored; the originals are authoritative.
func applyCorrections(m transcript.Merged, result correctionResult) transcript.Merged {
	out := m
	out.Text = result.CorrectedText

	out.Segments = make([]transcript.Segment, len(m.Segments))
	copy(out.Segments, m.Segments)
	for i, cs := range result.CorrectedSegments {
		if i >= len(out.Segments) {
			break
		}
		if strings.TrimSpace(cs.Text) == "" {
			continue
		}
		out.Segments[i].Text = cs.Text
	}
	return out
}

func correctionSystemPrompt(lang string) string {
	if transcript.BaseCode(lang) == "zh" {
		return "你是一名转录文本校对员。纠正拼写和语法错误，保留原意和口语风格。" +
			"以 JSON 返回：correctedText（全文），correctedSegments（数组，每项 {start, end, text}，" +
			"start 和 end 必须原样保留），corrections（数组，每项 {original, corrected, reason}），" +
			"hasErrors（布尔值）。"
	}
	return "You are a transcript proofreader. Fix spelling and grammar mistakes while " +
		"preserving meaning and conversational tone. Respond with JSON: correctedText " +
		"(the full corrected text), correctedSegments (array of {start, end, text} where " +
		"start and end are copied verbatim from the input), corrections (array of " +
		"{original, corrected, reason}), and hasErrors (boolean)."
}

// correctionUserPrompt renders the full text plus the first segments with
// timestamp labels so the model can return per-segment rewrites.
func correctionUserPrompt(m transcript.Merged) string {
	var b strings.Builder
	b.WriteString("Full text:\n")
	b.WriteString(m.Text)

	n := len(m.Segments)
	if n > maxPromptSegments {
		n = maxPromptSegments
	}
	if n > 0 {
		b.WriteString("\n\nSegments:\n")
		for _, seg := range m.Segments[:n] {
			fmt.Fprintf(&b, "[%.2f - %.2f] %s\n", seg.Start, seg.End, seg.Text)
		}
	}
	return b.String()
}

// stripJSONFences removes a markdown code fence some models wrap JSON in.
func stripJSONFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}
	return strings.TrimSpace(s)
}

// classifyCorrectionError maps OpenAI API and transport errors to apierr
// sentinels.
func classifyCorrectionError(err error) error {
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

// isRetryableCorrectionError determines if an error is transient and should
// be retried.
func isRetryableCorrectionError(err error) bool {
	switch {
	case errors.Is(err, apierr.ErrRateLimit),
		errors.Is(err, apierr.ErrTimeout),
		errors.Is(err, apierr.ErrConnReset):
		return true
	case errors.Is(err, ErrEmptyCorrection):
		return true
	}
	return false
}
