package transcribe

import (
	"strings"

	"github.com/castscribe/castscribe/internal/transcript"
)

// ContentType selects the prompt template for the audio's genre.
type ContentType string

const (
	ContentPodcast   ContentType = "podcast"
	ContentInterview ContentType = "interview"
	ContentLecture   ContentType = "lecture"
)

// ValidContentType reports whether ct is a known content type.
func ValidContentType(ct ContentType) bool {
	switch ct {
	case ContentPodcast, ContentInterview, ContentLecture:
		return true
	}
	return false
}

// MaxPromptLen is the provider's effective prompt budget. Keywords win
// truncation priority over the template.
const MaxPromptLen = 400

// promptTemplates hint the provider at the expected register and structure.
var promptTemplates = map[ContentType]map[string]string{
	ContentPodcast: {
		"zh":      "这是一段播客节目，可能包含多位说话人的对话、口语表达和品牌名称。",
		"default": "This is a podcast episode. It may contain casual conversation between multiple speakers, brand names, and colloquial expressions.",
	},
	ContentInterview: {
		"zh":      "这是一段访谈录音，包含提问与回答，可能涉及专业术语。",
		"default": "This is an interview recording with questions and answers, possibly containing technical terminology.",
	},
	ContentLecture: {
		"zh":      "这是一段讲座录音，语言较为正式，可能包含学术词汇。",
		"default": "This is a lecture recording in a formal register, possibly containing academic vocabulary.",
	},
}

// BuildPrompt assembles the provider prompt from the content type, source
// language, and optional user keywords. Keywords are prepended; the combined
// prompt is hard-capped at MaxPromptLen characters with the template
// truncated first.
func BuildPrompt(contentType ContentType, sourceLanguage, keywords string) string {
	templates, ok := promptTemplates[contentType]
	if !ok {
		templates = promptTemplates[ContentPodcast]
	}
	tmpl := templates["default"]
	if transcript.BaseCode(sourceLanguage) == "zh" {
		tmpl = templates["zh"]
	}

	keywords = strings.TrimSpace(keywords)
	if keywords == "" {
		return truncateRunes(tmpl, MaxPromptLen)
	}

	if len([]rune(keywords)) >= MaxPromptLen {
		return truncateRunes(keywords, MaxPromptLen)
	}
	return truncateRunes(keywords+" "+tmpl, MaxPromptLen)
}

// RequestLanguage returns the language argument for the provider: empty for
// auto-detection, otherwise the base code.
func RequestLanguage(sourceLanguage string) string {
	if sourceLanguage == "" || sourceLanguage == transcript.LanguageAuto {
		return ""
	}
	return transcript.BaseCode(sourceLanguage)
}

// truncateRunes cuts s to at most n runes.
func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
