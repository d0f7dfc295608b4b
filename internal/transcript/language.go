package transcript

import (
	"fmt"
	"strings"
)

// LanguageAuto asks the provider to detect the language itself.
const LanguageAuto = "auto"

// validLanguages contains ISO 639-1 language codes supported by the
// transcription provider. Not exhaustive; covers the common cases.
var validLanguages = map[string]bool{
	"ar": true, "bg": true, "ca": true, "cs": true, "da": true,
	"de": true, "el": true, "en": true, "es": true, "et": true,
	"fa": true, "fi": true, "fr": true, "he": true, "hi": true,
	"hr": true, "hu": true, "id": true, "it": true, "ja": true,
	"ko": true, "lt": true, "lv": true, "ms": true, "nl": true,
	"no": true, "pl": true, "pt": true, "ro": true, "ru": true,
	"sk": true, "sl": true, "sr": true, "sv": true, "th": true,
	"tr": true, "uk": true, "vi": true, "zh": true,
}

// NormalizeLanguage normalizes a language tag to lowercase with hyphen
// separator. Accepts: "pt-BR", "pt_BR", "PT-BR", "pt-br" -> "pt-br".
func NormalizeLanguage(lang string) string {
	return strings.ToLower(strings.ReplaceAll(lang, "_", "-"))
}

// BaseCode extracts the ISO 639-1 base language code from a locale.
// The provider only accepts base codes, not regional variants.
// Examples: "pt-BR" -> "pt", "zh-CN" -> "zh", "en" -> "en".
func BaseCode(lang string) string {
	if lang == "" || lang == LanguageAuto {
		return ""
	}
	normalized := NormalizeLanguage(lang)
	if idx := strings.Index(normalized, "-"); idx != -1 {
		return normalized[:idx]
	}
	return normalized
}

// ValidateLanguage checks a source-language parameter. Empty and "auto"
// are valid (provider detects); otherwise the base code must be known.
func ValidateLanguage(lang string) error {
	if lang == "" || lang == LanguageAuto {
		return nil
	}
	if !validLanguages[BaseCode(lang)] {
		return fmt.Errorf("invalid language code %q (use ISO 639-1 codes like 'en', 'zh', 'pt-BR')", lang)
	}
	return nil
}

// Language-detection thresholds. Tuned for transcripts that are mostly
// either English or Chinese with incidental foreign words.
const (
	latinMajorityRatio = 0.5
	latinAbsoluteMin   = 100
	cjkRatio           = 0.3
	cjkAbsoluteMin     = 50
)

// DetectLanguage classifies text as "en" or "zh" by counting Latin letters
// versus CJK ideographs. Used as a fallback when the provider response
// carries no language field. Defaults to English.
func DetectLanguage(text string) string {
	var latin, cjk, total int
	for _, r := range text {
		switch {
		case (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z'):
			latin++
			total++
		case r >= 0x4E00 && r <= 0x9FFF:
			cjk++
			total++
		case r > ' ':
			total++
		}
	}
	if total == 0 {
		return "en"
	}

	if float64(latin)/float64(total) > latinMajorityRatio {
		return "en"
	}
	if latin > 2*cjk && latin > latinAbsoluteMin {
		return "en"
	}
	if float64(cjk)/float64(total) > cjkRatio || cjk > cjkAbsoluteMin {
		return "zh"
	}
	return "en"
}
