// Package render turns a merged transcript into its output formats. All
// renderers are pure functions over the transcript; writing files is the
// caller's business.
package render

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// Format identifies one output rendering.
type Format string

const (
	FormatTXT  Format = "txt"
	FormatSRT  Format = "srt"
	FormatVTT  Format = "vtt"
	FormatJSON Format = "json"
)

// ErrUnknownFormat indicates a format string outside the supported set.
var ErrUnknownFormat = errors.New("unknown output format")

// Formats lists every supported format in canonical order.
func Formats() []Format {
	return []Format{FormatTXT, FormatSRT, FormatVTT, FormatJSON}
}

// ParseFormat validates a user-supplied format string.
func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(s)))
	if slices.Contains(Formats(), f) {
		return f, nil
	}
	return "", fmt.Errorf("%w: %q (supported: txt, srt, vtt, json)", ErrUnknownFormat, s)
}

// ParseFormats validates a list of format strings, deduplicating while
// preserving first-seen order. An empty list defaults to txt.
func ParseFormats(ss []string) ([]Format, error) {
	if len(ss) == 0 {
		return []Format{FormatTXT}, nil
	}
	var out []Format
	for _, s := range ss {
		f, err := ParseFormat(s)
		if err != nil {
			return nil, err
		}
		if !slices.Contains(out, f) {
			out = append(out, f)
		}
	}
	return out, nil
}

// formatClock renders seconds as MM:SS, flooring fractional seconds.
// Hours spill into minutes so a 2-hour mark reads 120:00.
func formatClock(sec float64) string {
	if sec < 0 {
		sec = 0
	}
	total := int(sec)
	return fmt.Sprintf("%02d:%02d", total/60, total%60)
}

// formatTimestamp renders seconds as HH:MM:SS<sep>mmm with milliseconds
// floored, as SRT ("," separator) and VTT (".") require.
func formatTimestamp(sec float64, sep string) string {
	if sec < 0 {
		sec = 0
	}
	ms := int(sec * 1000)
	h := ms / 3600000
	ms -= h * 3600000
	m := ms / 60000
	ms -= m * 60000
	s := ms / 1000
	ms -= s * 1000
	return fmt.Sprintf("%02d:%02d:%02d%s%03d", h, m, s, sep, ms)
}
