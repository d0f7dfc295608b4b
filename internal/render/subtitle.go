package render

import (
	"fmt"
	"strings"

	"github.com/castscribe/castscribe/internal/transcript"
)

// SRT renders SubRip subtitles: a 1-based cue index, a comma-separated
// millisecond timestamp line, the text, and a blank line per cue.
func SRT(m transcript.Merged) string {
	var b strings.Builder
	for i, seg := range m.Segments {
		fmt.Fprintf(&b, "%d\n%s --> %s\n%s\n\n",
			i+1,
			formatTimestamp(seg.Start, ","),
			formatTimestamp(seg.End, ","),
			strings.TrimSpace(seg.Text))
	}
	return b.String()
}

// VTT renders WebVTT subtitles: the WEBVTT header, then dot-separated
// millisecond cues without indices.
func VTT(m transcript.Merged) string {
	var b strings.Builder
	b.WriteString("WEBVTT\n\n")
	for _, seg := range m.Segments {
		fmt.Fprintf(&b, "%s --> %s\n%s\n\n",
			formatTimestamp(seg.Start, "."),
			formatTimestamp(seg.End, "."),
			strings.TrimSpace(seg.Text))
	}
	return b.String()
}
