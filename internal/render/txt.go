package render

import (
	"strings"

	"github.com/castscribe/castscribe/internal/transcript"
)

// TXT renders the plain-text format: one `[MM:SS - MM:SS] text` block per
// segment, blank-line separated. Segmented jobs get a slice divider before
// each slice's first block. A transcript without segments falls back to the
// raw text.
func TXT(m transcript.Merged) string {
	if len(m.Segments) == 0 {
		return m.Text
	}

	var blocks []string
	lastSlice := -1
	for _, seg := range m.Segments {
		var b strings.Builder
		if m.TotalSegments > 1 && seg.Slice != lastSlice {
			b.WriteString(transcript.SliceDivider(seg.Slice + 1))
			b.WriteString("\n")
			lastSlice = seg.Slice
		}
		b.WriteString("[")
		b.WriteString(formatClock(seg.Start))
		b.WriteString(" - ")
		b.WriteString(formatClock(seg.End))
		b.WriteString("] ")
		if seg.Speaker != "" {
			b.WriteString(seg.Speaker)
			b.WriteString(": ")
		}
		b.WriteString(strings.TrimSpace(seg.Text))
		blocks = append(blocks, b.String())
	}
	return strings.Join(blocks, "\n\n") + "\n"
}
