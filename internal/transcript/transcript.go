// Package transcript defines the transcript data model shared by the
// transcriber, post-processor, and renderers, plus the fixed-offset merger
// that recombines per-segment provider results.
package transcript

import (
	"fmt"
	"sort"
	"strings"
)

// Word is a single word with provider timestamps, in seconds.
type Word struct {
	Word  string  `json:"word"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// Segment is one timed span of transcribed speech.
type Segment struct {
	ID      string  `json:"id,omitempty"`
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
	Text    string  `json:"text"`
	Words   []Word  `json:"words,omitempty"`
	Speaker string  `json:"speaker,omitempty"`

	// Slice is the index of the audio slice this segment came from.
	// Zero for single-file transcripts.
	Slice int `json:"-"`
}

/// Raw is one provider response. DurationSec is advisory only: the provider's
// reported duration is not reliable enough for timeline arithmetic.
type Raw struct {
	Text        string
	DurationSec float64
	Language    string
	Segments    []Segment
}

// Merged is the recombined transcript for a whole job.
type Merged struct {
	Text          string
	DurationSec   float64
	Language      string
	Segments      []Segment
	TotalSegments int
}

// SliceResult pairs a slice index with its transcription outcome.
/// A nil Raw is a failure marker: the slice exhausted its retries and its
// content is skipped, but the timeline still advances past it.
type SliceResult struct {
	Index int
	Raw   *Raw
}

// sliceDividerFormat is the divider inserted between slices in the merged
// text (and the TXT rendering) when a job was segmented.
const sliceDividerFormat = "=== 片段 %d ==="

// SliceDivider returns the text divider for the 1-based slice number n.
func SliceDivider(n int) string {
	return fmt.Sprintf(sliceDividerFormat, n)
}

// Merge recombines per-slice results into one transcript.
//
// Timestamps are shifted by index*segmentDurationSec, never by accumulated
// provider durations: reported durations drift and a failed slice would
// corrupt every timestamp after it. With fixed offsets the timeline is
// monotone and a failure only removes that slice's lines.
func Merge(results []SliceResult, totalSlices int, segmentDurationSec float64) Merged {
	sorted := make([]SliceResult, len(results))
	copy(sorted, results)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Index < sorted[j].Index })

	m := Merged{
		TotalSegments: totalSlices,
		DurationSec:   float64(totalSlices) * segmentDurationSec,
	}

	var parts []string
	for _, r := range sorted {
		if r.Raw == nil {
			continue
		}
		offset := float64(r.Index) * segmentDurationSec

		for _, seg := range r.Raw.Segments {
			m.Segments = append(m.Segments, shiftSegment(seg, offset, r.Index))
		}

		text := strings.TrimSpace(r.Raw.Text)
		if text != "" {
			if totalSlices > 1 {
				parts = append(parts, SliceDivider(r.Index+1)+"\n"+text)
			} else {
				parts = append(parts, text)
			}
		}

		if m.Language == "" && r.Raw.Language != "" {
			m.Language = r.Raw.Language
		}
	}

	m.Text = strings.Join(parts, "\n\n")
	if m.Language == "" {
		m.Language = DetectLanguage(m.Text)
	}
	return m
}

// MergeSingle wraps a single-file response as a Merged transcript.
// No offset adjustment: duration and language come from the response.
func MergeSingle(raw Raw) Merged {
	m := Merged{
		Text:          strings.TrimSpace(raw.Text),
		DurationSec:   raw.DurationSec,
		Language:      raw.Language,
		Segments:      raw.Segments,
		TotalSegments: 1,
	}
	if m.Language == "" {
		m.Language = DetectLanguage(m.Text)
	}
	return m
}

// shiftSegment applies a fixed offset to every timestamp in a segment.
// Negative provider timestamps are clamped to zero before shifting.
func shiftSegment(seg Segment, offset float64, slice int) Segment {
	out := seg
	out.Slice = slice
	out.Start = max(seg.Start, 0) + offset
	out.End = max(seg.End, 0) + offset
	if len(seg.Words) > 0 {
		out.Words = make([]Word, len(seg.Words))
		for i, w := range seg.Words {
			out.Words[i] = Word{
				Word:  w.Word,
				Start: max(w.Start, 0) + offset,
				End:   max(w.End, 0) + offset,
			}
		}
	}
	return out
}
