package render_test

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/castscribe/castscribe/internal/render"
	"github.com/castscribe/castscribe/internal/transcript"
)

func shortMerged() transcript.Merged {
	return transcript.Merged{
		Text:        "hello world bye",
		Language:    "en",
		DurationSec: 7,
		Segments: []transcript.Segment{
			{Start: 0, End: 2, Text: "hello"},
			{Start: 2, End: 5, Text: "world"},
			{Start: 5, End: 7, Text: "bye"},
		},
		TotalSegments: 1,
	}
}

func TestParseFormats(t *testing.T) {
	t.Parallel()

	t.Run("empty defaults to txt", func(t *testing.T) {
		t.Parallel()

		got, err := render.ParseFormats(nil)
		require.NoError(t, err)
		assert.Equal(t, []render.Format{render.FormatTXT}, got)
	})

	t.Run("deduplicates preserving order", func(t *testing.T) {
		t.Parallel()

		got, err := render.ParseFormats([]string{"srt", "TXT", "srt", " json "})
		require.NoError(t, err)
		assert.Equal(t, []render.Format{render.FormatSRT, render.FormatTXT, render.FormatJSON}, got)
	})

	t.Run("rejects unknown formats", func(t *testing.T) {
		t.Parallel()

		_, err := render.ParseFormats([]string{"txt", "docx"})
		assert.ErrorIs(t, err, render.ErrUnknownFormat)
	})
}

func TestTXT(t *testing.T) {
	t.Parallel()

	t.Run("timestamped blocks separated by blank lines", func(t *testing.T) {
		t.Parallel()

		want := "[00:00 - 00:02] hello\n\n[00:02 - 00:05] world\n\n[00:05 - 00:07] bye\n"
		assert.Equal(t, want, render.TXT(shortMerged()))
	})

	t.Run("speaker labels prefix the text", func(t *testing.T) {
		t.Parallel()

		m := shortMerged()
		m.Segments[0].Speaker = "Speaker 1"
		m.Segments[1].Speaker = "Speaker 2"

		out := render.TXT(m)
		assert.Contains(t, out, "[00:00 - 00:02] Speaker 1: hello")
		assert.Contains(t, out, "[00:02 - 00:05] Speaker 2: world")
	})

	t.Run("slice dividers appear only for segmented jobs", func(t *testing.T) {
		t.Parallel()

		m := transcript.Merged{
			Segments: []transcript.Segment{
				{Start: 0, End: 10, Text: "a", Slice: 0},
				{Start: 10, End: 20, Text: "b", Slice: 0},
				{Start: 300, End: 310, Text: "c", Slice: 1},
			},
			TotalSegments: 2,
		}

		out := render.TXT(m)
		assert.Contains(t, out, transcript.SliceDivider(1))
		assert.Contains(t, out, transcript.SliceDivider(2))
		assert.Equal(t, 1, strings.Count(out, transcript.SliceDivider(1)),
			"divider must appear once per slice")

		m.TotalSegments = 1
		assert.NotContains(t, render.TXT(m), "===")
	})

	t.Run("no segments falls back to raw text", func(t *testing.T) {
		t.Parallel()

		m := transcript.Merged{Text: "just some text"}
		assert.Equal(t, "just some text", render.TXT(m))
	})

	t.Run("minutes past the hour keep counting", func(t *testing.T) {
		t.Parallel()

		m := transcript.Merged{
			Segments:      []transcript.Segment{{Start: 7200, End: 7215.9, Text: "late"}},
			TotalSegments: 1,
		}
		assert.Equal(t, "[120:00 - 120:15] late\n", render.TXT(m))
	})
}

func TestSRT(t *testing.T) {
	t.Parallel()

	t.Run("indexed comma-millisecond cues", func(t *testing.T) {
		t.Parallel()

		m := transcript.Merged{
			Segments: []transcript.Segment{
				{Start: 0, End: 10, Text: "A"},
				{Start: 300, End: 312, Text: "B"},
			},
			TotalSegments: 2,
		}

		want := "1\n00:00:00,000 --> 00:00:10,000\nA\n\n" +
			"2\n00:05:00,000 --> 00:05:12,000\nB\n\n"
		assert.Equal(t, want, render.SRT(m))
	})

	t.Run("milliseconds are floored", func(t *testing.T) {
		t.Parallel()

		m := transcript.Merged{
			Segments: []transcript.Segment{{Start: 1.2345, End: 3661.9996, Text: "x"}},
		}
		out := render.SRT(m)
		assert.Contains(t, out, "00:00:01,234 --> 01:01:01,999")
	})
}

func TestVTT(t *testing.T) {
	t.Parallel()

	m := shortMerged()
	out := render.VTT(m)

	require.True(t, strings.HasPrefix(out, "WEBVTT\n\n"))
	assert.Contains(t, out, "00:00:00.000 --> 00:00:02.000\nhello\n")
	assert.NotContains(t, out, ",", "VTT uses dot millisecond separators")

	// No cue indices: every non-empty line is either a timing line or text.
	for _, line := range strings.Split(out, "\n") {
		if line == "" || line == "WEBVTT" {
			continue
		}
		if !strings.Contains(line, "-->") {
			assert.NotRegexp(t, `^\d+$`, line, "VTT cues carry no index lines")
		}
	}
}

// TestSubtitleRoundTrip parses the rendered cues back out and checks both
// subtitle formats carry the same segment set as the source transcript.
func TestSubtitleRoundTrip(t *testing.T) {
	t.Parallel()

	m := transcript.Merged{
		Segments: []transcript.Segment{
			{Start: 0.5, End: 2.25, Text: "one"},
			{Start: 2.25, End: 5, Text: "two"},
			{Start: 305.1, End: 310.75, Text: "three"},
		},
		TotalSegments: 2,
	}

	parse := func(out string) [][2]string {
		var cues [][2]string
		lines := strings.Split(out, "\n")
		for i, line := range lines {
			if strings.Contains(line, "-->") {
				cues = append(cues, [2]string{line, lines[i+1]})
			}
		}
		return cues
	}

	srtCues := parse(render.SRT(m))
	vttCues := parse(render.VTT(m))
	require.Len(t, srtCues, len(m.Segments))
	require.Len(t, vttCues, len(m.Segments))

	for i, seg := range m.Segments {
		assert.Equal(t, seg.Text, srtCues[i][1])
		assert.Equal(t, seg.Text, vttCues[i][1])
		assert.Equal(t,
			strings.ReplaceAll(srtCues[i][0], ",", "."),
			vttCues[i][0],
			"cue %d timing differs between SRT and VTT", i)
	}
}

func TestJSON(t *testing.T) {
	t.Parallel()

	t.Run("document shape and metadata", func(t *testing.T) {
		t.Parallel()

		at := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
		m := shortMerged()
		m.Segments[0].ID = "keep-me"
		m.Segments[0].Words = []transcript.Word{{Word: "hello", Start: 0, End: 1}}
		m.Segments[1].Speaker = "Speaker 1"

		out, err := render.JSON(m, render.Metadata{
			Model:       "whisper-1",
			Processed:   true,
			GeneratedAt: at,
		})
		require.NoError(t, err)
		require.True(t, strings.HasSuffix(out, "\n"))
		assert.Contains(t, out, "\n  \"text\":", "two-space indentation")

		var doc struct {
			Text     string  `json:"text"`
			Language string  `json:"language"`
			Duration float64 `json:"duration"`
			Segments []struct {
				ID      string            `json:"id"`
				Start   float64           `json:"start"`
				End     float64           `json:"end"`
				Text    string            `json:"text"`
				Speaker string            `json:"speaker"`
				Words   []transcript.Word `json:"words"`
			} `json:"segments"`
			Metadata struct {
				Model         string `json:"model"`
				Timestamp     string `json:"timestamp"`
				Processed     bool   `json:"processed"`
				TotalSegments int    `json:"totalSegments"`
			} `json:"metadata"`
		}
		require.NoError(t, json.Unmarshal([]byte(out), &doc))

		assert.Equal(t, "hello world bye", doc.Text)
		assert.Equal(t, "en", doc.Language)
		assert.Equal(t, 7.0, doc.Duration)
		require.Len(t, doc.Segments, 3)
		assert.Equal(t, "keep-me", doc.Segments[0].ID)
		assert.Len(t, doc.Segments[0].Words, 1)
		assert.Equal(t, "Speaker 1", doc.Segments[1].Speaker)
		assert.Equal(t, "whisper-1", doc.Metadata.Model)
		assert.Equal(t, "2026-03-14T09:26:53Z", doc.Metadata.Timestamp)
		assert.True(t, doc.Metadata.Processed)
		assert.Equal(t, 1, doc.Metadata.TotalSegments)

		// Segments without an ID get a valid UUID.
		for i := 1; i < 3; i++ {
			_, err := uuid.Parse(doc.Segments[i].ID)
			assert.NoError(t, err, "segment %d id %q", i, doc.Segments[i].ID)
		}
	})

	t.Run("no segments yields an empty array", func(t *testing.T) {
		t.Parallel()

		out, err := render.JSON(transcript.Merged{Text: "x"}, render.Metadata{})
		require.NoError(t, err)
		assert.Contains(t, out, `"segments": []`)
		assert.NotContains(t, out, "null")
	})

	t.Run("source transcript is not mutated", func(t *testing.T) {
		t.Parallel()

		m := shortMerged()
		_, err := render.JSON(m, render.Metadata{})
		require.NoError(t, err)
		for i, seg := range m.Segments {
			assert.Empty(t, seg.ID, "segment %d gained an ID", i)
		}
	})
}

// TestRenderConsistency checks every format is driven by the same segment
// set and that re-rendering the deterministic formats is byte-identical.
func TestRenderConsistency(t *testing.T) {
	t.Parallel()

	m := shortMerged()
	meta := render.Metadata{Model: "whisper-1", GeneratedAt: time.Unix(1700000000, 0)}

	for _, f := range []render.Format{render.FormatTXT, render.FormatSRT, render.FormatVTT} {
		a, err := render.Render(m, f, meta)
		require.NoError(t, err, "format %s", f)
		b, err := render.Render(m, f, meta)
		require.NoError(t, err, "format %s", f)
		assert.Equal(t, a, b, "format %s is not deterministic", f)
		for _, seg := range m.Segments {
			assert.Contains(t, a, seg.Text, "format %s dropped a segment", f)
		}
	}

	jsonOut, err := render.Render(m, render.FormatJSON, meta)
	require.NoError(t, err)
	for _, seg := range m.Segments {
		assert.Contains(t, jsonOut, seg.Text, "json dropped a segment")
	}

	_, err = render.Render(m, render.Format("docx"), meta)
	assert.ErrorIs(t, err, render.ErrUnknownFormat)
}
