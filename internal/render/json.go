package render

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/castscribe/castscribe/internal/transcript"
)

// Metadata describes how the transcript was produced, for the JSON format.
type Metadata struct {
	// Model is the speech-to-text model that produced the transcript.
	Model string

	// Processed reports whether the correction pass ran.
	Processed bool

	// GeneratedAt stamps the rendering time. Zero means time.Now.
	GeneratedAt time.Time
}

// jsonDocument is the JSON output shape.
type jsonDocument struct {
	Text     string               `json:"text"`
	Language string               `json:"language"`
	Duration float64              `json:"duration"`
	Segments []transcript.Segment `json:"segments"`
	Metadata jsonMetadata         `json:"metadata"`
}

type jsonMetadata struct {
	Model         string `json:"model"`
	Timestamp     string `json:"timestamp"`
	Processed     bool   `json:"processed"`
	TotalSegments int    `json:"totalSegments"`
}

// JSON renders the machine-readable format with two-space indentation.
// Segments missing an ID get a fresh UUID; existing IDs are kept stable.
func JSON(m transcript.Merged, meta Metadata) (string, error) {
	at := meta.GeneratedAt
	if at.IsZero() {
		at = time.Now()
	}

	segments := make([]transcript.Segment, len(m.Segments))
	copy(segments, m.Segments)
	for i := range segments {
		if segments[i].ID == "" {
			segments[i].ID = uuid.NewString()
		}
	}
	if segments == nil {
		segments = []transcript.Segment{}
	}

	doc := jsonDocument{
		Text:     m.Text,
		Language: m.Language,
		Duration: m.DurationSec,
		Segments: segments,
		Metadata: jsonMetadata{
			Model:         meta.Model,
			Timestamp:     at.UTC().Format(time.RFC3339),
			Processed:     meta.Processed,
			TotalSegments: m.TotalSegments,
		},
	}

	out, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal transcript: %w", err)
	}
	return string(out) + "\n", nil
}

// Render dispatches to the renderer for the given format.
func Render(m transcript.Merged, f Format, meta Metadata) (string, error) {
	switch f {
	case FormatTXT:
		return TXT(m), nil
	case FormatSRT:
		return SRT(m), nil
	case FormatVTT:
		return VTT(m), nil
	case FormatJSON:
		return JSON(m, meta)
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, f)
}
