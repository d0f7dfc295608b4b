// Package audio prepares audio files for transcription: validation by magic
// bytes, size-adaptive transcoding, fixed-duration slicing, and temp-file
// custody for everything produced along the way.
package audio

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Provider and slicing constants.
const (
	// ProviderLimit is the external transcription API's per-request payload cap.
	ProviderLimit = 25 * 1024 * 1024

	// SegmentDurationSec is the fixed slice length. The merger multiplies
	// slice indexes by this value to place timestamps, so it must never be
	// derived per segment.
	SegmentDurationSec = 300
)

// Role describes where an artifact came from in the pipeline.
type Role int

const (
	RoleOriginal Role = iota
	RoleTranscoded
	RoleSegment
)

// String returns the role name for logging.
func (r Role) String() string {
	switch r {
	case RoleOriginal:
		return "original"
	case RoleTranscoded:
		return "transcoded"
	case RoleSegment:
		return "segment"
	default:
		return "unknown"
	}
}

// Artifact is an audio file on disk owned by a job.
type Artifact struct {
	Path      string
	SizeBytes int64
	Ext       string // lowercase, without dot
	Role      Role
}

// String returns a human-readable representation for logging.
func (a Artifact) String() string {
	return fmt.Sprintf("%s %s (%d bytes)", a.Role, filepath.Base(a.Path), a.SizeBytes)
}

// Plan is the preparer's decision on how to present audio to the transcriber.
// Exactly one of Single or Segments is set.
type Plan struct {
	Single   *Artifact
	Segments []Artifact

	// SegmentDurationSec is the declared fixed slice length used for offset
	// arithmetic. Set only for segmented plans.
	SegmentDurationSec float64
}

// IsSegmented reports whether the plan fans out over multiple slices.
func (p Plan) IsSegmented() bool {
	return len(p.Segments) > 0
}

// Artifacts returns every artifact referenced by the plan.
func (p Plan) Artifacts() []Artifact {
	if p.Single != nil {
		return []Artifact{*p.Single}
	}
	return p.Segments
}

// extOf returns the lowercase extension of a path without the dot.
func extOf(path string) string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
}
