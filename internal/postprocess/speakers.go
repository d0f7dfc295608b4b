package postprocess

import (
	"fmt"
	"math/rand/v2"

	"github.com/castscribe/castscribe/internal/transcript"
)

// Speaker labelling heuristics. This is a placeholder for real acoustic
// diarization: it guesses speaker changes from pauses and sentence-length
// jumps in the text.
const (
	// maxSpeakers caps the number of distinct labels.
	maxSpeakers = 4

	// speakerGapSec is the silence between segments suggesting a turn change.
	speakerGapSec = 3.0

	// speakerLengthJump is the text-length delta suggesting a turn change.
	speakerLengthJump = 50

	// speakerAcceptProb is the chance a suggested change is accepted, which
	// keeps the labelling from flipping on every long pause.
	speakerAcceptProb = 0.7
)

// LabelSpeakers attaches "Speaker k" labels to every segment in place. The
// RNG is injected so tests can pin the acceptance rolls; production callers
// seed it per job.
func LabelSpeakers(segments []transcript.Segment, rng *rand.Rand) {
	if len(segments) == 0 {
		return
	}

	speaker := 1
	segments[0].Speaker = speakerLabel(speaker)

	for i := 1; i < len(segments); i++ {
		if speaker < maxSpeakers && turnChange(segments[i-1], segments[i]) &&
			rng.Float64() < speakerAcceptProb {
			speaker++
		}
		segments[i].Speaker = speakerLabel(speaker)
	}
}

// turnChange reports whether the transition between two adjacent segments
// looks like a speaker change.
func turnChange(prev, cur transcript.Segment) bool {
	if cur.Start-prev.End > speakerGapSec {
		return true
	}
	diff := len(cur.Text) - len(prev.Text)
	if diff < 0 {
		diff = -diff
	}
	return diff > speakerLengthJump
}

func speakerLabel(k int) string {
	return fmt.Sprintf("Speaker %d", k)
}
