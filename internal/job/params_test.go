package job_test

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/castscribe/castscribe/internal/job"
	"github.com/castscribe/castscribe/internal/render"
	"github.com/castscribe/castscribe/internal/transcribe"
)

func TestParamsNormalize(t *testing.T) {
	t.Parallel()

	t.Run("zero value gets defaults", func(t *testing.T) {
		t.Parallel()

		got, err := job.Params{}.Normalize()
		require.NoError(t, err)
		assert.Equal(t, []render.Format{render.FormatTXT}, got.OutputFormats)
		assert.Equal(t, transcribe.ContentPodcast, got.ContentType)
		assert.Equal(t, "auto", got.SourceLanguage)
		assert.Equal(t, job.DefaultTimeout, got.Timeout)
	})

	t.Run("explicit values survive", func(t *testing.T) {
		t.Parallel()

		got, err := job.Params{
			OutputFormats:  []render.Format{render.FormatSRT, render.FormatJSON},
			ContentType:    transcribe.ContentLecture,
			SourceLanguage: "zh-CN",
			Keywords:       "  Kubernetes, etcd  ",
			Timeout:        10 * time.Minute,
		}.Normalize()
		require.NoError(t, err)
		assert.Equal(t, []render.Format{render.FormatSRT, render.FormatJSON}, got.OutputFormats)
		assert.Equal(t, transcribe.ContentLecture, got.ContentType)
		assert.Equal(t, "Kubernetes, etcd", got.Keywords)
		assert.Equal(t, 10*time.Minute, got.Timeout)
	})

	t.Run("unknown output format is rejected", func(t *testing.T) {
		t.Parallel()

		_, err := job.Params{OutputFormats: []render.Format{"docx"}}.Normalize()
		var ue *job.UserError
		require.ErrorAs(t, err, &ue)
		assert.Equal(t, job.ClassInvalidInput, ue.Class)
	})

	t.Run("unknown content type is rejected", func(t *testing.T) {
		t.Parallel()

		_, err := job.Params{ContentType: "audiobook"}.Normalize()
		var ue *job.UserError
		require.ErrorAs(t, err, &ue)
		assert.Equal(t, job.ClassInvalidInput, ue.Class)
	})

	t.Run("invalid language tag is rejected", func(t *testing.T) {
		t.Parallel()

		_, err := job.Params{SourceLanguage: "klingon"}.Normalize()
		var ue *job.UserError
		require.ErrorAs(t, err, &ue)
		assert.Equal(t, job.ClassInvalidInput, ue.Class)
	})

	t.Run("keywords are capped by rune count", func(t *testing.T) {
		t.Parallel()

		ok, err := job.Params{Keywords: strings.Repeat("词", job.MaxKeywordsLen)}.Normalize()
		require.NoError(t, err)
		assert.Len(t, []rune(ok.Keywords), job.MaxKeywordsLen)

		_, err = job.Params{Keywords: strings.Repeat("词", job.MaxKeywordsLen+1)}.Normalize()
		var ue *job.UserError
		require.ErrorAs(t, err, &ue)
		assert.Equal(t, job.ClassInvalidInput, ue.Class)
	})

	t.Run("timeout is clamped to the ceiling", func(t *testing.T) {
		t.Parallel()

		got, err := job.Params{Timeout: 2 * time.Hour}.Normalize()
		require.NoError(t, err)
		assert.Equal(t, job.MaxTimeout, got.Timeout)
	})
}

func TestStateTransitions(t *testing.T) {
	t.Parallel()

	t.Run("pipeline order moves forward only", func(t *testing.T) {
		t.Parallel()

		order := []job.State{
			job.StateQueued, job.StatePreparing, job.StateTranscribing,
			job.StatePostProcessing, job.StateRendering,
		}
		for i, from := range order {
			for j, to := range order {
				want := j > i
				assert.Equal(t, want, from.CanAdvance(to), "%s -> %s", from, to)
			}
		}
	})

	t.Run("terminal states are reachable from any live state", func(t *testing.T) {
		t.Parallel()

		for _, from := range []job.State{job.StateQueued, job.StateTranscribing, job.StateRendering} {
			for _, to := range []job.State{job.StateDone, job.StateFailed, job.StateCancelled} {
				assert.True(t, from.CanAdvance(to), "%s -> %s", from, to)
				assert.True(t, to.Terminal())
			}
		}
	})

	t.Run("nothing leaves a terminal state", func(t *testing.T) {
		t.Parallel()

		for _, from := range []job.State{job.StateDone, job.StateFailed, job.StateCancelled} {
			for _, to := range []job.State{job.StateQueued, job.StateRendering, job.StateDone, job.StateFailed} {
				assert.False(t, from.CanAdvance(to), "%s -> %s", from, to)
			}
		}
	})
}
