package joblog_test

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/castscribe/castscribe/internal/joblog"
)

func newTestStore(opts ...joblog.StoreOption) *joblog.Store {
	base := []joblog.StoreOption{
		joblog.WithMemorySnapshot(func() string { return "RSS: 1MB" }),
	}
	return joblog.NewStore(append(base, opts...)...)
}

func TestStoreAppendSnapshot(t *testing.T) {
	t.Parallel()

	t.Run("entries come back in append order", func(t *testing.T) {
		t.Parallel()

		s := newTestStore()
		s.Append("job-1", joblog.LevelInfo, "fetch", "starting download")
		s.Append("job-1", joblog.LevelWarn, "prepare", "unknown signature")
		s.Append("job-1", joblog.LevelSuccess, "render", "done")

		entries := s.Snapshot("job-1")
		require.Len(t, entries, 3)
		assert.Equal(t, "starting download", entries[0].Message)
		assert.Equal(t, joblog.LevelWarn, entries[1].Level)
		assert.Equal(t, "prepare", entries[1].Stage)
		assert.Equal(t, "done", entries[2].Message)

		for i, e := range entries {
			assert.False(t, e.Timestamp.IsZero(), "entry %d missing timestamp", i)
			assert.Equal(t, "RSS: 1MB", e.Memory, "entry %d", i)
		}
	})

	t.Run("jobs are isolated", func(t *testing.T) {
		t.Parallel()

		s := newTestStore()
		s.Append("job-a", joblog.LevelInfo, "fetch", "a")
		s.Append("job-b", joblog.LevelInfo, "fetch", "b")

		require.Len(t, s.Snapshot("job-a"), 1)
		assert.Equal(t, "b", s.Snapshot("job-b")[0].Message)
	})

	t.Run("unknown job yields an empty slice", func(t *testing.T) {
		t.Parallel()

		s := newTestStore()
		entries := s.Snapshot("nope")
		assert.NotNil(t, entries)
		assert.Empty(t, entries)
	})

	t.Run("snapshot is a copy", func(t *testing.T) {
		t.Parallel()

		s := newTestStore()
		s.Append("job-1", joblog.LevelInfo, "fetch", "original")

		entries := s.Snapshot("job-1")
		entries[0].Message = "mutated"
		assert.Equal(t, "original", s.Snapshot("job-1")[0].Message)
	})
}

func TestStoreEviction(t *testing.T) {
	t.Parallel()

	s := newTestStore()
	for i := 0; i < joblog.Capacity+100; i++ {
		s.Append("job-1", joblog.LevelInfo, "transcribe", fmt.Sprintf("entry %d", i))
	}

	entries := s.Snapshot("job-1")
	require.Len(t, entries, joblog.Capacity)

	// The first hundred entries were evicted FIFO.
	assert.Equal(t, "entry 100", entries[0].Message)
	assert.Equal(t, fmt.Sprintf("entry %d", joblog.Capacity+99), entries[len(entries)-1].Message)
}

func TestStoreFinish(t *testing.T) {
	t.Parallel()

	var mu sync.Mutex
	var scheduled time.Duration
	var expire func()
	s := newTestStore(joblog.WithTimerFunc(func(d time.Duration, fn func()) *time.Timer {
		mu.Lock()
		defer mu.Unlock()
		scheduled = d
		expire = fn
		return nil
	}))

	s.Append("job-1", joblog.LevelSuccess, "render", "done")
	s.Finish("job-1")

	mu.Lock()
	d, fn := scheduled, expire
	mu.Unlock()
	assert.Equal(t, joblog.RetainFor, d)
	require.NotNil(t, fn)

	// Readable until the retention timer fires, gone after.
	require.Len(t, s.Snapshot("job-1"), 1)
	fn()
	assert.Empty(t, s.Snapshot("job-1"))
}

func TestStoreConcurrentAppend(t *testing.T) {
	t.Parallel()

	s := newTestStore()
	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				s.Append("job-1", joblog.LevelInfo, "transcribe", "tick")
			}
		}()
	}
	wg.Wait()

	assert.Len(t, s.Snapshot("job-1"), 400)
}
