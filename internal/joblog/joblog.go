// Package joblog keeps per-job progress logs in memory so callers can poll
// pipeline progress. Buffers are bounded and expire shortly after the job
// finishes.
package joblog

import (
	"fmt"
	"os"
	"runtime"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v4/process"
)

// Buffer limits.
const (
	// Capacity is the per-job entry cap; older entries are evicted FIFO.
	Capacity = 500

	// RetainFor is how long a finished job's log stays readable.
	RetainFor = 5 * time.Minute
)

// Level classifies a log entry.
type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelWarn    Level = "warn"
	LevelError   Level = "error"
)

// Entry is one progress line for a job.
type Entry struct {
	Timestamp time.Time `json:"timestamp"`
	Level     Level     `json:"level"`
	Message   string    `json:"message"`
	Stage     string    `json:"stage"`
	Memory    string    `json:"memory"`
}

// ring is a fixed-capacity FIFO of entries.
type ring struct {
	entries []Entry
	start   int
}

func (r *ring) append(e Entry) {
	if len(r.entries) < Capacity {
		r.entries = append(r.entries, e)
		return
	}
	r.entries[r.start] = e
	r.start = (r.start + 1) % Capacity
}

func (r *ring) snapshot() []Entry {
	out := make([]Entry, 0, len(r.entries))
	out = append(out, r.entries[r.start:]...)
	out = append(out, r.entries[:r.start]...)
	return out
}

// Store maps job IDs to bounded log buffers. Safe for concurrent use.
type Store struct {
	mu      sync.Mutex
	jobs    map[string]*ring
	memInfo func() string
	after   func(time.Duration, func()) *time.Timer
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithMemorySnapshot overrides the memory snapshot source (for testing).
func WithMemorySnapshot(fn func() string) StoreOption {
	return func(s *Store) { s.memInfo = fn }
}

// WithTimerFunc overrides the expiry timer source (for testing).
func WithTimerFunc(fn func(time.Duration, func()) *time.Timer) StoreOption {
	return func(s *Store) { s.after = fn }
}

// NewStore creates an empty log store.
func NewStore(opts ...StoreOption) *Store {
	s := &Store{
		jobs:    make(map[string]*ring),
		memInfo: memorySnapshot,
		after:   time.AfterFunc,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Append records one entry for the job, stamping the time and a process
// memory snapshot.
func (s *Store) Append(jobID string, level Level, stage, message string) {
	e := Entry{
		Timestamp: time.Now(),
		Level:     level,
		Message:   message,
		Stage:     stage,
		Memory:    s.memInfo(),
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.jobs[jobID]
	if !ok {
		r = &ring{}
		s.jobs[jobID] = r
	}
	r.append(e)
}

// Snapshot returns a copy of the job's entries in append order. Unknown
// jobs yield an empty slice.
func (s *Store) Snapshot(jobID string) []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.jobs[jobID]
	if !ok {
		return []Entry{}
	}
	return r.snapshot()
}

// Finish schedules the job's buffer for deletion after the retention
// window, leaving it readable in the meantime.
func (s *Store) Finish(jobID string) {
	s.after(RetainFor, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.jobs, jobID)
	})
}

// memorySnapshot renders current process memory usage. RSS comes from the
// OS via gopsutil; heap figures from the Go runtime.
func memorySnapshot() string {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)

	rss := "n/a"
	if p, err := process.NewProcess(int32(os.Getpid())); err == nil {
		if mi, err := p.MemoryInfo(); err == nil {
			rss = fmt.Sprintf("%dMB", mi.RSS/1024/1024)
		}
	}

	return fmt.Sprintf("RSS: %s, Heap: %dMB/%dMB, Sys: %dMB",
		rss, ms.HeapAlloc/1024/1024, ms.HeapSys/1024/1024, ms.Sys/1024/1024)
}
