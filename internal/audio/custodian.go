package audio

import (
	"fmt"
	"log/slog"
	"os"
	"sync"
)

// Custodian owns a job's temp directory and every intermediate file created
// under it. Cleanup is deferred by the job runner so it runs on success,
// error, cancellation, and panic alike.
type Custodian struct {
	mu    sync.Mutex
	dir   string
	paths []string
	files fileRemover
	log   *slog.Logger
}

// NewCustodian creates a per-job temp directory under baseDir (or the OS
// default when baseDir is empty).
func NewCustodian(baseDir, jobID string, logger *slog.Logger) (*Custodian, error) {
	dir, err := os.MkdirTemp(baseDir, "castscribe-"+jobID+"-*")
	if err != nil {
		return nil, fmt.Errorf("create job temp directory: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Custodian{dir: dir, files: osFileRemover{}, log: logger}, nil
}

// Dir returns the job's temp directory.
func (c *Custodian) Dir() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dir
}

// Add registers a path for deletion at cleanup. Paths outside the temp
// directory are tracked too; the directory removal alone would miss them.
func (c *Custodian) Add(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.paths = append(c.paths, path)
}

// Cleanup deletes every tracked file and the temp directory. Best-effort:
// individual failures are logged and never abort the rest of the sweep.
func (c *Custodian) Cleanup() {
	c.mu.Lock()
	paths := c.paths
	dir := c.dir
	c.paths = nil
	c.mu.Unlock()

	for _, p := range paths {
		if err := c.files.Remove(p); err != nil && !os.IsNotExist(err) {
			c.log.Warn("temp file cleanup failed", "path", p, "error", err)
		}
	}
	if dir != "" {
		if err := c.files.RemoveAll(dir); err != nil {
			c.log.Warn("temp directory cleanup failed", "dir", dir, "error", err)
		}
	}
}
