package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/castscribe/castscribe/internal/render"
)

// writeOutputs writes each rendered format next to the others as
// <dir>/<base>.<format>, refusing to clobber existing files. Returns the
// written paths in canonical format order.
func writeOutputs(dir, base string, formats map[render.Format]string) ([]string, error) {
	if ext := filepath.Ext(base); ext != "" {
		base = strings.TrimSuffix(base, ext)
	}
	if base == "" {
		base = "transcript"
	}

	var written []string
	for _, f := range render.Formats() {
		content, ok := formats[f]
		if !ok {
			continue
		}
		path := filepath.Join(dir, base+"."+string(f))
		if err := writeExclusive(path, content); err != nil {
			return nil, err
		}
		written = append(written, path)
	}
	slices.Sort(written)
	return written, nil
}

// writeExclusive creates path atomically, failing if it already exists.
func writeExclusive(path, content string) error {
	// #nosec G302 G304 -- user-specified output file with standard permissions
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return fmt.Errorf("%w: %s", ErrOutputExists, path)
		}
		return fmt.Errorf("cannot create output file: %w", err)
	}

	writeErr := func() error {
		defer func() { _ = f.Close() }()
		if _, err := f.WriteString(content); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
		return nil
	}()

	if writeErr != nil {
		_ = os.Remove(path)
		return writeErr
	}
	return nil
}
