package audio

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// AcceptedExtensions lists audio container extensions the provider accepts.
var AcceptedExtensions = map[string]bool{
	"flac": true,
	"m4a":  true,
	"mp3":  true,
	"mp4":  true,
	"mpeg": true,
	"mpga": true,
	"oga":  true,
	"ogg":  true,
	"wav":  true,
	"webm": true,
}

// minPlayableSize is the smallest size plausibly holding decodable audio.
const minPlayableSize = 1000

// signatureLen is how many leading bytes are inspected for a container signature.
const signatureLen = 12

// ValidationWarning is a non-fatal validation finding.
type ValidationWarning struct {
	Message string
}

// Validate checks that path has an accepted extension and a recognized
// container signature in its first bytes. A known extension with an unknown
// signature is accepted with a warning: some encoders write unusual headers.
func Validate(path string) (*ValidationWarning, error) {
	ext := extOf(path)
	if !AcceptedExtensions[ext] {
		return nil, fmt.Errorf("%w: .%s (accepted: %s)", ErrUnsupportedFormat, ext, acceptedList())
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat audio file: %w", err)
	}
	if info.Size() == 0 {
		return nil, ErrEmptyFile
	}
	if info.Size() < minPlayableSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrTruncatedFile, info.Size())
	}

	header := make([]byte, signatureLen)
	f, err := os.Open(path) // #nosec G304 -- path comes from the job's temp dir
	if err != nil {
		return nil, fmt.Errorf("open audio file: %w", err)
	}
	defer func() { _ = f.Close() }()
	n, err := f.Read(header)
	if err != nil {
		return nil, fmt.Errorf("read audio header: %w", err)
	}
	header = header[:n]

	if matchesSignature(header) {
		return nil, nil
	}
	return &ValidationWarning{
		Message: fmt.Sprintf("unrecognized container signature for .%s file, proceeding anyway", ext),
	}, nil
}

// NormalizeExtension renames path so its extension is lowercase.
// Returns the (possibly unchanged) path.
func NormalizeExtension(path string) (string, error) {
	ext := filepath.Ext(path)
	lower := strings.ToLower(ext)
	if ext == lower {
		return path, nil
	}
	renamed := strings.TrimSuffix(path, ext) + lower
	if err := os.Rename(path, renamed); err != nil {
		return "", fmt.Errorf("normalize extension: %w", err)
	}
	return renamed, nil
}

// matchesSignature checks the leading bytes against known container magic.
func matchesSignature(header []byte) bool {
	if len(header) >= 3 && bytes.HasPrefix(header, []byte("ID3")) {
		return true
	}
	// Raw MP3 frame sync: FF FB / FF F3 / FF F2.
	if len(header) >= 2 && header[0] == 0xFF &&
		(header[1] == 0xFB || header[1] == 0xF3 || header[1] == 0xF2) {
		return true
	}
	if len(header) >= 12 && bytes.HasPrefix(header, []byte("RIFF")) && bytes.Equal(header[8:12], []byte("WAVE")) {
		return true
	}
	// MP4/M4A: "ftyp" appears within the first 12 bytes (after the box size).
	if bytes.Contains(header, []byte("ftyp")) {
		return true
	}
	if bytes.HasPrefix(header, []byte("OggS")) {
		return true
	}
	if bytes.HasPrefix(header, []byte("fLaC")) {
		return true
	}
	return false
}

// acceptedList returns a sorted, comma-separated extension list for error messages.
func acceptedList() string {
	exts := make([]string, 0, len(AcceptedExtensions))
	for ext := range AcceptedExtensions {
		exts = append(exts, ext)
	}
	// Sorted for deterministic output in tests and user-facing messages.
	slices.Sort(exts)
	return strings.Join(exts, ", ")
}
