package cli

import "errors"

// Errors returned by CLI commands.
var (
	// ErrFileNotFound indicates the input audio file does not exist.
	ErrFileNotFound = errors.New("audio file not found")

	// ErrOutputExists indicates an output file is already present.
	ErrOutputExists = errors.New("output file already exists")

	// ErrNoSource indicates neither a file nor a URL was given.
	ErrNoSource = errors.New("no audio source provided")
)
