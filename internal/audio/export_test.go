package audio

// Exports for testing. These allow black-box tests to inject dependencies
// without modifying the public API.

type (
	CommandRunner = commandRunner
	FileStatter   = fileStatter
	PathLooker    = pathLooker
)

// SniffExt exposes extension sniffing for validation tests.
var SniffExt = sniffExt
