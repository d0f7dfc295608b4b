package cli

// Exported for tests.
var (
	IsURL       = isURL
	SourceTitle = sourceTitle
	SourceBase  = sourceBase
)
