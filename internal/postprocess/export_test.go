package postprocess

// ChatCompleter is exported for tests to inject mock chat clients.
type ChatCompleter = chatCompleter
