// Package docsuite provides public constants for CI jobs and tools that
// consume the docsuite exit status.
package docsuite

// Exit codes returned by the docsuite CLI.
const (
	// ExitSuccess indicates every package ran without diagnostics and the
	// aggregate was published.
	ExitSuccess = 0

	// ExitFailure indicates at least one test invocation emitted error output
	// or the aggregate could not be uploaded.
	ExitFailure = 1

	// ExitSetupError indicates the batch could not start: invalid
	// configuration, unreadable descriptor directory, or malformed descriptor.
	ExitSetupError = 2
)
