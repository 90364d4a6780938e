package cmd

// Exit codes for rasterstats
const (
	// ExitSuccess indicates every check passed
	ExitSuccess = 0

	// ExitCheckFailure indicates a statistic or round trip did not match
	ExitCheckFailure = 1

	// ExitInputError indicates a file or manifest could not be read
	ExitInputError = 2

	// ExitUsageError indicates invalid CLI usage
	ExitUsageError = 64
)
