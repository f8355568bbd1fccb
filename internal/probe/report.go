package probe

import (
	"fmt"
	"io"
)

// Process exit codes.
const (
	ExitOK          = 0
	ExitProbeFailed = 1
	ExitConfig      = 2
)

// Report writes the run's single outcome line and returns the exit code.
// Success goes to stdout, failure to stderr.
func Report(stdout, stderr io.Writer, res *Result, err error) int {
	if err != nil {
		//nolint:errcheck
		fmt.Fprintf(stderr, "Supabase ping failed: %v\n", err)
		return ExitProbeFailed
	}
	//nolint:errcheck
	fmt.Fprintf(stdout, "Supabase ping succeeded: Found %d records in %s\n", res.Rows, res.Table)
	return ExitOK
}
