package probe

import (
	"bytes"
	"testing"
	"time"
)

func TestReport(t *testing.T) {
	t.Parallel()

	t.Run("success", func(t *testing.T) {
		t.Parallel()
		var stdout, stderr bytes.Buffer
		code := Report(&stdout, &stderr, &Result{Table: "health_check", Rows: 1, Duration: time.Millisecond}, nil)
		if code != ExitOK {
			t.Errorf("code = %d, want %d", code, ExitOK)
		}
		want := "Supabase ping succeeded: Found 1 records in health_check\n"
		if stdout.String() != want {
			t.Errorf("stdout = %q, want %q", stdout.String(), want)
		}
		if stderr.Len() != 0 {
			t.Errorf("stderr should be empty, got %q", stderr.String())
		}
	})

	t.Run("failure", func(t *testing.T) {
		t.Parallel()
		var stdout, stderr bytes.Buffer
		err := &Error{Kind: ResourceNotFound, Table: "does_not_exist"}
		code := Report(&stdout, &stderr, nil, err)
		if code != ExitProbeFailed {
			t.Errorf("code = %d, want %d", code, ExitProbeFailed)
		}
		want := "Supabase ping failed: table \"does_not_exist\" does not exist\n"
		if stderr.String() != want {
			t.Errorf("stderr = %q, want %q", stderr.String(), want)
		}
		if stdout.Len() != 0 {
			t.Errorf("stdout should be empty, got %q", stdout.String())
		}
	})
}
