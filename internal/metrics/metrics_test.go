package metrics

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestInitAndRecord verifies that Init registers metrics and Record* updates them.
func TestInitAndRecord(t *testing.T) {
	// Don't run in parallel since we're testing global state
	reg := prometheus.NewRegistry()
	require.NoError(t, Init(reg, "1.2.3"))

	now := time.Unix(1760000000, 0)
	RecordSuccess("health_check", 1, 120*time.Millisecond, now)
	RecordFailure("health_check", "resource_not_found", 30*time.Millisecond)

	output, err := GetMetricsText(reg)
	require.NoError(t, err)

	for _, want := range []string{
		`supabase_keepalive_probe_total{outcome="success",table="health_check"} 1`,
		`supabase_keepalive_probe_total{outcome="resource_not_found",table="health_check"} 1`,
		`supabase_keepalive_probe_duration_seconds_count{table="health_check"} 2`,
		`supabase_keepalive_probe_rows{table="health_check"} 1`,
		`supabase_keepalive_last_success_timestamp_seconds{table="health_check"} 1.76e+09`,
		`supabase_keepalive_info{version="1.2.3"} 1`,
	} {
		assert.Contains(t, output, want)
	}
}

// TestInitRegistrationErrors tests that Init returns errors when metrics are already registered
func TestInitRegistrationErrors(t *testing.T) {
	reg := prometheus.NewRegistry()
	require.NoError(t, Init(reg, "dev"))
	assert.Error(t, Init(reg, "dev"), "duplicate registration should fail")
}

// TestRecordBeforeInitDoesNotPanic checks the atomic nil guards.
func TestRecordBeforeInitDoesNotPanic(t *testing.T) {
	probeTotal.Store(nil)
	probeDuration.Store(nil)
	probeRows.Store(nil)
	lastSuccess.Store(nil)

	assert.NotPanics(t, func() {
		RecordSuccess("t", 1, time.Second, time.Now())
		RecordFailure("t", "transport_failure", time.Second)
	})
}

func TestPush(t *testing.T) {
	reg := prometheus.NewRegistry()
	require.NoError(t, Init(reg, "dev"))
	RecordSuccess("health_check", 1, time.Millisecond, time.Now())

	var gotMethod, gotPath, gotBody string
	gateway := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)
		w.WriteHeader(http.StatusOK)
	}))
	defer gateway.Close()

	require.NoError(t, Push(context.Background(), gateway.URL, reg, gateway.Client()))
	assert.Equal(t, http.MethodPut, gotMethod)
	assert.Equal(t, "/metrics/job/"+Job, gotPath)
	assert.NotEmpty(t, gotBody)
}

func TestPush_GatewayError(t *testing.T) {
	reg := prometheus.NewRegistry()
	require.NoError(t, Init(reg, "dev"))

	gateway := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusInternalServerError)
	}))
	defer gateway.Close()

	err := Push(context.Background(), gateway.URL, reg, nil)
	require.Error(t, err)
	assert.True(t, strings.HasPrefix(err.Error(), "failed to push metrics"))
}

func TestWriteTextfile(t *testing.T) {
	reg := prometheus.NewRegistry()
	require.NoError(t, Init(reg, "dev"))
	RecordSuccess("health_check", 0, time.Millisecond, time.Now())

	path := filepath.Join(t.TempDir(), "keepalive.prom")
	require.NoError(t, WriteTextfile(path, reg))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `supabase_keepalive_probe_rows{table="health_check"} 0`)
}
