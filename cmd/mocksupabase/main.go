// Package main implements a standalone mock Supabase PostgREST server for
// running the keepalive locally without a real project.
package main

import (
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/sipico/supabase-keepalive/internal/testutil/mocksupabase"
)

// getPort returns the port from the PORT environment variable or the default.
func getPort() string {
	port := os.Getenv("PORT")
	if port == "" {
		port = "54321"
	}
	return port
}

// getKeys returns the accepted API keys from MOCK_SUPABASE_KEYS, a
// comma-separated list. Empty means any key is accepted.
func getKeys() []string {
	var keys []string
	for _, k := range strings.Split(os.Getenv("MOCK_SUPABASE_KEYS"), ",") {
		if k = strings.TrimSpace(k); k != "" {
			keys = append(keys, k)
		}
	}
	return keys
}

// createServer creates a mock server seeded with a one-row health_check table.
func createServer(logger *slog.Logger) *mocksupabase.Server {
	server := mocksupabase.NewUnstarted(logger)
	server.AddTable("health_check", mocksupabase.Row{"id": 1})
	if keys := getKeys(); len(keys) > 0 {
		server.SetKeys(keys...)
	}
	return server
}

// createHTTPServer creates an http.Server with the given port and handler.
func createHTTPServer(port string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              ":" + port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// setupShutdownHandler closes httpServer on SIGINT or SIGTERM.
func setupShutdownHandler(httpServer *http.Server, logger *slog.Logger) <-chan bool {
	done := make(chan bool)
	go func() {
		sigint := make(chan os.Signal, 1)
		signal.Notify(sigint, os.Interrupt, syscall.SIGTERM)
		<-sigint

		logger.Info("Shutting down mocksupabase server")
		//nolint:errcheck
		httpServer.Close()
		close(done)
	}()
	return done
}

// runHealthCheck performs an HTTP health check against the local server.
// Returns 0 on success, 1 on failure. Used by container HEALTHCHECK.
func runHealthCheck() int {
	return doHealthCheck("http://localhost:" + getPort() + "/admin/state")
}

func doHealthCheck(url string) int {
	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get(url)
	if err != nil {
		return 1
	}
	//nolint:errcheck // Response body close errors are unrecoverable in health check
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return 1
	}
	return 0
}

func main() {
	// Handle health check subcommand for distroless container health checks
	if len(os.Args) > 1 && os.Args[1] == "health" {
		os.Exit(runHealthCheck())
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	port := getPort()
	server := createServer(logger)
	httpServer := createHTTPServer(port, server.Handler())

	done := setupShutdownHandler(httpServer, logger)

	logger.Info("mocksupabase listening", "addr", httpServer.Addr)
	if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
		logger.Error("HTTP server error", "error", err)
		os.Exit(1)
	}

	<-done
	logger.Info("mocksupabase stopped")
}
