package cmd

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/vigil/pkg/wait"
)

func TestEndpointCommandWaitsForStatus(t *testing.T) {
	var hits atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Unhealthy for the first two probes, healthy afterwards.
		if hits.Add(1) <= 2 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	_, err := execute(t, "endpoint",
		"--url", server.URL,
		"--status", "200",
		"--timeout", "5s",
		"--interval", "10ms")

	require.NoError(t, err)
	assert.GreaterOrEqual(t, hits.Load(), int64(3))
}

func TestEndpointCommandTimesOut(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	_, err := execute(t, "endpoint",
		"--url", server.URL,
		"--status", "200",
		"--timeout", "50ms",
		"--interval", "10ms")

	require.Error(t, err)
	var timeout *wait.TimeoutError
	assert.ErrorAs(t, err, &timeout)
}

func TestEndpointCommandWaitsForAllURLs(t *testing.T) {
	healthy := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	first := httptest.NewServer(healthy)
	defer first.Close()
	second := httptest.NewServer(healthy)
	defer second.Close()

	_, err := execute(t, "endpoint",
		"--url", first.URL,
		"--url", second.URL,
		"--timeout", "5s",
		"--interval", "10ms")

	require.NoError(t, err)
}

func TestEndpointCommandJSONField(t *testing.T) {
	var ready atomic.Bool
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if ready.Swap(true) {
			w.Write([]byte(`{"status":{"ready":true}}`))
			return
		}
		w.Write([]byte(`{"status":{"ready":false}}`))
	}))
	defer server.Close()

	_, err := execute(t, "endpoint",
		"--url", server.URL,
		"--json-field", "status.ready=true",
		"--timeout", "5s",
		"--interval", "10ms")

	require.NoError(t, err)
}

// An unreachable endpoint is transient (the command whitelists it), so the
// wait keeps polling until the deadline instead of failing fatally.
func TestEndpointCommandUnreachableIsTransient(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	_, err := execute(t, "endpoint",
		"--url", url,
		"--status", "200",
		"--timeout", "50ms",
		"--interval", "10ms")

	require.Error(t, err)
	var timeout *wait.TimeoutError
	require.ErrorAs(t, err, &timeout)
	var fatal *wait.FatalError
	assert.False(t, errors.As(err, &fatal))
}
