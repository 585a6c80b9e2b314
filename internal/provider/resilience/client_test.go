package resilience_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pedalwatt/pedalwatt/internal/provider/resilience"
)

const hourlyWindBody = `{"hourly":{"time":["2026-08-20T12:00"],"windspeed_10m":[4.2],"winddirection_10m":[180.0]}}`

// neverTrip keeps the breaker out of a test's way.
func neverTrip(counts gobreaker.Counts) bool {
	return counts.Requests >= 1000
}

func windRequest(t *testing.T, url string) *http.Request {
	t.Helper()
	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, url, http.NoBody)
	require.NoError(t, err)
	return req
}

func TestClient_SuccessfulRequest(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(hourlyWindBody))
	}))
	defer server.Close()

	client := resilience.NewClient(resilience.WindClientConfig("open-meteo"))

	resp, err := client.Do(windRequest(t, server.URL))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, gobreaker.StateClosed, client.CircuitBreakerState())
}

func TestClient_RetriesTransient5xx(t *testing.T) {
	var attempts atomic.Int32

	// Two 503s then a good answer, the shape of a weather API mid-deploy.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if attempts.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(hourlyWindBody))
	}))
	defer server.Close()

	cbConfig := resilience.DefaultCircuitBreakerConfig("open-meteo")
	cbConfig.ReadyToTrip = neverTrip

	client := resilience.NewClient(resilience.ClientConfig{
		Name:            "open-meteo",
		Timeout:         5 * time.Second,
		MaxRetries:      5,
		InitialInterval: 10 * time.Millisecond,
		MaxInterval:     50 * time.Millisecond,
		CircuitBreaker:  &cbConfig,
	})

	resp, err := client.Do(windRequest(t, server.URL))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, int32(3), attempts.Load())
}

func TestClient_BreakerOpensAndShedsCalls(t *testing.T) {
	var attempts atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	cbConfig := resilience.CircuitBreakerConfig{
		Name:        "open-meteo",
		MaxRequests: 1,
		Timeout:     1 * time.Second,
		ReadyToTrip: resilience.DefaultReadyToTrip,
	}

	client := resilience.NewClient(resilience.ClientConfig{
		Name:            "open-meteo",
		Timeout:         1 * time.Second,
		InitialInterval: 10 * time.Millisecond,
		MaxInterval:     50 * time.Millisecond,
		CircuitBreaker:  &cbConfig,
	})

	// Five straight failures trip the default breaker. MaxRetries defaults
	// to 3 here, so a couple of calls are enough to cross the threshold.
	for i := 0; i < 5; i++ {
		resp, _ := client.Do(windRequest(t, server.URL))
		if resp != nil {
			resp.Body.Close()
		}
		if client.CircuitBreakerState() == gobreaker.StateOpen {
			break
		}
	}
	require.Equal(t, gobreaker.StateOpen, client.CircuitBreakerState())

	// With the breaker open the provider is not contacted at all; the wind
	// resolver sees the error and analyzes the ride calm.
	before := attempts.Load()
	resp, err := client.Do(windRequest(t, server.URL))
	if resp != nil {
		resp.Body.Close()
	}
	assert.ErrorIs(t, err, resilience.ErrCircuitOpen)
	assert.Equal(t, before, attempts.Load())
}

func TestClient_SlowProviderTimesOut(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(500 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	cbConfig := resilience.DefaultCircuitBreakerConfig("open-meteo")
	cbConfig.ReadyToTrip = neverTrip

	client := resilience.NewClient(resilience.ClientConfig{
		Name:            "open-meteo",
		Timeout:         100 * time.Millisecond,
		InitialInterval: 10 * time.Millisecond,
		MaxInterval:     50 * time.Millisecond,
		CircuitBreaker:  &cbConfig,
	})

	resp, err := client.Do(windRequest(t, server.URL))
	if resp != nil {
		resp.Body.Close()
	}
	assert.Error(t, err)
}

func TestClient_HonorsContextCancellation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(1 * time.Second)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := resilience.NewClient(resilience.DefaultClientConfig("open-meteo"))

	ctx, cancel := context.WithCancel(context.Background())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, server.URL, http.NoBody)
	require.NoError(t, err)

	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	resp, err := client.Do(req)
	if resp != nil {
		resp.Body.Close()
	}
	assert.Error(t, err)
}

func TestClient_4xxIsNotRetried(t *testing.T) {
	var attempts atomic.Int32

	// A 400 from the weather API means the request itself is wrong
	// (coordinates, date range); retrying would only repeat the mistake.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	client := resilience.NewClient(resilience.ClientConfig{
		Name:            "open-meteo",
		Timeout:         5 * time.Second,
		MaxRetries:      3,
		InitialInterval: 10 * time.Millisecond,
		MaxInterval:     50 * time.Millisecond,
	})

	resp, err := client.Do(windRequest(t, server.URL))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, int32(1), attempts.Load())
}

func TestDefaultClientConfig(t *testing.T) {
	cfg := resilience.DefaultClientConfig("open-meteo")

	assert.Equal(t, "open-meteo", cfg.Name)
	assert.Equal(t, 10*time.Second, cfg.Timeout)
	assert.Equal(t, uint64(3), cfg.MaxRetries)
	assert.Equal(t, 100*time.Millisecond, cfg.InitialInterval)
	assert.Equal(t, 5*time.Second, cfg.MaxInterval)
	assert.NotNil(t, cfg.CircuitBreaker)
}

func TestWindClientConfig_FitsWindBudget(t *testing.T) {
	cfg := resilience.WindClientConfig("open-meteo")

	// The wind resolver holds a 2 second budget per lookup. A single quick
	// retry fits; a second one would not.
	assert.Equal(t, uint64(1), cfg.MaxRetries)
	assert.LessOrEqual(t, cfg.Timeout, 1500*time.Millisecond)
	assert.LessOrEqual(t, cfg.MaxInterval, 250*time.Millisecond)
}

func TestDefaultCircuitBreakerConfig(t *testing.T) {
	cfg := resilience.DefaultCircuitBreakerConfig("open-meteo")

	assert.Equal(t, "open-meteo", cfg.Name)
	assert.Equal(t, uint32(1), cfg.MaxRequests)
	assert.Equal(t, 60*time.Second, cfg.Timeout)
	assert.NotNil(t, cfg.ReadyToTrip)
}

func TestDefaultReadyToTrip(t *testing.T) {
	tests := []struct {
		name   string
		counts gobreaker.Counts
		want   bool
	}{
		{"too few requests", gobreaker.Counts{Requests: 4, TotalFailures: 4}, false},
		{"low failure rate", gobreaker.Counts{Requests: 10, TotalFailures: 4}, false},
		{"half failing", gobreaker.Counts{Requests: 10, TotalFailures: 5}, true},
		{"five straight failures", gobreaker.Counts{Requests: 5, TotalFailures: 5}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, resilience.DefaultReadyToTrip(tt.counts))
		})
	}
}

func TestServerError(t *testing.T) {
	err := &resilience.ServerError{StatusCode: http.StatusBadGateway}
	assert.Contains(t, err.Error(), "Bad Gateway")
}
