package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// scrape fetches the metrics endpoint and returns its body
func scrape(t *testing.T) string {
	t.Helper()

	server := httptest.NewServer(promhttp.Handler())
	defer server.Close()

	resp, err := http.Get(server.URL)
	if err != nil {
		t.Fatalf("Failed to get metrics: %v", err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			t.Errorf("failed to close response body: %v", closeErr)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("Failed to read response body: %v", err)
	}

	return string(body)
}

func TestMetricsEndpoint(t *testing.T) {
	// Touch every collector so vector metrics appear in the scrape
	RecordRefreshSuccess("playlist", 1700000000)
	RecordRefreshFailure("epg")
	RecordUpstreamError("fetch_epg")
	SetPlaylistStats(42)
	SetEPGStats(1000, 1<<20)
	RecordEvictions(3, 1)
	SetBreakerState("CLOSED")

	output := scrape(t)

	expectedMetrics := []string{
		"tvhmux_refresh_total",
		"tvhmux_last_refresh_success_timestamp_seconds",
		"tvhmux_upstream_errors_total",
		"tvhmux_playlist_channels",
		"tvhmux_epg_programmes",
		"tvhmux_epg_retained_bytes",
		"tvhmux_retention_evictions_total",
		"tvhmux_upstream_breaker_state",
	}

	for _, metric := range expectedMetrics {
		if !strings.Contains(output, metric) {
			t.Errorf("Expected metric %s not found in output", metric)
		}
	}
}

func TestMetricsValues(t *testing.T) {
	SetPlaylistStats(7)
	SetEPGStats(250, 4096)

	output := scrape(t)

	tests := []struct {
		name     string
		contains string
	}{
		{"playlist_channels", "tvhmux_playlist_channels 7"},
		{"epg_programmes", "tvhmux_epg_programmes 250"},
		{"epg_retained_bytes", "tvhmux_epg_retained_bytes 4096"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !strings.Contains(output, tt.contains) {
				t.Errorf("Expected to find %s in output", tt.contains)
			}
		})
	}
}

func TestBreakerStateValues(t *testing.T) {
	tests := []struct {
		state string
		value string
	}{
		{"CLOSED", "0"},
		{"OPEN", "1"},
		{"HALF-OPEN", "2"},
	}

	for _, tt := range tests {
		t.Run(tt.state, func(t *testing.T) {
			SetBreakerState(tt.state)

			output := scrape(t)

			expectedLine := "tvhmux_upstream_breaker_state " + tt.value
			if !strings.Contains(output, expectedLine) {
				t.Errorf("Expected to find %s in output for state %s", expectedLine, tt.state)
			}
		})
	}
}

func TestRefreshOutcomeLabels(t *testing.T) {
	RecordRefreshSuccess("playlist", 1700000000)
	RecordRefreshFailure("playlist")
	RecordRefreshSuccess("epg", 1700000100)

	output := scrape(t)

	expectedLabels := []string{
		`kind="playlist",outcome="success"`,
		`kind="playlist",outcome="failure"`,
		`kind="epg",outcome="success"`,
	}

	for _, label := range expectedLabels {
		if !strings.Contains(output, label) {
			t.Errorf("Expected to find label set %s in output", label)
		}
	}
}
