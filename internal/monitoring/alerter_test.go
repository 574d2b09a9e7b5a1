package monitoring

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/thyroid-cli/internal/config"
)

func testAlerter(webhook string) *Alerter {
	return NewAlerter(config.MonitoringConfig{
		WebhookURL:           webhook,
		FailureRateThreshold: 0.25,
		MinTestF1:            0.8,
	})
}

func TestAlerter_Evaluate_NoAlerts(t *testing.T) {
	snap := &MetricsSnapshot{
		RunsTotal:     10,
		RunsComplete:  9,
		RunsFailed:    1,
		FailRate:      0.1,
		LatestRunID:   "r1",
		LatestVersion: 4,
		LatestTestF1:  0.93,
		LookbackHours: 24,
	}

	assert.Empty(t, testAlerter("").Evaluate(snap))
}

func TestAlerter_Evaluate_FailureRate(t *testing.T) {
	snap := &MetricsSnapshot{
		RunsTotal:     4,
		RunsComplete:  2,
		RunsFailed:    2,
		FailRate:      0.5,
		GateFailures:  1,
		LookbackHours: 24,
	}

	alerts := testAlerter("").Evaluate(snap)
	require.Len(t, alerts, 1)
	assert.Equal(t, AlertRunFailureRate, alerts[0].Type)
	assert.Equal(t, "high", alerts[0].Severity)
	assert.Contains(t, alerts[0].Message, "50.0%")
	assert.Contains(t, alerts[0].Message, "1 at a quality gate")
}

func TestAlerter_Evaluate_MinimumRunsRequired(t *testing.T) {
	snap := &MetricsSnapshot{
		RunsComplete:  1,
		RunsFailed:    1,
		FailRate:      0.5,
		LookbackHours: 24,
	}

	assert.Empty(t, testAlerter("").Evaluate(snap))
}

func TestAlerter_Evaluate_LowTestF1(t *testing.T) {
	snap := &MetricsSnapshot{
		RunsComplete:  1,
		LatestRunID:   "r7",
		LatestVersion: 7,
		LatestTestF1:  0.61,
	}

	alerts := testAlerter("").Evaluate(snap)
	require.Len(t, alerts, 1)
	assert.Equal(t, AlertLowTestF1, alerts[0].Type)
	assert.Contains(t, alerts[0].Message, "version 7")
	assert.Equal(t, "r7", alerts[0].Details["run_id"])
}

func TestAlerter_Evaluate_DisabledThresholds(t *testing.T) {
	a := NewAlerter(config.MonitoringConfig{})
	snap := &MetricsSnapshot{
		RunsComplete: 1,
		RunsFailed:   9,
		FailRate:     0.9,
		LatestRunID:  "r1",
		LatestTestF1: 0.1,
	}

	assert.Empty(t, a.Evaluate(snap))
}

func TestAlerter_SendAlerts_Webhook(t *testing.T) {
	var received atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		var alert Alert
		if err := json.NewDecoder(r.Body).Decode(&alert); err == nil && alert.Type != "" {
			received.Add(1)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	alerts := []Alert{
		{Type: AlertRunFailureRate, Severity: "high", Message: "test alert 1"},
		{Type: AlertLowTestF1, Severity: "medium", Message: "test alert 2"},
	}

	sent := testAlerter(ts.URL).SendAlerts(context.Background(), alerts)
	assert.Equal(t, 2, sent)
	assert.Equal(t, int32(2), received.Load())
}

func TestAlerter_SendAlerts_EmptyURL(t *testing.T) {
	sent := testAlerter("").SendAlerts(context.Background(), []Alert{
		{Type: AlertRunFailureRate, Message: "test"},
	})
	assert.Equal(t, 0, sent)
}

func TestAlerter_SendAlerts_EmptyAlerts(t *testing.T) {
	assert.Equal(t, 0, testAlerter("http://example.com").SendAlerts(context.Background(), nil))
}

func TestAlerter_SendAlerts_WebhookError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer ts.Close()

	sent := testAlerter(ts.URL).SendAlerts(context.Background(), []Alert{
		{Type: AlertLowTestF1, Message: "test"},
	})
	assert.Equal(t, 0, sent)
}
