package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"transcode-worker/application/worker"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Record(t *testing.T) {
	m := New()

	m.MessagesReceived(3)
	m.MessageProcessed(worker.OutcomeSuccess)
	m.MessageProcessed(worker.OutcomeFailed)
	m.MessageProcessed(worker.OutcomeFailed)
	m.Acknowledged(nil)
	m.Acknowledged(errors.New("gone"))
	m.TranscodeDuration(2 * time.Second)

	body := scrape(t, m)
	for _, want := range []string{
		"transcode_worker_messages_received_total 3",
		`transcode_worker_messages_processed_total{outcome="success"} 1`,
		`transcode_worker_messages_processed_total{outcome="failed"} 2`,
		`transcode_worker_acknowledgements_total{status="success"} 1`,
		`transcode_worker_acknowledgements_total{status="error"} 1`,
		"transcode_worker_transcode_duration_seconds_count 1",
		"transcode_worker_transcode_duration_seconds_sum 2",
	} {
		assert.Contains(t, body, want)
	}
}

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	return rec.Body.String()
}

func TestMetrics_Router(t *testing.T) {
	m := New()
	m.MessagesReceived(1)
	router := m.Router()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "transcode_worker_messages_received_total 1"))

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"healthy"}`, rec.Body.String())

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/healthz", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
