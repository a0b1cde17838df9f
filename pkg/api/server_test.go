package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leoxtc/jsm-tui/pkg/models"
)

type staticSource struct {
	snapshot models.Snapshot
}

func (s *staticSource) CurrentSnapshot() models.Snapshot { return s.snapshot }

func newTestServer() *Server {
	return NewServer(&staticSource{snapshot: models.Snapshot{
		Alerts: []models.Alert{
			{ID: "a1", Status: models.StatusOpen, Message: "disk full"},
			{ID: "a2", Status: models.StatusAcknowledged, Message: "latency spike"},
			{ID: "a3", Status: models.StatusClosed, Message: "resolved"},
		},
		Generation: 7,
		TakenAt:    time.Now().UTC(),
	}}, "0")
}

func TestHealthEndpoint(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestServer().Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
}

func TestAlertsEndpointReturnsSnapshot(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestServer().Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/alerts", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Alerts    []models.Alert `json:"alerts"`
		Count     int            `json:"count"`
		OpenCount int            `json:"open_count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))

	assert.Equal(t, 3, body.Count)
	assert.Equal(t, 2, body.OpenCount)
	require.Len(t, body.Alerts, 3)
	assert.Equal(t, "a1", body.Alerts[0].ID)
}

func TestAlertsEndpointRejectsWrites(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestServer().Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/alerts", nil))

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
