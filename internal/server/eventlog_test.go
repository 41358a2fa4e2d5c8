package server

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/howard-nolan/geminiproxy/internal/eventlog"
)

func TestHandleEventLoggingBatchAppendsAndAlwaysReturns200(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.log")
	sink, err := eventlog.Open(path)
	require.NoError(t, err)
	defer sink.Close()

	s := testServer(t, "http://unused.example", nil)
	s.eventlog = sink

	body := `{"event":"tool_call","name":"search"}`
	req := httptest.NewRequest(http.MethodPost, "/api/event_logging/batch", strings.NewReader(body))
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "{}", rec.Body.String())

	contents, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(contents), body)
}

func TestHandleEventLoggingBatchNeverFailsWithNilSink(t *testing.T) {
	s := testServer(t, "http://unused.example", nil)
	s.eventlog = nil

	req := httptest.NewRequest(http.MethodPost, "/api/event_logging/batch", strings.NewReader(`{"event":"x"}`))
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}
