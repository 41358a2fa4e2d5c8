package server

import (
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// handleEventLoggingBatch accepts client telemetry and always answers
// 200 {} immediately: the append to the Event Log Sink (P) is fire-and-
// forget, and a write failure is logged at warn but never surfaces to the
// client, per SPEC_FULL.md §4.P — client telemetry must never break a
// client integration.
func (s *Server) handleEventLoggingBatch(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBodyBytes))
	if err == nil && s.eventlog != nil {
		if err := s.eventlog.Append(time.Now(), body); err != nil {
			s.log.Warn("event log append failed", zap.Error(err))
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	encodeJSON(w, map[string]interface{}{})
}
