package server

import (
	"net/http"

	"github.com/howard-nolan/geminiproxy/internal/health"
)

// healthReport is the JSON body of GET /health: overall liveness plus the
// per-subsystem detail a human or monitoring probe needs at a glance.
type healthReport struct {
	Status      string                 `json:"status"`
	Models      map[string]string      `json:"models"`
	OAuthExpiry oauthHealthInfo        `json:"oauth"`
	Cache       map[string]interface{} `json:"cache"`
}

type oauthHealthInfo struct {
	SecondsRemaining int64 `json:"seconds_remaining"`
	Expired          bool  `json:"expired"`
}

// handleHealth reports overall liveness plus the per-model health state
// tracked by the Model Health Tracker (E), the OAuth token's remaining
// lifetime (D), and the Context Cache Manager's current size (O).
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	models := make(map[string]string)
	for model, state := range s.health.Snapshot() {
		models[model] = stateLabel(state)
	}

	report := healthReport{
		Status: "ok",
		Models: models,
		Cache: map[string]interface{}{
			"entries": s.cacheMgr.Len(),
		},
	}
	if s.tokenInfo != nil {
		remaining, expired := s.tokenInfo.TokenInfo()
		report.OAuthExpiry = oauthHealthInfo{SecondsRemaining: remaining, Expired: expired}
	}

	w.Header().Set("Content-Type", "application/json")
	encodeJSON(w, report)
}

func stateLabel(s health.State) string {
	return s.String()
}
