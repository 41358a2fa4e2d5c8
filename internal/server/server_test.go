package server

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/howard-nolan/geminiproxy/internal/cache"
	"github.com/howard-nolan/geminiproxy/internal/config"
	"github.com/howard-nolan/geminiproxy/internal/health"
	"github.com/howard-nolan/geminiproxy/internal/metrics"
	"github.com/howard-nolan/geminiproxy/internal/signature"
	"github.com/howard-nolan/geminiproxy/internal/upstream"
)

type fakeTokenSource struct{ token string }

func (f fakeTokenSource) GetToken(ctx context.Context) (string, error) { return f.token, nil }

// testServer builds a Server wired against an upstream.Client pointed at
// upstreamURL, with every other collaborator a fresh real instance. Tests
// in this package reach into unexported fields directly, the same
// same-package-struct-literal approach internal/upstream's own tests use.
func testServer(t *testing.T, upstreamURL string, cfg *config.AppConfig) *Server {
	t.Helper()
	if cfg == nil {
		cfg = &config.AppConfig{}
	}
	cfg.Gemini.APIBaseURL = upstreamURL

	reg := metrics.New(prometheus.NewRegistry())
	ht := health.New()
	client := upstream.New(cfg.Gemini, fakeTokenSource{token: "ya29.test"}, ht, reg)

	s := &Server{
		cfg:      cfg,
		log:      zap.NewNop(),
		metrics:  reg,
		gatherer: prometheus.NewRegistry(),
		health:   ht,
		sigStore: signature.New(),
		cacheMgr: cache.New(),
		eventlog: nil,
		upstream: client,
	}
	s.routes()
	return s
}
