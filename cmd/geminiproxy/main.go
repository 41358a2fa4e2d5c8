// Package main is the entry point for the gemini-proxy gateway.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/howard-nolan/geminiproxy/internal/cache"
	"github.com/howard-nolan/geminiproxy/internal/config"
	"github.com/howard-nolan/geminiproxy/internal/eventlog"
	"github.com/howard-nolan/geminiproxy/internal/health"
	"github.com/howard-nolan/geminiproxy/internal/logging"
	"github.com/howard-nolan/geminiproxy/internal/metrics"
	"github.com/howard-nolan/geminiproxy/internal/oauth"
	"github.com/howard-nolan/geminiproxy/internal/server"
	"github.com/howard-nolan/geminiproxy/internal/signature"
	"github.com/howard-nolan/geminiproxy/internal/upstream"
)

func main() {
	configPath := flag.String("config", "", "path to config.yaml (defaults to ~/.gemini-proxy/config.yaml)")
	doLogin := flag.Bool("login", false, "run the interactive OAuth login flow and exit")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	if *doLogin {
		if err := oauth.Login(context.Background(), cfg.OAuth.CredentialsPath, func(url string) {
			fmt.Printf("open this URL to authorize: %s\n", url)
		}); err != nil {
			log.Fatalf("login failed: %v", err)
		}
		fmt.Println("login succeeded")
		return
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer logger.Sync()

	promReg := prometheus.NewRegistry()
	metricsReg := metrics.New(promReg)

	tokenMgr, err := oauth.New(cfg.OAuth, metricsReg)
	if err != nil {
		logger.Fatal("failed to build oauth manager", zap.Error(err))
	}

	healthTracker := health.New()
	sigStore := signature.New()
	cacheMgr := cache.New()

	var evSink *eventlog.Sink
	if cfg.EventLog.Enabled {
		evSink, err = eventlog.Open(cfg.EventLog.Path)
		if err != nil {
			logger.Fatal("failed to open event log", zap.Error(err))
		}
		defer evSink.Close()
	}

	upstreamClient := upstream.New(cfg.Gemini, tokenMgr, healthTracker, metricsReg)
	if err := upstreamClient.Bootstrap(context.Background()); err != nil {
		logger.Fatal("failed to resolve project id", zap.Error(err))
	}

	srv := server.New(cfg, logger, metricsReg, promReg, healthTracker, sigStore, cacheMgr, evSink, upstreamClient, tokenMgr)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      srv,
		ReadTimeout:  cfg.ReadTimeout(),
		WriteTimeout: cfg.WriteTimeout(),
	}

	logger.Info("gemini-proxy listening",
		zap.String("host", cfg.Server.Host),
		zap.Int("port", cfg.Server.Port),
	)

	if err := httpServer.ListenAndServe(); err != nil {
		logger.Fatal("server error", zap.Error(err))
	}
}
