// Command sprayd is a minimal demonstration server: it accepts
// connections, parses requests through the core pipeline, and answers
// with a placeholder response, while exposing the statistics counters
// on a Prometheus endpoint.
package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/alexrom/spray/internal/pipestats"
	"github.com/alexrom/spray/internal/server"
)

func main() {
	addr := flag.String("addr", ":8080", "HTTP listen address")
	metricsAddr := flag.String("metrics-addr", ":9090", "Prometheus metrics listen address")
	maxConns := flag.Int64("max-connections", 0, "maximum concurrent connections (0 = unlimited)")
	requestTimeout := flag.Duration("request-timeout", 0, "close a connection if a request goes unanswered this long (0 = disabled)")
	idleTimeout := flag.Duration("idle-timeout", 60*time.Second, "close a connection idle this long (0 = disabled)")
	flag.Parse()

	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	counters := pipestats.New()
	cfg := server.DefaultConfig(*addr)
	cfg.MaxConnections = *maxConns
	cfg.Connection.RequestTimeout = *requestTimeout
	cfg.Connection.IdleTimeout = *idleTimeout

	srv := server.New(cfg, counters, logger)

	publisher := &pipestats.PrometheusPublisher{}
	go func() {
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()
		for range ticker.C {
			publisher.Publish(counters.Snapshot())
		}
	}()

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	metricsSrv := &http.Server{Addr: *metricsAddr, Handler: mux}
	go func() {
		if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("metrics server failed", zap.Error(err))
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("starting sprayd", zap.String("addr", *addr), zap.String("metrics-addr", *metricsAddr))
	if err := srv.ListenAndServe(ctx); err != nil {
		logger.Error("server stopped", zap.Error(err))
		os.Exit(1)
	}
}
