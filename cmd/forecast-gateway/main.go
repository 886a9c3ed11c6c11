package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	httpapi "github.com/i474232898/forecast-gateway/internal/api/http"
	"github.com/i474232898/forecast-gateway/internal/config"
	"github.com/i474232898/forecast-gateway/internal/scheduler"
	"github.com/i474232898/forecast-gateway/internal/store"
	"github.com/i474232898/forecast-gateway/internal/telemetry"
	"github.com/i474232898/forecast-gateway/internal/weather"
	"github.com/i474232898/forecast-gateway/internal/weather/providers"
)

func main() {
	// Load configuration; a missing API key stops startup here.
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.InitProvider(ctx, cfg.OTelServiceName, cfg.OTelEndpoint)
	if err != nil {
		log.Fatalf("failed to initialize tracing provider: %v", err)
	}

	// Shared HTTP client for outbound provider calls.
	httpClient := &http.Client{
		Timeout: cfg.HTTPTimeout,
	}

	client, err := providers.NewOpenWeatherClient(httpClient, cfg.Client, cfg.Breaker)
	if err != nil {
		log.Fatalf("failed to create upstream client: %v", err)
	}

	registry := weather.DefaultRegistry()
	service := weather.NewService(registry, client, cfg.GroupedMaxConcurrency)
	log.Printf("INFO: serving %d cities: %v", registry.Len(), registry.Names())

	// Periodic upstream probe with bounded history.
	probes := store.NewMemoryStore(cfg.ProbeMaxHistory, cfg.ProbeMaxAge)
	sched := scheduler.New(service, probes, cfg.ProbeInterval, cfg.ProbeTimeout)
	if err := sched.Start(); err != nil {
		log.Fatalf("failed to start scheduler: %v", err)
	}
	defer sched.Stop()

	app := httpapi.NewApp(service, probes)

	go func() {
		log.Printf("INFO: server up on http://localhost:%s", cfg.Port)
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Printf("fiber server stopped: %v", err)
			stop()
		}
	}()

	// Wait for termination signal
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Printf("error during shutdown: %v", err)
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		log.Printf("error flushing traces: %v", err)
	}
}
