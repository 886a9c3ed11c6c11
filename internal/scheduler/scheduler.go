package scheduler

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/i474232898/forecast-gateway/internal/store"
	"github.com/i474232898/forecast-gateway/internal/weather"
)

// GroupedForecaster is the part of weather.Service the probe exercises.
type GroupedForecaster interface {
	GetGrouped(ctx context.Context) (weather.GroupedForecast, error)
}

// ResultSink receives probe results.
type ResultSink interface {
	Save(result store.ProbeResult)
}

// Scheduler periodically runs the grouped forecast against the upstream
// provider and records whether it succeeded. Results are never served as
// forecasts.
type Scheduler struct {
	scheduler *gocron.Scheduler
	service   GroupedForecaster
	sink      ResultSink
	interval  time.Duration
	timeout   time.Duration
}

// New creates a new Scheduler. A non-positive interval disables probing.
func New(service GroupedForecaster, sink ResultSink, interval, timeout time.Duration) *Scheduler {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Scheduler{
		scheduler: gocron.NewScheduler(time.UTC),
		service:   service,
		sink:      sink,
		interval:  interval,
		timeout:   timeout,
	}
}

// Start schedules the probe job and starts the underlying scheduler.
func (s *Scheduler) Start() error {
	if s.interval <= 0 {
		log.Println("INFO: scheduler: probe interval not set; upstream probe disabled")
		return nil
	}

	_, err := s.scheduler.Every(s.interval).SingletonMode().Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()
		s.RunOnce(ctx)
	})
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	return nil
}

// RunOnce probes the upstream provider and records the result.
func (s *Scheduler) RunOnce(ctx context.Context) store.ProbeResult {
	start := time.Now()
	grouped, err := s.service.GetGrouped(ctx)

	result := store.ProbeResult{
		Timestamp:  start.UTC(),
		OK:         err == nil,
		DurationMs: time.Since(start).Milliseconds(),
	}
	if err != nil {
		result.Error = err.Error()
		var upstreamErr *weather.UpstreamError
		if errors.As(err, &upstreamErr) {
			result.StatusCode = upstreamErr.StatusCode
		}
		log.Printf("ERROR: scheduler: upstream probe failed: %v", err)
	} else {
		mean := grouped.MeanTemp
		result.MeanTemp = &mean
	}

	s.sink.Save(result)
	return result
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
