package weather

import (
	"context"
	"log"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"
)

var tracer = otel.Tracer("github.com/i474232898/forecast-gateway/internal/weather")

// Service validates city names against the registry, calls the upstream
// client and reshapes its payloads.
type Service struct {
	registry *Registry
	client   Client

	// groupedConcurrency bounds the grouped fan-out; 0 means one goroutine per city.
	groupedConcurrency int
}

// NewService creates a new Service.
func NewService(registry *Registry, client Client, groupedConcurrency int) *Service {
	return &Service{
		registry:           registry,
		client:             client,
		groupedConcurrency: groupedConcurrency,
	}
}

// Registry returns the city registry the service validates against.
func (s *Service) Registry() *Registry {
	return s.registry
}

func (s *Service) lookup(cityName string) (City, error) {
	city, ok := s.registry.Lookup(cityName)
	if !ok {
		return City{}, NewInvalidCityError(s.registry.Names())
	}
	return city, nil
}

// GetCurrent returns the upstream current weather payload for a registered city.
// Upstream errors are returned as-is.
func (s *Service) GetCurrent(ctx context.Context, cityName string) (CurrentWeather, error) {
	ctx, span := tracer.Start(ctx, "forecast.current")
	defer span.End()
	span.SetAttributes(attribute.String("city", cityName))

	city, err := s.lookup(cityName)
	if err != nil {
		span.SetStatus(codes.Error, "invalid city")
		return CurrentWeather{}, err
	}

	cw, err := s.client.CurrentWeather(ctx, city.Coordinates)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "upstream failure")
		return CurrentWeather{}, err
	}
	return cw, nil
}

// GetFiveDayForecast returns the 3-hour forecast for a registered city keyed
// by timeslot timestamp.
func (s *Service) GetFiveDayForecast(ctx context.Context, cityName string) (FiveDayForecast, error) {
	ctx, span := tracer.Start(ctx, "forecast.five_days")
	defer span.End()
	span.SetAttributes(attribute.String("city", cityName))

	city, err := s.lookup(cityName)
	if err != nil {
		span.SetStatus(codes.Error, "invalid city")
		return nil, err
	}

	list, err := s.client.ForecastList(ctx, city.Coordinates)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "upstream failure")
		return nil, err
	}

	forecast := ReshapeForecast(list)
	span.SetAttributes(attribute.Int("timeslots", len(forecast)))
	return forecast, nil
}

// GetGrouped fetches current weather for every registered city concurrently
// and aggregates the results. The first upstream failure cancels the
// remaining calls and is returned; no partial result is produced.
func (s *Service) GetGrouped(ctx context.Context) (GroupedForecast, error) {
	ctx, span := tracer.Start(ctx, "forecast.grouped")
	defer span.End()

	names := s.registry.Names()
	if len(names) == 0 {
		log.Printf("ERROR: grouped forecast requested with an empty registry")
		span.SetStatus(codes.Error, ErrNoCities.Error())
		return GroupedForecast{}, ErrNoCities
	}

	readings := make([]CityReading, len(names))

	g, gctx := errgroup.WithContext(ctx)
	if s.groupedConcurrency > 0 {
		g.SetLimit(s.groupedConcurrency)
	}

	for i, name := range names {
		city, _ := s.registry.Lookup(name)
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			cw, err := s.client.CurrentWeather(gctx, city.Coordinates)
			if err != nil {
				log.Printf("DEBUG: grouped forecast failed for %s: %v", name, err)
				return err
			}
			readings[i] = CityReading{City: name, Weather: cw}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "upstream failure")
		return GroupedForecast{}, err
	}

	return AggregateReadings(readings)
}
