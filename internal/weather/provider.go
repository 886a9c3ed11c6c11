package weather

import (
	"context"
)

// Client abstracts the upstream weather provider. Implementations return a
// *UpstreamError for every failure.
type Client interface {
	CurrentWeather(ctx context.Context, coords Coordinates) (CurrentWeather, error)
	ForecastList(ctx context.Context, coords Coordinates) (ForecastList, error)
}
