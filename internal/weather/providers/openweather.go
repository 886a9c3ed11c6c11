package providers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/i474232898/forecast-gateway/internal/weather"
)

// DefaultOpenWeatherBaseURL is the OpenWeatherMap 2.5 API root.
const DefaultOpenWeatherBaseURL = "https://api.openweathermap.org/data/2.5"

// ErrMissingAPIKey is returned when the client is built without an API key.
var ErrMissingAPIKey = errors.New("openweather api key is not configured")

var tracer = otel.Tracer("github.com/i474232898/forecast-gateway/internal/weather/providers")

// OpenWeatherClient implements weather.Client for OpenWeatherMap.
type OpenWeatherClient struct {
	cfg     weather.ClientConfig
	client  *http.Client
	circuit *gobreaker.CircuitBreaker
}

// NewOpenWeatherClient fails when cfg carries no API key. An empty BaseURL
// falls back to DefaultOpenWeatherBaseURL.
func NewOpenWeatherClient(client *http.Client, cfg weather.ClientConfig, breaker BreakerConfig) (*OpenWeatherClient, error) {
	if cfg.APIKey == "" {
		return nil, ErrMissingAPIKey
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultOpenWeatherBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	return &OpenWeatherClient{
		cfg:     cfg,
		client:  client,
		circuit: newCircuitBreaker("openweather", breaker),
	}, nil
}

// CurrentWeather calls /weather for the given coordinates.
func (c *OpenWeatherClient) CurrentWeather(ctx context.Context, coords weather.Coordinates) (weather.CurrentWeather, error) {
	var out weather.CurrentWeather
	body, err := c.get(ctx, "weather", coords, &out)
	if err != nil {
		return weather.CurrentWeather{}, err
	}
	out.Raw = body
	return out, nil
}

// ForecastList calls /forecast for the given coordinates.
func (c *OpenWeatherClient) ForecastList(ctx context.Context, coords weather.Coordinates) (weather.ForecastList, error) {
	var out weather.ForecastList
	if _, err := c.get(ctx, "forecast", coords, &out); err != nil {
		return weather.ForecastList{}, err
	}
	return out, nil
}

func (c *OpenWeatherClient) get(ctx context.Context, endpoint string, coords weather.Coordinates, dst any) (json.RawMessage, error) {
	ctx, span := tracer.Start(ctx, "openweather."+endpoint)
	defer span.End()
	span.SetAttributes(
		attribute.Float64("lat", coords.Lat),
		attribute.Float64("lon", coords.Lon),
	)

	body, err := c.fetch(ctx, endpoint, coords, dst)
	if err != nil {
		upstreamErr := toUpstreamError(err)
		span.RecordError(upstreamErr)
		span.SetAttributes(attribute.Int("http.status_code", upstreamErr.StatusCode))
		span.SetStatus(codes.Error, upstreamErr.Name)
		return nil, upstreamErr
	}
	return body, nil
}

func (c *OpenWeatherClient) fetch(ctx context.Context, endpoint string, coords weather.Coordinates, dst any) (json.RawMessage, error) {
	values := url.Values{}
	values.Set("lat", strconv.FormatFloat(coords.Lat, 'f', -1, 64))
	values.Set("lon", strconv.FormatFloat(coords.Lon, 'f', -1, 64))
	values.Set("appid", c.cfg.APIKey)
	values.Set("language", c.cfg.Language)
	values.Set("units", string(c.cfg.Units))

	u := c.cfg.BaseURL + "/" + endpoint + "?" + values.Encode()
	req, err := http.NewRequest(http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	body, err := doRequest(ctx, c.client, c.circuit, req)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(body, dst); err != nil {
		return nil, err
	}
	return body, nil
}
