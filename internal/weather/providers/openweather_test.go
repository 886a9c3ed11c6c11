package providers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/forecast-gateway/internal/weather"
)

const bolognaCurrent = `{"coord":{"lon":11.433,"lat":44.467},"weather":[{"id":800,"main":"Clear","description":"cielo sereno","icon":"01d"}],"main":{"temp":18.2,"feels_like":17.6,"pressure":1019,"humidity":58},"name":"Bologna","cod":200}`

const bolognaForecast = `{"cod":"200","cnt":2,"list":[
{"dt":1700006400,"main":{"temp":9.1,"pressure":1020,"humidity":81,"temp_kf":0.3},"dt_txt":"2023-11-15 00:00:00"},
{"dt":1700017200,"main":{"temp":8.4,"pressure":1021,"humidity":85,"temp_kf":0},"dt_txt":"2023-11-15 03:00:00"}
],"city":{"name":"Bologna"}}`

var bologna = weather.Coordinates{Lat: 44.467, Lon: 11.433}

func newTestClient(t *testing.T, baseURL string, breaker BreakerConfig) *OpenWeatherClient {
	t.Helper()
	c, err := NewOpenWeatherClient(&http.Client{Timeout: 2 * time.Second}, weather.ClientConfig{
		APIKey:   "secret-key",
		Language: "it",
		Units:    weather.UnitsMetric,
		BaseURL:  baseURL,
	}, breaker)
	require.NoError(t, err)
	return c
}

func TestNewOpenWeatherClientRequiresAPIKey(t *testing.T) {
	_, err := NewOpenWeatherClient(http.DefaultClient, weather.ClientConfig{Units: weather.UnitsMetric}, BreakerConfig{})

	assert.ErrorIs(t, err, ErrMissingAPIKey)
}

func TestCurrentWeatherSendsProviderParameters(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/weather", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "44.467", q.Get("lat"))
		assert.Equal(t, "11.433", q.Get("lon"))
		assert.Equal(t, "secret-key", q.Get("appid"))
		assert.Equal(t, "it", q.Get("language"))
		assert.Equal(t, "metric", q.Get("units"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(bolognaCurrent))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL+"/", BreakerConfig{})
	got, err := c.CurrentWeather(context.Background(), bologna)
	require.NoError(t, err)

	assert.Equal(t, "Bologna", got.Name)
	assert.Equal(t, 18.2, got.Main.Temp)
	assert.Equal(t, 58.0, got.Main.Humidity)
	assert.Equal(t, bologna, got.Coord)
	assert.JSONEq(t, bolognaCurrent, string(got.Raw))
}

func TestForecastList(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/forecast", r.URL.Path)
		w.Write([]byte(bolognaForecast))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, BreakerConfig{})
	got, err := c.ForecastList(context.Background(), bologna)
	require.NoError(t, err)

	require.Len(t, got.List, 2)
	assert.Equal(t, "2023-11-15 03:00:00", got.List[1].DtText)
	assert.Equal(t, weather.Conditions{Temp: 8.4, Pressure: 1021, Humidity: 85}, got.List[1].Main)
}

func TestProviderErrorKeepsStatusAndMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"cod":401,"message":"Invalid API key. Please see https://openweathermap.org/faq#error401 for more info."}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, BreakerConfig{})
	_, err := c.CurrentWeather(context.Background(), bologna)

	var upstreamErr *weather.UpstreamError
	require.ErrorAs(t, err, &upstreamErr)
	assert.Equal(t, "HTTPError", upstreamErr.Name)
	assert.Equal(t, http.StatusUnauthorized, upstreamErr.StatusCode)
	assert.Contains(t, upstreamErr.Message, "Invalid API key")
}

func TestProviderErrorWithoutBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, BreakerConfig{})
	_, err := c.ForecastList(context.Background(), bologna)

	var upstreamErr *weather.UpstreamError
	require.ErrorAs(t, err, &upstreamErr)
	assert.Equal(t, http.StatusBadGateway, upstreamErr.StatusCode)
	assert.Equal(t, "request failed with status code 502", upstreamErr.Message)
}

func TestTransportErrorHasNoStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	baseURL := srv.URL
	srv.Close()

	c := newTestClient(t, baseURL, BreakerConfig{})
	_, err := c.CurrentWeather(context.Background(), bologna)

	var upstreamErr *weather.UpstreamError
	require.ErrorAs(t, err, &upstreamErr)
	assert.Equal(t, "TransportError", upstreamErr.Name)
	assert.Zero(t, upstreamErr.StatusCode)
	assert.NotEmpty(t, upstreamErr.Message)
	assert.NotContains(t, upstreamErr.Message, "secret-key")
}

func TestDecodeError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html>not json</html>`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, BreakerConfig{})
	_, err := c.CurrentWeather(context.Background(), bologna)

	var upstreamErr *weather.UpstreamError
	require.ErrorAs(t, err, &upstreamErr)
	assert.Equal(t, "DecodeError", upstreamErr.Name)
	assert.Zero(t, upstreamErr.StatusCode)
}

func TestCircuitOpensAfterConsecutiveServerErrors(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, BreakerConfig{FailureThreshold: 2, OpenTimeout: time.Minute})

	for i := 0; i < 2; i++ {
		_, err := c.CurrentWeather(context.Background(), bologna)
		var upstreamErr *weather.UpstreamError
		require.ErrorAs(t, err, &upstreamErr)
		assert.Equal(t, http.StatusInternalServerError, upstreamErr.StatusCode)
	}

	_, err := c.CurrentWeather(context.Background(), bologna)
	var upstreamErr *weather.UpstreamError
	require.ErrorAs(t, err, &upstreamErr)
	assert.Equal(t, "CircuitOpen", upstreamErr.Name)
	assert.Equal(t, http.StatusServiceUnavailable, upstreamErr.StatusCode)
	assert.Equal(t, int32(2), hits.Load())
}

func TestClientErrorsDoNotOpenCircuit(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"cod":"404","message":"city not found"}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, BreakerConfig{FailureThreshold: 1, OpenTimeout: time.Minute})

	for i := 0; i < 3; i++ {
		_, err := c.CurrentWeather(context.Background(), bologna)
		var upstreamErr *weather.UpstreamError
		require.ErrorAs(t, err, &upstreamErr)
		assert.Equal(t, http.StatusNotFound, upstreamErr.StatusCode)
		assert.Equal(t, "city not found", upstreamErr.Message)
	}
	assert.Equal(t, int32(3), hits.Load())
}

func TestCanceledCallsDoNotOpenCircuit(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Write([]byte(bolognaCurrent))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, BreakerConfig{FailureThreshold: 2, OpenTimeout: time.Minute})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	for i := 0; i < 2; i++ {
		_, err := c.CurrentWeather(ctx, bologna)
		var upstreamErr *weather.UpstreamError
		require.ErrorAs(t, err, &upstreamErr)
		assert.Equal(t, "Canceled", upstreamErr.Name)
		assert.Zero(t, upstreamErr.StatusCode)
		assert.ErrorIs(t, err, context.Canceled)
	}

	got, err := c.CurrentWeather(context.Background(), bologna)
	require.NoError(t, err)
	assert.Equal(t, "Bologna", got.Name)
	assert.Equal(t, int32(1), hits.Load())
}

func TestCanceledInFlightKeepsCauseWithoutItsStatus(t *testing.T) {
	started := make(chan struct{}, 1)
	release := make(chan struct{})
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			started <- struct{}{}
			select {
			case <-release:
			case <-r.Context().Done():
			}
			return
		}
		w.Write([]byte(bolognaCurrent))
	}))
	defer srv.Close()
	defer close(release)

	c := newTestClient(t, srv.URL, BreakerConfig{FailureThreshold: 1, OpenTimeout: time.Minute})

	// A sibling call failed first and canceled this one with its own error.
	sibling := &weather.UpstreamError{Name: "HTTPError", Message: "city not found", StatusCode: http.StatusNotFound}
	ctx, cancel := context.WithCancelCause(context.Background())
	go func() {
		<-started
		cancel(sibling)
	}()

	_, err := c.CurrentWeather(ctx, bologna)
	var upstreamErr *weather.UpstreamError
	require.ErrorAs(t, err, &upstreamErr)
	assert.Equal(t, "Canceled", upstreamErr.Name)
	assert.Zero(t, upstreamErr.StatusCode)
	assert.Equal(t, "request canceled: city not found", upstreamErr.Message)
	assert.ErrorIs(t, err, sibling)
	assert.NotContains(t, upstreamErr.Message, "secret-key")

	_, err = c.CurrentWeather(context.Background(), bologna)
	require.NoError(t, err)
}
