package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"time"

	"github.com/sony/gobreaker"

	"github.com/i474232898/forecast-gateway/internal/weather"
)

// BreakerConfig controls when upstream calls start failing fast.
type BreakerConfig struct {
	// FailureThreshold is the number of consecutive failures that opens the
	// breaker. Zero disables tripping.
	FailureThreshold int
	// OpenTimeout is how long the breaker stays open before probing again.
	OpenTimeout time.Duration
}

var (
	errNoHTTPClient = errors.New("http client not configured")
)

// statusError is a non-2xx upstream response.
type statusError struct {
	code int
	body []byte
}

func (e *statusError) Error() string {
	return fmt.Sprintf("request failed with status code %d", e.code)
}

// canceledError is a call the caller gave up on. It says nothing about the
// upstream's health.
type canceledError struct {
	cause error
}

func (e *canceledError) Error() string {
	return "request canceled: " + e.cause.Error()
}

func newCircuitBreaker(name string, cfg BreakerConfig) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return cfg.FailureThreshold > 0 && counts.ConsecutiveFailures >= uint32(cfg.FailureThreshold)
		},
		// Client errors are the caller's problem, not an unhealthy upstream.
		IsSuccessful: func(err error) bool {
			var ce *canceledError
			if errors.As(err, &ce) {
				return true
			}
			var se *statusError
			if errors.As(err, &se) {
				return se.code < 500 && se.code != http.StatusTooManyRequests
			}
			return err == nil
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Printf("INFO: circuit breaker %s changed from %s to %s", name, from, to)
		},
	})
}

// doRequest executes a single request through the circuit breaker and returns
// the body of a 2xx response. Non-2xx responses are reported as *statusError.
func doRequest(ctx context.Context, client *http.Client, cb *gobreaker.CircuitBreaker, req *http.Request) ([]byte, error) {
	if client == nil {
		return nil, errNoHTTPClient
	}

	if ctx.Err() != nil {
		return nil, &canceledError{cause: context.Cause(ctx)}
	}
	req = req.WithContext(ctx)

	result, err := cb.Execute(func() (interface{}, error) {
		resp, err := client.Do(req)
		if err != nil {
			// The transport error carries the context cause, which in a
			// grouped call may be a sibling's upstream error.
			if ctx.Err() != nil {
				return nil, &canceledError{cause: context.Cause(ctx)}
			}
			return nil, err
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			if ctx.Err() != nil {
				return nil, &canceledError{cause: context.Cause(ctx)}
			}
			return nil, err
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return nil, &statusError{code: resp.StatusCode, body: body}
		}
		return body, nil
	})
	if err != nil {
		return nil, err
	}

	body, ok := result.([]byte)
	if !ok {
		return nil, fmt.Errorf("unexpected result type from circuit breaker")
	}
	return body, nil
}

// toUpstreamError classifies a failed call. StatusCode stays zero when no
// response was received.
func toUpstreamError(err error) *weather.UpstreamError {
	var (
		ce *canceledError
		se *statusError
	)
	switch {
	case errors.As(err, &ce):
		return &weather.UpstreamError{
			Name:    "Canceled",
			Message: ce.Error(),
			Err:     ce.cause,
		}
	case errors.As(err, &se):
		return &weather.UpstreamError{
			Name:       "HTTPError",
			Message:    providerMessage(se),
			StatusCode: se.code,
			Err:        err,
		}
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return &weather.UpstreamError{
			Name:       "CircuitOpen",
			Message:    "upstream temporarily unavailable: " + err.Error(),
			StatusCode: http.StatusServiceUnavailable,
			Err:        err,
		}
	default:
		var syntaxErr *json.SyntaxError
		var typeErr *json.UnmarshalTypeError
		name := "TransportError"
		if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
			name = "DecodeError"
		}
		msg := err.Error()
		// url.Error embeds the request URL, which carries the API key.
		var urlErr *url.Error
		if errors.As(err, &urlErr) {
			msg = urlErr.Err.Error()
		}
		return &weather.UpstreamError{
			Name:    name,
			Message: msg,
			Err:     err,
		}
	}
}

// providerMessage prefers the "message" field of the provider's error body.
func providerMessage(se *statusError) string {
	var payload struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(se.body, &payload); err == nil && payload.Message != "" {
		return payload.Message
	}
	return se.Error()
}
