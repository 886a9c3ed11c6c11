package weather

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNoCities is returned by grouped aggregation when the registry is empty.
	ErrNoCities = errors.New("no cities registered")
)

// UpstreamError is returned by the upstream client for every failed call.
// StatusCode is zero when the failure happened before a response was received.
type UpstreamError struct {
	Name       string
	Message    string
	StatusCode int
	Err        error
}

func (e *UpstreamError) Error() string {
	return e.Message
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// InvalidCityError reports a city name that is not in the registry.
type InvalidCityError struct {
	Name      string
	Message   string
	Available []string
}

func (e *InvalidCityError) Error() string {
	return e.Message
}

// StatusCode is always 400.
func (e *InvalidCityError) StatusCode() int {
	return 400
}

// NewInvalidCityError lists the available city names in the message.
func NewInvalidCityError(available []string) *InvalidCityError {
	return &InvalidCityError{
		Name:      "Wrong city input",
		Message:   fmt.Sprintf("User has not entered one of the available cities: %s", strings.Join(available, ",")),
		Available: available,
	}
}
