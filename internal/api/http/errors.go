package httpapi

import (
	"errors"
	"log"

	"github.com/gofiber/fiber/v2"

	"github.com/i474232898/forecast-gateway/internal/weather"
)

// statusNoUpstreamStatus is used when an upstream failure carried no status code.
const statusNoUpstreamStatus = fiber.StatusNotImplemented

// ErrorHandler renders every error as a plain-text body holding the error
// message. Success responses are JSON; errors are not.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError

	var (
		invalidCity *weather.InvalidCityError
		upstreamErr *weather.UpstreamError
		fiberErr    *fiber.Error
	)
	switch {
	case errors.As(err, &invalidCity):
		code = invalidCity.StatusCode()
	case errors.As(err, &upstreamErr):
		code = upstreamErr.StatusCode
		if code == 0 {
			code = statusNoUpstreamStatus
		}
	case errors.As(err, &fiberErr):
		code = fiberErr.Code
	default:
		log.Printf("ERROR: unhandled error on %s %s: %v", c.Method(), c.Path(), err)
	}

	c.Set(fiber.HeaderContentType, fiber.MIMETextPlainCharsetUTF8)
	return c.Status(code).SendString(err.Error())
}
