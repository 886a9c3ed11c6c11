package httpapi

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/fiber/v2/utils"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/i474232898/forecast-gateway/internal/weather"
)

const appName = "forecast-gateway"

var tracer = otel.Tracer("github.com/i474232898/forecast-gateway/internal/api/http")

// NewApp builds the Fiber app with middleware, error handling and routes.
func NewApp(service *weather.Service, probes ProbeHistory) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               appName,
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          60 * time.Second,
		UnescapePath:          true,
		ErrorHandler:          ErrorHandler,
	})

	// Global middleware
	app.Use(recover.New())
	app.Use(requestid.New(requestid.Config{
		Generator: uuid.NewString,
	}))
	app.Use(logger.New(logger.Config{
		Format: "${time} ${locals:requestid} ${status} - ${latency} ${method} ${path}\n",
	}))
	app.Use(tracing)

	RegisterRoutes(app, service, probes)
	return app
}

// tracing starts a server span per request and makes it the request's user context.
func tracing(c *fiber.Ctx) error {
	carrier := propagation.HeaderCarrier{}
	c.Request().Header.VisitAll(func(k, v []byte) {
		carrier.Set(string(k), string(v))
	})
	ctx := otel.GetTextMapPropagator().Extract(c.UserContext(), carrier)

	ctx, span := tracer.Start(ctx, c.Method()+" "+c.Path(), trace.WithSpanKind(trace.SpanKindServer))
	defer span.End()
	c.SetUserContext(ctx)

	err := c.Next()

	span.SetAttributes(attribute.String("http.request_id", utils.CopyString(c.GetRespHeader(fiber.HeaderXRequestID))))
	if err != nil {
		// The error handler sets the status after this middleware returns.
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	span.SetAttributes(attribute.Int("http.status_code", c.Response().StatusCode()))
	return nil
}
