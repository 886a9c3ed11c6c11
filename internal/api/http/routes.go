package httpapi

import (
	"errors"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"

	"github.com/i474232898/forecast-gateway/internal/store"
	"github.com/i474232898/forecast-gateway/internal/weather"
)

var validate = validator.New()

// ProbeHistory is the read side of the upstream probe store.
type ProbeHistory interface {
	Latest() (store.ProbeResult, error)
	Range(from, to time.Time) ([]store.ProbeResult, error)
}

// cityRequest is the POST body of the single-city endpoints. CityName is
// loose so that a non-string value binds as no city at all.
type cityRequest struct {
	CityName any `json:"cityName"`
}

func (r cityRequest) city() string {
	name, _ := r.CityName.(string)
	return name
}

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, service *weather.Service, probes ProbeHistory) {
	app.Get("/", func(c *fiber.Ctx) error {
		return c.SendString("Root endpoint")
	})

	app.Get("/health", func(c *fiber.Ctx) error {
		resp := fiber.Map{
			"status":  "ok",
			"service": "forecast-gateway",
		}
		if latest, err := probes.Latest(); err == nil {
			resp["lastProbe"] = latest
		}
		return c.JSON(resp)
	})

	app.Get("/health/probes", func(c *fiber.Ctx) error {
		var req historyQuery
		if err := req.bind(c); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		results, err := probes.Range(req.From, req.To)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return fiber.NewError(fiber.StatusNotFound, "no probe results for requested range")
			}
			return fiber.NewError(fiber.StatusInternalServerError, "failed to read probe history")
		}

		return c.JSON(fiber.Map{
			"from":    req.From,
			"to":      req.To,
			"results": results,
		})
	})

	forecast := app.Group("/forecast")

	current := func(c *fiber.Ctx, cityName string) error {
		cw, err := service.GetCurrent(c.UserContext(), cityName)
		if err != nil {
			return err
		}
		return c.JSON(cw)
	}
	forecast.Get("/today", func(c *fiber.Ctx) error {
		return current(c, utils.CopyString(c.Query("cityName")))
	})
	forecast.Post("/today", func(c *fiber.Ctx) error {
		req, err := bindCityRequest(c)
		if err != nil {
			return err
		}
		return current(c, req.city())
	})
	forecast.Get("/today/:cityName", func(c *fiber.Ctx) error {
		return current(c, utils.CopyString(c.Params("cityName")))
	})

	fiveDays := func(c *fiber.Ctx, cityName string) error {
		fc, err := service.GetFiveDayForecast(c.UserContext(), cityName)
		if err != nil {
			return err
		}
		return c.JSON(fc)
	}
	forecast.Get("/five-days", func(c *fiber.Ctx) error {
		return fiveDays(c, utils.CopyString(c.Query("cityName")))
	})
	forecast.Post("/five-days", func(c *fiber.Ctx) error {
		req, err := bindCityRequest(c)
		if err != nil {
			return err
		}
		return fiveDays(c, req.city())
	})
	forecast.Get("/five-days/:cityName", func(c *fiber.Ctx) error {
		return fiveDays(c, utils.CopyString(c.Params("cityName")))
	})

	grouped := func(c *fiber.Ctx) error {
		g, err := service.GetGrouped(c.UserContext())
		if err != nil {
			return err
		}
		return c.JSON(g)
	}
	forecast.Get("/grouped", grouped)
	forecast.Post("/grouped", grouped)
}

// bindCityRequest parses a JSON body. Any other content type, like an empty
// body, binds an empty city name, which the service rejects as an invalid city.
func bindCityRequest(c *fiber.Ctx) (cityRequest, error) {
	var req cityRequest
	if len(c.Body()) == 0 || !c.Is("json") {
		return req, nil
	}
	if err := c.BodyParser(&req); err != nil {
		return req, fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	return req, nil
}

// historyQuery holds query parameters for the probe history endpoint.
type historyQuery struct {
	From time.Time `validate:"required"`
	To   time.Time `validate:"required,gtefield=From"`
}

func (h *historyQuery) bind(c *fiber.Ctx) error {
	fromStr := c.Query("from")
	toStr := c.Query("to")
	if fromStr == "" || toStr == "" {
		return errors.New("from and to query parameters are required")
	}

	from, err := parseTime(fromStr)
	if err != nil {
		return err
	}
	to, err := parseTime(toStr)
	if err != nil {
		return err
	}

	h.From = from
	h.To = to
	return nil
}

// parseTime tries to parse either RFC3339 or Unix seconds.
func parseTime(s string) (time.Time, error) {
	if ts, err := time.Parse(time.RFC3339, s); err == nil {
		return ts, nil
	}
	if unix, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(unix, 0).UTC(), nil
	}
	return time.Time{}, errors.New("invalid time format; use RFC3339 or unix seconds")
}
