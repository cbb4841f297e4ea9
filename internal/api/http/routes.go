package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/i474232898/forecast-drift/internal/diff"
	"github.com/i474232898/forecast-drift/internal/forecast"
	"github.com/i474232898/forecast-drift/internal/store"
	"github.com/i474232898/forecast-drift/internal/weather"
)

var validate = validator.New()

// Service is what the HTTP layer needs from weather.Service.
type Service interface {
	Refresh(ctx context.Context, loc forecast.Location, mode diff.Mode) (weather.RefreshResult, error)
	Compare(ctx context.Context, locationID string, mode diff.Mode) (diff.Result, error)
	CompareSnapshots(previous, current *forecast.Snapshot, mode diff.Mode) diff.Result
	Snapshots(ctx context.Context, locationID string, limit int) ([]forecast.Snapshot, error)
	Latest(ctx context.Context, locationID string) (forecast.Snapshot, error)
	History(ctx context.Context, locationID string, from, to time.Time) ([]forecast.Snapshot, error)
	SearchLocations(ctx context.Context, query string) ([]forecast.Location, error)
	ApplyRetention(ctx context.Context, limit int) error
	Settings() weather.Settings
}

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, service Service) {
	v1 := app.Group("/api/v1")

	v1.Get("/locations/search", func(c *fiber.Ctx) error {
		q := searchQuery{Query: c.Query("q")}
		if err := validate.Struct(q); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		locs, err := service.SearchLocations(c.UserContext(), q.Query)
		if err != nil {
			if errors.Is(err, weather.ErrNoGeocoder) {
				return fiber.NewError(fiber.StatusServiceUnavailable, err.Error())
			}
			return fiber.NewError(fiber.StatusBadGateway, "location search failed")
		}
		return c.JSON(fiber.Map{"query": q.Query, "results": locs})
	})

	v1.Get("/forecast/latest", func(c *fiber.Ctx) error {
		loc, err := parseLocationQuery(c)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		snapshot, err := service.Latest(c.UserContext(), loc.ID)
		if err != nil {
			return storeError(err, "no forecast snapshot for requested location")
		}
		return c.JSON(snapshot)
	})

	v1.Get("/forecast/snapshots", func(c *fiber.Ctx) error {
		loc, err := parseLocationQuery(c)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		q := limitQuery{Limit: c.QueryInt("limit", store.MaxRetention)}
		if err := validate.Struct(q); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		snaps, err := service.Snapshots(c.UserContext(), loc.ID, q.Limit)
		if err != nil {
			return storeError(err, "no forecast snapshots for requested location")
		}
		return c.JSON(fiber.Map{"locationId": loc.ID, "snapshots": snaps})
	})

	v1.Get("/forecast/history", func(c *fiber.Ctx) error {
		var req historyQuery
		if err := req.bind(c); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		loc := req.Location.toLocation()
		snaps, err := service.History(c.UserContext(), loc.ID, req.From, req.To)
		if err != nil {
			return storeError(err, "no forecast history for requested range")
		}
		return c.JSON(fiber.Map{
			"locationId": loc.ID,
			"from":       req.From,
			"to":         req.To,
			"snapshots":  snaps,
		})
	})

	v1.Get("/forecast/diff", func(c *fiber.Ctx) error {
		loc, err := parseLocationQuery(c)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		mode, err := parseMode(c.Query("mode"), service.Settings().Mode)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		result, err := service.Compare(c.UserContext(), loc.ID, mode)
		if err != nil {
			return storeError(err, "no forecast snapshots for requested location")
		}
		return c.JSON(result)
	})

	v1.Post("/forecast/refresh", func(c *fiber.Ctx) error {
		loc, err := parseLocationQuery(c)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		mode, err := parseMode(c.Query("mode"), service.Settings().Mode)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if name := c.Query("name"); name != "" {
			loc.Name = name
		}
		result, err := service.Refresh(c.UserContext(), loc, mode)
		if err != nil {
			if errors.Is(err, weather.ErrForecastUnavailable) {
				return fiber.NewError(fiber.StatusBadGateway, err.Error())
			}
			return fiber.NewError(fiber.StatusInternalServerError, "failed to refresh forecast")
		}
		return c.JSON(result)
	})

	// Changing the retention limit re-trims every stored location right away.
	v1.Put("/settings/retention", func(c *fiber.Ctx) error {
		q := retentionQuery{Limit: c.QueryInt("limit", 0)}
		if err := validate.Struct(q); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "limit query parameter is required")
		}
		limit := store.ClampRetention(q.Limit)
		if err := service.ApplyRetention(c.UserContext(), limit); err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "failed to apply retention")
		}
		return c.JSON(fiber.Map{"retentionLimit": limit})
	})

	v1.Post("/diff", func(c *fiber.Ctx) error {
		var req compareRequest
		if err := json.Unmarshal(c.Body(), &req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid JSON body")
		}
		mode, err := parseMode(req.Mode, service.Settings().Mode)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		previous, err := decodeOptionalSnapshot(req.Previous)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "previous: "+err.Error())
		}
		current, err := decodeOptionalSnapshot(req.Current)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "current: "+err.Error())
		}
		return c.JSON(service.CompareSnapshots(previous, current, mode))
	})
}

func storeError(err error, notFound string) error {
	if errors.Is(err, store.ErrNotFound) {
		return fiber.NewError(fiber.StatusNotFound, notFound)
	}
	return fiber.NewError(fiber.StatusInternalServerError, "failed to read forecast snapshots")
}

// compareRequest is the body of POST /diff. Either snapshot may be null.
type compareRequest struct {
	Previous json.RawMessage `json:"previous"`
	Current  json.RawMessage `json:"current"`
	Mode     string          `json:"mode"`
}

func decodeOptionalSnapshot(raw json.RawMessage) (*forecast.Snapshot, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	snap, err := forecast.DecodeSnapshot(raw)
	if err != nil {
		return nil, err
	}
	return &snap, nil
}

func parseMode(raw string, def diff.Mode) (diff.Mode, error) {
	if raw == "" {
		return def, nil
	}
	return diff.ParseMode(raw)
}

type searchQuery struct {
	Query string `validate:"required,min=2,max=100"`
}

type retentionQuery struct {
	Limit int `validate:"required"`
}

type limitQuery struct {
	Limit int `validate:"min=1,max=50"`
}

// locationQuery holds query parameters for identifying a location.
type locationQuery struct {
	Lat float64 `validate:"latitude"`
	Lon float64 `validate:"longitude"`
}

func (l locationQuery) toLocation() forecast.Location {
	return forecast.NewLocation(forecast.CoordinateLabel(l.Lat, l.Lon), l.Lat, l.Lon, "api")
}

func parseLocationQuery(c *fiber.Ctx) (forecast.Location, error) {
	q, err := bindLocation(c)
	if err != nil {
		return forecast.Location{}, err
	}
	return q.toLocation(), nil
}

func bindLocation(c *fiber.Ctx) (locationQuery, error) {
	var q locationQuery

	latStr, lonStr := c.Query("lat"), c.Query("lon")
	if latStr == "" || lonStr == "" {
		return q, errors.New("lat and lon query parameters are required")
	}
	lat, err := strconv.ParseFloat(latStr, 64)
	if err != nil {
		return q, errors.New("lat must be a number")
	}
	lon, err := strconv.ParseFloat(lonStr, 64)
	if err != nil {
		return q, errors.New("lon must be a number")
	}
	q.Lat, q.Lon = lat, lon

	if err := validate.Struct(q); err != nil {
		return q, err
	}
	return q, nil
}

// historyQuery holds query parameters for the history endpoint.
type historyQuery struct {
	Location locationQuery
	From     time.Time `validate:"required"`
	To       time.Time `validate:"required,gtefield=From"`
}

func (h *historyQuery) bind(c *fiber.Ctx) error {
	loc, err := bindLocation(c)
	if err != nil {
		return err
	}
	h.Location = loc

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
		return ts.UTC(), nil
	}
	if unix, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(unix, 0).UTC(), nil
	}
	return time.Time{}, errors.New("invalid time format; use RFC3339 or unix seconds")
}
