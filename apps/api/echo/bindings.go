package echoapi

import (
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/minuum/qr-prayer-check/core"
	"github.com/minuum/qr-prayer-check/core/attendance"
)

var orderingParam = "ordering"

type Ordering struct {
	Orderings []core.DBOrdering
}

func (ord *Ordering) Bind(ctx echo.Context) {
	data := ctx.QueryParams()
	if len(data) == 0 {
		return
	}
	val, ok := data[orderingParam]
	if !ok || len(val) == 0 || val[0] == "" {
		return
	}

	for _, field := range strings.Split(val[0], ",") {
		field = strings.TrimSpace(field)
		descending := strings.HasPrefix(field, "-")
		if descending {
			field = field[1:] // drop "-"
		}
		if field == "" {
			continue
		}
		ord.Orderings = append(ord.Orderings, core.DBOrdering{Field: field, Ascending: !descending})
	}
}

// intParam returns the query parameter `name` as an int, or `fallback` when it is absent.
func intParam(ctx echo.Context, name string, fallback int) (int, error) {
	val := ctx.QueryParam(name)
	if val == "" {
		return fallback, nil
	}
	i, err := strconv.Atoi(val)
	if err != nil || i < 0 {
		return 0, core.NewValidationError(err, core.FieldError{Field: name, Error: name + " must be a positive integer"})
	}
	return i, nil
}

func floatParam(ctx echo.Context, name string, fallback float64) (float64, error) {
	val := ctx.QueryParam(name)
	if val == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return 0, core.NewValidationError(err, core.FieldError{Field: name, Error: name + " must be a number"})
	}
	return f, nil
}

// bindPage reads `limit` and `offset`.
func bindPage(ctx echo.Context) (core.Page, error) {
	limit, err := intParam(ctx, "limit", core.DefaultPageLimit)
	if err != nil {
		return core.Page{}, err
	}
	offset, err := intParam(ctx, "offset", 0)
	if err != nil {
		return core.Page{}, err
	}
	return core.Page{Limit: limit, Offset: offset}.Clean(), nil
}

// dateParam parses a YYYY-MM-DD query parameter in loc. An absent parameter is the zero time.
func dateParam(ctx echo.Context, name string, loc *time.Location) (time.Time, error) {
	val := strings.TrimSpace(ctx.QueryParam(name))
	if val == "" {
		return time.Time{}, nil
	}
	day, err := attendance.ParseDate(val, loc)
	if err != nil {
		return time.Time{}, core.NewValidationError(err, core.FieldError{Field: name, Error: name + " must be formatted as YYYY-MM-DD"})
	}
	return day, nil
}

// bindPeriod reads the `from` and `to` days. Both default to `fallback` when absent.
func bindPeriod(ctx echo.Context, loc *time.Location, fallback func() (time.Time, time.Time)) (time.Time, time.Time, error) {
	from, err := dateParam(ctx, "from", loc)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	to, err := dateParam(ctx, "to", loc)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	if from.IsZero() && to.IsZero() && fallback != nil {
		from, to = fallback()
	}
	if !from.IsZero() && !to.IsZero() && to.Before(from) {
		return time.Time{}, time.Time{}, core.NewValidationError(nil, core.FieldError{Field: "to", Error: "to must not be before from"})
	}
	return from, to, nil
}

type (
	ListResponse struct {
		Count   int         `json:"count"`
		Results interface{} `json:"results"`
	}

	DeleteResponse struct {
		Deleted int64 `json:"deleted"`
	}
)
