package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/minuum/qr-prayer-check/core"
	"github.com/minuum/qr-prayer-check/core/attendance"
	"github.com/minuum/qr-prayer-check/core/attendee"
	qrsvc "github.com/minuum/qr-prayer-check/services/qrcode"
)

const ctxAttendeeKey = "object"

var errAttendeeNotFoundInCtx = errors.New("attendee object not found in echo.Context")

type attendeeApi struct {
	svc         *attendee.Service
	attendances *attendance.Service
	qr          *qrsvc.Encoder
}

func registerAttendeeAPI(g, admin *echo.Group, limit echo.MiddlewareFunc, opts Options) {
	api := attendeeApi{svc: opts.AttendeeSvc, attendances: opts.AttendanceSvc, qr: opts.QR}

	g.POST("/attendees/register", api.register, limit)
	g.GET("/attendees/:id/pass", api.pass)

	ag := admin.Group("/attendees")
	ag.GET("", api.query)
	ag.DELETE("", api.destroyMultiple)
	ag.GET("/duplicates", api.duplicates)

	// detail endpoints
	dg := ag.Group("/:id", api.objectMiddleware)
	dg.GET("", api.retrieve)
	dg.PUT("", api.update)
	dg.DELETE("", api.destroy)
}

// objectMiddleware loads the attendee named by the :id path parameter into the context.
func (api *attendeeApi) objectMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		att, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
		if err != nil {
			if core.IsNotFound(err) {
				return errHttpNotFound
			}
			return errors.Wrap(err, "finding attendee by ID")
		}
		ctx.Set(ctxAttendeeKey, att)
		return next(ctx)
	}
}

// Handlers

func (api *attendeeApi) register(ctx echo.Context) error {
	var data attendee.NewAttendee
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewAttendee")
	}
	att, err := api.svc.Register(ctx.Request().Context(), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, att)
}

func (api *attendeeApi) pass(ctx echo.Context) error {
	att, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		if core.IsNotFound(err) {
			return errHttpNotFound
		}
		return errors.Wrap(err, "finding attendee by ID")
	}
	png, err := api.qr.PNG(att.ID, qrsvc.PassSize)
	if err != nil {
		return errors.Wrap(err, "rendering pass")
	}
	return ctx.Blob(http.StatusOK, "image/png", png)
}

func (api *attendeeApi) query(ctx echo.Context) error {
	filter := new(attendee.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return core.NewValidationError(err, core.FieldError{Field: "query", Error: "invalid query parameters"})
	}
	page, err := bindPage(ctx)
	if err != nil {
		return err
	}
	ordering := new(Ordering)
	ordering.Bind(ctx)

	atts, n, err := api.svc.Query(ctx.Request().Context(), filter, ordering.Orderings, page)
	if err != nil {
		return errors.Wrap(err, "querying attendees")
	}
	if atts == nil {
		atts = []attendee.Attendee{}
	}
	return ctx.JSON(http.StatusOK, ListResponse{Count: n, Results: atts})
}

func (api *attendeeApi) duplicates(ctx echo.Context) error {
	threshold, err := floatParam(ctx, "threshold", attendee.DefaultSimilarity)
	if err != nil {
		return err
	}
	dups, err := api.svc.Duplicates(ctx.Request().Context(), threshold)
	if err != nil {
		return errors.Wrap(err, "finding duplicates")
	}
	return ctx.JSON(http.StatusOK, dups)
}

func (api *attendeeApi) retrieve(ctx echo.Context) error {
	att, ok := ctx.Get(ctxAttendeeKey).(attendee.Attendee)
	if !ok {
		return errors.Wrap(errAttendeeNotFoundInCtx, "retrieving object from context")
	}
	stats, err := api.attendances.AttendeeStats(ctx.Request().Context(), att.ID)
	if err != nil {
		return errors.Wrap(err, "computing attendee stats")
	}
	return ctx.JSON(http.StatusOK, AttendeeDetail{Attendee: att, Stats: stats})
}

func (api *attendeeApi) update(ctx echo.Context) error {
	att, ok := ctx.Get(ctxAttendeeKey).(attendee.Attendee)
	if !ok {
		return errors.Wrap(errAttendeeNotFoundInCtx, "retrieving object from context")
	}
	var data attendee.UpdateAttendee
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateAttendee")
	}
	att, err := api.svc.Update(ctx.Request().Context(), att.ID, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, att)
}

func (api *attendeeApi) destroy(ctx echo.Context) error {
	att, ok := ctx.Get(ctxAttendeeKey).(attendee.Attendee)
	if !ok {
		return errors.Wrap(errAttendeeNotFoundInCtx, "retrieving object from context")
	}
	if err := api.svc.Delete(ctx.Request().Context(), att.ID); err != nil {
		return errors.Wrap(err, "deleting attendee")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *attendeeApi) destroyMultiple(ctx echo.Context) error {
	var query DestroyMultipleRequest
	if err := ctx.Bind(&query); err != nil {
		return errors.Wrap(err, "binding to DestroyMultipleRequest")
	}
	if len(query.IDs) == 0 {
		return ctx.NoContent(http.StatusNoContent)
	}
	if err := api.svc.Delete(ctx.Request().Context(), query.IDs...); err != nil {
		return errors.Wrap(err, "deleting attendees")
	}
	return ctx.NoContent(http.StatusNoContent)
}

type (
	AttendeeDetail struct {
		Attendee attendee.Attendee `json:"attendee"`
		Stats    attendee.Stats    `json:"stats"`
	}

	DestroyMultipleRequest struct {
		IDs []string `query:"id"`
	}
)
