package echoapi

import (
	"bytes"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/minuum/qr-prayer-check/core"
	"github.com/minuum/qr-prayer-check/core/attendance"
	metricsvc "github.com/minuum/qr-prayer-check/services/metrics"
)

type attendanceApi struct {
	svc     *attendance.Service
	conf    *core.Config
	metrics *metricsvc.Metrics
}

func registerAttendanceAPI(g, admin *echo.Group, limit echo.MiddlewareFunc, opts Options) {
	api := attendanceApi{svc: opts.AttendanceSvc, conf: opts.Conf, metrics: opts.Metrics}

	g.POST("/check-in", api.checkIn, limit)

	admin.POST("/check-in/scan", api.scan)

	lg := admin.Group("/logs")
	lg.GET("", api.queryLogs)
	lg.GET("/today", api.todayLogs)
	lg.GET("/export", api.export)
	lg.DELETE("", api.clearHistory)
	lg.DELETE("/:id", api.destroyLog)

	admin.GET("/rankings", api.rankings)
	admin.GET("/stats/daily", api.dailyStats)
	admin.GET("/report", api.report)
	admin.POST("/report/email", api.emailReport)
}

func (api *attendanceApi) countCheckIn(res attendance.CheckInResult, err error) {
	if api.metrics == nil {
		return
	}
	var result string
	switch cause := errors.Cause(err).(type) {
	case nil:
		result = metricsvc.ResultCheckedIn
		if res.AlreadyChecked {
			result = metricsvc.ResultAlreadyChecked
		}
	case *core.GateError:
		result = metricsvc.ResultRejected
	case validator.ValidationErrors, *core.ValidationError:
		result = metricsvc.ResultInvalid
	default:
		if core.IsNotFound(cause) {
			result = metricsvc.ResultInvalid
		} else {
			result = metricsvc.ResultError
		}
	}
	api.metrics.CountCheckIn(result)
}

// Handlers

func (api *attendanceApi) checkIn(ctx echo.Context) error {
	var data attendance.CheckIn
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to CheckIn")
	}
	res, err := api.svc.CheckIn(ctx.Request().Context(), data)
	api.countCheckIn(res, err)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, res)
}

func (api *attendanceApi) scan(ctx echo.Context) error {
	var data attendance.ScanCheckIn
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ScanCheckIn")
	}
	res, err := api.svc.ScanCheckIn(ctx.Request().Context(), data)
	api.countCheckIn(res, err)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, res)
}

func (api *attendanceApi) bindFilter(ctx echo.Context) (*attendance.QueryFilter, error) {
	filter := new(attendance.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return nil, core.NewValidationError(err, core.FieldError{Field: "query", Error: "invalid query parameters"})
	}
	// same YYYY-MM-DD days as the rollups, `to` included
	from, to, err := bindPeriod(ctx, api.conf.Location(), nil)
	if err != nil {
		return nil, err
	}
	filter.From, filter.To = attendance.PeriodRange(from, to, api.conf.Location())
	return filter, nil
}

func (api *attendanceApi) queryLogs(ctx echo.Context) error {
	filter, err := api.bindFilter(ctx)
	if err != nil {
		return err
	}
	page, err := bindPage(ctx)
	if err != nil {
		return err
	}
	ordering := new(Ordering)
	ordering.Bind(ctx)

	logs, n, err := api.svc.QueryLogs(ctx.Request().Context(), filter, ordering.Orderings, page)
	if err != nil {
		return errors.Wrap(err, "querying logs")
	}
	if logs == nil {
		logs = []attendance.Log{}
	}
	return ctx.JSON(http.StatusOK, ListResponse{Count: n, Results: logs})
}

func (api *attendanceApi) todayLogs(ctx echo.Context) error {
	limit, err := intParam(ctx, "limit", attendance.DefaultTodayLimit)
	if err != nil {
		return err
	}
	logs, n, err := api.svc.TodayLogs(ctx.Request().Context(), limit)
	if err != nil {
		return errors.Wrap(err, "querying today's logs")
	}
	if logs == nil {
		logs = []attendance.Log{}
	}
	return ctx.JSON(http.StatusOK, ListResponse{Count: n, Results: logs})
}

func (api *attendanceApi) export(ctx echo.Context) error {
	filter, err := api.bindFilter(ctx)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := api.svc.ExportCSV(ctx.Request().Context(), filter, &buf); err != nil {
		return err
	}

	fname := "attendance_" + time.Now().In(api.conf.Location()).Format("20060102") + ".csv"
	ctx.Response().Header().Set(echo.HeaderContentDisposition, "attachment; filename="+fname)
	return ctx.Blob(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}

func (api *attendanceApi) destroyLog(ctx echo.Context) error {
	id, err := strconv.ParseInt(ctx.Param("id"), 10, 64)
	if err != nil {
		return errHttpNotFound
	}
	if err := api.svc.DeleteLog(ctx.Request().Context(), id); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *attendanceApi) clearHistory(ctx echo.Context) error {
	n, err := api.svc.ClearHistory(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "clearing history")
	}
	return ctx.JSON(http.StatusOK, DeleteResponse{Deleted: n})
}

func (api *attendanceApi) rankings(ctx echo.Context) error {
	from, to, err := bindPeriod(ctx, api.conf.Location(), api.svc.DefaultPeriod)
	if err != nil {
		return err
	}
	limit, err := intParam(ctx, "limit", 0)
	if err != nil {
		return err
	}
	ranks, err := api.svc.Rankings(ctx.Request().Context(), from, to, limit)
	if err != nil {
		return errors.Wrap(err, "ranking attendees")
	}
	return ctx.JSON(http.StatusOK, ranks)
}

func (api *attendanceApi) dailyStats(ctx echo.Context) error {
	from, to, err := bindPeriod(ctx, api.conf.Location(), api.svc.DefaultPeriod)
	if err != nil {
		return err
	}
	counts, err := api.svc.DailyCounts(ctx.Request().Context(), from, to)
	if err != nil {
		return errors.Wrap(err, "counting daily attendance")
	}
	return ctx.JSON(http.StatusOK, counts)
}

func (api *attendanceApi) buildReport(ctx echo.Context) (attendance.Report, error) {
	from, to, err := bindPeriod(ctx, api.conf.Location(), api.svc.DefaultPeriod)
	if err != nil {
		return attendance.Report{}, err
	}
	top, err := intParam(ctx, "top", 0)
	if err != nil {
		return attendance.Report{}, err
	}
	return api.svc.BuildReport(ctx.Request().Context(), from, to, top)
}

func (api *attendanceApi) report(ctx echo.Context) error {
	rep, err := api.buildReport(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, rep)
}

func (api *attendanceApi) emailReport(ctx echo.Context) error {
	var data EmailReportRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to EmailReportRequest")
	}
	if err := core.Validate.Struct(data); err != nil {
		return err
	}
	rep, err := api.buildReport(ctx)
	if err != nil {
		return err
	}
	if err := api.svc.SendReport(ctx.Request().Context(), rep, data.Emails...); err != nil {
		if errors.Is(err, attendance.ErrNoRecipients) {
			return core.NewValidationError(err, core.FieldError{Field: "emails", Error: "no recipients configured"})
		}
		return err
	}
	return ctx.JSON(http.StatusAccepted, rep)
}

type EmailReportRequest struct {
	Emails []string `json:"emails" validate:"omitempty,dive,email"`
}
