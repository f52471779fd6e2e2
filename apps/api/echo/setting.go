package echoapi

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/minuum/qr-prayer-check/core"
	"github.com/minuum/qr-prayer-check/core/setting"
	qrsvc "github.com/minuum/qr-prayer-check/services/qrcode"
)

const checkInPath = "/check-in"

type settingApi struct {
	svc *setting.Service
	qr  *qrsvc.Encoder
}

func registerSettingAPI(g, admin *echo.Group, svc *setting.Service, qr *qrsvc.Encoder) {
	api := settingApi{svc: svc, qr: qr}

	g.GET("/settings/public", api.public)

	admin.GET("/settings", api.retrieve)
	admin.PUT("/settings", api.update)
	admin.POST("/settings/session", api.setSession)
	admin.GET("/qr", api.entryQR)
}

func (api *settingApi) public(ctx echo.Context) error {
	pub, err := api.svc.Public(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "loading public settings")
	}
	return ctx.JSON(http.StatusOK, pub)
}

func (api *settingApi) retrieve(ctx echo.Context) error {
	st, err := api.svc.Get(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "loading settings")
	}
	return ctx.JSON(http.StatusOK, st)
}

func (api *settingApi) update(ctx echo.Context) error {
	var data setting.UpdateSettings
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateSettings")
	}
	st, err := api.svc.Update(ctx.Request().Context(), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, st)
}

func (api *settingApi) setSession(ctx echo.Context) error {
	var data SessionRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to SessionRequest")
	}
	if err := core.Validate.Struct(data); err != nil {
		return err
	}
	st, err := api.svc.SetSessionActive(ctx.Request().Context(), *data.Active)
	if err != nil {
		return errors.Wrap(err, "toggling session")
	}
	return ctx.JSON(http.StatusOK, st)
}

// entryQR renders the QR code of the check-in page.
// The base URL comes from the `url` query parameter, then the settings, then the request itself.
func (api *settingApi) entryQR(ctx echo.Context) error {
	size, err := intParam(ctx, "size", qrsvc.EntrySize)
	if err != nil {
		return err
	}

	base := strings.TrimSpace(ctx.QueryParam("url"))
	if base != "" {
		if u, err := url.Parse(base); err != nil || !(u.Scheme == "http" || u.Scheme == "https") || u.Host == "" {
			return core.NewValidationError(err, core.FieldError{Field: "url", Error: "url must be an http(s) URL"})
		}
	} else {
		st, err := api.svc.Get(ctx.Request().Context())
		if err != nil {
			return errors.Wrap(err, "loading settings")
		}
		base = st.CheckInBaseURL
	}
	if base == "" {
		base = ctx.Scheme() + "://" + ctx.Request().Host
	}

	png, err := api.qr.PNG(strings.TrimRight(base, "/")+checkInPath, size)
	if err != nil {
		return errors.Wrap(err, "rendering entry QR")
	}
	return ctx.Blob(http.StatusOK, "image/png", png)
}

type SessionRequest struct {
	Active *bool `json:"active" validate:"required"`
}
