package setting

import (
	"net/url"

	"github.com/go-playground/validator/v10"

	"github.com/minuum/qr-prayer-check/core"
)

var (
	httpURLTag  = "httpurl"
	httpURLText = "{0} must be an http or https URL"
)

func init() {
	_ = core.Validate.RegisterValidation(httpURLTag, httpURLValidation)
	core.RegisterCustomTranslation(core.Validate, core.Translator, httpURLTag, httpURLText)
}

// httpURLValidation only accepts absolute http(s) URLs.
func httpURLValidation(fl validator.FieldLevel) bool {
	u, err := url.Parse(fl.Field().String())
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
