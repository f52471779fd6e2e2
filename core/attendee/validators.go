package attendee

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/pmezard/go-difflib/difflib"

	"github.com/minuum/qr-prayer-check/core"
)

var (
	nameTag  = "attendeename"
	nameText = fmt.Sprintf("{0} must contain at most %d characters", nameMaxLen)

	// DefaultSimilarity is the name similarity above which two attendees sharing a phone are reported.
	DefaultSimilarity = .7
)

func init() {
	_ = core.Validate.RegisterValidation(nameTag, nameValidation)
	core.RegisterCustomTranslation(core.Validate, core.Translator, nameTag, nameText)
}

func nameValidation(fl validator.FieldLevel) bool {
	return validName(fl.Field().String())
}

// NameSimilarity compares names rune by rune, ignoring spaces and case.
func NameSimilarity(a, b string) float64 {
	a = strings.ToLower(strings.Join(strings.Fields(a), ""))
	b = strings.ToLower(strings.Join(strings.Fields(b), ""))
	if a == "" || b == "" {
		return 0
	}
	return difflib.NewMatcher(strings.Split(a, ""), strings.Split(b, "")).QuickRatio()
}
