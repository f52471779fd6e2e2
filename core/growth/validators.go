package growth

import (
	"github.com/go-playground/validator/v10"

	"github.com/minuum/qr-prayer-check/core"
)

var (
	bibleTag     = "bible"
	bibleText    = "{0} must be one of 20, 15, 10 or 5"
	bibleChoices = []int{20, 15, 10, 5}

	prayerTag     = "prayer"
	prayerText    = "{0} must be one of 15, 8 or 0"
	prayerChoices = []int{15, 8, 0}

	gradeTag     = "grade"
	gradeText    = "{0} must be one of 10, 7 or 3"
	gradeChoices = []int{10, 7, 3}
)

func init() {
	registerChoice(bibleTag, bibleText, bibleChoices)
	registerChoice(prayerTag, prayerText, prayerChoices)
	registerChoice(gradeTag, gradeText, gradeChoices)
}

func registerChoice(tag, text string, choices []int) {
	_ = core.Validate.RegisterValidation(tag, choiceValidation(choices))
	core.RegisterCustomTranslation(core.Validate, core.Translator, tag, text)
}

// choiceValidation accepts integers found in choices.
func choiceValidation(choices []int) validator.Func {
	return func(fl validator.FieldLevel) bool {
		val := int(fl.Field().Int())
		for _, c := range choices {
			if val == c {
				return true
			}
		}
		return false
	}
}
