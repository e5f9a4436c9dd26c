package core

import (
	"reflect"
	"regexp"
	"strings"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
)

var (
	// custom validation tags & texts
	nationalIDTag   = "nationalid"
	nationalIDText  = "{0} must be exactly 13 digits"
	nationalIDRegex = regexp.MustCompile(`^\d{13}$`)

	examUnitTag   = "examunit"
	examUnitText  = "{0} must be 1 or 2 digits"
	examUnitRegex = regexp.MustCompile(`^\d{1,2}$`)

	requiredTag     = "required"
	requiredWithTag = "required_with"
	requiredText    = "this field is required"
)

// InitValidators instantiates the validator for use.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = en_translations.RegisterDefaultTranslations(validate, translator)

	// Use JSON tag names for errors instead of Go struct names.
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	// register custom validators
	_ = validate.RegisterValidation(nationalIDTag, nationalIDValidation)
	RegisterCustomTranslation(validate, translator, nationalIDTag, nationalIDText)

	_ = validate.RegisterValidation(examUnitTag, examUnitValidation)
	RegisterCustomTranslation(validate, translator, examUnitTag, examUnitText)

	RegisterCustomTranslation(validate, translator, requiredTag, requiredText, true)
	RegisterCustomTranslation(validate, translator, requiredWithTag, requiredText, true)
}

// RegisterCustomTranslation registers a custom translation for the specified validation tag.
func RegisterCustomTranslation(validate *validator.Validate, translator ut.Translator, tag, text string, override ...bool) {
	var ovrd bool
	if len(override) > 0 {
		ovrd = override[0]
	}
	_ = validate.RegisterTranslation(
		tag, translator,
		func(t ut.Translator) error { return t.Add(tag, text, ovrd) },
		func(t ut.Translator, fe validator.FieldError) string {
			s, _ := t.T(tag, fe.Field())
			return s
		},
	)
}

// Custom Global Validators

// nationalIDValidation accepts 13 digits, spaces and dashes are ignored.
func nationalIDValidation(fl validator.FieldLevel) bool {
	return nationalIDRegex.MatchString(CleanDigits(fl.Field().String()))
}

func examUnitValidation(fl validator.FieldLevel) bool {
	return examUnitRegex.MatchString(fl.Field().String())
}
