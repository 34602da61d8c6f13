package http

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"

	"entrepreneursim/internal/domain"
)

// custom validation tags
const (
	notBlankTag = "notblank"
	industryTag = "industry"
)

// FormValidator validates bound forms and renders field errors in English.
// It satisfies echo.Validator.
type FormValidator struct {
	validate   *validator.Validate
	translator ut.Translator
}

// NewFormValidator creates a validator that reports fields by their form names
func NewFormValidator() *FormValidator {
	v := validator.New()

	_en := en.New()
	uni := ut.New(_en, _en)
	trans, _ := uni.GetTranslator("en")
	_ = en_translations.RegisterDefaultTranslations(v, trans)

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("form"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	_ = v.RegisterValidation(notBlankTag, func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	_ = v.RegisterValidation(industryTag, func(fl validator.FieldLevel) bool {
		return domain.IsKnownIndustry(fl.Field().String())
	})

	fv := &FormValidator{validate: v, translator: trans}
	fv.registerCustomTranslations(notBlankTag, industryTag)
	return fv
}

// registerCustomTranslations adds messages for the custom tags.
// The translator is already registered, so a noop register func is passed.
func (v *FormValidator) registerCustomTranslations(tags ...string) {
	registerFn := func(ut.Translator) error { return nil }
	for _, tag := range tags {
		_ = v.validate.RegisterTranslation(tag, v.translator, registerFn, translateCustom)
	}
}

func translateCustom(_ ut.Translator, fe validator.FieldError) string {
	switch fe.Tag() {
	case notBlankTag:
		return fe.Field() + " cannot be blank"
	case industryTag:
		return "choose one of the listed industries"
	default:
		return ""
	}
}

// Validate implements echo.Validator
func (v *FormValidator) Validate(i interface{}) error {
	return v.validate.Struct(i)
}

// FieldErrors maps form field names to their messages.
// Errors that are not validation errors yield nil.
func (v *FormValidator) FieldErrors(err error) map[string]string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}

	out := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		out[fe.Field()] = fe.Translate(v.translator)
	}
	return out
}
