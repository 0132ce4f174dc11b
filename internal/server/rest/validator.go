package rest

import (
	"errors"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
)

const requiredText = "this field is required"

type Validator struct {
	validate   *validator.Validate
	translator ut.Translator
}

func NewValidator() *Validator {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")

	validate := validator.New()
	_ = en_translations.RegisterDefaultTranslations(validate, translator)

	// report json names instead of Go field names
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	_ = validate.RegisterTranslation(
		"required", translator,
		func(t ut.Translator) error { return t.Add("required", requiredText, true) },
		func(t ut.Translator, fe validator.FieldError) string {
			s, _ := t.T("required", fe.Field())
			return s
		},
	)

	return &Validator{validate: validate, translator: translator}
}

// Check validates v and writes a 400 with per-field messages when it fails.
// It reports whether the request may proceed.
func (v *Validator) Check(w http.ResponseWriter, payload interface{}) bool {
	err := v.validate.Struct(payload)
	if err == nil {
		return true
	}

	var vErrs validator.ValidationErrors
	if !errors.As(err, &vErrs) {
		writeErrorJSON(w, http.StatusBadRequest, err.Error())
		return false
	}

	fields := make(map[string]string, len(vErrs))
	for _, vErr := range vErrs {
		fields[vErr.Field()] = vErr.Translate(v.translator)
	}
	writeJSON(w, http.StatusBadRequest, errorResponse{
		Error:  "validation failed",
		Kind:   "InvalidArgument",
		Fields: fields,
	})
	return false
}
