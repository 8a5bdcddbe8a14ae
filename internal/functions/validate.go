package functions

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Diagnostics is the flattened validation report returned to callers.
type Diagnostics struct {
	FormErrors  []string            `json:"formErrors"`
	FieldErrors map[string][]string `json:"fieldErrors"`
}

func newDiagnostics() Diagnostics {
	return Diagnostics{FormErrors: []string{}, FieldErrors: map[string][]string{}}
}

func (d *Diagnostics) addField(field, msg string) {
	d.FieldErrors[field] = append(d.FieldErrors[field], msg)
}

func (d *Diagnostics) addForm(msg string) {
	d.FormErrors = append(d.FormErrors, msg)
}

// Empty reports whether nothing was recorded.
func (d Diagnostics) Empty() bool {
	return len(d.FormErrors) == 0 && len(d.FieldErrors) == 0
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		if name == "" {
			return f.Name
		}
		return name
	})
	return v
}

// Validate runs struct tag validation and reports failures keyed by JSON field name.
func Validate(v any) (Diagnostics, bool) {
	d := newDiagnostics()
	err := validate.Struct(v)
	if err == nil {
		return d, true
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		d.addForm(err.Error())
		return d, false
	}
	for _, fe := range verrs {
		d.addField(fe.Field(), message(fe))
	}
	return d, false
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "required_without":
		return "Required"
	case "min":
		return fmt.Sprintf("Must contain at least %s character(s)", fe.Param())
	default:
		return fmt.Sprintf("Failed %q check", fe.Tag())
	}
}
