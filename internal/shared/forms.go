package shared

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/quotedesk/quotedesk/internal/platform/httpx"
)

// FormErrors maps form field names to messages.
type FormErrors map[string]string

// Add records msg for field unless one is already present.
func (e FormErrors) Add(field, msg string) {
	if _, ok := e[field]; !ok {
		e[field] = msg
	}
}

// Any reports whether at least one error was recorded.
func (e FormErrors) Any() bool { return len(e) > 0 }

func (e FormErrors) Error() string {
	parts := make([]string, 0, len(e))
	for field, msg := range e {
		parts = append(parts, field+": "+msg)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Is lets errors.Is match FormErrors against httpx.ErrValidation.
func (e FormErrors) Is(target error) bool {
	return target == httpx.ErrValidation
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

// Validator returns the process wide validator configured to report the
// `form` tag name of each field.
func Validator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("form"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name == "" {
				return strings.ToLower(fld.Name)
			}
			return name
		})
	})
	return validate
}

// ValidateForm runs struct validation and converts failures to FormErrors.
// It returns nil when the form is valid.
func ValidateForm(form any) FormErrors {
	err := Validator().Struct(form)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return FormErrors{"general": err.Error()}
	}
	out := FormErrors{}
	for _, fe := range verrs {
		out.Add(fieldPath(fe), describe(fe))
	}
	return out
}

func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		ns = ns[i+1:]
	}
	return ns
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "url", "http_url":
		return "must be a valid URL"
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("must be at least %s characters", fe.Param())
		}
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("must contain at least %s item(s)", fe.Param())
		}
		return "must be at least " + fe.Param()
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("must be at most %s characters", fe.Param())
		}
		return "must be at most " + fe.Param()
	case "gt":
		return "must be greater than " + fe.Param()
	case "gte":
		return "must be " + fe.Param() + " or more"
	case "lte":
		return "must be " + fe.Param() + " or less"
	case "oneof":
		return "must be one of: " + strings.ReplaceAll(fe.Param(), " ", ", ")
	case "len":
		return "must be exactly " + fe.Param() + " characters"
	case "datetime":
		return "must be a valid date"
	case "gtefield":
		return "must not be before " + strings.ToLower(fe.Param())
	}
	return "is invalid"
}
