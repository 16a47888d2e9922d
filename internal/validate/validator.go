package validate

import (
	"errors"
	"reflect"
	"regexp"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/hackgods/clinic-scheduling-assistant/internal/apperr"
	"github.com/hackgods/clinic-scheduling-assistant/internal/clock"
)

var phonePattern = regexp.MustCompile(`^\+?[0-9 ()-]+$`)

// FieldErrors maps a JSON field name to a human readable problem.
type FieldErrors map[string]string

func (fe FieldErrors) Error() string {
	keys := make([]string, 0, len(fe))
	for k := range fe {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fe[k])
	}
	return strings.Join(parts, "; ")
}

type Validator struct {
	validator *validator.Validate
}

func New() *Validator {
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

	_ = v.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
		return validPhone(fl.Field().String())
	})
	_ = v.RegisterValidation("date", func(fl validator.FieldLevel) bool {
		_, err := clock.NormalizeDate(fl.Field().String())
		return err == nil
	})
	_ = v.RegisterValidation("hhmm", func(fl validator.FieldLevel) bool {
		_, err := clock.ParseTimeOfDay(fl.Field().String())
		return err == nil
	})

	return &Validator{validator: v}
}

// Struct validates s and wraps failures as an apperr validation error for op.
func (v *Validator) Struct(op string, s any) error {
	err := v.validator.Struct(s)
	if err == nil {
		return nil
	}
	fields := FormatValidationErrors(err)
	if len(fields) == 0 {
		return apperr.E(apperr.ErrValidation, op, err)
	}
	return apperr.E(apperr.ErrValidation, op, fields)
}

func FormatValidationErrors(err error) FieldErrors {
	errs := make(FieldErrors)

	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return errs
	}
	for _, e := range validationErrors {
		field := e.Field()
		switch e.Tag() {
		case "required":
			errs[field] = field + " is required"
		case "phone":
			errs[field] = field + " must be a phone number"
		case "date":
			errs[field] = field + " must be a date formatted as YYYY-MM-DD"
		case "hhmm":
			errs[field] = field + " must be a time formatted as HH:MM"
		case "oneof":
			errs[field] = field + " must be one of: " + e.Param()
		case "max":
			errs[field] = field + " must be at most " + e.Param() + " characters"
		default:
			errs[field] = field + " is invalid"
		}
	}

	return errs
}

// Fields extracts the per-field messages from a validation error, if any.
func Fields(err error) FieldErrors {
	var fe FieldErrors
	if errors.As(err, &fe) {
		return fe
	}
	return nil
}

// validPhone accepts digits with common separators and 7 to 15 digits overall.
func validPhone(s string) bool {
	s = strings.TrimSpace(s)
	if !phonePattern.MatchString(s) {
		return false
	}
	digits := 0
	for _, r := range s {
		if r >= '0' && r <= '9' {
			digits++
		}
	}
	return digits >= 7 && digits <= 15
}
