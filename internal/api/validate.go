package api

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"InvestDash/internal/errs"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// Report JSON/query names instead of Go field names.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		for _, tag := range []string{"json", "query", "param"} {
			name := strings.Split(f.Tag.Get(tag), ",")[0]
			if name != "" && name != "-" {
				return name
			}
		}
		return f.Name
	})
	return v
}

// FieldError describes one invalid request field.
type FieldError struct {
	Code    string `json:"code"`
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationErrors is an INVALID_INPUT error carrying per-field details.
type ValidationErrors struct {
	Fields []FieldError
}

func (v *ValidationErrors) Error() string {
	msgs := make([]string, len(v.Fields))
	for i, f := range v.Fields {
		msgs[i] = f.Message
	}
	return strings.Join(msgs, "; ")
}

// bindAndValidate binds the request into req, applies default tags, and
// validates it. Every failure is an INVALID_INPUT error.
func bindAndValidate(c echo.Context, req any) error {
	const op = "bind request"
	if err := c.Bind(req); err != nil {
		msg := "malformed request"
		var he *echo.HTTPError
		if errors.As(err, &he) {
			msg = fmt.Sprint(he.Message)
		}
		return errs.New(errs.KindInvalidInput, op, "", msg)
	}
	if err := defaults.Set(req); err != nil {
		return errs.Wrap(errs.KindInternal, op, err)
	}
	if err := validate.StructCtx(c.Request().Context(), req); err != nil {
		var ve validator.ValidationErrors
		if !errors.As(err, &ve) {
			return errs.Wrap(errs.KindInvalidInput, op, err)
		}
		fields := make([]FieldError, 0, len(ve))
		for _, fe := range ve {
			fields = append(fields, FieldError{
				Code:    "ERR_" + strings.ToUpper(fe.Tag()),
				Field:   fe.Field(),
				Message: fieldMessage(fe),
			})
		}
		verr := &ValidationErrors{Fields: fields}
		return &errs.Error{Kind: errs.KindInvalidInput, Op: op, Message: verr.Error(), Err: verr}
	}
	return nil
}

func fieldMessage(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
		}
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "min":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, strings.ReplaceAll(fe.Param(), " ", ", "))
	default:
		return fmt.Sprintf("%s failed validation: %s", field, fe.Tag())
	}
}
