package api

import (
	"errors"
	"fmt"
	"net/http"

	"InvestDash/internal/errs"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// ErrorBody is the error payload of every failed request.
type ErrorBody struct {
	Code    string       `json:"code"`
	Message string       `json:"message"`
	Fields  []FieldError `json:"fields,omitempty"`
}

type errorEnvelope struct {
	Error ErrorBody `json:"error"`
}

// statusOf maps an error kind to its HTTP status.
func statusOf(kind errs.Kind) int {
	switch kind {
	case errs.KindNotFound:
		return http.StatusNotFound
	case errs.KindDuplicateBucket, errs.KindDuplicateTicker:
		return http.StatusConflict
	case errs.KindInvalidInput:
		return http.StatusBadRequest
	case errs.KindUpstreamUnavailable:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// errorResponse writes err with the status of its kind.
func errorResponse(c echo.Context, err error) error {
	kind := errs.KindOf(err)
	body := ErrorBody{Code: string(kind), Message: message(err)}

	var verr *ValidationErrors
	if errors.As(err, &verr) {
		body.Fields = verr.Fields
	}
	return c.JSON(statusOf(kind), errorEnvelope{Error: body})
}

// message hides internal details from clients.
func message(err error) string {
	var e *errs.Error
	if !errors.As(err, &e) {
		return "internal error"
	}
	switch {
	case e.Kind == errs.KindPersistenceFailure:
		return "failed to persist state"
	case e.Message != "" && e.Subject != "":
		return fmt.Sprintf("%s: %s", e.Message, e.Subject)
	case e.Message != "":
		return e.Message
	case e.Err != nil:
		return e.Err.Error()
	default:
		return string(e.Kind)
	}
}

// errorHandler renders errors returned by echo itself, such as unknown
// routes, in the same envelope as handler errors.
func errorHandler(log zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		var he *echo.HTTPError
		if !errors.As(err, &he) {
			if errs.KindOf(err) == errs.KindInternal {
				log.Error().Err(err).Str("uri", c.Request().RequestURI).Msg("unhandled error")
			}
			_ = errorResponse(c, err)
			return
		}

		code := "INTERNAL"
		switch he.Code {
		case http.StatusNotFound:
			code = string(errs.KindNotFound)
		case http.StatusBadRequest, http.StatusUnsupportedMediaType, http.StatusRequestEntityTooLarge:
			code = string(errs.KindInvalidInput)
		case http.StatusMethodNotAllowed:
			code = "METHOD_NOT_ALLOWED"
		}
		msg := http.StatusText(he.Code)
		if s, ok := he.Message.(string); ok {
			msg = s
		}
		if c.Request().Method == http.MethodHead {
			_ = c.NoContent(he.Code)
			return
		}
		_ = c.JSON(he.Code, errorEnvelope{Error: ErrorBody{Code: code, Message: msg}})
	}
}
