package apperr

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// errorBody is the JSON envelope rendered for every failed request.
type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Kind   Kind   `json:"kind"`
	Detail string `json:"detail"`
}

// HTTPErrorHandler returns an echo error handler that renders *Error values
// as structured JSON. echo.HTTPError values produced by framework middleware
// (404, 405, bind failures) are translated to the closest kind. Internal
// errors are logged with their cause but surfaced without it.
func HTTPErrorHandler(logger zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		kind := KindInternal
		detail := "internal server error"

		var appErr *Error
		var httpErr *echo.HTTPError
		switch {
		case errors.As(err, &appErr):
			kind = appErr.Kind
			detail = appErr.Detail
		case errors.As(err, &httpErr):
			kind = kindForStatus(httpErr.Code)
			if msg, ok := httpErr.Message.(string); ok {
				detail = msg
			}
		}

		if kind == KindInternal {
			logger.Error().Err(err).
				Str("path", c.Request().URL.Path).
				Str("method", c.Request().Method).
				Msg("request failed")
		}

		status := HTTPStatus(kind)
		if httpErr != nil {
			status = httpErr.Code
		}

		var werr error
		if c.Request().Method == http.MethodHead {
			werr = c.NoContent(status)
		} else {
			werr = c.JSON(status, errorBody{Error: errorDetail{Kind: kind, Detail: detail}})
		}
		if werr != nil {
			logger.Error().Err(werr).Msg("failed to write error response")
		}
	}
}

func kindForStatus(code int) Kind {
	switch code {
	case http.StatusUnauthorized:
		return KindUnauthorized
	case http.StatusForbidden:
		return KindForbidden
	case http.StatusNotFound:
		return KindNotFound
	case http.StatusConflict:
		return KindConflict
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return KindValidation
	default:
		return KindInternal
	}
}
