package httpapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// Every jobpipe API response is a jsend envelope: "success" carries
// data, "fail" is a client problem (bad filter, unknown job uuid,
// invalid payload), "error" is ours. Handlers go through the helpers
// below so the read surface and the ingest endpoint stay uniform.

const (
	statusSuccess = "success"
	statusFail    = "fail"
	statusError   = "error"
)

type jsendEnvelope struct {
	Status  string `json:"status"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
	Code    int    `json:"code,omitempty"`
}

func success(c echo.Context, data any) error {
	return successWithStatus(c, http.StatusOK, data)
}

// successWithStatus exists for the ingest endpoint, which answers 201
// for a fresh posting and 200 for a duplicate arrival.
func successWithStatus(c echo.Context, code int, data any) error {
	return c.JSON(code, jsendEnvelope{Status: statusSuccess, Data: data})
}

func fail(c echo.Context, code int, message string, data any) error {
	return c.JSON(code, jsendEnvelope{
		Status:  statusFail,
		Message: message,
		Data:    data,
	})
}

func failValidation(c echo.Context, fieldErrors map[string]string) error {
	return fail(c, http.StatusBadRequest, "Validation failed", map[string]any{
		"validation_errors": fieldErrors,
	})
}

func failNotFound(c echo.Context, message string) error {
	return fail(c, http.StatusNotFound, message, nil)
}

func internalError(c echo.Context, message string) error {
	return c.JSON(http.StatusInternalServerError, jsendEnvelope{
		Status:  statusError,
		Message: message,
		Code:    http.StatusInternalServerError,
	})
}
