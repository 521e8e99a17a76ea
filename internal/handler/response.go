package handler // handler holds the HTTP handlers of the /api surface

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/meeting-room-reservation/internal/service"
)

// envelope is the body of every /api response.
type envelope struct {
	Success bool     `json:"success"`
	Data    any      `json:"data,omitempty"`
	Message string   `json:"message,omitempty"`
	Error   string   `json:"error,omitempty"`  // machine readable kind
	Errors  []string `json:"errors,omitempty"` // every validation problem
	Count   *int     `json:"count,omitempty"`
}

func ok(c echo.Context, status int, data any, message string) error {
	return c.JSON(status, envelope{Success: true, Data: data, Message: message})
}

func okList[T any](c echo.Context, items []T) error {
	if items == nil {
		items = []T{}
	}
	n := len(items)
	return c.JSON(http.StatusOK, envelope{Success: true, Data: items, Count: &n})
}

// errorMapping ties a taxonomy error to a status and a client kind.
type errorMapping struct {
	err    error
	status int
	kind   string
}

// ErrorMapper turns service errors into HTTP responses.  Mappings are
// matched with errors.Is in the order they were added.
type ErrorMapper struct {
	mappings []errorMapping
}

func NewErrorMapper() *ErrorMapper { return &ErrorMapper{} }

// WithMapping appends a mapping.
func (m *ErrorMapper) WithMapping(err error, status int, kind string) *ErrorMapper {
	m.mappings = append(m.mappings, errorMapping{err: err, status: status, kind: kind})
	return m
}

// Map returns the status and kind for err.  Context deadlines are
// reported as gateway timeouts.
func (m *ErrorMapper) Map(err error) (int, string) {
	for _, mp := range m.mappings {
		if errors.Is(err, mp.err) {
			return mp.status, mp.kind
		}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return http.StatusGatewayTimeout, "gateway_timeout"
	}
	if errors.Is(err, context.Canceled) {
		return http.StatusServiceUnavailable, "request_cancelled"
	}
	return http.StatusInternalServerError, "storage_error"
}

// Errors is the table used by every handler.  The order matters: a
// payment that timed out matches both ErrGatewayTimeout and ErrPayment.
var Errors = NewErrorMapper().
	WithMapping(service.ErrPaymentOrphaned, http.StatusInternalServerError, "payment_orphaned").
	WithMapping(service.ErrValidation, http.StatusBadRequest, "validation_error").
	WithMapping(service.ErrNotFound, http.StatusNotFound, "not_found").
	WithMapping(service.ErrConflict, http.StatusConflict, "conflict").
	WithMapping(service.ErrAuthentication, http.StatusUnauthorized, "authentication_error").
	WithMapping(service.ErrGatewayTimeout, http.StatusGatewayTimeout, "gateway_timeout").
	WithMapping(service.ErrGatewayUnreachable, http.StatusBadGateway, "gateway_unreachable").
	WithMapping(service.ErrPayment, http.StatusPaymentRequired, "payment_error").
	WithMapping(service.ErrBusinessRule, http.StatusBadRequest, "business_rule").
	WithMapping(service.ErrStorage, http.StatusInternalServerError, "storage_error")

// writeError renders err.  Storage failures hide their cause from the
// client and are logged instead.
func writeError(c echo.Context, log *logrus.Logger, err error) error {
	status, kind := Errors.Map(err)
	body := envelope{Success: false, Error: kind, Message: err.Error()}

	var verr *service.ValidationError
	if errors.As(err, &verr) {
		body.Message = "validation failed"
		body.Errors = verr.Problems
	}
	if status >= http.StatusInternalServerError && kind == "storage_error" {
		body.Message = "internal server error"
	}

	if log == nil {
		log = logrus.StandardLogger()
	}
	entry := log.WithError(err).WithFields(logrus.Fields{
		"method": c.Request().Method,
		"path":   c.Path(),
		"status": status,
		"kind":   kind,
	})
	if status >= http.StatusInternalServerError {
		entry.Error("request failed")
	} else {
		entry.Debug("request rejected")
	}
	return c.JSON(status, body)
}

// badRequest reports a malformed path, query or body.
func badRequest(c echo.Context, problems ...string) error {
	return c.JSON(http.StatusBadRequest, envelope{
		Success: false,
		Error:   "validation_error",
		Message: "validation failed",
		Errors:  problems,
	})
}
