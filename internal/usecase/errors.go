package usecase

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"storefront/internal/logging"
)

// HTTPError is a classified failure. Handlers turn it into a response as is.
type HTTPError struct {
	Status  int
	Message string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("%d: %s", e.Status, e.Message)
}

func NewHTTPError(status int, message string) error {
	return &HTTPError{
		Status:  status,
		Message: message,
	}
}

func AsHTTPError(err error) (*HTTPError, bool) {
	var he *HTTPError
	ok := errors.As(err, &he)
	return he, ok
}

// internalError logs the cause and hides it from the caller.
func internalError(ctx context.Context, op string, err error) error {
	logging.FromCtx(ctx).Error(op, "err", err)
	return NewHTTPError(http.StatusInternalServerError, "internal error")
}

func badRequest(msg string) error { return NewHTTPError(http.StatusBadRequest, msg) }
func notFound(msg string) error   { return NewHTTPError(http.StatusNotFound, msg) }
func forbidden(msg string) error  { return NewHTTPError(http.StatusForbidden, msg) }
