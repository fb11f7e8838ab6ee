package services

import (
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"zenith-backend/internal/store"
)

const (
	CodeUnauthorized = "UNAUTHORIZED"
	CodeForbidden    = "FORBIDDEN"
	CodeNotFound     = "NOT_FOUND"
	CodeValidation   = "VALIDATION_ERROR"
	CodeConflict     = "CONFLICT"
	CodeInternal     = "INTERNAL_ERROR"
)

type ServiceError struct {
	Status  int
	Code    string
	Message string
}

func (e ServiceError) Error() string {
	return e.Message
}

func ErrNotFound(msg string) error {
	return ServiceError{Status: http.StatusNotFound, Code: CodeNotFound, Message: msg}
}

func ErrValidation(msg string) error {
	return ServiceError{Status: http.StatusBadRequest, Code: CodeValidation, Message: msg}
}

func ErrConflict(msg string) error {
	return ServiceError{Status: http.StatusConflict, Code: CodeConflict, Message: msg}
}

func ErrForbidden(msg string) error {
	return ServiceError{Status: http.StatusForbidden, Code: CodeForbidden, Message: msg}
}

func ErrUnauthorized(msg string) error {
	return ServiceError{Status: http.StatusUnauthorized, Code: CodeUnauthorized, Message: msg}
}

func WrapError(err error, msg string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", msg, err)
}

// AsServiceError extracts a ServiceError from an error chain.
func AsServiceError(err error) (ServiceError, bool) {
	var serr ServiceError
	if errors.As(err, &serr) {
		return serr, true
	}
	return ServiceError{}, false
}

// translate maps store sentinels to client facing errors. notFound is the
// message used for store.ErrNotFound; anything unknown is wrapped with op.
func translate(err error, op, notFound string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, store.ErrNotFound):
		return ErrNotFound(notFound)
	case errors.Is(err, store.ErrConflict):
		return ErrConflict("Resource already exists")
	case errors.Is(err, store.ErrNotPending):
		return ErrValidation("Transfer is not pending")
	case errors.Is(err, store.ErrAlreadyPaid):
		return ErrValidation("Session already paid")
	case errors.Is(err, store.ErrInsufficientPoints):
		return ErrValidation("Insufficient points")
	}
	if _, ok := AsServiceError(err); ok {
		return err
	}
	return WrapError(err, op)
}

func nopIfNil(log *zap.Logger) *zap.Logger {
	if log == nil {
		return zap.NewNop()
	}
	return log
}
