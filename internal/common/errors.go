package common

import (
	"errors"
	"net/http"
)

// AppError carries the code, status and field details a handler renders.
// Err, when set, stays reachable through errors.Is and errors.As.
type AppError struct {
	Code       string
	Message    string
	HTTPStatus int
	Err        error
	Details    any
}

func (e *AppError) Error() string {
	switch {
	case e == nil:
		return ""
	case e.Err != nil:
		return e.Err.Error()
	default:
		return e.Message
	}
}

func (e *AppError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// WriteAppError renders err when it is an *AppError and reports whether it did.
func WriteAppError(w http.ResponseWriter, err error) bool {
	var appErr *AppError
	if !errors.As(err, &appErr) {
		return false
	}
	status, code, message := appErr.HTTPStatus, appErr.Code, appErr.Message
	if status == 0 {
		status = http.StatusInternalServerError
	}
	if code == "" {
		code = "INTERNAL"
	}
	if message == "" {
		message = "internal error"
	}
	JSONError(w, status, code, message, appErr.Details)
	return true
}
