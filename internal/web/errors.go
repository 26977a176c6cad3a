package web

import (
	"fmt"
	"net/http"
)

const defaultErrorMessage = "Something went wrong!"

// StatusError carries the status and user-facing message for the error page.
type StatusError struct {
	Status  int
	Message string
	Err     error
}

func (e *StatusError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%d %s: %v", e.Status, e.Message, e.Err)
	}
	return fmt.Sprintf("%d %s", e.Status, e.Message)
}

func (e *StatusError) Unwrap() error { return e.Err }

func NewStatusError(status int, message string) *StatusError {
	return &StatusError{Status: status, Message: message}
}

func BadRequest(message string) *StatusError {
	return NewStatusError(http.StatusBadRequest, message)
}

func NotFound(message string) *StatusError {
	return NewStatusError(http.StatusNotFound, message)
}
