package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// AppError represents application-level error with HTTP status.
type AppError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
	Status  int    `json:"-"`
	Err     error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns underlying error.
func (e *AppError) Unwrap() error {
	return e.Err
}

// NewAppError creates a new application error.
func NewAppError(code, field, message string, status int) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Field:   field,
		Status:  status,
	}
}

// StatusError builds the error for a non-2xx upstream response. A JSON body
// carrying a "message" field becomes the error message; otherwise the raw body
// (or the status text when empty) is used.
func StatusError(status int, body []byte) *AppError {
	msg := strings.TrimSpace(string(body))
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		switch {
		case payload.Message != "":
			msg = payload.Message
		case payload.Error != "":
			msg = payload.Error
		}
	}
	if msg == "" {
		msg = http.StatusText(status)
	}
	return NewAppError(fmt.Sprintf("ERR_HTTP_%d", status), "", msg, status)
}

// ServerMessage returns the message an upstream server gave with a non-2xx
// response, or "" when err carries none.
func ServerMessage(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.Status != 0 && appErr.Message != http.StatusText(appErr.Status) {
		return appErr.Message
	}
	return ""
}
