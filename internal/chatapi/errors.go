package chatapi

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/berth-dev/docchat/internal/chat"
)

// Error is returned by every Client operation that fails.
type Error struct {
	Op      string
	Code    chat.Code
	Status  int // HTTP status, 0 when no response arrived
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("chatapi: %s: %s", e.Op, e.Message)
	if e.Status != 0 {
		msg += fmt.Sprintf(" (status %d)", e.Status)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// codeForStatus classifies a non-2xx HTTP status.
func codeForStatus(status int) chat.Code {
	switch {
	case status == http.StatusNotFound:
		return chat.CodeNotFound
	case status == http.StatusTooManyRequests:
		return chat.CodeRateLimited
	case status == http.StatusRequestTimeout || status == http.StatusGatewayTimeout:
		return chat.CodeTimeout
	case status >= 500:
		return chat.CodeServerError
	default:
		return chat.CodeUnknown
	}
}

// CodeOf extracts the failure code from err.
func CodeOf(err error) chat.Code {
	if err == nil {
		return ""
	}
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Code
	}
	var verr *chat.ValidationError
	if errors.As(err, &verr) {
		return verr.Code
	}
	return chat.CodeUnknown
}

// IsNotFound reports whether the backend answered 404.
func IsNotFound(err error) bool {
	return CodeOf(err) == chat.CodeNotFound
}

// IsTransient reports whether retrying the call could succeed.
func IsTransient(err error) bool {
	switch CodeOf(err) {
	case chat.CodeConnectionFailed, chat.CodeTimeout, chat.CodeServerError, chat.CodeRateLimited:
		return true
	}
	return false
}

// UserMessage returns reader-facing text for err.
func UserMessage(err error) string {
	return chat.UserMessage(CodeOf(err))
}
