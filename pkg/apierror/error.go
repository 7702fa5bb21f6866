package apierror

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// Error is the JSON body the ops server returns for a failed request. Code
// is the HTTP status.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
}

func (e *Error) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("[%d] %s: %s", e.Code, e.Message, e.Detail)
	}
	return fmt.Sprintf("[%d] %s", e.Code, e.Message)
}

func New(code int, message string) *Error {
	return &Error{Code: code, Message: message}
}

func WithDetail(code int, message, detail string) *Error {
	return &Error{Code: code, Message: message, Detail: detail}
}

func BadRequest(detail string) *Error {
	return WithDetail(http.StatusBadRequest, "bad request", detail)
}

func Unauthorized(detail string) *Error {
	return WithDetail(http.StatusUnauthorized, "unauthorized", detail)
}

func TooManyRequests() *Error {
	return New(http.StatusTooManyRequests, "rate limit exceeded")
}

func Unavailable(resource string) *Error {
	return New(http.StatusServiceUnavailable, resource+" unavailable")
}

// Write encodes e as JSON with e.Code as the response status.
func Write(w http.ResponseWriter, e *Error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(e.Code)
	_ = json.NewEncoder(w).Encode(e)
}
