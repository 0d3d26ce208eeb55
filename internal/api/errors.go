package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// Code is a stable error category that callers branch on instead of raw
// HTTP statuses.
type Code string

const (
	CodeUnauthenticated Code = "unauthenticated"
	CodeUnauthorized    Code = "unauthorized"
	CodeNotFound        Code = "not_found"
	CodeBadRequest      Code = "bad_request"
	CodeConflict        Code = "conflict"
	CodeServerError     Code = "server_error"
	CodeDecode          Code = "decode"
	CodeTransport       Code = "transport"
)

// Error is returned by every endpoint wrapper when the call did not produce
// the data it asked for.
type Error struct {
	Code    Code
	Status  int
	Message string
	Err     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return string(e.Code)
}

// Unwrap implements error unwrapping for error chains.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is enables errors.Is() to match errors by code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// NewError creates an error with the given code and message.
func NewError(code Code, msg string) error {
	return &Error{Code: code, Message: msg}
}

// HasCode checks if err is an *Error with the given code.
func HasCode(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// IsAuthError reports whether err means the user has to sign in again.
func IsAuthError(err error) bool {
	return HasCode(err, CodeUnauthenticated) || HasCode(err, CodeUnauthorized)
}

// errorBody is the error document the Bug Track API writes for client errors.
type errorBody struct {
	Timestamp string `json:"timestamp"`
	Path      string `json:"path"`
	Status    int    `json:"status"`
	Error     string `json:"error"`
	Detail    any    `json:"detail"`
}

func codeForStatus(status int) Code {
	switch {
	case status == http.StatusUnauthorized:
		return CodeUnauthenticated
	case status == http.StatusForbidden:
		return CodeUnauthorized
	case status == http.StatusNotFound:
		return CodeNotFound
	case status == http.StatusConflict:
		return CodeConflict
	case status >= http.StatusInternalServerError:
		return CodeServerError
	default:
		return CodeBadRequest
	}
}

// errorFromResponse builds the error for a non-2xx response.
func errorFromResponse(resp *Response) *Error {
	e := &Error{
		Code:    codeForStatus(resp.StatusCode),
		Status:  resp.StatusCode,
		Message: fmt.Sprintf("HTTP error! Status: %d", resp.StatusCode),
	}

	var body errorBody
	if len(resp.Body) > 0 && json.Unmarshal(resp.Body, &body) == nil {
		switch {
		case body.Error != "":
			e.Message = body.Error
		case body.Detail != nil:
			if s, ok := body.Detail.(string); ok && s != "" {
				e.Message = s
			}
		}
	}
	return e
}
