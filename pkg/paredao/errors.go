package paredao

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrorCode identifies a recognized API failure
type ErrorCode string

const (
	InvalidCredentials   ErrorCode = "INVALID_CREDENTIALS"
	ResourceNotFound     ErrorCode = "RESOURCE_NOT_FOUND"
	ResourceAlreadyTaken ErrorCode = "RESOURCE_ALREADY_TAKEN"
	LimitReached         ErrorCode = "RESOURCE_LIMIT_REACHED"
	CaptchaNotVerified   ErrorCode = "CAPTCHA_NOT_VERIFIED"
	Unauthorized         ErrorCode = "ACCESS_TOKEN_UNAUTHORIZED"
)

// Known reports whether the code is one of the codes the front-end reacts to.
// The API may send other codes in the same shape; those are still HTTP errors.
func (c ErrorCode) Known() bool {
	switch c {
	case InvalidCredentials, ResourceNotFound, ResourceAlreadyTaken,
		LimitReached, CaptchaNotVerified, Unauthorized:
		return true
	}
	return false
}

// HTTPError is a non-2xx response whose body carried {code, message}
type HTTPError struct {
	Status  int       `json:"-"`
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// UnknownError is a non-2xx response whose body did not match {code, message}
type UnknownError struct {
	Status int
	Body   string
}

func (e *UnknownError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("API returned status %d", e.Status)
	}
	return fmt.Sprintf("API returned status %d: %s", e.Status, e.Body)
}

// IsHTTPError reports whether err wraps a recognized *HTTPError
func IsHTTPError(err error) bool {
	var httpErr *HTTPError
	return errors.As(err, &httpErr)
}

// CodeOf returns the error code carried by err, or "" when err is not an *HTTPError
func CodeOf(err error) ErrorCode {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.Code
	}
	return ""
}

// HasCode reports whether err carries the given code
func HasCode(err error, code ErrorCode) bool {
	return CodeOf(err) == code
}

// parseError builds the error for a non-2xx response body.
// Both keys must be present as strings; an empty message is allowed.
func parseError(status int, body []byte) error {
	var shape struct {
		Code    *string `json:"code"`
		Message *string `json:"message"`
	}
	if err := json.Unmarshal(body, &shape); err == nil && shape.Code != nil && shape.Message != nil {
		return &HTTPError{Status: status, Code: ErrorCode(*shape.Code), Message: *shape.Message}
	}
	return &UnknownError{Status: status, Body: string(body)}
}
