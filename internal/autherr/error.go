// Package autherr defines the protocol error type shared by every
// authorization operation. Each error carries an OAuth error code which maps
// to the HTTP status written at the API boundary.
package autherr

import (
	"fmt"
	"net/http"
)

type Code string

const (
	CodeInvalidRequest       Code = "invalid_request"
	CodeInvalidClient        Code = "invalid_client"
	CodeInvalidGrant         Code = "invalid_grant"
	CodeInvalidScope         Code = "invalid_scope"
	CodeInvalidToken         Code = "invalid_token"
	CodeUnsupportedGrantType Code = "unsupported_grant_type"
	CodeUnprocessable        Code = "unprocessable_entity"
	CodeInternalError        Code = "internal_error"
)

// StatusCode maps an error code to the HTTP status the API layer responds
// with. Client authentication failures deliberately share the 400 family
// with other request errors so that callers cannot probe which part of the
// credential pair was wrong.
func (c Code) StatusCode() int {
	switch c {
	case CodeUnprocessable:
		return http.StatusUnprocessableEntity
	case CodeInternalError:
		return http.StatusInternalServerError
	default:
		return http.StatusBadRequest
	}
}

type Error struct {
	Code        Code   `json:"error"`
	Description string `json:"error_description"`
	wrapped     error
}

func New(code Code, desc string) Error {
	return Error{
		Code:        code,
		Description: desc,
	}
}

// Errorf wraps a lower-level error while keeping the protocol-facing
// description stable. The wrapped error is only visible through Unwrap and
// never serialized to callers.
func Errorf(code Code, desc string, err error) Error {
	return Error{
		Code:        code,
		Description: desc,
		wrapped:     err,
	}
}

func (err Error) Error() string {
	return fmt.Sprintf("%s %s", err.Code, err.Description)
}

func (err Error) Unwrap() error {
	return err.wrapped
}
