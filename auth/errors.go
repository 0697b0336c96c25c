// Copyright 2026 Matheus Pimenta.
// SPDX-License-Identifier: AGPL-3.0

package auth

import (
	"errors"
	"fmt"
)

// ErrorCode distinguishes the behaviorally distinct failure modes of the
// SDK. Callers should branch on codes via errors.Is or Code, never on error
// strings.
type ErrorCode string

const (
	// ErrorInvalidCredential marks operations that require a service
	// account credential but found another variant active.
	ErrorInvalidCredential ErrorCode = "INVALID_CREDENTIAL"

	// ErrorTokenCreationFailed marks I/O or cryptographic failures while
	// signing a custom token.
	ErrorTokenCreationFailed ErrorCode = "TOKEN_CREATION_FAILED"

	// ErrorIDTokenParse marks structurally malformed ID tokens.
	ErrorIDTokenParse ErrorCode = "ID_TOKEN_PARSE_ERROR"

	// ID token verification sub-kinds. Distinct for caller diagnostics.
	ErrorIDTokenInvalidSignature ErrorCode = "ID_TOKEN_INVALID_SIGNATURE"
	ErrorIDTokenExpired          ErrorCode = "ID_TOKEN_EXPIRED"
	ErrorIDTokenIssuedInFuture   ErrorCode = "ID_TOKEN_ISSUED_IN_FUTURE"
	ErrorIDTokenInvalidAudience  ErrorCode = "ID_TOKEN_INVALID_AUDIENCE"
	ErrorIDTokenInvalidIssuer    ErrorCode = "ID_TOKEN_INVALID_ISSUER"
	ErrorIDTokenInvalidSubject   ErrorCode = "ID_TOKEN_INVALID_SUBJECT"

	// ErrorAccessTokenFetchFailed marks network or credential-exchange
	// failures while obtaining an OAuth2 access token.
	ErrorAccessTokenFetchFailed ErrorCode = "ACCESS_TOKEN_ERROR"

	// User management failures reported by the remote API.
	ErrorUserNotFound     ErrorCode = "USER_NOT_FOUND"
	ErrorUserCreateFailed ErrorCode = "USER_CREATE_FAILED"
	ErrorUserUpdateFailed ErrorCode = "USER_UPDATE_FAILED"
	ErrorUserDeleteFailed ErrorCode = "USER_DELETE_FAILED"
)

// Error is the error type returned by all SDK operations that fail for a
// reason other than invalid arguments.
type Error struct {
	Code ErrorCode
	msg  string
	err  error
}

func newError(code ErrorCode, format string, args ...any) *Error {
	e := &Error{Code: code, msg: fmt.Sprintf(format, args...)}
	for _, arg := range args {
		if err, ok := arg.(error); ok {
			e.err = err
		}
	}
	return e
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.msg)
}

func (e *Error) Unwrap() error {
	return e.err
}

// Is matches any *Error carrying the same code, allowing
// errors.Is(err, &auth.Error{Code: auth.ErrorUserNotFound}).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

// Code extracts the ErrorCode from an error chain, or empty if the chain
// carries no SDK error.
func Code(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}
