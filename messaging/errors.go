// Copyright 2026 The Driftline Authors
// SPDX-License-Identifier: Apache-2.0

package messaging

import (
	"errors"
	"fmt"
	"net/http"
)

// MatrixError represents a structured error response from the Matrix
// homeserver. Callers can use errors.As to extract the structured
// information:
//
//	var matrixErr *MatrixError
//	if errors.As(err, &matrixErr) {
//	    if matrixErr.Code == ErrCodeForbidden { ... }
//	}
type MatrixError struct {
	// Code is the Matrix error code (e.g., "M_FORBIDDEN", "M_UNKNOWN_TOKEN").
	Code string `json:"errcode"`
	// Message is the human-readable error description from the server.
	Message string `json:"error"`
	// StatusCode is the HTTP status code of the response.
	StatusCode int `json:"-"`
}

func (e *MatrixError) Error() string {
	return fmt.Sprintf("matrix: %s (%d): %s", e.Code, e.StatusCode, e.Message)
}

// Standard Matrix error codes.
const (
	ErrCodeForbidden     = "M_FORBIDDEN"
	ErrCodeUnknownToken  = "M_UNKNOWN_TOKEN"
	ErrCodeMissingToken  = "M_MISSING_TOKEN"
	ErrCodeNotFound      = "M_NOT_FOUND"
	ErrCodeLimitExceeded = "M_LIMIT_EXCEEDED"
	ErrCodeUnrecognized  = "M_UNRECOGNIZED"
	ErrCodeUnknown       = "M_UNKNOWN"
	ErrCodeInvalidParam  = "M_INVALID_PARAM"
	ErrCodeMissingParam  = "M_MISSING_PARAM"
)

// ErrAuthFailed is the terminal classification for a rejected
// credential. The sync loop wraps the underlying *MatrixError in this
// sentinel before stopping, so callers can distinguish "needs new
// credentials" from transient transport failures with errors.Is and
// trigger re-authentication.
var ErrAuthFailed = errors.New("messaging: authentication failed")

// IsMatrixError checks whether err is a *MatrixError with the given
// error code.
func IsMatrixError(err error, code string) bool {
	var matrixErr *MatrixError
	if errors.As(err, &matrixErr) {
		return matrixErr.Code == code
	}
	return false
}

// IsAuthError reports whether err is a credential rejection from the
// homeserver: a 401 response, or the token-related Matrix error codes.
// Retrying such a request cannot succeed without new credentials.
func IsAuthError(err error) bool {
	if errors.Is(err, ErrAuthFailed) {
		return true
	}
	var matrixErr *MatrixError
	if !errors.As(err, &matrixErr) {
		return false
	}
	if matrixErr.StatusCode == http.StatusUnauthorized {
		return true
	}
	return matrixErr.Code == ErrCodeUnknownToken || matrixErr.Code == ErrCodeMissingToken
}
