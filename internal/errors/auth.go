// Copyright 2025 Originate Group. All rights reserved.
//
// common-mcp-submodule is licensed under the Apache License Version 2.0.

package errors

import (
	"errors"
)

// AuthErrorCode represents a classified authentication failure code
type AuthErrorCode error

// AuthError represents a structured authentication failure
type AuthError struct {
	ErrorCode string
	Message   string
}

// AuthErrorResponse represents the JSON body written with a 401 response
type AuthErrorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
}

// Classified authentication failure codes. OAuth-path failures map onto the
// verification step that rejected the token; PAT-path failures onto the
// header/prefix/callback checks. MissingCredentials covers requests carrying
// neither credential form.
var (
	ErrMalformedToken     AuthErrorCode = errors.New("malformed_token")
	ErrUnknownKey         AuthErrorCode = errors.New("unknown_key")
	ErrBadSignature       AuthErrorCode = errors.New("bad_signature")
	ErrIssuerMismatch     AuthErrorCode = errors.New("issuer_mismatch")
	ErrExpiredToken       AuthErrorCode = errors.New("expired_token")
	ErrAudienceMismatch   AuthErrorCode = errors.New("audience_mismatch")
	ErrInvalidPrefix      AuthErrorCode = errors.New("invalid_prefix")
	ErrTokenRejected      AuthErrorCode = errors.New("token_rejected")
	ErrVerifierError      AuthErrorCode = errors.New("verifier_error")
	ErrMissingCredentials AuthErrorCode = errors.New("missing_credentials")
)

// AuthErrorMapping maps error strings to their corresponding AuthErrorCode
var AuthErrorMapping = map[string]AuthErrorCode{
	"malformed_token":     ErrMalformedToken,
	"unknown_key":         ErrUnknownKey,
	"bad_signature":       ErrBadSignature,
	"issuer_mismatch":     ErrIssuerMismatch,
	"expired_token":       ErrExpiredToken,
	"audience_mismatch":   ErrAudienceMismatch,
	"invalid_prefix":      ErrInvalidPrefix,
	"token_rejected":      ErrTokenRejected,
	"verifier_error":      ErrVerifierError,
	"missing_credentials": ErrMissingCredentials,
}

// NewAuthError creates a new AuthError
func NewAuthError(errCode AuthErrorCode, message string) AuthError {
	err := AuthError{
		ErrorCode: errCode.Error(),
	}
	if message != "" {
		err.Message = message
	}
	return err
}

// ToResponseStruct converts AuthError into AuthErrorResponse for JSON encoding
func (a AuthError) ToResponseStruct() *AuthErrorResponse {
	return &AuthErrorResponse{
		Error:            a.ErrorCode,
		ErrorDescription: a.Message,
	}
}

// Is reports whether the error matches the given classified code, so callers
// can use errors.Is against the sentinel codes above.
func (a AuthError) Is(target error) bool {
	return target != nil && a.ErrorCode == target.Error()
}

// Error implements the error interface
func (a AuthError) Error() string {
	return a.ErrorCode
}
