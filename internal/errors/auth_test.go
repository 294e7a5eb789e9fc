// Copyright 2025 Originate Group. All rights reserved.
//
// common-mcp-submodule is licensed under the Apache License Version 2.0.

package errors_test

import (
	stderrors "errors"
	"testing"

	"github.com/Originate-Group/common-mcp-submodule/internal/errors"
)

func TestNewAuthError(t *testing.T) {
	err := errors.NewAuthError(errors.ErrBadSignature, "signature verification failed")

	if err.ErrorCode != "bad_signature" {
		t.Errorf("expected error code 'bad_signature', got %s", err.ErrorCode)
	}
	if err.Message != "signature verification failed" {
		t.Errorf("expected message 'signature verification failed', got %s", err.Message)
	}
}

func TestToResponseStruct(t *testing.T) {
	err := errors.NewAuthError(errors.ErrExpiredToken, "token expired")
	resp := err.ToResponseStruct()

	if resp.Error != "expired_token" {
		t.Errorf("expected 'expired_token', got %s", resp.Error)
	}
	if resp.ErrorDescription != "token expired" {
		t.Errorf("expected description 'token expired', got %s", resp.ErrorDescription)
	}
}

func TestErrorMethod(t *testing.T) {
	err := errors.NewAuthError(errors.ErrMissingCredentials, "no credentials supplied")
	if err.Error() != "missing_credentials" {
		t.Errorf("expected 'missing_credentials', got %s", err.Error())
	}
}

func TestErrorsIsMatchesCode(t *testing.T) {
	err := errors.NewAuthError(errors.ErrIssuerMismatch, "unexpected issuer")

	if !stderrors.Is(err, errors.ErrIssuerMismatch) {
		t.Error("expected errors.Is to match the issuer mismatch code")
	}
	if stderrors.Is(err, errors.ErrExpiredToken) {
		t.Error("did not expect errors.Is to match a different code")
	}
}

func TestAuthErrorMapping(t *testing.T) {
	code, ok := errors.AuthErrorMapping["token_rejected"]
	if !ok {
		t.Fatal("expected token_rejected in mapping")
	}
	if code != errors.ErrTokenRejected {
		t.Error("mapping returned wrong code for token_rejected")
	}
}
