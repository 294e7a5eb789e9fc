// Copyright 2025 Originate Group. All rights reserved.
//
// common-mcp-submodule is licensed under the Apache License Version 2.0.

package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	autherrors "github.com/Originate-Group/common-mcp-submodule/internal/errors"
)

func staticPATVerify(user *PATUser, err error) PATVerifyFunc {
	return func(ctx context.Context, token string, r *http.Request) (*PATUser, error) {
		return user, err
	}
}

func TestNewPATVerifierRequiresCallback(t *testing.T) {
	_, err := NewPATVerifier(PATVerifierConfig{})
	assert.Error(t, err)
}

func TestPATVerifierHeaderName(t *testing.T) {
	verifier, err := NewPATVerifier(PATVerifierConfig{Verify: staticPATVerify(nil, nil)})
	require.NoError(t, err)
	assert.Equal(t, "X-API-Key", verifier.HeaderName())

	verifier, err = NewPATVerifier(PATVerifierConfig{
		HeaderName: "X-Gateway-Token",
		Verify:     staticPATVerify(nil, nil),
	})
	require.NoError(t, err)
	assert.Equal(t, "X-Gateway-Token", verifier.HeaderName())
}

func TestPATTokenFromRequest(t *testing.T) {
	verifier, err := NewPATVerifier(PATVerifierConfig{Verify: staticPATVerify(nil, nil)})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/mcp", nil)
	_, present := verifier.TokenFromRequest(req)
	assert.False(t, present)

	req.Header.Set("X-API-Key", "  pat_abc123  ")
	token, present := verifier.TokenFromRequest(req)
	assert.True(t, present)
	assert.Equal(t, "pat_abc123", token)
}

func TestPATVerifySuccess(t *testing.T) {
	verifier, err := NewPATVerifier(PATVerifierConfig{
		Prefix: "pat_",
		Verify: staticPATVerify(&PATUser{
			UserID:      "user-1",
			Email:       "dev@example.com",
			Username:    "dev",
			DisplayName: "Dev One",
			Extra:       map[string]interface{}{"team": "platform"},
		}, nil),
	})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/mcp", nil)
	identity, err := verifier.Verify(context.Background(), "pat_abc123", req)
	require.NoError(t, err)

	assert.Equal(t, "user-1", identity.UserID)
	assert.Equal(t, "dev@example.com", identity.Email)
	assert.Equal(t, "dev", identity.Username)
	assert.Equal(t, "Dev One", identity.DisplayName)
	assert.Equal(t, "pat_abc123", identity.Token)
	assert.True(t, identity.IsPersonalAccessToken)
	assert.Equal(t, "platform", identity.Extra["team"])
}

func TestPATVerifyPrefixMismatch(t *testing.T) {
	verifier, err := NewPATVerifier(PATVerifierConfig{
		Prefix: "pat_",
		Verify: staticPATVerify(&PATUser{UserID: "user-1"}, nil),
	})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/mcp", nil)
	_, err = verifier.Verify(context.Background(), "sk_wrongkind", req)
	assert.True(t, errors.Is(err, autherrors.ErrInvalidPrefix))
}

func TestPATVerifyCallbackError(t *testing.T) {
	verifier, err := NewPATVerifier(PATVerifierConfig{
		Verify: staticPATVerify(nil, fmt.Errorf("database down")),
	})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/mcp", nil)
	_, err = verifier.Verify(context.Background(), "anytoken", req)
	assert.True(t, errors.Is(err, autherrors.ErrVerifierError))
}

func TestPATVerifyRejected(t *testing.T) {
	testCases := []struct {
		name string
		user *PATUser
	}{
		{"nil user", nil},
		{"empty user id", &PATUser{Email: "anon@example.com"}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			verifier, err := NewPATVerifier(PATVerifierConfig{
				Verify: staticPATVerify(tc.user, nil),
			})
			require.NoError(t, err)

			req := httptest.NewRequest(http.MethodPost, "/mcp", nil)
			_, err = verifier.Verify(context.Background(), "anytoken", req)
			assert.True(t, errors.Is(err, autherrors.ErrTokenRejected))
		})
	}
}

func TestPATVerifyPanicGuard(t *testing.T) {
	verifier, err := NewPATVerifier(PATVerifierConfig{
		Verify: func(ctx context.Context, token string, r *http.Request) (*PATUser, error) {
			panic("callback exploded")
		},
	})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/mcp", nil)
	identity, err := verifier.Verify(context.Background(), "anytoken", req)
	assert.True(t, errors.Is(err, autherrors.ErrVerifierError))
	assert.Empty(t, identity.UserID)
}
