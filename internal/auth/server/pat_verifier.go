// Copyright 2025 Originate Group. All rights reserved.
//
// common-mcp-submodule is licensed under the Apache License Version 2.0.

package server

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	autherrors "github.com/Originate-Group/common-mcp-submodule/internal/errors"
	"github.com/Originate-Group/common-mcp-submodule/internal/log"
)

// defaultPATHeader is the header carrying a personal access token.
const defaultPATHeader = "X-API-Key"

// PATUser is the result of a successful personal access token verification.
type PATUser struct {
	// UserID identifies the token owner.
	UserID string `json:"userId"`

	// Email is the owner's email address, when known.
	Email string `json:"email,omitempty"`

	// Username is the owner's login name, when known.
	Username string `json:"username,omitempty"`

	// DisplayName is a human-readable name, when known.
	DisplayName string `json:"displayName,omitempty"`

	// Extra carries any additional fields the verification backend
	// returned. They are passed through to the identity unchanged.
	Extra map[string]interface{} `json:"extra,omitempty"`
}

// PATVerifyFunc checks a personal access token against its backing store.
// Returning an error or a nil user rejects the token.
type PATVerifyFunc func(ctx context.Context, token string, r *http.Request) (*PATUser, error)

// PATVerifierConfig configures personal access token verification.
type PATVerifierConfig struct {
	// HeaderName is the request header carrying the token.
	// Defaults to X-API-Key.
	HeaderName string

	// Prefix is a required token prefix, such as "pat_". Empty disables
	// the prefix check.
	Prefix string

	// Verify is the verification callback. Required.
	Verify PATVerifyFunc

	// Logger for verification events.
	Logger log.Logger
}

// PATVerifier validates personal access tokens through a callback.
type PATVerifier struct {
	headerName string
	prefix     string
	verify     PATVerifyFunc
	logger     log.Logger
}

// NewPATVerifier creates a personal access token verifier.
func NewPATVerifier(cfg PATVerifierConfig) (*PATVerifier, error) {
	if cfg.Verify == nil {
		return nil, fmt.Errorf("verify callback is required")
	}
	headerName := cfg.HeaderName
	if headerName == "" {
		headerName = defaultPATHeader
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.NewZapLogger()
	}
	return &PATVerifier{
		headerName: headerName,
		prefix:     cfg.Prefix,
		verify:     cfg.Verify,
		logger:     logger,
	}, nil
}

// HeaderName returns the configured token header.
func (v *PATVerifier) HeaderName() string {
	return v.headerName
}

// TokenFromRequest extracts the token from the request header. The second
// return value reports whether the header was present at all.
func (v *PATVerifier) TokenFromRequest(r *http.Request) (string, bool) {
	value := r.Header.Get(v.headerName)
	if value == "" {
		return "", false
	}
	return strings.TrimSpace(value), true
}

// Verify validates a token. The callback runs behind a panic guard so a
// misbehaving backend reads as a verifier error instead of tearing down the
// request.
func (v *PATVerifier) Verify(ctx context.Context, token string, r *http.Request) (identity Identity, err error) {
	if v.prefix != "" && !strings.HasPrefix(token, v.prefix) {
		return Identity{}, autherrors.NewAuthError(autherrors.ErrInvalidPrefix,
			fmt.Sprintf("token does not carry the %s prefix", v.prefix))
	}

	defer func() {
		if rec := recover(); rec != nil {
			v.logger.Errorf("panic in PAT verification callback: %v", rec)
			identity = Identity{}
			err = autherrors.NewAuthError(autherrors.ErrVerifierError, "token verification failed")
		}
	}()

	user, err := v.verify(ctx, token, r)
	if err != nil {
		v.logger.Debugf("PAT verification callback error: %v", err)
		return Identity{}, autherrors.NewAuthError(autherrors.ErrVerifierError, "token verification failed")
	}
	if user == nil || user.UserID == "" {
		return Identity{}, autherrors.NewAuthError(autherrors.ErrTokenRejected, "token rejected")
	}

	return Identity{
		UserID:                user.UserID,
		Email:                 user.Email,
		Username:              user.Username,
		DisplayName:           user.DisplayName,
		Token:                 token,
		IsPersonalAccessToken: true,
		Extra:                 user.Extra,
	}, nil
}
