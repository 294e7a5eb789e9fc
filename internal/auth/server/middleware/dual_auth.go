// Copyright 2025 Originate Group. All rights reserved.
//
// common-mcp-submodule is licensed under the Apache License Version 2.0.

package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/Originate-Group/common-mcp-submodule/internal/auth/server"
	"github.com/Originate-Group/common-mcp-submodule/internal/errors"
	"github.com/Originate-Group/common-mcp-submodule/internal/log"
)

// DualAuthMiddlewareOptions defines configuration for the dual-path auth
// middleware. At least one verifier must be set.
type DualAuthMiddlewareOptions struct {
	// PATVerifier validates personal access tokens. Optional.
	PATVerifier *server.PATVerifier

	// OAuthVerifier validates OAuth bearer tokens. Optional.
	OAuthVerifier server.TokenVerifierInterface

	// OAuthFallbackOnPATFailure lets a request that failed personal access
	// token verification retry with its bearer token. Off by default: a
	// presented PAT that fails is terminal.
	OAuthFallbackOnPATFailure bool

	// ResourceMetadataURL is included in the WWW-Authenticate header as
	// resource_metadata so clients can discover the authorization server.
	ResourceMetadataURL *string

	// Logger for authentication events.
	Logger log.Logger
}

// RequireDualAuth returns an HTTP middleware that authenticates requests by
// personal access token or OAuth bearer token. A personal access token, when
// present, is checked first and its failure is terminal unless the fallback
// option is set. The validated identity is stored in the request context
// under AuthInfoKey.
func RequireDualAuth(options DualAuthMiddlewareOptions) func(handler http.Handler) http.Handler {
	logger := options.Logger
	if logger == nil {
		logger = log.NewZapLogger()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			// setErrorResponse writes the 401 JSON body and challenge header.
			// The resource_metadata parameter belongs to the bearer scheme
			// and is omitted when a personal access token failed.
			setErrorResponse := func(w http.ResponseWriter, authErr errors.AuthError, includeMetadata bool) {
				wwwAuthValue := fmt.Sprintf(`Bearer error="%s", error_description="%s"`,
					headerQuote(authErr.ErrorCode), headerQuote(authErr.Message))
				if includeMetadata && options.ResourceMetadataURL != nil {
					wwwAuthValue += fmt.Sprintf(`, resource_metadata="%s"`, headerQuote(*options.ResourceMetadataURL))
				}
				w.Header().Set("WWW-Authenticate", wwwAuthValue)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				_ = json.NewEncoder(w).Encode(authErr.ToResponseStruct())
			}

			accept := func(identity server.Identity) {
				ctx := context.WithValue(req.Context(), AuthInfoKey, identity)
				next.ServeHTTP(w, req.WithContext(ctx))
			}

			// Personal access token path runs first when the token
			// header is present.
			if options.PATVerifier != nil {
				if token, present := options.PATVerifier.TokenFromRequest(req); present {
					identity, err := options.PATVerifier.Verify(req.Context(), token, req)
					if err == nil {
						accept(identity)
						return
					}
					logger.Debugf("PAT verification failed: %v", err)
					if !options.OAuthFallbackOnPATFailure {
						setErrorResponse(w, asAuthError(err), false)
						return
					}
					// Fall through to the OAuth path.
				}
			}

			if options.OAuthVerifier != nil {
				if token, present, headerErr := bearerTokenFromRequest(req); present {
					if headerErr != nil {
						setErrorResponse(w, errors.NewAuthError(errors.ErrMalformedToken,
							"invalid Authorization header format, expected 'Bearer TOKEN'"), true)
						return
					}
					identity, err := options.OAuthVerifier.VerifyAccessToken(req.Context(), token)
					if err != nil {
						logger.Debugf("OAuth verification failed: %v", err)
						setErrorResponse(w, asAuthError(err), true)
						return
					}
					accept(identity)
					return
				}
			}

			setErrorResponse(w, errors.NewAuthError(errors.ErrMissingCredentials, "no credentials provided"), true)
		})
	}
}

// bearerTokenFromRequest extracts the bearer token from the Authorization
// header. The second return value reports header presence; the error reports
// a present but malformed header.
func bearerTokenFromRequest(req *http.Request) (string, bool, error) {
	authHeader := req.Header.Get("Authorization")
	if authHeader == "" {
		return "", false, nil
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || parts[1] == "" {
		return "", true, fmt.Errorf("malformed Authorization header")
	}
	return parts[1], true, nil
}

// headerQuote escapes a value for use inside an HTTP quoted-string
// (RFC 7235 quoted-pair).
func headerQuote(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, `"`, `\"`)
}

// asAuthError converts any verifier error into an AuthError without leaking
// internals.
func asAuthError(err error) errors.AuthError {
	if authErr, ok := err.(errors.AuthError); ok {
		return authErr
	}
	return errors.NewAuthError(errors.ErrVerifierError, "authentication failed")
}
