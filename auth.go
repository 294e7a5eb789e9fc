// Copyright 2025 Originate Group. All rights reserved.
//
// common-mcp-submodule is licensed under the Apache License Version 2.0.

package mcp

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/Originate-Group/common-mcp-submodule/internal/auth/server"
	"github.com/Originate-Group/common-mcp-submodule/internal/auth/server/middleware"
	"github.com/Originate-Group/common-mcp-submodule/internal/log"
)

// AuthIdentity describes the authenticated caller of a request.
type AuthIdentity = server.Identity

// PATUser is the result of a successful personal access token verification.
type PATUser = server.PATUser

// PATVerifyFunc checks a personal access token against its backing store.
type PATVerifyFunc = server.PATVerifyFunc

// PATAuthConfig configures the personal access token path.
type PATAuthConfig struct {
	// HeaderName is the request header carrying the token.
	// Defaults to X-API-Key.
	HeaderName string

	// Prefix is a required token prefix. Empty disables the check.
	Prefix string

	// Verify is the verification callback. Required.
	Verify PATVerifyFunc
}

// OAuthAuthConfig configures the OAuth bearer token path.
type OAuthAuthConfig struct {
	// JWKSURL is the key set endpoint of the authorization server. Required.
	JWKSURL string

	// Issuer is the exact required 'iss' claim value. Required.
	Issuer string

	// Algorithms lists accepted signature algorithms. Defaults to RS256.
	Algorithms []string

	// VerifyAudience enables the 'aud' claim check against Audience.
	VerifyAudience bool

	// Audience is the required audience when VerifyAudience is set.
	Audience string

	// ClockSkew is the tolerance for time-based claims. Defaults to 60s.
	ClockSkew time.Duration

	// KeySetTTL is the freshness window of the cached JWKS.
	// Defaults to 10 minutes.
	KeySetTTL time.Duration
}

// AuthConfig configures request authentication. At least one of PAT and
// OAuth must be set. When both are set, a request carrying the personal
// access token header is checked against the PAT path first, and its failure
// is terminal unless OAuthFallbackOnPATFailure is enabled.
type AuthConfig struct {
	// PAT enables the personal access token path.
	PAT *PATAuthConfig

	// OAuth enables the OAuth bearer token path.
	OAuth *OAuthAuthConfig

	// OAuthFallbackOnPATFailure lets a failed PAT request retry with its
	// bearer token. Off by default.
	OAuthFallbackOnPATFailure bool

	// ResourceURL is the canonical URL of this resource server. When set,
	// 401 responses carry a resource_metadata challenge pointing at the
	// RFC 9728 discovery document, and the server exposes that document
	// under /.well-known/oauth-protected-resource.
	ResourceURL string
}

// AuthIdentityFromContext retrieves the authenticated identity of a request.
func AuthIdentityFromContext(ctx context.Context) (AuthIdentity, bool) {
	return middleware.IdentityFromContext(ctx)
}

// WithAuth enables request authentication for the MCP endpoint.
func WithAuth(config *AuthConfig) ServerOption {
	return func(s *Server) {
		s.config.auth = config
	}
}

func ensureAuthConfig(s *Server) *AuthConfig {
	if s.config.auth == nil {
		s.config.auth = &AuthConfig{}
	}
	return s.config.auth
}

// WithPAT enables the personal access token path.
func WithPAT(config PATAuthConfig) ServerOption {
	return func(s *Server) {
		ensureAuthConfig(s).PAT = &config
	}
}

// WithOAuth enables the OAuth bearer token path.
func WithOAuth(config OAuthAuthConfig) ServerOption {
	return func(s *Server) {
		ensureAuthConfig(s).OAuth = &config
	}
}

// WithResourceURL sets the canonical resource server URL used for RFC 9728
// discovery and the resource_metadata challenge parameter.
func WithResourceURL(resourceURL string) ServerOption {
	return func(s *Server) {
		ensureAuthConfig(s).ResourceURL = resourceURL
	}
}

// WithOAuthFallback lets a request whose personal access token was rejected
// retry with its bearer token.
func WithOAuthFallback(enabled bool) ServerOption {
	return func(s *Server) {
		ensureAuthConfig(s).OAuthFallbackOnPATFailure = enabled
	}
}

// protectedResourceMetadataPath is the RFC 9728 discovery path.
const protectedResourceMetadataPath = "/.well-known/oauth-protected-resource"

// resourceMetadataURL derives the discovery document URL from the resource URL.
func resourceMetadataURL(resourceURL string) string {
	return strings.TrimSuffix(resourceURL, "/") + protectedResourceMetadataPath
}

// buildAuthMiddleware converts an AuthConfig into the HTTP middleware wrapper.
func buildAuthMiddleware(config *AuthConfig, logger log.Logger) (func(http.Handler) http.Handler, error) {
	if config == nil {
		return nil, nil
	}
	if config.PAT == nil && config.OAuth == nil {
		return nil, fmt.Errorf("auth config needs at least one of PAT and OAuth")
	}

	opts := middleware.DualAuthMiddlewareOptions{
		OAuthFallbackOnPATFailure: config.OAuthFallbackOnPATFailure,
		Logger:                    logger,
	}

	if config.PAT != nil {
		verifier, err := server.NewPATVerifier(server.PATVerifierConfig{
			HeaderName: config.PAT.HeaderName,
			Prefix:     config.PAT.Prefix,
			Verify:     config.PAT.Verify,
			Logger:     logger,
		})
		if err != nil {
			return nil, fmt.Errorf("invalid PAT config: %w", err)
		}
		opts.PATVerifier = verifier
	}

	if config.OAuth != nil {
		var keySet *server.KeySetCache
		if config.OAuth.JWKSURL != "" {
			var cacheOpts []server.KeySetCacheOption
			if config.OAuth.KeySetTTL > 0 {
				cacheOpts = append(cacheOpts, server.WithKeySetTTL(config.OAuth.KeySetTTL))
			}
			if logger != nil {
				cacheOpts = append(cacheOpts, server.WithCacheLogger(logger))
			}
			keySet = server.NewKeySetCache(config.OAuth.JWKSURL, cacheOpts...)
		}
		verifier, err := server.NewOAuthVerifier(server.OAuthVerifierConfig{
			JWKSURL:        config.OAuth.JWKSURL,
			Issuer:         config.OAuth.Issuer,
			Algorithms:     config.OAuth.Algorithms,
			VerifyAudience: config.OAuth.VerifyAudience,
			Audience:       config.OAuth.Audience,
			ClockSkew:      config.OAuth.ClockSkew,
			KeySet:         keySet,
			Logger:         logger,
		})
		if err != nil {
			return nil, fmt.Errorf("invalid OAuth config: %w", err)
		}
		opts.OAuthVerifier = verifier
	}

	if config.ResourceURL != "" {
		metadataURL := resourceMetadataURL(config.ResourceURL)
		opts.ResourceMetadataURL = &metadataURL
	}

	return middleware.RequireDualAuth(opts), nil
}

// protectedResourceMetadata is the RFC 9728 discovery document.
type protectedResourceMetadata struct {
	Resource             string   `json:"resource"`
	AuthorizationServers []string `json:"authorization_servers,omitempty"`
	BearerMethods        []string `json:"bearer_methods_supported,omitempty"`
}
