// Copyright 2025 Originate Group. All rights reserved.
//
// common-mcp-submodule is licensed under the Apache License Version 2.0.

package server

// Identity holds information about an authenticated caller and is provided
// to request handlers through the request context.
type Identity struct {
	// UserID is the stable identifier of the principal. For OAuth tokens
	// this is the JWT 'sub' claim; for personal access tokens it comes
	// from the verification callback.
	UserID string `json:"userId"`

	// Email is the caller's email address, when known.
	Email string `json:"email,omitempty"`

	// Username is the caller's login name, when known. For OAuth tokens
	// this comes from the 'preferred_username' claim.
	Username string `json:"username,omitempty"`

	// DisplayName is a human-readable name, when known. For OAuth tokens
	// this comes from the 'name' claim.
	DisplayName string `json:"displayName,omitempty"`

	// Token is the original credential string. Downstream tool dispatch
	// may need it to act on the caller's behalf.
	Token string `json:"-"`

	// IsPersonalAccessToken reports which verification path accepted the
	// credential.
	IsPersonalAccessToken bool `json:"isPersonalAccessToken"`

	// Scopes are the permission scopes granted with the credential, when
	// the issuer provides them.
	Scopes []string `json:"scopes,omitempty"`

	// Extra contains additional fields attached by the verifier, such as
	// pass-through fields from a personal access token callback or custom
	// JWT claims.
	Extra map[string]interface{} `json:"extra,omitempty"`
}
