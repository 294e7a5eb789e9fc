// Copyright 2025 Originate Group. All rights reserved.
//
// common-mcp-submodule is licensed under the Apache License Version 2.0.

package middleware

import (
	"context"

	"github.com/Originate-Group/common-mcp-submodule/internal/auth/server"
)

// authInfoKeyType is an unexported empty struct used as a context key to prevent collisions with other packages
type authInfoKeyType struct{}

// AuthInfoKey is the context key for storing and retrieving the authenticated identity on requests
var AuthInfoKey = authInfoKeyType{}

// IdentityFromContext retrieves the authenticated identity stored by RequireDualAuth.
func IdentityFromContext(ctx context.Context) (server.Identity, bool) {
	identity, ok := ctx.Value(AuthInfoKey).(server.Identity)
	return identity, ok
}
