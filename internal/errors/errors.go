// Copyright 2025 Originate Group. All rights reserved.
//
// common-mcp-submodule is licensed under the Apache License Version 2.0.

package errors

import (
	"errors"
)

// Common protocol-level errors.
var (
	// ErrInvalidParams indicates request params could not be decoded.
	ErrInvalidParams = errors.New("invalid params")

	// ErrMissingParams indicates a required param is absent.
	ErrMissingParams = errors.New("missing required params")

	// ErrMethodNotFound indicates an unknown request method.
	ErrMethodNotFound = errors.New("method not found")

	// ErrEmptyBody indicates an empty request body.
	ErrEmptyBody = errors.New("empty request body")
)
