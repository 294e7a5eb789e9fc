// Copyright 2025 Originate Group. All rights reserved.
//
// common-mcp-submodule is licensed under the Apache License Version 2.0.

package mcp

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newInitializeRequest(id RequestID) *JSONRPCRequest {
	return &JSONRPCRequest{
		JSONRPC: JSONRPCVersion,
		ID:      id,
		Request: Request{Method: MethodInitialize},
		Params: map[string]interface{}{
			"protocolVersion": ProtocolVersion,
			"clientInfo": map[string]interface{}{
				"name":    "test-client",
				"version": "1.0.0",
			},
		},
	}
}

func TestHandleInitialize(t *testing.T) {
	manager := newLifecycleManager(Implementation{Name: "gateway", Version: "2.3.4"}).
		withInstructions("Call tools/list first.")

	msg, err := manager.handleInitialize(context.Background(), newInitializeRequest(1))
	require.NoError(t, err)

	resp, ok := msg.(*JSONRPCResponse)
	require.True(t, ok)
	result, ok := resp.Result.(InitializeResult)
	require.True(t, ok)

	assert.Equal(t, ProtocolVersion, result.ProtocolVersion)
	assert.Equal(t, "gateway", result.ServerInfo.Name)
	assert.Equal(t, "2.3.4", result.ServerInfo.Version)
	assert.Equal(t, "Call tools/list first.", result.Instructions)
	require.NotNil(t, result.Capabilities.Tools)
	assert.True(t, result.Capabilities.Tools.ListChanged)
	assert.Nil(t, result.Capabilities.Logging)
}

func TestHandleInitializeIgnoresClientVersion(t *testing.T) {
	manager := newLifecycleManager(Implementation{Name: "gateway", Version: "1.0.0"})

	req := newInitializeRequest(1)
	req.Params = map[string]interface{}{
		"protocolVersion": "1999-01-01",
	}

	msg, err := manager.handleInitialize(context.Background(), req)
	require.NoError(t, err)

	result := msg.(*JSONRPCResponse).Result.(InitializeResult)
	// The server always reports its own protocol revision.
	assert.Equal(t, ProtocolVersion, result.ProtocolVersion)
}

func TestHandleInitializeIdempotent(t *testing.T) {
	manager := newLifecycleManager(Implementation{Name: "gateway", Version: "1.0.0"})

	first, err := manager.handleInitialize(context.Background(), newInitializeRequest(1))
	require.NoError(t, err)
	second, err := manager.handleInitialize(context.Background(), newInitializeRequest(2))
	require.NoError(t, err)

	firstResult := first.(*JSONRPCResponse).Result.(InitializeResult)
	secondResult := second.(*JSONRPCResponse).Result.(InitializeResult)
	assert.Equal(t, firstResult, secondResult)
}

func TestHandleInitialized(t *testing.T) {
	manager := newLifecycleManager(Implementation{Name: "gateway", Version: "1.0.0"})

	notification := NewJSONRPCNotificationFromMap(MethodNotificationsInitialized, nil)
	assert.NoError(t, manager.handleInitialized(context.Background(), notification))
}
