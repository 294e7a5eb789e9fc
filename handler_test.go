// Copyright 2025 Originate Group. All rights reserved.
//
// common-mcp-submodule is licensed under the Apache License Version 2.0.

package mcp

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandleRequestDispatch(t *testing.T) {
	h := newMCPHandler()

	req := &JSONRPCRequest{
		JSONRPC: JSONRPCVersion,
		ID:      42,
		Request: Request{Method: MethodPing},
	}

	msg, err := h.handleRequest(context.Background(), req)
	require.NoError(t, err)

	resp, ok := msg.(*JSONRPCResponse)
	require.True(t, ok)
	assert.Equal(t, 42, resp.ID)
	assert.Equal(t, map[string]interface{}{}, resp.Result)
}

func TestHandleRequestMethodNotFound(t *testing.T) {
	h := newMCPHandler()

	req := &JSONRPCRequest{
		JSONRPC: JSONRPCVersion,
		ID:      "abc",
		Request: Request{Method: "resources/list"},
	}

	msg, err := h.handleRequest(context.Background(), req)
	require.NoError(t, err)

	errResp, ok := msg.(*JSONRPCError)
	require.True(t, ok)
	assert.Equal(t, "abc", errResp.ID)
	assert.Equal(t, ErrCodeMethodNotFound, errResp.Error.Code)
	assert.Equal(t, "resources/list", errResp.Error.Data)
}

func TestHandleToolsCallWithMiddleware(t *testing.T) {
	manager := newToolManager()
	tool, handler := echoTool()
	manager.registerTool(tool, handler)

	var sawTool string
	middleware := func(ctx context.Context, req interface{}, next Handler) (interface{}, error) {
		if callReq, ok := req.(*CallToolRequest); ok {
			sawTool = callReq.Params.Name
		}
		return next(ctx, req)
	}

	h := newMCPHandler(
		withToolManager(manager),
		withMiddlewares([]MiddlewareFunc{middleware}),
	)

	msg, err := h.handleRequest(context.Background(),
		newToolCallRequest("echo", map[string]interface{}{"message": "through middleware"}))
	require.NoError(t, err)

	assert.Equal(t, "echo", sawTool)
	resp := msg.(*JSONRPCResponse)
	result := resp.Result.(*CallToolResult)
	assert.Equal(t, "through middleware", result.Content[0].(TextContent).Text)
}

func TestHandleToolsCallMiddlewareRewritesArguments(t *testing.T) {
	manager := newToolManager()
	tool, handler := echoTool()
	manager.registerTool(tool, handler)

	middleware := func(ctx context.Context, req interface{}, next Handler) (interface{}, error) {
		callReq := req.(*CallToolRequest)
		callReq.Params.Arguments["message"] = "rewritten"
		return next(ctx, callReq)
	}

	h := newMCPHandler(
		withToolManager(manager),
		withMiddlewares([]MiddlewareFunc{middleware}),
	)

	msg, err := h.handleRequest(context.Background(),
		newToolCallRequest("echo", map[string]interface{}{"message": "original"}))
	require.NoError(t, err)

	result := msg.(*JSONRPCResponse).Result.(*CallToolResult)
	assert.Equal(t, "rewritten", result.Content[0].(TextContent).Text)
}

func TestHandleToolsCallMiddlewareMissingArguments(t *testing.T) {
	manager := newToolManager()
	tool, handler := echoTool()
	manager.registerTool(tool, handler)

	invoked := false
	middleware := func(ctx context.Context, req interface{}, next Handler) (interface{}, error) {
		invoked = true
		return next(ctx, req)
	}

	h := newMCPHandler(
		withToolManager(manager),
		withMiddlewares([]MiddlewareFunc{middleware}),
	)

	req := &JSONRPCRequest{
		JSONRPC: JSONRPCVersion,
		ID:      1,
		Request: Request{Method: MethodToolsCall},
		Params:  map[string]interface{}{"name": "echo"},
	}
	msg, err := h.handleRequest(context.Background(), req)
	require.NoError(t, err)

	errResp, ok := msg.(*JSONRPCError)
	require.True(t, ok)
	assert.Equal(t, ErrCodeInvalidParams, errResp.Error.Code)
	assert.Equal(t, "tool arguments are required", errResp.Error.Message)
	assert.False(t, invoked)
}

func TestHandleToolsCallMiddlewareErrorSanitized(t *testing.T) {
	manager := newToolManager()
	tool, handler := echoTool()
	manager.registerTool(tool, handler)

	middleware := func(ctx context.Context, req interface{}, next Handler) (interface{}, error) {
		return nil, fmt.Errorf("panic recovered: secret at /etc/gateway/creds")
	}

	h := newMCPHandler(
		withToolManager(manager),
		withMiddlewares([]MiddlewareFunc{middleware}),
	)

	msg, err := h.handleRequest(context.Background(),
		newToolCallRequest("echo", map[string]interface{}{"message": "hi"}))
	require.NoError(t, err)

	errResp, ok := msg.(*JSONRPCError)
	require.True(t, ok)
	assert.Equal(t, ErrCodeInternal, errResp.Error.Code)
	assert.Equal(t, "tool call failed", errResp.Error.Message)
	// Middleware detail must stay out of the response.
	assert.Nil(t, errResp.Error.Data)
}

func TestHandleNotification(t *testing.T) {
	h := newMCPHandler()

	initialized := NewJSONRPCNotificationFromMap(MethodNotificationsInitialized, nil)
	assert.NoError(t, h.handleNotification(context.Background(), initialized))

	// Unknown notifications are accepted silently.
	unknown := NewJSONRPCNotificationFromMap("notifications/progress", map[string]interface{}{
		"progress": 0.5,
	})
	assert.NoError(t, h.handleNotification(context.Background(), unknown))
}

func TestIsNotificationMethod(t *testing.T) {
	assert.True(t, isNotificationMethod("notifications/initialized"))
	assert.True(t, isNotificationMethod("notifications/cancelled"))
	assert.True(t, isNotificationMethod("$/cancelRequest"))
	assert.False(t, isNotificationMethod("tools/call"))
	assert.False(t, isNotificationMethod("initialize"))
}
