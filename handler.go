// Copyright 2025 Originate Group. All rights reserved.
//
// common-mcp-submodule is licensed under the Apache License Version 2.0.

package mcp

import (
	"context"
	"encoding/json"
	"strings"
)

// parseJSONRPCParams parses JSON-RPC parameters into a target structure
func parseJSONRPCParams(params interface{}, target interface{}) error {
	if params == nil {
		return nil
	}

	paramBytes, err := json.Marshal(params)
	if err != nil {
		return err
	}
	return json.Unmarshal(paramBytes, target)
}

const (
	// defaultServerName is the default name for the server
	defaultServerName = "MCP-Gateway"
	// defaultServerVersion is the default version for the server
	defaultServerVersion = "0.1.0"
)

// handler interface defines the MCP protocol handler
type handler interface {
	// handleRequest processes requests
	handleRequest(ctx context.Context, req *JSONRPCRequest) (JSONRPCMessage, error)

	// handleNotification processes notifications
	handleNotification(ctx context.Context, notification *JSONRPCNotification) error
}

// mcpHandler implements the default MCP protocol handler
type mcpHandler struct {
	// Tool manager
	toolManager *toolManager

	// Lifecycle manager
	lifecycleManager *lifecycleManager

	// Middleware chain applied to tool calls
	middlewares []MiddlewareFunc
}

// newMCPHandler creates an MCP protocol handler
func newMCPHandler(options ...func(*mcpHandler)) *mcpHandler {
	h := &mcpHandler{}

	for _, option := range options {
		option(h)
	}

	if h.toolManager == nil {
		h.toolManager = newToolManager()
	}
	if h.lifecycleManager == nil {
		h.lifecycleManager = newLifecycleManager(Implementation{
			Name:    defaultServerName,
			Version: defaultServerVersion,
		})
	}
	h.lifecycleManager.withToolManager(h.toolManager)

	return h
}

// withMiddlewares sets the middleware chain for the handler
func withMiddlewares(middlewares []MiddlewareFunc) func(*mcpHandler) {
	return func(h *mcpHandler) {
		h.middlewares = middlewares
	}
}

// withToolManager sets the tool manager
func withToolManager(manager *toolManager) func(*mcpHandler) {
	return func(h *mcpHandler) {
		h.toolManager = manager
	}
}

// withLifecycleManager sets the lifecycle manager
func withLifecycleManager(manager *lifecycleManager) func(*mcpHandler) {
	return func(h *mcpHandler) {
		h.lifecycleManager = manager
	}
}

// requestHandlerFunc handles a single request method
type requestHandlerFunc func(ctx context.Context, req *JSONRPCRequest) (JSONRPCMessage, error)

// requestDispatchTable maps method names to their handlers
func (h *mcpHandler) requestDispatchTable() map[string]requestHandlerFunc {
	return map[string]requestHandlerFunc{
		MethodInitialize: h.handleInitialize,
		MethodPing:       h.handlePing,
		MethodToolsList:  h.handleToolsList,
		MethodToolsCall:  h.handleToolsCall,
	}
}

// handleRequest dispatches a request to the matching method handler
func (h *mcpHandler) handleRequest(ctx context.Context, req *JSONRPCRequest) (JSONRPCMessage, error) {
	dispatchTable := h.requestDispatchTable()
	if handler, ok := dispatchTable[req.Method]; ok {
		return handler(ctx, req)
	}
	return newJSONRPCErrorResponse(req.ID, ErrCodeMethodNotFound, "method not found", req.Method), nil
}

func (h *mcpHandler) handleInitialize(ctx context.Context, req *JSONRPCRequest) (JSONRPCMessage, error) {
	return h.lifecycleManager.handleInitialize(ctx, req)
}

func (h *mcpHandler) handlePing(ctx context.Context, req *JSONRPCRequest) (JSONRPCMessage, error) {
	return newJSONRPCResponse(req.ID, map[string]interface{}{}), nil
}

func (h *mcpHandler) handleToolsList(ctx context.Context, req *JSONRPCRequest) (JSONRPCMessage, error) {
	return h.toolManager.handleListTools(ctx, req)
}

func (h *mcpHandler) handleToolsCall(ctx context.Context, req *JSONRPCRequest) (JSONRPCMessage, error) {
	// Apply middleware chain for tool calls if middlewares are configured
	if len(h.middlewares) > 0 {
		var callToolReq CallToolRequest
		if err := parseJSONRPCParams(req.Params, &callToolReq.Params); err != nil {
			return newJSONRPCErrorResponse(req.ID, ErrCodeInvalidParams, "invalid params", err.Error()), nil
		}
		// Validate before the chain so middlewares only see complete calls.
		if callToolReq.Params.Name == "" {
			return newJSONRPCErrorResponse(req.ID, ErrCodeInvalidParams, "tool name is required", nil), nil
		}
		if callToolReq.Params.Arguments == nil {
			return newJSONRPCErrorResponse(req.ID, ErrCodeInvalidParams, "tool arguments are required", nil), nil
		}

		// Final handler calls the tool manager with the potentially
		// modified params.
		handler := func(ctx context.Context, request interface{}) (interface{}, error) {
			toolReq := request.(*CallToolRequest)
			modifiedReq := &JSONRPCRequest{
				JSONRPC: req.JSONRPC,
				ID:      req.ID,
				Request: Request{
					Method: req.Method,
				},
				Params: toolReq.Params,
			}
			return h.toolManager.handleCallTool(ctx, modifiedReq)
		}

		chainedHandler := Chain(handler, h.middlewares...)
		result, err := chainedHandler(ctx, &callToolReq)
		if err != nil {
			// Middleware detail stays in the log, the caller gets a
			// generic error.
			GetDefaultLogger().Errorf("tool call chain failed: tool=%s error=%v", callToolReq.Params.Name, err)
			return newJSONRPCErrorResponse(req.ID, ErrCodeInternal, "tool call failed", nil), nil
		}
		return result.(JSONRPCMessage), nil
	}

	return h.toolManager.handleCallTool(ctx, req)
}

// handleNotification implements the handler interface's handleNotification method
func (h *mcpHandler) handleNotification(ctx context.Context, notification *JSONRPCNotification) error {
	switch notification.Method {
	case MethodNotificationsInitialized:
		return h.lifecycleManager.handleInitialized(ctx, notification)
	default:
		// Unknown notifications are accepted and ignored.
		return nil
	}
}

// isNotificationMethod reports whether a method name is a notification even
// when an id would normally mark it as a request. Client-originated progress
// and cancellation traffic falls in this bucket.
func isNotificationMethod(method string) bool {
	return strings.HasPrefix(method, "notifications/") || strings.HasPrefix(method, "$/")
}
