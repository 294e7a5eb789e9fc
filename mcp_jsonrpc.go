// Copyright 2025 Originate Group. All rights reserved.
//
// common-mcp-submodule is licensed under the Apache License Version 2.0.

package mcp

import (
	"fmt"
)

// JSONRPCVersion is the JSON-RPC protocol version used by MCP.
const JSONRPCVersion = "2.0"

// ProtocolVersion is the MCP protocol revision this server speaks.
const ProtocolVersion = "2024-11-05"

// MCP method names handled by the server.
const (
	MethodInitialize               = "initialize"
	MethodPing                     = "ping"
	MethodToolsList                = "tools/list"
	MethodToolsCall                = "tools/call"
	MethodNotificationsInitialized = "notifications/initialized"
)

// Standard JSON-RPC 2.0 error codes.
const (
	ErrCodeParse          = -32700
	ErrCodeInvalidRequest = -32600
	ErrCodeMethodNotFound = -32601
	ErrCodeInvalidParams  = -32602
	ErrCodeInternal       = -32603
)

// JSONRPCMessage is any message that can travel over a JSON-RPC transport.
type JSONRPCMessage interface{}

// RequestID identifies a JSON-RPC request. Per spec it may be a string or a
// number; it is kept as an interface so the caller's value is echoed back
// unchanged.
type RequestID interface{}

// JSONRPCRequest is a JSON-RPC request expecting a response.
type JSONRPCRequest struct {
	JSONRPC string    `json:"jsonrpc"`
	ID      RequestID `json:"id"`
	Request
	Params interface{} `json:"params,omitempty"`
}

// JSONRPCNotification is a JSON-RPC message that expects no response.
type JSONRPCNotification struct {
	JSONRPC string `json:"jsonrpc"`
	Notification
}

// NewJSONRPCNotificationFromMap creates a notification with the given method
// and params.
func NewJSONRPCNotificationFromMap(method string, params map[string]interface{}) *JSONRPCNotification {
	return &JSONRPCNotification{
		JSONRPC: JSONRPCVersion,
		Notification: Notification{
			Method: method,
			Params: NotificationParams{AdditionalFields: params},
		},
	}
}

// JSONRPCResponse is a successful response to a JSON-RPC request.
type JSONRPCResponse struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      RequestID   `json:"id"`
	Result  interface{} `json:"result"`
}

// JSONRPCError is an error response to a JSON-RPC request.
type JSONRPCError struct {
	JSONRPC string    `json:"jsonrpc"`
	ID      RequestID `json:"id"`
	Error   struct {
		Code    int         `json:"code"`
		Message string      `json:"message"`
		Data    interface{} `json:"data,omitempty"`
	} `json:"error"`
}

// newJSONRPCResponse creates a successful response carrying result.
func newJSONRPCResponse(id RequestID, result interface{}) *JSONRPCResponse {
	return &JSONRPCResponse{
		JSONRPC: JSONRPCVersion,
		ID:      id,
		Result:  result,
	}
}

// newJSONRPCErrorResponse creates an error response. The id is echoed from
// the request, or nil when the request could not be parsed.
func newJSONRPCErrorResponse(id RequestID, code int, message string, data interface{}) *JSONRPCError {
	resp := &JSONRPCError{
		JSONRPC: JSONRPCVersion,
		ID:      id,
	}
	resp.Error.Code = code
	resp.Error.Message = message
	resp.Error.Data = data
	return resp
}

// errorCodeMessage returns the canonical message for a JSON-RPC error code.
func errorCodeMessage(code int) string {
	switch code {
	case ErrCodeParse:
		return "Parse error"
	case ErrCodeInvalidRequest:
		return "Invalid Request"
	case ErrCodeMethodNotFound:
		return "Method not found"
	case ErrCodeInvalidParams:
		return "Invalid params"
	case ErrCodeInternal:
		return "Internal error"
	default:
		return fmt.Sprintf("Error %d", code)
	}
}
