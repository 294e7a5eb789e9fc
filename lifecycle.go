// Copyright 2025 Originate Group. All rights reserved.
//
// common-mcp-submodule is licensed under the Apache License Version 2.0.

package mcp

import (
	"context"
)

// Implementation describes the name and version of an MCP implementation.
type Implementation struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// ClientCapabilities describes capabilities a client may support.
type ClientCapabilities struct {
	Experimental map[string]interface{} `json:"experimental,omitempty"`
	Roots        *struct {
		ListChanged bool `json:"listChanged,omitempty"`
	} `json:"roots,omitempty"`
	Sampling *struct{} `json:"sampling,omitempty"`
}

// ServerCapabilities describes capabilities the server supports.
type ServerCapabilities struct {
	Experimental map[string]interface{} `json:"experimental,omitempty"`
	Logging      *struct{}              `json:"logging,omitempty"`
	Tools        *struct {
		ListChanged bool `json:"listChanged,omitempty"`
	} `json:"tools,omitempty"`
}

// InitializeRequest is an initialize request.
type InitializeRequest struct {
	Request
	Params struct {
		ProtocolVersion string             `json:"protocolVersion"`
		Capabilities    ClientCapabilities `json:"capabilities"`
		ClientInfo      Implementation     `json:"clientInfo"`
	} `json:"params"`
}

// InitializeResult is the response to an initialize request.
type InitializeResult struct {
	Result
	ProtocolVersion string             `json:"protocolVersion"`
	Capabilities    ServerCapabilities `json:"capabilities"`
	ServerInfo      Implementation     `json:"serverInfo"`
	Instructions    string             `json:"instructions,omitempty"`
}

// lifecycleManager handles initialize and the initialized notification. The
// server holds no per-client state, so initialize is idempotent and imposes
// no ordering on subsequent requests.
type lifecycleManager struct {
	serverInfo   Implementation
	instructions string
	toolManager  *toolManager
	logger       Logger
}

// newLifecycleManager creates a lifecycle manager for the given server identity.
func newLifecycleManager(serverInfo Implementation) *lifecycleManager {
	return &lifecycleManager{
		serverInfo: serverInfo,
		logger:     GetDefaultLogger(),
	}
}

// withToolManager attaches the tool manager.
func (m *lifecycleManager) withToolManager(manager *toolManager) *lifecycleManager {
	m.toolManager = manager
	return m
}

// withLogger sets the logger.
func (m *lifecycleManager) withLogger(logger Logger) *lifecycleManager {
	m.logger = logger
	return m
}

// withInstructions sets the instructions string returned from initialize.
func (m *lifecycleManager) withInstructions(instructions string) *lifecycleManager {
	m.instructions = instructions
	return m
}

// handleInitialize processes an initialize request.
func (m *lifecycleManager) handleInitialize(ctx context.Context, req *JSONRPCRequest) (JSONRPCMessage, error) {
	var initReq InitializeRequest
	if err := parseJSONRPCParams(req.Params, &initReq.Params); err != nil {
		return newJSONRPCErrorResponse(req.ID, ErrCodeInvalidParams, "invalid params", err.Error()), nil
	}

	if initReq.Params.ClientInfo.Name != "" {
		m.logger.Infof("initialize from client %s %s (protocol %s)",
			initReq.Params.ClientInfo.Name, initReq.Params.ClientInfo.Version,
			initReq.Params.ProtocolVersion)
	}

	result := InitializeResult{
		ProtocolVersion: ProtocolVersion,
		Capabilities: ServerCapabilities{
			Tools: &struct {
				ListChanged bool `json:"listChanged,omitempty"`
			}{ListChanged: true},
		},
		ServerInfo:   m.serverInfo,
		Instructions: m.instructions,
	}
	return newJSONRPCResponse(req.ID, result), nil
}

// handleInitialized processes the notifications/initialized notification.
func (m *lifecycleManager) handleInitialized(ctx context.Context, notification *JSONRPCNotification) error {
	m.logger.Debug("client reported initialized")
	return nil
}
