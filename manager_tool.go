// Copyright 2025 Originate Group. All rights reserved.
//
// common-mcp-submodule is licensed under the Apache License Version 2.0.

package mcp

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/Originate-Group/common-mcp-submodule/internal/errors"
)

// ToolsProvider supplies the tool catalog from an external source, such as a
// registry service in front of the gateway.
type ToolsProvider interface {
	ListTools(ctx context.Context) ([]Tool, error)
}

// ToolsProviderFunc adapts a function to the ToolsProvider interface.
type ToolsProviderFunc func(ctx context.Context) ([]Tool, error)

// ListTools implements ToolsProvider.
func (f ToolsProviderFunc) ListTools(ctx context.Context) ([]Tool, error) {
	return f(ctx)
}

// ToolCallHandler executes tool calls that are not served by a locally
// registered tool. The authenticated identity is available through
// AuthIdentityFromContext.
type ToolCallHandler func(ctx context.Context, req *CallToolRequest) (*CallToolResult, error)

// registeredTool pairs a tool definition with its handler.
type registeredTool struct {
	tool    *Tool
	handler toolHandler
}

// toolManager manages tool registration, listing and calls.
type toolManager struct {
	mu              sync.RWMutex
	tools           map[string]*registeredTool
	order           []string
	toolsProvider   ToolsProvider
	toolCallHandler ToolCallHandler
	logger          Logger
}

// newToolManager creates a tool manager.
func newToolManager() *toolManager {
	return &toolManager{
		tools:  make(map[string]*registeredTool),
		logger: GetDefaultLogger(),
	}
}

// withLogger sets the logger.
func (m *toolManager) withLogger(logger Logger) *toolManager {
	m.logger = logger
	return m
}

// withToolsProvider sets the external catalog source.
func (m *toolManager) withToolsProvider(provider ToolsProvider) *toolManager {
	m.toolsProvider = provider
	return m
}

// withToolCallHandler sets the external call handler.
func (m *toolManager) withToolCallHandler(handler ToolCallHandler) *toolManager {
	m.toolCallHandler = handler
	return m
}

// registerTool registers a tool with its handler. Registering the same name
// again replaces the previous registration.
func (m *toolManager) registerTool(tool *Tool, handler toolHandler) {
	if tool == nil || handler == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.tools[tool.Name]; !exists {
		m.order = append(m.order, tool.Name)
	}
	m.tools[tool.Name] = &registeredTool{tool: tool, handler: handler}
}

// unregisterTools removes tools by name. Returns an error if names is empty.
func (m *toolManager) unregisterTools(names ...string) error {
	if len(names) == 0 {
		return fmt.Errorf("no tool names provided")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, name := range names {
		if _, exists := m.tools[name]; !exists {
			continue
		}
		delete(m.tools, name)
		for i, n := range m.order {
			if n == name {
				m.order = append(m.order[:i], m.order[i+1:]...)
				break
			}
		}
	}
	return nil
}

// getTool returns a registered tool by name.
func (m *toolManager) getTool(name string) (*registeredTool, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.tools[name]
	return t, ok
}

// listLocalTools returns locally registered tools in registration order.
func (m *toolManager) listLocalTools() []Tool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]Tool, 0, len(m.order))
	for _, name := range m.order {
		if t, ok := m.tools[name]; ok {
			result = append(result, *t.tool)
		}
	}
	return result
}

// handleListTools processes a tools/list request. Locally registered tools
// and the external catalog are merged; a local registration wins a name
// collision.
func (m *toolManager) handleListTools(ctx context.Context, req *JSONRPCRequest) (JSONRPCMessage, error) {
	local := m.listLocalTools()
	seen := make(map[string]bool, len(local))
	for _, t := range local {
		seen[t.Name] = true
	}

	merged := local
	if m.toolsProvider != nil {
		external, err := m.toolsProvider.ListTools(ctx)
		if err != nil {
			m.logger.Errorf("tools provider failed: %v", err)
			return newJSONRPCErrorResponse(req.ID, ErrCodeInternal, "failed to list tools", nil), nil
		}
		extra := make([]Tool, 0, len(external))
		for _, t := range external {
			if !seen[t.Name] {
				extra = append(extra, t)
				seen[t.Name] = true
			}
		}
		sort.Slice(extra, func(i, j int) bool { return extra[i].Name < extra[j].Name })
		merged = append(merged, extra...)
	}

	result := ListToolsResult{Tools: merged}
	if result.Tools == nil {
		result.Tools = []Tool{}
	}
	return newJSONRPCResponse(req.ID, result), nil
}

// handleCallTool processes a tools/call request.
func (m *toolManager) handleCallTool(ctx context.Context, req *JSONRPCRequest) (JSONRPCMessage, error) {
	var callReq CallToolRequest
	callReq.Method = MethodToolsCall
	if err := parseJSONRPCParams(req.Params, &callReq.Params); err != nil {
		return newJSONRPCErrorResponse(req.ID, ErrCodeInvalidParams, errors.ErrInvalidParams.Error(), err.Error()), nil
	}
	if callReq.Params.Name == "" {
		return newJSONRPCErrorResponse(req.ID, ErrCodeInvalidParams, "tool name is required", nil), nil
	}
	if callReq.Params.Arguments == nil {
		return newJSONRPCErrorResponse(req.ID, ErrCodeInvalidParams, "tool arguments are required", nil), nil
	}

	result, err := m.executeTool(ctx, &callReq)
	if err != nil {
		if errResp, ok := err.(*toolNotFoundError); ok {
			return newJSONRPCErrorResponse(req.ID, ErrCodeInvalidParams, errResp.Error(), nil), nil
		}
		// Internal detail stays in the log, the caller gets a generic error.
		m.logger.Errorf("tool call failed: tool=%s error=%v", callReq.Params.Name, err)
		return newJSONRPCErrorResponse(req.ID, ErrCodeInternal, "tool execution failed", nil), nil
	}
	return newJSONRPCResponse(req.ID, result), nil
}

// toolNotFoundError reports a call to a tool that is not registered and not
// served by the external handler.
type toolNotFoundError struct {
	name string
}

func (e *toolNotFoundError) Error() string {
	return fmt.Sprintf("unknown tool: %s", e.name)
}

// executeTool runs the tool handler with panic recovery.
func (m *toolManager) executeTool(ctx context.Context, callReq *CallToolRequest) (result *CallToolResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			m.logger.Errorf("panic in tool handler: tool=%s panic=%v", callReq.Params.Name, r)
			result = nil
			err = fmt.Errorf("panic in tool handler: %v", r)
		}
	}()

	if registered, ok := m.getTool(callReq.Params.Name); ok {
		return registered.handler(ctx, callReq)
	}
	if m.toolCallHandler != nil {
		return m.toolCallHandler(ctx, callReq)
	}
	return nil, &toolNotFoundError{name: callReq.Params.Name}
}
