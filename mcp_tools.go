// Copyright 2025 Originate Group. All rights reserved.
//
// common-mcp-submodule is licensed under the Apache License Version 2.0.

package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/getkin/kin-openapi/openapi3"
)

// Tool describes a callable tool exposed over tools/list.
type Tool struct {
	Name        string           `json:"name"`
	Description string           `json:"description,omitempty"`
	InputSchema *openapi3.Schema `json:"inputSchema"`
}

// MarshalJSON ensures an empty schema still serializes as a valid object schema.
func (t *Tool) MarshalJSON() ([]byte, error) {
	type toolAlias Tool
	if t.InputSchema == nil {
		clone := *t
		clone.InputSchema = schemas.newObjectSchema()
		return json.Marshal((*toolAlias)(&clone))
	}
	return json.Marshal((*toolAlias)(t))
}

// toolHandler executes a tool call.
type toolHandler func(ctx context.Context, req *CallToolRequest) (*CallToolResult, error)

// ToolOption configures a Tool during construction.
type ToolOption func(*Tool)

// PropertyOption configures a single input schema property.
type PropertyOption func(*openapi3.Schema)

// NewTool creates a tool with an object input schema built from the options.
func NewTool(name string, opts ...ToolOption) *Tool {
	tool := &Tool{
		Name:        name,
		InputSchema: schemas.newObjectSchema(),
	}
	for _, opt := range opts {
		opt(tool)
	}
	return tool
}

// WithDescription sets the tool description.
func WithDescription(description string) ToolOption {
	return func(t *Tool) {
		t.Description = description
	}
}

// addProperty attaches a named schema to the tool's input schema and records
// whether it is required.
func addProperty(t *Tool, name string, schema *openapi3.Schema) {
	if t.InputSchema == nil {
		t.InputSchema = schemas.newObjectSchema()
	}
	if t.InputSchema.Properties == nil {
		t.InputSchema.Properties = make(openapi3.Schemas)
	}
	t.InputSchema.Properties[name] = openapi3.NewSchemaRef("", schema)
	if isRequired(schema) {
		t.InputSchema.Required = append(t.InputSchema.Required, name)
		clearRequiredMarker(schema)
	}
}

// The required marker rides on the property schema until addProperty moves it
// to the parent's Required list.
const requiredMarkerKey = "x-required"

func isRequired(schema *openapi3.Schema) bool {
	if schema.Extensions == nil {
		return false
	}
	_, ok := schema.Extensions[requiredMarkerKey]
	return ok
}

func clearRequiredMarker(schema *openapi3.Schema) {
	delete(schema.Extensions, requiredMarkerKey)
	if len(schema.Extensions) == 0 {
		schema.Extensions = nil
	}
}

// WithString adds a string property to the tool input schema.
func WithString(name string, opts ...PropertyOption) ToolOption {
	return func(t *Tool) {
		schema := schemas.newStringSchema()
		for _, opt := range opts {
			opt(schema)
		}
		addProperty(t, name, schema)
	}
}

// WithNumber adds a number property to the tool input schema.
func WithNumber(name string, opts ...PropertyOption) ToolOption {
	return func(t *Tool) {
		schema := schemas.newNumberSchema()
		for _, opt := range opts {
			opt(schema)
		}
		addProperty(t, name, schema)
	}
}

// WithInteger adds an integer property to the tool input schema.
func WithInteger(name string, opts ...PropertyOption) ToolOption {
	return func(t *Tool) {
		schema := schemas.newIntegerSchema()
		for _, opt := range opts {
			opt(schema)
		}
		addProperty(t, name, schema)
	}
}

// WithBoolean adds a boolean property to the tool input schema.
func WithBoolean(name string, opts ...PropertyOption) ToolOption {
	return func(t *Tool) {
		schema := schemas.newBooleanSchema()
		for _, opt := range opts {
			opt(schema)
		}
		addProperty(t, name, schema)
	}
}

// WithArray adds an array property to the tool input schema.
func WithArray(name string, opts ...PropertyOption) ToolOption {
	return func(t *Tool) {
		schema := schemas.newArraySchema()
		for _, opt := range opts {
			opt(schema)
		}
		addProperty(t, name, schema)
	}
}

// WithObject adds an object property to the tool input schema.
func WithObject(name string, opts ...PropertyOption) ToolOption {
	return func(t *Tool) {
		schema := schemas.newObjectSchema()
		for _, opt := range opts {
			opt(schema)
		}
		addProperty(t, name, schema)
	}
}

// Description sets the description of a property.
func Description(description string) PropertyOption {
	return func(schema *openapi3.Schema) {
		schema.Description = description
	}
}

// Required marks a property as required in the parent schema.
func Required() PropertyOption {
	return func(schema *openapi3.Schema) {
		if schema.Extensions == nil {
			schema.Extensions = make(map[string]interface{})
		}
		schema.Extensions[requiredMarkerKey] = true
	}
}

// Default sets the default value of a property.
func Default(value interface{}) PropertyOption {
	return func(schema *openapi3.Schema) {
		schema.Default = value
	}
}

// Enum restricts a property to the given values.
func Enum(values ...interface{}) PropertyOption {
	return func(schema *openapi3.Schema) {
		schema.Enum = values
	}
}

// Items sets the item schema of an array property.
func Items(itemSchema *openapi3.Schema) PropertyOption {
	return func(schema *openapi3.Schema) {
		schema.Items = openapi3.NewSchemaRef("", itemSchema)
	}
}

// ListToolsRequest is a tools/list request.
type ListToolsRequest struct {
	PaginatedRequest
}

// PaginatedRequest is the base request struct for paginated requests.
type PaginatedRequest struct {
	Request
	Params struct {
		Cursor Cursor `json:"cursor,omitempty"`
	} `json:"params,omitempty"`
}

// ListToolsResult is the response to a tools/list request.
type ListToolsResult struct {
	PaginatedResult
	Tools []Tool `json:"tools"`
}

// CallToolParams carries the parameters of a tools/call request.
type CallToolParams struct {
	Name      string                 `json:"name"`
	Arguments map[string]interface{} `json:"arguments,omitempty"`
	Meta      *Meta                  `json:"_meta,omitempty"`
}

// CallToolRequest is a tools/call request.
type CallToolRequest struct {
	Request
	Params CallToolParams `json:"params"`
}

// CallToolResult is the response to a tools/call request.
type CallToolResult struct {
	Result
	Content []Content `json:"content"`
	// IsError reports a tool-level failure. Protocol errors use JSON-RPC
	// error responses instead.
	IsError bool `json:"isError,omitempty"`
}

// UnmarshalJSON decodes the polymorphic content list.
func (r *CallToolResult) UnmarshalJSON(data []byte) error {
	var raw struct {
		Meta    map[string]interface{}   `json:"_meta,omitempty"`
		Content []map[string]interface{} `json:"content"`
		IsError bool                     `json:"isError,omitempty"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	r.Meta = raw.Meta
	r.IsError = raw.IsError
	r.Content = make([]Content, 0, len(raw.Content))
	for _, item := range raw.Content {
		content, err := parseContent(item)
		if err != nil {
			return fmt.Errorf("failed to parse content: %w", err)
		}
		r.Content = append(r.Content, content)
	}
	return nil
}

// NewTextResult creates a successful tool result with a single text content.
func NewTextResult(text string) *CallToolResult {
	return &CallToolResult{
		Content: []Content{NewTextContent(text)},
	}
}

// NewErrorResult creates a failed tool result with a single text content.
func NewErrorResult(text string) *CallToolResult {
	return &CallToolResult{
		Content: []Content{NewTextContent(text)},
		IsError: true,
	}
}
