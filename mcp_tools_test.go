// Copyright 2025 Originate Group. All rights reserved.
//
// common-mcp-submodule is licensed under the Apache License Version 2.0.

package mcp

import (
	"encoding/json"
	"testing"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTextContent(t *testing.T) {
	testCases := []struct {
		name     string
		text     string
		expected TextContent
	}{
		{
			name: "Empty text",
			text: "",
			expected: TextContent{
				Type: "text",
				Text: "",
			},
		},
		{
			name: "Simple text",
			text: "Hello, world!",
			expected: TextContent{
				Type: "text",
				Text: "Hello, world!",
			},
		},
		{
			name: "Multiline text",
			text: "Line 1\nLine 2\nLine 3",
			expected: TextContent{
				Type: "text",
				Text: "Line 1\nLine 2\nLine 3",
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			result := NewTextContent(tc.text)
			assert.Equal(t, tc.expected.Type, result.Type)
			assert.Equal(t, tc.expected.Text, result.Text)
			assert.Nil(t, result.Annotations)
		})
	}
}

func TestNewImageContent(t *testing.T) {
	result := NewImageContent("base64data...", "image/jpeg")
	assert.Equal(t, "image", result.Type)
	assert.Equal(t, "base64data...", result.Data)
	assert.Equal(t, "image/jpeg", result.MimeType)
	assert.Nil(t, result.Annotations)
}

func TestNewTool(t *testing.T) {
	tool := NewTool("hello", WithDescription("Say hello"))

	assert.Equal(t, "hello", tool.Name)
	assert.Equal(t, "Say hello", tool.Description)
	require.NotNil(t, tool.InputSchema)
	assert.NotNil(t, tool.InputSchema.Properties)
	assert.Equal(t, []string{}, tool.InputSchema.Required)
	require.NotNil(t, tool.InputSchema.Type)
	assert.Equal(t, openapi3.Types{openapi3.TypeObject}, *tool.InputSchema.Type)
}

func TestToolPropertyTypes(t *testing.T) {
	tool := NewTool("typed",
		WithString("str_field"),
		WithNumber("num_field"),
		WithInteger("int_field"),
		WithBoolean("bool_field"),
		WithArray("arr_field"),
		WithObject("obj_field"),
	)

	testCases := []struct {
		fieldName    string
		expectedType string
	}{
		{"str_field", openapi3.TypeString},
		{"num_field", openapi3.TypeNumber},
		{"int_field", openapi3.TypeInteger},
		{"bool_field", openapi3.TypeBoolean},
		{"arr_field", openapi3.TypeArray},
		{"obj_field", openapi3.TypeObject},
	}

	for _, tc := range testCases {
		t.Run(tc.fieldName, func(t *testing.T) {
			schema := tool.InputSchema.Properties[tc.fieldName]
			require.NotNil(t, schema)
			require.NotNil(t, schema.Value)
			require.NotNil(t, schema.Value.Type)
			assert.Equal(t, openapi3.Types{tc.expectedType}, *schema.Value.Type)
		})
	}
}

func TestToolRequiredProperties(t *testing.T) {
	tool := NewTool("greeter",
		WithString("name", Required(), Description("Who to greet")),
		WithString("salutation", Default("Hello")),
	)

	assert.Equal(t, []string{"name"}, tool.InputSchema.Required)

	nameSchema := tool.InputSchema.Properties["name"].Value
	assert.Equal(t, "Who to greet", nameSchema.Description)
	// The marker must not leak into the serialized property schema.
	assert.Nil(t, nameSchema.Extensions)

	salutationSchema := tool.InputSchema.Properties["salutation"].Value
	assert.Equal(t, "Hello", salutationSchema.Default)
}

func TestToolPropertyOptions(t *testing.T) {
	tool := NewTool("search",
		WithString("mode", Enum("fast", "thorough")),
		WithArray("tags", Items(schemas.newStringSchema())),
	)

	modeSchema := tool.InputSchema.Properties["mode"].Value
	assert.Equal(t, []interface{}{"fast", "thorough"}, modeSchema.Enum)

	tagsSchema := tool.InputSchema.Properties["tags"].Value
	require.NotNil(t, tagsSchema.Items)
	assert.Equal(t, openapi3.Types{openapi3.TypeString}, *tagsSchema.Items.Value.Type)
}

func TestToolMarshalJSONDefaultsSchema(t *testing.T) {
	tool := &Tool{Name: "bare"}

	data, err := json.Marshal(tool)
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &decoded))

	assert.Equal(t, "bare", decoded["name"])
	schema, ok := decoded["inputSchema"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "object", schema["type"])
}

func TestCallToolResultUnmarshalJSON(t *testing.T) {
	data := []byte(`{
		"content": [
			{"type": "text", "text": "hello"},
			{"type": "image", "data": "aGk=", "mimeType": "image/png"}
		],
		"isError": true
	}`)

	var result CallToolResult
	require.NoError(t, json.Unmarshal(data, &result))

	assert.True(t, result.IsError)
	require.Len(t, result.Content, 2)

	text, ok := result.Content[0].(TextContent)
	require.True(t, ok)
	assert.Equal(t, "hello", text.Text)

	image, ok := result.Content[1].(ImageContent)
	require.True(t, ok)
	assert.Equal(t, "aGk=", image.Data)
	assert.Equal(t, "image/png", image.MimeType)
}

func TestNewTextResult(t *testing.T) {
	result := NewTextResult("done")
	assert.False(t, result.IsError)
	require.Len(t, result.Content, 1)
	text, ok := result.Content[0].(TextContent)
	require.True(t, ok)
	assert.Equal(t, "done", text.Text)
}

func TestNewErrorResult(t *testing.T) {
	result := NewErrorResult("boom")
	assert.True(t, result.IsError)
	require.Len(t, result.Content, 1)
	text, ok := result.Content[0].(TextContent)
	require.True(t, ok)
	assert.Equal(t, "boom", text.Text)
}
