// Copyright 2025 Originate Group. All rights reserved.
//
// common-mcp-submodule is licensed under the Apache License Version 2.0.

package mcp

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetaMarshalling(t *testing.T) {
	tests := []struct {
		name    string
		json    string
		meta    *Meta
		expMeta *Meta
	}{
		{
			name: "nil meta",
			json: "null",
			meta: nil,
		},
		{
			name: "empty meta",
			json: "{}",
			meta: &Meta{},
		},
		{
			name: "only progressToken",
			json: `{"progressToken":123}`,
			meta: &Meta{
				ProgressToken: float64(123),
			},
			expMeta: &Meta{
				ProgressToken:    float64(123),
				AdditionalFields: map[string]interface{}{},
			},
		},
		{
			name: "progressToken string",
			json: `{"progressToken":"abc-123"}`,
			meta: &Meta{
				ProgressToken: "abc-123",
			},
			expMeta: &Meta{
				ProgressToken:    "abc-123",
				AdditionalFields: map[string]interface{}{},
			},
		},
		{
			name: "only additional fields",
			json: `{"customKey":"customValue","nested":{"field":"value"}}`,
			meta: &Meta{
				AdditionalFields: map[string]interface{}{
					"customKey": "customValue",
					"nested": map[string]interface{}{
						"field": "value",
					},
				},
			},
		},
		{
			name: "progressToken and additional fields",
			json: `{"progressToken":456,"platform.auth/token":"eyJhbGci...","platform.auth/tenant":"tenant-abc"}`,
			meta: &Meta{
				ProgressToken: float64(456),
				AdditionalFields: map[string]interface{}{
					"platform.auth/token":  "eyJhbGci...",
					"platform.auth/tenant": "tenant-abc",
				},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name+" marshal", func(t *testing.T) {
			data, err := json.Marshal(tt.meta)
			require.NoError(t, err)

			var got, expected map[string]interface{}
			if tt.json != "null" {
				require.NoError(t, json.Unmarshal([]byte(tt.json), &expected))
				require.NoError(t, json.Unmarshal(data, &got))
				assert.Equal(t, expected, got)
			}
		})

		t.Run(tt.name+" unmarshal", func(t *testing.T) {
			var meta Meta
			err := json.Unmarshal([]byte(tt.json), &meta)
			require.NoError(t, err)

			expected := tt.meta
			if tt.expMeta != nil {
				expected = tt.expMeta
			}

			if expected != nil {
				assert.Equal(t, expected.ProgressToken, meta.ProgressToken)
				assert.Equal(t, expected.AdditionalFields, meta.AdditionalFields)
			}
		})
	}
}

func TestMetaGetSet(t *testing.T) {
	meta := &Meta{}

	assert.Nil(t, meta.Get("nonexistent"))

	meta.Set("key1", "value1")
	assert.Equal(t, "value1", meta.Get("key1"))

	meta.Set("key2", 123)
	assert.Equal(t, 123, meta.Get("key2"))

	meta.Set("key1", "value2")
	assert.Equal(t, "value2", meta.Get("key1"))

	// Get on a nil receiver is safe.
	var nilMeta *Meta
	assert.Nil(t, nilMeta.Get("key"))
}

func TestCallToolParamsWithMeta(t *testing.T) {
	reqJSON := `{
		"name": "getUserData",
		"arguments": {
			"userId": "12345"
		},
		"_meta": {
			"progressToken": "token-123",
			"platform.auth/tenant": "tenant-abc",
			"platform.auth/permissions": ["read", "write"]
		}
	}`

	var params CallToolParams
	require.NoError(t, json.Unmarshal([]byte(reqJSON), &params))

	assert.Equal(t, "getUserData", params.Name)
	require.NotNil(t, params.Meta)
	assert.Equal(t, "token-123", params.Meta.ProgressToken)
	assert.Equal(t, "tenant-abc", params.Meta.Get("platform.auth/tenant"))
	assert.Equal(t, []interface{}{"read", "write"}, params.Meta.Get("platform.auth/permissions"))

	// Metadata rides alongside the arguments, never inside them.
	_, inArgs := params.Arguments["platform.auth/tenant"]
	assert.False(t, inArgs)

	// Roundtrip keeps the metadata intact.
	data, err := json.Marshal(params)
	require.NoError(t, err)
	var params2 CallToolParams
	require.NoError(t, json.Unmarshal(data, &params2))
	assert.Equal(t, params.Meta.ProgressToken, params2.Meta.ProgressToken)
	assert.Equal(t, params.Meta.AdditionalFields, params2.Meta.AdditionalFields)
}

func TestNotificationParamsRoundtrip(t *testing.T) {
	notification := NewJSONRPCNotificationFromMap("notifications/progress", map[string]interface{}{
		"progress": 0.5,
		"total":    1.0,
	})

	data, err := json.Marshal(notification)
	require.NoError(t, err)

	var decoded JSONRPCNotification
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "notifications/progress", decoded.Method)
	assert.Equal(t, 0.5, decoded.Params.AdditionalFields["progress"])
}
