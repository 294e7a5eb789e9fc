// Copyright 2025 Originate Group. All rights reserved.
//
// common-mcp-submodule is licensed under the Apache License Version 2.0.

package mcp

import (
	"reflect"
	"sync"

	"github.com/getkin/kin-openapi/openapi3"
)

// schemaFactory builds openapi3 schemas across kin-openapi versions.
// v0.124.0 changed Schema.Type from string to *Types ([]string); the factory
// detects the field shape once via reflection and writes whichever form the
// linked version expects.
type schemaFactory struct {
	once           sync.Once
	typeFieldType  reflect.Type
	typeIsPointer  bool
	typesSliceType reflect.Type
}

// schemas is the package-wide factory used by the tool schema builders.
var schemas = &schemaFactory{}

func (f *schemaFactory) detect() {
	f.once.Do(func() {
		typeField := reflect.ValueOf(&openapi3.Schema{}).Elem().FieldByName("Type")
		if !typeField.IsValid() {
			return
		}
		f.typeFieldType = typeField.Type()
		f.typeIsPointer = f.typeFieldType.Kind() == reflect.Ptr
		if f.typeIsPointer {
			f.typesSliceType = f.typeFieldType.Elem()
		}
	})
}

// setType writes the Type field in whichever shape the linked kin-openapi
// version uses.
func (f *schemaFactory) setType(schema *openapi3.Schema, typeName string) {
	if schema == nil {
		return
	}
	f.detect()

	typeField := reflect.ValueOf(schema).Elem().FieldByName("Type")
	if !typeField.IsValid() || !typeField.CanSet() {
		return
	}

	if f.typeIsPointer {
		typesValue := reflect.New(f.typesSliceType)
		typesSlice := reflect.MakeSlice(f.typesSliceType, 1, 1)
		typesSlice.Index(0).SetString(typeName)
		typesValue.Elem().Set(typesSlice)
		typeField.Set(typesValue)
	} else {
		typeField.SetString(typeName)
	}
}

func (f *schemaFactory) newSchema(typeName string) *openapi3.Schema {
	schema := &openapi3.Schema{}
	f.setType(schema, typeName)
	return schema
}

// newObjectSchema creates an object schema ready to receive properties.
func (f *schemaFactory) newObjectSchema() *openapi3.Schema {
	schema := &openapi3.Schema{
		Properties: make(openapi3.Schemas),
		Required:   []string{},
	}
	f.setType(schema, openapi3.TypeObject)
	return schema
}

func (f *schemaFactory) newStringSchema() *openapi3.Schema {
	return f.newSchema(openapi3.TypeString)
}

func (f *schemaFactory) newNumberSchema() *openapi3.Schema {
	return f.newSchema(openapi3.TypeNumber)
}

func (f *schemaFactory) newIntegerSchema() *openapi3.Schema {
	return f.newSchema(openapi3.TypeInteger)
}

func (f *schemaFactory) newBooleanSchema() *openapi3.Schema {
	return f.newSchema(openapi3.TypeBoolean)
}

func (f *schemaFactory) newArraySchema() *openapi3.Schema {
	return f.newSchema(openapi3.TypeArray)
}
