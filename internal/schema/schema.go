// Package schema validates the JSON projection of a DocumentResult before it
// leaves the process (CLI output, gRPC responses).
package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/rkocherlakota/pepsico-dpod-target/constants"
	"github.com/rkocherlakota/pepsico-dpod-target/internal/common"
	"github.com/rkocherlakota/pepsico-dpod-target/internal/entity"
)

// BuildFieldSetSchema describes one page or master FieldSet.
func BuildFieldSetSchema() map[string]any {
	props := map[string]any{
		entity.FieldInvoiceNumber: nullable(map[string]any{"type": "integer", "minimum": 0}),
		entity.FieldStoreNumber:   nullable(map[string]any{"type": "integer", "minimum": 0}),
		entity.FieldInvoiceDate:   nullable(map[string]any{"type": "string"}),
		entity.FieldStickerDate:   nullable(map[string]any{"type": "string"}),
		entity.FieldTotalQuantity: map[string]any{
			"anyOf": []any{
				map[string]any{"type": "number", "exclusiveMinimum": 0},
				map[string]any{"const": constants.NotAvailable},
				map[string]any{"type": "null"},
			},
		},
		entity.FieldHasFritoLay:  map[string]any{"type": "boolean"},
		entity.FieldHasSignature: map[string]any{"type": "boolean"},
		entity.FieldHasSticker:   map[string]any{"type": "boolean"},
		entity.FieldIsValid: map[string]any{
			"type": "string",
			"enum": []string{string(constants.Valid), string(constants.Invalid)},
		},
	}
	required := append(append([]string(nil), entity.MergeFields...), entity.FieldIsValid)

	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties":           props,
		"required":             required,
	}
}

// BuildDocumentResultSchema describes the flat DocumentResult projection.
func BuildDocumentResultSchema() map[string]any {
	fieldNames := append(append([]string(nil), entity.MergeFields...), entity.FieldIsValid)
	marks := []string{string(constants.Updated), string(constants.Skipped)}

	page := map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"page":        map[string]any{"type": "integer", "minimum": 1},
			"page_fields": BuildFieldSetSchema(),
			"updates_applied": map[string]any{
				"type":                 "object",
				"propertyNames":        map[string]any{"enum": entity.MergeFields},
				"additionalProperties": map[string]any{"type": "string", "enum": marks},
			},
			"error": map[string]any{"type": "string"},
		},
		"required": []string{"page", "page_fields", "updates_applied"},
	}

	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"filename":      map[string]any{"type": "string", "minLength": 1},
			"total_pages":   map[string]any{"type": "integer", "minimum": 0},
			"master_fields": BuildFieldSetSchema(),
			"fields_found": map[string]any{
				"type":        "array",
				"uniqueItems": true,
				"items":       map[string]any{"type": "string", "enum": fieldNames},
			},
			"page_details": map[string]any{"type": "array", "items": page},
			"processing_status": map[string]any{
				"type": "string",
				"enum": []string{
					string(constants.StatusSuccess),
					string(constants.StatusPartial),
					string(constants.StatusFailed),
				},
			},
			"error_message": map[string]any{"type": "string"},
		},
		"required": []string{
			"filename", "total_pages", "master_fields", "fields_found",
			"page_details", "processing_status", "error_message",
		},
	}
}

func nullable(inner map[string]any) map[string]any {
	return map[string]any{"anyOf": []any{inner, map[string]any{"type": "null"}}}
}

var (
	resultOnce   sync.Once
	resultSchema *jsonschema.Schema
	resultErr    error
)

// ValidateResult checks a DocumentResult against BuildDocumentResultSchema.
// The error wraps common.ErrValidation.
func ValidateResult(d entity.DocumentResult) error {
	resultOnce.Do(func() {
		resultSchema, resultErr = Compile(BuildDocumentResultSchema())
	})
	if resultErr != nil {
		return resultErr
	}
	b, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	return validate(resultSchema, b)
}

// Compile turns a schema map into a reusable validator.
func Compile(schemaMap map[string]any) (*jsonschema.Schema, error) {
	b, err := json.Marshal(schemaMap)
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft2020
	if err := compiler.AddResource("schema.json", bytes.NewReader(b)); err != nil {
		return nil, fmt.Errorf("add schema: %w", err)
	}
	schema, err := compiler.Compile("schema.json")
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return schema, nil
}

// ValidateJSON validates data against schemaMap.
func ValidateJSON(schemaMap map[string]any, data []byte) error {
	schema, err := Compile(schemaMap)
	if err != nil {
		return err
	}
	return validate(schema, data)
}

func validate(schema *jsonschema.Schema, data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return fmt.Errorf("unmarshal data: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("%w: json does not match schema: %v", common.ErrValidation, err)
	}
	return nil
}
