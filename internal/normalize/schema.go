package normalize

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// BuildRecordSchema returns a JSON-Schema (draft 2020-12 subset) for the
// canonical receipt record, used as a persistence gate: a record that fails
// validation is never written to the store.
func BuildRecordSchema() map[string]any {
	// Money fields are verbatim OCR content, so they stay free-form strings;
	// the schema gates shape, not numeric format.
	str := map[string]any{"type": "string"}

	return map[string]any{
		"type":     "object",
		"required": []string{"receipt_id", "vendor", "financials", "line_items", "created_at"},
		"properties": map[string]any{
			"receipt_id":     map[string]any{"type": "string", "minLength": 1},
			"user_id":        str,
			"date":           str,
			"time":           str,
			"invoice_number": str,
			"country_region": str,
			"category":       str,
			"image_url":      str,
			"note":           str,
			"is_duplicate":   map[string]any{"type": "boolean"},
			"created_at":     map[string]any{"type": "string", "format": "date-time"},
			"vendor": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"name":    str,
					"address": str,
					"phone":   str,
				},
			},
			"financials": map[string]any{
				"type":     "object",
				"required": []string{"currency"},
				"properties": map[string]any{
					"subtotal": str,
					"tax":      str,
					"total":    str,
					"tip":      str,
					"currency": map[string]any{"type": "string", "minLength": 3, "maxLength": 3},
				},
			},
			"line_items": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type":     "object",
					"required": []string{"id"},
					"properties": map[string]any{
						"id":          map[string]any{"type": "integer", "minimum": 1},
						"description": str,
						"quantity":    str,
						"total_price": str,
					},
				},
			},
			"tax_details": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"rate":        str,
						"description": str,
						"net_amount":  str,
					},
				},
			},
			"payment": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"display_name": str,
					"type":         str,
				},
			},
		},
	}
}

// ValidateAgainstSchema validates data against schemaMap.
func ValidateAgainstSchema(schemaMap map[string]any, data []byte) error {
	b, err := json.Marshal(schemaMap)
	if err != nil {
		return fmt.Errorf("marshal schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("schema.json", bytes.NewReader(b)); err != nil {
		return fmt.Errorf("add schema: %w", err)
	}
	schema, err := compiler.Compile("schema.json")
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("unmarshal data: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("record does not match schema: %w", err)
	}
	return nil
}
