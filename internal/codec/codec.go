// Package codec converts record collections to and from their interchange
// formats: JSON (import and export), CSV and XLSX (export only).
//
// All functions are pure; they never touch a store.
package codec

import (
	"encoding/json"
	"fmt"
	"strings"

	apierrors "github.com/maruel/recordbook/internal/errors"
	"github.com/maruel/recordbook/internal/models"
)

// ToJSON encodes records as a pretty-printed JSON array. An empty collection
// encodes as "[]".
func ToJSON(records []models.Record) ([]byte, error) {
	if records == nil {
		records = []models.Record{}
	}
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode records: %w", err)
	}
	return data, nil
}

// FromJSON decodes an exported JSON document.
//
// Malformed JSON returns an error wrapping errors.ErrImportParse. Valid JSON
// that is not an array of objects returns an error wrapping
// errors.ErrImportFormat. Identities are not validated.
func FromJSON(data []byte) ([]models.Record, error) {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %w", apierrors.ErrImportParse, err)
	}
	items, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("%w: got %s", apierrors.ErrImportFormat, jsonKind(raw))
	}
	out := make([]models.Record, 0, len(items))
	for i, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: element %d is %s", apierrors.ErrImportFormat, i, jsonKind(item))
		}
		r := models.Record{Fields: obj}
		if id, ok := obj["id"]; ok {
			r.ID = models.FormatValue(id)
			delete(obj, "id")
		}
		out = append(out, r)
	}
	return out, nil
}

func jsonKind(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case bool:
		return "a boolean"
	case float64:
		return "a number"
	case string:
		return "a string"
	case []any:
		return "an array"
	default:
		return "an object"
	}
}

// ToCSV renders records as CSV in column order. Every cell, headers
// included, is wrapped in double quotes with embedded quotes doubled. Lines
// are separated by "\n" with no trailing newline; fields a record lacks are
// empty.
func ToCSV(records []models.Record, columns []models.Column) string {
	var b strings.Builder
	for i, c := range columns {
		if i > 0 {
			b.WriteByte(',')
		}
		writeQuoted(&b, c.Label)
	}
	for _, r := range records {
		b.WriteByte('\n')
		for i, c := range columns {
			if i > 0 {
				b.WriteByte(',')
			}
			writeQuoted(&b, r.Text(c.Key))
		}
	}
	return b.String()
}

func writeQuoted(b *strings.Builder, s string) {
	b.WriteByte('"')
	b.WriteString(strings.ReplaceAll(s, `"`, `""`))
	b.WriteByte('"')
}

