package models

import (
	"maps"
	"strings"
	"unicode"

	apierrors "github.com/maruel/recordbook/internal/errors"
)

// ColumnForm is the two-field submission that creates a column.
type ColumnForm struct {
	Key   string `json:"key"`
	Label string `json:"label"`
}

// Validate returns the column described by the form, or a
// *errors.ValidationError naming the offending field.
func (f ColumnForm) Validate() (Column, error) {
	key := strings.TrimSpace(f.Key)
	label := strings.TrimSpace(f.Label)
	if key == "" {
		return Column{}, &apierrors.ValidationError{Field: "key", Message: "is required"}
	}
	if strings.ContainsFunc(key, unicode.IsSpace) {
		return Column{}, &apierrors.ValidationError{Field: "key", Message: "must not contain spaces"}
	}
	if key == "id" {
		return Column{}, &apierrors.ValidationError{Field: "key", Message: "is reserved"}
	}
	if label == "" {
		return Column{}, &apierrors.ValidationError{Field: "label", Message: "is required"}
	}
	return Column{Key: key, Label: label}, nil
}

// RecordForm holds the raw text of an add/edit dialog, keyed by field.
type RecordForm map[string]string

// NewRecordForm returns the values an empty add dialog starts with.
func NewRecordForm() RecordForm {
	return RecordForm{
		FieldCode:     "",
		FieldCustomer: "",
		FieldStatus:   StatusActive,
		FieldAmount:   "0",
		FieldDate:     "",
		FieldChannel:  "Online",
		FieldNote:     "",
		FieldPhone:    "",
	}
}

// EditForm returns the values an edit dialog starts with for r.
func EditForm(r Record) RecordForm {
	f := make(RecordForm, len(r.Fields))
	for k, v := range r.Fields {
		f[k] = FormatValue(v)
	}
	return f
}

// Fields converts the form into record fields. The amount is coerced to a
// number; every other field stays free-form text.
func (f RecordForm) Fields() map[string]any {
	out := make(map[string]any, len(f))
	for k, v := range maps.All(f) {
		if k == "id" {
			continue
		}
		if k == FieldAmount {
			out[k] = NumberValue(v)
			continue
		}
		out[k] = v
	}
	return out
}

// CoerceFields applies the amount coercion to a field map received from a
// structured source (such as an API body). Other values pass through.
func CoerceFields(fields map[string]any) map[string]any {
	out := maps.Clone(fields)
	if out == nil {
		return map[string]any{}
	}
	delete(out, "id")
	if v, ok := out[FieldAmount]; ok {
		out[FieldAmount] = NumberValue(v)
	}
	return out
}
