// Package models defines the core data structures used throughout the application.
package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"maps"
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/invopop/jsonschema"
)

// Status values used by the dashboard. Membership is not enforced: any string
// is a valid status.
const (
	StatusActive = "active"
	StatusPaused = "paused"
	StatusClosed = "closed"
)

// Conventional field keys. Only FieldAmount gets special treatment (numeric
// coercion); the others matter to the text search.
const (
	FieldCode     = "code"
	FieldCustomer = "customer"
	FieldStatus   = "status"
	FieldAmount   = "amount"
	FieldDate     = "date"
	FieldChannel  = "channel"
	FieldPhone    = "phone"
	FieldNote     = "note"
)

// Record is one business entity row.
//
// Fields maps a column key to a scalar value (string or float64). A record may
// hold keys that no column displays anymore, and may miss keys that a column
// displays; both are tolerated.
type Record struct {
	ID     string
	Fields map[string]any
}

// Clone returns a copy of the record with its own field map.
func (r Record) Clone() Record {
	return Record{ID: r.ID, Fields: maps.Clone(r.Fields)}
}

// Value returns the field value for key, or nil when absent.
func (r Record) Value(key string) any {
	return r.Fields[key]
}

// Text returns the field value for key rendered as text. Absent values are
// empty strings.
func (r Record) Text(key string) string {
	return FormatValue(r.Fields[key])
}

// MarshalJSON encodes the record as a flat object: "id" first, then the
// fields sorted by key.
func (r Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	id, err := json.Marshal(r.ID)
	if err != nil {
		return nil, err
	}
	buf.WriteString(`"id":`)
	buf.Write(id)
	for _, k := range slices.Sorted(maps.Keys(r.Fields)) {
		if k == "id" {
			continue
		}
		key, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(r.Fields[k])
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", k, err)
		}
		buf.WriteByte(',')
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a flat record object. A non-string id is kept in its
// text form; a missing id stays empty.
func (r *Record) UnmarshalJSON(data []byte) error {
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	if m == nil {
		return fmt.Errorf("record must be an object, got null")
	}
	r.ID = ""
	if id, ok := m["id"]; ok {
		r.ID = FormatValue(id)
		delete(m, "id")
	}
	r.Fields = m
	return nil
}

// JSONSchema describes the persisted record object.
func (Record) JSONSchema() *jsonschema.Schema {
	props := jsonschema.NewProperties()
	props.Set("id", &jsonschema.Schema{Type: "string", Description: "Opaque unique record identity"})
	return &jsonschema.Schema{
		Type:        "object",
		Description: "A record: its identity plus one scalar value per column key",
		Properties:  props,
		Required:    []string{"id"},
		AdditionalProperties: &jsonschema.Schema{
			AnyOf: []*jsonschema.Schema{{Type: "string"}, {Type: "number"}},
		},
	}
}

// Column is one entry of the ordered table schema.
type Column struct {
	Key   string `json:"key" jsonschema:"description=Stable identifier indexing into a record's fields"`
	Label string `json:"label" jsonschema:"description=User-facing header text"`
}

// Brand holds the dashboard display name.
type Brand struct {
	Name string `json:"name" jsonschema:"description=Brand display name"`
}

// Table holds the ordered column schema.
type Table struct {
	Headers []Column `json:"headers" jsonschema:"description=Columns in display and export order"`
}

// Flags holds the display toggles.
type Flags struct {
	Compact    bool `json:"compact" jsonschema:"description=Dense row layout"`
	ShowTotals bool `json:"showTotals" jsonschema:"description=Show the aggregate footer"`
}

// Settings is the persisted settings blob. The schema lives in Table.
type Settings struct {
	Brand Brand `json:"brand"`
	Table Table `json:"table"`
	Flags Flags `json:"flags"`
}

// Clone returns a deep copy.
func (s Settings) Clone() Settings {
	s.Table.Headers = slices.Clone(s.Table.Headers)
	return s
}

// DefaultColumns returns the built-in schema.
func DefaultColumns() []Column {
	return []Column{
		{Key: FieldCode, Label: "Code"},
		{Key: FieldCustomer, Label: "Customer"},
		{Key: FieldStatus, Label: "Status"},
		{Key: FieldAmount, Label: "Amount"},
		{Key: FieldDate, Label: "Date"},
		{Key: FieldChannel, Label: "Channel"},
		{Key: FieldPhone, Label: "Phone"},
		{Key: FieldNote, Label: "Note"},
	}
}

// DefaultSettings returns the settings used when nothing is stored.
func DefaultSettings() Settings {
	return Settings{
		Brand: Brand{Name: "E-Zone System"},
		Table: Table{Headers: DefaultColumns()},
		Flags: Flags{Compact: false, ShowTotals: true},
	}
}

// FormatValue renders a field value the way the dashboard displays it.
// Numbers use the shortest representation that round-trips, in plain notation
// between 1e-6 and 1e21 and in exponent notation outside, like JavaScript.
func FormatValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return formatNumber(t)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case bool:
		return strconv.FormatBool(t)
	case json.Number:
		return t.String()
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(b)
	}
}

func formatNumber(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	case f == 0:
		// Covers -0.
		return "0"
	}
	if a := math.Abs(f); a >= 1e-6 && a < 1e21 {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	// strconv pads the exponent to two digits: 1e-07 becomes 1e-7.
	mant, exp, _ := strings.Cut(strconv.FormatFloat(f, 'e', -1, 64), "e")
	return mant + "e" + exp[:1] + strings.TrimLeft(exp[1:], "0")
}

// NumberValue coerces a field value to a number. Non-numeric, non-finite or
// missing values are 0.
func NumberValue(v any) float64 {
	switch t := v.(type) {
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return 0
		}
		return t
	case int:
		return float64(t)
	case int64:
		return float64(t)
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return 0
		}
		return f
	case bool:
		if t {
			return 1
		}
		return 0
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return 0
		}
		return f
	default:
		return 0
	}
}
