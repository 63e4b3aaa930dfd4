package models

import (
	"encoding/json"
	"errors"
	"math"
	"reflect"
	"testing"

	apierrors "github.com/maruel/recordbook/internal/errors"
)

func TestRecordJSON(t *testing.T) {
	r := Record{ID: "abc", Fields: map[string]any{"status": "active", "amount": float64(100), "code": "A1"}}
	data, err := json.Marshal(r)
	if err != nil {
		t.Fatal(err)
	}
	if got, want := string(data), `{"id":"abc","amount":100,"code":"A1","status":"active"}`; got != want {
		t.Errorf("got %s, want %s", got, want)
	}

	var back Record
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(back, r) {
		t.Errorf("got %+v, want %+v", back, r)
	}

	t.Run("numeric id", func(t *testing.T) {
		var r Record
		if err := json.Unmarshal([]byte(`{"id":42,"code":"X"}`), &r); err != nil {
			t.Fatal(err)
		}
		if r.ID != "42" {
			t.Errorf("got id %q, want %q", r.ID, "42")
		}
	})

	t.Run("not an object", func(t *testing.T) {
		for _, in := range []string{`5`, `"x"`, `null`, `[1]`} {
			var r Record
			if err := json.Unmarshal([]byte(in), &r); err == nil {
				t.Errorf("%s: expected error", in)
			}
		}
	})
}

func TestFormatValue(t *testing.T) {
	tests := []struct {
		in   any
		want string
	}{
		{nil, ""},
		{"x", "x"},
		{float64(4200), "4200"},
		{float64(12.5), "12.5"},
		{math.Copysign(0, -1), "0"},
		{1e21, "1e+21"},
		{-1.5e22, "-1.5e+22"},
		{1e20, "100000000000000000000"},
		{1e-6, "0.000001"},
		{1e-7, "1e-7"},
		{1.25e-10, "1.25e-10"},
		{math.NaN(), "NaN"},
		{math.Inf(-1), "-Infinity"},
		{true, "true"},
		{3, "3"},
	}
	for _, tt := range tests {
		if got := FormatValue(tt.in); got != tt.want {
			t.Errorf("FormatValue(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNumberValue(t *testing.T) {
	tests := []struct {
		in   any
		want float64
	}{
		{nil, 0},
		{"", 0},
		{"abc", 0},
		{"NaN", 0},
		{"Infinity", 0},
		{" 42 ", 42},
		{"1.5", 1.5},
		{float64(7), 7},
		{true, 1},
	}
	for _, tt := range tests {
		if got := NumberValue(tt.in); got != tt.want {
			t.Errorf("NumberValue(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestColumnForm(t *testing.T) {
	tests := []struct {
		name      string
		form      ColumnForm
		wantField string
	}{
		{"valid", ColumnForm{Key: "region", Label: "Region"}, ""},
		{"trimmed", ColumnForm{Key: " region ", Label: " Region "}, ""},
		{"empty key", ColumnForm{Key: "", Label: "Region"}, "key"},
		{"blank label", ColumnForm{Key: "region", Label: "  "}, "label"},
		{"space in key", ColumnForm{Key: "sales region", Label: "Region"}, "key"},
		{"reserved", ColumnForm{Key: "id", Label: "ID"}, "key"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			col, err := tt.form.Validate()
			if tt.wantField == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if col != (Column{Key: "region", Label: "Region"}) {
					t.Errorf("got %+v", col)
				}
				return
			}
			var verr *apierrors.ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("got %v, want ValidationError", err)
			}
			if verr.Field != tt.wantField {
				t.Errorf("field: got %q, want %q", verr.Field, tt.wantField)
			}
		})
	}
}

func TestRecordForm(t *testing.T) {
	f := NewRecordForm()
	f[FieldCode] = "ORD-1004"
	f[FieldAmount] = "1250.5"
	fields := f.Fields()
	if fields[FieldAmount] != 1250.5 {
		t.Errorf("amount: got %v (%T), want 1250.5", fields[FieldAmount], fields[FieldAmount])
	}
	if fields[FieldStatus] != StatusActive || fields[FieldChannel] != "Online" {
		t.Errorf("defaults lost: %+v", fields)
	}

	f[FieldAmount] = "lots"
	if got := f.Fields()[FieldAmount]; got != float64(0) {
		t.Errorf("non-numeric amount: got %v, want 0", got)
	}

	edit := EditForm(Record{ID: "x", Fields: map[string]any{FieldAmount: float64(50), FieldNote: "n"}})
	if edit[FieldAmount] != "50" || edit[FieldNote] != "n" {
		t.Errorf("edit form: got %+v", edit)
	}
}

func TestCoerceFields(t *testing.T) {
	in := map[string]any{"id": "forged", FieldAmount: "12", FieldCode: "C"}
	out := CoerceFields(in)
	if _, ok := out["id"]; ok {
		t.Error("id must not be settable through fields")
	}
	if out[FieldAmount] != float64(12) {
		t.Errorf("amount: got %v", out[FieldAmount])
	}
	if in[FieldAmount] != "12" {
		t.Error("input map must not be modified")
	}
	if CoerceFields(nil) == nil {
		t.Error("nil input should give an empty map")
	}
}

func TestDefaultSettings(t *testing.T) {
	s := DefaultSettings()
	if s.Brand.Name != "E-Zone System" || !s.Flags.ShowTotals || s.Flags.Compact {
		t.Errorf("unexpected defaults: %+v", s)
	}
	if len(s.Table.Headers) != 8 {
		t.Fatalf("got %d headers, want 8", len(s.Table.Headers))
	}
	c := s.Clone()
	c.Table.Headers[0].Label = "changed"
	if s.Table.Headers[0].Label != "Code" {
		t.Error("Clone must not share the header slice")
	}
}
