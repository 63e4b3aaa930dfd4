// Provides the built-in demo dataset and the YAML seed file loader.

package storage

import (
	"errors"
	"fmt"
	"io"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/maruel/recordbook/internal/models"
)

// Seed is the state used when nothing is persisted yet.
type Seed struct {
	Records  []models.Record
	Settings models.Settings
}

// DefaultSeed returns the demo records and the default settings.
func DefaultSeed() Seed {
	return Seed{Records: DemoRecords(), Settings: models.DefaultSettings()}
}

// DemoRecords returns the three demo records. They carry no identity; the
// RecordStore assigns one.
func DemoRecords() []models.Record {
	return []models.Record{
		{Fields: map[string]any{
			models.FieldCode: "ORD-1001", models.FieldCustomer: "Cook Door - Dokki", models.FieldStatus: models.StatusActive,
			models.FieldAmount: float64(4200), models.FieldDate: "2025-09-01", models.FieldChannel: "Online",
			models.FieldNote: "Priority day (rush)", models.FieldPhone: "+201112223334",
		}},
		{Fields: map[string]any{
			models.FieldCode: "ORD-1002", models.FieldCustomer: "Cook Door - Heliopolis", models.FieldStatus: models.StatusPaused,
			models.FieldAmount: float64(2100), models.FieldDate: "2025-08-28", models.FieldChannel: "Offline",
			models.FieldNote: "Pending confirmation", models.FieldPhone: "+201098765432",
		}},
		{Fields: map[string]any{
			models.FieldCode: "ORD-1003", models.FieldCustomer: "Asil Co.", models.FieldStatus: models.StatusActive,
			models.FieldAmount: float64(6900), models.FieldDate: "2025-08-15", models.FieldChannel: "Online",
			models.FieldNote: "SLA 99.9%", models.FieldPhone: "+201223344556",
		}},
	}
}

// seedFile is the YAML layout of a seed file. Every section is optional.
type seedFile struct {
	Brand      *string          `yaml:"brand"`
	Compact    *bool            `yaml:"compact"`
	ShowTotals *bool            `yaml:"show_totals"`
	Columns    []seedColumn     `yaml:"columns"`
	Records    []map[string]any `yaml:"records"`
}

type seedColumn struct {
	Key   string `yaml:"key"`
	Label string `yaml:"label"`
}

// ParseSeed reads a YAML seed file. Sections it omits keep the value from
// DefaultSeed.
//
// Example:
//
//	brand: Acme
//	show_totals: false
//	columns:
//	  - {key: code, label: Code}
//	  - {key: amount, label: Amount}
//	records:
//	  - {code: A-1, amount: 10}
func ParseSeed(r io.Reader) (Seed, error) {
	var f seedFile
	if err := yaml.NewDecoder(r).Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return Seed{}, fmt.Errorf("failed to parse seed: %w", err)
	}
	seed := DefaultSeed()
	if f.Brand != nil {
		seed.Settings.Brand.Name = *f.Brand
	}
	if f.Compact != nil {
		seed.Settings.Flags.Compact = *f.Compact
	}
	if f.ShowTotals != nil {
		seed.Settings.Flags.ShowTotals = *f.ShowTotals
	}
	if f.Columns != nil {
		cols := make([]models.Column, 0, len(f.Columns))
		seen := make(map[string]bool, len(f.Columns))
		for i, c := range f.Columns {
			col, err := models.ColumnForm{Key: c.Key, Label: c.Label}.Validate()
			if err != nil {
				return Seed{}, fmt.Errorf("column %d: %w", i, err)
			}
			if seen[col.Key] {
				return Seed{}, fmt.Errorf("column %d: duplicate key %q", i, col.Key)
			}
			seen[col.Key] = true
			cols = append(cols, col)
		}
		seed.Settings.Table.Headers = cols
	}
	if f.Records != nil {
		seed.Records = make([]models.Record, 0, len(f.Records))
		for _, m := range f.Records {
			r := models.Record{Fields: make(map[string]any, len(m))}
			for k, v := range m {
				v = yamlScalar(v)
				if k == "id" {
					r.ID = models.FormatValue(v)
					continue
				}
				r.Fields[k] = v
			}
			seed.Records = append(seed.Records, r)
		}
	}
	return seed, nil
}

// yamlScalar converts YAML integers to float64 and timestamps to text so
// seeded values match values decoded from JSON.
func yamlScalar(v any) any {
	switch t := v.(type) {
	case int:
		return float64(t)
	case int64:
		return float64(t)
	case uint64:
		return float64(t)
	case time.Time:
		if t.Equal(t.Truncate(24 * time.Hour)) {
			return t.Format(time.DateOnly)
		}
		return t.Format(time.RFC3339)
	default:
		return v
	}
}
