// Package book wires the record engine together: the stores, the live query
// view and the import and export paths.
//
// A Book is the single object the HTTP layer talks to. It is safe for
// concurrent use; concurrent writers follow last-write-wins.
package book

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/maruel/recordbook/internal/codec"
	"github.com/maruel/recordbook/internal/kvstore"
	"github.com/maruel/recordbook/internal/models"
	"github.com/maruel/recordbook/internal/query"
	"github.com/maruel/recordbook/internal/storage"
)

// Export file names.
const (
	JSONFile = "records.json"
	CSVFile  = "records.csv"
	XLSXFile = "records.xlsx"
)

// Book is a record collection with its schema and settings.
type Book struct {
	Records  *storage.RecordStore
	Settings *storage.SettingsStore
	Schema   *storage.SchemaStore

	view *query.View
}

// Stats is the quick-stats panel: counts over the whole collection.
type Stats struct {
	Total  int `json:"total"`
	Active int `json:"active"`
}

// New loads a Book from kv, using seed for whatever is not persisted.
func New(kv kvstore.Store, seed storage.Seed) *Book {
	records := storage.NewRecordStore(kv, seed.Records)
	settings := storage.NewSettingsStore(kv, seed.Settings)
	return &Book{
		Records:  records,
		Settings: settings,
		Schema:   storage.NewSchemaStore(settings, records),
		view:     query.NewView(records, query.State{}),
	}
}

// View returns the live view, recomputed on every record change.
func (b *Book) View() *query.View {
	return b.view
}

// Query runs st against the current collection without touching the live
// view.
func (b *Book) Query(st query.State) query.Result {
	return query.Run(b.Records.All(), st)
}

// Stats returns the quick stats.
func (b *Book) Stats() Stats {
	all := b.Records.All()
	return Stats{Total: len(all), Active: query.CountByStatus(all, models.StatusActive)}
}

// AddRecord creates a record from a submitted form.
func (b *Book) AddRecord(f models.RecordForm) models.Record {
	return b.Records.Create(f.Fields())
}

// EditRecord applies a submitted edit form to the record with the given
// identity.
func (b *Book) EditRecord(id string, f models.RecordForm) (models.Record, bool) {
	return b.Records.Update(id, f.Fields())
}

// CreateRecord creates a record from structured fields, coercing the amount.
func (b *Book) CreateRecord(fields map[string]any) models.Record {
	return b.Records.Create(models.CoerceFields(fields))
}

// UpdateRecord merges structured fields into a record, coercing the amount.
func (b *Book) UpdateRecord(id string, fields map[string]any) (models.Record, bool) {
	return b.Records.Update(id, models.CoerceFields(fields))
}

// DeleteRecord removes a record. Unknown identities are ignored.
func (b *Book) DeleteRecord(id string) bool {
	return b.Records.Delete(id)
}

// ExportJSON encodes the whole collection.
func (b *Book) ExportJSON() ([]byte, error) {
	return codec.ToJSON(b.Records.All())
}

// ExportCSV renders the whole collection in schema order.
func (b *Book) ExportCSV() string {
	return codec.ToCSV(b.Records.All(), b.Schema.Columns())
}

// ExportXLSX writes the whole collection as a spreadsheet in schema order.
func (b *Book) ExportXLSX(w io.Writer) error {
	return codec.ToXLSX(w, b.Records.All(), b.Schema.Columns())
}

// ImportJSON replaces the collection with the records in data and returns
// how many were imported. On error the collection is untouched.
func (b *Book) ImportJSON(data []byte) (int, error) {
	records, err := codec.FromJSON(data)
	if err != nil {
		return 0, err
	}
	b.Records.ReplaceAll(records)
	return len(records), nil
}

// ImportFrom reads an exported JSON document from r then replaces the
// collection. Cancelling ctx before the replacement leaves the collection
// untouched.
func (b *Book) ImportFrom(ctx context.Context, r io.Reader) (int, error) {
	data, err := readAll(ctx, r)
	if err != nil {
		return 0, err
	}
	records, err := codec.FromJSON(data)
	if err != nil {
		return 0, err
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	b.Records.ReplaceAll(records)
	slog.InfoContext(ctx, "Imported records", "count", len(records))
	return len(records), nil
}

// Reload picks up external edits of the persisted blobs. It returns true
// when anything changed.
func (b *Book) Reload() bool {
	r := b.Records.Reload()
	s := b.Settings.Reload()
	return r || s
}

func readAll(ctx context.Context, r io.Reader) ([]byte, error) {
	var out []byte
	buf := make([]byte, 32*1024)
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		n, err := r.Read(buf)
		out = append(out, buf[:n]...)
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read import: %w", err)
		}
	}
}
