package storage

import (
	"fmt"
	"slices"

	apierrors "github.com/maruel/recordbook/internal/errors"
	"github.com/maruel/recordbook/internal/models"
)

// SchemaStore manages the ordered column schema. The columns are persisted in
// the settings blob; adding a column backfills the records.
type SchemaStore struct {
	settings *SettingsStore
	records  *RecordStore
}

// NewSchemaStore returns a SchemaStore keeping its columns in settings and
// backfilling records.
func NewSchemaStore(settings *SettingsStore, records *RecordStore) *SchemaStore {
	return &SchemaStore{settings: settings, records: records}
}

// Columns returns a copy of the schema in display order.
func (s *SchemaStore) Columns() []models.Column {
	return s.settings.Get().Table.Headers
}

// AddColumn appends col to the schema and gives every record an empty value
// for it. It returns a *errors.ValidationError for an empty key or label and
// errors.ErrDuplicateColumn when the key is already used; the schema is
// unchanged in both cases.
func (s *SchemaStore) AddColumn(col models.Column) error {
	c, err := models.ColumnForm(col).Validate()
	if err != nil {
		return err
	}
	return s.add(c)
}

// AddColumnForm validates f and adds the resulting column.
func (s *SchemaStore) AddColumnForm(f models.ColumnForm) (models.Column, error) {
	c, err := f.Validate()
	if err != nil {
		return models.Column{}, err
	}
	if err := s.add(c); err != nil {
		return models.Column{}, err
	}
	return c, nil
}

// add persists the schema then backfills the records. Settings observers are
// notified last, so they never see a column the records lack.
func (s *SchemaStore) add(c models.Column) error {
	_, err := s.settings.apply(func(st *models.Settings) error {
		if slices.ContainsFunc(st.Table.Headers, func(h models.Column) bool { return h.Key == c.Key }) {
			return fmt.Errorf("%w: %q", apierrors.ErrDuplicateColumn, c.Key)
		}
		st.Table.Headers = append(st.Table.Headers, c)
		return nil
	})
	if err != nil {
		return err
	}
	s.records.Backfill(c.Key)
	s.settings.publish()
	return nil
}

// RenameColumn changes the label of the column at index. The key is
// immutable.
func (s *SchemaStore) RenameColumn(index int, label string) error {
	_, err := s.settings.modify(func(st *models.Settings) error {
		if index < 0 || index >= len(st.Table.Headers) {
			return fmt.Errorf("%w: %d", apierrors.ErrColumnIndex, index)
		}
		st.Table.Headers[index].Label = label
		return nil
	})
	return err
}

// RemoveColumn removes the column at index. Record data is left untouched.
func (s *SchemaStore) RemoveColumn(index int) error {
	_, err := s.settings.modify(func(st *models.Settings) error {
		if index < 0 || index >= len(st.Table.Headers) {
			return fmt.Errorf("%w: %d", apierrors.ErrColumnIndex, index)
		}
		st.Table.Headers = slices.Delete(st.Table.Headers, index, index+1)
		return nil
	})
	return err
}
