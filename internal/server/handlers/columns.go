package handlers

import (
	"context"

	"github.com/maruel/recordbook/internal/models"
	"github.com/maruel/recordbook/internal/storage"
)

// ColumnHandler handles schema HTTP requests.
type ColumnHandler struct {
	schema *storage.SchemaStore
}

// NewColumnHandler creates a new column handler.
func NewColumnHandler(schema *storage.SchemaStore) *ColumnHandler {
	return &ColumnHandler{schema: schema}
}

// ListColumnsRequest is the request for listing columns (empty).
type ListColumnsRequest struct{}

// RenameColumnRequest changes the label of the column at Index.
type RenameColumnRequest struct {
	Index int    `path:"index" json:"-"`
	Label string `json:"label"`
}

// RemoveColumnRequest removes the column at Index.
type RemoveColumnRequest struct {
	Index int `path:"index" json:"-"`
}

// ColumnsResponse is the schema after the request.
type ColumnsResponse struct {
	Columns []models.Column `json:"columns"`
}

// ListColumns returns the schema.
func (h *ColumnHandler) ListColumns(ctx context.Context, req ListColumnsRequest) (*ColumnsResponse, error) {
	return &ColumnsResponse{Columns: h.schema.Columns()}, nil
}

// AddColumn appends a column and backfills the records.
func (h *ColumnHandler) AddColumn(ctx context.Context, req models.ColumnForm) (*ColumnsResponse, error) {
	if _, err := h.schema.AddColumnForm(req); err != nil {
		return nil, err
	}
	return &ColumnsResponse{Columns: h.schema.Columns()}, nil
}

// RenameColumn relabels a column.
func (h *ColumnHandler) RenameColumn(ctx context.Context, req RenameColumnRequest) (*ColumnsResponse, error) {
	if err := h.schema.RenameColumn(req.Index, req.Label); err != nil {
		return nil, err
	}
	return &ColumnsResponse{Columns: h.schema.Columns()}, nil
}

// RemoveColumn drops a column from the schema. Record data is kept.
func (h *ColumnHandler) RemoveColumn(ctx context.Context, req RemoveColumnRequest) (*ColumnsResponse, error) {
	if err := h.schema.RemoveColumn(req.Index); err != nil {
		return nil, err
	}
	return &ColumnsResponse{Columns: h.schema.Columns()}, nil
}
