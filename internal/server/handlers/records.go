package handlers

import (
	"context"

	"github.com/maruel/recordbook/internal/book"
	apierrors "github.com/maruel/recordbook/internal/errors"
	"github.com/maruel/recordbook/internal/models"
	"github.com/maruel/recordbook/internal/query"
)

// RecordHandler handles record HTTP requests.
type RecordHandler struct {
	book *book.Book
}

// NewRecordHandler creates a new record handler.
func NewRecordHandler(b *book.Book) *RecordHandler {
	return &RecordHandler{book: b}
}

// ListRecordsRequest is the request for listing records.
type ListRecordsRequest struct {
	Query  string `query:"q" json:"-"`
	Status string `query:"status" json:"-"`
}

// ListRecordsResponse holds everything the dashboard table renders.
type ListRecordsResponse struct {
	Rows    []models.Record `json:"rows"`
	Totals  query.Totals    `json:"totals"`
	Columns []models.Column `json:"columns"`
	Flags   models.Flags    `json:"flags"`
	Stats   book.Stats      `json:"stats"`
}

// RecordRequest carries the fields of a record to create.
type RecordRequest struct {
	Fields map[string]any `json:"fields"`
}

// UpdateRecordRequest carries the fields to merge into a record.
type UpdateRecordRequest struct {
	ID     string         `path:"id" json:"-"`
	Fields map[string]any `json:"fields"`
}

// DeleteRecordRequest identifies a record to delete.
type DeleteRecordRequest struct {
	ID string `path:"id" json:"-"`
}

// RecordResponse wraps a single record.
type RecordResponse struct {
	Record models.Record `json:"record"`
}

// DeleteRecordResponse is the response for a deletion.
type DeleteRecordResponse struct {
	ID string `json:"id"`
}

// ListRecords returns the rows matching the query and status filters.
func (h *RecordHandler) ListRecords(ctx context.Context, req ListRecordsRequest) (*ListRecordsResponse, error) {
	res := h.book.Query(query.State{Query: req.Query, Status: req.Status})
	return &ListRecordsResponse{
		Rows:    res.Rows,
		Totals:  res.Totals,
		Columns: h.book.Schema.Columns(),
		Flags:   h.book.Settings.Get().Flags,
		Stats:   h.book.Stats(),
	}, nil
}

// CreateRecord adds a record at the top of the collection.
func (h *RecordHandler) CreateRecord(ctx context.Context, req RecordRequest) (*RecordResponse, error) {
	if req.Fields == nil {
		return nil, apierrors.MissingField("fields")
	}
	return &RecordResponse{Record: h.book.CreateRecord(req.Fields)}, nil
}

// UpdateRecord merges fields into an existing record.
func (h *RecordHandler) UpdateRecord(ctx context.Context, req UpdateRecordRequest) (*RecordResponse, error) {
	if req.Fields == nil {
		return nil, apierrors.MissingField("fields")
	}
	r, ok := h.book.UpdateRecord(req.ID, req.Fields)
	if !ok {
		return nil, apierrors.NotFound("record")
	}
	return &RecordResponse{Record: r}, nil
}

// DeleteRecord removes a record.
func (h *RecordHandler) DeleteRecord(ctx context.Context, req DeleteRecordRequest) (*DeleteRecordResponse, error) {
	if !h.book.DeleteRecord(req.ID) {
		return nil, apierrors.NotFound("record")
	}
	return &DeleteRecordResponse{ID: req.ID}, nil
}
