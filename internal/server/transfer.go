// Serves the file downloads and the raw JSON import.

package server

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/maruel/recordbook/internal/book"
	apierrors "github.com/maruel/recordbook/internal/errors"
)

// maxImportSize bounds the import body.
const maxImportSize = 32 << 20

type transferHandler struct {
	book *book.Book
}

// ImportResponse reports how many records replaced the collection.
type ImportResponse struct {
	Imported int `json:"imported"`
}

// Export sends the whole collection as a file download in the requested
// format: json, csv or xlsx.
func (t *transferHandler) Export(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var data []byte
	var contentType, name string
	switch format := r.PathValue("format"); format {
	case "json":
		var err error
		if data, err = t.book.ExportJSON(); err != nil {
			writeError(ctx, w, apierrors.InternalWithError("Failed to export records", err))
			return
		}
		contentType, name = "application/json", book.JSONFile
	case "csv":
		data = []byte(t.book.ExportCSV())
		contentType, name = "text/csv;charset=utf-8", book.CSVFile
	case "xlsx":
		var buf bytes.Buffer
		if err := t.book.ExportXLSX(&buf); err != nil {
			writeError(ctx, w, apierrors.InternalWithError("Failed to export records", err))
			return
		}
		data = buf.Bytes()
		contentType, name = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", book.XLSXFile
	default:
		writeError(ctx, w, apierrors.NotFound("export format "+format))
		return
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		slog.ErrorContext(ctx, "Failed to write export", "err", err)
	}
}

// Import replaces the collection with the JSON array in the request body.
func (t *transferHandler) Import(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	body := http.MaxBytesReader(w, r.Body, maxImportSize)
	defer func() { _ = body.Close() }()
	n, err := t.book.ImportFrom(ctx, body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			err = apierrors.NewAPIError(http.StatusRequestEntityTooLarge, apierrors.ErrValidationFailed, "Import file is too large").
				WithDetail("limit", tooLarge.Limit)
		}
		writeError(ctx, w, err)
		return
	}
	writeJSON(ctx, w, http.StatusOK, &ImportResponse{Imported: n})
}
