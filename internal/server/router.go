// Package server exposes a Book over a JSON HTTP API.
package server

import (
	"net/http"

	"golang.org/x/time/rate"

	"github.com/maruel/recordbook/internal/book"
	"github.com/maruel/recordbook/internal/server/handlers"
)

// NewRouter creates and configures the HTTP router. limiter bounds the rate
// of mutating requests; nil means unlimited.
func NewRouter(b *book.Book, limiter *rate.Limiter) http.Handler {
	mux := http.NewServeMux()

	// Initialize handlers
	recordHandler := handlers.NewRecordHandler(b)
	columnHandler := handlers.NewColumnHandler(b.Schema)
	settingsHandler := handlers.NewSettingsHandler(b.Settings)
	healthHandler := handlers.NewHealthHandler(b.Records.Len)
	transfer := &transferHandler{book: b}

	// Health check
	mux.Handle("GET /api/health", Wrap(healthHandler.Health))

	// Records endpoints
	mux.Handle("GET /api/records", Wrap(recordHandler.ListRecords))
	mux.Handle("POST /api/records", Wrap(recordHandler.CreateRecord))
	mux.Handle("PUT /api/records/{id}", Wrap(recordHandler.UpdateRecord))
	mux.Handle("DELETE /api/records/{id}", Wrap(recordHandler.DeleteRecord))

	// Schema endpoints
	mux.Handle("GET /api/columns", Wrap(columnHandler.ListColumns))
	mux.Handle("POST /api/columns", Wrap(columnHandler.AddColumn))
	mux.Handle("PUT /api/columns/{index}", Wrap(columnHandler.RenameColumn))
	mux.Handle("DELETE /api/columns/{index}", Wrap(columnHandler.RemoveColumn))

	// Settings endpoints
	mux.Handle("GET /api/settings", Wrap(settingsHandler.GetSettings))
	mux.Handle("PATCH /api/settings", Wrap(settingsHandler.UpdateSettings))
	mux.Handle("POST /api/settings/toggle/{flag}", Wrap(settingsHandler.ToggleFlag))

	// Import and export
	mux.HandleFunc("GET /api/export/{format}", transfer.Export)
	mux.HandleFunc("POST /api/import", transfer.Import)

	// Blob schemas
	mux.Handle("GET /api/schema/{name}", Wrap(handlers.GetSchema))

	return RequestLogger(WriteLimiter(limiter)(mux))
}
