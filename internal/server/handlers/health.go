package handlers

import "context"

// HealthRequest is the request type for health check (empty).
type HealthRequest struct{}

// HealthResponse is the response for health check.
type HealthResponse struct {
	Status  string `json:"status"`
	Records int    `json:"records"`
}

// HealthHandler reports liveness.
type HealthHandler struct {
	records func() int
}

// NewHealthHandler returns a HealthHandler reporting the collection size
// through records.
func NewHealthHandler(records func() int) *HealthHandler {
	return &HealthHandler{records: records}
}

// Health returns the health status of the server.
func (h *HealthHandler) Health(ctx context.Context, req HealthRequest) (*HealthResponse, error) {
	return &HealthResponse{Status: "ok", Records: h.records()}, nil
}
