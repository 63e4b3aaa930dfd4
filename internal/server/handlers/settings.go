package handlers

import (
	"context"

	apierrors "github.com/maruel/recordbook/internal/errors"
	"github.com/maruel/recordbook/internal/models"
	"github.com/maruel/recordbook/internal/storage"
)

// SettingsHandler handles settings HTTP requests.
type SettingsHandler struct {
	settings *storage.SettingsStore
}

// NewSettingsHandler creates a new settings handler.
func NewSettingsHandler(settings *storage.SettingsStore) *SettingsHandler {
	return &SettingsHandler{settings: settings}
}

// GetSettingsRequest is the request for reading settings (empty).
type GetSettingsRequest struct{}

// UpdateSettingsRequest changes the fields that are set. The schema is
// edited through the column endpoints.
type UpdateSettingsRequest struct {
	BrandName  *string `json:"brandName,omitempty"`
	Compact    *bool   `json:"compact,omitempty"`
	ShowTotals *bool   `json:"showTotals,omitempty"`
}

// ToggleFlagRequest names the flag to flip: "compact" or "showTotals".
type ToggleFlagRequest struct {
	Flag string `path:"flag" json:"-"`
}

// GetSettings returns the settings.
func (h *SettingsHandler) GetSettings(ctx context.Context, req GetSettingsRequest) (*models.Settings, error) {
	s := h.settings.Get()
	return &s, nil
}

// UpdateSettings applies a partial update in one transition.
func (h *SettingsHandler) UpdateSettings(ctx context.Context, req UpdateSettingsRequest) (*models.Settings, error) {
	s := h.settings.Update(func(s *models.Settings) {
		if req.BrandName != nil {
			s.Brand.Name = *req.BrandName
		}
		if req.Compact != nil {
			s.Flags.Compact = *req.Compact
		}
		if req.ShowTotals != nil {
			s.Flags.ShowTotals = *req.ShowTotals
		}
	})
	return &s, nil
}

// ToggleFlag flips a display flag.
func (h *SettingsHandler) ToggleFlag(ctx context.Context, req ToggleFlagRequest) (*models.Flags, error) {
	switch req.Flag {
	case "compact":
		h.settings.ToggleCompact()
	case "showTotals":
		h.settings.ToggleShowTotals()
	default:
		return nil, apierrors.NotFound("flag " + req.Flag)
	}
	f := h.settings.Get().Flags
	return &f, nil
}
