package codec

import (
	"github.com/invopop/jsonschema"

	"github.com/maruel/recordbook/internal/models"
)

func reflector() *jsonschema.Reflector {
	return &jsonschema.Reflector{Anonymous: true, DoNotReference: true}
}

// RecordsSchema returns the JSON Schema of the persisted records blob and of
// the JSON export.
func RecordsSchema() *jsonschema.Schema {
	s := reflector().Reflect([]models.Record{})
	s.Title = "Records"
	return s
}

// SettingsSchema returns the JSON Schema of the persisted settings blob.
func SettingsSchema() *jsonschema.Schema {
	s := reflector().Reflect(&models.Settings{})
	s.Title = "Settings"
	return s
}

// Schema returns a schema by name ("records" or "settings").
func Schema(name string) (*jsonschema.Schema, bool) {
	switch name {
	case "records":
		return RecordsSchema(), true
	case "settings":
		return SettingsSchema(), true
	default:
		return nil, false
	}
}
