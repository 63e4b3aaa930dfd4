package handlers

import (
	"context"

	"github.com/invopop/jsonschema"

	"github.com/maruel/recordbook/internal/codec"
	apierrors "github.com/maruel/recordbook/internal/errors"
)

// SchemaRequest names the blob schema to return.
type SchemaRequest struct {
	Name string `path:"name" json:"-"`
}

// GetSchema returns the JSON Schema of a persisted blob.
func GetSchema(ctx context.Context, req SchemaRequest) (*jsonschema.Schema, error) {
	s, ok := codec.Schema(req.Name)
	if !ok {
		return nil, apierrors.NotFound("schema " + req.Name)
	}
	return s, nil
}
