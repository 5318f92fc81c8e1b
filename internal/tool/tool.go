package tool

import (
	"context"

	"propdesk/internal/schema"
)

// Handler executes one capability against validated arguments and returns a
// value conforming to the tool's declared output shape.
type Handler func(ctx context.Context, args map[string]any) (map[string]any, error)

// Tool is a named, schema-typed operation exposed to the model. Definitions
// are immutable once registered.
type Tool struct {
	Name        string
	Description string
	Input       schema.Schema
	Output      schema.Schema
	Handler     Handler
}
