package config

import (
	"context"

	"github.com/hashicorp/hcl/v2"
)

// Loader is the interface for a format-specific pipeline loader.
type Loader interface {
	// Load reads the pipeline file(s) at paths, translates them into the
	// format-agnostic model, and returns a matching Converter.
	Load(ctx context.Context, paths ...string) (*Model, Converter, error)
}

// Converter decodes a leaf task's raw `arguments` body into a module's Go
// input struct. Route and env references inside the body are resolved by
// the converter, so modules never see unevaluated expressions.
type Converter interface {
	DecodeArguments(ctx context.Context, args hcl.Body, target any) error
}
