package config

import (
	"context"

	"github.com/hashicorp/hcl/v2"
)

// Loader is the interface for a format-specific configuration loader.
type Loader interface {
	// Load reads configuration from the given paths, translates it into the
	// format-agnostic model, and returns a matching Converter. With no paths
	// the loader falls back to its built-in default configuration.
	Load(ctx context.Context, paths ...string) (*Model, Converter, error)
}

// Converter is the interface for a format-specific data binding
// implementation. It is the bridge between raw transform option blocks and
// the Go option structs declared by modules.
type Converter interface {
	// DecodeOptions decodes a raw option body into target, a pointer to a
	// module's options struct, applying defaults and validations.
	DecodeOptions(ctx context.Context, body hcl.Body, target any) error
}
