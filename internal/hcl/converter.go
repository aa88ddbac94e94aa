package hcl

import (
	"context"
	"fmt"
	"reflect"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/specialistvlad/assetgrid/internal/ctxlog"
)

// Converter is the HCL-specific implementation of the config.Converter interface.
type Converter struct {
	evalCtx *hcl.EvalContext
}

// NewConverter creates a new HCL converter sharing the loader's functions.
func NewConverter() *Converter {
	return &Converter{evalCtx: newEvalContext()}
}

// DecodeOptions evaluates the option body and populates target, which must be
// a non-nil pointer to a struct tagged for gohcl. Fields whose attribute is
// absent keep their pre-populated values, which is how modules express defaults.
func (c *Converter) DecodeOptions(ctx context.Context, body hcl.Body, target any) error {
	logger := ctxlog.FromContext(ctx)

	v := reflect.ValueOf(target)
	if v.Kind() != reflect.Ptr || v.IsNil() {
		return fmt.Errorf("options target must be a non-nil pointer, got %T", target)
	}
	if body == nil {
		return nil
	}

	logger.Debug("Decoding transform options.", "target", fmt.Sprintf("%T", target))
	if diags := gohcl.DecodeBody(body, c.evalCtx, target); diags.HasErrors() {
		return fmt.Errorf("failed to decode options: %w", diags)
	}
	return nil
}
