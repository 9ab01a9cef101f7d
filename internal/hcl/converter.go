package hcl

import (
	"context"
	"fmt"

	"github.com/RoJaebl/portfolio/internal/config"
	"github.com/RoJaebl/portfolio/internal/ctxlog"
	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
)

// Converter is the HCL-specific implementation of the config.Converter interface.
type Converter struct {
	evalCtx *hcl.EvalContext
}

// NewConverter creates a converter that evaluates arguments in evalCtx.
func NewConverter(evalCtx *hcl.EvalContext) *Converter {
	return &Converter{evalCtx: evalCtx}
}

var _ config.Converter = (*Converter)(nil)

// DecodeArguments evaluates the `arguments` body and populates target, which
// must be a pointer to a struct carrying `hcl` tags.
func (c *Converter) DecodeArguments(ctx context.Context, args hcl.Body, target any) error {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Starting HCL body decoding.", "target", fmt.Sprintf("%T", target))

	if args == nil {
		args = hcl.EmptyBody()
	}
	if diags := gohcl.DecodeBody(args, c.evalCtx, target); diags.HasErrors() {
		return diags
	}
	logger.Debug("Finished HCL body decoding successfully.")
	return nil
}
