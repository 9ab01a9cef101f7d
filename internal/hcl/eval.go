package hcl

import (
	"fmt"
	"os"
	"strings"

	"github.com/RoJaebl/portfolio/internal/config"
	"github.com/hashicorp/hcl/v2"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
	"github.com/zclconf/go-cty/cty/function"
	"github.com/zclconf/go-cty/cty/function/stdlib"
	"github.com/zclconf/go-cty/cty/gocty"
)

// functions is the fixed function table available to every expression.
func functions() map[string]function.Function {
	return map[string]function.Function{
		"concat":     stdlib.ConcatFunc,
		"format":     stdlib.FormatFunc,
		"join":       stdlib.JoinFunc,
		"lower":      stdlib.LowerFunc,
		"trimprefix": stdlib.TrimPrefixFunc,
		"trimsuffix": stdlib.TrimSuffixFunc,
		"upper":      stdlib.UpperFunc,
	}
}

// envValue exposes the process environment as `env.<NAME>`.
func envValue(environ []string) cty.Value {
	vars := make(map[string]cty.Value, len(environ))
	for _, kv := range environ {
		name, value, ok := strings.Cut(kv, "=")
		if !ok || name == "" {
			continue
		}
		vars[name] = cty.StringVal(value)
	}
	if len(vars) == 0 {
		return cty.EmptyObjectVal
	}
	return cty.ObjectVal(vars)
}

// baseContext is the context routes are evaluated in. Routes cannot refer to
// other routes.
func baseContext() *hcl.EvalContext {
	return &hcl.EvalContext{
		Variables: map[string]cty.Value{
			"env": envValue(os.Environ()),
		},
		Functions: functions(),
	}
}

// evalRoute evaluates a route block into the model form.
func evalRoute(rb *routeBlock, ctx *hcl.EvalContext) (*config.Route, error) {
	route := &config.Route{Name: rb.Name}
	var err error
	if route.Watch, err = evalStrings(rb.Watch, ctx); err != nil {
		return nil, fmt.Errorf("route %q: watch: %w", rb.Name, err)
	}
	if route.Src, err = evalStrings(rb.Src, ctx); err != nil {
		return nil, fmt.Errorf("route %q: src: %w", rb.Name, err)
	}
	if rb.Dest != nil {
		val, diags := rb.Dest.Value(ctx)
		if diags.HasErrors() {
			return nil, fmt.Errorf("route %q: dest: %w", rb.Name, diags)
		}
		if !val.IsNull() {
			if err := decodeValue(val, &route.Dest); err != nil {
				return nil, fmt.Errorf("route %q: dest: %w", rb.Name, err)
			}
		}
	}
	return route, nil
}

// evalStrings accepts a null, a single string, or a list/tuple of strings.
func evalStrings(expr hcl.Expression, ctx *hcl.EvalContext) ([]string, error) {
	if expr == nil {
		return nil, nil
	}
	val, diags := expr.Value(ctx)
	if diags.HasErrors() {
		return nil, diags
	}
	if val.IsNull() {
		return nil, nil
	}
	if val.Type() == cty.String {
		var s string
		if err := decodeValue(val, &s); err != nil {
			return nil, err
		}
		return []string{s}, nil
	}
	var out []string
	if err := decodeValue(val, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// decodeValue converts val to the cty type implied by target and decodes it.
func decodeValue(val cty.Value, target any) error {
	ty, err := gocty.ImpliedType(target)
	if err != nil {
		return fmt.Errorf("unable to infer cty.Type: %w", err)
	}
	converted, err := convert.Convert(val, ty)
	if err != nil {
		return fmt.Errorf("cannot convert %s to %s: %w", val.Type().FriendlyName(), ty.FriendlyName(), err)
	}
	return gocty.FromCtyValue(converted, target)
}

// routesValue publishes the route table as `route.<name>.{watch,src,dest}`.
func routesValue(routes config.Routes) cty.Value {
	if len(routes) == 0 {
		return cty.EmptyObjectVal
	}
	obj := make(map[string]cty.Value, len(routes))
	for name, r := range routes {
		obj[name] = cty.ObjectVal(map[string]cty.Value{
			"watch": stringList(r.Watch),
			"src":   stringList(r.Src),
			"dest":  cty.StringVal(r.Dest),
		})
	}
	return cty.ObjectVal(obj)
}

func stringList(items []string) cty.Value {
	if len(items) == 0 {
		return cty.ListValEmpty(cty.String)
	}
	vals := make([]cty.Value, len(items))
	for i, s := range items {
		vals[i] = cty.StringVal(s)
	}
	return cty.ListVal(vals)
}
