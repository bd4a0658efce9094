package hcl

import (
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
)

// artifactEvalContext exposes every declared artifact as artifact.<id>,
// evaluating to the id itself.
func artifactEvalContext(ids []string) *hcl.EvalContext {
	refs := make(map[string]cty.Value, len(ids))
	for _, id := range ids {
		refs[id] = cty.StringVal(id)
	}
	artifacts := cty.EmptyObjectVal
	if len(refs) > 0 {
		artifacts = cty.ObjectVal(refs)
	}
	return &hcl.EvalContext{Variables: map[string]cty.Value{"artifact": artifacts}}
}

// withVersion returns a child context that also defines ${version}.
func withVersion(parent *hcl.EvalContext, version string) *hcl.EvalContext {
	child := parent.NewChild()
	child.Variables = map[string]cty.Value{"version": cty.StringVal(version)}
	return child
}

// isExprDefined reports whether an optional attribute was written in the
// source. Omitted optional attributes decode to zero-width placeholder
// expressions.
func isExprDefined(expr hcl.Expression) bool {
	if expr == nil {
		return false
	}
	r := expr.Range()
	return r.End.Byte > r.Start.Byte
}

// evalString evaluates expr to a string. An omitted or null expression is
// the empty string.
func evalString(expr hcl.Expression, ctx *hcl.EvalContext, attr string) (string, error) {
	if !isExprDefined(expr) {
		return "", nil
	}
	val, diags := expr.Value(ctx)
	if diags.HasErrors() {
		return "", fmt.Errorf("evaluating %s: %w", attr, diags)
	}
	if val.IsNull() {
		return "", nil
	}
	s, err := convert.Convert(val, cty.String)
	if err != nil {
		return "", fmt.Errorf("%s at %s: must be a string: %w", attr, expr.Range(), err)
	}
	return s.AsString(), nil
}

// evalStringList evaluates expr to a list of strings.
func evalStringList(expr hcl.Expression, ctx *hcl.EvalContext, attr string) ([]string, error) {
	if !isExprDefined(expr) {
		return nil, nil
	}
	val, diags := expr.Value(ctx)
	if diags.HasErrors() {
		return nil, fmt.Errorf("evaluating %s: %w", attr, diags)
	}
	if val.IsNull() {
		return nil, nil
	}
	if !val.CanIterateElements() || val.Type().IsMapType() || val.Type().IsObjectType() {
		return nil, fmt.Errorf("%s at %s: must be a list", attr, expr.Range())
	}
	var out []string
	for it := val.ElementIterator(); it.Next(); {
		_, elem := it.Element()
		s, err := convert.Convert(elem, cty.String)
		if err != nil || s.IsNull() {
			return nil, fmt.Errorf("%s at %s: elements must be strings", attr, expr.Range())
		}
		out = append(out, s.AsString())
	}
	return out, nil
}
