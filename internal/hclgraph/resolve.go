package hclgraph

import (
	"context"
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/zclconf/go-cty/cty"

	"github.com/specialistvlad/treeforge/internal/ctxlog"
)

// isExprDefined checks if an HCL expression was actually present in the source
// code. The HCL decoder populates omitted optional fields with non-nil,
// zero-width expression objects, so a simple nil check is insufficient.
func isExprDefined(ctx context.Context, expr hcl.Expression, attrName string) bool {
	logger := ctxlog.FromContext(ctx)

	if expr == nil {
		logger.Debug("Expression is nil, considering it undefined.", "attribute", attrName)
		return false
	}

	// A real attribute occupies bytes in the file.
	exprRange := expr.Range()
	isDefined := exprRange.End.Byte > exprRange.Start.Byte

	logger.Debug("Checking if HCL attribute was explicitly defined.",
		"attribute", attrName,
		"hcl_range", exprRange.String(),
		"is_defined", isDefined,
	)
	return isDefined
}

// resolveInputs turns the inputs list of a transform block into node values,
// keeping declaration order.
func (g *Graph) resolveInputs(ctx context.Context, pf *parsedFile, tb *transformBlock) ([]any, error) {
	if !isExprDefined(ctx, tb.Inputs, "inputs") {
		return nil, nil
	}
	exprs, diags := hcl.ExprList(tb.Inputs)
	if diags.HasErrors() {
		return nil, fmt.Errorf("invalid inputs of transform %q: %w", tb.Name, diags)
	}

	inputs := make([]any, 0, len(exprs))
	for _, expr := range exprs {
		in, err := g.resolveRef(pf, expr)
		if err != nil {
			return nil, fmt.Errorf("in inputs of transform %q: %w", tb.Name, err)
		}
		inputs = append(inputs, in)
	}
	return inputs, nil
}

// resolveRef resolves a single node expression: a source.<name> or
// transform.<name> reference, or a string path.
func (g *Graph) resolveRef(pf *parsedFile, expr hcl.Expression) (any, error) {
	if traversal, diags := hcl.AbsTraversalForExpr(expr); !diags.HasErrors() {
		return g.resolveTraversal(traversal)
	}

	val, diags := expr.Value(nil)
	if diags.HasErrors() {
		return nil, fmt.Errorf("%s: expected a node reference or a path: %w", expr.Range(), diags)
	}
	if val.IsNull() || !val.IsKnown() || val.Type() != cty.String {
		return nil, fmt.Errorf("%s: expected a node reference or a path, got %s", expr.Range(), val.Type().FriendlyName())
	}
	return resolvePath(pf.dir, val.AsString()), nil
}

func (g *Graph) resolveTraversal(traversal hcl.Traversal) (any, error) {
	rng := traversal.SourceRange()
	if len(traversal) != 2 {
		return nil, fmt.Errorf("%s: a node reference must have the form source.<name> or transform.<name>", rng)
	}
	attr, ok := traversal[1].(hcl.TraverseAttr)
	if !ok {
		return nil, fmt.Errorf("%s: a node reference must have the form source.<name> or transform.<name>", rng)
	}

	switch traversal.RootName() {
	case "source":
		if s, ok := g.Sources[attr.Name]; ok {
			return s, nil
		}
		return nil, fmt.Errorf("%s: reference to undeclared source %q", rng, attr.Name)
	case "transform":
		if t, ok := g.Transforms[attr.Name]; ok {
			return t, nil
		}
		return nil, fmt.Errorf("%s: reference to undeclared transform %q", rng, attr.Name)
	default:
		return nil, fmt.Errorf("%s: unknown reference kind %q", rng, traversal.RootName())
	}
}
