package hcl

import (
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/ext/typeexpr"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/zclconf/go-cty/cty"

	"github.com/vk/microform/internal/config"
)

// rootSchema describes the three top-level block types of a configuration.
var rootSchema = &hcl.BodySchema{
	Blocks: []hcl.BlockHeaderSchema{
		{Type: "resource", LabelNames: []string{"type", "name"}},
		{Type: "data", LabelNames: []string{"type", "name"}},
		{Type: "variable", LabelNames: []string{"name"}},
	},
}

// resourceSchema pulls the meta-arguments out of a resource body; everything
// left over is treated as provider arguments.
var resourceSchema = &hcl.BodySchema{
	Attributes: []hcl.AttributeSchema{
		{Name: "depends_on"},
	},
	Blocks: []hcl.BlockHeaderSchema{
		{Type: "lifecycle"},
	},
}

// lifecycleBlock is the gohcl shape of a `lifecycle` block.
type lifecycleBlock struct {
	ReplaceTriggeredBy []string `hcl:"replace_triggered_by,optional"`
}

// decodeFile appends all blocks of one parsed file to the model.
func decodeFile(body hcl.Body, model *config.Model, seen map[string]hcl.Range) error {
	content, diags := body.Content(rootSchema)
	if diags.HasErrors() {
		return diags
	}

	for _, block := range content.Blocks {
		switch block.Type {
		case "resource":
			res, err := decodeResource(block)
			if err != nil {
				return err
			}
			if err := noteDecl(seen, "resource."+res.Addr(), block.DefRange); err != nil {
				return err
			}
			model.Resources = append(model.Resources, res)
		case "data":
			ds, err := decodeData(block)
			if err != nil {
				return err
			}
			if err := noteDecl(seen, "data."+ds.Addr(), block.DefRange); err != nil {
				return err
			}
			model.DataSources = append(model.DataSources, ds)
		case "variable":
			v, err := decodeVariable(block)
			if err != nil {
				return err
			}
			if err := noteDecl(seen, "variable."+v.Name, block.DefRange); err != nil {
				return err
			}
			model.Variables = append(model.Variables, v)
		}
	}
	return nil
}

func noteDecl(seen map[string]hcl.Range, key string, rng hcl.Range) error {
	if prev, ok := seen[key]; ok {
		return fmt.Errorf("duplicate declaration of %s at %s (previously declared at %s)", key, rng, prev)
	}
	seen[key] = rng
	return nil
}

func decodeResource(block *hcl.Block) (*config.Resource, error) {
	meta, rest, diags := block.Body.PartialContent(resourceSchema)
	if diags.HasErrors() {
		return nil, diags
	}

	res := &config.Resource{
		Type:      block.Labels[0],
		Name:      block.Labels[1],
		DeclRange: block.DefRange,
	}

	if attr, ok := meta.Attributes["depends_on"]; ok {
		deps, err := decodeDependsOn(attr)
		if err != nil {
			return nil, err
		}
		res.DependsOn = deps
	}

	for _, lc := range meta.Blocks {
		var decoded lifecycleBlock
		if diags := gohcl.DecodeBody(lc.Body, nil, &decoded); diags.HasErrors() {
			return nil, fmt.Errorf("invalid lifecycle block for %s: %w", res.Addr(), diags)
		}
		res.Lifecycle = &config.Lifecycle{ReplaceTriggeredBy: decoded.ReplaceTriggeredBy}
	}

	args, err := bodyAttributes(rest)
	if err != nil {
		return nil, fmt.Errorf("invalid arguments for %s: %w", res.Addr(), err)
	}
	res.Arguments = args
	return res, nil
}

func decodeData(block *hcl.Block) (*config.DataSource, error) {
	ds := &config.DataSource{
		Type:      block.Labels[0],
		Name:      block.Labels[1],
		DeclRange: block.DefRange,
	}
	args, err := bodyAttributes(block.Body)
	if err != nil {
		return nil, fmt.Errorf("invalid arguments for data.%s: %w", ds.Addr(), err)
	}
	ds.Arguments = args
	return ds, nil
}

// variableSchema covers the attributes of a `variable` block.
var variableSchema = &hcl.BodySchema{
	Attributes: []hcl.AttributeSchema{
		{Name: "type"},
		{Name: "default"},
		{Name: "description"},
	},
}

func decodeVariable(block *hcl.Block) (*config.Variable, error) {
	content, diags := block.Body.Content(variableSchema)
	if diags.HasErrors() {
		return nil, diags
	}

	v := &config.Variable{
		Name:      block.Labels[0],
		Type:      cty.DynamicPseudoType,
		DeclRange: block.DefRange,
	}

	if attr, ok := content.Attributes["type"]; ok {
		ty, diags := typeexpr.TypeConstraint(attr.Expr)
		if diags.HasErrors() {
			return nil, fmt.Errorf("invalid type for variable %q: %w", v.Name, diags)
		}
		v.Type = ty
	}
	if attr, ok := content.Attributes["description"]; ok {
		val, diags := attr.Expr.Value(nil)
		if diags.HasErrors() || val.Type() != cty.String {
			return nil, fmt.Errorf("description for variable %q must be a string", v.Name)
		}
		v.Description = val.AsString()
	}
	if attr, ok := content.Attributes["default"]; ok {
		val, diags := attr.Expr.Value(nil)
		if diags.HasErrors() {
			return nil, fmt.Errorf("invalid default for variable %q: %w", v.Name, diags)
		}
		v.Default = &val
	}
	return v, nil
}

// decodeDependsOn turns `depends_on = [type.name, ...]` into address strings.
func decodeDependsOn(attr *hcl.Attribute) ([]string, error) {
	exprs, diags := hcl.ExprList(attr.Expr)
	if diags.HasErrors() {
		return nil, fmt.Errorf("depends_on must be a list of references: %w", diags)
	}
	var addrs []string
	for _, expr := range exprs {
		traversal, diags := hcl.AbsTraversalForExpr(expr)
		if diags.HasErrors() {
			return nil, fmt.Errorf("depends_on entries must be bare references like type.name: %w", diags)
		}
		addr, err := traversalAddr(traversal)
		if err != nil {
			return nil, err
		}
		addrs = append(addrs, addr)
	}
	return addrs, nil
}

// traversalAddr renders a two-part traversal as "type.name".
func traversalAddr(traversal hcl.Traversal) (string, error) {
	if len(traversal) != 2 {
		return "", fmt.Errorf("depends_on reference must have exactly two parts (type.name), got %d", len(traversal))
	}
	root, ok := traversal[0].(hcl.TraverseRoot)
	if !ok {
		return "", fmt.Errorf("malformed depends_on reference")
	}
	attr, ok := traversal[1].(hcl.TraverseAttr)
	if !ok {
		return "", fmt.Errorf("malformed depends_on reference")
	}
	return root.Name + "." + attr.Name, nil
}

// bodyAttributes extracts every attribute expression from a body.
func bodyAttributes(body hcl.Body) (map[string]hcl.Expression, error) {
	attrs, diags := body.JustAttributes()
	if diags.HasErrors() {
		return nil, diags
	}
	if len(attrs) == 0 {
		return nil, nil
	}
	out := make(map[string]hcl.Expression, len(attrs))
	for name, attr := range attrs {
		out[name] = attr.Expr
	}
	return out, nil
}
