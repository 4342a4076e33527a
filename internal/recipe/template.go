package recipe

import (
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
	"github.com/zclconf/go-cty/cty/function"
	"github.com/zclconf/go-cty/cty/function/stdlib"
)

// Scope names reserved by the renderer.
const (
	ScopeTarget  = "target"
	ScopeTargets = "targets"
	ScopeSources = "sources"
	ScopeVar     = "var"
)

var legacyForms = strings.NewReplacer(
	"$(<)", "${target}",
	"$(>)", `${join(" ", sources)}`,
)

var functions = map[string]function.Function{
	"upper":     stdlib.UpperFunc,
	"lower":     stdlib.LowerFunc,
	"join":      stdlib.JoinFunc,
	"split":     stdlib.SplitFunc,
	"replace":   stdlib.ReplaceFunc,
	"format":    stdlib.FormatFunc,
	"trimspace": stdlib.TrimSpaceFunc,
	"concat":    stdlib.ConcatFunc,
	"length":    stdlib.LengthFunc,
}

// Template is a parsed command template.
type Template struct {
	name string
	expr hclsyntax.Expression
}

// Parse parses src as a command template. name is used in diagnostics.
func Parse(name, src string) (*Template, error) {
	expr, diags := hclsyntax.ParseTemplate([]byte(legacyForms.Replace(src)), name, hcl.InitialPos)
	if diags.HasErrors() {
		return nil, fmt.Errorf("parsing command template %s: %w", name, diags)
	}
	return &Template{name: name, expr: expr}, nil
}

// Scope is the data a template is rendered against.
type Scope struct {
	Target  string
	Targets []string
	Sources []string
	Vars    map[string][]string
}

// Render evaluates the template in scope.
func (t *Template) Render(scope Scope) (string, error) {
	val, diags := t.expr.Value(scope.evalContext())
	if diags.HasErrors() {
		return "", fmt.Errorf("rendering command template %s: %w", t.name, diags)
	}
	if val.IsNull() || !val.IsKnown() {
		return "", fmt.Errorf("rendering command template %s: result is null or unknown", t.name)
	}
	str, err := convert.Convert(val, cty.String)
	if err != nil {
		return "", fmt.Errorf("rendering command template %s: %w", t.name, err)
	}
	return str.AsString(), nil
}

func (s Scope) evalContext() *hcl.EvalContext {
	vars := map[string]cty.Value{
		ScopeTarget:  cty.StringVal(s.Target),
		ScopeTargets: stringList(s.Targets),
		ScopeSources: stringList(s.Sources),
	}

	names := make([]string, 0, len(s.Vars))
	for name := range s.Vars {
		names = append(names, name)
	}
	sort.Strings(names)

	lists := make(map[string]cty.Value, len(names))
	for _, name := range names {
		values := s.Vars[name]
		lists[name] = stringList(values)
		if hclsyntax.ValidIdentifier(name) && !isReserved(name) {
			vars[name] = cty.StringVal(strings.Join(values, " "))
		}
	}
	vars[ScopeVar] = cty.ObjectVal(lists)

	return &hcl.EvalContext{Variables: vars, Functions: functions}
}

func isReserved(name string) bool {
	return slices.Contains([]string{ScopeTarget, ScopeTargets, ScopeSources, ScopeVar}, name)
}

func stringList(values []string) cty.Value {
	if len(values) == 0 {
		return cty.ListValEmpty(cty.String)
	}
	out := make([]cty.Value, len(values))
	for i, v := range values {
		out[i] = cty.StringVal(v)
	}
	return cty.ListVal(out)
}

// Environment returns NAME=value entries for the bound variable names,
// joining multiple values with a space. Unset names are exported empty.
func Environment(bind []string, vars map[string][]string) []string {
	env := make([]string, 0, len(bind))
	for _, name := range bind {
		env = append(env, name+"="+strings.Join(vars[name], " "))
	}
	return env
}
