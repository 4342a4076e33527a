package manifest

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/specialistvlad/burstbuild/internal/ctxlog"
	"github.com/specialistvlad/burstbuild/internal/target"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
	"github.com/zclconf/go-cty/cty/gocty"
)

// Extension is the file extension manifests are discovered by.
const Extension = ".hcl"

// DefaultRecipeName names a recipe block without a name attribute.
const DefaultRecipeName = "recipe"

// fileRoot is the top-level shape of a manifest file.
type fileRoot struct {
	Default []string       `hcl:"default,optional"`
	Targets []*targetBlock `hcl:"target,block"`
	Remain  hcl.Body       `hcl:",remain"`
}

type targetBlock struct {
	Name       string         `hcl:"name,label"`
	DependsOn  []string       `hcl:"depends_on,optional"`
	Flags      []string       `hcl:"flags,optional"`
	Location   string         `hcl:"location,optional"`
	Variables  cty.Value      `hcl:"variables,optional"`
	AppendVars cty.Value      `hcl:"append_variables,optional"`
	Recipes    []*recipeBlock `hcl:"recipe,block"`
}

type recipeBlock struct {
	Name    string         `hcl:"name,optional"`
	Command hcl.Expression `hcl:"command"`
	Bind    []string       `hcl:"bind,optional"`
	Flags   []string       `hcl:"flags,optional"`
}

// Target is one declared target.
type Target struct {
	Name       string
	DependsOn  []string
	Flags      target.Flags
	Location   string
	Vars       map[string][]string
	AppendVars map[string][]string
	Recipes    []target.Recipe
}

// Manifest is the merged content of every loaded file.
type Manifest struct {
	Files    []string
	Defaults []string
	Targets  []Target
}

// Declarer receives manifest declarations. *engine.Engine satisfies it.
type Declarer interface {
	DefineTarget(name string, flags target.Flags)
	BindTarget(name, location string, exists bool)
	SetTargetVariables(name string, mode target.VarMode, mapping map[string][]string)
	DefineRecipe(name, recipeName, command string, bind []string, flags target.RecipeFlags) error
	DeclareDependency(name string, deps ...string) error
}

// Load parses every manifest found under paths. Directories are walked for
// files ending in Extension; paths that do not exist are skipped.
func Load(ctx context.Context, paths ...string) (*Manifest, error) {
	logger := ctxlog.FromContext(ctx)

	files, err := findFiles(paths)
	if err != nil {
		return nil, err
	}
	logger.Debug("Discovered manifest files.", "count", len(files))

	m := &Manifest{Files: files}
	parser := hclparse.NewParser()
	for _, file := range files {
		f, diags := parser.ParseHCLFile(file)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to parse manifest %s: %w", file, diags)
		}

		var root fileRoot
		if diags := gohcl.DecodeBody(f.Body, nil, &root); diags.HasErrors() {
			return nil, fmt.Errorf("failed to decode manifest %s: %w", file, diags)
		}

		m.Defaults = append(m.Defaults, root.Default...)
		for _, tb := range root.Targets {
			t, err := translateTarget(file, f.Bytes, tb)
			if err != nil {
				return nil, fmt.Errorf("manifest %s: %w", file, err)
			}
			m.Targets = append(m.Targets, t)
		}
	}

	logger.Debug("Manifest loading complete.", "files", len(files), "targets", len(m.Targets))
	return m, nil
}

func translateTarget(file string, src []byte, tb *targetBlock) (Target, error) {
	t := Target{Name: tb.Name, DependsOn: tb.DependsOn}

	flags, err := target.ParseFlags(tb.Flags)
	if err != nil {
		return t, fmt.Errorf("target %q: %w", tb.Name, err)
	}
	t.Flags = flags

	if tb.Location != "" {
		t.Location = tb.Location
		if !filepath.IsAbs(t.Location) {
			t.Location = filepath.Join(filepath.Dir(file), t.Location)
		}
	}

	if t.Vars, err = decodeVariables(tb.Variables); err != nil {
		return t, fmt.Errorf("target %q variables: %w", tb.Name, err)
	}
	if t.AppendVars, err = decodeVariables(tb.AppendVars); err != nil {
		return t, fmt.Errorf("target %q append_variables: %w", tb.Name, err)
	}

	for _, rb := range tb.Recipes {
		cmd, err := rawTemplate(src, rb.Command)
		if err != nil {
			return t, fmt.Errorf("target %q: %w", tb.Name, err)
		}
		rflags, err := target.ParseRecipeFlags(rb.Flags)
		if err != nil {
			return t, fmt.Errorf("target %q: %w", tb.Name, err)
		}
		name := rb.Name
		if name == "" {
			name = DefaultRecipeName
		}
		t.Recipes = append(t.Recipes, target.Recipe{Name: name, Command: cmd, Bind: rb.Bind, Flags: rflags})
	}
	return t, nil
}

// decodeVariables turns an object of strings or string lists into a map.
func decodeVariables(v cty.Value) (map[string][]string, error) {
	if v.IsNull() {
		return nil, nil
	}
	if !v.IsWhollyKnown() || !(v.Type().IsObjectType() || v.Type().IsMapType()) {
		return nil, fmt.Errorf("expected an object, got %s", v.Type().FriendlyName())
	}

	out := make(map[string][]string)
	for it := v.ElementIterator(); it.Next(); {
		k, ev := it.Element()
		name := k.AsString()
		if ev.Type() == cty.String {
			out[name] = []string{ev.AsString()}
			continue
		}
		list, err := convert.Convert(ev, cty.List(cty.String))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		var values []string
		if err := gocty.FromCtyValue(list, &values); err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		out[name] = values
	}
	return out, nil
}

// rawTemplate returns the unevaluated source of a string expression: the
// text between the quotes, or the body of a heredoc.
func rawTemplate(src []byte, expr hcl.Expression) (string, error) {
	rng := expr.Range()
	text := src[rng.Start.Byte:rng.End.Byte]

	switch {
	case len(text) >= 2 && text[0] == '"' && text[len(text)-1] == '"':
		return string(text[1 : len(text)-1]), nil
	case bytes.HasPrefix(text, []byte("<<")):
		start := bytes.IndexByte(text, '\n')
		if start < 0 {
			return "", nil
		}
		body := bytes.TrimRight(text[start+1:], "\n")
		end := bytes.LastIndexByte(body, '\n')
		if end < 0 {
			return "", nil
		}
		return string(body[:end]), nil
	default:
		return "", fmt.Errorf("%s: command must be a string literal", rng)
	}
}

// findFiles walks paths and returns every manifest file once.
func findFiles(paths []string) ([]string, error) {
	var files []string
	seen := make(map[string]struct{})
	add := func(p string) {
		if _, ok := seen[p]; !ok {
			files = append(files, p)
			seen[p] = struct{}{}
		}
	}

	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("error accessing path %s: %w", path, err)
		}

		if !info.IsDir() {
			add(path)
			continue
		}
		err = filepath.Walk(path, func(p string, info os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			if info.IsDir() && p != path && strings.HasPrefix(info.Name(), ".") {
				return filepath.SkipDir
			}
			if !info.IsDir() && filepath.Ext(p) == Extension {
				add(p)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return files, nil
}

// Apply declares every target on d. Targets, variables and recipes come
// first so dependency errors name fully declared targets.
func (m *Manifest) Apply(d Declarer) error {
	for _, t := range m.Targets {
		d.DefineTarget(t.Name, t.Flags)
		if t.Location != "" {
			_, err := os.Stat(t.Location)
			d.BindTarget(t.Name, t.Location, err == nil)
		}
		if len(t.Vars) > 0 {
			d.SetTargetVariables(t.Name, target.VarSet, t.Vars)
		}
		if len(t.AppendVars) > 0 {
			d.SetTargetVariables(t.Name, target.VarAppend, t.AppendVars)
		}
		for _, r := range t.Recipes {
			if err := d.DefineRecipe(t.Name, r.Name, r.Command, r.Bind, r.Flags); err != nil {
				return err
			}
		}
	}
	for _, t := range m.Targets {
		if len(t.DependsOn) == 0 {
			continue
		}
		if err := d.DeclareDependency(t.Name, t.DependsOn...); err != nil {
			return fmt.Errorf("target %q: %w", t.Name, err)
		}
	}
	return nil
}
