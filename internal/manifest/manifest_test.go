package manifest

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/specialistvlad/burstbuild/internal/target"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `
default = ["app"]

target "app" {
  depends_on = ["util"]
  variables  = { LIBS = ["-lm", "-lz"], MODE = "release" }

  recipe {
    name    = "link"
    command = "cc -o ${target} ${join(" ", sources)} ${LIBS}"
    bind    = ["MODE"]
  }
}

target "util" {
  flags            = ["nocare"]
  location         = "out/util.o"
  append_variables = { CFLAGS = ["-g"] }

  recipe {
    command = <<EOT
echo building $(<)
touch ${target}
EOT
    flags = ["quiet", "ignore"]
  }
}
`

func write(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := write(t, dir, "build.hcl", sample)

	m, err := Load(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, []string{path}, m.Files)
	assert.Equal(t, []string{"app"}, m.Defaults)
	require.Len(t, m.Targets, 2)

	app := m.Targets[0]
	assert.Equal(t, "app", app.Name)
	assert.Equal(t, []string{"util"}, app.DependsOn)
	assert.Equal(t, map[string][]string{"LIBS": {"-lm", "-lz"}, "MODE": {"release"}}, app.Vars)
	require.Len(t, app.Recipes, 1)
	assert.Equal(t, "link", app.Recipes[0].Name)
	assert.Equal(t, `cc -o ${target} ${join(" ", sources)} ${LIBS}`, app.Recipes[0].Command)
	assert.Equal(t, []string{"MODE"}, app.Recipes[0].Bind)

	util := m.Targets[1]
	assert.True(t, util.Flags.Has(target.FlagNoCare))
	assert.Equal(t, filepath.Join(dir, "out", "util.o"), util.Location)
	assert.Equal(t, map[string][]string{"CFLAGS": {"-g"}}, util.AppendVars)
	require.Len(t, util.Recipes, 1)
	assert.Equal(t, DefaultRecipeName, util.Recipes[0].Name)
	assert.Equal(t, "echo building $(<)\ntouch ${target}", util.Recipes[0].Command)
	assert.True(t, util.Recipes[0].Flags.Has(target.RecipeQuiet|target.RecipeIgnore))
}

func TestLoadDirectory(t *testing.T) {
	dir := t.TempDir()
	write(t, dir, "a.hcl", `target "a" {}`)
	write(t, dir, "nested/b.hcl", `target "b" {}`)
	write(t, dir, "notes.txt", `not a manifest`)
	write(t, dir, ".burstbuild/ignored.hcl", `target "hidden" {}`)

	m, err := Load(context.Background(), dir, filepath.Join(dir, "missing"))
	require.NoError(t, err)
	assert.Len(t, m.Files, 2)

	var names []string
	for _, tg := range m.Targets {
		names = append(names, tg.Name)
	}
	assert.ElementsMatch(t, []string{"a", "b"}, names)
}

func TestLoadErrors(t *testing.T) {
	testCases := []struct {
		name string
		body string
		want string
	}{
		{name: "syntax", body: `target "a" {`, want: "failed to parse manifest"},
		{name: "unknown attribute", body: `target "a" { colour = "red" }`, want: "failed to decode manifest"},
		{name: "unknown flag", body: `target "a" { flags = ["shiny"] }`, want: `target "a"`},
		{name: "non-literal command", body: `target "a" {
  recipe { command = upper("x") }
}`, want: "command must be a string literal"},
		{name: "bad variables", body: `target "a" { variables = ["x"] }`, want: "expected an object"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			path := write(t, t.TempDir(), "build.hcl", tc.body)
			_, err := Load(context.Background(), path)
			assert.ErrorContains(t, err, tc.want)
		})
	}
}

type call struct {
	op   string
	name string
	arg  any
}

type recordingDeclarer struct {
	calls []call
	fail  error
}

func (r *recordingDeclarer) DefineTarget(name string, flags target.Flags) {
	r.calls = append(r.calls, call{"define", name, flags})
}

func (r *recordingDeclarer) BindTarget(name, location string, exists bool) {
	r.calls = append(r.calls, call{"bind", name, exists})
}

func (r *recordingDeclarer) SetTargetVariables(name string, mode target.VarMode, mapping map[string][]string) {
	r.calls = append(r.calls, call{"vars", name, mode})
}

func (r *recordingDeclarer) DefineRecipe(name, recipeName, command string, bind []string, flags target.RecipeFlags) error {
	r.calls = append(r.calls, call{"recipe", name, recipeName})
	return nil
}

func (r *recordingDeclarer) DeclareDependency(name string, deps ...string) error {
	r.calls = append(r.calls, call{"depends", name, deps})
	return r.fail
}

func TestApply(t *testing.T) {
	path := write(t, t.TempDir(), "build.hcl", sample)
	m, err := Load(context.Background(), path)
	require.NoError(t, err)

	d := &recordingDeclarer{}
	require.NoError(t, m.Apply(d))

	assert.Equal(t, []call{
		{"define", "app", target.Flags(0)},
		{"vars", "app", target.VarSet},
		{"recipe", "app", "link"},
		{"define", "util", target.FlagNoCare},
		{"bind", "util", false},
		{"vars", "util", target.VarAppend},
		{"recipe", "util", DefaultRecipeName},
		{"depends", "app", []string{"util"}},
	}, d.calls)

	t.Run("dependency errors are wrapped", func(t *testing.T) {
		d := &recordingDeclarer{fail: assert.AnError}
		err := m.Apply(d)
		assert.ErrorIs(t, err, assert.AnError)
		assert.ErrorContains(t, err, `target "app"`)
	})
}
