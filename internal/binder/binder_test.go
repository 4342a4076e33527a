package binder

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/specialistvlad/burstbuild/internal/target"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path string, mod time.Time) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
	require.NoError(t, os.Chtimes(path, mod, mod))
}

func TestBind(t *testing.T) {
	root := t.TempDir()
	mod := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	writeFile(t, filepath.Join(root, "util.o"), mod)

	b, err := New(root, 0)
	require.NoError(t, err)

	t.Run("existing file", func(t *testing.T) {
		res := b.Bind(&target.Target{Name: "util.o"})
		assert.Equal(t, target.BindingExists, res.State)
		assert.Equal(t, filepath.Join(b.Root(), "util.o"), res.Location)
		assert.True(t, res.ModTime.Equal(mod))
	})

	t.Run("missing file", func(t *testing.T) {
		res := b.Bind(&target.Target{Name: "app"})
		assert.Equal(t, target.BindingMissing, res.State)
		assert.True(t, res.ModTime.IsZero())
	})

	t.Run("notfile stays unbound", func(t *testing.T) {
		res := b.Bind(&target.Target{Name: "util.o", Flags: target.FlagNotFile})
		assert.Equal(t, target.BindingUnbound, res.State)
		assert.Empty(t, res.Location)
	})

	t.Run("explicit location wins", func(t *testing.T) {
		res := b.Bind(&target.Target{Name: "alias", Location: "util.o", Explicit: true, ExplicitExists: true})
		assert.Equal(t, target.BindingExists, res.State)
		assert.Equal(t, filepath.Join(b.Root(), "util.o"), res.Location)
		assert.True(t, res.ModTime.Equal(mod))
	})

	t.Run("explicit location declared missing", func(t *testing.T) {
		res := b.Bind(&target.Target{Name: "alias", Location: "util.o", Explicit: true})
		assert.Equal(t, target.BindingMissing, res.State, "a file on disk does not override the declaration")
		assert.Equal(t, filepath.Join(b.Root(), "util.o"), res.Location)
	})

	t.Run("explicit location declared existing", func(t *testing.T) {
		res := b.Bind(&target.Target{Name: "alias", Location: "absent.h", Explicit: true, ExplicitExists: true})
		assert.Equal(t, target.BindingExists, res.State)
		assert.True(t, res.ModTime.IsZero())
	})

	t.Run("stat", func(t *testing.T) {
		assert.Equal(t, target.BindingExists, b.Stat("util.o").State)
		assert.Equal(t, target.BindingMissing, b.Stat("absent.h").State)
	})
}

func TestBindVariables(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "src", "b", "main.c"), time.Now())

	b, err := New(root, 16)
	require.NoError(t, err)

	t.Run("SEARCH picks the first directory holding the file", func(t *testing.T) {
		tg := &target.Target{Name: "main.c"}
		tg.Vars = tg.Vars.Apply(target.VarSet, VarSearch, []string{"src/a", "src/b"})
		res := b.Bind(tg)
		assert.Equal(t, target.BindingExists, res.State)
		assert.Equal(t, filepath.Join(b.Root(), "src", "b", "main.c"), res.Location)
	})

	t.Run("SEARCH falls back to the root", func(t *testing.T) {
		tg := &target.Target{Name: "other.c"}
		tg.Vars = tg.Vars.Apply(target.VarSet, VarSearch, []string{"src/a"})
		res := b.Bind(tg)
		assert.Equal(t, target.BindingMissing, res.State)
		assert.Equal(t, filepath.Join(b.Root(), "other.c"), res.Location)
	})

	t.Run("LOCATE places the target", func(t *testing.T) {
		tg := &target.Target{Name: "main.o"}
		tg.Vars = tg.Vars.Apply(target.VarSet, VarLocate, []string{"build"})
		res := b.Bind(tg)
		assert.Equal(t, filepath.Join(b.Root(), "build", "main.o"), res.Location)
		assert.Equal(t, target.BindingMissing, res.State)
	})
}

func TestInvalidate(t *testing.T) {
	root := t.TempDir()
	b, err := New(root, 16)
	require.NoError(t, err)

	tg := &target.Target{Name: "gen.txt"}
	require.Equal(t, target.BindingMissing, b.Bind(tg).State)

	writeFile(t, filepath.Join(root, "gen.txt"), time.Now())
	assert.Equal(t, target.BindingMissing, b.Bind(tg).State, "stat result is cached")

	b.Invalidate(filepath.Join(b.Root(), "gen.txt"))
	assert.Equal(t, target.BindingExists, b.Bind(tg).State)

	require.NoError(t, os.Remove(filepath.Join(root, "gen.txt")))
	b.Purge()
	assert.Equal(t, target.BindingMissing, b.Bind(tg).State)
}
