package clean

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/RoJaebl/portfolio/internal/config"
	"github.com/RoJaebl/portfolio/internal/registry"
	"github.com/RoJaebl/portfolio/internal/task"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOnRunClean(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	for _, f := range []string{"build/index.html", "build/css/style.css", ".publish/x", "src/keep.ts"} {
		p := filepath.Join(dir, filepath.FromSlash(f))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte("x"), 0o644))
	}

	err := OnRunClean(context.Background(), &Input{Patterns: []string{
		filepath.Join(dir, "build"),
		filepath.Join(dir, ".publish"),
		filepath.Join(dir, "never-created"),
	}})
	require.NoError(t, err)

	assert.NoDirExists(t, filepath.Join(dir, "build"))
	assert.NoDirExists(t, filepath.Join(dir, ".publish"))
	assert.FileExists(t, filepath.Join(dir, "src", "keep.ts"))

	// Running again on an already clean tree is a no-op.
	require.NoError(t, OnRunClean(context.Background(), &Input{Patterns: []string{filepath.Join(dir, "build")}}))
}

func TestRegister(t *testing.T) {
	t.Parallel()

	r := registry.New()
	(&Module{}).Register(r)
	kind, ok := r.Lookup("clean")
	require.True(t, ok)

	_, err := kind.Build(context.Background(), &registry.Deps{}, &config.Task{Name: "clean"}, &Input{})
	assert.ErrorContains(t, err, "patterns must not be empty")

	dir := t.TempDir()
	target := filepath.Join(dir, "build")
	require.NoError(t, os.MkdirAll(target, 0o755))

	action, err := kind.Build(context.Background(), &registry.Deps{}, &config.Task{Name: "clean"}, &Input{Patterns: []string{target}})
	require.NoError(t, err)
	require.NoError(t, action(context.Background(), task.RunContext{Task: "clean"}))
	assert.NoDirExists(t, target)
}
