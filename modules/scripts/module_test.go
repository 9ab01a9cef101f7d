package scripts

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/RoJaebl/portfolio/internal/config"
	"github.com/RoJaebl/portfolio/internal/fsutil"
	"github.com/RoJaebl/portfolio/internal/registry"
	"github.com/RoJaebl/portfolio/internal/task"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func write(t *testing.T, path, content string, mtime time.Time) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	require.NoError(t, os.Chtimes(path, mtime, mtime))
}

// recordingCompiler appends its arguments, one invocation per line, to log,
// and writes an empty .js file into --outDir for every .ts argument.
func recordingCompiler(log string) []string {
	script := `echo "$@" >> '` + log + `'
out=.
while [ $# -gt 0 ]; do
  case "$1" in
    --outDir) out="$2"; shift ;;
    *.ts) mkdir -p "$out" && : > "$out/$(basename "$1" .ts).js" ;;
  esac
  shift
done`
	return []string{"sh", "-c", script, "tsc"}
}

func invocations(t *testing.T, log string) []string {
	t.Helper()
	data, err := os.ReadFile(log)
	if os.IsNotExist(err) {
		return nil
	}
	require.NoError(t, err)
	return strings.Split(strings.TrimSpace(string(data)), "\n")
}

func TestResolve_Project(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	tsconfig := filepath.Join(dir, "tsconfig.json")
	write(t, tsconfig, `{"include": ["src/**/*.ts"], "compilerOptions": {"outDir": "build/js"}}`, time.Now())

	input := &Input{Project: tsconfig}
	require.NoError(t, resolve(input))
	assert.Equal(t, []string{filepath.Join(dir, "src", "**", "*.ts")}, input.Src)
	assert.Equal(t, filepath.Join(dir, "build", "js"), input.Dest)
	assert.Equal(t, DefaultCommand, input.Command)

	explicit := &Input{Project: tsconfig, Src: []string{"main.ts"}, Dest: "out"}
	require.NoError(t, resolve(explicit))
	assert.Equal(t, []string{"main.ts"}, explicit.Src)
	assert.Equal(t, "out", explicit.Dest)

	noDest := &Input{}
	assert.ErrorContains(t, resolve(noDest), "dest is not set")

	missing := &Input{Project: filepath.Join(dir, "absent.json")}
	assert.ErrorContains(t, resolve(missing), "reading project")
}

func TestArgv(t *testing.T) {
	t.Parallel()

	off := false
	cases := []struct {
		name  string
		input *Input
		want  []string
	}{
		{
			name:  "source maps by default",
			input: &Input{Command: []string{"tsc"}, Dest: "build"},
			want:  []string{"tsc", "--outDir", "build", "--sourceMap", "a.ts"},
		},
		{
			name:  "extra args without source maps",
			input: &Input{Command: []string{"npx", "tsc"}, Dest: "build", Args: []string{"--target", "es2020"}, SourceMap: &off},
			want:  []string{"npx", "tsc", "--outDir", "build", "--target", "es2020", "a.ts"},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if diff := cmp.Diff(tc.want, Argv(tc.input, []string{"a.ts"})); diff != "" {
				t.Errorf("Argv() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestOnRunScripts_Incremental(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses a POSIX shell as the compiler")
	}
	t.Parallel()

	dir := t.TempDir()
	log := filepath.Join(dir, "calls.log")
	old := time.Now().Add(-time.Hour)
	write(t, filepath.Join(dir, "src", "a.ts"), "let a = 1", old)
	write(t, filepath.Join(dir, "src", "b.ts"), "let b = 2", old)

	r := registry.New()
	(&Module{}).Register(r)
	kind, _ := r.Lookup("scripts")
	action, err := kind.Build(context.Background(), &registry.Deps{}, &config.Task{Name: "ts"}, &Input{
		Src:     []string{filepath.Join(dir, "src", "**", "*.ts")},
		Dest:    filepath.Join(dir, "build"),
		Command: recordingCompiler(log),
	})
	require.NoError(t, err)

	// First run: everything is new.
	require.NoError(t, action(context.Background(), task.RunContext{Task: "ts"}))
	calls := invocations(t, log)
	require.Len(t, calls, 1)
	assert.Contains(t, calls[0], "a.ts")
	assert.Contains(t, calls[0], "b.ts")
	assert.Contains(t, calls[0], "--sourceMap")

	// Second run with nothing changed: the compiler is not invoked.
	since := time.Now().Add(-time.Minute)
	require.NoError(t, action(context.Background(), task.RunContext{Task: "ts", Since: since}))
	assert.Len(t, invocations(t, log), 1)

	// Touch one file: only it is handed to the compiler.
	write(t, filepath.Join(dir, "src", "b.ts"), "let b = 3", time.Now())
	require.NoError(t, action(context.Background(), task.RunContext{Task: "ts", Since: since}))
	calls = invocations(t, log)
	require.Len(t, calls, 2)
	assert.NotContains(t, calls[1], "a.ts")
	assert.Contains(t, calls[1], "b.ts")

	// Output removed by a clean: the source is compiled again.
	require.NoError(t, os.Remove(filepath.Join(dir, "build", "a.js")))
	require.NoError(t, action(context.Background(), task.RunContext{Task: "ts", Since: time.Now()}))
	calls = invocations(t, log)
	require.Len(t, calls, 3)
	assert.Contains(t, calls[2], "a.ts")
	assert.NotContains(t, calls[2], "b.ts")
}

func TestOutputPath(t *testing.T) {
	t.Parallel()

	m := fsutil.Match{Path: filepath.FromSlash("src/app/main.ts"), Rel: filepath.FromSlash("app/main.ts")}
	assert.Equal(t, filepath.FromSlash("build/app/main.js"), OutputPath("build", m))
}

func TestOnRunScripts_CompilerFailure(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses a POSIX shell as the compiler")
	}
	t.Parallel()

	dir := t.TempDir()
	write(t, filepath.Join(dir, "a.ts"), "let", time.Now())
	err := OnRunScripts(context.Background(), &Input{
		Src:     []string{filepath.Join(dir, "*.ts")},
		Dest:    filepath.Join(dir, "build"),
		Command: []string{"sh", "-c", "echo 'a.ts(1,4): error TS1123' >&2; exit 2", "tsc"},
	}, time.Time{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TS1123")
}
