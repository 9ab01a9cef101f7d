package app

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/RoJaebl/portfolio/internal/hcl"
	"github.com/RoJaebl/portfolio/internal/runner"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sitePipeline = `
route "img" {
  src  = ["%[1]s/src/img/**/*.png"]
  dest = "%[1]s/dist/img"
}

route "scss" {
  src  = ["%[1]s/src/scss/style.scss"]
  dest = "%[1]s/dist/css"
}

route "tmpl" {
  src  = ["%[1]s/src/templates/*.html"]
  dest = "%[1]s/dist"
}

task "clean" "clean" {
  arguments {
    patterns = ["%[1]s/dist/**"]
  }
}

task "images" "images" {
  incremental = %[2]t
  arguments {
    src  = route.img.src
    dest = route.img.dest
  }
}

task "styles" "styles" {
  continue_on_error = %[3]t
  arguments {
    src     = route.scss.src
    dest    = route.scss.dest
    command = %[4]s
  }
}

task "templates" "templates" {
  description = "Render pages."
  arguments {
    src  = route.tmpl.src
    dest = route.tmpl.dest
    data = { title = "Portfolio" }
  }
}

series "prepare" {
  tasks = ["clean", "images"]
}

series "assets" {
  tasks = ["styles", "templates"]
}

series "build" {
  description = "Clean, then rebuild everything."
  tasks       = ["prepare", "assets"]
}
`

type siteOptions struct {
	incremental     bool
	continueOnError bool
	styleCommand    string
	stateFile       string
}

func writeTestFile(t *testing.T, path string, data []byte) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, data, 0o644))
}

func pngFile(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for i := 0; i < 8; i++ {
		img.Set(i, i, color.RGBA{R: 255, A: 255})
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

// newSite lays out sources, stale output files A and B, and the pipeline.
func newSite(t *testing.T, opts siteOptions) (string, *Config) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("pipeline uses slash paths and POSIX tools")
	}
	dir := t.TempDir()
	old := time.Now().Add(-time.Hour)

	sources := map[string][]byte{
		"src/img/C.png":            pngFile(t),
		"src/scss/style.scss":      []byte("body {\n  margin: 0;\n}\n"),
		"src/templates/index.html": []byte("<html><body><h1>{{.Data.title}}</h1></body></html>"),
		"dist/A.txt":               []byte("stale"),
		"dist/old/B.txt":           []byte("stale"),
	}
	for name, data := range sources {
		path := filepath.Join(dir, filepath.FromSlash(name))
		writeTestFile(t, path, data)
		require.NoError(t, os.Chtimes(path, old, old))
	}

	cmd := opts.styleCommand
	if cmd == "" {
		cmd = `["cat"]`
	}
	src := fmtPipeline(dir, opts.incremental, opts.continueOnError, cmd)
	path := filepath.Join(dir, "pipeline.hcl")
	writeTestFile(t, path, []byte(src))

	return dir, &Config{ConfigPaths: []string{path}, StateFile: opts.stateFile}
}

func fmtPipeline(dir string, incremental, continueOnError bool, cmd string) string {
	return fmt.Sprintf(sitePipeline, filepath.ToSlash(dir), incremental, continueOnError, cmd)
}

func listFiles(t *testing.T, root string) []string {
	t.Helper()
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			rel, _ := filepath.Rel(root, path)
			files = append(files, filepath.ToSlash(rel))
		}
		return nil
	})
	require.NoError(t, err)
	sort.Strings(files)
	return files
}

// lineIndex returns the index of the first log line containing every part.
func lineIndex(logs string, parts ...string) int {
	for i, line := range strings.Split(logs, "\n") {
		all := true
		for _, p := range parts {
			if !strings.Contains(line, p) {
				all = false
				break
			}
		}
		if all {
			return i
		}
	}
	return -1
}

func TestBuild_EndToEnd(t *testing.T) {
	t.Parallel()

	dir, cfg := newSite(t, siteOptions{})
	cfg.Task = "build"
	app, logs := SetupAppTest(t, cfg)

	require.NoError(t, app.Run(context.Background()))

	assert.Equal(t, []string{"css/style.css", "img/C.png", "index.html"}, listFiles(t, filepath.Join(dir, "dist")))

	css, err := os.ReadFile(filepath.Join(dir, "dist", "css", "style.css"))
	require.NoError(t, err)
	assert.Equal(t, "body{margin:0}", string(css))

	page, err := os.ReadFile(filepath.Join(dir, "dist", "index.html"))
	require.NoError(t, err)
	assert.Contains(t, string(page), "<h1>Portfolio</h1>")

	out := logs.String()
	cleanDone := lineIndex(out, "Finished task", "task=clean")
	imagesStart := lineIndex(out, "Starting task", "task=images")
	require.NotEqual(t, -1, cleanDone)
	require.NotEqual(t, -1, imagesStart)
	assert.Less(t, cleanDone, imagesStart, "clean must complete before images starts")
}

func TestBuild_NoStaleFilesAfterRebuild(t *testing.T) {
	t.Parallel()

	dir, cfg := newSite(t, siteOptions{})
	app, _ := SetupAppTest(t, cfg)
	require.NoError(t, app.Run(context.Background()))

	// Output left behind by an older layout of the site.
	writeTestFile(t, filepath.Join(dir, "dist", "img", "removed.png"), pngFile(t))
	require.NoError(t, app.Run(context.Background()))

	assert.Equal(t, []string{"css/style.css", "img/C.png", "index.html"}, listFiles(t, filepath.Join(dir, "dist")))
}

func TestIncremental_SecondRunProcessesNothing(t *testing.T) {
	t.Parallel()

	state := filepath.Join(t.TempDir(), "state.json")
	_, cfg := newSite(t, siteOptions{incremental: true, stateFile: state})
	cfg.Task = "images"

	first, firstLogs := SetupAppTest(t, cfg)
	require.NoError(t, first.Run(context.Background()))
	assert.Contains(t, firstLogs.String(), "files=1")

	// A fresh process reads the timestamp back from the state file.
	second, secondLogs := SetupAppTest(t, cfg)
	require.NoError(t, second.Run(context.Background()))
	assert.Contains(t, secondLogs.String(), "files=0")
}

func TestIncremental_BuildRepopulatesCleanedOutput(t *testing.T) {
	t.Parallel()

	state := filepath.Join(t.TempDir(), "state.json")
	dir, cfg := newSite(t, siteOptions{incremental: true, stateFile: state})
	cfg.Task = "build"
	want := []string{"css/style.css", "img/C.png", "index.html"}

	first, _ := SetupAppTest(t, cfg)
	require.NoError(t, first.Run(context.Background()))
	require.Equal(t, want, listFiles(t, filepath.Join(dir, "dist")))

	// clean wipes dist again, so the image has to be written even though
	// its source is older than the recorded run.
	second, logs := SetupAppTest(t, cfg)
	require.NoError(t, second.Run(context.Background()))
	assert.Equal(t, want, listFiles(t, filepath.Join(dir, "dist")))
	assert.Contains(t, logs.String(), "files=1")
}

func TestContinueOnError(t *testing.T) {
	t.Parallel()

	dir, cfg := newSite(t, siteOptions{continueOnError: true, styleCommand: `["false"]`})
	app, logs := SetupAppTest(t, cfg)

	require.NoError(t, app.Run(context.Background()))
	assert.Contains(t, logs.String(), "Task failed, continuing")
	assert.Equal(t, []string{"img/C.png", "index.html"}, listFiles(t, filepath.Join(dir, "dist")))
}

func TestFailingLeafStopsSequence(t *testing.T) {
	t.Parallel()

	dir, cfg := newSite(t, siteOptions{styleCommand: `["false"]`})
	app, _ := SetupAppTest(t, cfg)

	err := app.Run(context.Background())
	require.Error(t, err)
	var taskErr *runner.TaskError
	require.True(t, errors.As(err, &taskErr))
	assert.Equal(t, "build", taskErr.Task)
	assert.Equal(t, []string{"styles"}, runner.FailedLeaves(err))

	// templates comes after styles in the same sequence.
	assert.NoFileExists(t, filepath.Join(dir, "dist", "index.html"))
}

func TestListAndPlan(t *testing.T) {
	t.Parallel()

	_, cfg := newSite(t, siteOptions{})
	cfg.List = true
	var out bytes.Buffer
	listCfg, err := NewConfig(*cfg)
	require.NoError(t, err)
	app, err := NewApp(&SafeBuffer{}, listCfg, hcl.NewLoader(), coreModules...)
	require.NoError(t, err)
	app.outW = &out
	require.NoError(t, app.Run(context.Background()))
	assert.Contains(t, out.String(), "build")
	assert.Contains(t, out.String(), "Clean, then rebuild everything.")
	assert.Contains(t, out.String(), "series [prepare assets]")

	out.Reset()
	app.config.List = false
	app.config.Plan = true
	require.NoError(t, app.Run(context.Background()))
	want := `build (series)
  prepare (series)
    clean (leaf)
    images (leaf)
  assets (series)
    styles (leaf)
    templates (leaf)
`
	assert.Equal(t, want, out.String())
}

func TestNewApp_ConfigErrors(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "pipeline.hcl")
	writeTestFile(t, path, []byte(`
task "sass" "styles" {}
series "build" { tasks = ["styles"] }
`))
	cfg, err := NewConfig(Config{ConfigPaths: []string{path}})
	require.NoError(t, err)
	_, err = NewApp(&SafeBuffer{}, cfg, hcl.NewLoader())
	assert.ErrorContains(t, err, `unknown kind "sass"`)

	writeTestFile(t, path, []byte(`
task "clean" "clean" {
  arguments {
    patterns = ["dist"]
  }
}
series "build" { tasks = ["clean", "missing"] }
`))
	_, err = NewApp(&SafeBuffer{}, cfg, hcl.NewLoader())
	assert.ErrorIs(t, err, runner.ErrUnknownTask)
}

func TestNewConfig(t *testing.T) {
	t.Parallel()

	cfg, err := NewConfig(Config{ConfigPaths: []string{"pipeline.hcl"}})
	require.NoError(t, err)
	assert.Equal(t, DefaultTask, cfg.Task)

	_, err = NewConfig(Config{})
	assert.Error(t, err)

	_, err = NewConfig(Config{ConfigPaths: []string{"p.hcl"}, List: true, Plan: true})
	assert.ErrorContains(t, err, "mutually exclusive")
}
