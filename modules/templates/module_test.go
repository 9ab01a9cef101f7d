package templates

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func write(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestOnRunTemplates(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	src := filepath.Join(dir, "src")
	dest := filepath.Join(dir, "build")
	write(t, filepath.Join(src, "index.tmpl"), `{{template "head" .}}<body><h1>{{.Data.title}}</h1><p>{{.Path}}</p></body>`)
	write(t, filepath.Join(src, "about", "index.html"), `<p>about {{.Data.title}}</p>`)
	write(t, filepath.Join(src, "partials", "head.tmpl"), `{{define "head"}}<head><title>{{.Data.title}}</title></head>{{end}}`)

	input := &Input{
		Src:      []string{filepath.Join(src, "index.tmpl"), filepath.Join(src, "**", "*.html")},
		Dest:     dest,
		Partials: []string{filepath.Join(src, "partials", "*.tmpl")},
		Data:     map[string]string{"title": "Portfolio <dev>"},
	}
	require.NoError(t, OnRunTemplates(context.Background(), input, time.Time{}))

	index, err := os.ReadFile(filepath.Join(dest, "index.html"))
	require.NoError(t, err)
	assert.Equal(t, `<head><title>Portfolio &lt;dev&gt;</title></head><body><h1>Portfolio &lt;dev&gt;</h1><p>index.html</p></body>`, string(index))

	about, err := os.ReadFile(filepath.Join(dest, "about", "index.html"))
	require.NoError(t, err)
	assert.Equal(t, "<p>about Portfolio &lt;dev&gt;</p>", string(about))
}

func TestOnRunTemplates_RelativeToPatternBase(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	write(t, filepath.Join(dir, "src", "blog", "post.tmpl"), `<p>{{.Path}}</p>`)

	input := &Input{Src: []string{filepath.Join(dir, "src", "**", "*.tmpl")}, Dest: filepath.Join(dir, "build")}
	require.NoError(t, OnRunTemplates(context.Background(), input, time.Time{}))

	got, err := os.ReadFile(filepath.Join(dir, "build", "blog", "post.html"))
	require.NoError(t, err)
	assert.Equal(t, "<p>blog/post.html</p>", string(got))
}

func TestOnRunTemplates_Minify(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	write(t, filepath.Join(dir, "index.html"), "<html>\n  <body>\n    <p>  hi  </p>\n  </body>\n</html>\n")

	input := &Input{Src: []string{filepath.Join(dir, "index.html")}, Dest: filepath.Join(dir, "out"), Minify: true}
	require.NoError(t, OnRunTemplates(context.Background(), input, time.Time{}))

	got, err := os.ReadFile(filepath.Join(dir, "out", "index.html"))
	require.NoError(t, err)
	assert.NotContains(t, string(got), "\n  ")
	assert.Contains(t, string(got), "hi")
}

func TestOnRunTemplates_Errors(t *testing.T) {
	t.Parallel()

	t.Run("syntax error fails", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()
		write(t, filepath.Join(dir, "bad.tmpl"), `{{if}}`)
		err := OnRunTemplates(context.Background(), &Input{Src: []string{filepath.Join(dir, "bad.tmpl")}, Dest: filepath.Join(dir, "out")}, time.Time{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "parsing")
		assert.NoFileExists(t, filepath.Join(dir, "out", "bad.html"))
	})

	t.Run("missing data key fails", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()
		write(t, filepath.Join(dir, "page.tmpl"), `{{.Data.nope}}`)
		err := OnRunTemplates(context.Background(), &Input{Src: []string{filepath.Join(dir, "page.tmpl")}, Dest: filepath.Join(dir, "out")}, time.Time{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "rendering")
	})
}

func TestOutputPath(t *testing.T) {
	t.Parallel()
	assert.Equal(t, filepath.Join("build", "index.html"), outputPath("build", "index.tmpl"))
	assert.Equal(t, filepath.Join("build", "a", "b.html"), outputPath("build", filepath.Join("a", "b.html")))
	assert.Equal(t, filepath.Join("build", "x.html"), outputPath("build", "x.gohtml"))
}
