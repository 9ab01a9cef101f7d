package serve

import (
	"context"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/RoJaebl/portfolio/internal/config"
	"github.com/RoJaebl/portfolio/internal/devserver"
	"github.com/RoJaebl/portfolio/internal/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServeLiveReload(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "index.html"), []byte("<html><body>portfolio</body></html>"), 0o644))

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	hub := devserver.NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- serveLiveReload(ctx, hub, &Input{Strategy: LiveReload, Root: root}, ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	assert.Contains(t, string(body), "portfolio")
	assert.Contains(t, string(body), "socket.io")

	// The server subscribes before it starts accepting.
	assert.Equal(t, 1, hub.Broadcast("index.html"))

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("server did not stop")
	}
	assert.Equal(t, 0, hub.Broadcast("after stop"))
}

func TestRunRestart(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses sh")
	}
	t.Parallel()

	marker := filepath.Join(t.TempDir(), "starts")
	input := &Input{
		Strategy: Restart,
		Command:  []string{"sh", "-c", `echo start >> "$MARKER"; exec sleep 30`},
		Env:      map[string]string{"MARKER": marker},
		Grace:    "1s",
	}

	hub := devserver.NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- runRestart(ctx, hub, input) }()

	starts := func() int {
		data, err := os.ReadFile(marker)
		if err != nil {
			return 0
		}
		return strings.Count(string(data), "start")
	}

	require.Eventually(t, func() bool { return starts() == 1 }, 5*time.Second, 10*time.Millisecond)
	hub.Broadcast("main.go")
	require.Eventually(t, func() bool { return starts() == 2 }, 5*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("restarter did not stop")
	}
}

func TestBuild(t *testing.T) {
	t.Parallel()

	r := registry.New()
	(&Module{}).Register(r)
	kind, ok := r.Lookup("serve")
	require.True(t, ok)
	assert.True(t, kind.Singleton)

	decl := &config.Task{Kind: "serve", Name: "serve"}

	t.Run("defaults", func(t *testing.T) {
		t.Parallel()
		input := &Input{Root: "build"}
		_, err := kind.Build(context.Background(), &registry.Deps{}, decl, input)
		require.NoError(t, err)
		assert.Equal(t, LiveReload, input.Strategy)
		assert.Equal(t, DefaultAddr, input.Addr)
	})

	tests := []struct {
		name    string
		input   *Input
		wantErr string
	}{
		{"livereload without root", &Input{}, "needs a root directory"},
		{"livereload with command", &Input{Root: "build", Command: []string{"go", "run", "."}}, "only valid with the restart strategy"},
		{"restart without command", &Input{Strategy: Restart}, "restart strategy needs a command"},
		{"restart with open", &Input{Strategy: Restart, Command: []string{"app"}, Open: true}, "only valid with the livereload strategy"},
		{"unknown strategy", &Input{Strategy: "proxy"}, `unknown serve strategy "proxy"`},
		{"bad grace", &Input{Strategy: Restart, Command: []string{"app"}, Grace: "soon"}, "invalid grace"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, err := kind.Build(context.Background(), &registry.Deps{}, decl, tc.input)
			assert.ErrorContains(t, err, tc.wantErr)
		})
	}
}
