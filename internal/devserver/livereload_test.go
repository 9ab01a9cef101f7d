package devserver

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zishang520/engine.io-client-go/transports"
	"github.com/zishang520/engine.io/v2/types"
	"github.com/zishang520/socket.io-client-go/socket"
)

func TestInjectSnippet(t *testing.T) {
	t.Parallel()

	t.Run("before closing body tag", func(t *testing.T) {
		t.Parallel()
		out := string(InjectSnippet([]byte("<html><BODY><p>x</p></BODY></html>")))
		assert.True(t, strings.HasPrefix(out, "<html><BODY><p>x</p>"+clientSnippet))
		assert.True(t, strings.HasSuffix(out, "</BODY></html>"))
	})

	t.Run("appended without body tag", func(t *testing.T) {
		t.Parallel()
		out := string(InjectSnippet([]byte("<p>fragment</p>")))
		assert.Equal(t, "<p>fragment</p>"+clientSnippet, out)
	})
}

func newSite(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "index.html"), []byte("<html><body>home</body></html>"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "css"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "css", "style.css"), []byte("body{color:red}"), 0o644))
	return root
}

func get(t *testing.T, url string) (int, string, string) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, resp.Header.Get("Content-Type"), string(body)
}

func TestLiveReload_Static(t *testing.T) {
	t.Parallel()

	lr := NewLiveReload(context.Background(), newSite(t))
	srv := httptest.NewServer(lr)
	t.Cleanup(func() {
		lr.Close()
		srv.Close()
	})

	status, ctype, body := get(t, srv.URL+"/")
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, ctype, "text/html")
	assert.Contains(t, body, "home")
	assert.Contains(t, body, clientSnippet)

	status, _, body = get(t, srv.URL+"/css/style.css")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "body{color:red}", body)

	status, _, _ = get(t, srv.URL+"/missing.html")
	assert.Equal(t, http.StatusNotFound, status)
}

func TestLiveReload_PushesReloadToClients(t *testing.T) {
	t.Parallel()

	lr := NewLiveReload(context.Background(), newSite(t))
	srv := httptest.NewServer(lr)

	opts := socket.DefaultOptions()
	opts.SetTransports(types.NewSet(transports.WebSocket))
	client, err := socket.Connect(srv.URL+"/", opts)
	require.NoError(t, err)

	t.Cleanup(func() {
		client.Close()
		lr.Close()
		srv.Close()
	})

	reloads := make(chan string, 1)
	client.On("reload", func(args ...any) {
		if len(args) > 0 {
			if reason, ok := args[0].(string); ok {
				reloads <- reason
			}
		}
	})

	require.Eventually(t, func() bool { return lr.Clients() == 1 }, 5*time.Second, 10*time.Millisecond,
		"client should connect")

	hub := NewHub()
	defer hub.Subscribe(lr.Reload)()
	require.Equal(t, 1, hub.Broadcast("css/style.css"))

	select {
	case reason := <-reloads:
		assert.Equal(t, "css/style.css", reason)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for reload event")
	}
}
