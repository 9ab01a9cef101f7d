package devserver

import (
	"bytes"
	"context"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/RoJaebl/portfolio/internal/ctxlog"
	"github.com/zishang520/socket.io/v2/socket"
)

// ReloadEvent is the socket.io event emitted to browsers on every reload.
const ReloadEvent = "reload"

// clientSnippet is injected before </body> of every served HTML page.
const clientSnippet = `<script src="https://cdn.socket.io/4.8.1/socket.io.min.js"></script>
<script>io().on("` + ReloadEvent + `", function () { location.reload(); });</script>
`

// LiveReload serves a directory and pushes reload events to connected pages.
type LiveReload struct {
	root    string
	io      *socket.Server
	handler http.Handler
	clients atomic.Int64
}

// NewLiveReload creates a live-reload server for root. The returned value is
// an http.Handler; socket.io traffic is served under /socket.io/.
func NewLiveReload(ctx context.Context, root string) *LiveReload {
	logger := ctxlog.FromContext(ctx)
	lr := &LiveReload{root: root, io: socket.NewServer(nil, nil)}

	lr.io.On("connection", func(clients ...any) {
		client := clients[0].(*socket.Socket)
		lr.clients.Add(1)
		logger.Debug("Live-reload client connected.", "sid", client.Id())
		client.On("disconnect", func(...any) {
			lr.clients.Add(-1)
			logger.Debug("Live-reload client disconnected.", "sid", client.Id())
		})
	})

	mux := http.NewServeMux()
	mux.Handle("/socket.io/", lr.io.ServeHandler(nil))
	mux.Handle("/", lr.static())
	lr.handler = mux
	return lr
}

// ServeHTTP implements http.Handler.
func (lr *LiveReload) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	lr.handler.ServeHTTP(w, r)
}

// Clients reports the number of connected pages.
func (lr *LiveReload) Clients() int64 {
	return lr.clients.Load()
}

// Reload tells every connected page to reload.
func (lr *LiveReload) Reload(reason string) {
	lr.io.Emit(ReloadEvent, reason)
}

// Close disconnects every client.
func (lr *LiveReload) Close() {
	lr.io.Close(nil)
}

// static serves files from root, injecting the client snippet into HTML.
func (lr *LiveReload) static() http.Handler {
	files := http.FileServer(http.Dir(lr.root))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name := path.Clean("/" + r.URL.Path)
		if strings.HasSuffix(r.URL.Path, "/") {
			name = path.Join(name, "index.html")
		}
		if !isHTML(name) {
			files.ServeHTTP(w, r)
			return
		}
		data, err := os.ReadFile(filepath.Join(lr.root, filepath.FromSlash(name)))
		if err != nil {
			files.ServeHTTP(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Cache-Control", "no-cache")
		w.Write(InjectSnippet(data))
	})
}

func isHTML(name string) bool {
	ext := strings.ToLower(path.Ext(name))
	return ext == ".html" || ext == ".htm"
}

// InjectSnippet inserts the live-reload client before the closing body tag,
// or appends it when the page has none.
func InjectSnippet(page []byte) []byte {
	idx := bytes.LastIndex(bytes.ToLower(page), []byte("</body>"))
	if idx < 0 {
		return append(append([]byte{}, page...), clientSnippet...)
	}
	out := make([]byte, 0, len(page)+len(clientSnippet))
	out = append(out, page[:idx]...)
	out = append(out, clientSnippet...)
	out = append(out, page[idx:]...)
	return out
}
