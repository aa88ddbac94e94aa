package livereload

import (
	"bytes"
	_ "embed"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
)

const (
	// ClientPath serves the reload client script.
	ClientPath = "/__assetgrid/client.js"
	// HealthPath answers liveness probes.
	HealthPath = "/__assetgrid/health"

	snippet = `<script src="` + ClientPath + `"></script>`
)

//go:embed client.js
var clientJS []byte

// staticHandler serves files from dir and injects the client snippet into
// HTML documents.
type staticHandler struct {
	dir   string
	files http.Handler
}

func newStaticHandler(dir string) *staticHandler {
	return &staticHandler{dir: dir, files: http.FileServer(http.Dir(dir))}
}

func (h *staticHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "no-cache")

	name := path.Clean("/" + r.URL.Path)
	if strings.HasSuffix(r.URL.Path, "/") {
		name = path.Join(name, "index.html")
	}
	if path.Ext(name) != ".html" {
		h.files.ServeHTTP(w, r)
		return
	}

	body, err := os.ReadFile(filepath.Join(h.dir, filepath.FromSlash(name)))
	if err != nil {
		h.files.ServeHTTP(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(Inject(body))
}

// Inject inserts the client snippet before the last </body>, or appends it
// when the document has none.
func Inject(html []byte) []byte {
	i := bytes.LastIndex(bytes.ToLower(html), []byte("</body>"))
	if i < 0 {
		return append(append([]byte(nil), html...), snippet...)
	}
	out := make([]byte, 0, len(html)+len(snippet))
	out = append(out, html[:i]...)
	out = append(out, snippet...)
	return append(out, html[i:]...)
}

func serveClient(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/javascript")
	w.Header().Set("Cache-Control", "no-cache")
	_, _ = w.Write(clientJS)
}
