package server

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// StaticHandler serves files under a fixed root. "/" maps to index.html;
// anything outside the root, missing, or a directory is "Not found".
type StaticHandler struct {
	root string
}

func NewStaticHandler(root string) *StaticHandler {
	abs, err := filepath.Abs(root)
	if err != nil {
		abs = filepath.Clean(root)
	}
	return &StaticHandler{root: abs}
}

func (h *StaticHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	full, ok := h.resolve(r.URL.Path)
	if !ok {
		http.Error(w, "Not found", http.StatusNotFound)
		return
	}
	f, err := os.Open(full)
	if err != nil {
		http.Error(w, "Not found", http.StatusNotFound)
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil || info.IsDir() {
		http.Error(w, "Not found", http.StatusNotFound)
		return
	}
	http.ServeContent(w, r, info.Name(), info.ModTime(), f)
}

// resolve maps a request path to a file under the root.
func (h *StaticHandler) resolve(p string) (string, bool) {
	if p == "" || p == "/" {
		p = "/index.html"
	}
	full := filepath.Join(h.root, filepath.FromSlash(p))
	if full != h.root && !strings.HasPrefix(full, h.root+string(filepath.Separator)) {
		return "", false
	}
	return full, true
}
