package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"MusicFlow/logger"

	"github.com/dhowden/tag"
	"github.com/fsnotify/fsnotify"
)

// ManifestEntry is a track with an embedded title.
type ManifestEntry struct {
	URL   string `json:"url"`
	Title string `json:"title"`
}

// ManifestHandler serves /musics.json. The listing is built on demand and
// kept until the music directory changes.
type ManifestHandler struct {
	dir      string
	readTags bool

	mu     sync.Mutex
	cached []byte
}

func NewManifestHandler(dir string, readTags bool) *ManifestHandler {
	return &ManifestHandler{dir: dir, readTags: readTags}
}

func (h *ManifestHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, err := h.body()
	if err != nil {
		logger.Warn("failed to list music directory", logger.String("dir", h.dir), logger.ErrorField(err))
		body = []byte("[]")
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(body)
}

func (h *ManifestHandler) body() ([]byte, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.cached != nil {
		return h.cached, nil
	}
	entries, err := BuildManifest(h.dir, h.readTags)
	if err != nil {
		return nil, err
	}
	data, err := json.Marshal(entries)
	if err != nil {
		return nil, err
	}
	h.cached = data
	return data, nil
}

// Invalidate drops the cached listing.
func (h *ManifestHandler) Invalidate() {
	h.mu.Lock()
	h.cached = nil
	h.mu.Unlock()
}

// Watch invalidates the listing whenever an entry of the music directory
// is created, removed, renamed or written, until ctx is done.
func (h *ManifestHandler) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := watcher.Add(h.dir); err != nil {
		watcher.Close()
		return fmt.Errorf("failed to watch %s: %w", h.dir, err)
	}

	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Op&(fsnotify.Create|fsnotify.Remove|fsnotify.Rename|fsnotify.Write) != 0 {
					h.Invalidate()
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Warn("music directory watcher error", logger.ErrorField(err))
			}
		}
	}()
	return nil
}

// BuildManifest lists the regular .mp3 files of dir sorted by name, as
// /musics/<escaped name>. With readTags, files carrying a title tag are
// listed as ManifestEntry values instead of plain strings.
func BuildManifest(dir string, readTags bool) ([]any, error) {
	files, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	out := make([]any, 0, len(files))
	for _, f := range files {
		if !f.Type().IsRegular() || !strings.HasSuffix(strings.ToLower(f.Name()), ".mp3") {
			continue
		}
		u := "/musics/" + escapeComponent(f.Name())
		if readTags {
			if title := readTitle(filepath.Join(dir, f.Name())); title != "" {
				out = append(out, ManifestEntry{URL: u, Title: title})
				continue
			}
		}
		out = append(out, u)
	}
	return out, nil
}

// escapeComponent percent-encodes every byte except A-Z a-z 0-9 and
// - _ . ! ~ * ' ( ), the way a browser encodes a URI component.
func escapeComponent(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
			b.WriteByte(c)
		case strings.IndexByte("-_.!~*'()", c) >= 0:
			b.WriteByte(c)
		default:
			fmt.Fprintf(&b, "%%%02X", c)
		}
	}
	return b.String()
}

func readTitle(path string) string {
	f, err := os.Open(path)
	if err != nil {
		return ""
	}
	defer f.Close()
	m, err := tag.ReadFrom(f)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(m.Title())
}
