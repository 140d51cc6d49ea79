package server

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"sync/atomic"
	"testing"

	"MusicFlow/config"
)

func newAudioUpstream(t *testing.T, hits *atomic.Int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		switch r.URL.Path {
		case "/missing.mp3":
			http.NotFound(w, r)
		case "/page.mp3":
			w.Header().Set("Content-Type", "text/html")
			w.Write([]byte("<html></html>"))
		default:
			w.Header().Set("Content-Type", "audio/mpeg")
			w.Write([]byte("ID3-audio-bytes"))
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func postImport(t *testing.T, h http.Handler, body string) (int, map[string]string) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/import", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	var out map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&out); err != nil {
		t.Fatalf("response is not JSON: %v", err)
	}
	return rec.Code, out
}

func TestImportStoresSanitisedName(t *testing.T) {
	var hits atomic.Int32
	upstream := newAudioUpstream(t, &hits)
	dir := t.TempDir()
	saved := 0
	h := NewImportHandler(upstream.Client(), dir, 1<<20, 2)
	h.OnSaved = func() { saved++ }

	code, out := postImport(t, h, `{"url":"`+upstream.URL+`/y.mp3?z=1"}`)
	if code != http.StatusOK || out["file"] != "y.mp3" {
		t.Fatalf("got %d %v", code, out)
	}
	data, err := os.ReadFile(filepath.Join(dir, "y.mp3"))
	if err != nil || string(data) != "ID3-audio-bytes" {
		t.Errorf("stored %q, err %v", data, err)
	}
	if saved != 1 {
		t.Error("OnSaved must run after a successful import")
	}
}

func TestImportErrors(t *testing.T) {
	var hits atomic.Int32
	upstream := newAudioUpstream(t, &hits)

	tests := []struct {
		name   string
		body   string
		status int
		msg    string
	}{
		{"missing", `{}`, 400, "Missing url."},
		{"scheme", `{"url":"ftp://x/a.mp3"}`, 400, "Only http/https URLs allowed."},
		{"youtube", `{"url":"https://www.youtube.com/watch?v=1"}`, 400, "YouTube URLs are not supported."},
		{"youtu.be", `{"url":"http://YOUTU.BE/x"}`, 400, "YouTube URLs are not supported."},
		{"not found", `{"url":"` + upstream.URL + `/missing.mp3"}`, 400, "Failed to download URL."},
		{"not audio", `{"url":"` + upstream.URL + `/page.mp3"}`, 400, "URL is not an audio file."},
		{"bad json", `{"url":`, 500, "Import failed."},
		{"number", `{"url":5}`, 400, "Only http/https URLs allowed."},
		{"object", `{"url":{"href":"http://x/a.mp3"}}`, 400, "Only http/https URLs allowed."},
		{"array", `{"url":["ftp://x/a.mp3"]}`, 400, "Only http/https URLs allowed."},
		{"zero", `{"url":0}`, 400, "Missing url."},
		{"null", `{"url":null}`, 400, "Missing url."},
		{"not an object", `"http://x/a.mp3"`, 400, "Missing url."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			h := NewImportHandler(upstream.Client(), dir, 1<<20, 1)
			code, out := postImport(t, h, tt.body)
			if code != tt.status || out["error"] != tt.msg {
				t.Errorf("got %d %v, want %d %q", code, out, tt.status, tt.msg)
			}
			if entries, _ := os.ReadDir(dir); len(entries) != 0 {
				t.Errorf("no file may be kept, got %v", entries)
			}
		})
	}
}

func TestImportRejectsVideoHostWithoutFetching(t *testing.T) {
	var hits atomic.Int32
	upstream := newAudioUpstream(t, &hits)
	h := NewImportHandler(upstream.Client(), t.TempDir(), 1<<20, 1)

	postImport(t, h, `{"url":"`+upstream.URL+`/youtube.com/a.mp3"}`)
	if n := hits.Load(); n != 0 {
		t.Errorf("upstream was called %d times", n)
	}
}

func TestImportLimits(t *testing.T) {
	var hits atomic.Int32
	upstream := newAudioUpstream(t, &hits)

	small := NewImportHandler(upstream.Client(), t.TempDir(), 4, 1)
	if code, out := postImport(t, small, `{"url":"`+upstream.URL+`/a.mp3"}`); code != 400 || out["error"] != "File too large." {
		t.Errorf("got %d %v", code, out)
	}

	busy := NewImportHandler(upstream.Client(), t.TempDir(), 1<<20, 1)
	busy.sem <- struct{}{}
	if code, out := postImport(t, busy, `{"url":"`+upstream.URL+`/a.mp3"}`); code != 503 || out["error"] != "Server is busy." {
		t.Errorf("got %d %v", code, out)
	}
}

func writeFiles(t *testing.T, dir string, names ...string) {
	t.Helper()
	for _, name := range names {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
}

func TestManifest(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "b c.mp3", "a.MP3", "notes.txt")
	if err := os.Mkdir(filepath.Join(dir, "dir.mp3"), 0o755); err != nil {
		t.Fatal(err)
	}
	h := NewManifestHandler(dir, true)

	get := func() []any {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/musics.json", nil))
		if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
			t.Errorf("content type %q", ct)
		}
		var out []any
		if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
			t.Fatal(err)
		}
		return out
	}

	want := []any{"/musics/a.MP3", "/musics/b%20c.mp3"}
	if got := get(); !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}

	writeFiles(t, dir, "0.mp3")
	if got := get(); len(got) != 2 {
		t.Errorf("listing must stay cached until invalidated, got %v", got)
	}
	h.Invalidate()
	if got := get(); len(got) != 3 || got[0] != "/musics/0.mp3" {
		t.Errorf("got %v", got)
	}

	missing := NewManifestHandler(filepath.Join(dir, "nope"), false)
	rec := httptest.NewRecorder()
	missing.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/musics.json", nil))
	if body := strings.TrimSpace(rec.Body.String()); body != "[]" {
		t.Errorf("unreadable directory must give [], got %q", body)
	}
}

func TestEscapeComponent(t *testing.T) {
	tests := []struct{ in, want string }{
		{"a&b.mp3", "a%26b.mp3"},
		{"x=1+y;z,w:@$.mp3", "x%3D1%2By%3Bz%2Cw%3A%40%24.mp3"},
		{"it's (live)!~*.mp3", "it's%20(live)!~*.mp3"},
		{"é.mp3", "%C3%A9.mp3"},
		{"a/b?.mp3", "a%2Fb%3F.mp3"},
	}
	for _, tt := range tests {
		if got := escapeComponent(tt.in); got != tt.want {
			t.Errorf("%q: got %q, want %q", tt.in, got, tt.want)
		}
	}

	dir := t.TempDir()
	writeFiles(t, dir, "a&b.mp3")
	got, err := BuildManifest(dir, false)
	if err != nil {
		t.Fatal(err)
	}
	if want := []any{"/musics/a%26b.mp3"}; !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestStaticResolve(t *testing.T) {
	root := t.TempDir()
	h := NewStaticHandler(root)
	tests := []struct {
		path string
		want string
		ok   bool
	}{
		{"/", "index.html", true},
		{"/app.js", "app.js", true},
		{"/a/../b.css", "b.css", true},
		{"/../etc/passwd", "", false},
		{"/../" + filepath.Base(root) + "x/secret", "", false},
	}
	for _, tt := range tests {
		got, ok := h.resolve(tt.path)
		if ok != tt.ok {
			t.Errorf("%s: got ok=%v", tt.path, ok)
			continue
		}
		if ok && got != filepath.Join(h.root, tt.want) {
			t.Errorf("%s: got %s", tt.path, got)
		}
	}
}

func TestRouter(t *testing.T) {
	root := t.TempDir()
	music := filepath.Join(root, "musics")
	if err := os.Mkdir(music, 0o755); err != nil {
		t.Fatal(err)
	}
	writeFiles(t, music, "a.mp3")
	if err := os.WriteFile(filepath.Join(root, "index.html"), []byte("<h1>player</h1>"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := &config.Config{RootDir: root, MusicDir: music, ImportMaxBytes: 1 << 20, ImportMaxConcurrent: 1}
	srv := httptest.NewServer(New(cfg, nil).Handler())
	defer srv.Close()

	tests := []struct {
		method, path string
		status       int
		body         string
	}{
		{http.MethodGet, "/", 200, "<h1>player</h1>"},
		{http.MethodGet, "/musics.json", 200, `["/musics/a.mp3"]`},
		{http.MethodGet, "/musics/a.mp3", 200, "x"},
		{http.MethodGet, "/musics", 404, "Not found"},
		{http.MethodGet, "/nothing.js", 404, "Not found"},
		{http.MethodOptions, "/api/import", 200, ""},
	}
	for _, tt := range tests {
		req, _ := http.NewRequest(tt.method, srv.URL+tt.path, nil)
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatal(err)
		}
		buf := new(strings.Builder)
		_, _ = io.Copy(buf, resp.Body)
		resp.Body.Close()
		if resp.StatusCode != tt.status || strings.TrimSpace(buf.String()) != tt.body {
			t.Errorf("%s %s: got %d %q", tt.method, tt.path, resp.StatusCode, buf.String())
		}
		if resp.Header.Get("Access-Control-Allow-Origin") != "*" {
			t.Errorf("%s %s: missing CORS header", tt.method, tt.path)
		}
	}
}
