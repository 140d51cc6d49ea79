package audio

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

func TestFetchDataURL(t *testing.T) {
	f, err := NewFetcher(nil, "http://localhost/")
	if err != nil {
		t.Fatal(err)
	}
	tests := []struct {
		raw, data, mime string
	}{
		{"data:audio/mpeg;base64,AAEC", "\x00\x01\x02", "audio/mpeg"},
		{"data:text/plain,hi%20there", "hi there", "text/plain"},
	}
	for _, tt := range tests {
		data, mime, err := f.Fetch(context.Background(), tt.raw)
		if err != nil {
			t.Fatalf("%s: %v", tt.raw, err)
		}
		if string(data) != tt.data || mime != tt.mime {
			t.Errorf("%s: got %q %q", tt.raw, data, mime)
		}
	}

	if _, _, err := f.Fetch(context.Background(), "data:audio/mpeg;base64"); err == nil {
		t.Error("expected an error for a data URL without payload")
	}
}

func TestFetchResolvesRelativeURLs(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		if r.URL.Path == "/musics/missing.mp3" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "audio/mpeg")
		w.Write([]byte("ID3"))
	}))
	defer srv.Close()

	f, err := NewFetcher(srv.Client(), srv.URL+"/app/")
	if err != nil {
		t.Fatal(err)
	}
	data, mime, err := f.Fetch(context.Background(), "/musics/a%20b.mp3")
	if err != nil {
		t.Fatal(err)
	}
	if gotPath != "/musics/a b.mp3" || string(data) != "ID3" || mime != "audio/mpeg" {
		t.Errorf("got path %q data %q mime %q", gotPath, data, mime)
	}

	if _, _, err := f.Fetch(context.Background(), "./../musics/missing.mp3"); err == nil {
		t.Error("expected an error for a 404")
	}
}

func TestFetchFileURL(t *testing.T) {
	path := filepath.Join(t.TempDir(), "big.mp3")
	if err := os.WriteFile(path, []byte("frames"), 0o644); err != nil {
		t.Fatal(err)
	}
	f, _ := NewFetcher(nil, "http://localhost/")
	data, _, err := f.Fetch(context.Background(), "file://"+filepath.ToSlash(path))
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "frames" {
		t.Errorf("got %q", data)
	}

	if _, _, err := f.Fetch(context.Background(), "ftp://host/a.mp3"); err == nil {
		t.Error("expected an error for an unsupported scheme")
	}
}

func TestIsWAV(t *testing.T) {
	tests := []struct {
		contentType, source string
		want                bool
	}{
		{"audio/wav", "x", true},
		{"audio/x-wav", "x", true},
		{"audio/mpeg", "a.wav", false},
		{"", "./musics/a.WAV?v=1", true},
		{"application/octet-stream", "/musics/a.wav", true},
		{"", "/musics/a.mp3", false},
		{"", "data:audio/wav;base64,AA", false},
	}
	for _, tt := range tests {
		if got := isWAV(tt.contentType, tt.source); got != tt.want {
			t.Errorf("isWAV(%q, %q) = %v, want %v", tt.contentType, tt.source, got, tt.want)
		}
	}
}
