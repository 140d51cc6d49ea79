package utils

import (
	"errors"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSafeFileName(t *testing.T) {
	tests := []struct {
		raw, want string
	}{
		{"http://x/y.mp3?z=1", "y.mp3"},
		{"http://x/dir/My%20Song%21.mp3", "My_Song_.mp3"},
		{"http://x/", "track"},
		{"http://x", "track"},
		{"https://x/a/%E2%99%AA.mp3", "_.mp3"},
		{"https://x/a/b-c_d.v2.mp3#frag", "b-c_d.v2.mp3"},
	}
	for _, tt := range tests {
		u, err := url.Parse(tt.raw)
		if err != nil {
			t.Fatal(err)
		}
		if got := SafeFileName(u); got != tt.want {
			t.Errorf("SafeFileName(%q) = %q, want %q", tt.raw, got, tt.want)
		}
	}
}

func TestSaveFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "musics")

	n, err := SaveFile(dir, "a.mp3", strings.NewReader("12345"), 5)
	if err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(filepath.Join(dir, "a.mp3"))
	if err != nil || n != 5 || string(data) != "12345" {
		t.Fatalf("got %q (%d bytes), err %v", data, n, err)
	}

	if _, err := SaveFile(dir, "b.mp3", strings.NewReader("123456"), 5); !errors.Is(err, ErrFileTooLarge) {
		t.Fatalf("got %v", err)
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 || entries[0].Name() != "a.mp3" {
		t.Errorf("oversized write must leave nothing behind, got %v", entries)
	}
}
