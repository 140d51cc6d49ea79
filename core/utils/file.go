package utils

import (
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

var ErrFileTooLarge = errors.New("file too large")

var unsafeNameChars = regexp.MustCompile(`[^a-zA-Z0-9._-]`)

// SafeFileName derives a file name from the last path segment of a URL.
// The segment is unescaped, every character outside [a-zA-Z0-9._-] becomes
// an underscore, a missing segment becomes "track" and an empty result
// becomes "track.mp3".
func SafeFileName(u *url.URL) string {
	base := u.EscapedPath()
	if i := strings.LastIndex(base, "/"); i >= 0 {
		base = base[i+1:]
	}
	if base == "" {
		base = "track"
	}
	if unescaped, err := url.PathUnescape(base); err == nil {
		base = unescaped
	}
	safe := unsafeNameChars.ReplaceAllString(base, "_")
	if safe == "" {
		return "track.mp3"
	}
	return safe
}

// SaveFile streams r into dir/name through a temporary file in the same
// directory, so a failed or oversized write never leaves a partial file.
// maxBytes <= 0 means no limit.
func SaveFile(dir, name string, r io.Reader, maxBytes int64) (int64, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, fmt.Errorf("failed to create %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, ".import-*")
	if err != nil {
		return 0, fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	keep := false
	defer func() {
		if !keep {
			os.Remove(tmpPath)
		}
	}()

	src := r
	if maxBytes > 0 {
		src = io.LimitReader(r, maxBytes+1)
	}
	n, err := io.Copy(tmp, src)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return n, fmt.Errorf("failed to save file: %w", err)
	}
	if maxBytes > 0 && n > maxBytes {
		return n, ErrFileTooLarge
	}

	if err := os.Rename(tmpPath, filepath.Join(dir, name)); err != nil {
		return n, fmt.Errorf("failed to move file into place: %w", err)
	}
	keep = true
	return n, nil
}
