package upload

import (
	"context"
	"encoding/base64"
	"fmt"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"MusicFlow/core/catalog"
	"MusicFlow/logger"
	"MusicFlow/model"
)

// DefaultLocalTrackMaxBytes is the largest file persisted as a data URL.
const DefaultLocalTrackMaxBytes = 3 * 1024 * 1024

// AudioExtensions are the file types the picker accepts.
var AudioExtensions = map[string]string{
	".mp3":  "audio/mpeg",
	".wav":  "audio/wav",
	".m4a":  "audio/mp4",
	".ogg":  "audio/ogg",
	".flac": "audio/flac",
}

// File is a file chosen by the listener.
type File struct {
	Name string
	Size int64
	Path string
}

// Prober reports whether persistent storage still accepts writes.
type Prober interface {
	Probe(ctx context.Context) error
}

// LocalUploader turns picked files into local track records.
type LocalUploader struct {
	maxBytes int64
	prober   Prober
}

func NewLocalUploader(maxBytes int64, prober Prober) *LocalUploader {
	if maxBytes <= 0 {
		maxBytes = DefaultLocalTrackMaxBytes
	}
	return &LocalUploader{maxBytes: maxBytes, prober: prober}
}

// Prepare splits files into records that can be persisted (data URL) and
// session-only records (file URL) for files too large or when storage is
// full.
func (u *LocalUploader) Prepare(ctx context.Context, files []File) (persisted, session []model.LocalTrack) {
	persisted = []model.LocalTrack{}
	session = []model.LocalTrack{}

	for _, f := range files {
		entry := model.LocalTrack{
			ID:    model.LocalTrackID(f.Name, f.Size),
			Name:  f.Name,
			Title: catalog.TitleFromFile(f.Name),
			URL:   fileURL(f.Path),
		}

		dataURL, err := u.readAsDataURL(ctx, f)
		if err != nil {
			logger.Debug("local track is session-only", logger.String("name", f.Name), logger.ErrorField(err))
			session = append(session, entry)
			continue
		}
		entry.URL = dataURL
		persisted = append(persisted, entry)
	}
	return persisted, session
}

func (u *LocalUploader) readAsDataURL(ctx context.Context, f File) (string, error) {
	if f.Size > u.maxBytes {
		return "", fmt.Errorf("file is %d bytes, limit is %d", f.Size, u.maxBytes)
	}
	data, err := os.ReadFile(f.Path)
	if err != nil {
		return "", err
	}
	if u.prober != nil {
		if err := u.prober.Probe(ctx); err != nil {
			return "", fmt.Errorf("storage is full: %w", err)
		}
	}
	return "data:" + mimeType(f.Name, data) + ";base64," + base64.StdEncoding.EncodeToString(data), nil
}

func mimeType(name string, data []byte) string {
	ext := strings.ToLower(filepath.Ext(name))
	if t, ok := AudioExtensions[ext]; ok {
		return t
	}
	if t := mime.TypeByExtension(ext); t != "" {
		return t
	}
	return http.DetectContentType(data)
}

func fileURL(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	return (&url.URL{Scheme: "file", Path: filepath.ToSlash(path)}).String()
}

// PickFiles stats the given paths. Directories and files that are not audio
// are skipped.
func PickFiles(paths []string) ([]File, error) {
	files := make([]File, 0, len(paths))
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, fmt.Errorf("failed to stat %s: %w", p, err)
		}
		if info.IsDir() {
			logger.Warn("skipping directory", logger.String("path", p))
			continue
		}
		if _, ok := AudioExtensions[strings.ToLower(filepath.Ext(p))]; !ok {
			logger.Warn("skipping non-audio file", logger.String("path", p))
			continue
		}
		files = append(files, File{Name: info.Name(), Size: info.Size(), Path: p})
	}
	return files, nil
}
