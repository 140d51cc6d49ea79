package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"MusicFlow/core/utils"
	"MusicFlow/logger"

	"github.com/samber/lo"
)

const (
	errMissingURL   = "Missing url."
	errScheme       = "Only http/https URLs allowed."
	errYouTube      = "YouTube URLs are not supported."
	errDownload     = "Failed to download URL."
	errNotAudio     = "URL is not an audio file."
	errTooLarge     = "File too large."
	errBusy         = "Server is busy."
	errImportFailed = "Import failed."
)

var (
	httpURL     = regexp.MustCompile(`(?i)^https?://`)
	videoHostRe = regexp.MustCompile(`(?i)youtube\.com|youtu\.be`)
)

// HTTPDoer is the subset of *http.Client used for downloads.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// ImportHandler downloads an audio URL into the music directory.
type ImportHandler struct {
	client   HTTPDoer
	dir      string
	maxBytes int64
	sem      chan struct{}

	// OnSaved runs after a file lands in the music directory.
	OnSaved func()
}

func NewImportHandler(client HTTPDoer, dir string, maxBytes int64, maxConcurrent int) *ImportHandler {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	return &ImportHandler{
		client:   client,
		dir:      dir,
		maxBytes: maxBytes,
		sem:      make(chan struct{}, maxConcurrent),
	}
}

// requestedURL reads the url field of an import body. Falsy values count as
// missing and anything else is turned into text, so {"url":5} fails the
// scheme check instead of the decoding.
func requestedURL(body any) string {
	obj, _ := body.(map[string]any)
	v := obj["url"]
	switch t := v.(type) {
	case bool:
		if !t {
			return ""
		}
	case float64:
		if t == 0 {
			return ""
		}
	}
	return jsonText(v)
}

func jsonText(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case []any:
		return strings.Join(lo.Map(t, func(e any, _ int) string { return jsonText(e) }), ",")
	default:
		return "[object Object]"
	}
}

func (h *ImportHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	select {
	case h.sem <- struct{}{}:
		defer func() { <-h.sem }()
	default:
		logger.Warn("import rejected, too many in flight")
		writeError(w, http.StatusServiceUnavailable, errBusy)
		return
	}

	var body any
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&body); err != nil {
		logger.Warn("invalid import body", logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, errImportFailed)
		return
	}

	raw := requestedURL(body)
	switch {
	case raw == "":
		writeError(w, http.StatusBadRequest, errMissingURL)
		return
	case !httpURL.MatchString(raw):
		writeError(w, http.StatusBadRequest, errScheme)
		return
	case videoHostRe.MatchString(raw):
		writeError(w, http.StatusBadRequest, errYouTube)
		return
	}

	target, err := url.Parse(raw)
	if err != nil {
		writeError(w, http.StatusInternalServerError, errImportFailed)
		return
	}

	download, err := http.NewRequestWithContext(r.Context(), http.MethodGet, target.String(), nil)
	if err != nil {
		writeError(w, http.StatusInternalServerError, errImportFailed)
		return
	}
	resp, err := h.client.Do(download)
	if err != nil {
		logger.Warn("import download failed", logger.String("url", raw), logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, errImportFailed)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		writeError(w, http.StatusBadRequest, errDownload)
		return
	}
	if !strings.HasPrefix(strings.ToLower(resp.Header.Get("Content-Type")), "audio/") {
		writeError(w, http.StatusBadRequest, errNotAudio)
		return
	}
	if h.maxBytes > 0 && resp.ContentLength > h.maxBytes {
		writeError(w, http.StatusBadRequest, errTooLarge)
		return
	}

	name := utils.SafeFileName(target)
	n, err := utils.SaveFile(h.dir, name, resp.Body, h.maxBytes)
	if err != nil {
		if errors.Is(err, utils.ErrFileTooLarge) {
			writeError(w, http.StatusBadRequest, errTooLarge)
			return
		}
		logger.Error("failed to store import", logger.String("file", name), logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, errImportFailed)
		return
	}

	logger.Info("imported track", logger.String("url", raw), logger.String("file", name), logger.Int64("bytes", n))
	if h.OnSaved != nil {
		h.OnSaved()
	}
	writeJSON(w, http.StatusOK, map[string]string{"file": name})
}
