package audio

import (
	"bytes"
	"fmt"
	"path"
	"strings"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/mp3"
	"github.com/gopxl/beep/v2/wav"
)

type nopCloser struct {
	*bytes.Reader
}

func (nopCloser) Close() error { return nil }

// decode picks a decoder from the content type, falling back to the
// extension of the source URL. Anything unrecognised is tried as MP3.
func decode(data []byte, contentType, source string) (beep.StreamSeekCloser, beep.Format, error) {
	r := nopCloser{bytes.NewReader(data)}
	if isWAV(contentType, source) {
		s, f, err := wav.Decode(r)
		if err != nil {
			return nil, beep.Format{}, fmt.Errorf("wav decode: %w", err)
		}
		return s, f, nil
	}
	s, f, err := mp3.Decode(r)
	if err != nil {
		return nil, beep.Format{}, fmt.Errorf("mp3 decode: %w", err)
	}
	return s, f, nil
}

func isWAV(contentType, source string) bool {
	ct := strings.ToLower(contentType)
	if strings.Contains(ct, "wav") {
		return true
	}
	if ct != "" && !strings.HasPrefix(ct, "application/octet-stream") {
		return false
	}
	if strings.HasPrefix(source, "data:") {
		return false
	}
	if i := strings.IndexAny(source, "?#"); i >= 0 {
		source = source[:i]
	}
	return strings.EqualFold(path.Ext(source), ".wav")
}
