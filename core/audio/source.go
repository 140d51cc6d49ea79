package audio

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
)

// HTTPDoer is the subset of *http.Client the fetcher needs.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Fetcher reads the bytes behind a track URL: data URLs, file URLs, and
// absolute or relative http(s) URLs resolved against a base.
type Fetcher struct {
	client HTTPDoer
	base   *url.URL
}

func NewFetcher(client HTTPDoer, baseURL string) (*Fetcher, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL %q: %w", baseURL, err)
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &Fetcher{client: client, base: base}, nil
}

// Fetch returns the audio bytes and their content type.
func (f *Fetcher) Fetch(ctx context.Context, raw string) ([]byte, string, error) {
	if strings.HasPrefix(raw, "data:") {
		return decodeDataURL(raw)
	}

	ref, err := url.Parse(raw)
	if err != nil {
		return nil, "", fmt.Errorf("invalid track URL %q: %w", raw, err)
	}
	u := f.base.ResolveReference(ref)

	switch u.Scheme {
	case "file":
		data, err := os.ReadFile(u.Path)
		if err != nil {
			return nil, "", fmt.Errorf("failed to read %s: %w", u.Path, err)
		}
		return data, "", nil
	case "http", "https":
		return f.get(ctx, u.String())
	default:
		return nil, "", fmt.Errorf("unsupported track URL scheme %q", u.Scheme)
	}
}

func (f *Fetcher) get(ctx context.Context, target string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, "", err
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("failed to fetch %s: %w", target, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, "", fmt.Errorf("failed to fetch %s: status %d", target, resp.StatusCode)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read %s: %w", target, err)
	}
	return data, resp.Header.Get("Content-Type"), nil
}

// decodeDataURL handles data:<mime>[;base64],<payload>.
func decodeDataURL(raw string) ([]byte, string, error) {
	header, payload, ok := strings.Cut(strings.TrimPrefix(raw, "data:"), ",")
	if !ok {
		return nil, "", fmt.Errorf("malformed data URL")
	}
	mimeType, isBase64 := strings.CutSuffix(header, ";base64")
	if !isBase64 {
		text, err := url.PathUnescape(payload)
		if err != nil {
			return nil, "", fmt.Errorf("malformed data URL: %w", err)
		}
		return []byte(text), mimeType, nil
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, "", fmt.Errorf("malformed data URL: %w", err)
	}
	return data, mimeType, nil
}
