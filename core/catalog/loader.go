package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"MusicFlow/logger"
	"MusicFlow/model"

	"golang.org/x/net/html"
)

const (
	manifestPath = "/musics.json"
	listingPath  = "/musics/"
)

// HTTPDoer is the part of *http.Client the loader needs.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Loader fetches the remote track manifest from the backend.
type Loader struct {
	client  HTTPDoer
	baseURL string
}

// NewLoader creates a loader for the backend at baseURL. A nil client means
// http.DefaultClient.
func NewLoader(client HTTPDoer, baseURL string) *Loader {
	if client == nil {
		client = http.DefaultClient
	}
	return &Loader{client: client, baseURL: strings.TrimRight(baseURL, "/")}
}

// Load returns the remote items, trying the JSON manifest first and the
// directory listing second. Failures are never surfaced: an unreachable or
// empty backend simply yields no tracks.
func (l *Loader) Load(ctx context.Context) []model.RemoteItem {
	items, err := l.fromManifest(ctx)
	if err == nil && items != nil {
		return items
	}
	if err != nil {
		logger.Debug("manifest unavailable, falling back to directory listing", logger.ErrorField(err))
	}

	items, err = l.fromListing(ctx)
	if err != nil {
		logger.Debug("directory listing unavailable", logger.ErrorField(err))
		return []model.RemoteItem{}
	}
	return items
}

func (l *Loader) get(ctx context.Context, path string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.baseURL+path, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Cache-Control", "no-store")
	resp, err := l.client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		resp.Body.Close()
		return nil, fmt.Errorf("GET %s: status %d", path, resp.StatusCode)
	}
	return resp, nil
}

func (l *Loader) fromManifest(ctx context.Context) ([]model.RemoteItem, error) {
	resp, err := l.get(ctx, manifestPath)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	return ParseManifest(body)
}

// ParseManifest decodes a manifest that is either an array of entries or an
// object holding them under "tracks". Entries are URL strings or {url,title}
// objects. A nil slice without error means the document has no entry list.
func ParseManifest(body []byte) ([]model.RemoteItem, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		var wrapped struct {
			Tracks []json.RawMessage `json:"tracks"`
		}
		if err := json.Unmarshal(body, &wrapped); err != nil {
			return nil, fmt.Errorf("decode manifest: %w", err)
		}
		if wrapped.Tracks == nil {
			return nil, nil
		}
		raw = wrapped.Tracks
	}
	if raw == nil {
		return nil, nil
	}

	items := make([]model.RemoteItem, 0, len(raw))
	for _, entry := range raw {
		var s string
		if err := json.Unmarshal(entry, &s); err == nil {
			if s == "" {
				continue
			}
			items = append(items, model.RemoteItem{URL: s, Title: TitleFromFile(lastSegment(s))})
			continue
		}

		var obj model.RemoteItem
		if err := json.Unmarshal(entry, &obj); err != nil || obj.URL == "" {
			continue
		}
		if obj.Title == "" {
			obj.Title = TitleFromFile(lastSegment(obj.URL))
		}
		items = append(items, obj)
	}
	return items, nil
}

func (l *Loader) fromListing(ctx context.Context) ([]model.RemoteItem, error) {
	resp, err := l.get(ctx, listingPath)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	return ParseListing(resp.Body)
}

// ParseListing extracts .mp3 links from a server rendered directory listing.
func ParseListing(r io.Reader) ([]model.RemoteItem, error) {
	items := []model.RemoteItem{}
	z := html.NewTokenizer(r)
	for {
		switch z.Next() {
		case html.ErrorToken:
			if z.Err() == io.EOF {
				return items, nil
			}
			return nil, z.Err()
		case html.StartTagToken, html.SelfClosingTagToken:
			name, hasAttr := z.TagName()
			if string(name) != "a" || !hasAttr {
				continue
			}
			href := hrefOf(z)
			if href == "" || !isMP3Link(href) {
				continue
			}
			items = append(items, listingItem(href))
		}
	}
}

func hrefOf(z *html.Tokenizer) string {
	for {
		key, val, more := z.TagAttr()
		if string(key) == "href" {
			return string(val)
		}
		if !more {
			return ""
		}
	}
}

func isMP3Link(href string) bool {
	lower := strings.ToLower(href)
	return strings.HasSuffix(lower, ".mp3") || strings.Contains(lower, ".mp3?")
}

func listingItem(href string) model.RemoteItem {
	clean := strings.ReplaceAll(unescape(href), `\`, "/")
	parts := strings.Split(clean, "/")
	file, _, _ := strings.Cut(parts[len(parts)-1], "?")

	u := clean
	if !strings.HasPrefix(clean, "http") {
		u = "./musics/" + url.PathEscape(file)
	}
	return model.RemoteItem{URL: u, Title: TitleFromFile(file)}
}

func lastSegment(u string) string {
	idx := strings.LastIndex(u, "/")
	seg := u[idx+1:]
	if seg == "" {
		seg = u
	}
	return unescape(seg)
}

func unescape(s string) string {
	if out, err := url.PathUnescape(s); err == nil {
		return out
	}
	return s
}
