package offline

import (
	"context"
	"io"
	"net/http"
	"strings"

	"MusicFlow/logger"
)

// Proxy answers requests from upstream and keeps a copy of every successful
// GET response, falling back to the copy when upstream is unreachable.
type Proxy struct {
	coord *Coordinator
}

func NewProxy(coord *Coordinator) *Proxy {
	return &Proxy{coord: coord}
}

func (p *Proxy) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	upstream := p.coord.Upstream()
	if upstream.Scheme != "http" && upstream.Scheme != "https" {
		http.Error(w, "Bad gateway", http.StatusBadGateway)
		return
	}

	partition := p.coord.AssetPartition()
	key := p.coord.Key(r.URL.RequestURI())
	switch {
	case isNavigation(r):
		key = p.coord.Key(IndexKey)
	case strings.Contains(r.URL.Path, "/musics/") || r.Header.Get("Sec-Fetch-Dest") == "audio":
		partition = p.coord.MusicPartition()
	}

	p.serve(r.Context(), w, r, partition, key)
}

func (p *Proxy) serve(ctx context.Context, w http.ResponseWriter, r *http.Request, partition, key string) {
	method := r.Method
	var body io.Reader = r.Body
	if isNavigation(r) {
		method = http.MethodGet
		body = nil
	}

	fresh, err := p.coord.fetch(ctx, method, key, forwardHeaders(r.Header), body, false)
	if err == nil {
		if isOK(fresh.Status) && method == http.MethodGet {
			go p.store(partition, key, fresh)
		}
		fresh.Write(w)
		return
	}

	logger.Debug("upstream unreachable, trying cache", logger.String("url", key), logger.ErrorField(err))
	if method == http.MethodGet {
		if cached := p.lookup(ctx, partition, key); cached != nil {
			cached.Write(w)
			return
		}
	}
	w.WriteHeader(http.StatusGatewayTimeout)
}

func (p *Proxy) lookup(ctx context.Context, partition, key string) *Entry {
	part, err := p.coord.cache.Open(ctx, partition)
	if err != nil {
		logger.Warn("failed to open partition", logger.String("partition", partition), logger.ErrorField(err))
		return nil
	}
	entry, ok, err := part.Match(ctx, key)
	if err != nil {
		logger.Warn("cache lookup failed", logger.String("url", key), logger.ErrorField(err))
		return nil
	}
	if !ok {
		return nil
	}
	return entry
}

func (p *Proxy) store(partition, key string, entry *Entry) {
	ctx := context.Background()
	part, err := p.coord.cache.Open(ctx, partition)
	if err == nil {
		err = part.Put(ctx, key, entry)
	}
	if err != nil {
		logger.Warn("failed to cache response", logger.String("url", key), logger.ErrorField(err))
	}
}

func isNavigation(r *http.Request) bool {
	if r.Header.Get("Sec-Fetch-Mode") == "navigate" {
		return true
	}
	return r.Method == http.MethodGet && strings.Contains(r.Header.Get("Accept"), "text/html")
}

var hopHeaders = map[string]bool{
	"Connection":          true,
	"Keep-Alive":          true,
	"Proxy-Authorization": true,
	"Te":                  true,
	"Trailer":             true,
	"Transfer-Encoding":   true,
	"Upgrade":             true,
	"Accept-Encoding":     true,
}

func forwardHeaders(in http.Header) http.Header {
	out := make(http.Header, len(in))
	for k, vs := range in {
		if hopHeaders[http.CanonicalHeaderKey(k)] {
			continue
		}
		out[k] = append([]string(nil), vs...)
	}
	return out
}
