package offline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"

	"MusicFlow/logger"
)

// ErrClosed is returned by Post once the coordinator has been closed.
var ErrClosed = errors.New("offline: coordinator closed")

// HTTPDoer is the subset of *http.Client the worker needs.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

type subscriber struct {
	ch   chan Message
	done chan struct{}
	once sync.Once
}

// Coordinator is the offline worker. It pre-fetches tracks into the music
// partition on request and reports progress to every subscriber.
type Coordinator struct {
	cache    Cache
	client   HTTPDoer
	upstream *url.URL
	version  string

	mu     sync.Mutex
	closed bool
	subs   map[int]*subscriber
	nextID int
	wg     sync.WaitGroup
}

// NewCoordinator builds a worker storing into cache. Relative URLs are
// resolved against upstream.
func NewCoordinator(cache Cache, client HTTPDoer, upstream, version string) (*Coordinator, error) {
	base, err := url.Parse(upstream)
	if err != nil {
		return nil, fmt.Errorf("invalid upstream %q: %w", upstream, err)
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &Coordinator{
		cache:    cache,
		client:   client,
		upstream: base,
		version:  version,
		subs:     make(map[int]*subscriber),
	}, nil
}

func (c *Coordinator) AssetPartition() string { return AssetPartition(c.version) }
func (c *Coordinator) MusicPartition() string { return MusicPartition(c.version) }

// Upstream returns the base URL requests are resolved against.
func (c *Coordinator) Upstream() *url.URL { return c.upstream }

// Key resolves a possibly relative URL into the absolute key used by the
// partitions.
func (c *Coordinator) Key(raw string) string {
	ref, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	return c.upstream.ResolveReference(ref).String()
}

// Post delivers a message to the worker without blocking. Only CACHE_TRACKS
// is acted upon; every batch runs on its own goroutine and is never cancelled
// by a later one.
func (c *Coordinator) Post(msg Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	if msg.Type != MsgCacheTracks {
		return nil
	}
	urls := append([]string(nil), msg.URLs...)
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.cacheTracks(context.Background(), urls)
	}()
	return nil
}

// Subscribe registers a listener for worker messages. Messages of one batch
// arrive in order. The returned func unsubscribes.
func (c *Coordinator) Subscribe() (<-chan Message, func()) {
	sub := &subscriber{ch: make(chan Message, 16), done: make(chan struct{})}

	c.mu.Lock()
	id := c.nextID
	c.nextID++
	if c.closed {
		close(sub.ch)
	} else {
		c.subs[id] = sub
	}
	c.mu.Unlock()

	return sub.ch, func() {
		sub.once.Do(func() { close(sub.done) })
		c.mu.Lock()
		delete(c.subs, id)
		c.mu.Unlock()
	}
}

// Close stops accepting messages, waits for in-flight batches and closes
// every subscriber channel.
func (c *Coordinator) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.mu.Unlock()

	c.wg.Wait()

	c.mu.Lock()
	defer c.mu.Unlock()
	for id, sub := range c.subs {
		close(sub.ch)
		delete(c.subs, id)
	}
}

func (c *Coordinator) broadcast(msg Message) {
	c.mu.Lock()
	subs := make([]*subscriber, 0, len(c.subs))
	for _, sub := range c.subs {
		subs = append(subs, sub)
	}
	c.mu.Unlock()

	for _, sub := range subs {
		select {
		case sub.ch <- msg:
		case <-sub.done:
		}
	}
}

func (c *Coordinator) cacheTracks(ctx context.Context, urls []string) {
	total := len(urls)
	part, err := c.cache.Open(ctx, c.MusicPartition())
	if err != nil {
		logger.Error("failed to open music partition", logger.ErrorField(err))
	}

	for i, raw := range urls {
		if part != nil {
			c.cacheOne(ctx, part, raw)
		}
		c.broadcast(Message{Type: MsgCacheProgress, Done: i + 1, Total: total})
	}
	c.broadcast(Message{Type: MsgCacheDone, Total: total})
	logger.Info("offline cache batch finished", logger.Int("total", total))
}

func (c *Coordinator) cacheOne(ctx context.Context, part Partition, raw string) {
	key := c.Key(raw)
	entry, err := c.fetch(ctx, http.MethodGet, key, nil, nil, true)
	if err != nil {
		logger.Debug("pre-fetch failed", logger.String("url", key), logger.ErrorField(err))
		return
	}
	if !isOK(entry.Status) {
		logger.Debug("pre-fetch skipped", logger.String("url", key), logger.Int("status", entry.Status))
		return
	}
	if err := part.Put(ctx, key, entry); err != nil {
		logger.Warn("failed to store track", logger.String("url", key), logger.ErrorField(err))
	}
}

// fetch performs a request and buffers the whole response. reload bypasses
// intermediate HTTP caches.
func (c *Coordinator) fetch(ctx context.Context, method, target string, header http.Header, body io.Reader, reload bool) (*Entry, error) {
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, err
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if reload {
		req.Header.Set("Cache-Control", "no-cache")
		req.Header.Set("Pragma", "no-cache")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", target, err)
	}
	return &Entry{Status: resp.StatusCode, Header: resp.Header.Clone(), Body: data}, nil
}

// Install stores the application shell in the asset partition. Any failed
// asset aborts the install and nothing is stored.
func (c *Coordinator) Install(ctx context.Context, assets []string) error {
	entries := make(map[string]*Entry, len(assets))
	for _, raw := range assets {
		key := c.Key(raw)
		entry, err := c.fetch(ctx, http.MethodGet, key, nil, nil, false)
		if err != nil {
			return fmt.Errorf("failed to fetch asset %s: %w", raw, err)
		}
		if !isOK(entry.Status) {
			return fmt.Errorf("failed to fetch asset %s: status %d", raw, entry.Status)
		}
		entries[key] = entry
	}

	part, err := c.cache.Open(ctx, c.AssetPartition())
	if err != nil {
		return fmt.Errorf("failed to open asset partition: %w", err)
	}
	for key, entry := range entries {
		if err := part.Put(ctx, key, entry); err != nil {
			return fmt.Errorf("failed to store asset %s: %w", key, err)
		}
	}
	logger.Info("offline assets installed", logger.Int("count", len(entries)))
	return nil
}

// Activate deletes every partition that does not belong to the current
// version.
func (c *Coordinator) Activate(ctx context.Context) error {
	names, err := c.cache.Names(ctx)
	if err != nil {
		return fmt.Errorf("failed to list partitions: %w", err)
	}
	for _, name := range names {
		if name == c.AssetPartition() || name == c.MusicPartition() {
			continue
		}
		if err := c.cache.Delete(ctx, name); err != nil {
			return fmt.Errorf("failed to delete partition %s: %w", name, err)
		}
		logger.Info("stale offline partition deleted", logger.String("name", name))
	}
	return nil
}

func isOK(status int) bool {
	return status >= 200 && status < 300
}
