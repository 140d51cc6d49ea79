package player

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"MusicFlow/core/catalog"
	"MusicFlow/core/offline"
	"MusicFlow/core/upload"
	"MusicFlow/logger"
	"MusicFlow/model"
)

const (
	hintScanning       = "Scanning library..."
	hintNoTracks       = "No tracks to cache."
	hintOfflineMissing = "Offline cache not available."
	hintOfflineFailed  = "Offline cache failed to initialize."
	hintDownloading    = "Downloading..."
)

// rebuildCatalog also drops the shuffle history, whose indices point into
// the previous list.
func (c *Controller) rebuildCatalog() {
	c.state.Catalog = catalog.Build(c.state.Remote, c.state.Local, c.state.Session)
	c.state.History = []int{}
}

// Refresh reloads the remote catalog and asks the offline worker to
// pre-fetch every cacheable track.
func (c *Controller) Refresh(ctx context.Context) {
	c.mu.Lock()
	c.state.CacheHint = hintScanning
	c.mu.Unlock()

	var remote []model.RemoteItem
	if c.catalog != nil {
		remote = c.catalog.Load(ctx)
	}
	if remote == nil {
		remote = []model.RemoteItem{}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.Remote = remote
	c.rebuildCatalog()
	logger.Info("catalog refreshed", logger.Int("remote", len(remote)), logger.Int("total", len(c.state.Catalog)))
	if len(c.state.Catalog) == 0 {
		c.state.CacheHint = hintNoTracks
		return
	}
	c.cacheAll()
}

func (c *Controller) cacheAll() {
	urls := catalog.CacheableURLs(c.state.Catalog)
	if len(urls) == 0 {
		c.state.CacheHint = hintNoTracks
		return
	}
	if c.offline == nil {
		c.state.CacheHint = hintOfflineMissing
		return
	}
	if err := c.offline.Post(offline.CacheTracks(urls)); err != nil {
		logger.Warn("failed to post cache request", logger.ErrorField(err))
		c.state.CacheHint = hintOfflineFailed
		return
	}
	c.state.CacheHint = fmt.Sprintf("Caching %d tracks for offline...", len(urls))
}

// HandleCacheMessage reflects worker progress in the status hint.
func (c *Controller) HandleCacheMessage(msg offline.Message) {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch msg.Type {
	case offline.MsgCacheProgress:
		c.state.CacheHint = fmt.Sprintf("Cached %d/%d tracks", msg.Done, msg.Total)
	case offline.MsgCacheDone:
		c.state.CacheHint = fmt.Sprintf("Offline cache ready (%d tracks)", msg.Total)
	}
}

// Run consumes worker messages until ctx ends or msgs is closed.
func (c *Controller) Run(ctx context.Context, msgs <-chan offline.Message) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-msgs:
			if !ok {
				return
			}
			c.HandleCacheMessage(msg)
		}
	}
}

// ImportFromURL asks the backend to download rawURL and refreshes the
// catalog on success.
func (c *Controller) ImportFromURL(ctx context.Context, rawURL string) {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" || c.importer == nil {
		return
	}

	c.mu.Lock()
	c.state.ImportHint = hintDownloading
	c.mu.Unlock()

	file, err := c.importer.Import(ctx, rawURL)
	if err != nil {
		msg := upload.DefaultImportError
		var ie *upload.ImportError
		if errors.As(err, &ie) && ie.Message != "" {
			msg = ie.Message
		}
		logger.Warn("import failed", logger.String("url", rawURL), logger.ErrorField(err))
		c.mu.Lock()
		c.state.ImportHint = msg
		c.mu.Unlock()
		return
	}

	c.mu.Lock()
	c.state.ImportHint = "Saved to /musics: " + file
	c.mu.Unlock()
	c.Refresh(ctx)
}

// AddLocalFiles folds picked files into the catalog. Playback starts on the
// first track when nothing was loaded before.
func (c *Controller) AddLocalFiles(ctx context.Context, files []upload.File) {
	if c.uploader == nil || len(files) == 0 {
		return
	}
	persisted, session := c.uploader.Prepare(ctx, files)

	c.mu.Lock()
	defer c.mu.Unlock()
	if len(persisted) > 0 {
		prev := c.state.Local
		c.state.Local = append(slices.Clone(prev), persisted...)
		if err := c.store.SaveLocalTracks(ctx, c.state.Local); err != nil {
			logger.Warn("local tracks kept for this session only",
				logger.Int("count", len(persisted)), logger.ErrorField(err))
			c.state.Local = prev
			session = append(slices.Clone(persisted), session...)
			persisted = nil
		}
	}
	if len(session) > 0 {
		c.state.Session = append(c.state.Session, session...)
	}
	c.rebuildCatalog()

	if c.state.CurrentID == "" && len(c.state.Catalog) > 0 {
		c.playAtIndex(c.playbackList(), 0)
	}
	c.state.CacheHint = localFilesHint(len(persisted), len(session))
}

func localFilesHint(saved, sessionOnly int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Added %d local tracks.", saved+sessionOnly)
	if saved > 0 {
		fmt.Fprintf(&b, " Saved %d local track(s).", saved)
	}
	if sessionOnly > 0 {
		fmt.Fprintf(&b, " %d track(s) are session-only (storage limit).", sessionOnly)
	}
	return b.String()
}
