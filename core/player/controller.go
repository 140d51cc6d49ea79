package player

import (
	"context"
	"math"
	"math/rand/v2"
	"sync"

	"MusicFlow/core/offline"
	"MusicFlow/core/upload"
	"MusicFlow/logger"
	"MusicFlow/model"
)

// Store persists the four state categories. *cache.StateStore satisfies it.
type Store interface {
	LoadPlaylists(ctx context.Context) []model.Playlist
	SavePlaylists(ctx context.Context, playlists []model.Playlist) error
	LoadLocalTracks(ctx context.Context) []model.LocalTrack
	SaveLocalTracks(ctx context.Context, tracks []model.LocalTrack) error
	LoadPreferences(ctx context.Context) model.Preferences
	SavePreferences(ctx context.Context, prefs model.Preferences) error
	LoadQueue(ctx context.Context) []string
	SaveQueue(ctx context.Context, queue []string) error
}

// CatalogSource lists the tracks served by the backend.
type CatalogSource interface {
	Load(ctx context.Context) []model.RemoteItem
}

// CachePoster hands messages to the offline worker.
type CachePoster interface {
	Post(msg offline.Message) error
}

// Importer asks the backend to download a URL into the music directory.
type Importer interface {
	Import(ctx context.Context, rawURL string) (string, error)
}

// LocalPreparer turns picked files into persisted and session-only records.
type LocalPreparer interface {
	Prepare(ctx context.Context, files []upload.File) (persisted, session []model.LocalTrack)
}

// Options wires a Controller. Media and Store are required; the others
// disable their feature when nil.
type Options struct {
	Media    Media
	Store    Store
	Catalog  CatalogSource
	Offline  CachePoster
	Importer Importer
	Uploader LocalPreparer
	IntN     func(n int) int // Random source for shuffle, rand.IntN by default
}

// Controller owns the player state and is the only place it changes.
type Controller struct {
	mu    sync.Mutex
	state State

	media    Media
	store    Store
	catalog  CatalogSource
	offline  CachePoster
	importer Importer
	uploader LocalPreparer
	intN     func(n int) int
}

func NewController(opts Options) *Controller {
	intN := opts.IntN
	if intN == nil {
		intN = rand.IntN
	}
	return &Controller{
		state:    newState(),
		media:    opts.Media,
		store:    opts.Store,
		catalog:  opts.Catalog,
		offline:  opts.Offline,
		importer: opts.Importer,
		uploader: opts.Uploader,
		intN:     intN,
	}
}

// LoadState reads the persisted categories into memory.
func (c *Controller) LoadState(ctx context.Context) {
	playlists := c.store.LoadPlaylists(ctx)
	local := c.store.LoadLocalTracks(ctx)
	prefs := c.store.LoadPreferences(ctx)
	queue := c.store.LoadQueue(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.Playlists = playlists
	c.state.Local = local
	c.state.Prefs = prefs
	c.state.Queue = queue
	c.rebuildCatalog()
}

// PlaybackList is the catalog restricted to the active playlist filter.
func (c *Controller) PlaybackList() []model.Track {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.playbackList()
}

func (c *Controller) playbackList() []model.Track {
	filter := c.state.Prefs.PlaylistFilterID
	if filter == "" {
		return c.state.Catalog
	}
	pl := c.findPlaylist(filter)
	if pl == nil {
		return []model.Track{}
	}
	list := make([]model.Track, 0, len(pl.TrackIDs))
	for _, t := range c.state.Catalog {
		if pl.Contains(t.ID) {
			list = append(list, t)
		}
	}
	return list
}

// currentIndex locates the current track in list, -1 when absent.
func (c *Controller) currentIndex(list []model.Track) int {
	if c.state.CurrentID == "" {
		return -1
	}
	return indexOf(list, c.state.CurrentID)
}

func indexOf(list []model.Track, id string) int {
	for i, t := range list {
		if t.ID == id {
			return i
		}
	}
	return -1
}

// PlayAtIndex starts list[index]; out of range is a no-op.
func (c *Controller) PlayAtIndex(list []model.Track, index int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.playAtIndex(list, index)
}

func (c *Controller) playAtIndex(list []model.Track, index int) {
	if index < 0 || index >= len(list) {
		return
	}
	track := list[index]
	c.state.CurrentID = track.ID
	c.state.SeekValue = 0
	c.state.SeekMax = 0

	if err := c.media.Load(track.URL); err != nil {
		logger.Warn("failed to load track", logger.String("id", track.ID), logger.ErrorField(err))
	}
	if err := c.media.Play(); err != nil {
		logger.Warn("play request failed", logger.String("id", track.ID), logger.ErrorField(err))
	}
	c.state.NowTitle = track.Title
	c.state.NowMeta = track.Meta
	c.state.PlayLabel = labelPause
}

// PlayIndex plays the index-th entry of the playback list.
func (c *Controller) PlayIndex(index int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.playAtIndex(c.playbackList(), index)
}

// TogglePlay starts the first track when nothing is loaded, otherwise flips
// between playing and paused.
func (c *Controller) TogglePlay() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.media.Source() == "" {
		c.playAtIndex(c.playbackList(), 0)
		return
	}
	if c.media.Paused() {
		c.resume()
		return
	}
	c.media.Pause()
	c.state.PlayLabel = labelPlay
}

func (c *Controller) Play() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.media.Source() == "" {
		c.playAtIndex(c.playbackList(), 0)
		return
	}
	c.resume()
}

func (c *Controller) Pause() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.media.Pause()
	c.state.PlayLabel = labelPlay
}

func (c *Controller) resume() {
	if err := c.media.Play(); err != nil {
		logger.Warn("play request failed", logger.ErrorField(err))
	}
	c.state.PlayLabel = labelPause
}

// Next moves forward through the single advance transition.
func (c *Controller) Next(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.advance(ctx)
}

func (c *Controller) Prev() {
	c.mu.Lock()
	defer c.mu.Unlock()
	list := c.playbackList()
	if len(list) == 0 {
		return
	}
	c.playAtIndex(list, c.resolvePrev(list))
}

// advance is the only forward transition, shared by the next control and
// the end of a track. The queue head is consumed here and nowhere else.
func (c *Controller) advance(ctx context.Context) {
	list := c.playbackList()
	if len(list) == 0 {
		return
	}
	c.playAtIndex(list, c.resolveNext(ctx, list))
}

// HandleMediaEvent applies a media notification.
func (c *Controller) HandleMediaEvent(ev MediaEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.applyMediaEvent(ev)
}

// HandleMediaEventAt applies ev only if it was raised for the source that
// is loaded now. An ended queued just before the listener skipped ahead
// would otherwise advance a second time.
func (c *Controller) HandleMediaEventAt(gen uint64, ev MediaEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if cur := c.media.Generation(); gen != cur {
		logger.Debug("dropping stale media event", logger.String("event", string(ev)),
			logger.Int64("gen", int64(gen)), logger.Int64("current", int64(cur)))
		return
	}
	c.applyMediaEvent(ev)
}

func (c *Controller) applyMediaEvent(ev MediaEvent) {
	ctx := context.Background()
	switch ev {
	case EventLoadStart:
		c.state.Status = StatusLoading
	case EventPlaying:
		c.state.Status = StatusPlaying
	case EventPause:
		c.state.Status = StatusPaused
	case EventLoadedMetadata, EventDurationChange:
		if d := c.media.Duration(); isFinite(d) {
			c.state.SeekMax = d
		}
	case EventTimeUpdate:
		if isFinite(c.media.Duration()) {
			c.state.SeekValue = c.media.CurrentTime()
		}
	case EventEnded:
		c.state.Status = StatusEnded
		c.handleEnded(ctx)
	}
}

func (c *Controller) handleEnded(ctx context.Context) {
	prefs := c.state.Prefs
	if prefs.LoopMode == model.LoopOne {
		c.media.SetCurrentTime(0)
		if err := c.media.Play(); err != nil {
			logger.Warn("replay failed", logger.ErrorField(err))
		}
		return
	}
	if len(c.state.Queue) > 0 {
		c.advance(ctx)
		return
	}
	list := c.playbackList()
	if prefs.LoopMode == model.LoopOff && !prefs.ShuffleOn && c.currentIndex(list) == len(list)-1 {
		c.state.PlayLabel = labelPlay
		return
	}
	c.advance(ctx)
}

// SeekFromPointer maps a click at x on a bar spanning [left, left+width] to
// a position in the track. Ignored while the duration is unknown.
func (c *Controller) SeekFromPointer(x, left, width float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	d := c.media.Duration()
	if !isFinite(d) {
		return
	}
	c.media.SetCurrentTime(pointerFraction(x, left, width) * d)
}

// VolumeFromPointer maps a click on the volume bar to 0..100.
func (c *Controller) VolumeFromPointer(x, left, width float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.Volume = int(math.Round(pointerFraction(x, left, width) * 100))
	c.media.SetVolume(float64(c.state.Volume) / 100)
}

func pointerFraction(x, left, width float64) float64 {
	if width <= 0 {
		return 0
	}
	return math.Min(math.Max(0, x-left), width) / width
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// ToggleShuffle flips shuffle and returns the new control label.
func (c *Controller) ToggleShuffle(ctx context.Context) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.Prefs.ShuffleOn = !c.state.Prefs.ShuffleOn
	c.state.History = []int{}
	c.savePrefs(ctx)
	return c.state.Prefs.ShuffleLabel()
}

// CycleLoop moves to the next loop mode and returns the new control label.
func (c *Controller) CycleLoop(ctx context.Context) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.Prefs.LoopMode = c.state.Prefs.LoopMode.Next()
	c.savePrefs(ctx)
	return c.state.Prefs.LoopMode.Label()
}

func (c *Controller) savePrefs(ctx context.Context) {
	if err := c.store.SavePreferences(ctx, c.state.Prefs); err != nil {
		logger.Warn("failed to save preferences", logger.ErrorField(err))
	}
}

func (c *Controller) savePlaylists(ctx context.Context) {
	if err := c.store.SavePlaylists(ctx, c.state.Playlists); err != nil {
		logger.Warn("failed to save playlists", logger.ErrorField(err))
	}
}

func (c *Controller) saveQueue(ctx context.Context) {
	if err := c.store.SaveQueue(ctx, c.state.Queue); err != nil {
		logger.Warn("failed to save queue", logger.ErrorField(err))
	}
}
