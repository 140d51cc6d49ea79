package player

import (
	"context"
	"strings"

	"MusicFlow/logger"
	"MusicFlow/model"

	"github.com/google/uuid"
)

const (
	hintSelectPlaylist = "Create or select a playlist first."
	hintAddedToList    = "Added to playlist."
)

func (c *Controller) findPlaylist(id string) *model.Playlist {
	for i := range c.state.Playlists {
		if c.state.Playlists[i].ID == id {
			return &c.state.Playlists[i]
		}
	}
	return nil
}

func newPlaylistID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return "pl:" + uuid.NewString()
	}
	return "pl:" + id.String()
}

// CreatePlaylist adds an empty playlist and selects it. A blank name is
// ignored. It returns the new id.
func (c *Controller) CreatePlaylist(ctx context.Context, name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	id := newPlaylistID()
	c.state.Playlists = append(c.state.Playlists, model.Playlist{ID: id, Name: name, TrackIDs: []string{}})
	c.state.Prefs.SelectedPlaylistID = id
	c.savePlaylists(ctx)
	c.savePrefs(ctx)
	logger.Debug("playlist created", logger.String("id", id), logger.String("name", name))
	return id
}

// AddToSelectedPlaylist appends trackID to the selected playlist.
func (c *Controller) AddToSelectedPlaylist(ctx context.Context, trackID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	selected := c.state.Prefs.SelectedPlaylistID
	if selected == "" {
		c.state.CacheHint = hintSelectPlaylist
		return
	}
	pl := c.findPlaylist(selected)
	if pl == nil {
		return
	}
	if pl.Add(trackID) {
		c.savePlaylists(ctx)
		c.state.CacheHint = hintAddedToList
	}
}

// RemoveFromPlaylist drops trackID from a playlist. When that playlist is the
// active filter the filter-change rules apply.
func (c *Controller) RemoveFromPlaylist(ctx context.Context, playlistID, trackID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	pl := c.findPlaylist(playlistID)
	if pl == nil || !pl.Remove(trackID) {
		return
	}
	c.savePlaylists(ctx)
	if c.state.Prefs.PlaylistFilterID == playlistID {
		c.filterChanged(ctx)
	}
}

func (c *Controller) RenamePlaylist(ctx context.Context, playlistID, name string) {
	name = strings.TrimSpace(name)
	if name == "" {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	pl := c.findPlaylist(playlistID)
	if pl == nil {
		return
	}
	pl.Name = name
	c.savePlaylists(ctx)
}

// DeletePlaylist removes a playlist and clears any selection or filter that
// pointed at it.
func (c *Controller) DeletePlaylist(ctx context.Context, playlistID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	idx := -1
	for i, pl := range c.state.Playlists {
		if pl.ID == playlistID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return
	}
	c.state.Playlists = append(c.state.Playlists[:idx:idx], c.state.Playlists[idx+1:]...)
	c.savePlaylists(ctx)

	if c.state.Prefs.SelectedPlaylistID == playlistID {
		c.state.Prefs.SelectedPlaylistID = ""
	}
	if c.state.Prefs.PlaylistFilterID == playlistID {
		c.state.Prefs.PlaylistFilterID = ""
		c.filterChanged(ctx)
		return
	}
	c.savePrefs(ctx)
}

// SelectPlaylist selects a playlist and filters playback to it. An empty id
// clears both.
func (c *Controller) SelectPlaylist(ctx context.Context, playlistID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.Prefs.SelectedPlaylistID = playlistID
	c.state.Prefs.PlaylistFilterID = playlistID
	c.filterChanged(ctx)
}

// ViewSelectedPlaylist filters playback to the selected playlist.
func (c *Controller) ViewSelectedPlaylist(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.Prefs.PlaylistFilterID = c.state.Prefs.SelectedPlaylistID
	c.filterChanged(ctx)
}

func (c *Controller) ClearFilter(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.Prefs.PlaylistFilterID = ""
	c.filterChanged(ctx)
}

// filterChanged resets shuffle history, persists preferences and stops
// playback when the current track left the playback list.
func (c *Controller) filterChanged(ctx context.Context) {
	c.state.History = []int{}
	if c.state.CurrentID != "" && c.currentIndex(c.playbackList()) < 0 {
		c.stop()
	}
	c.savePrefs(ctx)
}

func (c *Controller) stop() {
	c.media.Pause()
	c.media.Clear()
	c.state.CurrentID = ""
	c.state.NowTitle = ""
	c.state.NowMeta = ""
	c.state.PlayLabel = labelPlay
	c.state.Status = StatusIdle
	c.state.SeekValue = 0
	c.state.SeekMax = 0
}
