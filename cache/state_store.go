package cache

import (
	"context"
	"encoding/json"
	"fmt"

	"MusicFlow/logger"
	"MusicFlow/model"
)

// Storage keys of the four persisted categories.
const (
	KeyPlaylists   = "mf_playlists"
	KeyLocalTracks = "mf_local_tracks"
	KeyPrefs       = "mf_prefs"
	KeyQueue       = "mf_queue"
	keyProbe       = "mf_probe"
)

// StateStore reads and writes the listener's playlists, uploaded tracks,
// preferences and play queue. Every category is an independent JSON blob: a
// corrupted one falls back to its empty default without touching the others.
type StateStore struct {
	backend Backend
	prefix  string
}

// NewStateStore namespaces every key with profile.
func NewStateStore(backend Backend, profile string) *StateStore {
	prefix := ""
	if profile != "" {
		prefix = profile + ":"
	}
	return &StateStore{backend: backend, prefix: prefix}
}

// load decodes the blob at key into dst. It reports false when the key is
// missing, unreadable or corrupted, in which case dst must be reset by the
// caller.
func (s *StateStore) load(ctx context.Context, key string, dst interface{}) bool {
	raw, ok, err := s.backend.Get(ctx, s.prefix+key)
	if err != nil {
		logger.Warn("failed to read persisted state", logger.String("key", key), logger.ErrorField(err))
		return false
	}
	if !ok {
		return false
	}
	if err := json.Unmarshal([]byte(raw), dst); err != nil {
		logger.Warn("corrupted persisted state, using default", logger.String("key", key), logger.ErrorField(err))
		return false
	}
	return true
}

func (s *StateStore) save(ctx context.Context, key string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", key, err)
	}
	if err := s.backend.Set(ctx, s.prefix+key, string(data)); err != nil {
		return fmt.Errorf("failed to save %s: %w", key, err)
	}
	return nil
}

// LoadPlaylists returns the stored playlists, or an empty list.
func (s *StateStore) LoadPlaylists(ctx context.Context) []model.Playlist {
	var playlists []model.Playlist
	if !s.load(ctx, KeyPlaylists, &playlists) || playlists == nil {
		return []model.Playlist{}
	}
	for i := range playlists {
		if playlists[i].TrackIDs == nil {
			playlists[i].TrackIDs = []string{}
		}
	}
	return playlists
}

func (s *StateStore) SavePlaylists(ctx context.Context, playlists []model.Playlist) error {
	if playlists == nil {
		playlists = []model.Playlist{}
	}
	return s.save(ctx, KeyPlaylists, playlists)
}

// LoadLocalTracks returns the persisted uploaded tracks, or an empty list.
func (s *StateStore) LoadLocalTracks(ctx context.Context) []model.LocalTrack {
	var tracks []model.LocalTrack
	if !s.load(ctx, KeyLocalTracks, &tracks) || tracks == nil {
		return []model.LocalTrack{}
	}
	return tracks
}

func (s *StateStore) SaveLocalTracks(ctx context.Context, tracks []model.LocalTrack) error {
	if tracks == nil {
		tracks = []model.LocalTrack{}
	}
	return s.save(ctx, KeyLocalTracks, tracks)
}

// LoadPreferences returns the stored preferences, or the defaults.
func (s *StateStore) LoadPreferences(ctx context.Context) model.Preferences {
	var stored struct {
		ShuffleOn          bool   `json:"shuffleOn"`
		LoopMode           string `json:"loopMode"`
		SelectedPlaylistID string `json:"selectedPlaylistId"`
		PlaylistFilterID   string `json:"playlistFilterId"`
	}
	if !s.load(ctx, KeyPrefs, &stored) {
		return model.DefaultPreferences()
	}
	return model.Preferences{
		ShuffleOn:          stored.ShuffleOn,
		LoopMode:           model.ParseLoopMode(stored.LoopMode),
		SelectedPlaylistID: stored.SelectedPlaylistID,
		PlaylistFilterID:   stored.PlaylistFilterID,
	}
}

func (s *StateStore) SavePreferences(ctx context.Context, prefs model.Preferences) error {
	return s.save(ctx, KeyPrefs, prefs)
}

// LoadQueue returns the stored play queue, or an empty one.
func (s *StateStore) LoadQueue(ctx context.Context) []string {
	var queue []string
	if !s.load(ctx, KeyQueue, &queue) || queue == nil {
		return []string{}
	}
	return queue
}

func (s *StateStore) SaveQueue(ctx context.Context, queue []string) error {
	if queue == nil {
		queue = []string{}
	}
	return s.save(ctx, KeyQueue, queue)
}

// Probe checks that the backend still accepts writes.
func (s *StateStore) Probe(ctx context.Context) error {
	key := s.prefix + keyProbe
	if err := s.backend.Set(ctx, key, "x"); err != nil {
		return err
	}
	return s.backend.Delete(ctx, key)
}
