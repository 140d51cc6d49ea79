package player

import (
	"slices"

	"MusicFlow/model"

	"github.com/samber/lo"
)

// State is everything the controller knows. Only the controller mutates it.
type State struct {
	Catalog   []model.Track
	Remote    []model.RemoteItem
	Local     []model.LocalTrack
	Session   []model.LocalTrack // Not persisted
	Playlists []model.Playlist
	Queue     []string
	Prefs     model.Preferences
	History   []int // Shuffle backtracking, indices into the playback list

	CurrentID string
	Status    Status
	NowTitle  string
	NowMeta   string
	PlayLabel string
	SeekMax   float64
	SeekValue float64
	Volume    int // 0..100

	CacheHint  string
	ImportHint string
}

func newState() State {
	return State{
		Catalog:   []model.Track{},
		Remote:    []model.RemoteItem{},
		Local:     []model.LocalTrack{},
		Session:   []model.LocalTrack{},
		Playlists: []model.Playlist{},
		Queue:     []string{},
		Prefs:     model.DefaultPreferences(),
		History:   []int{},
		Status:    StatusIdle,
		PlayLabel: labelPlay,
		Volume:    100,
	}
}

func (s State) clone() State {
	out := s
	out.Catalog = slices.Clone(s.Catalog)
	out.Remote = slices.Clone(s.Remote)
	out.Local = slices.Clone(s.Local)
	out.Session = slices.Clone(s.Session)
	out.Playlists = lo.Map(s.Playlists, func(p model.Playlist, _ int) model.Playlist { return p.Clone() })
	out.Queue = slices.Clone(s.Queue)
	out.History = slices.Clone(s.History)
	return out
}

// Snapshot returns a deep copy of the current state.
func (c *Controller) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.clone()
}

// Restore replaces the whole state. The media element is left untouched.
func (c *Controller) Restore(s State) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = s.clone()
}
