package model

import "slices"

// Playlist is a named, ordered set of track ids created by the listener.
type Playlist struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	TrackIDs []string `json:"trackIds"`
}

// Contains reports whether trackID is a member of the playlist.
func (p *Playlist) Contains(trackID string) bool {
	return slices.Contains(p.TrackIDs, trackID)
}

// Add appends trackID unless it is already a member. It reports whether the
// membership changed.
func (p *Playlist) Add(trackID string) bool {
	if p.Contains(trackID) {
		return false
	}
	p.TrackIDs = append(p.TrackIDs, trackID)
	return true
}

// Remove drops trackID from the membership. It reports whether it was present.
func (p *Playlist) Remove(trackID string) bool {
	idx := slices.Index(p.TrackIDs, trackID)
	if idx < 0 {
		return false
	}
	p.TrackIDs = slices.Delete(p.TrackIDs, idx, idx+1)
	return true
}

// Clone returns a copy that shares no memory with p.
func (p Playlist) Clone() Playlist {
	p.TrackIDs = slices.Clone(p.TrackIDs)
	if p.TrackIDs == nil {
		p.TrackIDs = []string{}
	}
	return p
}
