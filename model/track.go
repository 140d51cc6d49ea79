package model

import (
	"strconv"
	"strings"
)

// TrackSource tells where a track came from.
type TrackSource string

const (
	SourceRemote TrackSource = "remote"
	SourceLocal  TrackSource = "local"
)

const (
	remoteIDPrefix = "remote:"
	localIDPrefix  = "local:"
)

// Track is one playable entry of the catalog. Values are never mutated once
// built; the catalog is rebuilt whenever remote or local sets change.
type Track struct {
	ID        string      `json:"id"`
	URL       string      `json:"url"`
	Title     string      `json:"title"`
	Meta      string      `json:"meta"`
	Cacheable bool        `json:"cacheable"` // Eligible for offline pre-fetch
	Source    TrackSource `json:"source"`
	Name      string      `json:"name,omitempty"` // Original file name, local tracks only
}

// RemoteItem is a manifest entry before normalisation.
type RemoteItem struct {
	URL   string `json:"url"`
	Title string `json:"title,omitempty"`
}

// LocalTrack is the persisted record of a file added from the local machine.
// URL is a data: URL when persisted and a file: URL for session-only tracks.
type LocalTrack struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Title string `json:"title"`
	URL   string `json:"url"`
}

// RemoteTrackID builds the id of a track served by the backend.
func RemoteTrackID(url string) string {
	return remoteIDPrefix + url
}

// LocalTrackID builds the id of an uploaded file from its name and size.
func LocalTrackID(name string, size int64) string {
	var b strings.Builder
	b.WriteString(localIDPrefix)
	b.WriteString(name)
	b.WriteByte(':')
	b.WriteString(strconv.FormatInt(size, 10))
	return b.String()
}

// NewRemoteTrack normalises a manifest entry.
func NewRemoteTrack(item RemoteItem) Track {
	return Track{
		ID:        RemoteTrackID(item.URL),
		URL:       item.URL,
		Title:     item.Title,
		Meta:      item.URL,
		Cacheable: true,
		Source:    SourceRemote,
	}
}

// NewLocalTrack normalises an uploaded file record.
func NewLocalTrack(lt LocalTrack) Track {
	return Track{
		ID:        lt.ID,
		URL:       lt.URL,
		Title:     lt.Title,
		Meta:      "Local • " + lt.Name,
		Cacheable: false,
		Source:    SourceLocal,
		Name:      lt.Name,
	}
}
