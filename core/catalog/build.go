package catalog

import (
	"MusicFlow/model"

	"github.com/samber/lo"
)

// Build assembles the working catalog: persisted local tracks first, then
// session-only tracks, then the remote ones, each in its own order.
func Build(remote []model.RemoteItem, local, session []model.LocalTrack) []model.Track {
	tracks := make([]model.Track, 0, len(remote)+len(local)+len(session))
	for _, lt := range local {
		tracks = append(tracks, model.NewLocalTrack(lt))
	}
	for _, lt := range session {
		tracks = append(tracks, model.NewLocalTrack(lt))
	}
	for _, item := range remote {
		tracks = append(tracks, model.NewRemoteTrack(item))
	}
	return tracks
}

// CacheableURLs lists the URLs eligible for offline pre-fetch.
func CacheableURLs(tracks []model.Track) []string {
	return lo.FilterMap(tracks, func(t model.Track, _ int) (string, bool) {
		return t.URL, t.Cacheable
	})
}
