package offline

// MessageType identifies a message exchanged between the player and the
// offline worker.
type MessageType string

const (
	// MsgCacheTracks asks the worker to pre-fetch URLs (player -> worker).
	MsgCacheTracks MessageType = "CACHE_TRACKS"
	// MsgCacheProgress reports one more attempted URL (worker -> player).
	MsgCacheProgress MessageType = "CACHE_PROGRESS"
	// MsgCacheDone closes a batch (worker -> player).
	MsgCacheDone MessageType = "CACHE_DONE"
)

// Message is the wire form of every worker message.
type Message struct {
	Type  MessageType `json:"type"`
	URLs  []string    `json:"urls,omitempty"`
	Done  int         `json:"done,omitempty"`
	Total int         `json:"total"`
}

// CacheTracks builds a pre-fetch request.
func CacheTracks(urls []string) Message {
	return Message{Type: MsgCacheTracks, URLs: urls, Total: len(urls)}
}

// DefaultAssets is the application shell stored on install.
var DefaultAssets = []string{
	"./",
	"./index.html",
	"./styles.css",
	"./app.js",
	"./manifest.webmanifest",
	"./icon.svg",
}

// IndexKey is the asset every navigation request is answered with.
const IndexKey = "./index.html"

// AssetPartition names the partition holding the application shell.
func AssetPartition(version string) string {
	return "assets-" + version
}

// MusicPartition names the partition holding pre-fetched tracks.
func MusicPartition(version string) string {
	return "music-" + version
}
