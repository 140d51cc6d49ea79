package model

// LoopMode controls what happens when the playback list runs out.
type LoopMode string

const (
	LoopOff LoopMode = "off"
	LoopOne LoopMode = "one" // Repeat the current track
	LoopAll LoopMode = "all" // Wrap around the playback list
)

// ParseLoopMode maps unknown or empty values to LoopOff.
func ParseLoopMode(s string) LoopMode {
	switch LoopMode(s) {
	case LoopOne:
		return LoopOne
	case LoopAll:
		return LoopAll
	default:
		return LoopOff
	}
}

// Next returns the mode that follows m in the off → all → one cycle.
func (m LoopMode) Next() LoopMode {
	switch m {
	case LoopOff:
		return LoopAll
	case LoopAll:
		return LoopOne
	default:
		return LoopOff
	}
}

// Label is the text shown on the loop control.
func (m LoopMode) Label() string {
	switch m {
	case LoopAll:
		return "Loop: All"
	case LoopOne:
		return "Loop: One"
	default:
		return "Loop: Off"
	}
}

// Preferences are the listener's persisted playback settings.
type Preferences struct {
	ShuffleOn          bool     `json:"shuffleOn"`
	LoopMode           LoopMode `json:"loopMode"`
	SelectedPlaylistID string   `json:"selectedPlaylistId"`
	PlaylistFilterID   string   `json:"playlistFilterId"`
}

// DefaultPreferences is used when nothing valid is stored.
func DefaultPreferences() Preferences {
	return Preferences{LoopMode: LoopOff}
}

// ShuffleLabel is the text shown on the shuffle control.
func (p Preferences) ShuffleLabel() string {
	if p.ShuffleOn {
		return "Shuffle: On"
	}
	return "Shuffle"
}
