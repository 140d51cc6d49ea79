package player

// Media is the audio output the controller drives. Implementations must
// report their events through Controller.HandleMediaEventAt from their own
// goroutine, never from inside one of these calls.
type Media interface {
	Load(url string) error
	Play() error
	Pause()
	Paused() bool
	Source() string
	Clear()
	Duration() float64 // NaN while unknown
	CurrentTime() float64
	SetCurrentTime(sec float64)
	SetVolume(v float64) // 0..1
	// Generation changes on every Load and Clear. Events carry the value
	// that was current when they were raised.
	Generation() uint64
}

// MediaEvent is a notification emitted by a Media.
type MediaEvent string

const (
	EventLoadStart      MediaEvent = "loadstart"
	EventPlaying        MediaEvent = "playing"
	EventPause          MediaEvent = "pause"
	EventEnded          MediaEvent = "ended"
	EventLoadedMetadata MediaEvent = "loadedmetadata"
	EventTimeUpdate     MediaEvent = "timeupdate"
	EventDurationChange MediaEvent = "durationchange"
)

// Status is the playback state as seen from media events.
type Status string

const (
	StatusIdle    Status = "idle"
	StatusLoading Status = "loading"
	StatusPlaying Status = "playing"
	StatusPaused  Status = "paused"
	StatusEnded   Status = "ended"
)

const (
	labelPlay  = "Play"
	labelPause = "Pause"
)
