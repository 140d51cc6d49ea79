package audio

import (
	"context"
	"errors"
	"math"
	"sync"
	"time"

	"MusicFlow/core/player"
	"MusicFlow/logger"
)

var ErrNoSource = errors.New("no source loaded")

const (
	loadTimeout        = 2 * time.Minute
	timeUpdateInterval = 250 * time.Millisecond
)

// Player is a player.Media backed by beep. Loading is asynchronous: Load
// returns at once and the stream starts when its bytes are decoded, as
// long as Play was requested in between. Events are queued and delivered
// in order by Run.
type Player struct {
	fetcher *Fetcher
	events  *eventQueue

	mu     sync.Mutex
	out    output
	src    string
	gen    uint64
	cancel context.CancelFunc
	ready  bool
	paused bool
	volume float64
}

// NewPlayer returns a Player on the sound device, or a silent one that
// only keeps time when silent is set or the build has no audio support.
func NewPlayer(fetcher *Fetcher, silent bool) *Player {
	var out output
	if silent {
		out = newClockOutput()
	} else {
		out = newDefaultOutput()
	}
	return newPlayer(fetcher, out)
}

func newPlayer(fetcher *Fetcher, out output) *Player {
	return &Player{
		fetcher: fetcher,
		events:  newEventQueue(),
		out:     out,
		paused:  true,
		volume:  1,
	}
}

func (p *Player) Load(url string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.resetLocked()
	p.gen++
	p.src = url
	ctx, cancel := context.WithTimeout(context.Background(), loadTimeout)
	p.cancel = cancel
	p.events.push(p.gen, player.EventLoadStart)

	go p.load(ctx, p.gen, url)
	return nil
}

func (p *Player) load(ctx context.Context, gen uint64, url string) {
	data, contentType, err := p.fetcher.Fetch(ctx, url)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			logger.Warn("failed to fetch track", logger.String("url", shorten(url)), logger.ErrorField(err))
		}
		return
	}
	s, format, err := decode(data, contentType, url)
	if err != nil {
		logger.Warn("failed to decode track", logger.String("url", shorten(url)), logger.ErrorField(err))
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if gen != p.gen {
		s.Close()
		return
	}
	p.cancel()
	p.cancel = nil

	if err := p.out.open(s, format, p.volume); err != nil {
		logger.Warn("audio output unavailable, continuing silently", logger.ErrorField(err))
		p.out = newClockOutput()
		if err := p.out.open(s, format, p.volume); err != nil {
			s.Close()
			return
		}
	}
	p.ready = true
	p.events.push(gen, player.EventLoadedMetadata)
	p.events.push(gen, player.EventDurationChange)
	if !p.paused {
		p.out.play(p.endFunc(gen))
		p.events.push(gen, player.EventPlaying)
	}
}

// endFunc ignores ends that belong to a source replaced since.
func (p *Player) endFunc(gen uint64) func() {
	return func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		if gen != p.gen {
			return
		}
		p.paused = true
		p.events.push(gen, player.EventTimeUpdate)
		p.events.push(gen, player.EventPause)
		p.events.push(gen, player.EventEnded)
	}
}

func (p *Player) Play() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.src == "" {
		return ErrNoSource
	}
	if !p.paused {
		return nil
	}
	p.paused = false
	if p.ready {
		p.out.play(p.endFunc(p.gen))
		p.events.push(p.gen, player.EventPlaying)
	}
	return nil
}

func (p *Player) Pause() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.paused {
		return
	}
	p.paused = true
	if p.ready {
		p.out.pause()
	}
	p.events.push(p.gen, player.EventPause)
}

func (p *Player) Paused() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.paused
}

func (p *Player) Generation() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.gen
}

func (p *Player) Source() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.src
}

// Clear drops the source and stops any output.
func (p *Player) Clear() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.resetLocked()
	p.gen++
	p.src = ""
	p.paused = true
}

func (p *Player) resetLocked() {
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
	if p.ready {
		p.out.close()
		p.ready = false
	}
}

func (p *Player) Duration() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.ready {
		return math.NaN()
	}
	return p.out.duration().Seconds()
}

func (p *Player) CurrentTime() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.ready {
		return 0
	}
	return p.out.position().Seconds()
}

func (p *Player) SetCurrentTime(sec float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.ready || math.IsNaN(sec) {
		return
	}
	d := time.Duration(sec * float64(time.Second))
	if err := p.out.seek(d); err != nil {
		logger.Warn("seek failed", logger.Float64("sec", sec), logger.ErrorField(err))
		return
	}
	p.events.push(p.gen, player.EventTimeUpdate)
}

func (p *Player) SetVolume(v float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.volume = max(0, min(v, 1))
	if p.ready {
		p.out.setVolume(p.volume)
	}
}

func (p *Player) playing() (uint64, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.gen, p.ready && !p.paused
}

// Run delivers queued events to sink with the generation they were raised
// in, plus a timeupdate every tick while playing, until ctx is done. sink is
// always called from this goroutine.
func (p *Player) Run(ctx context.Context, sink func(gen uint64, ev player.MediaEvent)) {
	ticker := time.NewTicker(timeUpdateInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if gen, ok := p.playing(); ok {
				sink(gen, player.EventTimeUpdate)
			}
		case <-p.events.wake:
			for _, e := range p.events.drain() {
				sink(e.gen, e.ev)
			}
		}
	}
}

// Close stops playback for good.
func (p *Player) Close() {
	p.Clear()
}

// eventQueue is an unbounded FIFO so that pushing never blocks the
// caller, which may be holding the controller lock.
type eventQueue struct {
	mu      sync.Mutex
	pending []queuedEvent
	wake    chan struct{}
}

type queuedEvent struct {
	gen uint64
	ev  player.MediaEvent
}

func newEventQueue() *eventQueue {
	return &eventQueue{wake: make(chan struct{}, 1)}
}

func (q *eventQueue) push(gen uint64, ev player.MediaEvent) {
	q.mu.Lock()
	q.pending = append(q.pending, queuedEvent{gen: gen, ev: ev})
	q.mu.Unlock()
	select {
	case q.wake <- struct{}{}:
	default:
	}
}

func (q *eventQueue) drain() []queuedEvent {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := q.pending
	q.pending = nil
	return out
}

// shorten keeps data URLs out of the logs.
func shorten(url string) string {
	if len(url) > 64 {
		return url[:64] + "..."
	}
	return url
}
