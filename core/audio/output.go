package audio

import (
	"sync"
	"time"

	"github.com/gopxl/beep/v2"
)

// output renders one decoded stream at a time. All methods are called
// with the owning Player's lock held; onEnd must not block on it.
type output interface {
	open(s beep.StreamSeekCloser, f beep.Format, volume float64) error
	play(onEnd func())
	pause()
	position() time.Duration
	duration() time.Duration
	seek(d time.Duration) error
	setVolume(v float64)
	close()
}

// clockOutput plays nothing and only keeps time, so playback still
// advances through a list on hosts without a sound device.
type clockOutput struct {
	mu      sync.Mutex
	length  time.Duration
	offset  time.Duration
	started time.Time
	running bool
	timer   *time.Timer
	run     uint64
	onEnd   func()
}

func newClockOutput() *clockOutput {
	return &clockOutput{}
}

func (c *clockOutput) open(s beep.StreamSeekCloser, f beep.Format, _ float64) error {
	c.close()
	c.mu.Lock()
	defer c.mu.Unlock()
	c.length = f.SampleRate.D(s.Len())
	c.offset = 0
	return s.Close()
}

func (c *clockOutput) play(onEnd func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.running {
		return
	}
	if c.offset >= c.length {
		c.offset = 0
	}
	c.onEnd = onEnd
	c.armLocked()
}

// armLocked starts the end timer from the current offset. A timer that
// fires after being superseded sees a newer run and does nothing.
func (c *clockOutput) armLocked() {
	c.run++
	run := c.run
	c.started = time.Now()
	c.running = true
	c.timer = time.AfterFunc(c.length-c.offset, func() {
		c.mu.Lock()
		if run != c.run || !c.running {
			c.mu.Unlock()
			return
		}
		c.offset = c.length
		c.running = false
		onEnd := c.onEnd
		c.mu.Unlock()
		onEnd()
	})
}

func (c *clockOutput) pause() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopLocked()
}

func (c *clockOutput) stopLocked() {
	if !c.running {
		return
	}
	c.offset = c.positionLocked()
	c.running = false
	c.run++
	c.timer.Stop()
}

func (c *clockOutput) position() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.positionLocked()
}

func (c *clockOutput) positionLocked() time.Duration {
	if !c.running {
		return c.offset
	}
	return min(c.offset+time.Since(c.started), c.length)
}

func (c *clockOutput) duration() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.length
}

func (c *clockOutput) seek(d time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	d = max(0, min(d, c.length))
	if !c.running {
		c.offset = d
		return nil
	}
	c.timer.Stop()
	c.offset = d
	c.armLocked()
	return nil
}

func (c *clockOutput) setVolume(float64) {}

func (c *clockOutput) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopLocked()
	c.length = 0
	c.offset = 0
}
