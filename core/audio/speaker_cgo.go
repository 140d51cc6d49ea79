//go:build (linux && cgo) || windows || darwin

package audio

import (
	"math"
	"sync"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/effects"
	"github.com/gopxl/beep/v2/speaker"
)

// Available reports whether this build can drive a sound device.
const Available = true

const outputRate = beep.SampleRate(44100)

var (
	speakerOnce sync.Once
	speakerErr  error
)

func initSpeaker() error {
	speakerOnce.Do(func() {
		speakerErr = speaker.Init(outputRate, outputRate.N(time.Second/10))
	})
	return speakerErr
}

func newDefaultOutput() output {
	return &speakerOutput{}
}

// speakerOutput plays through the beep speaker. Fields read by the mixer
// are only touched under speaker.Lock.
type speakerOutput struct {
	streamer beep.StreamSeekCloser
	format   beep.Format
	ctrl     *beep.Ctrl
	volume   *effects.Volume
	level    float64
	done     chan struct{}
}

func (o *speakerOutput) open(s beep.StreamSeekCloser, f beep.Format, volume float64) error {
	if err := initSpeaker(); err != nil {
		return err
	}
	o.close()
	o.streamer = s
	o.format = f
	o.level = volume
	return nil
}

func (o *speakerOutput) active() bool {
	if o.done == nil {
		return false
	}
	select {
	case <-o.done:
		return false
	default:
		return true
	}
}

func (o *speakerOutput) play(onEnd func()) {
	if o.streamer == nil {
		return
	}
	if o.active() {
		speaker.Lock()
		o.ctrl.Paused = false
		speaker.Unlock()
		return
	}

	if o.streamer.Position() >= o.streamer.Len() {
		if err := o.streamer.Seek(0); err != nil {
			return
		}
	}
	resampled := beep.Resample(4, o.format.SampleRate, outputRate, o.streamer)
	o.volume = &effects.Volume{Streamer: resampled, Base: 2}
	applyLevel(o.volume, o.level)
	o.ctrl = &beep.Ctrl{Streamer: o.volume}

	done := make(chan struct{})
	o.done = done
	speaker.Play(beep.Seq(o.ctrl, beep.Callback(func() {
		close(done)
		go onEnd()
	})))
}

func (o *speakerOutput) pause() {
	if o.ctrl == nil {
		return
	}
	speaker.Lock()
	o.ctrl.Paused = true
	speaker.Unlock()
}

func (o *speakerOutput) position() time.Duration {
	if o.streamer == nil {
		return 0
	}
	speaker.Lock()
	defer speaker.Unlock()
	return o.format.SampleRate.D(o.streamer.Position())
}

func (o *speakerOutput) duration() time.Duration {
	if o.streamer == nil {
		return 0
	}
	return o.format.SampleRate.D(o.streamer.Len())
}

func (o *speakerOutput) seek(d time.Duration) error {
	if o.streamer == nil {
		return nil
	}
	speaker.Lock()
	defer speaker.Unlock()
	n := max(0, min(o.format.SampleRate.N(d), o.streamer.Len()))
	return o.streamer.Seek(n)
}

func (o *speakerOutput) setVolume(v float64) {
	o.level = v
	if o.volume == nil {
		return
	}
	speaker.Lock()
	applyLevel(o.volume, v)
	speaker.Unlock()
}

func applyLevel(vol *effects.Volume, v float64) {
	vol.Silent = v <= 0
	if v > 0 {
		vol.Volume = math.Log2(v)
	}
}

func (o *speakerOutput) close() {
	if o.streamer == nil {
		return
	}
	speaker.Clear()
	o.streamer.Close()
	o.streamer = nil
	o.ctrl = nil
	o.volume = nil
	o.done = nil
}
