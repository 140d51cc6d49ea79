package audio

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"math"
	"reflect"
	"testing"
	"time"

	"MusicFlow/core/player"
)

// silentWAV returns a mono 16-bit PCM file of the given length at 8 kHz.
func silentWAV(d time.Duration) []byte {
	const rate = 8000
	samples := int(d.Seconds() * rate)
	dataLen := samples * 2

	var b bytes.Buffer
	b.WriteString("RIFF")
	binary.Write(&b, binary.LittleEndian, uint32(36+dataLen))
	b.WriteString("WAVEfmt ")
	binary.Write(&b, binary.LittleEndian, uint32(16))
	binary.Write(&b, binary.LittleEndian, uint16(1)) // PCM
	binary.Write(&b, binary.LittleEndian, uint16(1)) // mono
	binary.Write(&b, binary.LittleEndian, uint32(rate))
	binary.Write(&b, binary.LittleEndian, uint32(rate*2))
	binary.Write(&b, binary.LittleEndian, uint16(2))
	binary.Write(&b, binary.LittleEndian, uint16(16))
	b.WriteString("data")
	binary.Write(&b, binary.LittleEndian, uint32(dataLen))
	b.Write(make([]byte, dataLen))
	return b.Bytes()
}

func wavDataURL(d time.Duration) string {
	return "data:audio/wav;base64," + base64.StdEncoding.EncodeToString(silentWAV(d))
}

func newTestPlayer(t *testing.T) (*Player, <-chan player.MediaEvent) {
	t.Helper()
	f, err := NewFetcher(nil, "http://localhost/")
	if err != nil {
		t.Fatal(err)
	}
	p := newPlayer(f, newClockOutput())
	events := make(chan player.MediaEvent, 64)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go p.Run(ctx, func(_ uint64, ev player.MediaEvent) {
		if ev != player.EventTimeUpdate {
			events <- ev
		}
	})
	return p, events
}

func waitFor(t *testing.T, events <-chan player.MediaEvent, last player.MediaEvent) []player.MediaEvent {
	t.Helper()
	var got []player.MediaEvent
	timeout := time.After(2 * time.Second)
	for {
		select {
		case ev := <-events:
			got = append(got, ev)
			if ev == last {
				return got
			}
		case <-timeout:
			t.Fatalf("timed out waiting for %s, got %v", last, got)
		}
	}
}

func TestPlayerPlaysToEnd(t *testing.T) {
	p, events := newTestPlayer(t)
	if !math.IsNaN(p.Duration()) {
		t.Error("duration must be NaN before load")
	}
	if err := p.Play(); !errors.Is(err, ErrNoSource) {
		t.Errorf("got %v", err)
	}

	src := wavDataURL(50 * time.Millisecond)
	if err := p.Load(src); err != nil {
		t.Fatal(err)
	}
	if err := p.Play(); err != nil {
		t.Fatal(err)
	}

	got := waitFor(t, events, player.EventEnded)
	want := []player.MediaEvent{
		player.EventLoadStart,
		player.EventLoadedMetadata,
		player.EventDurationChange,
		player.EventPlaying,
		player.EventPause,
		player.EventEnded,
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
	if d := p.Duration(); math.Abs(d-0.05) > 0.001 {
		t.Errorf("duration: got %v", d)
	}
	if !p.Paused() || p.Source() != src {
		t.Error("an ended player is paused and keeps its source")
	}

	// Playing again after the end restarts from the top.
	p.SetCurrentTime(0)
	if err := p.Play(); err != nil {
		t.Fatal(err)
	}
	waitFor(t, events, player.EventEnded)
}

func TestPlayerClearDropsPendingEnd(t *testing.T) {
	p, events := newTestPlayer(t)
	p.Load(wavDataURL(80 * time.Millisecond))
	p.Play()
	waitFor(t, events, player.EventPlaying)

	p.Clear()
	if p.Source() != "" || !p.Paused() {
		t.Fatal("clear must drop the source and pause")
	}
	select {
	case ev := <-events:
		t.Fatalf("unexpected event %s after clear", ev)
	case <-time.After(200 * time.Millisecond):
	}
}

func TestPlayerPauseAndSeek(t *testing.T) {
	p, events := newTestPlayer(t)
	p.Load(wavDataURL(time.Second))
	waitFor(t, events, player.EventDurationChange)

	p.SetCurrentTime(0.5)
	if got := p.CurrentTime(); got != 0.5 {
		t.Errorf("got %v", got)
	}
	p.SetCurrentTime(5)
	if got := p.CurrentTime(); got != 1 {
		t.Errorf("seek must clamp to the duration, got %v", got)
	}

	p.SetCurrentTime(0)
	p.Play()
	waitFor(t, events, player.EventPlaying)
	p.Pause()
	if got := waitFor(t, events, player.EventPause); len(got) != 1 {
		t.Errorf("got %v", got)
	}
	at := p.CurrentTime()
	time.Sleep(30 * time.Millisecond)
	if p.CurrentTime() != at {
		t.Error("position must not move while paused")
	}
}

func TestPlayerStampsEventsWithGeneration(t *testing.T) {
	f, err := NewFetcher(nil, "http://localhost/")
	if err != nil {
		t.Fatal(err)
	}
	p := newPlayer(f, newClockOutput())
	type stamped struct {
		gen uint64
		ev  player.MediaEvent
	}
	events := make(chan stamped, 64)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go p.Run(ctx, func(gen uint64, ev player.MediaEvent) {
		if ev != player.EventTimeUpdate {
			events <- stamped{gen, ev}
		}
	})

	p.Load(wavDataURL(time.Second))
	first := p.Generation()
	p.Load(wavDataURL(2 * time.Second))
	second := p.Generation()
	if first == second {
		t.Fatal("each load must start a new generation")
	}

	// The first source may or may not finish decoding before it is replaced,
	// so only the second generation's events are pinned down.
	var all, latest []player.MediaEvent
	timeout := time.After(2 * time.Second)
	for len(latest) == 0 || latest[len(latest)-1] != player.EventDurationChange {
		select {
		case e := <-events:
			if len(all) == 0 && (e.gen != first || e.ev != player.EventLoadStart) {
				t.Fatalf("first event: got %v", e)
			}
			all = append(all, e.ev)
			switch e.gen {
			case second:
				latest = append(latest, e.ev)
			case first:
			default:
				t.Fatalf("unknown generation %d", e.gen)
			}
		case <-timeout:
			t.Fatalf("timed out, got %v", all)
		}
	}
	want := []player.MediaEvent{player.EventLoadStart, player.EventLoadedMetadata, player.EventDurationChange}
	if !reflect.DeepEqual(latest, want) {
		t.Errorf("got %v, want %v", latest, want)
	}

	p.Clear()
	if p.Generation() == second {
		t.Error("clear must start a new generation")
	}
}
