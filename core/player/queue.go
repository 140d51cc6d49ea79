package player

import (
	"context"
	"slices"
)

const (
	hintQueued       = "Queued for next."
	unavailableTrack = "Unavailable track"
)

// QueueEntry is one row of the queue as shown to the listener.
type QueueEntry struct {
	Position int
	ID       string
	Title    string
}

// Enqueue plays trackID after the current track.
func (c *Controller) Enqueue(ctx context.Context, trackID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.Queue = append(c.state.Queue, trackID)
	c.saveQueue(ctx)
	c.state.CacheHint = hintQueued
}

// Dequeue removes the entry at pos; out of range is a no-op.
func (c *Controller) Dequeue(ctx context.Context, pos int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if pos < 0 || pos >= len(c.state.Queue) {
		return
	}
	c.state.Queue = slices.Delete(slices.Clone(c.state.Queue), pos, pos+1)
	c.saveQueue(ctx)
}

func (c *Controller) ClearQueue(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.Queue = []string{}
	c.saveQueue(ctx)
}

// QueueView resolves queue titles against the playback list, then the
// catalog. Ids found in neither are shown as unavailable.
func (c *Controller) QueueView() []QueueEntry {
	c.mu.Lock()
	defer c.mu.Unlock()
	list := c.playbackList()
	out := make([]QueueEntry, 0, len(c.state.Queue))
	for i, id := range c.state.Queue {
		title := unavailableTrack
		if idx := indexOf(list, id); idx >= 0 {
			title = list[idx].Title
		} else if idx := indexOf(c.state.Catalog, id); idx >= 0 {
			title = c.state.Catalog[idx].Title
		}
		out = append(out, QueueEntry{Position: i, ID: id, Title: title})
	}
	return out
}
