package player

import (
	"context"

	"MusicFlow/model"
)

// resolveNext picks the index to play after the current one in list, which
// must not be empty. Precedence: queue head, shuffle, sequential.
//
// The queue head is popped and persisted exactly once. When its track is not
// in list, resolution continues with shuffle or sequential order in the same
// call instead of waiting for another advance.
func (c *Controller) resolveNext(ctx context.Context, list []model.Track) int {
	if len(c.state.Queue) > 0 {
		id := c.state.Queue[0]
		c.state.Queue = append([]string{}, c.state.Queue[1:]...)
		c.saveQueue(ctx)
		if idx := indexOf(list, id); idx >= 0 {
			return idx
		}
	}

	cur := c.currentIndex(list)
	if c.state.Prefs.ShuffleOn {
		if len(list) == 1 {
			return 0
		}
		next := c.randomOtherThan(cur, len(list))
		if cur >= 0 {
			c.state.History = append(c.state.History, cur)
		}
		return next
	}

	next := cur + 1
	if next >= len(list) {
		if c.state.Prefs.LoopMode == model.LoopAll {
			return 0
		}
		return cur
	}
	return next
}

// randomOtherThan draws uniformly from [0,n) without cur.
func (c *Controller) randomOtherThan(cur, n int) int {
	if cur < 0 || cur >= n {
		return c.intN(n)
	}
	next := c.intN(n - 1)
	if next >= cur {
		next++
	}
	return next
}

func (c *Controller) resolvePrev(list []model.Track) int {
	if c.state.Prefs.ShuffleOn && len(c.state.History) > 0 {
		last := len(c.state.History) - 1
		idx := c.state.History[last]
		c.state.History = c.state.History[:last]
		return idx
	}

	prev := c.currentIndex(list) - 1
	if prev < 0 {
		if c.state.Prefs.LoopMode == model.LoopAll {
			return len(list) - 1
		}
		return 0
	}
	return prev
}
