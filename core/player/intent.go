package player

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"MusicFlow/core/upload"
)

var (
	ErrUnknownIntent = errors.New("unknown intent")
	ErrBadArgument   = errors.New("bad intent argument")
)

// IntentKind names a listener action.
type IntentKind string

const (
	IntentPlay               IntentKind = "play"
	IntentPause              IntentKind = "pause"
	IntentTogglePlay         IntentKind = "toggle"
	IntentNext               IntentKind = "next"
	IntentPrev               IntentKind = "prev"
	IntentPlayIndex          IntentKind = "play-index"
	IntentSeek               IntentKind = "seek"
	IntentSetVolume          IntentKind = "volume"
	IntentToggleShuffle      IntentKind = "shuffle"
	IntentCycleLoop          IntentKind = "loop"
	IntentSelectPlaylist     IntentKind = "select"
	IntentViewPlaylist       IntentKind = "view"
	IntentClearFilter        IntentKind = "all"
	IntentCreatePlaylist     IntentKind = "create"
	IntentAddToPlaylist      IntentKind = "add"
	IntentRemoveFromPlaylist IntentKind = "remove"
	IntentRenamePlaylist     IntentKind = "rename"
	IntentDeletePlaylist     IntentKind = "delete"
	IntentEnqueue            IntentKind = "enqueue"
	IntentDequeue            IntentKind = "dequeue"
	IntentClearQueue         IntentKind = "clear-queue"
	IntentRefresh            IntentKind = "refresh"
	IntentImport             IntentKind = "import"
	IntentAddLocal           IntentKind = "upload"
)

// Intent is one listener action with its arguments.
type Intent struct {
	Kind IntentKind

	// Index addresses the playback list (PlayIndex, and AddToPlaylist or
	// Enqueue when TrackID is empty) or the queue (Dequeue).
	Index int
	// Fraction is a pointer position along a bar, 0..1 (Seek, SetVolume).
	Fraction   float64
	PlaylistID string
	TrackID    string
	Text       string // Playlist name or URL
	Paths      []string
}

// Dispatch applies an intent.
func (c *Controller) Dispatch(ctx context.Context, in Intent) error {
	switch in.Kind {
	case IntentPlay:
		c.Play()
	case IntentPause:
		c.Pause()
	case IntentTogglePlay:
		c.TogglePlay()
	case IntentNext:
		c.Next(ctx)
	case IntentPrev:
		c.Prev()
	case IntentPlayIndex:
		c.PlayIndex(in.Index)
	case IntentSeek:
		c.SeekFromPointer(in.Fraction, 0, 1)
	case IntentSetVolume:
		c.VolumeFromPointer(in.Fraction, 0, 1)
	case IntentToggleShuffle:
		c.ToggleShuffle(ctx)
	case IntentCycleLoop:
		c.CycleLoop(ctx)
	case IntentSelectPlaylist:
		c.SelectPlaylist(ctx, in.PlaylistID)
	case IntentViewPlaylist:
		c.ViewSelectedPlaylist(ctx)
	case IntentClearFilter:
		c.ClearFilter(ctx)
	case IntentCreatePlaylist:
		c.CreatePlaylist(ctx, in.Text)
	case IntentAddToPlaylist:
		if id, ok := c.trackRef(in); ok {
			c.AddToSelectedPlaylist(ctx, id)
		}
	case IntentRemoveFromPlaylist:
		c.RemoveFromPlaylist(ctx, in.PlaylistID, in.TrackID)
	case IntentRenamePlaylist:
		c.RenamePlaylist(ctx, in.PlaylistID, in.Text)
	case IntentDeletePlaylist:
		c.DeletePlaylist(ctx, in.PlaylistID)
	case IntentEnqueue:
		if id, ok := c.trackRef(in); ok {
			c.Enqueue(ctx, id)
		}
	case IntentDequeue:
		c.Dequeue(ctx, in.Index)
	case IntentClearQueue:
		c.ClearQueue(ctx)
	case IntentRefresh:
		c.Refresh(ctx)
	case IntentImport:
		c.ImportFromURL(ctx, in.Text)
	case IntentAddLocal:
		files, err := upload.PickFiles(in.Paths)
		if err != nil {
			return err
		}
		c.AddLocalFiles(ctx, files)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownIntent, in.Kind)
	}
	return nil
}

// trackRef returns the explicit track id, or the id at Index in the
// playback list.
func (c *Controller) trackRef(in Intent) (string, bool) {
	if in.TrackID != "" {
		return in.TrackID, true
	}
	list := c.PlaybackList()
	if in.Index < 0 || in.Index >= len(list) {
		return "", false
	}
	return list[in.Index].ID, true
}

// ParseIntent reads a command line such as "play 3" or "create Road trip".
// Row and queue numbers are 1-based; volume is 0..100; seek is 0..1.
func ParseIntent(line string) (Intent, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return Intent{}, fmt.Errorf("%w: empty line", ErrUnknownIntent)
	}
	word, args := strings.ToLower(fields[0]), fields[1:]
	rest := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), fields[0]))

	switch IntentKind(word) {
	case IntentPlay:
		if len(args) == 0 {
			return Intent{Kind: IntentPlay}, nil
		}
		n, err := row(args[0])
		if err != nil {
			return Intent{}, err
		}
		return Intent{Kind: IntentPlayIndex, Index: n}, nil
	case IntentPause, IntentTogglePlay, IntentNext, IntentPrev, IntentToggleShuffle,
		IntentCycleLoop, IntentViewPlaylist, IntentClearFilter, IntentClearQueue, IntentRefresh:
		return Intent{Kind: IntentKind(word)}, nil
	case IntentSeek:
		f, err := number(args, 0, 1)
		if err != nil {
			return Intent{}, err
		}
		return Intent{Kind: IntentSeek, Fraction: f}, nil
	case IntentSetVolume:
		f, err := number(args, 0, 100)
		if err != nil {
			return Intent{}, err
		}
		return Intent{Kind: IntentSetVolume, Fraction: f / 100}, nil
	case IntentSelectPlaylist:
		id := ""
		if len(args) > 0 {
			id = args[0]
		}
		return Intent{Kind: IntentSelectPlaylist, PlaylistID: id}, nil
	case IntentCreatePlaylist, IntentImport:
		if rest == "" {
			return Intent{}, fmt.Errorf("%w: %s needs text", ErrBadArgument, word)
		}
		return Intent{Kind: IntentKind(word), Text: rest}, nil
	case IntentAddToPlaylist, IntentEnqueue:
		if len(args) != 1 {
			return Intent{}, fmt.Errorf("%w: %s needs a row or track id", ErrBadArgument, word)
		}
		if n, err := row(args[0]); err == nil {
			return Intent{Kind: IntentKind(word), Index: n}, nil
		}
		return Intent{Kind: IntentKind(word), TrackID: args[0], Index: -1}, nil
	case IntentRemoveFromPlaylist:
		if len(args) != 2 {
			return Intent{}, fmt.Errorf("%w: remove needs a playlist id and a track id", ErrBadArgument)
		}
		return Intent{Kind: IntentRemoveFromPlaylist, PlaylistID: args[0], TrackID: args[1]}, nil
	case IntentRenamePlaylist:
		if len(args) < 2 {
			return Intent{}, fmt.Errorf("%w: rename needs a playlist id and a name", ErrBadArgument)
		}
		name := strings.TrimSpace(strings.TrimPrefix(rest, args[0]))
		return Intent{Kind: IntentRenamePlaylist, PlaylistID: args[0], Text: name}, nil
	case IntentDeletePlaylist:
		if len(args) != 1 {
			return Intent{}, fmt.Errorf("%w: delete needs a playlist id", ErrBadArgument)
		}
		return Intent{Kind: IntentDeletePlaylist, PlaylistID: args[0]}, nil
	case IntentDequeue:
		if len(args) != 1 {
			return Intent{}, fmt.Errorf("%w: dequeue needs a position", ErrBadArgument)
		}
		n, err := row(args[0])
		if err != nil {
			return Intent{}, err
		}
		return Intent{Kind: IntentDequeue, Index: n}, nil
	case IntentAddLocal:
		if len(args) == 0 {
			return Intent{}, fmt.Errorf("%w: upload needs file paths", ErrBadArgument)
		}
		return Intent{Kind: IntentAddLocal, Paths: args}, nil
	}
	return Intent{}, fmt.Errorf("%w: %q", ErrUnknownIntent, word)
}

// row parses a 1-based number into a 0-based index.
func row(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("%w: %q is not a row number", ErrBadArgument, s)
	}
	return n - 1, nil
}

func number(args []string, lo, hi float64) (float64, error) {
	if len(args) != 1 {
		return 0, fmt.Errorf("%w: expected one number", ErrBadArgument)
	}
	f, err := strconv.ParseFloat(args[0], 64)
	if err != nil || f < lo || f > hi {
		return 0, fmt.Errorf("%w: %q is not within %g..%g", ErrBadArgument, args[0], lo, hi)
	}
	return f, nil
}
