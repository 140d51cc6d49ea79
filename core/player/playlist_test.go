package player

import (
	"context"
	"reflect"
	"strings"
	"testing"

	"MusicFlow/model"
)

func ids(tracks []model.Track) []string {
	out := make([]string, len(tracks))
	for i, t := range tracks {
		out[i] = t.ID
	}
	return out
}

func TestCreatePlaylist(t *testing.T) {
	ctx := context.Background()
	r := newRig(t, "a")

	if id := r.ctrl.CreatePlaylist(ctx, "   "); id != "" {
		t.Fatalf("blank name must be ignored, got %s", id)
	}
	first := r.ctrl.CreatePlaylist(ctx, "  Road trip ")
	second := r.ctrl.CreatePlaylist(ctx, "Gym")
	if !strings.HasPrefix(first, "pl:") || first == second {
		t.Fatalf("unexpected ids %q %q", first, second)
	}

	stored := r.store.LoadPlaylists(ctx)
	if len(stored) != 2 || stored[0].Name != "Road trip" || len(stored[0].TrackIDs) != 0 {
		t.Errorf("unexpected stored playlists %+v", stored)
	}
	if prefs := r.store.LoadPreferences(ctx); prefs.SelectedPlaylistID != second {
		t.Errorf("new playlist must be selected, got %q", prefs.SelectedPlaylistID)
	}
}

func TestAddToSelectedPlaylist(t *testing.T) {
	ctx := context.Background()
	r := newRig(t, "a", "b")

	r.ctrl.AddToSelectedPlaylist(ctx, "remote:a")
	if hint := r.ctrl.Snapshot().CacheHint; hint != "Create or select a playlist first." {
		t.Errorf("got hint %q", hint)
	}

	id := r.ctrl.CreatePlaylist(ctx, "Mix")
	r.ctrl.AddToSelectedPlaylist(ctx, "remote:b")
	r.ctrl.AddToSelectedPlaylist(ctx, "remote:b")
	r.ctrl.AddToSelectedPlaylist(ctx, "remote:a")
	if hint := r.ctrl.Snapshot().CacheHint; hint != "Added to playlist." {
		t.Errorf("got hint %q", hint)
	}

	stored := r.store.LoadPlaylists(ctx)
	if want := []string{"remote:b", "remote:a"}; stored[0].ID != id || !reflect.DeepEqual(stored[0].TrackIDs, want) {
		t.Errorf("got %+v, want members %v", stored[0], want)
	}
}

func TestPlaybackListKeepsCatalogOrder(t *testing.T) {
	ctx := context.Background()
	r := newRig(t, "a", "b", "c")
	id := r.ctrl.CreatePlaylist(ctx, "Mix")
	r.ctrl.AddToSelectedPlaylist(ctx, "remote:c")
	r.ctrl.AddToSelectedPlaylist(ctx, "remote:a")

	r.ctrl.SelectPlaylist(ctx, id)
	if got, want := ids(r.ctrl.PlaybackList()), []string{"remote:a", "remote:c"}; !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}

	r.ctrl.ClearFilter(ctx)
	if got := r.ctrl.PlaybackList(); len(got) != 3 {
		t.Errorf("clearing the filter must restore the catalog, got %v", ids(got))
	}

	r.ctrl.ViewSelectedPlaylist(ctx)
	if got := r.ctrl.PlaybackList(); len(got) != 2 {
		t.Errorf("view must filter to the selection, got %v", ids(got))
	}

	r.ctrl.SelectPlaylist(ctx, "pl:unknown")
	if got := r.ctrl.PlaybackList(); len(got) != 0 {
		t.Errorf("unknown playlist must give an empty list, got %v", ids(got))
	}
}

func TestFilterChangeStopsOnlyWhenCurrentLeaves(t *testing.T) {
	ctx := context.Background()
	r := newRig(t, "a", "b", "c")
	with := r.ctrl.CreatePlaylist(ctx, "With b")
	r.ctrl.AddToSelectedPlaylist(ctx, "remote:b")
	without := r.ctrl.CreatePlaylist(ctx, "Without b")
	r.ctrl.AddToSelectedPlaylist(ctx, "remote:a")

	r.ctrl.PlayIndex(1)
	r.ctrl.SelectPlaylist(ctx, with)
	s := r.ctrl.Snapshot()
	if s.CurrentID != "remote:b" || s.NowTitle != "b" || r.media.Source() == "" || r.media.Paused() {
		t.Fatalf("playback must be untouched, got %+v", s)
	}

	r.ctrl.SelectPlaylist(ctx, without)
	s = r.ctrl.Snapshot()
	if s.CurrentID != "" || s.NowTitle != "" || s.NowMeta != "" || s.PlayLabel != "Play" || s.Status != StatusIdle {
		t.Errorf("expected playback to stop, got %+v", s)
	}
	if r.media.Source() != "" || !r.media.Paused() {
		t.Error("media must be paused and cleared")
	}

	prefs := r.store.LoadPreferences(ctx)
	if prefs.SelectedPlaylistID != without || prefs.PlaylistFilterID != without {
		t.Errorf("prefs not persisted: %+v", prefs)
	}
}

func TestFilterChangeResetsHistory(t *testing.T) {
	ctx := context.Background()
	r := newRig(t, "a", "b", "c")
	r.ctrl.ToggleShuffle(ctx)
	r.ctrl.PlayIndex(0)
	r.ctrl.Next(ctx)
	if len(r.ctrl.Snapshot().History) == 0 {
		t.Fatal("expected shuffle history")
	}
	r.ctrl.ClearFilter(ctx)
	if h := r.ctrl.Snapshot().History; len(h) != 0 {
		t.Errorf("got %v", h)
	}
}

func TestRemoveRenameDeletePlaylist(t *testing.T) {
	ctx := context.Background()
	r := newRig(t, "a", "b")
	id := r.ctrl.CreatePlaylist(ctx, "Mix")
	r.ctrl.AddToSelectedPlaylist(ctx, "remote:a")
	r.ctrl.AddToSelectedPlaylist(ctx, "remote:b")
	r.ctrl.SelectPlaylist(ctx, id)
	r.ctrl.PlayIndex(0)

	r.ctrl.RemoveFromPlaylist(ctx, id, "remote:a")
	if got := ids(r.ctrl.PlaybackList()); !reflect.DeepEqual(got, []string{"remote:b"}) {
		t.Errorf("got %v", got)
	}
	if r.ctrl.Snapshot().CurrentID != "" {
		t.Error("removing the current track from the active filter must stop playback")
	}

	r.ctrl.RenamePlaylist(ctx, id, " ")
	r.ctrl.RenamePlaylist(ctx, id, "Renamed")
	if pl := r.store.LoadPlaylists(ctx); pl[0].Name != "Renamed" {
		t.Errorf("got %q", pl[0].Name)
	}

	r.ctrl.DeletePlaylist(ctx, id)
	s := r.ctrl.Snapshot()
	if len(s.Playlists) != 0 || s.Prefs.SelectedPlaylistID != "" || s.Prefs.PlaylistFilterID != "" {
		t.Errorf("unexpected state after delete %+v", s.Prefs)
	}
	if got := r.ctrl.PlaybackList(); len(got) != 2 {
		t.Errorf("deleting the filtered playlist must restore the catalog, got %v", ids(got))
	}
	if prefs := r.store.LoadPreferences(ctx); prefs.PlaylistFilterID != "" {
		t.Errorf("prefs not persisted: %+v", prefs)
	}
}

func TestQueueOperations(t *testing.T) {
	ctx := context.Background()
	r := newRig(t, "a", "b")
	r.ctrl.Enqueue(ctx, "remote:b")
	r.ctrl.Enqueue(ctx, "remote:gone")
	r.ctrl.Enqueue(ctx, "remote:a")
	if hint := r.ctrl.Snapshot().CacheHint; hint != "Queued for next." {
		t.Errorf("got hint %q", hint)
	}

	view := r.ctrl.QueueView()
	titles := []string{view[0].Title, view[1].Title, view[2].Title}
	if want := []string{"b", "Unavailable track", "a"}; !reflect.DeepEqual(titles, want) {
		t.Errorf("got %v, want %v", titles, want)
	}

	r.ctrl.Dequeue(ctx, 5)
	r.ctrl.Dequeue(ctx, -1)
	r.ctrl.Dequeue(ctx, 1)
	if got := r.store.LoadQueue(ctx); !reflect.DeepEqual(got, []string{"remote:b", "remote:a"}) {
		t.Errorf("got %v", got)
	}

	r.ctrl.ClearQueue(ctx)
	if got := r.store.LoadQueue(ctx); len(got) != 0 {
		t.Errorf("got %v", got)
	}
}

func TestQueueTitlesFallBackToCatalog(t *testing.T) {
	ctx := context.Background()
	r := newRig(t, "a", "b")
	id := r.ctrl.CreatePlaylist(ctx, "Only a")
	r.ctrl.AddToSelectedPlaylist(ctx, "remote:a")
	r.ctrl.SelectPlaylist(ctx, id)
	r.ctrl.Enqueue(ctx, "remote:b")

	if got := r.ctrl.QueueView()[0].Title; got != "b" {
		t.Errorf("got %q", got)
	}
}
