package player

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"MusicFlow/cache"
	"MusicFlow/core/offline"
	"MusicFlow/core/upload"
	"MusicFlow/model"
)

type fakePoster struct {
	posted []offline.Message
	err    error
}

func (p *fakePoster) Post(msg offline.Message) error {
	p.posted = append(p.posted, msg)
	return p.err
}

type fakeImporter struct {
	file string
	err  error
	urls []string
}

func (f *fakeImporter) Import(_ context.Context, rawURL string) (string, error) {
	f.urls = append(f.urls, rawURL)
	return f.file, f.err
}

type fakePreparer struct {
	persisted, session []model.LocalTrack
}

func (f fakePreparer) Prepare(context.Context, []upload.File) ([]model.LocalTrack, []model.LocalTrack) {
	return f.persisted, f.session
}

func TestRefreshPostsCacheableURLs(t *testing.T) {
	ctx := context.Background()
	poster := &fakePoster{}
	store := cache.NewStateStore(cache.NewMemoryBackend(0), "")
	store.SaveLocalTracks(ctx, []model.LocalTrack{{ID: "local:x.mp3:1", Name: "x.mp3", Title: "X", URL: "data:audio/mpeg;base64,AA=="}})

	ctrl := NewController(Options{
		Media:   newFakeMedia(),
		Store:   store,
		Catalog: &fakeCatalog{items: remoteItems("./musics/a.mp3", "./musics/b.mp3")},
		Offline: poster,
	})
	ctrl.LoadState(ctx)
	ctrl.Refresh(ctx)

	want := []string{"./musics/a.mp3", "./musics/b.mp3"}
	if len(poster.posted) != 1 || !reflect.DeepEqual(poster.posted[0].URLs, want) {
		t.Fatalf("got %+v, want one CACHE_TRACKS with %v", poster.posted, want)
	}
	s := ctrl.Snapshot()
	if s.CacheHint != "Caching 2 tracks for offline..." {
		t.Errorf("got hint %q", s.CacheHint)
	}
	if got := ids(s.Catalog); got[0] != "local:x.mp3:1" || len(got) != 3 {
		t.Errorf("local tracks must come first, got %v", got)
	}
}

func TestRefreshHints(t *testing.T) {
	ctx := context.Background()

	empty := newRig(t)
	if hint := empty.ctrl.Snapshot().CacheHint; hint != "No tracks to cache." {
		t.Errorf("empty catalog: got %q", hint)
	}

	failing := NewController(Options{
		Media:   newFakeMedia(),
		Store:   cache.NewStateStore(cache.NewMemoryBackend(0), ""),
		Catalog: &fakeCatalog{items: remoteItems("a.mp3")},
		Offline: &fakePoster{err: offline.ErrClosed},
	})
	failing.Refresh(ctx)
	if hint := failing.Snapshot().CacheHint; hint != "Offline cache failed to initialize." {
		t.Errorf("closed worker: got %q", hint)
	}
}

func TestHandleCacheMessage(t *testing.T) {
	r := newRig(t, "a")
	r.ctrl.HandleCacheMessage(offline.Message{Type: offline.MsgCacheProgress, Done: 2, Total: 3})
	if hint := r.ctrl.Snapshot().CacheHint; hint != "Cached 2/3 tracks" {
		t.Errorf("got %q", hint)
	}
	r.ctrl.HandleCacheMessage(offline.Message{Type: offline.MsgCacheDone, Total: 3})
	if hint := r.ctrl.Snapshot().CacheHint; hint != "Offline cache ready (3 tracks)" {
		t.Errorf("got %q", hint)
	}
}

func TestRunConsumesUntilClosed(t *testing.T) {
	r := newRig(t, "a")
	msgs := make(chan offline.Message, 2)
	msgs <- offline.Message{Type: offline.MsgCacheProgress, Done: 1, Total: 1}
	msgs <- offline.Message{Type: offline.MsgCacheDone, Total: 1}
	close(msgs)

	done := make(chan struct{})
	go func() {
		r.ctrl.Run(context.Background(), msgs)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after the channel closed")
	}
	if hint := r.ctrl.Snapshot().CacheHint; hint != "Offline cache ready (1 tracks)" {
		t.Errorf("got %q", hint)
	}
}

func TestImportFromURL(t *testing.T) {
	ctx := context.Background()
	catalog := &fakeCatalog{}
	importer := &fakeImporter{file: "y.mp3"}
	ctrl := NewController(Options{
		Media:    newFakeMedia(),
		Store:    cache.NewStateStore(cache.NewMemoryBackend(0), ""),
		Catalog:  catalog,
		Importer: importer,
	})

	ctrl.ImportFromURL(ctx, "   ")
	if len(importer.urls) != 0 {
		t.Fatal("blank URL must not reach the server")
	}

	catalog.items = remoteItems("/musics/y.mp3")
	ctrl.ImportFromURL(ctx, " http://x/y.mp3?z=1 ")
	s := ctrl.Snapshot()
	if s.ImportHint != "Saved to /musics: y.mp3" || len(s.Catalog) != 1 {
		t.Errorf("got hint %q catalog %v", s.ImportHint, ids(s.Catalog))
	}
	if importer.urls[0] != "http://x/y.mp3?z=1" {
		t.Errorf("URL must be trimmed, got %q", importer.urls[0])
	}

	importer.err = &upload.ImportError{Status: 400, Message: "YouTube URLs are not supported."}
	ctrl.ImportFromURL(ctx, "https://youtu.be/x")
	if hint := ctrl.Snapshot().ImportHint; hint != "YouTube URLs are not supported." {
		t.Errorf("got %q", hint)
	}

	importer.err = errors.New("dial tcp: refused")
	ctrl.ImportFromURL(ctx, "https://x/z.mp3")
	if hint := ctrl.Snapshot().ImportHint; hint != "Import failed." {
		t.Errorf("got %q", hint)
	}
}

func TestAddLocalFiles(t *testing.T) {
	ctx := context.Background()
	store := cache.NewStateStore(cache.NewMemoryBackend(0), "")
	media := newFakeMedia()
	persisted := []model.LocalTrack{{ID: "local:s.mp3:3", Name: "s.mp3", Title: "S", URL: "data:audio/mpeg;base64,AAAA"}}
	session := []model.LocalTrack{{ID: "local:big.mp3:9", Name: "big.mp3", Title: "Big", URL: "file:///tmp/big.mp3"}}
	ctrl := NewController(Options{
		Media:    media,
		Store:    store,
		Catalog:  &fakeCatalog{items: remoteItems("a.mp3")},
		Uploader: fakePreparer{persisted: persisted, session: session},
	})
	ctrl.Refresh(ctx)

	ctrl.AddLocalFiles(ctx, []upload.File{{Name: "s.mp3"}, {Name: "big.mp3"}})
	s := ctrl.Snapshot()

	if got, want := ids(s.Catalog), []string{"local:s.mp3:3", "local:big.mp3:9", "remote:a.mp3"}; !reflect.DeepEqual(got, want) {
		t.Errorf("catalog: got %v, want %v", got, want)
	}
	if s.CurrentID != "local:s.mp3:3" || media.Source() != persisted[0].URL {
		t.Errorf("playback must start at index 0, got %q", s.CurrentID)
	}
	if s.Catalog[0].Meta != "Local • s.mp3" || s.Catalog[0].Cacheable {
		t.Errorf("unexpected local track %+v", s.Catalog[0])
	}
	want := "Added 2 local tracks. Saved 1 local track(s). 1 track(s) are session-only (storage limit)."
	if s.CacheHint != want {
		t.Errorf("got hint %q, want %q", s.CacheHint, want)
	}
	if got := store.LoadLocalTracks(ctx); !reflect.DeepEqual(got, persisted) {
		t.Errorf("only persisted tracks are saved, got %+v", got)
	}
}

func TestAddLocalFilesDemotesWhenStorageIsFull(t *testing.T) {
	ctx := context.Background()
	store := cache.NewStateStore(cache.NewMemoryBackend(5<<20), "")
	kept := []model.LocalTrack{{ID: "local:k.mp3:1", Name: "k.mp3", Title: "K", URL: "data:audio/mpeg;base64,AA=="}}
	if err := store.SaveLocalTracks(ctx, kept); err != nil {
		t.Fatal(err)
	}

	dir := t.TempDir()
	var files []upload.File
	for _, name := range []string{"one.mp3", "two.mp3"} {
		path := filepath.Join(dir, name)
		data := make([]byte, 5<<19) // 2.5 MiB
		if err := os.WriteFile(path, data, 0o644); err != nil {
			t.Fatal(err)
		}
		files = append(files, upload.File{Name: name, Size: int64(len(data)), Path: path})
	}

	ctrl := NewController(Options{
		Media:    newFakeMedia(),
		Store:    store,
		Uploader: upload.NewLocalUploader(3<<20, store),
	})
	ctrl.LoadState(ctx)
	ctrl.AddLocalFiles(ctx, files)
	s := ctrl.Snapshot()

	want := "Added 2 local tracks. 2 track(s) are session-only (storage limit)."
	if s.CacheHint != want {
		t.Errorf("got hint %q, want %q", s.CacheHint, want)
	}
	if !reflect.DeepEqual(s.Local, kept) || len(s.Session) != 2 {
		t.Errorf("expected 1 saved and 2 session tracks, got %d and %d", len(s.Local), len(s.Session))
	}
	if got := store.LoadLocalTracks(ctx); !reflect.DeepEqual(got, kept) {
		t.Errorf("stored tracks changed: %+v", got)
	}
	if got, want := ids(s.Catalog), []string{"local:k.mp3:1", "local:one.mp3:2621440", "local:two.mp3:2621440"}; !reflect.DeepEqual(got, want) {
		t.Errorf("catalog: got %v, want %v", got, want)
	}
}

func TestCatalogRebuildClearsShuffleHistory(t *testing.T) {
	ctx := context.Background()
	local := []model.LocalTrack{{ID: "local:l.mp3:1", Name: "l.mp3", Title: "L", URL: "file:///tmp/l.mp3"}}
	ctrl := NewController(Options{
		Media:    newFakeMedia(),
		Store:    cache.NewStateStore(cache.NewMemoryBackend(0), ""),
		Catalog:  &fakeCatalog{items: remoteItems("a", "b", "c")},
		Uploader: fakePreparer{session: local},
		IntN:     func(int) int { return 0 },
	})
	ctrl.Refresh(ctx)
	ctrl.ToggleShuffle(ctx)
	ctrl.PlayIndex(0)
	ctrl.Next(ctx)
	if len(ctrl.Snapshot().History) == 0 {
		t.Fatal("expected shuffle history")
	}

	ctrl.AddLocalFiles(ctx, []upload.File{{Name: "l.mp3"}})
	if h := ctrl.Snapshot().History; len(h) != 0 {
		t.Errorf("history must not survive a catalog change, got %v", h)
	}
}

func TestLocalFilesHint(t *testing.T) {
	tests := []struct {
		saved, session int
		want           string
	}{
		{2, 0, "Added 2 local tracks. Saved 2 local track(s)."},
		{0, 1, "Added 1 local tracks. 1 track(s) are session-only (storage limit)."},
	}
	for _, tt := range tests {
		if got := localFilesHint(tt.saved, tt.session); got != tt.want {
			t.Errorf("got %q, want %q", got, tt.want)
		}
	}
}
