package config

import "testing"

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PORT", "4000")
	t.Setenv("ROOT_DIR", "/srv/mf")
	t.Setenv("LOCAL_TRACK_MAX_BYTES", "not-a-number")
	t.Setenv("OFFLINE_ENABLED", "true")

	cfg := Load()

	if cfg.Port != "4000" {
		t.Errorf("expected port 4000, got %q", cfg.Port)
	}
	if cfg.MusicDir != "/srv/mf/musics" {
		t.Errorf("expected music dir under root, got %q", cfg.MusicDir)
	}
	if cfg.BaseURL != "http://localhost:4000" {
		t.Errorf("unexpected base url %q", cfg.BaseURL)
	}
	if cfg.LocalTrackMaxBytes != 3*1024*1024 {
		t.Errorf("expected fallback for invalid int, got %d", cfg.LocalTrackMaxBytes)
	}
	if !cfg.OfflineEnabled {
		t.Error("expected offline to be enabled")
	}
	if cfg.CacheVersion != "v2" {
		t.Errorf("expected cache version v2, got %q", cfg.CacheVersion)
	}
}
