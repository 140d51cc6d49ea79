package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"MusicFlow/config"
	"MusicFlow/logger"

	"github.com/gorilla/mux"
)

// Server serves the music directory, its manifest, URL imports and the
// static app files.
type Server struct {
	cfg      *config.Config
	router   *mux.Router
	manifest *ManifestHandler
}

// New builds the router. sw, when non-nil, is mounted on /sw as the
// offline cache bridge.
func New(cfg *config.Config, sw http.Handler) *Server {
	manifest := NewManifestHandler(cfg.MusicDir, cfg.ManifestReadTags)
	imports := NewImportHandler(http.DefaultClient, cfg.MusicDir, cfg.ImportMaxBytes, cfg.ImportMaxConcurrent)
	imports.OnSaved = manifest.Invalidate

	router := mux.NewRouter()
	router.Use(corsMiddleware)

	router.Handle("/api/import", imports).Methods(http.MethodPost)
	router.Handle("/musics.json", manifest).Methods(http.MethodGet, http.MethodHead)
	router.PathPrefix("/musics/").Handler(http.StripPrefix("/musics/", http.FileServer(http.Dir(cfg.MusicDir))))
	if sw != nil {
		router.Handle("/sw", sw)
	}
	router.PathPrefix("/").Handler(NewStaticHandler(cfg.RootDir))

	return &Server{cfg: cfg, router: router, manifest: manifest}
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS, HEAD")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Range")
		w.Header().Set("Access-Control-Expose-Headers", "Content-Length, Content-Range")
		w.Header().Set("Access-Control-Max-Age", "86400")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Run listens until ctx is done, then shuts down with a 5 s deadline.
func (s *Server) Run(ctx context.Context) error {
	if err := os.MkdirAll(s.cfg.MusicDir, 0o755); err != nil {
		logger.Warn("failed to create music directory", logger.String("dir", s.cfg.MusicDir), logger.ErrorField(err))
	}
	if err := s.manifest.Watch(ctx); err != nil {
		logger.Warn("music directory watch disabled", logger.ErrorField(err))
	}

	srv := &http.Server{
		Addr:         ":" + s.cfg.Port,
		Handler:      s.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting",
			logger.String("addr", srv.Addr),
			logger.String("root", s.cfg.RootDir),
			logger.String("music", s.cfg.MusicDir))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	logger.Info("server stopped")
	return nil
}

// Start runs the server until SIGINT or SIGTERM.
func Start(cfg *config.Config, sw http.Handler) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return New(cfg, sw).Run(ctx)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Warn("failed to write response", logger.ErrorField(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
