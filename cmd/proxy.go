package cmd

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"MusicFlow/core/offline"
	"MusicFlow/logger"

	"github.com/gorilla/mux"
	"github.com/spf13/cobra"
)

var proxyListen string

var proxyCmd = &cobra.Command{
	Use:   "proxy",
	Short: "Run the offline caching proxy in front of BASE_URL",
	Long: `Forward every request to BASE_URL, keep successful responses in the offline cache and
answer from it when the upstream is unreachable. The cache worker is reachable on /sw.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		coord, err := startCoordinator(ctx, cfg, true)
		if err != nil {
			return err
		}
		defer coord.Close()

		router := mux.NewRouter()
		router.Handle("/sw", offline.NewWSBridge(coord))
		router.PathPrefix("/").Handler(offline.NewProxy(coord))

		srv := &http.Server{
			Addr:        proxyListen,
			Handler:     router,
			ReadTimeout: 30 * time.Second,
			IdleTimeout: 120 * time.Second,
		}
		errCh := make(chan error, 1)
		go func() {
			logger.Info("proxy starting",
				logger.String("addr", proxyListen),
				logger.String("upstream", cfg.BaseURL),
				logger.String("version", cfg.CacheVersion))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
		}()

		select {
		case err := <-errCh:
			return err
		case <-ctx.Done():
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	},
}

func init() {
	rootCmd.AddCommand(proxyCmd)
	proxyCmd.Flags().StringVarP(&proxyListen, "listen", "l", ":3001", "address the proxy listens on")
}
