package cmd

import (
	"context"
	"net/http"

	"MusicFlow/core/offline"
	"MusicFlow/server"

	"github.com/spf13/cobra"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the music server",
	Long:  `Serve the static app, the /musics directory and its manifest, and URL imports. With OFFLINE_ENABLED the offline cache bridge is mounted on /sw.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServer()
	},
}

func init() {
	rootCmd.AddCommand(serverCmd)
}

func runServer() error {
	var sw http.Handler
	if cfg.OfflineEnabled {
		coord, err := startCoordinator(context.Background(), cfg, false)
		if err != nil {
			return err
		}
		defer coord.Close()
		sw = offline.NewWSBridge(coord)
	}
	return server.Start(cfg, sw)
}
