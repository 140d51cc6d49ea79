package cmd

import (
	"fmt"
	"net/http"
	"text/tabwriter"
	"time"

	"MusicFlow/core/offline"
	"MusicFlow/storage"

	"github.com/spf13/cobra"
)

var minioPrune bool

var minioCmd = &cobra.Command{
	Use:   "minio",
	Short: "List and prune offline cache partitions in MinIO",
	Long:  `Show every offline cache partition stored in the MinIO bucket with its object count and size. With --prune, remove partitions that do not belong to CACHE_VERSION.`,
	Example: `  # list partitions
  musicflow minio

  # drop partitions of older versions
  musicflow minio --prune`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		out := cmd.OutOrStdout()

		store, err := storage.NewMinioCache(ctx, cfg)
		if err != nil {
			return err
		}

		if minioPrune {
			coord, err := offline.NewCoordinator(store, http.DefaultClient, cfg.BaseURL, cfg.CacheVersion)
			if err != nil {
				return err
			}
			err = coord.Activate(ctx)
			coord.Close()
			if err != nil {
				return fmt.Errorf("prune failed: %w", err)
			}
			fmt.Fprintf(out, "Kept %s and %s\n", offline.AssetPartition(cfg.CacheVersion), offline.MusicPartition(cfg.CacheVersion))
		}

		stats, err := store.Stats(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Bucket %s on %s\n", cfg.MinioBucket, cfg.MinioEndpoint)
		tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "PARTITION\tOBJECTS\tSIZE\tMODIFIED")
		for _, s := range stats {
			fmt.Fprintf(tw, "%s\t%d\t%s\t%s\n", s.Name, s.Objects, storage.FormatSize(s.Size), s.LastModified.Format(time.RFC3339))
		}
		return tw.Flush()
	},
}

func init() {
	rootCmd.AddCommand(minioCmd)
	minioCmd.Flags().BoolVar(&minioPrune, "prune", false, "remove partitions of other cache versions")
}
