package cmd

import (
	"encoding/json"

	"MusicFlow/server"

	"github.com/spf13/cobra"
)

var manifestTags bool

var manifestCmd = &cobra.Command{
	Use:   "manifest",
	Short: "Print the track manifest of MUSIC_DIR",
	RunE: func(cmd *cobra.Command, args []string) error {
		entries, err := server.BuildManifest(cfg.MusicDir, manifestTags || cfg.ManifestReadTags)
		if err != nil {
			return err
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(entries)
	},
}

func init() {
	rootCmd.AddCommand(manifestCmd)
	manifestCmd.Flags().BoolVarP(&manifestTags, "tags", "t", false, "read ID3 titles")
}
