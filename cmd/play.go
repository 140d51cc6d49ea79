package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"MusicFlow/core/audio"
	"MusicFlow/core/catalog"
	"MusicFlow/core/offline"
	"MusicFlow/core/player"
	"MusicFlow/core/upload"
	"MusicFlow/logger"

	"github.com/spf13/cobra"
)

var playSilent bool

const playLong = `Load the catalog from BASE_URL and read player commands from stdin, one per line:

  play [n] | pause | toggle | next | prev | seek <0..1> | volume <0..100>
  shuffle | loop | select [playlist] | view | all
  create <name> | add <n|id> | remove <playlist> <id> | rename <playlist> <name> | delete <playlist>
  enqueue <n|id> | dequeue <n> | clear-queue
  refresh | import <url> | upload <file>...
  list | queue | playlists | status | help | quit

Rows are numbered from 1 as shown by "list".`

var playCmd = &cobra.Command{
	Use:   "play",
	Short: "Run the headless player against BASE_URL",
	Long:  playLong,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return runPlayer(ctx, cmd.InOrStdin(), cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(playCmd)
	playCmd.Flags().BoolVar(&playSilent, "silent", false, "keep time without opening the sound device")
}

func runPlayer(ctx context.Context, in io.Reader, out io.Writer) error {
	store, closeStore, err := openStateStore(cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	fetcher, err := audio.NewFetcher(http.DefaultClient, cfg.BaseURL)
	if err != nil {
		return err
	}
	media := audio.NewPlayer(fetcher, playSilent || !audio.Available)
	defer media.Close()

	opts := player.Options{
		Media:    media,
		Store:    store,
		Catalog:  catalog.NewLoader(http.DefaultClient, cfg.BaseURL),
		Importer: upload.NewImportClient(http.DefaultClient, cfg.BaseURL),
		Uploader: upload.NewLocalUploader(cfg.LocalTrackMaxBytes, store),
	}

	var msgs <-chan offline.Message
	if cfg.OfflineEnabled {
		coord, err := startCoordinator(ctx, cfg, true)
		if err != nil {
			logger.Warn("offline cache unavailable", logger.ErrorField(err))
		} else {
			defer coord.Close()
			sub, unsubscribe := coord.Subscribe()
			defer unsubscribe()
			opts.Offline = coord
			msgs = sub
		}
	}

	ctrl := player.NewController(opts)
	go media.Run(ctx, ctrl.HandleMediaEventAt)
	if msgs != nil {
		go ctrl.Run(ctx, msgs)
	}

	ctrl.LoadState(ctx)
	ctrl.Refresh(ctx)
	printStatus(out, ctrl)

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	for {
		fmt.Fprint(out, "> ")
		var line string
		select {
		case <-ctx.Done():
			return nil
		case l, ok := <-lines:
			if !ok {
				return nil
			}
			line = strings.TrimSpace(l)
		}

		switch strings.ToLower(line) {
		case "":
			continue
		case "quit", "exit":
			return nil
		case "help":
			fmt.Fprintln(out, playLong)
			continue
		case "list":
			printList(out, ctrl)
			continue
		case "queue":
			printQueue(out, ctrl)
			continue
		case "playlists":
			printPlaylists(out, ctrl)
			continue
		case "status":
			printStatus(out, ctrl)
			continue
		}

		intent, err := player.ParseIntent(line)
		if err == nil {
			err = ctrl.Dispatch(ctx, intent)
		}
		if err != nil {
			if errors.Is(err, player.ErrUnknownIntent) {
				fmt.Fprintln(out, "unknown command, try help")
			} else {
				fmt.Fprintln(out, err)
			}
			continue
		}
		printStatus(out, ctrl)
	}
}

func printStatus(out io.Writer, ctrl *player.Controller) {
	s := ctrl.Snapshot()
	now := s.NowTitle
	if now == "" {
		now = "-"
	}
	fmt.Fprintf(out, "[%s] %s", s.Status, now)
	if s.NowMeta != "" {
		fmt.Fprintf(out, " (%s)", s.NowMeta)
	}
	fmt.Fprintf(out, "  %s / %s  vol %d  shuffle %v  loop %s\n",
		clock(s.SeekValue), clock(s.SeekMax), s.Volume, s.Prefs.ShuffleOn, s.Prefs.LoopMode)
	for _, hint := range []string{s.CacheHint, s.ImportHint} {
		if hint != "" {
			fmt.Fprintln(out, "  "+hint)
		}
	}
}

func printList(out io.Writer, ctrl *player.Controller) {
	s := ctrl.Snapshot()
	list := ctrl.PlaybackList()
	if len(list) == 0 {
		fmt.Fprintln(out, "  (no tracks)")
		return
	}
	for i, t := range list {
		marker := " "
		if t.ID == s.CurrentID {
			marker = "*"
		}
		fmt.Fprintf(out, "%s %3d  %s  [%s]\n", marker, i+1, t.Title, t.ID)
	}
}

func printQueue(out io.Writer, ctrl *player.Controller) {
	view := ctrl.QueueView()
	if len(view) == 0 {
		fmt.Fprintln(out, "  (queue is empty)")
		return
	}
	for _, e := range view {
		fmt.Fprintf(out, "  %3d  %s\n", e.Position+1, e.Title)
	}
}

func printPlaylists(out io.Writer, ctrl *player.Controller) {
	s := ctrl.Snapshot()
	if len(s.Playlists) == 0 {
		fmt.Fprintln(out, "  (no playlists)")
		return
	}
	for _, p := range s.Playlists {
		flags := ""
		if p.ID == s.Prefs.SelectedPlaylistID {
			flags += " selected"
		}
		if p.ID == s.Prefs.PlaylistFilterID {
			flags += " viewing"
		}
		fmt.Fprintf(out, "  %s  %s (%d tracks)%s\n", p.ID, p.Name, len(p.TrackIDs), flags)
	}
}

func clock(sec float64) string {
	if math.IsNaN(sec) || math.IsInf(sec, 0) || sec < 0 {
		sec = 0
	}
	total := int(sec)
	return fmt.Sprintf("%d:%02d", total/60, total%60)
}
