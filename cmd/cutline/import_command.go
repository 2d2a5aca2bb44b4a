package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"cutline/internal/catalog"
	"cutline/internal/editor"
	"cutline/internal/media"
)

func newImportCommand(ctx *commandContext) *cobra.Command {
	var (
		timeout time.Duration
		place   bool
	)

	cmd := &cobra.Command{
		Use:   "import <path> [path...]",
		Short: "Acquire media files and record them in the catalog",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.logger()
			if err != nil {
				return err
			}
			store, err := catalog.Open(cfg)
			if err != nil {
				return fmt.Errorf("open catalog: %w", err)
			}
			defer store.Close()

			opts := editor.Options{Logger: logger, Persister: store}
			if cfg.Metrics.Enabled {
				opts.Registerer = prometheus.DefaultRegisterer
			}
			session, err := editor.New(cfg, opts)
			if err != nil {
				return err
			}

			runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			if timeout > 0 {
				var cancel context.CancelFunc
				runCtx, cancel = context.WithTimeout(runCtx, timeout)
				defer cancel()
			}

			var imported []media.Item
			for _, path := range args {
				item, err := session.ImportFile(runCtx, path)
				if err != nil {
					_ = session.Close(context.Background())
					return fmt.Errorf("import %s: %w", path, err)
				}
				imported = append(imported, item)
			}

			waitErr := session.Wait(runCtx)
			closeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if waitErr != nil {
				_ = session.Close(closeCtx)
				return waitErr
			}

			results := make([]media.Item, 0, len(imported))
			for _, item := range imported {
				if current, ok := session.MediaItem(item.ID); ok {
					results = append(results, current)
				}
			}

			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			fmt.Fprintln(out, renderTable(mediaHeaders, mediaRows(results, cfg.Project.FrameRate, colorize), 4))

			if place {
				if err := placeClips(runCtx, session, results); err != nil {
					_ = session.Close(closeCtx)
					return err
				}
				fmt.Fprintln(out, renderTimeline(session, cfg.Project.FrameRate))
			}
			return session.Close(closeCtx)
		},
	}

	cmd.Flags().DurationVar(&timeout, "timeout", 0, "Give up on acquisitions after this long")
	cmd.Flags().BoolVar(&place, "place", false, "Place ready media back to back on the first track")
	return cmd
}

func placeClips(ctx context.Context, session *editor.Session, items []media.Item) error {
	tracks := session.Tracks()
	if len(tracks) == 0 {
		return fmt.Errorf("timeline has no tracks")
	}
	var cursor int64
	for _, item := range items {
		if !item.IsReady() {
			continue
		}
		clip, err := session.AddClip(ctx, item.ID, tracks[0].ID, cursor)
		if err != nil {
			return fmt.Errorf("place %s: %w", item.Name, err)
		}
		cursor = clip.Range.TimelineEnd
	}
	return nil
}

func renderTimeline(session *editor.Session, fps int) string {
	var rows [][]string
	for _, track := range session.Tracks() {
		for _, clip := range session.Clips(track.ID) {
			name := clip.MediaItemID
			if m, ok := session.MediaItem(clip.MediaItemID); ok {
				name = m.Name
			}
			rows = append(rows, []string{
				track.Name,
				name,
				formatTimecode(clip.Range.TimelineStart, fps),
				formatTimecode(clip.Range.TimelineEnd, fps),
				string(clip.Status),
			})
		}
	}
	if len(rows) == 0 {
		return "Timeline is empty"
	}
	return renderTable([]string{"Track", "Clip", "In", "Out", "Status"}, rows)
}
