package main

import (
	"fmt"

	"cutline/internal/media"
)

// formatTimecode renders a frame count as HH:MM:SS:FF.
func formatTimecode(frames int64, fps int) string {
	if fps <= 0 {
		fps = 30
	}
	if frames < 0 {
		frames = 0
	}
	f := frames % int64(fps)
	total := frames / int64(fps)
	return fmt.Sprintf("%02d:%02d:%02d:%02d", total/3600, (total/60)%60, total%60, f)
}

func formatDuration(item media.Item, fps int) string {
	if !item.HasDuration {
		return "-"
	}
	return formatTimecode(item.Duration, fps)
}

func formatDimensions(item media.Item) string {
	if item.Width <= 0 || item.Height <= 0 {
		return "-"
	}
	return fmt.Sprintf("%dx%d", item.Width, item.Height)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func mediaRows(items []media.Item, fps int, colorize bool) [][]string {
	rows := make([][]string, 0, len(items))
	for _, item := range items {
		rows = append(rows, []string{
			shortID(item.ID),
			item.Name,
			string(item.Kind),
			colorizeStatus(item.Status, colorize),
			formatDuration(item, fps),
			formatDimensions(item),
			item.Error,
		})
	}
	return rows
}

var mediaHeaders = []string{"ID", "Name", "Kind", "Status", "Duration", "Size", "Error"}
