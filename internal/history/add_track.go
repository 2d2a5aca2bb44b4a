package history

import (
	"context"
	"fmt"

	"cutline/internal/logging"
	"cutline/internal/media"
	"cutline/internal/timeline"
)

// AddTrack inserts an empty track.
type AddTrack struct {
	base
	track    timeline.TrackData
	position int
}

// NewAddTrack prepares a track insertion at position; negative appends.
func NewAddTrack(env Env, track timeline.TrackData, position int) *AddTrack {
	name := track.Name
	if name == "" {
		name = track.ID
	}
	return &AddTrack{base: newBase(env, fmt.Sprintf("Add track %s", name)), track: track, position: position}
}

// Track returns the canonical track data.
func (c *AddTrack) Track() timeline.TrackData { return c.track }

func (c *AddTrack) Execute(ctx context.Context) error {
	if err := c.env.Timeline.AddTrack(c.track, c.position); err != nil {
		return err
	}
	c.logger.Debug("track added", logging.String(logging.FieldTrackID, c.track.ID))
	return nil
}

func (c *AddTrack) Undo(ctx context.Context) error {
	if _, _, err := c.env.Timeline.RemoveTrack(c.track.ID); err != nil {
		return err
	}
	return nil
}

// UpdateMediaData is a no-op; tracks carry no media.
func (c *AddTrack) UpdateMediaData(media.Item, string) {}
