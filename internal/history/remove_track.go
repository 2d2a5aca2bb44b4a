package history

import (
	"context"
	"fmt"

	"cutline/internal/logging"
	"cutline/internal/media"
	"cutline/internal/services"
	"cutline/internal/timeline"
)

// RemoveTrack deletes a track together with every clip on it.
type RemoveTrack struct {
	base
	track timeline.TrackData
	index int
	items []timeline.ItemData
}

// NewRemoveTrack snapshots the track, its position and its clips.
func NewRemoveTrack(env Env, trackID string) (*RemoveTrack, error) {
	track, ok := env.Timeline.GetTrack(trackID)
	if !ok {
		return nil, services.Wrap(services.ErrNotFound, "history", "remove track", fmt.Sprintf("track %s", trackID), nil)
	}
	live := env.Timeline.ItemsOnTrack(trackID)
	items := make([]timeline.ItemData, 0, len(live))
	for _, item := range live {
		items = append(items, item.Data())
	}
	name := track.Name
	if name == "" {
		name = track.ID
	}
	return &RemoveTrack{
		base:  newBase(env, fmt.Sprintf("Delete track %s", name)),
		track: track.TrackData,
		index: env.Timeline.TrackIndex(trackID),
		items: items,
	}, nil
}

// Index returns the position the track is restored to on undo.
func (c *RemoveTrack) Index() int { return c.index }

// Items returns the canonical data of the cascaded clips.
func (c *RemoveTrack) Items() []timeline.ItemData {
	out := make([]timeline.ItemData, len(c.items))
	copy(out, c.items)
	return out
}

func (c *RemoveTrack) Execute(ctx context.Context) error {
	if _, ok := c.env.Timeline.GetTrack(c.track.ID); !ok {
		return services.Wrap(services.ErrNotFound, "history", "remove track", fmt.Sprintf("track %s", c.track.ID), nil)
	}
	if c.env.Timeline.TrackCount() <= 1 {
		return services.Wrap(services.ErrInvariant, "history", "remove track", "cannot delete the last track", nil)
	}
	c.detach()
	for _, item := range c.env.Timeline.ItemsOnTrack(c.track.ID) {
		if _, err := c.env.Timeline.RemoveItem(item.ID); err != nil {
			return err
		}
	}
	if _, _, err := c.env.Timeline.RemoveTrack(c.track.ID); err != nil {
		return err
	}
	c.logger.Debug("track removed",
		logging.String(logging.FieldTrackID, c.track.ID),
		logging.Int("items", len(c.items)),
	)
	return nil
}

func (c *RemoveTrack) Undo(ctx context.Context) error {
	items, err := c.rebuildAll(ctx, c.items)
	if err != nil {
		return err
	}
	if err := c.env.Timeline.AddTrack(c.track, c.index); err != nil {
		releaseAll(items)
		return err
	}
	if err := c.insertAll(items); err != nil {
		_, _, _ = c.env.Timeline.RemoveTrack(c.track.ID)
		return err
	}
	c.arm(ctx, items)
	c.logger.Debug("track restored",
		logging.String(logging.FieldTrackID, c.track.ID),
		logging.Int("index", c.index),
		logging.Int("synchronizers", len(c.syncs)),
	)
	return nil
}

func (c *RemoveTrack) UpdateMediaData(m media.Item, timelineItemID string) {
	for i := range c.items {
		mergeInto(&c.items[i], m, timelineItemID)
	}
}
