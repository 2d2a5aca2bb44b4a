package history

import (
	"context"
	"fmt"
	"math"

	"github.com/google/uuid"

	"cutline/internal/logging"
	"cutline/internal/media"
	"cutline/internal/services"
	"cutline/internal/timeline"
)

// SplitItem cuts a clip in two at a timeline frame.
type SplitItem struct {
	base
	original timeline.ItemData
	first    timeline.ItemData
	second   timeline.ItemData
	frame    int64
}

// SplitRanges divides r at frame. The cut lands proportionally in clip
// space so both halves keep the source speed. frame must lie strictly
// inside the timeline span.
func SplitRanges(r timeline.TimeRange, frame int64) (timeline.TimeRange, timeline.TimeRange, error) {
	if !r.Contains(frame) {
		return timeline.TimeRange{}, timeline.TimeRange{}, services.Wrap(services.ErrValidation, "history", "split",
			fmt.Sprintf("frame %d outside (%d, %d)", frame, r.TimelineStart, r.TimelineEnd), nil)
	}
	ratio := float64(frame-r.TimelineStart) / float64(r.TimelineDuration())
	splitClip := r.ClipStart + int64(math.Round(float64(r.ClipDuration())*ratio))
	first := timeline.TimeRange{ClipStart: r.ClipStart, ClipEnd: splitClip, TimelineStart: r.TimelineStart, TimelineEnd: frame}
	second := timeline.TimeRange{ClipStart: splitClip, ClipEnd: r.ClipEnd, TimelineStart: frame, TimelineEnd: r.TimelineEnd}
	return first, second, nil
}

// NewSplitItem snapshots the live clip and computes both halves.
func NewSplitItem(env Env, itemID string, frame int64) (*SplitItem, error) {
	item, ok := env.Timeline.GetItem(itemID)
	if !ok {
		return nil, services.Wrap(services.ErrNotFound, "history", "split item", fmt.Sprintf("item %s", itemID), nil)
	}
	original := item.Data()
	original.FixedRange = true
	firstRange, secondRange, err := SplitRanges(original.Range, frame)
	if err != nil {
		return nil, err
	}
	first, second := original, original
	first.ID, first.Range, first.FixedRange = uuid.NewString(), firstRange, true
	second.ID, second.Range, second.FixedRange = uuid.NewString(), secondRange, true
	return &SplitItem{
		base:     newBase(env, fmt.Sprintf("Split clip at frame %d", frame)),
		original: original,
		first:    first,
		second:   second,
		frame:    frame,
	}, nil
}

// Halves returns the canonical data of both resulting clips.
func (c *SplitItem) Halves() (timeline.ItemData, timeline.ItemData) { return c.first, c.second }

// Original returns the canonical data of the clip before the split.
func (c *SplitItem) Original() timeline.ItemData { return c.original }

func (c *SplitItem) Execute(ctx context.Context) error {
	if _, ok := c.env.Timeline.GetItem(c.original.ID); !ok {
		return services.Wrap(services.ErrNotFound, "history", "split item", fmt.Sprintf("item %s", c.original.ID), nil)
	}
	if err := c.swap(ctx, []string{c.original.ID}, []timeline.ItemData{c.first, c.second}); err != nil {
		return err
	}
	c.logger.Debug("clip split",
		logging.String(logging.FieldItemID, c.original.ID),
		logging.Int64("frame", c.frame),
	)
	return nil
}

func (c *SplitItem) Undo(ctx context.Context) error {
	for _, id := range []string{c.first.ID, c.second.ID} {
		if _, ok := c.env.Timeline.GetItem(id); !ok {
			return services.Wrap(services.ErrNotFound, "history", "undo split", fmt.Sprintf("item %s", id), nil)
		}
	}
	if err := c.swap(ctx, []string{c.first.ID, c.second.ID}, []timeline.ItemData{c.original}); err != nil {
		return err
	}
	c.logger.Debug("clip split undone", logging.String(logging.FieldItemID, c.original.ID))
	return nil
}

// swap replaces the live items in remove with fresh items built from add.
// Everything is rebuilt first; a failed insert puts the removed items back.
func (c *SplitItem) swap(ctx context.Context, remove []string, add []timeline.ItemData) error {
	items, err := c.rebuildAll(ctx, add)
	if err != nil {
		return err
	}
	var removed []timeline.ItemData
	for _, id := range remove {
		item, err := c.env.Timeline.RemoveItem(id)
		if err != nil {
			releaseAll(items)
			c.restore(ctx, removed)
			return err
		}
		removed = append(removed, item.Data())
	}
	if err := c.insertAll(items); err != nil {
		c.restore(ctx, removed)
		return err
	}
	c.arm(ctx, items)
	return nil
}

func (c *SplitItem) restore(ctx context.Context, data []timeline.ItemData) {
	items, err := c.rebuildAll(ctx, data)
	if err == nil {
		err = c.insertAll(items)
	}
	if err != nil {
		logging.ErrorWithContext(c.logger, "split rollback failed", "split_rollback_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "reload the project"),
		)
	}
}

func (c *SplitItem) UpdateMediaData(m media.Item, timelineItemID string) {
	for _, data := range []*timeline.ItemData{&c.original, &c.first, &c.second} {
		mergeInto(data, m, timelineItemID)
	}
}
