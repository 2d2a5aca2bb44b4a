package history

import (
	"context"

	"cutline/internal/logging"
	"cutline/internal/media"
	"cutline/internal/timeline"
)

// AddItem places a clip on the timeline.
type AddItem struct {
	base
	data timeline.ItemData
}

// NewAddItem captures data for a clip to be added.
func NewAddItem(env Env, data timeline.ItemData) *AddItem {
	return &AddItem{base: newBase(env, "Add clip"), data: data}
}

// Data returns the canonical data the command rebuilds from.
func (c *AddItem) Data() timeline.ItemData { return c.data }

func (c *AddItem) Execute(ctx context.Context) error {
	items, err := c.rebuildAll(ctx, []timeline.ItemData{c.data})
	if err != nil {
		return err
	}
	if err := c.insertAll(items); err != nil {
		return err
	}
	c.arm(ctx, items)
	c.logger.Debug("clip added", logging.String(logging.FieldItemID, c.data.ID), logging.String("status", string(items[0].Status)))
	return nil
}

func (c *AddItem) Undo(ctx context.Context) error {
	if _, err := c.env.Timeline.RemoveItem(c.data.ID); err != nil {
		return err
	}
	c.logger.Debug("clip add undone", logging.String(logging.FieldItemID, c.data.ID))
	return nil
}

func (c *AddItem) UpdateMediaData(m media.Item, timelineItemID string) {
	mergeInto(&c.data, m, timelineItemID)
}
