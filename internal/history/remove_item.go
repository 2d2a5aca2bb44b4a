package history

import (
	"context"
	"fmt"

	"cutline/internal/logging"
	"cutline/internal/media"
	"cutline/internal/services"
	"cutline/internal/timeline"
)

// RemoveItem deletes a clip from the timeline.
type RemoveItem struct {
	base
	data timeline.ItemData
}

// NewRemoveItem snapshots the live clip with the given id.
func NewRemoveItem(env Env, itemID string) (*RemoveItem, error) {
	item, ok := env.Timeline.GetItem(itemID)
	if !ok {
		return nil, services.Wrap(services.ErrNotFound, "history", "remove item", fmt.Sprintf("item %s", itemID), nil)
	}
	return &RemoveItem{base: newBase(env, "Remove clip"), data: item.Data()}, nil
}

// Data returns the canonical data the command restores on undo.
func (c *RemoveItem) Data() timeline.ItemData { return c.data }

func (c *RemoveItem) Execute(ctx context.Context) error {
	if _, ok := c.env.Timeline.GetItem(c.data.ID); !ok {
		return services.Wrap(services.ErrNotFound, "history", "remove item", fmt.Sprintf("item %s", c.data.ID), nil)
	}
	c.detach()
	if _, err := c.env.Timeline.RemoveItem(c.data.ID); err != nil {
		return err
	}
	c.logger.Debug("clip removed", logging.String(logging.FieldItemID, c.data.ID))
	return nil
}

func (c *RemoveItem) Undo(ctx context.Context) error {
	items, err := c.rebuildAll(ctx, []timeline.ItemData{c.data})
	if err != nil {
		return err
	}
	if err := c.insertAll(items); err != nil {
		return err
	}
	c.arm(ctx, items)
	c.logger.Debug("clip restored", logging.String(logging.FieldItemID, c.data.ID))
	return nil
}

func (c *RemoveItem) UpdateMediaData(m media.Item, timelineItemID string) {
	mergeInto(&c.data, m, timelineItemID)
}
