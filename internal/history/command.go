package history

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"cutline/internal/logging"
	"cutline/internal/media"
	"cutline/internal/readiness"
	"cutline/internal/timeline"
)

// Command is an undoable edit. The set of implementations is closed:
// AddItem, RemoveItem, SplitItem, AddTrack and RemoveTrack.
type Command interface {
	ID() string
	Description() string
	Execute(ctx context.Context) error
	Undo(ctx context.Context) error
	// UpdateMediaData merges decoded media into the stored data for one
	// timeline item. It is called only by readiness synchronizers.
	UpdateMediaData(m media.Item, timelineItemID string)
	// Dispose detaches pending synchronizers. It is idempotent.
	Dispose()
	IsDisposed() bool
	isCommand()
}

// Armer arms readiness synchronizers.
type Armer interface {
	Arm(ctx context.Context, b readiness.Binding) (*readiness.Synchronizer, error)
}

// Env holds the collaborators commands act on.
type Env struct {
	Timeline  *timeline.Timeline
	Media     timeline.MediaLookup
	Rebuilder *timeline.Rebuilder
	Readiness Armer
	Logger    *slog.Logger
}

type base struct {
	id          string
	description string
	env         Env
	logger      *slog.Logger
	syncs       []*readiness.Synchronizer
	disposed    bool
}

func newBase(env Env, description string) base {
	if env.Rebuilder == nil {
		env.Rebuilder = timeline.NewRebuilder(nil)
	}
	id := uuid.NewString()
	return base{
		id:          id,
		description: description,
		env:         env,
		logger:      logging.NewComponentLogger(env.Logger, "history").With(logging.String(logging.FieldCommandID, id)),
	}
}

func (b *base) ID() string          { return b.id }
func (b *base) Description() string { return b.description }
func (b *base) IsDisposed() bool    { return b.disposed }
func (*base) isCommand()            {}

// Dispose tears down any pending synchronizer. It never fails.
func (b *base) Dispose() {
	if b.disposed {
		return
	}
	b.detach()
	b.disposed = true
}

func (b *base) detach() {
	for _, s := range b.syncs {
		s.Cleanup()
	}
	b.syncs = nil
}

// rebuildAll rebuilds every item before anything is mutated. On failure
// the resources of already rebuilt items are released.
func (b *base) rebuildAll(ctx context.Context, data []timeline.ItemData) ([]*timeline.Item, error) {
	items := make([]*timeline.Item, 0, len(data))
	for _, d := range data {
		item, err := b.env.Rebuilder.Rebuild(ctx, d, b.env.Media)
		if err != nil {
			releaseAll(items)
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

// arm replaces the command's synchronizers with one per distinct media
// among the loading items, in first-seen order.
func (b *base) arm(ctx context.Context, items []*timeline.Item) {
	b.detach()
	if b.env.Readiness == nil {
		return
	}
	var order []string
	groups := make(map[string][]string)
	for _, item := range items {
		if item.Status != timeline.StatusLoading {
			continue
		}
		if _, seen := groups[item.MediaItemID]; !seen {
			order = append(order, item.MediaItemID)
		}
		groups[item.MediaItemID] = append(groups[item.MediaItemID], item.ID)
	}
	for _, mediaID := range order {
		s, err := b.env.Readiness.Arm(ctx, readiness.Binding{
			MediaItemID:   mediaID,
			ItemIDs:       groups[mediaID],
			CommandID:     b.id,
			UpdateCommand: true,
		})
		if err != nil {
			logging.WarnWithContext(b.logger, "synchronizer not armed", "readiness_arm_failed",
				logging.String(logging.FieldMediaID, mediaID),
				logging.Error(err),
				logging.String(logging.FieldImpact, "clips stay loading until the command is redone"),
			)
			continue
		}
		if !s.Done() {
			b.syncs = append(b.syncs, s)
		}
	}
}

// insertAll adds rebuilt items to the timeline, rolling back on failure.
func (b *base) insertAll(items []*timeline.Item) error {
	for idx, item := range items {
		if err := b.env.Timeline.AddItem(item); err != nil {
			for _, added := range items[:idx] {
				_, _ = b.env.Timeline.RemoveItem(added.ID)
			}
			releaseAll(items[idx:])
			return err
		}
	}
	return nil
}

func releaseAll(items []*timeline.Item) {
	for _, item := range items {
		if item.Resource != nil {
			item.Resource.Release()
			item.Resource = nil
		}
	}
}

func mergeInto(data *timeline.ItemData, m media.Item, timelineItemID string) bool {
	if data.MediaItemID != m.ID {
		return false
	}
	if timelineItemID != "" && data.ID != timelineItemID {
		return false
	}
	*data = timeline.MergeMedia(*data, m)
	return true
}
