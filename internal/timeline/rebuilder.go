package timeline

import (
	"context"
	"fmt"

	"cutline/internal/media"
	"cutline/internal/services"
)

// MediaLookup resolves media items by id.
type MediaLookup interface {
	Get(id string) (media.Item, bool)
}

// Rebuilder creates live items from canonical data.
type Rebuilder struct {
	factory ResourceFactory
}

// NewRebuilder returns a rebuilder using factory, or ClipFactory when nil.
func NewRebuilder(factory ResourceFactory) *Rebuilder {
	if factory == nil {
		factory = ClipFactory{}
	}
	return &Rebuilder{factory: factory}
}

// Rebuild returns a fresh item for data. Its status follows the media's
// current readiness; ready media is transitioned immediately. No shared
// collection is touched.
func (r *Rebuilder) Rebuild(ctx context.Context, data ItemData, lookup MediaLookup) (*Item, error) {
	m, ok := lookup.Get(data.MediaItemID)
	if !ok {
		return nil, services.Wrap(services.ErrNotFound, "timeline", "rebuild", fmt.Sprintf("media %s for item %s no longer exists", data.MediaItemID, data.ID), nil)
	}
	item := &Item{
		ID:            data.ID,
		TrackID:       data.TrackID,
		MediaItemID:   data.MediaItemID,
		Kind:          data.Kind,
		Range:         data.Range,
		Status:        StatusLoading,
		IsInitialized: data.IsInitialized,
		FixedRange:    data.FixedRange,
		Config:        data.Config,
	}
	switch {
	case m.IsReady():
		if err := r.TransitionToReady(ctx, item, m); err != nil {
			return nil, err
		}
	case m.Status.IsFailure():
		item.Status = StatusError
	}
	return item, nil
}

// TransitionToReady applies media properties (first time only) and
// materializes the item's resource. Items that are not loading are left
// untouched. On failure the item is unchanged.
func (r *Rebuilder) TransitionToReady(ctx context.Context, item *Item, m media.Item) error {
	if item == nil || item.Status != StatusLoading {
		return nil
	}
	kind, rng, cfg := item.Kind, item.Range, item.Config
	if !item.IsInitialized {
		kind, rng, cfg = applyMedia(kind, rng, item.FixedRange, cfg, m)
	}
	res, err := r.factory.Build(ctx, kind, ResourceKey{MediaItemID: item.MediaItemID, Range: rng}, m)
	if err != nil {
		return services.Wrap(services.ErrAcquisition, "timeline", "materialize", fmt.Sprintf("item %s", item.ID), err)
	}
	if item.Resource != nil {
		item.Resource.Release()
	}
	item.Kind, item.Range, item.Config = kind, rng, cfg
	item.Resource = res
	item.Status = StatusReady
	item.IsInitialized = true
	return nil
}

// MarkFailed flags an item whose media failed. Ready items keep their state.
func MarkFailed(item *Item) bool {
	if item == nil || item.Status == StatusReady {
		return false
	}
	item.Status = StatusError
	return true
}
