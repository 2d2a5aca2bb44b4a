package timeline

import (
	"context"
	"sync/atomic"

	"cutline/internal/media"
)

// ResourceKey identifies the source span a resource renders.
type ResourceKey struct {
	MediaItemID string
	Range       TimeRange
}

// ResourceFactory materializes rendering resources from ready media.
type ResourceFactory interface {
	Build(ctx context.Context, kind media.Kind, key ResourceKey, m media.Item) (Resource, error)
}

// ResourceFactoryFunc adapts a function to ResourceFactory.
type ResourceFactoryFunc func(ctx context.Context, kind media.Kind, key ResourceKey, m media.Item) (Resource, error)

// Build calls f.
func (f ResourceFactoryFunc) Build(ctx context.Context, kind media.Kind, key ResourceKey, m media.Item) (Resource, error) {
	return f(ctx, kind, key, m)
}

// Clip is the default rendering resource: a view of a media span.
type Clip struct {
	Kind     media.Kind
	Key      ResourceKey
	released atomic.Bool
}

// Release marks the clip as no longer renderable.
func (c *Clip) Release() { c.released.Store(true) }

// Released reports whether Release has been called.
func (c *Clip) Released() bool { return c.released.Load() }

// ClipFactory builds Clip resources.
type ClipFactory struct{}

func (ClipFactory) Build(ctx context.Context, kind media.Kind, key ResourceKey, _ media.Item) (Resource, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &Clip{Kind: kind, Key: key}, nil
}
