package timeline

import (
	"fmt"
	"sort"
	"strings"

	"cutline/internal/services"
)

// Timeline is the track and clip collection of one project. It performs
// no locking; callers serialize access.
type Timeline struct {
	tracks []*Track
	items  map[string]*Item
}

// New returns an empty timeline.
func New() *Timeline {
	return &Timeline{items: make(map[string]*Item)}
}

// AddTrack inserts a track at position. A negative position or one past
// the end appends.
func (tl *Timeline) AddTrack(data TrackData, position int) error {
	if strings.TrimSpace(data.ID) == "" {
		return services.Wrap(services.ErrValidation, "timeline", "add track", "track id is required", nil)
	}
	if _, ok := tl.GetTrack(data.ID); ok {
		return services.Wrap(services.ErrDuplicate, "timeline", "add track", fmt.Sprintf("track %s", data.ID), nil)
	}
	track := &Track{TrackData: data}
	if position < 0 || position >= len(tl.tracks) {
		tl.tracks = append(tl.tracks, track)
		return nil
	}
	tl.tracks = append(tl.tracks, nil)
	copy(tl.tracks[position+1:], tl.tracks[position:])
	tl.tracks[position] = track
	return nil
}

// RemoveTrack deletes an empty track and returns its data and index. The
// last remaining track cannot be removed.
func (tl *Timeline) RemoveTrack(id string) (TrackData, int, error) {
	idx := tl.TrackIndex(id)
	if idx < 0 {
		return TrackData{}, -1, services.Wrap(services.ErrNotFound, "timeline", "remove track", fmt.Sprintf("track %s", id), nil)
	}
	if len(tl.tracks) == 1 {
		return TrackData{}, -1, services.Wrap(services.ErrInvariant, "timeline", "remove track", "cannot remove the last track", nil)
	}
	track := tl.tracks[idx]
	if track.Len() > 0 {
		return TrackData{}, -1, services.Wrap(services.ErrInvariant, "timeline", "remove track", fmt.Sprintf("track %s still holds %d items", id, track.Len()), nil)
	}
	tl.tracks = append(tl.tracks[:idx], tl.tracks[idx+1:]...)
	return track.TrackData, idx, nil
}

// GetTrack returns the track with the given id.
func (tl *Timeline) GetTrack(id string) (*Track, bool) {
	if idx := tl.TrackIndex(id); idx >= 0 {
		return tl.tracks[idx], true
	}
	return nil, false
}

// TrackIndex returns the position of a track, or -1.
func (tl *Timeline) TrackIndex(id string) int {
	for idx, track := range tl.tracks {
		if track.ID == id {
			return idx
		}
	}
	return -1
}

// Tracks returns track data in display order.
func (tl *Timeline) Tracks() []TrackData {
	out := make([]TrackData, 0, len(tl.tracks))
	for _, track := range tl.tracks {
		out = append(out, track.TrackData)
	}
	return out
}

// TrackCount returns the number of tracks.
func (tl *Timeline) TrackCount() int { return len(tl.tracks) }

// AddItem places a live item on its track.
func (tl *Timeline) AddItem(item *Item) error {
	if item == nil || item.ID == "" {
		return services.Wrap(services.ErrValidation, "timeline", "add item", "item id is required", nil)
	}
	if _, exists := tl.items[item.ID]; exists {
		return services.Wrap(services.ErrDuplicate, "timeline", "add item", fmt.Sprintf("item %s", item.ID), nil)
	}
	track, ok := tl.GetTrack(item.TrackID)
	if !ok {
		return services.Wrap(services.ErrNotFound, "timeline", "add item", fmt.Sprintf("track %s", item.TrackID), nil)
	}
	tl.items[item.ID] = item
	track.items = append(track.items, item.ID)
	sort.SliceStable(track.items, func(i, j int) bool {
		return tl.items[track.items[i]].Range.TimelineStart < tl.items[track.items[j]].Range.TimelineStart
	})
	return nil
}

// RemoveItem deletes an item and releases its rendering resource.
func (tl *Timeline) RemoveItem(id string) (*Item, error) {
	item, ok := tl.items[id]
	if !ok {
		return nil, services.Wrap(services.ErrNotFound, "timeline", "remove item", fmt.Sprintf("item %s", id), nil)
	}
	delete(tl.items, id)
	if track, ok := tl.GetTrack(item.TrackID); ok {
		for idx, existing := range track.items {
			if existing == id {
				track.items = append(track.items[:idx], track.items[idx+1:]...)
				break
			}
		}
	}
	if item.Resource != nil {
		item.Resource.Release()
		item.Resource = nil
	}
	return item, nil
}

// GetItem returns the live item with the given id.
func (tl *Timeline) GetItem(id string) (*Item, bool) {
	item, ok := tl.items[id]
	return item, ok
}

// ItemsOnTrack returns the live items of a track in timeline order.
func (tl *Timeline) ItemsOnTrack(trackID string) []*Item {
	track, ok := tl.GetTrack(trackID)
	if !ok {
		return nil
	}
	out := make([]*Item, 0, track.Len())
	for _, id := range track.items {
		out = append(out, tl.items[id])
	}
	return out
}

// ItemsForMedia returns every live item referencing a media item.
func (tl *Timeline) ItemsForMedia(mediaID string) []*Item {
	var out []*Item
	for _, track := range tl.tracks {
		for _, id := range track.items {
			if item := tl.items[id]; item.MediaItemID == mediaID {
				out = append(out, item)
			}
		}
	}
	return out
}

// ItemCount returns the number of placed items.
func (tl *Timeline) ItemCount() int { return len(tl.items) }
