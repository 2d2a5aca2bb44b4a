package timeline

import "github.com/google/uuid"

// TrackData is the canonical description of a track.
type TrackData struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Muted  bool   `json:"muted"`
	Hidden bool   `json:"hidden"`
}

// NewTrackData returns a track description with a fresh id.
func NewTrackData(name string) TrackData {
	return TrackData{ID: uuid.NewString(), Name: name}
}

// Track is an ordered lane of clips.
type Track struct {
	TrackData
	// items holds clip ids ordered by timeline start.
	items []string
}

// ItemIDs returns the clip ids on the track in timeline order.
func (t *Track) ItemIDs() []string {
	out := make([]string, len(t.items))
	copy(out, t.items)
	return out
}

// Len returns the number of clips on the track.
func (t *Track) Len() int { return len(t.items) }
