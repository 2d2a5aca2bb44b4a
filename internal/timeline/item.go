package timeline

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"cutline/internal/media"
	"cutline/internal/services"
)

// Status is the readiness of a placed clip.
type Status string

const (
	StatusLoading Status = "loading"
	StatusReady   Status = "ready"
	StatusError   Status = "error"
)

// Resource is the runtime rendering object of a clip. It is owned by
// exactly one Item and must be released before it is replaced.
type Resource interface {
	Release()
}

// ItemData is the canonical description of a clip: everything needed to
// rebuild it, and nothing bound to a runtime owner.
type ItemData struct {
	ID            string
	TrackID       string
	MediaItemID   string
	Kind          media.Kind
	Range         TimeRange
	Status        Status
	IsInitialized bool
	// FixedRange keeps Range as cut when media properties arrive.
	FixedRange bool
	Config     Config
}

// Item is a live clip instance.
type Item struct {
	ID          string
	TrackID     string
	MediaItemID string
	Kind        media.Kind
	Range       TimeRange
	Status      Status
	// IsInitialized is set the first time media properties are applied
	// and never cleared.
	IsInitialized bool
	FixedRange    bool
	Config        Config
	Resource      Resource
}

// Data snapshots the canonical part of the item.
func (i *Item) Data() ItemData {
	return ItemData{
		ID:            i.ID,
		TrackID:       i.TrackID,
		MediaItemID:   i.MediaItemID,
		Kind:          i.Kind,
		Range:         i.Range,
		Status:        i.Status,
		IsInitialized: i.IsInitialized,
		FixedRange:    i.FixedRange,
		Config:        i.Config,
	}
}

// NewItemData describes a new clip for m placed at start on a track. The
// range spans the media's known duration, or StillFrames while unknown.
func NewItemData(trackID string, m media.Item, start int64, d Defaults) (ItemData, error) {
	if strings.TrimSpace(trackID) == "" {
		return ItemData{}, services.Wrap(services.ErrValidation, "timeline", "new item", "track id is required", nil)
	}
	if start < 0 {
		return ItemData{}, services.Wrap(services.ErrValidation, "timeline", "new item", fmt.Sprintf("negative start %d", start), nil)
	}
	length := d.StillFrames
	if m.HasDuration && m.Duration > 0 {
		length = m.Duration
	}
	if length <= 0 {
		length = 1
	}
	return ItemData{
		ID:          uuid.NewString(),
		TrackID:     trackID,
		MediaItemID: m.ID,
		Kind:        m.Kind,
		Range: TimeRange{
			ClipStart:     0,
			ClipEnd:       length,
			TimelineStart: start,
			TimelineEnd:   start + length,
		},
		Status: StatusLoading,
		Config: DefaultConfig(m.Kind, d),
	}, nil
}

// MergeMedia folds decoded media properties into canonical data the first
// time they arrive. Initialized data is returned unchanged.
func MergeMedia(data ItemData, m media.Item) ItemData {
	if data.IsInitialized {
		return data
	}
	data.Kind, data.Range, data.Config = applyMedia(data.Kind, data.Range, data.FixedRange, data.Config, m)
	data.Status = StatusReady
	data.IsInitialized = true
	return data
}

// applyMedia copies duration and, for visual kinds, dimensions. A fixed
// range is never resized.
func applyMedia(kind media.Kind, r TimeRange, fixed bool, cfg Config, m media.Item) (media.Kind, TimeRange, Config) {
	if kind == media.KindUnknown || kind == "" {
		kind = m.Kind
	}
	if cfg == nil || cfg.Kind() != kind {
		cfg = DefaultConfig(kind, Defaults{Width: m.Width, Height: m.Height})
	}
	if m.HasDuration && !fixed {
		r = r.fitMedia(m.Duration)
	}
	if kind.IsVisual() {
		cfg = withDimensions(cfg, m.Width, m.Height)
	}
	return kind, r, cfg
}

type itemDataJSON struct {
	ID            string          `json:"id"`
	TrackID       string          `json:"track_id"`
	MediaItemID   string          `json:"media_item_id"`
	Kind          media.Kind      `json:"kind"`
	Range         TimeRange       `json:"range"`
	Status        Status          `json:"status"`
	IsInitialized bool            `json:"is_initialized"`
	FixedRange    bool            `json:"fixed_range,omitempty"`
	Config        json.RawMessage `json:"config,omitempty"`
}

// MarshalJSON encodes the config under its kind.
func (d ItemData) MarshalJSON() ([]byte, error) {
	out := itemDataJSON{
		ID:            d.ID,
		TrackID:       d.TrackID,
		MediaItemID:   d.MediaItemID,
		Kind:          d.Kind,
		Range:         d.Range,
		Status:        d.Status,
		IsInitialized: d.IsInitialized,
		FixedRange:    d.FixedRange,
	}
	if d.Config != nil {
		raw, err := json.Marshal(d.Config)
		if err != nil {
			return nil, fmt.Errorf("encode config: %w", err)
		}
		out.Config = raw
	}
	return json.Marshal(out)
}

// UnmarshalJSON selects the config type from the kind.
func (d *ItemData) UnmarshalJSON(data []byte) error {
	var in itemDataJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	cfg, err := decodeConfig(in.Kind, in.Config)
	if err != nil {
		return err
	}
	*d = ItemData{
		ID:            in.ID,
		TrackID:       in.TrackID,
		MediaItemID:   in.MediaItemID,
		Kind:          in.Kind,
		Range:         in.Range,
		Status:        in.Status,
		IsInitialized: in.IsInitialized,
		FixedRange:    in.FixedRange,
		Config:        cfg,
	}
	return nil
}
