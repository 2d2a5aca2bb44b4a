package timeline

import (
	"fmt"

	"cutline/internal/services"
)

// TimeRange places a clip on the timeline, in integer frames. Clip bounds
// are local to the source media; timeline bounds are project-wide.
type TimeRange struct {
	ClipStart     int64 `json:"clip_start"`
	ClipEnd       int64 `json:"clip_end"`
	TimelineStart int64 `json:"timeline_start"`
	TimelineEnd   int64 `json:"timeline_end"`
}

// ClipDuration returns the number of source frames covered.
func (r TimeRange) ClipDuration() int64 { return r.ClipEnd - r.ClipStart }

// TimelineDuration returns the number of timeline frames covered.
func (r TimeRange) TimelineDuration() int64 { return r.TimelineEnd - r.TimelineStart }

// Contains reports whether frame falls strictly inside the timeline span.
func (r TimeRange) Contains(frame int64) bool {
	return frame > r.TimelineStart && frame < r.TimelineEnd
}

// Validate checks ordering and sign of the bounds.
func (r TimeRange) Validate() error {
	if r.ClipStart < 0 || r.TimelineStart < 0 {
		return services.Wrap(services.ErrValidation, "timeline", "range", fmt.Sprintf("negative start in %v", r), nil)
	}
	if r.ClipEnd <= r.ClipStart || r.TimelineEnd <= r.TimelineStart {
		return services.Wrap(services.ErrValidation, "timeline", "range", fmt.Sprintf("empty or inverted span in %v", r), nil)
	}
	return nil
}

// fitMedia resizes the range to cover the media from ClipStart to its
// end, preserving TimelineStart.
func (r TimeRange) fitMedia(duration int64) TimeRange {
	if duration <= 0 {
		return r
	}
	if r.ClipStart >= duration {
		r.ClipStart = 0
	}
	r.ClipEnd = duration
	r.TimelineEnd = r.TimelineStart + (r.ClipEnd - r.ClipStart)
	return r
}

func (r TimeRange) String() string {
	return fmt.Sprintf("clip[%d,%d) timeline[%d,%d)", r.ClipStart, r.ClipEnd, r.TimelineStart, r.TimelineEnd)
}
