package media

import "time"

// Handle is the runtime asset produced by a successful acquisition attempt.
// It is owned exclusively by the item that holds it.
type Handle interface {
	Release()
}

// Item is a snapshot of a media asset.
type Item struct {
	ID     string
	Name   string
	Kind   Kind
	Status Status
	// Phase names the provider step while Status is processing.
	Phase string
	// Duration is in frames and only meaningful when HasDuration is set.
	Duration    int64
	HasDuration bool
	Width       int
	Height      int
	Source      Source
	Handle      Handle
	Error       string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// IsReady reports whether the item has been acquired successfully.
func (i Item) IsReady() bool {
	return i.Status == StatusReady
}

// Provider returns the provider name of the item's source.
func (i Item) Provider() string {
	if i.Source == nil {
		return ""
	}
	return i.Source.Provider()
}

// Result carries the decoded properties of a completed acquisition.
type Result struct {
	Kind        Kind
	Duration    int64
	HasDuration bool
	Width       int
	Height      int
	Handle      Handle
}
