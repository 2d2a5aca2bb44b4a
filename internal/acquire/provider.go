package acquire

import (
	"context"
	"errors"
	"io/fs"

	"cutline/internal/media"
	"cutline/internal/services"
)

// PhaseFunc reports the provider step currently in progress.
type PhaseFunc func(phase string)

// Provider performs kind-specific acquisition for one source type.
type Provider interface {
	// Name matches media.Source.Provider for the sources it accepts.
	Name() string
	// Cancellable reports whether in-flight tasks honour CancelTask.
	Cancellable() bool
	// Acquire must return once the asset is usable or has failed.
	Acquire(ctx context.Context, item media.Item, report PhaseFunc) (media.Result, error)
}

// Persister records acquisition outcomes. Failures are logged and never
// roll the acquisition back.
type Persister interface {
	Upsert(ctx context.Context, item media.Item) error
}

// TerminalStatus maps an acquisition outcome to the media status it ends in.
func TerminalStatus(err error) media.Status {
	switch {
	case err == nil:
		return media.StatusReady
	case errors.Is(err, services.ErrMissing), errors.Is(err, fs.ErrNotExist):
		return media.StatusMissing
	case errors.Is(err, context.Canceled):
		return media.StatusCancelled
	default:
		return media.StatusError
	}
}
