package media

import (
	"fmt"
	"strings"

	"cutline/internal/services"
)

// Status represents the acquisition lifecycle of a media item.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusReady      Status = "ready"
	StatusError      Status = "error"
	StatusCancelled  Status = "cancelled"
	StatusMissing    Status = "missing"
)

var allStatuses = []Status{
	StatusPending,
	StatusProcessing,
	StatusReady,
	StatusError,
	StatusCancelled,
	StatusMissing,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

var terminalStatuses = map[Status]struct{}{
	StatusReady:     {},
	StatusError:     {},
	StatusCancelled: {},
	StatusMissing:   {},
}

// retryable statuses may be reset to pending for a new attempt.
var retryableStatuses = map[Status]struct{}{
	StatusError:     {},
	StatusCancelled: {},
	StatusMissing:   {},
}

type statusTransition struct {
	from Status
	to   Status
}

var allowedTransitions = func() map[statusTransition]struct{} {
	set := map[statusTransition]struct{}{
		{from: StatusPending, to: StatusProcessing}: {},
	}
	for terminal := range terminalStatuses {
		set[statusTransition{from: StatusPending, to: terminal}] = struct{}{}
		set[statusTransition{from: StatusProcessing, to: terminal}] = struct{}{}
	}
	for retry := range retryableStatuses {
		set[statusTransition{from: retry, to: StatusPending}] = struct{}{}
	}
	return set
}()

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// IsTerminal reports whether no further provider-driven transition follows.
func (s Status) IsTerminal() bool {
	_, ok := terminalStatuses[s]
	return ok
}

// IsFailure reports whether the status is a terminal non-ready outcome.
func (s Status) IsFailure() bool {
	_, ok := retryableStatuses[s]
	return ok
}

// CanTransition reports whether moving from one status to another is allowed.
// Same-state transitions are always allowed and act as no-ops.
func CanTransition(from, to Status) bool {
	if from == to {
		return true
	}
	_, ok := allowedTransitions[statusTransition{from: from, to: to}]
	return ok
}

// ValidateTransition returns a validation error for disallowed transitions.
func ValidateTransition(from, to Status) error {
	if _, ok := statusSet[to]; !ok {
		return services.Wrap(services.ErrValidation, "media", "transition", fmt.Sprintf("unknown status %q", to), nil)
	}
	if !CanTransition(from, to) {
		return services.Wrap(services.ErrInvariant, "media", "transition", fmt.Sprintf("%s -> %s not allowed", from, to), nil)
	}
	return nil
}
