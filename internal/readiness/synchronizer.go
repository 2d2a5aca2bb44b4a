package readiness

import (
	"context"
	"log/slog"
	"sync"

	"cutline/internal/logging"
	"cutline/internal/media"
	"cutline/internal/timeline"
)

// Executor runs asynchronous callbacks in the caller's serialization domain.
type Executor interface {
	Do(fn func())
}

// ExecutorFunc adapts a function to Executor.
type ExecutorFunc func(fn func())

// Do calls f.
func (f ExecutorFunc) Do(fn func()) { f(fn) }

// Inline runs callbacks on the notifying goroutine.
var Inline Executor = ExecutorFunc(func(fn func()) { fn() })

// Updater receives decoded media properties for one timeline item.
type Updater interface {
	UpdateMediaData(m media.Item, timelineItemID string)
}

// CommandLookup resolves a history command by id.
type CommandLookup interface {
	Lookup(id string) (Updater, bool)
}

// MediaSource offers status subscriptions.
type MediaSource interface {
	Subscribe(id string, sub media.Subscriber) (media.Item, *media.Subscription, error)
}

// ItemStore resolves live timeline items.
type ItemStore interface {
	GetItem(id string) (*timeline.Item, bool)
}

// Binding names what a Synchronizer watches and whom it updates.
type Binding struct {
	MediaItemID   string
	ItemIDs       []string
	CommandID     string
	UpdateCommand bool
}

// Deps are the collaborators shared by every Synchronizer.
type Deps struct {
	Media     MediaSource
	Items     ItemStore
	Rebuilder *timeline.Rebuilder
	Commands  CommandLookup
	Executor  Executor
	Logger    *slog.Logger
}

// Synchronizer delivers one media item's terminal status to its dependents.
type Synchronizer struct {
	binding Binding
	deps    Deps
	logger  *slog.Logger
	ctx     context.Context
	onDone  func(*Synchronizer)

	mu      sync.Mutex
	sub     *media.Subscription
	cleaned bool
}

func newSynchronizer(b Binding, deps Deps, onDone func(*Synchronizer)) *Synchronizer {
	ids := make([]string, len(b.ItemIDs))
	copy(ids, b.ItemIDs)
	b.ItemIDs = ids
	if deps.Executor == nil {
		deps.Executor = Inline
	}
	if deps.Rebuilder == nil {
		deps.Rebuilder = timeline.NewRebuilder(nil)
	}
	return &Synchronizer{
		binding: b,
		deps:    deps,
		logger: logging.NewComponentLogger(deps.Logger, "readiness").With(
			logging.String(logging.FieldMediaID, b.MediaItemID),
			logging.String(logging.FieldCommandID, b.CommandID),
		),
		onDone: onDone,
	}
}

// Binding returns what the synchronizer watches.
func (s *Synchronizer) Binding() Binding {
	b := s.binding
	b.ItemIDs = append([]string(nil), s.binding.ItemIDs...)
	return b
}

// Setup installs the status watch. Media that is already terminal is
// handled synchronously and nothing is installed; the caller must already
// be inside the executor's serialization domain.
func (s *Synchronizer) Setup(ctx context.Context) error {
	s.ctx = context.WithoutCancel(ctx)
	snapshot, sub, err := s.deps.Media.Subscribe(s.binding.MediaItemID, media.Subscriber{
		OnReady:  func(m media.Item) { s.deliver(m, true) },
		OnFailed: func(m media.Item) { s.deliver(m, false) },
	})
	if err != nil {
		s.Cleanup()
		return err
	}
	s.mu.Lock()
	if s.cleaned {
		s.mu.Unlock()
		sub.Cancel()
		return nil
	}
	s.sub = sub
	s.mu.Unlock()

	switch {
	case snapshot.IsReady():
		s.handleReady(snapshot)
		s.Cleanup()
	case snapshot.Status.IsFailure():
		s.handleFailed(snapshot)
		s.Cleanup()
	default:
		s.logger.Debug("synchronizer armed", logging.Int("dependents", len(s.binding.ItemIDs)))
	}
	return nil
}

// Cleanup detaches the watch. It is idempotent and no callback runs after it.
func (s *Synchronizer) Cleanup() {
	s.mu.Lock()
	if s.cleaned {
		s.mu.Unlock()
		return
	}
	s.cleaned = true
	sub := s.sub
	s.sub = nil
	s.mu.Unlock()

	sub.Cancel()
	if s.onDone != nil {
		s.onDone(s)
	}
}

// Done reports whether the synchronizer has been cleaned up.
func (s *Synchronizer) Done() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cleaned
}

func (s *Synchronizer) deliver(m media.Item, ready bool) {
	s.deps.Executor.Do(func() {
		if s.Done() {
			return
		}
		if ready {
			s.handleReady(m)
		} else {
			s.handleFailed(m)
		}
		s.Cleanup()
	})
}

func (s *Synchronizer) handleReady(m media.Item) {
	var updater Updater
	if s.binding.UpdateCommand && s.deps.Commands != nil {
		if cmd, ok := s.deps.Commands.Lookup(s.binding.CommandID); ok {
			updater = cmd
		}
	}
	transitioned := 0
	for _, id := range s.binding.ItemIDs {
		if updater != nil {
			updater.UpdateMediaData(m, id)
		}
		item, ok := s.deps.Items.GetItem(id)
		if !ok || item.MediaItemID != m.ID || item.Status != timeline.StatusLoading {
			continue
		}
		if err := s.deps.Rebuilder.TransitionToReady(s.ctx, item, m); err != nil {
			timeline.MarkFailed(item)
			logging.WarnWithContext(s.logger, "item transition failed", "item_transition_failed",
				logging.String(logging.FieldItemID, id),
				logging.Error(err),
				logging.String(logging.FieldImpact, "clip is marked as errored"),
			)
			continue
		}
		transitioned++
	}
	s.logger.Debug("media ready delivered", logging.Int("transitioned", transitioned))
}

func (s *Synchronizer) handleFailed(m media.Item) {
	marked := 0
	for _, id := range s.binding.ItemIDs {
		item, ok := s.deps.Items.GetItem(id)
		if !ok || item.MediaItemID != m.ID {
			continue
		}
		if timeline.MarkFailed(item) {
			marked++
		}
	}
	s.logger.Info("media failure delivered",
		logging.String("status", string(m.Status)),
		logging.Int("marked", marked),
	)
}
