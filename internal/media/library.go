package media

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"cutline/internal/logging"
	"cutline/internal/services"
)

// Subscriber receives the terminal outcome of a media item. OnReady fires
// for ready; OnFailed fires for error, cancelled and missing. Either may be nil.
type Subscriber struct {
	OnReady  func(Item)
	OnFailed func(Item)
}

// Subscription is a cancellable watch over one media item.
type Subscription struct {
	once   sync.Once
	cancel func()
}

// Cancel detaches the watcher. It is idempotent and safe on a nil receiver.
func (s *Subscription) Cancel() {
	if s == nil {
		return
	}
	s.once.Do(func() {
		if s.cancel != nil {
			s.cancel()
		}
	})
}

type watcher struct {
	seq uint64
	sub Subscriber
}

type entry struct {
	item     Item
	watchers map[uint64]Subscriber
}

// Library is the media collection shared by the editor components. All
// methods return value snapshots; subscribers are invoked outside the lock.
type Library struct {
	mu      sync.Mutex
	items   map[string]*entry
	order   []string
	nextSeq uint64
	logger  *slog.Logger
	now     func() time.Time
}

// NewLibrary constructs an empty media collection.
func NewLibrary(logger *slog.Logger) *Library {
	return &Library{
		items:  make(map[string]*entry),
		logger: logging.NewComponentLogger(logger, "media"),
		now:    time.Now,
	}
}

// Add registers a new item. A blank ID is assigned and a blank status
// defaults to pending.
func (l *Library) Add(item Item) (Item, error) {
	if item.Source == nil {
		return Item{}, services.Wrap(services.ErrValidation, "media", "add", "source is required", nil)
	}
	item.ID = strings.TrimSpace(item.ID)
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	if item.Status == "" {
		item.Status = StatusPending
	}
	if item.Kind == "" {
		item.Kind = KindUnknown
	}
	now := l.now().UTC()
	item.CreatedAt = now
	item.UpdatedAt = now

	l.mu.Lock()
	defer l.mu.Unlock()
	if _, exists := l.items[item.ID]; exists {
		return Item{}, services.Wrap(services.ErrDuplicate, "media", "add", fmt.Sprintf("media %s already exists", item.ID), nil)
	}
	l.items[item.ID] = &entry{item: item}
	l.order = append(l.order, item.ID)
	return item, nil
}

// Get returns a snapshot of the item with the given id.
func (l *Library) Get(id string) (Item, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e, ok := l.items[id]
	if !ok {
		return Item{}, false
	}
	return e.item, true
}

// List returns snapshots in insertion order.
func (l *Library) List() []Item {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Item, 0, len(l.order))
	for _, id := range l.order {
		out = append(out, l.items[id].item)
	}
	return out
}

// Remove deletes the item and releases its runtime handle. Pending
// subscriptions are dropped without firing.
func (l *Library) Remove(id string) (Item, error) {
	l.mu.Lock()
	e, ok := l.items[id]
	if !ok {
		l.mu.Unlock()
		return Item{}, services.Wrap(services.ErrNotFound, "media", "remove", fmt.Sprintf("media %s", id), nil)
	}
	delete(l.items, id)
	for idx, existing := range l.order {
		if existing == id {
			l.order = append(l.order[:idx], l.order[idx+1:]...)
			break
		}
	}
	handle := e.item.Handle
	e.item.Handle = nil
	l.mu.Unlock()

	if handle != nil {
		handle.Release()
	}
	return e.item, nil
}

// Subscribe watches the item until it reaches a terminal status. When the
// item is already terminal nothing is installed; the caller inspects the
// returned snapshot and handles the outcome itself.
func (l *Library) Subscribe(id string, sub Subscriber) (Item, *Subscription, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e, ok := l.items[id]
	if !ok {
		return Item{}, nil, services.Wrap(services.ErrNotFound, "media", "subscribe", fmt.Sprintf("media %s", id), nil)
	}
	if e.item.Status.IsTerminal() {
		return e.item, &Subscription{}, nil
	}
	l.nextSeq++
	seq := l.nextSeq
	if e.watchers == nil {
		e.watchers = make(map[uint64]Subscriber)
	}
	e.watchers[seq] = sub
	handle := &Subscription{cancel: func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		if current, ok := l.items[id]; ok && current == e {
			delete(e.watchers, seq)
		}
	}}
	return e.item, handle, nil
}

// WatcherCount reports how many subscriptions are pending on an item.
func (l *Library) WatcherCount(id string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	if e, ok := l.items[id]; ok {
		return len(e.watchers)
	}
	return 0
}

// SetProcessing moves the item into processing and records the provider phase.
func (l *Library) SetProcessing(id, phase string) (Item, error) {
	return l.transition(id, StatusProcessing, func(item *Item) {
		item.Phase = strings.TrimSpace(phase)
	})
}

// MarkReady records a successful acquisition. The handle becomes owned by
// the item; when the item is already ready the supplied handle is released.
func (l *Library) MarkReady(id string, res Result) (Item, error) {
	applied := false
	item, err := l.transition(id, StatusReady, func(item *Item) {
		applied = true
		if res.Kind != "" && res.Kind != KindUnknown {
			item.Kind = res.Kind
		}
		if res.HasDuration {
			item.Duration = res.Duration
			item.HasDuration = true
		}
		if res.Width > 0 && res.Height > 0 {
			item.Width = res.Width
			item.Height = res.Height
		}
		item.Handle = res.Handle
		item.Phase = ""
		item.Error = ""
	})
	if !applied && res.Handle != nil {
		res.Handle.Release()
	}
	return item, err
}

// MarkFailed records a terminal non-ready outcome.
func (l *Library) MarkFailed(id string, status Status, cause error) (Item, error) {
	if !status.IsFailure() {
		return Item{}, services.Wrap(services.ErrValidation, "media", "mark failed", fmt.Sprintf("status %q is not a failure", status), nil)
	}
	return l.transition(id, status, func(item *Item) {
		item.Phase = ""
		if cause != nil {
			item.Error = cause.Error()
		}
	})
}

// Reset returns a failed item to pending so it can be acquired again.
func (l *Library) Reset(id string) (Item, error) {
	return l.transition(id, StatusPending, func(item *Item) {
		item.Phase = ""
		item.Error = ""
	})
}

// UpdateSource replaces the source of an item that has not reached a terminal status.
func (l *Library) UpdateSource(id string, src Source) (Item, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e, ok := l.items[id]
	if !ok {
		return Item{}, services.Wrap(services.ErrNotFound, "media", "update source", fmt.Sprintf("media %s", id), nil)
	}
	if src == nil || src.Provider() != e.item.Provider() {
		return Item{}, services.Wrap(services.ErrValidation, "media", "update source", "provider mismatch", nil)
	}
	e.item.Source = src
	e.item.UpdatedAt = l.now().UTC()
	return e.item, nil
}

// transition applies a guarded status change. Same-state changes skip the
// mutation and notify nobody.
func (l *Library) transition(id string, to Status, mutate func(*Item)) (Item, error) {
	l.mu.Lock()
	e, ok := l.items[id]
	if !ok {
		l.mu.Unlock()
		return Item{}, services.Wrap(services.ErrNotFound, "media", "transition", fmt.Sprintf("media %s", id), nil)
	}
	from := e.item.Status
	if err := ValidateTransition(from, to); err != nil {
		l.mu.Unlock()
		return e.item, err
	}
	if from == to && to != StatusProcessing {
		snapshot := e.item
		l.mu.Unlock()
		return snapshot, nil
	}
	e.item.Status = to
	if mutate != nil {
		mutate(&e.item)
	}
	e.item.UpdatedAt = l.now().UTC()
	snapshot := e.item

	var fire []watcher
	if to.IsTerminal() && len(e.watchers) > 0 {
		fire = make([]watcher, 0, len(e.watchers))
		for seq, sub := range e.watchers {
			fire = append(fire, watcher{seq: seq, sub: sub})
		}
		e.watchers = nil
	}
	l.mu.Unlock()

	if from != to {
		l.logger.Debug("media status changed",
			logging.String(logging.FieldMediaID, id),
			logging.String("from", string(from)),
			logging.String("to", string(to)),
		)
	}
	if len(fire) == 0 {
		return snapshot, nil
	}
	sort.Slice(fire, func(i, j int) bool { return fire[i].seq < fire[j].seq })
	for _, w := range fire {
		if to == StatusReady {
			if w.sub.OnReady != nil {
				w.sub.OnReady(snapshot)
			}
			continue
		}
		if w.sub.OnFailed != nil {
			w.sub.OnFailed(snapshot)
		}
	}
	return snapshot, nil
}
