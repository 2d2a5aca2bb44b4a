package acquire

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"cutline/internal/media"
	"cutline/internal/services"
)

// Registry maps provider names to their schedulers.
type Registry struct {
	mu         sync.RWMutex
	schedulers map[string]*Scheduler
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{schedulers: make(map[string]*Scheduler)}
}

// Register adds a scheduler under its provider name.
func (r *Registry) Register(s *Scheduler) error {
	if s == nil {
		return services.Wrap(services.ErrValidation, "acquire", "register", "scheduler is nil", nil)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	name := s.Provider()
	if _, exists := r.schedulers[name]; exists {
		return services.Wrap(services.ErrDuplicate, "acquire", "register", fmt.Sprintf("provider %s already registered", name), nil)
	}
	r.schedulers[name] = s
	return nil
}

// Scheduler returns the scheduler for a provider.
func (r *Registry) Scheduler(provider string) (*Scheduler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.schedulers[provider]
	return s, ok
}

// Providers lists registered provider names in sorted order.
func (r *Registry) Providers() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.schedulers))
	for name := range r.schedulers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Submit routes the item to the scheduler that owns its source provider.
func (r *Registry) Submit(ctx context.Context, item media.Item) error {
	s, err := r.lookup(item)
	if err != nil {
		return err
	}
	return s.AddTask(ctx, item.ID)
}

// Cancel forwards a cancellation to the owning scheduler.
func (r *Registry) Cancel(item media.Item) error {
	s, err := r.lookup(item)
	if err != nil {
		return err
	}
	return s.CancelTask(item.ID)
}

// Wait blocks until every scheduler is idle.
func (r *Registry) Wait(ctx context.Context) error {
	for _, s := range r.all() {
		if err := s.Wait(ctx); err != nil {
			return err
		}
	}
	return nil
}

// Shutdown cancels and drains every scheduler.
func (r *Registry) Shutdown(ctx context.Context) error {
	var errs []error
	for _, s := range r.all() {
		if err := s.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", s.Provider(), err))
		}
	}
	return errors.Join(errs...)
}

func (r *Registry) lookup(item media.Item) (*Scheduler, error) {
	provider := item.Provider()
	s, ok := r.Scheduler(provider)
	if !ok {
		return nil, services.Wrap(services.ErrConfiguration, "acquire", "route", fmt.Sprintf("no scheduler for provider %q", provider), nil)
	}
	return s, nil
}

func (r *Registry) all() []*Scheduler {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Scheduler, 0, len(r.schedulers))
	for _, s := range r.schedulers {
		out = append(out, s)
	}
	return out
}
