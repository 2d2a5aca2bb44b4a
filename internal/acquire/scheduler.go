package acquire

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"cutline/internal/logging"
	"cutline/internal/media"
	"cutline/internal/services"
)

const defaultPhase = "acquiring"

// Options configures a Scheduler.
type Options struct {
	MaxConcurrent int
	Logger        *slog.Logger
	Metrics       *Metrics
	Persister     Persister
}

type task struct {
	id       string
	ctx      context.Context
	cancel   context.CancelFunc
	running  bool
	admitted time.Time
}

// Scheduler runs acquisition tasks for a single provider.
type Scheduler struct {
	provider  Provider
	library   *media.Library
	logger    *slog.Logger
	metrics   *Metrics
	persister Persister

	mu    sync.Mutex
	gate  *semaphore.Weighted
	limit int
	tasks map[string]*task
	// queue holds tasks not yet handed to the gate, in AddTask order.
	queue       []*task
	dispatching bool
	wg          sync.WaitGroup
}

// NewScheduler constructs a scheduler for provider writing status into library.
func NewScheduler(provider Provider, library *media.Library, opts Options) (*Scheduler, error) {
	if provider == nil {
		return nil, services.Wrap(services.ErrConfiguration, "acquire", "new scheduler", "provider is required", nil)
	}
	if library == nil {
		return nil, services.Wrap(services.ErrConfiguration, "acquire", "new scheduler", "media library is required", nil)
	}
	limit := opts.MaxConcurrent
	if limit < 1 {
		limit = 1
	}
	logger := logging.NewComponentLogger(opts.Logger, "scheduler").With(logging.String(logging.FieldProvider, provider.Name()))
	return &Scheduler{
		provider:  provider,
		library:   library,
		logger:    logger,
		metrics:   opts.Metrics,
		persister: opts.Persister,
		gate:      semaphore.NewWeighted(int64(limit)),
		limit:     limit,
		tasks:     make(map[string]*task),
	}, nil
}

// Provider returns the provider name this scheduler serves.
func (s *Scheduler) Provider() string {
	return s.provider.Name()
}

// AddTask enqueues acquisition of a pending media item. Tasks are
// admitted in the order they were added. The task runs detached from ctx
// cancellation but keeps its values.
func (s *Scheduler) AddTask(ctx context.Context, id string) error {
	item, ok := s.library.Get(id)
	if !ok {
		return services.Wrap(services.ErrNotFound, "acquire", "add task", fmt.Sprintf("media %s", id), nil)
	}
	if item.Provider() != s.provider.Name() {
		return services.Wrap(services.ErrValidation, "acquire", "add task", fmt.Sprintf("media %s belongs to provider %q", id, item.Provider()), nil)
	}
	if item.Status != media.StatusPending {
		return services.Wrap(services.ErrValidation, "acquire", "add task", fmt.Sprintf("media %s is %s", id, item.Status), nil)
	}

	s.mu.Lock()
	if _, exists := s.tasks[id]; exists {
		s.mu.Unlock()
		return services.Wrap(services.ErrDuplicate, "acquire", "add task", fmt.Sprintf("media %s already queued", id), nil)
	}
	taskCtx, cancel := context.WithCancel(services.WithProvider(services.WithMediaID(context.WithoutCancel(ctx), id), s.provider.Name()))
	t := &task{id: id, ctx: taskCtx, cancel: cancel}
	s.tasks[id] = t
	s.queue = append(s.queue, t)
	s.wg.Add(1)
	start := !s.dispatching
	s.dispatching = true
	s.mu.Unlock()

	s.metrics.taskQueued(s.provider.Name())
	s.logger.Debug("task queued", logging.String(logging.FieldMediaID, id))
	if start {
		go s.dispatch()
	}
	return nil
}

// CancelTask stops a queued or running task. Providers that cannot be
// interrupted always report services.ErrNotCancellable.
func (s *Scheduler) CancelTask(id string) error {
	if !s.provider.Cancellable() {
		return services.Wrap(services.ErrNotCancellable, "acquire", "cancel task", fmt.Sprintf("provider %s", s.provider.Name()), nil)
	}
	s.mu.Lock()
	t, ok := s.tasks[id]
	dequeued := ok && s.dequeueLocked(t)
	s.mu.Unlock()
	if !ok {
		return services.Wrap(services.ErrNotFound, "acquire", "cancel task", fmt.Sprintf("no task for media %s", id), nil)
	}
	t.cancel()
	if dequeued {
		s.abandon(t, context.Canceled)
	}
	return nil
}

// SetMaxConcurrentTasks replaces the admission gate. Running tasks keep
// the gate they were admitted under; waiting tasks are admitted through
// the new one.
func (s *Scheduler) SetMaxConcurrentTasks(n int) error {
	if n < 1 {
		return services.Wrap(services.ErrValidation, "acquire", "set max concurrent", fmt.Sprintf("limit %d must be at least 1", n), nil)
	}
	s.mu.Lock()
	s.gate = semaphore.NewWeighted(int64(n))
	s.limit = n
	s.mu.Unlock()
	s.logger.Info("concurrency limit changed", logging.Int("max_concurrent", n))
	return nil
}

// MaxConcurrentTasks returns the current admission limit.
func (s *Scheduler) MaxConcurrentTasks() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.limit
}

// TaskCount returns the number of queued and running tasks.
func (s *Scheduler) TaskCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tasks)
}

// HasTask reports whether a task exists for the media item.
func (s *Scheduler) HasTask(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.tasks[id]
	return ok
}

// Wait blocks until every task has finished or ctx is done.
func (s *Scheduler) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Shutdown cancels every task regardless of provider and waits for them.
func (s *Scheduler) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	pending := s.queue
	s.queue = nil
	for _, t := range s.tasks {
		t.cancel()
	}
	s.mu.Unlock()
	for _, t := range pending {
		s.abandon(t, context.Canceled)
	}
	return s.Wait(ctx)
}

// dispatch hands queued tasks to the gate one at a time, so admission
// follows queue order. It exits once the queue is empty.
func (s *Scheduler) dispatch() {
	for {
		s.mu.Lock()
		if len(s.queue) == 0 {
			s.dispatching = false
			s.mu.Unlock()
			return
		}
		t := s.queue[0]
		s.queue[0] = nil
		s.queue = s.queue[1:]
		gate := s.gate
		s.mu.Unlock()

		if err := gate.Acquire(t.ctx, 1); err != nil {
			s.abandon(t, err)
			continue
		}
		if err := t.ctx.Err(); err != nil {
			gate.Release(1)
			s.abandon(t, err)
			continue
		}
		s.mu.Lock()
		t.running = true
		t.admitted = time.Now()
		s.mu.Unlock()
		go s.run(t, gate)
	}
}

func (s *Scheduler) dequeueLocked(t *task) bool {
	for idx, queued := range s.queue {
		if queued == t {
			s.queue = append(s.queue[:idx], s.queue[idx+1:]...)
			return true
		}
	}
	return false
}

// abandon finishes a task that never reached the provider.
func (s *Scheduler) abandon(t *task, err error) {
	defer s.wg.Done()
	defer t.cancel()
	s.finish(t.ctx, t, media.Result{}, err)
}

func (s *Scheduler) run(t *task, gate *semaphore.Weighted) {
	defer s.wg.Done()
	defer t.cancel()
	defer gate.Release(1)
	ctx := t.ctx
	s.metrics.taskStarted(s.provider.Name())

	item, err := s.library.SetProcessing(t.id, defaultPhase)
	if err != nil {
		s.finish(ctx, t, media.Result{}, err)
		return
	}
	s.logger.Info("acquisition started", logging.String(logging.FieldMediaID, t.id))

	report := func(phase string) {
		if ctx.Err() != nil {
			return
		}
		if _, err := s.library.SetProcessing(t.id, phase); err != nil {
			s.logger.Debug("phase update skipped", logging.String(logging.FieldMediaID, t.id), logging.Error(err))
		}
	}
	res, err := s.provider.Acquire(ctx, item, report)
	if err == nil && ctx.Err() != nil {
		if res.Handle != nil {
			res.Handle.Release()
		}
		err = ctx.Err()
	}
	s.finish(ctx, t, res, err)
}

// finish records the outcome and removes the task entry unconditionally.
func (s *Scheduler) finish(ctx context.Context, t *task, res media.Result, runErr error) {
	name := s.provider.Name()
	s.mu.Lock()
	delete(s.tasks, t.id)
	wasRunning := t.running
	admitted := t.admitted
	s.mu.Unlock()

	status := TerminalStatus(runErr)
	var (
		item media.Item
		err  error
	)
	if status == media.StatusReady {
		item, err = s.library.MarkReady(t.id, res)
	} else {
		item, err = s.library.MarkFailed(t.id, status, runErr)
	}
	var elapsed time.Duration
	if wasRunning {
		elapsed = time.Since(admitted)
	}
	s.metrics.taskFinished(name, string(status), wasRunning, elapsed)

	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			// MarkReady has already released an unclaimed handle.
			s.logger.Info("media removed during acquisition", logging.String(logging.FieldMediaID, t.id))
			return
		}
		logging.WarnWithContext(s.logger, "status update rejected", "acquisition_status_rejected",
			logging.String(logging.FieldMediaID, t.id),
			logging.String("status", string(status)),
			logging.Error(err),
			logging.String(logging.FieldImpact, "media status may be stale"),
		)
		return
	}

	if status == media.StatusReady {
		s.logger.Info("acquisition completed",
			logging.String(logging.FieldMediaID, t.id),
			logging.String("kind", string(item.Kind)),
			logging.Int64("duration_frames", item.Duration),
			logging.Duration("elapsed", elapsed),
		)
	} else {
		logging.WarnWithContext(s.logger, "acquisition failed", "acquisition_failed",
			logging.String(logging.FieldMediaID, t.id),
			logging.String("status", string(status)),
			logging.Error(runErr),
			logging.String(logging.FieldErrorHint, "retry the media item or check the source"),
			logging.String(logging.FieldImpact, "dependent clips are marked as errored"),
		)
	}
	s.persist(ctx, item)
}

func (s *Scheduler) persist(ctx context.Context, item media.Item) {
	if s.persister == nil {
		return
	}
	if err := s.persister.Upsert(context.WithoutCancel(ctx), item); err != nil {
		logging.WarnWithContext(s.logger, "catalog persist failed", "catalog_persist_failed",
			logging.String(logging.FieldMediaID, item.ID),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check the data directory"),
			logging.String(logging.FieldImpact, "catalog may not reflect this acquisition"),
		)
	}
}
