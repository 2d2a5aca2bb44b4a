package editor

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/trace"

	"cutline/internal/acquire"
	"cutline/internal/config"
	"cutline/internal/history"
	"cutline/internal/logging"
	"cutline/internal/media"
	"cutline/internal/readiness"
	"cutline/internal/services"
	"cutline/internal/timeline"
)

// Options configures a Session. Zero values fall back to the providers
// described by the config.
type Options struct {
	Logger     *slog.Logger
	Providers  []acquire.Provider
	Prober     acquire.Prober
	Persister  acquire.Persister
	Registerer prometheus.Registerer
	Factory    timeline.ResourceFactory
	Tracer     trace.Tracer
}

// Session is one editing session over a single timeline.
type Session struct {
	mu sync.Mutex

	cfg      *config.Config
	base     *slog.Logger
	logger   *slog.Logger
	defaults timeline.Defaults

	library   *media.Library
	registry  *acquire.Registry
	timeline  *timeline.Timeline
	rebuilder *timeline.Rebuilder
	readiness *readiness.Manager
	history   *history.History
	closed    bool
}

// New builds a session with a single empty track.
func New(cfg *config.Config, opts Options) (*Session, error) {
	if cfg == nil {
		return nil, services.Wrap(services.ErrConfiguration, "editor", "new session", "config is required", nil)
	}
	logger := logging.NewComponentLogger(opts.Logger, "editor")
	s := &Session{
		cfg:    cfg,
		base:   opts.Logger,
		logger: logger,
		defaults: timeline.Defaults{
			Width:       cfg.Project.DefaultWidth,
			Height:      cfg.Project.DefaultHeight,
			StillFrames: int64(cfg.Project.DefaultImageFrames),
		},
		library:   media.NewLibrary(opts.Logger),
		registry:  acquire.NewRegistry(),
		timeline:  timeline.New(),
		rebuilder: timeline.NewRebuilder(opts.Factory),
	}
	s.history = history.New(history.Options{MaxEntries: cfg.History.MaxEntries, Logger: opts.Logger, Tracer: opts.Tracer})
	s.readiness = readiness.NewManager(readiness.Deps{
		Media:     s.library,
		Items:     s.timeline,
		Rebuilder: s.rebuilder,
		Commands:  s.history,
		Executor:  s,
		Logger:    opts.Logger,
	})

	if err := s.registerSchedulers(opts); err != nil {
		return nil, err
	}
	if err := s.timeline.AddTrack(timeline.NewTrackData("Track 1"), -1); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Session) registerSchedulers(opts Options) error {
	var metrics *acquire.Metrics
	if opts.Registerer != nil {
		m, err := acquire.NewMetrics(opts.Registerer)
		if err != nil {
			return err
		}
		metrics = m
	}

	providers := opts.Providers
	if len(providers) == 0 {
		built, err := providersFromConfig(s.cfg, opts)
		if err != nil {
			return err
		}
		providers = built
	}
	for _, provider := range providers {
		limit := s.cfg.Acquisition.FileConcurrency
		if provider.Name() == media.ProviderRemote {
			limit = s.cfg.Acquisition.RemoteConcurrency
		}
		scheduler, err := acquire.NewScheduler(provider, s.library, acquire.Options{
			MaxConcurrent: limit,
			Logger:        opts.Logger,
			Metrics:       metrics,
			Persister:     opts.Persister,
		})
		if err != nil {
			return err
		}
		if err := s.registry.Register(scheduler); err != nil {
			return err
		}
	}
	return nil
}

func providersFromConfig(cfg *config.Config, opts Options) ([]acquire.Provider, error) {
	prober := opts.Prober
	if prober == nil {
		prober = acquire.BinaryProber(cfg.FFprobeBinary())
	}
	providers := []acquire.Provider{acquire.NewFileProvider(acquire.FileOptions{
		Prober:      prober,
		FrameRate:   cfg.Project.FrameRate,
		StillFrames: int64(cfg.Project.DefaultImageFrames),
		Logger:      opts.Logger,
	})}
	if cfg.Acquisition.RemoteEndpoint != "" {
		remote, err := acquire.NewRemoteProvider(acquire.RemoteOptions{
			Endpoint:          cfg.Acquisition.RemoteEndpoint,
			APIKey:            cfg.Acquisition.RemoteAPIKey,
			PollInterval:      time.Duration(cfg.Acquisition.RemotePollIntervalMS) * time.Millisecond,
			RequestsPerSecond: cfg.Acquisition.RemoteRequestsPerSecond,
			FrameRate:         cfg.Project.FrameRate,
			StillFrames:       int64(cfg.Project.DefaultImageFrames),
			Logger:            opts.Logger,
		})
		if err != nil {
			return nil, err
		}
		providers = append(providers, remote)
	}
	return providers, nil
}

// Do runs fn under the session lock. Readiness callbacks use it.
func (s *Session) Do(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	fn()
}

// ImportFile registers a local file and queues its acquisition.
func (s *Session) ImportFile(ctx context.Context, path string) (media.Item, error) {
	if strings.TrimSpace(path) == "" {
		return media.Item{}, services.Wrap(services.ErrValidation, "editor", "import file", "path is required", nil)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return media.Item{}, services.Wrap(services.ErrValidation, "editor", "import file", path, err)
	}
	return s.submit(ctx, media.Item{
		Name:   media.DisplayName(abs),
		Kind:   media.KindUnknown,
		Source: media.FileSource{Path: abs},
	})
}

// Generate registers a remotely rendered asset and queues its job.
func (s *Session) Generate(ctx context.Context, prompt, model string, kind media.Kind) (media.Item, error) {
	if strings.TrimSpace(prompt) == "" {
		return media.Item{}, services.Wrap(services.ErrValidation, "editor", "generate", "prompt is required", nil)
	}
	return s.submit(ctx, media.Item{
		Name:   media.DisplayName(prompt),
		Kind:   kind,
		Source: media.RemoteSource{Prompt: prompt, Model: model, Kind: kind},
	})
}

func (s *Session) submit(ctx context.Context, item media.Item) (media.Item, error) {
	if _, ok := s.registry.Scheduler(item.Provider()); !ok {
		return media.Item{}, services.Wrap(services.ErrConfiguration, "editor", "import", fmt.Sprintf("provider %q is not configured", item.Provider()), nil)
	}
	added, err := s.library.Add(item)
	if err != nil {
		return media.Item{}, err
	}
	if err := s.registry.Submit(ctx, added); err != nil {
		_, _ = s.library.Remove(added.ID)
		return media.Item{}, err
	}
	s.logger.Info("media imported",
		logging.String(logging.FieldMediaID, added.ID),
		logging.String(logging.FieldProvider, added.Provider()),
		logging.String("name", added.Name),
	)
	return added, nil
}

// RetryMedia resets a failed media item and queues it again.
func (s *Session) RetryMedia(ctx context.Context, mediaID string) (media.Item, error) {
	m, ok := s.library.Get(mediaID)
	if !ok {
		return media.Item{}, services.Wrap(services.ErrNotFound, "editor", "retry", fmt.Sprintf("media %s", mediaID), nil)
	}
	if !m.Status.IsFailure() {
		return media.Item{}, services.Wrap(services.ErrValidation, "editor", "retry", fmt.Sprintf("media %s is %s", mediaID, m.Status), nil)
	}
	reset, err := s.library.Reset(mediaID)
	if err != nil {
		return media.Item{}, err
	}
	if err := s.registry.Submit(ctx, reset); err != nil {
		return media.Item{}, err
	}
	return reset, nil
}

// CancelMedia withdraws a queued or running acquisition.
func (s *Session) CancelMedia(mediaID string) error {
	m, ok := s.library.Get(mediaID)
	if !ok {
		return services.Wrap(services.ErrNotFound, "editor", "cancel", fmt.Sprintf("media %s", mediaID), nil)
	}
	return s.registry.Cancel(m)
}

// AddClip places media on a track at a timeline frame.
func (s *Session) AddClip(ctx context.Context, mediaID, trackID string, start int64) (timeline.ItemData, error) {
	m, ok := s.library.Get(mediaID)
	if !ok {
		return timeline.ItemData{}, services.Wrap(services.ErrNotFound, "editor", "add clip", fmt.Sprintf("media %s", mediaID), nil)
	}
	data, err := timeline.NewItemData(trackID, m, start, s.defaults)
	if err != nil {
		return timeline.ItemData{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cmd := history.NewAddItem(s.env(), data)
	if err := s.execute(ctx, cmd); err != nil {
		return timeline.ItemData{}, err
	}
	return s.clipLocked(data.ID), nil
}

// RemoveClip deletes a clip from the timeline.
func (s *Session) RemoveClip(ctx context.Context, itemID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cmd, err := history.NewRemoveItem(s.env(), itemID)
	if err != nil {
		return err
	}
	return s.execute(ctx, cmd)
}

// SplitClip cuts a clip at a timeline frame and returns both halves.
func (s *Session) SplitClip(ctx context.Context, itemID string, frame int64) (timeline.ItemData, timeline.ItemData, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cmd, err := history.NewSplitItem(s.env(), itemID, frame)
	if err != nil {
		return timeline.ItemData{}, timeline.ItemData{}, err
	}
	if err := s.execute(ctx, cmd); err != nil {
		return timeline.ItemData{}, timeline.ItemData{}, err
	}
	first, second := cmd.Halves()
	return s.clipLocked(first.ID), s.clipLocked(second.ID), nil
}

// AddTrack inserts an empty track at position; negative appends.
func (s *Session) AddTrack(ctx context.Context, name string, position int) (timeline.TrackData, error) {
	track := timeline.NewTrackData(name)
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.execute(ctx, history.NewAddTrack(s.env(), track, position)); err != nil {
		return timeline.TrackData{}, err
	}
	return track, nil
}

// RemoveTrack deletes a track together with its clips.
func (s *Session) RemoveTrack(ctx context.Context, trackID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cmd, err := history.NewRemoveTrack(s.env(), trackID)
	if err != nil {
		return err
	}
	return s.execute(ctx, cmd)
}

// Undo reverts the latest edit.
func (s *Session) Undo(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history.Undo(ctx)
}

// Redo reapplies the latest undone edit.
func (s *Session) Redo(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history.Redo(ctx)
}

func (s *Session) execute(ctx context.Context, cmd history.Command) error {
	if s.closed {
		return services.Wrap(services.ErrInvariant, "editor", "execute", "session is closed", nil)
	}
	return s.history.Execute(ctx, cmd)
}

func (s *Session) env() history.Env {
	return history.Env{
		Timeline:  s.timeline,
		Media:     s.library,
		Rebuilder: s.rebuilder,
		Readiness: s.readiness,
		Logger:    s.base,
	}
}

// Media lists the library in import order.
func (s *Session) Media() []media.Item {
	return s.library.List()
}

// MediaItem returns one media snapshot.
func (s *Session) MediaItem(id string) (media.Item, bool) {
	return s.library.Get(id)
}

// Tracks lists tracks in display order.
func (s *Session) Tracks() []timeline.TrackData {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.timeline.Tracks()
}

// Clips snapshots the clips on a track ordered by timeline start.
func (s *Session) Clips(trackID string) []timeline.ItemData {
	s.mu.Lock()
	defer s.mu.Unlock()
	items := s.timeline.ItemsOnTrack(trackID)
	out := make([]timeline.ItemData, 0, len(items))
	for _, item := range items {
		out = append(out, item.Data())
	}
	return out
}

// Clip snapshots one clip.
func (s *Session) Clip(id string) (timeline.ItemData, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.timeline.GetItem(id)
	if !ok {
		return timeline.ItemData{}, false
	}
	return item.Data(), true
}

func (s *Session) clipLocked(id string) timeline.ItemData {
	if item, ok := s.timeline.GetItem(id); ok {
		return item.Data()
	}
	return timeline.ItemData{}
}

// UndoEntries lists the undo stack, most recent last.
func (s *Session) UndoEntries() []history.Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history.UndoEntries()
}

// RedoEntries lists the redo stack, next to redo last.
func (s *Session) RedoEntries() []history.Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history.RedoEntries()
}

// PendingSynchronizers reports how many readiness bindings are armed.
func (s *Session) PendingSynchronizers() int {
	return s.readiness.Active()
}

// Scheduler exposes the scheduler for a provider.
func (s *Session) Scheduler(provider string) (*acquire.Scheduler, bool) {
	return s.registry.Scheduler(provider)
}

// Wait blocks until every acquisition has finished. It must not be
// called from inside Do.
func (s *Session) Wait(ctx context.Context) error {
	return s.registry.Wait(ctx)
}

// Close cancels acquisitions, tears down synchronizers and disposes the
// history. Later readiness callbacks are dropped.
func (s *Session) Close(ctx context.Context) error {
	err := s.registry.Shutdown(ctx)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return err
	}
	s.closed = true
	s.readiness.Shutdown()
	s.history.Clear()
	for _, track := range s.timeline.Tracks() {
		for _, item := range s.timeline.ItemsOnTrack(track.ID) {
			if item.Resource != nil {
				item.Resource.Release()
				item.Resource = nil
			}
		}
	}
	if err != nil {
		logging.WarnWithContext(s.logger, "session closed before acquisitions drained", "session_close_incomplete",
			logging.Error(err),
			logging.String(logging.FieldImpact, "pending imports were abandoned"),
		)
	}
	s.logger.Info("session closed")
	return err
}
