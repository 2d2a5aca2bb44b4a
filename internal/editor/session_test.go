package editor_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"cutline/internal/acquire"
	"cutline/internal/editor"
	"cutline/internal/logging"
	"cutline/internal/media"
	"cutline/internal/services"
	"cutline/internal/testsupport"
	"cutline/internal/timeline"
)

func newSession(t *testing.T, opts editor.Options, cfgOpts ...testsupport.ConfigOption) *editor.Session {
	t.Helper()
	cfg := testsupport.NewConfig(t, cfgOpts...)
	opts.Logger = logging.NewNop()
	s, err := editor.New(cfg, opts)
	if err != nil {
		t.Fatalf("editor.New: %v", err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.Close(ctx)
	})
	return s
}

func wait(t *testing.T, s *editor.Session) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.Wait(ctx); err != nil {
		t.Fatalf("Wait: %v", err)
	}
}

func TestImportedClipBecomesReady(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenCatalog(t, cfg)
	provider := testsupport.NewProvider(media.ProviderFile)
	provider.Gate = make(chan struct{})
	s, err := editor.New(cfg, editor.Options{Logger: logging.NewNop(), Providers: []acquire.Provider{provider}, Persister: store})
	if err != nil {
		t.Fatalf("editor.New: %v", err)
	}
	defer s.Close(context.Background())
	ctx := context.Background()

	m, err := s.ImportFile(ctx, "/footage/holiday_video.mp4")
	if err != nil {
		t.Fatalf("ImportFile: %v", err)
	}
	if m.Name != "Holiday Video" || m.Status != media.StatusPending {
		t.Fatalf("unexpected media: %#v", m)
	}
	track := s.Tracks()[0]
	clip, err := s.AddClip(ctx, m.ID, track.ID, 10)
	if err != nil {
		t.Fatalf("AddClip: %v", err)
	}
	if clip.Status != timeline.StatusLoading || s.PendingSynchronizers() != 1 {
		t.Fatalf("expected loading clip with one synchronizer, got %s / %d", clip.Status, s.PendingSynchronizers())
	}

	close(provider.Gate)
	wait(t, s)

	got, ok := s.Clip(clip.ID)
	if !ok || got.Status != timeline.StatusReady || !got.IsInitialized {
		t.Fatalf("clip not ready: %#v", got)
	}
	if got.Range.TimelineStart != 10 || got.Range.TimelineEnd != 160 {
		t.Fatalf("unexpected range %v", got.Range)
	}
	if v, _ := timeline.VisualOf(got.Config); v.Width != 1280 || v.Height != 720 {
		t.Fatalf("dimensions not applied: %+v", v)
	}
	if s.PendingSynchronizers() != 0 {
		t.Fatal("synchronizer should be torn down")
	}
	record, err := store.Get(ctx, m.ID)
	if err != nil || record.Status != media.StatusReady {
		t.Fatalf("catalog not updated: %v %#v", err, record)
	}
}

func TestRemoveTrackUndoWhileLoading(t *testing.T) {
	provider := testsupport.NewProvider(media.ProviderFile)
	provider.Gate = make(chan struct{})
	s := newSession(t, editor.Options{Providers: []acquire.Provider{provider}})
	ctx := context.Background()

	m, err := s.ImportFile(ctx, "/footage/interview.mov")
	if err != nil {
		t.Fatalf("ImportFile: %v", err)
	}
	track, err := s.AddTrack(ctx, "B-roll", -1)
	if err != nil {
		t.Fatalf("AddTrack: %v", err)
	}
	for i := 0; i < 5; i++ {
		if _, err := s.AddClip(ctx, m.ID, track.ID, int64(i)*500); err != nil {
			t.Fatalf("AddClip %d: %v", i, err)
		}
	}
	if err := s.RemoveTrack(ctx, track.ID); err != nil {
		t.Fatalf("RemoveTrack: %v", err)
	}
	if len(s.Tracks()) != 1 {
		t.Fatal("track not removed")
	}
	if err := s.Undo(ctx); err != nil {
		t.Fatalf("Undo: %v", err)
	}
	if tracks := s.Tracks(); len(tracks) != 2 || tracks[1].ID != track.ID {
		t.Fatalf("track not restored in place: %v", tracks)
	}

	close(provider.Gate)
	wait(t, s)

	clips := s.Clips(track.ID)
	if len(clips) != 5 {
		t.Fatalf("expected 5 clips, got %d", len(clips))
	}
	for _, clip := range clips {
		if clip.Status != timeline.StatusReady {
			t.Fatalf("clip %s still %s", clip.ID, clip.Status)
		}
	}
	if s.PendingSynchronizers() != 0 {
		t.Fatalf("synchronizers left: %d", s.PendingSynchronizers())
	}
}

func TestSplitUndoRedo(t *testing.T) {
	provider := testsupport.NewProvider(media.ProviderFile)
	s := newSession(t, editor.Options{Providers: []acquire.Provider{provider}})
	ctx := context.Background()

	m, err := s.ImportFile(ctx, "/footage/walk.mp4")
	if err != nil {
		t.Fatalf("ImportFile: %v", err)
	}
	wait(t, s)
	track := s.Tracks()[0]
	clip, err := s.AddClip(ctx, m.ID, track.ID, 0)
	if err != nil {
		t.Fatalf("AddClip: %v", err)
	}
	if clip.Status != timeline.StatusReady {
		t.Fatalf("clip of ready media should be ready, got %s", clip.Status)
	}

	first, second, err := s.SplitClip(ctx, clip.ID, 60)
	if err != nil {
		t.Fatalf("SplitClip: %v", err)
	}
	if first.Range != (timeline.TimeRange{ClipStart: 0, ClipEnd: 60, TimelineStart: 0, TimelineEnd: 60}) ||
		second.Range != (timeline.TimeRange{ClipStart: 60, ClipEnd: 150, TimelineStart: 60, TimelineEnd: 150}) {
		t.Fatalf("unexpected halves %v %v", first.Range, second.Range)
	}
	if _, _, err := s.SplitClip(ctx, first.ID, 60); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("split at boundary should fail validation, got %v", err)
	}

	if err := s.Undo(ctx); err != nil {
		t.Fatalf("Undo: %v", err)
	}
	if clips := s.Clips(track.ID); len(clips) != 1 || clips[0].ID != clip.ID {
		t.Fatalf("undo should restore the original clip: %v", clips)
	}
	if err := s.Redo(ctx); err != nil {
		t.Fatalf("Redo: %v", err)
	}
	clips := s.Clips(track.ID)
	if len(clips) != 2 || clips[0].ID != first.ID || clips[1].ID != second.ID {
		t.Fatalf("redo should reproduce the same halves: %v", clips)
	}
	if entries := s.UndoEntries(); len(entries) != 2 {
		t.Fatalf("expected two undo entries, got %d", len(entries))
	}
}

func TestRetryFailedMedia(t *testing.T) {
	provider := testsupport.NewProvider(media.ProviderFile)
	provider.Queue("Broken", testsupport.Outcome{Err: errors.New("decoder crashed")})
	s := newSession(t, editor.Options{Providers: []acquire.Provider{provider}})
	ctx := context.Background()

	m, err := s.ImportFile(ctx, "/footage/broken.mov")
	if err != nil {
		t.Fatalf("ImportFile: %v", err)
	}
	wait(t, s)
	failed, _ := s.MediaItem(m.ID)
	if failed.Status != media.StatusError || failed.Error == "" {
		t.Fatalf("expected error status, got %#v", failed)
	}
	clip, err := s.AddClip(ctx, m.ID, s.Tracks()[0].ID, 0)
	if err != nil {
		t.Fatalf("AddClip: %v", err)
	}
	if clip.Status != timeline.StatusError {
		t.Fatalf("clip of failed media should be error, got %s", clip.Status)
	}

	if _, err := s.RetryMedia(ctx, m.ID); err != nil {
		t.Fatalf("RetryMedia: %v", err)
	}
	wait(t, s)
	if again, _ := s.MediaItem(m.ID); again.Status != media.StatusReady {
		t.Fatalf("retry should succeed, got %s", again.Status)
	}
	if provider.Calls("Broken") != 2 {
		t.Fatalf("expected two acquisitions, got %d", provider.Calls("Broken"))
	}
	if _, err := s.RetryMedia(ctx, m.ID); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("ready media cannot be retried, got %v", err)
	}

	if err := s.Undo(ctx); err != nil {
		t.Fatalf("Undo: %v", err)
	}
	if err := s.Redo(ctx); err != nil {
		t.Fatalf("Redo: %v", err)
	}
	if rebuilt, _ := s.Clip(clip.ID); rebuilt.Status != timeline.StatusReady {
		t.Fatalf("redo should rebuild against ready media, got %s", rebuilt.Status)
	}
}

func TestGenerateNeedsRemoteProvider(t *testing.T) {
	s := newSession(t, editor.Options{Providers: []acquire.Provider{testsupport.NewProvider(media.ProviderFile)}})
	if _, err := s.Generate(context.Background(), "city lights", "", media.KindImage); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
	if len(s.Media()) != 0 {
		t.Fatal("rejected import must not reach the library")
	}
}

func TestGenerateThroughRemoteProvider(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /generations", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id": "job-1", "status": "succeeded", "url": "https://cdn.example/job-1.png",
			"kind": "image", "width": 512, "height": 512,
		})
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	s := newSession(t, editor.Options{}, testsupport.WithRemoteEndpoint(server.URL))
	ctx := context.Background()
	m, err := s.Generate(ctx, "misty harbor", "", media.KindImage)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	wait(t, s)
	got, _ := s.MediaItem(m.ID)
	if got.Status != media.StatusReady || got.Width != 512 || got.Duration != 150 {
		t.Fatalf("unexpected generated media: %#v", got)
	}
	if err := s.CancelMedia(m.ID); !errors.Is(err, services.ErrNotCancellable) {
		t.Fatalf("remote jobs are not cancellable, got %v", err)
	}
}

func TestCloseStopsEditing(t *testing.T) {
	provider := testsupport.NewProvider(media.ProviderFile)
	provider.Gate = make(chan struct{})
	s := newSession(t, editor.Options{Providers: []acquire.Provider{provider}})
	ctx := context.Background()

	m, err := s.ImportFile(ctx, "/footage/long_take.mp4")
	if err != nil {
		t.Fatalf("ImportFile: %v", err)
	}
	if _, err := s.AddClip(ctx, m.ID, s.Tracks()[0].ID, 0); err != nil {
		t.Fatalf("AddClip: %v", err)
	}
	if err := s.Close(ctx); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if got, _ := s.MediaItem(m.ID); got.Status != media.StatusCancelled {
		t.Fatalf("expected cancelled media, got %s", got.Status)
	}
	if s.PendingSynchronizers() != 0 {
		t.Fatal("close should tear down synchronizers")
	}
	if _, err := s.AddTrack(ctx, "late", -1); !errors.Is(err, services.ErrInvariant) {
		t.Fatalf("expected invariant error after close, got %v", err)
	}
}
