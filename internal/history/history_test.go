package history

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"testing"

	"cutline/internal/logging"
	"cutline/internal/media"
	"cutline/internal/readiness"
	"cutline/internal/services"
	"cutline/internal/timeline"
)

var testDefaults = timeline.Defaults{Width: 1920, Height: 1080, StillFrames: 150}

type harness struct {
	lib  *media.Library
	tl   *timeline.Timeline
	mgr  *readiness.Manager
	hist *History
	env  Env
}

func newHarness(t *testing.T, tracks ...string) *harness {
	t.Helper()
	if len(tracks) == 0 {
		tracks = []string{"v1", "v2", "v3"}
	}
	lib := media.NewLibrary(logging.NewNop())
	tl := timeline.New()
	for _, id := range tracks {
		if err := tl.AddTrack(timeline.TrackData{ID: id, Name: id}, -1); err != nil {
			t.Fatalf("AddTrack: %v", err)
		}
	}
	rb := timeline.NewRebuilder(nil)
	hist := New(Options{MaxEntries: 50, Logger: logging.NewNop()})
	mgr := readiness.NewManager(readiness.Deps{Media: lib, Items: tl, Rebuilder: rb, Commands: hist, Logger: logging.NewNop()})
	return &harness{
		lib:  lib,
		tl:   tl,
		mgr:  mgr,
		hist: hist,
		env:  Env{Timeline: tl, Media: lib, Rebuilder: rb, Readiness: mgr, Logger: logging.NewNop()},
	}
}

func (h *harness) addMedia(t *testing.T, ready bool) media.Item {
	t.Helper()
	m, err := h.lib.Add(media.Item{Name: "m", Kind: media.KindVideo, Source: media.FileSource{Path: "/tmp/m.mp4"}})
	if err != nil {
		t.Fatalf("Add media: %v", err)
	}
	if ready {
		return h.markReady(t, m.ID, 1280, 720)
	}
	return m
}

func (h *harness) markReady(t *testing.T, id string, w, ht int) media.Item {
	t.Helper()
	m, err := h.lib.MarkReady(id, media.Result{Kind: media.KindVideo, Duration: 300, HasDuration: true, Width: w, Height: ht})
	if err != nil {
		t.Fatalf("MarkReady: %v", err)
	}
	return m
}

func (h *harness) addClip(t *testing.T, trackID string, m media.Item, start int64) *AddItem {
	t.Helper()
	data, err := timeline.NewItemData(trackID, m, start, testDefaults)
	if err != nil {
		t.Fatalf("NewItemData: %v", err)
	}
	cmd := NewAddItem(h.env, data)
	if err := h.hist.Execute(context.Background(), cmd); err != nil {
		t.Fatalf("Execute add: %v", err)
	}
	return cmd
}

func (h *harness) item(t *testing.T, id string) *timeline.Item {
	t.Helper()
	item, ok := h.tl.GetItem(id)
	if !ok {
		t.Fatalf("item %s not on timeline", id)
	}
	return item
}

func TestAddItemRebuildIdempotence(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	m := h.addMedia(t, true)
	cmd := h.addClip(t, "v1", m, 30)

	first := h.item(t, cmd.Data().ID)
	firstRange, firstConfig, firstResource := first.Range, first.Config, first.Resource
	if first.Status != timeline.StatusReady {
		t.Fatalf("expected ready clip, got %s", first.Status)
	}

	if err := h.hist.Undo(ctx); err != nil {
		t.Fatalf("Undo: %v", err)
	}
	if _, ok := h.tl.GetItem(cmd.Data().ID); ok {
		t.Fatal("undo should remove the clip")
	}
	if err := h.hist.Redo(ctx); err != nil {
		t.Fatalf("Redo: %v", err)
	}
	second := h.item(t, cmd.Data().ID)
	if second == first || second.Resource == firstResource {
		t.Fatal("redo must rebuild a fresh item")
	}
	if second.Range != firstRange || !reflect.DeepEqual(second.Config, firstConfig) {
		t.Fatalf("redo produced %v %#v, want %v %#v", second.Range, second.Config, firstRange, firstConfig)
	}
}

func TestRemoveItemRebuildIdempotence(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	m := h.addMedia(t, true)
	add := h.addClip(t, "v1", m, 0)
	live := h.item(t, add.Data().ID)
	v, _ := timeline.VisualOf(live.Config)
	v.X = 42
	live.Config = timeline.WithVisual(live.Config, v)

	remove, err := NewRemoveItem(h.env, add.Data().ID)
	if err != nil {
		t.Fatalf("NewRemoveItem: %v", err)
	}
	if err := h.hist.Execute(ctx, remove); err != nil {
		t.Fatalf("Execute remove: %v", err)
	}
	var restored []timeline.ItemData
	for i := 0; i < 2; i++ {
		if err := h.hist.Undo(ctx); err != nil {
			t.Fatalf("Undo: %v", err)
		}
		restored = append(restored, h.item(t, add.Data().ID).Data())
		if err := h.hist.Redo(ctx); err != nil {
			t.Fatalf("Redo: %v", err)
		}
	}
	if !reflect.DeepEqual(restored[0], restored[1]) {
		t.Fatalf("restores differ: %#v vs %#v", restored[0], restored[1])
	}
	if got, _ := timeline.VisualOf(restored[0].Config); got.X != 42 {
		t.Fatalf("restore lost user edit, x=%v", got.X)
	}
	if _, ok := h.tl.GetItem(add.Data().ID); ok {
		t.Fatal("redo of remove should delete the clip")
	}
}

func TestSplitRanges(t *testing.T) {
	tests := []struct {
		name          string
		in            timeline.TimeRange
		frame         int64
		first, second timeline.TimeRange
	}{
		{
			name:   "aligned",
			in:     timeline.TimeRange{ClipStart: 0, ClipEnd: 100, TimelineStart: 0, TimelineEnd: 100},
			frame:  40,
			first:  timeline.TimeRange{ClipStart: 0, ClipEnd: 40, TimelineStart: 0, TimelineEnd: 40},
			second: timeline.TimeRange{ClipStart: 40, ClipEnd: 100, TimelineStart: 40, TimelineEnd: 100},
		},
		{
			name:   "offset",
			in:     timeline.TimeRange{ClipStart: 10, ClipEnd: 70, TimelineStart: 100, TimelineEnd: 130},
			frame:  110,
			first:  timeline.TimeRange{ClipStart: 10, ClipEnd: 30, TimelineStart: 100, TimelineEnd: 110},
			second: timeline.TimeRange{ClipStart: 30, ClipEnd: 70, TimelineStart: 110, TimelineEnd: 130},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			first, second, err := SplitRanges(tt.in, tt.frame)
			if err != nil {
				t.Fatalf("SplitRanges: %v", err)
			}
			if first != tt.first || second != tt.second {
				t.Fatalf("got %v / %v, want %v / %v", first, second, tt.first, tt.second)
			}
			if first.ClipEnd != second.ClipStart || first.TimelineEnd != tt.frame || second.TimelineStart != tt.frame {
				t.Fatal("halves must meet at the cut")
			}
		})
	}
	full := timeline.TimeRange{ClipStart: 0, ClipEnd: 100, TimelineStart: 0, TimelineEnd: 100}
	for _, frame := range []int64{0, 100, -5, 200} {
		if _, _, err := SplitRanges(full, frame); !errors.Is(err, services.ErrValidation) {
			t.Fatalf("frame %d: expected validation error, got %v", frame, err)
		}
	}
}

func TestSplitItemInverse(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	m := h.addMedia(t, true)
	data := timeline.ItemData{
		ID: "clip", TrackID: "v1", MediaItemID: m.ID, Kind: media.KindVideo,
		Range:         timeline.TimeRange{ClipStart: 0, ClipEnd: 100, TimelineStart: 0, TimelineEnd: 100},
		IsInitialized: true,
		Config:        timeline.DefaultConfig(media.KindVideo, testDefaults),
	}
	if err := h.hist.Execute(ctx, NewAddItem(h.env, data)); err != nil {
		t.Fatalf("Execute add: %v", err)
	}

	split, err := NewSplitItem(h.env, "clip", 40)
	if err != nil {
		t.Fatalf("NewSplitItem: %v", err)
	}
	if err := h.hist.Execute(ctx, split); err != nil {
		t.Fatalf("Execute split: %v", err)
	}
	firstData, secondData := split.Halves()
	assertHalves := func() {
		t.Helper()
		first, second := h.item(t, firstData.ID), h.item(t, secondData.ID)
		if first.Range != (timeline.TimeRange{ClipStart: 0, ClipEnd: 40, TimelineStart: 0, TimelineEnd: 40}) {
			t.Fatalf("first half %v", first.Range)
		}
		if second.Range != (timeline.TimeRange{ClipStart: 40, ClipEnd: 100, TimelineStart: 40, TimelineEnd: 100}) {
			t.Fatalf("second half %v", second.Range)
		}
		if first.Status != timeline.StatusReady || second.Status != timeline.StatusReady {
			t.Fatal("halves of a ready clip must be ready")
		}
		if _, ok := h.tl.GetItem("clip"); ok {
			t.Fatal("original must be gone after split")
		}
	}
	assertHalves()

	if err := h.hist.Undo(ctx); err != nil {
		t.Fatalf("Undo split: %v", err)
	}
	original := h.item(t, "clip")
	if original.Range != data.Range || h.tl.ItemCount() != 1 {
		t.Fatalf("undo did not restore the original: %v (items=%d)", original.Range, h.tl.ItemCount())
	}
	if err := h.hist.Redo(ctx); err != nil {
		t.Fatalf("Redo split: %v", err)
	}
	assertHalves()

	if _, err := NewSplitItem(h.env, firstData.ID, 0); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error at clip start, got %v", err)
	}
}

func TestSplitWhileLoadingArmsOneSynchronizer(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	m := h.addMedia(t, false)
	add := h.addClip(t, "v1", m, 0)

	split, err := NewSplitItem(h.env, add.Data().ID, 50)
	if err != nil {
		t.Fatalf("NewSplitItem: %v", err)
	}
	if err := h.hist.Execute(ctx, split); err != nil {
		t.Fatalf("Execute split: %v", err)
	}
	if got := h.mgr.ActiveFor(split.ID()); got != 1 {
		t.Fatalf("expected one synchronizer for both halves, got %d", got)
	}
	h.markReady(t, m.ID, 640, 360)
	first, second := split.Halves()
	for _, id := range []string{first.ID, second.ID} {
		if item := h.item(t, id); item.Status != timeline.StatusReady {
			t.Fatalf("half %s status %s", id, item.Status)
		}
	}
	if h.mgr.Active() != 0 {
		t.Fatalf("expected all synchronizers torn down, got %d", h.mgr.Active())
	}
}

func TestSplitWhileLoadingKeepsCut(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	m := h.addMedia(t, false)
	add := h.addClip(t, "v1", m, 0)

	split, err := NewSplitItem(h.env, add.Data().ID, 60)
	if err != nil {
		t.Fatalf("NewSplitItem: %v", err)
	}
	if err := h.hist.Execute(ctx, split); err != nil {
		t.Fatalf("Execute split: %v", err)
	}
	h.markReady(t, m.ID, 640, 360)

	wantFirst := timeline.TimeRange{ClipStart: 0, ClipEnd: 60, TimelineStart: 0, TimelineEnd: 60}
	wantSecond := timeline.TimeRange{ClipStart: 60, ClipEnd: 150, TimelineStart: 60, TimelineEnd: 150}
	checkHalves := func(stage string) {
		t.Helper()
		first, second := split.Halves()
		for _, tc := range []struct {
			id   string
			want timeline.TimeRange
		}{{first.ID, wantFirst}, {second.ID, wantSecond}} {
			item := h.item(t, tc.id)
			if item.Range != tc.want {
				t.Fatalf("%s: half %s range %v, want %v", stage, tc.id, item.Range, tc.want)
			}
			v, ok := timeline.VisualOf(item.Config)
			if !ok || v.Width != 640 || v.Height != 360 {
				t.Fatalf("%s: half %s dimensions not applied: %#v", stage, tc.id, item.Config)
			}
		}
		if first.Range != wantFirst || second.Range != wantSecond {
			t.Fatalf("%s: command data drifted: %v %v", stage, first.Range, second.Range)
		}
	}
	checkHalves("after ready")

	if err := h.hist.Undo(ctx); err != nil {
		t.Fatalf("Undo: %v", err)
	}
	want := timeline.TimeRange{ClipStart: 0, ClipEnd: 150, TimelineStart: 0, TimelineEnd: 150}
	if got := h.item(t, add.Data().ID); got.Range != want || got.Status != timeline.StatusReady {
		t.Fatalf("restored original %v (%s), want %v ready", got.Range, got.Status, want)
	}
	if err := h.hist.Redo(ctx); err != nil {
		t.Fatalf("Redo: %v", err)
	}
	checkHalves("after redo")
}

func TestRemoveTrackSingleFanOut(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	m := h.addMedia(t, false)
	for i := 0; i < 5; i++ {
		data, _ := timeline.NewItemData("v2", m, int64(i)*200, testDefaults)
		item, err := h.env.Rebuilder.Rebuild(ctx, data, h.lib)
		if err != nil {
			t.Fatalf("Rebuild: %v", err)
		}
		if err := h.tl.AddItem(item); err != nil {
			t.Fatalf("AddItem: %v", err)
		}
	}

	cmd, err := NewRemoveTrack(h.env, "v2")
	if err != nil {
		t.Fatalf("NewRemoveTrack: %v", err)
	}
	if err := h.hist.Execute(ctx, cmd); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if h.tl.ItemCount() != 0 || h.tl.TrackCount() != 2 {
		t.Fatalf("expected cascade delete, items=%d tracks=%d", h.tl.ItemCount(), h.tl.TrackCount())
	}
	if err := h.hist.Undo(ctx); err != nil {
		t.Fatalf("Undo: %v", err)
	}
	if h.mgr.Armed() != 1 || h.mgr.ActiveFor(cmd.ID()) != 1 {
		t.Fatalf("expected exactly one synchronizer, armed=%d active=%d", h.mgr.Armed(), h.mgr.ActiveFor(cmd.ID()))
	}
	if h.lib.WatcherCount(m.ID) != 1 {
		t.Fatalf("expected one media watcher, got %d", h.lib.WatcherCount(m.ID))
	}

	h.markReady(t, m.ID, 640, 360)
	items := h.tl.ItemsOnTrack("v2")
	if len(items) != 5 {
		t.Fatalf("expected 5 restored items, got %d", len(items))
	}
	for _, item := range items {
		if item.Status != timeline.StatusReady || item.Resource == nil {
			t.Fatalf("item %s not ready", item.ID)
		}
	}
	for _, data := range cmd.Items() {
		if !data.IsInitialized || data.Status != timeline.StatusReady {
			t.Fatalf("command data not updated: %#v", data)
		}
	}
	if h.mgr.Active() != 0 {
		t.Fatal("synchronizer should tear down after firing")
	}
}

func TestRemoveTrackRestoresIndex(t *testing.T) {
	h := newHarness(t, "a", "b", "c")
	ctx := context.Background()
	cmd, err := NewRemoveTrack(h.env, "b")
	if err != nil {
		t.Fatalf("NewRemoveTrack: %v", err)
	}
	if cmd.Index() != 1 {
		t.Fatalf("expected index 1, got %d", cmd.Index())
	}
	if err := h.hist.Execute(ctx, cmd); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if err := h.hist.Undo(ctx); err != nil {
		t.Fatalf("Undo: %v", err)
	}
	if idx := h.tl.TrackIndex("b"); idx != 1 {
		t.Fatalf("track restored at %d, want 1", idx)
	}
}

func TestRemoveLastTrackRejected(t *testing.T) {
	h := newHarness(t, "only")
	m := h.addMedia(t, true)
	add := h.addClip(t, "only", m, 0)
	cmd, err := NewRemoveTrack(h.env, "only")
	if err != nil {
		t.Fatalf("NewRemoveTrack: %v", err)
	}
	if err := h.hist.Execute(context.Background(), cmd); !errors.Is(err, services.ErrInvariant) {
		t.Fatalf("expected invariant error, got %v", err)
	}
	if h.tl.TrackCount() != 1 || h.tl.ItemCount() != 1 {
		t.Fatal("rejected command must not mutate the timeline")
	}
	if entries := h.hist.UndoEntries(); len(entries) != 1 || entries[0].ID != add.ID() {
		t.Fatalf("undo stack changed: %v", entries)
	}
	if !cmd.IsDisposed() {
		t.Fatal("failed command should be disposed")
	}
}

func TestDisposedCommandIgnoresLateReadiness(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	pending := h.addMedia(t, false)
	first := h.addClip(t, "v1", pending, 0)
	if h.mgr.ActiveFor(first.ID()) != 1 {
		t.Fatal("expected a pending synchronizer")
	}
	if err := h.hist.Undo(ctx); err != nil {
		t.Fatalf("Undo: %v", err)
	}

	// A new edit truncates the redo stack, disposing the undone command.
	other := h.addMedia(t, true)
	h.addClip(t, "v2", other, 0)
	if !first.IsDisposed() || h.mgr.ActiveFor(first.ID()) != 0 {
		t.Fatal("truncated command must be disposed with its synchronizer")
	}
	if h.lib.WatcherCount(pending.ID) != 0 {
		t.Fatal("media watcher left behind")
	}

	h.markReady(t, pending.ID, 640, 360)
	if first.Data().IsInitialized {
		t.Fatal("disposed command must not receive media data")
	}
	if _, ok := h.tl.GetItem(first.Data().ID); ok {
		t.Fatal("late readiness resurrected an undone clip")
	}
	first.Dispose()
}

func TestUpdateMediaDataIsSticky(t *testing.T) {
	h := newHarness(t)
	m := h.addMedia(t, false)
	cmd := h.addClip(t, "v1", m, 0)
	ready := h.markReady(t, m.ID, 640, 360)
	if !cmd.Data().IsInitialized {
		t.Fatal("expected ready media to update the command")
	}
	if v, _ := timeline.VisualOf(cmd.Data().Config); v.Width != 640 {
		t.Fatalf("expected width 640, got %d", v.Width)
	}
	ready.Width = 4000
	cmd.UpdateMediaData(ready, cmd.Data().ID)
	if v, _ := timeline.VisualOf(cmd.Data().Config); v.Width != 640 {
		t.Fatalf("initialized data overwritten: %d", v.Width)
	}
	if item := h.item(t, cmd.Data().ID); item.Status != timeline.StatusReady {
		t.Fatalf("live clip status %s", item.Status)
	}
}

func TestFailedExecuteLeavesState(t *testing.T) {
	h := newHarness(t)
	data := timeline.ItemData{ID: "x", TrackID: "v1", MediaItemID: "ghost", Kind: media.KindVideo,
		Range: timeline.TimeRange{ClipStart: 0, ClipEnd: 10, TimelineStart: 0, TimelineEnd: 10}}
	cmd := NewAddItem(h.env, data)
	if err := h.hist.Execute(context.Background(), cmd); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if h.tl.ItemCount() != 0 || h.hist.CanUndo() {
		t.Fatal("failed execute must not mutate state")
	}
	if err := h.hist.Execute(context.Background(), cmd); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("disposed command should be rejected, got %v", err)
	}
}

func TestHistoryStacks(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	if err := h.hist.Undo(ctx); !errors.Is(err, ErrNothingToUndo) {
		t.Fatalf("expected ErrNothingToUndo, got %v", err)
	}
	if err := h.hist.Redo(ctx); !errors.Is(err, ErrNothingToRedo) {
		t.Fatalf("expected ErrNothingToRedo, got %v", err)
	}

	small := New(Options{MaxEntries: 2, Logger: logging.NewNop()})
	var cmds []*AddTrack
	for i := 0; i < 3; i++ {
		cmd := NewAddTrack(h.env, timeline.TrackData{ID: fmt.Sprintf("extra-%d", i)}, -1)
		cmds = append(cmds, cmd)
		if err := small.Execute(ctx, cmd); err != nil {
			t.Fatalf("Execute: %v", err)
		}
	}
	if !cmds[0].IsDisposed() || cmds[1].IsDisposed() {
		t.Fatal("only the oldest command should be evicted")
	}
	if _, ok := small.GetCommand(cmds[0].ID()); ok {
		t.Fatal("evicted command should not be found")
	}
	if _, ok := small.Lookup(cmds[2].ID()); !ok {
		t.Fatal("expected lookup to find the latest command")
	}
	if got := small.UndoEntries(); len(got) != 2 || got[1].Description != "Add track extra-2" {
		t.Fatalf("unexpected entries: %v", got)
	}

	if err := small.Undo(ctx); err != nil {
		t.Fatalf("Undo: %v", err)
	}
	if h.tl.TrackIndex("extra-2") != -1 || !small.CanRedo() {
		t.Fatal("undo should remove the track and enable redo")
	}
	small.Clear()
	if small.CanUndo() || small.CanRedo() || !cmds[2].IsDisposed() {
		t.Fatal("Clear should dispose everything")
	}
}

type probeCommand struct {
	base
	hist  *History
	found bool
}

func (c *probeCommand) Execute(context.Context) error {
	_, c.found = c.hist.Lookup(c.ID())
	return nil
}

func (c *probeCommand) Undo(context.Context) error         { return nil }
func (c *probeCommand) UpdateMediaData(media.Item, string) {}

func TestLookupResolvesExecutingCommand(t *testing.T) {
	h := newHarness(t)
	cmd := &probeCommand{base: newBase(h.env, "probe"), hist: h.hist}
	if err := h.hist.Execute(context.Background(), cmd); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !cmd.found {
		t.Fatal("command should be resolvable while it executes")
	}
	if _, ok := h.hist.GetCommand(cmd.ID()); !ok {
		t.Fatal("command should be on the undo stack")
	}
	cmd.Dispose()
	if _, ok := h.hist.Lookup(cmd.ID()); ok {
		t.Fatal("disposed commands must not be looked up")
	}
}
