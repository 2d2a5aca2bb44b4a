package catalog_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"cutline/internal/catalog"
	"cutline/internal/media"
	"cutline/internal/services"
	"cutline/internal/testsupport"
)

func sampleItem(id string, status media.Status) media.Item {
	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return media.Item{
		ID:        id,
		Name:      "Clip " + id,
		Kind:      media.KindVideo,
		Status:    status,
		Source:    media.FileSource{Path: "/media/" + id + ".mp4"},
		CreatedAt: created,
		UpdatedAt: created,
	}
}

func TestUpsertAndGet(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenCatalog(t, cfg)
	ctx := context.Background()

	item := sampleItem("a", media.StatusPending)
	if err := store.Upsert(ctx, item); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	item.Status = media.StatusReady
	item.Duration, item.HasDuration = 240, true
	item.Width, item.Height = 1920, 1080
	item.UpdatedAt = item.CreatedAt.Add(time.Minute)
	if err := store.Upsert(ctx, item); err != nil {
		t.Fatalf("Upsert ready: %v", err)
	}

	got, err := store.Get(ctx, "a")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Status != media.StatusReady || !got.HasDuration || got.Duration != 240 || got.Width != 1920 {
		t.Fatalf("unexpected record: %#v", got)
	}
	src, ok := got.Source.(media.FileSource)
	if !ok || src.Path != "/media/a.mp4" {
		t.Fatalf("source not restored: %#v", got.Source)
	}
	if !got.CreatedAt.Equal(item.CreatedAt) || !got.UpdatedAt.Equal(item.UpdatedAt) {
		t.Fatalf("timestamps not restored: %v %v", got.CreatedAt, got.UpdatedAt)
	}
}

func TestGetMissing(t *testing.T) {
	store := testsupport.MustOpenCatalog(t, testsupport.NewConfig(t))
	if _, err := store.Get(context.Background(), "nope"); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if err := store.Delete(context.Background(), "nope"); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found on delete, got %v", err)
	}
}

func TestListFiltersByStatus(t *testing.T) {
	store := testsupport.MustOpenCatalog(t, testsupport.NewConfig(t))
	ctx := context.Background()

	failed := sampleItem("b", media.StatusError)
	failed.Error = "probe failed"
	failed.CreatedAt = failed.CreatedAt.Add(time.Second)
	remote := sampleItem("c", media.StatusReady)
	remote.Source = media.RemoteSource{Prompt: "sunset", Model: "v2", Kind: media.KindImage}
	remote.CreatedAt = remote.CreatedAt.Add(2 * time.Second)
	for _, item := range []media.Item{sampleItem("a", media.StatusReady), failed, remote} {
		if err := store.Upsert(ctx, item); err != nil {
			t.Fatalf("Upsert %s: %v", item.ID, err)
		}
	}

	all, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(all) != 3 || all[0].ID != "a" || all[2].ID != "c" {
		t.Fatalf("unexpected order: %v", all)
	}
	if _, ok := all[2].Source.(media.RemoteSource); !ok {
		t.Fatalf("remote source not restored: %#v", all[2].Source)
	}

	ready, err := store.List(ctx, media.StatusReady)
	if err != nil {
		t.Fatalf("List ready: %v", err)
	}
	if len(ready) != 2 {
		t.Fatalf("expected 2 ready records, got %d", len(ready))
	}

	counts, err := store.Count(ctx)
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if counts[media.StatusReady] != 2 || counts[media.StatusError] != 1 {
		t.Fatalf("unexpected counts: %v", counts)
	}

	if err := store.Delete(ctx, "b"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	got, err := store.Get(ctx, "c")
	if err != nil || got.Source.Origin() != media.OriginGenerated {
		t.Fatalf("Get c: %v %#v", err, got)
	}
}

func TestUpsertRequiresID(t *testing.T) {
	store := testsupport.MustOpenCatalog(t, testsupport.NewConfig(t))
	if err := store.Upsert(context.Background(), media.Item{}); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestSecondOpenIsLocked(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenCatalog(t, cfg)
	if _, err := catalog.Open(cfg); !errors.Is(err, catalog.ErrLocked) {
		t.Fatalf("expected ErrLocked, got %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	reopened, err := catalog.Open(cfg)
	if err != nil {
		t.Fatalf("reopen after close: %v", err)
	}
	_ = reopened.Close()
}

func TestReopenKeepsRecords(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store, err := catalog.Open(cfg)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := store.Upsert(context.Background(), sampleItem("a", media.StatusReady)); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	_ = store.Close()

	again := testsupport.MustOpenCatalog(t, cfg)
	if _, err := again.Get(context.Background(), "a"); err != nil {
		t.Fatalf("record lost across reopen: %v", err)
	}
}
