package snapshot

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/croix-presskit/presskit/internal/domain"
)

func TestFileStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store, err := NewFileStore(filepath.Join(t.TempDir(), "nested", "snapshot.json"))
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}

	if _, ok := store.Read(ctx); ok {
		t.Fatalf("expected absent snapshot before first write")
	}

	want := domain.DefaultSnapshot()
	want.Hero.Title = "CACHED"
	want.Releases = []domain.Release{{ID: "r1", Title: "Worker", Category: domain.ReleaseCategoryOwn, Label: "[One:Thirty]"}}
	if err := store.Write(ctx, want); err != nil {
		t.Fatalf("Write: %v", err)
	}

	got, ok := store.Read(ctx)
	if !ok {
		t.Fatalf("expected snapshot after write")
	}
	if got.Fingerprint() != want.Fingerprint() {
		t.Fatalf("round trip mismatch:\n got %+v\nwant %+v", got, want)
	}

	info, err := store.Stat(ctx)
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if !info.Exists || !info.Valid || info.Fingerprint != want.Fingerprint() {
		t.Fatalf("unexpected info %+v", info)
	}
}

func TestFileStoreParseFailureIsAbsent(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	path := filepath.Join(t.TempDir(), "snapshot.json")
	if err := os.WriteFile(path, []byte(`{"hero": {"title": `), 0o644); err != nil {
		t.Fatalf("seed file: %v", err)
	}
	store, err := NewFileStore(path, WithLogger(zap.New(core)))
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}

	if _, ok := store.Read(context.Background()); ok {
		t.Fatalf("expected corrupt snapshot to read as absent")
	}
	if logs.FilterMessage("snapshot parse failed").Len() != 1 {
		t.Fatalf("expected parse warning, got %v", logs.All())
	}
	info, _ := store.Stat(context.Background())
	if !info.Exists || info.Valid {
		t.Fatalf("expected existing but invalid blob, got %+v", info)
	}
}

func TestFileStoreClear(t *testing.T) {
	ctx := context.Background()
	store, _ := NewFileStore(filepath.Join(t.TempDir(), "snapshot.json"))
	if err := store.Write(ctx, domain.DefaultSnapshot()); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := store.Clear(ctx); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if _, ok := store.Read(ctx); ok {
		t.Fatalf("expected absent after clear")
	}
	if err := store.Clear(ctx); err != nil {
		t.Fatalf("second Clear: %v", err)
	}
}

func TestFileStoreConcurrentWritersNeverTear(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "snapshot.json")
	a, _ := NewFileStore(path)
	b, _ := NewFileStore(path)

	first := domain.DefaultSnapshot()
	second := domain.DefaultSnapshot()
	second.Hero.Title = "OTHER TAB"

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() { defer wg.Done(); _ = a.Write(ctx, first) }()
		go func() { defer wg.Done(); _ = b.Write(ctx, second) }()
	}
	wg.Wait()

	got, ok := a.Read(ctx)
	if !ok {
		t.Fatalf("expected a complete snapshot")
	}
	if fp := got.Fingerprint(); fp != first.Fingerprint() && fp != second.Fingerprint() {
		t.Fatalf("read a blob matching neither writer")
	}
}

func TestMemoryStoreReturnsCopies(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	s := domain.DefaultSnapshot()
	if err := store.Write(ctx, s); err != nil {
		t.Fatalf("Write: %v", err)
	}
	s.GalleryPhotos[0].Alt = "mutated after write"

	got, ok := store.Read(ctx)
	if !ok || got.GalleryPhotos[0].Alt != "CROIX DJ Set 1" {
		t.Fatalf("memory store shares state with caller: %+v", got.GalleryPhotos[0])
	}
	got.GalleryPhotos[0].Alt = "mutated after read"
	again, _ := store.Read(ctx)
	if again.GalleryPhotos[0].Alt != "CROIX DJ Set 1" {
		t.Fatalf("read copy shares state with store")
	}
	if store.Writes() != 1 {
		t.Fatalf("expected 1 write, got %d", store.Writes())
	}
}
