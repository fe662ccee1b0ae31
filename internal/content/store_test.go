package content

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/croix-presskit/presskit/internal/domain"
	"github.com/croix-presskit/presskit/internal/notify"
	"github.com/croix-presskit/presskit/internal/services"
	"github.com/croix-presskit/presskit/internal/snapshot"
)

type stubRemote struct {
	mu      sync.Mutex
	record  *domain.ConfigRecord
	getErr  error
	gets    int
	upserts []domain.ContentPatch
}

func (r *stubRemote) GetConfig(context.Context) (domain.ConfigRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.gets++
	if r.getErr != nil {
		return domain.ConfigRecord{}, r.getErr
	}
	if r.record == nil {
		return domain.ConfigRecord{}, services.ErrConfigNotFound
	}
	return *r.record, nil
}

func (r *stubRemote) UpsertConfig(_ context.Context, patch domain.ContentPatch) (domain.ConfigRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.upserts = append(r.upserts, patch)
	base := domain.DefaultSnapshot()
	if r.record != nil {
		base = r.record.Content
	}
	next := domain.ConfigRecord{ID: "main", Content: patch.Apply(base)}
	r.record = &next
	return next, nil
}

func (r *stubRemote) set(title string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := domain.DefaultSnapshot()
	s.Hero.Title = title
	r.record = &domain.ConfigRecord{ID: "main", Content: s}
}

func newRemoteStore(t *testing.T, remote *stubRemote, snaps snapshot.Store, seed bool) *Store {
	t.Helper()
	store, err := New(Options{Mode: ModeRemote, Remote: remote, Snapshots: snaps, SeedRemote: seed})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return store
}

func TestInitFromRemoteCachesSnapshot(t *testing.T) {
	remote := &stubRemote{}
	remote.set("REMOTE")
	snaps := snapshot.NewMemoryStore()
	store := newRemoteStore(t, remote, snaps, false)

	if got := store.Status().State; got != StateUninitialized {
		t.Fatalf("expected uninitialized before Init, got %s", got)
	}
	if err := store.Init(context.Background()); err != nil {
		t.Fatalf("Init: %v", err)
	}
	status := store.Status()
	if status.State != StateReady || status.Degraded || status.Source != SourceRemote {
		t.Fatalf("unexpected status %+v", status)
	}
	cached, ok := snaps.Read(context.Background())
	if !ok || cached.Hero.Title != "REMOTE" {
		t.Fatalf("remote content not cached locally: %+v", cached.Hero)
	}
}

func TestInitDegradedServesCachedSnapshot(t *testing.T) {
	remote := &stubRemote{getErr: fmt.Errorf("%w: dial tcp: connection refused", services.ErrRemoteUnavailable)}
	snaps := snapshot.NewMemoryStore()
	cached := domain.DefaultSnapshot()
	cached.Hero.Title = "CACHED"
	_ = snaps.Write(context.Background(), cached)

	store := newRemoteStore(t, remote, snaps, false)
	if err := store.Init(context.Background()); err != nil {
		t.Fatalf("Init must not fail on remote outage: %v", err)
	}
	if got := store.Snapshot().Hero.Title; got != "CACHED" {
		t.Fatalf("expected cached title, got %q", got)
	}
	status := store.Status()
	if !status.Degraded || status.Source != SourceSnapshot || status.LastError == "" {
		t.Fatalf("expected degraded snapshot status, got %+v", status)
	}
}

func TestInitDegradedWithoutCacheServesDefaults(t *testing.T) {
	remote := &stubRemote{getErr: services.ErrRemoteUnavailable}
	store := newRemoteStore(t, remote, snapshot.NewMemoryStore(), false)
	_ = store.Init(context.Background())
	if store.Snapshot().Hero.Title != "CROIX" || store.Status().Source != SourceDefaults {
		t.Fatalf("expected defaults, got %+v", store.Status())
	}
}

func TestInitNotFoundSeedsRemote(t *testing.T) {
	remote := &stubRemote{}
	store := newRemoteStore(t, remote, snapshot.NewMemoryStore(), true)
	_ = store.Init(context.Background())

	status := store.Status()
	if status.Degraded || status.Source != SourceDefaults {
		t.Fatalf("not found must not degrade: %+v", status)
	}
	if len(remote.upserts) != 1 || remote.upserts[0].Hero == nil {
		t.Fatalf("expected a full seed upsert, got %+v", remote.upserts)
	}
}

func TestUpdateContentMergesAndNotifiesSynchronously(t *testing.T) {
	snaps := snapshot.NewMemoryStore()
	store, err := New(Options{Mode: ModeLocal, Snapshots: snaps})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	_ = store.Init(context.Background())
	before := store.Snapshot()

	var seen string
	store.Subscribe(func(s domain.ContentSnapshot) { seen = s.Hero.Title })

	hero := before.Hero
	hero.Title = "NEW TITLE"
	if _, err := store.UpdateContent(context.Background(), domain.ContentPatch{Hero: &hero}); err != nil {
		t.Fatalf("UpdateContent: %v", err)
	}
	if seen != "NEW TITLE" {
		t.Fatalf("subscriber not updated before return, saw %q", seen)
	}

	after := store.Snapshot()
	if after.Hero.Title != "NEW TITLE" {
		t.Fatalf("hero not merged")
	}
	after.Hero = before.Hero
	if after.Fingerprint() != before.Fingerprint() {
		t.Fatalf("fields outside the patch changed")
	}
	cached, _ := snaps.Read(context.Background())
	if cached.Hero.Title != "NEW TITLE" {
		t.Fatalf("snapshot store not written")
	}
}

func TestUpdateContentRejectsInvalidAndEmpty(t *testing.T) {
	store, _ := New(Options{Mode: ModeLocal})
	if _, err := store.UpdateContent(context.Background(), domain.ContentPatch{Hero: &domain.Hero{Title: "x"}}); !errors.Is(err, ErrNotInitialized) {
		t.Fatalf("expected ErrNotInitialized, got %v", err)
	}
	_ = store.Init(context.Background())
	if _, err := store.UpdateContent(context.Background(), domain.ContentPatch{}); !errors.Is(err, ErrEmptyPatch) {
		t.Fatalf("expected ErrEmptyPatch, got %v", err)
	}
	links := []domain.SocialLink{{Platform: "Instagram", URL: "https://a"}, {Platform: "instagram", URL: "https://b"}}
	if _, err := store.UpdateContent(context.Background(), domain.ContentPatch{SocialLinks: &links}); !errors.Is(err, domain.ErrInvalidContent) {
		t.Fatalf("expected ErrInvalidContent, got %v", err)
	}
	if len(store.Snapshot().SocialLinks) != 5 {
		t.Fatalf("invalid update must not change content")
	}
}

func TestSnapshotIsACopy(t *testing.T) {
	store, _ := New(Options{Mode: ModeLocal})
	_ = store.Init(context.Background())
	s := store.Snapshot()
	s.GalleryPhotos[0].Alt = "mutated"
	if store.Snapshot().GalleryPhotos[0].Alt == "mutated" {
		t.Fatalf("readers must not be able to mutate the held snapshot")
	}
}

func TestReloadFromCrossProcessSignalDedupes(t *testing.T) {
	remote := &stubRemote{}
	remote.set("FIRST")
	cross := notify.NewBroadcaster()
	store, _ := New(Options{Mode: ModeRemote, Remote: remote, CrossProcess: cross})
	_ = store.Init(context.Background())
	defer store.Close()

	var calls int
	store.Subscribe(func(domain.ContentSnapshot) { calls++ })

	_ = cross.Publish(context.Background())
	if calls != 0 {
		t.Fatalf("unchanged remote content must not notify, got %d", calls)
	}

	remote.set("SECOND")
	_ = cross.Publish(context.Background())
	if calls != 1 || store.Snapshot().Hero.Title != "SECOND" {
		t.Fatalf("expected one notification with new title, got %d / %q", calls, store.Snapshot().Hero.Title)
	}
}

func TestConcurrentSectionSavesKeepBothEdits(t *testing.T) {
	ctx := context.Background()
	snaps := snapshot.NewMemoryStore()
	store, _ := New(Options{Mode: ModeLocal, Snapshots: snaps})
	_ = store.Init(ctx)

	for round := 0; round < 200; round++ {
		heroTitle := fmt.Sprintf("HERO %d", round)
		bioTitle := fmt.Sprintf("BIO %d", round)
		base := store.Snapshot()
		hero, bio := base.Hero, base.Bio
		hero.Title, bio.Title = heroTitle, bioTitle

		var wg sync.WaitGroup
		errs := make(chan error, 3)
		wg.Add(3)
		go func() {
			defer wg.Done()
			_, err := store.UpdateContent(ctx, domain.ContentPatch{Hero: &hero})
			errs <- err
		}()
		go func() {
			defer wg.Done()
			_, err := store.UpdateContent(ctx, domain.ContentPatch{Bio: &bio})
			errs <- err
		}()
		go func() {
			defer wg.Done()
			errs <- store.Reload(ctx)
		}()
		wg.Wait()
		close(errs)
		for err := range errs {
			if err != nil {
				t.Fatalf("round %d: %v", round, err)
			}
		}

		got := store.Snapshot()
		if got.Hero.Title != heroTitle || got.Bio.Title != bioTitle {
			t.Fatalf("round %d: lost an edit, hero=%q bio=%q", round, got.Hero.Title, got.Bio.Title)
		}
		cached, ok := snaps.Read(ctx)
		if !ok || cached.Fingerprint() != store.Fingerprint() {
			t.Fatalf("round %d: cache diverged from held snapshot", round)
		}
	}
}

func TestCacheWatchSkipsRemoteForOwnWrite(t *testing.T) {
	ctx := context.Background()
	remote := &stubRemote{}
	remote.set("FIRST")
	snaps := snapshot.NewMemoryStore()
	watch := notify.NewBroadcaster()
	store, _ := New(Options{Mode: ModeRemote, Remote: remote, Snapshots: snaps, CacheWatch: watch})
	_ = store.Init(ctx)
	defer store.Close()

	hero := store.Snapshot().Hero
	hero.Title = "SAVED HERE"
	if _, err := store.UpdateContent(ctx, domain.ContentPatch{Hero: &hero}); err != nil {
		t.Fatalf("UpdateContent: %v", err)
	}
	before := remote.gets
	_ = watch.Publish(ctx)
	if remote.gets != before {
		t.Fatalf("own cache write must not trigger a remote read, got %d extra", remote.gets-before)
	}

	remote.set("OTHER PROCESS")
	other := store.Snapshot()
	other.Hero.Title = "OTHER PROCESS"
	_ = snaps.Write(ctx, other)
	_ = watch.Publish(ctx)
	if remote.gets != before+1 {
		t.Fatalf("changed cache file should reload from remote once, got %d", remote.gets-before)
	}
	if got := store.Snapshot().Hero.Title; got != "OTHER PROCESS" {
		t.Fatalf("expected reloaded title, got %q", got)
	}
}

func TestReloadRemoteFailureFallsBackToSnapshot(t *testing.T) {
	remote := &stubRemote{}
	remote.set("ONLINE")
	snaps := snapshot.NewMemoryStore()
	store := newRemoteStore(t, remote, snaps, false)
	_ = store.Init(context.Background())

	offline := domain.DefaultSnapshot()
	offline.Hero.Title = "OTHER PROCESS"
	_ = snaps.Write(context.Background(), offline)
	remote.getErr = services.ErrRemoteUnavailable

	if err := store.Reload(context.Background()); err != nil {
		t.Fatalf("Reload: %v", err)
	}
	if !store.Status().Degraded || store.Snapshot().Hero.Title != "OTHER PROCESS" {
		t.Fatalf("expected degraded fallback, got %+v", store.Status())
	}

	remote.getErr = nil
	_ = store.Reload(context.Background())
	if store.Status().Degraded {
		t.Fatalf("successful reload should clear degraded flag")
	}
}

func TestLocalModeReloadReadsSnapshot(t *testing.T) {
	snaps := snapshot.NewMemoryStore()
	store, _ := New(Options{Mode: ModeLocal, Snapshots: snaps})
	_ = store.Init(context.Background())

	other := domain.DefaultSnapshot()
	other.Bio.Paragraphs[2] = ""
	_ = snaps.Write(context.Background(), other)

	var got domain.ContentSnapshot
	store.Subscribe(func(s domain.ContentSnapshot) { got = s })
	if err := store.Reload(context.Background()); err != nil {
		t.Fatalf("Reload: %v", err)
	}
	if got.Bio.Paragraphs[2] != "" || got.Bio.Paragraphs[3] == "" {
		t.Fatalf("expected reloaded paragraphs, got %+v", got.Bio.Paragraphs)
	}
}

func TestNewValidatesMode(t *testing.T) {
	if _, err := New(Options{Mode: ModeRemote}); err == nil {
		t.Fatalf("remote mode without remote must fail")
	}
	if _, err := New(Options{Mode: "browser"}); err == nil {
		t.Fatalf("unknown mode must fail")
	}
}
