package firestore

import (
	"testing"
	"time"

	"github.com/croix-presskit/presskit/internal/domain"
)

func TestConfigDocumentRoundTrip(t *testing.T) {
	created := time.Date(2024, time.May, 1, 9, 0, 0, 0, time.UTC)
	record := domain.ConfigRecord{
		ID:        "main",
		Content:   domain.DefaultSnapshot(),
		CreatedAt: created,
		UpdatedAt: created.Add(time.Hour),
	}
	record.Content.Releases = []domain.Release{{ID: "r1", Title: "Sustancia EP", Category: domain.ReleaseCategoryOwn, Label: "KRAFT.rec"}}

	doc := encodeConfig(record)
	if doc.Bio.Paragraph4 != record.Content.Bio.Paragraphs[3] {
		t.Fatalf("paragraph4 not mapped")
	}
	got := decodeConfig("main", doc)
	if got.Content.Fingerprint() != record.Content.Fingerprint() {
		t.Fatalf("content changed across encode/decode")
	}
	if !got.CreatedAt.Equal(created) || !got.UpdatedAt.Equal(record.UpdatedAt) {
		t.Fatalf("timestamps lost: %+v", got)
	}
}

func TestDecodeConfigFillsEmptyLists(t *testing.T) {
	got := decodeConfig("main", configDocument{Hero: heroDocument{Title: "CROIX"}})
	if got.Content.GalleryPhotos == nil || got.Content.Releases == nil {
		t.Fatalf("expected empty lists, got %+v", got.Content)
	}
}

func TestEnsureAssetID(t *testing.T) {
	if got := ensureAssetID("01HZX"); got != "asset_01hzx" {
		t.Fatalf("unexpected id %q", got)
	}
	if got := ensureAssetID("asset_abc"); got != "asset_abc" {
		t.Fatalf("prefix duplicated: %q", got)
	}
}

func TestPlanUpsertSkipsUnchangedContent(t *testing.T) {
	created := time.Date(2024, time.May, 1, 9, 0, 0, 0, time.UTC)
	current := domain.ConfigRecord{ID: "main", Content: domain.DefaultSnapshot(), CreatedAt: created, UpdatedAt: created}
	later := created.Add(time.Hour)

	same := current.Content.Hero
	got, write := planUpsert(current, true, domain.ContentPatch{Hero: &same}, later)
	if write {
		t.Fatalf("identical patch must not write")
	}
	if !got.UpdatedAt.Equal(created) {
		t.Fatalf("updated_at moved on a no-op: %v", got.UpdatedAt)
	}

	changed := current.Content.Hero
	changed.Title = "CROIX LIVE"
	got, write = planUpsert(current, true, domain.ContentPatch{Hero: &changed}, later)
	if !write || got.Content.Hero.Title != "CROIX LIVE" {
		t.Fatalf("expected write with merged hero, got write=%v %+v", write, got.Content.Hero)
	}
	if !got.CreatedAt.Equal(created) || !got.UpdatedAt.Equal(later) {
		t.Fatalf("unexpected timestamps %v / %v", got.CreatedAt, got.UpdatedAt)
	}
	if got.Content.Bio.Title != current.Content.Bio.Title {
		t.Fatalf("unpatched section changed")
	}
}

func TestPlanUpsertCreatesMissingDocument(t *testing.T) {
	now := time.Date(2024, time.June, 2, 12, 0, 0, 0, time.UTC)
	seed := domain.ConfigRecord{ID: "main", Content: domain.DefaultSnapshot()}
	same := seed.Content.Hero

	got, write := planUpsert(seed, false, domain.ContentPatch{Hero: &same}, now)
	if !write {
		t.Fatalf("missing document must be written even when the patch matches the seed")
	}
	if got.ID != "main" || !got.CreatedAt.Equal(now) || !got.UpdatedAt.Equal(now) {
		t.Fatalf("unexpected record %+v", got)
	}
}
