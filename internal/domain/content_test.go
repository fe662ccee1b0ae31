package domain

import (
	"errors"
	"strings"
	"testing"
)

func TestDefaultSnapshotIsValid(t *testing.T) {
	s := DefaultSnapshot()
	if err := s.Validate(); err != nil {
		t.Fatalf("default snapshot invalid: %v", err)
	}
	if s.Hero.Title != "CROIX" {
		t.Fatalf("unexpected hero title %q", s.Hero.Title)
	}
	for i, p := range s.Bio.Paragraphs {
		if p == "" {
			t.Fatalf("paragraph %d empty", i)
		}
	}
}

func TestValidateRejectsDuplicates(t *testing.T) {
	s := DefaultSnapshot()
	s.GalleryPhotos = append(s.GalleryPhotos, s.GalleryPhotos[0])
	s.SocialLinks = append(s.SocialLinks, SocialLink{Platform: "instagram", URL: "https://example.com"})
	s.Releases = []Release{{ID: "r1", Title: "Worker", Category: "single"}}

	err := s.Validate()
	if !errors.Is(err, ErrInvalidContent) {
		t.Fatalf("expected ErrInvalidContent, got %v", err)
	}
	for _, fragment := range []string{"gallery_photos[8].id", "social_links[5].platform", "releases[0].category"} {
		if !strings.Contains(err.Error(), fragment) {
			t.Errorf("expected %q in %v", fragment, err)
		}
	}
}

func TestCloneIsDeep(t *testing.T) {
	s := DefaultSnapshot()
	c := s.Clone()
	c.GalleryPhotos[0].Alt = "changed"
	c.Bio.Paragraphs[0] = "changed"
	if s.GalleryPhotos[0].Alt == "changed" || s.Bio.Paragraphs[0] == "changed" {
		t.Fatalf("clone shares state with original")
	}
}

func TestPatchApplyMergesTopLevel(t *testing.T) {
	base := DefaultSnapshot()
	hero := base.Hero
	hero.Title = "NEW TITLE"
	out := ContentPatch{Hero: &hero}.Apply(base)

	if out.Hero.Title != "NEW TITLE" {
		t.Fatalf("hero not applied")
	}
	if base.Hero.Title != "CROIX" {
		t.Fatalf("base mutated")
	}
	if out.Fingerprint() == base.Fingerprint() {
		t.Fatalf("fingerprint did not change")
	}
	out.Hero = base.Hero
	if out.Fingerprint() != base.Fingerprint() {
		t.Fatalf("untouched fields changed")
	}
}

func TestNormalizeAndReleaseGrouping(t *testing.T) {
	s := ContentSnapshot{
		Hero: Hero{Title: "  CROIX "},
		Releases: []Release{
			{ID: "a", Title: "Hot Rhythms EP", Category: " OWN "},
			{ID: "b", Title: "Laddie", Category: "remix"},
			{ID: "c", Title: "Calentando EP", Category: "own"},
		},
	}.Normalize()
	if s.Hero.Title != "CROIX" || s.GalleryPhotos == nil {
		t.Fatalf("normalize did not trim or fill lists: %+v", s)
	}
	groups := s.ReleasesByCategory()
	if len(groups[ReleaseCategoryOwn]) != 2 || groups[ReleaseCategoryOwn][1].ID != "c" {
		t.Fatalf("unexpected own group: %+v", groups[ReleaseCategoryOwn])
	}
	if len(groups[ReleaseCategoryVA]) != 0 {
		t.Fatalf("expected empty va group")
	}
}

func TestFullPatchIsEmpty(t *testing.T) {
	if !(ContentPatch{}).IsEmpty() {
		t.Fatalf("zero patch should be empty")
	}
	p := FullPatch(DefaultSnapshot())
	if p.IsEmpty() || len(p.Fields()) != 6 {
		t.Fatalf("full patch fields = %v", p.Fields())
	}
}
