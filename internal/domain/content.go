package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrInvalidContent is wrapped by every snapshot validation failure.
var ErrInvalidContent = errors.New("content: invalid snapshot")

// GalleryCategory groups gallery photos on the public page.
type GalleryCategory string

const (
	GalleryCategoryDJ       GalleryCategory = "dj"
	GalleryCategoryStudio   GalleryCategory = "studio"
	GalleryCategoryPress    GalleryCategory = "press"
	GalleryCategoryColabs   GalleryCategory = "colabs"
	GalleryCategoryReleases GalleryCategory = "releases"
)

// GalleryCategories lists the accepted gallery categories in display order.
var GalleryCategories = []GalleryCategory{
	GalleryCategoryDJ,
	GalleryCategoryStudio,
	GalleryCategoryPress,
	GalleryCategoryColabs,
	GalleryCategoryReleases,
}

// ParseGalleryCategory normalises and validates a category name.
func ParseGalleryCategory(raw string) (GalleryCategory, bool) {
	c := GalleryCategory(strings.ToLower(strings.TrimSpace(raw)))
	for _, known := range GalleryCategories {
		if c == known {
			return c, true
		}
	}
	return "", false
}

// ReleaseCategory groups releases on the public page.
type ReleaseCategory string

const (
	ReleaseCategoryOwn   ReleaseCategory = "own"
	ReleaseCategoryRemix ReleaseCategory = "remix"
	ReleaseCategoryVA    ReleaseCategory = "va"
)

// ReleaseCategories lists the accepted release categories in display order.
var ReleaseCategories = []ReleaseCategory{ReleaseCategoryOwn, ReleaseCategoryRemix, ReleaseCategoryVA}

// ParseReleaseCategory normalises and validates a release category name.
func ParseReleaseCategory(raw string) (ReleaseCategory, bool) {
	c := ReleaseCategory(strings.ToLower(strings.TrimSpace(raw)))
	for _, known := range ReleaseCategories {
		if c == known {
			return c, true
		}
	}
	return "", false
}

// BioParagraphs is the fixed number of biography paragraphs.
const BioParagraphs = 4

type Hero struct {
	Title           string `json:"title"`
	Subtitle        string `json:"subtitle"`
	Description1    string `json:"description1"`
	Description2    string `json:"description2"`
	BackgroundImage string `json:"background_image"`
}

// Bio paragraphs may contain **bold** spans.
type Bio struct {
	Title      string                `json:"title"`
	Image      string                `json:"image"`
	Paragraphs [BioParagraphs]string `json:"paragraphs"`
}

type GalleryPhoto struct {
	ID       string          `json:"id"`
	Src      string          `json:"src"`
	Alt      string          `json:"alt"`
	Featured bool            `json:"featured"`
	Category GalleryCategory `json:"category"`
}

type Video struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	EmbedURL    string `json:"embed_url"`
	Description string `json:"description,omitempty"`
	Featured    bool   `json:"featured,omitempty"`
}

type SocialLink struct {
	Platform string `json:"platform"`
	URL      string `json:"url"`
	Icon     string `json:"icon,omitempty"`
}

type Release struct {
	ID       string          `json:"id"`
	Title    string          `json:"title"`
	Cover    string          `json:"cover_image"`
	Category ReleaseCategory `json:"category"`
	Label    string          `json:"label,omitempty"`
	Link     string          `json:"link,omitempty"`
}

// ContentSnapshot is the complete press-kit content. List order is display order.
type ContentSnapshot struct {
	Hero          Hero           `json:"hero"`
	Bio           Bio            `json:"bio"`
	GalleryPhotos []GalleryPhoto `json:"gallery_photos"`
	Videos        []Video        `json:"videos"`
	SocialLinks   []SocialLink   `json:"social_links"`
	Releases      []Release      `json:"releases"`
}

// ConfigRecord is the remote form of the snapshot with its bookkeeping timestamps.
type ConfigRecord struct {
	ID        string
	Content   ContentSnapshot
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Clone returns a deep copy whose slices share nothing with s.
func (s ContentSnapshot) Clone() ContentSnapshot {
	out := s
	out.GalleryPhotos = append([]GalleryPhoto(nil), s.GalleryPhotos...)
	out.Videos = append([]Video(nil), s.Videos...)
	out.SocialLinks = append([]SocialLink(nil), s.SocialLinks...)
	out.Releases = append([]Release(nil), s.Releases...)
	return out.withEmptyLists()
}

func (s ContentSnapshot) withEmptyLists() ContentSnapshot {
	if s.GalleryPhotos == nil {
		s.GalleryPhotos = []GalleryPhoto{}
	}
	if s.Videos == nil {
		s.Videos = []Video{}
	}
	if s.SocialLinks == nil {
		s.SocialLinks = []SocialLink{}
	}
	if s.Releases == nil {
		s.Releases = []Release{}
	}
	return s
}

// Normalize trims whitespace and lower-cases category names. It does not validate.
func (s ContentSnapshot) Normalize() ContentSnapshot {
	out := s.Clone()
	out.Hero = Hero{
		Title:           strings.TrimSpace(s.Hero.Title),
		Subtitle:        strings.TrimSpace(s.Hero.Subtitle),
		Description1:    strings.TrimSpace(s.Hero.Description1),
		Description2:    strings.TrimSpace(s.Hero.Description2),
		BackgroundImage: strings.TrimSpace(s.Hero.BackgroundImage),
	}
	out.Bio.Title = strings.TrimSpace(s.Bio.Title)
	out.Bio.Image = strings.TrimSpace(s.Bio.Image)
	for i := range out.Bio.Paragraphs {
		out.Bio.Paragraphs[i] = strings.TrimSpace(s.Bio.Paragraphs[i])
	}
	for i := range out.GalleryPhotos {
		p := &out.GalleryPhotos[i]
		p.ID = strings.TrimSpace(p.ID)
		p.Src = strings.TrimSpace(p.Src)
		p.Alt = strings.TrimSpace(p.Alt)
		p.Category = GalleryCategory(strings.ToLower(strings.TrimSpace(string(p.Category))))
	}
	for i := range out.Videos {
		v := &out.Videos[i]
		v.ID = strings.TrimSpace(v.ID)
		v.Title = strings.TrimSpace(v.Title)
		v.EmbedURL = strings.TrimSpace(v.EmbedURL)
		v.Description = strings.TrimSpace(v.Description)
	}
	for i := range out.SocialLinks {
		l := &out.SocialLinks[i]
		l.Platform = strings.TrimSpace(l.Platform)
		l.URL = strings.TrimSpace(l.URL)
		l.Icon = strings.TrimSpace(l.Icon)
	}
	for i := range out.Releases {
		r := &out.Releases[i]
		r.ID = strings.TrimSpace(r.ID)
		r.Title = strings.TrimSpace(r.Title)
		r.Cover = strings.TrimSpace(r.Cover)
		r.Category = ReleaseCategory(strings.ToLower(strings.TrimSpace(string(r.Category))))
		r.Label = strings.TrimSpace(r.Label)
		r.Link = strings.TrimSpace(r.Link)
	}
	return out
}

// Validate checks the structural rules: item ids present and unique per list,
// known categories, unique platforms (case-insensitive) and a hero title.
func (s ContentSnapshot) Validate() error {
	var problems []string

	if s.Hero.Title == "" {
		problems = append(problems, "hero.title is required")
	}

	seen := map[string]struct{}{}
	for i, p := range s.GalleryPhotos {
		if msg := checkID("gallery_photos", i, p.ID, seen); msg != "" {
			problems = append(problems, msg)
		}
		if p.Src == "" {
			problems = append(problems, fmt.Sprintf("gallery_photos[%d].src is required", i))
		}
		if _, ok := ParseGalleryCategory(string(p.Category)); !ok {
			problems = append(problems, fmt.Sprintf("gallery_photos[%d].category %q is unknown", i, p.Category))
		}
	}

	seen = map[string]struct{}{}
	for i, v := range s.Videos {
		if msg := checkID("videos", i, v.ID, seen); msg != "" {
			problems = append(problems, msg)
		}
		if v.EmbedURL == "" {
			problems = append(problems, fmt.Sprintf("videos[%d].embed_url is required", i))
		}
	}

	platforms := map[string]struct{}{}
	for i, l := range s.SocialLinks {
		key := strings.ToLower(l.Platform)
		if key == "" {
			problems = append(problems, fmt.Sprintf("social_links[%d].platform is required", i))
			continue
		}
		if _, dup := platforms[key]; dup {
			problems = append(problems, fmt.Sprintf("social_links[%d].platform %q is duplicated", i, l.Platform))
		}
		platforms[key] = struct{}{}
		if l.URL == "" {
			problems = append(problems, fmt.Sprintf("social_links[%d].url is required", i))
		}
	}

	seen = map[string]struct{}{}
	for i, r := range s.Releases {
		if msg := checkID("releases", i, r.ID, seen); msg != "" {
			problems = append(problems, msg)
		}
		if r.Title == "" {
			problems = append(problems, fmt.Sprintf("releases[%d].title is required", i))
		}
		if _, ok := ParseReleaseCategory(string(r.Category)); !ok {
			problems = append(problems, fmt.Sprintf("releases[%d].category %q is unknown", i, r.Category))
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidContent, strings.Join(problems, "; "))
	}
	return nil
}

func checkID(list string, index int, id string, seen map[string]struct{}) string {
	if id == "" {
		return fmt.Sprintf("%s[%d].id is required", list, index)
	}
	if _, dup := seen[id]; dup {
		return fmt.Sprintf("%s[%d].id %q is duplicated", list, index, id)
	}
	seen[id] = struct{}{}
	return ""
}

// ReleasesByCategory groups releases preserving their relative order.
func (s ContentSnapshot) ReleasesByCategory() map[ReleaseCategory][]Release {
	out := make(map[ReleaseCategory][]Release, len(ReleaseCategories))
	for _, c := range ReleaseCategories {
		out[c] = []Release{}
	}
	for _, r := range s.Releases {
		out[r.Category] = append(out[r.Category], r)
	}
	return out
}
