package admin

import (
	"fmt"
	"strings"

	"github.com/croix-presskit/presskit/internal/domain"
	"github.com/croix-presskit/presskit/internal/platform/textutil"
)

// VideoInput is the add-video form.
type VideoInput struct {
	URL         string `json:"url"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Featured    bool   `json:"featured,omitempty"`
}

// ItemUpdate edits one list item in place. Nil fields are left unchanged;
// fields that do not apply to the section are ignored.
type ItemUpdate struct {
	Featured    *bool   `json:"featured,omitempty"`
	Alt         *string `json:"alt,omitempty"`
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	Category    *string `json:"category,omitempty"`
	URL         *string `json:"url,omitempty"`
	Icon        *string `json:"icon,omitempty"`
	Label       *string `json:"label,omitempty"`
	Link        *string `json:"link,omitempty"`
	Cover       *string `json:"cover_image,omitempty"`
}

// SetHero replaces the hero draft. The background image is editable.
func (e *Editor) SetHero(hero domain.Hero) (View, error) {
	return e.mutate(SectionHero, func(sess *session) error {
		sess.draft.Hero = domain.Hero{
			Title:           textutil.PlainText(hero.Title),
			Subtitle:        textutil.PlainText(hero.Subtitle),
			Description1:    textutil.PlainText(hero.Description1),
			Description2:    textutil.PlainText(hero.Description2),
			BackgroundImage: strings.TrimSpace(hero.BackgroundImage),
		}
		return nil
	})
}

// SetBio replaces the bio draft. Paragraphs keep their **bold** markers.
func (e *Editor) SetBio(bio domain.Bio) (View, error) {
	return e.mutate(SectionBio, func(sess *session) error {
		next := domain.Bio{Title: textutil.PlainText(bio.Title), Image: strings.TrimSpace(bio.Image)}
		for i, p := range bio.Paragraphs {
			next.Paragraphs[i] = textutil.PlainText(p)
		}
		sess.draft.Bio = next
		return nil
	})
}

// AddPhotos appends photos to the gallery draft in the given order. Missing
// ids are generated.
func (e *Editor) AddPhotos(photos ...domain.GalleryPhoto) (View, error) {
	return e.mutate(SectionGallery, func(sess *session) error {
		added := make([]domain.GalleryPhoto, 0, len(photos))
		for _, p := range photos {
			category, ok := domain.ParseGalleryCategory(string(p.Category))
			if !ok {
				return fmt.Errorf("%w: unknown gallery category %q", ErrInvalidDraft, p.Category)
			}
			src := strings.TrimSpace(p.Src)
			if src == "" {
				return fmt.Errorf("%w: photo src is required", ErrInvalidDraft)
			}
			id := strings.TrimSpace(p.ID)
			if id == "" {
				id = e.newID()
			}
			added = append(added, domain.GalleryPhoto{
				ID:       id,
				Src:      src,
				Alt:      textutil.PlainText(p.Alt),
				Featured: p.Featured,
				Category: category,
			})
		}
		sess.draft.GalleryPhotos = append(sess.draft.GalleryPhotos, added...)
		return nil
	})
}

// AddVideo resolves the link and appends the video. An unrecognised link
// fails with ErrInvalidVideoURL and adds nothing.
func (e *Editor) AddVideo(input VideoInput) (View, error) {
	ref, err := ExtractVideo(input.URL)
	if err != nil {
		return View{}, err
	}
	return e.mutate(SectionVideos, func(sess *session) error {
		title := textutil.PlainText(input.Title)
		if title == "" {
			title = ref.ID
		}
		sess.draft.Videos = append(sess.draft.Videos, domain.Video{
			ID:          e.newID(),
			Title:       title,
			EmbedURL:    ref.EmbedURL,
			Description: textutil.PlainText(input.Description),
			Featured:    input.Featured,
		})
		return nil
	})
}

// AddSocialLink appends a link. A malformed URL fails with ErrInvalidURL and
// the input is kept as the pending new-link form for correction.
func (e *Editor) AddSocialLink(link domain.SocialLink) (View, error) {
	return e.mutate(SectionSocial, func(sess *session) error {
		input := domain.SocialLink{
			Platform: textutil.PlainText(link.Platform),
			URL:      strings.TrimSpace(link.URL),
			Icon:     strings.TrimSpace(link.Icon),
		}
		if input.Platform == "" {
			sess.newSocial = &input
			return fmt.Errorf("%w: platform is required", ErrInvalidDraft)
		}
		normalized, err := ValidateSocialURL(input.URL)
		if err != nil {
			sess.newSocial = &input
			return err
		}
		if indexOf(sess.draft.SocialLinks, strings.ToLower(input.Platform), socialKey) >= 0 {
			sess.newSocial = &input
			return fmt.Errorf("%w: %s", ErrDuplicatePlatform, input.Platform)
		}
		input.URL = normalized
		sess.draft.SocialLinks = append(sess.draft.SocialLinks, input)
		sess.newSocial = nil
		return nil
	})
}

// AddRelease appends a release.
func (e *Editor) AddRelease(release domain.Release) (View, error) {
	return e.mutate(SectionReleases, func(sess *session) error {
		category, ok := domain.ParseReleaseCategory(string(release.Category))
		if !ok {
			return fmt.Errorf("%w: unknown release category %q", ErrInvalidDraft, release.Category)
		}
		title := textutil.PlainText(release.Title)
		if title == "" {
			return fmt.Errorf("%w: release title is required", ErrInvalidDraft)
		}
		link := strings.TrimSpace(release.Link)
		if link != "" {
			if _, err := ValidateSocialURL(link); err != nil {
				return err
			}
		}
		id := strings.TrimSpace(release.ID)
		if id == "" {
			id = e.newID()
		}
		sess.draft.Releases = append(sess.draft.Releases, domain.Release{
			ID:       id,
			Title:    title,
			Cover:    strings.TrimSpace(release.Cover),
			Category: category,
			Label:    textutil.PlainText(release.Label),
			Link:     link,
		})
		return nil
	})
}

// UpdateItem edits one list item in the draft.
func (e *Editor) UpdateItem(section Section, id string, update ItemUpdate) (View, error) {
	return e.mutate(section, func(sess *session) error {
		switch section {
		case SectionGallery:
			i := indexOf(sess.draft.GalleryPhotos, id, photoKey)
			if i < 0 {
				return fmt.Errorf("%w: %s", ErrItemNotFound, id)
			}
			p := &sess.draft.GalleryPhotos[i]
			if update.Featured != nil {
				p.Featured = *update.Featured
			}
			if update.Alt != nil {
				p.Alt = textutil.PlainText(*update.Alt)
			}
			if update.Category != nil {
				c, ok := domain.ParseGalleryCategory(*update.Category)
				if !ok {
					return fmt.Errorf("%w: unknown gallery category %q", ErrInvalidDraft, *update.Category)
				}
				p.Category = c
			}
		case SectionVideos:
			i := indexOf(sess.draft.Videos, id, videoKey)
			if i < 0 {
				return fmt.Errorf("%w: %s", ErrItemNotFound, id)
			}
			v := &sess.draft.Videos[i]
			if update.Featured != nil {
				v.Featured = *update.Featured
			}
			if update.Title != nil {
				v.Title = textutil.PlainText(*update.Title)
			}
			if update.Description != nil {
				v.Description = textutil.PlainText(*update.Description)
			}
			if update.URL != nil {
				ref, err := ExtractVideo(*update.URL)
				if err != nil {
					return err
				}
				v.EmbedURL = ref.EmbedURL
			}
		case SectionSocial:
			i := indexOf(sess.draft.SocialLinks, strings.ToLower(id), socialKey)
			if i < 0 {
				return fmt.Errorf("%w: %s", ErrItemNotFound, id)
			}
			l := &sess.draft.SocialLinks[i]
			if update.URL != nil {
				u, err := ValidateSocialURL(*update.URL)
				if err != nil {
					return err
				}
				l.URL = u
			}
			if update.Icon != nil {
				l.Icon = strings.TrimSpace(*update.Icon)
			}
		case SectionReleases:
			i := indexOf(sess.draft.Releases, id, releaseKey)
			if i < 0 {
				return fmt.Errorf("%w: %s", ErrItemNotFound, id)
			}
			r := &sess.draft.Releases[i]
			if update.Title != nil {
				r.Title = textutil.PlainText(*update.Title)
			}
			if update.Label != nil {
				r.Label = textutil.PlainText(*update.Label)
			}
			if update.Cover != nil {
				r.Cover = strings.TrimSpace(*update.Cover)
			}
			if update.Link != nil {
				link := strings.TrimSpace(*update.Link)
				if link != "" {
					if _, err := ValidateSocialURL(link); err != nil {
						return err
					}
				}
				r.Link = link
			}
			if update.Category != nil {
				c, ok := domain.ParseReleaseCategory(*update.Category)
				if !ok {
					return fmt.Errorf("%w: unknown release category %q", ErrInvalidDraft, *update.Category)
				}
				r.Category = c
			}
		default:
			return fmt.Errorf("%w: %s", ErrUnsupported, section)
		}
		return nil
	})
}

// Move is one drag-over step: the item at from is re-inserted at to.
func (e *Editor) Move(section Section, from, to int) (View, error) {
	return e.mutate(section, func(sess *session) error {
		var err error
		switch section {
		case SectionGallery:
			sess.draft.GalleryPhotos, err = moveOrKeep(sess.draft.GalleryPhotos, from, to)
		case SectionVideos:
			sess.draft.Videos, err = moveOrKeep(sess.draft.Videos, from, to)
		case SectionSocial:
			sess.draft.SocialLinks, err = moveOrKeep(sess.draft.SocialLinks, from, to)
		case SectionReleases:
			sess.draft.Releases, err = moveOrKeep(sess.draft.Releases, from, to)
		default:
			err = fmt.Errorf("%w: %s", ErrUnsupported, section)
		}
		return err
	})
}

// SetOrder applies a full ordering; ids must be a permutation of the draft.
func (e *Editor) SetOrder(section Section, ids []string) (View, error) {
	return e.mutate(section, func(sess *session) error {
		var err error
		switch section {
		case SectionGallery:
			sess.draft.GalleryPhotos, err = reorderOrKeep(sess.draft.GalleryPhotos, ids, photoKey)
		case SectionVideos:
			sess.draft.Videos, err = reorderOrKeep(sess.draft.Videos, ids, videoKey)
		case SectionSocial:
			lowered := make([]string, len(ids))
			for i, id := range ids {
				lowered[i] = strings.ToLower(id)
			}
			sess.draft.SocialLinks, err = reorderOrKeep(sess.draft.SocialLinks, lowered, socialKey)
		case SectionReleases:
			sess.draft.Releases, err = reorderOrKeep(sess.draft.Releases, ids, releaseKey)
		default:
			err = fmt.Errorf("%w: %s", ErrUnsupported, section)
		}
		return err
	})
}

// RequestDelete records a pending delete; the draft is unchanged until
// ConfirmDelete. Unknown ids fail with a delete-class not-found error.
func (e *Editor) RequestDelete(section Section, id string) (View, error) {
	return e.mutate(section, func(sess *session) error {
		if !hasItem(section, sess.draft, id) {
			if !listSection(section) {
				return fmt.Errorf("%w: %s", ErrUnsupported, section)
			}
			return fmt.Errorf("%w: %w: %s", ErrDeleteFailed, ErrItemNotFound, id)
		}
		sess.pending = &PendingDelete{Section: section, ItemID: id}
		return nil
	})
}

// ConfirmDelete applies the pending delete to the draft.
func (e *Editor) ConfirmDelete(section Section) (View, error) {
	return e.mutate(section, func(sess *session) error {
		if sess.pending == nil {
			return ErrNoPendingDelete
		}
		id := sess.pending.ItemID
		if !hasItem(section, sess.draft, id) {
			sess.pending = nil
			return fmt.Errorf("%w: %w: %s", ErrDeleteFailed, ErrItemNotFound, id)
		}
		switch section {
		case SectionGallery:
			sess.draft.GalleryPhotos = removeAt(sess.draft.GalleryPhotos, indexOf(sess.draft.GalleryPhotos, id, photoKey))
		case SectionVideos:
			sess.draft.Videos = removeAt(sess.draft.Videos, indexOf(sess.draft.Videos, id, videoKey))
		case SectionSocial:
			sess.draft.SocialLinks = removeAt(sess.draft.SocialLinks, indexOf(sess.draft.SocialLinks, strings.ToLower(id), socialKey))
		case SectionReleases:
			sess.draft.Releases = removeAt(sess.draft.Releases, indexOf(sess.draft.Releases, id, releaseKey))
		}
		sess.pending = nil
		return nil
	})
}

// CancelDelete clears the pending delete without touching the draft.
func (e *Editor) CancelDelete(section Section) (View, error) {
	return e.mutate(section, func(sess *session) error {
		sess.pending = nil
		return nil
	})
}

func listSection(section Section) bool {
	switch section {
	case SectionGallery, SectionVideos, SectionSocial, SectionReleases:
		return true
	}
	return false
}

func hasItem(section Section, draft domain.ContentSnapshot, id string) bool {
	switch section {
	case SectionGallery:
		return indexOf(draft.GalleryPhotos, id, photoKey) >= 0
	case SectionVideos:
		return indexOf(draft.Videos, id, videoKey) >= 0
	case SectionSocial:
		return indexOf(draft.SocialLinks, strings.ToLower(id), socialKey) >= 0
	case SectionReleases:
		return indexOf(draft.Releases, id, releaseKey) >= 0
	}
	return false
}

func moveOrKeep[T any](items []T, from, to int) ([]T, error) {
	out, err := moveItem(items, from, to)
	if err != nil {
		return items, err
	}
	return out, nil
}

func reorderOrKeep[T any](items []T, ids []string, key func(T) string) ([]T, error) {
	out, err := reorderByID(items, ids, key)
	if err != nil {
		return items, err
	}
	return out, nil
}

func removeAt[T any](items []T, i int) []T {
	out := make([]T, 0, len(items)-1)
	out = append(out, items[:i]...)
	return append(out, items[i+1:]...)
}

func photoKey(p domain.GalleryPhoto) string { return p.ID }
func videoKey(v domain.Video) string        { return v.ID }
func releaseKey(r domain.Release) string    { return r.ID }
func socialKey(l domain.SocialLink) string  { return strings.ToLower(l.Platform) }
