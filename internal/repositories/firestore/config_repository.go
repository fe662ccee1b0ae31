package firestore

import (
	"context"
	"errors"
	"strings"
	"time"

	"cloud.google.com/go/firestore"

	"github.com/croix-presskit/presskit/internal/domain"
	pfirestore "github.com/croix-presskit/presskit/internal/platform/firestore"
	"github.com/croix-presskit/presskit/internal/repositories"
)

const defaultConfigCollection = "presskit_config"

type configDocument struct {
	Hero          heroDocument           `firestore:"hero_data"`
	Bio           bioDocument            `firestore:"bio_data"`
	GalleryPhotos []galleryPhotoDocument `firestore:"gallery_photos"`
	Videos        []videoDocument        `firestore:"videos"`
	SocialLinks   []socialLinkDocument   `firestore:"social_links"`
	Releases      []releaseDocument      `firestore:"releases"`
	CreatedAt     time.Time              `firestore:"created_at"`
	UpdatedAt     time.Time              `firestore:"updated_at"`
}

type heroDocument struct {
	Title           string `firestore:"title"`
	Subtitle        string `firestore:"subtitle"`
	Description1    string `firestore:"description1"`
	Description2    string `firestore:"description2"`
	BackgroundImage string `firestore:"backgroundImage"`
}

type bioDocument struct {
	Title      string `firestore:"title"`
	Image      string `firestore:"image"`
	Paragraph1 string `firestore:"paragraph1"`
	Paragraph2 string `firestore:"paragraph2"`
	Paragraph3 string `firestore:"paragraph3"`
	Paragraph4 string `firestore:"paragraph4"`
}

type galleryPhotoDocument struct {
	ID       string `firestore:"id"`
	Src      string `firestore:"src"`
	Alt      string `firestore:"alt"`
	Featured bool   `firestore:"featured"`
	Category string `firestore:"category"`
}

type videoDocument struct {
	ID          string `firestore:"id"`
	Title       string `firestore:"title"`
	EmbedURL    string `firestore:"embedUrl"`
	Description string `firestore:"description,omitempty"`
	Featured    bool   `firestore:"featured,omitempty"`
}

type socialLinkDocument struct {
	Platform string `firestore:"platform"`
	URL      string `firestore:"url"`
	Icon     string `firestore:"icon,omitempty"`
}

type releaseDocument struct {
	ID         string `firestore:"id"`
	Title      string `firestore:"title"`
	CoverImage string `firestore:"coverImage"`
	Category   string `firestore:"category"`
	Label      string `firestore:"label,omitempty"`
	Link       string `firestore:"link,omitempty"`
}

// ConfigRepository stores the single content configuration record.
type ConfigRepository struct {
	provider *pfirestore.Provider
	docs     *pfirestore.Collection[configDocument]
	clock    func() time.Time
}

// ConfigRepositoryOption customises the repository.
type ConfigRepositoryOption func(*ConfigRepository)

// WithConfigRepositoryClock overrides the clock used for timestamps.
func WithConfigRepositoryClock(clock func() time.Time) ConfigRepositoryOption {
	return func(r *ConfigRepository) {
		if clock != nil {
			r.clock = func() time.Time { return clock().UTC() }
		}
	}
}

var _ repositories.ConfigRepository = (*ConfigRepository)(nil)

// NewConfigRepository constructs a Firestore-backed configuration repository.
func NewConfigRepository(provider *pfirestore.Provider, collection string, opts ...ConfigRepositoryOption) (*ConfigRepository, error) {
	if provider == nil {
		return nil, errors.New("config repository: firestore provider is required")
	}
	collection = strings.TrimSpace(collection)
	if collection == "" {
		collection = defaultConfigCollection
	}
	repo := &ConfigRepository{
		provider: provider,
		docs:     pfirestore.NewCollection[configDocument](provider, collection),
		clock:    func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		if opt != nil {
			opt(repo)
		}
	}
	return repo, nil
}

// Get loads the configuration record.
func (r *ConfigRepository) Get(ctx context.Context, id string) (domain.ConfigRecord, error) {
	doc, err := r.docs.Get(ctx, id)
	if err != nil {
		return domain.ConfigRecord{}, err
	}
	return decodeConfig(doc.ID, doc.Data), nil
}

// Upsert merges cmd.Patch into the stored record inside a transaction.
func (r *ConfigRepository) Upsert(ctx context.Context, cmd repositories.ConfigUpsert) (domain.ConfigRecord, error) {
	ref, err := r.docs.Ref(ctx, cmd.ID)
	if err != nil {
		return domain.ConfigRecord{}, err
	}

	var result domain.ConfigRecord
	err = r.provider.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		current := domain.ConfigRecord{ID: cmd.ID, Content: cmd.Seed.Clone()}
		exists := true

		snap, err := tx.Get(ref)
		switch {
		case err == nil:
			decoded, derr := r.docs.Decode(snap)
			if derr != nil {
				return derr
			}
			current = decodeConfig(snap.Ref.ID, decoded.Data)
		case repositories.IsNotFound(pfirestore.WrapError("config.get", err)):
			exists = false
		default:
			return err
		}

		next, write := planUpsert(current, exists, cmd.Patch, r.clock())
		result = next
		if !write {
			return nil
		}
		return tx.Set(ref, encodeConfig(next))
	})
	if err != nil {
		return domain.ConfigRecord{}, pfirestore.WrapError(r.docs.Name()+".upsert", err)
	}
	return result, nil
}

// planUpsert merges patch into current. When the stored document already
// holds the merged content it returns current unchanged and write=false, so
// timestamps only move on a real change.
func planUpsert(current domain.ConfigRecord, exists bool, patch domain.ContentPatch, now time.Time) (domain.ConfigRecord, bool) {
	merged := patch.Apply(current.Content)
	if exists && merged.Fingerprint() == current.Content.Fingerprint() {
		return current, false
	}
	next := domain.ConfigRecord{ID: current.ID, Content: merged, CreatedAt: current.CreatedAt, UpdatedAt: now}
	if !exists || next.CreatedAt.IsZero() {
		next.CreatedAt = now
	}
	return next, true
}

func encodeConfig(record domain.ConfigRecord) configDocument {
	s := record.Content
	doc := configDocument{
		Hero: heroDocument{
			Title:           s.Hero.Title,
			Subtitle:        s.Hero.Subtitle,
			Description1:    s.Hero.Description1,
			Description2:    s.Hero.Description2,
			BackgroundImage: s.Hero.BackgroundImage,
		},
		Bio: bioDocument{
			Title:      s.Bio.Title,
			Image:      s.Bio.Image,
			Paragraph1: s.Bio.Paragraphs[0],
			Paragraph2: s.Bio.Paragraphs[1],
			Paragraph3: s.Bio.Paragraphs[2],
			Paragraph4: s.Bio.Paragraphs[3],
		},
		GalleryPhotos: make([]galleryPhotoDocument, 0, len(s.GalleryPhotos)),
		Videos:        make([]videoDocument, 0, len(s.Videos)),
		SocialLinks:   make([]socialLinkDocument, 0, len(s.SocialLinks)),
		Releases:      make([]releaseDocument, 0, len(s.Releases)),
		CreatedAt:     record.CreatedAt,
		UpdatedAt:     record.UpdatedAt,
	}
	for _, p := range s.GalleryPhotos {
		doc.GalleryPhotos = append(doc.GalleryPhotos, galleryPhotoDocument{ID: p.ID, Src: p.Src, Alt: p.Alt, Featured: p.Featured, Category: string(p.Category)})
	}
	for _, v := range s.Videos {
		doc.Videos = append(doc.Videos, videoDocument(v))
	}
	for _, l := range s.SocialLinks {
		doc.SocialLinks = append(doc.SocialLinks, socialLinkDocument(l))
	}
	for _, rel := range s.Releases {
		doc.Releases = append(doc.Releases, releaseDocument{ID: rel.ID, Title: rel.Title, CoverImage: rel.Cover, Category: string(rel.Category), Label: rel.Label, Link: rel.Link})
	}
	return doc
}

func decodeConfig(id string, doc configDocument) domain.ConfigRecord {
	s := domain.ContentSnapshot{
		Hero: domain.Hero{
			Title:           doc.Hero.Title,
			Subtitle:        doc.Hero.Subtitle,
			Description1:    doc.Hero.Description1,
			Description2:    doc.Hero.Description2,
			BackgroundImage: doc.Hero.BackgroundImage,
		},
		Bio: domain.Bio{
			Title:      doc.Bio.Title,
			Image:      doc.Bio.Image,
			Paragraphs: [domain.BioParagraphs]string{doc.Bio.Paragraph1, doc.Bio.Paragraph2, doc.Bio.Paragraph3, doc.Bio.Paragraph4},
		},
	}
	for _, p := range doc.GalleryPhotos {
		s.GalleryPhotos = append(s.GalleryPhotos, domain.GalleryPhoto{ID: p.ID, Src: p.Src, Alt: p.Alt, Featured: p.Featured, Category: domain.GalleryCategory(p.Category)})
	}
	for _, v := range doc.Videos {
		s.Videos = append(s.Videos, domain.Video(v))
	}
	for _, l := range doc.SocialLinks {
		s.SocialLinks = append(s.SocialLinks, domain.SocialLink(l))
	}
	for _, rel := range doc.Releases {
		s.Releases = append(s.Releases, domain.Release{ID: rel.ID, Title: rel.Title, Cover: rel.CoverImage, Category: domain.ReleaseCategory(rel.Category), Label: rel.Label, Link: rel.Link})
	}
	return domain.ConfigRecord{
		ID:        id,
		Content:   s.Normalize(),
		CreatedAt: doc.CreatedAt.UTC(),
		UpdatedAt: doc.UpdatedAt.UTC(),
	}
}
