package firestore

import (
	"context"
	"errors"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/oklog/ulid/v2"

	"github.com/croix-presskit/presskit/internal/domain"
	pfirestore "github.com/croix-presskit/presskit/internal/platform/firestore"
	"github.com/croix-presskit/presskit/internal/repositories"
)

const (
	defaultAssetCollection = "uploaded_images"
	assetIDPrefix          = "asset_"
)

type assetDocument struct {
	StorageKey  string    `firestore:"filename"`
	URL         string    `firestore:"url"`
	Category    string    `firestore:"category"`
	AltText     string    `firestore:"alt_text"`
	ContentType string    `firestore:"content_type"`
	SizeBytes   int64     `firestore:"size_bytes"`
	CreatedAt   time.Time `firestore:"created_at"`
}

// AssetRepository persists uploaded image metadata.
type AssetRepository struct {
	docs  *pfirestore.Collection[assetDocument]
	clock func() time.Time
	newID func() string
}

// AssetRepositoryOption customises the repository behaviour.
type AssetRepositoryOption func(*AssetRepository)

// WithAssetRepositoryClock overrides the clock used by the repository.
func WithAssetRepositoryClock(clock func() time.Time) AssetRepositoryOption {
	return func(r *AssetRepository) {
		if clock != nil {
			r.clock = func() time.Time { return clock().UTC() }
		}
	}
}

// WithAssetRepositoryIDGenerator overrides the ID generator used by the repository.
func WithAssetRepositoryIDGenerator(generator func() string) AssetRepositoryOption {
	return func(r *AssetRepository) {
		if generator != nil {
			r.newID = generator
		}
	}
}

var _ repositories.AssetRepository = (*AssetRepository)(nil)

// NewAssetRepository constructs a Firestore-backed asset repository.
func NewAssetRepository(provider *pfirestore.Provider, collection string, opts ...AssetRepositoryOption) (*AssetRepository, error) {
	if provider == nil {
		return nil, errors.New("asset repository: firestore provider is required")
	}
	collection = strings.TrimSpace(collection)
	if collection == "" {
		collection = defaultAssetCollection
	}
	repo := &AssetRepository{
		docs:  pfirestore.NewCollection[assetDocument](provider, collection),
		clock: func() time.Time { return time.Now().UTC() },
		newID: func() string { return ulid.Make().String() },
	}
	for _, opt := range opts {
		if opt != nil {
			opt(repo)
		}
	}
	return repo, nil
}

// Create records the asset metadata.
func (r *AssetRepository) Create(ctx context.Context, asset domain.UploadedAsset) (domain.UploadedAsset, error) {
	if strings.TrimSpace(asset.StorageKey) == "" {
		return domain.UploadedAsset{}, errors.New("asset repository: storage key is required")
	}
	asset.ID = ensureAssetID(strings.TrimSpace(asset.ID))
	if asset.ID == assetIDPrefix {
		asset.ID = ensureAssetID(r.newID())
	}
	if asset.CreatedAt.IsZero() {
		asset.CreatedAt = r.clock()
	}
	if err := r.docs.Put(ctx, asset.ID, encodeAsset(asset)); err != nil {
		return domain.UploadedAsset{}, err
	}
	return asset, nil
}

// Get fetches one asset by id.
func (r *AssetRepository) Get(ctx context.Context, id string) (domain.UploadedAsset, error) {
	doc, err := r.docs.Get(ctx, strings.TrimSpace(id))
	if err != nil {
		return domain.UploadedAsset{}, err
	}
	return decodeAsset(doc.ID, doc.Data), nil
}

// List returns assets ordered by creation time, newest first.
func (r *AssetRepository) List(ctx context.Context, category domain.GalleryCategory) ([]domain.UploadedAsset, error) {
	records, err := r.docs.List(ctx, func(q firestore.Query) firestore.Query {
		if category != "" {
			q = q.Where("category", "==", string(category))
		}
		return q.OrderBy("created_at", firestore.Desc)
	})
	if err != nil {
		return nil, err
	}
	assets := make([]domain.UploadedAsset, 0, len(records))
	for _, rec := range records {
		assets = append(assets, decodeAsset(rec.ID, rec.Data))
	}
	return assets, nil
}

// Delete removes the metadata document.
func (r *AssetRepository) Delete(ctx context.Context, id string) error {
	return r.docs.Remove(ctx, strings.TrimSpace(id))
}

func ensureAssetID(id string) string {
	if strings.HasPrefix(id, assetIDPrefix) {
		return id
	}
	return assetIDPrefix + strings.ToLower(id)
}

func encodeAsset(asset domain.UploadedAsset) assetDocument {
	return assetDocument{
		StorageKey:  asset.StorageKey,
		URL:         asset.PublicURL,
		Category:    string(asset.Category),
		AltText:     asset.AltText,
		ContentType: asset.ContentType,
		SizeBytes:   asset.SizeBytes,
		CreatedAt:   asset.CreatedAt.UTC(),
	}
}

func decodeAsset(id string, doc assetDocument) domain.UploadedAsset {
	return domain.UploadedAsset{
		ID:          id,
		StorageKey:  doc.StorageKey,
		PublicURL:   doc.URL,
		Category:    domain.GalleryCategory(doc.Category),
		AltText:     doc.AltText,
		ContentType: doc.ContentType,
		SizeBytes:   doc.SizeBytes,
		CreatedAt:   doc.CreatedAt.UTC(),
	}
}
