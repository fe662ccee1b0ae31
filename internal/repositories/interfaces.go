package repositories

import (
	"context"

	"github.com/croix-presskit/presskit/internal/domain"
)

// RepositoryError wraps low-level persistence failures with categorisation used by services.
type RepositoryError interface {
	error
	IsNotFound() bool
	IsConflict() bool
	IsUnavailable() bool
}

// ConfigUpsert describes a merge into the single configuration record.
type ConfigUpsert struct {
	ID    string
	Patch domain.ContentPatch
	// Seed is the base the patch is merged into when the record does not exist yet.
	Seed domain.ContentSnapshot
}

// ConfigRepository persists the content configuration record.
type ConfigRepository interface {
	// Get returns a RepositoryError with IsNotFound when the record is missing.
	Get(ctx context.Context, id string) (domain.ConfigRecord, error)
	// Upsert merges the patch transactionally, preserving created_at and stamping
	// updated_at. A merge that changes nothing leaves the stored record untouched.
	Upsert(ctx context.Context, cmd ConfigUpsert) (domain.ConfigRecord, error)
}

// AssetRepository persists uploaded asset metadata.
type AssetRepository interface {
	// Create stores the asset, assigning an id when asset.ID is empty.
	Create(ctx context.Context, asset domain.UploadedAsset) (domain.UploadedAsset, error)
	Get(ctx context.Context, id string) (domain.UploadedAsset, error)
	// List returns assets newest first. An empty category lists everything.
	List(ctx context.Context, category domain.GalleryCategory) ([]domain.UploadedAsset, error)
	Delete(ctx context.Context, id string) error
}

// IsNotFound reports whether err is a repository not-found failure.
func IsNotFound(err error) bool {
	repoErr, ok := asRepositoryError(err)
	return ok && repoErr.IsNotFound()
}

// IsUnavailable reports whether err is a repository unavailable failure.
func IsUnavailable(err error) bool {
	repoErr, ok := asRepositoryError(err)
	return ok && repoErr.IsUnavailable()
}
