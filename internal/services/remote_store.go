package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/croix-presskit/presskit/internal/domain"
	pstorage "github.com/croix-presskit/presskit/internal/platform/storage"
	"github.com/croix-presskit/presskit/internal/repositories"
)

const (
	defaultConfigID      = "main"
	defaultRemoteTimeout = 10 * time.Second
	defaultAssetCacheTTL = 30 * time.Second

	remoteEventUpserted      = "remote.config.upserted"
	remoteEventUploadStored  = "asset.upload.stored"
	remoteEventUploadFailed  = "asset.upload.failed"
	remoteEventUploadOrphan  = "asset.upload.orphaned"
	remoteEventDeleteFailed  = "asset.delete.failed"
	remoteEventDeleteDone    = "asset.delete.completed"
	remoteEventListCacheMiss = "asset.list.cache_miss"
)

var (
	// ErrRemoteUnavailable covers transport, auth and any other backend failure
	// that is not a missing record.
	ErrRemoteUnavailable = errors.New("remote store: unavailable")
	// ErrConfigNotFound means no configuration record exists yet.
	ErrConfigNotFound = errors.New("remote store: config not found")
	// ErrUploadFailed wraps failures storing bytes or metadata.
	ErrUploadFailed = errors.New("remote store: upload failed")
	// ErrDeleteFailed wraps failures removing an asset.
	ErrDeleteFailed = errors.New("remote store: delete failed")
	// ErrAssetNotFound is a DeleteFailed-class error for unknown asset ids.
	ErrAssetNotFound = fmt.Errorf("%w: asset not found", ErrDeleteFailed)
	// ErrInvalidUpload indicates the upload command is incomplete.
	ErrInvalidUpload = errors.New("remote store: invalid upload")
)

// OrphanedObjectError reports stored bytes whose metadata could not be
// recorded and whose rollback delete also failed.
type OrphanedObjectError struct {
	Key string
	Err error
}

func (e *OrphanedObjectError) Error() string {
	return fmt.Sprintf("remote store: orphaned object %s: %v", e.Key, e.Err)
}

func (e *OrphanedObjectError) Unwrap() []error { return []error{ErrUploadFailed, e.Err} }

// ObjectStore stores asset bytes. *storage.Client satisfies it.
type ObjectStore interface {
	Put(ctx context.Context, key, contentType string, body io.Reader) error
	Delete(ctx context.Context, key string) error
	PublicURL(key string) string
}

// UploadAssetCommand carries one file to store.
type UploadAssetCommand struct {
	FileName    string
	ContentType string
	Category    domain.GalleryCategory
	AltText     string
	SizeBytes   int64
	Body        io.Reader
}

// RemoteStoreDeps wires dependencies for the remote store adapter.
type RemoteStoreDeps struct {
	Configs  repositories.ConfigRepository
	Assets   repositories.AssetRepository
	Objects  ObjectStore
	ConfigID string
	Timeout  time.Duration
	CacheTTL time.Duration
	Clock    func() time.Time
	Logger   func(ctx context.Context, event string, fields map[string]any)
}

// RemoteStore is the adapter over the hosted database and object storage.
type RemoteStore struct {
	configs  repositories.ConfigRepository
	assets   repositories.AssetRepository
	objects  ObjectStore
	configID string
	timeout  time.Duration
	cache    *cache.Cache
	clock    func() time.Time
	logger   func(context.Context, string, map[string]any)
}

// NewRemoteStore constructs the adapter. Assets and Objects may be nil when
// only the configuration record is needed.
func NewRemoteStore(deps RemoteStoreDeps) (*RemoteStore, error) {
	if deps.Configs == nil {
		return nil, errors.New("remote store: config repository is required")
	}
	if (deps.Assets == nil) != (deps.Objects == nil) {
		return nil, errors.New("remote store: asset repository and object store must be provided together")
	}

	configID := strings.TrimSpace(deps.ConfigID)
	if configID == "" {
		configID = defaultConfigID
	}
	timeout := deps.Timeout
	if timeout <= 0 {
		timeout = defaultRemoteTimeout
	}
	ttl := deps.CacheTTL
	if ttl <= 0 {
		ttl = defaultAssetCacheTTL
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	return &RemoteStore{
		configs:  deps.Configs,
		assets:   deps.Assets,
		objects:  deps.Objects,
		configID: configID,
		timeout:  timeout,
		cache:    cache.New(ttl, 2*ttl),
		clock:    func() time.Time { return clock().UTC() },
		logger:   logger,
	}, nil
}

// GetConfig fetches the configuration record.
func (s *RemoteStore) GetConfig(ctx context.Context) (domain.ConfigRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	record, err := s.configs.Get(ctx, s.configID)
	if err != nil {
		if repositories.IsNotFound(err) {
			return domain.ConfigRecord{}, ErrConfigNotFound
		}
		return domain.ConfigRecord{}, fmt.Errorf("%w: %v", ErrRemoteUnavailable, err)
	}
	return record, nil
}

// UpsertConfig merges patch into the record. Missing records are created from
// the default snapshot.
func (s *RemoteStore) UpsertConfig(ctx context.Context, patch domain.ContentPatch) (domain.ConfigRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	record, err := s.configs.Upsert(ctx, repositories.ConfigUpsert{
		ID:    s.configID,
		Patch: patch,
		Seed:  domain.DefaultSnapshot(),
	})
	if err != nil {
		return domain.ConfigRecord{}, fmt.Errorf("%w: %v", ErrRemoteUnavailable, err)
	}
	s.logger(ctx, remoteEventUpserted, map[string]any{
		"fields":    patch.Fields(),
		"updatedAt": record.UpdatedAt,
	})
	return record, nil
}

// UploadAsset stores the bytes then the metadata. When the metadata write
// fails the object is deleted again; if that delete fails too the caller gets
// an *OrphanedObjectError naming the key.
func (s *RemoteStore) UploadAsset(ctx context.Context, cmd UploadAssetCommand) (domain.UploadedAsset, error) {
	if s.assets == nil {
		return domain.UploadedAsset{}, fmt.Errorf("%w: asset storage is not configured", ErrUploadFailed)
	}
	if cmd.Body == nil {
		return domain.UploadedAsset{}, fmt.Errorf("%w: body is required", ErrInvalidUpload)
	}
	category, ok := domain.ParseGalleryCategory(string(cmd.Category))
	if !ok {
		return domain.UploadedAsset{}, fmt.Errorf("%w: unknown category %q", ErrInvalidUpload, cmd.Category)
	}

	now := s.clock()
	key, err := pstorage.BuildObjectKey(string(category), cmd.FileName, now)
	if err != nil {
		return domain.UploadedAsset{}, fmt.Errorf("%w: %v", ErrInvalidUpload, err)
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if err := s.objects.Put(ctx, key, cmd.ContentType, cmd.Body); err != nil {
		s.logger(ctx, remoteEventUploadFailed, map[string]any{"key": key, "stage": "object", "error": err.Error()})
		return domain.UploadedAsset{}, fmt.Errorf("%w: %v", ErrUploadFailed, err)
	}

	alt := strings.TrimSpace(cmd.AltText)
	if alt == "" {
		alt = strings.TrimSuffix(path.Base(cmd.FileName), path.Ext(cmd.FileName))
	}

	asset, err := s.assets.Create(ctx, domain.UploadedAsset{
		StorageKey:  key,
		PublicURL:   s.objects.PublicURL(key),
		Category:    category,
		AltText:     alt,
		ContentType: cmd.ContentType,
		SizeBytes:   cmd.SizeBytes,
		CreatedAt:   now,
	})
	if err != nil {
		if rbErr := s.objects.Delete(context.WithoutCancel(ctx), key); rbErr != nil {
			s.logger(ctx, remoteEventUploadOrphan, map[string]any{"key": key, "error": err.Error(), "rollbackError": rbErr.Error()})
			return domain.UploadedAsset{}, &OrphanedObjectError{Key: key, Err: err}
		}
		s.logger(ctx, remoteEventUploadFailed, map[string]any{"key": key, "stage": "metadata", "error": err.Error()})
		return domain.UploadedAsset{}, fmt.Errorf("%w: %v", ErrUploadFailed, err)
	}

	s.cache.Flush()
	s.logger(ctx, remoteEventUploadStored, map[string]any{"assetId": asset.ID, "key": key, "size": cmd.SizeBytes})
	return asset, nil
}

// ListAssets returns assets newest first, optionally filtered by category.
func (s *RemoteStore) ListAssets(ctx context.Context, category domain.GalleryCategory) ([]domain.UploadedAsset, error) {
	if s.assets == nil {
		return []domain.UploadedAsset{}, nil
	}
	if category != "" {
		parsed, ok := domain.ParseGalleryCategory(string(category))
		if !ok {
			return nil, fmt.Errorf("%w: unknown category %q", ErrInvalidUpload, category)
		}
		category = parsed
	}

	cacheKey := "assets:" + string(category)
	if cached, ok := s.cache.Get(cacheKey); ok {
		return append([]domain.UploadedAsset(nil), cached.([]domain.UploadedAsset)...), nil
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	s.logger(ctx, remoteEventListCacheMiss, map[string]any{"category": string(category)})
	assets, err := s.assets.List(ctx, category)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRemoteUnavailable, err)
	}
	s.cache.SetDefault(cacheKey, assets)
	return append([]domain.UploadedAsset(nil), assets...), nil
}

// DeleteAsset removes the bytes and then the metadata. Metadata is kept when
// the bytes cannot be removed.
func (s *RemoteStore) DeleteAsset(ctx context.Context, id string) error {
	if s.assets == nil {
		return fmt.Errorf("%w: asset storage is not configured", ErrDeleteFailed)
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return ErrAssetNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	asset, err := s.assets.Get(ctx, id)
	if err != nil {
		if repositories.IsNotFound(err) {
			return ErrAssetNotFound
		}
		return fmt.Errorf("%w: %w: %v", ErrDeleteFailed, ErrRemoteUnavailable, err)
	}

	if err := s.objects.Delete(ctx, asset.StorageKey); err != nil {
		s.logger(ctx, remoteEventDeleteFailed, map[string]any{"assetId": id, "stage": "object", "error": err.Error()})
		return fmt.Errorf("%w: %v", ErrDeleteFailed, err)
	}
	if err := s.assets.Delete(ctx, id); err != nil {
		s.logger(ctx, remoteEventDeleteFailed, map[string]any{"assetId": id, "stage": "metadata", "error": err.Error()})
		return fmt.Errorf("%w: %v", ErrDeleteFailed, err)
	}

	s.cache.Flush()
	s.logger(ctx, remoteEventDeleteDone, map[string]any{"assetId": id, "key": asset.StorageKey})
	return nil
}

// AssetsEnabled reports whether object storage is wired.
func (s *RemoteStore) AssetsEnabled() bool { return s.assets != nil }
