package domain

import "time"

// UploadedAsset is the metadata recorded for a stored image. Content fields
// reference it by PublicURL only.
type UploadedAsset struct {
	ID          string          `json:"id"`
	StorageKey  string          `json:"storage_key"`
	PublicURL   string          `json:"public_url"`
	Category    GalleryCategory `json:"category"`
	AltText     string          `json:"alt_text"`
	ContentType string          `json:"content_type"`
	SizeBytes   int64           `json:"size_bytes"`
	CreatedAt   time.Time       `json:"created_at"`
}
