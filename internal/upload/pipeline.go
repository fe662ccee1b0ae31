// Package upload validates and stores batches of gallery images and appends
// the stored assets to the gallery draft.
package upload

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"slices"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/croix-presskit/presskit/internal/admin"
	"github.com/croix-presskit/presskit/internal/domain"
	"github.com/croix-presskit/presskit/internal/services"
)

const (
	defaultMaxBytes    = int64(5 * 1024 * 1024)
	defaultMaxFiles    = 10
	defaultConcurrency = 3
	sniffLen           = 512
)

var (
	// ErrTooManyFiles rejects a batch above the configured file limit.
	ErrTooManyFiles = errors.New("upload: too many files")
	// ErrNoFiles rejects an empty batch.
	ErrNoFiles = errors.New("upload: no files")
	// ErrInvalidCategory rejects unknown gallery categories.
	ErrInvalidCategory = errors.New("upload: invalid category")
)

// Status is the per-file lifecycle.
type Status string

const (
	StatusPending   Status = "pending"
	StatusUploading Status = "uploading"
	StatusUploaded  Status = "uploaded"
	StatusFailed    Status = "failed"
)

// Reason classifies a failed file.
type Reason string

const (
	ReasonTooLarge     Reason = "too_large"
	ReasonInvalidType  Reason = "invalid_type"
	ReasonUploadFailed Reason = "upload_failed"
	ReasonOrphaned     Reason = "orphaned"
)

// File is one member of a batch. Open is called at most once.
type File struct {
	Name        string
	ContentType string
	Size        int64
	Open        func() (io.ReadCloser, error)
}

// FileResult reports the outcome for one file.
type FileResult struct {
	Index  int                   `json:"index"`
	Name   string                `json:"name"`
	Status Status                `json:"status"`
	Reason Reason                `json:"reason,omitempty"`
	Error  string                `json:"error,omitempty"`
	Asset  *domain.UploadedAsset `json:"asset,omitempty"`
}

// Batch is the result of Process. Files are in input order.
type Batch struct {
	Category domain.GalleryCategory `json:"category"`
	Files    []FileResult           `json:"files"`
	Uploaded int                    `json:"uploaded"`
	Failed   int                    `json:"failed"`
	Draft    *admin.View            `json:"draft,omitempty"`
}

// Uploader stores one asset. *services.RemoteStore satisfies it.
type Uploader interface {
	UploadAsset(ctx context.Context, cmd services.UploadAssetCommand) (domain.UploadedAsset, error)
}

// GalleryDraft receives uploaded photos. *admin.Editor satisfies it.
type GalleryDraft interface {
	Begin(section admin.Section) (admin.View, error)
	AddPhotos(photos ...domain.GalleryPhoto) (admin.View, error)
}

// Config carries the upload policy.
type Config struct {
	MaxBytes     int64
	AllowedTypes []string
	MaxFiles     int
	Concurrency  int
}

// Option customises the pipeline.
type Option func(*Pipeline)

// WithProgress registers a callback observing every status transition. It is
// called from worker goroutines.
func WithProgress(fn func(FileResult)) Option {
	return func(p *Pipeline) {
		p.progress = fn
	}
}

// WithLogger sets the pipeline logger.
func WithLogger(logger *zap.Logger) Option {
	return func(p *Pipeline) {
		if logger != nil {
			p.logger = logger.Named("upload")
		}
	}
}

// Pipeline runs upload batches.
type Pipeline struct {
	uploader Uploader
	draft    GalleryDraft
	maxBytes int64
	allowed  []string
	maxFiles int
	workers  int
	progress func(FileResult)
	logger   *zap.Logger
}

// NewPipeline builds a pipeline. draft may be nil, in which case uploads are
// stored but not added to any gallery draft.
func NewPipeline(uploader Uploader, draft GalleryDraft, cfg Config, opts ...Option) (*Pipeline, error) {
	if uploader == nil {
		return nil, errors.New("upload: uploader is required")
	}
	p := &Pipeline{
		uploader: uploader,
		draft:    draft,
		maxBytes: cfg.MaxBytes,
		maxFiles: cfg.MaxFiles,
		workers:  cfg.Concurrency,
		logger:   zap.NewNop(),
	}
	if p.maxBytes <= 0 {
		p.maxBytes = defaultMaxBytes
	}
	if p.maxFiles <= 0 {
		p.maxFiles = defaultMaxFiles
	}
	if p.workers <= 0 {
		p.workers = defaultConcurrency
	}
	for _, t := range cfg.AllowedTypes {
		if t = strings.ToLower(strings.TrimSpace(t)); t != "" {
			p.allowed = append(p.allowed, t)
		}
	}
	if len(p.allowed) == 0 {
		p.allowed = []string{"image/jpeg", "image/png", "image/webp"}
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// MaxBytes reports the per-file size limit.
func (p *Pipeline) MaxBytes() int64 { return p.maxBytes }

// MaxFiles reports the batch size limit.
func (p *Pipeline) MaxFiles() int { return p.maxFiles }

// Process validates every file, uploads the valid ones concurrently and
// appends the stored assets to the gallery draft in input order. A failed
// file never affects the others.
func (p *Pipeline) Process(ctx context.Context, rawCategory string, files []File) (Batch, error) {
	category, ok := domain.ParseGalleryCategory(rawCategory)
	if !ok {
		return Batch{}, fmt.Errorf("%w: %q", ErrInvalidCategory, rawCategory)
	}
	if len(files) == 0 {
		return Batch{}, ErrNoFiles
	}
	if len(files) > p.maxFiles {
		return Batch{}, fmt.Errorf("%w: %d files, limit %d", ErrTooManyFiles, len(files), p.maxFiles)
	}

	results := make([]FileResult, len(files))
	var mu sync.Mutex
	set := func(r FileResult) {
		mu.Lock()
		results[r.Index] = r
		mu.Unlock()
		if p.progress != nil {
			p.progress(r)
		}
	}
	for i, f := range files {
		set(FileResult{Index: i, Name: f.Name, Status: StatusPending})
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)
	for i, f := range files {
		if f.Size > p.maxBytes {
			set(failed(i, f.Name, ReasonTooLarge, fmt.Sprintf("file is %d bytes, limit %d", f.Size, p.maxBytes)))
			continue
		}
		if !p.isAllowed(f.ContentType) {
			set(failed(i, f.Name, ReasonInvalidType, fmt.Sprintf("content type %q is not allowed", f.ContentType)))
			continue
		}
		i, f := i, f
		g.Go(func() error {
			set(FileResult{Index: i, Name: f.Name, Status: StatusUploading})
			set(p.uploadOne(gctx, i, category, f))
			return nil
		})
	}
	_ = g.Wait()

	batch := Batch{Category: category, Files: results}
	photos := make([]domain.GalleryPhoto, 0, len(results))
	for _, r := range results {
		if r.Status != StatusUploaded {
			batch.Failed++
			continue
		}
		batch.Uploaded++
		photos = append(photos, domain.GalleryPhoto{
			ID:       r.Asset.ID,
			Src:      r.Asset.PublicURL,
			Alt:      r.Asset.AltText,
			Category: category,
		})
	}
	p.logger.Info("upload batch processed",
		zap.String("category", string(category)),
		zap.Int("uploaded", batch.Uploaded),
		zap.Int("failed", batch.Failed))

	if p.draft == nil || len(photos) == 0 {
		return batch, nil
	}
	if _, err := p.draft.Begin(admin.SectionGallery); err != nil {
		return batch, fmt.Errorf("upload: open gallery draft: %w", err)
	}
	view, err := p.draft.AddPhotos(photos...)
	if err != nil {
		return batch, fmt.Errorf("upload: append to gallery draft: %w", err)
	}
	batch.Draft = &view
	return batch, nil
}

func (p *Pipeline) uploadOne(ctx context.Context, index int, category domain.GalleryCategory, f File) FileResult {
	if f.Open == nil {
		return failed(index, f.Name, ReasonUploadFailed, "file has no content")
	}
	rc, err := f.Open()
	if err != nil {
		return failed(index, f.Name, ReasonUploadFailed, err.Error())
	}
	defer rc.Close()

	head := make([]byte, sniffLen)
	n, err := io.ReadFull(rc, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return failed(index, f.Name, ReasonUploadFailed, err.Error())
	}
	head = head[:n]
	sniffed := http.DetectContentType(head)
	if !p.isAllowed(sniffed) {
		return failed(index, f.Name, ReasonInvalidType, fmt.Sprintf("content looks like %q", sniffed))
	}

	declared := mediaType(f.ContentType)
	if declared == "" {
		declared = mediaType(sniffed)
	}
	asset, err := p.uploader.UploadAsset(ctx, services.UploadAssetCommand{
		FileName:    f.Name,
		ContentType: declared,
		Category:    category,
		SizeBytes:   f.Size,
		Body:        io.MultiReader(bytes.NewReader(head), rc),
	})
	if err != nil {
		reason := ReasonUploadFailed
		var orphan *services.OrphanedObjectError
		if errors.As(err, &orphan) {
			reason = ReasonOrphaned
		}
		p.logger.Warn("file upload failed", zap.String("file", f.Name), zap.String("reason", string(reason)), zap.Error(err))
		return failed(index, f.Name, reason, err.Error())
	}
	return FileResult{Index: index, Name: f.Name, Status: StatusUploaded, Asset: &asset}
}

// isAllowed treats an empty declared type as unknown; the sniffed type decides.
func (p *Pipeline) isAllowed(contentType string) bool {
	t := mediaType(contentType)
	if t == "" {
		return true
	}
	return slices.Contains(p.allowed, t)
}

func mediaType(contentType string) string {
	contentType = strings.TrimSpace(contentType)
	if contentType == "" {
		return ""
	}
	t, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.ToLower(contentType)
	}
	return t
}

func failed(index int, name string, reason Reason, msg string) FileResult {
	return FileResult{Index: index, Name: name, Status: StatusFailed, Reason: reason, Error: msg}
}
