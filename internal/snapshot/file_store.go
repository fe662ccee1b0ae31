package snapshot

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"github.com/natefinch/atomic"
	"go.uber.org/zap"

	"github.com/croix-presskit/presskit/internal/domain"
)

const lockRetryDelay = 20 * time.Millisecond

// FileStore persists the snapshot as a JSON file. Writes go through a temp
// file and rename, and an advisory lock file serialises processes sharing the
// same path.
type FileStore struct {
	path   string
	mu     sync.Mutex
	lock   *flock.Flock
	logger *zap.Logger
}

var _ Store = (*FileStore)(nil)

// FileStoreOption customises the file store.
type FileStoreOption func(*FileStore)

// WithLogger sets the logger used for parse and lock warnings.
func WithLogger(logger *zap.Logger) FileStoreOption {
	return func(s *FileStore) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewFileStore returns a store bound to path. The parent directory is created
// on first write.
func NewFileStore(path string, opts ...FileStoreOption) (*FileStore, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("snapshot: path is required")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("snapshot: resolve path: %w", err)
	}
	s := &FileStore{path: abs, lock: flock.New(abs + ".lock"), logger: zap.NewNop()}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s, nil
}

// Path returns the absolute location of the snapshot file.
func (s *FileStore) Path() string { return s.path }

func (s *FileStore) Read(ctx context.Context) (domain.ContentSnapshot, bool) {
	data, err := s.readLocked(ctx)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			s.logger.Warn("snapshot read failed", zap.String("path", s.path), zap.Error(err))
		}
		return domain.ContentSnapshot{}, false
	}
	snapshot, err := decode(data)
	if err != nil {
		s.logger.Warn("snapshot parse failed", zap.String("path", s.path), zap.Error(err))
		return domain.ContentSnapshot{}, false
	}
	return snapshot, true
}

func (s *FileStore) Write(ctx context.Context, snapshot domain.ContentSnapshot) error {
	payload, err := json.MarshalIndent(snapshot.Clone(), "", "  ")
	if err != nil {
		return fmt.Errorf("snapshot: encode: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("snapshot: create dir: %w", err)
	}
	if err := s.acquire(ctx); err != nil {
		return err
	}
	defer s.release()

	if err := atomic.WriteFile(s.path, bytes.NewReader(payload)); err != nil {
		return fmt.Errorf("snapshot: write %s: %w", s.path, err)
	}
	return nil
}

func (s *FileStore) Stat(ctx context.Context) (Info, error) {
	info := Info{Location: s.path}
	fi, err := os.Stat(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return info, nil
	}
	if err != nil {
		return info, fmt.Errorf("snapshot: stat: %w", err)
	}
	info.Exists = true
	info.SizeBytes = fi.Size()
	info.ModifiedAt = fi.ModTime().UTC()

	data, err := s.readLocked(ctx)
	if err != nil {
		return info, nil
	}
	if snapshot, err := decode(data); err == nil {
		info.Valid = true
		info.Fingerprint = snapshot.Fingerprint()
	}
	return info, nil
}

func (s *FileStore) Clear(ctx context.Context) error {
	if err := s.acquire(ctx); err != nil {
		return err
	}
	defer s.release()
	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("snapshot: clear: %w", err)
	}
	return nil
}

func (s *FileStore) readLocked(ctx context.Context) ([]byte, error) {
	if _, err := os.Stat(s.path); err != nil {
		return nil, err
	}
	if err := s.acquire(ctx); err != nil {
		return nil, err
	}
	defer s.release()
	return os.ReadFile(s.path)
}

// acquire holds the in-process mutex for as long as the file lock is held.
func (s *FileStore) acquire(ctx context.Context) error {
	s.mu.Lock()
	ok, err := s.lock.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("snapshot: lock %s: %w", s.lock.Path(), err)
	}
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("snapshot: lock %s not acquired", s.lock.Path())
	}
	return nil
}

func (s *FileStore) release() {
	defer s.mu.Unlock()
	if err := s.lock.Unlock(); err != nil {
		s.logger.Warn("snapshot unlock failed", zap.String("path", s.lock.Path()), zap.Error(err))
	}
}

func decode(data []byte) (domain.ContentSnapshot, error) {
	var snapshot domain.ContentSnapshot
	if len(bytes.TrimSpace(data)) == 0 {
		return snapshot, errors.New("empty snapshot")
	}
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return domain.ContentSnapshot{}, err
	}
	return snapshot.Normalize(), nil
}
