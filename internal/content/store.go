// Package content holds the canonical content snapshot consumed by the public
// surface and keeps it in step with its persistence backends.
package content

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/croix-presskit/presskit/internal/domain"
	"github.com/croix-presskit/presskit/internal/notify"
	"github.com/croix-presskit/presskit/internal/services"
	"github.com/croix-presskit/presskit/internal/snapshot"
)

// State is the lifecycle position of the store.
type State string

const (
	StateUninitialized State = "uninitialized"
	StateLoading       State = "loading"
	StateReady         State = "ready"
	StateDegraded      State = "degraded"
)

// Mode selects the source of truth.
type Mode string

const (
	ModeRemote Mode = "remote"
	ModeLocal  Mode = "local"
)

// Source names where the current snapshot came from.
type Source string

const (
	SourceRemote   Source = "remote"
	SourceSnapshot Source = "snapshot"
	SourceDefaults Source = "defaults"
	SourceUpdate   Source = "update"
)

var (
	// ErrNotInitialized is returned by UpdateContent before Init.
	ErrNotInitialized = errors.New("content: store not initialized")
	// ErrEmptyPatch is returned when an update changes no field.
	ErrEmptyPatch = errors.New("content: empty patch")
)

// Remote is the part of the remote store adapter the content store reads.
type Remote interface {
	GetConfig(ctx context.Context) (domain.ConfigRecord, error)
	UpsertConfig(ctx context.Context, patch domain.ContentPatch) (domain.ConfigRecord, error)
}

// Status is a point-in-time view of the store for health and admin surfaces.
type Status struct {
	State       State     `json:"state"`
	Mode        Mode      `json:"mode"`
	Degraded    bool      `json:"degraded"`
	Source      Source    `json:"source"`
	Fingerprint string    `json:"fingerprint"`
	LoadedAt    time.Time `json:"loaded_at"`
	LastError   string    `json:"last_error,omitempty"`
}

// Options configures a Store.
type Options struct {
	Mode Mode
	// Remote is required in remote mode.
	Remote    Remote
	Snapshots snapshot.Store
	// Local receives the synchronous in-process signal. A Broadcaster is
	// created when nil.
	Local notify.Notifier
	// Remote notifiers relay the signal to other processes.
	CrossProcess notify.Notifier
	// CacheWatch signals that the snapshot file changed on disk. The store
	// reloads only when the file no longer matches what it holds.
	CacheWatch notify.Notifier
	// SeedRemote writes the defaults when the remote record does not exist.
	SeedRemote bool
	Logger     *zap.Logger
	Clock      func() time.Time
}

// Store is the dependency-injected holder of the canonical snapshot. Readers
// get copies; only UpdateContent and reloads replace the held value, always
// by swapping the whole reference.
type Store struct {
	mode       Mode
	remote     Remote
	snapshots  snapshot.Store
	local      notify.Notifier
	cross      notify.Notifier
	cacheWatch notify.Notifier
	seedRemote bool
	logger     *zap.Logger
	clock      func() time.Time

	mu          sync.RWMutex
	current     *domain.ContentSnapshot
	fingerprint string
	state       State
	degraded    bool
	source      Source
	loadedAt    time.Time
	lastErr     string

	// writeMu serializes every read-merge-swap of the held snapshot so
	// concurrent saves and reloads never replace each other's result.
	writeMu     sync.Mutex
	crossCancel func()
	watchCancel func()
}

// New builds a Store. Call Init before serving reads.
func New(opts Options) (*Store, error) {
	mode := opts.Mode
	if mode == "" {
		mode = ModeRemote
	}
	if mode != ModeRemote && mode != ModeLocal {
		return nil, fmt.Errorf("content: unknown mode %q", mode)
	}
	if mode == ModeRemote && opts.Remote == nil {
		return nil, errors.New("content: remote mode requires a remote store")
	}
	snapshots := opts.Snapshots
	if snapshots == nil {
		snapshots = snapshot.NewMemoryStore()
	}
	local := opts.Local
	if local == nil {
		local = notify.NewBroadcaster()
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}
	return &Store{
		mode:       mode,
		remote:     opts.Remote,
		snapshots:  snapshots,
		local:      local,
		cross:      opts.CrossProcess,
		cacheWatch: opts.CacheWatch,
		seedRemote: opts.SeedRemote,
		logger:     logger.Named("content"),
		clock:      func() time.Time { return clock().UTC() },
		state:      StateUninitialized,
	}, nil
}

// Init loads the first snapshot. It always ends with some snapshot held:
// remote failures fall back to the local snapshot and then to defaults.
func (s *Store) Init(ctx context.Context) error {
	s.mu.Lock()
	s.state = StateLoading
	s.mu.Unlock()

	var (
		snap     domain.ContentSnapshot
		source   Source
		degraded bool
		lastErr  string
	)

	switch s.mode {
	case ModeLocal:
		snap, source = s.readLocal(ctx)
	default:
		record, err := s.remote.GetConfig(ctx)
		switch {
		case err == nil:
			snap, source = record.Content, SourceRemote
			s.cacheLocally(ctx, snap)
		case errors.Is(err, services.ErrConfigNotFound):
			snap, source = domain.DefaultSnapshot(), SourceDefaults
			if s.seedRemote {
				s.seed(ctx)
			}
		default:
			degraded, lastErr = true, err.Error()
			snap, source = s.readLocal(ctx)
			s.logger.Warn("remote content unavailable, serving fallback",
				zap.String("source", string(source)), zap.Error(err))
		}
	}

	if err := snap.Normalize().Validate(); err != nil {
		s.logger.Warn("loaded content invalid, serving defaults", zap.String("source", string(source)), zap.Error(err))
		snap, source = domain.DefaultSnapshot(), SourceDefaults
	}

	s.writeMu.Lock()
	s.swap(snap, source, degraded, lastErr)
	s.writeMu.Unlock()

	if s.cross != nil && s.crossCancel == nil {
		s.crossCancel = s.cross.Subscribe(func() {
			if err := s.Reload(context.Background()); err != nil {
				s.logger.Warn("content reload failed", zap.Error(err))
			}
		})
	}
	if s.cacheWatch != nil && s.watchCancel == nil {
		s.watchCancel = s.cacheWatch.Subscribe(func() {
			if err := s.ReloadIfCacheChanged(context.Background()); err != nil {
				s.logger.Warn("content reload failed", zap.Error(err))
			}
		})
	}
	return nil
}

func (s *Store) readLocal(ctx context.Context) (domain.ContentSnapshot, Source) {
	if cached, ok := s.snapshots.Read(ctx); ok {
		return cached, SourceSnapshot
	}
	return domain.DefaultSnapshot(), SourceDefaults
}

func (s *Store) cacheLocally(ctx context.Context, snap domain.ContentSnapshot) {
	if err := s.snapshots.Write(ctx, snap); err != nil {
		s.logger.Warn("snapshot cache write failed", zap.Error(err))
	}
}

func (s *Store) seed(ctx context.Context) {
	if _, err := s.remote.UpsertConfig(ctx, domain.FullPatch(domain.DefaultSnapshot())); err != nil {
		s.logger.Warn("remote seed failed", zap.Error(err))
		return
	}
	s.logger.Info("seeded remote content with defaults")
}

// swap replaces the held snapshot and reports whether its content changed.
func (s *Store) swap(snap domain.ContentSnapshot, source Source, degraded bool, lastErr string) bool {
	next := snap.Normalize()
	fp := next.Fingerprint()

	s.mu.Lock()
	defer s.mu.Unlock()
	changed := fp != s.fingerprint
	s.current = &next
	s.fingerprint = fp
	s.source = source
	s.degraded = degraded
	s.lastErr = lastErr
	s.loadedAt = s.clock()
	if degraded {
		s.state = StateDegraded
	} else {
		s.state = StateReady
	}
	return changed
}

// Snapshot returns a copy of the current snapshot. Before Init it returns the
// defaults so callers always have something to render.
func (s *Store) Snapshot() domain.ContentSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return domain.DefaultSnapshot()
	}
	return s.current.Clone()
}

// Fingerprint returns the hash of the current snapshot.
func (s *Store) Fingerprint() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return domain.DefaultSnapshot().Fingerprint()
	}
	return s.fingerprint
}

// Status reports the lifecycle state.
func (s *Store) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Status{
		State:       s.state,
		Mode:        s.mode,
		Degraded:    s.degraded,
		Source:      s.source,
		Fingerprint: s.fingerprint,
		LoadedAt:    s.loadedAt,
		LastError:   s.lastErr,
	}
}

// Subscribe registers fn for change notifications and returns its cancel.
// fn runs on the goroutine that caused the change.
func (s *Store) Subscribe(fn func(domain.ContentSnapshot)) func() {
	return s.local.Subscribe(func() {
		fn(s.Snapshot())
	})
}

// UpdateContent merges patch at the top level, validates, swaps the held
// snapshot, caches it locally and notifies subscribers in this process before
// returning. It never writes to the remote store.
func (s *Store) UpdateContent(ctx context.Context, patch domain.ContentPatch) (domain.ContentSnapshot, error) {
	if patch.IsEmpty() {
		return domain.ContentSnapshot{}, ErrEmptyPatch
	}
	merged, err := s.applyPatch(ctx, patch)
	if err != nil {
		return domain.ContentSnapshot{}, err
	}

	// Subscribers may reload synchronously, so signal after writeMu is released.
	if err := s.local.Publish(ctx); err != nil {
		s.logger.Warn("local change signal failed", zap.Error(err))
	}
	if s.cross != nil {
		if err := s.cross.Publish(ctx); err != nil {
			s.logger.Warn("cross-process change signal failed", zap.Error(err))
		}
	}
	s.logger.Debug("content updated", zap.Strings("fields", patch.Fields()))
	return merged.Clone(), nil
}

func (s *Store) applyPatch(ctx context.Context, patch domain.ContentPatch) (domain.ContentSnapshot, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.RLock()
	base := s.current
	degraded := s.degraded
	lastErr := s.lastErr
	s.mu.RUnlock()
	if base == nil {
		return domain.ContentSnapshot{}, ErrNotInitialized
	}

	merged := patch.Apply(*base).Normalize()
	if err := merged.Validate(); err != nil {
		return domain.ContentSnapshot{}, err
	}
	s.swap(merged, SourceUpdate, degraded, lastErr)
	s.cacheLocally(ctx, merged)
	return merged, nil
}

// ReloadIfCacheChanged reloads unless the snapshot file already holds the
// current content, as it does right after this process saved.
func (s *Store) ReloadIfCacheChanged(ctx context.Context) error {
	if cached, ok := s.snapshots.Read(ctx); ok && cached.Normalize().Fingerprint() == s.Fingerprint() {
		return nil
	}
	return s.Reload(ctx)
}

// Reload re-derives the snapshot from its source of truth and notifies
// subscribers only when the content changed. A failed remote read in remote
// mode falls back to the local snapshot and marks the store degraded.
func (s *Store) Reload(ctx context.Context) error {
	changed, err := s.reload(ctx)
	if err != nil || !changed {
		return err
	}
	return s.local.Publish(ctx)
}

func (s *Store) reload(ctx context.Context) (bool, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	var (
		snap     domain.ContentSnapshot
		source   Source
		degraded bool
		lastErr  string
	)
	switch s.mode {
	case ModeLocal:
		cached, ok := s.snapshots.Read(ctx)
		if !ok {
			return false, nil
		}
		snap, source = cached, SourceSnapshot
	default:
		record, err := s.remote.GetConfig(ctx)
		switch {
		case err == nil:
			snap, source = record.Content, SourceRemote
		case errors.Is(err, services.ErrConfigNotFound):
			return false, nil
		default:
			cached, ok := s.snapshots.Read(ctx)
			if !ok {
				s.markDegraded(err)
				return false, err
			}
			snap, source, degraded, lastErr = cached, SourceSnapshot, true, err.Error()
		}
	}

	if err := snap.Normalize().Validate(); err != nil {
		return false, err
	}
	if !s.swap(snap, source, degraded, lastErr) {
		return false, nil
	}
	if source == SourceRemote {
		s.cacheLocally(ctx, snap)
	}
	return true, nil
}

func (s *Store) markDegraded(err error) {
	s.mu.Lock()
	s.degraded = true
	s.state = StateDegraded
	s.lastErr = err.Error()
	s.mu.Unlock()
}

// Close detaches from the cross-process notifier.
func (s *Store) Close() error {
	if s.crossCancel != nil {
		s.crossCancel()
		s.crossCancel = nil
	}
	if s.watchCancel != nil {
		s.watchCancel()
		s.watchCancel = nil
	}
	return nil
}
