// Package admin implements the section editors behind the admin panel. Each
// section holds a working draft cloned from the canonical snapshot; the
// canonical value only changes through Save.
package admin

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/croix-presskit/presskit/internal/domain"
)

// Section names an independently edited part of the snapshot.
type Section string

const (
	SectionHero     Section = "hero"
	SectionBio      Section = "bio"
	SectionGallery  Section = "gallery"
	SectionVideos   Section = "videos"
	SectionSocial   Section = "social"
	SectionReleases Section = "releases"
)

// Sections lists every editable section.
var Sections = []Section{SectionHero, SectionBio, SectionGallery, SectionVideos, SectionSocial, SectionReleases}

// ParseSection validates a section name.
func ParseSection(raw string) (Section, error) {
	s := Section(strings.ToLower(strings.TrimSpace(raw)))
	for _, known := range Sections {
		if s == known {
			return s, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownSection, raw)
}

// SectionState is the editing lifecycle of one section.
type SectionState string

const (
	StateViewing SectionState = "viewing"
	StateEditing SectionState = "editing"
	StateSaving  SectionState = "saving"
)

// SavePolicy decides what happens to the local content when the remote save fails.
type SavePolicy string

const (
	// PolicyStrict keeps the draft and leaves the canonical content untouched.
	PolicyStrict SavePolicy = "strict"
	// PolicyOfflineFirst applies the draft locally and reports the remote failure.
	PolicyOfflineFirst SavePolicy = "offline-first"
)

// ContentStore is the canonical snapshot holder the editor commits into.
type ContentStore interface {
	Snapshot() domain.ContentSnapshot
	UpdateContent(ctx context.Context, patch domain.ContentPatch) (domain.ContentSnapshot, error)
}

// Remote persists saved sections. It is nil in local mode.
type Remote interface {
	UpsertConfig(ctx context.Context, patch domain.ContentPatch) (domain.ConfigRecord, error)
}

// PendingDelete is a delete request awaiting confirmation.
type PendingDelete struct {
	Section Section `json:"section"`
	ItemID  string  `json:"item_id"`
}

// View is a copy of a section's editing state.
type View struct {
	Section       Section                `json:"section"`
	State         SectionState           `json:"state"`
	Draft         domain.ContentSnapshot `json:"draft"`
	PendingDelete *PendingDelete         `json:"pending_delete,omitempty"`
	NewSocial     *domain.SocialLink     `json:"new_social,omitempty"`
	LastError     string                 `json:"last_error,omitempty"`
}

// SaveOptions tunes a single save.
type SaveOptions struct {
	// LocalOnly skips the remote store, for use while it is known to be down.
	LocalOnly bool
}

// SaveResult reports where a save landed.
type SaveResult struct {
	Content     domain.ContentSnapshot `json:"content"`
	Remote      bool                   `json:"remote"`
	RemoteError string                 `json:"remote_error,omitempty"`
}

// EditorDeps wires the editor.
type EditorDeps struct {
	Store  ContentStore
	Remote Remote
	Policy SavePolicy
	Logger *zap.Logger
	NewID  func() string
}

type session struct {
	state     SectionState
	draft     domain.ContentSnapshot
	pending   *PendingDelete
	newSocial *domain.SocialLink
	lastErr   string
}

// Editor holds one working draft per section.
type Editor struct {
	store  ContentStore
	remote Remote
	policy SavePolicy
	logger *zap.Logger
	newID  func() string

	mu       sync.Mutex
	sessions map[Section]*session
}

// NewEditor constructs an editor over the content store.
func NewEditor(deps EditorDeps) (*Editor, error) {
	if deps.Store == nil {
		return nil, errors.New("admin: content store is required")
	}
	policy := deps.Policy
	switch policy {
	case "":
		policy = PolicyStrict
	case PolicyStrict, PolicyOfflineFirst:
	default:
		return nil, fmt.Errorf("admin: unknown save policy %q", policy)
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	newID := deps.NewID
	if newID == nil {
		newID = uuid.NewString
	}
	e := &Editor{
		store:    deps.Store,
		remote:   deps.Remote,
		policy:   policy,
		logger:   logger.Named("admin"),
		newID:    newID,
		sessions: make(map[Section]*session, len(Sections)),
	}
	for _, s := range Sections {
		e.sessions[s] = &session{state: StateViewing}
	}
	return e, nil
}

// Policy reports the configured save policy.
func (e *Editor) Policy() SavePolicy { return e.policy }

// View returns the section state. While viewing, the draft is the current
// canonical content.
func (e *Editor) View(section Section) (View, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	sess, err := e.session(section)
	if err != nil {
		return View{}, err
	}
	return e.viewLocked(section, sess), nil
}

func (e *Editor) viewLocked(section Section, sess *session) View {
	v := View{Section: section, State: sess.state, LastError: sess.lastErr}
	if sess.state == StateViewing {
		v.Draft = e.store.Snapshot()
	} else {
		v.Draft = sess.draft.Clone()
	}
	if sess.pending != nil {
		p := *sess.pending
		v.PendingDelete = &p
	}
	if sess.newSocial != nil {
		n := *sess.newSocial
		v.NewSocial = &n
	}
	return v
}

// Begin enters Editing by cloning the canonical snapshot. Beginning a section
// that is already being edited keeps its draft.
func (e *Editor) Begin(section Section) (View, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	sess, err := e.session(section)
	if err != nil {
		return View{}, err
	}
	switch sess.state {
	case StateSaving:
		return View{}, ErrSaveInProgress
	case StateViewing:
		sess.state = StateEditing
		sess.draft = e.store.Snapshot()
		sess.pending = nil
		sess.newSocial = nil
		sess.lastErr = ""
	}
	return e.viewLocked(section, sess), nil
}

// Cancel discards the draft and returns to Viewing.
func (e *Editor) Cancel(section Section) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	sess, err := e.session(section)
	if err != nil {
		return err
	}
	if sess.state == StateSaving {
		return ErrSaveInProgress
	}
	*sess = session{state: StateViewing}
	return nil
}

// mutate runs fn against the draft of a section in Editing.
func (e *Editor) mutate(section Section, fn func(sess *session) error) (View, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	sess, err := e.session(section)
	if err != nil {
		return View{}, err
	}
	switch sess.state {
	case StateSaving:
		return View{}, ErrSaveInProgress
	case StateViewing:
		return View{}, ErrNotEditing
	}
	if err := fn(sess); err != nil {
		return View{}, err
	}
	return e.viewLocked(section, sess), nil
}

func (e *Editor) session(section Section) (*session, error) {
	sess, ok := e.sessions[section]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownSection, section)
	}
	return sess, nil
}

// Save validates the draft, persists it remotely and then commits it to the
// content store. On a strict remote failure the draft stays in Editing and
// the content store is not touched.
func (e *Editor) Save(ctx context.Context, section Section, opts SaveOptions) (SaveResult, error) {
	e.mu.Lock()
	sess, err := e.session(section)
	if err != nil {
		e.mu.Unlock()
		return SaveResult{}, err
	}
	switch sess.state {
	case StateSaving:
		e.mu.Unlock()
		return SaveResult{}, ErrSaveInProgress
	case StateViewing:
		e.mu.Unlock()
		return SaveResult{}, ErrNotEditing
	}
	patch := patchFor(section, sess.draft)
	merged := patch.Apply(e.store.Snapshot()).Normalize()
	if verr := merged.Validate(); verr != nil {
		sess.lastErr = verr.Error()
		e.mu.Unlock()
		return SaveResult{}, fmt.Errorf("%w: %w", ErrInvalidDraft, verr)
	}
	sess.state = StateSaving
	sess.lastErr = ""
	e.mu.Unlock()

	result := SaveResult{}
	if e.remote != nil && !opts.LocalOnly {
		if _, rerr := e.remote.UpsertConfig(ctx, patch); rerr != nil {
			e.logger.Warn("remote save failed", zap.String("section", string(section)), zap.String("policy", string(e.policy)), zap.Error(rerr))
			if e.policy != PolicyOfflineFirst {
				e.fail(section, rerr)
				return SaveResult{}, fmt.Errorf("%w: %w", ErrSaveFailed, rerr)
			}
			result.RemoteError = rerr.Error()
		} else {
			result.Remote = true
		}
	}

	updated, uerr := e.store.UpdateContent(ctx, patch)
	if uerr != nil {
		e.fail(section, uerr)
		return SaveResult{}, fmt.Errorf("%w: %w", ErrSaveFailed, uerr)
	}
	result.Content = updated

	e.mu.Lock()
	*sess = session{state: StateViewing}
	e.mu.Unlock()

	e.logger.Info("section saved",
		zap.String("section", string(section)),
		zap.Bool("remote", result.Remote),
		zap.Bool("local_only", opts.LocalOnly))
	return result, nil
}

func (e *Editor) fail(section Section, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	sess := e.sessions[section]
	sess.state = StateEditing
	sess.lastErr = err.Error()
}

func patchFor(section Section, draft domain.ContentSnapshot) domain.ContentPatch {
	d := draft.Clone()
	switch section {
	case SectionHero:
		return domain.ContentPatch{Hero: &d.Hero}
	case SectionBio:
		return domain.ContentPatch{Bio: &d.Bio}
	case SectionGallery:
		return domain.ContentPatch{GalleryPhotos: &d.GalleryPhotos}
	case SectionVideos:
		return domain.ContentPatch{Videos: &d.Videos}
	case SectionSocial:
		return domain.ContentPatch{SocialLinks: &d.SocialLinks}
	case SectionReleases:
		return domain.ContentPatch{Releases: &d.Releases}
	}
	return domain.ContentPatch{}
}
