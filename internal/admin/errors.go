package admin

import (
	"errors"

	"github.com/croix-presskit/presskit/internal/services"
)

var (
	// ErrInvalidVideoURL means no recognised video id could be extracted.
	ErrInvalidVideoURL = errors.New("admin: invalid video url")
	// ErrInvalidURL means a social link is not a well-formed absolute URL.
	ErrInvalidURL = errors.New("admin: invalid url")
	// ErrSaveFailed wraps remote or local persistence failures during Save.
	ErrSaveFailed = errors.New("admin: save failed")
	// ErrSaveInProgress rejects a second save of a section already saving.
	ErrSaveInProgress = errors.New("admin: save in progress")
	// ErrNotEditing rejects draft mutations outside the Editing state.
	ErrNotEditing = errors.New("admin: section is not being edited")
	// ErrUnknownSection rejects section names the editor does not know.
	ErrUnknownSection = errors.New("admin: unknown section")
	// ErrUnsupported rejects list operations on sections without items.
	ErrUnsupported = errors.New("admin: operation not supported for section")
	// ErrItemNotFound means the draft has no item with the given id.
	ErrItemNotFound = errors.New("admin: item not found")
	// ErrDeleteFailed is the delete failure class shared with the remote store.
	ErrDeleteFailed = services.ErrDeleteFailed
	// ErrNoPendingDelete means ConfirmDelete was called without a request.
	ErrNoPendingDelete = errors.New("admin: no pending delete")
	// ErrInvalidOrder means a new order is not a permutation of the draft.
	ErrInvalidOrder = errors.New("admin: invalid order")
	// ErrInvalidDraft wraps validation failures of the merged draft.
	ErrInvalidDraft = errors.New("admin: invalid draft")
	// ErrDuplicatePlatform rejects a second link for the same platform.
	ErrDuplicatePlatform = errors.New("admin: duplicate platform")
)
