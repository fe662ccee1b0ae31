package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/croix-presskit/presskit/internal/admin"
	"github.com/croix-presskit/presskit/internal/content"
	"github.com/croix-presskit/presskit/internal/domain"
	"github.com/croix-presskit/presskit/internal/platform/auth"
	"github.com/croix-presskit/presskit/internal/platform/httpx"
	"github.com/croix-presskit/presskit/internal/platform/requestctx"
	"github.com/croix-presskit/presskit/internal/services"
	"github.com/croix-presskit/presskit/internal/snapshot"
	"github.com/croix-presskit/presskit/internal/upload"
)

const multipartMemory = 8 << 20

// UploadProcessor runs upload batches.
type UploadProcessor interface {
	Process(ctx context.Context, category string, files []upload.File) (upload.Batch, error)
	MaxBytes() int64
	MaxFiles() int
}

// AssetCatalog lists and removes stored assets.
type AssetCatalog interface {
	ListAssets(ctx context.Context, category domain.GalleryCategory) ([]domain.UploadedAsset, error)
	DeleteAsset(ctx context.Context, id string) error
}

// AdminDeps wires the admin handlers. Uploads, Assets and Snapshots are
// optional; their routes answer 503 when unset.
type AdminDeps struct {
	Credentials *auth.Credentials
	Editor      *admin.Editor
	Content     ContentStatusProvider
	Uploads     UploadProcessor
	Assets      AssetCatalog
	Snapshots   snapshot.Store
}

// AdminHandlers exposes the section editors and asset management.
type AdminHandlers struct {
	creds     *auth.Credentials
	editor    *admin.Editor
	content   ContentStatusProvider
	uploads   UploadProcessor
	assets    AssetCatalog
	snapshots snapshot.Store
}

// NewAdminHandlers constructs the admin handlers.
func NewAdminHandlers(deps AdminDeps) *AdminHandlers {
	return &AdminHandlers{
		creds:     deps.Credentials,
		editor:    deps.Editor,
		content:   deps.Content,
		uploads:   deps.Uploads,
		assets:    deps.Assets,
		snapshots: deps.Snapshots,
	}
}

// Routes registers the admin endpoints. Everything except login requires
// the admin credentials.
func (h *AdminHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Post("/login", h.login)

	r.Group(func(group chi.Router) {
		if h.creds != nil {
			group.Use(h.creds.RequireAdmin())
		}
		group.Get("/status", h.status)

		group.Route("/sections/{section}", func(s chi.Router) {
			s.Get("/", h.viewSection)
			s.Post("/edit", h.beginSection)
			s.Post("/cancel", h.cancelSection)
			s.Post("/save", h.saveSection)
			s.Put("/draft", h.putDraft)
			s.Post("/items", h.addItem)
			s.Post("/items/move", h.moveItem)
			s.Patch("/items/{itemId}", h.updateItem)
			s.Post("/items/{itemId}/delete", h.requestDelete)
			s.Put("/order", h.setOrder)
			s.Post("/delete/confirm", h.confirmDelete)
			s.Post("/delete/cancel", h.cancelDelete)
		})

		group.Post("/uploads", h.uploadFiles)
		group.Get("/assets", h.listAssets)
		group.Delete("/assets/{assetId}", h.deleteAsset)
		group.Get("/debug/snapshot", h.inspectSnapshot)
		group.Delete("/debug/snapshot", h.clearSnapshot)
	})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Email         string `json:"email"`
	Authenticated bool   `json:"authenticated"`
}

func (h *AdminHandlers) login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.creds == nil {
		httpx.WriteError(ctx, w, httpx.NewError("auth_disabled", "admin login is not configured", http.StatusServiceUnavailable))
		return
	}
	var req loginRequest
	if err := decodeJSONBody(r, &req, false); err != nil {
		writeBodyError(ctx, w, err)
		return
	}
	if err := h.creds.Verify(req.Email, req.Password); err != nil {
		requestctx.Logger(ctx).Info("admin login rejected")
		httpx.WriteError(ctx, w, httpx.NewError("invalid_credentials", "email or password is incorrect", http.StatusUnauthorized))
		return
	}
	writeJSONResponse(w, http.StatusOK, loginResponse{Email: h.creds.Email(), Authenticated: true})
}

type adminStatusResponse struct {
	Admin         string                               `json:"admin,omitempty"`
	Content       *content.Status                      `json:"content,omitempty"`
	SavePolicy    admin.SavePolicy                     `json:"save_policy"`
	AssetsEnabled bool                                 `json:"assets_enabled"`
	Sections      map[admin.Section]admin.SectionState `json:"sections"`
}

func (h *AdminHandlers) status(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	resp := adminStatusResponse{
		SavePolicy:    h.editor.Policy(),
		AssetsEnabled: h.assets != nil && h.uploads != nil,
		Sections:      make(map[admin.Section]admin.SectionState, len(admin.Sections)),
	}
	resp.Admin, _ = requestctx.Admin(ctx)
	if h.content != nil {
		st := h.content.Status()
		resp.Content = &st
	}
	for _, s := range admin.Sections {
		if view, err := h.editor.View(s); err == nil {
			resp.Sections[s] = view.State
		}
	}
	writeJSONResponse(w, http.StatusOK, resp)
}

func (h *AdminHandlers) section(w http.ResponseWriter, r *http.Request) (admin.Section, bool) {
	section, err := admin.ParseSection(chi.URLParam(r, "section"))
	if err != nil {
		writeAdminError(r.Context(), w, err)
		return "", false
	}
	return section, true
}

func (h *AdminHandlers) respondView(w http.ResponseWriter, r *http.Request, status int, view admin.View, err error) {
	if err != nil {
		writeAdminError(r.Context(), w, err)
		return
	}
	writeJSONResponse(w, status, view)
}

func (h *AdminHandlers) viewSection(w http.ResponseWriter, r *http.Request) {
	section, ok := h.section(w, r)
	if !ok {
		return
	}
	view, err := h.editor.View(section)
	h.respondView(w, r, http.StatusOK, view, err)
}

func (h *AdminHandlers) beginSection(w http.ResponseWriter, r *http.Request) {
	section, ok := h.section(w, r)
	if !ok {
		return
	}
	view, err := h.editor.Begin(section)
	h.respondView(w, r, http.StatusOK, view, err)
}

func (h *AdminHandlers) cancelSection(w http.ResponseWriter, r *http.Request) {
	section, ok := h.section(w, r)
	if !ok {
		return
	}
	if err := h.editor.Cancel(section); err != nil {
		writeAdminError(r.Context(), w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type saveRequest struct {
	LocalOnly bool `json:"local_only"`
}

func (h *AdminHandlers) saveSection(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	section, ok := h.section(w, r)
	if !ok {
		return
	}
	var req saveRequest
	if err := decodeJSONBody(r, &req, true); err != nil {
		writeBodyError(ctx, w, err)
		return
	}
	result, err := h.editor.Save(ctx, section, admin.SaveOptions{LocalOnly: req.LocalOnly})
	if err != nil {
		writeAdminError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, result)
}

func (h *AdminHandlers) putDraft(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	section, ok := h.section(w, r)
	if !ok {
		return
	}
	var (
		view admin.View
		err  error
	)
	switch section {
	case admin.SectionHero:
		var hero domain.Hero
		if err := decodeJSONBody(r, &hero, false); err != nil {
			writeBodyError(ctx, w, err)
			return
		}
		view, err = h.editor.SetHero(hero)
	case admin.SectionBio:
		var bio domain.Bio
		if err := decodeJSONBody(r, &bio, false); err != nil {
			writeBodyError(ctx, w, err)
			return
		}
		view, err = h.editor.SetBio(bio)
	default:
		err = admin.ErrUnsupported
	}
	h.respondView(w, r, http.StatusOK, view, err)
}

type addPhotosRequest struct {
	Photos []domain.GalleryPhoto `json:"photos"`
}

func (h *AdminHandlers) addItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	section, ok := h.section(w, r)
	if !ok {
		return
	}
	var (
		view admin.View
		err  error
	)
	switch section {
	case admin.SectionGallery:
		var req addPhotosRequest
		if err := decodeJSONBody(r, &req, false); err != nil {
			writeBodyError(ctx, w, err)
			return
		}
		view, err = h.editor.AddPhotos(req.Photos...)
	case admin.SectionVideos:
		var req admin.VideoInput
		if err := decodeJSONBody(r, &req, false); err != nil {
			writeBodyError(ctx, w, err)
			return
		}
		view, err = h.editor.AddVideo(req)
	case admin.SectionSocial:
		var req domain.SocialLink
		if err := decodeJSONBody(r, &req, false); err != nil {
			writeBodyError(ctx, w, err)
			return
		}
		view, err = h.editor.AddSocialLink(req)
	case admin.SectionReleases:
		var req domain.Release
		if err := decodeJSONBody(r, &req, false); err != nil {
			writeBodyError(ctx, w, err)
			return
		}
		view, err = h.editor.AddRelease(req)
	default:
		err = admin.ErrUnsupported
	}
	h.respondView(w, r, http.StatusCreated, view, err)
}

func (h *AdminHandlers) updateItem(w http.ResponseWriter, r *http.Request) {
	section, ok := h.section(w, r)
	if !ok {
		return
	}
	var req admin.ItemUpdate
	if err := decodeJSONBody(r, &req, false); err != nil {
		writeBodyError(r.Context(), w, err)
		return
	}
	view, err := h.editor.UpdateItem(section, chi.URLParam(r, "itemId"), req)
	h.respondView(w, r, http.StatusOK, view, err)
}

type moveRequest struct {
	From int `json:"from"`
	To   int `json:"to"`
}

func (h *AdminHandlers) moveItem(w http.ResponseWriter, r *http.Request) {
	section, ok := h.section(w, r)
	if !ok {
		return
	}
	var req moveRequest
	if err := decodeJSONBody(r, &req, false); err != nil {
		writeBodyError(r.Context(), w, err)
		return
	}
	view, err := h.editor.Move(section, req.From, req.To)
	h.respondView(w, r, http.StatusOK, view, err)
}

type orderRequest struct {
	IDs []string `json:"ids"`
}

func (h *AdminHandlers) setOrder(w http.ResponseWriter, r *http.Request) {
	section, ok := h.section(w, r)
	if !ok {
		return
	}
	var req orderRequest
	if err := decodeJSONBody(r, &req, false); err != nil {
		writeBodyError(r.Context(), w, err)
		return
	}
	view, err := h.editor.SetOrder(section, req.IDs)
	h.respondView(w, r, http.StatusOK, view, err)
}

func (h *AdminHandlers) requestDelete(w http.ResponseWriter, r *http.Request) {
	section, ok := h.section(w, r)
	if !ok {
		return
	}
	view, err := h.editor.RequestDelete(section, chi.URLParam(r, "itemId"))
	h.respondView(w, r, http.StatusOK, view, err)
}

func (h *AdminHandlers) confirmDelete(w http.ResponseWriter, r *http.Request) {
	section, ok := h.section(w, r)
	if !ok {
		return
	}
	view, err := h.editor.ConfirmDelete(section)
	h.respondView(w, r, http.StatusOK, view, err)
}

func (h *AdminHandlers) cancelDelete(w http.ResponseWriter, r *http.Request) {
	section, ok := h.section(w, r)
	if !ok {
		return
	}
	view, err := h.editor.CancelDelete(section)
	h.respondView(w, r, http.StatusOK, view, err)
}

func (h *AdminHandlers) uploadFiles(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.uploads == nil {
		httpx.WriteError(ctx, w, httpx.NewError("uploads_unavailable", "asset uploads are not configured", http.StatusServiceUnavailable))
		return
	}
	limit := h.uploads.MaxBytes()*int64(h.uploads.MaxFiles()) + multipartMemory
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			httpx.WriteError(ctx, w, httpx.NewError("payload_too_large", "upload batch exceeds the size limit", http.StatusRequestEntityTooLarge))
			return
		}
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "request must be multipart/form-data", http.StatusBadRequest))
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	headers := r.MultipartForm.File["files"]
	files := make([]upload.File, 0, len(headers))
	for _, fh := range headers {
		fh := fh
		files = append(files, upload.File{
			Name:        fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
			Size:        fh.Size,
			Open: func() (io.ReadCloser, error) {
				f, err := fh.Open()
				if err != nil {
					return nil, err
				}
				return f, nil
			},
		})
	}

	batch, err := h.uploads.Process(ctx, r.FormValue("category"), files)
	if err != nil {
		if batch.Files != nil {
			requestctx.Logger(ctx).Warn("uploaded assets not added to draft", zap.Int("uploaded", batch.Uploaded), zap.Error(err))
		}
		writeAdminError(ctx, w, err)
		return
	}
	status := http.StatusOK
	if batch.Uploaded == 0 {
		status = http.StatusUnprocessableEntity
	} else if batch.Failed > 0 {
		status = http.StatusMultiStatus
	}
	writeJSONResponse(w, status, batch)
}

type assetListResponse struct {
	Assets []domain.UploadedAsset `json:"assets"`
}

func (h *AdminHandlers) listAssets(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.assets == nil {
		httpx.WriteError(ctx, w, httpx.NewError("assets_unavailable", "asset storage is not configured", http.StatusServiceUnavailable))
		return
	}
	var category domain.GalleryCategory
	if raw := strings.TrimSpace(r.URL.Query().Get("category")); raw != "" {
		c, ok := domain.ParseGalleryCategory(raw)
		if !ok {
			httpx.WriteError(ctx, w, httpx.NewError("invalid_category", "unknown gallery category", http.StatusBadRequest))
			return
		}
		category = c
	}
	assets, err := h.assets.ListAssets(ctx, category)
	if err != nil {
		writeAdminError(ctx, w, err)
		return
	}
	if assets == nil {
		assets = []domain.UploadedAsset{}
	}
	writeJSONResponse(w, http.StatusOK, assetListResponse{Assets: assets})
}

func (h *AdminHandlers) deleteAsset(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.assets == nil {
		httpx.WriteError(ctx, w, httpx.NewError("assets_unavailable", "asset storage is not configured", http.StatusServiceUnavailable))
		return
	}
	if err := h.assets.DeleteAsset(ctx, chi.URLParam(r, "assetId")); err != nil {
		writeAdminError(ctx, w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type snapshotDebugResponse struct {
	Info    snapshot.Info           `json:"info"`
	Content *domain.ContentSnapshot `json:"content,omitempty"`
}

func (h *AdminHandlers) inspectSnapshot(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.snapshots == nil {
		httpx.WriteError(ctx, w, httpx.NewError("snapshot_unavailable", "local snapshot is not configured", http.StatusServiceUnavailable))
		return
	}
	info, err := h.snapshots.Stat(ctx)
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("snapshot_error", err.Error(), http.StatusInternalServerError))
		return
	}
	resp := snapshotDebugResponse{Info: info}
	if snap, ok := h.snapshots.Read(ctx); ok {
		resp.Content = &snap
	}
	writeJSONResponse(w, http.StatusOK, resp)
}

func (h *AdminHandlers) clearSnapshot(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.snapshots == nil {
		httpx.WriteError(ctx, w, httpx.NewError("snapshot_unavailable", "local snapshot is not configured", http.StatusServiceUnavailable))
		return
	}
	if err := h.snapshots.Clear(ctx); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("snapshot_error", err.Error(), http.StatusInternalServerError))
		return
	}
	requestctx.Logger(ctx).Info("local snapshot cleared")
	w.WriteHeader(http.StatusNoContent)
}

func writeBodyError(ctx context.Context, w http.ResponseWriter, err error) {
	status := http.StatusBadRequest
	if errors.Is(err, errBodyTooLarge) {
		status = http.StatusRequestEntityTooLarge
	}
	httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), status))
}

func writeAdminError(ctx context.Context, w http.ResponseWriter, err error) {
	if err == nil {
		return
	}
	code, status := "internal_error", http.StatusInternalServerError
	switch {
	case errors.Is(err, admin.ErrUnknownSection):
		code, status = "section_not_found", http.StatusNotFound
	case errors.Is(err, admin.ErrNotEditing):
		code, status = "not_editing", http.StatusConflict
	case errors.Is(err, admin.ErrSaveInProgress):
		code, status = "save_in_progress", http.StatusConflict
	case errors.Is(err, admin.ErrInvalidVideoURL):
		code, status = "invalid_video_url", http.StatusBadRequest
	case errors.Is(err, admin.ErrInvalidURL):
		code, status = "invalid_url", http.StatusBadRequest
	case errors.Is(err, admin.ErrDuplicatePlatform):
		code, status = "duplicate_platform", http.StatusConflict
	case errors.Is(err, admin.ErrItemNotFound), errors.Is(err, services.ErrAssetNotFound):
		code, status = "not_found", http.StatusNotFound
	case errors.Is(err, admin.ErrDeleteFailed):
		code, status = "delete_failed", http.StatusBadGateway
	case errors.Is(err, admin.ErrNoPendingDelete):
		code, status = "no_pending_delete", http.StatusConflict
	case errors.Is(err, admin.ErrInvalidOrder):
		code, status = "invalid_order", http.StatusBadRequest
	case errors.Is(err, admin.ErrInvalidDraft), errors.Is(err, domain.ErrInvalidContent):
		code, status = "invalid_draft", http.StatusUnprocessableEntity
	case errors.Is(err, admin.ErrUnsupported):
		code, status = "unsupported_operation", http.StatusBadRequest
	case errors.Is(err, admin.ErrSaveFailed):
		code, status = "save_failed", http.StatusBadGateway
	case errors.Is(err, upload.ErrTooManyFiles), errors.Is(err, upload.ErrNoFiles), errors.Is(err, upload.ErrInvalidCategory):
		code, status = "invalid_upload", http.StatusBadRequest
	case errors.Is(err, services.ErrRemoteUnavailable):
		code, status = "remote_unavailable", http.StatusServiceUnavailable
	}
	if status >= http.StatusInternalServerError {
		requestctx.Logger(ctx).Warn("admin request failed", zap.String("code", code), zap.Error(err))
	}
	httpx.WriteError(ctx, w, httpx.NewError(code, err.Error(), status))
}
