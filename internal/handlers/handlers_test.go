package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/croix-presskit/presskit/internal/admin"
	"github.com/croix-presskit/presskit/internal/content"
	"github.com/croix-presskit/presskit/internal/domain"
	"github.com/croix-presskit/presskit/internal/platform/auth"
	"github.com/croix-presskit/presskit/internal/repositories"
	"github.com/croix-presskit/presskit/internal/services"
	"github.com/croix-presskit/presskit/internal/snapshot"
	"github.com/croix-presskit/presskit/internal/upload"
)

const (
	testEmail    = "admin@croix.com"
	testPassword = "croix2024"
)

type stubUploads struct {
	category string
	files    []upload.File
	batch    upload.Batch
	err      error
}

func (s *stubUploads) Process(_ context.Context, category string, files []upload.File) (upload.Batch, error) {
	s.category = category
	s.files = files
	return s.batch, s.err
}

func (s *stubUploads) MaxBytes() int64 { return 1 << 20 }
func (s *stubUploads) MaxFiles() int   { return 10 }

type stubAssets struct {
	assets  []domain.UploadedAsset
	deleted map[string]bool
}

func (s *stubAssets) ListAssets(_ context.Context, category domain.GalleryCategory) ([]domain.UploadedAsset, error) {
	var out []domain.UploadedAsset
	for _, a := range s.assets {
		if category == "" || a.Category == category {
			out = append(out, a)
		}
	}
	return out, nil
}

func (s *stubAssets) DeleteAsset(_ context.Context, id string) error {
	if s.deleted[id] {
		return services.ErrAssetNotFound
	}
	for _, a := range s.assets {
		if a.ID == id {
			s.deleted[id] = true
			return nil
		}
	}
	return services.ErrAssetNotFound
}

type testServer struct {
	handler   http.Handler
	store     *content.Store
	snapshots *snapshot.MemoryStore
	uploads   *stubUploads
	assets    *stubAssets
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	snapshots := snapshot.NewMemoryStore()
	store, err := content.New(content.Options{Mode: content.ModeLocal, Snapshots: snapshots})
	if err != nil {
		t.Fatalf("content.New: %v", err)
	}
	if err := store.Init(context.Background()); err != nil {
		t.Fatalf("Init: %v", err)
	}
	editor, err := admin.NewEditor(admin.EditorDeps{Store: store})
	if err != nil {
		t.Fatalf("NewEditor: %v", err)
	}
	creds, err := auth.NewCredentials(testEmail, testPassword, "", "")
	if err != nil {
		t.Fatalf("NewCredentials: %v", err)
	}
	uploads := &stubUploads{}
	assets := &stubAssets{
		assets:  []domain.UploadedAsset{{ID: "asset_1", Category: domain.GalleryCategoryDJ, PublicURL: "https://cdn/x.png"}},
		deleted: map[string]bool{},
	}

	public := NewPublicHandlers(store, WithPingInterval(time.Second))
	adminHandlers := NewAdminHandlers(AdminDeps{
		Credentials: creds,
		Editor:      editor,
		Content:     store,
		Uploads:     uploads,
		Assets:      assets,
		Snapshots:   snapshots,
	})
	router := NewRouter(
		WithHealthHandlers(NewHealthHandlers(WithHealthContent(store))),
		WithPublicRoutes(public.Routes),
		WithAdminRoutes(adminHandlers.Routes),
	)
	return &testServer{handler: router, store: store, snapshots: snapshots, uploads: uploads, assets: assets}
}

func (s *testServer) do(t *testing.T, method, path, body string, authed bool) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if authed {
		req.SetBasicAuth(testEmail, testPassword)
	}
	rr := httptest.NewRecorder()
	s.handler.ServeHTTP(rr, req)
	return rr
}

func decodeBody[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %q: %v", rr.Body.String(), err)
	}
	return out
}

func errorCode(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	return decodeBody[map[string]any](t, rr)["error"].(string)
}

func TestRouterNotFound(t *testing.T) {
	srv := newTestServer(t)
	rr := srv.do(t, http.MethodGet, "/api/v1/nope", "", false)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
	if code := errorCode(t, rr); code != errorNotFoundCode {
		t.Fatalf("expected %s, got %s", errorNotFoundCode, code)
	}
}

func TestHealthz(t *testing.T) {
	srv := newTestServer(t)
	rr := srv.do(t, http.MethodGet, "/healthz", "", false)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if body := decodeBody[map[string]any](t, rr); body["status"] != domain.HealthStatusOK {
		t.Fatalf("unexpected body %v", body)
	}
}

type stubHealthRepo struct {
	report domain.HealthReport
}

func (s stubHealthRepo) Collect(context.Context) (domain.HealthReport, error) { return s.report, nil }

var _ repositories.HealthRepository = stubHealthRepo{}

func TestReadyzStatusCodes(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	cases := []struct {
		name   string
		check  domain.HealthCheck
		status int
	}{
		{"degraded stays ready", domain.HealthCheck{Status: domain.HealthStatusDegraded, Detail: "slow"}, http.StatusOK},
		{"error is unready", domain.HealthCheck{Status: domain.HealthStatusError, Detail: "deadline exceeded"}, http.StatusServiceUnavailable},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := NewHealthHandlers(
				WithHealthRepository(stubHealthRepo{report: domain.HealthReport{
					Status: tc.check.Status,
					Checks: map[string]domain.HealthCheck{"firestore": tc.check},
				}}),
				WithHealthClock(func() time.Time { return now }),
			)
			rr := httptest.NewRecorder()
			h.Readyz(rr, httptest.NewRequest(http.MethodGet, "/readyz", nil))
			if rr.Code != tc.status {
				t.Fatalf("expected %d, got %d", tc.status, rr.Code)
			}
			body := decodeBody[readyzResponse](t, rr)
			if len(body.Details) != 1 || body.Details[0] != "firestore: "+tc.check.Detail {
				t.Fatalf("unexpected details %v", body.Details)
			}
		})
	}
}

func TestPublicContentETag(t *testing.T) {
	srv := newTestServer(t)
	rr := srv.do(t, http.MethodGet, "/api/v1/public/content", "", false)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	etag := rr.Header().Get("ETag")
	if etag == "" {
		t.Fatalf("expected ETag header")
	}
	body := decodeBody[publicContentResponse](t, rr)
	if body.Hero.Title != "CROIX" {
		t.Fatalf("expected default hero title, got %q", body.Hero.Title)
	}
	if len(body.BioHTML) != domain.BioParagraphs || !strings.Contains(strings.Join(body.BioHTML, ""), "<strong>") {
		t.Fatalf("expected rendered bio html, got %v", body.BioHTML)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/public/content", nil)
	req.Header.Set("If-None-Match", etag)
	rr = httptest.NewRecorder()
	srv.handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusNotModified {
		t.Fatalf("expected 304, got %d", rr.Code)
	}
}

func TestPublicReleasesGrouped(t *testing.T) {
	srv := newTestServer(t)
	releases := []domain.Release{
		{ID: "r1", Title: "Hot Rhythms", Category: domain.ReleaseCategoryOwn},
		{ID: "r2", Title: "Remix", Category: domain.ReleaseCategoryRemix},
		{ID: "r3", Title: "Calentando", Category: domain.ReleaseCategoryOwn},
	}
	if _, err := srv.store.UpdateContent(context.Background(), domain.ContentPatch{Releases: &releases}); err != nil {
		t.Fatalf("UpdateContent: %v", err)
	}
	rr := srv.do(t, http.MethodGet, "/api/v1/public/releases", "", false)
	body := decodeBody[publicReleasesResponse](t, rr)
	if len(body.Own) != 2 || body.Own[0].ID != "r1" || body.Own[1].ID != "r3" {
		t.Fatalf("unexpected own releases %+v", body.Own)
	}
	if len(body.Remix) != 1 || len(body.VA) != 0 {
		t.Fatalf("unexpected grouping %+v", body)
	}
}

func TestAdminRequiresCredentials(t *testing.T) {
	srv := newTestServer(t)
	rr := srv.do(t, http.MethodGet, "/api/v1/admin/status", "", false)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rr.Code)
	}
	rr = srv.do(t, http.MethodGet, "/api/v1/admin/status", "", true)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	body := decodeBody[adminStatusResponse](t, rr)
	if body.Admin != testEmail || body.SavePolicy != admin.PolicyStrict {
		t.Fatalf("unexpected status %+v", body)
	}
}

func TestAdminLogin(t *testing.T) {
	srv := newTestServer(t)
	rr := srv.do(t, http.MethodPost, "/api/v1/admin/login", `{"email":"ADMIN@croix.com","password":"croix2024"}`, false)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	rr = srv.do(t, http.MethodPost, "/api/v1/admin/login", `{"email":"admin@croix.com","password":"wrong"}`, false)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rr.Code)
	}
}

func TestAdminHeroSaveIsVisiblePublicly(t *testing.T) {
	srv := newTestServer(t)
	before := srv.do(t, http.MethodGet, "/api/v1/public/content", "", false).Header().Get("ETag")

	if rr := srv.do(t, http.MethodPut, "/api/v1/admin/sections/hero/draft", `{"title":"NEW TITLE"}`, true); rr.Code != http.StatusConflict {
		t.Fatalf("expected 409 before edit, got %d", rr.Code)
	}
	if rr := srv.do(t, http.MethodPost, "/api/v1/admin/sections/hero/edit", "", true); rr.Code != http.StatusOK {
		t.Fatalf("edit: %d %s", rr.Code, rr.Body.String())
	}
	if rr := srv.do(t, http.MethodPut, "/api/v1/admin/sections/hero/draft", `{"title":"NEW TITLE","subtitle":"DJ"}`, true); rr.Code != http.StatusOK {
		t.Fatalf("draft: %d %s", rr.Code, rr.Body.String())
	}
	rr := srv.do(t, http.MethodPost, "/api/v1/admin/sections/hero/save", "", true)
	if rr.Code != http.StatusOK {
		t.Fatalf("save: %d %s", rr.Code, rr.Body.String())
	}

	rr = srv.do(t, http.MethodGet, "/api/v1/public/content", "", false)
	if body := decodeBody[publicContentResponse](t, rr); body.Hero.Title != "NEW TITLE" {
		t.Fatalf("expected saved title, got %q", body.Hero.Title)
	}
	if rr.Header().Get("ETag") == before {
		t.Fatalf("expected ETag to change after save")
	}
	if srv.snapshots.Writes() == 0 {
		t.Fatalf("expected the save to be cached locally")
	}
}

func TestAdminSectionErrors(t *testing.T) {
	srv := newTestServer(t)
	if rr := srv.do(t, http.MethodGet, "/api/v1/admin/sections/footer", "", true); rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown section, got %d", rr.Code)
	}
	srv.do(t, http.MethodPost, "/api/v1/admin/sections/videos/edit", "", true)
	rr := srv.do(t, http.MethodPost, "/api/v1/admin/sections/videos/items", `{"url":"not a url"}`, true)
	if rr.Code != http.StatusBadRequest || errorCode(t, rr) != "invalid_video_url" {
		t.Fatalf("expected invalid_video_url, got %d %s", rr.Code, rr.Body.String())
	}
	rr = srv.do(t, http.MethodPost, "/api/v1/admin/sections/videos/items", `{"url":"https://youtu.be/dQw4w9WgXcQ","title":"Set"}`, true)
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d %s", rr.Code, rr.Body.String())
	}
	rr = srv.do(t, http.MethodPost, "/api/v1/admin/sections/videos/items/missing/delete", "", true)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown item, got %d", rr.Code)
	}
	rr = srv.do(t, http.MethodPost, "/api/v1/admin/sections/videos/delete/confirm", "", true)
	if rr.Code != http.StatusConflict {
		t.Fatalf("expected 409 without pending delete, got %d", rr.Code)
	}
	rr = srv.do(t, http.MethodPut, "/api/v1/admin/sections/videos/order", `{"ids":["calentando-ep"]}`, true)
	if rr.Code != http.StatusBadRequest || errorCode(t, rr) != "invalid_order" {
		t.Fatalf("expected invalid_order, got %d %s", rr.Code, rr.Body.String())
	}
}

func TestAdminAssets(t *testing.T) {
	srv := newTestServer(t)
	rr := srv.do(t, http.MethodGet, "/api/v1/admin/assets?category=dj", "", true)
	if body := decodeBody[assetListResponse](t, rr); len(body.Assets) != 1 {
		t.Fatalf("expected one asset, got %+v", body)
	}
	if rr := srv.do(t, http.MethodGet, "/api/v1/admin/assets?category=backstage", "", true); rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
	if rr := srv.do(t, http.MethodDelete, "/api/v1/admin/assets/asset_1", "", true); rr.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rr.Code)
	}
	rr = srv.do(t, http.MethodDelete, "/api/v1/admin/assets/asset_1", "", true)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 on second delete, got %d", rr.Code)
	}
}

func TestAdminUploadMultipart(t *testing.T) {
	srv := newTestServer(t)
	srv.uploads.batch = upload.Batch{Category: domain.GalleryCategoryPress, Uploaded: 1, Failed: 1}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	_ = mw.WriteField("category", "press")
	for _, name := range []string{"a.png", "b.png"} {
		header := textproto.MIMEHeader{}
		header.Set("Content-Disposition", `form-data; name="files"; filename="`+name+`"`)
		header.Set("Content-Type", "image/png")
		part, err := mw.CreatePart(header)
		if err != nil {
			t.Fatalf("CreatePart: %v", err)
		}
		_, _ = part.Write([]byte("\x89PNG\r\n\x1a\n"))
	}
	_ = mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/uploads", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.SetBasicAuth(testEmail, testPassword)
	rr := httptest.NewRecorder()
	srv.handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusMultiStatus {
		t.Fatalf("expected 207 for partial success, got %d %s", rr.Code, rr.Body.String())
	}
	if srv.uploads.category != "press" || len(srv.uploads.files) != 2 {
		t.Fatalf("unexpected batch %q %d", srv.uploads.category, len(srv.uploads.files))
	}
	if srv.uploads.files[1].Name != "b.png" || srv.uploads.files[1].ContentType != "image/png" {
		t.Fatalf("unexpected file %+v", srv.uploads.files[1])
	}

	srv.uploads.err = upload.ErrTooManyFiles
	srv.uploads.batch = upload.Batch{}
	req = httptest.NewRequest(http.MethodPost, "/api/v1/admin/uploads", strings.NewReader("not multipart"))
	req.SetBasicAuth(testEmail, testPassword)
	rr = httptest.NewRecorder()
	srv.handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for non-multipart body, got %d", rr.Code)
	}
}

func TestAdminDebugSnapshot(t *testing.T) {
	srv := newTestServer(t)
	hero := domain.Hero{Title: "CACHED"}
	if _, err := srv.store.UpdateContent(context.Background(), domain.ContentPatch{Hero: &hero}); err != nil {
		t.Fatalf("UpdateContent: %v", err)
	}
	rr := srv.do(t, http.MethodGet, "/api/v1/admin/debug/snapshot", "", true)
	body := decodeBody[snapshotDebugResponse](t, rr)
	if !body.Info.Exists || body.Content == nil || body.Content.Hero.Title != "CACHED" {
		t.Fatalf("unexpected snapshot %+v", body)
	}
	if rr := srv.do(t, http.MethodDelete, "/api/v1/admin/debug/snapshot", "", true); rr.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rr.Code)
	}
	if _, ok := srv.snapshots.Read(context.Background()); ok {
		t.Fatalf("expected snapshot to be cleared")
	}
}

func TestEventsStreamPushesChanges(t *testing.T) {
	srv := newTestServer(t)
	server := httptest.NewServer(srv.handler)
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/api/v1/public/events"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var hello ChangeEvent
	if err := conn.ReadJSON(&hello); err != nil {
		t.Fatalf("read hello: %v", err)
	}
	if hello.Type != eventHello || hello.Fingerprint != srv.store.Snapshot().Fingerprint() {
		t.Fatalf("unexpected hello %+v", hello)
	}

	hero := domain.Hero{Title: "LIVE"}
	updated, err := srv.store.UpdateContent(context.Background(), domain.ContentPatch{Hero: &hero})
	if err != nil {
		t.Fatalf("UpdateContent: %v", err)
	}
	var event ChangeEvent
	if err := conn.ReadJSON(&event); err != nil {
		t.Fatalf("read event: %v", err)
	}
	if event.Type != eventContentChanged || event.Fingerprint != updated.Fingerprint() {
		t.Fatalf("unexpected event %+v", event)
	}
}

func TestWriteAdminErrorDoubleDelete(t *testing.T) {
	rr := httptest.NewRecorder()
	err := errors.Join(admin.ErrDeleteFailed, admin.ErrItemNotFound)
	writeAdminError(context.Background(), rr, err)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
	rr = httptest.NewRecorder()
	writeAdminError(context.Background(), rr, admin.ErrDeleteFailed)
	if rr.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", rr.Code)
	}
}
