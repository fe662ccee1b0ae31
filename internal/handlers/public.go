package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/croix-presskit/presskit/internal/content"
	"github.com/croix-presskit/presskit/internal/domain"
	"github.com/croix-presskit/presskit/internal/platform/textutil"
)

// ContentReader is the read side of the content store.
type ContentReader interface {
	Snapshot() domain.ContentSnapshot
	Status() content.Status
	Subscribe(fn func(domain.ContentSnapshot)) func()
}

// PublicHandlers serves the press kit to anonymous visitors. Reads never fail:
// the store always holds some snapshot.
type PublicHandlers struct {
	content ContentReader
	events  *EventHandlers
}

// NewPublicHandlers constructs the public handlers.
func NewPublicHandlers(reader ContentReader, opts ...EventOption) *PublicHandlers {
	return &PublicHandlers{
		content: reader,
		events:  NewEventHandlers(reader, opts...),
	}
}

// Routes registers the public endpoints.
func (h *PublicHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/content", h.getContent)
	r.Get("/releases", h.getReleases)
	r.Get("/events", h.events.Stream)
}

type publicContentResponse struct {
	domain.ContentSnapshot
	BioHTML     []string `json:"bio_html"`
	Fingerprint string   `json:"fingerprint"`
	Degraded    bool     `json:"degraded"`
}

func (h *PublicHandlers) getContent(w http.ResponseWriter, r *http.Request) {
	snap := h.content.Snapshot()
	etag := `"` + snap.Fingerprint() + `"`
	w.Header().Set("ETag", etag)
	w.Header().Set("Cache-Control", "no-cache")
	if etagMatches(r.Header.Get("If-None-Match"), etag) {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	bio := make([]string, 0, len(snap.Bio.Paragraphs))
	for _, p := range snap.Bio.Paragraphs {
		bio = append(bio, textutil.RenderInline(p))
	}
	writeJSONResponse(w, http.StatusOK, publicContentResponse{
		ContentSnapshot: snap,
		BioHTML:         bio,
		Fingerprint:     snap.Fingerprint(),
		Degraded:        h.content.Status().Degraded,
	})
}

type publicReleasesResponse struct {
	Own   []domain.Release `json:"own"`
	Remix []domain.Release `json:"remix"`
	VA    []domain.Release `json:"va"`
}

func (h *PublicHandlers) getReleases(w http.ResponseWriter, r *http.Request) {
	grouped := h.content.Snapshot().ReleasesByCategory()
	writeJSONResponse(w, http.StatusOK, publicReleasesResponse{
		Own:   grouped[domain.ReleaseCategoryOwn],
		Remix: grouped[domain.ReleaseCategoryRemix],
		VA:    grouped[domain.ReleaseCategoryVA],
	})
}

func etagMatches(header, etag string) bool {
	for _, candidate := range strings.Split(header, ",") {
		candidate = strings.TrimSpace(candidate)
		if candidate == "*" || strings.TrimPrefix(candidate, "W/") == etag {
			return true
		}
	}
	return false
}
