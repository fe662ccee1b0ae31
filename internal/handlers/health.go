package handlers

import (
	"context"
	"net/http"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/croix-presskit/presskit/internal/content"
	"github.com/croix-presskit/presskit/internal/domain"
	"github.com/croix-presskit/presskit/internal/platform/requestctx"
	"github.com/croix-presskit/presskit/internal/repositories"
)

// BuildInfo describes the running binary.
type BuildInfo struct {
	Version     string
	CommitSHA   string
	Environment string
	StartedAt   time.Time
}

// ContentStatusProvider reports the content store state.
type ContentStatusProvider interface {
	Status() content.Status
}

// HealthHandlers serves liveness and readiness probes.
type HealthHandlers struct {
	build   BuildInfo
	deps    repositories.HealthRepository
	content ContentStatusProvider
	now     func() time.Time
}

// HealthOption customises the health handlers.
type HealthOption func(*HealthHandlers)

// WithHealthBuildInfo sets the version metadata echoed by /healthz.
func WithHealthBuildInfo(info BuildInfo) HealthOption {
	return func(h *HealthHandlers) {
		h.build = info
	}
}

// WithHealthRepository sets the dependency probes used by /readyz.
func WithHealthRepository(repo repositories.HealthRepository) HealthOption {
	return func(h *HealthHandlers) {
		h.deps = repo
	}
}

// WithHealthContent adds the content store state to /readyz.
func WithHealthContent(provider ContentStatusProvider) HealthOption {
	return func(h *HealthHandlers) {
		h.content = provider
	}
}

// WithHealthClock overrides the clock, for tests.
func WithHealthClock(clock func() time.Time) HealthOption {
	return func(h *HealthHandlers) {
		if clock != nil {
			h.now = clock
		}
	}
}

// NewHealthHandlers builds the probe handlers.
func NewHealthHandlers(opts ...HealthOption) *HealthHandlers {
	h := &HealthHandlers{now: time.Now}
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}
	if h.build.StartedAt.IsZero() {
		h.build.StartedAt = h.now()
	}
	return h
}

type healthzResponse struct {
	Status      string `json:"status"`
	Version     string `json:"version,omitempty"`
	CommitSHA   string `json:"commitSha,omitempty"`
	Environment string `json:"environment,omitempty"`
	Uptime      string `json:"uptime"`
	Timestamp   string `json:"timestamp"`
}

// Healthz reports liveness only.
func (h *HealthHandlers) Healthz(w http.ResponseWriter, r *http.Request) {
	now := h.now().UTC()
	writeJSONResponse(w, http.StatusOK, healthzResponse{
		Status:      domain.HealthStatusOK,
		Version:     h.build.Version,
		CommitSHA:   h.build.CommitSHA,
		Environment: h.build.Environment,
		Uptime:      now.Sub(h.build.StartedAt).Round(time.Second).String(),
		Timestamp:   now.Format(time.RFC3339),
	})
}

type readyzResponse struct {
	Status      string                        `json:"status"`
	Content     *content.Status               `json:"content,omitempty"`
	Checks      map[string]domain.HealthCheck `json:"checks"`
	Details     []string                      `json:"details,omitempty"`
	GeneratedAt string                        `json:"generatedAt"`
}

// Readyz aggregates dependency probes. A degraded content store still serves
// content, so only error-level checks make the instance unready.
func (h *HealthHandlers) Readyz(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	report := h.collect(ctx)

	resp := readyzResponse{
		Status:      report.Status,
		Checks:      report.Checks,
		GeneratedAt: report.GeneratedAt.UTC().Format(time.RFC3339),
	}
	if h.content != nil {
		status := h.content.Status()
		resp.Content = &status
	}
	names := make([]string, 0, len(report.Checks))
	for name := range report.Checks {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if check := report.Checks[name]; check.Status != domain.HealthStatusOK {
			resp.Details = append(resp.Details, name+": "+check.Detail)
		}
	}

	code := http.StatusOK
	if report.Status == domain.HealthStatusError {
		code = http.StatusServiceUnavailable
	}
	writeJSONResponse(w, code, resp)
}

func (h *HealthHandlers) collect(ctx context.Context) domain.HealthReport {
	report := domain.HealthReport{Status: domain.HealthStatusOK, Checks: map[string]domain.HealthCheck{}}
	if h.deps != nil {
		collected, err := h.deps.Collect(ctx)
		if err != nil {
			requestctx.Logger(ctx).Warn("readiness collection failed", zap.Error(err))
			report.Status = domain.HealthStatusError
			report.Checks["dependencies"] = domain.HealthCheck{Status: domain.HealthStatusError, Detail: err.Error(), CheckedAt: h.now()}
		} else {
			report = collected
			if report.Checks == nil {
				report.Checks = map[string]domain.HealthCheck{}
			}
		}
	}
	if h.content != nil {
		status := h.content.Status()
		check := domain.HealthCheck{Status: domain.HealthStatusOK, CheckedAt: h.now()}
		switch status.State {
		case content.StateReady:
		case content.StateDegraded:
			check.Status = domain.HealthStatusDegraded
			check.Detail = status.LastError
		default:
			check.Status = domain.HealthStatusError
			check.Detail = "content store is " + string(status.State)
		}
		report.Checks["content"] = check
		report.Status = worst(report.Status, check.Status)
	}
	if report.GeneratedAt.IsZero() {
		report.GeneratedAt = h.now()
	}
	return report
}

func worst(a, b string) string {
	rank := map[string]int{domain.HealthStatusOK: 0, domain.HealthStatusDegraded: 1, domain.HealthStatusError: 2}
	if rank[b] > rank[a] {
		return b
	}
	return a
}
