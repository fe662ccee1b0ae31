package observability

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestParseCloudTraceContext(t *testing.T) {
	sc, ok := parseCloudTraceContext("105445aa7843bc8bf206b12000100000/1;o=1")
	if !ok {
		t.Fatalf("expected header to parse")
	}
	if got := sc.TraceID().String(); got != "105445aa7843bc8bf206b12000100000" {
		t.Fatalf("unexpected trace id %s", got)
	}
	if got := sc.SpanID().String(); got != "0000000000000001" {
		t.Fatalf("unexpected span id %s", got)
	}
	if !sc.IsSampled() {
		t.Fatalf("expected sampled flag")
	}

	for _, header := range []string{"", "abc/1", "105445aa7843bc8bf206b12000100000/zz", "105445aa7843bc8bf206b12000100000/0"} {
		if _, ok := parseCloudTraceContext(header); ok {
			t.Fatalf("expected %q to be rejected", header)
		}
	}
}

func TestRecoveryMiddlewareWritesJSONError(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	handler := RecoveryMiddleware(zap.New(core))(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rr.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["error"] != "internal_server_error" {
		t.Fatalf("unexpected body %#v", body)
	}
	if logs.FilterMessage("panic recovered").Len() != 1 {
		t.Fatalf("expected panic to be logged")
	}
}

func TestEventsRoutesLevels(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	events := Events(zap.New(core))

	events(context.Background(), "asset.upload.orphaned", map[string]any{"key": "dj/1-a.jpg"})
	events(context.Background(), "content.init.degraded", nil)
	events(context.Background(), "content.updated", nil)

	entries := logs.All()
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
	if entries[0].Level != zap.ErrorLevel || entries[1].Level != zap.WarnLevel || entries[2].Level != zap.DebugLevel {
		t.Fatalf("unexpected levels %v %v %v", entries[0].Level, entries[1].Level, entries[2].Level)
	}
}

func TestRequestLoggerLevelsByStatus(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	stack := func(h http.HandlerFunc) http.Handler {
		return InjectLoggerMiddleware(zap.New(core))(
			RecoveryMiddleware(nil)(
				RequestLoggerMiddleware()(h)))
	}

	stack(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/missing%0A", nil))
	stack(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/v1/admin/uploads", nil))

	done := logs.FilterMessage("request completed").All()
	if len(done) != 2 {
		t.Fatalf("expected 2 access lines, got %d", len(done))
	}
	if done[0].Level != zap.WarnLevel || done[0].ContextMap()["status"] != int64(http.StatusNotFound) {
		t.Fatalf("unexpected 404 entry %+v", done[0])
	}
	if done[0].ContextMap()["path"] != "/missing" {
		t.Fatalf("expected control characters stripped, got %q", done[0].ContextMap()["path"])
	}
	if done[1].Level != zap.ErrorLevel || done[1].ContextMap()["status"] != int64(http.StatusInternalServerError) {
		t.Fatalf("unexpected panic entry %+v", done[1])
	}
}
