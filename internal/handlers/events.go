package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/croix-presskit/presskit/internal/domain"
	"github.com/croix-presskit/presskit/internal/platform/requestctx"
)

const (
	eventContentChanged = "content.changed"
	eventHello          = "hello"

	defaultPingInterval = 30 * time.Second
	writeWait           = 10 * time.Second
)

// ChangeEvent is pushed to browsers when the canonical content changes.
type ChangeEvent struct {
	Type        string `json:"type"`
	Fingerprint string `json:"fingerprint"`
}

// EventHandlers streams change signals to open browser tabs over websocket.
type EventHandlers struct {
	content  ContentReader
	upgrader websocket.Upgrader
	ping     time.Duration
}

// EventOption customises the event stream.
type EventOption func(*EventHandlers)

// WithAllowedOrigins restricts websocket upgrades to the given origins. With
// no origins configured every origin is accepted.
func WithAllowedOrigins(origins ...string) EventOption {
	return func(h *EventHandlers) {
		if len(origins) == 0 {
			return
		}
		allowed := make(map[string]struct{}, len(origins))
		for _, o := range origins {
			allowed[o] = struct{}{}
		}
		h.upgrader.CheckOrigin = func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}
			_, ok := allowed[origin]
			return ok
		}
	}
}

// WithPingInterval overrides the keepalive interval.
func WithPingInterval(d time.Duration) EventOption {
	return func(h *EventHandlers) {
		if d > 0 {
			h.ping = d
		}
	}
}

// NewEventHandlers constructs the websocket stream.
func NewEventHandlers(reader ContentReader, opts ...EventOption) *EventHandlers {
	h := &EventHandlers{
		content: reader,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		ping: defaultPingInterval,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Stream upgrades the request and sends a hello with the current fingerprint
// followed by one content.changed event per change. Bursts collapse into a
// single pending event.
func (h *EventHandlers) Stream(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := requestctx.Logger(ctx).Named("events")

	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer ws.Close()

	changed := make(chan string, 1)
	unsubscribe := h.content.Subscribe(func(s domain.ContentSnapshot) {
		fp := s.Fingerprint()
		select {
		case changed <- fp:
		default:
			select {
			case <-changed:
			default:
			}
			select {
			case changed <- fp:
			default:
			}
		}
	})
	defer unsubscribe()

	quit := make(chan struct{})
	go func() {
		defer close(quit)
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				var closeErr *websocket.CloseError
				if errors.As(err, &closeErr) && (closeErr.Code == websocket.CloseNormalClosure || closeErr.Code == websocket.CloseGoingAway) {
					return
				}
				logger.Debug("websocket closed", zap.Error(err))
				return
			}
		}
	}()

	send := func(event ChangeEvent) bool {
		_ = ws.SetWriteDeadline(time.Now().Add(writeWait))
		if err := ws.WriteJSON(event); err != nil {
			logger.Debug("websocket write failed", zap.Error(err))
			return false
		}
		return true
	}
	if !send(ChangeEvent{Type: eventHello, Fingerprint: h.content.Snapshot().Fingerprint()}) {
		return
	}

	ticker := time.NewTicker(h.ping)
	defer ticker.Stop()
	for {
		select {
		case <-quit:
			return
		case <-ctx.Done():
			return
		case fp := <-changed:
			if !send(ChangeEvent{Type: eventContentChanged, Fingerprint: fp}) {
				return
			}
		case <-ticker.C:
			if err := ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}
