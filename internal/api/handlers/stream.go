package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/wonny/fibivi/internal/render"
	"github.com/wonny/fibivi/pkg/logger"
)

const (
	// Ping/Pong settings
	pingInterval = 30 * time.Second
	pongWait     = 60 * time.Second
	writeWait    = 10 * time.Second
)

// StreamRequest is one message on /ws/sleep
type StreamRequest struct {
	View string `json:"view"`
	ViewRequest
}

// StreamReply is sent for every request; exactly one of Figure and Error is set
type StreamReply struct {
	View   string         `json:"view"`
	Figure *render.Figure `json:"figure,omitempty"`
	Error  string         `json:"error,omitempty"`
}

// StreamHandler serves figures over a websocket so the page can re-upload
// without a round trip per view
type StreamHandler struct {
	views     *ViewHandler
	upgrader  websocket.Upgrader
	readLimit int64
	logger    *logger.Logger
}

// NewStreamHandler creates a websocket handler. An empty origin list or "*"
// accepts any origin.
func NewStreamHandler(views *ViewHandler, allowedOrigins []string, maxMessageBytes int64, log *logger.Logger) *StreamHandler {
	h := &StreamHandler{views: views, logger: log}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin:     originChecker(allowedOrigins),
	}
	if maxMessageBytes <= 0 {
		maxMessageBytes = 10 << 20
	}
	h.readLimit = maxMessageBytes
	return h
}

func originChecker(allowed []string) func(r *http.Request) bool {
	set := make(map[string]bool, len(allowed))
	for _, o := range allowed {
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
		set[o] = true
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || set[origin]
	}
}

// Serve upgrades the connection and answers requests until the peer leaves
// GET /ws/sleep
func (h *StreamHandler) Serve(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.WithError(err).Warn("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	conn.SetReadLimit(h.readLimit)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	done := make(chan struct{})
	defer close(done)
	go h.pingLoop(conn, done)

	for {
		var req StreamRequest
		if err := conn.ReadJSON(&req); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.WithError(err).Warn("WebSocket read failed")
			}
			return
		}

		reply := StreamReply{View: req.View}
		fig, err := h.views.Figure(r.Context(), req.View, req.ViewRequest)
		switch {
		case err == nil:
			reply.Figure = fig
		case errors.Is(err, ErrNoContents):
			// no upload, no update
			continue
		default:
			reply.Error = err.Error()
		}

		conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(reply); err != nil {
			h.logger.WithError(err).Warn("WebSocket write failed")
			return
		}
	}
}

// pingLoop keeps the connection alive. gorilla allows one concurrent
// writer plus WriteControl, which is safe alongside WriteJSON.
func (h *StreamHandler) pingLoop(conn *websocket.Conn, done <-chan struct{}) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, []byte{}, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}
