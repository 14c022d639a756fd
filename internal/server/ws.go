package server

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"buddysurf-chat/internal/chat"
	"buddysurf-chat/internal/domain"
	"buddysurf-chat/internal/middleware"
	"buddysurf-chat/internal/realtime"
	"buddysurf-chat/internal/services"
	buddysurf_errors "buddysurf-chat/pkg/errors"
	"buddysurf-chat/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512 * 1024

	retryAttempts = 5
	retryBase     = time.Second
)

// FeedServer streams one conversation per websocket. Each connection
// owns a view model: connect loads history and registers the live
// subscription, disconnect tears both down.
type FeedServer struct {
	chat     *services.ChatService
	registry *realtime.Registry
	cache    *chat.FeedCache
	log      *logger.Logger
	upgrader websocket.Upgrader
}

func NewFeedServer(chatSvc *services.ChatService, registry *realtime.Registry, cache *chat.FeedCache, log *logger.Logger) *FeedServer {
	return &FeedServer{
		chat:     chatSvc,
		registry: registry,
		cache:    cache,
		log:      log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
}

type clientFrame struct {
	Type    string `json:"type"`
	Content string `json:"content,omitempty"`
}

type serverFrame struct {
	Type     string           `json:"type"`
	Messages []domain.Message `json:"messages,omitempty"`
	Message  *domain.Message  `json:"message,omitempty"`
	Error    string           `json:"error,omitempty"`
}

// Handle upgrades GET /ws/conversations/:id. Participant access is
// checked before the upgrade so rejections stay plain HTTP.
func (s *FeedServer) Handle(c *gin.Context) {
	conversationID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid conversation id"})
		return
	}
	userID := middleware.UserID(c)
	if err := s.chat.EnsureParticipant(c.Request.Context(), conversationID, userID); err != nil {
		status := http.StatusServiceUnavailable
		if errors.Is(err, buddysurf_errors.ErrForbidden) {
			status = http.StatusForbidden
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.log.Errorf("websocket upgrade failed: %v", err)
		return
	}

	// The connection outlives the HTTP request, so the pumps run on a
	// background context instead of the request's.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	vm := chat.NewViewModel(
		s.chat,
		&registryFeed{registry: s.registry},
		userID,
		s.log,
		chat.WithCache(s.cache),
		chat.WithRetry(retryAttempts, retryBase),
	)

	fc := &feedConn{
		conn: conn,
		vm:   vm,
		log:  s.log,
	}
	defer fc.close()

	if err := vm.Open(ctx, conversationID); err != nil {
		fc.writeFrame(serverFrame{Type: "error", Error: err.Error()})
		return
	}

	go fc.writePump()
	fc.readPump(ctx)
}

type feedConn struct {
	conn *websocket.Conn
	vm   *chat.ViewModel
	log  *logger.Logger

	writeMu   sync.Mutex
	closeOnce sync.Once
}

// close runs on every exit path; the view model release is what stops
// the live subscription.
func (fc *feedConn) close() {
	fc.closeOnce.Do(func() {
		_ = fc.vm.Close()
		_ = fc.conn.Close()
	})
}

func (fc *feedConn) writeFrame(f serverFrame) error {
	fc.writeMu.Lock()
	defer fc.writeMu.Unlock()
	fc.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return fc.conn.WriteJSON(f)
}

func (fc *feedConn) readPump(ctx context.Context) {
	fc.conn.SetReadLimit(maxMessageSize)
	fc.conn.SetReadDeadline(time.Now().Add(pongWait))
	fc.conn.SetPongHandler(func(string) error {
		fc.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		var frame clientFrame
		if err := fc.conn.ReadJSON(&frame); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				fc.log.Warnf("websocket unexpected close: %v", err)
			}
			return
		}

		switch frame.Type {
		case "send":
			if err := fc.vm.Send(ctx, frame.Content); err != nil {
				_ = fc.writeFrame(serverFrame{Type: "error", Error: err.Error()})
			}
		case "read":
			if err := fc.vm.MarkRead(ctx); err != nil {
				_ = fc.writeFrame(serverFrame{Type: "error", Error: err.Error()})
			}
		case "ping":
			_ = fc.writeFrame(serverFrame{Type: "pong"})
		default:
			fc.log.Warnf("websocket unknown frame type %q", frame.Type)
		}
	}
}

// writePump streams the history snapshot, then live updates and
// protocol pings. writeFrame serializes it against the read pump's
// error replies. sent tracks every message id already written; an echo
// that raced the snapshot sits in both the snapshot and the buffered
// updates, and must reach the client only once.
func (fc *feedConn) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		fc.close()
	}()

	history := fc.vm.Messages()
	sent := make(map[uuid.UUID]struct{}, len(history))
	for _, m := range history {
		sent[m.ID] = struct{}{}
	}
	if err := fc.writeFrame(serverFrame{Type: "history", Messages: history}); err != nil {
		return
	}

	for {
		select {
		case msg, ok := <-fc.vm.Updates():
			if !ok {
				fc.writeMu.Lock()
				fc.conn.SetWriteDeadline(time.Now().Add(writeWait))
				fc.conn.WriteMessage(websocket.CloseMessage, []byte{})
				fc.writeMu.Unlock()
				return
			}
			if _, dup := sent[msg.ID]; dup {
				continue
			}
			sent[msg.ID] = struct{}{}
			if err := fc.writeFrame(serverFrame{Type: "message", Message: &msg}); err != nil {
				return
			}
		case <-fc.vm.Resync():
			// Notifies were dropped under load; replay whatever the
			// feed holds that the client has not seen.
			for _, m := range fc.vm.Messages() {
				if _, dup := sent[m.ID]; dup {
					continue
				}
				sent[m.ID] = struct{}{}
				if err := fc.writeFrame(serverFrame{Type: "message", Message: &m}); err != nil {
					return
				}
			}
		case <-ticker.C:
			fc.writeMu.Lock()
			fc.conn.SetWriteDeadline(time.Now().Add(writeWait))
			err := fc.conn.WriteMessage(websocket.PingMessage, nil)
			fc.writeMu.Unlock()
			if err != nil {
				return
			}
		}
	}
}

// registryFeed adapts the process-wide subscription registry to the
// view model's feed surface. Each connection gets its own adapter, so
// opening a conversation a second time displaces the first socket's
// subscription rather than stacking one.
type registryFeed struct {
	registry *realtime.Registry

	mu             sync.Mutex
	conversationID uuid.UUID
	mgr            *realtime.Manager
}

func (f *registryFeed) Open(ctx context.Context, conversationID uuid.UUID, sink realtime.Sink) error {
	f.mu.Lock()
	if f.mgr != nil {
		f.registry.Release(f.conversationID, f.mgr)
		f.mgr = nil
	}
	f.mu.Unlock()

	m, err := f.registry.Open(ctx, conversationID, sink)
	if err != nil {
		return err
	}

	f.mu.Lock()
	f.mgr = m
	f.conversationID = conversationID
	f.mu.Unlock()
	return nil
}

func (f *registryFeed) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.mgr != nil {
		f.registry.Release(f.conversationID, f.mgr)
		f.mgr = nil
	}
	return nil
}
