package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"buddysurf-chat/internal/domain"
	"buddysurf-chat/internal/middleware"
	"buddysurf-chat/internal/notifications"
	"buddysurf-chat/internal/repository"
	"buddysurf-chat/internal/services"
	buddysurf_errors "buddysurf-chat/pkg/errors"
	"buddysurf-chat/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ChatHandler exposes the conversation, message and notification
// operations over REST.
type ChatHandler struct {
	chat   *services.ChatService
	notifs *notifications.Service
	log    *logger.Logger
}

func NewChatHandler(chat *services.ChatService, notifs *notifications.Service, log *logger.Logger) *ChatHandler {
	return &ChatHandler{chat: chat, notifs: notifs, log: log}
}

func (h *ChatHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/conversations", h.ListConversations)
	r.POST("/conversations", h.CreateConversation)
	r.POST("/conversations/direct", h.StartDirect)
	r.GET("/conversations/:id", h.GetConversation)
	r.GET("/conversations/:id/messages", h.GetMessages)
	r.POST("/conversations/:id/messages", h.SendMessage)
	r.POST("/conversations/:id/read", h.MarkRead)

	r.GET("/notifications", h.ListNotifications)
	r.GET("/notifications/unread-count", h.UnreadNotificationCount)
	r.POST("/notifications/:id/read", h.MarkNotificationRead)
	r.POST("/notifications/read-all", h.MarkAllNotificationsRead)
	r.POST("/push-tokens", h.RegisterPushToken)
}

type createConversationRequest struct {
	ParticipantIDs []uuid.UUID             `json:"participant_ids" binding:"required"`
	Kind           domain.ConversationKind `json:"type"`
	Name           *string                 `json:"name"`
	ActivityID     *uuid.UUID              `json:"activity_id"`
}

type startDirectRequest struct {
	UserID uuid.UUID `json:"user_id" binding:"required"`
}

type sendMessageRequest struct {
	Content  string             `json:"content" binding:"required"`
	Kind     domain.MessageKind `json:"message_type"`
	Metadata json.RawMessage    `json:"metadata"`
}

type markReadRequest struct {
	At *time.Time `json:"at"`
}

type pushTokenRequest struct {
	DeviceID string `json:"device_id" binding:"required"`
	Token    string `json:"token" binding:"required"`
	Platform string `json:"platform"`
}

func (h *ChatHandler) ListConversations(c *gin.Context) {
	userID := middleware.UserID(c)
	summaries, err := h.chat.ListConversations(c.Request.Context(), userID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"conversations": summaries})
}

func (h *ChatHandler) CreateConversation(c *gin.Context) {
	var req createConversationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if req.Kind == "" {
		req.Kind = domain.ConversationGroup
	}
	userID := middleware.UserID(c)
	conv, err := h.chat.CreateConversation(c.Request.Context(), userID, req.ParticipantIDs, req.Kind, req.Name, req.ActivityID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"conversation": conv})
}

func (h *ChatHandler) StartDirect(c *gin.Context) {
	var req startDirectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	userID := middleware.UserID(c)
	conv, err := h.chat.StartDirect(c.Request.Context(), userID, req.UserID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"conversation": conv})
}

func (h *ChatHandler) GetConversation(c *gin.Context) {
	conversationID, ok := h.conversationID(c)
	if !ok {
		return
	}
	userID := middleware.UserID(c)
	if err := h.chat.EnsureParticipant(c.Request.Context(), conversationID, userID); err != nil {
		h.writeError(c, err)
		return
	}
	conv, err := h.chat.Conversation(c.Request.Context(), conversationID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"conversation": conv})
}

// GetMessages returns history ascending by creation time. Without cursor
// parameters it returns the whole conversation; with before_at/before_id
// and limit it returns one older page for scroll-back.
func (h *ChatHandler) GetMessages(c *gin.Context) {
	conversationID, ok := h.conversationID(c)
	if !ok {
		return
	}
	userID := middleware.UserID(c)
	if err := h.chat.EnsureParticipant(c.Request.Context(), conversationID, userID); err != nil {
		h.writeError(c, err)
		return
	}

	cursor, limit, err := parseCursor(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var msgs []domain.Message
	if cursor.IsZero() && limit == 0 {
		msgs, err = h.chat.History(c.Request.Context(), conversationID)
	} else {
		msgs, err = h.chat.HistoryPage(c.Request.Context(), conversationID, cursor, limit)
	}
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": msgs})
}

func (h *ChatHandler) SendMessage(c *gin.Context) {
	conversationID, ok := h.conversationID(c)
	if !ok {
		return
	}
	var req sendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	userID := middleware.UserID(c)
	msg, err := h.chat.Send(c.Request.Context(), conversationID, userID, req.Content, req.Kind, req.Metadata)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": msg})
}

func (h *ChatHandler) MarkRead(c *gin.Context) {
	conversationID, ok := h.conversationID(c)
	if !ok {
		return
	}
	var req markReadRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	at := time.Now()
	if req.At != nil {
		at = *req.At
	}
	userID := middleware.UserID(c)
	if err := h.chat.MarkRead(c.Request.Context(), conversationID, userID, at); err != nil {
		h.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *ChatHandler) ListNotifications(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		limit = n
	}
	userID := middleware.UserID(c)
	items, err := h.notifs.List(c.Request.Context(), userID, limit)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"notifications": items})
}

func (h *ChatHandler) UnreadNotificationCount(c *gin.Context) {
	userID := middleware.UserID(c)
	count, err := h.notifs.UnreadCount(c.Request.Context(), userID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"unread": count})
}

func (h *ChatHandler) MarkNotificationRead(c *gin.Context) {
	notificationID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid notification id"})
		return
	}
	userID := middleware.UserID(c)
	if err := h.notifs.MarkRead(c.Request.Context(), userID, notificationID); err != nil {
		h.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *ChatHandler) MarkAllNotificationsRead(c *gin.Context) {
	userID := middleware.UserID(c)
	if err := h.notifs.MarkAllRead(c.Request.Context(), userID); err != nil {
		h.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *ChatHandler) RegisterPushToken(c *gin.Context) {
	var req pushTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	userID := middleware.UserID(c)
	if err := h.notifs.RegisterPushToken(c.Request.Context(), userID, req.DeviceID, req.Token, req.Platform); err != nil {
		h.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *ChatHandler) conversationID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid conversation id"})
		return uuid.Nil, false
	}
	return id, true
}

func parseCursor(c *gin.Context) (repository.HistoryCursor, int, error) {
	var cursor repository.HistoryCursor
	limit := 0

	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return cursor, 0, errors.New("invalid limit")
		}
		limit = n
	}
	beforeAt := c.Query("before_at")
	beforeID := c.Query("before_id")
	if beforeAt == "" && beforeID == "" {
		return cursor, limit, nil
	}
	if beforeAt == "" || beforeID == "" {
		return cursor, 0, errors.New("before_at and before_id must be supplied together")
	}
	at, err := time.Parse(time.RFC3339Nano, beforeAt)
	if err != nil {
		return cursor, 0, errors.New("invalid before_at")
	}
	id, err := uuid.Parse(beforeID)
	if err != nil {
		return cursor, 0, errors.New("invalid before_id")
	}
	cursor.Before = at
	cursor.BeforeID = id
	return cursor, limit, nil
}

func (h *ChatHandler) writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, buddysurf_errors.ErrInvalidContent),
		errors.Is(err, buddysurf_errors.ErrInvalidInput):
		status = http.StatusBadRequest
	case errors.Is(err, buddysurf_errors.ErrUnauthenticated):
		status = http.StatusUnauthorized
	case errors.Is(err, buddysurf_errors.ErrForbidden):
		status = http.StatusForbidden
	case errors.Is(err, buddysurf_errors.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, buddysurf_errors.ErrAlreadyExists):
		status = http.StatusConflict
	case errors.Is(err, buddysurf_errors.ErrBackendUnavailable),
		errors.Is(err, buddysurf_errors.ErrSubscriptionFailed):
		status = http.StatusServiceUnavailable
	}
	if status == http.StatusInternalServerError {
		h.log.Errorf("unhandled error on %s %s: %v", c.Request.Method, c.FullPath(), err)
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
