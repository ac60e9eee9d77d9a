package http

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"chat-front/internal/chatapi"
	"chat-front/internal/domain"
	"chat-front/internal/session"
)

// SessionLister lista las conversaciones para la barra lateral.
type SessionLister interface {
	ListSessions(ctx context.Context) ([]domain.SessionSummary, error)
	Lookup(sessionID string) (domain.SessionSummary, bool)
}

// ChatHandler expone el controlador de sesión a la interfaz web.
type ChatHandler struct {
	logger   *zap.Logger
	ctrl     *session.Controller
	sessions SessionLister
	hub      *EventHub
}

// NewChatHandler crea una instancia de ChatHandler con dependencias necesarias.
func NewChatHandler(
	logger *zap.Logger,
	ctrl *session.Controller,
	sessions SessionLister,
	hub *EventHub,
) *ChatHandler {
	return &ChatHandler{
		logger:   logger,
		ctrl:     ctrl,
		sessions: sessions,
		hub:      hub,
	}
}

// GetState maneja GET /state.
func (h *ChatHandler) GetState(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"state": h.ctrl.State()})
}

// PostMessage maneja POST /messages.
func (h *ChatHandler) PostMessage(c *gin.Context) {
	var req struct {
		Content string `json:"content"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid post message request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	err := h.ctrl.SendMessage(c.Request.Context(), req.Content)
	if errors.Is(err, session.ErrEmptyMessage) {
		c.Status(http.StatusNoContent)
		return
	}
	if err != nil {
		c.JSON(statusFor(err), gin.H{
			"error": errorText(err),
			"state": h.ctrl.State(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"state": h.ctrl.State()})
}

// NewChat maneja POST /chats/new.
func (h *ChatHandler) NewChat(c *gin.Context) {
	h.ctrl.StartNewChat()
	c.JSON(http.StatusOK, gin.H{"state": h.ctrl.State()})
}

// SelectChat maneja POST /chats/:id/select.
func (h *ChatHandler) SelectChat(c *gin.Context) {
	var req struct {
		Model string `json:"model"`
	}
	// El cuerpo es opcional: sin modelo se usa el que tenía la conversación.
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
			return
		}
	}
	id := c.Param("id")
	if req.Model == "" {
		if s, ok := h.sessions.Lookup(id); ok {
			req.Model = s.Model
		}
	}

	if err := h.ctrl.SwitchSession(c.Request.Context(), id, req.Model); err != nil {
		c.JSON(statusFor(err), gin.H{
			"error": errorText(err),
			"state": h.ctrl.State(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"state": h.ctrl.State()})
}

// DeleteChat maneja DELETE /chats/:id.
func (h *ChatHandler) DeleteChat(c *gin.Context) {
	if err := h.ctrl.DeleteSession(c.Request.Context(), c.Param("id")); err != nil {
		c.JSON(statusFor(err), gin.H{"error": errorText(err)})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "state": h.ctrl.State()})
}

// ListChats maneja GET /chats.
func (h *ChatHandler) ListChats(c *gin.Context) {
	chats, err := h.sessions.ListSessions(c.Request.Context())
	if err != nil {
		h.logger.Error("list chats failed", zap.Error(err))
		c.JSON(statusFor(err), gin.H{"error": errorText(err)})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"chats":  chats,
		"active": h.ctrl.State().ActiveSessionID,
	})
}

// SelectModel maneja PUT /models/selected.
func (h *ChatHandler) SelectModel(c *gin.Context) {
	var req struct {
		Model string `json:"model" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	h.ctrl.SelectModel(req.Model)
	c.JSON(http.StatusOK, gin.H{"state": h.ctrl.State()})
}

// Events maneja GET /events: estado inicial y luego cambios por SSE.
func (h *ChatHandler) Events(c *gin.Context) {
	events, cancel := h.hub.subscribe()
	defer cancel()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.SSEvent("state", h.ctrl.State())
	c.Writer.Flush()

	c.Stream(func(w io.Writer) bool {
		select {
		case ev, ok := <-events:
			if !ok {
				return false
			}
			c.SSEvent(ev.Name, ev.Data)
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}

func statusFor(err error) int {
	var cfgErr *session.ConfigurationError
	var netErr *chatapi.NetworkError
	var srvErr *chatapi.ServerError
	switch {
	case errors.As(err, &cfgErr):
		return http.StatusPreconditionFailed
	case errors.As(err, &netErr), errors.As(err, &srvErr), errors.Is(err, chatapi.ErrDeleteRejected):
		return http.StatusBadGateway
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

func errorText(err error) string {
	var cfgErr *session.ConfigurationError
	if errors.As(err, &cfgErr) {
		return cfgErr.Error()
	}
	return chatapi.UserMessage(err)
}
