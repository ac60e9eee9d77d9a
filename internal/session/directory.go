package session

import (
	"context"
	"time"

	"go.uber.org/zap"

	"chat-front/internal/chatapi"
	"chat-front/internal/domain"
	"chat-front/internal/querycache"
)

const (
	sessionsKey      = "chats"
	historyKeyPrefix = "chatHistory:"
)

// Directory expone la lista de conversaciones y sus historiales a través de
// la caché de consultas. Implementa HistoryLoader e Invalidator.
type Directory struct {
	api          chatapi.Client
	sessions     *querycache.Cache[[]domain.SessionSummary]
	history      *querycache.Cache[[]domain.HistoryRecord]
	historyLimit int
	logger       *zap.Logger
}

// NewDirectory crea el directorio de sesiones.
func NewDirectory(api chatapi.Client, staleTime time.Duration, historyLimit int, logger *zap.Logger) *Directory {
	if logger == nil {
		logger = zap.NewNop()
	}
	if historyLimit <= 0 {
		historyLimit = chatapi.DefaultHistoryLimit
	}
	return &Directory{
		api:          api,
		sessions:     querycache.New[[]domain.SessionSummary](staleTime),
		history:      querycache.New[[]domain.HistoryRecord](staleTime),
		historyLimit: historyLimit,
		logger:       logger,
	}
}

// ListSessions devuelve las conversaciones para la barra lateral.
func (d *Directory) ListSessions(ctx context.Context) ([]domain.SessionSummary, error) {
	chats, err := d.sessions.Get(ctx, sessionsKey, func(ctx context.Context) ([]domain.SessionSummary, error) {
		return d.api.ListSessions(ctx)
	})
	if err != nil {
		d.logger.Warn("list sessions failed", zap.Error(err))
		return nil, err
	}
	return append([]domain.SessionSummary(nil), chats...), nil
}

// Lookup busca una conversación ya listada, sin llamar al servidor.
func (d *Directory) Lookup(sessionID string) (domain.SessionSummary, bool) {
	chats, ok := d.sessions.Peek(sessionsKey)
	if !ok {
		return domain.SessionSummary{}, false
	}
	for _, c := range chats {
		if c.ID == sessionID {
			return c, true
		}
	}
	return domain.SessionSummary{}, false
}

// LoadHistory devuelve el historial de sessionID.
func (d *Directory) LoadHistory(ctx context.Context, sessionID string) ([]domain.HistoryRecord, error) {
	records, err := d.history.Get(ctx, historyKeyPrefix+sessionID, func(ctx context.Context) ([]domain.HistoryRecord, error) {
		return d.api.GetHistory(ctx, sessionID, d.historyLimit)
	})
	if err != nil {
		return nil, err
	}
	return append([]domain.HistoryRecord(nil), records...), nil
}

func (d *Directory) InvalidateSessions() {
	d.sessions.Invalidate(sessionsKey)
}

func (d *Directory) InvalidateHistory(sessionID string) {
	d.history.Invalidate(historyKeyPrefix + sessionID)
}
