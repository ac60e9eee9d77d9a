package chatapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"chat-front/internal/domain"
)

const (
	DefaultBaseURL      = "http://localhost:5000/api"
	DefaultHistoryLimit = 50
)

// Client define las operaciones del API remoto de chat.
type Client interface {
	SendMessage(ctx context.Context, req SendRequest) (SendResponse, error)
	GetHistory(ctx context.Context, sessionID string, limit int) ([]domain.HistoryRecord, error)
	ListSessions(ctx context.Context) ([]domain.SessionSummary, error)
	DeleteSession(ctx context.Context, sessionID string) (bool, error)
}

// SendRequest es el cuerpo de POST /chat.
type SendRequest struct {
	Model          string              `json:"model"`
	Message        string              `json:"message"`
	ConversationID string              `json:"conversation_id,omitempty"`
	CustomModel    *domain.CustomModel `json:"custom_model,omitempty"`
}

// SendResponse es la respuesta de POST /chat.
type SendResponse struct {
	Response       string `json:"response"`
	ConversationID string `json:"conversation_id"`
}

// HTTPClient implementa Client contra el API JSON del backend de chat.
type HTTPClient struct {
	baseURL string
	client  *http.Client
	logger  *zap.Logger
}

// NewHTTPClient construye un cliente apuntando al prefijo /api del backend.
func NewHTTPClient(baseURL string, timeout time.Duration, logger *zap.Logger) *HTTPClient {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

func (c *HTTPClient) SendMessage(ctx context.Context, req SendRequest) (SendResponse, error) {
	var out struct {
		SendResponse
		Error string `json:"error,omitempty"`
	}
	if err := c.do(ctx, OpSendMessage, http.MethodPost, "/chat", req, &out); err != nil {
		return SendResponse{}, err
	}
	if out.Error != "" {
		return SendResponse{}, &ServerError{Op: OpSendMessage, Status: http.StatusOK, Message: out.Error}
	}
	return out.SendResponse, nil
}

func (c *HTTPClient) GetHistory(ctx context.Context, sessionID string, limit int) ([]domain.HistoryRecord, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	path := "/chats/" + url.PathEscape(sessionID) + "?limit=" + strconv.Itoa(limit)
	var out struct {
		Messages []domain.HistoryRecord `json:"messages"`
	}
	if err := c.do(ctx, OpFetchHistory, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	if out.Messages == nil {
		return []domain.HistoryRecord{}, nil
	}
	return out.Messages, nil
}

func (c *HTTPClient) ListSessions(ctx context.Context) ([]domain.SessionSummary, error) {
	var out struct {
		Chats []domain.SessionSummary `json:"chats"`
	}
	if err := c.do(ctx, OpFetchChats, http.MethodGet, "/chats", nil, &out); err != nil {
		return nil, err
	}
	if out.Chats == nil {
		return []domain.SessionSummary{}, nil
	}
	return out.Chats, nil
}

func (c *HTTPClient) DeleteSession(ctx context.Context, sessionID string) (bool, error) {
	var out struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
	}
	err := c.do(ctx, OpDeleteChat, http.MethodDelete, "/chats/"+url.PathEscape(sessionID), nil, &out)
	if err != nil {
		var se *ServerError
		// El backend responde 500 con success=false cuando no pudo borrar.
		if errors.As(err, &se) && se.Message == "" {
			return false, ErrDeleteRejected
		}
		return false, err
	}
	return out.Success, nil
}

// RegisterCustomModel avisa al backend de un modelo personalizado (sin la API key).
func (c *HTTPClient) RegisterCustomModel(ctx context.Context, model domain.CustomModel) (bool, error) {
	body := struct {
		ID          string `json:"id"`
		Name        string `json:"name"`
		APIEndpoint string `json:"apiEndpoint"`
	}{model.ID, model.Name, model.APIEndpoint}
	var out struct {
		Success bool `json:"success"`
	}
	if err := c.do(ctx, OpSaveCustomModel, http.MethodPost, "/models/custom", body, &out); err != nil {
		return false, err
	}
	return out.Success, nil
}

func (c *HTTPClient) do(ctx context.Context, op, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		bodyBytes, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("%s: marshal request: %w", op, err)
		}
		body = bytes.NewReader(bodyBytes)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("%s: create request: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Warn("chat api unreachable", zap.String("op", op), zap.Error(err))
		return &NetworkError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return &NetworkError{Op: op, Err: fmt.Errorf("read response: %w", err)}
	}

	c.logger.Debug("chat api call",
		zap.String("op", op),
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("latency", time.Since(start)),
	)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr struct {
			Error string `json:"error"`
		}
		_ = json.Unmarshal(respBody, &apiErr)
		c.logger.Warn("chat api error status",
			zap.String("op", op),
			zap.Int("status", resp.StatusCode),
			zap.String("error", apiErr.Error),
		)
		return &ServerError{Op: op, Status: resp.StatusCode, Message: apiErr.Error}
	}

	if out == nil || len(respBody) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("%s: unmarshal response: %w", op, err)
	}
	return nil
}
