// Package session mantiene la vista local de una conversación y la sincroniza
// con el historial remoto.
//
// El controlador es dueño de la identidad activa, la lista de mensajes y los
// indicadores de carga. Los resultados asíncronos se aplican solo si siguen
// correspondiendo a la identidad activa; nunca por orden de llegada.
package session

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"chat-front/internal/chatapi"
	"chat-front/internal/domain"
)

// Remote son las operaciones del API remoto que usa el controlador.
type Remote interface {
	SendMessage(ctx context.Context, req chatapi.SendRequest) (chatapi.SendResponse, error)
	DeleteSession(ctx context.Context, sessionID string) (bool, error)
}

// HistoryLoader obtiene el historial ordenado de una conversación.
type HistoryLoader interface {
	LoadHistory(ctx context.Context, sessionID string) ([]domain.HistoryRecord, error)
}

// Invalidator recibe las señales de invalidación de la lista de sesiones y
// del historial de una sesión.
type Invalidator interface {
	InvalidateSessions()
	InvalidateHistory(sessionID string)
}

// KeyResolver da acceso a las API keys y a los modelos personalizados.
type KeyResolver interface {
	LoadAPIKeys(ctx context.Context) (domain.APIKeys, error)
	ResolveCustomModel(ctx context.Context, id string) (domain.CustomModel, bool, error)
}

// Options agrupa las dependencias del controlador.
type Options struct {
	Remote      Remote
	History     HistoryLoader
	Invalidator Invalidator
	Keys        KeyResolver
	Notifier    Notifier
	Logger      *zap.Logger

	// Model es el modelo seleccionado al arrancar.
	Model string
	// RequireAPIKeys exige la clave del proveedor antes de enviar.
	RequireAPIKeys bool

	Now   func() time.Time
	NewID func() string
}

// Controller es el controlador de la conversación activa.
type Controller struct {
	remote      Remote
	history     HistoryLoader
	invalidator Invalidator
	keys        KeyResolver
	notifier    Notifier
	logger      *zap.Logger
	requireKeys bool
	now         func() time.Time
	newID       func() string

	// sendMu serializa los envíos para que usuario/asistente no se intercalen.
	sendMu sync.Mutex

	mu               sync.Mutex
	version          uint64
	activeID         string
	model            string
	messages         []domain.Message
	isSending        bool
	isLoadingHistory bool
	// epoch cambia con cada cambio explícito de conversación.
	epoch uint64
	// historySeq identifica la última carga de historial emitida.
	historySeq uint64

	subMu   sync.Mutex
	subs    map[int]func(State)
	nextSub int

	// pubMu ordena las publicaciones; published es la última versión entregada.
	pubMu     sync.Mutex
	published uint64
}

// NewController construye el controlador con sus colaboradores.
func NewController(opts Options) (*Controller, error) {
	if opts.Remote == nil || opts.History == nil {
		return nil, ErrControllerNotConfigured
	}
	c := &Controller{
		remote:      opts.Remote,
		history:     opts.History,
		invalidator: opts.Invalidator,
		keys:        opts.Keys,
		notifier:    opts.Notifier,
		logger:      opts.Logger,
		requireKeys: opts.RequireAPIKeys,
		now:         opts.Now,
		newID:       opts.NewID,
		model:       opts.Model,
		subs:        make(map[int]func(State)),
	}
	if c.invalidator == nil {
		c.invalidator = nopInvalidator{}
	}
	if c.notifier == nil {
		c.notifier = nopNotifier{}
	}
	if c.logger == nil {
		c.logger = zap.NewNop()
	}
	if c.now == nil {
		c.now = func() time.Time { return time.Now().UTC() }
	}
	if c.newID == nil {
		c.newID = uuid.NewString
	}
	if c.model == "" {
		c.model = domain.ModelChatGPT
	}
	return c, nil
}

// State devuelve una instantánea del estado actual.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Subscribe registra fn para recibir cada cambio de estado. Devuelve la
// función que cancela la suscripción.
func (c *Controller) Subscribe(fn func(State)) func() {
	c.subMu.Lock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = fn
	c.subMu.Unlock()
	return func() {
		c.subMu.Lock()
		delete(c.subs, id)
		c.subMu.Unlock()
	}
}

// LoadHistory reemplaza los mensajes por el historial remoto de sessionID.
// Con sessionID vacío limpia la lista sin llamar al servidor.
func (c *Controller) LoadHistory(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		c.update(func() {
			c.historySeq++
			c.isLoadingHistory = false
			c.messages = nil
		})
		return nil
	}

	var seq uint64
	c.update(func() {
		c.historySeq++
		seq = c.historySeq
		c.isLoadingHistory = true
	})

	records, err := c.history.LoadHistory(ctx, sessionID)

	var current bool
	c.update(func() {
		if seq != c.historySeq {
			return
		}
		c.isLoadingHistory = false
		current = sessionID == c.activeID
		if err == nil && current {
			c.messages = c.fromHistory(records)
		}
	})

	// Una carga reemplazada por otra más nueva no afecta a quien la pidió.
	if !current {
		c.logger.Debug("discarding stale history", zap.String("session_id", sessionID), zap.Error(err))
		return nil
	}
	if err != nil {
		c.logger.Warn("load history failed", zap.String("session_id", sessionID), zap.Error(err))
		c.notifier.Notify(Notification{
			Title:       "Error loading chat history",
			Description: "Could not load your previous messages",
			Variant:     VariantDestructive,
		})
		return err
	}
	return nil
}

// SendMessage agrega el mensaje del usuario de inmediato, lo envía al servidor
// y agrega la respuesta del asistente. Si el envío falla, el mensaje del
// usuario queda en la lista.
func (c *Controller) SendMessage(ctx context.Context, content string) error {
	if strings.TrimSpace(content) == "" {
		return ErrEmptyMessage
	}

	c.sendMu.Lock()
	defer c.sendMu.Unlock()

	c.mu.Lock()
	model, sessionID, epoch := c.model, c.activeID, c.epoch
	c.mu.Unlock()

	req, err := c.buildRequest(ctx, model, content, sessionID)
	if err != nil {
		var cfgErr *ConfigurationError
		if errors.As(err, &cfgErr) {
			c.notifier.Notify(Notification{
				Title:       "Missing API key",
				Description: "Add your " + string(cfgErr.Provider) + " API key in settings to chat with " + domain.DisplayName(model) + ".",
				Variant:     VariantDestructive,
			})
		} else {
			c.notifyError(err)
		}
		return err
	}

	userMsg := domain.Message{
		ID:        c.newID(),
		Role:      domain.RoleUser,
		Content:   content,
		Timestamp: c.now(),
	}
	c.update(func() {
		c.messages = append(c.messages, userMsg)
		c.isSending = true
	})

	finished := false
	defer func() {
		if !finished {
			c.update(func() { c.isSending = false })
		}
	}()

	resp, err := c.remote.SendMessage(ctx, req)
	if err != nil {
		c.logger.Warn("send message failed",
			zap.String("model", model),
			zap.String("session_id", sessionID),
			zap.Error(err),
		)
		c.notifyError(err)
		return err
	}

	var adopted, stale bool
	c.update(func() {
		finished = true
		c.isSending = false
		if c.epoch != epoch {
			stale = true
			return
		}
		if resp.ConversationID != "" && resp.ConversationID != c.activeID {
			c.activeID = resp.ConversationID
			adopted = true
		}
		c.messages = append(c.messages, domain.Message{
			ID:        c.newID(),
			Role:      domain.RoleAssistant,
			Content:   resp.Response,
			Timestamp: c.now(),
		})
	})

	if adopted || (stale && resp.ConversationID != sessionID) {
		c.invalidator.InvalidateSessions()
	}
	if resp.ConversationID != "" {
		c.invalidator.InvalidateHistory(resp.ConversationID)
	}
	if stale {
		c.logger.Info("reply arrived after conversation change",
			zap.String("conversation_id", resp.ConversationID),
		)
		return nil
	}
	if adopted {
		c.logger.Info("conversation started", zap.String("conversation_id", resp.ConversationID), zap.String("model", model))
	}
	return nil
}

// SwitchSession activa otra conversación y carga su historial. Cualquier carga
// pendiente de la conversación anterior queda descartada.
func (c *Controller) SwitchSession(ctx context.Context, sessionID, model string) error {
	c.update(func() {
		c.epoch++
		c.activeID = sessionID
		if model != "" {
			c.model = model
		}
		c.messages = nil
	})
	if sessionID != "" {
		c.invalidator.InvalidateHistory(sessionID)
	}
	return c.LoadHistory(ctx, sessionID)
}

// StartNewChat vuelve al estado de conversación nueva sin tocar el servidor.
func (c *Controller) StartNewChat() {
	c.reset()
	c.notifier.Notify(Notification{
		Title:       "New chat started",
		Description: "Your new conversation has begun.",
		Variant:     VariantDefault,
	})
}

// SelectModel cambia el modelo y empieza una conversación nueva.
func (c *Controller) SelectModel(model string) {
	model = strings.TrimSpace(model)
	if model == "" {
		return
	}
	c.update(func() {
		c.model = model
		c.resetStateLocked()
	})
}

// DropModel vuelve a fallback y empieza una conversación nueva si el modelo
// seleccionado es id. Devuelve true si hubo cambio.
func (c *Controller) DropModel(id, fallback string) bool {
	if fallback == "" || fallback == id {
		fallback = domain.ModelChatGPT
	}
	c.mu.Lock()
	selected := c.model == id
	c.mu.Unlock()
	if !selected {
		return false
	}
	var dropped bool
	c.update(func() {
		if c.model != id {
			return
		}
		c.model = fallback
		c.resetStateLocked()
		dropped = true
	})
	return dropped
}

// DeleteSession borra la conversación en el servidor. Si era la activa,
// vuelve al estado de conversación nueva.
func (c *Controller) DeleteSession(ctx context.Context, sessionID string) error {
	ok, err := c.remote.DeleteSession(ctx, sessionID)
	if err == nil && !ok {
		err = chatapi.ErrDeleteRejected
	}
	if err != nil {
		c.logger.Warn("delete session failed", zap.String("session_id", sessionID), zap.Error(err))
		c.notifier.Notify(Notification{
			Title:       "Error deleting chat",
			Description: chatapi.UserMessage(err),
			Variant:     VariantDestructive,
		})
		return err
	}

	c.invalidator.InvalidateSessions()
	c.invalidator.InvalidateHistory(sessionID)
	c.notifier.Notify(Notification{
		Title:       "Chat deleted",
		Description: "The chat has been deleted successfully.",
		Variant:     VariantDefault,
	})

	c.mu.Lock()
	active := c.activeID == sessionID
	c.mu.Unlock()
	if active {
		c.reset()
	}
	return nil
}

func (c *Controller) buildRequest(ctx context.Context, model, content, sessionID string) (chatapi.SendRequest, error) {
	req := chatapi.SendRequest{
		Model:          model,
		Message:        content,
		ConversationID: sessionID,
	}
	if c.keys == nil {
		return req, nil
	}

	if builtin, ok := domain.LookupBuiltin(model); ok {
		if !c.requireKeys {
			return req, nil
		}
		keys, err := c.keys.LoadAPIKeys(ctx)
		if err != nil {
			return req, err
		}
		if keys.For(builtin.Provider) == "" {
			return req, &ConfigurationError{Model: model, Provider: builtin.Provider}
		}
		return req, nil
	}

	custom, found, err := c.keys.ResolveCustomModel(ctx, model)
	if err != nil {
		c.logger.Warn("resolve custom model failed", zap.String("model", model), zap.Error(err))
		return req, nil
	}
	if !found {
		return req, nil
	}
	if c.requireKeys && custom.APIKey == "" {
		return req, &ConfigurationError{Model: model, Provider: domain.ProviderCustom}
	}
	req.CustomModel = &custom
	return req, nil
}

func (c *Controller) fromHistory(records []domain.HistoryRecord) []domain.Message {
	out := make([]domain.Message, 0, len(records))
	for _, r := range records {
		if r.Role == domain.RoleSystem {
			continue
		}
		ts := c.now()
		if r.Timestamp != nil {
			ts = *r.Timestamp
		}
		out = append(out, domain.Message{
			ID:        c.newID(),
			Role:      r.Role,
			Content:   r.Content,
			Timestamp: ts,
		})
	}
	return out
}

func (c *Controller) notifyError(err error) {
	desc := chatapi.UserMessage(err)
	if desc == "" {
		desc = "Failed to send message. Please try again later."
	}
	c.notifier.Notify(Notification{
		Title:       "Error",
		Description: desc,
		Variant:     VariantDestructive,
	})
}

// reset limpia la conversación activa y publica el cambio.
func (c *Controller) reset() {
	c.update(c.resetStateLocked)
}

func (c *Controller) resetStateLocked() {
	c.epoch++
	c.historySeq++
	c.activeID = ""
	c.messages = nil
	c.isLoadingHistory = false
}

// update aplica fn bajo el lock y publica la nueva instantánea.
func (c *Controller) update(fn func()) {
	c.mu.Lock()
	fn()
	c.version++
	snap := c.snapshotLocked()
	c.mu.Unlock()
	c.publish(snap)
}

func (c *Controller) snapshotLocked() State {
	msgs := make([]domain.Message, len(c.messages))
	copy(msgs, c.messages)
	return State{
		Version:          c.version,
		ActiveSessionID:  c.activeID,
		Model:            c.model,
		Messages:         msgs,
		IsSending:        c.isSending,
		IsLoadingHistory: c.isLoadingHistory,
	}
}

// publish entrega s a los suscriptores en orden de versión; una instantánea
// más vieja que la última entregada se descarta. Los suscriptores no deben
// modificar el controlador desde el callback.
func (c *Controller) publish(s State) {
	c.pubMu.Lock()
	defer c.pubMu.Unlock()
	if s.Version <= c.published {
		return
	}
	c.published = s.Version

	c.subMu.Lock()
	subs := make([]func(State), 0, len(c.subs))
	for _, fn := range c.subs {
		subs = append(subs, fn)
	}
	c.subMu.Unlock()
	for _, fn := range subs {
		fn(s)
	}
}

type nopInvalidator struct{}

func (nopInvalidator) InvalidateSessions() {}

func (nopInvalidator) InvalidateHistory(string) {}
