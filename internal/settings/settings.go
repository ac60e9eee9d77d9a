package settings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"chat-front/internal/domain"
)

const (
	keyAPIKeys      = "api-keys"
	keyCustomModels = "custom-models"
)

var ErrSettingsNotConfigured = errors.New("settings service not configured")

// Service lee y escribe las API keys y los modelos personalizados del usuario.
type Service struct {
	store    Store
	sealer   sealer
	defaults domain.APIKeys
	logger   *zap.Logger

	mu sync.Mutex
}

// NewService crea el servicio. defaults son las claves tomadas del entorno,
// usadas mientras el usuario no guarde las suyas.
func NewService(store Store, secret string, defaults domain.APIKeys, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		store:    store,
		sealer:   newSealer(secret),
		defaults: defaults,
		logger:   logger,
	}
}

// LoadAPIKeys devuelve las claves guardadas o, si no hay, las del entorno.
func (s *Service) LoadAPIKeys(ctx context.Context) (domain.APIKeys, error) {
	if s == nil || s.store == nil {
		return domain.APIKeys{}, ErrSettingsNotConfigured
	}
	raw, ok, err := s.store.Get(ctx, keyAPIKeys)
	if err != nil {
		return domain.APIKeys{}, fmt.Errorf("load api keys: %w", err)
	}
	if !ok {
		return s.defaults, nil
	}
	var stored domain.APIKeys
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		return domain.APIKeys{}, fmt.Errorf("decode api keys: %w", err)
	}
	return s.openKeys(stored)
}

// SaveAPIKeys guarda las claves, cifradas si hay secreto configurado.
func (s *Service) SaveAPIKeys(ctx context.Context, keys domain.APIKeys) error {
	if s == nil || s.store == nil {
		return ErrSettingsNotConfigured
	}
	sealed, err := s.sealKeys(keys)
	if err != nil {
		return fmt.Errorf("seal api keys: %w", err)
	}
	raw, err := json.Marshal(sealed)
	if err != nil {
		return fmt.Errorf("encode api keys: %w", err)
	}
	if err := s.store.Set(ctx, keyAPIKeys, string(raw)); err != nil {
		return fmt.Errorf("save api keys: %w", err)
	}
	s.logger.Info("api keys saved")
	return nil
}

// CustomModels devuelve los modelos definidos por el usuario.
func (s *Service) CustomModels(ctx context.Context) ([]domain.CustomModel, error) {
	if s == nil || s.store == nil {
		return nil, ErrSettingsNotConfigured
	}
	raw, ok, err := s.store.Get(ctx, keyCustomModels)
	if err != nil {
		return nil, fmt.Errorf("load custom models: %w", err)
	}
	if !ok || raw == "" {
		return []domain.CustomModel{}, nil
	}
	var models []domain.CustomModel
	if err := json.Unmarshal([]byte(raw), &models); err != nil {
		// Un valor corrupto no debe bloquear el arranque.
		s.logger.Warn("failed to load custom models", zap.Error(err))
		return []domain.CustomModel{}, nil
	}
	for i := range models {
		key, err := s.sealer.open(models[i].APIKey)
		if err != nil {
			return nil, err
		}
		models[i].APIKey = key
	}
	return models, nil
}

// AddCustomModel valida y guarda un modelo; un id repetido reemplaza al anterior.
func (s *Service) AddCustomModel(ctx context.Context, model domain.CustomModel) (domain.CustomModel, error) {
	if s == nil || s.store == nil {
		return domain.CustomModel{}, ErrSettingsNotConfigured
	}
	model, err := model.Normalize()
	if err != nil {
		return domain.CustomModel{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	models, err := s.CustomModels(ctx)
	if err != nil {
		return domain.CustomModel{}, err
	}
	replaced := false
	for i := range models {
		if models[i].ID == model.ID {
			models[i] = model
			replaced = true
		}
	}
	if !replaced {
		models = append(models, model)
	}

	if err := s.saveCustomModelsLocked(ctx, models); err != nil {
		return domain.CustomModel{}, err
	}
	s.logger.Info("custom model saved", zap.String("model_id", model.ID), zap.Bool("replaced", replaced))
	return model, nil
}

// DeleteCustomModel borra el modelo personalizado id. Devuelve false si no existía.
func (s *Service) DeleteCustomModel(ctx context.Context, id string) (bool, error) {
	if s == nil || s.store == nil {
		return false, ErrSettingsNotConfigured
	}
	id = domain.NormalizeModelID(id)

	s.mu.Lock()
	defer s.mu.Unlock()

	models, err := s.CustomModels(ctx)
	if err != nil {
		return false, err
	}
	kept := models[:0]
	for _, m := range models {
		if m.ID != id {
			kept = append(kept, m)
		}
	}
	if len(kept) == len(models) {
		return false, nil
	}
	if err := s.saveCustomModelsLocked(ctx, kept); err != nil {
		return false, err
	}
	s.logger.Info("custom model deleted", zap.String("model_id", id))
	return true, nil
}

func (s *Service) saveCustomModelsLocked(ctx context.Context, models []domain.CustomModel) error {
	toStore := make([]domain.CustomModel, len(models))
	for i, m := range models {
		sealed, err := s.sealer.seal(m.APIKey)
		if err != nil {
			return fmt.Errorf("seal custom model key: %w", err)
		}
		m.APIKey = sealed
		toStore[i] = m
	}
	raw, err := json.Marshal(toStore)
	if err != nil {
		return fmt.Errorf("encode custom models: %w", err)
	}
	if err := s.store.Set(ctx, keyCustomModels, string(raw)); err != nil {
		return fmt.Errorf("save custom models: %w", err)
	}
	return nil
}

// ResolveCustomModel busca un modelo personalizado por id.
func (s *Service) ResolveCustomModel(ctx context.Context, id string) (domain.CustomModel, bool, error) {
	models, err := s.CustomModels(ctx)
	if err != nil {
		return domain.CustomModel{}, false, err
	}
	for _, m := range models {
		if m.ID == id {
			return m, true, nil
		}
	}
	return domain.CustomModel{}, false, nil
}

// Models devuelve el catálogo completo: incorporados y personalizados.
func (s *Service) Models(ctx context.Context) ([]domain.Model, error) {
	out := append([]domain.Model(nil), domain.BuiltinModels...)
	custom, err := s.CustomModels(ctx)
	if err != nil {
		return out, err
	}
	for _, m := range custom {
		out = append(out, m.AsModel())
	}
	return out, nil
}

func (s *Service) sealKeys(k domain.APIKeys) (domain.APIKeys, error) {
	return mapKeys(k, s.sealer.seal)
}

func (s *Service) openKeys(k domain.APIKeys) (domain.APIKeys, error) {
	return mapKeys(k, s.sealer.open)
}

func mapKeys(k domain.APIKeys, fn func(string) (string, error)) (domain.APIKeys, error) {
	var out domain.APIKeys
	var err error
	if out.OpenAI, err = fn(k.OpenAI); err != nil {
		return domain.APIKeys{}, err
	}
	if out.Gemini, err = fn(k.Gemini); err != nil {
		return domain.APIKeys{}, err
	}
	if out.Anthropic, err = fn(k.Anthropic); err != nil {
		return domain.APIKeys{}, err
	}
	if out.Grok, err = fn(k.Grok); err != nil {
		return domain.APIKeys{}, err
	}
	return out, nil
}
