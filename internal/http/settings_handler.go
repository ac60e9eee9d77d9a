package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"chat-front/internal/domain"
	"chat-front/internal/session"
)

// SettingsService es lo que el handler necesita de internal/settings.
type SettingsService interface {
	LoadAPIKeys(ctx context.Context) (domain.APIKeys, error)
	SaveAPIKeys(ctx context.Context, keys domain.APIKeys) error
	AddCustomModel(ctx context.Context, model domain.CustomModel) (domain.CustomModel, error)
	DeleteCustomModel(ctx context.Context, id string) (bool, error)
	Models(ctx context.Context) ([]domain.Model, error)
}

// ModelRegistrar avisa al backend de un modelo personalizado nuevo.
type ModelRegistrar interface {
	RegisterCustomModel(ctx context.Context, model domain.CustomModel) (bool, error)
}

// ModelSelection es el modelo seleccionado en el controlador.
type ModelSelection interface {
	State() session.State
	DropModel(id, fallback string) bool
}

// SettingsHandler maneja API keys y modelos.
type SettingsHandler struct {
	logger    *zap.Logger
	settings  SettingsService
	registrar    ModelRegistrar
	selection    ModelSelection
	defaultModel string
}

// NewSettingsHandler crea el handler. registrar puede ser nil.
func NewSettingsHandler(
	logger *zap.Logger,
	settings SettingsService,
	registrar ModelRegistrar,
	selection ModelSelection,
	defaultModel string,
) *SettingsHandler {
	return &SettingsHandler{
		logger:       logger,
		settings:     settings,
		registrar:    registrar,
		selection:    selection,
		defaultModel: defaultModel,
	}
}

// GetAPIKeys maneja GET /settings/api-keys. Las claves salen enmascaradas.
func (h *SettingsHandler) GetAPIKeys(c *gin.Context) {
	keys, err := h.settings.LoadAPIKeys(c.Request.Context())
	if err != nil {
		h.logger.Error("load api keys failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load api keys"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"api_keys": keys.Masked()})
}

// PutAPIKeys maneja PUT /settings/api-keys.
func (h *SettingsHandler) PutAPIKeys(c *gin.Context) {
	var req domain.APIKeys
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	if err := h.settings.SaveAPIKeys(c.Request.Context(), req); err != nil {
		h.logger.Error("save api keys failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not save api keys"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"api_keys": req.Masked()})
}

// ListModels maneja GET /models.
func (h *SettingsHandler) ListModels(c *gin.Context) {
	models, err := h.settings.Models(c.Request.Context())
	if err != nil {
		// Los incorporados siguen disponibles aunque falle el almacén.
		h.logger.Warn("load custom models failed", zap.Error(err))
	}
	c.JSON(http.StatusOK, gin.H{
		"models":   models,
		"selected": h.selection.State().Model,
	})
}

// AddCustomModel maneja POST /models/custom.
func (h *SettingsHandler) AddCustomModel(c *gin.Context) {
	var req domain.CustomModel
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	model, err := h.settings.AddCustomModel(c.Request.Context(), req)
	if errors.Is(err, domain.ErrCustomModelIncomplete) || errors.Is(err, domain.ErrCustomModelReserved) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		h.logger.Error("save custom model failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not save custom model"})
		return
	}

	if h.registrar != nil {
		if _, err := h.registrar.RegisterCustomModel(c.Request.Context(), model); err != nil {
			h.logger.Warn("register custom model with backend failed", zap.String("model_id", model.ID), zap.Error(err))
		}
	}
	c.JSON(http.StatusCreated, gin.H{"model": model.AsModel()})
}

// DeleteCustomModel maneja DELETE /models/custom/:id. Si el modelo estaba
// seleccionado, se vuelve al modelo por defecto.
func (h *SettingsHandler) DeleteCustomModel(c *gin.Context) {
	id := domain.NormalizeModelID(c.Param("id"))
	deleted, err := h.settings.DeleteCustomModel(c.Request.Context(), id)
	if err != nil {
		h.logger.Error("delete custom model failed", zap.String("model_id", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not delete custom model"})
		return
	}
	if !deleted {
		c.JSON(http.StatusNotFound, gin.H{"error": "custom model not found"})
		return
	}
	h.selection.DropModel(id, h.defaultModel)
	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"selected": h.selection.State().Model,
	})
}
