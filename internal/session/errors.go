package session

import (
	"errors"
	"fmt"

	"chat-front/internal/domain"
)

var (
	// ErrEmptyMessage se devuelve cuando el contenido queda vacío tras recortar
	// espacios. No se notifica al usuario.
	ErrEmptyMessage = errors.New("empty message")
	// ErrControllerNotConfigured indica que faltan dependencias obligatorias.
	ErrControllerNotConfigured = errors.New("session controller not configured")
)

// ConfigurationError indica que el modelo elegido no tiene API key configurada.
type ConfigurationError struct {
	Model    string
	Provider domain.Provider
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("missing %s api key for model %s", e.Provider, e.Model)
}
