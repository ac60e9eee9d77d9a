package chatapi

import (
	"errors"
	"fmt"
)

// Operaciones del API remoto, usadas en los errores.
const (
	OpSendMessage     = "send message"
	OpFetchHistory    = "fetch chat history"
	OpFetchChats      = "fetch chats"
	OpDeleteChat      = "delete chat"
	OpSaveCustomModel = "save custom model"
)

// fallbackMessages es el texto para el usuario cuando el servidor no manda error.
var fallbackMessages = map[string]string{
	OpSendMessage:     "Failed to send message",
	OpFetchHistory:    "Failed to fetch chat history",
	OpFetchChats:      "Failed to fetch chats",
	OpDeleteChat:      "Failed to delete chat",
	OpSaveCustomModel: "Failed to save custom model",
}

// ErrDeleteRejected se devuelve cuando el servidor responde success=false al borrar.
var ErrDeleteRejected = errors.New("failed to delete chat")

// NetworkError indica que el servidor no fue alcanzable.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s: failed to connect to the server: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// ServerError es una respuesta no-2xx con el mensaje que mandó el servidor.
type ServerError struct {
	Op      string
	Status  int
	Message string
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("%s: server error status=%d: %s", e.Op, e.Status, e.Message)
}

// UserMessage devuelve el texto legible para mostrar al usuario.
func UserMessage(err error) string {
	var se *ServerError
	if errors.As(err, &se) {
		if se.Message != "" {
			return se.Message
		}
		if msg, ok := fallbackMessages[se.Op]; ok {
			return msg
		}
		return "Request failed"
	}
	var ne *NetworkError
	if errors.As(err, &ne) {
		return "Failed to connect to the server"
	}
	if errors.Is(err, ErrDeleteRejected) {
		return "Failed to delete chat"
	}
	if err != nil {
		return err.Error()
	}
	return ""
}
