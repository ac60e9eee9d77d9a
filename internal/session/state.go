package session

import "chat-front/internal/domain"

// State es una instantánea inmutable del controlador.
type State struct {
	Version          uint64           `json:"version"`
	ActiveSessionID  string           `json:"active_session_id,omitempty"`
	Model            string           `json:"model"`
	Messages         []domain.Message `json:"messages"`
	IsSending        bool             `json:"is_sending"`
	IsLoadingHistory bool             `json:"is_loading_history"`
}

// IsNewChat indica si la conversación todavía no existe en el servidor.
func (s State) IsNewChat() bool {
	return s.ActiveSessionID == ""
}
