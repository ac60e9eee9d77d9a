package domain

import (
	"errors"
	"regexp"
	"strings"
)

// Provider identifica a quién pertenece la API key que necesita un modelo.
type Provider string

const (
	ProviderOpenAI    Provider = "openai"
	ProviderGemini    Provider = "gemini"
	ProviderAnthropic Provider = "anthropic"
	ProviderGrok      Provider = "grok"
	ProviderCustom    Provider = "custom"
)

const (
	ModelChatGPT = "chatgpt"
	ModelGemini  = "gemini"
	ModelClaude  = "claude"
	ModelGrok    = "grok"
)

// Model describe una opción del selector de modelos.
type Model struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Provider Provider `json:"provider"`
	Custom   bool     `json:"custom"`
}

// BuiltinModels son los modelos que el backend conoce sin configuración extra.
var BuiltinModels = []Model{
	{ID: ModelChatGPT, Name: "ChatGPT", Provider: ProviderOpenAI},
	{ID: ModelGemini, Name: "Gemini", Provider: ProviderGemini},
	{ID: ModelClaude, Name: "Claude", Provider: ProviderAnthropic},
	{ID: ModelGrok, Name: "Grok", Provider: ProviderGrok},
}

// LookupBuiltin busca un modelo incorporado por id.
func LookupBuiltin(id string) (Model, bool) {
	for _, m := range BuiltinModels {
		if m.ID == id {
			return m, true
		}
	}
	return Model{}, false
}

// IsBuiltin indica si el id corresponde a un modelo incorporado.
func IsBuiltin(id string) bool {
	_, ok := LookupBuiltin(id)
	return ok
}

// DisplayName devuelve el nombre visible del modelo; para ids desconocidos, el id.
func DisplayName(id string) string {
	if m, ok := LookupBuiltin(id); ok {
		return m.Name
	}
	return id
}

var (
	ErrCustomModelIncomplete = errors.New("custom model requires name, id, api endpoint and api key")
	ErrCustomModelReserved   = errors.New("custom model id collides with a builtin model")
)

// CustomModel es un modelo definido por el usuario y guardado localmente.
type CustomModel struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	APIEndpoint string `json:"apiEndpoint"`
	APIKey      string `json:"apiKey"`
}

var whitespaceRun = regexp.MustCompile(`\s+`)

// NormalizeModelID pasa el id a minúsculas y reemplaza espacios por guiones.
func NormalizeModelID(id string) string {
	return whitespaceRun.ReplaceAllString(strings.ToLower(strings.TrimSpace(id)), "-")
}

// Normalize limpia los campos y valida el modelo.
func (m CustomModel) Normalize() (CustomModel, error) {
	out := CustomModel{
		ID:          NormalizeModelID(m.ID),
		Name:        strings.TrimSpace(m.Name),
		APIEndpoint: strings.TrimSpace(m.APIEndpoint),
		APIKey:      strings.TrimSpace(m.APIKey),
	}
	if out.ID == "" || out.Name == "" || out.APIEndpoint == "" || out.APIKey == "" {
		return CustomModel{}, ErrCustomModelIncomplete
	}
	if IsBuiltin(out.ID) {
		return CustomModel{}, ErrCustomModelReserved
	}
	return out, nil
}

// AsModel convierte el modelo personalizado a una entrada del selector.
func (m CustomModel) AsModel() Model {
	return Model{ID: m.ID, Name: m.Name, Provider: ProviderCustom, Custom: true}
}

// APIKeys son las claves de proveedor configuradas por el usuario.
type APIKeys struct {
	OpenAI    string `json:"openai"`
	Gemini    string `json:"gemini"`
	Anthropic string `json:"anthropic"`
	Grok      string `json:"grok"`
}

// For devuelve la clave del proveedor indicado.
func (k APIKeys) For(p Provider) string {
	switch p {
	case ProviderOpenAI:
		return k.OpenAI
	case ProviderGemini:
		return k.Gemini
	case ProviderAnthropic:
		return k.Anthropic
	case ProviderGrok:
		return k.Grok
	}
	return ""
}

// Masked oculta todo salvo los últimos cuatro caracteres de cada clave.
func (k APIKeys) Masked() APIKeys {
	return APIKeys{
		OpenAI:    maskSecret(k.OpenAI),
		Gemini:    maskSecret(k.Gemini),
		Anthropic: maskSecret(k.Anthropic),
		Grok:      maskSecret(k.Grok),
	}
}

func maskSecret(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 4 {
		return strings.Repeat("*", len(s))
	}
	return strings.Repeat("*", len(s)-4) + s[len(s)-4:]
}
