package settings

import (
	"context"
	"errors"
	"strings"
	"testing"

	"chat-front/internal/domain"
)

func TestLoadAPIKeysDefaults(t *testing.T) {
	svc := NewService(NewMemoryStore(), "", domain.APIKeys{OpenAI: "env-key"}, nil)
	keys, err := svc.LoadAPIKeys(context.Background())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if keys.OpenAI != "env-key" {
		t.Fatalf("expected env default, got %+v", keys)
	}
}

func TestSaveAndLoadAPIKeys(t *testing.T) {
	store := NewMemoryStore()
	svc := NewService(store, "s3cret", domain.APIKeys{OpenAI: "env-key"}, nil)
	in := domain.APIKeys{OpenAI: "sk-openai", Anthropic: "sk-ant"}

	if err := svc.SaveAPIKeys(context.Background(), in); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	raw, _, _ := store.Get(context.Background(), keyAPIKeys)
	if strings.Contains(raw, "sk-openai") {
		t.Fatalf("expected keys to be sealed at rest, got %s", raw)
	}

	out, err := svc.LoadAPIKeys(context.Background())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if out != in {
		t.Fatalf("expected %+v, got %+v", in, out)
	}

	other := NewService(store, "another", domain.APIKeys{}, nil)
	if _, err := other.LoadAPIKeys(context.Background()); !errors.Is(err, ErrUnsealFailed) {
		t.Fatalf("expected ErrUnsealFailed with a different secret, got %v", err)
	}
}

func TestSaveAPIKeysWithoutSecretStoresPlain(t *testing.T) {
	store := NewMemoryStore()
	svc := NewService(store, "", domain.APIKeys{}, nil)
	if err := svc.SaveAPIKeys(context.Background(), domain.APIKeys{Grok: "xai"}); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	raw, _, _ := store.Get(context.Background(), keyAPIKeys)
	if !strings.Contains(raw, `"grok":"xai"`) {
		t.Fatalf("expected plain value, got %s", raw)
	}
}

func TestCustomModels(t *testing.T) {
	svc := NewService(NewMemoryStore(), "s3cret", domain.APIKeys{}, nil)
	ctx := context.Background()

	models, err := svc.CustomModels(ctx)
	if err != nil || len(models) != 0 {
		t.Fatalf("expected empty list, got %+v err=%v", models, err)
	}

	saved, err := svc.AddCustomModel(ctx, domain.CustomModel{ID: "Local Llama", Name: "Llama", APIEndpoint: "http://llama", APIKey: "k1"})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if saved.ID != "local-llama" {
		t.Fatalf("expected normalized id, got %q", saved.ID)
	}
	if _, err := svc.AddCustomModel(ctx, domain.CustomModel{ID: "local-llama", Name: "Llama 2", APIEndpoint: "http://llama2", APIKey: "k2"}); err != nil {
		t.Fatalf("expected replace to succeed, got %v", err)
	}

	models, _ = svc.CustomModels(ctx)
	if len(models) != 1 || models[0].Name != "Llama 2" || models[0].APIKey != "k2" {
		t.Fatalf("expected replaced model with opened key, got %+v", models)
	}

	m, ok, err := svc.ResolveCustomModel(ctx, "local-llama")
	if err != nil || !ok || m.APIEndpoint != "http://llama2" {
		t.Fatalf("unexpected resolve result %+v ok=%v err=%v", m, ok, err)
	}
	if _, ok, _ := svc.ResolveCustomModel(ctx, "missing"); ok {
		t.Fatalf("expected missing model not found")
	}

	catalog, err := svc.Models(ctx)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(catalog) != len(domain.BuiltinModels)+1 || !catalog[len(catalog)-1].Custom {
		t.Fatalf("unexpected catalog %+v", catalog)
	}
}

func TestDeleteCustomModel(t *testing.T) {
	svc := NewService(NewMemoryStore(), "s3cret", domain.APIKeys{}, nil)
	ctx := context.Background()
	for _, id := range []string{"llama", "mistral"} {
		if _, err := svc.AddCustomModel(ctx, domain.CustomModel{ID: id, Name: id, APIEndpoint: "http://" + id, APIKey: "k-" + id}); err != nil {
			t.Fatalf("add %s: %v", id, err)
		}
	}

	deleted, err := svc.DeleteCustomModel(ctx, " Llama ")
	if err != nil || !deleted {
		t.Fatalf("expected llama deleted, got deleted=%v err=%v", deleted, err)
	}
	models, _ := svc.CustomModels(ctx)
	if len(models) != 1 || models[0].ID != "mistral" || models[0].APIKey != "k-mistral" {
		t.Fatalf("unexpected remaining models %+v", models)
	}

	deleted, err = svc.DeleteCustomModel(ctx, "llama")
	if err != nil || deleted {
		t.Fatalf("expected second delete to report missing, got deleted=%v err=%v", deleted, err)
	}

	var nilSvc *Service
	if _, err := nilSvc.DeleteCustomModel(ctx, "x"); !errors.Is(err, ErrSettingsNotConfigured) {
		t.Fatalf("expected ErrSettingsNotConfigured, got %v", err)
	}
}

func TestAddCustomModelValidation(t *testing.T) {
	svc := NewService(NewMemoryStore(), "", domain.APIKeys{}, nil)
	_, err := svc.AddCustomModel(context.Background(), domain.CustomModel{ID: "x"})
	if !errors.Is(err, domain.ErrCustomModelIncomplete) {
		t.Fatalf("expected ErrCustomModelIncomplete, got %v", err)
	}
}

func TestCorruptCustomModelsIgnored(t *testing.T) {
	store := NewMemoryStore()
	_ = store.Set(context.Background(), keyCustomModels, "{not json")
	svc := NewService(store, "", domain.APIKeys{}, nil)
	models, err := svc.CustomModels(context.Background())
	if err != nil || len(models) != 0 {
		t.Fatalf("expected corrupt value to be ignored, got %+v err=%v", models, err)
	}
}

func TestServiceNotConfigured(t *testing.T) {
	var svc *Service
	if _, err := svc.LoadAPIKeys(context.Background()); !errors.Is(err, ErrSettingsNotConfigured) {
		t.Fatalf("expected ErrSettingsNotConfigured, got %v", err)
	}
	svc = NewService(nil, "", domain.APIKeys{}, nil)
	if err := svc.SaveAPIKeys(context.Background(), domain.APIKeys{}); !errors.Is(err, ErrSettingsNotConfigured) {
		t.Fatalf("expected ErrSettingsNotConfigured, got %v", err)
	}
}
