package settings

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

type mockRedisKV struct {
	data   map[string]string
	getErr error
}

func (m *mockRedisKV) Get(ctx context.Context, key string) *redis.StringCmd {
	cmd := redis.NewStringCmd(ctx)
	if m.getErr != nil {
		cmd.SetErr(m.getErr)
		return cmd
	}
	v, ok := m.data[key]
	if !ok {
		cmd.SetErr(redis.Nil)
		return cmd
	}
	cmd.SetVal(v)
	return cmd
}

func (m *mockRedisKV) Set(ctx context.Context, key string, value interface{}, _ time.Duration) *redis.StatusCmd {
	cmd := redis.NewStatusCmd(ctx)
	m.data[key] = value.(string)
	cmd.SetVal("OK")
	return cmd
}

func TestRedisStore(t *testing.T) {
	t.Run("nil client", func(t *testing.T) {
		if NewRedisStore(nil) != nil {
			t.Fatalf("expected nil store for nil client")
		}
	})

	t.Run("missing key", func(t *testing.T) {
		s := &redisStore{client: &mockRedisKV{data: map[string]string{}}, prefix: redisKeyPrefix}
		_, ok, err := s.Get(context.Background(), "api-keys")
		if err != nil || ok {
			t.Fatalf("expected missing key without error, got ok=%v err=%v", ok, err)
		}
	})

	t.Run("round trip with prefix", func(t *testing.T) {
		mock := &mockRedisKV{data: map[string]string{}}
		s := &redisStore{client: mock, prefix: redisKeyPrefix}
		if err := s.Set(context.Background(), "custom-models", "[]"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if _, ok := mock.data["chatfront:settings:custom-models"]; !ok {
			t.Fatalf("expected prefixed key, got %+v", mock.data)
		}
		v, ok, err := s.Get(context.Background(), "custom-models")
		if err != nil || !ok || v != "[]" {
			t.Fatalf("unexpected get result v=%q ok=%v err=%v", v, ok, err)
		}
	})

	t.Run("redis error", func(t *testing.T) {
		s := &redisStore{client: &mockRedisKV{getErr: errors.New("redis down")}, prefix: redisKeyPrefix}
		if _, _, err := s.Get(context.Background(), "api-keys"); err == nil {
			t.Fatalf("expected error from redis")
		}
	})
}
