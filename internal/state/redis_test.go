package state

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

func redisRepo(t *testing.T) *RedisRepository {
	t.Helper()
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { client.Close() })
	if err := client.Ping(context.Background()).Err(); err != nil {
		t.Skipf("redis unavailable at %s: %v", addr, err)
	}
	return NewRedisRepository(client, "timing-test:"+uuid.New().String()+":")
}

func TestRedisSetGetDelete(t *testing.T) {
	ctx := context.Background()
	r := redisRepo(t)

	if _, ok, err := r.Get(ctx, "policy:a"); err != nil || ok {
		t.Fatalf("expected missing key, got ok=%v err=%v", ok, err)
	}
	if err := r.Set(ctx, "policy:a", []byte("payload")); err != nil {
		t.Fatalf("Set: %v", err)
	}
	v, ok, err := r.Get(ctx, "policy:a")
	if err != nil || !ok || string(v) != "payload" {
		t.Fatalf("Get: v=%q ok=%v err=%v", v, ok, err)
	}
	if err := r.Delete(ctx, "policy:a"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, ok, _ := r.Get(ctx, "policy:a"); ok {
		t.Fatal("expected key gone after delete")
	}
}

func TestRedisUnreachable(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", MaxRetries: -1})
	defer client.Close()
	r := NewRedisRepository(client, "x:")

	if _, _, err := r.Get(context.Background(), "k"); err == nil {
		t.Fatal("expected connection error")
	}
}
