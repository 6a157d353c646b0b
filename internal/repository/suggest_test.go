package repository

import (
	"context"
	"os"
	"testing"
	"time"

	"messenger/pkg/logger"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Redis-тесты выполняются только при живом сервере,
// иначе пропускаются целиком
func newTestRedis(t *testing.T) *redis.Client {
	t.Helper()

	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}

	client := redis.NewClient(&redis.Options{Addr: addr, DB: 15})
	if err := client.Ping(context.Background()).Err(); err != nil {
		t.Skipf("redis is not available at %s: %v", addr, err)
	}

	t.Cleanup(func() {
		client.FlushDB(context.Background())
		client.Close()
	})
	return client
}

func TestSuggestRepositoryTopByPrefix(t *testing.T) {
	client := newTestRedis(t)
	repo := NewSuggestRepository(client, logger.New("error"))
	userID := uuid.New()
	ctx := context.Background()

	// hello встречается трижды, help дважды, hero один раз
	if err := repo.IncrementWords(ctx, userID, []string{"hello", "help", "hero"}); err != nil {
		t.Fatalf("IncrementWords: %v", err)
	}
	if err := repo.IncrementWords(ctx, userID, []string{"hello", "help"}); err != nil {
		t.Fatalf("IncrementWords: %v", err)
	}
	if err := repo.IncrementWords(ctx, userID, []string{"hello", "world"}); err != nil {
		t.Fatalf("IncrementWords: %v", err)
	}

	words, err := repo.TopByPrefix(ctx, userID, "he", 10)
	if err != nil {
		t.Fatalf("TopByPrefix: %v", err)
	}

	want := []string{"hello", "help", "hero"}
	if len(words) != len(want) {
		t.Fatalf("words = %v, want %v", words, want)
	}
	for i := range want {
		if words[i] != want[i] {
			t.Fatalf("words = %v, want %v (frequency order)", words, want)
		}
	}
}

func TestSuggestRepositoryIsolatedPerUser(t *testing.T) {
	client := newTestRedis(t)
	repo := NewSuggestRepository(client, logger.New("error"))
	ctx := context.Background()

	alice := uuid.New()
	bob := uuid.New()
	if err := repo.IncrementWords(ctx, alice, []string{"secret"}); err != nil {
		t.Fatalf("IncrementWords: %v", err)
	}

	words, err := repo.TopByPrefix(ctx, bob, "se", 10)
	if err != nil {
		t.Fatalf("TopByPrefix: %v", err)
	}
	if len(words) != 0 {
		t.Fatalf("words for other user = %v, want empty", words)
	}
}

func TestPresenceRepositoryLifecycle(t *testing.T) {
	client := newTestRedis(t)
	repo := NewPresenceRepository(client, logger.New("error"))
	userID := uuid.New()
	ctx := context.Background()

	online, err := repo.IsOnline(ctx, userID)
	if err != nil {
		t.Fatalf("IsOnline: %v", err)
	}
	if online {
		t.Fatal("unknown user reported online")
	}

	if err := repo.SetOnline(ctx, userID, time.Minute); err != nil {
		t.Fatalf("SetOnline: %v", err)
	}
	if online, _ = repo.IsOnline(ctx, userID); !online {
		t.Fatal("user not reported online after SetOnline")
	}

	if err := repo.SetOffline(ctx, userID); err != nil {
		t.Fatalf("SetOffline: %v", err)
	}
	if online, _ = repo.IsOnline(ctx, userID); online {
		t.Fatal("user still online after SetOffline")
	}
}

func TestRateLimitRepositoryWindow(t *testing.T) {
	client := newTestRedis(t)
	repo := NewRateLimitRepository(client, logger.New("error"))
	ctx := context.Background()
	key := "test-client"

	allowed, err := repo.CheckLimit(ctx, key, 2, time.Minute)
	if err != nil {
		t.Fatalf("CheckLimit: %v", err)
	}
	if !allowed {
		t.Fatal("fresh key must be allowed")
	}

	for i := 0; i < 2; i++ {
		if _, err := repo.Increment(ctx, key, time.Minute); err != nil {
			t.Fatalf("Increment: %v", err)
		}
	}

	allowed, err = repo.CheckLimit(ctx, key, 2, time.Minute)
	if err != nil {
		t.Fatalf("CheckLimit: %v", err)
	}
	if allowed {
		t.Fatal("key over the limit must be rejected")
	}
}
