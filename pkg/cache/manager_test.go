package cache

import (
	"context"
	"net/url"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

// setupTestRedis creates a test Redis client. Tests are skipped when no
// local Redis is available; the full flow is covered by the
// testcontainers-backed integration tests.
func setupTestRedis(t *testing.T) *redis.Client {
	t.Helper()

	client := redis.NewClient(&redis.Options{
		Addr: "localhost:6379",
		DB:   15, // Use a separate DB for tests
	})

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("Redis not available for testing: %v", err)
	}

	if err := client.FlushDB(ctx).Err(); err != nil {
		t.Fatalf("Failed to flush test DB: %v", err)
	}

	t.Cleanup(func() {
		client.FlushDB(context.Background())
		client.Close()
	})

	return client
}

func searchKey(term string) Key {
	return Key{
		Endpoint: "esearch",
		Params: url.Values{
			"db":   []string{"nuccore"},
			"term": []string{term},
		},
	}
}

func TestNewManager(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
	defer client.Close()

	manager := NewManager(client, time.Hour)
	if manager == nil {
		t.Fatal("NewManager returned nil")
	}
	if manager.TTL() != time.Hour {
		t.Errorf("TTL() = %v, want 1h", manager.TTL())
	}
}

func TestNewManager_DefaultTTL(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
	defer client.Close()

	manager := NewManager(client, 0)
	if manager.TTL() != time.Hour {
		t.Errorf("TTL() = %v, want default 1h", manager.TTL())
	}
}

func TestNewManager_Panic(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("NewManager should panic with nil redis client")
		}
	}()
	NewManager(nil, time.Hour)
}

func TestManager_SetAndGet(t *testing.T) {
	client := setupTestRedis(t)
	manager := NewManager(client, time.Hour)
	ctx := context.Background()

	key := searchKey("WA-PHL-007327")
	body := []byte(`{"esearchresult":{"idlist":["2713407330"]}}`)

	if err := manager.Set(ctx, key, body); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	got, err := manager.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if string(got) != string(body) {
		t.Errorf("Get() = %s, want %s", got, body)
	}
}

func TestManager_GetMiss(t *testing.T) {
	client := setupTestRedis(t)
	manager := NewManager(client, time.Hour)

	_, err := manager.Get(context.Background(), searchKey("never-stored"))
	if err != ErrCacheMiss {
		t.Errorf("Get() error = %v, want ErrCacheMiss", err)
	}
}

func TestManager_SetEmptyBody(t *testing.T) {
	client := setupTestRedis(t)
	manager := NewManager(client, time.Hour)

	if err := manager.Set(context.Background(), searchKey("x"), nil); err == nil {
		t.Error("Set() with empty body should return error")
	}
}

func TestManager_Delete(t *testing.T) {
	client := setupTestRedis(t)
	manager := NewManager(client, time.Hour)
	ctx := context.Background()

	key := searchKey("USA/WA-S11375/2021")
	if err := manager.Set(ctx, key, []byte(`{}`)); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	if err := manager.Delete(ctx, key); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	if _, err := manager.Get(ctx, key); err != ErrCacheMiss {
		t.Errorf("Get() after delete error = %v, want ErrCacheMiss", err)
	}
}

func TestManager_TTLExpiry(t *testing.T) {
	client := setupTestRedis(t)
	manager := NewManager(client, 50*time.Millisecond)
	ctx := context.Background()

	key := searchKey("short-lived")
	if err := manager.Set(ctx, key, []byte(`{}`)); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	time.Sleep(100 * time.Millisecond)

	if _, err := manager.Get(ctx, key); err != ErrCacheMiss {
		t.Errorf("Get() after TTL expiry error = %v, want ErrCacheMiss", err)
	}
}

func TestEntry_Age(t *testing.T) {
	entry := Entry{
		Body:     []byte(`{}`),
		CachedAt: time.Now().Add(-time.Minute),
	}

	age := entry.Age()
	if age < 59*time.Second || age > 61*time.Second {
		t.Errorf("Age() = %v, want ~1m", age)
	}
}
