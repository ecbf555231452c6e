// Package testutil holds helpers shared by tests that need external
// backing services.
package testutil

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisAddress resolves the Redis endpoint for integration tests from
// ONAIROS_TEST_REDIS_ADDR (default localhost:6379) and skips the test when
// no server answers there.
func RedisAddress(t *testing.T) string {
	t.Helper()

	addr := os.Getenv("ONAIROS_TEST_REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}

	client := redis.NewClient(&redis.Options{Addr: addr})
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("redis not reachable at %s: %v", addr, err)
	}
	return addr
}
