package session

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/suite"

	"github.com/onairos/onairos-go/internal/testutil"
	"github.com/onairos/onairos-go/pkg/api"
)

const testPrefix = "onairos:test:"

type RedisStoreTestSuite struct {
	suite.Suite
	client *redis.Client
	store  *RedisStore
}

func TestRedisStoreTestSuite(t *testing.T) {
	addr := testutil.RedisAddress(t)

	s := new(RedisStoreTestSuite)
	s.client = redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() {
		_ = s.client.Close()
	})
	s.store = NewRedisStore(s.client, testPrefix)

	suite.Run(t, s)
}

// SetupTest clears all keys under the test prefix for a clean slate.
func (s *RedisStoreTestSuite) SetupTest() {
	ctx := context.Background()
	iter := s.client.Scan(ctx, 0, testPrefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		s.Require().NoError(s.client.Del(ctx, iter.Val()).Err())
	}
	s.Require().NoError(iter.Err())
}

func (s *RedisStoreTestSuite) TestConformance() {
	runStoreConformance(s.T(), s.store)
}

func (s *RedisStoreTestSuite) TestConnectionIndexStaysConsistent() {
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	for _, p := range []api.Platform{api.PlatformReddit, api.PlatformPinterest} {
		s.Require().NoError(s.store.Connect(ctx, api.PlatformConnection{
			Platform:    p,
			AccessToken: "at-" + string(p),
			ConnectedAt: now,
		}))
	}

	members, err := s.client.SMembers(ctx, testPrefix+"connidx").Result()
	s.Require().NoError(err)
	s.Require().ElementsMatch(t2s(api.PlatformPinterest, api.PlatformReddit), members)

	s.Require().NoError(s.store.Disconnect(ctx, api.PlatformReddit))
	members, err = s.client.SMembers(ctx, testPrefix+"connidx").Result()
	s.Require().NoError(err)
	s.Require().ElementsMatch(t2s(api.PlatformPinterest), members)
}

func t2s(platforms ...api.Platform) []string {
	out := make([]string, len(platforms))
	for i, p := range platforms {
		out[i] = string(p)
	}
	return out
}
