//go:build integration

package cache_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	platformredis "memgate/internal/platform/redis"
	"memgate/internal/registry/cache"
	"memgate/internal/registry/models"
	"memgate/pkg/testutil/containers"
)

type StatusCacheSuite struct {
	suite.Suite
	redis *containers.RedisContainer
	cache *cache.StatusCache
	ctx   context.Context
}

func TestStatusCacheSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(StatusCacheSuite))
}

func (s *StatusCacheSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.redis = mgr.GetRedis(s.T())
	s.ctx = context.Background()

	client, err := platformredis.New(s.redis.Addr)
	s.Require().NoError(err)
	s.cache = cache.New(client, time.Minute)
}

func (s *StatusCacheSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(s.ctx))
}

func (s *StatusCacheSuite) TestSetAndGet() {
	s.Require().NoError(s.cache.SetStatus(s.ctx, "ollama-llama3", models.StatusBlocked))

	status, ok, err := s.cache.GetStatus(s.ctx, "ollama-llama3")
	s.Require().NoError(err)
	s.True(ok)
	s.Equal(models.StatusBlocked, status)
}

func (s *StatusCacheSuite) TestMissingKey() {
	status, ok, err := s.cache.GetStatus(s.ctx, "never-seen")
	s.Require().NoError(err)
	s.False(ok)
	s.Empty(status)
}

func (s *StatusCacheSuite) TestTTLExpiry() {
	short := cache.New(mustClient(s), 50*time.Millisecond)
	s.Require().NoError(short.SetStatus(s.ctx, "ollama-phi3", models.StatusApproved))

	time.Sleep(120 * time.Millisecond)

	_, ok, err := short.GetStatus(s.ctx, "ollama-phi3")
	s.Require().NoError(err)
	s.False(ok)
}

func mustClient(s *StatusCacheSuite) *platformredis.Client {
	client, err := platformredis.New(s.redis.Addr)
	s.Require().NoError(err)
	return client
}
