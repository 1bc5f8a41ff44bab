//go:build integration

package identity_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"amicable/internal/identity"
	"amicable/pkg/domain"
	"amicable/pkg/platform/middleware/auth/mocks"
	"amicable/pkg/testutil/containers"
)

type RedisCacheSuite struct {
	suite.Suite
	redis *containers.RedisContainer
}

func TestRedisCacheSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisCacheSuite))
}

func (s *RedisCacheSuite) SetupSuite() {
	s.redis = containers.GetManager().GetRedis(s.T())
}

func (s *RedisCacheSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))
}

func (s *RedisCacheSuite) TestSecondResolveHitsCache() {
	ctrl := gomock.NewController(s.T())
	defer ctrl.Finish()
	next := mocks.NewMockResolver(ctrl)
	want := domain.Principal{UserID: 9, Email: "b@example.com", IsActive: true}
	next.EXPECT().Resolve(gomock.Any(), "tok").Return(want, nil).Times(1)

	cache := identity.NewRedisCache(s.redis.Client, next, time.Minute, slog.New(slog.NewTextHandler(io.Discard, nil)))
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		got, err := cache.Resolve(ctx, "tok")
		s.Require().NoError(err)
		s.Equal(want, got)
	}

	keys, err := s.redis.Client.Keys(ctx, "identity:principal:*").Result()
	s.Require().NoError(err)
	s.Len(keys, 1)
	ttl, err := s.redis.Client.TTL(ctx, keys[0]).Result()
	s.Require().NoError(err)
	s.LessOrEqual(ttl, time.Minute)
}
