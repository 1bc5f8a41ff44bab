package identity

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"amicable/pkg/domain"
	"amicable/pkg/platform/circuit"
	"amicable/pkg/platform/middleware/auth"
)

const cacheKeyPrefix = "identity:principal:"

// RedisCache memoizes a Resolver in Redis. Only successful resolutions are
// cached, keyed by a hash of the token so raw tokens never reach Redis.
// Redis failures fall back to the wrapped resolver; the circuit breaker only
// decides when to log the degradation and when to stop writing.
type RedisCache struct {
	client  redis.Cmdable
	next    auth.Resolver
	ttl     time.Duration
	breaker *circuit.Breaker
	logger  *slog.Logger
}

func NewRedisCache(client redis.Cmdable, next auth.Resolver, ttl time.Duration, logger *slog.Logger) *RedisCache {
	if ttl <= 0 {
		ttl = time.Minute
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisCache{
		client:  client,
		next:    next,
		ttl:     ttl,
		breaker: circuit.New("identity-cache"),
		logger:  logger,
	}
}

func (c *RedisCache) Resolve(ctx context.Context, token string) (domain.Principal, error) {
	key := cacheKey(token)

	raw, err := c.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		c.recordSuccess(ctx)
		var p domain.Principal
		if jsonErr := json.Unmarshal(raw, &p); jsonErr == nil {
			return p, nil
		}
	case errors.Is(err, redis.Nil):
		c.recordSuccess(ctx)
	default:
		c.recordFailure(ctx, err)
	}

	p, err := c.next.Resolve(ctx, token)
	if err != nil {
		return domain.Principal{}, err
	}
	if c.breaker.IsOpen() {
		return p, nil
	}
	if raw, err := json.Marshal(p); err == nil {
		if err := c.client.Set(ctx, key, raw, c.ttl).Err(); err != nil {
			c.recordFailure(ctx, err)
		}
	}
	return p, nil
}

func (c *RedisCache) recordSuccess(ctx context.Context) {
	if _, change := c.breaker.RecordSuccess(); change.Closed {
		c.logger.InfoContext(ctx, "identity cache recovered", "breaker", c.breaker.Name())
	}
}

func (c *RedisCache) recordFailure(ctx context.Context, err error) {
	if _, change := c.breaker.RecordFailure(); change.Opened {
		c.logger.WarnContext(ctx, "identity cache degraded, resolving without cache",
			"breaker", c.breaker.Name(),
			"error", err,
		)
	}
}

func cacheKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return cacheKeyPrefix + hex.EncodeToString(sum[:])
}
