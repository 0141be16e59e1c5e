package biz

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"github.com/kart-io/logger"
	"github.com/redis/go-redis/v9"

	"github.com/tradementor/tradementor/internal/model"
	"github.com/tradementor/tradementor/pkg/jsonutil"
)

// AnswerCache caches parsed sync answers keyed by the request digest.
type AnswerCache interface {
	Get(ctx context.Context, key string) (*model.StructuredAnswer, bool)
	Set(ctx context.Context, key string, answer *model.StructuredAnswer)
}

type redisAnswerCache struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
}

var _ AnswerCache = (*redisAnswerCache)(nil)

// NewRedisAnswerCache wraps a redis client as an AnswerCache. Cache
// failures are logged and treated as misses; they never fail a query.
func NewRedisAnswerCache(client *redis.Client, ttl time.Duration, prefix string) AnswerCache {
	return &redisAnswerCache{client: client, ttl: ttl, prefix: prefix}
}

func (c *redisAnswerCache) Get(ctx context.Context, key string) (*model.StructuredAnswer, bool) {
	data, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			logger.Warnw("answer cache get failed", "error", err)
		}
		return nil, false
	}

	var answer model.StructuredAnswer
	if err := jsonutil.Unmarshal(data, &answer); err != nil {
		logger.Warnw("answer cache entry corrupt, ignoring", "key", key, "error", err)
		return nil, false
	}
	return &answer, true
}

func (c *redisAnswerCache) Set(ctx context.Context, key string, answer *model.StructuredAnswer) {
	data, err := jsonutil.Marshal(answer)
	if err != nil {
		logger.Warnw("answer cache marshal failed", "error", err)
		return
	}
	if err := c.client.Set(ctx, c.prefix+key, data, c.ttl).Err(); err != nil {
		logger.Warnw("answer cache set failed", "error", err)
	}
}

// cacheKeyInput pins the fields that make two requests equivalent.
type cacheKeyInput struct {
	Question      string                 `json:"question"`
	TradeAnalysis string                 `json:"trade_analysis"`
	Overrides     *model.PromptOverrides `json:"overrides,omitempty"`
	Schema        string                 `json:"schema"`
}

// CacheKey derives a stable digest for a query request under the given
// answer schema.
func CacheKey(req *model.QueryRequest, schema string) string {
	data, err := jsonutil.Marshal(cacheKeyInput{
		Question:      req.Question,
		TradeAnalysis: req.TradeAnalysis,
		Overrides:     req.PromptOverrides,
		Schema:        schema,
	})
	if err != nil {
		data = []byte(req.Question + "|" + schema)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
