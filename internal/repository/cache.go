package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"chess_review/internal/domain"
)

const analysisKeyPrefix = "analysis:"

// RedisAnalysisCache keeps finished engine results for repeat lookups across
// processes and restarts.
type RedisAnalysisCache struct {
	client *redis.Client
	ttl    time.Duration
	log    *zap.SugaredLogger
}

func NewRedisAnalysisCache(client *redis.Client, ttl time.Duration, log *zap.SugaredLogger) *RedisAnalysisCache {
	return &RedisAnalysisCache{
		client: client,
		ttl:    ttl,
		log:    log,
	}
}

// CacheKey includes the line count, which the coalescing identity leaves out.
func CacheKey(req domain.AnalysisRequest) string {
	return fmt.Sprintf("%s%s|k%d", analysisKeyPrefix, req.Key(), req.MultiPV)
}

func (r *RedisAnalysisCache) Get(ctx context.Context, req domain.AnalysisRequest) (domain.AnalysisResult, bool) {
	v, err := r.client.Get(ctx, CacheKey(req)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			r.log.Warnf("analysis cache read failed: %v", err)
		}
		return domain.AnalysisResult{}, false
	}
	var res domain.AnalysisResult
	if err := json.Unmarshal(v, &res); err != nil {
		r.log.Warnf("dropping corrupt analysis cache entry: %v", err)
		return domain.AnalysisResult{}, false
	}
	return res, true
}

func (r *RedisAnalysisCache) Set(ctx context.Context, req domain.AnalysisRequest, res domain.AnalysisResult) {
	body, err := json.Marshal(res)
	if err != nil {
		r.log.Warnf("analysis cache encode failed: %v", err)
		return
	}
	if err := r.client.Set(ctx, CacheKey(req), body, r.ttl).Err(); err != nil {
		r.log.Warnf("analysis cache write failed: %v", err)
	}
}
