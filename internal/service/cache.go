package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"sort-voting/internal/dto"
)

// ResultCache 结果缓存存储，由 pkg/redis.Client 实现
type ResultCache interface {
	GetJSON(ctx context.Context, key string, dest interface{}) (bool, error)
	SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Incr(ctx context.Context, key string) (int64, error)
	GetInt64(ctx context.Context, key string) (int64, error)
	Delete(ctx context.Context, keys ...string) error
}

// TokenBlacklist Token 黑名单，由 pkg/redis.Client 实现
type TokenBlacklist interface {
	BlacklistToken(ctx context.Context, jti string, ttl time.Duration) error
	IsBlacklisted(ctx context.Context, jti string) (bool, error)
}

// resultsGenKey 活动结果的世代计数器，每次写操作自增
func resultsGenKey(activityID int64) string {
	return fmt.Sprintf("sortvoting:results:gen:%d", activityID)
}

func resultsCacheKey(activityID, gen int64) string {
	return fmt.Sprintf("sortvoting:results:%d:%d", activityID, gen)
}

// resultCacher 对结果缓存的读写封装；缓存不可用时所有操作静默降级。
// 缓存键包含世代号：invalidate 自增世代后，旧世代下写入的聚合不会再被读到。
type resultCacher struct {
	cache  ResultCache
	ttl    time.Duration
	logger *zap.Logger
}

func newResultCacher(cache ResultCache, ttl time.Duration, logger *zap.Logger) *resultCacher {
	return &resultCacher{cache: cache, ttl: ttl, logger: logger}
}

func (c *resultCacher) enabled() bool {
	return c != nil && c.cache != nil && c.ttl > 0
}

// generation 读取当前世代；ok=false 时本次请求不使用缓存
func (c *resultCacher) generation(ctx context.Context, activityID int64) (int64, bool) {
	gen, err := c.cache.GetInt64(ctx, resultsGenKey(activityID))
	if err != nil {
		c.logger.Warn("读取结果缓存世代失败", zap.Int64("activity_id", activityID), zap.Error(err))
		return 0, false
	}
	return gen, true
}

// get 返回命中的结果；未命中时 gen 供随后的 set 使用，usable=false 表示跳过缓存
func (c *resultCacher) get(ctx context.Context, activityID int64) (resp *dto.ResultsResponse, gen int64, usable bool) {
	if !c.enabled() {
		return nil, 0, false
	}
	gen, ok := c.generation(ctx, activityID)
	if !ok {
		return nil, 0, false
	}

	var cached dto.ResultsResponse
	found, err := c.cache.GetJSON(ctx, resultsCacheKey(activityID, gen), &cached)
	if err != nil {
		c.logger.Warn("读取结果缓存失败", zap.Int64("activity_id", activityID), zap.Error(err))
		return nil, gen, true
	}
	if !found {
		return nil, gen, true
	}
	return &cached, gen, true
}

// set 仅当世代自读取以来未变化时写入
func (c *resultCacher) set(ctx context.Context, resp *dto.ResultsResponse, gen int64) {
	if !c.enabled() {
		return
	}
	current, ok := c.generation(ctx, resp.ActivityID)
	if !ok || current != gen {
		c.logger.Debug("结果已过期，跳过写入缓存",
			zap.Int64("activity_id", resp.ActivityID),
			zap.Int64("read_gen", gen),
			zap.Int64("current_gen", current),
		)
		return
	}
	if err := c.cache.SetJSON(ctx, resultsCacheKey(resp.ActivityID, gen), resp, c.ttl); err != nil {
		c.logger.Warn("写入结果缓存失败", zap.Int64("activity_id", resp.ActivityID), zap.Error(err))
	}
}

// invalidate 任何写操作提交后调用：自增世代并删除上一世代的缓存
func (c *resultCacher) invalidate(ctx context.Context, activityID int64) {
	if c == nil || c.cache == nil {
		return
	}
	gen, err := c.cache.Incr(ctx, resultsGenKey(activityID))
	if err != nil {
		c.logger.Warn("自增结果缓存世代失败", zap.Int64("activity_id", activityID), zap.Error(err))
		return
	}
	if err := c.cache.Delete(ctx, resultsCacheKey(activityID, gen-1)); err != nil {
		c.logger.Warn("清除结果缓存失败", zap.Int64("activity_id", activityID), zap.Error(err))
	}
}
