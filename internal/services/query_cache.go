package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/notebase/backend-go/internal/logger"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const queryEmbeddingTTL = 24 * time.Hour

// QueryEmbeddingCache 查询向量缓存。相同问题短期内重复提问时跳过向量化调用。
// 缓存故障降级为直接调用，不影响问答。
type QueryEmbeddingCache struct {
	client *redis.Client
	model  string
}

// NewQueryEmbeddingCache 创建查询向量缓存，client可为nil（禁用缓存）
func NewQueryEmbeddingCache(client *redis.Client, model string) *QueryEmbeddingCache {
	return &QueryEmbeddingCache{client: client, model: model}
}

func (c *QueryEmbeddingCache) key(query string) string {
	sum := sha256.Sum256([]byte(query))
	return fmt.Sprintf("qemb:%s:%s", c.model, hex.EncodeToString(sum[:]))
}

// Get 查询缓存，未命中或缓存不可用返回nil
func (c *QueryEmbeddingCache) Get(ctx context.Context, query string) []float32 {
	if c == nil || c.client == nil {
		return nil
	}

	data, err := c.client.Get(ctx, c.key(query)).Bytes()
	if err != nil {
		if err != redis.Nil {
			logger.Warn("query embedding cache get failed", zap.Error(err))
		}
		return nil
	}

	var vector []float32
	if err := json.Unmarshal(data, &vector); err != nil {
		logger.Warn("query embedding cache decode failed", zap.Error(err))
		return nil
	}
	return vector
}

// Set 写入缓存，失败只记录日志
func (c *QueryEmbeddingCache) Set(ctx context.Context, query string, vector []float32) {
	if c == nil || c.client == nil || len(vector) == 0 {
		return
	}

	data, err := json.Marshal(vector)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, c.key(query), data, queryEmbeddingTTL).Err(); err != nil {
		logger.Warn("query embedding cache set failed", zap.Error(err))
	}
}
