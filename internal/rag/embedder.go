package rag

import (
	"context"
	"errors"
	"time"
)

// 向量化默认参数
const (
	DefaultEmbedBatchSize = 100
	DefaultEmbedTimeout   = 5 * time.Minute
)

// Embedder 定义文本向量化接口
//
// EmbedBatch 为每条输入文本返回一个向量，顺序与输入一致。
// 实现内部按批次上限拆分输入并顺序调用上游；任一批次失败则整个调用失败，
// 已完成批次的向量不保留。
type Embedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
	Ready() bool
}

// NoopEmbedder 默认占位实现
type NoopEmbedder struct{}

func (n *NoopEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return nil, errors.New("embedding provider not configured")
}

func (n *NoopEmbedder) Dimensions() int {
	return 0
}

func (n *NoopEmbedder) Ready() bool {
	return false
}

// splitBatches 将输入拆分为大小至多为size的连续批次
func splitBatches(texts []string, size int) [][]string {
	if size <= 0 {
		size = DefaultEmbedBatchSize
	}
	var batches [][]string
	for start := 0; start < len(texts); start += size {
		end := start + size
		if end > len(texts) {
			end = len(texts)
		}
		batches = append(batches, texts[start:end])
	}
	return batches
}

// timedOut 判断错误是否由超时导致
func timedOut(ctx context.Context, err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	return ctx.Err() != nil && errors.Is(ctx.Err(), context.DeadlineExceeded)
}
