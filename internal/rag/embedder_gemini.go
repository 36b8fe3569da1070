package rag

import (
	"context"
	"errors"
	"fmt"
	"time"

	apperrors "github.com/notebase/backend-go/internal/errors"
	"github.com/notebase/backend-go/internal/gemini"
)

// Gemini Embedding模型维度映射
var geminiEmbeddingDimensions = map[string]int{
	"gemini-embedding-001": 3072,
	"text-embedding-004":   768,
}

// GeminiEmbedder 使用Gemini batchEmbedContents API
type GeminiEmbedder struct {
	client     *gemini.Client
	model      string
	batchSize  int
	timeout    time.Duration
	dimensions int
}

// NewGeminiEmbedder 创建Gemini嵌入向量生成器
func NewGeminiEmbedder(client *gemini.Client, model string, batchSize int, timeout time.Duration) Embedder {
	if client == nil || !client.Ready() {
		return &NoopEmbedder{}
	}
	if model == "" {
		model = "gemini-embedding-001"
	}
	if batchSize <= 0 {
		batchSize = DefaultEmbedBatchSize
	}
	if timeout <= 0 {
		timeout = DefaultEmbedTimeout
	}

	dims, ok := geminiEmbeddingDimensions[model]
	if !ok {
		dims = 1536
	}

	return &GeminiEmbedder{
		client:     client,
		model:      model,
		batchSize:  batchSize,
		timeout:    timeout,
		dimensions: dims,
	}
}

func (e *GeminiEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, apperrors.NewEmbeddingServiceError("no input texts", 0, nil)
	}

	vectors := make([][]float32, 0, len(texts))
	for _, batch := range splitBatches(texts, e.batchSize) {
		batchVectors, err := e.embedOneBatch(ctx, batch)
		if err != nil {
			// 任一批次失败，丢弃已完成批次的结果
			return nil, err
		}
		vectors = append(vectors, batchVectors...)
	}
	return vectors, nil
}

func (e *GeminiEmbedder) embedOneBatch(ctx context.Context, batch []string) ([][]float32, error) {
	batchCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	vectors, err := e.client.BatchEmbed(batchCtx, e.model, batch)
	if err != nil {
		if timedOut(batchCtx, err) {
			return nil, apperrors.NewEmbeddingTimeout(fmt.Sprintf("embedding batch of %d texts timed out after %s", len(batch), e.timeout), err)
		}
		var apiErr *gemini.APIError
		if errors.As(err, &apiErr) {
			return nil, apperrors.NewEmbeddingServiceError(apiErr.Message, apiErr.StatusCode, err)
		}
		return nil, apperrors.NewEmbeddingServiceError("embedding request failed", 0, err)
	}

	// 上游必须为每条输入返回一个非空向量
	if len(vectors) != len(batch) {
		return nil, apperrors.NewEmbeddingServiceError(
			fmt.Sprintf("embedding count mismatch: sent %d texts, got %d vectors", len(batch), len(vectors)), 0, nil)
	}
	for i, vector := range vectors {
		if len(vector) == 0 {
			return nil, apperrors.NewEmbeddingServiceError(fmt.Sprintf("empty embedding at index %d", i), 0, nil)
		}
	}

	return vectors, nil
}

func (e *GeminiEmbedder) Dimensions() int {
	return e.dimensions
}

func (e *GeminiEmbedder) Ready() bool {
	return e.client != nil && e.client.Ready()
}
