package rag

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	apperrors "github.com/notebase/backend-go/internal/errors"
)

var openaiEmbeddingDimensions = map[string]int{
	"text-embedding-3-large": 3072,
	"text-embedding-3-small": 1536,
	"text-embedding-ada-002": 1536,
}

// OpenAIEmbedder 使用OpenAI Embedding API
type OpenAIEmbedder struct {
	client     *openai.Client
	model      string
	batchSize  int
	timeout    time.Duration
	dimensions int
}

// NewOpenAIEmbedder 创建OpenAI嵌入向量生成器
func NewOpenAIEmbedder(apiKey, model string, batchSize int, timeout time.Duration) Embedder {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return &NoopEmbedder{}
	}
	if model == "" {
		model = "text-embedding-3-small"
	}
	if batchSize <= 0 {
		batchSize = DefaultEmbedBatchSize
	}
	if timeout <= 0 {
		timeout = DefaultEmbedTimeout
	}

	dims, ok := openaiEmbeddingDimensions[model]
	if !ok {
		dims = 1536
	}

	return &OpenAIEmbedder{
		client:     openai.NewClient(apiKey),
		model:      model,
		batchSize:  batchSize,
		timeout:    timeout,
		dimensions: dims,
	}
}

func (e *OpenAIEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, apperrors.NewEmbeddingServiceError("no input texts", 0, nil)
	}

	vectors := make([][]float32, 0, len(texts))
	for _, batch := range splitBatches(texts, e.batchSize) {
		batchVectors, err := e.embedOneBatch(ctx, batch)
		if err != nil {
			return nil, err
		}
		vectors = append(vectors, batchVectors...)
	}
	return vectors, nil
}

func (e *OpenAIEmbedder) embedOneBatch(ctx context.Context, batch []string) ([][]float32, error) {
	batchCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	resp, err := e.client.CreateEmbeddings(batchCtx, openai.EmbeddingRequest{
		Model: openai.EmbeddingModel(e.model),
		Input: batch,
	})
	if err != nil {
		if timedOut(batchCtx, err) {
			return nil, apperrors.NewEmbeddingTimeout(fmt.Sprintf("embedding batch of %d texts timed out after %s", len(batch), e.timeout), err)
		}
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) {
			return nil, apperrors.NewEmbeddingServiceError(apiErr.Message, apiErr.HTTPStatusCode, err)
		}
		return nil, apperrors.NewEmbeddingServiceError("embedding request failed", 0, err)
	}

	if len(resp.Data) != len(batch) {
		return nil, apperrors.NewEmbeddingServiceError(
			fmt.Sprintf("embedding count mismatch: sent %d texts, got %d vectors", len(batch), len(resp.Data)), 0, nil)
	}

	// 响应按index排序后拷贝，保证与输入同序
	vectors := make([][]float32, len(batch))
	for _, item := range resp.Data {
		if item.Index < 0 || item.Index >= len(batch) {
			return nil, apperrors.NewEmbeddingServiceError(fmt.Sprintf("embedding index %d out of range", item.Index), 0, nil)
		}
		if len(item.Embedding) == 0 {
			return nil, apperrors.NewEmbeddingServiceError(fmt.Sprintf("empty embedding at index %d", item.Index), 0, nil)
		}
		vector := make([]float32, len(item.Embedding))
		copy(vector, item.Embedding)
		vectors[item.Index] = vector
	}
	for i, vector := range vectors {
		if vector == nil {
			return nil, apperrors.NewEmbeddingServiceError(fmt.Sprintf("missing embedding at index %d", i), 0, nil)
		}
	}

	return vectors, nil
}

func (e *OpenAIEmbedder) Dimensions() int {
	return e.dimensions
}

func (e *OpenAIEmbedder) Ready() bool {
	return e.client != nil
}
