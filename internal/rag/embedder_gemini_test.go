package rag

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	apperrors "github.com/notebase/backend-go/internal/errors"
	"github.com/notebase/backend-go/internal/gemini"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEmbedServer(t *testing.T, handler http.HandlerFunc) (*httptest.Server, Embedder) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client := gemini.NewClient("test-key")
	require.NotNil(t, client)
	client.SetBaseURL(server.URL)
	return server, NewGeminiEmbedder(client, "gemini-embedding-001", 2, 5*time.Second)
}

// echoEmbeddings 为每条输入返回以其序号编码的向量
func echoEmbeddings(w http.ResponseWriter, r *http.Request, counter *int) {
	var req gemini.BatchEmbedRequest
	_ = json.NewDecoder(r.Body).Decode(&req)

	resp := gemini.BatchEmbedResponse{}
	for range req.Requests {
		resp.Embeddings = append(resp.Embeddings, gemini.ContentEmbedding{
			Values: []float32{float32(*counter)},
		})
		*counter++
	}
	_ = json.NewEncoder(w).Encode(resp)
}

func TestGeminiEmbedderPreservesOrderAcrossBatches(t *testing.T) {
	counter := 0
	batches := 0
	_, embedder := newEmbedServer(t, func(w http.ResponseWriter, r *http.Request) {
		batches++
		echoEmbeddings(w, r, &counter)
	})

	texts := []string{"t0", "t1", "t2", "t3", "t4"}
	vectors, err := embedder.EmbedBatch(context.Background(), texts)
	require.NoError(t, err)
	require.Len(t, vectors, 5)

	// 批大小2，5条输入 → 3个顺序批次
	assert.Equal(t, 3, batches)
	for i, vector := range vectors {
		assert.Equal(t, []float32{float32(i)}, vector)
	}
}

func TestGeminiEmbedderCountMismatch(t *testing.T) {
	_, embedder := newEmbedServer(t, func(w http.ResponseWriter, r *http.Request) {
		// 两条输入只返回一个向量
		_, _ = w.Write([]byte(`{"embeddings":[{"values":[0.5]}]}`))
	})

	_, err := embedder.EmbedBatch(context.Background(), []string{"a", "b"})
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeEmbeddingService))
}

func TestGeminiEmbedderEmptyVector(t *testing.T) {
	_, embedder := newEmbedServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"embeddings":[{"values":[]}]}`))
	})

	_, err := embedder.EmbedBatch(context.Background(), []string{"a"})
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeEmbeddingService))
}

func TestGeminiEmbedderUpstreamError(t *testing.T) {
	_, embedder := newEmbedServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"error":{"status":"UNAVAILABLE","message":"backend overloaded"}}`))
	})

	_, err := embedder.EmbedBatch(context.Background(), []string{"a"})
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeEmbeddingService))

	var pe *apperrors.PipelineError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, http.StatusServiceUnavailable, pe.UpstreamStatus)
	assert.Contains(t, pe.Message, "backend overloaded")
}

func TestGeminiEmbedderTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	t.Cleanup(server.Close)

	client := gemini.NewClient("test-key")
	client.SetBaseURL(server.URL)
	embedder := NewGeminiEmbedder(client, "gemini-embedding-001", 100, 50*time.Millisecond)

	_, err := embedder.EmbedBatch(context.Background(), []string{"a"})
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeEmbeddingTimeout))
}

func TestGeminiEmbedderAllOrNothing(t *testing.T) {
	calls := 0
	_, embedder := newEmbedServer(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 2 {
			w.WriteHeader(http.StatusInternalServerError)
			fmt.Fprint(w, `{"error":{"status":"INTERNAL","message":"boom"}}`)
			return
		}
		counter := 0
		echoEmbeddings(w, r, &counter)
	})

	// 第二批失败，整体失败且不返回部分结果
	vectors, err := embedder.EmbedBatch(context.Background(), []string{"a", "b", "c"})
	require.Error(t, err)
	assert.Nil(t, vectors)
	assert.Equal(t, 2, calls)
}

func TestGeminiEmbedderEmptyInput(t *testing.T) {
	_, embedder := newEmbedServer(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request expected")
	})

	_, err := embedder.EmbedBatch(context.Background(), nil)
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeEmbeddingService))
}

func TestGeminiEmbedderNilClientFallsBackToNoop(t *testing.T) {
	embedder := NewGeminiEmbedder(nil, "gemini-embedding-001", 100, time.Second)
	_, ok := embedder.(*NoopEmbedder)
	assert.True(t, ok)
}
