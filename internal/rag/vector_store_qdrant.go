package rag

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	apperrors "github.com/notebase/backend-go/internal/errors"
)

// QdrantOptions Qdrant客户端配置
type QdrantOptions struct {
	Endpoint   string
	APIKey     string
	VectorSize int
	UseTLS     bool
	Timeout    time.Duration
}

type qdrantVectorStore struct {
	client     *http.Client
	endpoint   string
	apiKey     string
	vectorSize int
}

// NewQdrantVectorStore 创建Qdrant向量存储
func NewQdrantVectorStore(opts QdrantOptions) (VectorStore, error) {
	if opts.Endpoint == "" {
		scheme := "http"
		if opts.UseTLS {
			scheme = "https"
		}
		opts.Endpoint = fmt.Sprintf("%s://localhost:6333", scheme)
	}
	if !strings.HasPrefix(opts.Endpoint, "http") {
		scheme := "http"
		if opts.UseTLS {
			scheme = "https"
		}
		opts.Endpoint = fmt.Sprintf("%s://%s", scheme, opts.Endpoint)
	}
	if opts.VectorSize == 0 {
		opts.VectorSize = 1536
	}

	timeout := opts.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	return &qdrantVectorStore{
		client: &http.Client{
			Timeout: timeout,
		},
		endpoint:   strings.TrimSuffix(opts.Endpoint, "/"),
		apiKey:     opts.APIKey,
		vectorSize: opts.VectorSize,
	}, nil
}

func (s *qdrantVectorStore) hasCollection(ctx context.Context, name string) (bool, error) {
	resp, err := s.doRequest(ctx, http.MethodGet, fmt.Sprintf("/collections/%s", name), nil)
	if err != nil {
		return false, err
	}
	defer func() {
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}()
	return resp.StatusCode == http.StatusOK, nil
}

func (s *qdrantVectorStore) CreateCollection(ctx context.Context, name string, rows []Row) error {
	exists, err := s.hasCollection(ctx, name)
	if err != nil {
		return apperrors.NewVectorStoreError("failed to check collection", err)
	}
	if exists {
		return apperrors.NewCollectionExistsError(name)
	}

	body := map[string]interface{}{
		"vectors": map[string]interface{}{
			"size":     s.vectorSize,
			"distance": "Cosine",
		},
	}
	resp, err := s.doRequest(ctx, http.MethodPut, fmt.Sprintf("/collections/%s", name), body)
	if err != nil {
		return apperrors.NewVectorStoreError("create collection failed", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(resp.Body)
		return apperrors.NewVectorStoreError(fmt.Sprintf("create collection %s failed: %s %s", name, resp.Status, string(raw)), nil)
	}

	points := make([]map[string]interface{}, 0, len(rows))
	for _, row := range rows {
		vector, err := s.fitVector(row.Vector)
		if err != nil {
			return err
		}
		points = append(points, map[string]interface{}{
			"id":     row.ID,
			"vector": vector,
			"payload": map[string]interface{}{
				"text": row.Text,
			},
		})
	}

	payload := map[string]interface{}{"points": points}
	resp, err = s.doRequest(ctx, http.MethodPut, fmt.Sprintf("/collections/%s/points?wait=true", name), payload)
	if err != nil {
		return apperrors.NewVectorStoreError("qdrant upsert failed", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(resp.Body)
		return apperrors.NewVectorStoreError(fmt.Sprintf("qdrant upsert failed: %s %s", resp.Status, string(raw)), nil)
	}

	return nil
}

// fitVector 校验向量维度，维度不符直接报错而不是静默截断
func (s *qdrantVectorStore) fitVector(vector []float32) ([]float32, error) {
	if len(vector) != s.vectorSize {
		return nil, apperrors.NewVectorStoreError(
			fmt.Sprintf("vector dimension mismatch: got %d, collection expects %d", len(vector), s.vectorSize), nil)
	}
	return vector, nil
}

func (s *qdrantVectorStore) Search(ctx context.Context, name string, queryVector []float32, topN int) ([]string, error) {
	if len(queryVector) == 0 {
		return nil, nil
	}
	if topN <= 0 {
		topN = DefaultSearchTopN
	}

	queryVector, err := s.fitVector(queryVector)
	if err != nil {
		return nil, err
	}

	body := map[string]interface{}{
		"vector":       queryVector,
		"limit":        topN,
		"with_payload": true,
		"with_vectors": false,
	}

	resp, err := s.doRequest(ctx, http.MethodPost, fmt.Sprintf("/collections/%s/points/search", name), body)
	if err != nil {
		return nil, apperrors.NewVectorStoreError("qdrant search failed", err)
	}
	defer resp.Body.Close()

	// 集合不存在按无上下文处理
	if resp.StatusCode == http.StatusNotFound {
		io.Copy(io.Discard, resp.Body)
		return nil, nil
	}
	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(resp.Body)
		return nil, apperrors.NewVectorStoreError(fmt.Sprintf("qdrant search failed: %s %s", resp.Status, string(raw)), nil)
	}

	var searchResp struct {
		Result []struct {
			Score   float64                `json:"score"`
			Payload map[string]interface{} `json:"payload"`
		} `json:"result"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&searchResp); err != nil {
		return nil, apperrors.NewVectorStoreError("failed to decode search response", err)
	}

	texts := make([]string, 0, len(searchResp.Result))
	for _, item := range searchResp.Result {
		if text, ok := item.Payload["text"].(string); ok {
			texts = append(texts, text)
		}
	}
	return texts, nil
}

func (s *qdrantVectorStore) DropCollection(ctx context.Context, name string) error {
	resp, err := s.doRequest(ctx, http.MethodDelete, fmt.Sprintf("/collections/%s", name), nil)
	if err != nil {
		return apperrors.NewVectorStoreError("qdrant drop failed", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 && resp.StatusCode != http.StatusNotFound {
		raw, _ := io.ReadAll(resp.Body)
		return apperrors.NewVectorStoreError(fmt.Sprintf("qdrant drop failed: %s %s", resp.Status, string(raw)), nil)
	}
	return nil
}

func (s *qdrantVectorStore) Ready() bool {
	if s.client == nil {
		return false
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	resp, err := s.doRequest(ctx, http.MethodGet, "/collections", nil)
	if err != nil {
		return false
	}
	defer func() {
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}()
	return resp.StatusCode == http.StatusOK
}

func (s *qdrantVectorStore) Close() error {
	s.client.CloseIdleConnections()
	return nil
}

func (s *qdrantVectorStore) doRequest(ctx context.Context, method, path string, body interface{}) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.endpoint+path, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		req.Header.Set("api-key", s.apiKey)
	}

	return s.client.Do(req)
}
