package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/notebase/backend-go/internal/logger"
	"go.uber.org/zap"
)

const defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// Client Google Gemini API客户端，支持向量化与文本生成
type Client struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// EmbedContentRequest 单条向量化请求
type EmbedContentRequest struct {
	Model   string  `json:"model"`
	Content Content `json:"content"`
}

// BatchEmbedRequest 批量向量化请求
type BatchEmbedRequest struct {
	Requests []EmbedContentRequest `json:"requests"`
}

// BatchEmbedResponse 批量向量化响应
type BatchEmbedResponse struct {
	Embeddings []ContentEmbedding `json:"embeddings"`
}

// ContentEmbedding 单条向量结果
type ContentEmbedding struct {
	Values []float32 `json:"values"`
}

// GenerateContentRequest 文本生成请求
type GenerateContentRequest struct {
	Contents []Content `json:"contents"`
}

// GenerateContentResponse 文本生成响应
type GenerateContentResponse struct {
	Candidates []Candidate `json:"candidates"`
}

// Candidate 生成候选
type Candidate struct {
	Content      Content `json:"content"`
	FinishReason string  `json:"finishReason,omitempty"`
}

// Content 消息内容
type Content struct {
	Parts []Part `json:"parts"`
	Role  string `json:"role,omitempty"`
}

// Part 内容片段
type Part struct {
	Text string `json:"text"`
}

// APIError Gemini API错误
type APIError struct {
	StatusCode int    `json:"code"`
	Status     string `json:"status"`
	Message    string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("gemini api error: %s (http %d, status %s)", e.Message, e.StatusCode, e.Status)
}

type errorEnvelope struct {
	Error APIError `json:"error"`
}

// NewClient 创建Gemini客户端
func NewClient(apiKey string) *Client {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		logger.GetLogger().Warn("Gemini API key is empty")
		return nil
	}

	return &Client{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		client: &http.Client{
			Timeout: 10 * time.Minute, // 单次调用超时由调用方ctx收紧
		},
	}
}

// SetBaseURL 覆盖API地址（测试用）
func (c *Client) SetBaseURL(baseURL string) {
	c.baseURL = strings.TrimSuffix(baseURL, "/")
}

// Ready 客户端是否可用
func (c *Client) Ready() bool {
	return c != nil && c.client != nil && c.apiKey != ""
}

// BatchEmbed 批量向量化，一次请求携带多条文本，返回与输入同序的向量
func (c *Client) BatchEmbed(ctx context.Context, model string, texts []string) ([][]float32, error) {
	if !c.Ready() {
		return nil, fmt.Errorf("gemini client not initialized")
	}

	req := BatchEmbedRequest{Requests: make([]EmbedContentRequest, 0, len(texts))}
	for _, text := range texts {
		req.Requests = append(req.Requests, EmbedContentRequest{
			Model:   "models/" + model,
			Content: Content{Parts: []Part{{Text: text}}},
		})
	}

	url := fmt.Sprintf("%s/models/%s:batchEmbedContents?key=%s", c.baseURL, model, c.apiKey)
	var resp BatchEmbedResponse
	if err := c.post(ctx, url, req, &resp); err != nil {
		return nil, err
	}

	vectors := make([][]float32, 0, len(resp.Embeddings))
	for _, emb := range resp.Embeddings {
		vectors = append(vectors, emb.Values)
	}

	logger.Debug("gemini batch embed success",
		zap.String("model", model),
		zap.Int("input_count", len(texts)))

	return vectors, nil
}

// GenerateContent 单轮文本生成，返回首个候选的文本
func (c *Client) GenerateContent(ctx context.Context, model, prompt string) (string, error) {
	if !c.Ready() {
		return "", fmt.Errorf("gemini client not initialized")
	}

	req := GenerateContentRequest{
		Contents: []Content{{Parts: []Part{{Text: prompt}}}},
	}

	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", c.baseURL, model, c.apiKey)
	var resp GenerateContentResponse
	if err := c.post(ctx, url, req, &resp); err != nil {
		return "", err
	}

	// 空候选视为错误而非空回复
	if len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", &APIError{StatusCode: http.StatusOK, Status: "EMPTY_CANDIDATES", Message: "no candidates in response"}
	}

	return resp.Candidates[0].Content.Parts[0].Text, nil
}

func (c *Client) post(ctx context.Context, url string, payload interface{}, out interface{}) error {
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var envelope errorEnvelope
		if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error.Message != "" {
			envelope.Error.StatusCode = resp.StatusCode
			return &envelope.Error
		}
		return &APIError{StatusCode: resp.StatusCode, Message: string(body)}
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return nil
}
