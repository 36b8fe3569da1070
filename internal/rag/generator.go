package rag

import (
	"context"
	"errors"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	apperrors "github.com/notebase/backend-go/internal/errors"
	"github.com/notebase/backend-go/internal/gemini"
)

// DefaultGenerateTimeout 默认生成超时
const DefaultGenerateTimeout = 2 * time.Minute

// Generator 定义文本生成接口。单次调用，不重试；
// 空响应或缺失候选视为错误而非空字符串。
type Generator interface {
	Complete(ctx context.Context, prompt string) (string, error)
	Ready() bool
}

// NoopGenerator 默认占位实现
type NoopGenerator struct{}

func (n *NoopGenerator) Complete(ctx context.Context, prompt string) (string, error) {
	return "", errors.New("generation provider not configured")
}

func (n *NoopGenerator) Ready() bool {
	return false
}

// GeminiGenerator 使用Gemini generateContent API
type GeminiGenerator struct {
	client  *gemini.Client
	model   string
	timeout time.Duration
}

// NewGeminiGenerator 创建Gemini文本生成器
func NewGeminiGenerator(client *gemini.Client, model string, timeout time.Duration) Generator {
	if client == nil || !client.Ready() {
		return &NoopGenerator{}
	}
	if model == "" {
		model = "gemini-2.5-flash"
	}
	if timeout <= 0 {
		timeout = DefaultGenerateTimeout
	}
	return &GeminiGenerator{client: client, model: model, timeout: timeout}
}

func (g *GeminiGenerator) Complete(ctx context.Context, prompt string) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	text, err := g.client.GenerateContent(callCtx, g.model, prompt)
	if err != nil {
		var apiErr *gemini.APIError
		if errors.As(err, &apiErr) {
			return "", apperrors.NewGenerationServiceError(apiErr.Message, apiErr.StatusCode, err)
		}
		return "", apperrors.NewGenerationServiceError("generation request failed", 0, err)
	}
	if text == "" {
		return "", apperrors.NewGenerationServiceError("empty completion", 0, nil)
	}
	return text, nil
}

func (g *GeminiGenerator) Ready() bool {
	return g.client != nil && g.client.Ready()
}

// OpenAIGenerator 使用OpenAI Chat Completion API
type OpenAIGenerator struct {
	client  *openai.Client
	model   string
	timeout time.Duration
}

// NewOpenAIGenerator 创建OpenAI文本生成器
func NewOpenAIGenerator(apiKey, model string, timeout time.Duration) Generator {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return &NoopGenerator{}
	}
	if model == "" {
		model = openai.GPT4oMini
	}
	if timeout <= 0 {
		timeout = DefaultGenerateTimeout
	}
	return &OpenAIGenerator{client: openai.NewClient(apiKey), model: model, timeout: timeout}
}

func (g *OpenAIGenerator) Complete(ctx context.Context, prompt string) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	resp, err := g.client.CreateChatCompletion(callCtx, openai.ChatCompletionRequest{
		Model: g.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) {
			return "", apperrors.NewGenerationServiceError(apiErr.Message, apiErr.HTTPStatusCode, err)
		}
		return "", apperrors.NewGenerationServiceError("generation request failed", 0, err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", apperrors.NewGenerationServiceError("no candidates in response", 0, nil)
	}
	return resp.Choices[0].Message.Content, nil
}

func (g *OpenAIGenerator) Ready() bool {
	return g.client != nil
}
