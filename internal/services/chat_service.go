package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	apperrors "github.com/notebase/backend-go/internal/errors"
	"github.com/notebase/backend-go/internal/logger"
	"github.com/notebase/backend-go/internal/metrics"
	"github.com/notebase/backend-go/internal/models"
	"github.com/notebase/backend-go/internal/rag"
	"github.com/notebase/backend-go/internal/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DefaultContextSeparator 上下文片段之间的分隔符
const DefaultContextSeparator = "\n---\n"

// NoInformationReply 上下文无法回答问题时要求模型返回的固定句子
const NoInformationReply = "I could not find relevant information in the provided documents to answer your question."

const chatPromptTemplate = `You are an assistant answering questions about a user's notebook. Answer using only the context below. If the context does not contain the information needed, reply exactly: %s

Context:
%s

Question:
%s`

// ChatService 笔记本问答编排：检索关联文档并生成回答
type ChatService struct {
	notebooks repository.NotebookRepository
	embedder  rag.Embedder
	store     rag.VectorStore
	generator rag.Generator
	cache     *QueryEmbeddingCache // 可为nil
	topN      int
	separator string
}

// NewChatService 创建问答服务
func NewChatService(
	notebooks repository.NotebookRepository,
	embedder rag.Embedder,
	store rag.VectorStore,
	generator rag.Generator,
	cache *QueryEmbeddingCache,
	topN int,
	separator string,
) *ChatService {
	if topN <= 0 {
		topN = rag.DefaultSearchTopN
	}
	if separator == "" {
		separator = DefaultContextSeparator
	}
	return &ChatService{
		notebooks: notebooks,
		embedder:  embedder,
		store:     store,
		generator: generator,
		cache:     cache,
		topN:      topN,
		separator: separator,
	}
}

// Answer 处理一轮问答。生成成功后在同一事务内追加用户消息和模型回复，
// 任何更早的失败都不会改动消息历史。
func (s *ChatService) Answer(ctx context.Context, notebookID, userID uint, message string) (string, error) {
	start := time.Now()
	reply, err := s.answer(ctx, notebookID, userID, message)
	metrics.ChatDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.ChatRequests.WithLabelValues("error").Inc()
		return "", err
	}
	metrics.ChatRequests.WithLabelValues("ok").Inc()
	return reply, nil
}

func (s *ChatService) answer(ctx context.Context, notebookID, userID uint, message string) (string, error) {
	nb, err := s.notebooks.GetByID(ctx, notebookID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", apperrors.NewNotFoundError("notebook")
		}
		return "", apperrors.NewInternalError("failed to load notebook", err)
	}
	if nb.OwnerID != userID {
		return "", apperrors.NewForbiddenError("notebook belongs to another user")
	}

	queryVector, err := s.embedQuery(ctx, message)
	if err != nil {
		return "", err
	}

	docs, err := s.notebooks.ListDocuments(ctx, notebookID)
	if err != nil {
		return "", apperrors.NewInternalError("failed to load notebook documents", err)
	}

	contextText := s.retrieve(ctx, docs, queryVector)

	prompt := fmt.Sprintf(chatPromptTemplate, NoInformationReply, contextText, message)
	reply, err := s.generator.Complete(ctx, prompt)
	if err != nil {
		return "", err
	}

	userMsg := &models.NotebookMessage{
		NotebookID: notebookID,
		Role:       models.MessageRoleUser,
		Content:    message,
	}
	modelMsg := &models.NotebookMessage{
		NotebookID: notebookID,
		Role:       models.MessageRoleModel,
		Content:    reply,
	}
	if err := s.notebooks.AppendMessagePair(ctx, userMsg, modelMsg); err != nil {
		return "", apperrors.NewInternalError("failed to append messages", err)
	}

	return reply, nil
}

// embedQuery 向量化问题，优先走缓存
func (s *ChatService) embedQuery(ctx context.Context, message string) ([]float32, error) {
	if vector := s.cache.Get(ctx, message); vector != nil {
		return vector, nil
	}

	vectors, err := s.embedder.EmbedBatch(ctx, []string{message})
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 {
		return nil, apperrors.NewEmbeddingServiceError("empty embedding response", 0, nil)
	}

	s.cache.Set(ctx, message, vectors[0])
	return vectors[0], nil
}

// retrieve 并发检索所有就绪文档，按关联顺序确定性拼接。
// 单个文档检索失败只记录日志，贡献为空。
func (s *ChatService) retrieve(ctx context.Context, docs []models.Document, queryVector []float32) string {
	ready := make([]models.Document, 0, len(docs))
	for _, doc := range docs {
		if doc.IsReady() {
			ready = append(ready, doc)
		}
	}
	if len(ready) == 0 {
		return ""
	}

	results := make([][]string, len(ready))
	var wg sync.WaitGroup
	for i, doc := range ready {
		wg.Add(1)
		go func(i int, doc models.Document) {
			defer wg.Done()
			hits, err := s.store.Search(ctx, doc.VectorTable(), queryVector, s.topN)
			if err != nil {
				logger.Warn("document search failed",
					zap.Uint("document_id", doc.DocumentID),
					zap.String("vector_table", doc.VectorTable()),
					zap.Error(err))
				return
			}
			results[i] = hits
		}(i, doc)
	}
	wg.Wait()

	var parts []string
	for _, hits := range results {
		parts = append(parts, hits...)
	}
	return strings.Join(parts, s.separator)
}
