package services

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/google/uuid"
	apperrors "github.com/notebase/backend-go/internal/errors"
	"github.com/notebase/backend-go/internal/kafka"
	"github.com/notebase/backend-go/internal/logger"
	"github.com/notebase/backend-go/internal/metrics"
	"github.com/notebase/backend-go/internal/models"
	"github.com/notebase/backend-go/internal/rag"
	"github.com/notebase/backend-go/internal/repository"
	"go.uber.org/zap"
)

// ContentExtractor 文本抽取接口
type ContentExtractor interface {
	Extract(content []byte, mediaType string) (string, error)
}

// EventPublisher 文档生命周期事件发布接口
type EventPublisher interface {
	SendDocumentEvent(event *kafka.DocumentEvent) error
}

// RawArchiver 原始上传文件归档接口
type RawArchiver interface {
	Put(ctx context.Context, objectName string, reader io.Reader, size int64, contentType string) (string, error)
}

// IngestionService 文档摄取编排：抽取、分块、向量化、入库
type IngestionService struct {
	docs      repository.DocumentRepository
	extractor ContentExtractor
	chunker   *rag.Chunker
	embedder  rag.Embedder
	store     rag.VectorStore
	archive   RawArchiver    // 可为nil
	events    EventPublisher // 可为nil
}

// NewIngestionService 创建摄取服务
func NewIngestionService(
	docs repository.DocumentRepository,
	extractor ContentExtractor,
	chunker *rag.Chunker,
	embedder rag.Embedder,
	store rag.VectorStore,
	archive RawArchiver,
	events EventPublisher,
) *IngestionService {
	return &IngestionService{
		docs:      docs,
		extractor: extractor,
		chunker:   chunker,
		embedder:  embedder,
		store:     store,
		archive:   archive,
		events:    events,
	}
}

// Prepare 上传去重并创建处理中的文档记录。
// 同一用户同名且已就绪的文档直接复用，返回dedup=true。
func (s *IngestionService) Prepare(ctx context.Context, ownerID uint, fileName string) (*models.Document, bool, error) {
	existing, err := s.docs.FindReadyByName(ctx, ownerID, fileName)
	if err != nil {
		return nil, false, apperrors.NewInternalError("failed to check existing document", err)
	}
	if existing != nil {
		logger.Info("upload deduplicated",
			zap.Uint("document_id", existing.DocumentID),
			zap.String("file_name", fileName))
		return existing, true, nil
	}

	doc := &models.Document{
		OwnerID:  ownerID,
		FileName: fileName,
		Status:   models.DocumentStatusProcessing,
	}
	if err := s.docs.Create(ctx, doc); err != nil {
		return nil, false, apperrors.NewInternalError("failed to create document", err)
	}
	return doc, false, nil
}

// Process 执行摄取管道。任何环节失败后文档置为error状态（尽力而为），
// 原始错误原样返回。
func (s *IngestionService) Process(ctx context.Context, doc *models.Document, mediaType string, content []byte) error {
	s.publish(&kafka.DocumentEvent{
		Event:      kafka.EventIngestionStarted,
		DocumentID: doc.DocumentID,
		OwnerID:    doc.OwnerID,
		FileName:   doc.FileName,
	})

	s.archiveRaw(ctx, doc, mediaType, content)

	text, err := s.extractor.Extract(content, mediaType)
	if err != nil {
		return s.fail(ctx, doc, err)
	}

	texts := s.chunker.Texts(text)

	// 空文档产生零个分块，建立空集合即可
	var rows []rag.Row
	if len(texts) > 0 {
		vectors, err := s.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return s.fail(ctx, doc, err)
		}
		rows = make([]rag.Row, len(texts))
		for i := range texts {
			rows[i] = rag.Row{
				ID:     uuid.New().String(),
				Text:   texts[i],
				Vector: vectors[i],
			}
		}
	}

	tableName := models.VectorTableName(doc.DocumentID)
	if err := s.store.CreateCollection(ctx, tableName, rows); err != nil {
		return s.fail(ctx, doc, err)
	}

	if err := s.docs.MarkReady(ctx, doc.DocumentID, tableName); err != nil {
		return s.fail(ctx, doc, apperrors.NewInternalError("failed to mark document ready", err))
	}

	doc.Status = models.DocumentStatusReady
	doc.VectorTableName = &tableName
	metrics.IngestionChunks.Add(float64(len(rows)))

	logger.Info("document ingested",
		zap.Uint("document_id", doc.DocumentID),
		zap.String("vector_table", tableName),
		zap.Int("chunks", len(rows)))
	s.publish(&kafka.DocumentEvent{
		Event:      kafka.EventDocumentReady,
		DocumentID: doc.DocumentID,
		OwnerID:    doc.OwnerID,
		FileName:   doc.FileName,
	})
	return nil
}

// archiveRaw 归档原始文件，失败不中断管道
func (s *IngestionService) archiveRaw(ctx context.Context, doc *models.Document, mediaType string, content []byte) {
	if s.archive == nil {
		return
	}
	objectName := fmt.Sprintf("uploads/%d/%s", doc.DocumentID, doc.FileName)
	path, err := s.archive.Put(ctx, objectName, bytes.NewReader(content), int64(len(content)), mediaType)
	if err != nil {
		logger.Warn("failed to archive upload",
			zap.Uint("document_id", doc.DocumentID), zap.Error(err))
		return
	}
	if err := s.docs.Update(ctx, doc.DocumentID, map[string]interface{}{"storage_path": path}); err != nil {
		logger.Warn("failed to record storage path",
			zap.Uint("document_id", doc.DocumentID), zap.Error(err))
		return
	}
	doc.StoragePath = path
}

func (s *IngestionService) fail(ctx context.Context, doc *models.Document, cause error) error {
	if pe, ok := cause.(*apperrors.PipelineError); ok && pe.DocumentID == 0 {
		pe.WithDocument(doc.DocumentID)
	}

	if err := s.docs.MarkError(ctx, doc.DocumentID); err != nil {
		logger.Error("failed to mark document error",
			zap.Uint("document_id", doc.DocumentID), zap.Error(err))
	}
	doc.Status = models.DocumentStatusError

	logger.Error("document ingestion failed",
		zap.Uint("document_id", doc.DocumentID), zap.Error(cause))
	s.publish(&kafka.DocumentEvent{
		Event:      kafka.EventDocumentFailed,
		DocumentID: doc.DocumentID,
		OwnerID:    doc.OwnerID,
		FileName:   doc.FileName,
		Error:      cause.Error(),
	})
	return cause
}

func (s *IngestionService) publish(event *kafka.DocumentEvent) {
	if s.events == nil {
		return
	}
	if err := s.events.SendDocumentEvent(event); err != nil {
		logger.Warn("failed to publish document event",
			zap.String("event", event.Event),
			zap.Uint("document_id", event.DocumentID),
			zap.Error(err))
	}
}
