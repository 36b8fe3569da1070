package services

import (
	"context"
	"errors"

	apperrors "github.com/notebase/backend-go/internal/errors"
	"github.com/notebase/backend-go/internal/models"
	"github.com/notebase/backend-go/internal/repository"
	"gorm.io/gorm"
)

// NotebookService 笔记本管理：增删改查、文档关联、点赞、克隆
type NotebookService struct {
	notebooks repository.NotebookRepository
	documents repository.DocumentRepository
}

// NewNotebookService 创建笔记本服务
func NewNotebookService(notebooks repository.NotebookRepository, documents repository.DocumentRepository) *NotebookService {
	return &NotebookService{notebooks: notebooks, documents: documents}
}

// Create 创建笔记本
func (s *NotebookService) Create(ctx context.Context, ownerID uint, title, description, category string, isPublic bool) (*models.Notebook, error) {
	nb := &models.Notebook{
		OwnerID:     ownerID,
		Title:       title,
		Description: description,
		Category:    category,
		IsPublic:    isPublic,
	}
	if err := s.notebooks.Create(ctx, nb); err != nil {
		return nil, apperrors.NewInternalError("failed to create notebook", err)
	}
	return nb, nil
}

// List 获取用户的笔记本列表
func (s *NotebookService) List(ctx context.Context, ownerID uint, page, limit int) ([]models.Notebook, int, error) {
	notebooks, total, err := s.notebooks.GetByOwner(ctx, ownerID, page, limit)
	if err != nil {
		return nil, 0, apperrors.NewInternalError("failed to list notebooks", err)
	}
	return notebooks, total, nil
}

// ListPublic 获取公开笔记本列表
func (s *NotebookService) ListPublic(ctx context.Context, category string, page, limit int) ([]models.Notebook, int, error) {
	notebooks, total, err := s.notebooks.GetPublic(ctx, category, page, limit)
	if err != nil {
		return nil, 0, apperrors.NewInternalError("failed to list public notebooks", err)
	}
	return notebooks, total, nil
}

// Get 获取笔记本，所有者或公开笔记本可读
func (s *NotebookService) Get(ctx context.Context, notebookID, userID uint) (*models.Notebook, error) {
	nb, err := s.loadNotebook(ctx, notebookID)
	if err != nil {
		return nil, err
	}
	if nb.OwnerID != userID && !nb.IsPublic {
		return nil, apperrors.NewForbiddenError("notebook belongs to another user")
	}
	return nb, nil
}

// Update 更新笔记本元信息
func (s *NotebookService) Update(ctx context.Context, notebookID, userID uint, updates map[string]interface{}) (*models.Notebook, error) {
	if _, err := s.requireOwned(ctx, notebookID, userID); err != nil {
		return nil, err
	}
	if err := s.notebooks.Update(ctx, notebookID, userID, updates); err != nil {
		return nil, apperrors.NewInternalError("failed to update notebook", err)
	}
	return s.loadNotebook(ctx, notebookID)
}

// Delete 删除笔记本。关联文档本身保留，仅删除关联关系。
func (s *NotebookService) Delete(ctx context.Context, notebookID, userID uint) error {
	if err := s.notebooks.Delete(ctx, notebookID, userID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.NewNotFoundError("notebook")
		}
		return apperrors.NewInternalError("failed to delete notebook", err)
	}
	return nil
}

// AttachDocument 将用户自己的文档关联到笔记本
func (s *NotebookService) AttachDocument(ctx context.Context, notebookID, userID, documentID uint) error {
	if _, err := s.requireOwned(ctx, notebookID, userID); err != nil {
		return err
	}

	doc, err := s.documents.GetByID(ctx, documentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.NewNotFoundError("document")
		}
		return apperrors.NewInternalError("failed to load document", err)
	}
	if doc.OwnerID != userID {
		return apperrors.NewForbiddenError("document belongs to another user")
	}

	if err := s.notebooks.AttachDocument(ctx, notebookID, documentID); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return apperrors.NewBusinessError(apperrors.ErrCodeConflict, "document already attached")
		}
		return apperrors.NewInternalError("failed to attach document", err)
	}
	return nil
}

// DetachDocument 解除笔记本与文档的关联
func (s *NotebookService) DetachDocument(ctx context.Context, notebookID, userID, documentID uint) error {
	if _, err := s.requireOwned(ctx, notebookID, userID); err != nil {
		return err
	}
	if err := s.notebooks.DetachDocument(ctx, notebookID, documentID); err != nil {
		return apperrors.NewInternalError("failed to detach document", err)
	}
	return nil
}

// ListDocuments 按关联顺序返回笔记本的文档
func (s *NotebookService) ListDocuments(ctx context.Context, notebookID, userID uint) ([]models.Document, error) {
	if _, err := s.Get(ctx, notebookID, userID); err != nil {
		return nil, err
	}
	docs, err := s.notebooks.ListDocuments(ctx, notebookID)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to list notebook documents", err)
	}
	return docs, nil
}

// ListMessages 返回笔记本的消息历史
func (s *NotebookService) ListMessages(ctx context.Context, notebookID, userID uint, limit int) ([]models.NotebookMessage, error) {
	if _, err := s.Get(ctx, notebookID, userID); err != nil {
		return nil, err
	}
	messages, err := s.notebooks.ListMessages(ctx, notebookID, limit)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to list messages", err)
	}
	return messages, nil
}

// Like 点赞公开笔记本
func (s *NotebookService) Like(ctx context.Context, notebookID, userID uint) (int64, error) {
	nb, err := s.loadNotebook(ctx, notebookID)
	if err != nil {
		return 0, err
	}
	if !nb.IsPublic && nb.OwnerID != userID {
		return 0, apperrors.NewForbiddenError("notebook is not public")
	}
	if err := s.notebooks.Like(ctx, notebookID, userID); err != nil {
		return 0, apperrors.NewInternalError("failed to like notebook", err)
	}
	count, err := s.notebooks.CountLikes(ctx, notebookID)
	if err != nil {
		return 0, apperrors.NewInternalError("failed to count likes", err)
	}
	return count, nil
}

// Unlike 取消点赞
func (s *NotebookService) Unlike(ctx context.Context, notebookID, userID uint) (int64, error) {
	if err := s.notebooks.Unlike(ctx, notebookID, userID); err != nil {
		return 0, apperrors.NewInternalError("failed to unlike notebook", err)
	}
	count, err := s.notebooks.CountLikes(ctx, notebookID)
	if err != nil {
		return 0, apperrors.NewInternalError("failed to count likes", err)
	}
	return count, nil
}

// Clone 克隆公开笔记本：复制元信息和文档关联，不复制消息历史
func (s *NotebookService) Clone(ctx context.Context, notebookID, userID uint) (*models.Notebook, error) {
	source, err := s.loadNotebook(ctx, notebookID)
	if err != nil {
		return nil, err
	}
	if !source.IsPublic && source.OwnerID != userID {
		return nil, apperrors.NewForbiddenError("notebook is not public")
	}

	clone := &models.Notebook{
		OwnerID:     userID,
		Title:       source.Title,
		Description: source.Description,
		Category:    source.Category,
		ClonedFrom:  &source.NotebookID,
	}
	if err := s.notebooks.Create(ctx, clone); err != nil {
		return nil, apperrors.NewInternalError("failed to clone notebook", err)
	}

	docs, err := s.notebooks.ListDocuments(ctx, notebookID)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to load source documents", err)
	}
	for _, doc := range docs {
		if err := s.notebooks.AttachDocument(ctx, clone.NotebookID, doc.DocumentID); err != nil {
			return nil, apperrors.NewInternalError("failed to attach cloned document", err)
		}
	}
	return clone, nil
}

func (s *NotebookService) loadNotebook(ctx context.Context, notebookID uint) (*models.Notebook, error) {
	nb, err := s.notebooks.GetByID(ctx, notebookID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NewNotFoundError("notebook")
		}
		return nil, apperrors.NewInternalError("failed to load notebook", err)
	}
	return nb, nil
}

func (s *NotebookService) requireOwned(ctx context.Context, notebookID, userID uint) (*models.Notebook, error) {
	nb, err := s.loadNotebook(ctx, notebookID)
	if err != nil {
		return nil, err
	}
	if nb.OwnerID != userID {
		return nil, apperrors.NewForbiddenError("notebook belongs to another user")
	}
	return nb, nil
}
