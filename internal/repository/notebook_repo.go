package repository

import (
	"context"
	"errors"

	"github.com/notebase/backend-go/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// notebookRepository 笔记本仓库实现
type notebookRepository struct {
	db *gorm.DB
}

// NewNotebookRepository 创建笔记本仓库
func NewNotebookRepository(db *gorm.DB) NotebookRepository {
	return &notebookRepository{db: db}
}

func (r *notebookRepository) GetDB() *gorm.DB {
	return r.db
}

// Create 创建笔记本
func (r *notebookRepository) Create(ctx context.Context, nb *models.Notebook) error {
	return r.db.WithContext(ctx).Create(nb).Error
}

// GetByID 根据ID获取笔记本
func (r *notebookRepository) GetByID(ctx context.Context, notebookID uint) (*models.Notebook, error) {
	var nb models.Notebook
	if err := r.db.WithContext(ctx).Where("notebook_id = ?", notebookID).First(&nb).Error; err != nil {
		return nil, err
	}
	return &nb, nil
}

// GetByOwner 根据用户ID获取笔记本列表
func (r *notebookRepository) GetByOwner(ctx context.Context, ownerID uint, page, limit int) ([]models.Notebook, int, error) {
	var notebooks []models.Notebook
	var total int64

	query := r.db.WithContext(ctx).Model(&models.Notebook{}).Where("owner_id = ?", ownerID)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := query.Order("updated_at DESC").Offset(offset).Limit(limit).Find(&notebooks).Error; err != nil {
		return nil, 0, err
	}

	return notebooks, int(total), nil
}

// GetPublic 获取公开笔记本列表，可按分类筛选
func (r *notebookRepository) GetPublic(ctx context.Context, category string, page, limit int) ([]models.Notebook, int, error) {
	var notebooks []models.Notebook
	var total int64

	query := r.db.WithContext(ctx).Model(&models.Notebook{}).Where("is_public = ?", true)
	if category != "" {
		query = query.Where("category = ?", category)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := query.Order("updated_at DESC").Offset(offset).Limit(limit).Find(&notebooks).Error; err != nil {
		return nil, 0, err
	}

	return notebooks, int(total), nil
}

// Update 更新笔记本
func (r *notebookRepository) Update(ctx context.Context, notebookID uint, ownerID uint, updates map[string]interface{}) error {
	return r.db.WithContext(ctx).Model(&models.Notebook{}).
		Where("notebook_id = ? AND owner_id = ?", notebookID, ownerID).
		Updates(updates).Error
}

// Delete 删除笔记本及其关联、消息和点赞
func (r *notebookRepository) Delete(ctx context.Context, notebookID uint, ownerID uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Where("notebook_id = ? AND owner_id = ?", notebookID, ownerID).Delete(&models.Notebook{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		if err := tx.Where("notebook_id = ?", notebookID).Delete(&models.NotebookDocument{}).Error; err != nil {
			return err
		}
		if err := tx.Where("notebook_id = ?", notebookID).Delete(&models.NotebookMessage{}).Error; err != nil {
			return err
		}
		return tx.Where("notebook_id = ?", notebookID).Delete(&models.NotebookLike{}).Error
	})
}

// AttachDocument 将文档关联到笔记本，position在最大值之后递增
func (r *notebookRepository) AttachDocument(ctx context.Context, notebookID, documentID uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var maxPos int
		err := tx.Model(&models.NotebookDocument{}).
			Where("notebook_id = ?", notebookID).
			Select("COALESCE(MAX(position), -1)").
			Scan(&maxPos).Error
		if err != nil {
			return err
		}
		return tx.Create(&models.NotebookDocument{
			NotebookID: notebookID,
			DocumentID: documentID,
			Position:   maxPos + 1,
		}).Error
	})
}

// DetachDocument 解除文档与笔记本的关联
func (r *notebookRepository) DetachDocument(ctx context.Context, notebookID, documentID uint) error {
	return r.db.WithContext(ctx).
		Where("notebook_id = ? AND document_id = ?", notebookID, documentID).
		Delete(&models.NotebookDocument{}).Error
}

// ListDocuments 按关联顺序返回笔记本的文档列表
func (r *notebookRepository) ListDocuments(ctx context.Context, notebookID uint) ([]models.Document, error) {
	var links []models.NotebookDocument
	err := r.db.WithContext(ctx).
		Preload("Document").
		Where("notebook_id = ?", notebookID).
		Order("position ASC").
		Find(&links).Error
	if err != nil {
		return nil, err
	}

	docs := make([]models.Document, 0, len(links))
	for _, link := range links {
		docs = append(docs, link.Document)
	}
	return docs, nil
}

// ListMessages 按时间顺序返回消息，limit<=0表示不限
func (r *notebookRepository) ListMessages(ctx context.Context, notebookID uint, limit int) ([]models.NotebookMessage, error) {
	var messages []models.NotebookMessage
	query := r.db.WithContext(ctx).
		Where("notebook_id = ?", notebookID).
		Order("message_id ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&messages).Error; err != nil {
		return nil, err
	}
	return messages, nil
}

// AppendMessagePair 在同一事务内追加一对消息，user在前，model在后
func (r *notebookRepository) AppendMessagePair(ctx context.Context, userMsg, modelMsg *models.NotebookMessage) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(userMsg).Error; err != nil {
			return err
		}
		return tx.Create(modelMsg).Error
	})
}

// Like 点赞，重复点赞静默忽略
func (r *notebookRepository) Like(ctx context.Context, notebookID, userID uint) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.NotebookLike{NotebookID: notebookID, UserID: userID}).Error
}

// Unlike 取消点赞
func (r *notebookRepository) Unlike(ctx context.Context, notebookID, userID uint) error {
	err := r.db.WithContext(ctx).
		Where("notebook_id = ? AND user_id = ?", notebookID, userID).
		Delete(&models.NotebookLike{}).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	return err
}

// CountLikes 统计点赞数
func (r *notebookRepository) CountLikes(ctx context.Context, notebookID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.NotebookLike{}).
		Where("notebook_id = ?", notebookID).
		Count(&count).Error
	return count, err
}
