package repository

import (
	"context"
	"errors"

	"github.com/notebase/backend-go/internal/models"
	"gorm.io/gorm"
)

// documentRepository 文档仓库实现
type documentRepository struct {
	db *gorm.DB
}

// NewDocumentRepository 创建文档仓库
func NewDocumentRepository(db *gorm.DB) DocumentRepository {
	return &documentRepository{db: db}
}

func (r *documentRepository) GetDB() *gorm.DB {
	return r.db
}

// Create 创建文档
func (r *documentRepository) Create(ctx context.Context, doc *models.Document) error {
	return r.db.WithContext(ctx).Create(doc).Error
}

// GetByID 根据ID获取文档
func (r *documentRepository) GetByID(ctx context.Context, docID uint) (*models.Document, error) {
	var doc models.Document
	if err := r.db.WithContext(ctx).Where("document_id = ?", docID).First(&doc).Error; err != nil {
		return nil, err
	}
	return &doc, nil
}

// GetByOwner 根据用户ID获取文档列表
func (r *documentRepository) GetByOwner(ctx context.Context, ownerID uint, page, limit int) ([]models.Document, int, error) {
	var docs []models.Document
	var total int64

	query := r.db.WithContext(ctx).Model(&models.Document{}).Where("owner_id = ?", ownerID)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := query.Order("document_id DESC").Offset(offset).Limit(limit).Find(&docs).Error; err != nil {
		return nil, 0, err
	}

	return docs, int(total), nil
}

// FindReadyByName 查找同名已就绪文档，用于上传去重。未命中返回nil,nil。
func (r *documentRepository) FindReadyByName(ctx context.Context, ownerID uint, fileName string) (*models.Document, error) {
	var doc models.Document
	err := r.db.WithContext(ctx).
		Where("owner_id = ? AND file_name = ? AND status = ?", ownerID, fileName, models.DocumentStatusReady).
		First(&doc).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &doc, nil
}

// MarkReady 置为就绪状态并记录向量表名
func (r *documentRepository) MarkReady(ctx context.Context, docID uint, vectorTableName string) error {
	return r.db.WithContext(ctx).Model(&models.Document{}).
		Where("document_id = ?", docID).
		Updates(map[string]interface{}{
			"status":            models.DocumentStatusReady,
			"vector_table_name": vectorTableName,
		}).Error
}

// MarkError 置为失败状态，向量表名保持为空
func (r *documentRepository) MarkError(ctx context.Context, docID uint) error {
	return r.db.WithContext(ctx).Model(&models.Document{}).
		Where("document_id = ?", docID).
		Updates(map[string]interface{}{
			"status":            models.DocumentStatusError,
			"vector_table_name": nil,
		}).Error
}

// Update 更新文档
func (r *documentRepository) Update(ctx context.Context, docID uint, updates map[string]interface{}) error {
	return r.db.WithContext(ctx).Model(&models.Document{}).
		Where("document_id = ?", docID).
		Updates(updates).Error
}

// Delete 删除文档
func (r *documentRepository) Delete(ctx context.Context, docID uint) error {
	return r.db.WithContext(ctx).Where("document_id = ?", docID).Delete(&models.Document{}).Error
}
