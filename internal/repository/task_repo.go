package repository

import (
	"context"

	"github.com/notebase/backend-go/internal/models"
	"gorm.io/gorm"
)

// taskRepository 摄取任务仓库实现
type taskRepository struct {
	db *gorm.DB
}

// NewTaskRepository 创建摄取任务仓库
func NewTaskRepository(db *gorm.DB) TaskRepository {
	return &taskRepository{db: db}
}

func (r *taskRepository) GetDB() *gorm.DB {
	return r.db
}

// Create 创建任务记录
func (r *taskRepository) Create(ctx context.Context, task *models.IngestionTask) error {
	return r.db.WithContext(ctx).Create(task).Error
}

// GetByID 根据ID获取任务
func (r *taskRepository) GetByID(ctx context.Context, taskID uint) (*models.IngestionTask, error) {
	var task models.IngestionTask
	if err := r.db.WithContext(ctx).Where("task_id = ?", taskID).First(&task).Error; err != nil {
		return nil, err
	}
	return &task, nil
}

// UpdateState 更新任务状态
func (r *taskRepository) UpdateState(ctx context.Context, taskID uint, updates map[string]interface{}) error {
	return r.db.WithContext(ctx).Model(&models.IngestionTask{}).
		Where("task_id = ?", taskID).
		Updates(updates).Error
}
