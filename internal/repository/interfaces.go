package repository

import (
	"context"

	"github.com/notebase/backend-go/internal/models"
	"gorm.io/gorm"
)

// Repository 基础仓库接口
type Repository interface {
	GetDB() *gorm.DB
}

// UserRepository 用户仓库接口
type UserRepository interface {
	Repository
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, userID uint) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
}

// DocumentRepository 文档仓库接口
type DocumentRepository interface {
	Repository
	Create(ctx context.Context, doc *models.Document) error
	GetByID(ctx context.Context, docID uint) (*models.Document, error)
	GetByOwner(ctx context.Context, ownerID uint, page, limit int) ([]models.Document, int, error)
	FindReadyByName(ctx context.Context, ownerID uint, fileName string) (*models.Document, error)
	MarkReady(ctx context.Context, docID uint, vectorTableName string) error
	MarkError(ctx context.Context, docID uint) error
	Update(ctx context.Context, docID uint, updates map[string]interface{}) error
	Delete(ctx context.Context, docID uint) error
}

// NotebookRepository 笔记本仓库接口
type NotebookRepository interface {
	Repository
	Create(ctx context.Context, nb *models.Notebook) error
	GetByID(ctx context.Context, notebookID uint) (*models.Notebook, error)
	GetByOwner(ctx context.Context, ownerID uint, page, limit int) ([]models.Notebook, int, error)
	GetPublic(ctx context.Context, category string, page, limit int) ([]models.Notebook, int, error)
	Update(ctx context.Context, notebookID uint, ownerID uint, updates map[string]interface{}) error
	Delete(ctx context.Context, notebookID uint, ownerID uint) error

	AttachDocument(ctx context.Context, notebookID, documentID uint) error
	DetachDocument(ctx context.Context, notebookID, documentID uint) error
	ListDocuments(ctx context.Context, notebookID uint) ([]models.Document, error)

	ListMessages(ctx context.Context, notebookID uint, limit int) ([]models.NotebookMessage, error)
	AppendMessagePair(ctx context.Context, userMsg, modelMsg *models.NotebookMessage) error

	Like(ctx context.Context, notebookID, userID uint) error
	Unlike(ctx context.Context, notebookID, userID uint) error
	CountLikes(ctx context.Context, notebookID uint) (int64, error)
}

// TaskRepository 摄取任务仓库接口
type TaskRepository interface {
	Repository
	Create(ctx context.Context, task *models.IngestionTask) error
	GetByID(ctx context.Context, taskID uint) (*models.IngestionTask, error)
	UpdateState(ctx context.Context, taskID uint, updates map[string]interface{}) error
}
