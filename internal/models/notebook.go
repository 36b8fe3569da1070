package models

import (
	"time"
)

// 消息角色
const (
	MessageRoleUser  = "user"
	MessageRoleModel = "model"
)

// Notebook 笔记本表
type Notebook struct {
	NotebookID  uint      `gorm:"primaryKey;column:notebook_id" json:"notebook_id"`
	OwnerID     uint      `gorm:"column:owner_id;not null;index" json:"owner_id"`
	Title       string    `gorm:"size:255;not null" json:"title"`
	Description string    `gorm:"type:text" json:"description"`
	IsPublic    bool      `gorm:"column:is_public;default:false;index" json:"is_public"`
	Category    string    `gorm:"size:50" json:"category,omitempty"`
	ClonedFrom  *uint     `gorm:"column:cloned_from" json:"cloned_from,omitempty"`
	CreatedAt   time.Time `gorm:"column:created_at;not null" json:"created_at"`
	UpdatedAt   time.Time `gorm:"column:updated_at" json:"updated_at"`

	Owner     User               `gorm:"foreignKey:OwnerID" json:"-"`
	Documents []NotebookDocument `gorm:"foreignKey:NotebookID" json:"-"`
	Messages  []NotebookMessage  `gorm:"foreignKey:NotebookID" json:"-"`
	Likes     []NotebookLike     `gorm:"foreignKey:NotebookID" json:"-"`
}

func (Notebook) TableName() string {
	return "notebooks"
}

// NotebookDocument 笔记本与文档的关联表，position保留关联顺序
type NotebookDocument struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	NotebookID uint      `gorm:"column:notebook_id;not null;uniqueIndex:idx_notebook_document" json:"notebook_id"`
	DocumentID uint      `gorm:"column:document_id;not null;uniqueIndex:idx_notebook_document" json:"document_id"`
	Position   int       `gorm:"not null" json:"position"`
	CreatedAt  time.Time `gorm:"column:created_at;not null" json:"created_at"`

	Document Document `gorm:"foreignKey:DocumentID" json:"-"`
}

func (NotebookDocument) TableName() string {
	return "notebook_documents"
}

// NotebookMessage 笔记本消息表，只追加，成对写入（user在前，model在后）
type NotebookMessage struct {
	MessageID  uint      `gorm:"primaryKey;column:message_id" json:"message_id"`
	NotebookID uint      `gorm:"column:notebook_id;not null;index" json:"notebook_id"`
	Role       string    `gorm:"size:10;not null" json:"role"`
	Content    string    `gorm:"type:text;not null" json:"content"`
	CreatedAt  time.Time `gorm:"column:created_at;not null;index" json:"created_at"`
}

func (NotebookMessage) TableName() string {
	return "notebook_messages"
}

// NotebookLike 笔记本点赞表
type NotebookLike struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	NotebookID uint      `gorm:"column:notebook_id;not null;uniqueIndex:idx_notebook_like" json:"notebook_id"`
	UserID     uint      `gorm:"column:user_id;not null;uniqueIndex:idx_notebook_like" json:"user_id"`
	CreatedAt  time.Time `gorm:"column:created_at;not null" json:"created_at"`
}

func (NotebookLike) TableName() string {
	return "notebook_likes"
}
