package models

import (
	"fmt"
	"time"
)

// 文档处理状态
const (
	DocumentStatusPending    = "pending"
	DocumentStatusProcessing = "processing"
	DocumentStatusReady      = "ready"
	DocumentStatusError      = "error"
)

// Document 上传文档表
//
// 状态机：pending → processing → {ready | error}。
// vector_table_name 仅在 status=ready 时非空，且对应的向量集合必须存在且非空。
type Document struct {
	DocumentID      uint      `gorm:"primaryKey;column:document_id" json:"document_id"`
	OwnerID         uint      `gorm:"column:owner_id;not null;index" json:"owner_id"`
	FileName        string    `gorm:"column:file_name;size:255;not null" json:"file_name"`
	Status          string    `gorm:"size:20;not null;default:pending;index" json:"status"`
	VectorTableName *string   `gorm:"column:vector_table_name;size:64;uniqueIndex" json:"vector_table_name,omitempty"`
	Summary         *string   `gorm:"type:text" json:"summary,omitempty"`
	StoragePath     string    `gorm:"column:storage_path;size:512" json:"storage_path,omitempty"`
	CreatedAt       time.Time `gorm:"column:created_at;not null" json:"created_at"`
	UpdatedAt       time.Time `gorm:"column:updated_at" json:"updated_at"`

	Owner User `gorm:"foreignKey:OwnerID" json:"-"`
}

func (Document) TableName() string {
	return "documents"
}

// VectorTable 返回该文档向量集合的确定性名称
func (d *Document) VectorTable() string {
	return VectorTableName(d.DocumentID)
}

// IsReady 文档是否可参与检索
func (d *Document) IsReady() bool {
	return d.Status == DocumentStatusReady && d.VectorTableName != nil && *d.VectorTableName != ""
}

// VectorTableName 由文档ID派生向量集合名
func VectorTableName(documentID uint) string {
	return fmt.Sprintf("doc_%d", documentID)
}
