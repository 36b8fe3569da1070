package models

import (
	"time"
)

// 摄取任务状态
const (
	TaskStateQueued    = "queued"
	TaskStateRunning   = "running"
	TaskStateSucceeded = "succeeded"
	TaskStateFailed    = "failed"
	TaskStateCancelled = "cancelled"
)

// IngestionTask 文档摄取任务表
//
// 每次上传创建一条任务记录，调用方可轮询状态或取消，
// 替代不可观测的后台fire-and-forget处理。
type IngestionTask struct {
	TaskID     uint       `gorm:"primaryKey;column:task_id" json:"task_id"`
	DocumentID uint       `gorm:"column:document_id;not null;index" json:"document_id"`
	State      string     `gorm:"size:20;not null;default:queued;index" json:"state"`
	Error      string     `gorm:"type:text" json:"error,omitempty"`
	CreatedAt  time.Time  `gorm:"column:created_at;not null" json:"created_at"`
	StartedAt  *time.Time `gorm:"column:started_at" json:"started_at,omitempty"`
	FinishedAt *time.Time `gorm:"column:finished_at" json:"finished_at,omitempty"`

	Document Document `gorm:"foreignKey:DocumentID" json:"-"`
}

func (IngestionTask) TableName() string {
	return "ingestion_tasks"
}

// Terminal 任务是否已结束
func (t *IngestionTask) Terminal() bool {
	switch t.State {
	case TaskStateSucceeded, TaskStateFailed, TaskStateCancelled:
		return true
	}
	return false
}
