package controllers

import (
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/notebase/backend-go/app/bootstrap"
	"github.com/notebase/backend-go/internal/config"
	"github.com/notebase/backend-go/internal/models"
	"github.com/notebase/backend-go/internal/rag"
)

// DocumentController 文档上传与摄取任务管理
type DocumentController struct {
	BaseController
}

// List 获取当前用户的文档列表
func (c *DocumentController) List() {
	userID, ok := c.requireUser()
	if !ok {
		return
	}
	page, limit := c.pagination()

	docs, total, err := bootstrap.GetApp().Documents.GetByOwner(c.Ctx.Request.Context(), userID, page, limit)
	if err != nil {
		c.JSONAppError(err)
		return
	}

	c.JSONSuccess(map[string]interface{}{
		"documents": docs,
		"total":     total,
		"page":      page,
		"limit":     limit,
	})
}

// Upload 上传文档并入队摄取，返回202与任务ID
func (c *DocumentController) Upload() {
	userID, ok := c.requireUser()
	if !ok {
		return
	}

	file, header, err := c.GetFile("file")
	if err != nil {
		c.JSONError(http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close()

	cfg := config.AppConfig
	if header.Size > cfg.FileUpload.MaxSize {
		c.JSONError(http.StatusRequestEntityTooLarge, "file too large")
		return
	}

	ext := strings.ToLower(filepath.Ext(header.Filename))
	if !allowedExtension(ext, cfg.FileUpload.AllowedTypes) {
		c.JSONError(http.StatusBadRequest, "unsupported file type "+ext)
		return
	}

	content, err := io.ReadAll(file)
	if err != nil {
		c.JSONError(http.StatusBadRequest, "failed to read file")
		return
	}

	doc, task, err := bootstrap.GetApp().Tasks.Enqueue(
		c.Ctx.Request.Context(), userID, header.Filename, mediaTypeFor(ext, header.Header.Get("Content-Type")), content)
	if err != nil {
		c.JSONAppError(err)
		return
	}

	// 去重命中时文档已就绪，任务记录为已完成
	if task.State == models.TaskStateSucceeded {
		c.JSONSuccess(map[string]interface{}{
			"document": doc,
			"task_id":  task.TaskID,
			"state":    task.State,
		})
		return
	}

	c.JSONAccepted(map[string]interface{}{
		"document": doc,
		"task_id":  task.TaskID,
		"state":    task.State,
	})
}

// GetTask 轮询摄取任务状态
func (c *DocumentController) GetTask() {
	userID, ok := c.requireUser()
	if !ok {
		return
	}
	taskID, ok := c.paramUint(":task_id")
	if !ok {
		return
	}

	task, doc, ok := c.loadOwnedTask(taskID, userID)
	if !ok {
		return
	}

	c.JSONSuccess(map[string]interface{}{
		"task":     task,
		"document": doc,
	})
}

// CancelTask 取消摄取任务
func (c *DocumentController) CancelTask() {
	userID, ok := c.requireUser()
	if !ok {
		return
	}
	taskID, ok := c.paramUint(":task_id")
	if !ok {
		return
	}

	if _, _, ok := c.loadOwnedTask(taskID, userID); !ok {
		return
	}

	task, err := bootstrap.GetApp().Tasks.Cancel(c.Ctx.Request.Context(), taskID)
	if err != nil {
		c.JSONAppError(err)
		return
	}
	c.JSONSuccess(map[string]interface{}{"task": task})
}

// loadOwnedTask 加载任务并校验其文档属于当前用户
func (c *DocumentController) loadOwnedTask(taskID, userID uint) (*models.IngestionTask, *models.Document, bool) {
	app := bootstrap.GetApp()
	task, err := app.Tasks.Poll(c.Ctx.Request.Context(), taskID)
	if err != nil {
		c.JSONError(http.StatusNotFound, "task not found")
		return nil, nil, false
	}
	doc, err := app.Documents.GetByID(c.Ctx.Request.Context(), task.DocumentID)
	if err != nil {
		c.JSONError(http.StatusNotFound, "document not found")
		return nil, nil, false
	}
	if doc.OwnerID != userID {
		c.JSONError(http.StatusForbidden, "task belongs to another user")
		return nil, nil, false
	}
	return task, doc, true
}

func allowedExtension(ext string, allowed []string) bool {
	for _, a := range allowed {
		if strings.EqualFold(a, ext) {
			return true
		}
	}
	return false
}

// mediaTypeFor 根据扩展名推断媒体类型，上传头缺失时兜底
func mediaTypeFor(ext, headerType string) string {
	switch ext {
	case ".pdf":
		return rag.MediaTypePDF
	case ".docx":
		return rag.MediaTypeDocx
	}
	if headerType != "" {
		return headerType
	}
	return "text/plain"
}
