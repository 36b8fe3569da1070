package controllers

import (
	"encoding/json"
	"net/http"

	"github.com/notebase/backend-go/app/bootstrap"
)

// NotebookController 笔记本管理与问答
type NotebookController struct {
	BaseController
}

type notebookRequest struct {
	Title       string `json:"title" validate:"required,max=255"`
	Description string `json:"description" validate:"max=4000"`
	Category    string `json:"category" validate:"max=50"`
	IsPublic    bool   `json:"is_public"`
}

type attachDocumentRequest struct {
	DocumentID uint `json:"document_id" validate:"required"`
}

type chatRequest struct {
	Message string `json:"message" validate:"required,max=8000"`
}

// Create 创建笔记本
func (c *NotebookController) Create() {
	userID, ok := c.requireUser()
	if !ok {
		return
	}

	var req notebookRequest
	if err := json.Unmarshal(c.Ctx.Input.RequestBody, &req); err != nil {
		c.JSONError(http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(&req); err != nil {
		c.JSONError(http.StatusBadRequest, err.Error())
		return
	}

	nb, err := bootstrap.GetApp().Notebooks.Create(
		c.Ctx.Request.Context(), userID, req.Title, req.Description, req.Category, req.IsPublic)
	if err != nil {
		c.JSONAppError(err)
		return
	}
	c.JSON(http.StatusCreated, map[string]interface{}{
		"success": true,
		"data":    nb,
	})
}

// List 获取当前用户的笔记本列表
func (c *NotebookController) List() {
	userID, ok := c.requireUser()
	if !ok {
		return
	}
	page, limit := c.pagination()

	notebooks, total, err := bootstrap.GetApp().Notebooks.List(c.Ctx.Request.Context(), userID, page, limit)
	if err != nil {
		c.JSONAppError(err)
		return
	}
	c.JSONSuccess(map[string]interface{}{
		"notebooks": notebooks,
		"total":     total,
		"page":      page,
		"limit":     limit,
	})
}

// Public 获取公开笔记本列表
func (c *NotebookController) Public() {
	page, limit := c.pagination()
	category := c.GetString("category")

	notebooks, total, err := bootstrap.GetApp().Notebooks.ListPublic(c.Ctx.Request.Context(), category, page, limit)
	if err != nil {
		c.JSONAppError(err)
		return
	}
	c.JSONSuccess(map[string]interface{}{
		"notebooks": notebooks,
		"total":     total,
		"page":      page,
		"limit":     limit,
	})
}

// Get 获取笔记本详情
func (c *NotebookController) Get() {
	userID, ok := c.requireUser()
	if !ok {
		return
	}
	notebookID, ok := c.paramUint(":id")
	if !ok {
		return
	}

	nb, err := bootstrap.GetApp().Notebooks.Get(c.Ctx.Request.Context(), notebookID, userID)
	if err != nil {
		c.JSONAppError(err)
		return
	}
	c.JSONSuccess(nb)
}

// Update 更新笔记本元信息
func (c *NotebookController) Update() {
	userID, ok := c.requireUser()
	if !ok {
		return
	}
	notebookID, ok := c.paramUint(":id")
	if !ok {
		return
	}

	var req notebookRequest
	if err := json.Unmarshal(c.Ctx.Input.RequestBody, &req); err != nil {
		c.JSONError(http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(&req); err != nil {
		c.JSONError(http.StatusBadRequest, err.Error())
		return
	}

	nb, err := bootstrap.GetApp().Notebooks.Update(c.Ctx.Request.Context(), notebookID, userID, map[string]interface{}{
		"title":       req.Title,
		"description": req.Description,
		"category":    req.Category,
		"is_public":   req.IsPublic,
	})
	if err != nil {
		c.JSONAppError(err)
		return
	}
	c.JSONSuccess(nb)
}

// Delete 删除笔记本
func (c *NotebookController) Delete() {
	userID, ok := c.requireUser()
	if !ok {
		return
	}
	notebookID, ok := c.paramUint(":id")
	if !ok {
		return
	}

	if err := bootstrap.GetApp().Notebooks.Delete(c.Ctx.Request.Context(), notebookID, userID); err != nil {
		c.JSONAppError(err)
		return
	}
	c.JSONSuccess(map[string]interface{}{"deleted": true})
}

// AttachDocument 将文档关联到笔记本
func (c *NotebookController) AttachDocument() {
	userID, ok := c.requireUser()
	if !ok {
		return
	}
	notebookID, ok := c.paramUint(":id")
	if !ok {
		return
	}

	var req attachDocumentRequest
	if err := json.Unmarshal(c.Ctx.Input.RequestBody, &req); err != nil {
		c.JSONError(http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(&req); err != nil {
		c.JSONError(http.StatusBadRequest, err.Error())
		return
	}

	if err := bootstrap.GetApp().Notebooks.AttachDocument(c.Ctx.Request.Context(), notebookID, userID, req.DocumentID); err != nil {
		c.JSONAppError(err)
		return
	}
	c.JSONSuccess(map[string]interface{}{"attached": true})
}

// DetachDocument 解除文档关联
func (c *NotebookController) DetachDocument() {
	userID, ok := c.requireUser()
	if !ok {
		return
	}
	notebookID, ok := c.paramUint(":id")
	if !ok {
		return
	}
	documentID, ok := c.paramUint(":doc_id")
	if !ok {
		return
	}

	if err := bootstrap.GetApp().Notebooks.DetachDocument(c.Ctx.Request.Context(), notebookID, userID, documentID); err != nil {
		c.JSONAppError(err)
		return
	}
	c.JSONSuccess(map[string]interface{}{"detached": true})
}

// Documents 按关联顺序返回笔记本的文档列表
func (c *NotebookController) Documents() {
	userID, ok := c.requireUser()
	if !ok {
		return
	}
	notebookID, ok := c.paramUint(":id")
	if !ok {
		return
	}

	docs, err := bootstrap.GetApp().Notebooks.ListDocuments(c.Ctx.Request.Context(), notebookID, userID)
	if err != nil {
		c.JSONAppError(err)
		return
	}
	c.JSONSuccess(map[string]interface{}{"documents": docs})
}

// Messages 返回笔记本的消息历史
func (c *NotebookController) Messages() {
	userID, ok := c.requireUser()
	if !ok {
		return
	}
	notebookID, ok := c.paramUint(":id")
	if !ok {
		return
	}
	limit, _ := c.GetInt("limit", 0)

	messages, err := bootstrap.GetApp().Notebooks.ListMessages(c.Ctx.Request.Context(), notebookID, userID, limit)
	if err != nil {
		c.JSONAppError(err)
		return
	}
	c.JSONSuccess(map[string]interface{}{"messages": messages})
}

// Like 点赞笔记本
func (c *NotebookController) Like() {
	userID, ok := c.requireUser()
	if !ok {
		return
	}
	notebookID, ok := c.paramUint(":id")
	if !ok {
		return
	}

	count, err := bootstrap.GetApp().Notebooks.Like(c.Ctx.Request.Context(), notebookID, userID)
	if err != nil {
		c.JSONAppError(err)
		return
	}
	c.JSONSuccess(map[string]interface{}{"likes": count})
}

// Unlike 取消点赞
func (c *NotebookController) Unlike() {
	userID, ok := c.requireUser()
	if !ok {
		return
	}
	notebookID, ok := c.paramUint(":id")
	if !ok {
		return
	}

	count, err := bootstrap.GetApp().Notebooks.Unlike(c.Ctx.Request.Context(), notebookID, userID)
	if err != nil {
		c.JSONAppError(err)
		return
	}
	c.JSONSuccess(map[string]interface{}{"likes": count})
}

// Clone 克隆公开笔记本
func (c *NotebookController) Clone() {
	userID, ok := c.requireUser()
	if !ok {
		return
	}
	notebookID, ok := c.paramUint(":id")
	if !ok {
		return
	}

	clone, err := bootstrap.GetApp().Notebooks.Clone(c.Ctx.Request.Context(), notebookID, userID)
	if err != nil {
		c.JSONAppError(err)
		return
	}
	c.JSON(http.StatusCreated, map[string]interface{}{
		"success": true,
		"data":    clone,
	})
}

// Chat 基于关联文档的问答
func (c *NotebookController) Chat() {
	userID, ok := c.requireUser()
	if !ok {
		return
	}
	notebookID, ok := c.paramUint(":id")
	if !ok {
		return
	}

	var req chatRequest
	if err := json.Unmarshal(c.Ctx.Input.RequestBody, &req); err != nil {
		c.JSONError(http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(&req); err != nil {
		c.JSONError(http.StatusBadRequest, err.Error())
		return
	}

	reply, err := bootstrap.GetApp().Chat.Answer(c.Ctx.Request.Context(), notebookID, userID, req.Message)
	if err != nil {
		c.JSONAppError(err)
		return
	}
	c.JSONSuccess(map[string]interface{}{"reply": reply})
}
