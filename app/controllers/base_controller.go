package controllers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/beego/beego/v2/server/web"
	"github.com/go-playground/validator/v10"
	"github.com/notebase/backend-go/app/middleware"
	apperrors "github.com/notebase/backend-go/internal/errors"
)

var validate = validator.New()

// BaseController provides helpers for consistent JSON responses.
type BaseController struct {
	web.Controller
}

// JSON writes a JSON response with the supplied HTTP status code.
func (c *BaseController) JSON(status int, payload interface{}) {
	c.Ctx.Output.SetStatus(status)
	c.Data["json"] = payload
	c.ServeJSON()
}

// JSONSuccess writes a standard success envelope.
func (c *BaseController) JSONSuccess(data interface{}) {
	c.JSON(http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    data,
	})
}

// JSONAccepted writes a success envelope with 202 status.
func (c *BaseController) JSONAccepted(data interface{}) {
	c.JSON(http.StatusAccepted, map[string]interface{}{
		"success": true,
		"data":    data,
	})
}

// JSONError writes an error envelope with message.
func (c *BaseController) JSONError(status int, message string) {
	c.JSON(status, map[string]interface{}{
		"success": false,
		"error":   message,
	})
}

// JSONAppError 根据错误类型映射HTTP状态码并输出错误信封
func (c *BaseController) JSONAppError(err error) {
	status := apperrors.HTTPStatus(err)

	var ae *apperrors.AppError
	if errors.As(err, &ae) {
		c.JSON(status, map[string]interface{}{
			"success": false,
			"error":   ae.Message,
			"code":    ae.Code,
		})
		return
	}
	var pe *apperrors.PipelineError
	if errors.As(err, &pe) {
		c.JSON(status, map[string]interface{}{
			"success": false,
			"error":   pe.Message,
			"code":    pe.Code,
		})
		return
	}
	c.JSONError(status, err.Error())
}

// currentUserID 获取认证过滤器写入的用户ID
func (c *BaseController) currentUserID() (uint, bool) {
	if v := c.Ctx.Input.GetData(middleware.CtxUserIDKey); v != nil {
		if userID, ok := v.(uint); ok {
			return userID, true
		}
	}
	return 0, false
}

// requireUser 获取认证用户ID，缺失时写出401
func (c *BaseController) requireUser() (uint, bool) {
	userID, ok := c.currentUserID()
	if !ok {
		c.JSONError(http.StatusUnauthorized, "authentication required")
	}
	return userID, ok
}

// paramUint 解析路径参数为uint
func (c *BaseController) paramUint(name string) (uint, bool) {
	raw := c.Ctx.Input.Param(name)
	value, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		c.JSONError(http.StatusBadRequest, "invalid "+name)
		return 0, false
	}
	return uint(value), true
}

// pagination 解析分页查询参数
func (c *BaseController) pagination() (page, limit int) {
	page, _ = c.GetInt("page", 1)
	limit, _ = c.GetInt("limit", 20)
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	return page, limit
}
