package controllers

import (
	"encoding/json"
	"net/http"

	"github.com/notebase/backend-go/app/bootstrap"
)

// AuthController 用户注册与登录
type AuthController struct {
	BaseController
}

type registerRequest struct {
	Username string `json:"username" validate:"required,min=3,max=50"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

type loginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// Register 注册新用户
func (c *AuthController) Register() {
	var req registerRequest
	if err := json.Unmarshal(c.Ctx.Input.RequestBody, &req); err != nil {
		c.JSONError(http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(&req); err != nil {
		c.JSONError(http.StatusBadRequest, err.Error())
		return
	}

	user, err := bootstrap.GetApp().Auth.Register(c.Ctx.Request.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		c.JSONAppError(err)
		return
	}

	c.JSON(http.StatusCreated, map[string]interface{}{
		"success": true,
		"data": map[string]interface{}{
			"user_id":  user.UserID,
			"username": user.Username,
			"email":    user.Email,
		},
	})
}

// Login 登录并签发JWT
func (c *AuthController) Login() {
	var req loginRequest
	if err := json.Unmarshal(c.Ctx.Input.RequestBody, &req); err != nil {
		c.JSONError(http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(&req); err != nil {
		c.JSONError(http.StatusBadRequest, err.Error())
		return
	}

	token, user, err := bootstrap.GetApp().Auth.Login(c.Ctx.Request.Context(), req.Username, req.Password)
	if err != nil {
		c.JSONAppError(err)
		return
	}

	c.JSONSuccess(map[string]interface{}{
		"token":    token,
		"user_id":  user.UserID,
		"username": user.Username,
	})
}
