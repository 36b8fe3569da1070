package middleware

import (
	"net/http"
	"strings"

	"github.com/beego/beego/v2/server/web/context"
	"github.com/notebase/backend-go/internal/auth"
)

// CtxUserIDKey 认证用户ID在请求上下文中的键
const CtxUserIDKey = "auth_user_id"

// CtxUsernameKey 认证用户名在请求上下文中的键
const CtxUsernameKey = "auth_username"

// 无需认证的路径前缀
var publicPaths = []string{
	"/api/auth/",
	"/api/notebooks/public",
}

// JWTFilter 创建JWT认证过滤器，保护/api/*路由
func JWTFilter(jwtService *auth.JWTService) func(*context.Context) {
	return func(ctx *context.Context) {
		path := ctx.Request.URL.Path
		for _, prefix := range publicPaths {
			if strings.HasPrefix(path, prefix) {
				return
			}
		}

		authHeader := ctx.Input.Header("Authorization")
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			unauthorized(ctx, "missing bearer token")
			return
		}

		claims, err := jwtService.ValidateToken(parts[1])
		if err != nil {
			unauthorized(ctx, "invalid or expired token")
			return
		}

		ctx.Input.SetData(CtxUserIDKey, claims.UserID)
		ctx.Input.SetData(CtxUsernameKey, claims.Username)
	}
}

func unauthorized(ctx *context.Context, message string) {
	ctx.Output.SetStatus(http.StatusUnauthorized)
	_ = ctx.Output.JSON(map[string]interface{}{
		"success": false,
		"error":   message,
	}, false, false)
}
