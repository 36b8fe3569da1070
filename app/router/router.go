package router

import (
	"github.com/beego/beego/v2/server/web"
	"github.com/notebase/backend-go/app/bootstrap"
	"github.com/notebase/backend-go/app/controllers"
	"github.com/notebase/backend-go/app/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Init registers all routes. Must be called after bootstrap.Init.
func Init(app *bootstrap.App) {
	web.Router("/health", &controllers.HealthController{}, "get:Health")
	web.Handler("/metrics", promhttp.Handler())

	// JWT认证过滤器保护/api/*，认证与公开路由在过滤器内放行
	web.InsertFilter("/api/*", web.BeforeRouter, middleware.JWTFilter(app.JWT))

	authController := &controllers.AuthController{}
	web.Router("/api/auth/register", authController, "post:Register")
	web.Router("/api/auth/login", authController, "post:Login")

	documentController := &controllers.DocumentController{}
	web.Router("/api/documents", documentController, "get:List")
	web.Router("/api/documents/upload", documentController, "post:Upload")
	web.Router("/api/documents/tasks/:task_id", documentController, "get:GetTask;delete:CancelTask")

	// 注意：具体路由必须在参数路由之前，否则/public会被:id匹配
	notebookController := &controllers.NotebookController{}
	web.Router("/api/notebooks/public", notebookController, "get:Public")
	web.Router("/api/notebooks", notebookController, "get:List;post:Create")
	web.Router("/api/notebooks/:id", notebookController, "get:Get;put:Update;delete:Delete")
	web.Router("/api/notebooks/:id/documents", notebookController, "get:Documents;post:AttachDocument")
	web.Router("/api/notebooks/:id/documents/:doc_id", notebookController, "delete:DetachDocument")
	web.Router("/api/notebooks/:id/messages", notebookController, "get:Messages")
	web.Router("/api/notebooks/:id/like", notebookController, "post:Like;delete:Unlike")
	web.Router("/api/notebooks/:id/clone", notebookController, "post:Clone")
	web.Router("/api/notebooks/:id/chat", notebookController, "post:Chat")
}
