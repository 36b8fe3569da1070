package controllers

// HealthController 健康检查
type HealthController struct {
	BaseController
}

// Health 存活探针
func (c *HealthController) Health() {
	c.JSONSuccess(map[string]interface{}{
		"status": "ok",
	})
}
