package routes

import (
	"github.com/gin-gonic/gin"

	"followup-server/controllers"
	"followup-server/middleware"
)

// RegisterDashboardRoutes 注册数据看板路由
func RegisterDashboardRoutes(router *gin.Engine) {
	dashboardGroup := router.Group("/api/dashboard")
	dashboardGroup.Use(middleware.AuthMiddleware())

	dashboardGroup.GET("", controllers.GetDashboard)
}
