package routes

import (
	"github.com/gin-gonic/gin"

	"followup-server/controllers"
	"followup-server/middleware"
)

// RegisterFollowUpRoutes 注册跟进相关路由
func RegisterFollowUpRoutes(router *gin.Engine) {
	followUpGroup := router.Group("/api/followups")
	followUpGroup.Use(middleware.AuthMiddleware())

	// 创建跟进
	followUpGroup.POST("", controllers.CreateFollowUp)

	// 获取可见范围内的跟进列表
	followUpGroup.GET("", controllers.ListFollowUps)

	// 按线索/客户检索历史（必须在/:id之前注册具体路径）
	followUpGroup.GET("/history_by_entity", controllers.GetEntityHistory)

	// 单条跟进操作
	followUpGroup.GET("/:id", controllers.GetFollowUp)
	followUpGroup.PUT("/:id", controllers.UpdateFollowUp)
	followUpGroup.PUT("/:id/status", controllers.UpdateFollowUpStatus)
	followUpGroup.GET("/:id/history", controllers.GetFollowUpHistory)
}
