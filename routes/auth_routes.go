package routes

import (
	"github.com/gin-gonic/gin"

	"followup-server/controllers"
	"followup-server/middleware"
)

// RegisterAuthRoutes 注册认证相关路由
func RegisterAuthRoutes(router *gin.Engine) {
	authGroup := router.Group("/api/auth")

	// 注册和登录无需令牌
	authGroup.POST("/register", controllers.Register)
	authGroup.POST("/login", controllers.Login)

	authGroup.POST("/logout", middleware.AuthMiddleware(), controllers.Logout)
	authGroup.GET("/me", middleware.AuthMiddleware(), controllers.CurrentUser)
	authGroup.GET("/users", middleware.AuthMiddleware(), controllers.ListUsers)
}
