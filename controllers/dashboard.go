package controllers

import (
	"context"
	"net/http"

	"followup-server/utils"

	"github.com/gin-gonic/gin"
)

// GetDashboard 获取当前用户的数据看板
func GetDashboard(c *gin.Context) {
	user, err := utils.GetUser(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}

	data, err := followUpService.Dashboard(context.Background(), user)
	if err != nil {
		utils.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, data)
}
