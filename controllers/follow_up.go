package controllers

import (
	"context"
	"net/http"

	"followup-server/models"
	"followup-server/service"
	"followup-server/utils"

	"github.com/gin-gonic/gin"
)

var followUpService *service.FollowUpService

// Init 注入跟进服务实例，main在存储初始化后调用
func Init(svc *service.FollowUpService) {
	followUpService = svc
}

// CreateFollowUp 创建跟进
func CreateFollowUp(c *gin.Context) {
	var input models.FollowUpInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.ErrorResponse(c, "无效的请求数据: "+err.Error(), http.StatusBadRequest)
		return
	}

	user, err := utils.GetUser(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}

	id, err := followUpService.Create(context.Background(), &input, user)
	if err != nil {
		utils.HandleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "创建跟进成功",
		"id":      id,
	})
}

// ListFollowUps 获取当前用户可见的跟进列表
func ListFollowUps(c *gin.Context) {
	user, err := utils.GetUser(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}

	followups, err := followUpService.List(context.Background(), user)
	if err != nil {
		utils.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"followups": followups})
}

// GetFollowUp 按ID获取跟进
func GetFollowUp(c *gin.Context) {
	user, err := utils.GetUser(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}

	followup, err := followUpService.Get(context.Background(), c.Param("id"), user)
	if err != nil {
		utils.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"followup": followup})
}

// UpdateFollowUp 更新跟进
func UpdateFollowUp(c *gin.Context) {
	var input models.FollowUpInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.ErrorResponse(c, "无效的请求数据: "+err.Error(), http.StatusBadRequest)
		return
	}

	user, err := utils.GetUser(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}

	if err := followUpService.Update(context.Background(), c.Param("id"), &input, user); err != nil {
		utils.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "更新跟进成功"})
}

// UpdateFollowUpStatus 跟进状态流转
func UpdateFollowUpStatus(c *gin.Context) {
	var req models.StatusUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, "无效的请求数据: "+err.Error(), http.StatusBadRequest)
		return
	}

	user, err := utils.GetUser(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}

	if err := followUpService.TransitionStatus(context.Background(), c.Param("id"), req.Status, req.Remarks, user); err != nil {
		utils.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "跟进状态已更新为" + string(req.Status),
	})
}

// GetFollowUpHistory 获取指定跟进的历史记录
func GetFollowUpHistory(c *gin.Context) {
	user, err := utils.GetUser(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}

	history, err := followUpService.History(context.Background(), c.Param("id"), user)
	if err != nil {
		utils.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"history": history})
}

// GetEntityHistory 按线索/客户检索全部跟进历史
func GetEntityHistory(c *gin.Context) {
	if _, err := utils.GetUser(c); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}

	leadID := c.Query("lead_id")
	customerID := c.Query("customer_id")

	kind := models.EntityKindLead
	value := leadID
	if leadID == "" {
		kind = models.EntityKindCustomer
		value = customerID
	}

	history, err := followUpService.HistoryByEntity(context.Background(), kind, value)
	if err != nil {
		utils.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"history": history})
}
