package controllers

import (
	"net/http"

	"followup-server/models"
	"followup-server/repository"
	"followup-server/utils"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/mongo"
)

// Register 用户注册
func Register(c *gin.Context) {
	var req models.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, "无效的请求参数: "+err.Error(), http.StatusBadRequest)
		return
	}

	// 未指定角色时默认为Sales Executive
	if req.Role == "" {
		req.Role = models.UserRoleSalesExecutive
	}
	if !models.ValidRole(req.Role) {
		utils.ErrorResponse(c, "无效的角色: "+string(req.Role), http.StatusBadRequest)
		return
	}

	// 检查用户名是否已存在
	if _, err := repository.FindUserByUsername(req.Username); err == nil {
		utils.ErrorResponse(c, "用户名已存在", http.StatusBadRequest)
		return
	} else if err != repository.ErrNotFound {
		utils.HandleError(c, utils.CreateStorageError(err))
		return
	}

	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		utils.HandleError(c, err)
		return
	}

	user := &models.User{
		Username:     req.Username,
		PasswordHash: hash,
		Role:         req.Role,
		CreatedAt:    utils.NowTimestamp(),
	}

	if _, err := repository.InsertUser(user); err != nil {
		// 唯一索引兜底并发注册
		if mongo.IsDuplicateKeyError(err) {
			utils.ErrorResponse(c, "用户名已存在", http.StatusBadRequest)
			return
		}
		utils.HandleError(c, utils.CreateStorageError(err))
		return
	}

	utils.Logger.Info().Str("username", req.Username).Str("role", string(req.Role)).Msg("用户注册成功")

	c.JSON(http.StatusCreated, gin.H{"message": "注册成功"})
}

// Login 用户登录
func Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, "无效的请求参数: "+err.Error(), http.StatusBadRequest)
		return
	}

	utils.Logger.Info().Str("username", req.Username).Msg("登录尝试")

	user, err := repository.FindUserByUsername(req.Username)
	if err != nil {
		if err == repository.ErrNotFound {
			utils.ErrorResponse(c, "用户名或密码错误", http.StatusUnauthorized)
			return
		}
		utils.ErrorResponse(c, "登录失败: 数据库错误", http.StatusInternalServerError)
		return
	}

	// 验证密码
	if !utils.VerifyPassword(req.Password, user.PasswordHash) {
		utils.Logger.Info().Str("username", req.Username).Msg("登录失败: 密码错误")
		utils.ErrorResponse(c, "用户名或密码错误", http.StatusUnauthorized)
		return
	}

	// 生成JWT令牌
	token, err := utils.GenerateToken(user)
	if err != nil {
		utils.ErrorResponse(c, "生成登录令牌失败，请重试", http.StatusInternalServerError)
		return
	}

	utils.Logger.Info().Str("username", user.Username).Str("role", string(user.Role)).Msg("登录成功")

	utils.SuccessResponse(c, gin.H{
		"token": token,
		"user": gin.H{
			"id":       user.ID.Hex(),
			"username": user.Username,
			"role":     user.Role,
		},
	}, "登录成功")
}

// Logout 用户登出
// 令牌是无状态的，由客户端丢弃，这里只做确认
func Logout(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "已登出"})
}

// CurrentUser 获取当前登录用户信息
func CurrentUser(c *gin.Context) {
	user, err := utils.GetUser(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user_id":  user.ID,
		"username": user.Username,
		"role":     user.Role,
	})
}

// ListUsers 获取用户列表（分配下拉用），仅Admin和Sales Manager可见
func ListUsers(c *gin.Context) {
	user, err := utils.GetUser(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}

	if user.Role != string(models.UserRoleAdmin) && user.Role != string(models.UserRoleSalesManager) {
		utils.HandleError(c, utils.CreateForbiddenError(""))
		return
	}

	users, err := repository.ListUsers()
	if err != nil {
		utils.HandleError(c, utils.CreateStorageError(err))
		return
	}

	c.JSON(http.StatusOK, gin.H{"users": users})
}
