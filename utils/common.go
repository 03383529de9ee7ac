package utils

import (
	"fmt"
	"time"

	"followup-server/models"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt"
)

// LoginUser 当前登录用户，由认证中间件写入上下文
type LoginUser struct {
	ID       string `json:"id"`
	Role     string `json:"role"`
	Username string `json:"username"`
}

// IsAdmin 是否管理员
func (u *LoginUser) IsAdmin() bool {
	return u.Role == string(models.UserRoleAdmin)
}

// GetUser 从请求上下文获取当前用户信息
func GetUser(c *gin.Context) (*LoginUser, error) {
	currentUser, exists := c.Get("user")
	if !exists {
		return nil, fmt.Errorf("未授权访问")
	}

	claims, ok := currentUser.(jwt.MapClaims)
	if !ok {
		return nil, fmt.Errorf("无法解析用户信息")
	}

	id, ok := claims["id"].(string)
	if !ok {
		return nil, fmt.Errorf("无效的用户ID")
	}

	role, ok := claims["role"].(string)
	if !ok {
		return nil, fmt.Errorf("无效的用户角色")
	}

	username, ok := claims["username"].(string)
	if !ok {
		return nil, fmt.Errorf("无效的用户名")
	}

	return &LoginUser{
		ID:       id,
		Role:     role,
		Username: username,
	}, nil
}

// NowTimestamp 当前时间的持久化文本
func NowTimestamp() string {
	return time.Now().Format(models.TimestampLayout)
}

// FormatTimestamp 格式化为持久化文本
func FormatTimestamp(t time.Time) string {
	return t.Format(models.TimestampLayout)
}

// timestampLayouts 接受的时间输入格式
var timestampLayouts = []string{
	models.TimestampLayout,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	time.RFC3339,
}

// ParseTimestamp 解析客户端提交的时间文本，返回规范化的持久化文本
func ParseTimestamp(value string) (string, error) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.Format(models.TimestampLayout), nil
		}
	}
	return "", fmt.Errorf("无效的时间格式: %s", value)
}
