package models

import (
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// UserRole 用户角色枚举
type UserRole string

const (
	UserRoleAdmin          UserRole = "Admin"
	UserRoleSalesManager   UserRole = "Sales Manager"
	UserRoleSalesExecutive UserRole = "Sales Executive"
)

// ValidRole 检查角色取值是否合法
func ValidRole(role UserRole) bool {
	switch role {
	case UserRoleAdmin, UserRoleSalesManager, UserRoleSalesExecutive:
		return true
	}
	return false
}

// User 用户类型
type User struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	Username     string             `bson:"username" json:"username"`
	PasswordHash string             `bson:"password_hash" json:"-"` // 不返回密码
	Role         UserRole           `bson:"role" json:"role"`
	CreatedAt    string             `bson:"created_at" json:"created_at"`
}

// 各种请求和响应结构
type (
	// LoginRequest 登录请求
	LoginRequest struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
	}

	// RegisterRequest 注册请求
	RegisterRequest struct {
		Username string   `json:"username" binding:"required,min=2"`
		Password string   `json:"password" binding:"required,min=6"`
		Role     UserRole `json:"role"`
	}

	// UserSummary 用户列表项（填充跟进分配人下拉框）
	UserSummary struct {
		ID       string   `json:"id"`
		Username string   `json:"username"`
		Role     UserRole `json:"role"`
	}
)
