package repository

import (
	"context"
	"errors"

	"followup-server/models"
)

// ErrNotFound 记录不存在，或不在调用者可见范围内
var ErrNotFound = errors.New("记录不存在")

// Scope 调用者的可见范围。Admin不受限制，其他角色只能看到分配给自己的跟进
type Scope struct {
	UserID string
	Role   models.UserRole
}

// All 是否不受范围限制
func (s Scope) All() bool {
	return s.Role == models.UserRoleAdmin
}

// FollowUpFilter 跟进列表筛选条件，零值字段不参与过滤
type FollowUpFilter struct {
	Status    models.FollowUpStatus
	DueAfter  string // followup_datetime >= DueAfter
	DueBefore string // followup_datetime <= DueBefore
}

// FollowUpStore 跟进数据存储
// 每个写操作必须将跟进变更与对应历史记录放在同一个事务中，
// 两者要么同时落库要么同时回滚
type FollowUpStore interface {
	// CreateFollowUp 插入新跟进及其"Created"历史记录，返回新ID
	CreateFollowUp(ctx context.Context, fu *models.FollowUp, entry *models.FollowUpHistory) (string, error)

	// UpdateFollowUp 覆盖可变字段并追加"Updated"历史记录
	UpdateFollowUp(ctx context.Context, id string, update models.FollowUpUpdate, entry *models.FollowUpHistory) error

	// UpdateFollowUpStatus 更新状态并追加以新状态命名的历史记录
	UpdateFollowUpStatus(ctx context.Context, id string, status models.FollowUpStatus, updatedAt string, entry *models.FollowUpHistory) error

	// GetFollowUp 按ID获取范围内的跟进，范围外返回ErrNotFound
	GetFollowUp(ctx context.Context, id string, scope Scope) (*models.FollowUpDetail, error)

	// ListFollowUps 返回范围内的跟进，按followup_datetime升序
	ListFollowUps(ctx context.Context, scope Scope, filter FollowUpFilter) ([]models.FollowUpDetail, error)

	// ListHistory 返回指定跟进的历史，按action_date降序
	ListHistory(ctx context.Context, followupID string) ([]models.FollowUpHistoryDetail, error)

	// ListHistoryByEntity 返回关联指定线索/客户的全部历史，按action_date降序
	ListHistoryByEntity(ctx context.Context, kind models.EntityKind, value string) ([]models.FollowUpHistoryDetail, error)

	// MarkOverdueMissed 批量将已过期的Pending跟进置为Missed，返回影响条数
	MarkOverdueMissed(ctx context.Context, now string) (int64, error)
}
