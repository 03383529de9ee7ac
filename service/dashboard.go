package service

import (
	"context"
	"time"

	"followup-server/models"
	"followup-server/repository"
	"followup-server/utils"
)

// Dashboard 数据看板：范围内的待办、24小时内到期、已错过集合及计数
// 纯读操作，不产生任何副作用
func (s *FollowUpService) Dashboard(ctx context.Context, user *utils.LoginUser) (*models.DashboardData, error) {
	scope := scopeFor(user)
	now := s.nowFn()
	nowStr := utils.FormatTimestamp(now)
	next24h := utils.FormatTimestamp(now.Add(24 * time.Hour))

	pending, err := s.store.ListFollowUps(ctx, scope, repository.FollowUpFilter{
		Status: models.FollowUpStatusPending,
	})
	if err != nil {
		return nil, utils.CreateStorageError(err)
	}

	upcoming, err := s.store.ListFollowUps(ctx, scope, repository.FollowUpFilter{
		Status:    models.FollowUpStatusPending,
		DueAfter:  nowStr,
		DueBefore: next24h,
	})
	if err != nil {
		return nil, utils.CreateStorageError(err)
	}

	missed, err := s.store.ListFollowUps(ctx, scope, repository.FollowUpFilter{
		Status: models.FollowUpStatusMissed,
	})
	if err != nil {
		return nil, utils.CreateStorageError(err)
	}

	return &models.DashboardData{
		Pending:      pending,
		Upcoming:     upcoming,
		Missed:       missed,
		PendingCount: len(pending),
		MissedCount:  len(missed),
	}, nil
}
