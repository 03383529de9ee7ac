package service

import (
	"context"
	"time"

	"followup-server/models"
	"followup-server/repository"
	"followup-server/utils"
)

// FollowUpService 跟进生命周期引擎
// 所有写操作都把跟进变更和历史追加放在同一个事务中提交
type FollowUpService struct {
	store repository.FollowUpStore
	nowFn func() time.Time
}

// NewFollowUpService 创建跟进服务
func NewFollowUpService(store repository.FollowUpStore) *FollowUpService {
	return &FollowUpService{
		store: store,
		nowFn: time.Now,
	}
}

// scopeFor 计算调用者的可见范围
func scopeFor(user *utils.LoginUser) repository.Scope {
	return repository.Scope{
		UserID: user.ID,
		Role:   models.UserRole(user.Role),
	}
}

// canMarkMissed 只有Admin和Sales Manager可以直接置为Missed，
// Sales Executive的Missed路径保留给后台巡检
func canMarkMissed(user *utils.LoginUser) bool {
	return user.Role == string(models.UserRoleAdmin) ||
		user.Role == string(models.UserRoleSalesManager)
}

// validateInput 校验创建/更新输入，返回规范化后的时间文本
func validateInput(input *models.FollowUpInput) (string, *utils.ApiError) {
	if input.FollowupType == "" {
		return "", utils.CreateValidationError("跟进类型不能为空")
	}
	switch input.FollowupType {
	case models.FollowUpTypeCall, models.FollowUpTypeMeeting, models.FollowUpTypeVisit, models.FollowUpTypeTask:
	default:
		return "", utils.CreateValidationError("无效的跟进类型: " + string(input.FollowupType))
	}

	if input.FollowupDatetime == "" {
		return "", utils.CreateValidationError("跟进时间不能为空")
	}
	datetime, err := utils.ParseTimestamp(input.FollowupDatetime)
	if err != nil {
		return "", utils.CreateValidationError(err.Error())
	}

	if input.Priority == "" {
		return "", utils.CreateValidationError("优先级不能为空")
	}
	switch input.Priority {
	case models.FollowUpPriorityLow, models.FollowUpPriorityMedium, models.FollowUpPriorityHigh:
	default:
		return "", utils.CreateValidationError("无效的优先级: " + string(input.Priority))
	}

	if input.AssignedTo == "" {
		return "", utils.CreateValidationError("分配人不能为空")
	}

	return datetime, nil
}

// Create 创建跟进，初始状态Pending，同时写入"Created"历史
func (s *FollowUpService) Create(ctx context.Context, input *models.FollowUpInput, user *utils.LoginUser) (string, error) {
	datetime, apiErr := validateInput(input)
	if apiErr != nil {
		return "", apiErr
	}

	now := utils.FormatTimestamp(s.nowFn())

	fu := &models.FollowUp{
		LeadID:           input.LeadID,
		CustomerID:       input.CustomerID,
		FollowupType:     input.FollowupType,
		FollowupDatetime: datetime,
		Priority:         input.Priority,
		Status:           models.FollowUpStatusPending,
		AssignedTo:       input.AssignedTo,
		Notes:            input.Notes,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	entry := &models.FollowUpHistory{
		Action:     models.HistoryActionCreated,
		Remarks:    "Follow-up created",
		ActionDate: now,
		ActedBy:    user.ID,
	}

	id, err := s.store.CreateFollowUp(ctx, fu, entry)
	if err != nil {
		return "", utils.CreateStorageError(err)
	}

	utils.LogInfo(map[string]interface{}{
		"followupId": id,
		"assignedTo": input.AssignedTo,
		"actedBy":    user.Username,
	}, "创建跟进成功")

	return id, nil
}

// Update 覆盖可变字段（状态和创建时间除外），同时写入"Updated"历史
func (s *FollowUpService) Update(ctx context.Context, id string, input *models.FollowUpInput, user *utils.LoginUser) error {
	// 范围内找不到记录时统一返回不存在
	if _, err := s.Get(ctx, id, user); err != nil {
		return err
	}

	datetime, apiErr := validateInput(input)
	if apiErr != nil {
		return apiErr
	}

	now := utils.FormatTimestamp(s.nowFn())

	update := models.FollowUpUpdate{
		LeadID:           input.LeadID,
		CustomerID:       input.CustomerID,
		FollowupType:     input.FollowupType,
		FollowupDatetime: datetime,
		Priority:         input.Priority,
		AssignedTo:       input.AssignedTo,
		Notes:            input.Notes,
		UpdatedAt:        now,
	}

	entry := &models.FollowUpHistory{
		Action:     models.HistoryActionUpdated,
		Remarks:    "Follow-up updated",
		ActionDate: now,
		ActedBy:    user.ID,
	}

	if err := s.store.UpdateFollowUp(ctx, id, update, entry); err != nil {
		if err == repository.ErrNotFound {
			return utils.CreateNotFoundError("跟进记录")
		}
		return utils.CreateStorageError(err)
	}

	return nil
}

// TransitionStatus 状态流转，同时写入以新状态命名的历史
func (s *FollowUpService) TransitionStatus(ctx context.Context, id string, status models.FollowUpStatus, remarks string, user *utils.LoginUser) error {
	if !models.ValidTransitionStatus(status) {
		return utils.CreateBadRequestError("无效的状态: " + string(status))
	}

	// 直接置为Missed仅限Admin和Sales Manager
	if status == models.FollowUpStatusMissed && !canMarkMissed(user) {
		return utils.CreateForbiddenError("只有Admin或Sales Manager可以直接标记为Missed")
	}

	if _, err := s.Get(ctx, id, user); err != nil {
		return err
	}

	now := utils.FormatTimestamp(s.nowFn())

	entry := &models.FollowUpHistory{
		Action:     string(status),
		Remarks:    remarks,
		ActionDate: now,
		ActedBy:    user.ID,
	}

	if err := s.store.UpdateFollowUpStatus(ctx, id, status, now, entry); err != nil {
		if err == repository.ErrNotFound {
			return utils.CreateNotFoundError("跟进记录")
		}
		return utils.CreateStorageError(err)
	}

	utils.LogInfo(map[string]interface{}{
		"followupId": id,
		"status":     string(status),
		"actedBy":    user.Username,
	}, "跟进状态已更新")

	return nil
}

// Get 按ID获取范围内的跟进
func (s *FollowUpService) Get(ctx context.Context, id string, user *utils.LoginUser) (*models.FollowUpDetail, error) {
	detail, err := s.store.GetFollowUp(ctx, id, scopeFor(user))
	if err != nil {
		if err == repository.ErrNotFound {
			return nil, utils.CreateNotFoundError("跟进记录")
		}
		return nil, utils.CreateStorageError(err)
	}
	return detail, nil
}

// List 返回范围内的全部跟进，按跟进时间升序
func (s *FollowUpService) List(ctx context.Context, user *utils.LoginUser) ([]models.FollowUpDetail, error) {
	details, err := s.store.ListFollowUps(ctx, scopeFor(user), repository.FollowUpFilter{})
	if err != nil {
		return nil, utils.CreateStorageError(err)
	}
	return details, nil
}

// History 返回指定跟进的历史，先做范围检查
func (s *FollowUpService) History(ctx context.Context, id string, user *utils.LoginUser) ([]models.FollowUpHistoryDetail, error) {
	if _, err := s.Get(ctx, id, user); err != nil {
		return nil, err
	}

	entries, err := s.store.ListHistory(ctx, id)
	if err != nil {
		return nil, utils.CreateStorageError(err)
	}
	return entries, nil
}

// HistoryByEntity 返回关联指定线索/客户的全部历史，不做分配人范围过滤
func (s *FollowUpService) HistoryByEntity(ctx context.Context, kind models.EntityKind, value string) ([]models.FollowUpHistoryDetail, error) {
	if value == "" {
		return nil, utils.CreateBadRequestError("必须提供lead_id或customer_id")
	}

	entries, err := s.store.ListHistoryByEntity(ctx, kind, value)
	if err != nil {
		return nil, utils.CreateStorageError(err)
	}
	return entries, nil
}
