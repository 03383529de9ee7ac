package models

import (
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// TimestampLayout 持久化时间戳格式，按字典序可排序的ISO-8601文本
const TimestampLayout = "2006-01-02T15:04:05.000000"

// FollowUpType 跟进类型枚举
type FollowUpType string

const (
	FollowUpTypeCall    FollowUpType = "Call"
	FollowUpTypeMeeting FollowUpType = "Meeting"
	FollowUpTypeVisit   FollowUpType = "Visit"
	FollowUpTypeTask    FollowUpType = "Task"
)

// FollowUpPriority 跟进优先级枚举
type FollowUpPriority string

const (
	FollowUpPriorityLow    FollowUpPriority = "Low"
	FollowUpPriorityMedium FollowUpPriority = "Medium"
	FollowUpPriorityHigh   FollowUpPriority = "High"
)

// FollowUpStatus 跟进状态枚举
type FollowUpStatus string

const (
	FollowUpStatusPending     FollowUpStatus = "Pending"
	FollowUpStatusCompleted   FollowUpStatus = "Completed"
	FollowUpStatusMissed      FollowUpStatus = "Missed"
	FollowUpStatusRescheduled FollowUpStatus = "Rescheduled"
)

// ValidTransitionStatus 状态流转仅允许这四种目标状态
func ValidTransitionStatus(status FollowUpStatus) bool {
	switch status {
	case FollowUpStatusCompleted, FollowUpStatusPending, FollowUpStatusRescheduled, FollowUpStatusMissed:
		return true
	}
	return false
}

// 历史动作标签（状态流转时直接使用状态名）
const (
	HistoryActionCreated = "Created"
	HistoryActionUpdated = "Updated"
)

// FollowUp 跟进任务
type FollowUp struct {
	ID               primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	LeadID           string             `bson:"lead_id,omitempty" json:"lead_id,omitempty"`
	CustomerID       string             `bson:"customer_id,omitempty" json:"customer_id,omitempty"`
	FollowupType     FollowUpType       `bson:"followup_type" json:"followup_type"`
	FollowupDatetime string             `bson:"followup_datetime" json:"followup_datetime"`
	Priority         FollowUpPriority   `bson:"priority" json:"priority"`
	Status           FollowUpStatus     `bson:"status" json:"status"`
	AssignedTo       string             `bson:"assigned_to" json:"assigned_to"`
	Notes            string             `bson:"notes,omitempty" json:"notes,omitempty"`
	CreatedAt        string             `bson:"created_at" json:"created_at"`
	UpdatedAt        string             `bson:"updated_at" json:"updated_at"`
}

// FollowUpDetail 跟进任务及其分配人用户名
type FollowUpDetail struct {
	FollowUp         `bson:",inline"`
	AssignedUsername string `bson:"-" json:"assigned_username"`
}

// FollowUpHistory 跟进历史记录，只追加，永不修改或删除
type FollowUpHistory struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	FollowupID string             `bson:"followup_id" json:"followup_id"`
	Action     string             `bson:"action" json:"action"`
	Remarks    string             `bson:"remarks,omitempty" json:"remarks,omitempty"`
	ActionDate string             `bson:"action_date" json:"action_date"`
	ActedBy    string             `bson:"acted_by,omitempty" json:"acted_by,omitempty"` // 为空表示系统操作
}

// FollowUpHistoryDetail 历史记录及操作人用户名（系统操作时为null）
type FollowUpHistoryDetail struct {
	FollowUpHistory `bson:",inline"`
	ActedByUsername *string `bson:"-" json:"acted_by_username"`
}

// EntityKind 跟进关联实体类型
type EntityKind string

const (
	EntityKindLead     EntityKind = "lead"
	EntityKindCustomer EntityKind = "customer"
)

type (
	// FollowUpInput 创建/更新跟进任务的输入数据
	FollowUpInput struct {
		LeadID           string           `json:"lead_id"`
		CustomerID       string           `json:"customer_id"`
		FollowupType     FollowUpType     `json:"followup_type"`
		FollowupDatetime string           `json:"followup_datetime"`
		Priority         FollowUpPriority `json:"priority"`
		AssignedTo       string           `json:"assigned_to"`
		Notes            string           `json:"notes"`
	}

	// StatusUpdateRequest 状态流转请求
	StatusUpdateRequest struct {
		Status  FollowUpStatus `json:"status"`
		Remarks string         `json:"remarks"`
	}

	// FollowUpUpdate 更新操作写入的可变字段集合，不含状态和创建时间
	FollowUpUpdate struct {
		LeadID           string           `bson:"lead_id"`
		CustomerID       string           `bson:"customer_id"`
		FollowupType     FollowUpType     `bson:"followup_type"`
		FollowupDatetime string           `bson:"followup_datetime"`
		Priority         FollowUpPriority `bson:"priority"`
		AssignedTo       string           `bson:"assigned_to"`
		Notes            string           `bson:"notes"`
		UpdatedAt        string           `bson:"updated_at"`
	}
)
