package models

// DashboardData 数据看板响应结构
type DashboardData struct {
	Pending      []FollowUpDetail `json:"pending"`       // 待办跟进
	Upcoming     []FollowUpDetail `json:"upcoming"`      // 24小时内到期的待办跟进
	Missed       []FollowUpDetail `json:"missed"`        // 已错过跟进
	PendingCount int              `json:"pending_count"` // 待办数量
	MissedCount  int              `json:"missed_count"`  // 错过数量
}
