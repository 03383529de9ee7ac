package service

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"

	"followup-server/models"
	"followup-server/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// memStore FollowUpStore的内存实现，仅测试使用
type memStore struct {
	mu        sync.Mutex
	followups map[string]*models.FollowUp
	history   []models.FollowUpHistory
	usernames map[string]string

	sweepErr   error // 模拟巡检时的存储故障
	sweepCalls int64
}

func newMemStore() *memStore {
	return &memStore{
		followups: make(map[string]*models.FollowUp),
		usernames: make(map[string]string),
	}
}

func (m *memStore) addUser(id, username string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.usernames[id] = username
}

func (m *memStore) historyFor(followupID string) []models.FollowUpHistory {
	m.mu.Lock()
	defer m.mu.Unlock()
	var entries []models.FollowUpHistory
	for _, h := range m.history {
		if h.FollowupID == followupID {
			entries = append(entries, h)
		}
	}
	return entries
}

func (m *memStore) inScope(fu *models.FollowUp, scope repository.Scope) bool {
	return scope.All() || fu.AssignedTo == scope.UserID
}

func (m *memStore) CreateFollowUp(ctx context.Context, fu *models.FollowUp, entry *models.FollowUpHistory) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	fu.ID = primitive.NewObjectID()
	id := fu.ID.Hex()
	clone := *fu
	m.followups[id] = &clone

	entry.FollowupID = id
	m.history = append(m.history, *entry)

	return id, nil
}

func (m *memStore) UpdateFollowUp(ctx context.Context, id string, update models.FollowUpUpdate, entry *models.FollowUpHistory) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	fu, ok := m.followups[id]
	if !ok {
		return repository.ErrNotFound
	}

	fu.LeadID = update.LeadID
	fu.CustomerID = update.CustomerID
	fu.FollowupType = update.FollowupType
	fu.FollowupDatetime = update.FollowupDatetime
	fu.Priority = update.Priority
	fu.AssignedTo = update.AssignedTo
	fu.Notes = update.Notes
	fu.UpdatedAt = update.UpdatedAt

	entry.FollowupID = id
	m.history = append(m.history, *entry)

	return nil
}

func (m *memStore) UpdateFollowUpStatus(ctx context.Context, id string, status models.FollowUpStatus, updatedAt string, entry *models.FollowUpHistory) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	fu, ok := m.followups[id]
	if !ok {
		return repository.ErrNotFound
	}

	fu.Status = status
	fu.UpdatedAt = updatedAt

	entry.FollowupID = id
	m.history = append(m.history, *entry)

	return nil
}

func (m *memStore) GetFollowUp(ctx context.Context, id string, scope repository.Scope) (*models.FollowUpDetail, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	fu, ok := m.followups[id]
	if !ok || !m.inScope(fu, scope) {
		return nil, repository.ErrNotFound
	}

	return &models.FollowUpDetail{
		FollowUp:         *fu,
		AssignedUsername: m.usernames[fu.AssignedTo],
	}, nil
}

func (m *memStore) ListFollowUps(ctx context.Context, scope repository.Scope, filter repository.FollowUpFilter) ([]models.FollowUpDetail, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	details := []models.FollowUpDetail{}
	for _, fu := range m.followups {
		if !m.inScope(fu, scope) {
			continue
		}
		if filter.Status != "" && fu.Status != filter.Status {
			continue
		}
		if filter.DueAfter != "" && fu.FollowupDatetime < filter.DueAfter {
			continue
		}
		if filter.DueBefore != "" && fu.FollowupDatetime > filter.DueBefore {
			continue
		}
		details = append(details, models.FollowUpDetail{
			FollowUp:         *fu,
			AssignedUsername: m.usernames[fu.AssignedTo],
		})
	}

	sort.Slice(details, func(i, j int) bool {
		return details[i].FollowupDatetime < details[j].FollowupDatetime
	})

	return details, nil
}

func (m *memStore) ListHistory(ctx context.Context, followupID string) ([]models.FollowUpHistoryDetail, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.historyDetails(func(h models.FollowUpHistory) bool {
		return h.FollowupID == followupID
	}), nil
}

func (m *memStore) ListHistoryByEntity(ctx context.Context, kind models.EntityKind, value string) ([]models.FollowUpHistoryDetail, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ids := make(map[string]bool)
	for id, fu := range m.followups {
		if kind == models.EntityKindLead && fu.LeadID == value {
			ids[id] = true
		}
		if kind == models.EntityKindCustomer && fu.CustomerID == value {
			ids[id] = true
		}
	}

	return m.historyDetails(func(h models.FollowUpHistory) bool {
		return ids[h.FollowupID]
	}), nil
}

// historyDetails 调用方必须持有锁
func (m *memStore) historyDetails(match func(models.FollowUpHistory) bool) []models.FollowUpHistoryDetail {
	details := []models.FollowUpHistoryDetail{}
	for _, h := range m.history {
		if !match(h) {
			continue
		}
		detail := models.FollowUpHistoryDetail{FollowUpHistory: h}
		if h.ActedBy != "" {
			if name, ok := m.usernames[h.ActedBy]; ok {
				n := name
				detail.ActedByUsername = &n
			}
		}
		details = append(details, detail)
	}

	sort.SliceStable(details, func(i, j int) bool {
		return details[i].ActionDate > details[j].ActionDate
	})

	return details
}

func (m *memStore) MarkOverdueMissed(ctx context.Context, now string) (int64, error) {
	atomic.AddInt64(&m.sweepCalls, 1)

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.sweepErr != nil {
		return 0, m.sweepErr
	}

	var count int64
	for _, fu := range m.followups {
		if fu.Status == models.FollowUpStatusPending && fu.FollowupDatetime < now {
			fu.Status = models.FollowUpStatusMissed
			fu.UpdatedAt = now
			count++
		}
	}

	return count, nil
}
