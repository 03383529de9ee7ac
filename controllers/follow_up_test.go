package controllers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"

	"followup-server/controllers"
	"followup-server/models"
	"followup-server/repository"
	"followup-server/routes"
	"followup-server/service"
	"followup-server/utils"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// fakeStore FollowUpStore的内存实现，覆盖HTTP层测试
type fakeStore struct {
	mu        sync.Mutex
	followups map[string]*models.FollowUp
	history   []models.FollowUpHistory
	usernames map[string]string
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		followups: make(map[string]*models.FollowUp),
		usernames: make(map[string]string),
	}
}

func (f *fakeStore) inScope(fu *models.FollowUp, scope repository.Scope) bool {
	return scope.All() || fu.AssignedTo == scope.UserID
}

func (f *fakeStore) CreateFollowUp(ctx context.Context, fu *models.FollowUp, entry *models.FollowUpHistory) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	fu.ID = primitive.NewObjectID()
	id := fu.ID.Hex()
	clone := *fu
	f.followups[id] = &clone

	entry.FollowupID = id
	f.history = append(f.history, *entry)
	return id, nil
}

func (f *fakeStore) UpdateFollowUp(ctx context.Context, id string, update models.FollowUpUpdate, entry *models.FollowUpHistory) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	fu, ok := f.followups[id]
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
	f.history = append(f.history, *entry)
	return nil
}

func (f *fakeStore) UpdateFollowUpStatus(ctx context.Context, id string, status models.FollowUpStatus, updatedAt string, entry *models.FollowUpHistory) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	fu, ok := f.followups[id]
	if !ok {
		return repository.ErrNotFound
	}

	fu.Status = status
	fu.UpdatedAt = updatedAt

	entry.FollowupID = id
	f.history = append(f.history, *entry)
	return nil
}

func (f *fakeStore) GetFollowUp(ctx context.Context, id string, scope repository.Scope) (*models.FollowUpDetail, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	fu, ok := f.followups[id]
	if !ok || !f.inScope(fu, scope) {
		return nil, repository.ErrNotFound
	}
	return &models.FollowUpDetail{FollowUp: *fu, AssignedUsername: f.usernames[fu.AssignedTo]}, nil
}

func (f *fakeStore) ListFollowUps(ctx context.Context, scope repository.Scope, filter repository.FollowUpFilter) ([]models.FollowUpDetail, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	details := []models.FollowUpDetail{}
	for _, fu := range f.followups {
		if !f.inScope(fu, scope) {
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
		details = append(details, models.FollowUpDetail{FollowUp: *fu, AssignedUsername: f.usernames[fu.AssignedTo]})
	}

	sort.Slice(details, func(i, j int) bool {
		return details[i].FollowupDatetime < details[j].FollowupDatetime
	})
	return details, nil
}

func (f *fakeStore) ListHistory(ctx context.Context, followupID string) ([]models.FollowUpHistoryDetail, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	details := []models.FollowUpHistoryDetail{}
	for _, h := range f.history {
		if h.FollowupID != followupID {
			continue
		}
		details = append(details, models.FollowUpHistoryDetail{FollowUpHistory: h})
	}
	sort.SliceStable(details, func(i, j int) bool {
		return details[i].ActionDate > details[j].ActionDate
	})
	return details, nil
}

func (f *fakeStore) ListHistoryByEntity(ctx context.Context, kind models.EntityKind, value string) ([]models.FollowUpHistoryDetail, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	ids := make(map[string]bool)
	for id, fu := range f.followups {
		if kind == models.EntityKindLead && fu.LeadID == value {
			ids[id] = true
		}
		if kind == models.EntityKindCustomer && fu.CustomerID == value {
			ids[id] = true
		}
	}

	details := []models.FollowUpHistoryDetail{}
	for _, h := range f.history {
		if ids[h.FollowupID] {
			details = append(details, models.FollowUpHistoryDetail{FollowUpHistory: h})
		}
	}
	sort.SliceStable(details, func(i, j int) bool {
		return details[i].ActionDate > details[j].ActionDate
	})
	return details, nil
}

func (f *fakeStore) MarkOverdueMissed(ctx context.Context, now string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var count int64
	for _, fu := range f.followups {
		if fu.Status == models.FollowUpStatusPending && fu.FollowupDatetime < now {
			fu.Status = models.FollowUpStatusMissed
			fu.UpdatedAt = now
			count++
		}
	}
	return count, nil
}

func setupRouter(store *fakeStore) *gin.Engine {
	gin.SetMode(gin.TestMode)
	controllers.Init(service.NewFollowUpService(store))

	router := gin.New()
	routes.RegisterFollowUpRoutes(router)
	routes.RegisterDashboardRoutes(router)
	return router
}

func tokenFor(t *testing.T, store *fakeStore, username string, role models.UserRole) (string, string) {
	t.Helper()

	user := &models.User{
		ID:       primitive.NewObjectID(),
		Username: username,
		Role:     role,
	}
	store.usernames[user.ID.Hex()] = username

	token, err := utils.GenerateToken(user)
	require.NoError(t, err)
	return token, user.ID.Hex()
}

func doRequest(router *gin.Engine, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestFollowUpLifecycleEndpoints(t *testing.T) {
	store := newFakeStore()
	router := setupRouter(store)
	token, execID := tokenFor(t, store, "executive1", models.UserRoleSalesExecutive)

	// 创建
	w := doRequest(router, http.MethodPost, "/api/followups", token, gin.H{
		"lead_id":           "lead-7",
		"followup_type":     "Call",
		"followup_datetime": "2024-01-01T10:00:00",
		"priority":          "High",
		"assigned_to":       execID,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	id := decodeBody(t, w)["id"].(string)
	require.NotEmpty(t, id)

	// 列表
	w = doRequest(router, http.MethodGet, "/api/followups", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	followups := decodeBody(t, w)["followups"].([]interface{})
	require.Len(t, followups, 1)
	first := followups[0].(map[string]interface{})
	assert.Equal(t, "Pending", first["status"])
	assert.Equal(t, "executive1", first["assigned_username"])

	// 状态流转
	w = doRequest(router, http.MethodPut, "/api/followups/"+id+"/status", token, gin.H{
		"status":  "Completed",
		"remarks": "done",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	// 历史，最新在前
	w = doRequest(router, http.MethodGet, "/api/followups/"+id+"/history", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	history := decodeBody(t, w)["history"].([]interface{})
	require.Len(t, history, 2)
	assert.Equal(t, "Completed", history[0].(map[string]interface{})["action"])
	assert.Equal(t, "Created", history[1].(map[string]interface{})["action"])
}

func TestCreateFollowUpValidationEndpoint(t *testing.T) {
	store := newFakeStore()
	router := setupRouter(store)
	token, _ := tokenFor(t, store, "executive1", models.UserRoleSalesExecutive)

	w := doRequest(router, http.MethodPost, "/api/followups", token, gin.H{
		"followup_type": "Call",
		"priority":      "High",
	})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "VALIDATION_ERROR", decodeBody(t, w)["code"])
}

func TestMissedTransitionForbiddenForExecutive(t *testing.T) {
	store := newFakeStore()
	router := setupRouter(store)
	execToken, execID := tokenFor(t, store, "executive1", models.UserRoleSalesExecutive)
	adminToken, _ := tokenFor(t, store, "admin", models.UserRoleAdmin)

	w := doRequest(router, http.MethodPost, "/api/followups", execToken, gin.H{
		"followup_type":     "Visit",
		"followup_datetime": "2024-01-01T10:00:00",
		"priority":          "Low",
		"assigned_to":       execID,
	})
	require.Equal(t, http.StatusCreated, w.Code)
	id := decodeBody(t, w)["id"].(string)

	w = doRequest(router, http.MethodPut, "/api/followups/"+id+"/status", execToken, gin.H{"status": "Missed"})
	require.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "FORBIDDEN", decodeBody(t, w)["code"])

	w = doRequest(router, http.MethodPut, "/api/followups/"+id+"/status", adminToken, gin.H{"status": "Missed"})
	require.Equal(t, http.StatusOK, w.Code)
}

func TestScopedFetchReturnsNotFound(t *testing.T) {
	store := newFakeStore()
	router := setupRouter(store)
	execToken, execID := tokenFor(t, store, "executive1", models.UserRoleSalesExecutive)
	otherToken, _ := tokenFor(t, store, "executive2", models.UserRoleSalesExecutive)

	w := doRequest(router, http.MethodPost, "/api/followups", execToken, gin.H{
		"followup_type":     "Task",
		"followup_datetime": "2024-01-01T10:00:00",
		"priority":          "Medium",
		"assigned_to":       execID,
	})
	require.Equal(t, http.StatusCreated, w.Code)
	id := decodeBody(t, w)["id"].(string)

	// 其他销售收到404而不是403
	w = doRequest(router, http.MethodGet, "/api/followups/"+id, otherToken, nil)
	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "RESOURCE_NOT_FOUND", decodeBody(t, w)["code"])
}

func TestEntityHistoryRequiresIdentifier(t *testing.T) {
	store := newFakeStore()
	router := setupRouter(store)
	token, _ := tokenFor(t, store, "executive1", models.UserRoleSalesExecutive)

	w := doRequest(router, http.MethodGet, "/api/followups/history_by_entity", token, nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "BAD_REQUEST", decodeBody(t, w)["code"])
}

func TestDashboardEndpoint(t *testing.T) {
	store := newFakeStore()
	router := setupRouter(store)
	token, execID := tokenFor(t, store, "executive1", models.UserRoleSalesExecutive)

	w := doRequest(router, http.MethodPost, "/api/followups", token, gin.H{
		"followup_type":     "Meeting",
		"followup_datetime": "2030-01-01T10:00:00",
		"priority":          "High",
		"assigned_to":       execID,
	})
	require.Equal(t, http.StatusCreated, w.Code)

	w = doRequest(router, http.MethodGet, "/api/dashboard", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, float64(1), body["pending_count"])
	assert.Equal(t, float64(0), body["missed_count"])
	assert.Len(t, body["pending"].([]interface{}), 1)
}

func TestRequestsWithoutTokenRejected(t *testing.T) {
	store := newFakeStore()
	router := setupRouter(store)

	w := doRequest(router, http.MethodGet, "/api/followups", "", nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}
