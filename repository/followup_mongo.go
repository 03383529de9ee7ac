package repository

import (
	"context"

	"followup-server/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoFollowUpStore FollowUpStore的MongoDB实现
type MongoFollowUpStore struct{}

// NewMongoFollowUpStore 创建MongoDB跟进存储
func NewMongoFollowUpStore() *MongoFollowUpStore {
	return &MongoFollowUpStore{}
}

// withTransaction 在单个事务内执行fn，失败时整体回滚
func (s *MongoFollowUpStore) withTransaction(ctx context.Context, fn func(sc mongo.SessionContext) error) error {
	session, err := client.StartSession()
	if err != nil {
		return err
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	})
	return err
}

// scopeFilter 叠加可见范围过滤条件
func scopeFilter(filter bson.M, scope Scope) bson.M {
	if !scope.All() {
		filter["assigned_to"] = scope.UserID
	}
	return filter
}

// CreateFollowUp 插入新跟进及其历史记录
func (s *MongoFollowUpStore) CreateFollowUp(ctx context.Context, fu *models.FollowUp, entry *models.FollowUpHistory) (string, error) {
	var insertedID string

	err := s.withTransaction(ctx, func(sc mongo.SessionContext) error {
		result, err := Collection(FollowUpsCollection).InsertOne(sc, fu)
		if err != nil {
			return err
		}

		oid := result.InsertedID.(primitive.ObjectID)
		insertedID = oid.Hex()

		entry.FollowupID = insertedID
		_, err = Collection(FollowUpHistoryCollection).InsertOne(sc, entry)
		return err
	})
	if err != nil {
		return "", err
	}

	return insertedID, nil
}

// UpdateFollowUp 覆盖可变字段并追加历史记录
func (s *MongoFollowUpStore) UpdateFollowUp(ctx context.Context, id string, update models.FollowUpUpdate, entry *models.FollowUpHistory) error {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ErrNotFound
	}

	return s.withTransaction(ctx, func(sc mongo.SessionContext) error {
		result, err := Collection(FollowUpsCollection).UpdateOne(sc,
			bson.M{"_id": objID},
			bson.M{"$set": update},
		)
		if err != nil {
			return err
		}
		if result.MatchedCount == 0 {
			return ErrNotFound
		}

		entry.FollowupID = id
		_, err = Collection(FollowUpHistoryCollection).InsertOne(sc, entry)
		return err
	})
}

// UpdateFollowUpStatus 更新状态并追加历史记录
func (s *MongoFollowUpStore) UpdateFollowUpStatus(ctx context.Context, id string, status models.FollowUpStatus, updatedAt string, entry *models.FollowUpHistory) error {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ErrNotFound
	}

	return s.withTransaction(ctx, func(sc mongo.SessionContext) error {
		result, err := Collection(FollowUpsCollection).UpdateOne(sc,
			bson.M{"_id": objID},
			bson.M{"$set": bson.M{"status": status, "updated_at": updatedAt}},
		)
		if err != nil {
			return err
		}
		if result.MatchedCount == 0 {
			return ErrNotFound
		}

		entry.FollowupID = id
		_, err = Collection(FollowUpHistoryCollection).InsertOne(sc, entry)
		return err
	})
}

// GetFollowUp 按ID获取范围内的跟进
func (s *MongoFollowUpStore) GetFollowUp(ctx context.Context, id string, scope Scope) (*models.FollowUpDetail, error) {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}

	filter := scopeFilter(bson.M{"_id": objID}, scope)

	var detail models.FollowUpDetail
	err = Collection(FollowUpsCollection).FindOne(ctx, filter).Decode(&detail)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, err
	}

	usernames, err := s.usernamesByID(ctx, []string{detail.AssignedTo})
	if err != nil {
		return nil, err
	}
	detail.AssignedUsername = usernames[detail.AssignedTo]

	return &detail, nil
}

// ListFollowUps 返回范围内的跟进列表
func (s *MongoFollowUpStore) ListFollowUps(ctx context.Context, scope Scope, filter FollowUpFilter) ([]models.FollowUpDetail, error) {
	query := scopeFilter(bson.M{}, scope)
	if filter.Status != "" {
		query["status"] = filter.Status
	}
	if filter.DueAfter != "" || filter.DueBefore != "" {
		window := bson.M{}
		if filter.DueAfter != "" {
			window["$gte"] = filter.DueAfter
		}
		if filter.DueBefore != "" {
			window["$lte"] = filter.DueBefore
		}
		query["followup_datetime"] = window
	}

	opts := options.Find().SetSort(bson.M{"followup_datetime": 1})
	cursor, err := Collection(FollowUpsCollection).Find(ctx, query, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var details []models.FollowUpDetail
	if err := cursor.All(ctx, &details); err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(details))
	for _, d := range details {
		ids = append(ids, d.AssignedTo)
	}
	usernames, err := s.usernamesByID(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range details {
		details[i].AssignedUsername = usernames[details[i].AssignedTo]
	}

	return details, nil
}

// ListHistory 返回指定跟进的历史记录
func (s *MongoFollowUpStore) ListHistory(ctx context.Context, followupID string) ([]models.FollowUpHistoryDetail, error) {
	return s.findHistory(ctx, bson.M{"followup_id": followupID})
}

// ListHistoryByEntity 返回关联指定线索/客户的全部历史记录
func (s *MongoFollowUpStore) ListHistoryByEntity(ctx context.Context, kind models.EntityKind, value string) ([]models.FollowUpHistoryDetail, error) {
	field := "customer_id"
	if kind == models.EntityKindLead {
		field = "lead_id"
	}

	// 先找到关联实体的跟进，再拉取这些跟进的历史
	cursor, err := Collection(FollowUpsCollection).Find(ctx, bson.M{field: value},
		options.Find().SetProjection(bson.M{"_id": 1}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var rows []struct {
		ID primitive.ObjectID `bson:"_id"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, err
	}

	if len(rows) == 0 {
		return []models.FollowUpHistoryDetail{}, nil
	}

	ids := make([]string, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.ID.Hex())
	}

	return s.findHistory(ctx, bson.M{"followup_id": bson.M{"$in": ids}})
}

// findHistory 查询历史记录并补充操作人用户名
func (s *MongoFollowUpStore) findHistory(ctx context.Context, filter bson.M) ([]models.FollowUpHistoryDetail, error) {
	opts := options.Find().SetSort(bson.M{"action_date": -1})
	cursor, err := Collection(FollowUpHistoryCollection).Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var details []models.FollowUpHistoryDetail
	if err := cursor.All(ctx, &details); err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(details))
	for _, d := range details {
		if d.ActedBy != "" {
			ids = append(ids, d.ActedBy)
		}
	}
	usernames, err := s.usernamesByID(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range details {
		// 系统操作acted_by为空，用户名保持null
		if details[i].ActedBy == "" {
			continue
		}
		if name, ok := usernames[details[i].ActedBy]; ok {
			n := name
			details[i].ActedByUsername = &n
		}
	}

	return details, nil
}

// MarkOverdueMissed 批量将已过期的Pending跟进置为Missed
func (s *MongoFollowUpStore) MarkOverdueMissed(ctx context.Context, now string) (int64, error) {
	result, err := Collection(FollowUpsCollection).UpdateMany(ctx,
		bson.M{
			"status":            models.FollowUpStatusPending,
			"followup_datetime": bson.M{"$lt": now},
		},
		bson.M{"$set": bson.M{
			"status":     models.FollowUpStatusMissed,
			"updated_at": now,
		}},
	)
	if err != nil {
		return 0, err
	}

	return result.ModifiedCount, nil
}

// usernamesByID 按用户ID批量查询用户名
func (s *MongoFollowUpStore) usernamesByID(ctx context.Context, ids []string) (map[string]string, error) {
	usernames := make(map[string]string, len(ids))
	if len(ids) == 0 {
		return usernames, nil
	}

	objIDs := make([]primitive.ObjectID, 0, len(ids))
	for _, id := range ids {
		objID, err := primitive.ObjectIDFromHex(id)
		if err != nil {
			continue
		}
		objIDs = append(objIDs, objID)
	}

	cursor, err := Collection(UsersCollection).Find(ctx, bson.M{"_id": bson.M{"$in": objIDs}})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var users []models.User
	if err := cursor.All(ctx, &users); err != nil {
		return nil, err
	}

	for _, u := range users {
		usernames[u.ID.Hex()] = u.Username
	}

	return usernames, nil
}
