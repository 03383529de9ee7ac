package repository

import (
	"context"
	"fmt"
	"time"

	"followup-server/models"
	"followup-server/utils"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const (
	// 集合名
	UsersCollection           = "users"
	FollowUpsCollection       = "follow_ups"
	FollowUpHistoryCollection = "followup_history"
)

var (
	client *mongo.Client
	db     *mongo.Database
	ctx    = context.Background()
)

// InitMongoDB 初始化MongoDB连接
func InitMongoDB(uri, dbName string) error {
	// 设置连接超时
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	// 创建客户端
	var err error
	clientOptions := options.Client().ApplyURI(uri)
	client, err = mongo.Connect(connectCtx, clientOptions)
	if err != nil {
		return fmt.Errorf("连接MongoDB失败: %w", err)
	}

	// 检查连接
	pingCtx, pingCancel := context.WithTimeout(ctx, 5*time.Second)
	defer pingCancel()

	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		return fmt.Errorf("ping MongoDB失败: %w", err)
	}

	// 选择数据库
	db = client.Database(dbName)
	utils.Logger.Info().Str("database", dbName).Msg("已连接到MongoDB")

	return nil
}

// CloseMongoDB 关闭MongoDB连接
func CloseMongoDB() {
	if client != nil {
		if err := client.Disconnect(ctx); err != nil {
			utils.Logger.Error().Err(err).Msg("断开MongoDB连接失败")
			return
		}
		utils.Logger.Info().Msg("已断开MongoDB连接")
	}
}

// Collection 返回指定名称的集合
func Collection(name string) *mongo.Collection {
	return db.Collection(name)
}

// GetContext 返回MongoDB操作的上下文
func GetContext() context.Context {
	return ctx
}

// InitializeCollections 初始化数据库集合和索引
func InitializeCollections() error {
	collections := []string{
		UsersCollection,
		FollowUpsCollection,
		FollowUpHistoryCollection,
	}

	for _, collName := range collections {
		collExists, err := collectionExists(collName)
		if err != nil {
			return fmt.Errorf("检查集合失败: %w", err)
		}

		// 如果不存在则创建
		if !collExists {
			if err := db.CreateCollection(ctx, collName); err != nil {
				return fmt.Errorf("创建集合失败: %w", err)
			}
			utils.Logger.Info().Str("collection", collName).Msg("创建集合成功")
		}
	}

	// 用户名唯一索引
	_, err := db.Collection(UsersCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.M{"username": 1},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("创建用户名索引失败: %w", err)
	}

	// 历史记录按跟进ID检索
	_, err = db.Collection(FollowUpHistoryCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.M{"followup_id": 1},
	})
	if err != nil {
		return fmt.Errorf("创建历史索引失败: %w", err)
	}

	return nil
}

// collectionExists 检查集合是否存在
func collectionExists(collName string) (bool, error) {
	collections, err := db.ListCollectionNames(ctx, bson.M{"name": collName})
	if err != nil {
		return false, err
	}

	for _, name := range collections {
		if name == collName {
			return true, nil
		}
	}

	return false, nil
}

// defaultUsers 初始账户，与线上环境首次部署保持一致
var defaultUsers = []struct {
	Username string
	Password string
	Role     models.UserRole
}{
	{"admin", "admin123", models.UserRoleAdmin},
	{"manager", "manager123", models.UserRoleSalesManager},
	{"executive1", "exec123", models.UserRoleSalesExecutive},
}

// InitializeDefaultUsers 初始化默认账户（不存在时才创建）
func InitializeDefaultUsers() error {
	usersCollection := db.Collection(UsersCollection)

	for _, du := range defaultUsers {
		count, err := usersCollection.CountDocuments(ctx, bson.M{"username": du.Username})
		if err != nil {
			return fmt.Errorf("检查默认账户失败: %w", err)
		}
		if count > 0 {
			continue
		}

		hash, err := utils.HashPassword(du.Password)
		if err != nil {
			return fmt.Errorf("哈希默认密码失败: %w", err)
		}

		user := models.User{
			Username:     du.Username,
			PasswordHash: hash,
			Role:         du.Role,
			CreatedAt:    utils.NowTimestamp(),
		}

		if _, err := usersCollection.InsertOne(ctx, user); err != nil {
			return fmt.Errorf("创建默认账户失败: %w", err)
		}
		utils.Logger.Info().Str("username", du.Username).Str("role", string(du.Role)).Msg("已创建默认账户")
	}

	return nil
}

// FindUserByID 根据ID查找用户
func FindUserByID(id string) (*models.User, error) {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("无效的ID格式: %w", err)
	}

	var user models.User
	err = db.Collection(UsersCollection).FindOne(ctx, bson.M{"_id": objID}).Decode(&user)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return &user, nil
}

// FindUserByUsername 根据用户名查找用户
func FindUserByUsername(username string) (*models.User, error) {
	var user models.User
	err := db.Collection(UsersCollection).FindOne(ctx, bson.M{"username": username}).Decode(&user)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return &user, nil
}

// InsertUser 创建用户
func InsertUser(user *models.User) (string, error) {
	result, err := db.Collection(UsersCollection).InsertOne(ctx, user)
	if err != nil {
		return "", err
	}
	return result.InsertedID.(primitive.ObjectID).Hex(), nil
}

// ListUsers 返回所有用户摘要
func ListUsers() ([]models.UserSummary, error) {
	cursor, err := db.Collection(UsersCollection).Find(ctx, bson.M{},
		options.Find().SetSort(bson.M{"username": 1}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var users []models.User
	if err := cursor.All(ctx, &users); err != nil {
		return nil, err
	}

	summaries := make([]models.UserSummary, 0, len(users))
	for _, u := range users {
		summaries = append(summaries, models.UserSummary{
			ID:       u.ID.Hex(),
			Username: u.Username,
			Role:     u.Role,
		})
	}

	return summaries, nil
}
