package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config 应用配置
type Config struct {
	Port          int
	MongoURI      string
	MongoDB       string
	JWTKey        string
	SweepInterval time.Duration
	Debug         bool
}

// LoadConfig 从环境变量加载配置
func LoadConfig() *Config {
	// 存在.env文件时优先加载
	_ = godotenv.Load()

	port, _ := strconv.Atoi(getEnv("PORT", "8080"))
	sweepSeconds, _ := strconv.Atoi(getEnv("SWEEP_INTERVAL_SECONDS", "300"))
	if sweepSeconds <= 0 {
		sweepSeconds = 300
	}

	return &Config{
		Port:          port,
		MongoURI:      getEnv("MONGO_URI", "mongodb://127.0.0.1:27017"),
		MongoDB:       getEnv("MONGO_DB", "crm_followup"),
		JWTKey:        getEnv("JWT_KEY", "your-secret-key"), // 实际环境应替换为安全密钥
		SweepInterval: time.Duration(sweepSeconds) * time.Second,
		Debug:         getEnv("GIN_MODE", "debug") == "debug",
	}
}

// getEnv 获取环境变量，如果不存在则返回默认值
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}
