package cli

import (
	"context"
	"log/slog"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	infraredis "deeptrust/internal/platform/redis"
)

// loadDotEnv は.envがあれば読み込みます。
func loadDotEnv() {
	if err := godotenv.Load(".env"); err != nil {
		slog.Debug(".env not found; using system environment variables")
	}
}

// connectRedis はREDIS_HOSTが設定されていれば接続します。
// 接続できない場合はnilを返し、検出一覧はメモリに保持されます。
func connectRedis(ctx context.Context) *redis.Client {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	rdb, err := infraredis.NewRedisClient(ctx, infraredis.LoadConfig())
	if err != nil {
		slog.Debug("Redis unavailable. Detection lists stay in memory.", "error", err)
		return nil
	}
	return rdb
}
