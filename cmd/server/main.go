package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"
	redisv9 "github.com/redis/go-redis/v9"

	"deeptrust/internal/app/di"
	"deeptrust/internal/app/router"
	analysishandler "deeptrust/internal/feature/analysis/transport/handler"
	analysisusecase "deeptrust/internal/feature/analysis/usecase"
	"deeptrust/internal/platform/config"
	"deeptrust/internal/platform/http/handler"
	"deeptrust/internal/platform/logging"
	infraredis "deeptrust/internal/platform/redis"
)

func main() {
	// .envを読み込む
	if err := godotenv.Load(".env"); err != nil {
		slog.Info(".env not found; using system environment variables")
	}

	logger := logging.Setup(logging.LoadConfig())

	cfg, err := config.LoadServerConfig()
	if err != nil {
		logger.Error("invalid server configuration", "error", err)
		os.Exit(1)
	}

	// Redis（任意）
	var rdb *redisv9.Client
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	tmp, err := infraredis.NewRedisClient(ctx, infraredis.LoadConfig())
	cancel()
	if err != nil {
		logger.Warn("Redis unavailable. Running without score cache.", "error", err)
	} else {
		rdb = tmp
		defer func() {
			if err := rdb.Close(); err != nil {
				logger.Error("failed to close Redis client", "error", err)
			}
		}()
	}

	// Usecase
	analysisUC := analysisusecase.NewAnalysisUsecase(di.NewScoringProvider(rdb, cfg.ScoreCacheTTL), cfg.Version)

	// Handler
	analysisH := analysishandler.NewAnalysisHandler(analysisUC)

	// ルータ生成
	r := router.NewRouter(analysisH, handler.NewHealthHandler(cfg.Version))

	logger.Info("analysis service listening", "addr", cfg.Addr(), "version", cfg.Version)
	if err := r.Run(cfg.Addr()); err != nil {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
}
