package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/saxenaaman628/election-observer/config"
	"github.com/saxenaaman628/election-observer/internal/api"
	"github.com/saxenaaman628/election-observer/internal/database"
	"github.com/saxenaaman628/election-observer/internal/logger"
	"github.com/saxenaaman628/election-observer/internal/middleware"
	"github.com/saxenaaman628/election-observer/internal/redis"
	redishandler "github.com/saxenaaman628/election-observer/internal/redisHandler"
	"github.com/saxenaaman628/election-observer/internal/server"
	"github.com/saxenaaman628/election-observer/internal/services"
	"github.com/saxenaaman628/election-observer/internal/utils"
)

func main() {
	config.LoadEnv()
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	zapLog, err := logger.NewLogger(cfg.Log.Level, cfg.Log.Format, "election-observer")
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer zapLog.Sync()

	db, err := database.Connect(cfg.Database, zapLog)
	if err != nil {
		zapLog.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer database.Close(db)
	if err := database.Migrate(db); err != nil {
		zapLog.Fatal("Failed to migrate database", zap.Error(err))
	}
	sqlDB, err := db.DB()
	if err != nil {
		zapLog.Fatal("Failed to get database handle", zap.Error(err))
	}

	rdb, err := redis.NewClient(cfg.Redis, zapLog)
	if err != nil {
		zapLog.Fatal("Failed to connect to redis", zap.Error(err))
	}
	defer rdb.Close()

	var cache redishandler.Cache = redishandler.NewRedisCache(rdb)
	if cfg.Cache.Backend == "memory" {
		cache = redishandler.NewMemoryCache()
	}

	tokens := utils.NewTokenManager(cfg.JWT.Secret, cfg.JWT.AccessTTL, cfg.JWT.RefreshTTL)
	svc := services.New(services.Deps{
		DB:       db,
		Log:      zapLog,
		Cache:    cache,
		Tokens:   tokens,
		Sessions: redishandler.NewRefreshTokenStore(rdb),
		Config:   cfg,
	})

	created, err := svc.Auth.EnsureAdmin(context.Background(), cfg.Bootstrap)
	if err != nil {
		zapLog.Fatal("Failed to bootstrap admin user", zap.Error(err))
	}
	if created {
		zapLog.Info("Bootstrap super admin created", zap.String("email", cfg.Bootstrap.AdminEmail))
	}

	if cfg.Server.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	if err := r.SetTrustedProxies(cfg.Server.TrustedProxies); err != nil {
		zapLog.Fatal("Invalid TRUSTED_PROXIES", zap.Error(err))
	}
	r.Use(
		middleware.Recovery(zapLog),
		middleware.RequestLogger(zapLog),
		middleware.CORS(cfg.Server.CORSOrigin),
		middleware.ErrorHandler(zapLog, cfg.Server.IsProduction()),
	)
	api.RegisterRoutes(r, api.Dependencies{
		Services: svc,
		Tokens:   tokens,
		Limiter:  redishandler.NewFixedWindowLimiter(rdb, cfg.RateLimit.Max, cfg.RateLimit.Window),
		SQLDB:    sqlDB,
		Config:   cfg,
		Log:      zapLog,
	})

	srv := server.NewServer(":"+cfg.Server.Port, r, zapLog)
	go func() {
		if err := srv.Start(); err != nil {
			zapLog.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Stop(ctx); err != nil {
		zapLog.Error("Server forced to shutdown", zap.Error(err))
	}
	zapLog.Info("Server exited")
}
