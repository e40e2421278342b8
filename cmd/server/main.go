// Package main runs the moodquiz HTTP API with the admin WebSocket feed and graceful shutdown.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/moodquiz/backend/config"
	"github.com/moodquiz/backend/internal/analytics"
	"github.com/moodquiz/backend/internal/auth"
	"github.com/moodquiz/backend/internal/batch"
	"github.com/moodquiz/backend/internal/middleware"
	"github.com/moodquiz/backend/internal/questions"
	"github.com/moodquiz/backend/internal/realtime"
	"github.com/moodquiz/backend/internal/responses"
	"github.com/moodquiz/backend/internal/users"
	"github.com/moodquiz/backend/pkg/database"
	"github.com/moodquiz/backend/pkg/redis"
	"github.com/moodquiz/backend/pkg/response"
	"github.com/moodquiz/backend/pkg/utils"
)

func main() {
	hashPassword := flag.String("hash-password", "", "print the bcrypt hash for ADMIN_PASSWORD_HASH and exit")
	flag.Parse()
	if *hashPassword != "" {
		hash, err := utils.HashPassword(*hashPassword)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		fmt.Println(hash)
		return
	}

	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	ctx := context.Background()
	pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), logger)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	defer pool.Close()

	if err := database.Migrate(ctx, pool, logger); err != nil {
		logger.Fatal("migrate", zap.Error(err))
	}

	questionSet, err := questions.Load(cfg.Quiz.QuestionsFile)
	if err != nil {
		logger.Fatal("questions", zap.Error(err))
	}

	// Realtime feed: Redis fan-out when enabled, otherwise this instance only.
	var hub *realtime.Hub
	if cfg.Redis.Enabled {
		rdb, err := redis.NewClient(ctx, redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB}, logger)
		if err != nil {
			logger.Fatal("redis", zap.Error(err))
		}
		defer rdb.Close()
		bus := realtime.NewRedisPubSub(rdb.Client, logger)
		hub = realtime.NewHub(logger, bus, bus)
	} else {
		hub = realtime.NewHub(logger, nil, nil)
	}

	jwtService := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.ExpireHours)
	adminAuth := cfg.Admin.AdminAuthEnabled()
	if !adminAuth {
		logger.Warn("ADMIN_PASSWORD_HASH not set, admin routes are open")
	}

	rules := responses.Rules{Questions: questionSet, ScoreMin: cfg.Quiz.ScoreMin, ScoreMax: cfg.Quiz.ScoreMax}
	userRepo := users.NewRepository(pool)
	responseRepo := responses.NewRepository(pool)

	authHandler := auth.NewHandler(cfg.Admin.PasswordHash, jwtService, logger)
	questionHandler := questions.NewHandler(questionSet)
	userHandler := users.NewHandler(userRepo, hub, logger)
	responseHandler := responses.NewHandler(responseRepo, rules, hub, logger)
	batchHandler := batch.NewHandler(batch.NewPgRunner(pool), rules, hub, logger)
	analyticsHandler := analytics.NewHandler(responseRepo, questionSet.All(), cfg.Quiz.ScoreMin, cfg.Quiz.ScoreMax, logger)

	var wsValidate realtime.TokenValidator
	if adminAuth {
		wsValidate = jwtService.ValidateAdmin
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(cfg.Server.CORSAllowedOrigins))
	router.Use(middleware.Logger(logger))

	api := router.Group("/api")
	api.GET("/health", healthHandler(pool))
	api.GET("/questions", questionHandler.List)
	api.POST("/users", userHandler.Create)
	api.POST("/responses", responseHandler.Submit)
	api.GET("/responses/user/:id", responseHandler.ListByUser)
	api.POST("/sync", batchHandler.Sync)
	api.POST("/admin/login", authHandler.AdminLogin)

	admin := api.Group("", middleware.Admin(jwtService, adminAuth)...)
	admin.GET("/responses", responseHandler.ListAll)
	admin.GET("/admin/summary", analyticsHandler.Summary)

	router.GET("/ws", realtime.ServeWs(hub, logger, wsValidate))

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		logger.Info("server listening", zap.String("addr", srv.Addr), zap.Int("questions", questionSet.Len()))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("listen", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	logger.Info("server stopped")
}

func healthHandler(pool *pgxpool.Pool) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := pool.Ping(ctx); err != nil {
			response.ServiceUnavailable(c, "database unavailable")
			return
		}
		response.OK(c, gin.H{"status": "ok"})
	}
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
