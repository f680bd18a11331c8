package main

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/TIANLI0/PersonWatch/config"
	"github.com/TIANLI0/PersonWatch/handler"
	"github.com/TIANLI0/PersonWatch/middleware"
	"github.com/TIANLI0/PersonWatch/service"
	"github.com/TIANLI0/PersonWatch/utils"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
	BuildID   = "unknown"
	GitCommit = "unknown"
	GitBranch = "unknown"
)

func main() {
	// 加载配置
	cfg, err := config.New()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 初始化日志
	if err := utils.InitLogger(cfg.Server.Mode); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer utils.Sync()

	utils.Logger.Info("starting PersonWatch server",
		zap.String("version", Version),
		zap.String("build_time", BuildTime),
		zap.String("git_commit", GitCommit),
		zap.String("git_branch", GitBranch))

	// 确保上传目录存在
	if err := os.MkdirAll(cfg.Upload.UploadDir, 0755); err != nil {
		utils.Logger.Fatal("failed to create upload directory", zap.Error(err))
	}

	// 初始化Redis缓存（可选）
	var cache service.DetectionCache
	var store handler.DetectionStore
	if cfg.Redis.Enabled {
		redisService := service.NewRedisService(&cfg.Redis)
		if err := redisService.Ping(context.Background()); err != nil {
			utils.Logger.Warn("redis connection failed, cache disabled", zap.Error(err))
			_ = redisService.Close()
		} else {
			utils.Logger.Info("redis connected successfully")
			cache, store = redisService, redisService
			defer redisService.Close()
		}
	}

	// 初始化外部服务
	detector := service.NewClarifaiDetector(&cfg.Clarifai)
	relay, err := service.NewTelegramRelay(&cfg.Telegram)
	if err != nil {
		utils.Logger.Fatal("invalid telegram configuration", zap.Error(err))
	}
	// Telegram 不可达时服务照常启动，首次转发时重试
	if err := relay.Connect(); err != nil {
		utils.Logger.Warn("telegram unreachable at startup, will retry on first relay", zap.Error(err))
	}

	pipeline := service.NewPipelineService(
		detector,
		service.NewRegionNormalizer(cfg.Detection.TargetCategory),
		service.NewOverlayRenderer(cfg.Detection.Label),
		relay,
		cache,
	)

	// 初始化Handler
	uploadHandler := handler.NewUploadHandler(cfg, pipeline, store)

	// 设置Gin模式
	gin.SetMode(cfg.Server.Mode)

	// 创建路由
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.CORS())

	// 健康检查和版本信息
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "ok",
			"version": Version,
		})
	})

	r.GET("/version", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"version":    Version,
			"build_time": BuildTime,
			"build_id":   BuildID,
			"git_commit": GitCommit,
			"git_branch": GitBranch,
		})
	})

	uploadHandler.Register(r)

	srv := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// 启动服务器
	utils.Logger.Info("server starting", zap.String("port", cfg.Server.Port))
	if err := srv.ListenAndServe(); err != nil {
		utils.Logger.Fatal("failed to start server", zap.Error(err))
	}
}
