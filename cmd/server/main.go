package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/langchou/solarsizer/internal/api/handlers"
	"github.com/langchou/solarsizer/internal/api/sizing"
	"github.com/langchou/solarsizer/internal/config"
	"github.com/langchou/solarsizer/internal/service"
	"github.com/langchou/solarsizer/pkg/ws"
)

func main() {
	// 加载配置
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 初始化日志
	logger := initLogger(cfg.Debug)
	defer logger.Sync()

	logger.Info("Starting SolarSizer",
		zap.String("port", cfg.ServerPort),
		zap.String("sizing_api", cfg.SizingAPIHost))

	// 创建 context
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 加载地区列表
	regions, err := config.LoadRegions(cfg.RegionsFile)
	if err != nil {
		logger.Fatal("Failed to load regions", zap.Error(err), zap.String("file", cfg.RegionsFile))
	}
	logger.Info("Regions loaded", zap.Int("count", len(regions)))

	// 创建计算服务客户端
	sizingClient := sizing.NewClient(cfg.SizingAPIHost, sizing.Options{
		Timeout:         cfg.SizingTimeout,
		BreakerFailures: cfg.SizingBreakerFailures,
		BreakerOpen:     cfg.SizingBreakerOpen,
	}, logger)

	// 计算服务可能比本服务启动得晚，只记录日志不阻塞启动
	go func() {
		if err := sizingClient.WaitReady(ctx, cfg.SizingReadyTimeout); err != nil {
			logger.Warn("Sizing service not reachable yet", zap.Error(err))
			return
		}
		logger.Info("Sizing service is reachable")
	}()

	// 指标
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := service.NewMetrics(registry)

	// 创建 WebSocket Hub
	wsHub := ws.NewHub(logger)

	// 创建会话管理器
	sessions := service.NewManager(logger, sizingClient, wsHub, metrics, service.ManagerOptions{
		IdleTimeout:   cfg.SessionIdleTimeout,
		SweepInterval: cfg.SessionSweepInterval,
	})
	sessions.Start(ctx)

	wsHub.SetInitDataProvider(sessions.InitData)
	go wsHub.Run()

	// 创建 HTTP 处理器
	handler := handlers.NewHandler(
		logger,
		sessions,
		regions,
		handlers.FormDefaults{
			Region:       cfg.DefaultRegion,
			AutonomyDays: cfg.DefaultAutonomyDays,
		},
		wsHub,
	)

	// 设置 Gin 模式
	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	// 创建路由
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(corsMiddleware())

	// 注册路由
	handler.RegisterRoutes(router)
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	// 启动 HTTP 服务器
	server := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: router,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	logger.Info("Server started", zap.String("addr", server.Addr))

	// 等待退出信号
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	// 停止服务
	sessions.Stop()
	wsHub.Stop()

	// 优雅关闭
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited")
}

// initLogger 初始化日志
func initLogger(debug bool) *zap.Logger {
	var config zap.Config
	if debug {
		config = zap.NewDevelopmentConfig()
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		config = zap.NewProductionConfig()
	}

	logger, _ := config.Build()
	return logger
}

// corsMiddleware CORS 中间件
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
