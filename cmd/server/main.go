// IntakeService 主程序
// 功能：公开倡导站点的提交接收服务（承诺、故事、留言、大使申请、订阅）
// 架构：DDD + gin HTTP 接口 + MySQL 持久化 + 可插拔限流后端
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	intakeapp "github.com/risevoices/risevoices/internal/intake/application"
	intakedomain "github.com/risevoices/risevoices/internal/intake/domain"
	"github.com/risevoices/risevoices/internal/intake/infrastructure/geocoding"
	intakemysql "github.com/risevoices/risevoices/internal/intake/infrastructure/persistence/mysql"
	intakehttp "github.com/risevoices/risevoices/internal/intake/interfaces/http"
	notifapp "github.com/risevoices/risevoices/internal/notification/application"
	notifdomain "github.com/risevoices/risevoices/internal/notification/domain"
	notifmysql "github.com/risevoices/risevoices/internal/notification/infrastructure/persistence/mysql"
	"github.com/risevoices/risevoices/internal/notification/infrastructure/sender"
	"github.com/risevoices/risevoices/pkg/config"
	"github.com/risevoices/risevoices/pkg/db"
	"github.com/risevoices/risevoices/pkg/logger"
	"github.com/risevoices/risevoices/pkg/metrics"
	"github.com/risevoices/risevoices/pkg/middleware"
	"github.com/risevoices/risevoices/pkg/ratelimit"
)

func main() {
	configPath := flag.String("config", "configs/config.toml", "path to config file")
	flag.Parse()

	// 1. 加载配置
	cfg, err := config.LoadWithDefaults(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 2. 初始化日志
	if err := logger.Init(logger.Config{
		Level:      cfg.Logger.Level,
		Format:     cfg.Logger.Format,
		Output:     cfg.Logger.Output,
		FilePath:   cfg.Logger.FilePath,
		MaxSize:    cfg.Logger.MaxSize,
		MaxBackups: cfg.Logger.MaxBackups,
		MaxAge:     cfg.Logger.MaxAge,
		Compress:   cfg.Logger.Compress,
		WithCaller: cfg.Logger.WithCaller,
	}); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	logger.Info(ctx, "Starting IntakeService",
		"service", cfg.ServiceName,
		"version", cfg.Version,
		"environment", cfg.Environment,
	)

	// 3. 初始化数据库
	database, err := db.Init(db.Config{
		Driver:             cfg.Database.Driver,
		DSN:                cfg.Database.DSN,
		MaxOpenConns:       cfg.Database.MaxOpenConns,
		MaxIdleConns:       cfg.Database.MaxIdleConns,
		ConnMaxLifetime:    cfg.Database.ConnMaxLifetime,
		LogEnabled:         cfg.Database.LogEnabled,
		SlowQueryThreshold: cfg.Database.SlowQueryThreshold,
	})
	if err != nil {
		logger.Fatal(ctx, "Failed to initialize database", "error", err)
	}
	defer database.Close()

	if err := database.AutoMigrate(&intakedomain.Submission{}, &notifdomain.Notification{}); err != nil {
		logger.Fatal(ctx, "Failed to migrate database schema", "error", err)
	}

	// 4. 限流后端
	var limiter ratelimit.RateLimiter
	switch cfg.RateLimit.Backend {
	case "redis":
		rdb := redis.NewClient(&redis.Options{
			Addr:     fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		limiter = ratelimit.NewRedisRateLimiter(rdb)
	default:
		limiter = ratelimit.NewMemoryRateLimiter(time.Duration(cfg.RateLimit.SweepInterval) * time.Second)
	}

	// 5. 地理编码适配器
	geocoder := geocoding.NewMapboxGeocoder(
		cfg.Geocoder.BaseURL,
		cfg.Geocoder.AccessToken,
		time.Duration(cfg.Geocoder.Timeout)*time.Second,
	)

	// 6. 通知服务：按配置装配通道
	var senders []notifdomain.Sender
	if cfg.Notification.AdminEmail != "" && cfg.Notification.SMTP.Host != "" {
		senders = append(senders, sender.NewSMTPSender(
			cfg.Notification.SMTP.Host,
			cfg.Notification.SMTP.Port,
			cfg.Notification.SMTP.Username,
			cfg.Notification.SMTP.Password,
			cfg.Notification.SMTP.From,
		))
	}
	if cfg.Notification.WebhookURL != "" {
		senders = append(senders, sender.NewWebhookSender())
	}
	var kafkaSender *sender.KafkaSender
	if cfg.Notification.Kafka.Enabled {
		kafkaSender = sender.NewKafkaSender(cfg.Notification.Kafka.Brokers, cfg.Notification.Kafka.Topic)
		senders = append(senders, kafkaSender)
		defer kafkaSender.Close()
	}
	notifier := notifapp.NewNotificationService(
		notifmysql.NewNotificationRepository(database.DB),
		senders,
		cfg.Notification.AdminEmail,
		cfg.Notification.WebhookURL,
		cfg.Notification.Kafka.Topic,
	)

	// 7. 指标
	m := metrics.New(cfg.ServiceName)
	if cfg.Metrics.Enabled {
		if err := m.Register(); err != nil {
			logger.Fatal(ctx, "Failed to register metrics", "error", err)
		}
		go func() {
			if err := metrics.StartHTTPServer(cfg.Metrics.Port, cfg.Metrics.Path); err != nil &&
				!errors.Is(err, http.ErrServerClosed) {
				logger.Error(ctx, "Metrics server stopped", "error", err)
			}
		}()
	}

	// 8. 应用服务
	repo := intakemysql.NewSubmissionRepository(database.DB)
	intakeService := intakeapp.NewIntakeService(repo, limiter, geocoder, notifier, m, cfg.RateLimit.Enabled)
	queryService := intakeapp.NewQueryService(repo)

	// 9. HTTP 路由
	if cfg.Environment == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(
		middleware.GinRecoveryMiddleware(),
		middleware.GinLoggingMiddleware(),
		middleware.GinCORSMiddleware(),
		middleware.GinMetricsMiddleware(m),
	)
	engine.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "UP", "service": cfg.ServiceName})
	})

	intakehttp.NewHandler(intakeService, queryService).RegisterPublicRoutes(engine)
	intakehttp.NewInternalHandler(intakeService, queryService, cfg.Internal.Token).RegisterInternalRoutes(engine)

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler:      engine,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeout) * time.Second,
	}

	go func() {
		logger.Info(ctx, "HTTP server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal(ctx, "HTTP server failed", "error", err)
		}
	}()

	// 10. 优雅退出
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info(ctx, "Shutting down IntakeService")
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error(ctx, "HTTP server shutdown failed", "error", err)
	}
	logger.Info(ctx, "IntakeService stopped")
}
