package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"mediwatch-vitals/internal/alert"
	"mediwatch-vitals/internal/cache"
	"mediwatch-vitals/internal/config"
	"mediwatch-vitals/internal/consumer"
	httpapi "mediwatch-vitals/internal/http"
	mqttclient "mediwatch-vitals/internal/mqtt"
	"mediwatch-vitals/internal/push"
	"mediwatch-vitals/internal/report"
	"mediwatch-vitals/internal/repository"
	"mediwatch-vitals/internal/service"
	"mediwatch-vitals/internal/store"

	"github.com/go-redis/redis/v8"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

func main() {
	// 1. 加载配置
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	// 2. 初始化日志
	logger, err := initLogger(cfg)
	if err != nil {
		panic(fmt.Sprintf("Failed to init logger: %v", err))
	}
	defer logger.Sync()

	// 3. 连接数据库
	db, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		logger.Fatal("Failed to open database", zap.Error(err))
	}
	if err := db.Ping(); err != nil {
		logger.Fatal("Failed to ping database", zap.Error(err))
	}
	defer db.Close()

	// 4. 连接 Redis
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		logger.Fatal("Failed to ping redis", zap.Error(err))
	}
	defer redisClient.Close()

	// 5. Repository 层
	readingsRepo := repository.NewReadingsRepository(db, logger)
	patientsRepo := repository.NewPatientsRepository(db, logger)
	assignmentsRepo := repository.NewAssignmentsRepository(db, logger)
	casesRepo := repository.NewCasesRepository(db, logger)
	notificationsRepo := repository.NewNotificationsRepository(db, logger)
	monitorsRepo := repository.NewMonitorsRepository(db, logger)

	// 6. 缓存与推送
	vitalsCache := cache.NewVitalsCache(cfg, store.NewRedisKV(redisClient), logger)

	var pusher alert.Pusher
	if cfg.Push.GatewayURL != "" {
		pusher = push.NewClient(cfg.Push.GatewayURL, logger)
		logger.Info("Push gateway enabled", zap.String("url", cfg.Push.GatewayURL))
	}

	// 7. 报警扇出与接入管道
	resolver := alert.NewResolver(assignmentsRepo, casesRepo, notificationsRepo, pusher, logger)
	ingest := service.NewIngestService(readingsRepo, patientsRepo, vitalsCache, resolver, logger)

	// 8. HTTP 层
	vitalsHandler := httpapi.NewVitalsHandler(
		ingest,
		readingsRepo,
		patientsRepo,
		vitalsCache,
		report.BuildReadingsWorkbook,
		logger,
	)
	notificationsHandler := httpapi.NewNotificationsHandler(notificationsRepo, logger)

	router := httpapi.NewRouter(logger)
	router.RegisterVitalsRoutes(vitalsHandler)
	router.RegisterNotificationRoutes(notificationsHandler)

	httpServer := &http.Server{
		Addr:    cfg.HTTP.Addr,
		Handler: router,
	}

	// 9. 创建上下文（支持优雅关闭）
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errChan := make(chan error, 2)

	go func() {
		logger.Info("HTTP server listening", zap.String("addr", cfg.HTTP.Addr))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("http server error: %w", err)
		}
	}()

	// 10. MQTT 消费者（可选，未配置 broker 则只走 HTTP 接入）
	var monitorConsumer *consumer.MonitorConsumer
	var mqttConn *mqttclient.Client
	if cfg.MQTT.Broker != "" {
		mqttConn, err = mqttclient.NewClient(cfg, logger)
		if err != nil {
			logger.Fatal("Failed to connect to MQTT broker", zap.Error(err))
		}
		monitorConsumer = consumer.NewMonitorConsumer(cfg, mqttConn, monitorsRepo, ingest, logger)

		go func() {
			if err := monitorConsumer.Start(ctx); err != nil {
				errChan <- fmt.Errorf("monitor consumer error: %w", err)
			}
		}()
	}

	// 11. 等待信号（优雅关闭）
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		logger.Info("Received signal, shutting down", zap.String("signal", sig.String()))
	case err := <-errChan:
		logger.Error("Service error, shutting down", zap.Error(err))
	}

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("Failed to shut down http server", zap.Error(err))
	}

	if monitorConsumer != nil {
		if err := monitorConsumer.Stop(); err != nil {
			logger.Error("Failed to stop monitor consumer", zap.Error(err))
		}
	}
	if mqttConn != nil {
		mqttConn.Disconnect()
	}

	logger.Info("Vitals service stopped")
}

// initLogger 初始化日志
func initLogger(cfg *config.Config) (*zap.Logger, error) {
	var logger *zap.Logger
	var err error

	if cfg.Log.Format == "json" {
		logger, err = zap.NewProduction()
	} else {
		logger, err = zap.NewDevelopment()
	}

	if err != nil {
		return nil, err
	}

	return logger, nil
}
