package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Joy-Ewatomi/Joyxora-landingpage-mvp-backend/internal/config"
	"github.com/Joy-Ewatomi/Joyxora-landingpage-mvp-backend/internal/pkg/logger"
	"github.com/Joy-Ewatomi/Joyxora-landingpage-mvp-backend/internal/pkg/mailq"
	"github.com/Joy-Ewatomi/Joyxora-landingpage-mvp-backend/internal/pkg/metrics"
	"github.com/Joy-Ewatomi/Joyxora-landingpage-mvp-backend/internal/pkg/notify"
	"github.com/Joy-Ewatomi/Joyxora-landingpage-mvp-backend/internal/store"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// main 是邮件发送进程的入口函数。
//
// 它负责：
// 1. 加载配置
// 2. 初始化日志记录器
// 3. 连接 Redis Streams 邮件队列并启动消费循环
// 4. 启动 Metrics 服务
// 5. 优雅关闭
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	appLogger := logger.NewDefault(cfg.App.LogLevel)

	if !cfg.App.EnableMailQueue {
		appLogger.Warn("mail queue disabled in config, api publishes in-process and the stream may stay empty")
	}

	db, err := store.Open(cfg.MySQL.DSN)
	if err != nil {
		appLogger.Error("connect database failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
	users := store.NewUserStore(db)

	rdb := mailq.NewClient(cfg.Redis.Addr, cfg.Redis.Password)

	notifier := notify.NewEmailNotifier(&cfg.Email, cfg.App.PublicBaseURL, cfg.App.ResetTokenTTL, appLogger)

	consumer, err := mailq.NewConsumer(rdb, appLogger, cfg.App.MailQueueStream, cfg.App.MailQueueGroup, "")
	if err != nil {
		appLogger.Error("init mail consumer failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	runner := mailq.NewRunner(consumer, notifier, appLogger, cfg.App.MailSendTimeout)
	// 重试次数耗尽进了死信才撤销令牌，普通重试不动库
	runner.SetDeadMailHandler(func(msg *mailq.MailMessage, cause error) {
		if msg.Kind != mailq.KindReset || msg.UserID == 0 {
			return
		}
		clearCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := users.ClearResetToken(clearCtx, msg.UserID); err != nil {
			appLogger.Error("clear reset token after mail failure",
				slog.Uint64("user_id", uint64(msg.UserID)),
				slog.String("error", err.Error()))
			return
		}
		appLogger.Warn("reset token revoked after mail failure",
			slog.Uint64("user_id", uint64(msg.UserID)),
			slog.String("error", cause.Error()))
	})

	metrics.InitMetrics(1)

	appLogger.Info("starting mail consume loop",
		slog.String("stream", cfg.App.MailQueueStream),
		slog.String("group", consumer.GroupName()))
	runner.Start(context.Background())

	metricsAddr := ":2113"
	if v := os.Getenv("MAILER_METRICS_ADDR"); v != "" {
		metricsAddr = v
	}
	metricsServer := &http.Server{
		Addr:    metricsAddr,
		Handler: promhttp.Handler(),
	}
	go func() {
		appLogger.Info("mailer metrics server started", slog.String("addr", metricsAddr))
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Error("metrics server stopped with error", slog.String("error", err.Error()))
		}
	}()

	// 等待中断信号
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	sig := <-sigCh
	appLogger.Info("received os signal", slog.String("signal", sig.String()))

	appLogger.Info("shutting down mailer...")

	// 优雅关闭
	// 1. 停止拉取新消息，等消费循环退出
	runner.Stop()

	// 2. 关闭 Metrics 服务
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		appLogger.Error("metrics shutdown error", slog.String("error", err.Error()))
	}

	if err := rdb.Close(); err != nil {
		appLogger.Error("close redis failed", slog.String("error", err.Error()))
	}
	if sqlDB, err := db.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			appLogger.Error("close database failed", slog.String("error", err.Error()))
		}
	}

	appLogger.Info("mailer stopped gracefully")
}
