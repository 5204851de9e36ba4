package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Joy-Ewatomi/Joyxora-landingpage-mvp-backend/internal/api"
	"github.com/Joy-Ewatomi/Joyxora-landingpage-mvp-backend/internal/config"
	"github.com/Joy-Ewatomi/Joyxora-landingpage-mvp-backend/internal/credential"
	"github.com/Joy-Ewatomi/Joyxora-landingpage-mvp-backend/internal/pkg/logger"
	"github.com/Joy-Ewatomi/Joyxora-landingpage-mvp-backend/internal/pkg/mailq"
	"github.com/Joy-Ewatomi/Joyxora-landingpage-mvp-backend/internal/pkg/notify"

	"github.com/redis/go-redis/v9"
)

// main 是 API 服务的入口函数。
//
// 它负责：
// 1. 加载配置
// 2. 初始化日志
// 3. 组装邮件投递链路（进程内 worker 池或 Redis Streams 生产者）
// 4. 初始化并启动 API 服务器
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	appLogger := logger.NewDefault(cfg.App.LogLevel)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	notifier := notify.NewEmailNotifier(&cfg.Email, cfg.App.PublicBaseURL, cfg.App.ResetTokenTTL, appLogger)

	// 两种投递后端满足同一个接口：默认走进程内 worker 池，
	// 开启邮件队列后改为发布到 Redis Streams，由 mailer 进程消费。
	var mailer credential.Mailer
	var dispatcher *notify.Dispatcher
	var queueClient *redis.Client
	if cfg.App.EnableMailQueue {
		queueClient = mailq.NewClient(cfg.Redis.Addr, cfg.Redis.Password)
		mailer = mailq.NewProducer(queueClient, appLogger, cfg.App.MailQueueStream)
	} else {
		dispatcher = notify.NewDispatcher(notifier, appLogger,
			cfg.App.MailWorkers, cfg.App.MailQueueCapacity, cfg.App.MailSendTimeout)
		mailer = dispatcher
	}

	srv, err := api.NewServer(ctx, cfg, appLogger, mailer)
	if err != nil {
		appLogger.Error("init server failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
	if err := srv.SeedDemoData(ctx); err != nil {
		appLogger.Error("seed demo data failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if dispatcher != nil {
		users := srv.UserStore()
		// 重置邮件发不出去时撤销库里的令牌，不给用户留一个永远等不来的链接
		dispatcher.SetFailureHandler(func(mail notify.Mail, sendErr error) {
			if mail.Kind != notify.KindReset || mail.UserID == 0 {
				return
			}
			clearCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
			defer cancel()
			if err := users.ClearResetToken(clearCtx, mail.UserID); err != nil {
				appLogger.Error("clear reset token after mail failure",
					slog.Uint64("user_id", uint64(mail.UserID)),
					slog.String("error", err.Error()))
				return
			}
			appLogger.Warn("reset token revoked after mail failure",
				slog.Uint64("user_id", uint64(mail.UserID)),
				slog.String("error", sendErr.Error()))
		})
		// worker 的生命周期独立于信号上下文，缓冲里的信由 ShutdownWithTimeout 排空
		dispatcher.Start(context.Background())
	}

	httpServer := &http.Server{
		Addr:    cfg.App.HTTPAddr,
		Handler: srv.Router(),
	}

	go func() {
		appLogger.Info("api server listening",
			slog.String("addr", cfg.App.HTTPAddr), slog.String("env", cfg.App.Env))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.Error("server run failed", slog.String("error", err.Error()))
		}
	}()

	<-ctx.Done()
	appLogger.Info("shutting down api server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		appLogger.Error("http shutdown failed", slog.String("error", err.Error()))
	}
	// HTTP 先停，之后不会再有新信进来，再排空邮件缓冲
	if dispatcher != nil {
		if err := dispatcher.ShutdownWithTimeout(10 * time.Second); err != nil {
			appLogger.Error("mail dispatcher shutdown failed", slog.String("error", err.Error()))
		}
	}
	if queueClient != nil {
		if err := queueClient.Close(); err != nil {
			appLogger.Error("close mail queue client failed", slog.String("error", err.Error()))
		}
	}
	if err := srv.Close(); err != nil {
		appLogger.Error("close resources failed", slog.String("error", err.Error()))
	}
}
