package mailq

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Joy-Ewatomi/Joyxora-landingpage-mvp-backend/internal/pkg/metrics"
)

// Sender 执行单封邮件的实际发送，生产实现为 notify.EmailNotifier。
type Sender interface {
	SendWelcome(ctx context.Context, email string, username string) error
	SendResetLink(ctx context.Context, email string, username string, token string) error
}

// DeadMailHandler 在一封邮件重试耗尽进入死信后回调。
type DeadMailHandler func(msg *MailMessage, cause error)

// Runner 驱动消费循环：读消息、发送、确认；失败按次数重试或进死信。
type Runner struct {
	consumer    *Consumer
	sender      Sender
	logger      *slog.Logger
	sendTimeout time.Duration
	onDeadMail  DeadMailHandler

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewRunner 创建消费循环，sendTimeout 非法时回落到 15s。
func NewRunner(consumer *Consumer, sender Sender, logger *slog.Logger, sendTimeout time.Duration) *Runner {
	if sendTimeout <= 0 {
		sendTimeout = 15 * time.Second
	}
	return &Runner{
		consumer:    consumer,
		sender:      sender,
		logger:      logger,
		sendTimeout: sendTimeout,
	}
}

// SetDeadMailHandler 设置死信回调，必须在 Start 之前调用。
func (r *Runner) SetDeadMailHandler(h DeadMailHandler) {
	r.onDeadMail = h
}

// Start 启动消费与监控循环。
func (r *Runner) Start(ctx context.Context) {
	runCtx, cancel := context.WithCancel(ctx)
	r.cancel = cancel

	r.wg.Add(2)
	go r.consumeLoop(runCtx)
	go r.monitorLoop(runCtx)
}

// Stop 停止循环并等待两个 goroutine 退出。
func (r *Runner) Stop() {
	if r.cancel != nil {
		r.cancel()
	}
	r.wg.Wait()
}

func (r *Runner) consumeLoop(ctx context.Context) {
	defer r.wg.Done()
	r.logger.Info("mail consume loop started",
		slog.String("group", r.consumer.GroupName()))

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("mail consume loop stopped")
			return
		default:
		}

		messages, err := r.consumer.Read(ctx)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			r.logger.Error("read mail messages failed", slog.String("error", err.Error()))
			time.Sleep(time.Second)
			continue
		}

		for _, msg := range messages {
			r.handleMessage(ctx, msg)
		}
	}
}

// handleMessage 发送一封邮件并按结果确认或转入失败处理。
func (r *Runner) handleMessage(ctx context.Context, msg *MessageWithID) {
	m := msg.Message

	sendCtx, cancel := context.WithTimeout(ctx, r.sendTimeout)
	defer cancel()

	start := time.Now()
	var err error
	switch m.Kind {
	case KindWelcome:
		err = r.sender.SendWelcome(sendCtx, m.To, m.Username)
	case KindReset:
		err = r.sender.SendResetLink(sendCtx, m.To, m.Username, m.Token)
	default:
		err = fmt.Errorf("unknown mail kind %q", m.Kind)
	}
	metrics.MailSendDuration.Observe(time.Since(start).Seconds())

	if err == nil {
		metrics.MailTotal.WithLabelValues("sent", m.Kind).Inc()
		if ackErr := r.consumer.Ack(ctx, msg.ID); ackErr != nil {
			r.logger.Error("ack mail message failed",
				slog.String("msg_id", msg.ID),
				slog.String("error", ackErr.Error()))
		}
		return
	}

	metrics.MailTotal.WithLabelValues("failed", m.Kind).Inc()
	r.logger.Warn("mail send failed",
		slog.String("mail_id", m.ID),
		slog.String("kind", m.Kind),
		slog.Int("retry", m.Retry),
		slog.String("error", err.Error()))

	action, ferr := r.consumer.HandleFailure(ctx, msg, err)
	if ferr != nil {
		r.logger.Error("handle mail failure failed",
			slog.String("msg_id", msg.ID),
			slog.String("error", ferr.Error()))
	}
	if action == FailureActionDLQ {
		r.logger.Error("mail moved to dead letter",
			slog.String("mail_id", m.ID),
			slog.String("kind", m.Kind),
			slog.String("to", m.To))
		if r.onDeadMail != nil {
			r.onDeadMail(m, err)
		}
	}
}

// monitorLoop 周期性上报 Stream 深度与 pending 数。
func (r *Runner) monitorLoop(ctx context.Context) {
	defer r.wg.Done()

	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			length, err := r.consumer.queue.StreamInfo(ctx)
			if err != nil {
				r.logger.Debug("stream info failed", slog.String("error", err.Error()))
				continue
			}
			metrics.MailQueueDepth.WithLabelValues("stream").Set(float64(length))

			pending, err := r.consumer.Pending(ctx)
			if err == nil && pending > 0 {
				r.logger.Debug("mail messages pending", slog.Int64("count", pending))
			}
		}
	}
}
