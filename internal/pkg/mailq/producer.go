package mailq

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Joy-Ewatomi/Joyxora-landingpage-mvp-backend/internal/pkg/metrics"
)

// Producer 邮件生产者，把待发送的邮件发布到 Redis Streams。
//
// 由 API 进程使用。Dispatch* 方法满足凭证服务的投递接口：立即返回，
// 发布失败只记日志与指标，不影响请求。
type Producer struct {
	queue          *MailQueue
	logger         *slog.Logger
	publishTimeout time.Duration
}

// NewProducer 创建一个新的邮件生产者。
//
// 参数:
//   - rdb: Redis 客户端
//   - logger: 日志记录器
//   - streamName: Stream 名称（可选，默认为 "joyxora:mail:queue"）
func NewProducer(rdb *redis.Client, logger *slog.Logger, streamName ...string) *Producer {
	stream := "joyxora:mail:queue"
	if len(streamName) > 0 && streamName[0] != "" {
		stream = streamName[0]
	}

	return &Producer{
		queue:          NewMailQueue(rdb, logger, stream),
		logger:         logger,
		publishTimeout: 5 * time.Second,
	}
}

// EnqueueWelcome 发布一封欢迎邮件。
func (p *Producer) EnqueueWelcome(ctx context.Context, email string, username string) error {
	if email == "" {
		return fmt.Errorf("empty recipient")
	}

	msg := NewWelcomeMessage(email, username)
	if err := p.queue.Publish(ctx, msg); err != nil {
		p.logger.Error("enqueue welcome mail failed",
			slog.String("mail_id", msg.ID),
			slog.String("error", err.Error()))
		return err
	}

	metrics.MailTotal.WithLabelValues("enqueued", KindWelcome).Inc()
	p.logger.Info("welcome mail enqueued",
		slog.String("mail_id", msg.ID),
		slog.String("to", email))

	return nil
}

// EnqueueReset 发布一封密码重置邮件。
func (p *Producer) EnqueueReset(ctx context.Context, email string, username string, token string, userID uint) error {
	if email == "" {
		return fmt.Errorf("empty recipient")
	}
	if token == "" {
		return fmt.Errorf("empty reset token")
	}

	msg := NewResetMessage(email, username, token, userID)
	if err := p.queue.Publish(ctx, msg); err != nil {
		p.logger.Error("enqueue reset mail failed",
			slog.String("mail_id", msg.ID),
			slog.String("error", err.Error()))
		return err
	}

	metrics.MailTotal.WithLabelValues("enqueued", KindReset).Inc()
	p.logger.Info("reset mail enqueued",
		slog.String("mail_id", msg.ID),
		slog.String("to", email))

	return nil
}

// DispatchWelcome 满足凭证服务的投递接口，发布失败只计数不上抛。
func (p *Producer) DispatchWelcome(email string, username string) {
	ctx, cancel := context.WithTimeout(context.Background(), p.publishTimeout)
	defer cancel()

	if err := p.EnqueueWelcome(ctx, email, username); err != nil {
		metrics.MailTotal.WithLabelValues("dropped", KindWelcome).Inc()
	}
}

// DispatchResetLink 满足凭证服务的投递接口，发布失败只计数不上抛。
func (p *Producer) DispatchResetLink(email string, username string, token string, userID uint) {
	ctx, cancel := context.WithTimeout(context.Background(), p.publishTimeout)
	defer cancel()

	if err := p.EnqueueReset(ctx, email, username, token, userID); err != nil {
		metrics.MailTotal.WithLabelValues("dropped", KindReset).Inc()
	}
}

// QueueLength 获取当前队列长度。
func (p *Producer) QueueLength(ctx context.Context) (int64, error) {
	return p.queue.StreamInfo(ctx)
}
