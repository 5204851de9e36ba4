package mailq

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

// NewClient creates a redis client for the mail queue with address/password.
func NewClient(addr, password string) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       0,
	})
}

// MailQueue 封装 Redis Streams 的邮件队列操作。
//
// 与进程内的 notify.Dispatcher 相比，Stream 后端的消息落在 Redis 里，
// 发送进程重启不丢信，消费失败可重试或进死信。
type MailQueue struct {
	rdb        *redis.Client
	logger     *slog.Logger
	streamName string // Stream 名称，如 "joyxora:mail:queue"
}

// NewMailQueue 创建一个新的邮件队列实例。
//
// 参数:
//   - rdb: Redis 客户端
//   - logger: 日志记录器
//   - streamName: Stream 名称
//
// 返回值:
//   - *MailQueue: 邮件队列实例
func NewMailQueue(rdb *redis.Client, logger *slog.Logger, streamName string) *MailQueue {
	if streamName == "" {
		streamName = "joyxora:mail:queue"
	}
	return &MailQueue{
		rdb:        rdb,
		logger:     logger,
		streamName: streamName,
	}
}

// Publish 发布一条邮件消息到队列。
//
// 使用 XADD 命令将消息追加到 Stream。
func (q *MailQueue) Publish(ctx context.Context, msg *MailMessage) error {
	if msg == nil {
		return fmt.Errorf("message is nil")
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	return q.publishRaw(ctx, q.streamName, map[string]interface{}{
		"data": string(data),
	})
}

func (q *MailQueue) publishRaw(ctx context.Context, stream string, values map[string]interface{}) error {
	args := &redis.XAddArgs{
		Stream: stream,
		MaxLen: 100000,
		Approx: false,
		Values: values,
	}

	msgID, err := q.rdb.XAdd(ctx, args).Result()
	if err != nil {
		return fmt.Errorf("xadd failed: %w", err)
	}

	q.logger.Debug("mail message published",
		slog.String("stream", stream),
		slog.String("msg_id", msgID))

	return nil
}

// CreateConsumerGroup 创建消费者组，如果已存在则忽略。
func (q *MailQueue) CreateConsumerGroup(ctx context.Context, groupName string) error {
	err := q.rdb.XGroupCreateMkStream(ctx, q.streamName, groupName, "0").Err()
	if err != nil && err.Error() != "BUSYGROUP Consumer Group name already exists" {
		return fmt.Errorf("create consumer group: %w", err)
	}

	q.logger.Info("consumer group ready",
		slog.String("stream", q.streamName),
		slog.String("group", groupName))

	return nil
}

// StreamInfo 获取 Stream 中的消息数量。
func (q *MailQueue) StreamInfo(ctx context.Context) (int64, error) {
	length, err := q.rdb.XLen(ctx, q.streamName).Result()
	if err != nil {
		return 0, fmt.Errorf("xlen failed: %w", err)
	}
	return length, nil
}

// parseMessage 解析 Redis Stream 消息。
func parseMessage(data string) (*MailMessage, error) {
	var msg MailMessage
	if err := json.Unmarshal([]byte(data), &msg); err != nil {
		return nil, fmt.Errorf("unmarshal message: %w", err)
	}
	return &msg, nil
}
