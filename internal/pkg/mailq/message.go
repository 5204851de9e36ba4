package mailq

import (
	"time"

	"github.com/google/uuid"
)

// 邮件种类。
const (
	KindWelcome = "welcome"
	KindReset   = "reset"
)

// MailMessage 表示邮件队列中的消息结构。
//
// 用于在 Redis Streams 中传递待发送的事务邮件。
type MailMessage struct {
	ID        string    `json:"id"`        // 业务 ID（uuid），用于日志追踪
	Kind      string    `json:"kind"`      // 邮件种类: "welcome" / "reset"
	To        string    `json:"to"`        // 收件地址
	Username  string    `json:"username"`  // 收件人用户名
	Token     string    `json:"token"`     // 重置令牌（仅 reset）
	UserID    uint      `json:"user_id"`   // 账户 ID（仅 reset）
	Timestamp time.Time `json:"timestamp"` // 消息创建时间
	Retry     int       `json:"retry"`     // 重试次数
}

// NewWelcomeMessage 创建一条欢迎邮件消息。
func NewWelcomeMessage(email string, username string) *MailMessage {
	return &MailMessage{
		ID:        uuid.NewString(),
		Kind:      KindWelcome,
		To:        email,
		Username:  username,
		Timestamp: time.Now(),
		Retry:     0,
	}
}

// NewResetMessage 创建一条密码重置邮件消息。
func NewResetMessage(email string, username string, token string, userID uint) *MailMessage {
	return &MailMessage{
		ID:        uuid.NewString(),
		Kind:      KindReset,
		To:        email,
		Username:  username,
		Token:     token,
		UserID:    userID,
		Timestamp: time.Now(),
		Retry:     0,
	}
}
