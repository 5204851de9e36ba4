package notify

import "context"

// Notifier 定义事务邮件的同步发送接口。
type Notifier interface {
	// SendWelcome 给新注册的账户发欢迎邮件。
	SendWelcome(ctx context.Context, email string, username string) error

	// SendResetLink 发送密码重置邮件，token 拼接进重置链接。
	SendResetLink(ctx context.Context, email string, username string, token string) error
}
