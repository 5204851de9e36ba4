package credential

import "errors"

// ValidationError 输入校验失败。Msg 面向客户端，可直接返回。
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

// 哨兵错误。HTTP 层按类别映射状态码，底层原因只进日志，不出边界。
var (
	// ErrAccountExists 注册时邮箱或用户名已被占用（不区分哪个字段）。
	ErrAccountExists = errors.New("account already exists")
	// ErrInvalidCredentials 未知邮箱与密码错误共用同一个错误。
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrInvalidResetToken 重置令牌未知、已过期或已被消费。
	ErrInvalidResetToken = errors.New("invalid or expired token")
	// ErrNotFound 按 ID 查找的账户不存在。
	ErrNotFound = errors.New("account not found")
	// ErrInternal 存储或依赖故障，细节已记入日志。
	ErrInternal = errors.New("internal error")
)
