package credential

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"
)

// 重置令牌取 32 字节随机数（256 位熵），hex 编码后 64 字符。
const resetTokenBytes = 32

// ResetTokenManager 生成一次性的密码重置令牌。
//
// 单次使用由存储层保证：消费成功时令牌列与密码列在同一条 UPDATE 中交换。
type ResetTokenManager struct {
	ttl time.Duration
}

// NewResetTokenManager 创建 ResetTokenManager，ttl 非法时回落到 1 小时。
func NewResetTokenManager(ttl time.Duration) *ResetTokenManager {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &ResetTokenManager{ttl: ttl}
}

// Generate 从 crypto/rand 取随机字节并 hex 编码。
func (m *ResetTokenManager) Generate() (string, error) {
	buf := make([]byte, resetTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate reset token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// ExpiryFor 返回以 now 为起点的过期时刻。
func (m *ResetTokenManager) ExpiryFor(now time.Time) time.Time {
	return now.Add(m.ttl)
}

// TTL 返回令牌有效期（邮件正文会用到）。
func (m *ResetTokenManager) TTL() time.Duration {
	return m.ttl
}
