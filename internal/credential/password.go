package credential

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// PasswordHasher 封装 bcrypt 的加盐哈希与校验。
type PasswordHasher struct {
	cost int
}

// NewPasswordHasher 创建 PasswordHasher。
//
// cost 超出 bcrypt 合法范围时回落到 DefaultCost，测试可传 bcrypt.MinCost 提速。
func NewPasswordHasher(cost int) *PasswordHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &PasswordHasher{cost: cost}
}

// Hash 生成带盐哈希。同一明文每次结果不同。
func (h *PasswordHasher) Hash(plaintext string) (string, error) {
	data, err := bcrypt.GenerateFromPassword([]byte(plaintext), h.cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(data), nil
}

// Verify 校验明文与哈希是否匹配。
//
// 不匹配、哈希损坏、输入为空一律返回 false，从不 panic。
func (h *PasswordHasher) Verify(plaintext, digest string) bool {
	return bcrypt.CompareHashAndPassword([]byte(digest), []byte(plaintext)) == nil
}
