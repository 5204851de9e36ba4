package model

import "time"

// User 表示一个注册用户。
//
// Email 与 Username 均唯一；Email 按原样存储（不做大小写折叠）。
// ResetToken / ResetTokenExpiresAt 成对出现：请求重置时一起写入，
// 消费成功时与密码更新在同一条 UPDATE 中一起清除。
type User struct {
	ID           uint   `gorm:"primaryKey"`                              // 用户 ID
	Email        string `gorm:"type:varchar(191);uniqueIndex;not null"`  // 邮箱（唯一）
	Username     string `gorm:"type:varchar(64);uniqueIndex;not null"`   // 用户名（唯一，缺省取邮箱本地部分）
	PasswordHash string `gorm:"not null" json:"-"`                       // bcrypt 哈希，永不序列化

	ResetToken          *string    `gorm:"type:varchar(128);index"` // 当前有效的重置令牌（hex）
	ResetTokenExpiresAt *time.Time // 重置令牌过期时间

	CreatedAt time.Time // 注册时间
}
