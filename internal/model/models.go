package model

import (
	"time"
)

// WaitlistEntry 表示落地页收集的候补名单记录。
//
// Email 唯一，重复加入视为幂等操作（不报错，不生成新记录）。
type WaitlistEntry struct {
	ID        uint      `gorm:"primaryKey"` // 记录 ID
	CreatedAt time.Time // 加入时间

	Email  string `gorm:"type:varchar(191);uniqueIndex;not null"` // 联系邮箱（唯一）
	Name   string `gorm:"type:varchar(120)"`                      // 称呼（可选）
	Source string `gorm:"type:varchar(64)"`                       // 来源渠道（如 "landing" / "twitter"）
}

// FunderLead 表示潜在投资人留下的联系线索。
type FunderLead struct {
	ID        uint      `gorm:"primaryKey"` // 记录 ID
	CreatedAt time.Time // 提交时间

	Email        string `gorm:"type:varchar(191);uniqueIndex;not null"` // 联系邮箱（唯一）
	Name         string `gorm:"type:varchar(120)"`                      // 称呼（可选）
	Organization string `gorm:"type:varchar(120)"`                      // 所属机构（可选）
	Message      string `gorm:"type:varchar(500)"`                      // 备注信息（可选）
}
