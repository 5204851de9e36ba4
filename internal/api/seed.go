package api

import (
	"context"
	"fmt"
	"strconv"

	"github.com/Joy-Ewatomi/Joyxora-landingpage-mvp-backend/internal/model"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// SeedDemoData 初始化本地演示账号。
//
// 仅在 local 环境生效，方便前端联调时用固定账号走完整的登录流程。
// 每次启动都把账号恢复到已知状态：密码重置为演示密码，残留的
// 重置令牌一并清除。
func (s *Server) SeedDemoData(ctx context.Context) error {
	if s.cfg.App.Env != "local" {
		return nil
	}

	const demoEmail = "demo@joyxora.dev"
	const demoPassword = "demo-password"

	var user model.User
	err := s.db.WithContext(ctx).Where("email = ?", demoEmail).First(&user).Error
	if err != nil && err != gorm.ErrRecordNotFound {
		return err
	}

	hash, hashErr := bcrypt.GenerateFromPassword([]byte(demoPassword), bcrypt.DefaultCost)
	if hashErr != nil {
		return hashErr
	}

	if err == gorm.ErrRecordNotFound {
		user = model.User{
			Email:        demoEmail,
			Username:     "demo",
			PasswordHash: string(hash),
		}
		if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
			return err
		}
	} else {
		updates := map[string]interface{}{
			"password_hash":          string(hash),
			"reset_token":            nil,
			"reset_token_expires_at": nil,
		}
		if err := s.db.WithContext(ctx).Model(&model.User{}).Where("id = ?", user.ID).Updates(updates).Error; err != nil {
			return err
		}
	}

	// 活跃标记不跨重启保留，演示账号每次都从干净状态开始
	key := "user:active:" + strconv.FormatUint(uint64(user.ID), 10)
	if err := s.rdb.Del(ctx, key).Err(); err != nil {
		fmt.Printf("failed to clear activity marker for demo user: %v\n", err)
	}

	return nil
}
