package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/Joy-Ewatomi/Joyxora-landingpage-mvp-backend/internal/model"
)

// UserStore 提供用户记录的持久化操作。
//
// 所有查询都按原样比较邮箱与用户名（不做大小写折叠），
// 令牌过期判断直接放在 WHERE 条件里，调用方拿不到已过期的记录。
type UserStore struct {
	db *gorm.DB
}

// NewUserStore 创建 UserStore。
func NewUserStore(db *gorm.DB) *UserStore {
	return &UserStore{db: db}
}

// Create 插入新用户（先插入，由唯一索引裁决冲突）。
//
// 邮箱或用户名撞唯一索引时返回 ErrDuplicate，不区分是哪个字段。
func (s *UserStore) Create(ctx context.Context, u *model.User) error {
	if err := s.db.WithContext(ctx).Create(u).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrDuplicate
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

// FindByEmail 按邮箱精确查找用户。
func (s *UserStore) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	var u model.User
	if err := s.db.WithContext(ctx).Where("email = ?", email).First(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find user by email: %w", err)
	}
	return &u, nil
}

// FindByUsername 按用户名精确查找用户。
func (s *UserStore) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	var u model.User
	if err := s.db.WithContext(ctx).Where("username = ?", username).First(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find user by username: %w", err)
	}
	return &u, nil
}

// FindByID 按 ID 查找用户。
func (s *UserStore) FindByID(ctx context.Context, id uint) (*model.User, error) {
	var u model.User
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find user by id: %w", err)
	}
	return &u, nil
}

// FindByResetToken 按重置令牌查找用户。
//
// 过期过滤在数据层完成：expires_at <= now 的记录等同于不存在。
func (s *UserStore) FindByResetToken(ctx context.Context, token string, now time.Time) (*model.User, error) {
	var u model.User
	err := s.db.WithContext(ctx).
		Where("reset_token = ? AND reset_token_expires_at > ?", token, now).
		First(&u).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find user by reset token: %w", err)
	}
	return &u, nil
}

// SetResetToken 写入重置令牌与过期时间。
//
// 单条 UPDATE 同时覆盖两列，旧令牌直接作废，不存在撕裂写入。
func (s *UserStore) SetResetToken(ctx context.Context, email, token string, expiresAt time.Time) error {
	tx := s.db.WithContext(ctx).Model(&model.User{}).
		Where("email = ?", email).
		Updates(map[string]interface{}{
			"reset_token":            token,
			"reset_token_expires_at": expiresAt,
		})
	if tx.Error != nil {
		return fmt.Errorf("set reset token: %w", tx.Error)
	}
	if tx.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdatePassword 更新密码哈希。
//
// 重置令牌对在同一条 UPDATE 中一并清除，已消费的令牌不可能再被重放。
func (s *UserStore) UpdatePassword(ctx context.Context, id uint, newHash string) error {
	tx := s.db.WithContext(ctx).Model(&model.User{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"password_hash":          newHash,
			"reset_token":            nil,
			"reset_token_expires_at": nil,
		})
	if tx.Error != nil {
		return fmt.Errorf("update password: %w", tx.Error)
	}
	if tx.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ClearResetToken 清除重置令牌对。对没有令牌的用户是幂等空操作。
func (s *UserStore) ClearResetToken(ctx context.Context, id uint) error {
	err := s.db.WithContext(ctx).Model(&model.User{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"reset_token":            nil,
			"reset_token_expires_at": nil,
		}).Error
	if err != nil {
		return fmt.Errorf("clear reset token: %w", err)
	}
	return nil
}
