package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"github.com/Joy-Ewatomi/Joyxora-landingpage-mvp-backend/internal/model"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         gormLogger.Default.LogMode(gormLogger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("unwrap sql db: %v", err)
	}
	// 内存库按连接隔离，收紧为单连接保证所有语句落在同一个库上
	sqlDB.SetMaxOpenConns(1)
	if err := db.AutoMigrate(&model.User{}, &model.WaitlistEntry{}, &model.FunderLead{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func newTestUser(email, username string) *model.User {
	return &model.User{
		Email:        email,
		Username:     username,
		PasswordHash: "$2a$10$fakefakefakefakefakefakefakefakefakefakefakefakefakef",
	}
}

func TestUserStore_CreateAndFind(t *testing.T) {
	ctx := context.Background()
	s := NewUserStore(newTestDB(t))

	u := newTestUser("ada@example.com", "ada")
	if err := s.Create(ctx, u); err != nil {
		t.Fatalf("create: %v", err)
	}
	if u.ID == 0 {
		t.Fatalf("expected assigned id")
	}

	byEmail, err := s.FindByEmail(ctx, "ada@example.com")
	if err != nil {
		t.Fatalf("find by email: %v", err)
	}
	if byEmail.Username != "ada" {
		t.Fatalf("expected username ada, got %s", byEmail.Username)
	}

	byUsername, err := s.FindByUsername(ctx, "ada")
	if err != nil {
		t.Fatalf("find by username: %v", err)
	}
	if byUsername.ID != u.ID {
		t.Fatalf("expected id %d, got %d", u.ID, byUsername.ID)
	}

	byID, err := s.FindByID(ctx, u.ID)
	if err != nil {
		t.Fatalf("find by id: %v", err)
	}
	if byID.Email != "ada@example.com" {
		t.Fatalf("unexpected email %s", byID.Email)
	}

	if _, err := s.FindByEmail(ctx, "nobody@example.com"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := s.FindByID(ctx, 9999); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUserStore_EmailIsCaseSensitive(t *testing.T) {
	ctx := context.Background()
	s := NewUserStore(newTestDB(t))

	if err := s.Create(ctx, newTestUser("Ada@Example.com", "ada")); err != nil {
		t.Fatalf("create: %v", err)
	}

	// 按原样存储，不折叠大小写
	if _, err := s.FindByEmail(ctx, "ada@example.com"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for different casing, got %v", err)
	}
	if _, err := s.FindByEmail(ctx, "Ada@Example.com"); err != nil {
		t.Fatalf("find exact casing: %v", err)
	}
}

func TestUserStore_DuplicateEmail(t *testing.T) {
	ctx := context.Background()
	s := NewUserStore(newTestDB(t))

	if err := s.Create(ctx, newTestUser("dup@example.com", "first")); err != nil {
		t.Fatalf("create: %v", err)
	}
	err := s.Create(ctx, newTestUser("dup@example.com", "second"))
	if !errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}

	var count int64
	s.db.Model(&model.User{}).Where("email = ?", "dup@example.com").Count(&count)
	if count != 1 {
		t.Fatalf("expected exactly one row, got %d", count)
	}
}

func TestUserStore_DuplicateUsername(t *testing.T) {
	ctx := context.Background()
	s := NewUserStore(newTestDB(t))

	if err := s.Create(ctx, newTestUser("a@example.com", "taken")); err != nil {
		t.Fatalf("create: %v", err)
	}
	err := s.Create(ctx, newTestUser("b@example.com", "taken"))
	if !errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}
}

func TestUserStore_ResetTokenLifecycle(t *testing.T) {
	ctx := context.Background()
	s := NewUserStore(newTestDB(t))

	u := newTestUser("reset@example.com", "reset")
	if err := s.Create(ctx, u); err != nil {
		t.Fatalf("create: %v", err)
	}

	now := time.Now()
	expiry := now.Add(time.Hour)

	if err := s.SetResetToken(ctx, "missing@example.com", "tok", expiry); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown email, got %v", err)
	}
	if err := s.SetResetToken(ctx, "reset@example.com", "tok-1", expiry); err != nil {
		t.Fatalf("set reset token: %v", err)
	}

	got, err := s.FindByResetToken(ctx, "tok-1", now)
	if err != nil {
		t.Fatalf("find by reset token: %v", err)
	}
	if got.ID != u.ID {
		t.Fatalf("expected user %d, got %d", u.ID, got.ID)
	}

	// 新请求覆盖旧令牌
	if err := s.SetResetToken(ctx, "reset@example.com", "tok-2", expiry); err != nil {
		t.Fatalf("overwrite reset token: %v", err)
	}
	if _, err := s.FindByResetToken(ctx, "tok-1", now); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected old token to be gone, got %v", err)
	}
	if _, err := s.FindByResetToken(ctx, "tok-2", now); err != nil {
		t.Fatalf("expected new token to resolve: %v", err)
	}
}

func TestUserStore_ResetTokenExpiryBoundary(t *testing.T) {
	ctx := context.Background()
	s := NewUserStore(newTestDB(t))

	if err := s.Create(ctx, newTestUser("edge@example.com", "edge")); err != nil {
		t.Fatalf("create: %v", err)
	}

	expiry := time.Now().Add(time.Hour)
	if err := s.SetResetToken(ctx, "edge@example.com", "edge-tok", expiry); err != nil {
		t.Fatalf("set reset token: %v", err)
	}

	// 严格早于过期时刻：接受
	if _, err := s.FindByResetToken(ctx, "edge-tok", expiry.Add(-time.Second)); err != nil {
		t.Fatalf("expected token valid before expiry: %v", err)
	}
	// 恰好等于过期时刻：拒绝
	if _, err := s.FindByResetToken(ctx, "edge-tok", expiry); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected token rejected at expiry instant, got %v", err)
	}
	// 晚于过期时刻：拒绝
	if _, err := s.FindByResetToken(ctx, "edge-tok", expiry.Add(time.Second)); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected token rejected after expiry, got %v", err)
	}
}

func TestUserStore_UpdatePasswordClearsResetToken(t *testing.T) {
	ctx := context.Background()
	s := NewUserStore(newTestDB(t))

	u := newTestUser("swap@example.com", "swap")
	if err := s.Create(ctx, u); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := s.SetResetToken(ctx, "swap@example.com", "swap-tok", time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("set reset token: %v", err)
	}

	if err := s.UpdatePassword(ctx, u.ID, "new-hash"); err != nil {
		t.Fatalf("update password: %v", err)
	}

	got, err := s.FindByID(ctx, u.ID)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if got.PasswordHash != "new-hash" {
		t.Fatalf("expected new hash, got %s", got.PasswordHash)
	}
	if got.ResetToken != nil || got.ResetTokenExpiresAt != nil {
		t.Fatalf("expected reset token cleared in same update")
	}
	if _, err := s.FindByResetToken(ctx, "swap-tok", time.Now()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected consumed token unusable, got %v", err)
	}

	if err := s.UpdatePassword(ctx, 9999, "x"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown id, got %v", err)
	}
}

func TestUserStore_ClearResetToken(t *testing.T) {
	ctx := context.Background()
	s := NewUserStore(newTestDB(t))

	u := newTestUser("clear@example.com", "clear")
	if err := s.Create(ctx, u); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := s.SetResetToken(ctx, "clear@example.com", "clear-tok", time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("set reset token: %v", err)
	}

	if err := s.ClearResetToken(ctx, u.ID); err != nil {
		t.Fatalf("clear reset token: %v", err)
	}
	got, err := s.FindByID(ctx, u.ID)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if got.ResetToken != nil || got.ResetTokenExpiresAt != nil {
		t.Fatalf("expected token cleared")
	}

	// 无令牌时是幂等空操作
	if err := s.ClearResetToken(ctx, u.ID); err != nil {
		t.Fatalf("clear again: %v", err)
	}
}
