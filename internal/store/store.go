package store

import (
	"errors"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"github.com/Joy-Ewatomi/Joyxora-landingpage-mvp-backend/internal/model"
)

// 哨兵错误。调用方通过 errors.Is 分类，不接触底层驱动错误。
var (
	// ErrNotFound 查询的记录不存在。
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate 插入时撞上唯一索引。
	ErrDuplicate = errors.New("duplicate record")
)

// Open 连接 MySQL 并完成自动迁移。
//
// TranslateError 开启后，唯一索引冲突会被翻译为 gorm.ErrDuplicatedKey，
// 各 Store 再统一映射为 ErrDuplicate。
func Open(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger:         gormLogger.Default.LogMode(gormLogger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&model.User{}, &model.WaitlistEntry{}, &model.FunderLead{}); err != nil {
		return nil, err
	}
	return db, nil
}
