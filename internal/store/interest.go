package store

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/Joy-Ewatomi/Joyxora-landingpage-mvp-backend/internal/model"
)

// InterestStore 持久化落地页收集的候补名单与投资人线索。
type InterestStore struct {
	db *gorm.DB
}

// NewInterestStore 创建 InterestStore。
func NewInterestStore(db *gorm.DB) *InterestStore {
	return &InterestStore{db: db}
}

// AddWaitlistEntry 插入候补记录，邮箱重复返回 ErrDuplicate。
func (s *InterestStore) AddWaitlistEntry(ctx context.Context, e *model.WaitlistEntry) error {
	if err := s.db.WithContext(ctx).Create(e).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrDuplicate
		}
		return fmt.Errorf("add waitlist entry: %w", err)
	}
	return nil
}

// AddFunderLead 插入投资人线索，邮箱重复返回 ErrDuplicate。
func (s *InterestStore) AddFunderLead(ctx context.Context, l *model.FunderLead) error {
	if err := s.db.WithContext(ctx).Create(l).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrDuplicate
		}
		return fmt.Errorf("add funder lead: %w", err)
	}
	return nil
}

// ListWaitlist 按加入时间倒序返回候补记录。
func (s *InterestStore) ListWaitlist(ctx context.Context, limit int) ([]model.WaitlistEntry, error) {
	entries := []model.WaitlistEntry{}
	if err := s.db.WithContext(ctx).Order("id DESC").Limit(limit).Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("list waitlist: %w", err)
	}
	return entries, nil
}

// ListFunderLeads 按提交时间倒序返回投资人线索。
func (s *InterestStore) ListFunderLeads(ctx context.Context, limit int) ([]model.FunderLead, error) {
	leads := []model.FunderLead{}
	if err := s.db.WithContext(ctx).Order("id DESC").Limit(limit).Find(&leads).Error; err != nil {
		return nil, fmt.Errorf("list funder leads: %w", err)
	}
	return leads, nil
}
