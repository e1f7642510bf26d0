package configstore

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type GormConfigStore struct {
	db *gorm.DB
}

func NewGormConfigStore(db *gorm.DB) (*GormConfigStore, error) {
	if err := db.AutoMigrate(&CommunityConfig{}); err != nil {
		return nil, fmt.Errorf("migrating community config table: %w", err)
	}
	return &GormConfigStore{db: db}, nil
}

func (s *GormConfigStore) Get(ctx context.Context, communityID string) (*CommunityConfig, error) {
	var cfg CommunityConfig
	err := s.db.WithContext(ctx).
		Where("community_id = ?", communityID).
		First(&cfg).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return DefaultConfig(communityID), nil
		}
		return DefaultConfig(communityID), err
	}
	return &cfg, nil
}

func (s *GormConfigStore) Put(ctx context.Context, cfg *CommunityConfig) error {
	// rows loaded through Get carry their primary key; plain save avoids a
	// useless insert-conflict round trip
	if cfg.ID != 0 {
		return s.db.WithContext(ctx).Save(cfg).Error
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "community_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"profile", "min_account_age_days", "auto_kick_on_age_fail",
			"verification_method", "enable_advanced_scan",
			"challenge_timeout_minutes", "max_attempts", "restricted_role_id",
			"verified_role_id", "enable_staff_escalation", "staff_webhook_url",
			"fallback_channel_id", "updated_at",
		}),
	}).Create(cfg).Error
}
