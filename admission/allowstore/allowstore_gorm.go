package allowstore

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type GormAllowStore struct {
	db *gorm.DB
}

func NewGormAllowStore(db *gorm.DB) (*GormAllowStore, error) {
	if err := db.AutoMigrate(&AllowEntry{}); err != nil {
		return nil, fmt.Errorf("migrating allow-list table: %w", err)
	}
	return &GormAllowStore{db: db}, nil
}

func (s *GormAllowStore) IsAllowed(ctx context.Context, communityID, memberID string, roleIDs []string, now time.Time) (bool, error) {
	subjects := s.db.Where("subject_kind = ? AND subject_id = ?", SubjectMember, memberID)
	if len(roleIDs) > 0 {
		subjects = subjects.Or("subject_kind = ? AND subject_id IN ?", SubjectRole, roleIDs)
	}

	var count int64
	err := s.db.WithContext(ctx).Model(&AllowEntry{}).
		Where("community_id = ?", communityID).
		Where(subjects).
		Where("expires_at IS NULL OR expires_at > ?", now).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (s *GormAllowStore) Add(ctx context.Context, entry *AllowEntry) error {
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "community_id"}, {Name: "subject_id"}, {Name: "subject_kind"}},
		DoUpdates: clause.AssignmentColumns([]string{"note", "expires_at"}),
	}).Create(entry).Error
}

func (s *GormAllowStore) Remove(ctx context.Context, communityID, subjectID string, kind SubjectKind) error {
	return s.db.WithContext(ctx).
		Where("community_id = ? AND subject_id = ? AND subject_kind = ?", communityID, subjectID, kind).
		Delete(&AllowEntry{}).Error
}
