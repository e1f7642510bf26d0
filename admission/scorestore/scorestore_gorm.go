package scorestore

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type GormScoreStore struct {
	db *gorm.DB
}

func NewGormScoreStore(db *gorm.DB) (*GormScoreStore, error) {
	if err := db.AutoMigrate(&AssessmentRecord{}, &AltSignal{}); err != nil {
		return nil, fmt.Errorf("migrating score tables: %w", err)
	}
	return &GormScoreStore{db: db}, nil
}

func (s *GormScoreStore) UpsertAssessment(ctx context.Context, rec *AssessmentRecord) error {
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "community_id"}, {Name: "member_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"score", "level", "account_age_days", "has_avatar", "mutual_count",
			"join_velocity", "reasons", "updated_at",
		}),
	}).Create(rec).Error
}

func (s *GormScoreStore) GetAssessment(ctx context.Context, communityID, memberID string) (*AssessmentRecord, error) {
	var rec AssessmentRecord
	err := s.db.WithContext(ctx).
		Where("community_id = ? AND member_id = ?", communityID, memberID).
		First(&rec).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &rec, nil
}

func (s *GormScoreStore) AppendAltSignal(ctx context.Context, sig *AltSignal) error {
	return s.db.WithContext(ctx).Create(sig).Error
}

func (s *GormScoreStore) ListAltSignals(ctx context.Context, communityID, memberID string) ([]*AltSignal, error) {
	var out []*AltSignal
	err := s.db.WithContext(ctx).
		Where("community_id = ? AND member_id = ?", communityID, memberID).
		Order("id").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}
