package chalstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// GormChallengeStore is the database-backed implementation, for deployments
// where challenges must survive restarts.
type GormChallengeStore struct {
	db *gorm.DB
}

func NewGormChallengeStore(db *gorm.DB) (*GormChallengeStore, error) {
	if err := db.AutoMigrate(&Challenge{}); err != nil {
		return nil, fmt.Errorf("migrating challenge table: %w", err)
	}
	return &GormChallengeStore{db: db}, nil
}

func (s *GormChallengeStore) Replace(ctx context.Context, chal *Challenge) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("community_id = ? AND member_id = ?", chal.CommunityID, chal.MemberID).Delete(&Challenge{}).Error; err != nil {
			return err
		}
		return tx.Create(chal).Error
	})
}

func (s *GormChallengeStore) GetPending(ctx context.Context, communityID, memberID string) (*Challenge, error) {
	var chal Challenge
	err := s.db.WithContext(ctx).
		Where("community_id = ? AND member_id = ? AND status = ?", communityID, memberID, StatusPending).
		First(&chal).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &chal, nil
}

func (s *GormChallengeStore) GetPendingByReviewToken(ctx context.Context, token string) (*Challenge, error) {
	if token == "" {
		return nil, nil
	}
	var chal Challenge
	err := s.db.WithContext(ctx).
		Where("review_token = ? AND status = ?", token, StatusPending).
		First(&chal).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &chal, nil
}

func (s *GormChallengeStore) ListPendingForMember(ctx context.Context, memberID string) ([]*Challenge, error) {
	var out []*Challenge
	err := s.db.WithContext(ctx).
		Where("member_id = ? AND status = ?", memberID, StatusPending).
		Order("issued_at DESC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *GormChallengeStore) RecordAttempt(ctx context.Context, chalID uint) (int, error) {
	var attempts int
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&Challenge{}).Where("id = ?", chalID).
			UpdateColumn("attempts", gorm.Expr("attempts + ?", 1)).Error; err != nil {
			return err
		}
		var chal Challenge
		if err := tx.Select("attempts").First(&chal, chalID).Error; err != nil {
			return err
		}
		attempts = chal.Attempts
		return nil
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, nil
		}
		return 0, err
	}
	return attempts, nil
}

func (s *GormChallengeStore) MarkStatus(ctx context.Context, chalID uint, status Status) (bool, error) {
	res := s.db.WithContext(ctx).Model(&Challenge{}).
		Where("id = ? AND status = ?", chalID, StatusPending).
		Update("status", status)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (s *GormChallengeStore) DeletePair(ctx context.Context, communityID, memberID string) error {
	return s.db.WithContext(ctx).
		Where("community_id = ? AND member_id = ?", communityID, memberID).
		Delete(&Challenge{}).Error
}

func (s *GormChallengeStore) ListExpiredPending(ctx context.Context, now time.Time, limit int) ([]*Challenge, error) {
	q := s.db.WithContext(ctx).
		Where("status = ? AND expires_at < ?", StatusPending, now)
	if limit > 0 {
		q = q.Limit(limit)
	}
	var out []*Challenge
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
