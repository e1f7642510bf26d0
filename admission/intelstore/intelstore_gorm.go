package intelstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormIntelStore reads trust and threat tables shared with the moderation
// tooling that writes them. Read errors are logged here and surfaced only as
// ok=false, per the fail-open contract.
type GormIntelStore struct {
	db     *gorm.DB
	logger *slog.Logger
}

func NewGormIntelStore(db *gorm.DB, logger *slog.Logger) (*GormIntelStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := db.AutoMigrate(&TrustRecord{}, &ThreatRecord{}); err != nil {
		return nil, fmt.Errorf("migrating intel tables: %w", err)
	}
	return &GormIntelStore{db: db, logger: logger.With("subsystem", "intelstore")}, nil
}

func (s *GormIntelStore) GetTrust(ctx context.Context, communityID, memberID string) (TrustRecord, bool) {
	var rec TrustRecord
	err := s.db.WithContext(ctx).
		Where("community_id = ? AND member_id = ?", communityID, memberID).
		First(&rec).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			s.logger.Warn("trust read failed, falling back to defaults", "err", err, "communityID", communityID, "memberID", memberID)
		}
		return TrustRecord{}, false
	}
	return rec, true
}

func (s *GormIntelStore) ActiveThreats(ctx context.Context, memberID string) ([]ThreatRecord, bool) {
	var out []ThreatRecord
	err := s.db.WithContext(ctx).
		Where("member_id = ? AND active = ?", memberID, true).
		Find(&out).Error
	if err != nil {
		s.logger.Warn("threat read failed, assuming none", "err", err, "memberID", memberID)
		return nil, false
	}
	return out, true
}

func (s *GormIntelStore) TouchVerified(ctx context.Context, communityID, memberID string, when time.Time) error {
	rec := TrustRecord{
		CommunityID:    communityID,
		MemberID:       memberID,
		TrustScore:     DefaultTrustScore,
		LastVerifiedAt: &when,
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "community_id"}, {Name: "member_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"last_verified_at"}),
	}).Create(&rec).Error
}
