package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// AuditRecord is the persisted form of an Event; the dashboard reads this
// table directly.
type AuditRecord struct {
	ID          string `gorm:"primarykey"`
	CommunityID string `gorm:"index:idx_audit_pair"`
	MemberID    string `gorm:"index:idx_audit_pair"`
	Type        string `gorm:"index"`
	Payload     string
	CreatedAt   time.Time `gorm:"index"`
}

type GormSink struct {
	db *gorm.DB
}

func NewGormSink(db *gorm.DB) (*GormSink, error) {
	if err := db.AutoMigrate(&AuditRecord{}); err != nil {
		return nil, fmt.Errorf("migrating audit table: %w", err)
	}
	return &GormSink{db: db}, nil
}

func (s *GormSink) Emit(ctx context.Context, evt Event) error {
	payload := "{}"
	if evt.Payload != nil {
		if b, err := json.Marshal(evt.Payload); err == nil {
			payload = string(b)
		}
	}
	rec := AuditRecord{
		ID:          evt.ID,
		CommunityID: evt.CommunityID,
		MemberID:    evt.MemberID,
		Type:        evt.Type,
		Payload:     payload,
		CreatedAt:   evt.CreatedAt,
	}
	return s.db.WithContext(ctx).Create(&rec).Error
}

// Recent returns the latest events for a pair, newest first. Serves the
// review surface's context view.
func (s *GormSink) Recent(ctx context.Context, communityID, memberID string, limit int) ([]AuditRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	var out []AuditRecord
	err := s.db.WithContext(ctx).
		Where("community_id = ? AND member_id = ?", communityID, memberID).
		Order("created_at DESC").
		Limit(limit).
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}
