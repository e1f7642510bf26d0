// Package allowstore holds admission allow-list entries.
//
// An active entry for a member, or for any role the member already holds,
// bypasses scoring entirely: the member is auto-verified on join. Entries are
// managed by community staff through external tooling; admission only reads
// them. Entries may carry an expiry for temporary bypasses (events, imports).
package allowstore

import (
	"context"
	"time"
)

type SubjectKind string

const (
	SubjectMember SubjectKind = "member"
	SubjectRole   SubjectKind = "role"
)

type AllowEntry struct {
	ID          uint        `gorm:"primarykey"`
	CommunityID string      `gorm:"uniqueIndex:idx_allow_subject;not null"`
	SubjectID   string      `gorm:"uniqueIndex:idx_allow_subject;not null"`
	SubjectKind SubjectKind `gorm:"uniqueIndex:idx_allow_subject;not null"`
	Note        string
	// ExpiresAt nil means the entry never expires.
	ExpiresAt *time.Time
	CreatedAt time.Time
}

func (e *AllowEntry) ActiveAt(now time.Time) bool {
	return e.ExpiresAt == nil || e.ExpiresAt.After(now)
}

type AllowStore interface {
	// IsAllowed reports whether the member, or any of the held roles, has an
	// active entry in the community.
	IsAllowed(ctx context.Context, communityID, memberID string, roleIDs []string, now time.Time) (bool, error)
	Add(ctx context.Context, entry *AllowEntry) error
	Remove(ctx context.Context, communityID, subjectID string, kind SubjectKind) error
}
