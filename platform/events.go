package platform

import (
	"encoding/json"
	"time"
)

// Gateway event type identifiers, as they appear on the wire.
const (
	EventMemberJoin    = "MEMBER_JOIN"
	EventMemberLeave   = "MEMBER_LEAVE"
	EventMessageCreate = "MESSAGE_CREATE"
	EventInteraction   = "INTERACTION"
)

// GatewayEvent is the envelope for every message on the event stream. Seq is
// a monotonic per-connection sequence number, used as the resume cursor.
type GatewayEvent struct {
	Seq  int64           `json:"seq"`
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// MemberJoinEvent announces a member entering a community, carrying the
// observable account attributes admission scoring reads.
type MemberJoinEvent struct {
	CommunityID string     `json:"community_id"`
	MemberID    string     `json:"member_id"`
	DisplayName string     `json:"display_name,omitempty"`
	CreatedAt   *time.Time `json:"created_at,omitempty"`
	HasAvatar   bool       `json:"has_avatar"`
	MutualCount int        `json:"mutual_count"`
	RoleIDs     []string   `json:"role_ids,omitempty"`
}

type MemberLeaveEvent struct {
	CommunityID string `json:"community_id"`
	MemberID    string `json:"member_id"`
}

// MessageCreateEvent is a member-authored message. Direct messages have
// Direct set and no community ID.
type MessageCreateEvent struct {
	CommunityID string `json:"community_id,omitempty"`
	ChannelID   string `json:"channel_id"`
	MemberID    string `json:"member_id"`
	Content     string `json:"content"`
	Direct      bool   `json:"direct,omitempty"`
}

// Interaction kinds.
const (
	InteractionButton  = "button"
	InteractionModal   = "modal"
	InteractionCommand = "command"
)

// InteractionEvent is a button click, a structured form (modal) submit, or a
// slash-command invocation. CustomID is set for buttons, Input carries the
// typed value for modals and commands.
type InteractionEvent struct {
	CommunityID string `json:"community_id"`
	MemberID    string `json:"member_id"`
	Kind        string `json:"kind"`
	CustomID    string `json:"custom_id,omitempty"`
	Input       string `json:"input,omitempty"`
}
