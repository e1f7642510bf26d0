package engine

import (
	"context"
	"log/slog"

	"github.com/darklock-net/gatehouse/admission/chalstore"
	"github.com/darklock-net/gatehouse/admission/configstore"
	"github.com/darklock-net/gatehouse/admission/risk"
)

// BaseContext holds the request-scoped fields shared by all event flavors.
type BaseContext struct {
	// Actual golang "context.Context", if needed for timeouts etc
	Ctx context.Context

	// slog logger handle, with event-specific fields pre-populated. Pointer, so it can be mutated.
	Logger *slog.Logger
}

// JoinContext carries one member join through the admission pipeline, from
// config load to challenge issuance. Fields fill in as stages run.
type JoinContext struct {
	BaseContext

	Member risk.MemberMeta
	Config *configstore.CommunityConfig

	// Base is the heuristic assessment before trust and threat intel are
	// blended in. With advanced scan disabled it is the neutral baseline.
	Base risk.Assessment
	// Final is the fused score the mode decision runs on.
	Final Fusion
}

// ResponseContext carries one challenge response, from any of the surfaces a
// member can answer on.
type ResponseContext struct {
	BaseContext

	CommunityID string
	MemberID    string
	Surface     ResponseSurface
	// Input is the raw response text. Empty for button clicks.
	Input string

	Config    *configstore.CommunityConfig
	Challenge *chalstore.Challenge
}

// ResponseSurface names where a challenge response arrived from.
type ResponseSurface string

const (
	// SurfaceDirect is a reply in the member's direct-message thread.
	SurfaceDirect ResponseSurface = "direct"
	// SurfaceChannel is a message in the community's verification channel.
	SurfaceChannel ResponseSurface = "channel"
	// SurfaceButton is a click on the challenge message's button.
	SurfaceButton ResponseSurface = "button"
	// SurfaceForm is a code submitted through the pop-up form.
	SurfaceForm ResponseSurface = "form"
	// SurfaceCommand is the slash-command with the code as its argument.
	SurfaceCommand ResponseSurface = "command"
	// SurfaceReview is a staff decision on the web review surface, not a
	// member response.
	SurfaceReview ResponseSurface = "review"
)

func NewJoinContext(ctx context.Context, eng *Engine, member risk.MemberMeta, cfg *configstore.CommunityConfig) JoinContext {
	return JoinContext{
		BaseContext: BaseContext{
			Ctx:    ctx,
			Logger: eng.Logger.With("community", member.CommunityID, "member", member.MemberID, "event", "join"),
		},
		Member: member,
		Config: cfg,
	}
}

func NewResponseContext(ctx context.Context, eng *Engine, communityID, memberID string, surface ResponseSurface, input string) ResponseContext {
	return ResponseContext{
		BaseContext: BaseContext{
			Ctx:    ctx,
			Logger: eng.Logger.With("community", communityID, "member", memberID, "event", "response", "surface", surface),
		},
		CommunityID: communityID,
		MemberID:    memberID,
		Surface:     surface,
		Input:       input,
	}
}
