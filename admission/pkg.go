package admission

import (
	"github.com/darklock-net/gatehouse/admission/chalstore"
	"github.com/darklock-net/gatehouse/admission/configstore"
	"github.com/darklock-net/gatehouse/admission/engine"
	"github.com/darklock-net/gatehouse/admission/risk"
)

type Engine = engine.Engine
type Fusion = engine.Fusion
type Escalation = engine.Escalation
type Outcome = engine.Outcome
type ResponseSurface = engine.ResponseSurface

type StaffNotifier = engine.StaffNotifier
type WebhookNotifier = engine.WebhookNotifier
type AlertThrottler = engine.AlertThrottler
type ActionCooldown = engine.ActionCooldown

type MemberMeta = risk.MemberMeta
type Assessment = risk.Assessment
type Level = risk.Level

type CommunityConfig = configstore.CommunityConfig
type Profile = configstore.Profile
type Challenge = chalstore.Challenge

var (
	SurfaceDirect  = engine.SurfaceDirect
	SurfaceChannel = engine.SurfaceChannel
	SurfaceButton  = engine.SurfaceButton
	SurfaceForm    = engine.SurfaceForm
	SurfaceCommand = engine.SurfaceCommand

	OutcomeNoChallenge   = engine.OutcomeNoChallenge
	OutcomeIgnored       = engine.OutcomeIgnored
	OutcomeThrottled     = engine.OutcomeThrottled
	OutcomeExpired       = engine.OutcomeExpired
	OutcomeMismatch      = engine.OutcomeMismatch
	OutcomeLockout       = engine.OutcomeLockout
	OutcomeVerified      = engine.OutcomeVerified
	OutcomePendingReview = engine.OutcomePendingReview
	OutcomeDenied        = engine.OutcomeDenied
	OutcomeError         = engine.OutcomeError

	LevelLow      = risk.LevelLow
	LevelElevated = risk.LevelElevated
	LevelMedium   = risk.LevelMedium
	LevelHigh     = risk.LevelHigh

	ProfileStandard = configstore.ProfileStandard
	ProfileHigh     = configstore.ProfileHigh
	ProfileUltra    = configstore.ProfileUltra
)
