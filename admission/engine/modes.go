package engine

import (
	"github.com/darklock-net/gatehouse/admission/chalstore"
	"github.com/darklock-net/gatehouse/admission/configstore"
	"github.com/darklock-net/gatehouse/admission/risk"
)

// selectMode is the single place a community profile, its configured
// verification method, and a fused risk level turn into a challenge mode.
// Returns false when the member should pass without any challenge.
func selectMode(cfg *configstore.CommunityConfig, level risk.Level) (chalstore.Mode, bool) {
	switch cfg.Profile {
	case configstore.ProfileUltra:
		// every join goes to staff review, regardless of score
		return chalstore.ModeWeb, true
	case configstore.ProfileHigh:
		if level >= risk.LevelHigh {
			return chalstore.ModeWeb, true
		}
		return chalstore.ModeButton, true
	}

	// Standard profile. An explicit verification method overrides the
	// level-derived choice.
	if cfg.VerificationMethod != "" && cfg.VerificationMethod != configstore.MethodAuto {
		return methodMode(cfg.VerificationMethod)
	}

	switch level {
	case risk.LevelHigh:
		return chalstore.ModeWeb, true
	case risk.LevelMedium, risk.LevelElevated:
		return chalstore.ModeButton, true
	}
	return "", false
}

func methodMode(m configstore.VerificationMethod) (chalstore.Mode, bool) {
	switch m {
	case configstore.MethodButton:
		return chalstore.ModeButton, true
	case configstore.MethodCode:
		return chalstore.ModeCode, true
	case configstore.MethodWeb:
		return chalstore.ModeWeb, true
	}
	return "", false
}
