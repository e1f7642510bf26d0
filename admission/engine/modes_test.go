package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/darklock-net/gatehouse/admission/chalstore"
	"github.com/darklock-net/gatehouse/admission/configstore"
	"github.com/darklock-net/gatehouse/admission/risk"
)

func TestSelectMode(t *testing.T) {
	assert := assert.New(t)

	cases := []struct {
		name      string
		profile   configstore.Profile
		method    configstore.VerificationMethod
		level     risk.Level
		mode      chalstore.Mode
		challenge bool
	}{
		{"standard low passes", configstore.ProfileStandard, configstore.MethodAuto, risk.LevelLow, "", false},
		{"standard elevated button", configstore.ProfileStandard, configstore.MethodAuto, risk.LevelElevated, chalstore.ModeButton, true},
		{"standard medium button", configstore.ProfileStandard, configstore.MethodAuto, risk.LevelMedium, chalstore.ModeButton, true},
		{"standard high web", configstore.ProfileStandard, configstore.MethodAuto, risk.LevelHigh, chalstore.ModeWeb, true},
		{"empty profile acts standard", "", "", risk.LevelLow, "", false},
		{"explicit code overrides low", configstore.ProfileStandard, configstore.MethodCode, risk.LevelLow, chalstore.ModeCode, true},
		{"explicit button overrides high", configstore.ProfileStandard, configstore.MethodButton, risk.LevelHigh, chalstore.ModeButton, true},
		{"explicit web overrides low", configstore.ProfileStandard, configstore.MethodWeb, risk.LevelLow, chalstore.ModeWeb, true},
		{"high profile low risk button", configstore.ProfileHigh, configstore.MethodAuto, risk.LevelLow, chalstore.ModeButton, true},
		{"high profile high risk web", configstore.ProfileHigh, configstore.MethodAuto, risk.LevelHigh, chalstore.ModeWeb, true},
		{"high profile ignores method", configstore.ProfileHigh, configstore.MethodCode, risk.LevelLow, chalstore.ModeButton, true},
		{"ultra always web", configstore.ProfileUltra, configstore.MethodAuto, risk.LevelLow, chalstore.ModeWeb, true},
		{"ultra ignores method", configstore.ProfileUltra, configstore.MethodButton, risk.LevelHigh, chalstore.ModeWeb, true},
	}
	for _, tc := range cases {
		cfg := configstore.DefaultConfig("c1")
		cfg.Profile = tc.profile
		cfg.VerificationMethod = tc.method
		mode, challenge := selectMode(cfg, tc.level)
		assert.Equal(tc.challenge, challenge, tc.name)
		assert.Equal(tc.mode, mode, tc.name)
	}
}
