package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRandomCode(t *testing.T) {
	assert := assert.New(t)
	for i := 0; i < 200; i++ {
		code, err := randomCode()
		if err != nil {
			t.Fatal(err)
		}
		assert.Regexp(`^[1-9][0-9]{3,5}$`, code)
	}
}

func TestParseVerifyCustomID(t *testing.T) {
	assert := assert.New(t)

	community, ok := ParseVerifyCustomID(VerifyCustomID("c1"))
	assert.True(ok)
	assert.Equal("c1", community)

	_, ok = ParseVerifyCustomID("other-bot:verify:c1")
	assert.False(ok)

	_, ok = ParseVerifyCustomID("")
	assert.False(ok)
}
