// File: internal/browser/stealth/stealth_test.go
package stealth

import (
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestRandomPersonaDrawsFromPools(t *testing.T) {
	rng := rand.New(rand.NewSource(1))

	seenUA := make(map[string]bool)
	for i := 0; i < 50; i++ {
		p := RandomPersona(rng)
		assert.Contains(t, userAgentPool, p.UserAgent)
		assert.Positive(t, p.Width)
		assert.Positive(t, p.Height)
		// The rest of the profile stays coherent with the default.
		assert.Equal(t, DefaultPersona.Timezone, p.Timezone)
		assert.NotEmpty(t, p.Languages)
		seenUA[p.UserAgent] = true
	}
	assert.Greater(t, len(seenUA), 1, "pool should produce varied user agents")
}

func TestApplyBuildsTaskSequence(t *testing.T) {
	tasks := Apply(DefaultPersona, zaptest.NewLogger(t))
	require.NotEmpty(t, tasks)
	// UA and metrics overrides, script injection, timezone, locale, headers.
	assert.Len(t, tasks, 6)
}

func TestEvasionsScriptEmbedded(t *testing.T) {
	assert.True(t, strings.Contains(evasionsScript, "webdriver"))
	assert.True(t, strings.Contains(evasionsScript, "permissions"))
}
