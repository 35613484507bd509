package helpers

import (
	"testing"
	"time"

	"github.com/Jeffail/gabs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDuration(t *testing.T) {
	cases := map[string]time.Duration{
		"90d":    90 * Day,
		"1h":     time.Hour,
		"1200ms": 1200 * time.Millisecond,
		"2w":     14 * Day,
		" 15m ":  15 * time.Minute,
	}

	for input, expected := range cases {
		duration, err := ParseDuration(input)
		require.NoError(t, err, input)
		assert.Equal(t, expected, duration, input)
	}

	_, err := ParseDuration("soon")
	assert.Error(t, err)
}

func TestConfigGetters(t *testing.T) {
	c, err := gabs.ParseJSON([]byte(`{
		"bot": {"name": "codex", "empty": "", "shards": 2, "debug": true, "roles": ["a", 1, "b"], "interval": "1h", "broken": "later"}
	}`))
	require.NoError(t, err)

	assert.Equal(t, "codex", ConfigString(c, "bot.name", "x"))
	assert.Equal(t, "x", ConfigString(c, "bot.empty", "x"))
	assert.Equal(t, "x", ConfigString(c, "bot.missing", "x"))
	assert.Equal(t, 2, ConfigInt(c, "bot.shards", 1))
	assert.Equal(t, 1, ConfigInt(c, "bot.name", 1))
	assert.True(t, ConfigBool(c, "bot.debug", false))
	assert.Equal(t, []string{"a", "b"}, ConfigStrings(c, "bot.roles", nil))
	assert.Equal(t, time.Hour, ConfigDuration(c, "bot.interval", time.Minute))
	assert.Equal(t, time.Minute, ConfigDuration(c, "bot.broken", time.Minute))

	assert.Equal(t, "x", ConfigString(nil, "bot.name", "x"))
}
