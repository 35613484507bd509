package joining

import (
	"time"

	"github.com/Jeffail/gabs"
	"github.com/codexbot/codex/helpers"
)

// Config of the join gate and the welcome commands, the age threshold lives in whitelist.Config
type Config struct {
	WelcomeChannelID string
	RulesURL         string
	ChatURL          string
	KickDelay        time.Duration
	DMRateLimitAge   time.Duration
	DMMaxPerHour     int
	DMBlockDuration  time.Duration
	CommandCooldown  time.Duration
	StaffRoles       []string
}

func DefaultConfig() Config {
	return Config{
		KickDelay:       1200 * time.Millisecond,
		DMRateLimitAge:  30 * helpers.Day,
		DMMaxPerHour:    2,
		DMBlockDuration: 24 * time.Hour,
		CommandCooldown: 10 * time.Second,
		StaffRoles:      []string{"admin", "moderator", "staff", "welcome manager"},
	}
}

func ConfigFromContainer(c *gabs.Container) Config {
	config := DefaultConfig()

	config.WelcomeChannelID = helpers.ConfigString(c, "joining.welcome_channel_id", config.WelcomeChannelID)
	config.RulesURL = helpers.ConfigString(c, "joining.rules_url", config.RulesURL)
	config.ChatURL = helpers.ConfigString(c, "joining.chat_url", config.ChatURL)
	config.KickDelay = helpers.ConfigDuration(c, "joining.kick_delay", config.KickDelay)
	config.DMRateLimitAge = helpers.ConfigDuration(c, "joining.dm_rate_limit_age", config.DMRateLimitAge)
	config.DMMaxPerHour = helpers.ConfigInt(c, "joining.dm_max_per_hour", config.DMMaxPerHour)
	config.DMBlockDuration = helpers.ConfigDuration(c, "joining.dm_block_duration", config.DMBlockDuration)
	config.CommandCooldown = helpers.ConfigDuration(c, "joining.command_cooldown", config.CommandCooldown)
	config.StaffRoles = helpers.ConfigStrings(c, "joining.staff_roles", config.StaffRoles)

	return config
}
