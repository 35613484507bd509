package whitelist

import (
	"time"

	"github.com/Jeffail/gabs"
	"github.com/codexbot/codex/helpers"
)

// Config holds everything the whitelist plugin reads from config.json
type Config struct {
	RoleName        string
	RoleColor       int
	AgeRequirement  time.Duration
	CleanupInterval time.Duration
	StaffRoles      []string
	PageSize        int
	ReasonMinLength int
	ReasonMaxLength int
}

func DefaultConfig() Config {
	return Config{
		RoleName:        "Whitelisted New Member",
		RoleColor:       0x3498db,
		AgeRequirement:  90 * helpers.Day,
		CleanupInterval: time.Hour,
		StaffRoles:      []string{"admin", "moderator", "staff"},
		PageSize:        25,
		ReasonMinLength: 10,
		ReasonMaxLength: 500,
	}
}

// ConfigFromContainer reads the whitelist section of the config, missing keys keep their defaults
func ConfigFromContainer(c *gabs.Container) Config {
	config := DefaultConfig()

	config.RoleName = helpers.ConfigString(c, "whitelist.role_name", config.RoleName)
	config.RoleColor = helpers.ConfigInt(c, "whitelist.role_color", config.RoleColor)
	config.AgeRequirement = helpers.ConfigDuration(c, "whitelist.age_requirement", config.AgeRequirement)
	config.CleanupInterval = helpers.ConfigDuration(c, "whitelist.cleanup_interval", config.CleanupInterval)
	config.StaffRoles = helpers.ConfigStrings(c, "whitelist.staff_roles", config.StaffRoles)
	config.PageSize = helpers.ConfigInt(c, "whitelist.page_size", config.PageSize)
	config.ReasonMinLength = helpers.ConfigInt(c, "whitelist.reason_min_length", config.ReasonMinLength)
	config.ReasonMaxLength = helpers.ConfigInt(c, "whitelist.reason_max_length", config.ReasonMaxLength)

	if config.PageSize <= 0 || config.PageSize > 25 {
		config.PageSize = 25
	}
	if config.CleanupInterval <= 0 {
		config.CleanupInterval = time.Hour
	}

	return config
}

// AgeRequirementDays is the threshold in whole days, used in messages
func (c Config) AgeRequirementDays() int {
	return helpers.AgeInDays(c.AgeRequirement)
}
