package helpers

import (
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/pkg/errors"
)

var snowflakeRegex = regexp.MustCompile(`^[0-9]{15,21}$`)

// HasPermission returns true if $permissions contains $bit or administrator
func HasPermission(permissions int64, bit int64) bool {
	if permissions&discordgo.PermissionAdministrator == discordgo.PermissionAdministrator {
		return true
	}

	return permissions&bit == bit
}

// HasStaffRole checks if one of $memberRoleIDs resolves to a role whose lowercase name is in $staffNames
func HasStaffRole(memberRoleIDs []string, guildRoles []*discordgo.Role, staffNames []string) bool {
	if len(memberRoleIDs) == 0 || len(staffNames) == 0 {
		return false
	}

	names := make(map[string]bool, len(staffNames))
	for _, name := range staffNames {
		names[strings.ToLower(name)] = true
	}

	for _, role := range guildRoles {
		if role == nil || !names[strings.ToLower(role.Name)] {
			continue
		}
		for _, roleID := range memberRoleIDs {
			if roleID == role.ID {
				return true
			}
		}
	}

	return false
}

// DiscordErrorCode returns the JSON error code of a discord REST error or 0
func DiscordErrorCode(err error) int {
	if errD, ok := errors.Cause(err).(*discordgo.RESTError); ok && errD.Message != nil {
		return errD.Message.Code
	}

	return 0
}

// IsDiscordNotFound is true for 404s and unknown member / user / role errors
func IsDiscordNotFound(err error) bool {
	errD, ok := errors.Cause(err).(*discordgo.RESTError)
	if !ok {
		return false
	}

	if errD.Response != nil && errD.Response.StatusCode == http.StatusNotFound {
		return true
	}

	switch DiscordErrorCode(errD) {
	case discordgo.ErrCodeUnknownMember, discordgo.ErrCodeUnknownUser, discordgo.ErrCodeUnknownRole:
		return true
	}

	return false
}

// IsDiscordUnknownRole is true if discord does not know the role anymore
func IsDiscordUnknownRole(err error) bool {
	return DiscordErrorCode(err) == discordgo.ErrCodeUnknownRole
}

func IsSnowflake(id string) bool {
	return snowflakeRegex.MatchString(id)
}

// GetTimeFromSnowflake returns the creation time encoded in a discord ID
func GetTimeFromSnowflake(id string) time.Time {
	t, err := discordgo.SnowflakeTimestamp(id)
	if err != nil {
		return time.Time{}
	}

	return t.UTC()
}

func GetAvatarUrl(user *discordgo.User) string {
	if user == nil {
		return ""
	}

	return user.AvatarURL("128")
}
