package whitelist

import (
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/codexbot/codex/helpers"
	"github.com/codexbot/codex/models"
	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
)

const (
	colorSuccess = 0x2ecc71
	colorError   = 0xe74c3c
	colorInfo    = 0x3498db
	colorWarning = 0xf1c40f

	listReasonLength = 100
)

func truncate(text string, length int) string {
	runes := []rune(text)
	if len(runes) <= length {
		return text
	}
	return string(runes[:length]) + "..."
}

func timestamp(t time.Time) string {
	return fmt.Sprintf("<t:%d:R>", t.Unix())
}

func newEmbed(title, description string, color int) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       title,
		Description: description,
		Color:       color,
		Timestamp:   time.Now().UTC().Format(time.RFC3339),
	}
}

func withActor(embed *discordgo.MessageEmbed, actor Actor) *discordgo.MessageEmbed {
	if actor.Username != "" {
		embed.Footer = &discordgo.MessageEmbedFooter{Text: helpers.GetTextF("plugins.whitelist.footer-action-by", actor.Username)}
	}
	return embed
}

func roleWarning(embed *discordgo.MessageEmbed, roleErr error) *discordgo.MessageEmbed {
	if roleErr == nil {
		return embed
	}
	embed.Color = colorWarning
	embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
		Name:  helpers.GetText("plugins.whitelist.role-warning-field"),
		Value: helpers.GetText("plugins.whitelist.role-warning"),
	})
	return embed
}

// errorEmbed renders errors as red embeds, unknown errors get a generic message
func errorEmbed(err error, input string, config Config) *discordgo.MessageEmbed {
	switch errors.Cause(err) {
	case ErrUserNotFound:
		return newEmbed(helpers.GetText("plugins.whitelist.user-not-found-title"),
			helpers.GetTextF("plugins.whitelist.user-not-found-description", input), colorError)
	case ErrPermissionDenied:
		return newEmbed(helpers.GetText("plugins.whitelist.permission-denied-title"),
			helpers.GetText("plugins.whitelist.permission-denied-description"), colorError)
	case ErrInvalidReason:
		return newEmbed(helpers.GetText("plugins.whitelist.invalid-reason-title"),
			helpers.GetTextF("plugins.whitelist.invalid-reason-description", config.ReasonMinLength, config.ReasonMaxLength), colorError)
	case ErrDuplicateActiveEntry:
		return newEmbed(helpers.GetText("plugins.whitelist.duplicate-title"),
			helpers.GetTextF("plugins.whitelist.duplicate-description", input), colorError)
	case ErrBotAccount:
		return newEmbed(helpers.GetText("plugins.whitelist.bot-account-title"),
			helpers.GetText("plugins.whitelist.bot-account-description"), colorError)
	case ErrDatabaseUnavailable:
		return newEmbed(helpers.GetText("plugins.whitelist.error-title"),
			helpers.GetText("bot.errors.database"), colorError)
	}

	return newEmbed(helpers.GetText("plugins.whitelist.error-title"), helpers.GetText("bot.errors.general"), colorError)
}

func addEmbed(result *AddResult, actor Actor, config Config) *discordgo.MessageEmbed {
	embed := newEmbed(helpers.GetText("plugins.whitelist.add-success-title"),
		helpers.GetTextF("plugins.whitelist.add-success-description", result.Entry.Username, result.Entry.UserID), colorSuccess)

	details := fmt.Sprintf("**Account age:** %s days (requirement: %d days)\n**Reason:** %s",
		humanize.Comma(int64(result.Entry.AccountAgeAtJoin)), config.AgeRequirementDays(), result.Entry.Reason)
	if result.Entry.RoleAssigned && result.RoleErr != nil {
		details += fmt.Sprintf("\n**Role:** %s pending", config.RoleName)
	} else if result.Entry.RoleAssigned {
		details += fmt.Sprintf("\n**Role:** ✅ %s assigned", config.RoleName)
	} else if result.User != nil && !result.User.InGuild() {
		details += "\n**Role:** not in the server yet, assigned on join"
	}
	embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{Name: "Details", Value: details})

	return roleWarning(withActor(embed, actor), result.RoleErr)
}

func removeEmbed(result *RemoveResult, actor Actor) *discordgo.MessageEmbed {
	var embed *discordgo.MessageEmbed
	if result.Deactivated {
		embed = newEmbed(helpers.GetText("plugins.whitelist.remove-success-title"),
			helpers.GetTextF("plugins.whitelist.remove-success-description", result.Target.Username), colorSuccess)
	} else {
		embed = newEmbed(helpers.GetText("plugins.whitelist.not-whitelisted-title"),
			helpers.GetTextF("plugins.whitelist.not-whitelisted-description", result.Target.Username, result.Target.UserID), colorInfo)
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:  helpers.GetText("plugins.whitelist.role-warning-field"),
			Value: helpers.GetText("plugins.whitelist.remove-no-entry-role"),
		})
	}

	return roleWarning(withActor(embed, actor), result.RoleErr)
}

func entryFieldValue(entry models.WhitelistEntry) string {
	role := "❌ Not assigned"
	if entry.RoleAssigned {
		role = "✅ Assigned"
	}

	reason := entry.Reason
	if reason == "" {
		reason = "No reason provided"
	}

	return fmt.Sprintf("**ID:** `%s`\n**Added by:** <@%s>\n**Date:** %s\n**Role:** %s\n**Reason:** %s",
		entry.UserID, entry.AddedBy, timestamp(entry.AddedAt), role, truncate(reason, listReasonLength))
}

func listEmbed(result *ListResult) *discordgo.MessageEmbed {
	if result.Total == 0 || len(result.Entries) == 0 {
		return newEmbed(helpers.GetText("plugins.whitelist.list-empty-title"),
			helpers.GetText("plugins.whitelist.list-empty-description"), colorInfo)
	}

	embed := newEmbed(helpers.GetTextF("plugins.whitelist.list-title", result.Total), "", colorInfo)
	for i, entry := range result.Entries {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:  fmt.Sprintf("%d. %s", i+1, entry.Username),
			Value: entryFieldValue(entry),
		})
	}

	if result.Total > len(result.Entries) {
		embed.Footer = &discordgo.MessageEmbedFooter{
			Text: helpers.GetTextF("plugins.whitelist.list-footer", len(result.Entries), result.Total),
		}
	}

	return embed
}

func checkEmbed(result *CheckResult) *discordgo.MessageEmbed {
	if result.Entry == nil {
		return newEmbed(helpers.GetText("plugins.whitelist.not-whitelisted-title"),
			helpers.GetTextF("plugins.whitelist.not-whitelisted-description", result.Target.Username, result.Target.UserID), colorError)
	}

	embed := newEmbed(helpers.GetText("plugins.whitelist.whitelisted-title"),
		helpers.GetTextF("plugins.whitelist.whitelisted-description", result.Entry.Username, result.Entry.UserID), colorSuccess)
	embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
		Name:  "Details",
		Value: entryFieldValue(*result.Entry),
	})
	embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
		Name:   "Added",
		Value:  humanize.Time(result.Entry.AddedAt),
		Inline: true,
	})
	embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
		Name:   "Account age when added",
		Value:  fmt.Sprintf("%d days", result.Entry.AccountAgeAtJoin),
		Inline: true,
	})

	return embed
}

func historyEmbed(result *HistoryResult) *discordgo.MessageEmbed {
	name := result.Target.Username
	if name == "" {
		name = result.Target.UserID
	}

	if len(result.Entries) == 0 {
		return newEmbed(helpers.GetTextF("plugins.whitelist.history-title", name),
			helpers.GetTextF("plugins.whitelist.history-empty", name, result.Target.UserID), colorInfo)
	}

	embed := newEmbed(helpers.GetTextF("plugins.whitelist.history-title", name), "", colorInfo)
	for i, entry := range result.Entries {
		if i >= 25 {
			embed.Footer = &discordgo.MessageEmbedFooter{
				Text: helpers.GetTextF("plugins.whitelist.list-footer", 25, len(result.Entries)),
			}
			break
		}

		lines := []string{entryFieldValue(entry)}
		if entry.IsActive {
			lines = append(lines, "**Status:** 🟢 Active")
		} else {
			status := "**Status:** 🔴 Removed"
			if !entry.RemovedAt.IsZero() {
				status += " " + timestamp(entry.RemovedAt)
			}
			if entry.RemovedBy != "" {
				status += fmt.Sprintf(" by <@%s>", entry.RemovedBy)
			}
			lines = append(lines, status)
		}
		if entry.RoleRemovedReason != "" {
			lines = append(lines, fmt.Sprintf("**Role removed:** %s", strings.Replace(entry.RoleRemovedReason, "_", " ", -1)))
		}

		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:  fmt.Sprintf("%d. %s", i+1, humanize.Time(entry.AddedAt)),
			Value: strings.Join(lines, "\n"),
		})
	}

	return embed
}

// agedOutMessage is the DM sent when the cleanup takes the role away
func agedOutMessage(ageDays int, roleName string) *discordgo.MessageSend {
	return &discordgo.MessageSend{
		Embeds: []*discordgo.MessageEmbed{
			newEmbed(helpers.GetText("plugins.whitelist.aged-out-dm-title"),
				helpers.GetTextF("plugins.whitelist.aged-out-dm-description", ageDays, roleName), colorSuccess),
		},
	}
}
