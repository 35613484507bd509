package whitelist

import (
	"github.com/bwmarrin/discordgo"
	"github.com/codexbot/codex/helpers"
)

// Session is the part of the discord session the whitelist plugin uses, *helpers.Session implements it
type Session interface {
	helpers.DirectMessenger

	CachedMember(guildID, userID string) (*discordgo.Member, bool)
	CachedMembers(guildID string) []*discordgo.Member

	GuildMember(guildID, userID string, options ...discordgo.RequestOption) (*discordgo.Member, error)
	GuildMembersSearch(guildID, query string, limit int, options ...discordgo.RequestOption) ([]*discordgo.Member, error)
	User(userID string, options ...discordgo.RequestOption) (*discordgo.User, error)

	GuildRoles(guildID string, options ...discordgo.RequestOption) ([]*discordgo.Role, error)
	GuildRoleCreate(guildID string, data *discordgo.RoleParams, options ...discordgo.RequestOption) (*discordgo.Role, error)
	GuildMemberRoleAdd(guildID, userID, roleID string, options ...discordgo.RequestOption) error
	GuildMemberRoleRemove(guildID, userID, roleID string, options ...discordgo.RequestOption) error

	InteractionRespond(interaction *discordgo.Interaction, resp *discordgo.InteractionResponse, options ...discordgo.RequestOption) error
	InteractionResponseEdit(interaction *discordgo.Interaction, newresp *discordgo.WebhookEdit, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

var _ Session = (*helpers.Session)(nil)
