package joining

import (
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/codexbot/codex/cache"
	"github.com/codexbot/codex/helpers"
	"github.com/codexbot/codex/modules/plugins/whitelist"
	"github.com/sirupsen/logrus"
)

const welcomeCommandName = "welcome"

type welcomeAction func(in *discordgo.InteractionCreate, out **discordgo.InteractionResponseData) welcomeAction

// Handler runs the join gate and the /welcome commands
type Handler struct {
	// Whitelist has to be initialized before this plugin
	Whitelist *whitelist.Handler

	session   Session
	whitelist Whitelist
	config    Config
	gate      *Gate
	welcomer  *Welcomer
	cooldown  *Cooldown
}

func (h *Handler) logger() *logrus.Entry {
	return cache.GetLogger().WithField("module", "joining")
}

func (h *Handler) Commands() []*discordgo.ApplicationCommand {
	dmPermission := false

	return []*discordgo.ApplicationCommand{
		{
			Name:         welcomeCommandName,
			Description:  "Welcome message tools",
			DMPermission: &dmPermission,
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "test",
					Description: "Post a test welcome message",
					Options: []*discordgo.ApplicationCommandOption{
						{
							Type:        discordgo.ApplicationCommandOptionUser,
							Name:        "member",
							Description: "Member to welcome, defaults to you",
						},
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "info",
					Description: "Show the welcome system configuration",
				},
			},
		},
	}
}

func (h *Handler) Init(session *helpers.Session) {
	config := ConfigFromContainer(helpers.GetConfig())
	client := cache.GetRedisClient()

	h.Setup(session, h.Whitelist.Service(), NewDMLimiter(client, config), NewCooldown(client, welcomeCommandName, config.CommandCooldown), config)
}

// Setup wires the plugin, a nil limiter or cooldown disables them
func (h *Handler) Setup(session Session, whitelist Whitelist, limiter *DMLimiter, cooldown *Cooldown, config Config) {
	h.session = session
	h.whitelist = whitelist
	h.config = config
	h.welcomer = NewWelcomer(session, config)
	h.gate = NewGate(session, whitelist, limiter, h.welcomer, config)
	h.cooldown = cooldown
}

func (h *Handler) Uninit(session *helpers.Session) {
}

func (h *Handler) Gate() *Gate {
	return h.gate
}

func (h *Handler) OnGuildMemberAdd(member *discordgo.Member, session *helpers.Session) {
	defer helpers.Recover()

	if h.gate == nil {
		return
	}

	h.gate.HandleJoin(member)
}

func (h *Handler) Action(command string, in *discordgo.InteractionCreate, session *helpers.Session) {
	defer helpers.Recover()

	var action welcomeAction
	switch in.Type {
	case discordgo.InteractionApplicationCommand:
		action = h.actionStart
	case discordgo.InteractionMessageComponent:
		action = h.actionComponent
	default:
		return
	}

	var result *discordgo.InteractionResponseData

	for action != nil {
		action = action(in, &result)
	}
}

func (h *Handler) actionStart(in *discordgo.InteractionCreate, out **discordgo.InteractionResponseData) welcomeAction {
	if !h.authorized(in) {
		*out = h.newMsg(helpers.GetText("plugins.joining.permission-denied"))
		return h.actionFinish
	}

	data := in.ApplicationCommandData()
	if len(data.Options) == 0 {
		return nil
	}

	switch data.Options[0].Name {
	case "test":
		return h.actionTest
	case "info":
		return h.actionInfo
	}

	return nil
}

// /welcome test [member]
func (h *Handler) actionTest(in *discordgo.InteractionCreate, out **discordgo.InteractionResponseData) welcomeAction {
	if h.cooldown != nil {
		ok, left, err := h.cooldown.Take(in.Member.User.ID)
		if err != nil {
			h.logger().WithError(err).Warn("unable to check welcome cooldown")
		} else if !ok {
			*out = h.newMsg(helpers.GetTextF("plugins.joining.cooldown", left.String()))
			return h.actionFinish
		}
	}

	if h.config.WelcomeChannelID == "" {
		*out = h.newMsg(helpers.GetText("plugins.joining.test-no-channel"))
		return h.actionFinish
	}

	member := testTarget(in)

	err := h.welcomer.Send(member)
	if err != nil {
		h.logger().WithError(err).Error("unable to send test welcome message")
		*out = h.newMsg(helpers.GetText("bot.errors.general"))
		return h.actionFinish
	}

	*out = h.newMsg(helpers.GetTextF("plugins.joining.test-sent", member.User.Mention()))
	return h.actionFinish
}

// /welcome info
func (h *Handler) actionInfo(in *discordgo.InteractionCreate, out **discordgo.InteractionResponseData) welcomeAction {
	channel := helpers.GetText("plugins.joining.info-channel-unset")
	if h.config.WelcomeChannelID != "" {
		channel = fmt.Sprintf("<#%s>", h.config.WelcomeChannelID)
	}

	*out = &discordgo.InteractionResponseData{
		Flags: discordgo.MessageFlagsEphemeral,
		Embeds: []*discordgo.MessageEmbed{
			{
				Title: helpers.GetText("plugins.joining.info-title"),
				Color: welcomeColor,
				Fields: []*discordgo.MessageEmbedField{
					{Name: helpers.GetText("plugins.joining.info-channel"), Value: channel, Inline: true},
					{
						Name:   helpers.GetText("plugins.joining.info-age"),
						Value:  helpers.GetTextF("plugins.joining.info-age-value", h.whitelist.Config().AgeRequirementDays()),
						Inline: true,
					},
					{Name: helpers.GetText("plugins.joining.info-commands"), Value: helpers.GetText("plugins.joining.info-commands-value")},
					{Name: helpers.GetText("plugins.joining.info-permissions"), Value: helpers.GetText("plugins.joining.info-permissions-value")},
				},
				Footer: &discordgo.MessageEmbedFooter{Text: "Requested by " + in.Member.User.Username},
			},
		},
	}
	return h.actionFinish
}

// welcome message buttons, open to every member
func (h *Handler) actionComponent(in *discordgo.InteractionCreate, out **discordgo.InteractionResponseData) welcomeAction {
	switch in.MessageComponentData().CustomID {
	case serverInfoCustomID:
		return h.actionServerInfo
	case channelsInfoCustomID:
		return h.actionChannelsInfo
	}

	return nil
}

func (h *Handler) actionServerInfo(in *discordgo.InteractionCreate, out **discordgo.InteractionResponseData) welcomeAction {
	guild, ok := h.session.CachedGuild(in.GuildID)
	if !ok {
		*out = h.newMsg(helpers.GetText("plugins.joining.guild-unavailable"))
		return h.actionFinish
	}

	*out = &discordgo.InteractionResponseData{
		Flags:  discordgo.MessageFlagsEphemeral,
		Embeds: []*discordgo.MessageEmbed{serverInfoEmbed(guild, time.Now())},
	}
	return h.actionFinish
}

func (h *Handler) actionChannelsInfo(in *discordgo.InteractionCreate, out **discordgo.InteractionResponseData) welcomeAction {
	guild, ok := h.session.CachedGuild(in.GuildID)
	if !ok {
		*out = h.newMsg(helpers.GetText("plugins.joining.guild-unavailable"))
		return h.actionFinish
	}

	*out = &discordgo.InteractionResponseData{
		Flags:  discordgo.MessageFlagsEphemeral,
		Embeds: []*discordgo.MessageEmbed{channelsInfoEmbed(guild)},
	}
	return h.actionFinish
}

func (h *Handler) actionFinish(in *discordgo.InteractionCreate, out **discordgo.InteractionResponseData) welcomeAction {
	err := h.session.InteractionRespond(in.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: *out,
	})
	helpers.RelaxLog(err, "unable to respond to welcome interaction")

	return nil
}

func (h *Handler) newMsg(content string) *discordgo.InteractionResponseData {
	return &discordgo.InteractionResponseData{
		Content: content,
		Flags:   discordgo.MessageFlagsEphemeral,
	}
}

func (h *Handler) authorized(in *discordgo.InteractionCreate) bool {
	if in.Member == nil || in.Member.User == nil {
		return false
	}

	if helpers.HasPermission(in.Member.Permissions, discordgo.PermissionManageMessages) {
		return true
	}

	if len(in.Member.Roles) == 0 {
		return false
	}

	roles, err := h.session.GuildRoles(in.GuildID)
	if err != nil {
		h.logger().WithError(err).Warn("unable to fetch guild roles for permission check")
		return false
	}

	return helpers.HasStaffRole(in.Member.Roles, roles, h.config.StaffRoles)
}

// testTarget is the member from the options or the invoker
func testTarget(in *discordgo.InteractionCreate) *discordgo.Member {
	data := in.ApplicationCommandData()

	for _, option := range data.Options[0].Options {
		if option.Name != "member" || data.Resolved == nil {
			continue
		}

		userID, _ := option.Value.(string)
		user, ok := data.Resolved.Users[userID]
		if !ok {
			continue
		}

		member := &discordgo.Member{GuildID: in.GuildID, User: user}
		if resolved, ok := data.Resolved.Members[userID]; ok {
			member.Nick = resolved.Nick
			member.Roles = resolved.Roles
		}
		return member
	}

	return in.Member
}
