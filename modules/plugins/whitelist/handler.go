package whitelist

import (
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/codexbot/codex/cache"
	"github.com/codexbot/codex/helpers"
	"github.com/sirupsen/logrus"
)

const (
	commandName        = "whitelist"
	modalAddPrefix     = "whitelist:add:"
	modalReasonInputID = "reason"
)

type whitelistAction func(in *discordgo.InteractionCreate, out **discordgo.MessageEmbed) whitelistAction

// Handler is the /whitelist plugin, it also owns the cleanup loop
type Handler struct {
	session Session
	config  Config
	service *Service
	cleaner *Cleaner
	done    chan struct{}
}

func (h *Handler) logger() *logrus.Entry {
	return cache.GetLogger().WithField("module", "whitelist")
}

func (h *Handler) Commands() []*discordgo.ApplicationCommand {
	dmPermission := false
	userOption := &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionString,
		Name:        "user",
		Description: "User ID, mention or exact username",
		Required:    true,
	}

	return []*discordgo.ApplicationCommand{
		{
			Name:         commandName,
			Description:  "Manage member whitelist for age restrictions",
			DMPermission: &dmPermission,
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "add",
					Description: "Add a member to the whitelist (use User ID or exact username)",
					Options: []*discordgo.ApplicationCommandOption{
						userOption,
						{
							Type:        discordgo.ApplicationCommandOptionString,
							Name:        "reason",
							Description: "Why this account may bypass the age requirement",
							MaxLength:   500,
						},
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "remove",
					Description: "Remove a member from the whitelist",
					Options:     []*discordgo.ApplicationCommandOption{userOption},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "list",
					Description: "List all whitelisted members",
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "check",
					Description: "Check if a member is whitelisted",
					Options:     []*discordgo.ApplicationCommandOption{userOption},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "history",
					Description: "Show every whitelist entry of a member, including removed ones",
					Options:     []*discordgo.ApplicationCommandOption{userOption},
				},
			},
		},
	}
}

func (h *Handler) Init(session *helpers.Session) {
	store := NewMongoStore()
	err := store.EnsureIndexes()
	helpers.RelaxLog(err, "unable to ensure whitelist indexes")

	h.Setup(session, store, ConfigFromContainer(helpers.GetConfig()), NewRedisRoleIDCache(cache.GetRedisCacheCodec()))

	go h.cleaner.Loop(h.done)
	h.logger().Infof("Started whitelist cleanup loop (%s)", h.config.CleanupInterval.String())
}

// Setup wires the plugin without starting the cleanup loop
func (h *Handler) Setup(session Session, store Store, config Config, roleCache RoleIDCache) {
	roles := NewRoleManager(session, store, config, roleCache)

	h.session = session
	h.config = config
	h.service = NewService(session, store, roles, config)
	h.cleaner = NewCleaner(session, store, roles, config)
	h.done = make(chan struct{})
}

func (h *Handler) Uninit(session *helpers.Session) {
	if h.done != nil {
		close(h.done)
		h.done = nil
	}
}

// Service is shared with the join gate
func (h *Handler) Service() *Service {
	return h.service
}

func (h *Handler) Cleaner() *Cleaner {
	return h.cleaner
}

func (h *Handler) Action(command string, in *discordgo.InteractionCreate, session *helpers.Session) {
	defer helpers.Recover()

	var result *discordgo.MessageEmbed

	action := h.actionStart
	for action != nil {
		action = action(in, &result)
	}
}

func (h *Handler) actionStart(in *discordgo.InteractionCreate, out **discordgo.MessageEmbed) whitelistAction {
	switch in.Type {
	case discordgo.InteractionModalSubmit:
		if !strings.HasPrefix(in.ModalSubmitData().CustomID, modalAddPrefix) {
			return nil
		}
		if !h.deferReply(in) {
			return nil
		}
		return h.actionAddModal
	case discordgo.InteractionApplicationCommand:
	default:
		return nil
	}

	subcommand, options := subcommandOptions(in.ApplicationCommandData())

	if subcommand == "add" && strings.TrimSpace(options["reason"]) == "" {
		return h.actionAddPrompt
	}

	if !h.deferReply(in) {
		return nil
	}

	switch subcommand {
	case "add":
		return h.actionAdd
	case "remove":
		return h.actionRemove
	case "list":
		return h.actionList
	case "check":
		return h.actionCheck
	case "history":
		return h.actionHistory
	}

	return nil
}

// /whitelist add <user> without a reason, asks for it in a modal
func (h *Handler) actionAddPrompt(in *discordgo.InteractionCreate, out **discordgo.MessageEmbed) whitelistAction {
	_, options := subcommandOptions(in.ApplicationCommandData())

	err := h.service.Authorize(in.GuildID, ActorFromInteraction(in.Interaction))
	if err != nil {
		*out = errorEmbed(err, options["user"], h.config)
		return h.actionReply
	}

	// the identifier travels in the modal custom id, which is limited to 100 characters
	if len(modalAddPrefix+options["user"]) > 100 {
		*out = errorEmbed(ErrUserNotFound, options["user"], h.config)
		return h.actionReply
	}

	err = h.session.InteractionRespond(in.Interaction, reasonModal(options["user"], h.config))
	if err != nil {
		h.logger().WithError(err).Error("unable to open whitelist reason modal")
	}
	return nil
}

// /whitelist add <user> <reason>
func (h *Handler) actionAdd(in *discordgo.InteractionCreate, out **discordgo.MessageEmbed) whitelistAction {
	_, options := subcommandOptions(in.ApplicationCommandData())

	return h.add(in, out, options["user"], options["reason"])
}

func (h *Handler) actionAddModal(in *discordgo.InteractionCreate, out **discordgo.MessageEmbed) whitelistAction {
	data := in.ModalSubmitData()
	user := strings.TrimPrefix(data.CustomID, modalAddPrefix)

	return h.add(in, out, user, modalValue(data, modalReasonInputID))
}

func (h *Handler) add(in *discordgo.InteractionCreate, out **discordgo.MessageEmbed, user, reason string) whitelistAction {
	actor := ActorFromInteraction(in.Interaction)

	result, err := h.service.Add(in.GuildID, actor, user, reason)
	if err != nil {
		*out = h.failed(err, user)
		return h.actionFinish
	}

	*out = addEmbed(result, actor, h.config)
	return h.actionFinish
}

// /whitelist remove <user>
func (h *Handler) actionRemove(in *discordgo.InteractionCreate, out **discordgo.MessageEmbed) whitelistAction {
	_, options := subcommandOptions(in.ApplicationCommandData())
	actor := ActorFromInteraction(in.Interaction)

	result, err := h.service.Remove(in.GuildID, actor, options["user"])
	if err != nil {
		*out = h.failed(err, options["user"])
		return h.actionFinish
	}

	*out = removeEmbed(result, actor)
	return h.actionFinish
}

// /whitelist list
func (h *Handler) actionList(in *discordgo.InteractionCreate, out **discordgo.MessageEmbed) whitelistAction {
	result, err := h.service.List(in.GuildID, ActorFromInteraction(in.Interaction))
	if err != nil {
		*out = h.failed(err, "")
		return h.actionFinish
	}

	*out = listEmbed(result)
	return h.actionFinish
}

// /whitelist check <user>
func (h *Handler) actionCheck(in *discordgo.InteractionCreate, out **discordgo.MessageEmbed) whitelistAction {
	_, options := subcommandOptions(in.ApplicationCommandData())

	result, err := h.service.Check(in.GuildID, ActorFromInteraction(in.Interaction), options["user"])
	if err != nil {
		*out = h.failed(err, options["user"])
		return h.actionFinish
	}

	*out = checkEmbed(result)
	return h.actionFinish
}

// /whitelist history <user>
func (h *Handler) actionHistory(in *discordgo.InteractionCreate, out **discordgo.MessageEmbed) whitelistAction {
	_, options := subcommandOptions(in.ApplicationCommandData())

	result, err := h.service.History(in.GuildID, ActorFromInteraction(in.Interaction), options["user"])
	if err != nil {
		*out = h.failed(err, options["user"])
		return h.actionFinish
	}

	*out = historyEmbed(result)
	return h.actionFinish
}

// actionFinish replaces the deferred reply with the result
func (h *Handler) actionFinish(in *discordgo.InteractionCreate, out **discordgo.MessageEmbed) whitelistAction {
	if *out == nil {
		return nil
	}

	embeds := []*discordgo.MessageEmbed{*out}
	_, err := h.session.InteractionResponseEdit(in.Interaction, &discordgo.WebhookEdit{Embeds: &embeds})
	helpers.RelaxLog(err, "unable to edit whitelist interaction response")

	return nil
}

// actionReply answers an interaction that was not deferred
func (h *Handler) actionReply(in *discordgo.InteractionCreate, out **discordgo.MessageEmbed) whitelistAction {
	if *out == nil {
		return nil
	}

	err := h.session.InteractionRespond(in.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds: []*discordgo.MessageEmbed{*out},
			Flags:  discordgo.MessageFlagsEphemeral,
		},
	})
	helpers.RelaxLog(err, "unable to respond to whitelist interaction")

	return nil
}

func (h *Handler) deferReply(in *discordgo.InteractionCreate) bool {
	err := h.session.InteractionRespond(in.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Flags: discordgo.MessageFlagsEphemeral,
		},
	})
	if err != nil {
		h.logger().WithError(err).Error("unable to defer whitelist interaction")
		return false
	}
	return true
}

// failed logs unexpected errors and turns every error into a red embed
func (h *Handler) failed(err error, input string) *discordgo.MessageEmbed {
	if !IsUserFacing(err) {
		h.logger().WithError(err).Error("whitelist command failed")
	}
	return errorEmbed(err, input, h.config)
}

// subcommandOptions returns the subcommand name and its string options
func subcommandOptions(data discordgo.ApplicationCommandInteractionData) (string, map[string]string) {
	values := make(map[string]string)
	if len(data.Options) == 0 {
		return "", values
	}

	subcommand := data.Options[0]
	for _, option := range subcommand.Options {
		if value, ok := option.Value.(string); ok {
			values[option.Name] = strings.TrimSpace(value)
		}
	}

	return subcommand.Name, values
}

func reasonModal(user string, config Config) *discordgo.InteractionResponse {
	return &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseModal,
		Data: &discordgo.InteractionResponseData{
			CustomID: modalAddPrefix + user,
			Title:    helpers.GetText("plugins.whitelist.modal-title"),
			Components: []discordgo.MessageComponent{
				discordgo.ActionsRow{
					Components: []discordgo.MessageComponent{
						discordgo.TextInput{
							CustomID:    modalReasonInputID,
							Label:       helpers.GetText("plugins.whitelist.modal-reason-label"),
							Style:       discordgo.TextInputParagraph,
							Placeholder: helpers.GetText("plugins.whitelist.modal-reason-placeholder"),
							Required:    true,
							MinLength:   config.ReasonMinLength,
							MaxLength:   config.ReasonMaxLength,
						},
					},
				},
			},
		},
	}
}

func modalValue(data discordgo.ModalSubmitInteractionData, customID string) string {
	for _, component := range data.Components {
		row, ok := component.(*discordgo.ActionsRow)
		if !ok {
			continue
		}
		for _, rowComponent := range row.Components {
			if input, ok := rowComponent.(*discordgo.TextInput); ok && input.CustomID == customID {
				return input.Value
			}
		}
	}
	return ""
}
