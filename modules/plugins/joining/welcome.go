package joining

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/codexbot/codex/helpers"
	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
)

var ErrNoWelcomeChannel = errors.New("no welcome channel configured")

const (
	welcomeColor  = 0x5865f2
	infoColor     = 0x3498db
	channelsColor = 0x2ecc71

	serverInfoCustomID   = welcomeCommandName + ":server_info"
	channelsInfoCustomID = welcomeCommandName + ":channels_info"

	maxListedCategories = 10
)

type welcomeSession interface {
	ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, options ...discordgo.RequestOption) (*discordgo.Message, error)
	CachedGuild(guildID string) (*discordgo.Guild, bool)
}

// Welcomer posts the welcome embed into the welcome channel
type Welcomer struct {
	session welcomeSession
	config  Config
}

func NewWelcomer(session welcomeSession, config Config) *Welcomer {
	return &Welcomer{session: session, config: config}
}

func displayName(member *discordgo.Member) string {
	if member.Nick != "" {
		return member.Nick
	}
	if member.User.GlobalName != "" {
		return member.User.GlobalName
	}
	return member.User.Username
}

// humanMembers counts the non-bot members the state knows of
func humanMembers(guild *discordgo.Guild) int {
	var count int
	for _, member := range guild.Members {
		if member != nil && member.User != nil && !member.User.Bot {
			count++
		}
	}
	return count
}

func (w *Welcomer) Message(member *discordgo.Member) *discordgo.MessageSend {
	description := helpers.GetTextF("plugins.joining.welcome", member.User.Mention())
	if guild, ok := w.session.CachedGuild(member.GuildID); ok {
		if count := humanMembers(guild); count > 0 {
			description += "\n" + helpers.GetTextF("plugins.joining.member-number", humanize.Comma(int64(count)))
		}
	}

	buttons := make([]discordgo.MessageComponent, 0, 4)
	if w.config.RulesURL != "" {
		buttons = append(buttons, discordgo.Button{
			Label: helpers.GetText("plugins.joining.rules-button"),
			Style: discordgo.LinkButton,
			URL:   w.config.RulesURL,
		})
	}
	if w.config.ChatURL != "" {
		buttons = append(buttons, discordgo.Button{
			Label: helpers.GetText("plugins.joining.chat-button"),
			Style: discordgo.LinkButton,
			URL:   w.config.ChatURL,
		})
	}
	buttons = append(buttons,
		discordgo.Button{
			Label:    helpers.GetText("plugins.joining.server-info-button"),
			Style:    discordgo.SecondaryButton,
			CustomID: serverInfoCustomID,
		},
		discordgo.Button{
			Label:    helpers.GetText("plugins.joining.channels-info-button"),
			Style:    discordgo.SecondaryButton,
			CustomID: channelsInfoCustomID,
		},
	)

	return &discordgo.MessageSend{
		Content: member.User.Mention(),
		Embeds: []*discordgo.MessageEmbed{
			{
				Title:       helpers.GetTextF("plugins.joining.welcome-title", displayName(member)),
				Description: description,
				Color:       welcomeColor,
				Thumbnail:   &discordgo.MessageEmbedThumbnail{URL: helpers.GetAvatarUrl(member.User)},
			},
		},
		Components: []discordgo.MessageComponent{
			discordgo.ActionsRow{Components: buttons},
		},
	}
}

func (w *Welcomer) Send(member *discordgo.Member) error {
	if w.config.WelcomeChannelID == "" {
		return ErrNoWelcomeChannel
	}

	_, err := w.session.ChannelMessageSendComplex(w.config.WelcomeChannelID, w.Message(member))
	return errors.Wrap(err, "unable to send welcome message")
}

func countChannels(channels []*discordgo.Channel, kind discordgo.ChannelType, uncategorizedOnly bool) int {
	var count int
	for _, channel := range channels {
		if channel.Type != kind {
			continue
		}
		if uncategorizedOnly && channel.ParentID != "" {
			continue
		}
		count++
	}
	return count
}

// serverInfoEmbed is the answer to the server info button
func serverInfoEmbed(guild *discordgo.Guild, now time.Time) *discordgo.MessageEmbed {
	roles := len(guild.Roles) - 1 // @everyone
	if roles < 0 {
		roles = 0
	}

	embed := &discordgo.MessageEmbed{
		Title: helpers.GetTextF("plugins.joining.server-info-title", guild.Name),
		Color: infoColor,
		Fields: []*discordgo.MessageEmbedField{
			{
				Name: helpers.GetText("plugins.joining.server-info-stats"),
				Value: fmt.Sprintf("**Members:** %s\n**Created:** <t:%d:F>\n**Server ID:** %s",
					humanize.Comma(int64(guild.MemberCount)), helpers.GetTimeFromSnowflake(guild.ID).Unix(), guild.ID),
			},
			{
				Name: helpers.GetText("plugins.joining.server-info-channels"),
				Value: fmt.Sprintf("**Text:** %d\n**Voice:** %d",
					countChannels(guild.Channels, discordgo.ChannelTypeGuildText, false),
					countChannels(guild.Channels, discordgo.ChannelTypeGuildVoice, false)),
				Inline: true,
			},
			{
				Name:   helpers.GetText("plugins.joining.server-info-roles"),
				Value:  fmt.Sprintf("**Total:** %d", roles),
				Inline: true,
			},
		},
		Footer:    &discordgo.MessageEmbedFooter{Text: helpers.GetText("plugins.joining.server-info-footer")},
		Timestamp: now.UTC().Format(time.RFC3339),
	}

	if icon := guild.IconURL(""); icon != "" {
		embed.Thumbnail = &discordgo.MessageEmbedThumbnail{URL: icon}
	}

	if guild.PremiumTier > discordgo.PremiumTierNone {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:   helpers.GetText("plugins.joining.server-info-boost"),
			Value:  fmt.Sprintf("**Level %d**\n**Boosts:** %d", guild.PremiumTier, guild.PremiumSubscriptionCount),
			Inline: true,
		})
	}

	return embed
}

// channelsInfoEmbed is the answer to the channels button, categories are listed in sidebar order
func channelsInfoEmbed(guild *discordgo.Guild) *discordgo.MessageEmbed {
	categories := make([]*discordgo.Channel, 0)
	children := make(map[string]int)
	for _, channel := range guild.Channels {
		if channel.Type == discordgo.ChannelTypeGuildCategory {
			categories = append(categories, channel)
			continue
		}
		if channel.ParentID != "" {
			children[channel.ParentID]++
		}
	}
	sort.SliceStable(categories, func(i, j int) bool {
		return categories[i].Position < categories[j].Position
	})

	embed := &discordgo.MessageEmbed{
		Title:  helpers.GetTextF("plugins.joining.channels-info-title", guild.Name),
		Color:  channelsColor,
		Footer: &discordgo.MessageEmbedFooter{Text: helpers.GetText("plugins.joining.channels-info-footer")},
	}

	if len(categories) > 0 {
		lines := make([]string, 0, maxListedCategories)
		for i, category := range categories {
			if i >= maxListedCategories {
				break
			}
			lines = append(lines, fmt.Sprintf("📁 **%s** (%d channels)", category.Name, children[category.ID]))
		}
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:  helpers.GetText("plugins.joining.channels-info-categories"),
			Value: strings.Join(lines, "\n"),
		})
	}

	if text := countChannels(guild.Channels, discordgo.ChannelTypeGuildText, true); text > 0 {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:   helpers.GetText("plugins.joining.channels-info-uncategorized-text"),
			Value:  fmt.Sprintf("%d channels", text),
			Inline: true,
		})
	}
	if voice := countChannels(guild.Channels, discordgo.ChannelTypeGuildVoice, true); voice > 0 {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:   helpers.GetText("plugins.joining.channels-info-uncategorized-voice"),
			Value:  fmt.Sprintf("%d channels", voice),
			Inline: true,
		})
	}

	embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
		Name: helpers.GetText("plugins.joining.channels-info-summary"),
		Value: fmt.Sprintf("**Total Categories:** %d\n**Total Text Channels:** %d\n**Total Voice Channels:** %d",
			len(categories),
			countChannels(guild.Channels, discordgo.ChannelTypeGuildText, false),
			countChannels(guild.Channels, discordgo.ChannelTypeGuildVoice, false)),
	})

	return embed
}
