package main

import (
	"fmt"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/codexbot/codex/cache"
	"github.com/codexbot/codex/helpers"
	"github.com/codexbot/codex/modules"
	"github.com/getsentry/raven-go"
)

var (
	initOnce sync.Once
	// session is set before the gateway connects
	session *helpers.Session
)

// BotOnReady gets called after the gateway connected
func BotOnReady(discord *discordgo.Session, event *discordgo.Ready) {
	log := cache.GetLogger()

	log.WithField("module", "bot").Info("Connected to discord!")

	// ready fires again after every reconnect
	initOnce.Do(func() {
		// Load and init all modules
		modules.Init(session)

		err := modules.RegisterCommands(session, helpers.ConfigString(helpers.GetConfig(), "discord.guild_id", ""))
		helpers.RelaxLog(err, "unable to register slash commands")
	})

	// request guild members from the gateway
	go func() {
		defer helpers.Recover()

		time.Sleep(30 * time.Second)

		for _, guild := range discord.State.Guilds {
			err := discord.RequestGuildMembers(guild.ID, "", 0, "", false)
			if err != nil {
				log.WithField("module", "bot").Error(fmt.Sprintf("Failed to request Members for Guild %s #%s: %s",
					guild.Name, guild.ID, err.Error()))
			}
		}
	}()
}

func BotOnMemberListChunk(discord *discordgo.Session, members *discordgo.GuildMembersChunk) {
	cache.GetLogger().WithField("module", "bot").Debug(
		fmt.Sprintf("received guild member chunk for guild: %s (%d members)",
			members.GuildID, len(members.Members)))
	var err error
	for _, member := range members.Members {
		member.GuildID = members.GuildID
		err = discord.State.MemberAdd(member)
		if err != nil {
			raven.CaptureError(fmt.Errorf("%#v", err), map[string]string{})
		}
	}
}

func BotOnGuildMemberAdd(discord *discordgo.Session, member *discordgo.GuildMemberAdd) {
	if session == nil {
		return
	}

	modules.CallExtendedPluginOnGuildMemberAdd(
		member.Member,
		session,
	)
}

func BotOnInteractionCreate(discord *discordgo.Session, interaction *discordgo.InteractionCreate) {
	if session == nil {
		return
	}

	modules.CallBotPlugin(interaction, session)
}

// BotDestroy cleans up the plugins
func BotDestroy() {
	if session == nil {
		return
	}

	modules.Uninit(session)
}
