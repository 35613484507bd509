package modules

import (
	"github.com/bwmarrin/discordgo"
	"github.com/codexbot/codex/helpers"
)

type BaseModule interface{}

type Plugin interface {
	BaseModule

	// Commands returns the slash commands the plugin handles
	Commands() []*discordgo.ApplicationCommand

	Init(session *helpers.Session)

	Uninit(session *helpers.Session)

	// Action receives slash commands, modal submits and button clicks, $command is the command name or the custom id prefix
	Action(
		command string,
		in *discordgo.InteractionCreate,
		session *helpers.Session,
	)
}

type ExtendedPlugin interface {
	Plugin

	OnGuildMemberAdd(
		member *discordgo.Member,
		session *helpers.Session,
	)
}
