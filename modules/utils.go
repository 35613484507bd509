package modules

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/bwmarrin/discordgo"
	"github.com/codexbot/codex/cache"
	"github.com/codexbot/codex/helpers"
	"github.com/codexbot/codex/metrics"
	"github.com/pkg/errors"
)

var (
	pluginCache      map[string]Plugin
	pluginCacheMutex sync.RWMutex
)

// Init initializes the plugins and builds the command lookup
func Init(session *helpers.Session) {
	checkDuplicateCommands()

	commands := make(map[string]Plugin)

	for _, plugin := range allPlugins() {
		listeners := ""
		for _, cmd := range plugin.Commands() {
			commands[cmd.Name] = plugin
			listeners += cmd.Name + " "
		}

		cache.GetLogger().WithField("module", "modules").Info(fmt.Sprintf(
			"[PLUG] %T reacts to [ %s]", plugin, listeners,
		))

		plugin.Init(session)
	}

	pluginCacheMutex.Lock()
	pluginCache = commands
	pluginCacheMutex.Unlock()

	cache.GetLogger().WithField("module", "modules").Info(fmt.Sprintf(
		"Initializer finished. Loaded %d plugins and %d extended plugins", len(PluginList), len(PluginExtendedList),
	))
}

// Uninit deinitializes the plugins
func Uninit(session *helpers.Session) {
	for _, plugin := range allPlugins() {
		cache.GetLogger().WithField("module", "modules").Info(fmt.Sprintf("[PLUG] %T deinitializing…", plugin))
		plugin.Uninit(session)
	}
}

func allPlugins() []Plugin {
	plugins := make([]Plugin, 0, len(PluginList)+len(PluginExtendedList))
	plugins = append(plugins, PluginList...)
	for _, plugin := range PluginExtendedList {
		plugins = append(plugins, plugin)
	}
	return plugins
}

// ApplicationCommands returns every slash command of every plugin
func ApplicationCommands() []*discordgo.ApplicationCommand {
	commands := make([]*discordgo.ApplicationCommand, 0)
	for _, plugin := range allPlugins() {
		commands = append(commands, plugin.Commands()...)
	}
	return commands
}

// RegisterCommands overwrites the slash commands of the application, globally if $guildID is empty
func RegisterCommands(session *helpers.Session, guildID string) error {
	_, err := session.ApplicationCommandBulkOverwrite(session.State.User.ID, guildID, ApplicationCommands())
	if err != nil {
		return errors.Wrap(err, "unable to register application commands")
	}

	cache.GetLogger().WithField("module", "modules").Info(fmt.Sprintf(
		"registered %d application commands", len(ApplicationCommands()),
	))
	return nil
}

// interactionCommand is the command name or the custom id prefix of a modal or a button
func interactionCommand(in *discordgo.InteractionCreate) string {
	switch in.Type {
	case discordgo.InteractionApplicationCommand:
		return in.ApplicationCommandData().Name
	case discordgo.InteractionModalSubmit:
		return strings.SplitN(in.ModalSubmitData().CustomID, ":", 2)[0]
	case discordgo.InteractionMessageComponent:
		return strings.SplitN(in.MessageComponentData().CustomID, ":", 2)[0]
	}
	return ""
}

// CallBotPlugin hands an interaction to the plugin owning it
func CallBotPlugin(in *discordgo.InteractionCreate, session *helpers.Session) {
	// Defer a recovery in case anything panics
	defer helpers.Recover()

	command := interactionCommand(in)
	if command == "" {
		return
	}

	pluginCacheMutex.RLock()
	plugin, ok := pluginCache[command]
	pluginCacheMutex.RUnlock()
	if !ok {
		return
	}

	metrics.CommandsExecuted.WithLabelValues(command).Inc()

	plugin.Action(command, in, session)
}

func CallExtendedPluginOnGuildMemberAdd(member *discordgo.Member, session *helpers.Session) {
	defer helpers.Recover()

	// Iterate over all plugins
	for _, extendedPlugin := range PluginExtendedList {
		extendedPlugin.OnGuildMemberAdd(member, session)
	}
}

func checkDuplicateCommands() {
	cmds := make(map[string]string)

	for _, plug := range allPlugins() {
		for _, cmd := range plug.Commands() {
			t := fmt.Sprintf("%T", plug)

			if occupant, ok := cmds[cmd.Name]; ok {
				cache.GetLogger().WithField("module", "modules").Error("Failed to load " + t + " because '" + cmd.Name + "' was already registered by " + occupant)
				os.Exit(1)
			}

			cmds[cmd.Name] = t
		}
	}
}
