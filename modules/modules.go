package modules

import (
	"github.com/codexbot/codex/modules/plugins/joining"
	"github.com/codexbot/codex/modules/plugins/whitelist"
)

var (
	whitelistHandler = &whitelist.Handler{}

	// order matters, joining uses the whitelist service
	PluginList = []Plugin{
		whitelistHandler,
	}

	PluginExtendedList = []ExtendedPlugin{
		&joining.Handler{Whitelist: whitelistHandler},
	}
)
