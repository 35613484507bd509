package main

import (
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/codexbot/codex/cache"
	"github.com/codexbot/codex/helpers"
	"github.com/codexbot/codex/logging"
	"github.com/codexbot/codex/metrics"
	"github.com/codexbot/codex/version"
	"github.com/getsentry/raven-go"
	"github.com/go-redis/redis"
	"github.com/kz/discordrus"
	"github.com/sirupsen/logrus"
)

var BotRuntimeChannel chan os.Signal

// Entrypoint
func main() {
	var err error

	log := logrus.New()
	log.Out = os.Stdout
	log.Level = logrus.DebugLevel
	log.Formatter = &logrus.TextFormatter{ForceColors: true, FullTimestamp: true, TimestampFormat: time.RFC3339}
	log.Hooks = make(logrus.LevelHooks)
	cache.SetLogger(log)

	// Read config
	configPath := "config.json"
	if len(os.Args) > 1 {
		configPath = os.Args[1]
	}
	helpers.LoadConfig(configPath)
	config := helpers.GetConfig()

	// Check if the bot is being debugged
	helpers.DEBUG_MODE = helpers.ConfigBool(config, "debug", false)
	if !helpers.DEBUG_MODE {
		log.Level = logrus.InfoLevel
	}

	if jsonFile := helpers.ConfigString(config, "logging.jsonfile", ""); jsonFile != "" {
		fileHook, err := logging.NewLogrusFileHook(jsonFile, logrus.DebugLevel)
		if err != nil {
			log.WithField("module", "launcher").Error("logrus file hook failed, err:", err.Error())
		} else {
			log.Hooks.Add(fileHook)
			defer fileHook.Close()
		}
	}

	if webhook := helpers.ConfigString(config, "logging.discord_webhook", ""); webhook != "" {
		log.Hooks.Add(discordrus.NewHook(
			webhook,
			logrus.ErrorLevel,
			&discordrus.Opts{
				Username:           "Logging",
				DisableTimestamp:   false,
				TimestampFormat:    "Jan 2 15:04:05.00000",
				EnableCustomColors: true,
				CustomLevelColors: &discordrus.LevelColors{
					Error: 13631488,
					Panic: 13631488,
					Fatal: 13631488,
				},
			},
		))
	}

	log.WithField("module", "launcher").Info("Booting Codex...")

	// Read i18n
	helpers.LoadTranslations()

	// Show version
	version.DumpInfo()

	// Start metric server
	metrics.Init(helpers.ConfigString(config, "metrics.address", ""))

	// Call home
	if dsn := helpers.ConfigString(config, "sentry", ""); dsn != "" {
		log.WithField("module", "launcher").Info("[SENTRY] Calling home...")
		err = raven.SetDSN(dsn)
		if err != nil {
			panic(err)
		}
		if version.BOT_VERSION != "UNSET" {
			raven.SetRelease(version.BOT_VERSION)
		}
		log.WithField("module", "launcher").Info("[SENTRY] Someone picked up the phone \\^-^/")
	}

	// Connect to DB
	log.WithField("module", "launcher").Info("Opening database connection...")
	helpers.ConnectMDB(
		helpers.ConfigString(config, "mongodb.url", "mongodb://localhost:27017"),
		helpers.ConfigString(config, "mongodb.db", "codex"),
	)

	// Close DB when main dies
	defer helpers.GetMDbSession().Close()

	// Connecting to redis
	log.WithField("module", "launcher").Info("Connecting to redis...")
	redisClient := redis.NewClient(&redis.Options{
		Addr:     helpers.ConfigString(config, "redis.address", "localhost:6379"),
		Password: helpers.ConfigString(config, "redis.password", ""),
		DB:       helpers.ConfigInt(config, "redis.db", 0),
	})
	err = redisClient.Ping().Err()
	if err != nil {
		raven.CaptureErrorAndWait(err, nil)
		panic(err)
	}
	cache.SetRedisClient(redisClient)

	// Connect and add event handlers
	discordgo.Logger = func(msgL, caller int, format string, a ...interface{}) {
		pc, file, line, _ := runtime.Caller(caller)

		files := strings.Split(file, "/")
		file = files[len(files)-1]

		name := runtime.FuncForPC(pc).Name()
		fns := strings.Split(name, ".")
		name = fns[len(fns)-1]

		msg := format
		if strings.Contains(msg, "%") {
			msg = fmt.Sprintf(format, a...)
		}

		switch msgL {
		case discordgo.LogError:
			log.WithField("module", "discordgo").Errorf("%s:%d:%s() %s", file, line, name, msg)
		case discordgo.LogWarning:
			log.WithField("module", "discordgo").Warnf("%s:%d:%s() %s", file, line, name, msg)
		case discordgo.LogInformational:
			log.WithField("module", "discordgo").Infof("%s:%d:%s() %s", file, line, name, msg)
		case discordgo.LogDebug:
			log.WithField("module", "discordgo").Debugf("%s:%d:%s() %s", file, line, name, msg)
		}
	}
	log.WithField("module", "launcher").Info("Connecting Codex to discord...")
	discord, err := discordgo.New("Bot " + helpers.ConfigString(config, "discord.token", ""))
	if err != nil {
		panic(err)
	}

	discord.Lock()
	discord.Debug = false
	discord.LogLevel = discordgo.LogInformational
	discord.StateEnabled = true
	discord.Identify.Intents = discordgo.IntentsGuilds | discordgo.IntentsGuildMembers
	discord.Unlock()

	session = helpers.NewSession(discord)

	discord.AddHandler(BotOnReady)
	discord.AddHandler(BotOnInteractionCreate)
	discord.AddHandler(BotOnGuildMemberAdd)
	discord.AddHandler(BotOnMemberListChunk)

	// Connect to discord
	err = discord.Open()
	if err != nil {
		raven.CaptureErrorAndWait(err, nil)
		panic(err)
	}

	// Make a channel that waits for a os signal
	BotRuntimeChannel = make(chan os.Signal, 1)
	signal.Notify(BotRuntimeChannel, os.Interrupt, syscall.SIGTERM)

	// Wait until the os wants us to shutdown
	<-BotRuntimeChannel

	log.WithField("module", "launcher").Info("Codex is stopping")
	log.WithField("module", "launcher").Info("Uninitializing plugins...")
	BotDestroy()
	log.WithField("module", "launcher").Info("Disconnecting bot discord session...")
	discord.Close()
	redisClient.Close()
}
