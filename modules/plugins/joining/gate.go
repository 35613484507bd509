package joining

import (
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/codexbot/codex/cache"
	"github.com/codexbot/codex/helpers"
	"github.com/codexbot/codex/metrics"
	"github.com/codexbot/codex/modules/plugins/whitelist"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

type Decision string

const (
	DecisionSkipBot      Decision = "skip_bot"
	DecisionWelcome      Decision = "welcome"
	DecisionWhitelisted  Decision = "whitelisted"
	DecisionKick         Decision = "kick"
	DecisionLookupFailed Decision = "lookup_failed"
)

// Whitelist is what the gate needs from the whitelist plugin, *whitelist.Service implements it
type Whitelist interface {
	IsWhitelisted(guildID, userID string) (bool, error)
	AssignRole(guildID string, member *discordgo.Member) error
	Config() whitelist.Config
}

// Session is the part of the discord session the joining plugin uses, *helpers.Session implements it
type Session interface {
	helpers.DirectMessenger

	CachedGuild(guildID string) (*discordgo.Guild, bool)
	GuildMemberDeleteWithReason(guildID, userID, reason string, options ...discordgo.RequestOption) error
	GuildRoles(guildID string, options ...discordgo.RequestOption) ([]*discordgo.Role, error)
	InteractionRespond(interaction *discordgo.Interaction, resp *discordgo.InteractionResponse, options ...discordgo.RequestOption) error
}

var _ Session = (*helpers.Session)(nil)

// Decide is the gate decision. The whitelist is only looked up for accounts younger than $threshold.
func Decide(isBot bool, age time.Duration, threshold time.Duration, lookup func() (bool, error)) (Decision, error) {
	if isBot {
		return DecisionSkipBot, nil
	}

	if age >= threshold {
		return DecisionWelcome, nil
	}

	whitelisted, err := lookup()
	if err != nil {
		return DecisionLookupFailed, err
	}
	if whitelisted {
		return DecisionWhitelisted, nil
	}

	return DecisionKick, nil
}

// Gate runs on every member join
type Gate struct {
	session   Session
	whitelist Whitelist
	limiter   *DMLimiter
	welcomer  *Welcomer
	config    Config
	now       func() time.Time
	sleep     func(time.Duration)
}

func NewGate(session Session, whitelist Whitelist, limiter *DMLimiter, welcomer *Welcomer, config Config) *Gate {
	return &Gate{
		session:   session,
		whitelist: whitelist,
		limiter:   limiter,
		welcomer:  welcomer,
		config:    config,
		now:       time.Now,
		sleep:     time.Sleep,
	}
}

func (g *Gate) logger() *logrus.Entry {
	return cache.GetLogger().WithField("module", "joining")
}

func (g *Gate) HandleJoin(member *discordgo.Member) Decision {
	if member == nil || member.User == nil {
		return DecisionSkipBot
	}

	user := member.User
	age := helpers.AccountAge(user.ID, g.now())
	days := helpers.AgeInDays(age)

	log := g.logger().WithFields(logrus.Fields{
		"guild_id":    member.GuildID,
		"user_id":     user.ID,
		"account_age": days,
	})

	decision, err := Decide(user.Bot, age, g.whitelist.Config().AgeRequirement, func() (bool, error) {
		return g.whitelist.IsWhitelisted(member.GuildID, user.ID)
	})
	metrics.JoinDecisions.WithLabelValues(string(decision)).Inc()

	switch decision {
	case DecisionSkipBot:
		log.Info("skipping bot account")
	case DecisionLookupFailed:
		// never kick on a failed lookup, the member might be whitelisted
		log.WithError(err).Error("unable to look up whitelist, letting member stay")
	case DecisionKick:
		g.kick(member, age, log)
	case DecisionWhitelisted:
		log.Info("young account is whitelisted, allowing")
		err = g.whitelist.AssignRole(member.GuildID, member)
		if err != nil {
			log.WithError(err).Warn("unable to assign whitelist role")
		}
		g.welcome(member, log)
	case DecisionWelcome:
		g.welcome(member, log)
	}

	return decision
}

func (g *Gate) welcome(member *discordgo.Member, log *logrus.Entry) {
	if g.welcomer == nil {
		return
	}

	err := g.welcomer.Send(member)
	if err != nil && errors.Cause(err) != ErrNoWelcomeChannel {
		log.WithError(err).Error("unable to send welcome message")
	}
}

func (g *Gate) kick(member *discordgo.Member, age time.Duration, log *logrus.Entry) {
	user := member.User
	days := helpers.AgeInDays(age)

	allowed, reason := true, ""
	if g.limiter != nil {
		var err error
		allowed, reason, err = g.limiter.Allow(user.ID, age)
		if err != nil {
			log.WithError(err).Warn("unable to check dm rate limit, skipping dm")
			allowed = false
		}
	}

	if allowed {
		err := helpers.SendDirectMessage(g.session, user.ID, &discordgo.MessageSend{
			Content: helpers.GetTextF("plugins.joining.too-new-dm", user.Username, days),
		})
		metrics.DirectMessages.WithLabelValues("too_new", metrics.Result(err)).Inc()
		if err != nil {
			log.WithError(err).Warn("could not dm member before kick")
		} else if g.limiter != nil {
			helpers.RelaxLog(g.limiter.Record(user.ID), "unable to record dm")
		}
	} else {
		log.Infof("skipped dm due to rate limiting: %s", reason)
	}

	g.sleep(g.config.KickDelay)

	err := g.session.GuildMemberDeleteWithReason(member.GuildID, user.ID, helpers.GetTextF("plugins.joining.kick-reason", days))
	if err != nil {
		log.WithError(err).Error("unable to kick member")
		return
	}

	log.Infof("kicked %s due to account age (%d days)", user.Username, days)
}
