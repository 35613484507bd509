package whitelist

import (
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/codexbot/codex/helpers"
	"github.com/pkg/errors"
)

// ResolvedUser is a discord account, Member is nil if it is not in the guild
type ResolvedUser struct {
	ID        string
	Username  string
	Bot       bool
	CreatedAt time.Time
	Member    *discordgo.Member
}

func (u *ResolvedUser) InGuild() bool {
	return u.Member != nil
}

func newResolvedUser(user *discordgo.User, member *discordgo.Member) *ResolvedUser {
	return &ResolvedUser{
		ID:        user.ID,
		Username:  user.Username,
		Bot:       user.Bot,
		CreatedAt: helpers.GetTimeFromSnowflake(user.ID),
		Member:    member,
	}
}

// Directory resolves identifiers against the guild members and the discord user API
type Directory struct {
	session Session
}

func NewDirectory(session Session) *Directory {
	return &Directory{session: session}
}

// lookupMember returns the guild member from the state cache or the API, found is false if the user is not in the guild
func lookupMember(session Session, guildID, userID string) (member *discordgo.Member, found bool, err error) {
	if member, ok := session.CachedMember(guildID, userID); ok {
		return member, true, nil
	}

	member, err = session.GuildMember(guildID, userID)
	if err != nil {
		if helpers.IsDiscordNotFound(err) {
			return nil, false, nil
		}
		return nil, false, errors.Wrap(err, "unable to fetch guild member")
	}

	return member, member != nil && member.User != nil, nil
}

// Resolve finds the account behind $ident, ErrUserNotFound if there is none
func (d *Directory) Resolve(guildID string, ident Identifier) (*ResolvedUser, error) {
	switch ident.Kind {
	case NumericID:
		return d.resolveID(guildID, ident.Value)
	case ExactUsername:
		return d.resolveUsername(guildID, ident.Value)
	}

	return nil, ErrUserNotFound
}

func (d *Directory) resolveID(guildID, userID string) (*ResolvedUser, error) {
	if !helpers.IsSnowflake(userID) {
		return nil, ErrUserNotFound
	}

	member, found, err := lookupMember(d.session, guildID, userID)
	if err != nil {
		return nil, err
	}
	if found {
		return newResolvedUser(member.User, member), nil
	}

	user, err := d.session.User(userID)
	if err != nil {
		if helpers.IsDiscordNotFound(err) {
			return nil, ErrUserNotFound
		}
		return nil, errors.Wrap(err, "unable to fetch user")
	}

	return newResolvedUser(user, nil), nil
}

func (d *Directory) resolveUsername(guildID, username string) (*ResolvedUser, error) {
	for _, member := range d.session.CachedMembers(guildID) {
		if member.User != nil && member.User.Username == username {
			return newResolvedUser(member.User, member), nil
		}
	}

	// search is a case-insensitive prefix match, keep exact matches only
	members, err := d.session.GuildMembersSearch(guildID, username, 100)
	if err != nil {
		return nil, errors.Wrap(err, "unable to search guild members")
	}

	for _, member := range members {
		if member.User != nil && member.User.Username == username {
			return newResolvedUser(member.User, member), nil
		}
	}

	return nil, ErrUserNotFound
}
