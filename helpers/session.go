package helpers

import (
	"github.com/bwmarrin/discordgo"
)

// Session adds state cache lookups to the discordgo session
type Session struct {
	*discordgo.Session
}

func NewSession(session *discordgo.Session) *Session {
	return &Session{Session: session}
}

// CachedMember returns the member from the state cache, never hits the API
func (s *Session) CachedMember(guildID, userID string) (*discordgo.Member, bool) {
	if s.Session == nil || s.State == nil {
		return nil, false
	}

	member, err := s.State.Member(guildID, userID)
	if err != nil || member == nil {
		return nil, false
	}

	return member, true
}

// CachedMembers returns a copy of the guilds member list from the state cache
func (s *Session) CachedMembers(guildID string) []*discordgo.Member {
	if s.Session == nil || s.State == nil {
		return nil
	}

	guild, err := s.State.Guild(guildID)
	if err != nil {
		return nil
	}

	s.State.RLock()
	defer s.State.RUnlock()

	members := make([]*discordgo.Member, len(guild.Members))
	copy(members, guild.Members)
	return members
}

// CachedGuild returns a copy of the guild from the state cache with its own member, channel and role slices
func (s *Session) CachedGuild(guildID string) (*discordgo.Guild, bool) {
	if s.Session == nil || s.State == nil {
		return nil, false
	}

	guild, err := s.State.Guild(guildID)
	if err != nil || guild == nil {
		return nil, false
	}

	s.State.RLock()
	defer s.State.RUnlock()

	copied := *guild
	copied.Members = append([]*discordgo.Member{}, guild.Members...)
	copied.Channels = append([]*discordgo.Channel{}, guild.Channels...)
	copied.Roles = append([]*discordgo.Role{}, guild.Roles...)
	return &copied, true
}
