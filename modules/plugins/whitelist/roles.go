package whitelist

import (
	"fmt"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/codexbot/codex/cache"
	"github.com/codexbot/codex/helpers"
	"github.com/codexbot/codex/metrics"
	redisCache "github.com/go-redis/cache"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const (
	RemovalAccountAgedOut   = "account_aged_out"
	RemovalWhitelistRemoved = "whitelist_removed"
	RemovalMemberLeft       = "member_left"
)

// RoleRemoval describes why the marker role is taken away
type RoleRemoval struct {
	Reason         string
	AccountAgeDays int
}

// RoleIDCache remembers the marker role ID per guild
type RoleIDCache interface {
	Get(guildID string) (string, bool)
	Set(guildID, roleID string)
	Delete(guildID string)
}

type redisRoleIDCache struct {
	codec *redisCache.Codec
}

// NewRedisRoleIDCache stores role IDs with the shared redis codec
func NewRedisRoleIDCache(codec *redisCache.Codec) RoleIDCache {
	return &redisRoleIDCache{codec: codec}
}

func roleIDCacheKey(guildID string) string {
	return fmt.Sprintf("codex:whitelist:role:%s", guildID)
}

func (c *redisRoleIDCache) Get(guildID string) (string, bool) {
	var roleID string
	if err := c.codec.Get(roleIDCacheKey(guildID), &roleID); err != nil || roleID == "" {
		return "", false
	}
	return roleID, true
}

func (c *redisRoleIDCache) Set(guildID, roleID string) {
	err := c.codec.Set(&redisCache.Item{
		Key:        roleIDCacheKey(guildID),
		Object:     roleID,
		Expiration: time.Hour,
	})
	if err != nil {
		cache.GetLogger().WithField("module", "whitelist").Warnf("unable to cache role id for guild %s: %s", guildID, err.Error())
	}
}

func (c *redisRoleIDCache) Delete(guildID string) {
	err := c.codec.Delete(roleIDCacheKey(guildID))
	if err != nil && err != redisCache.ErrCacheMiss {
		cache.GetLogger().WithField("module", "whitelist").Warnf("unable to forget role id for guild %s: %s", guildID, err.Error())
	}
}

// RoleManager owns the marker role and keeps role_assigned in sync with discord
type RoleManager struct {
	sync.Mutex
	session Session
	store   Store
	config  Config
	cache   RoleIDCache
	now     func() time.Time
}

func NewRoleManager(session Session, store Store, config Config, roleCache RoleIDCache) *RoleManager {
	return &RoleManager{
		session: session,
		store:   store,
		config:  config,
		cache:   roleCache,
		now:     time.Now,
	}
}

func (m *RoleManager) logger() *logrus.Entry {
	return cache.GetLogger().WithField("module", "whitelist")
}

// EnsureRole returns the marker role ID, creating the role if the guild has none
func (m *RoleManager) EnsureRole(guildID string) (string, error) {
	return m.roleID(guildID, true)
}

func (m *RoleManager) roleID(guildID string, create bool) (string, error) {
	if m.cache != nil {
		if roleID, ok := m.cache.Get(guildID); ok {
			return roleID, nil
		}
	}

	m.Lock()
	defer m.Unlock()

	roles, err := m.session.GuildRoles(guildID)
	if err != nil {
		return "", errors.Wrap(err, "unable to fetch guild roles")
	}

	for _, role := range roles {
		if role.Name == m.config.RoleName {
			m.remember(guildID, role.ID)
			return role.ID, nil
		}
	}

	if !create {
		return "", nil
	}

	color := m.config.RoleColor
	hoist := true
	mentionable := false
	role, err := m.session.GuildRoleCreate(guildID, &discordgo.RoleParams{
		Name:        m.config.RoleName,
		Color:       &color,
		Hoist:       &hoist,
		Mentionable: &mentionable,
	}, discordgo.WithAuditLogReason("Marker role for whitelisted new members"))
	metrics.RoleOperations.WithLabelValues("create", metrics.Result(err)).Inc()
	if err != nil {
		return "", errors.Wrap(err, "unable to create marker role")
	}

	m.logger().Infof("created marker role %s in guild %s", role.ID, guildID)
	m.remember(guildID, role.ID)
	return role.ID, nil
}

func (m *RoleManager) remember(guildID, roleID string) {
	if m.cache != nil {
		m.cache.Set(guildID, roleID)
	}
}

func (m *RoleManager) forget(guildID string) {
	if m.cache != nil {
		m.cache.Delete(guildID)
	}
}

func hasRole(member *discordgo.Member, roleID string) bool {
	if member == nil || roleID == "" {
		return false
	}
	for _, id := range member.Roles {
		if id == roleID {
			return true
		}
	}
	return false
}

// Assign grants the marker role to $member and records it on the active entry.
// The assigned state is recorded even if the grant fails, the cleanup task grants it again.
func (m *RoleManager) Assign(guildID string, member *discordgo.Member) error {
	if member == nil || member.User == nil {
		return ErrUserNotFound
	}
	userID := member.User.ID

	grantErr := m.grant(guildID, member)
	metrics.RoleOperations.WithLabelValues("grant", metrics.Result(grantErr)).Inc()

	err := m.store.SetRoleAssigned(guildID, userID, RoleChange{Assigned: true, At: m.now().UTC()})
	if err != nil {
		return err
	}

	if grantErr != nil {
		m.logger().WithError(grantErr).Errorf("unable to grant marker role to %s in guild %s", userID, guildID)
		return errors.Wrap(ErrRoleOperationFailed, grantErr.Error())
	}

	return nil
}

func (m *RoleManager) grant(guildID string, member *discordgo.Member) error {
	roleID, err := m.EnsureRole(guildID)
	if err != nil {
		return err
	}

	if hasRole(member, roleID) {
		return nil
	}

	err = m.session.GuildMemberRoleAdd(guildID, member.User.ID, roleID, discordgo.WithAuditLogReason("Whitelisted new member"))
	if err != nil && helpers.IsDiscordUnknownRole(err) {
		// the role was deleted by hand, create it again and retry once
		m.forget(guildID)

		roleID, err = m.EnsureRole(guildID)
		if err != nil {
			return err
		}
		err = m.session.GuildMemberRoleAdd(guildID, member.User.ID, roleID, discordgo.WithAuditLogReason("Whitelisted new member"))
	}

	return err
}

// Remove revokes the marker role from $userID if the user is still in the guild and records role_assigned=false.
// It returns true if a role was actually taken away.
func (m *RoleManager) Remove(guildID, userID string, removal RoleRemoval) (bool, error) {
	member, found, err := lookupMember(m.session, guildID, userID)
	if err != nil {
		return false, errors.Wrap(ErrRoleOperationFailed, err.Error())
	}
	if !found {
		member = nil
	}

	return m.RemoveMember(guildID, userID, member, removal)
}

// RemoveMember is Remove with an already known member, nil if the user left the guild.
// If the revoke call fails the store is left untouched so the next cleanup retries.
func (m *RoleManager) RemoveMember(guildID, userID string, member *discordgo.Member, removal RoleRemoval) (bool, error) {
	var revoked bool

	if member != nil {
		roleID, err := m.roleID(guildID, false)
		if err != nil {
			return false, errors.Wrap(ErrRoleOperationFailed, err.Error())
		}

		if hasRole(member, roleID) {
			err = m.session.GuildMemberRoleRemove(guildID, userID, roleID,
				discordgo.WithAuditLogReason(fmt.Sprintf("Whitelist role removed (%s)", removal.Reason)))
			metrics.RoleOperations.WithLabelValues("revoke", metrics.Result(err)).Inc()
			switch {
			case err == nil:
				revoked = true
			case helpers.IsDiscordUnknownRole(err):
				m.forget(guildID)
			case helpers.IsDiscordNotFound(err):
				// member left in the meantime
			default:
				m.logger().WithError(err).Errorf("unable to revoke marker role from %s in guild %s", userID, guildID)
				return false, errors.Wrap(ErrRoleOperationFailed, err.Error())
			}
		}
	}

	err := m.store.SetRoleAssigned(guildID, userID, RoleChange{
		Assigned:       false,
		At:             m.now().UTC(),
		Reason:         removal.Reason,
		AccountAgeDays: removal.AccountAgeDays,
	})
	if err != nil {
		return revoked, err
	}

	return revoked, nil
}
