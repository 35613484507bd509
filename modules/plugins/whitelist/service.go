package whitelist

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/bwmarrin/discordgo"
	"github.com/codexbot/codex/cache"
	"github.com/codexbot/codex/helpers"
	"github.com/codexbot/codex/metrics"
	"github.com/codexbot/codex/models"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Actor is the moderator invoking a command
type Actor struct {
	ID          string
	Username    string
	Permissions int64
	RoleIDs     []string
}

// ActorFromInteraction reads the invoker of a guild interaction
func ActorFromInteraction(i *discordgo.Interaction) Actor {
	if i.Member == nil || i.Member.User == nil {
		return Actor{}
	}

	return Actor{
		ID:          i.Member.User.ID,
		Username:    i.Member.User.Username,
		Permissions: i.Member.Permissions,
		RoleIDs:     i.Member.Roles,
	}
}

// Target is the user a command acts on, User is nil if discord does not know the account anymore
type Target struct {
	UserID   string
	Username string
	User     *ResolvedUser
}

type AddResult struct {
	Entry   *models.WhitelistEntry
	User    *ResolvedUser
	RoleErr error
}

type RemoveResult struct {
	Target      Target
	Deactivated bool
	RoleRevoked bool
	RoleErr     error
}

type ListResult struct {
	Entries []models.WhitelistEntry
	Total   int
}

type CheckResult struct {
	Target Target
	Entry  *models.WhitelistEntry
}

type HistoryResult struct {
	Target  Target
	Entries []models.WhitelistEntry
}

// Service implements the whitelist operations behind the slash commands
type Service struct {
	session   Session
	store     Store
	directory *Directory
	roles     *RoleManager
	config    Config
	now       func() time.Time
}

func NewService(session Session, store Store, roles *RoleManager, config Config) *Service {
	return &Service{
		session:   session,
		store:     store,
		directory: NewDirectory(session),
		roles:     roles,
		config:    config,
		now:       time.Now,
	}
}

func (s *Service) logger() *logrus.Entry {
	return cache.GetLogger().WithField("module", "whitelist")
}

// Authorize checks for Manage Roles, Administrator or one of the staff roles
func (s *Service) Authorize(guildID string, actor Actor) error {
	if actor.ID == "" {
		return ErrPermissionDenied
	}

	if helpers.HasPermission(actor.Permissions, discordgo.PermissionManageRoles) {
		return nil
	}

	if len(actor.RoleIDs) == 0 || len(s.config.StaffRoles) == 0 {
		return ErrPermissionDenied
	}

	roles, err := s.session.GuildRoles(guildID)
	if err != nil {
		s.logger().WithError(err).Warnf("unable to fetch roles of guild %s for permission check", guildID)
		return ErrPermissionDenied
	}

	if helpers.HasStaffRole(actor.RoleIDs, roles, s.config.StaffRoles) {
		return nil
	}

	return ErrPermissionDenied
}

// ValidateReason trims $reason and checks its length in characters
func (s *Service) ValidateReason(reason string) (string, error) {
	reason = strings.TrimSpace(reason)

	length := utf8.RuneCountInString(reason)
	if length < s.config.ReasonMinLength || length > s.config.ReasonMaxLength {
		return "", ErrInvalidReason
	}

	return reason, nil
}

// resolveTarget asks discord first and falls back to the active store entry for users discord can't find
func (s *Service) resolveTarget(guildID string, input string) (Target, error) {
	ident, err := ParseIdentifier(input)
	if err != nil {
		return Target{}, err
	}

	user, err := s.directory.Resolve(guildID, ident)
	if err == nil {
		return Target{UserID: user.ID, Username: user.Username, User: user}, nil
	}
	if errors.Cause(err) != ErrUserNotFound {
		return Target{}, err
	}

	entry, err := s.store.FindActive(guildID, ident)
	if err != nil {
		if errors.Cause(err) == ErrNotWhitelisted {
			return Target{}, ErrUserNotFound
		}
		return Target{}, err
	}

	return Target{UserID: entry.UserID, Username: entry.Username}, nil
}

// Add whitelists the account behind $input and grants the marker role if it is a young guild member
func (s *Service) Add(guildID string, actor Actor, input string, reason string) (result *AddResult, err error) {
	defer func() {
		metrics.WhitelistActions.WithLabelValues("add", metrics.Result(err)).Inc()
	}()

	if err = s.Authorize(guildID, actor); err != nil {
		return nil, err
	}

	ident, err := ParseIdentifier(input)
	if err != nil {
		return nil, err
	}

	user, err := s.directory.Resolve(guildID, ident)
	if err != nil {
		return nil, err
	}

	if user.Bot {
		return nil, ErrBotAccount
	}

	reason, err = s.ValidateReason(reason)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	age := now.Sub(user.CreatedAt)

	entry := &models.WhitelistEntry{
		GuildID:          guildID,
		UserID:           user.ID,
		Username:         user.Username,
		AddedBy:          actor.ID,
		AddedByUsername:  actor.Username,
		AddedAt:          now,
		Reason:           reason,
		IsActive:         true,
		AccountAgeAtJoin: helpers.AgeInDays(age),
	}

	err = s.store.Add(entry)
	if err != nil {
		return nil, err
	}

	s.logger().WithFields(logrus.Fields{
		"guild_id": guildID,
		"user_id":  user.ID,
		"added_by": actor.ID,
	}).Info("added user to the whitelist")

	result = &AddResult{Entry: entry, User: user}

	if user.InGuild() && age < s.config.AgeRequirement {
		result.RoleErr = s.roles.Assign(guildID, user.Member)
		// a failed grant is still recorded, only a failed database write is not
		if result.RoleErr == nil || errors.Cause(result.RoleErr) == ErrRoleOperationFailed {
			entry.RoleAssigned = true
			entry.RoleAssignedAt = now
		}
	}

	return result, nil
}

// Remove soft-deletes the active entry and always tries to take the marker role away
func (s *Service) Remove(guildID string, actor Actor, input string) (result *RemoveResult, err error) {
	defer func() {
		metrics.WhitelistActions.WithLabelValues("remove", metrics.Result(err)).Inc()
	}()

	if err = s.Authorize(guildID, actor); err != nil {
		return nil, err
	}

	target, err := s.resolveTarget(guildID, input)
	if err != nil {
		return nil, err
	}

	deactivated, err := s.store.Deactivate(guildID, target.UserID, actor.ID, s.now().UTC())
	if err != nil {
		return nil, err
	}

	result = &RemoveResult{Target: target, Deactivated: deactivated}

	var member *discordgo.Member
	if target.User != nil {
		member = target.User.Member
	}
	result.RoleRevoked, result.RoleErr = s.roles.RemoveMember(guildID, target.UserID, member, RoleRemoval{
		Reason: RemovalWhitelistRemoved,
	})

	s.logger().WithFields(logrus.Fields{
		"guild_id":     guildID,
		"user_id":      target.UserID,
		"removed_by":   actor.ID,
		"deactivated":  deactivated,
		"role_revoked": result.RoleRevoked,
	}).Info("removed user from the whitelist")

	return result, nil
}

func (s *Service) List(guildID string, actor Actor) (*ListResult, error) {
	if err := s.Authorize(guildID, actor); err != nil {
		return nil, err
	}

	entries, total, err := s.store.ListActive(guildID, s.config.PageSize)
	if err != nil {
		return nil, err
	}

	return &ListResult{Entries: entries, Total: total}, nil
}

// Check returns the active entry of the user, Entry is nil if the user is not whitelisted
func (s *Service) Check(guildID string, actor Actor, input string) (*CheckResult, error) {
	if err := s.Authorize(guildID, actor); err != nil {
		return nil, err
	}

	target, err := s.resolveTarget(guildID, input)
	if err != nil {
		return nil, err
	}

	entry, err := s.store.FindActive(guildID, Identifier{Kind: NumericID, Value: target.UserID})
	if err != nil && errors.Cause(err) != ErrNotWhitelisted {
		return nil, err
	}
	if entry != nil && entry.UserID != target.UserID {
		entry = nil
	}

	return &CheckResult{Target: target, Entry: entry}, nil
}

// History returns every entry the user ever had in the guild
func (s *Service) History(guildID string, actor Actor, input string) (*HistoryResult, error) {
	if err := s.Authorize(guildID, actor); err != nil {
		return nil, err
	}

	target, err := s.resolveTarget(guildID, input)
	if err != nil && errors.Cause(err) != ErrUserNotFound {
		return nil, err
	}
	if err != nil {
		// users that left can still have history, plain IDs are looked up directly
		ident, parseErr := ParseIdentifier(input)
		if parseErr != nil || ident.Kind != NumericID {
			return nil, ErrUserNotFound
		}
		target = Target{UserID: ident.Value}
	}

	entries, err := s.store.History(guildID, target.UserID)
	if err != nil {
		return nil, err
	}

	if target.Username == "" && len(entries) > 0 {
		target.Username = entries[0].Username
	}

	return &HistoryResult{Target: target, Entries: entries}, nil
}

// IsWhitelisted is used by the join gate
func (s *Service) IsWhitelisted(guildID, userID string) (bool, error) {
	entry, err := s.store.FindActive(guildID, Identifier{Kind: NumericID, Value: userID})
	if err != nil {
		if errors.Cause(err) == ErrNotWhitelisted {
			return false, nil
		}
		return false, err
	}

	return entry.UserID == userID, nil
}

// AssignRole grants the marker role to a whitelisted member, used by the join gate
func (s *Service) AssignRole(guildID string, member *discordgo.Member) error {
	return s.roles.Assign(guildID, member)
}

// Config returns the plugin configuration
func (s *Service) Config() Config {
	return s.config
}
