package whitelist

import (
	"time"

	"github.com/codexbot/codex/models"
)

// RoleChange is the marker role state recorded on an entry
type RoleChange struct {
	Assigned bool
	At       time.Time
	// Reason and AccountAgeDays are only recorded when the role is taken away
	Reason         string
	AccountAgeDays int
}

// Store persists whitelist entries. Entries are soft-deleted only.
type Store interface {
	// Add inserts a new active entry, ErrDuplicateActiveEntry if the user already has one
	Add(entry *models.WhitelistEntry) error
	// Deactivate soft-deletes the active entry and reports whether one existed
	Deactivate(guildID, userID, removedBy string, at time.Time) (bool, error)
	SetRoleAssigned(guildID, userID string, change RoleChange) error
	// FindActive matches the user ID first and the exact username only if no ID matched
	FindActive(guildID string, ident Identifier) (*models.WhitelistEntry, error)
	// ListActive returns up to $limit active entries, oldest first, and the total count
	ListActive(guildID string, limit int) ([]models.WhitelistEntry, int, error)
	// ListRoleAssigned returns every entry across all guilds whose role is marked as assigned
	ListRoleAssigned() ([]models.WhitelistEntry, error)
	// History returns every entry for the user, newest first
	History(guildID, userID string) ([]models.WhitelistEntry, error)
}
