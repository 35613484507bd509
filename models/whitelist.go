package models

import (
	"time"

	"github.com/globalsign/mgo/bson"
)

const (
	WhitelistTable MongoDbCollection = "Whitelist"
)

// WhitelistEntry is one grant of the age-gate override, entries are never deleted
type WhitelistEntry struct {
	ID              bson.ObjectId `bson:"_id,omitempty"`
	GuildID         string        `bson:"guild_id"`
	UserID          string        `bson:"user_id"`
	Username        string        `bson:"username"`
	AddedBy         string        `bson:"added_by"`
	AddedByUsername string        `bson:"added_by_username"`
	AddedAt         time.Time     `bson:"added_at"`
	Reason          string        `bson:"reason"`
	IsActive        bool          `bson:"is_active"`
	RoleAssigned    bool          `bson:"role_assigned"`
	RoleAssignedAt  time.Time     `bson:"role_assigned_at,omitempty"`
	// AccountAgeAtJoin is the account age in days when the entry was created
	AccountAgeAtJoin int `bson:"account_age_at_join"`

	RemovedAt time.Time `bson:"removed_at,omitempty"`
	RemovedBy string    `bson:"removed_by,omitempty"`

	RoleRemovedAt       time.Time `bson:"role_removed_at,omitempty"`
	RoleRemovedReason   string    `bson:"role_removed_reason,omitempty"`
	AccountAgeAtRemoval int       `bson:"account_age_at_removal,omitempty"`
}
