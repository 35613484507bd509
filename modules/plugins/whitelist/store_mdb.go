package whitelist

import (
	"time"

	"github.com/codexbot/codex/helpers"
	"github.com/codexbot/codex/models"
	"github.com/globalsign/mgo"
	"github.com/globalsign/mgo/bson"
	"github.com/pkg/errors"
)

// MongoStore is the Store backed by the Whitelist collection
type MongoStore struct {
	collection func() *mgo.Collection
}

func NewMongoStore() *MongoStore {
	return &MongoStore{
		collection: func() *mgo.Collection {
			return helpers.MdbCollection(models.WhitelistTable)
		},
	}
}

func databaseError(err error) error {
	return errors.Wrap(ErrDatabaseUnavailable, err.Error())
}

func activeSelector(guildID, userID string) bson.M {
	return bson.M{"guild_id": guildID, "user_id": userID, "is_active": true}
}

func activeUsernameSelector(guildID, username string) bson.M {
	return bson.M{"guild_id": guildID, "username": username, "is_active": true}
}

func activeGuildSelector(guildID string) bson.M {
	return bson.M{"guild_id": guildID, "is_active": true}
}

func deactivateUpdate(removedBy string, at time.Time) bson.M {
	return bson.M{"$set": bson.M{
		"is_active":  false,
		"removed_at": at,
		"removed_by": removedBy,
	}}
}

// roleAssignedQuery returns the selector and update for a role change.
// Grants only touch an active entry that is not marked yet so role_assigned_at keeps the first grant.
// Revocations clear every marked entry of the user.
func roleAssignedQuery(guildID, userID string, change RoleChange) (selector bson.M, update bson.M) {
	if change.Assigned {
		selector = activeSelector(guildID, userID)
		selector["role_assigned"] = bson.M{"$ne": true}
		return selector, bson.M{"$set": bson.M{
			"role_assigned":    true,
			"role_assigned_at": change.At,
		}}
	}

	set := bson.M{
		"role_assigned":   false,
		"role_removed_at": change.At,
	}
	if change.Reason != "" {
		set["role_removed_reason"] = change.Reason
	}
	if change.AccountAgeDays > 0 {
		set["account_age_at_removal"] = change.AccountAgeDays
	}

	return bson.M{"guild_id": guildID, "user_id": userID, "role_assigned": true}, bson.M{"$set": set}
}

func whitelistIndexes() []mgo.Index {
	return []mgo.Index{
		{
			Name:          "guild_user_active_unique",
			Key:           []string{"guild_id", "user_id"},
			Unique:        true,
			PartialFilter: bson.M{"is_active": true},
			Background:    true,
		},
		{Name: "guild_username", Key: []string{"guild_id", "username"}, Background: true},
		{Name: "guild_active_added", Key: []string{"guild_id", "is_active", "added_at"}, Background: true},
		{Name: "role_assigned", Key: []string{"role_assigned"}, Background: true},
		{Name: "added_by_added", Key: []string{"added_by", "added_at"}, Background: true},
	}
}

// EnsureIndexes creates the collection indexes, existing ones are kept
func (s *MongoStore) EnsureIndexes() error {
	for _, index := range whitelistIndexes() {
		err := s.collection().EnsureIndex(index)
		if err != nil {
			return errors.Wrapf(err, "unable to ensure index %s", index.Name)
		}
	}
	return nil
}

func (s *MongoStore) Add(entry *models.WhitelistEntry) error {
	count, err := s.collection().Find(activeSelector(entry.GuildID, entry.UserID)).Count()
	if err != nil {
		return databaseError(err)
	}
	if count > 0 {
		return ErrDuplicateActiveEntry
	}

	entry.IsActive = true
	if entry.ID == "" {
		entry.ID = bson.NewObjectId()
	}

	err = s.collection().Insert(entry)
	if err != nil {
		// lost the race against a concurrent add, the partial index caught it
		if mgo.IsDup(err) {
			return ErrDuplicateActiveEntry
		}
		return databaseError(err)
	}

	return nil
}

func (s *MongoStore) Deactivate(guildID, userID, removedBy string, at time.Time) (bool, error) {
	info, err := s.collection().UpdateAll(activeSelector(guildID, userID), deactivateUpdate(removedBy, at))
	if err != nil {
		return false, databaseError(err)
	}

	return info.Updated > 0, nil
}

func (s *MongoStore) SetRoleAssigned(guildID, userID string, change RoleChange) error {
	selector, update := roleAssignedQuery(guildID, userID, change)

	_, err := s.collection().UpdateAll(selector, update)
	if err != nil {
		return databaseError(err)
	}

	return nil
}

// findQuery is a find with its sort and limit, kept as a value so the store queries can be asserted without a server
type findQuery struct {
	Selector bson.M
	Sort     []string
	Limit    int
}

func (q findQuery) on(collection *mgo.Collection) *mgo.Query {
	query := collection.Find(q.Selector)
	if len(q.Sort) > 0 {
		query = query.Sort(q.Sort...)
	}
	if q.Limit > 0 {
		query = query.Limit(q.Limit)
	}
	return query
}

// findActiveQueries returns the lookups in order, usernames can be all digits so IDs fall through to the username lookup
func findActiveQueries(guildID string, ident Identifier) []findQuery {
	queries := make([]findQuery, 0, 2)
	if ident.Kind == NumericID {
		queries = append(queries, findQuery{Selector: activeSelector(guildID, ident.Value)})
	}
	return append(queries, findQuery{Selector: activeUsernameSelector(guildID, ident.Value), Sort: []string{"-added_at"}})
}

func listActiveQuery(guildID string, limit int) findQuery {
	return findQuery{Selector: activeGuildSelector(guildID), Sort: []string{"added_at"}, Limit: limit}
}

func listRoleAssignedQuery() findQuery {
	return findQuery{Selector: bson.M{"role_assigned": true}}
}

func historyQuery(guildID, userID string) findQuery {
	return findQuery{Selector: bson.M{"guild_id": guildID, "user_id": userID}, Sort: []string{"-added_at"}}
}

func (s *MongoStore) FindActive(guildID string, ident Identifier) (*models.WhitelistEntry, error) {
	for _, query := range findActiveQueries(guildID, ident) {
		var entry models.WhitelistEntry

		err := helpers.MdbOne(query.on(s.collection()), &entry)
		if err == nil {
			return &entry, nil
		}
		if !helpers.IsMdbNotFound(err) {
			return nil, databaseError(err)
		}
	}

	return nil, ErrNotWhitelisted
}

func (s *MongoStore) ListActive(guildID string, limit int) ([]models.WhitelistEntry, int, error) {
	query := listActiveQuery(guildID, limit)

	total, err := s.collection().Find(query.Selector).Count()
	if err != nil {
		return nil, 0, databaseError(err)
	}

	var entries []models.WhitelistEntry
	err = helpers.MDbIter(query.on(s.collection())).All(&entries)
	if err != nil {
		return nil, 0, databaseError(err)
	}

	return entries, total, nil
}

func (s *MongoStore) ListRoleAssigned() ([]models.WhitelistEntry, error) {
	var entries []models.WhitelistEntry

	err := helpers.MDbIter(listRoleAssignedQuery().on(s.collection())).All(&entries)
	if err != nil {
		return nil, databaseError(err)
	}

	return entries, nil
}

func (s *MongoStore) History(guildID, userID string) ([]models.WhitelistEntry, error) {
	var entries []models.WhitelistEntry

	err := helpers.MDbIter(historyQuery(guildID, userID).on(s.collection())).All(&entries)
	if err != nil {
		return nil, databaseError(err)
	}

	return entries, nil
}
