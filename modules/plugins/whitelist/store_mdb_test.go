package whitelist

import (
	"testing"
	"time"

	"github.com/globalsign/mgo/bson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWhitelistIndexes(t *testing.T) {
	indexes := whitelistIndexes()
	require.NotEmpty(t, indexes)

	unique := indexes[0]
	assert.Equal(t, []string{"guild_id", "user_id"}, unique.Key)
	assert.True(t, unique.Unique)
	assert.Equal(t, bson.M{"is_active": true}, unique.PartialFilter)

	for _, index := range indexes[1:] {
		assert.False(t, index.Unique, index.Name)
	}
}

func TestActiveSelectors(t *testing.T) {
	assert.Equal(t, bson.M{"guild_id": "g", "user_id": "u", "is_active": true}, activeSelector("g", "u"))
	assert.Equal(t, bson.M{"guild_id": "g", "username": "name", "is_active": true}, activeUsernameSelector("g", "name"))
	assert.Equal(t, bson.M{"guild_id": "g", "is_active": true}, activeGuildSelector("g"))
}

func TestDeactivateUpdateOnlyFlipsToInactive(t *testing.T) {
	at := time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)
	update := deactivateUpdate("mod", at)

	set := update["$set"].(bson.M)
	assert.Equal(t, false, set["is_active"])
	assert.Equal(t, at, set["removed_at"])
	assert.Equal(t, "mod", set["removed_by"])
}

func TestRoleAssignedQuery(t *testing.T) {
	at := time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)

	selector, update := roleAssignedQuery("g", "u", RoleChange{Assigned: true, At: at})
	assert.Equal(t, bson.M{"guild_id": "g", "user_id": "u", "is_active": true, "role_assigned": bson.M{"$ne": true}}, selector)
	assert.Equal(t, bson.M{"role_assigned": true, "role_assigned_at": at}, update["$set"])

	selector, update = roleAssignedQuery("g", "u", RoleChange{Assigned: false, At: at, Reason: RemovalAccountAgedOut, AccountAgeDays: 91})
	assert.Equal(t, bson.M{"guild_id": "g", "user_id": "u", "role_assigned": true}, selector)
	assert.Equal(t, bson.M{
		"role_assigned":          false,
		"role_removed_at":        at,
		"role_removed_reason":    RemovalAccountAgedOut,
		"account_age_at_removal": 91,
	}, update["$set"])

	_, update = roleAssignedQuery("g", "u", RoleChange{Assigned: false, At: at})
	assert.NotContains(t, update["$set"], "role_removed_reason")
	assert.NotContains(t, update["$set"], "account_age_at_removal")
}

func TestStoreQueries(t *testing.T) {
	for _, tc := range []struct {
		name  string
		query findQuery
		want  findQuery
	}{
		{
			name:  "list active",
			query: listActiveQuery("g", 25),
			want:  findQuery{Selector: bson.M{"guild_id": "g", "is_active": true}, Sort: []string{"added_at"}, Limit: 25},
		},
		{
			name:  "list role assigned",
			query: listRoleAssignedQuery(),
			want:  findQuery{Selector: bson.M{"role_assigned": true}},
		},
		{
			name:  "history",
			query: historyQuery("g", "u"),
			want:  findQuery{Selector: bson.M{"guild_id": "g", "user_id": "u"}, Sort: []string{"-added_at"}},
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.query)
		})
	}
}

func TestFindActiveQueries(t *testing.T) {
	byID := findActiveQueries("g", Identifier{Kind: NumericID, Value: "175928847299117063"})
	assert.Equal(t, []findQuery{
		{Selector: bson.M{"guild_id": "g", "user_id": "175928847299117063", "is_active": true}},
		{Selector: bson.M{"guild_id": "g", "username": "175928847299117063", "is_active": true}, Sort: []string{"-added_at"}},
	}, byID)

	byName := findActiveQueries("g", Identifier{Kind: ExactUsername, Value: "Newbie"})
	assert.Equal(t, []findQuery{
		{Selector: bson.M{"guild_id": "g", "username": "Newbie", "is_active": true}, Sort: []string{"-added_at"}},
	}, byName)
}
