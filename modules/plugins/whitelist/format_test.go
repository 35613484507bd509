package whitelist

import (
	"strings"
	"testing"

	"github.com/codexbot/codex/models"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 100))
	assert.Equal(t, strings.Repeat("a", 100), truncate(strings.Repeat("a", 100), 100))
	assert.Equal(t, strings.Repeat("a", 100)+"...", truncate(strings.Repeat("a", 150), 100))
	assert.Equal(t, "üüü...", truncate("üüüü", 3))
}

func TestListEmbed(t *testing.T) {
	empty := listEmbed(&ListResult{})
	assert.Empty(t, empty.Fields)
	assert.Nil(t, empty.Footer)

	entries := []models.WhitelistEntry{
		{UserID: "1", Username: "first", AddedBy: testModID, Reason: strings.Repeat("x", 300)},
		{UserID: "2", Username: "second", AddedBy: testModID, RoleAssigned: true},
	}

	complete := listEmbed(&ListResult{Entries: entries, Total: 2})
	require.Len(t, complete.Fields, 2)
	assert.Equal(t, "1. first", complete.Fields[0].Name)
	assert.Contains(t, complete.Fields[0].Value, strings.Repeat("x", 100)+"...")
	assert.NotContains(t, complete.Fields[0].Value, strings.Repeat("x", 101))
	assert.Contains(t, complete.Fields[1].Value, "No reason provided")
	assert.Nil(t, complete.Footer)

	partial := listEmbed(&ListResult{Entries: entries, Total: 40})
	require.NotNil(t, partial.Footer)
	assert.Equal(t, "Showing 2 of 40 entries", partial.Footer.Text)
	assert.Contains(t, partial.Title, "40")
}

func TestErrorEmbed(t *testing.T) {
	config := DefaultConfig()

	duplicate := errorEmbed(ErrDuplicateActiveEntry, "newbie", config)
	assert.Contains(t, duplicate.Description, "newbie")
	assert.Equal(t, colorError, duplicate.Color)

	reason := errorEmbed(errors.Wrap(ErrInvalidReason, "too short"), "", config)
	assert.Contains(t, reason.Description, "10")
	assert.Contains(t, reason.Description, "500")

	general := errorEmbed(errors.New("boom"), "", config)
	assert.NotContains(t, general.Description, "boom")
}

func TestAddEmbedRoleWarning(t *testing.T) {
	result := &AddResult{
		Entry:   &models.WhitelistEntry{UserID: "1", Username: "newbie", AccountAgeAtJoin: 10, Reason: validReason, RoleAssigned: true},
		RoleErr: ErrRoleOperationFailed,
	}

	embed := addEmbed(result, Actor{ID: testModID, Username: "moderator"}, DefaultConfig())
	assert.Equal(t, colorWarning, embed.Color)
	require.Len(t, embed.Fields, 2)
	assert.Contains(t, embed.Fields[0].Value, "pending")
	assert.NotContains(t, embed.Fields[0].Value, "✅")
	require.NotNil(t, embed.Footer)
	assert.Contains(t, embed.Footer.Text, "moderator")
}

func TestHistoryEmbedIsCapped(t *testing.T) {
	entries := make([]models.WhitelistEntry, 30)
	for i := range entries {
		entries[i] = models.WhitelistEntry{UserID: "1", Username: "newbie", RoleRemovedReason: RemovalAccountAgedOut}
	}

	embed := historyEmbed(&HistoryResult{Target: Target{UserID: "1"}, Entries: entries})
	assert.Len(t, embed.Fields, 25)
	require.NotNil(t, embed.Footer)
	assert.Contains(t, embed.Fields[0].Value, "account aged out")
}

func TestAgedOutMessage(t *testing.T) {
	message := agedOutMessage(101, "Whitelisted New Member")
	require.Len(t, message.Embeds, 1)
	assert.Contains(t, message.Embeds[0].Description, "101")
	assert.Contains(t, message.Embeds[0].Description, "Whitelisted New Member")
}
