package whitelist

import (
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/codexbot/codex/helpers"
	"github.com/codexbot/codex/models"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlanCleanup(t *testing.T) {
	now := time.Date(2025, time.March, 1, 12, 0, 0, 0, time.UTC)
	threshold := 90 * helpers.Day
	member := &discordgo.Member{User: &discordgo.User{ID: "1"}}

	entry := func(days int, active bool) models.WhitelistEntry {
		return models.WhitelistEntry{
			UserID:       snowflakeAt(now.Add(-time.Duration(days)*helpers.Day), 1),
			IsActive:     active,
			RoleAssigned: true,
		}
	}

	cases := []struct {
		name      string
		candidate CleanupCandidate
		action    CleanupAction
		reason    string
		notify    bool
	}{
		{"young member with role", CleanupCandidate{Entry: entry(30, true), Member: member, HasRole: true}, CleanupKeep, "", false},
		{"young member missing role", CleanupCandidate{Entry: entry(30, true), Member: member}, CleanupRegrant, "", false},
		{"aged out", CleanupCandidate{Entry: entry(91, true), Member: member, HasRole: true}, CleanupRevoke, RemovalAccountAgedOut, true},
		{"exactly at threshold", CleanupCandidate{Entry: entry(90, true), Member: member, HasRole: true}, CleanupRevoke, RemovalAccountAgedOut, true},
		{"aged out without role", CleanupCandidate{Entry: entry(120, true), Member: member}, CleanupRevoke, RemovalAccountAgedOut, true},
		{"whitelist removed", CleanupCandidate{Entry: entry(30, false), Member: member, HasRole: true}, CleanupRevoke, RemovalWhitelistRemoved, false},
		{"member left", CleanupCandidate{Entry: entry(30, true)}, CleanupReconcile, RemovalMemberLeft, false},
		{"aged out member left", CleanupCandidate{Entry: entry(200, true)}, CleanupReconcile, RemovalMemberLeft, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			steps := PlanCleanup([]CleanupCandidate{tc.candidate}, now, threshold)
			require.Len(t, steps, 1)
			assert.Equal(t, tc.action, steps[0].Action)
			assert.Equal(t, tc.reason, steps[0].Reason)
			assert.Equal(t, tc.notify, steps[0].Notify)
		})
	}
}

func TestPlanCleanupEmpty(t *testing.T) {
	assert.Empty(t, PlanCleanup(nil, time.Now(), 90*helpers.Day))
}

func TestCleanupRevokesAgedOutMember(t *testing.T) {
	f := newFixture()
	member := f.youngMember(10, "newbie")

	_, err := f.service.Add(testGuildID, f.mod, member.User.ID, validReason)
	require.NoError(t, err)
	require.Contains(t, f.session.memberRoles(member.User.ID), "role-1")

	summary, err := f.cleaner.Run()
	require.NoError(t, err)
	assert.Equal(t, CleanupSummary{Checked: 1}, summary)

	f.setNow(f.now.Add(91 * helpers.Day))

	summary, err = f.cleaner.Run()
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Checked)
	assert.Equal(t, 1, summary.Removed)
	assert.Equal(t, 0, summary.Errors)

	assert.NotContains(t, f.session.memberRoles(member.User.ID), "role-1")

	entries := f.store.active(member.User.ID)
	require.Len(t, entries, 1)
	assert.False(t, entries[0].RoleAssigned)
	assert.Equal(t, RemovalAccountAgedOut, entries[0].RoleRemovedReason)
	assert.Equal(t, 101, entries[0].AccountAgeAtRemoval)
	assert.Equal(t, f.now, entries[0].RoleRemovedAt)

	dms := f.session.dms["dm-"+member.User.ID]
	require.Len(t, dms, 1)
	require.Len(t, dms[0].Embeds, 1)
	assert.Contains(t, dms[0].Embeds[0].Description, "101")

	// nothing is marked anymore
	summary, err = f.cleaner.Run()
	require.NoError(t, err)
	assert.Equal(t, CleanupSummary{}, summary)
	assert.Len(t, f.session.dms["dm-"+member.User.ID], 1)
}

func TestCleanupIgnoresFailingDirectMessages(t *testing.T) {
	f := newFixture()
	member := f.youngMember(10, "newbie")

	_, err := f.service.Add(testGuildID, f.mod, member.User.ID, validReason)
	require.NoError(t, err)

	f.session.dmErr = serverError()
	f.setNow(f.now.Add(100 * helpers.Day))

	summary, err := f.cleaner.Run()
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Removed)
	assert.Equal(t, 0, summary.Errors)
	assert.False(t, f.store.active(member.User.ID)[0].RoleAssigned)
}

func TestCleanupReconcilesMembersThatLeft(t *testing.T) {
	f := newFixture()
	member := f.youngMember(10, "leaver")

	_, err := f.service.Add(testGuildID, f.mod, member.User.ID, validReason)
	require.NoError(t, err)
	delete(f.session.members, member.User.ID)

	summary, err := f.cleaner.Run()
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Reconciled)
	assert.Empty(t, f.session.roleRemoves)

	entry := f.store.active(member.User.ID)[0]
	assert.False(t, entry.RoleAssigned)
	assert.Equal(t, RemovalMemberLeft, entry.RoleRemovedReason)
	assert.Empty(t, f.session.dms["dm-"+member.User.ID])
}

func TestCleanupRegrantsMissingRole(t *testing.T) {
	f := newFixture()
	member := f.youngMember(10, "newbie")

	f.session.roleAddErr = serverError()
	result, err := f.service.Add(testGuildID, f.mod, member.User.ID, validReason)
	require.NoError(t, err)
	assert.Equal(t, ErrRoleOperationFailed, errors.Cause(result.RoleErr))
	assert.True(t, f.store.active(member.User.ID)[0].RoleAssigned)

	f.session.roleAddErr = nil
	summary, err := f.cleaner.Run()
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Regranted)
	assert.Contains(t, f.session.memberRoles(member.User.ID), "role-1")
}

func TestCleanupRevokesInactiveEntries(t *testing.T) {
	f := newFixture()
	member := f.youngMember(10, "newbie")

	_, err := f.service.Add(testGuildID, f.mod, member.User.ID, validReason)
	require.NoError(t, err)

	// a removal whose role revoke failed leaves the entry marked
	f.session.roleRemoveErr = serverError()
	result, err := f.service.Remove(testGuildID, f.mod, member.User.ID)
	require.NoError(t, err)
	assert.Equal(t, ErrRoleOperationFailed, errors.Cause(result.RoleErr))
	require.True(t, f.store.all(member.User.ID)[0].RoleAssigned)

	f.session.roleRemoveErr = nil
	summary, err := f.cleaner.Run()
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Removed)

	entry := f.store.all(member.User.ID)[0]
	assert.False(t, entry.RoleAssigned)
	assert.Equal(t, RemovalWhitelistRemoved, entry.RoleRemovedReason)
	assert.Empty(t, f.session.dms["dm-"+member.User.ID])
}

func TestCleanupCountsFailedSteps(t *testing.T) {
	f := newFixture()
	first := f.youngMember(10, "first")
	second := f.youngMember(20, "second")

	for _, member := range []*discordgo.Member{first, second} {
		_, err := f.service.Add(testGuildID, f.mod, member.User.ID, validReason)
		require.NoError(t, err)
	}

	f.session.roleRemoveErr = serverError()
	f.setNow(f.now.Add(100 * helpers.Day))

	summary, err := f.cleaner.Run()
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Checked)
	assert.Equal(t, 2, summary.Errors)
	assert.Equal(t, 0, summary.Removed)

	// failed revokes stay marked for the next run
	assert.True(t, f.store.active(first.User.ID)[0].RoleAssigned)
	assert.True(t, f.store.active(second.User.ID)[0].RoleAssigned)
}

func TestCleanupCountsEntriesThatCouldNotBeInspected(t *testing.T) {
	f := newFixture()
	member := f.youngMember(10, "newbie")

	_, err := f.service.Add(testGuildID, f.mod, member.User.ID, validReason)
	require.NoError(t, err)

	f.session.memberErr = serverError()

	summary, err := f.cleaner.Run()
	require.NoError(t, err)
	assert.Equal(t, CleanupSummary{Checked: 1, Errors: 1}, summary)
	assert.True(t, f.store.active(member.User.ID)[0].RoleAssigned)
}

func TestCleanupAbortsWithoutDatabase(t *testing.T) {
	f := newFixture()
	f.store.err = errors.New("no reachable servers")

	_, err := f.cleaner.Run()
	assert.Equal(t, ErrDatabaseUnavailable, errors.Cause(err))
}

func TestCleanupLoopStops(t *testing.T) {
	f := newFixture()
	f.cleaner.config.CleanupInterval = time.Hour

	done := make(chan struct{})
	finished := make(chan struct{})
	go func() {
		f.cleaner.Loop(done)
		close(finished)
	}()

	close(done)
	select {
	case <-finished:
	case <-time.After(5 * time.Second):
		t.Fatal("cleanup loop did not stop")
	}
}
