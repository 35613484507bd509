package joining

import (
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/codexbot/codex/helpers"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type gateFixture struct {
	session   *fakeSession
	whitelist *fakeWhitelist
	gate      *Gate
	slept     []time.Duration
}

func newGateFixture(t *testing.T, channelID string) *gateFixture {
	_, client := newRedis(t)

	config := DefaultConfig()
	config.WelcomeChannelID = channelID

	f := &gateFixture{
		session:   newFakeSession(),
		whitelist: &fakeWhitelist{whitelisted: make(map[string]bool)},
	}
	f.gate = NewGate(f.session, f.whitelist, NewDMLimiter(client, config), NewWelcomer(f.session, config), config)
	f.gate.now = func() time.Time { return testNow }
	f.gate.sleep = func(d time.Duration) { f.slept = append(f.slept, d) }

	return f
}

func TestDecide(t *testing.T) {
	threshold := 90 * helpers.Day
	yes := func() (bool, error) { return true, nil }
	no := func() (bool, error) { return false, nil }
	broken := func() (bool, error) { return false, errors.New("no reachable servers") }
	never := func() (bool, error) {
		t.Fatal("whitelist must not be looked up")
		return false, nil
	}

	cases := []struct {
		name     string
		bot      bool
		age      time.Duration
		lookup   func() (bool, error)
		decision Decision
	}{
		{"bot", true, time.Hour, never, DecisionSkipBot},
		{"old account", false, 200 * helpers.Day, never, DecisionWelcome},
		{"exactly at threshold", false, threshold, never, DecisionWelcome},
		{"young whitelisted", false, 10 * helpers.Day, yes, DecisionWhitelisted},
		{"young not whitelisted", false, 10 * helpers.Day, no, DecisionKick},
		{"just below threshold", false, threshold - time.Second, no, DecisionKick},
		{"lookup failure", false, 10 * helpers.Day, broken, DecisionLookupFailed},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			decision, _ := Decide(tc.bot, tc.age, threshold, tc.lookup)
			assert.Equal(t, tc.decision, decision)
		})
	}
}

func TestGateWelcomesOldAccounts(t *testing.T) {
	f := newGateFixture(t, testChannelID)
	member := memberAged(200, "veteran")

	assert.Equal(t, DecisionWelcome, f.gate.HandleJoin(member))
	assert.Len(t, f.session.messages[testChannelID], 1)
	assert.Empty(t, f.session.kicks)
	assert.Equal(t, 0, f.whitelist.lookups)
}

func TestGateKeepsWhitelistedMembers(t *testing.T) {
	f := newGateFixture(t, testChannelID)
	member := memberAged(5, "newbie")
	f.whitelist.whitelisted[member.User.ID] = true

	assert.Equal(t, DecisionWhitelisted, f.gate.HandleJoin(member))
	assert.Empty(t, f.session.kicks)
	assert.Equal(t, []string{member.User.ID}, f.whitelist.assigned)
	assert.Len(t, f.session.messages[testChannelID], 1)
}

func TestGateKicksYoungAccounts(t *testing.T) {
	f := newGateFixture(t, testChannelID)
	member := memberAged(12, "newbie")

	assert.Equal(t, DecisionKick, f.gate.HandleJoin(member))

	require.Contains(t, f.session.kicks, member.User.ID)
	assert.Equal(t, "Account too new (12 days old)", f.session.kicks[member.User.ID])
	assert.Equal(t, []time.Duration{1200 * time.Millisecond}, f.slept)

	require.Len(t, f.session.dms[member.User.ID], 1)
	assert.Contains(t, f.session.dms[member.User.ID][0].Content, "newbie")
	assert.Contains(t, f.session.dms[member.User.ID][0].Content, "12 days")
	assert.Empty(t, f.session.messages[testChannelID])
}

func TestGateKicksWhenDirectMessageFails(t *testing.T) {
	f := newGateFixture(t, "")
	f.session.dmErr = dmClosedError()
	member := memberAged(3, "closed")

	assert.Equal(t, DecisionKick, f.gate.HandleJoin(member))
	assert.Contains(t, f.session.kicks, member.User.ID)
}

func TestGateRateLimitsDirectMessages(t *testing.T) {
	f := newGateFixture(t, "")
	member := memberAged(3, "rejoiner")

	for i := 0; i < 4; i++ {
		assert.Equal(t, DecisionKick, f.gate.HandleJoin(member))
	}

	assert.Len(t, f.session.dms[member.User.ID], 2)
	assert.Len(t, f.slept, 4)
}

func TestGateNeverKicksOnLookupFailure(t *testing.T) {
	f := newGateFixture(t, testChannelID)
	f.whitelist.lookupErr = errors.New("no reachable servers")
	member := memberAged(3, "newbie")

	assert.Equal(t, DecisionLookupFailed, f.gate.HandleJoin(member))
	assert.Empty(t, f.session.kicks)
	assert.Empty(t, f.session.dms)
	assert.Empty(t, f.session.messages)
}

func TestGateSkipsBots(t *testing.T) {
	f := newGateFixture(t, testChannelID)
	member := memberAged(1, "somebot")
	member.User.Bot = true

	assert.Equal(t, DecisionSkipBot, f.gate.HandleJoin(member))
	assert.Empty(t, f.session.kicks)
	assert.Empty(t, f.session.messages)
	assert.Equal(t, 0, f.whitelist.lookups)
}

func TestGateWithoutLimiter(t *testing.T) {
	f := newGateFixture(t, "")
	f.gate.limiter = nil
	member := memberAged(3, "newbie")

	for i := 0; i < 3; i++ {
		f.gate.HandleJoin(member)
	}
	assert.Len(t, f.session.dms[member.User.ID], 3)
}

func TestGateIgnoresEmptyEvents(t *testing.T) {
	f := newGateFixture(t, "")
	assert.Equal(t, DecisionSkipBot, f.gate.HandleJoin(&discordgo.Member{}))
}
