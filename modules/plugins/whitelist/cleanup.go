package whitelist

import (
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/codexbot/codex/cache"
	"github.com/codexbot/codex/helpers"
	"github.com/codexbot/codex/metrics"
	"github.com/codexbot/codex/models"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

type CleanupAction string

const (
	CleanupKeep      CleanupAction = "keep"
	CleanupRevoke    CleanupAction = "revoke"
	CleanupReconcile CleanupAction = "reconcile"
	CleanupRegrant   CleanupAction = "regrant"
)

// CleanupCandidate is an entry marked as role_assigned together with the guild member at scan start
type CleanupCandidate struct {
	Entry models.WhitelistEntry
	// Member is nil if the user left the guild
	Member  *discordgo.Member
	HasRole bool
}

type CleanupStep struct {
	Candidate      CleanupCandidate
	Action         CleanupAction
	Reason         string
	AccountAgeDays int
	Notify         bool
}

type CleanupSummary struct {
	Checked    int
	Removed    int
	Reconciled int
	Regranted  int
	Errors     int
}

// PlanCleanup decides what happens to every candidate, it does not touch discord or the database
func PlanCleanup(snapshot []CleanupCandidate, now time.Time, threshold time.Duration) []CleanupStep {
	steps := make([]CleanupStep, 0, len(snapshot))

	for _, candidate := range snapshot {
		age := helpers.AccountAge(candidate.Entry.UserID, now)
		step := CleanupStep{
			Candidate:      candidate,
			Action:         CleanupKeep,
			AccountAgeDays: helpers.AgeInDays(age),
		}

		switch {
		case candidate.Member == nil:
			step.Action = CleanupReconcile
			step.Reason = RemovalMemberLeft
		case !candidate.Entry.IsActive:
			step.Action = CleanupRevoke
			step.Reason = RemovalWhitelistRemoved
		case age >= threshold:
			step.Action = CleanupRevoke
			step.Reason = RemovalAccountAgedOut
			step.Notify = true
		case !candidate.HasRole:
			step.Action = CleanupRegrant
		}

		steps = append(steps, step)
	}

	return steps
}

// Cleaner runs the periodic cleanup of the marker role
type Cleaner struct {
	session Session
	store   Store
	roles   *RoleManager
	config  Config
	now     func() time.Time
}

func NewCleaner(session Session, store Store, roles *RoleManager, config Config) *Cleaner {
	return &Cleaner{
		session: session,
		store:   store,
		roles:   roles,
		config:  config,
		now:     time.Now,
	}
}

func (c *Cleaner) logger() *logrus.Entry {
	return cache.GetLogger().WithField("module", "cleanup")
}

// Loop runs the cleanup once and then every CleanupInterval until $done is closed
func (c *Cleaner) Loop(done <-chan struct{}) {
	stopped := false

	defer helpers.Recover()
	defer func() {
		if stopped {
			return
		}
		go func() {
			defer helpers.Recover()
			c.logger().Error("The cleanup loop died. Please investigate! Will be restarted in 60 seconds")
			select {
			case <-done:
				return
			case <-time.After(60 * time.Second):
			}
			c.Loop(done)
		}()
	}()

	ticker := time.NewTicker(c.config.CleanupInterval)
	defer ticker.Stop()

	for {
		_, err := c.Run()
		if err != nil {
			c.logger().WithError(err).Error("cleanup run failed, retrying on the next tick")
		}

		select {
		case <-done:
			stopped = true
			return
		case <-ticker.C:
		}
	}
}

// Run takes a snapshot of all marked entries, plans and executes the steps.
// A failing entry is counted and skipped, a failing database aborts the run.
func (c *Cleaner) Run() (summary CleanupSummary, err error) {
	start := time.Now()
	defer func() {
		metrics.CleanupDuration.Observe(time.Since(start).Seconds())
	}()

	c.logger().Info("starting whitelist role cleanup")

	entries, err := c.store.ListRoleAssigned()
	if err != nil {
		return summary, errors.Wrap(ErrDatabaseUnavailable, err.Error())
	}

	snapshot := make([]CleanupCandidate, 0, len(entries))
	for _, entry := range entries {
		summary.Checked++

		candidate, err := c.candidate(entry)
		if err != nil {
			summary.Errors++
			c.logger().WithError(err).WithField("user_id", entry.UserID).Error("unable to inspect whitelist entry")
			continue
		}
		snapshot = append(snapshot, candidate)
	}

	for _, step := range PlanCleanup(snapshot, c.now().UTC(), c.config.AgeRequirement) {
		err = c.execute(step)
		metrics.CleanupSteps.WithLabelValues(string(step.Action), metrics.Result(err)).Inc()
		if err != nil {
			summary.Errors++
			c.logger().WithError(err).WithFields(logrus.Fields{
				"guild_id": step.Candidate.Entry.GuildID,
				"user_id":  step.Candidate.Entry.UserID,
				"action":   step.Action,
			}).Error("cleanup step failed")

			if errors.Cause(err) == ErrDatabaseUnavailable {
				c.logSummary(summary)
				return summary, err
			}
			continue
		}

		switch step.Action {
		case CleanupRevoke:
			summary.Removed++
		case CleanupReconcile:
			summary.Reconciled++
		case CleanupRegrant:
			summary.Regranted++
		}
	}

	c.logSummary(summary)
	return summary, nil
}

func (c *Cleaner) logSummary(summary CleanupSummary) {
	c.logger().WithFields(logrus.Fields{
		"checked":    summary.Checked,
		"removed":    summary.Removed,
		"reconciled": summary.Reconciled,
		"regranted":  summary.Regranted,
		"errors":     summary.Errors,
	}).Infof("whitelist role cleanup complete: Checked %d, Removed %d, Errors %d",
		summary.Checked, summary.Removed, summary.Errors)
}

func (c *Cleaner) candidate(entry models.WhitelistEntry) (CleanupCandidate, error) {
	candidate := CleanupCandidate{Entry: entry}

	member, found, err := lookupMember(c.session, entry.GuildID, entry.UserID)
	if err != nil {
		return candidate, err
	}
	if !found {
		return candidate, nil
	}
	candidate.Member = member

	roleID, err := c.roles.roleID(entry.GuildID, false)
	if err != nil {
		return candidate, err
	}
	candidate.HasRole = hasRole(member, roleID)

	return candidate, nil
}

func (c *Cleaner) execute(step CleanupStep) error {
	entry := step.Candidate.Entry

	switch step.Action {
	case CleanupReconcile:
		return c.store.SetRoleAssigned(entry.GuildID, entry.UserID, RoleChange{
			Assigned: false,
			At:       c.now().UTC(),
			Reason:   step.Reason,
		})
	case CleanupRevoke:
		_, err := c.roles.RemoveMember(entry.GuildID, entry.UserID, step.Candidate.Member, RoleRemoval{
			Reason:         step.Reason,
			AccountAgeDays: step.AccountAgeDays,
		})
		if err != nil {
			return err
		}

		c.logger().WithFields(logrus.Fields{
			"guild_id": entry.GuildID,
			"user_id":  entry.UserID,
			"reason":   step.Reason,
		}).Infof("removed whitelist role from %s (account age: %d days)", entry.Username, step.AccountAgeDays)

		if step.Notify {
			c.notify(entry.UserID, step.AccountAgeDays)
		}
		return nil
	case CleanupRegrant:
		return c.roles.Assign(entry.GuildID, step.Candidate.Member)
	}

	return nil
}

// notify is best effort, members can have DMs disabled
func (c *Cleaner) notify(userID string, ageDays int) {
	err := helpers.SendDirectMessage(c.session, userID, agedOutMessage(ageDays, c.config.RoleName))
	metrics.DirectMessages.WithLabelValues("aged_out", metrics.Result(err)).Inc()
	if err != nil {
		c.logger().WithError(errors.Wrap(ErrNotificationFailed, err.Error())).Debugf("unable to notify %s", userID)
	}
}
