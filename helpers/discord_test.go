package helpers

import (
	"net/http"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/pkg/errors"
)

func TestHasPermission(t *testing.T) {
	if !HasPermission(discordgo.PermissionManageRoles, discordgo.PermissionManageRoles) {
		t.Fatal("helpers.HasPermission() ignored the permission bit")
	}
	if !HasPermission(discordgo.PermissionAdministrator, discordgo.PermissionManageRoles) {
		t.Fatal("helpers.HasPermission() ignored administrator")
	}
	if HasPermission(discordgo.PermissionManageMessages, discordgo.PermissionManageRoles) {
		t.Fatal("helpers.HasPermission() allowed a missing permission")
	}
}

func TestHasStaffRole(t *testing.T) {
	roles := []*discordgo.Role{
		{ID: "1", Name: "Moderator"},
		{ID: "2", Name: "Member"},
	}
	staff := []string{"admin", "moderator"}

	if !HasStaffRole([]string{"2", "1"}, roles, staff) {
		t.Fatal("helpers.HasStaffRole() did not match case insensitive")
	}
	if HasStaffRole([]string{"2"}, roles, staff) {
		t.Fatal("helpers.HasStaffRole() matched a non staff role")
	}
	if HasStaffRole([]string{"3"}, roles, staff) {
		t.Fatal("helpers.HasStaffRole() matched an unknown role")
	}
	if HasStaffRole(nil, roles, staff) {
		t.Fatal("helpers.HasStaffRole() matched without roles")
	}
}

func TestIsDiscordNotFound(t *testing.T) {
	notFound := &discordgo.RESTError{
		Response: &http.Response{StatusCode: http.StatusNotFound},
		Message:  &discordgo.APIErrorMessage{Code: discordgo.ErrCodeUnknownMember},
	}
	unknownRole := &discordgo.RESTError{
		Response: &http.Response{StatusCode: http.StatusBadRequest},
		Message:  &discordgo.APIErrorMessage{Code: discordgo.ErrCodeUnknownRole},
	}
	forbidden := &discordgo.RESTError{
		Response: &http.Response{StatusCode: http.StatusForbidden},
		Message:  &discordgo.APIErrorMessage{Code: discordgo.ErrCodeMissingPermissions},
	}

	if !IsDiscordNotFound(errors.Wrap(notFound, "wrapped")) {
		t.Fatal("helpers.IsDiscordNotFound() missed a wrapped 404")
	}
	if !IsDiscordNotFound(unknownRole) || !IsDiscordUnknownRole(unknownRole) {
		t.Fatal("helpers.IsDiscordNotFound() missed an unknown role")
	}
	if IsDiscordNotFound(forbidden) || IsDiscordNotFound(errors.New("timeout")) {
		t.Fatal("helpers.IsDiscordNotFound() matched a different error")
	}
	if DiscordErrorCode(forbidden) != discordgo.ErrCodeMissingPermissions {
		t.Fatal("helpers.DiscordErrorCode() returned the wrong code")
	}
}

func TestSnowflake(t *testing.T) {
	for _, id := range []string{"175928847299117063", "123456789012345"} {
		if !IsSnowflake(id) {
			t.Fatalf("helpers.IsSnowflake() rejected %s", id)
		}
	}
	for _, id := range []string{"", "12345", "abc123456789012345", "1234567890123456789012"} {
		if IsSnowflake(id) {
			t.Fatalf("helpers.IsSnowflake() accepted %s", id)
		}
	}

	created := GetTimeFromSnowflake("175928847299117063")
	if !created.Equal(time.Date(2016, time.April, 30, 11, 18, 25, 796000000, time.UTC)) {
		t.Fatalf("helpers.GetTimeFromSnowflake() returned %s", created)
	}
	if !GetTimeFromSnowflake("not a snowflake").IsZero() {
		t.Fatal("helpers.GetTimeFromSnowflake() parsed garbage")
	}
}

func TestAccountAge(t *testing.T) {
	now := time.Date(2016, time.May, 30, 11, 18, 25, 796000000, time.UTC)

	if AgeInDays(AccountAge("175928847299117063", now)) != 30 {
		t.Fatal("helpers.AccountAge() returned the wrong age")
	}
	if AccountAge("garbage", now) != 0 {
		t.Fatal("helpers.AccountAge() returned an age for garbage")
	}
	if AgeInDays(Day-time.Second) != 0 || AgeInDays(-Day) != 0 {
		t.Fatal("helpers.AgeInDays() did not truncate")
	}
}
