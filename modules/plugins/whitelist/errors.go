package whitelist

import (
	"github.com/pkg/errors"
)

var (
	ErrDuplicateActiveEntry = errors.New("user already has an active whitelist entry")
	ErrUserNotFound         = errors.New("user not found")
	ErrInvalidReason        = errors.New("invalid reason")
	ErrPermissionDenied     = errors.New("permission denied")
	ErrRoleOperationFailed  = errors.New("role operation failed")
	ErrNotificationFailed   = errors.New("notification failed")
	ErrDatabaseUnavailable  = errors.New("database unavailable")

	ErrNotWhitelisted = errors.New("user is not whitelisted")
	ErrBotAccount     = errors.New("bot accounts can't be whitelisted")
)

// IsUserFacing is true for errors that are shown to the invoker without any mutation
func IsUserFacing(err error) bool {
	switch errors.Cause(err) {
	case ErrDuplicateActiveEntry, ErrUserNotFound, ErrInvalidReason, ErrPermissionDenied, ErrBotAccount, ErrNotWhitelisted:
		return true
	}
	return false
}
