// Except.go: Contains functions to make handling panics less PITA

package helpers

import (
	"fmt"

	"github.com/bwmarrin/discordgo"
	"github.com/codexbot/codex/cache"
	"github.com/getsentry/raven-go"
)

// Recover recover()s and prints the error to console
func Recover() {
	err := recover()
	if err != nil {
		if cache.HasLogger() {
			cache.GetLogger().WithField("module", "except").Errorf("recovered from panic: %#v", err)
		} else {
			fmt.Printf("%#v\n", err)
		}

		raven.CaptureError(fmt.Errorf("%#v", err), map[string]string{})
	}
}

// Relax is a helper to reduce if-checks if panicking is allowed
// If $err is nil this is a no-op. Panics otherwise.
func Relax(err error) {
	if err != nil {
		if DEBUG_MODE {
			if errD, ok := err.(*discordgo.RESTError); ok && errD.Message != nil {
				fmt.Printf("%d: %s\n", errD.Message.Code, errD.Message.Message)
			} else {
				fmt.Printf("%#v\n", err)
			}
		}
		panic(err)
	}
}

// RelaxLog logs $err with $message and sends it to sentry, does not panic
func RelaxLog(err error, message string) {
	if err == nil {
		return
	}

	if cache.HasLogger() {
		cache.GetLogger().WithField("module", "except").WithError(err).Error(message)
	}

	raven.CaptureError(err, map[string]string{"message": message})
}
