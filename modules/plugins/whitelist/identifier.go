package whitelist

import (
	"regexp"
	"strings"
)

type IdentifierKind int

const (
	NumericID IdentifierKind = iota + 1
	ExactUsername
)

func (k IdentifierKind) String() string {
	switch k {
	case NumericID:
		return "id"
	case ExactUsername:
		return "username"
	}
	return "unknown"
}

// Identifier is a user reference as typed by a moderator
type Identifier struct {
	Kind  IdentifierKind
	Value string
}

var (
	mentionRegex = regexp.MustCompile(`^<@!?(\d+)>$`)
	digitsRegex  = regexp.MustCompile(`^\d+$`)
)

// ParseIdentifier turns "<@id>", "<@!id>" and plain digits into a NumericID, everything else is an ExactUsername
func ParseIdentifier(input string) (Identifier, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return Identifier{}, ErrUserNotFound
	}

	if parts := mentionRegex.FindStringSubmatch(input); len(parts) == 2 {
		return Identifier{Kind: NumericID, Value: parts[1]}, nil
	}

	if digitsRegex.MatchString(input) {
		return Identifier{Kind: NumericID, Value: input}, nil
	}

	// usernames are matched case-sensitive
	return Identifier{Kind: ExactUsername, Value: input}, nil
}
