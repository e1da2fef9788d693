package ident

import (
	"encoding/hex"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Iron-Ham/agentteam/internal/errors"
)

// ID prefix constants for the entity kinds stored in a team.
const (
	PrefixAgent   = "agent"
	PrefixTask    = "task"
	PrefixMessage = "msg"
	PrefixProcess = "proc"
)

const timestampLayout = "20060102T150405"

// New produces an identifier with the given prefix and embedded timestamp.
// Format: {prefix}_{YYYYMMDDTHHmmss}_{12 hex chars}.
func New(prefix string) string {
	return newAt(prefix, time.Now())
}

func newAt(prefix string, now time.Time) string {
	u := uuid.New()
	return prefix + "_" + now.UTC().Format(timestampLayout) + "_" + hex.EncodeToString(u[:6])
}

// HasPrefix reports whether id was generated with the given prefix.
func HasPrefix(id, prefix string) bool {
	return strings.HasPrefix(id, prefix+"_")
}

// SanitizeTeamName maps an arbitrary team name to a token containing only
// ASCII letters, digits, '-' and '_'. Every other rune becomes '_'.
// The names "", "." and ".." are rejected because they cannot name a file.
func SanitizeTeamName(name string) (string, error) {
	switch name {
	case "", ".", "..":
		return "", errors.NewValidationError("team name is not usable as a file name").
			WithField("team_name").
			WithValue(name)
	}

	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		if isSafe(r) {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	return b.String(), nil
}

func isSafe(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return true
	case r == '-' || r == '_':
		return true
	default:
		return false
	}
}
