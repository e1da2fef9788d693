package lifecycle

import (
	"context"
	"strings"

	"github.com/Iron-Ham/agentteam/internal/errors"
	"github.com/Iron-Ham/agentteam/internal/ident"
)

// Mode selects where teammates run.
type Mode string

const (
	// ModeAuto uses panes when a usable pane backend is configured,
	// otherwise the agent backend.
	ModeAuto Mode = "auto"

	// ModeInProcess runs teammates through the AgentBackend.
	ModeInProcess Mode = "in_process"

	// ModeTmux runs each teammate as an independent process in a pane.
	ModeTmux Mode = "tmux"
)

// ValidModes returns the accepted mode strings.
func ValidModes() []string {
	return []string{string(ModeAuto), string(ModeInProcess), string(ModeTmux)}
}

// ParseMode converts a string to a Mode. The empty string means ModeAuto.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ModeAuto:
		return ModeAuto, nil
	case ModeInProcess:
		return ModeInProcess, nil
	case ModeTmux:
		return ModeTmux, nil
	default:
		return "", errors.NewValidationError("unknown teammate mode; expected one of " + strings.Join(ValidModes(), ", ")).
			WithField("teammate_mode").WithValue(s)
	}
}

// resolveMode turns ModeAuto into a concrete mode and checks that the
// requested mode has a backend.
func (c *Coordinator) resolveMode(ctx context.Context, m Mode) (Mode, error) {
	switch m {
	case ModeTmux:
		if c.panes == nil {
			return "", errors.NewInvalidOperationError("create team", "tmux mode requested but no pane backend is configured")
		}
		return ModeTmux, nil
	case ModeInProcess:
		if c.agents == nil {
			return "", errors.NewInvalidOperationError("create team", "in_process mode requested but no agent backend is configured")
		}
		return ModeInProcess, nil
	case ModeAuto, "":
		if c.panes != nil {
			checker, ok := c.panes.(availabilityChecker)
			if !ok || checker.Available(ctx) {
				return ModeTmux, nil
			}
		}
		if c.agents == nil {
			return "", errors.NewInvalidOperationError("create team", "no agent or pane backend is available")
		}
		return ModeInProcess, nil
	default:
		parsed, err := ParseMode(string(m))
		if err != nil {
			return "", err
		}
		return c.resolveMode(ctx, parsed)
	}
}

// PaneTitle returns the pane title used for a teammate.
func PaneTitle(teamName, agentName string) string {
	return token(teamName) + "-" + token(agentName)
}

// PanePattern returns a glob matching every teammate pane title of a team.
func PanePattern(teamName string) string {
	return token(teamName) + "-*"
}

func token(s string) string {
	t, err := ident.SanitizeTeamName(s)
	if err != nil {
		return "_"
	}
	return t
}

// CommandSpec is the program used to start pane-hosted teammates.
type CommandSpec struct {
	Program string
	Args    []string
}

// StartupCommand builds the shell command a pane runs for a teammate:
// program, configured args, --team, --agent, an optional --model, and the
// initial prompt as a final argument when one is given.
func (cs CommandSpec) StartupCommand(teamName string, spec AgentSpec) string {
	parts := make([]string, 0, len(cs.Args)+8)
	parts = append(parts, cs.Program)
	parts = append(parts, cs.Args...)
	parts = append(parts, "--team", teamName, "--agent", spec.Name)
	if spec.Model != "" {
		parts = append(parts, "--model", spec.Model)
	}
	if spec.Prompt != "" {
		parts = append(parts, spec.Prompt)
	}

	quoted := make([]string, len(parts))
	for i, p := range parts {
		quoted[i] = shellQuote(p)
	}
	return strings.Join(quoted, " ")
}

// shellQuote single-quotes s for a POSIX shell unless it is plainly safe.
func shellQuote(s string) string {
	if s != "" && strings.IndexFunc(s, func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' ||
			strings.ContainsRune("-_./=:@%+,", r))
	}) < 0 {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
