package config

import (
	"fmt"
	"regexp"
	"slices"
	"strings"
)

// ValidationError represents a single validation failure
type ValidationError struct {
	Field   string // The config field path (e.g., "team.teammate_mode")
	Value   any    // The invalid value
	Message string // Human-readable error description
}

// Error implements the error interface for ValidationError
func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface for ValidationErrors
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d validation errors:\n", len(e)))
	for i, err := range e {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}
	return sb.String()
}

// tmuxNameRegex validates tmux socket and session names
var tmuxNameRegex = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9_-]*$`)

// ValidLogLevels returns the list of valid log levels
func ValidLogLevels() []string {
	return []string{"debug", "info", "warn", "error"}
}

// ValidTeammateModes returns the list of valid teammate hosting modes
func ValidTeammateModes() []string {
	return []string{"auto", "in_process", "tmux"}
}

// ValidAssignments returns the list of valid task assignment strategies
func ValidAssignments() []string {
	return []string{"manual", "round_robin", "least_busy"}
}

// Validate checks the Config for invalid values and returns all validation errors found
func (c *Config) Validate() []ValidationError {
	var errors []ValidationError

	errors = append(errors, c.validateTeam()...)
	errors = append(errors, c.validateAgent()...)
	errors = append(errors, c.validateTmux()...)
	errors = append(errors, c.validateLogging()...)

	return errors
}

// validateTeam validates the TeamConfig
func (c *Config) validateTeam() []ValidationError {
	var errors []ValidationError

	if strings.TrimSpace(c.Team.PersistDir) == "" {
		errors = append(errors, ValidationError{
			Field:   "team.persist_dir",
			Value:   c.Team.PersistDir,
			Message: "cannot be empty",
		})
	} else if strings.ContainsRune(c.Team.PersistDir, '\x00') {
		errors = append(errors, ValidationError{
			Field:   "team.persist_dir",
			Value:   c.Team.PersistDir,
			Message: "path contains invalid null character",
		})
	}

	if strings.TrimSpace(c.Team.LeadName) == "" {
		errors = append(errors, ValidationError{
			Field:   "team.lead_name",
			Value:   c.Team.LeadName,
			Message: "cannot be empty",
		})
	}

	if !slices.Contains(ValidTeammateModes(), c.Team.TeammateMode) {
		errors = append(errors, ValidationError{
			Field:   "team.teammate_mode",
			Value:   c.Team.TeammateMode,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidTeammateModes(), ", ")),
		})
	}

	if !slices.Contains(ValidAssignments(), c.Team.Assignment) {
		errors = append(errors, ValidationError{
			Field:   "team.assignment",
			Value:   c.Team.Assignment,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidAssignments(), ", ")),
		})
	}

	return errors
}

// validateAgent validates the AgentConfig
func (c *Config) validateAgent() []ValidationError {
	var errors []ValidationError

	if strings.TrimSpace(c.Agent.Command) == "" {
		errors = append(errors, ValidationError{
			Field:   "agent.command",
			Value:   c.Agent.Command,
			Message: "cannot be empty",
		})
	}

	if c.Agent.GracefulStopMs < 0 {
		errors = append(errors, ValidationError{
			Field:   "agent.graceful_stop_ms",
			Value:   c.Agent.GracefulStopMs,
			Message: "must be non-negative",
		})
	}

	const maxGracefulStopMs = 60000
	if c.Agent.GracefulStopMs > maxGracefulStopMs {
		errors = append(errors, ValidationError{
			Field:   "agent.graceful_stop_ms",
			Value:   c.Agent.GracefulStopMs,
			Message: fmt.Sprintf("exceeds maximum of %d", maxGracefulStopMs),
		})
	}

	return errors
}

// validateTmux validates the TmuxConfig
func (c *Config) validateTmux() []ValidationError {
	var errors []ValidationError

	if !tmuxNameRegex.MatchString(c.Tmux.Socket) {
		errors = append(errors, ValidationError{
			Field:   "tmux.socket",
			Value:   c.Tmux.Socket,
			Message: "must start with a letter and contain only letters, numbers, hyphens, and underscores",
		})
	}

	if !tmuxNameRegex.MatchString(c.Tmux.Session) {
		errors = append(errors, ValidationError{
			Field:   "tmux.session",
			Value:   c.Tmux.Session,
			Message: "must start with a letter and contain only letters, numbers, hyphens, and underscores",
		})
	}

	return errors
}

// validateLogging validates the LoggingConfig
func (c *Config) validateLogging() []ValidationError {
	var errors []ValidationError

	if c.Logging.Level != "" && !slices.Contains(ValidLogLevels(), c.Logging.Level) {
		errors = append(errors, ValidationError{
			Field:   "logging.level",
			Value:   c.Logging.Level,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidLogLevels(), ", ")),
		})
	}

	if c.Logging.MaxSizeMB <= 0 {
		errors = append(errors, ValidationError{
			Field:   "logging.max_size_mb",
			Value:   c.Logging.MaxSizeMB,
			Message: "must be positive",
		})
	}

	const maxLogSizeMB = 1000 // 1GB
	if c.Logging.MaxSizeMB > maxLogSizeMB {
		errors = append(errors, ValidationError{
			Field:   "logging.max_size_mb",
			Value:   c.Logging.MaxSizeMB,
			Message: fmt.Sprintf("exceeds maximum of %dMB", maxLogSizeMB),
		})
	}

	if c.Logging.MaxBackups < 0 {
		errors = append(errors, ValidationError{
			Field:   "logging.max_backups",
			Value:   c.Logging.MaxBackups,
			Message: "must be non-negative",
		})
	}

	if strings.ContainsRune(c.Logging.Dir, '\x00') {
		errors = append(errors, ValidationError{
			Field:   "logging.dir",
			Value:   c.Logging.Dir,
			Message: "path contains invalid null character",
		})
	}

	return errors
}
