// Package errors provides centralized error definitions and error handling utilities
// for the agentteam codebase. It defines the team error taxonomy, semantic error
// types, error constructors with context wrapping, and error classification helpers.
//
// # Error Types
//
// The package provides two categories of errors:
//
// Domain-specific errors represent errors from specific subsystems:
//   - StorageError: snapshot read/write/decode failures (I/O and serialization)
//   - AgentError: failures spawning or tearing down agents on a backend
//
// Semantic errors represent common error conditions:
//   - NotFoundError: team, agent, task or dependency not found
//   - AlreadyExistsError: duplicate team creation
//   - InvalidOperationError: business-rule violations (claiming a blocked task,
//     shutting down the lead, cleanup with active teammates, ...)
//   - ValidationError: invalid input such as an unusable team name
//
// # Usage
//
// Creating errors:
//
//	err := errors.NewNotFoundError(errors.ResourceTask, "task_123")
//	err := errors.NewInvalidOperationError("claim_task", "task is blocked")
//	err := errors.NewStorageError("write snapshot", errors.ErrSnapshotIO, ioErr).WithPath(p)
//
// Checking errors:
//
//	if errors.Is(err, errors.ErrTaskNotFound) { ... }
//
//	var invalid *errors.InvalidOperationError
//	if errors.As(err, &invalid) { ... }
//
//	if errors.IsUserFacing(err) { ... }
//
// # Error Classification
//
// Business-rule violations are user facing: their text is descriptive enough for
// a language model to correct its arguments and retry. Storage errors are not
// user facing and should be rendered as opaque failures.
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Re-export standard library functions for convenience.
// This allows callers to import only this package for all error handling.
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
	New    = errors.New
	Join   = errors.Join
)

// Severity represents the severity level of an error.
type Severity int

const (
	// SeverityDebug is for errors that are useful for debugging but not critical.
	SeverityDebug Severity = iota
	// SeverityInfo is for informational errors that don't indicate a problem.
	SeverityInfo
	// SeverityWarning is for errors that might indicate a problem but aren't critical.
	SeverityWarning
	// SeverityError is for errors that indicate a real problem.
	SeverityError
	// SeverityCritical is for errors that require immediate attention.
	SeverityCritical
)

// String returns the string representation of the severity level.
func (s Severity) String() string {
	switch s {
	case SeverityDebug:
		return "debug"
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	case SeverityCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// Resource types used by NotFoundError and AlreadyExistsError.
const (
	ResourceTeam       = "team"
	ResourceAgent      = "agent"
	ResourceTask       = "task"
	ResourceDependency = "dependency task"
)

// -----------------------------------------------------------------------------
// Sentinel Errors
// -----------------------------------------------------------------------------

// Team-related sentinel errors
var (
	// ErrTeamNotFound indicates that no team aggregate is resident or on disk.
	ErrTeamNotFound = New("team not found")
	// ErrTeamExists indicates that a team aggregate already exists.
	ErrTeamExists = New("team already exists")
	// ErrAgentNotFound indicates that no agent matches an id or name.
	ErrAgentNotFound = New("agent not found")
	// ErrTaskNotFound indicates that a task could not be found.
	ErrTaskNotFound = New("task not found")
	// ErrDependencyNotFound indicates that a task references an unknown dependency.
	ErrDependencyNotFound = New("dependency not found")
	// ErrInvalidOperation indicates a business-rule violation.
	ErrInvalidOperation = New("invalid operation")
)

// Storage-related sentinel errors
var (
	// ErrSnapshotIO indicates that a snapshot could not be read, written or removed.
	ErrSnapshotIO = New("snapshot i/o failed")
	// ErrSnapshotCorrupted indicates that a snapshot could not be decoded.
	ErrSnapshotCorrupted = New("snapshot data corrupted")
)

// Agent backend sentinel errors
var (
	// ErrSpawnFailed indicates that a backend failed to spawn an agent or pane.
	ErrSpawnFailed = New("agent spawn failed")
	// ErrUnknownHandle indicates that a backend does not know an execution handle.
	ErrUnknownHandle = New("unknown execution handle")
)

// General sentinel errors
var (
	// ErrInvalidInput indicates that input validation failed.
	ErrInvalidInput = New("invalid input")
)

var notFoundSentinels = map[string]error{
	ResourceTeam:       ErrTeamNotFound,
	ResourceAgent:      ErrAgentNotFound,
	ResourceTask:       ErrTaskNotFound,
	ResourceDependency: ErrDependencyNotFound,
}

// -----------------------------------------------------------------------------
// Base Error Interface
// -----------------------------------------------------------------------------

// TeamError is the base interface for all agentteam errors.
// It extends the standard error interface with additional methods for
// error handling and classification.
type TeamError interface {
	error

	// Unwrap returns the underlying error, if any.
	Unwrap() error

	// Is reports whether this error matches the target error.
	// This is used by errors.Is() for error comparison.
	Is(target error) bool

	// Severity returns the severity level of this error.
	Severity() Severity

	// IsRetryable returns true if the error is transient and the operation
	// may succeed on retry.
	IsRetryable() bool

	// IsUserFacing returns true if the error message is safe to display
	// to end users.
	IsUserFacing() bool
}

// -----------------------------------------------------------------------------
// Base Error Implementation
// -----------------------------------------------------------------------------

// baseError provides common functionality for all error types.
type baseError struct {
	message    string
	cause      error
	severity   Severity
	retryable  bool
	userFacing bool
}

// Error returns the error message.
func (e *baseError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.message, e.cause)
	}
	return e.message
}

// Unwrap returns the underlying error.
func (e *baseError) Unwrap() error {
	return e.cause
}

// Is checks if this error matches the target.
func (e *baseError) Is(target error) bool {
	if e.cause != nil {
		return errors.Is(e.cause, target)
	}
	return false
}

// Severity returns the error severity.
func (e *baseError) Severity() Severity {
	return e.severity
}

// IsRetryable returns whether the error is retryable.
func (e *baseError) IsRetryable() bool {
	return e.retryable
}

// IsUserFacing returns whether the error is safe to show users.
func (e *baseError) IsUserFacing() bool {
	return e.userFacing
}

// -----------------------------------------------------------------------------
// Domain-Specific Errors
// -----------------------------------------------------------------------------

// StorageError represents a failure reading, writing, removing or decoding a
// team snapshot. The kind is either ErrSnapshotIO or ErrSnapshotCorrupted.
//
// Example:
//
//	err := errors.NewStorageError("write snapshot", errors.ErrSnapshotIO, ioErr)
//	err = err.WithPath("/tmp/teams/proj.json")
//	fmt.Println(err) // "storage error [path=/tmp/teams/proj.json]: write snapshot: ..."
type StorageError struct {
	baseError
	kind error
	Path string
}

// NewStorageError creates a new StorageError of the given kind.
func NewStorageError(message string, kind, cause error) *StorageError {
	return &StorageError{
		baseError: baseError{
			message:    message,
			cause:      cause,
			severity:   SeverityError,
			retryable:  false,
			userFacing: false,
		},
		kind: kind,
	}
}

// WithPath adds the snapshot path to the error context.
func (e *StorageError) WithPath(path string) *StorageError {
	e.Path = path
	return e
}

// Kind returns ErrSnapshotIO or ErrSnapshotCorrupted.
func (e *StorageError) Kind() error {
	return e.kind
}

// Error returns the formatted error message.
func (e *StorageError) Error() string {
	prefix := "storage error"
	if e.Path != "" {
		prefix = fmt.Sprintf("storage error [path=%s]", e.Path)
	}
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.message)
}

// Is checks if this error matches the target.
func (e *StorageError) Is(target error) bool {
	if _, ok := target.(*StorageError); ok {
		return true
	}
	if e.kind != nil && target == e.kind {
		return true
	}
	return e.baseError.Is(target)
}

// AgentError represents a failure on an agent-execution or pane backend.
//
// Example:
//
//	err := errors.NewAgentError("failed to spawn teammate", backendErr).
//		WithAgent("reviewer").WithTeam("proj").WithRolledBack(true)
type AgentError struct {
	baseError
	AgentName  string
	TeamName   string
	RolledBack bool
}

// NewAgentError creates a new AgentError.
func NewAgentError(message string, cause error) *AgentError {
	return &AgentError{
		baseError: baseError{
			message:    message,
			cause:      cause,
			severity:   SeverityError,
			retryable:  false,
			userFacing: true,
		},
	}
}

// WithAgent adds the agent name to the error context.
func (e *AgentError) WithAgent(name string) *AgentError {
	e.AgentName = name
	return e
}

// WithTeam adds the team name to the error context.
func (e *AgentError) WithTeam(name string) *AgentError {
	e.TeamName = name
	return e
}

// WithRolledBack records whether the surrounding team creation was rolled back.
func (e *AgentError) WithRolledBack(rolledBack bool) *AgentError {
	e.RolledBack = rolledBack
	return e
}

// Error returns the formatted error message.
func (e *AgentError) Error() string {
	var parts []string
	if e.AgentName != "" {
		parts = append(parts, fmt.Sprintf("agent=%s", e.AgentName))
	}
	if e.TeamName != "" {
		parts = append(parts, fmt.Sprintf("team=%s", e.TeamName))
	}

	prefix := "agent error"
	if len(parts) > 0 {
		prefix = fmt.Sprintf("agent error [%s]", strings.Join(parts, ", "))
	}

	msg := e.message
	if e.cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.cause)
	}
	if e.RolledBack {
		msg = fmt.Sprintf("%s; team %q was rolled back", msg, e.TeamName)
	}
	return fmt.Sprintf("%s: %s", prefix, msg)
}

// Is checks if this error matches the target.
func (e *AgentError) Is(target error) bool {
	if _, ok := target.(*AgentError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// -----------------------------------------------------------------------------
// Semantic Errors
// -----------------------------------------------------------------------------

// NotFoundError represents a resource that could not be found.
// It matches the sentinel for its resource type, so
// errors.Is(NewNotFoundError(ResourceTask, "x"), ErrTaskNotFound) is true.
//
// Example:
//
//	err := errors.NewNotFoundError(errors.ResourceAgent, "reviewer")
//	fmt.Println(err) // "agent 'reviewer' not found"
type NotFoundError struct {
	baseError
	ResourceType string
	ResourceID   string
}

// NewNotFoundError creates a new NotFoundError.
func NewNotFoundError(resourceType, resourceID string) *NotFoundError {
	return &NotFoundError{
		baseError: baseError{
			message:    fmt.Sprintf("%s '%s' not found", resourceType, resourceID),
			severity:   SeverityWarning,
			retryable:  false,
			userFacing: true,
		},
		ResourceType: resourceType,
		ResourceID:   resourceID,
	}
}

// WithCause adds a cause to the error.
func (e *NotFoundError) WithCause(cause error) *NotFoundError {
	e.cause = cause
	return e
}

// Error returns the formatted error message.
func (e *NotFoundError) Error() string {
	if e.ResourceID == "" {
		if e.cause != nil {
			return fmt.Sprintf("no %s found: %v", e.ResourceType, e.cause)
		}
		return fmt.Sprintf("no %s found", e.ResourceType)
	}
	if e.cause != nil {
		return fmt.Sprintf("%s '%s' not found: %v", e.ResourceType, e.ResourceID, e.cause)
	}
	return fmt.Sprintf("%s '%s' not found", e.ResourceType, e.ResourceID)
}

// Is checks if this error matches the target.
func (e *NotFoundError) Is(target error) bool {
	if _, ok := target.(*NotFoundError); ok {
		return true
	}
	if sentinel, ok := notFoundSentinels[e.ResourceType]; ok && target == sentinel {
		return true
	}
	return e.baseError.Is(target)
}

// AlreadyExistsError represents a resource that already exists.
//
// Example:
//
//	err := errors.NewAlreadyExistsError("team", "proj")
//	fmt.Println(err) // "team 'proj' already exists"
type AlreadyExistsError struct {
	baseError
	ResourceType string
	ResourceID   string
}

// NewAlreadyExistsError creates a new AlreadyExistsError.
func NewAlreadyExistsError(resourceType, resourceID string) *AlreadyExistsError {
	return &AlreadyExistsError{
		baseError: baseError{
			message:    fmt.Sprintf("%s '%s' already exists", resourceType, resourceID),
			severity:   SeverityWarning,
			retryable:  false,
			userFacing: true,
		},
		ResourceType: resourceType,
		ResourceID:   resourceID,
	}
}

// WithCause adds a cause to the error.
func (e *AlreadyExistsError) WithCause(cause error) *AlreadyExistsError {
	e.cause = cause
	return e
}

// Error returns the formatted error message.
func (e *AlreadyExistsError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s '%s' already exists: %v", e.ResourceType, e.ResourceID, e.cause)
	}
	return fmt.Sprintf("%s '%s' already exists", e.ResourceType, e.ResourceID)
}

// Is checks if this error matches the target.
func (e *AlreadyExistsError) Is(target error) bool {
	if _, ok := target.(*AlreadyExistsError); ok {
		return true
	}
	if e.ResourceType == ResourceTeam && target == ErrTeamExists {
		return true
	}
	return e.baseError.Is(target)
}

// InvalidOperationError represents a business-rule violation. Subjects names
// the entities responsible, e.g. the teammates still active when cleanup is
// attempted.
//
// Example:
//
//	err := errors.NewInvalidOperationError("cleanup", "teammates are still active").
//		WithSubjects("reviewer", "tester")
//	fmt.Println(err) // "cannot cleanup: teammates are still active: reviewer, tester"
type InvalidOperationError struct {
	baseError
	Operation string
	Reason    string
	Subjects  []string
}

// NewInvalidOperationError creates a new InvalidOperationError.
func NewInvalidOperationError(operation, reason string) *InvalidOperationError {
	return &InvalidOperationError{
		baseError: baseError{
			message:    reason,
			severity:   SeverityWarning,
			retryable:  false,
			userFacing: true,
		},
		Operation: operation,
		Reason:    reason,
	}
}

// WithSubjects records the names of the entities that block the operation.
func (e *InvalidOperationError) WithSubjects(subjects ...string) *InvalidOperationError {
	e.Subjects = append(e.Subjects, subjects...)
	return e
}

// Error returns the formatted error message.
func (e *InvalidOperationError) Error() string {
	msg := e.Reason
	if e.Operation != "" {
		msg = fmt.Sprintf("cannot %s: %s", e.Operation, e.Reason)
	}
	if len(e.Subjects) > 0 {
		msg = fmt.Sprintf("%s: %s", msg, strings.Join(e.Subjects, ", "))
	}
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", msg, e.cause)
	}
	return msg
}

// Is checks if this error matches the target.
func (e *InvalidOperationError) Is(target error) bool {
	if _, ok := target.(*InvalidOperationError); ok {
		return true
	}
	if target == ErrInvalidOperation {
		return true
	}
	return e.baseError.Is(target)
}

// ValidationError represents invalid input or state.
//
// Example:
//
//	err := errors.NewValidationError("team name must not be empty")
//	err = err.WithField("team_name").WithValue("")
type ValidationError struct {
	baseError
	Field string
	Value any
}

// NewValidationError creates a new ValidationError.
func NewValidationError(message string) *ValidationError {
	return &ValidationError{
		baseError: baseError{
			message:    message,
			severity:   SeverityWarning,
			retryable:  false,
			userFacing: true,
		},
	}
}

// WithField adds a field name to the error context.
func (e *ValidationError) WithField(field string) *ValidationError {
	e.Field = field
	return e
}

// WithValue adds the invalid value to the error context.
func (e *ValidationError) WithValue(value any) *ValidationError {
	e.Value = value
	return e
}

// WithCause adds a cause to the error.
func (e *ValidationError) WithCause(cause error) *ValidationError {
	e.cause = cause
	return e
}

// Error returns the formatted error message.
func (e *ValidationError) Error() string {
	var parts []string
	if e.Field != "" {
		parts = append(parts, fmt.Sprintf("field=%s", e.Field))
	}
	if e.Value != nil {
		parts = append(parts, fmt.Sprintf("value=%q", fmt.Sprint(e.Value)))
	}

	prefix := "validation error"
	if len(parts) > 0 {
		prefix = fmt.Sprintf("validation error [%s]", strings.Join(parts, ", "))
	}

	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.message)
}

// Is checks if this error matches the target.
func (e *ValidationError) Is(target error) bool {
	if _, ok := target.(*ValidationError); ok {
		return true
	}
	if errors.Is(target, ErrInvalidInput) {
		return true
	}
	return e.baseError.Is(target)
}

// -----------------------------------------------------------------------------
// Error Classification Helpers
// -----------------------------------------------------------------------------

// IsRetryable returns true if the error represents a transient condition
// that may succeed on retry. Nothing in the team core is retryable on its
// own; the helper exists so callers can treat every error uniformly.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var teamErr TeamError
	if As(err, &teamErr) {
		return teamErr.IsRetryable()
	}
	return false
}

// IsUserFacing returns true if the error message is safe to display to end users.
// This checks for:
//   - Errors implementing TeamError with IsUserFacing() returning true
//   - Semantic errors (NotFoundError, AlreadyExistsError, InvalidOperationError, ValidationError)
//
// Example:
//
//	if errors.IsUserFacing(err) {
//	    return err.Error()
//	}
//	return "internal error: operation failed"
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}

	var teamErr TeamError
	if As(err, &teamErr) {
		return teamErr.IsUserFacing()
	}

	return IsSemanticError(err)
}

// GetSeverity returns the severity level of the error.
// Returns SeverityError for errors that don't implement TeamError.
func GetSeverity(err error) Severity {
	if err == nil {
		return SeverityDebug
	}

	var teamErr TeamError
	if As(err, &teamErr) {
		return teamErr.Severity()
	}

	return SeverityError
}

// IsDomainError returns true if the error is a domain-specific error
// (StorageError or AgentError).
func IsDomainError(err error) bool {
	if err == nil {
		return false
	}

	var storageErr *StorageError
	var agentErr *AgentError

	return As(err, &storageErr) || As(err, &agentErr)
}

// IsSemanticError returns true if the error is a semantic error
// (NotFoundError, AlreadyExistsError, InvalidOperationError, or ValidationError).
func IsSemanticError(err error) bool {
	if err == nil {
		return false
	}

	var notFound *NotFoundError
	var alreadyExists *AlreadyExistsError
	var invalid *InvalidOperationError
	var validation *ValidationError

	return As(err, &notFound) || As(err, &alreadyExists) ||
		As(err, &invalid) || As(err, &validation)
}

// -----------------------------------------------------------------------------
// Convenience Constructors
// -----------------------------------------------------------------------------

// Wrap wraps an error with additional context message.
// Unlike fmt.Errorf with %w, this returns nil for a nil error.
//
// Example:
//
//	err := errors.Wrap(baseErr, "failed to load team")
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with a formatted context message.
//
// Example:
//
//	err := errors.Wrapf(baseErr, "failed to spawn %s", name)
func Wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}
