package toolbridge

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/invopop/jsonschema"

	"github.com/Iron-Ham/agentteam/internal/errors"
	"github.com/Iron-Ham/agentteam/internal/lifecycle"
	"github.com/Iron-Ham/agentteam/internal/logging"
	"github.com/Iron-Ham/agentteam/internal/team"
)

// Tool is a typed tool. T is decoded from the raw JSON arguments and its
// struct tags define the input schema.
type Tool[T any] interface {
	Name() string
	Description() string
	Execute(ctx context.Context, input T) (*Result, error)
}

// Result is the output of a tool call.
type Result struct {
	Text    string `json:"text"`
	IsError bool   `json:"is_error,omitempty"`
}

// TextResult returns a successful result.
func TextResult(text string) *Result {
	return &Result{Text: text}
}

// ErrorResult returns a failed result.
func ErrorResult(text string) *Result {
	return &Result{Text: text, IsError: true}
}

// Definition describes a tool for discovery.
type Definition struct {
	Name        string             `json:"name"`
	Description string             `json:"description"`
	InputSchema *jsonschema.Schema `json:"input_schema"`
}

type entry struct {
	def     Definition
	execute func(ctx context.Context, raw json.RawMessage) (*Result, error)
}

// Option configures a Bridge.
type Option func(*Bridge)

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(b *Bridge) { b.logger = l.WithComponent("toolbridge") }
}

// WithLeadName sets the lead name used by team_create.
func WithLeadName(name string) Option {
	return func(b *Bridge) { b.leadName = name }
}

// Bridge dispatches tool calls to the coordinator and store. caller is the
// execution handle of whoever is invoking the tools; it is bound as the
// lead on team_create and checked on team_cleanup.
type Bridge struct {
	coord    *lifecycle.Coordinator
	store    *team.Store
	caller   team.Handle
	leadName string
	logger   *logging.Logger

	mu    sync.RWMutex
	tools map[string]*entry
	order []string
}

// New creates a Bridge with every team tool registered.
func New(coord *lifecycle.Coordinator, caller team.Handle, opts ...Option) *Bridge {
	b := &Bridge{
		coord:    coord,
		store:    coord.Store(),
		caller:   caller,
		leadName: lifecycle.DefaultLeadName,
		logger:   logging.NopLogger(),
		tools:    make(map[string]*entry),
	}
	for _, opt := range opts {
		opt(b)
	}

	register[CreateInput](b, &createTool{b})
	register[AddAgentInput](b, &addAgentTool{b})
	register[AddTaskInput](b, &addTaskTool{b})
	register[ClaimTaskInput](b, &claimTaskTool{b})
	register[CompleteTaskInput](b, &completeTaskTool{b})
	register[ListTasksInput](b, &listTasksTool{b})
	register[SendMessageInput](b, &sendMessageTool{b})
	register[BroadcastInput](b, &broadcastTool{b})
	register[ListMessagesInput](b, &listMessagesTool{b})
	register[CleanupInput](b, &cleanupTool{b})
	return b
}

// inputSchema reflects T into an inline object schema.
func inputSchema[T any]() *jsonschema.Schema {
	r := &jsonschema.Reflector{
		DoNotReference:            true,
		ExpandedStruct:            true,
		AllowAdditionalProperties: false,
	}
	var zero T
	s := r.Reflect(&zero)
	s.Version = ""
	s.ID = ""
	return s
}

func register[T any](b *Bridge, tool Tool[T]) {
	e := &entry{
		def: Definition{
			Name:        tool.Name(),
			Description: tool.Description(),
			InputSchema: inputSchema[T](),
		},
		execute: func(ctx context.Context, raw json.RawMessage) (*Result, error) {
			var input T
			if len(raw) > 0 && string(raw) != "null" {
				if err := json.Unmarshal(raw, &input); err != nil {
					return ErrorResult(fmt.Sprintf("invalid input: %s", err.Error())), nil
				}
			}
			return tool.Execute(ctx, input)
		},
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if _, exists := b.tools[e.def.Name]; !exists {
		b.order = append(b.order, e.def.Name)
	}
	b.tools[e.def.Name] = e
}

// Definitions returns every tool in registration order.
func (b *Bridge) Definitions() []Definition {
	b.mu.RLock()
	defer b.mu.RUnlock()
	defs := make([]Definition, 0, len(b.order))
	for _, name := range b.order {
		defs = append(defs, b.tools[name].def)
	}
	return defs
}

// Names returns the tool names in registration order.
func (b *Bridge) Names() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]string(nil), b.order...)
}

// Execute runs the named tool. An unknown tool is a Go error; failures of a
// known tool are reported in the Result.
func (b *Bridge) Execute(ctx context.Context, name string, raw json.RawMessage) (*Result, error) {
	b.mu.RLock()
	e, ok := b.tools[name]
	b.mu.RUnlock()
	if !ok {
		return nil, errors.NewNotFoundError("tool", name).
			WithCause(fmt.Errorf("known tools: %v%s", b.Names(), didYouMean(name, b.Names())))
	}

	res, err := e.execute(ctx, raw)
	if err != nil {
		return nil, err
	}
	if res.IsError {
		b.logger.Debug("tool returned error", "tool", name, "text", res.Text)
	}
	return res, nil
}

// failure renders err for the model. User-facing errors are returned
// verbatim with an optional hint; anything else is opaque.
func (b *Bridge) failure(tool string, err error, hint string) *Result {
	if !errors.IsUserFacing(err) {
		b.logger.Error("tool failed", "tool", tool, "error", err.Error())
		return ErrorResult(fmt.Sprintf("internal error: %s failed; the team state could not be read or written", tool))
	}
	return ErrorResult(err.Error() + hint)
}

// jsonResult renders v as indented JSON.
func jsonResult(v any) (*Result, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode tool result: %w", err)
	}
	return TextResult(string(data)), nil
}
