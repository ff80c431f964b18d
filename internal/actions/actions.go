// Package actions defines the closed set of call actions the conversational
// agent may invoke mid-dialogue, each a transition against the live call.
package actions

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/varun-revspot/livekit-outbound-caller/internal/agent"
)

// Sentinel errors for error checking with errors.Is
var (
	ErrUnknownAction   = errors.New("unknown action")
	ErrCallTerminated  = errors.New("call already terminated")
	ErrCalleeNotBound  = errors.New("callee participant not bound")
	ErrMissingArgument = errors.New("missing argument")
)

// CallContext is the narrow view of the live call an action executes
// against. Implemented by the orchestrator's call session.
type CallContext interface {
	// Room returns the media room handle.
	Room() string

	// Bound reports whether the callee participant has been bound to the
	// session. Actions that act on the call require binding and fail fast
	// without it.
	Bound() bool

	// TransferTo returns the configured transfer target number, or "".
	TransferTo() string

	// CurrentUtterance returns the utterance being played, or nil.
	CurrentUtterance() *agent.Utterance

	// Say speaks a scripted line and returns once it has finished playing.
	Say(ctx context.Context, instructions string) error

	// DialTransfer dials the transfer target as a new participant,
	// blocking until answered. Returns the identity assigned to the leg.
	DialTransfer(ctx context.Context, number string) (string, error)

	// WaitForParticipant waits for a participant to appear in the room.
	WaitForParticipant(ctx context.Context, identity string) error

	// RemoveAgent removes the agent's own participant from the room.
	RemoveAgent(ctx context.Context) error

	// Hangup ends the call and deletes the room. Idempotent.
	Hangup(ctx context.Context, reason string) error

	// Cede marks the call complete without deleting the room, leaving the
	// remaining participants connected. Used after a successful transfer.
	Cede(reason string)

	// Terminated reports whether the call has reached a terminal state.
	Terminated() bool
}

// Action is a single invocable call action.
type Action interface {
	// Name returns the action identifier the agent invokes it by.
	Name() string

	// Execute runs the action. The returned string is the result fed back
	// to the conversational agent.
	Execute(ctx context.Context, call CallContext) (string, error)
}

// ActionFactory creates an Action from raw JSON arguments.
type ActionFactory func(json.RawMessage) (Action, error)

// Registry manages action registrations and dispatch.
type Registry struct {
	factories map[string]ActionFactory
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]ActionFactory)}
}

// Register adds a factory for the given action name.
// Panics if the name is already registered (fail fast at startup).
func (r *Registry) Register(name string, factory ActionFactory) {
	if _, exists := r.factories[name]; exists {
		panic(fmt.Sprintf("action %q already registered", name))
	}
	r.factories[name] = factory
}

// Dispatch builds and executes the named action against the call.
// No action executes once the call is terminal.
func (r *Registry) Dispatch(ctx context.Context, call CallContext, name string, args json.RawMessage) (string, error) {
	if call.Terminated() {
		return "", fmt.Errorf("%w: %s", ErrCallTerminated, name)
	}

	factory, ok := r.factories[name]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownAction, name)
	}

	action, err := factory(args)
	if err != nil {
		return "", fmt.Errorf("build action %s: %w", name, err)
	}

	return action.Execute(ctx, call)
}

// DefaultRegistry returns a registry with all built-in actions.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register("end_call", NewEndCallAction)
	r.Register("transfer_call", NewTransferCallAction)
	r.Register("look_up_availability", NewLookUpAvailabilityAction)
	r.Register("confirm_appointment", NewConfirmAppointmentAction)
	r.Register("detected_answering_machine", NewDetectedAnsweringMachineAction)
	return r
}

// BoundDispatcher adapts a registry plus a call into the dispatcher
// interface the agent session consumes.
type BoundDispatcher struct {
	registry *Registry
	call     CallContext
}

// Bind ties a registry to one call.
func Bind(registry *Registry, call CallContext) *BoundDispatcher {
	return &BoundDispatcher{registry: registry, call: call}
}

func (d *BoundDispatcher) Dispatch(ctx context.Context, name string, args json.RawMessage) (string, error) {
	return d.registry.Dispatch(ctx, d.call, name, args)
}
