package actions

import (
	"context"
	"encoding/json"
)

// EndCallAction hangs up after draining the current utterance, so the
// agent's last words are never cut off.
type EndCallAction struct{}

// NewEndCallAction creates an end_call action. Takes no arguments.
func NewEndCallAction(json.RawMessage) (Action, error) {
	return &EndCallAction{}, nil
}

// Name returns "end_call".
func (a *EndCallAction) Name() string {
	return "end_call"
}

// Execute waits for the in-flight utterance to finish, then ends the call.
func (a *EndCallAction) Execute(ctx context.Context, call CallContext) (string, error) {
	if !call.Bound() {
		return "", ErrCalleeNotBound
	}

	if utt := call.CurrentUtterance(); utt != nil {
		if err := utt.WaitForPlayout(ctx); err != nil {
			return "", err
		}
	}

	if err := call.Hangup(ctx, "user_requested"); err != nil {
		return "", err
	}
	return "call ended", nil
}
