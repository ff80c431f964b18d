package actions

import (
	"context"
	"encoding/json"
	"log/slog"
)

const (
	transferNotice  = "Let the caller know you will transfer them to a human agent now, and ask them to hold for a moment."
	transferApology = "Apologize to the caller that the transfer could not be completed right now, and say goodbye."
)

// TransferCallAction hands the callee off to a human agent: it speaks a
// transfer notice, dials the transfer target, waits for them to join, then
// removes the agent's own participant to cede the call.
//
// The notice must finish before dialing, because dialing can take seconds
// and the callee must not sit in silence. The agent leaves only after the
// transfer target has joined, so there is never a gap with nobody present.
type TransferCallAction struct{}

// NewTransferCallAction creates a transfer_call action. The transfer
// target comes from the job input, not from arguments.
func NewTransferCallAction(json.RawMessage) (Action, error) {
	return &TransferCallAction{}, nil
}

// Name returns "transfer_call".
func (a *TransferCallAction) Name() string {
	return "transfer_call"
}

// Execute performs the handoff. Any failure while establishing the
// transfer leg is recovered locally: one apology, one hangup. The callee
// is never left connected to a half-failed transfer.
func (a *TransferCallAction) Execute(ctx context.Context, call CallContext) (string, error) {
	if !call.Bound() {
		return "", ErrCalleeNotBound
	}

	target := call.TransferTo()
	if target == "" {
		return "cannot transfer call", nil
	}

	if err := call.Say(ctx, transferNotice); err != nil {
		slog.Warn("transfer notice failed", "error", err)
	}

	err := a.handoff(ctx, call, target)
	if err == nil {
		call.Cede("transfer")
		return "call transferred", nil
	}

	slog.Warn("transfer failed", "target", target, "error", err)

	if sayErr := call.Say(ctx, transferApology); sayErr != nil {
		slog.Warn("transfer apology failed", "error", sayErr)
	}
	if hangErr := call.Hangup(ctx, "transfer_failed"); hangErr != nil {
		return "", hangErr
	}
	return "could not transfer call, call ended", nil
}

func (a *TransferCallAction) handoff(ctx context.Context, call CallContext, target string) error {
	identity, err := call.DialTransfer(ctx, target)
	if err != nil {
		return err
	}
	if err := call.WaitForParticipant(ctx, identity); err != nil {
		return err
	}
	return call.RemoveAgent(ctx)
}
