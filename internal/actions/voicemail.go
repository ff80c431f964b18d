package actions

import (
	"context"
	"encoding/json"
)

// DetectedAnsweringMachineAction hangs up immediately. The agent invokes
// it once it recognizes a voicemail greeting in the transcribed audio; the
// call status monitor never makes this distinction itself.
type DetectedAnsweringMachineAction struct{}

// NewDetectedAnsweringMachineAction creates a detected_answering_machine action.
func NewDetectedAnsweringMachineAction(json.RawMessage) (Action, error) {
	return &DetectedAnsweringMachineAction{}, nil
}

// Name returns "detected_answering_machine".
func (a *DetectedAnsweringMachineAction) Name() string {
	return "detected_answering_machine"
}

// Execute ends the call without waiting for anything to finish playing.
func (a *DetectedAnsweringMachineAction) Execute(ctx context.Context, call CallContext) (string, error) {
	if !call.Bound() {
		return "", ErrCalleeNotBound
	}
	if err := call.Hangup(ctx, "voicemail"); err != nil {
		return "", err
	}
	return "voicemail detected, call ended", nil
}
