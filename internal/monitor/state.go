// Package monitor classifies a callee participant's reported call status
// and drives the polling loop that feeds status changes to the orchestrator.
package monitor

import (
	"github.com/livekit/protocol/livekit"
)

// CallState is the call lifecycle state derived from the callee
// participant's reported attributes.
type CallState int

const (
	// StatePending means no status has been reported yet.
	StatePending CallState = iota
	// StateRinging means the dial is in progress.
	StateRinging
	// StateAutomation means a phone tree is being navigated (DTMF
	// extension dialing). Informational; not a failure.
	StateAutomation
	// StateActive means a human or voicemail system has answered.
	// Which of the two it is gets decided later by the agent.
	StateActive
	// StateHangup means the callee disconnected.
	StateHangup
	// StateFailed means the dial attempt errored at the protocol layer.
	StateFailed
)

func (s CallState) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateRinging:
		return "ringing"
	case StateAutomation:
		return "automation"
	case StateActive:
		return "active"
	case StateHangup:
		return "hangup"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further status transitions can follow.
// Active is terminal for the answer-wait phase: once observed, waiting ends
// and the conversation proceeds.
func (s CallState) Terminal() bool {
	return s == StateActive || s == StateHangup || s == StateFailed
}

// Ended reports whether the call is over.
func (s CallState) Ended() bool {
	return s == StateHangup || s == StateFailed
}

// Classify derives the call state from a participant attribute snapshot.
// Pure function; unknown or absent status values map to pending.
func Classify(attrs map[string]string) CallState {
	switch attrs[livekit.AttrSIPCallStatus] {
	case "dialing", "ringing":
		return StateRinging
	case "automation":
		return StateAutomation
	case "active":
		return StateActive
	case "hangup":
		return StateHangup
	case "error", "failed":
		return StateFailed
	default:
		return StatePending
	}
}
