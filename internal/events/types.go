// Package events provides call lifecycle event definitions and publishing
// infrastructure. Events are transport-agnostic; publishers range from
// logging (development) to in-memory channels (tests, local processing).
package events

import (
	"time"
)

// EventType identifies the type of call event
type EventType string

const (
	// CallDialing fires when the outbound dial request is issued
	CallDialing EventType = "call.dialing"
	// CallRinging fires when the callee's status first reports ringing
	CallRinging EventType = "call.ringing"
	// CallAnswered fires when the callee answers and the agent is bound
	CallAnswered EventType = "call.answered"
	// CallAutomation fires when the callee status reports phone-tree navigation
	CallAutomation EventType = "call.automation"
	// CallVoicemail fires when the agent recognizes an answering machine
	CallVoicemail EventType = "call.voicemail"
	// CallTransferred fires when a mid-call handoff to a human completes
	CallTransferred EventType = "call.transferred"
	// CallEnded fires when the call terminates (any reason)
	CallEnded EventType = "call.ended"
)

// EndReason explains why a call ended
type EndReason string

const (
	EndReasonNormal     EndReason = "normal"      // end_call action or callee hangup after talking
	EndReasonHangup     EndReason = "hangup"      // callee disconnected before the conversation
	EndReasonNoAnswer   EndReason = "no_answer"   // answer-wait bound elapsed
	EndReasonDialFailed EndReason = "dial_failed" // dial rejected at the protocol layer
	EndReasonVoicemail  EndReason = "voicemail"   // answering machine detected
	EndReasonTransfer   EndReason = "transfer"    // call ceded to a transfer target
	EndReasonError      EndReason = "error"       // internal error during call setup
)

// Event is the base interface for all call events
type Event interface {
	// Type returns the event type for routing/filtering
	Type() EventType
	// Subject returns the subject this event should publish to
	Subject() string
	// Timestamp returns when the event occurred
	Timestamp() time.Time
	// CallID returns the primary correlation ID
	CallID() string
}

// BaseEvent contains fields common to all events
type BaseEvent struct {
	// EventID is a unique identifier for this event instance
	EventID string `json:"event_id"`
	// EventType identifies the event
	EventType EventType `json:"event_type"`
	// EventTime is when the event occurred
	EventTime time.Time `json:"event_time"`
	// CallUUID is the unique call identifier (also the room name suffix)
	CallUUID string `json:"call_uuid"`
	// Room is the media room created for the call
	Room string `json:"room"`
	// NodeID identifies the worker instance
	NodeID string `json:"node_id,omitempty"`
}

func (e *BaseEvent) Type() EventType      { return e.EventType }
func (e *BaseEvent) Timestamp() time.Time { return e.EventTime }
func (e *BaseEvent) CallID() string       { return e.CallUUID }

// Subject returns the subject for routing.
// Format: caller.calls.<call_uuid>.<event_type_suffix>
func (e *BaseEvent) Subject() string {
	suffix := string(e.EventType)[5:] // strip "call." prefix
	return "caller.calls." + e.CallUUID + "." + suffix
}

// CallDialingEvent records the start of an outbound dial attempt.
type CallDialingEvent struct {
	BaseEvent
	Number     string `json:"number"`
	TrunkID    string `json:"trunk_id,omitempty"`
	Identity   string `json:"identity"`
	TransferTo string `json:"transfer_to,omitempty"`
}

// CallRingingEvent records the first ringing observation.
type CallRingingEvent struct {
	BaseEvent
}

// CallAutomationEvent records a phone-tree (DTMF) navigation observation.
type CallAutomationEvent struct {
	BaseEvent
}

// CallAnsweredEvent records the callee picking up and the agent binding.
type CallAnsweredEvent struct {
	BaseEvent
	Identity   string `json:"identity"`
	AnswerWait int64  `json:"answer_wait_ms"` // dial to answer, milliseconds
}

// CallVoicemailEvent records an answering machine detection by the agent.
type CallVoicemailEvent struct {
	BaseEvent
}

// CallTransferredEvent records a completed handoff to a human agent.
type CallTransferredEvent struct {
	BaseEvent
	TransferTo string `json:"transfer_to"`
	Identity   string `json:"identity"`
}

// CallEndedEvent records call termination. Emitted exactly once per call.
type CallEndedEvent struct {
	BaseEvent
	Reason        EndReason `json:"reason"`
	Detail        string    `json:"detail,omitempty"`
	SIPStatusCode int       `json:"sip_status_code,omitempty"`
	SIPStatus     string    `json:"sip_status,omitempty"`
	TalkDuration  int64     `json:"talk_duration_ms,omitempty"`
	TotalDuration int64     `json:"total_duration_ms"`
}
