package events

import (
	"time"

	"github.com/google/uuid"
)

// Builder provides fluent construction of call events with consistent defaults.
type Builder struct {
	nodeID string
}

// NewBuilder creates an event builder with global defaults.
func NewBuilder(nodeID string) *Builder {
	return &Builder{nodeID: nodeID}
}

// newBase creates a BaseEvent with common fields populated.
func (b *Builder) newBase(eventType EventType, callUUID, room string) BaseEvent {
	return BaseEvent{
		EventID:   uuid.New().String(),
		EventType: eventType,
		EventTime: time.Now().UTC(),
		CallUUID:  callUUID,
		Room:      room,
		NodeID:    b.nodeID,
	}
}

// CallDialingBuilder constructs CallDialingEvent.
type CallDialingBuilder struct {
	event *CallDialingEvent
}

// CallDialing starts building a CallDialingEvent.
func (b *Builder) CallDialing(callUUID, room string) *CallDialingBuilder {
	return &CallDialingBuilder{
		event: &CallDialingEvent{BaseEvent: b.newBase(CallDialing, callUUID, room)},
	}
}

func (cb *CallDialingBuilder) Number(number string) *CallDialingBuilder {
	cb.event.Number = number
	return cb
}

func (cb *CallDialingBuilder) Trunk(trunkID string) *CallDialingBuilder {
	cb.event.TrunkID = trunkID
	return cb
}

func (cb *CallDialingBuilder) Identity(identity string) *CallDialingBuilder {
	cb.event.Identity = identity
	return cb
}

func (cb *CallDialingBuilder) TransferTo(number string) *CallDialingBuilder {
	cb.event.TransferTo = number
	return cb
}

func (cb *CallDialingBuilder) Build() *CallDialingEvent {
	return cb.event
}

// CallRinging builds a CallRingingEvent.
func (b *Builder) CallRinging(callUUID, room string) *CallRingingEvent {
	return &CallRingingEvent{BaseEvent: b.newBase(CallRinging, callUUID, room)}
}

// CallAutomation builds a CallAutomationEvent.
func (b *Builder) CallAutomation(callUUID, room string) *CallAutomationEvent {
	return &CallAutomationEvent{BaseEvent: b.newBase(CallAutomation, callUUID, room)}
}

// CallAnsweredBuilder constructs CallAnsweredEvent.
type CallAnsweredBuilder struct {
	event *CallAnsweredEvent
}

// CallAnswered starts building a CallAnsweredEvent.
func (b *Builder) CallAnswered(callUUID, room string) *CallAnsweredBuilder {
	return &CallAnsweredBuilder{
		event: &CallAnsweredEvent{BaseEvent: b.newBase(CallAnswered, callUUID, room)},
	}
}

func (cb *CallAnsweredBuilder) Identity(identity string) *CallAnsweredBuilder {
	cb.event.Identity = identity
	return cb
}

func (cb *CallAnsweredBuilder) AnswerWait(d time.Duration) *CallAnsweredBuilder {
	cb.event.AnswerWait = d.Milliseconds()
	return cb
}

func (cb *CallAnsweredBuilder) Build() *CallAnsweredEvent {
	return cb.event
}

// CallVoicemail builds a CallVoicemailEvent.
func (b *Builder) CallVoicemail(callUUID, room string) *CallVoicemailEvent {
	return &CallVoicemailEvent{BaseEvent: b.newBase(CallVoicemail, callUUID, room)}
}

// CallTransferredBuilder constructs CallTransferredEvent.
type CallTransferredBuilder struct {
	event *CallTransferredEvent
}

// CallTransferred starts building a CallTransferredEvent.
func (b *Builder) CallTransferred(callUUID, room string) *CallTransferredBuilder {
	return &CallTransferredBuilder{
		event: &CallTransferredEvent{BaseEvent: b.newBase(CallTransferred, callUUID, room)},
	}
}

func (cb *CallTransferredBuilder) Target(number, identity string) *CallTransferredBuilder {
	cb.event.TransferTo = number
	cb.event.Identity = identity
	return cb
}

func (cb *CallTransferredBuilder) Build() *CallTransferredEvent {
	return cb.event
}

// CallEndedBuilder constructs CallEndedEvent.
type CallEndedBuilder struct {
	event *CallEndedEvent
}

// CallEnded starts building a CallEndedEvent.
func (b *Builder) CallEnded(callUUID, room string) *CallEndedBuilder {
	return &CallEndedBuilder{
		event: &CallEndedEvent{BaseEvent: b.newBase(CallEnded, callUUID, room)},
	}
}

func (cb *CallEndedBuilder) Reason(reason EndReason, detail string) *CallEndedBuilder {
	cb.event.Reason = reason
	cb.event.Detail = detail
	return cb
}

func (cb *CallEndedBuilder) SIPStatus(code int, status string) *CallEndedBuilder {
	cb.event.SIPStatusCode = code
	cb.event.SIPStatus = status
	return cb
}

func (cb *CallEndedBuilder) Durations(talk, total time.Duration) *CallEndedBuilder {
	cb.event.TalkDuration = talk.Milliseconds()
	cb.event.TotalDuration = total.Milliseconds()
	return cb
}

func (cb *CallEndedBuilder) Build() *CallEndedEvent {
	return cb.event
}
