// Package telephony wraps the dialing and room APIs consumed by the call
// orchestrator. The SIP and media transport layers live behind these calls
// and are not touched directly.
package telephony

import (
	"context"

	"github.com/livekit/protocol/livekit"
)

// CreateParticipantRequest describes one outbound SIP leg.
type CreateParticipantRequest struct {
	// Room is the media room the leg is bridged into.
	Room string
	// Number is the phone number to dial.
	Number string
	// Identity is the participant identity assigned to the dialed party.
	Identity string
	// Name is an optional display name for the participant.
	Name string
	// WaitUntilAnswered makes the call block until the callee answers
	// or the attempt fails.
	WaitUntilAnswered bool
}

// Client is the telephony boundary used by the orchestrator and call actions.
type Client interface {
	// CreateSIPParticipant dials a number into a room. With
	// WaitUntilAnswered set, it returns only once the callee answers;
	// failures carry a *DialError when the API reported a SIP status.
	CreateSIPParticipant(ctx context.Context, req CreateParticipantRequest) error

	// RemoveParticipant removes a participant from a room.
	// Removing an already-gone participant is not an error.
	RemoveParticipant(ctx context.Context, room, identity string) error

	// DeleteRoom deletes a room, disconnecting everyone in it.
	// Deleting an already-deleted room is not an error.
	DeleteRoom(ctx context.Context, room string) error

	// ListParticipants returns the room's current participants.
	ListParticipants(ctx context.Context, room string) ([]*livekit.ParticipantInfo, error)
}
