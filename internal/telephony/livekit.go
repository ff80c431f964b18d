package telephony

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/livekit/protocol/livekit"
	lksdk "github.com/livekit/server-sdk-go/v2"
)

// LiveKitClient implements Client over the LiveKit SIP and RoomService APIs.
type LiveKitClient struct {
	sip     *lksdk.SIPClient
	rooms   *lksdk.RoomServiceClient
	trunkID string
	logger  *slog.Logger
}

// NewLiveKitClient creates a telephony client for the given LiveKit
// deployment. All outbound legs are placed through trunkID.
func NewLiveKitClient(url, apiKey, apiSecret, trunkID string, logger *slog.Logger) *LiveKitClient {
	if logger == nil {
		logger = slog.Default()
	}
	return &LiveKitClient{
		sip:     lksdk.NewSIPClient(url, apiKey, apiSecret),
		rooms:   lksdk.NewRoomServiceClient(url, apiKey, apiSecret),
		trunkID: trunkID,
		logger:  logger,
	}
}

func (c *LiveKitClient) CreateSIPParticipant(ctx context.Context, req CreateParticipantRequest) error {
	c.logger.Info("dialing",
		"room", req.Room,
		"number", req.Number,
		"identity", req.Identity,
		"wait_until_answered", req.WaitUntilAnswered,
	)

	_, err := c.sip.CreateSIPParticipant(ctx, &livekit.CreateSIPParticipantRequest{
		SipTrunkId:          c.trunkID,
		SipCallTo:           req.Number,
		RoomName:            req.Room,
		ParticipantIdentity: req.Identity,
		ParticipantName:     req.Name,
		WaitUntilAnswered:   req.WaitUntilAnswered,
	})
	if err != nil {
		return newDialError(req.Number, err)
	}
	return nil
}

func (c *LiveKitClient) RemoveParticipant(ctx context.Context, room, identity string) error {
	_, err := c.rooms.RemoveParticipant(ctx, &livekit.RoomParticipantIdentity{
		Room:     room,
		Identity: identity,
	})
	if err != nil {
		if isNotFound(err) {
			return nil
		}
		return fmt.Errorf("remove participant %s from %s: %w", identity, room, err)
	}
	return nil
}

func (c *LiveKitClient) DeleteRoom(ctx context.Context, room string) error {
	_, err := c.rooms.DeleteRoom(ctx, &livekit.DeleteRoomRequest{Room: room})
	if err != nil {
		if isNotFound(err) {
			return nil
		}
		return fmt.Errorf("delete room %s: %w", room, err)
	}
	return nil
}

func (c *LiveKitClient) ListParticipants(ctx context.Context, room string) ([]*livekit.ParticipantInfo, error) {
	resp, err := c.rooms.ListParticipants(ctx, &livekit.ListParticipantsRequest{Room: room})
	if err != nil {
		return nil, fmt.Errorf("list participants in %s: %w", room, err)
	}
	return resp.Participants, nil
}
