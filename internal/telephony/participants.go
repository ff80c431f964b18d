package telephony

import (
	"context"
	"fmt"
	"time"

	"github.com/livekit/protocol/livekit"
)

// GetParticipant returns the participant with the given identity, or
// ErrParticipantNotFound if they are not in the room.
func GetParticipant(ctx context.Context, c Client, room, identity string) (*livekit.ParticipantInfo, error) {
	participants, err := c.ListParticipants(ctx, room)
	if err != nil {
		return nil, err
	}
	for _, p := range participants {
		if p.Identity == identity {
			return p, nil
		}
	}
	return nil, fmt.Errorf("%w: %s in %s", ErrParticipantNotFound, identity, room)
}

// WaitForParticipant polls room membership until the participant with the
// given identity appears, the context is cancelled, or its deadline elapses.
func WaitForParticipant(ctx context.Context, c Client, room, identity string, interval time.Duration) (*livekit.ParticipantInfo, error) {
	if interval <= 0 {
		interval = 250 * time.Millisecond
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		p, err := GetParticipant(ctx, c, room, identity)
		if err == nil {
			return p, nil
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("wait for participant %s: %w", identity, ctx.Err())
		case <-ticker.C:
		}
	}
}
