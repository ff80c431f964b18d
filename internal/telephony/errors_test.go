package telephony

import (
	"errors"
	"fmt"
	"testing"

	"github.com/twitchtv/twirp"
)

func TestNewDialErrorExtractsSIPStatus(t *testing.T) {
	apiErr := twirp.NewError(twirp.Unavailable, "callee busy").
		WithMeta("sip_status_code", "486").
		WithMeta("sip_status", "Busy Here")

	de := newDialError("+15105550123", apiErr)

	if de.SIPStatusCode != 486 {
		t.Errorf("SIPStatusCode = %d, want 486", de.SIPStatusCode)
	}
	if de.SIPStatus != "Busy Here" {
		t.Errorf("SIPStatus = %q, want %q", de.SIPStatus, "Busy Here")
	}
	if de.Number != "+15105550123" {
		t.Errorf("Number = %q, want %q", de.Number, "+15105550123")
	}

	want := "dial +15105550123: SIP 486 Busy Here"
	if got := de.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestNewDialErrorWrappedTwirpError(t *testing.T) {
	apiErr := fmt.Errorf("create sip participant: %w",
		twirp.NewError(twirp.Internal, "no answer").WithMeta("sip_status_code", "480"))

	de := newDialError("+1", apiErr)

	if de.SIPStatusCode != 480 {
		t.Errorf("SIPStatusCode = %d, want 480", de.SIPStatusCode)
	}
}

func TestNewDialErrorNonTwirp(t *testing.T) {
	cause := errors.New("connection refused")
	de := newDialError("+1", cause)

	if de.SIPStatusCode != 0 {
		t.Errorf("SIPStatusCode = %d, want 0", de.SIPStatusCode)
	}
	if !errors.Is(de, cause) {
		t.Error("expected Unwrap to reach the cause")
	}

	want := "dial +1: connection refused"
	if got := de.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestIsNotFound(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"twirp not found", twirp.NotFoundError("room does not exist"), true},
		{"wrapped not found", fmt.Errorf("delete: %w", twirp.NotFoundError("gone")), true},
		{"other twirp code", twirp.NewError(twirp.Internal, "boom"), false},
		{"plain error", errors.New("boom"), false},
		{"nil", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isNotFound(tt.err); got != tt.want {
				t.Errorf("isNotFound() = %v, want %v", got, tt.want)
			}
		})
	}
}
