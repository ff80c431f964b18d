package telephony

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/twitchtv/twirp"
)

// Sentinel errors for error checking with errors.Is
var (
	ErrParticipantNotFound = errors.New("participant not found")
)

// DialError reports a failed dial attempt with the SIP status the
// dialing API returned (e.g. busy, no-answer, invalid number).
type DialError struct {
	Number        string
	SIPStatusCode int
	SIPStatus     string
	Cause         error
}

func (e *DialError) Error() string {
	if e.SIPStatusCode > 0 {
		return fmt.Sprintf("dial %s: SIP %d %s", e.Number, e.SIPStatusCode, e.SIPStatus)
	}
	return fmt.Sprintf("dial %s: %v", e.Number, e.Cause)
}

func (e *DialError) Unwrap() error {
	return e.Cause
}

// newDialError wraps an API error from a dial attempt, extracting the SIP
// status metadata when the transport provides it.
func newDialError(number string, err error) *DialError {
	de := &DialError{Number: number, Cause: err}

	var twErr twirp.Error
	if errors.As(err, &twErr) {
		if code := twErr.Meta("sip_status_code"); code != "" {
			de.SIPStatusCode, _ = strconv.Atoi(code)
		}
		de.SIPStatus = twErr.Meta("sip_status")
	}

	return de
}

// isNotFound reports whether err is the API's not-found response, used to
// keep participant removal and room deletion idempotent.
func isNotFound(err error) bool {
	var twErr twirp.Error
	return errors.As(err, &twErr) && twErr.Code() == twirp.NotFound
}
