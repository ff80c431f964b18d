// Package job defines the per-call job input payload.
//
// A worker process receives exactly one job: the metadata describes who to
// dial and the caller context used to seed the agent's instructions.
package job

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for job input validation.
var (
	ErrEmptyMetadata      = errors.New("empty job metadata")
	ErrMissingPhoneNumber = errors.New("missing phone_number")
)

// Metadata is the job input payload for one outbound call.
type Metadata struct {
	// PhoneNumber is the number to dial. Required.
	PhoneNumber string `json:"phone_number"`
	// TransferTo is the number a transfer_call action dials. Optional;
	// when empty, transfer requests are refused.
	TransferTo string `json:"transfer_to,omitempty"`
	// CustomerName and AppointmentTime seed the agent's instructions.
	CustomerName    string `json:"customer_name,omitempty"`
	AppointmentTime string `json:"appointment_time,omitempty"`
}

// Parse decodes and validates a job metadata payload.
// A missing or malformed phone number is a fatal job-start error.
func Parse(raw string) (*Metadata, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, ErrEmptyMetadata
	}

	var m Metadata
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		return nil, fmt.Errorf("parse job metadata: %w", err)
	}

	m.PhoneNumber = strings.TrimSpace(m.PhoneNumber)
	if m.PhoneNumber == "" {
		return nil, ErrMissingPhoneNumber
	}

	return &m, nil
}

// Instructions builds the agent instructions for this job by appending the
// caller context to the configured base prompt.
func (m *Metadata) Instructions(base string) string {
	var b strings.Builder
	b.WriteString(base)

	if m.CustomerName != "" {
		fmt.Fprintf(&b, " The customer's name is %s.", m.CustomerName)
	}
	if m.AppointmentTime != "" {
		fmt.Fprintf(&b, " Their appointment is %s.", m.AppointmentTime)
	}

	return b.String()
}
