package actions

import (
	"context"
	"encoding/json"
	"fmt"
)

// LookUpAvailabilityParams defines arguments for look_up_availability.
type LookUpAvailabilityParams struct {
	Date string `json:"date"`
}

// LookUpAvailabilityAction returns candidate appointment slots for a date.
// Side-effect-free query; the lookup itself is simulated.
type LookUpAvailabilityAction struct {
	params LookUpAvailabilityParams
}

// NewLookUpAvailabilityAction creates a look_up_availability action.
func NewLookUpAvailabilityAction(raw json.RawMessage) (Action, error) {
	var params LookUpAvailabilityParams
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &params); err != nil {
			return nil, fmt.Errorf("parse look_up_availability params: %w", err)
		}
	}
	if params.Date == "" {
		return nil, fmt.Errorf("%w: date", ErrMissingArgument)
	}
	return &LookUpAvailabilityAction{params: params}, nil
}

// Name returns "look_up_availability".
func (a *LookUpAvailabilityAction) Name() string {
	return "look_up_availability"
}

// Execute returns the available time slots.
func (a *LookUpAvailabilityAction) Execute(ctx context.Context, call CallContext) (string, error) {
	return fmt.Sprintf("available times on %s: 1pm, 2pm, 3pm", a.params.Date), nil
}

// ConfirmAppointmentParams defines arguments for confirm_appointment.
type ConfirmAppointmentParams struct {
	Date string `json:"date"`
	Time string `json:"time"`
}

// ConfirmAppointmentAction records an appointment confirmation.
type ConfirmAppointmentAction struct {
	params ConfirmAppointmentParams
}

// NewConfirmAppointmentAction creates a confirm_appointment action.
func NewConfirmAppointmentAction(raw json.RawMessage) (Action, error) {
	var params ConfirmAppointmentParams
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &params); err != nil {
			return nil, fmt.Errorf("parse confirm_appointment params: %w", err)
		}
	}
	if params.Date == "" || params.Time == "" {
		return nil, fmt.Errorf("%w: date and time", ErrMissingArgument)
	}
	return &ConfirmAppointmentAction{params: params}, nil
}

// Name returns "confirm_appointment".
func (a *ConfirmAppointmentAction) Name() string {
	return "confirm_appointment"
}

// Execute acknowledges the confirmation.
func (a *ConfirmAppointmentAction) Execute(ctx context.Context, call CallContext) (string, error) {
	return fmt.Sprintf("appointment confirmed for %s at %s", a.params.Date, a.params.Time), nil
}
