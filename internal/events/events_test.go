package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"
)

func TestEventSubjectNaming(t *testing.T) {
	builder := NewBuilder("test-node")

	event := builder.CallDialing("call-123", "call-call-123").Build()

	expected := "caller.calls.call-123.dialing"
	if got := event.Subject(); got != expected {
		t.Errorf("Subject() = %q, want %q", got, expected)
	}
}

func TestSubjectPatterns(t *testing.T) {
	tests := []struct {
		name    string
		callID  string
		evtType EventType
		want    string
	}{
		{"dialing", "abc-123", CallDialing, "caller.calls.abc-123.dialing"},
		{"ringing", "abc-123", CallRinging, "caller.calls.abc-123.ringing"},
		{"answered", "abc-123", CallAnswered, "caller.calls.abc-123.answered"},
		{"automation", "abc-123", CallAutomation, "caller.calls.abc-123.automation"},
		{"voicemail", "abc-123", CallVoicemail, "caller.calls.abc-123.voicemail"},
		{"transferred", "abc-123", CallTransferred, "caller.calls.abc-123.transferred"},
		{"ended", "abc-123", CallEnded, "caller.calls.abc-123.ended"},
	}

	builder := NewBuilder("test")

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var event Event
			switch tt.evtType {
			case CallDialing:
				event = builder.CallDialing(tt.callID, "room").Build()
			case CallRinging:
				event = builder.CallRinging(tt.callID, "room")
			case CallAnswered:
				event = builder.CallAnswered(tt.callID, "room").Build()
			case CallAutomation:
				event = builder.CallAutomation(tt.callID, "room")
			case CallVoicemail:
				event = builder.CallVoicemail(tt.callID, "room")
			case CallTransferred:
				event = builder.CallTransferred(tt.callID, "room").Build()
			case CallEnded:
				event = builder.CallEnded(tt.callID, "room").Build()
			}

			if got := event.Subject(); got != tt.want {
				t.Errorf("Subject() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCallDialingEventJSON(t *testing.T) {
	builder := NewBuilder("test-node")

	event := builder.CallDialing("call-123", "call-call-123").
		Number("+15105550123").
		Trunk("ST_TRUNK").
		Identity("phone_user").
		TransferTo("+15105550199").
		Build()

	data, err := json.Marshal(event)
	if err != nil {
		t.Fatalf("Failed to marshal: %v", err)
	}

	var m map[string]interface{}
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatalf("Failed to unmarshal: %v", err)
	}

	checks := map[string]string{
		"event_type":  "call.dialing",
		"call_uuid":   "call-123",
		"room":        "call-call-123",
		"node_id":     "test-node",
		"number":      "+15105550123",
		"trunk_id":    "ST_TRUNK",
		"identity":    "phone_user",
		"transfer_to": "+15105550199",
	}

	for k, want := range checks {
		if got, ok := m[k].(string); !ok || got != want {
			t.Errorf("m[%q] = %v, want %q", k, m[k], want)
		}
	}
}

func TestCallEndedEventFields(t *testing.T) {
	builder := NewBuilder("test-node")

	event := builder.CallEnded("call-123", "call-call-123").
		Reason(EndReasonDialFailed, "callee busy").
		SIPStatus(486, "Busy Here").
		Durations(90*time.Second, 97*time.Second).
		Build()

	data, err := json.Marshal(event)
	if err != nil {
		t.Fatalf("Failed to marshal: %v", err)
	}

	var m map[string]interface{}
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatalf("Failed to unmarshal: %v", err)
	}

	if got := m["reason"].(string); got != "dial_failed" {
		t.Errorf("reason = %v, want dial_failed", got)
	}
	if got := m["sip_status_code"].(float64); got != 486 {
		t.Errorf("sip_status_code = %v, want 486", got)
	}
	if got := m["talk_duration_ms"].(float64); got != 90000 {
		t.Errorf("talk_duration_ms = %v, want 90000", got)
	}
	if got := m["total_duration_ms"].(float64); got != 97000 {
		t.Errorf("total_duration_ms = %v, want 97000", got)
	}
}

func TestCallAnsweredAnswerWait(t *testing.T) {
	builder := NewBuilder("test")

	event := builder.CallAnswered("call-1", "room").
		Identity("phone_user").
		AnswerWait(3500 * time.Millisecond).
		Build()

	if event.AnswerWait != 3500 {
		t.Errorf("AnswerWait = %d, want 3500", event.AnswerWait)
	}
}

func TestNoopPublisher(t *testing.T) {
	pub := NewNoopPublisher()
	builder := NewBuilder("test")

	event := builder.CallDialing("call-1", "room").Build()

	if err := pub.Publish(context.Background(), event); err != nil {
		t.Errorf("NoopPublisher.Publish() error = %v", err)
	}
	if err := pub.Flush(context.Background()); err != nil {
		t.Errorf("NoopPublisher.Flush() error = %v", err)
	}
	if err := pub.Close(); err != nil {
		t.Errorf("NoopPublisher.Close() error = %v", err)
	}
}

func TestChannelPublisher(t *testing.T) {
	pub := NewChannelPublisher(10)
	builder := NewBuilder("test")

	ctx := context.Background()

	for i := 0; i < 5; i++ {
		event := builder.CallDialing("call-"+string(rune('0'+i)), "room").Build()
		if err := pub.Publish(ctx, event); err != nil {
			t.Errorf("Publish() error = %v", err)
		}
	}

	ch := pub.Events()
	for i := 0; i < 5; i++ {
		select {
		case e := <-ch:
			if e.Type() != CallDialing {
				t.Errorf("got type %v, want CallDialing", e.Type())
			}
		case <-time.After(time.Second):
			t.Fatal("timeout waiting for event")
		}
	}

	pub.Close()
}

func TestChannelPublisherDropsOnFull(t *testing.T) {
	pub := NewChannelPublisher(2)
	builder := NewBuilder("test")

	ctx := context.Background()

	pub.Publish(ctx, builder.CallDialing("call-1", "room").Build())
	pub.Publish(ctx, builder.CallDialing("call-2", "room").Build())

	// This one exceeds the buffer.
	pub.Publish(ctx, builder.CallDialing("call-3", "room").Build())

	if got := pub.DroppedCount(); got != 1 {
		t.Errorf("DroppedCount() = %d, want 1", got)
	}

	pub.Close()
}

func TestChannelPublisherPublishAfterClose(t *testing.T) {
	pub := NewChannelPublisher(2)
	builder := NewBuilder("test")

	pub.Close()

	if err := pub.Publish(context.Background(), builder.CallRinging("call-1", "room")); err != nil {
		t.Errorf("Publish() after Close error = %v", err)
	}
}

func TestMultiPublisher(t *testing.T) {
	ch1 := NewChannelPublisher(10)
	ch2 := NewChannelPublisher(10)

	multi := NewMultiPublisher(ch1, ch2)
	builder := NewBuilder("test")

	event := builder.CallDialing("call-1", "room").Build()
	if err := multi.Publish(context.Background(), event); err != nil {
		t.Errorf("MultiPublisher.Publish() error = %v", err)
	}

	select {
	case <-ch1.Events():
	case <-time.After(time.Second):
		t.Error("ch1 did not receive event")
	}

	select {
	case <-ch2.Events():
	case <-time.After(time.Second):
		t.Error("ch2 did not receive event")
	}

	multi.Close()
}
