package orchestrator

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/livekit/protocol/livekit"

	"github.com/varun-revspot/livekit-outbound-caller/internal/actions"
	"github.com/varun-revspot/livekit-outbound-caller/internal/agent"
	"github.com/varun-revspot/livekit-outbound-caller/internal/events"
	"github.com/varun-revspot/livekit-outbound-caller/internal/job"
	"github.com/varun-revspot/livekit-outbound-caller/internal/monitor"
	"github.com/varun-revspot/livekit-outbound-caller/internal/telephony"
)

// fakeTel is an in-memory telephony client with a scriptable callee leg.
type fakeTel struct {
	mu           sync.Mutex
	participants map[string]*livekit.ParticipantInfo
	status       string
	removed      []string
	deleteCount  int

	// dialGate, when set, must be closed before the callee dial proceeds.
	dialGate <-chan struct{}
	// dialErr fails the callee dial.
	dialErr error
	// transferErr fails the transfer leg dial.
	transferErr error
}

func newFakeTel() *fakeTel {
	return &fakeTel{
		participants: make(map[string]*livekit.ParticipantInfo),
		status:       "active",
	}
}

func (f *fakeTel) setStatus(status string) {
	f.mu.Lock()
	f.status = status
	f.mu.Unlock()
}

func (f *fakeTel) add(identity string) {
	f.mu.Lock()
	f.participants[identity] = &livekit.ParticipantInfo{Identity: identity}
	f.mu.Unlock()
}

func (f *fakeTel) CreateSIPParticipant(ctx context.Context, req telephony.CreateParticipantRequest) error {
	if req.Identity == "transfer_user" {
		if f.transferErr != nil {
			return f.transferErr
		}
		f.add(req.Identity)
		return nil
	}

	if f.dialGate != nil {
		select {
		case <-f.dialGate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if f.dialErr != nil {
		return f.dialErr
	}
	f.add(req.Identity)
	return nil
}

func (f *fakeTel) RemoveParticipant(ctx context.Context, room, identity string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removed = append(f.removed, identity)
	delete(f.participants, identity)
	return nil
}

func (f *fakeTel) DeleteRoom(ctx context.Context, room string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleteCount++
	f.participants = make(map[string]*livekit.ParticipantInfo)
	return nil
}

func (f *fakeTel) ListParticipants(ctx context.Context, room string) ([]*livekit.ParticipantInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*livekit.ParticipantInfo
	for _, p := range f.participants {
		info := &livekit.ParticipantInfo{
			Identity:   p.Identity,
			Attributes: map[string]string{livekit.AttrSIPCallStatus: f.status},
		}
		out = append(out, info)
	}
	return out, nil
}

func (f *fakeTel) deletes() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.deleteCount
}

func (f *fakeTel) removedIdentities() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.removed...)
}

// fakeAgentSession implements AgentSession and signals when the callee is
// bound so tests can drive mid-call actions at the right moment.
type fakeAgentSession struct {
	mu          sync.Mutex
	participant string
	said        []string
	closeCount  int
	bound       chan struct{}
	boundOnce   sync.Once
}

func newFakeAgentSession() *fakeAgentSession {
	return &fakeAgentSession{bound: make(chan struct{})}
}

func (s *fakeAgentSession) CurrentUtterance() *agent.Utterance { return nil }

func (s *fakeAgentSession) GenerateReply(ctx context.Context, instructions string) error {
	s.mu.Lock()
	s.said = append(s.said, instructions)
	s.mu.Unlock()
	return nil
}

func (s *fakeAgentSession) SetParticipant(identity string) error {
	s.mu.Lock()
	s.participant = identity
	s.mu.Unlock()
	s.boundOnce.Do(func() { close(s.bound) })
	return nil
}

func (s *fakeAgentSession) Close() error {
	s.mu.Lock()
	s.closeCount++
	s.mu.Unlock()
	return nil
}

func (s *fakeAgentSession) closes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closeCount
}

// fakeStarter captures the dispatcher wired into the session so tests can
// invoke actions the way the language model would.
type fakeStarter struct {
	sess     *fakeAgentSession
	startErr error

	mu         sync.Mutex
	dispatcher agent.ActionDispatcher
	started    chan struct{}
}

func newFakeStarter() *fakeStarter {
	return &fakeStarter{sess: newFakeAgentSession(), started: make(chan struct{})}
}

func (f *fakeStarter) Start(ctx context.Context, opts agent.StartOptions) (AgentSession, error) {
	f.mu.Lock()
	f.dispatcher = opts.Dispatcher
	f.mu.Unlock()
	close(f.started)
	if f.startErr != nil {
		return nil, f.startErr
	}
	return f.sess, nil
}

func (f *fakeStarter) dispatch(t *testing.T, name string) string {
	t.Helper()
	f.mu.Lock()
	d := f.dispatcher
	f.mu.Unlock()
	if d == nil {
		t.Fatal("no dispatcher captured")
	}

	// Binding completes just after SetParticipant returns; retry until
	// the action sees the bound call.
	deadline := time.After(2 * time.Second)
	for {
		result, err := d.Dispatch(context.Background(), name, nil)
		if err == nil {
			return result
		}
		if !errors.Is(err, actions.ErrCalleeNotBound) {
			t.Fatalf("Dispatch(%s) error = %v", name, err)
		}
		select {
		case <-deadline:
			t.Fatalf("Dispatch(%s) never saw a bound call", name)
		case <-time.After(2 * time.Millisecond):
		}
	}
}

func testConfig() Config {
	return Config{
		AnswerTimeout:      2 * time.Second,
		ParticipantTimeout: 2 * time.Second,
		StatusPollInterval: 2 * time.Millisecond,
		NodeID:             "test-node",
	}
}

func drainEvents(pub *events.ChannelPublisher) []events.Event {
	pub.Close()
	var got []events.Event
	for e := range pub.Events() {
		got = append(got, e)
	}
	return got
}

func eventTypes(evts []events.Event) []events.EventType {
	var types []events.EventType
	for _, e := range evts {
		types = append(types, e.Type())
	}
	return types
}

func hasEvent(evts []events.Event, t events.EventType) bool {
	for _, e := range evts {
		if e.Type() == t {
			return true
		}
	}
	return false
}

type placeResult struct {
	outcome *CallOutcome
	err     error
}

func placeAsync(o *Orchestrator, meta *job.Metadata) <-chan placeResult {
	ch := make(chan placeResult, 1)
	go func() {
		outcome, err := o.PlaceCall(context.Background(), meta)
		ch <- placeResult{outcome, err}
	}()
	return ch
}

func await(t *testing.T, ch <-chan placeResult) *CallOutcome {
	t.Helper()
	select {
	case res := <-ch:
		if res.err != nil {
			t.Fatalf("PlaceCall() error = %v", res.err)
		}
		return res.outcome
	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting for PlaceCall")
		return nil
	}
}

func TestPlaceCallEndCall(t *testing.T) {
	tel := newFakeTel()
	starter := newFakeStarter()
	// The dial only proceeds once the session start has begun, proving
	// the session never starts after the dial.
	tel.dialGate = starter.started
	pub := events.NewChannelPublisher(64)

	o := New(tel, starter, nil, pub, testConfig(), nil)
	ch := placeAsync(o, &job.Metadata{PhoneNumber: "+15105550123"})

	select {
	case <-starter.sess.bound:
	case <-time.After(2 * time.Second):
		t.Fatal("callee never bound")
	}

	if result := starter.dispatch(t, "end_call"); result != "call ended" {
		t.Errorf("end_call result = %q", result)
	}

	outcome := await(t, ch)

	if outcome.Reason != events.EndReasonNormal {
		t.Errorf("Reason = %v, want normal", outcome.Reason)
	}
	if outcome.AnsweredAt.IsZero() || outcome.EndedAt.IsZero() {
		t.Error("outcome timestamps not recorded")
	}
	if got := tel.deletes(); got != 1 {
		t.Errorf("room deleted %d times, want exactly 1", got)
	}
	if starter.sess.closes() == 0 {
		t.Error("session not closed after the call")
	}

	evts := drainEvents(pub)
	for _, want := range []events.EventType{events.CallDialing, events.CallAnswered, events.CallEnded} {
		if !hasEvent(evts, want) {
			t.Errorf("missing %s event; got %v", want, eventTypes(evts))
		}
	}
}

func TestPlaceCallCalleeHangup(t *testing.T) {
	tel := newFakeTel()
	starter := newFakeStarter()
	pub := events.NewChannelPublisher(64)

	o := New(tel, starter, nil, pub, testConfig(), nil)
	ch := placeAsync(o, &job.Metadata{PhoneNumber: "+15105550123"})

	select {
	case <-starter.sess.bound:
	case <-time.After(2 * time.Second):
		t.Fatal("callee never bound")
	}

	tel.setStatus("hangup")

	outcome := await(t, ch)

	if outcome.Status != monitor.StateHangup {
		t.Errorf("Status = %v, want hangup", outcome.Status)
	}
	if outcome.Reason != events.EndReasonHangup {
		t.Errorf("Reason = %v, want hangup", outcome.Reason)
	}
	if got := tel.deletes(); got != 1 {
		t.Errorf("room deleted %d times, want exactly 1", got)
	}
}

func TestPlaceCallNoAnswer(t *testing.T) {
	tel := newFakeTel()
	tel.dialGate = make(chan struct{}) // never answers
	starter := newFakeStarter()
	pub := events.NewChannelPublisher(64)

	cfg := testConfig()
	cfg.AnswerTimeout = 30 * time.Millisecond

	o := New(tel, starter, nil, pub, cfg, nil)
	outcome := await(t, placeAsync(o, &job.Metadata{PhoneNumber: "+15105550123"}))

	if outcome.Reason != events.EndReasonNoAnswer {
		t.Errorf("Reason = %v, want no_answer", outcome.Reason)
	}
	if outcome.Status != monitor.StateFailed {
		t.Errorf("Status = %v, want failed", outcome.Status)
	}
	if got := tel.deletes(); got != 1 {
		t.Errorf("room deleted %d times, want exactly 1", got)
	}
	if starter.sess.closes() != 1 {
		t.Errorf("session closes = %d, want 1 (no leaked pipeline)", starter.sess.closes())
	}
}

func TestPlaceCallDialRejected(t *testing.T) {
	tel := newFakeTel()
	tel.dialErr = &telephony.DialError{
		Number:        "+15105550123",
		SIPStatusCode: 486,
		SIPStatus:     "Busy Here",
	}
	starter := newFakeStarter()
	pub := events.NewChannelPublisher(64)

	o := New(tel, starter, nil, pub, testConfig(), nil)
	outcome := await(t, placeAsync(o, &job.Metadata{PhoneNumber: "+15105550123"}))

	if outcome.Reason != events.EndReasonDialFailed {
		t.Errorf("Reason = %v, want dial_failed", outcome.Reason)
	}
	if got := tel.deletes(); got != 1 {
		t.Errorf("room deleted %d times, want exactly 1", got)
	}

	evts := drainEvents(pub)
	var ended *events.CallEndedEvent
	for _, e := range evts {
		if ee, ok := e.(*events.CallEndedEvent); ok {
			ended = ee
		}
	}
	if ended == nil {
		t.Fatal("no ended event published")
	}
	if ended.SIPStatusCode != 486 {
		t.Errorf("ended SIPStatusCode = %d, want 486", ended.SIPStatusCode)
	}
}

func TestPlaceCallSessionStartFailure(t *testing.T) {
	tel := newFakeTel()
	starter := newFakeStarter()
	starter.startErr = errors.New("pipeline unavailable")

	o := New(tel, starter, nil, nil, testConfig(), nil)
	_, err := o.PlaceCall(context.Background(), &job.Metadata{PhoneNumber: "+15105550123"})
	if err == nil {
		t.Fatal("PlaceCall() expected error when session start fails")
	}
	if got := tel.deletes(); got != 1 {
		t.Errorf("room deleted %d times, want exactly 1", got)
	}
}

func TestPlaceCallVoicemail(t *testing.T) {
	tel := newFakeTel()
	tel.setStatus("automation")
	starter := newFakeStarter()
	pub := events.NewChannelPublisher(64)

	o := New(tel, starter, nil, pub, testConfig(), nil)
	ch := placeAsync(o, &job.Metadata{PhoneNumber: "+15105550123"})

	select {
	case <-starter.sess.bound:
	case <-time.After(2 * time.Second):
		t.Fatal("callee never bound")
	}

	// Let the monitor observe the phone tree phase, then the pickup.
	time.Sleep(50 * time.Millisecond)
	tel.setStatus("active")
	time.Sleep(50 * time.Millisecond)

	starter.dispatch(t, "detected_answering_machine")

	outcome := await(t, ch)

	if outcome.Reason != events.EndReasonVoicemail {
		t.Errorf("Reason = %v, want voicemail", outcome.Reason)
	}
	if got := tel.deletes(); got != 1 {
		t.Errorf("room deleted %d times, want exactly 1", got)
	}

	evts := drainEvents(pub)
	if !hasEvent(evts, events.CallAutomation) {
		t.Error("missing automation event")
	}
	if !hasEvent(evts, events.CallVoicemail) {
		t.Error("missing voicemail event")
	}
}

func TestPlaceCallTransfer(t *testing.T) {
	tel := newFakeTel()
	starter := newFakeStarter()
	pub := events.NewChannelPublisher(64)

	o := New(tel, starter, nil, pub, testConfig(), nil)
	ch := placeAsync(o, &job.Metadata{
		PhoneNumber: "+15105550123",
		TransferTo:  "+15105550199",
	})

	select {
	case <-starter.sess.bound:
	case <-time.After(2 * time.Second):
		t.Fatal("callee never bound")
	}

	if result := starter.dispatch(t, "transfer_call"); result != "call transferred" {
		t.Errorf("transfer_call result = %q", result)
	}

	outcome := await(t, ch)

	if outcome.Reason != events.EndReasonTransfer {
		t.Errorf("Reason = %v, want transfer", outcome.Reason)
	}

	// The callee stays connected to the transfer target: the room must
	// not be deleted, and only the agent's participant removed.
	if got := tel.deletes(); got != 0 {
		t.Errorf("room deleted %d times, want 0 after a successful transfer", got)
	}
	removed := tel.removedIdentities()
	if len(removed) != 1 || removed[0] != "outbound-agent" {
		t.Errorf("removed = %v, want only the agent", removed)
	}

	if !hasEvent(drainEvents(pub), events.CallTransferred) {
		t.Error("missing transferred event")
	}
}

func TestPlaceCallTransferFailure(t *testing.T) {
	tel := newFakeTel()
	tel.transferErr = errors.New("transfer target unreachable")
	starter := newFakeStarter()

	o := New(tel, starter, nil, nil, testConfig(), nil)
	ch := placeAsync(o, &job.Metadata{
		PhoneNumber: "+15105550123",
		TransferTo:  "+15105550199",
	})

	select {
	case <-starter.sess.bound:
	case <-time.After(2 * time.Second):
		t.Fatal("callee never bound")
	}

	if result := starter.dispatch(t, "transfer_call"); result != "could not transfer call, call ended" {
		t.Errorf("transfer_call result = %q", result)
	}

	outcome := await(t, ch)

	if outcome.Reason != events.EndReasonError {
		t.Errorf("Reason = %v, want error", outcome.Reason)
	}
	if got := tel.deletes(); got != 1 {
		t.Errorf("room deleted %d times, want exactly 1", got)
	}

	// The notice and the apology were both spoken.
	starter.sess.mu.Lock()
	said := len(starter.sess.said)
	starter.sess.mu.Unlock()
	if said != 2 {
		t.Errorf("spoken lines = %d, want 2 (notice + apology)", said)
	}
}
