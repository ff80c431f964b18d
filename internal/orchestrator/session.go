package orchestrator

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/varun-revspot/livekit-outbound-caller/internal/agent"
	"github.com/varun-revspot/livekit-outbound-caller/internal/events"
	"github.com/varun-revspot/livekit-outbound-caller/internal/job"
	"github.com/varun-revspot/livekit-outbound-caller/internal/telephony"
)

// AgentSession is the slice of the conversational session the orchestrator
// and call actions need.
type AgentSession interface {
	CurrentUtterance() *agent.Utterance
	GenerateReply(ctx context.Context, instructions string) error
	SetParticipant(identity string) error
	Close() error
}

// SessionStarter starts conversational sessions.
type SessionStarter interface {
	Start(ctx context.Context, opts agent.StartOptions) (AgentSession, error)
}

// controllerStarter adapts agent.Controller to SessionStarter.
type controllerStarter struct {
	c *agent.Controller
}

// NewAgentStarter wraps an agent controller as a SessionStarter.
func NewAgentStarter(c *agent.Controller) SessionStarter {
	return controllerStarter{c: c}
}

func (s controllerStarter) Start(ctx context.Context, opts agent.StartOptions) (AgentSession, error) {
	return s.c.Start(ctx, opts)
}

// callSession is the per-call state: one exists per job and room, created
// before dialing begins and torn down exactly once. It implements
// actions.CallContext for the intent actions.
type callSession struct {
	callID string
	room   string
	info   *job.Metadata
	tel    telephony.Client
	cfg    Config
	logger *slog.Logger

	startedAt time.Time

	mu         sync.Mutex
	session    AgentSession
	bound      bool
	answeredAt time.Time
	endReason  events.EndReason
	endDetail  string
	endedAt    time.Time

	endOnce sync.Once
	done    chan struct{}
}

func newCallSession(callID, room string, info *job.Metadata, tel telephony.Client, cfg Config, logger *slog.Logger) *callSession {
	return &callSession{
		callID:    callID,
		room:      room,
		info:      info,
		tel:       tel,
		cfg:       cfg,
		logger:    logger,
		startedAt: time.Now(),
		done:      make(chan struct{}),
	}
}

// attachSession stores the started conversational session. Called once by
// the orchestrator after the concurrent session start completes.
func (cs *callSession) attachSession(s AgentSession) {
	cs.mu.Lock()
	cs.session = s
	cs.mu.Unlock()
}

// bind marks the callee participant bound. Called once, after
// SetParticipant succeeded.
func (cs *callSession) bind() {
	cs.mu.Lock()
	cs.bound = true
	cs.answeredAt = time.Now()
	cs.mu.Unlock()
}

func (cs *callSession) agentSession() AgentSession {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	return cs.session
}

// Done is closed when the call reaches a terminal state.
func (cs *callSession) Done() <-chan struct{} {
	return cs.done
}

// end records the terminal state and, when deleteRoom is set, deletes the
// room. Only the first call has any effect; hanging up twice is not a
// failure.
func (cs *callSession) end(ctx context.Context, reason events.EndReason, detail string, deleteRoom bool) error {
	var err error
	cs.endOnce.Do(func() {
		cs.mu.Lock()
		cs.endReason = reason
		cs.endDetail = detail
		cs.endedAt = time.Now()
		cs.mu.Unlock()

		if deleteRoom {
			// Bounded independently of the caller's context, which may
			// already be cancelled during teardown.
			dctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
			defer cancel()
			if derr := cs.tel.DeleteRoom(dctx, cs.room); derr != nil {
				cs.logger.Warn("room delete failed", "error", derr)
				err = derr
			}
		}

		cs.logger.Info("call ended", "reason", reason, "detail", detail)
		close(cs.done)
	})
	return err
}

// outcomeTimes returns the recorded timestamps for the outcome summary.
func (cs *callSession) endState() (events.EndReason, string, time.Time, time.Time) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	return cs.endReason, cs.endDetail, cs.answeredAt, cs.endedAt
}

// --- actions.CallContext ---

func (cs *callSession) Room() string {
	return cs.room
}

func (cs *callSession) Bound() bool {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	return cs.bound
}

func (cs *callSession) TransferTo() string {
	return cs.info.TransferTo
}

func (cs *callSession) CurrentUtterance() *agent.Utterance {
	if s := cs.agentSession(); s != nil {
		return s.CurrentUtterance()
	}
	return nil
}

func (cs *callSession) Say(ctx context.Context, instructions string) error {
	s := cs.agentSession()
	if s == nil {
		return errNoSession
	}
	return s.GenerateReply(ctx, instructions)
}

func (cs *callSession) DialTransfer(ctx context.Context, number string) (string, error) {
	identity := cs.cfg.TransferIdentity

	dctx, cancel := context.WithTimeout(ctx, cs.cfg.AnswerTimeout)
	defer cancel()

	err := cs.tel.CreateSIPParticipant(dctx, telephony.CreateParticipantRequest{
		Room:              cs.room,
		Number:            number,
		Identity:          identity,
		WaitUntilAnswered: true,
	})
	if err != nil {
		return "", err
	}
	return identity, nil
}

func (cs *callSession) WaitForParticipant(ctx context.Context, identity string) error {
	wctx, cancel := context.WithTimeout(ctx, cs.cfg.ParticipantTimeout)
	defer cancel()

	_, err := telephony.WaitForParticipant(wctx, cs.tel, cs.room, identity, cs.cfg.StatusPollInterval)
	return err
}

func (cs *callSession) RemoveAgent(ctx context.Context) error {
	return cs.tel.RemoveParticipant(ctx, cs.room, cs.cfg.AgentIdentity)
}

func (cs *callSession) Hangup(ctx context.Context, reason string) error {
	return cs.end(ctx, endReasonFor(reason), reason, true)
}

func (cs *callSession) Cede(reason string) {
	cs.end(context.Background(), events.EndReasonTransfer, reason, false)
}

func (cs *callSession) Terminated() bool {
	select {
	case <-cs.done:
		return true
	default:
		return false
	}
}

// endReasonFor maps action hangup reasons onto event end reasons.
func endReasonFor(reason string) events.EndReason {
	switch reason {
	case "voicemail":
		return events.EndReasonVoicemail
	case "transfer_failed":
		return events.EndReasonError
	default:
		return events.EndReasonNormal
	}
}
