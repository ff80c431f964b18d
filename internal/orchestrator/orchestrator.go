// Package orchestrator sequences an outbound call: dial, answer wait,
// agent binding, status monitoring, and teardown. One orchestrator drives
// one call per job; many jobs run as independent processes.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/varun-revspot/livekit-outbound-caller/internal/actions"
	"github.com/varun-revspot/livekit-outbound-caller/internal/agent"
	"github.com/varun-revspot/livekit-outbound-caller/internal/events"
	"github.com/varun-revspot/livekit-outbound-caller/internal/job"
	"github.com/varun-revspot/livekit-outbound-caller/internal/monitor"
	"github.com/varun-revspot/livekit-outbound-caller/internal/telephony"
)

var errNoSession = errors.New("conversational session not attached")

// Config holds per-call orchestration settings.
type Config struct {
	RoomPrefix       string
	CalleeIdentity   string
	AgentIdentity    string
	TransferIdentity string

	// Instructions is the base agent prompt; job metadata appends context.
	Instructions string

	// AnswerTimeout bounds the dial + answer wait. The call is abandoned
	// and resources released if no answer arrives in time.
	AnswerTimeout time.Duration
	// ParticipantTimeout bounds waiting for a participant to appear in
	// the room after their leg answered.
	ParticipantTimeout time.Duration
	// StatusPollInterval is the callee status poll interval.
	StatusPollInterval time.Duration

	// NodeID tags published events with the worker instance.
	NodeID string
}

func (c *Config) applyDefaults() {
	if c.RoomPrefix == "" {
		c.RoomPrefix = "call-"
	}
	if c.CalleeIdentity == "" {
		c.CalleeIdentity = "phone_user"
	}
	if c.AgentIdentity == "" {
		c.AgentIdentity = "outbound-agent"
	}
	if c.TransferIdentity == "" {
		c.TransferIdentity = "transfer_user"
	}
	if c.AnswerTimeout <= 0 {
		c.AnswerTimeout = 15 * time.Second
	}
	if c.ParticipantTimeout <= 0 {
		c.ParticipantTimeout = 10 * time.Second
	}
	if c.StatusPollInterval <= 0 {
		c.StatusPollInterval = 100 * time.Millisecond
	}
}

// CallOutcome summarises one finished call attempt.
type CallOutcome struct {
	CallID     string
	Room       string
	Status     monitor.CallState
	Reason     events.EndReason
	Detail     string
	DialedAt   time.Time
	AnsweredAt time.Time
	EndedAt    time.Time
}

// Orchestrator places and supervises outbound calls.
type Orchestrator struct {
	tel       telephony.Client
	sessions  SessionStarter
	registry  *actions.Registry
	publisher events.Publisher
	builder   *events.Builder
	cfg       Config
	logger    *slog.Logger
}

// New creates an orchestrator. registry and publisher may be nil; the
// default action set and a no-op publisher are used then.
func New(tel telephony.Client, sessions SessionStarter, registry *actions.Registry, publisher events.Publisher, cfg Config, logger *slog.Logger) *Orchestrator {
	cfg.applyDefaults()
	if registry == nil {
		registry = actions.DefaultRegistry()
	}
	if publisher == nil {
		publisher = events.NewNoopPublisher()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		tel:       tel,
		sessions:  sessions,
		registry:  registry,
		publisher: publisher,
		builder:   events.NewBuilder(cfg.NodeID),
		cfg:       cfg,
		logger:    logger,
	}
}

// PlaceCall executes one outbound call job to completion. Normal
// termination paths (dial failure, no answer, callee hangup, any action
// ending the call) return an outcome and a nil error; an error is returned
// only when the job itself fails, i.e. the post-answer binding sequence
// breaks and the half-established call cannot be resumed.
func (o *Orchestrator) PlaceCall(ctx context.Context, info *job.Metadata) (*CallOutcome, error) {
	callID := uuid.New().String()
	room := o.cfg.RoomPrefix + callID
	log := o.logger.With("call_id", callID, "room", room)

	cs := newCallSession(callID, room, info, o.tel, o.cfg, log)
	outcome := &CallOutcome{CallID: callID, Room: room, DialedAt: cs.startedAt}

	o.publish(ctx, o.builder.CallDialing(callID, room).
		Number(info.PhoneNumber).
		Identity(o.cfg.CalleeIdentity).
		TransferTo(info.TransferTo).
		Build())

	// Start the conversational session in parallel with the dial, never
	// after it: the agent must be listening the instant the call
	// connects, or the callee's opening speech is lost.
	startCh := make(chan startResult, 1)
	go func() {
		sess, err := o.sessions.Start(ctx, agent.StartOptions{
			Instructions: info.Instructions(o.cfg.Instructions),
			Room:         room,
			Dispatcher:   actions.Bind(o.registry, cs),
		})
		startCh <- startResult{sess: sess, err: err}
	}()

	// Dial, suspending until the callee answers or the attempt fails.
	// One attempt per job; retries are a job-dispatch concern.
	log.Info("dialing callee", "number", info.PhoneNumber)
	dialCtx, cancelDial := context.WithTimeout(ctx, o.cfg.AnswerTimeout)
	dialErr := o.tel.CreateSIPParticipant(dialCtx, telephony.CreateParticipantRequest{
		Room:              room,
		Number:            info.PhoneNumber,
		Identity:          o.cfg.CalleeIdentity,
		WaitUntilAnswered: true,
	})
	cancelDial()

	if dialErr != nil {
		o.closeStarted(startCh)
		return o.finishFailedDial(ctx, cs, outcome, dialErr, log), nil
	}

	// Answered: join the session start, bind the agent to the callee.
	res := <-startCh
	if res.err != nil {
		cs.end(ctx, events.EndReasonError, "session start failed", true)
		o.publishEnded(ctx, cs, outcome)
		return nil, fmt.Errorf("start conversational session: %w", res.err)
	}
	cs.attachSession(res.sess)
	defer res.sess.Close()

	pctx, cancelWait := context.WithTimeout(ctx, o.cfg.ParticipantTimeout)
	participant, err := telephony.WaitForParticipant(pctx, o.tel, room, o.cfg.CalleeIdentity, o.cfg.StatusPollInterval)
	cancelWait()
	if err != nil {
		cs.end(ctx, events.EndReasonError, "callee participant never appeared", true)
		o.publishEnded(ctx, cs, outcome)
		return nil, fmt.Errorf("wait for callee participant: %w", err)
	}

	if err := res.sess.SetParticipant(participant.Identity); err != nil {
		cs.end(ctx, events.EndReasonError, "participant binding failed", true)
		o.publishEnded(ctx, cs, outcome)
		return nil, fmt.Errorf("bind callee participant: %w", err)
	}
	cs.bind()

	log.Info("callee answered", "identity", participant.Identity)
	o.publish(ctx, o.builder.CallAnswered(callID, room).
		Identity(participant.Identity).
		AnswerWait(time.Since(cs.startedAt)).
		Build())

	return o.superviseCall(ctx, cs, outcome, log)
}

// superviseCall watches the callee's status until the call ends, either by
// the callee hanging up or by an action terminating it.
func (o *Orchestrator) superviseCall(ctx context.Context, cs *callSession, outcome *CallOutcome, log *slog.Logger) (*CallOutcome, error) {
	monCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	poller := monitor.NewPoller(func(c context.Context) (map[string]string, error) {
		p, err := telephony.GetParticipant(c, o.tel, cs.room, o.cfg.CalleeIdentity)
		if err != nil {
			return nil, err
		}
		return p.Attributes, nil
	}, o.cfg.StatusPollInterval, log)
	defer poller.Stop()

	states := poller.Watch(monCtx)

	for {
		select {
		case <-ctx.Done():
			cs.end(ctx, events.EndReasonError, "job cancelled", true)
			return o.finish(ctx, cs, outcome, monitor.StateFailed), ctx.Err()

		case <-cs.Done():
			// An action ended the call.
			return o.finish(ctx, cs, outcome, monitor.StateActive), nil

		case state, ok := <-states:
			if !ok {
				// Poller stopped; the call's end arrives via cs.Done.
				states = nil
				continue
			}
			switch state {
			case monitor.StateRinging:
				log.Debug("callee status reports ringing")
				o.publish(ctx, o.builder.CallRinging(cs.callID, cs.room))
			case monitor.StateAutomation:
				// Phone-tree navigation; informational only.
				log.Info("callee navigating phone tree")
				o.publish(ctx, o.builder.CallAutomation(cs.callID, cs.room))
			case monitor.StateActive:
				log.Debug("callee active")
			case monitor.StateHangup:
				log.Info("callee hung up")
				cs.end(ctx, events.EndReasonHangup, "callee disconnected", true)
				return o.finish(ctx, cs, outcome, monitor.StateHangup), nil
			case monitor.StateFailed:
				log.Warn("call failed at the protocol layer")
				cs.end(ctx, events.EndReasonError, "protocol failure", true)
				return o.finish(ctx, cs, outcome, monitor.StateFailed), nil
			}
		}
	}
}

// finishFailedDial handles a dial that never reached answer: a structured
// failure from the dialing API or the answer-wait bound elapsing. Both are
// normal termination paths for the job.
func (o *Orchestrator) finishFailedDial(ctx context.Context, cs *callSession, outcome *CallOutcome, dialErr error, log *slog.Logger) *CallOutcome {
	reason := events.EndReasonDialFailed
	detail := dialErr.Error()
	status := monitor.StateFailed

	var de *telephony.DialError
	switch {
	case errors.As(dialErr, &de):
		log.Error("dial failed",
			"number", de.Number,
			"sip_status_code", de.SIPStatusCode,
			"sip_status", de.SIPStatus,
		)
		if errors.Is(de.Cause, context.DeadlineExceeded) {
			reason = events.EndReasonNoAnswer
			detail = "answer wait timed out"
		}
	case errors.Is(dialErr, context.DeadlineExceeded):
		log.Info("no answer before the wait elapsed")
		reason = events.EndReasonNoAnswer
		detail = "answer wait timed out"
	default:
		log.Error("dial failed", "error", dialErr)
	}

	cs.end(ctx, reason, detail, true)

	ended := o.builder.CallEnded(cs.callID, cs.room).
		Reason(reason, detail).
		Durations(0, time.Since(cs.startedAt))
	if de != nil {
		ended = ended.SIPStatus(de.SIPStatusCode, de.SIPStatus)
	}
	o.publish(ctx, ended.Build())

	outcome.Status = status
	outcome.Reason = reason
	outcome.Detail = detail
	outcome.EndedAt = time.Now()
	return outcome
}

// finish fills the outcome from the call session's terminal state and
// publishes the ended event.
func (o *Orchestrator) finish(ctx context.Context, cs *callSession, outcome *CallOutcome, status monitor.CallState) *CallOutcome {
	reason, detail, answeredAt, endedAt := cs.endState()

	outcome.Status = status
	outcome.Reason = reason
	outcome.Detail = detail
	outcome.AnsweredAt = answeredAt
	outcome.EndedAt = endedAt

	if reason == events.EndReasonVoicemail {
		o.publish(ctx, o.builder.CallVoicemail(cs.callID, cs.room))
	}
	if reason == events.EndReasonTransfer {
		o.publish(ctx, o.builder.CallTransferred(cs.callID, cs.room).
			Target(cs.info.TransferTo, o.cfg.TransferIdentity).
			Build())
	}

	o.publishEnded(ctx, cs, outcome)
	return outcome
}

func (o *Orchestrator) publishEnded(ctx context.Context, cs *callSession, outcome *CallOutcome) {
	reason, detail, answeredAt, endedAt := cs.endState()

	var talk time.Duration
	if !answeredAt.IsZero() && !endedAt.IsZero() {
		talk = endedAt.Sub(answeredAt)
	}
	total := time.Since(cs.startedAt)
	if !endedAt.IsZero() {
		total = endedAt.Sub(cs.startedAt)
	}

	o.publish(ctx, o.builder.CallEnded(cs.callID, cs.room).
		Reason(reason, detail).
		Durations(talk, total).
		Build())
}

type startResult struct {
	sess AgentSession
	err  error
}

// closeStarted joins the concurrent session start and closes the session
// if it came up, so a failed dial never leaks a running pipeline.
func (o *Orchestrator) closeStarted(startCh <-chan startResult) {
	res := <-startCh
	if res.err == nil && res.sess != nil {
		res.sess.Close()
	}
}

func (o *Orchestrator) publish(ctx context.Context, event events.Event) {
	if err := o.publisher.Publish(ctx, event); err != nil {
		o.logger.Debug("event publish failed", "error", err)
	}
}
