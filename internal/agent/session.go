package agent

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
)

// Controller owns the lifecycle of conversational sessions. One controller
// serves one worker process; it starts at most one session per call.
type Controller struct {
	pipeline Pipeline
	input    RoomInput
	output   RoomOutput
	logger   *slog.Logger
}

// NewController creates a session controller over the given pipeline and
// room audio endpoints.
func NewController(pipeline Pipeline, input RoomInput, output RoomOutput, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{
		pipeline: pipeline,
		input:    input,
		output:   output,
		logger:   logger,
	}
}

// StartOptions configures a session.
type StartOptions struct {
	// Instructions seeds the conversation as the system prompt.
	Instructions string
	// Room is the media room the session is bound to.
	Room string
	// Dispatcher executes actions the language model invokes. May be nil,
	// in which case action calls are logged and dropped.
	Dispatcher ActionDispatcher
}

// Start begins a session bound to the room. Inbound audio is captured from
// the moment Start is invoked; nothing after this call may be dropped due
// to a race with call setup.
func (c *Controller) Start(ctx context.Context, opts StartOptions) (*Session, error) {
	if err := c.pipeline.validate(); err != nil {
		return nil, err
	}
	if c.input == nil || c.output == nil {
		return nil, fmt.Errorf("session for %s: room audio endpoints not configured", opts.Room)
	}

	sctx, cancel := context.WithCancel(ctx)

	// Subscribe before returning so no audio is lost while the caller
	// proceeds with dialing.
	frames, err := c.input.Read(sctx)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("subscribe to room audio: %w", err)
	}

	s := &Session{
		pipeline:   c.pipeline,
		output:     c.output,
		dispatcher: opts.Dispatcher,
		room:       opts.Room,
		logger:     c.logger.With("room", opts.Room),
		cancel:     cancel,
		history:    []Turn{{Role: "system", Text: opts.Instructions}},
	}

	go s.run(sctx, frames)

	c.logger.Info("session started", "room", opts.Room)
	return s, nil
}

// Session is a running conversational session.
type Session struct {
	pipeline   Pipeline
	output     RoomOutput
	dispatcher ActionDispatcher
	room       string
	logger     *slog.Logger
	cancel     context.CancelFunc
	closeOnce  sync.Once

	// speakMu serializes playout so utterances never interleave.
	speakMu sync.Mutex

	mu          sync.Mutex
	history     []Turn
	current     *Utterance
	participant string
}

// Room returns the room this session is bound to.
func (s *Session) Room() string {
	return s.room
}

// SetParticipant binds the session to the callee's participant identity.
// The identity is set at most once; rebinding is a programming error.
func (s *Session) SetParticipant(identity string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.participant != "" && s.participant != identity {
		return fmt.Errorf("session already bound to %s", s.participant)
	}
	s.participant = identity
	return nil
}

// Participant returns the bound callee identity, or "" before binding.
func (s *Session) Participant() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.participant
}

// CurrentUtterance returns the utterance being played, or nil when idle.
func (s *Session) CurrentUtterance() *Utterance {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// GenerateReply injects a scripted line outside the normal turn loop and
// returns once the utterance has finished playing. Used for transfer
// notices and apologies that must complete before a protocol action.
func (s *Session) GenerateReply(ctx context.Context, instructions string) error {
	s.mu.Lock()
	turns := make([]Turn, len(s.history), len(s.history)+1)
	copy(turns, s.history)
	s.mu.Unlock()

	turns = append(turns, Turn{Role: "system", Text: instructions})

	reply, err := s.pipeline.LLM.Respond(ctx, turns)
	if err != nil {
		return fmt.Errorf("generate reply: %w", err)
	}
	if reply.Text == "" {
		return nil
	}

	s.appendTurn(Turn{Role: "assistant", Text: reply.Text})
	return s.speak(ctx, reply.Text)
}

// Close tears the session down. Idempotent.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		s.cancel()
		s.logger.Info("session closed")
	})
	return nil
}

// run drives the turn loop: speech frames in, transcript segments
// accumulated until end of turn, one language model response per turn.
func (s *Session) run(ctx context.Context, frames <-chan AudioFrame) {
	speech, err := s.pipeline.VAD.Detect(ctx, frames)
	if err != nil {
		s.logger.Error("voice activity detection failed", "error", err)
		return
	}

	texts, err := s.pipeline.STT.Transcribe(ctx, speech)
	if err != nil {
		s.logger.Error("transcription failed", "error", err)
		return
	}

	turnDet := s.pipeline.Turn
	if turnDet == nil {
		turnDet = SilenceTurnDetector{Hold: 700 * time.Millisecond}
	}

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	var pending []string
	var lastSegment time.Time

	for {
		select {
		case <-ctx.Done():
			return

		case seg, ok := <-texts:
			if !ok {
				return
			}
			if seg != "" {
				pending = append(pending, seg)
				lastSegment = time.Now()
			}

		case <-ticker.C:
			if len(pending) == 0 {
				continue
			}
			transcript := strings.Join(pending, " ")
			if turnDet.EndOfTurn(transcript, time.Since(lastSegment)) {
				pending = pending[:0]
				s.handleTurn(ctx, transcript)
			}
		}
	}
}

// handleTurn runs one caller turn through the language model, speaking the
// reply and dispatching an action call when present.
func (s *Session) handleTurn(ctx context.Context, transcript string) {
	s.logger.Debug("caller turn", "transcript", transcript)
	s.appendTurn(Turn{Role: "user", Text: transcript})

	s.mu.Lock()
	turns := make([]Turn, len(s.history))
	copy(turns, s.history)
	s.mu.Unlock()

	reply, err := s.pipeline.LLM.Respond(ctx, turns)
	if err != nil {
		s.logger.Warn("language model failed", "error", err)
		return
	}

	if reply.Text != "" {
		s.appendTurn(Turn{Role: "assistant", Text: reply.Text})
		if err := s.speak(ctx, reply.Text); err != nil {
			s.logger.Warn("playout failed", "error", err)
		}
	}

	if reply.Action != nil {
		if s.dispatcher == nil {
			s.logger.Warn("action requested with no dispatcher", "action", reply.Action.Name)
			return
		}
		result, err := s.dispatcher.Dispatch(ctx, reply.Action.Name, reply.Action.Args)
		if err != nil {
			s.logger.Warn("action failed", "action", reply.Action.Name, "error", err)
			return
		}
		s.logger.Info("action completed", "action", reply.Action.Name, "result", result)
		s.appendTurn(Turn{Role: "tool", Text: result})
	}
}

// speak synthesizes and plays one utterance, tracking it as current for the
// duration so actions can drain it.
func (s *Session) speak(ctx context.Context, text string) error {
	s.speakMu.Lock()
	defer s.speakMu.Unlock()

	utt := NewUtterance(text)
	s.mu.Lock()
	s.current = utt
	s.mu.Unlock()

	defer func() {
		utt.Finish()
		s.mu.Lock()
		if s.current == utt {
			s.current = nil
		}
		s.mu.Unlock()
	}()

	frames, err := s.pipeline.TTS.Synthesize(ctx, text)
	if err != nil {
		return fmt.Errorf("synthesize: %w", err)
	}
	for frame := range frames {
		if err := s.output.Write(ctx, frame); err != nil {
			return fmt.Errorf("write audio: %w", err)
		}
	}
	return nil
}

func (s *Session) appendTurn(t Turn) {
	s.mu.Lock()
	s.history = append(s.history, t)
	s.mu.Unlock()
}
