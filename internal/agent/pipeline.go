// Package agent owns the conversational session bound to a call room: it
// runs the speech pipeline (voice activity detection, turn detection,
// speech-to-text, language model, speech synthesis) and exposes the
// drain-before-action semantics the call actions rely on.
//
// The pipeline stages themselves are external collaborators behind the
// narrow interfaces below; their internals are out of scope here.
package agent

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// AudioFrame is one chunk of PCM audio flowing through the pipeline.
type AudioFrame struct {
	Data []byte
	// Duration is the playout time of this frame.
	Duration time.Duration
}

// Turn is one entry in the conversation history.
type Turn struct {
	Role string // "system", "user", "assistant", "tool"
	Text string
}

// ActionCall is a named action the language model wants invoked, with its
// typed arguments as raw JSON.
type ActionCall struct {
	Name string
	Args json.RawMessage
}

// Reply is the language model's output for one turn: text to speak,
// an action to invoke, or both.
type Reply struct {
	Text   string
	Action *ActionCall
}

// SpeechToText converts caller audio into transcript segments.
type SpeechToText interface {
	Transcribe(ctx context.Context, frames <-chan AudioFrame) (<-chan string, error)
}

// LanguageModel produces the agent's next reply from the conversation so far.
type LanguageModel interface {
	Respond(ctx context.Context, turns []Turn) (Reply, error)
}

// SpeechSynthesizer converts reply text into audio.
type SpeechSynthesizer interface {
	Synthesize(ctx context.Context, text string) (<-chan AudioFrame, error)
}

// VoiceActivityDetector filters inbound audio down to speech frames.
type VoiceActivityDetector interface {
	Detect(ctx context.Context, frames <-chan AudioFrame) (<-chan AudioFrame, error)
}

// TurnDetector decides whether the caller has finished their turn, given
// the transcript so far and the silence elapsed since the last segment.
type TurnDetector interface {
	EndOfTurn(transcript string, silence time.Duration) bool
}

// RoomInput delivers the room's inbound audio.
type RoomInput interface {
	Read(ctx context.Context) (<-chan AudioFrame, error)
}

// RoomOutput plays agent audio into the room.
type RoomOutput interface {
	Write(ctx context.Context, frame AudioFrame) error
}

// ActionDispatcher executes a named action on behalf of the agent.
// The returned string is fed back to the language model as the tool result.
type ActionDispatcher interface {
	Dispatch(ctx context.Context, name string, args json.RawMessage) (string, error)
}

// Pipeline bundles the speech pipeline stages for one session.
type Pipeline struct {
	STT SpeechToText
	LLM LanguageModel
	TTS SpeechSynthesizer
	VAD VoiceActivityDetector
	// Turn may be nil; a silence-based default is used then.
	Turn TurnDetector
}

func (p Pipeline) validate() error {
	if p.STT == nil || p.LLM == nil || p.TTS == nil || p.VAD == nil {
		return errors.New("incomplete pipeline: STT, LLM, TTS and VAD are required")
	}
	return nil
}
