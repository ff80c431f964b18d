package agent

import (
	"context"
	"encoding/binary"
	"sync"
	"time"
)

// Development stand-ins for the pipeline stages. These let the worker run
// end to end without external speech providers: the VAD and turn detector
// are real local implementations, the rest produce scripted or empty
// output. Production deployments inject provider-backed stages instead.

// SilenceTurnDetector ends a turn once the caller has been silent for Hold
// with a non-empty transcript accumulated.
type SilenceTurnDetector struct {
	Hold time.Duration
}

func (d SilenceTurnDetector) EndOfTurn(transcript string, silence time.Duration) bool {
	hold := d.Hold
	if hold <= 0 {
		hold = 700 * time.Millisecond
	}
	return transcript != "" && silence >= hold
}

// EnergyVAD passes through frames whose mean amplitude exceeds Threshold.
// Frames are interpreted as 16-bit little-endian PCM.
type EnergyVAD struct {
	Threshold int
}

func (v EnergyVAD) Detect(ctx context.Context, frames <-chan AudioFrame) (<-chan AudioFrame, error) {
	threshold := v.Threshold
	if threshold <= 0 {
		threshold = 500
	}

	out := make(chan AudioFrame)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case frame, ok := <-frames:
				if !ok {
					return
				}
				if meanAmplitude(frame.Data) < threshold {
					continue
				}
				select {
				case out <- frame:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

func meanAmplitude(pcm []byte) int {
	samples := len(pcm) / 2
	if samples == 0 {
		return 0
	}
	var sum int64
	for i := 0; i+1 < len(pcm); i += 2 {
		v := int64(int16(binary.LittleEndian.Uint16(pcm[i:])))
		if v < 0 {
			v = -v
		}
		sum += v
	}
	return int(sum / int64(samples))
}

// NullSpeechToText produces no transcript. It drains its input so the
// upstream stages never block.
type NullSpeechToText struct{}

func (NullSpeechToText) Transcribe(ctx context.Context, frames <-chan AudioFrame) (<-chan string, error) {
	out := make(chan string)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-frames:
				if !ok {
					return
				}
			}
		}
	}()
	return out, nil
}

// StaticLanguageModel replays a fixed sequence of replies, then repeats the
// last one. Useful for smoke-testing call flows without an LLM provider.
type StaticLanguageModel struct {
	mu      sync.Mutex
	replies []Reply
	next    int
}

// NewStaticLanguageModel creates a model that replays the given replies.
func NewStaticLanguageModel(replies ...Reply) *StaticLanguageModel {
	return &StaticLanguageModel{replies: replies}
}

func (m *StaticLanguageModel) Respond(ctx context.Context, turns []Turn) (Reply, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.replies) == 0 {
		return Reply{}, nil
	}
	r := m.replies[m.next]
	if m.next < len(m.replies)-1 {
		m.next++
	}
	return r, nil
}

// SilenceSynthesizer produces silent frames timed to the text length, so
// utterance playout and draining behave realistically without a TTS
// provider.
type SilenceSynthesizer struct {
	// PerWord is the simulated playout time per word.
	PerWord time.Duration
}

func (s SilenceSynthesizer) Synthesize(ctx context.Context, text string) (<-chan AudioFrame, error) {
	perWord := s.PerWord
	if perWord <= 0 {
		perWord = 300 * time.Millisecond
	}

	words := 1
	for _, r := range text {
		if r == ' ' {
			words++
		}
	}

	out := make(chan AudioFrame)
	go func() {
		defer close(out)
		for i := 0; i < words; i++ {
			select {
			case out <- AudioFrame{Duration: perWord}:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

// NullInput is a room input with no audio. Read blocks until the context
// is cancelled.
type NullInput struct{}

func (NullInput) Read(ctx context.Context) (<-chan AudioFrame, error) {
	out := make(chan AudioFrame)
	go func() {
		<-ctx.Done()
		close(out)
	}()
	return out, nil
}

// PacedOutput discards frames but sleeps for each frame's duration, so
// playout takes the time it would on a real room track.
type PacedOutput struct{}

func (PacedOutput) Write(ctx context.Context, frame AudioFrame) error {
	if frame.Duration <= 0 {
		return nil
	}
	select {
	case <-time.After(frame.Duration):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
