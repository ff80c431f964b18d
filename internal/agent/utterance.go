package agent

import (
	"context"
	"sync"
)

// Utterance is one unit of synthesized speech being played by the agent.
// Callers use WaitForPlayout to drain it before acting on the call.
type Utterance struct {
	text string
	done chan struct{}
	once sync.Once
}

// NewUtterance creates an utterance that has not finished playing.
func NewUtterance(text string) *Utterance {
	return &Utterance{
		text: text,
		done: make(chan struct{}),
	}
}

// Text returns the spoken text.
func (u *Utterance) Text() string {
	return u.text
}

// WaitForPlayout blocks until the utterance has finished playing or the
// context is cancelled.
func (u *Utterance) WaitForPlayout(ctx context.Context) error {
	select {
	case <-u.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Done reports whether playout has finished.
func (u *Utterance) Done() bool {
	select {
	case <-u.done:
		return true
	default:
		return false
	}
}

// Finish marks playout complete. Idempotent.
func (u *Utterance) Finish() {
	u.once.Do(func() { close(u.done) })
}
