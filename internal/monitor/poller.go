package monitor

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// AttributeSource returns the latest attribute snapshot for the watched
// participant. An error means the snapshot is momentarily unavailable
// (e.g. the participant has not joined yet); polling continues.
type AttributeSource func(ctx context.Context) (map[string]string, error)

// Poller periodically classifies a participant's call status and emits
// state changes. It stops on the first ended state, on context
// cancellation, or when Stop is called; it never outlives the call it
// serves.
type Poller struct {
	source   AttributeSource
	interval time.Duration
	logger   *slog.Logger
	stop     chan struct{}
	stopOnce sync.Once
}

// NewPoller creates a poller over the given attribute source.
func NewPoller(source AttributeSource, interval time.Duration, logger *slog.Logger) *Poller {
	if interval <= 0 {
		interval = 100 * time.Millisecond
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Poller{
		source:   source,
		interval: interval,
		logger:   logger,
		stop:     make(chan struct{}),
	}
}

// Watch starts polling and returns a channel of state changes. The first
// observed state is always emitted, subsequent states only when they
// differ from the previous one. The channel is closed when polling stops.
func (p *Poller) Watch(ctx context.Context) <-chan CallState {
	states := make(chan CallState, 8)

	go func() {
		defer close(states)

		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()

		last := CallState(-1)
		for {
			attrs, err := p.source(ctx)
			if err != nil {
				p.logger.Debug("call status unavailable", "error", err)
			} else {
				state := Classify(attrs)
				if state != last {
					last = state
					select {
					case states <- state:
					case <-ctx.Done():
						return
					case <-p.stop:
						return
					}
					if state.Ended() {
						return
					}
				}
			}

			select {
			case <-ctx.Done():
				return
			case <-p.stop:
				return
			case <-ticker.C:
			}
		}
	}()

	return states
}

// Stop cancels polling. Safe to call more than once.
func (p *Poller) Stop() {
	p.stopOnce.Do(func() { close(p.stop) })
}
