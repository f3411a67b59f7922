package service

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Heartbeat runs a function on a fixed period until stopped
type Heartbeat struct {
	interval time.Duration
	tick     func()
	logger   *logrus.Logger

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// NewHeartbeat creates a heartbeat that calls tick every interval
func NewHeartbeat(interval time.Duration, tick func(), logger *logrus.Logger) *Heartbeat {
	return &Heartbeat{
		interval: interval,
		tick:     tick,
		logger:   logger,
	}
}

// Start begins ticking. Starting a running heartbeat is a no-op.
func (h *Heartbeat) Start(ctx context.Context) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.running {
		return
	}
	h.running = true
	h.stopCh = make(chan struct{})
	h.doneCh = make(chan struct{})

	go h.loop(ctx, h.stopCh, h.doneCh)
	h.logger.WithField("interval", h.interval.String()).Debug("Heartbeat started")
}

// Stop halts the heartbeat and waits for the loop to exit. Once Stop
// returns, tick will not be called again.
func (h *Heartbeat) Stop() {
	h.mu.Lock()
	if !h.running {
		h.mu.Unlock()
		return
	}
	close(h.stopCh)
	done := h.doneCh
	h.running = false
	h.mu.Unlock()

	<-done
	h.logger.Debug("Heartbeat stopped")
}

// Running reports whether the heartbeat loop is active
func (h *Heartbeat) Running() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.running
}

func (h *Heartbeat) loop(ctx context.Context, stopCh <-chan struct{}, doneCh chan<- struct{}) {
	defer close(doneCh)

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-stopCh:
			return
		case <-ticker.C:
			// stop wins over a tick that fired at the same time
			select {
			case <-stopCh:
				return
			default:
			}
			h.tick()
		}
	}
}
