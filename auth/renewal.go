package auth

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/metric"

	"github.com/streamkit/helix"
	"github.com/streamkit/helix/instrumentation"
)

// schedule arms the renewal timer for a token, replacing any timer the
// principal already has. The timer fires at NextRefreshAt; a token
// already past it is renewed immediately.
func (m *Manager) schedule(token *helix.AuthToken) {
	m.scheduleAfter(token.ID, time.Until(token.NextRefreshAt()))
}

// scheduleRetry arms a short retry timer after a transient failure,
// keeping the chain alive without waiting out a full token lifetime.
func (m *Manager) scheduleRetry(id helix.Principal) {
	m.scheduleAfter(id, m.retryInterval)
}

// renewalTimer pairs a pending timer with the generation that armed
// it, so a fired callback can tell whether it is still the current one.
type renewalTimer struct {
	timer *time.Timer
	gen   uint64
}

func (m *Manager) scheduleAfter(id helix.Principal, d time.Duration) {
	if d < 0 {
		d = 0
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	if prev, ok := m.timers[id]; ok {
		prev.timer.Stop()
	}
	m.seq++
	gen := m.seq
	m.timers[id] = renewalTimer{
		timer: time.AfterFunc(d, func() { m.renew(id, gen) }),
		gen:   gen,
	}
}

func (m *Manager) cancelTimer(id helix.Principal) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if pending, ok := m.timers[id]; ok {
		pending.timer.Stop()
		delete(m.timers, id)
	}
}

// renew is the timer callback. It re-reads the stored token so a
// refresh that happened between arming and firing is picked up, then
// refreshes it. Refresh itself schedules the successor on success and
// evicts on terminal rejection; a transient failure arms a retry.
func (m *Manager) renew(id helix.Principal, gen uint64) {
	m.mu.Lock()
	closed := m.closed
	// An out-of-band Refresh may have armed a replacement between the
	// timer firing and this lock; only the arming generation may drop
	// the tracked entry.
	if pending, ok := m.timers[id]; ok && pending.gen == gen {
		delete(m.timers, id)
	}
	m.mu.Unlock()
	if closed {
		return
	}

	m.countWith(func(x *instrumentation.Metrics) metric.Int64Counter { return x.RenewalFired })

	ctx, cancel := context.WithTimeout(context.Background(), m.exchangeTimeout)
	defer cancel()

	token, err := m.store.Get(ctx, id)
	if err != nil {
		// Deleted or unreadable since the timer was armed. Either
		// way the chain cannot continue.
		m.logger.Warn("renewal skipped, token unavailable",
			"principal", id,
			"error", err)
		return
	}

	if _, err := m.Refresh(ctx, token); err != nil {
		var transient *helix.TransientRefreshError
		if errors.As(err, &transient) {
			m.scheduleRetry(id)
			return
		}
		if errors.Is(err, helix.ErrInvalidRefreshToken) {
			return
		}
		m.logger.Error("renewal failed",
			"principal", id,
			"error", err)
	}
}
