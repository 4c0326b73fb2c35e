// Subscription layer for spec §6's engine-to-UI contract. Per spec §9's
// explicit design note, each Subscribe* method polls the authoritative
// store (or log ring) for a version bump rather than keeping its own
// mirror updated by the mutating side — a retained mirror of that kind is
// the anti-pattern spec §9 calls out by name; this layer is deliberately
// built the other way.
package engine

import (
	"time"

	"github.com/nerdneilsfield/epub-translate/internal/logger"
	"github.com/nerdneilsfield/epub-translate/internal/model"
)

// pollInterval is how often a subscription re-checks its source for a new
// version. Short enough to feel live in a CLI progress bar, long enough
// not to contend with the store's mutex under load.
const pollInterval = 150 * time.Millisecond

// Subscription is the generic observer handle spec §6 describes.
type Subscription[T any] interface {
	C() <-chan T
	Close()
}

type subscription[T any] struct {
	ch     chan T
	stop   chan struct{}
	closed bool
}

func (s *subscription[T]) C() <-chan T { return s.ch }

func (s *subscription[T]) Close() {
	if s.closed {
		return
	}
	s.closed = true
	close(s.stop)
}

// newPolledSubscription starts a goroutine that calls fetch every
// pollInterval, pushing a new value onto the channel only when the
// observed version changes. The channel is buffered by one and a send
// that would block instead drops the stale buffered value and sends the
// new one in its place —
// this is a live state feed, not an event log, so a slow consumer should
// see the latest version, not queue up every intermediate one.
func newPolledSubscription[T any](fetch func() (T, uint64)) Subscription[T] {
	sub := &subscription[T]{
		ch:   make(chan T, 1),
		stop: make(chan struct{}),
	}

	go func() {
		ticker := time.NewTicker(pollInterval)
		defer ticker.Stop()

		initial, lastVersion := fetch()
		sub.ch <- initial

		for {
			select {
			case <-sub.stop:
				return
			case <-ticker.C:
				val, version := fetch()
				if version == lastVersion {
					continue
				}
				lastVersion = version
				select {
				case sub.ch <- val:
				default:
					select {
					case <-sub.ch:
					default:
					}
					sub.ch <- val
				}
			}
		}
	}()

	return sub
}

// SubscribeToSegments observes the full ordered segment list.
func (e *Engine) SubscribeToSegments() Subscription[[]model.Segment] {
	return newPolledSubscription(func() ([]model.Segment, uint64) {
		return e.store.Segments(), e.store.Version()
	})
}

// SubscribeToProjectStats observes the (total, translated, failed, skipped)
// counters.
func (e *Engine) SubscribeToProjectStats() Subscription[model.ProjectStats] {
	return newPolledSubscription(func() (model.ProjectStats, uint64) {
		return e.store.Stats(), e.store.Version()
	})
}

// SubscribeToEngineState observes the coarse engine state machine. Its
// version source is the state value itself rather than the store's
// mutation counter, since a state transition like QUOTA_PAUSED doesn't
// always coincide with a store write.
func (e *Engine) SubscribeToEngineState() Subscription[model.EngineState] {
	var lastState model.EngineState
	var version uint64
	return newPolledSubscription(func() (model.EngineState, uint64) {
		current := e.State()
		if current != lastState {
			version++
			lastState = current
		}
		return current, version
	})
}

// SubscribeToLogs observes the bounded log ring buffer.
func (e *Engine) SubscribeToLogs() Subscription[[]logger.Entry] {
	return newPolledSubscription(func() ([]logger.Entry, uint64) {
		return e.ring.Snapshot()
	})
}
