package service

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/jonny/askuser-bot/internal/domain/model"
)

// Dispatcher correlates inbound events with the sessions waiting for them.
// Removal from the registry and settlement of the waiter happen under one
// lock, so whichever of event, timer or cancellation gets there first is the
// only outcome a session ever observes.
type Dispatcher struct {
	mu      sync.Mutex
	clock   clockwork.Clock
	waiters map[string]*Waiter
}

func NewDispatcher(clock clockwork.Clock) *Dispatcher {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Dispatcher{
		clock:   clock,
		waiters: make(map[string]*Waiter),
	}
}

type settlement struct {
	ev  model.Event
	err error
}

// Waiter is a single-shot rendezvous for one session stage.
type Waiter struct {
	d      *Dispatcher
	keys   []string
	accept func(model.Event) bool
	once   sync.Once
	done   chan settlement
}

// Register creates a waiter for events carrying any of keys. accept may
// reject an otherwise matching event, leaving the waiter registered.
func (d *Dispatcher) Register(accept func(model.Event) bool, keys ...string) *Waiter {
	w := &Waiter{
		d:      d,
		keys:   keys,
		accept: accept,
		done:   make(chan settlement, 1),
	}
	d.mu.Lock()
	for _, k := range keys {
		d.waiters[k] = w
	}
	d.mu.Unlock()
	return w
}

// Deliver hands ev to the waiter registered under ev.Key. It returns false
// for unknown keys, rejected events and waiters that already settled.
func (d *Dispatcher) Deliver(ev model.Event) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	w, ok := d.waiters[ev.Key]
	if !ok {
		return false
	}
	if w.accept != nil && !w.accept(ev) {
		return false
	}
	d.removeLocked(w)
	return w.settle(settlement{ev: ev})
}

// Pending returns the number of registered waiters.
func (d *Dispatcher) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	seen := make(map[*Waiter]struct{}, len(d.waiters))
	for _, w := range d.waiters {
		seen[w] = struct{}{}
	}
	return len(seen)
}

func (d *Dispatcher) removeLocked(w *Waiter) {
	for _, k := range w.keys {
		if d.waiters[k] == w {
			delete(d.waiters, k)
		}
	}
}

// expire settles w with err unless something else settled it first.
func (d *Dispatcher) expire(w *Waiter, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.removeLocked(w)
	w.settle(settlement{err: err})
}

// settle must be called with d.mu held.
func (w *Waiter) settle(s settlement) bool {
	fired := false
	w.once.Do(func() {
		w.done <- s
		fired = true
	})
	return fired
}

// Await blocks until the waiter settles, timeout elapses or ctx is done, and
// returns the committed outcome. Timeouts surface as ErrTimeout.
func (w *Waiter) Await(ctx context.Context, timeout time.Duration) (model.Event, error) {
	timer := w.d.clock.AfterFunc(timeout, func() {
		w.d.expire(w, ErrTimeout)
	})
	defer timer.Stop()

	select {
	case s := <-w.done:
		return s.ev, s.err
	case <-ctx.Done():
		w.d.expire(w, ctx.Err())
		s := <-w.done
		return s.ev, s.err
	}
}

// Cancel unregisters the waiter without waiting on it.
func (w *Waiter) Cancel() {
	w.d.expire(w, errWaiterCancelled)
}
