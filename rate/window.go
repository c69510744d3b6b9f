// Copyright © 2025-2026 Prabhjot Singh Sethi, All Rights reserved
// Author: Prabhjot Singh Sethi <prabhjot.sethi@gmail.com>

package rate

import (
	"context"
	"log"
	"math"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/go-core-stack/throttle/errors"
)

const (
	// DefaultWindow is the rolling admission window used when no
	// WithWindow option is supplied
	DefaultWindow = time.Second

	// slot stamp for a slot that was never claimed, treated as
	// negative infinity so the first claim of every slot succeeds
	neverClaimed int64 = math.MinInt64
)

// process local epoch, readings derived from it carry the monotonic clock
var epoch = time.Now()

func monotonicNow() int64 {
	return int64(time.Since(epoch))
}

// slot is one cell of the ring. stamp holds the admission time of the
// last claim, turn holds the cursor value of the next claim allowed on
// this slot and is published only after stamp is written, so a claim
// can never start while the previous owner is still writing.
type slot struct {
	stamp atomic.Int64
	turn  atomic.Uint64
}

// RateWindow admits at most capacity events in any trailing span of the
// configured window, using only atomic operations.
//
// The ring of slots is consumed strictly in cursor order. A slot is
// eligible once its last admission is older than the window, and only
// the caller that advances the cursor from c to c+1 may write slot
// c % capacity.
type RateWindow struct {
	id     uuid.UUID
	window time.Duration
	clock  func() int64
	cursor atomic.Uint64
	slots  []slot
}

// WindowOption customizes a RateWindow at construction
type WindowOption func(*RateWindow) error

// WithWindow sets the length of the rolling admission window
func WithWindow(d time.Duration) WindowOption {
	return func(w *RateWindow) error {
		if d <= 0 {
			return errors.Wrapf(errors.InvalidConfiguration, "window must be positive, got %s", d)
		}
		w.window = d
		return nil
	}
}

// WithClock replaces the monotonic clock, the function must return
// nanoseconds that never go backwards
func WithClock(now func() int64) WindowOption {
	return func(w *RateWindow) error {
		if now == nil {
			return errors.Wrapf(errors.InvalidConfiguration, "clock must not be nil")
		}
		w.clock = now
		return nil
	}
}

// NewRateWindow allocates a ring of capacity slots, all in the never
// claimed state, with the cursor at zero.
func NewRateWindow(capacity int, opts ...WindowOption) (*RateWindow, error) {
	if capacity <= 0 {
		return nil, errors.Wrapf(errors.InvalidConfiguration, "capacity must be positive, got %d", capacity)
	}
	w := &RateWindow{
		id:     uuid.New(),
		window: DefaultWindow,
		clock:  monotonicNow,
		slots:  make([]slot, capacity),
	}
	for _, opt := range opts {
		if err := opt(w); err != nil {
			return nil, err
		}
	}
	for i := range w.slots {
		w.slots[i].stamp.Store(neverClaimed)
		w.slots[i].turn.Store(uint64(i))
	}
	return w, nil
}

// ID returns the identity of this window instance
func (w *RateWindow) ID() uuid.UUID {
	return w.id
}

// Capacity returns the number of admissions allowed per window
func (w *RateWindow) Capacity() int {
	return len(w.slots)
}

// Window returns the length of the rolling admission window
func (w *RateWindow) Window() time.Duration {
	return w.window
}

// remaining returns the wait before a slot stamped at last becomes
// eligible at now, zero if it already is
func (w *RateWindow) remaining(now, last int64) time.Duration {
	if last == neverClaimed {
		return 0
	}
	elapsed := time.Duration(now - last)
	if elapsed > w.window {
		return 0
	}
	if wait := w.window - elapsed; wait > 0 {
		return wait
	}
	// exactly one window old, eligible on the next tick
	return 1
}

// Peek reports how long a caller would have to wait before being
// admitted, zero meaning an admission would succeed right now. It does
// not modify any state.
//
// Only the slot addressed by the cursor is inspected, so under
// contention the result is an approximation rather than a reservation:
// a following TryAdmit may land on another slot or see another result.
func (w *RateWindow) Peek() time.Duration {
	n := uint64(len(w.slots))
	for attempt := 0; attempt < len(w.slots); attempt++ {
		c := w.cursor.Load()
		s := &w.slots[c%n]
		turn := s.turn.Load()
		if turn < c {
			// claim of this slot still being written
			return w.window
		}
		if turn > c {
			// cursor moved underneath us
			continue
		}
		return w.remaining(w.clock(), s.stamp.Load())
	}
	return w.window
}

// TryAdmit attempts to claim the slot addressed by the cursor. It returns
// zero when admitted, otherwise a lower bound of the time to wait before
// trying again. The result is never negative.
//
// A slot that is not yet eligible is never skipped: the ring is consumed
// in cursor order so the addressed slot is always the least recently
// used one, and admissions are totally ordered by cursor advance.
func (w *RateWindow) TryAdmit() time.Duration {
	n := uint64(len(w.slots))
	for attempt := 0; attempt < len(w.slots); attempt++ {
		c := w.cursor.Load()
		s := &w.slots[c%n]
		turn := s.turn.Load()
		if turn < c {
			// previous owner has advanced the cursor but not yet
			// stamped the slot, it will be fresh once it has
			return w.window
		}
		if turn > c {
			continue
		}
		expected := s.stamp.Load()
		now := w.clock()
		if wait := w.remaining(now, expected); wait > 0 {
			return wait
		}
		if !w.cursor.CompareAndSwap(c, c+1) {
			// lost the race for this slot, look again
			continue
		}
		if !s.stamp.CompareAndSwap(expected, now) {
			log.Panicf("rate window %s: slot %d modified by another writer after cursor claim %d (expected %d, found %d)",
				w.id, c%n, c, expected, s.stamp.Load())
		}
		s.turn.Store(c + n)
		return 0
	}
	// every attempt lost a cursor race
	return w.window
}

// IsAdmitted reports whether an admission would succeed right now. It is
// read only and claims nothing: branching on it and then calling
// TryAdmit races with every other caller, TryAdmit may still reject.
func (w *RateWindow) IsAdmitted() bool {
	return w.Peek() == 0
}

// AdmitBlocking spins on TryAdmit, yielding the processor between
// attempts, and returns only once admitted. There is no deadline, use
// Admit when the wait must be bounded.
func (w *RateWindow) AdmitBlocking() {
	for w.TryAdmit() > 0 {
		runtime.Gosched()
	}
}

// Admit blocks until admitted or until ctx is done, sleeping for the
// wait estimate between attempts. It returns ctx.Err() if the context
// ends first and nil once admitted.
func (w *RateWindow) Admit(ctx context.Context) error {
	_, err := waitAdmission(ctx, w.TryAdmit)
	return err
}

// waitAdmission repeats attempt, sleeping for each returned wait, until
// it returns zero or ctx is done. It returns the wait of the last
// attempt, zero when admitted or when ctx ended before any attempt.
func waitAdmission(ctx context.Context, attempt func() time.Duration) (time.Duration, error) {
	var wait time.Duration
	for {
		if err := ctx.Err(); err != nil {
			return wait, err
		}
		wait = attempt()
		if wait == 0 {
			return 0, nil
		}
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return wait, ctx.Err()
		case <-timer.C:
		}
	}
}

// WaitAdvisory sleeps for the wait reported by Peek and returns without
// claiming anything. Another caller may take the slot in the meantime,
// so callers that need an admission must still call TryAdmit or
// AdmitBlocking afterwards.
func (w *RateWindow) WaitAdvisory() {
	if wait := w.Peek(); wait > 0 {
		time.Sleep(wait)
	}
}
